// Copyright © 2026, Extractly Authors. All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Markdown rendering of the structured line model: headings by font size,
// emphasis, links, bullets, and table substitution.

package extractly

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	autoLinkRe   = regexp.MustCompile(`https?://[^\s<>()]+`)
	numberedRe   = regexp.MustCompile(`^(\d{1,3})[.)]\s+`)
	alphaListRe  = regexp.MustCompile(`^[a-z]\)\s+`)
	bulletGlyphs = "•‣◦⁃∙"
)

// renderMarkdown produces a GFM string from assembled lines, replacing
// the line runs inside each detected table's y-range with a Markdown
// table.
func renderMarkdown(lines []Line, tables []Table) string {
	body := bodyFontSize(lines)

	var sb strings.Builder
	emitted := make([]bool, len(tables))
	lastBlank := true

	for _, line := range lines {
		if ti := tableIndexAt(tables, line.Y); ti >= 0 {
			if !emitted[ti] {
				emitted[ti] = true
				if !lastBlank {
					sb.WriteString("\n")
				}
				sb.WriteString(markdownTable(tables[ti]))
				sb.WriteString("\n")
				lastBlank = true
			}
			continue
		}

		text := strings.TrimSpace(line.Text)
		if text == "" {
			continue
		}

		if level := headingLevel(line, body); level > 0 {
			if !lastBlank {
				sb.WriteString("\n")
			}
			sb.WriteString(strings.Repeat("#", level))
			sb.WriteString(" ")
			sb.WriteString(text)
			sb.WriteString("\n\n")
			lastBlank = true
			continue
		}

		sb.WriteString(markdownLine(line))
		sb.WriteString("\n")
		lastBlank = false
		if line.BlankAfter {
			sb.WriteString("\n")
			lastBlank = true
		}
	}

	out := sb.String()
	out = tripleNewlineRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// bodyFontSize is the font size carrying the greatest total character
// weight, the baseline for heading detection.
func bodyFontSize(lines []Line) float64 {
	weights := make(map[float64]int)
	for _, l := range lines {
		weights[l.FontSize] += len(l.Text)
	}
	best, bestW := 12.0, -1
	for size, w := range weights {
		if size <= 0 {
			continue
		}
		if w > bestW || (w == bestW && size > best) {
			best, bestW = size, w
		}
	}
	return best
}

// headingLevel maps the size ratio to H1..H4: factors 2.0 / 1.6 / 1.3 /
// 1.15 over the body size, for lines of at most 200 characters that do
// not end mid-sentence.
func headingLevel(line Line, body float64) int {
	text := strings.TrimSpace(line.Text)
	if body <= 0 || len(text) == 0 || len(text) > 200 {
		return 0
	}
	if strings.HasSuffix(text, ",") || strings.HasSuffix(text, ";") {
		return 0
	}
	ratio := line.FontSize / body
	switch {
	case ratio >= 2.0:
		return 1
	case ratio >= 1.6:
		return 2
	case ratio >= 1.3:
		return 3
	case ratio >= 1.15:
		return 4
	}
	return 0
}

func tableIndexAt(tables []Table, y float64) int {
	for i, t := range tables {
		if y <= t.YStart+0.5 && y >= t.YEnd-0.5 {
			return i
		}
	}
	return -1
}

// markdownLine renders one line's spans with emphasis and links, after
// normalizing list prefixes. A line that is entirely bold or italic is
// wrapped once instead of per-span.
func markdownLine(line Line) string {
	prefix, rest := listPrefix(strings.TrimSpace(line.Text))

	spans := line.Spans
	if prefix != "" && len(spans) > 0 {
		// drop the original marker from the first span
		first := spans[0]
		_, first.Text = listPrefix(strings.TrimLeft(first.Text, " "))
		spans = append([]Span{first}, spans[1:]...)
	}

	if len(spans) == 0 {
		return prefix + autoLink(rest)
	}

	allBold, allItalic, anyLink := true, true, false
	for _, sp := range spans {
		if strings.TrimSpace(sp.Text) == "" {
			continue
		}
		if !sp.Bold {
			allBold = false
		}
		if !sp.Italic {
			allItalic = false
		}
		if sp.Link != "" {
			anyLink = true
		}
	}
	if (allBold || allItalic) && !anyLink {
		return prefix + wrapEmphasis(rest, allBold, allItalic)
	}
	return prefix + renderSpans(spans)
}

func renderSpans(spans []Span) string {
	var sb strings.Builder
	for _, sp := range spans {
		text := sp.Text
		trimmed := strings.TrimLeft(text, " ")
		lead := text[:len(text)-len(trimmed)]
		text = trimmed
		trimmed = strings.TrimRight(text, " ")
		trail := text[len(trimmed):]
		text = trimmed

		if text == "" {
			sb.WriteString(lead + trail)
			continue
		}
		if sp.Link != "" {
			text = fmt.Sprintf("[%s](%s)", text, sp.Link)
		} else {
			text = autoLink(text)
			text = wrapEmphasis(text, sp.Bold, sp.Italic)
		}
		sb.WriteString(lead)
		sb.WriteString(text)
		sb.WriteString(trail)
	}
	return sb.String()
}

func wrapEmphasis(text string, bold, italic bool) string {
	switch {
	case bold && italic:
		return "***" + text + "***"
	case bold:
		return "**" + text + "**"
	case italic:
		return "*" + text + "*"
	}
	return text
}

func autoLink(text string) string {
	return autoLinkRe.ReplaceAllStringFunc(text, func(u string) string {
		return fmt.Sprintf("[%s](%s)", u, u)
	})
}

// listPrefix recognizes bullet glyphs and numeric or alphabetic list
// markers and returns the normalized Markdown prefix plus the remainder.
func listPrefix(text string) (string, string) {
	if text == "" {
		return "", text
	}
	r, size := utf8.DecodeRuneInString(text)
	if strings.ContainsRune(bulletGlyphs, r) {
		return "- ", strings.TrimLeft(text[size:], " ")
	}
	if (r == '-' || r == '*') && strings.HasPrefix(text[size:], " ") {
		// "-word" is a hyphen, not a bullet; require the space
		return "- ", strings.TrimLeft(text[size:], " ")
	}
	if m := numberedRe.FindStringSubmatch(text); m != nil {
		return m[1] + ". ", text[len(m[0]):]
	}
	if m := alphaListRe.FindString(text); m != "" {
		return "- ", text[len(m):]
	}
	return "", text
}

func markdownTable(t Table) string {
	if len(t.Cells) == 0 {
		return ""
	}
	cols := 0
	for _, row := range t.Cells {
		if len(row) > cols {
			cols = len(row)
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		sb.WriteString("|")
		for i := 0; i < cols; i++ {
			c := ""
			if i < len(cells) {
				c = strings.ReplaceAll(cells[i], "|", `\|`)
			}
			sb.WriteString(" " + c + " |")
		}
		sb.WriteString("\n")
	}

	rows := t.Cells
	if t.HasHeader {
		writeRow(rows[0])
		rows = rows[1:]
	} else {
		writeRow(make([]string, cols))
	}
	sb.WriteString("|")
	for i := 0; i < cols; i++ {
		sb.WriteString(" --- |")
	}
	sb.WriteString("\n")
	for _, row := range rows {
		writeRow(row)
	}
	return sb.String()
}
