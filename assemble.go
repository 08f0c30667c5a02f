// Copyright © 2026, Extractly Authors. All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Reading-order assembly: text-object-aware sorting, line and paragraph
// inference, word spacing, and form-placeholder stripping.

package extractly

import (
	"regexp"
	"sort"
	"strings"
)

// A Span is a styled fragment of a structured line.
type Span struct {
	Text   string
	Bold   bool
	Italic bool
	Link   string // URI when the span sits inside a link annotation
}

// A Line is one assembled text line with style and position metadata.
type Line struct {
	Text       string
	Spans      []Span
	FontSize   float64 // dominant size by character weight
	Y          float64
	BlankAfter bool // a paragraph break follows
}

var (
	boldFontRe   = regexp.MustCompile(`(?i)bold|black|heavy|semi|demi`)
	italicFontRe = regexp.MustCompile(`(?i)italic|oblique`)
)

// sortItems orders positioned runs into reading order: stable sort by y
// descending, cluster into lines, then within each line order text-object
// groups by their leftmost x while preserving stream order inside a
// group. Items without a text-object id fall back to x-ascending. This
// prevents character-level interleaving when overlapping BT/ET objects
// target the same baseline.
func sortItems(items []TextItem) []TextItem {
	if len(items) == 0 {
		return nil
	}
	sorted := make([]TextItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Y > sorted[j].Y
	})

	out := make([]TextItem, 0, len(sorted))
	for start := 0; start < len(sorted); {
		end := start + 1
		for end < len(sorted) {
			fs := sorted[end-1].FontSize
			if fs == 0 {
				fs = 12
			}
			if sorted[end-1].Y-sorted[end].Y > 0.5*fs {
				break
			}
			end++
		}
		out = append(out, sortLine(sorted[start:end])...)
		start = end
	}
	return out
}

func sortLine(line []TextItem) []TextItem {
	type group struct {
		obj   int
		minX  float64
		items []TextItem
	}
	var groups []*group
	byObj := make(map[int]*group)
	for _, it := range line {
		if it.obj == 0 {
			groups = append(groups, &group{minX: it.X, items: []TextItem{it}})
			continue
		}
		g, ok := byObj[it.obj]
		if !ok {
			g = &group{obj: it.obj, minX: it.X}
			byObj[it.obj] = g
			groups = append(groups, g)
		}
		if it.X < g.minX {
			g.minX = it.X
		}
		g.items = append(g.items, it)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].minX < groups[j].minX
	})
	out := make([]TextItem, 0, len(line))
	for _, g := range groups {
		out = append(out, g.items...)
	}
	return out
}

// shouldInsertSpace decides word boundaries. With real metric widths a
// small positive gap is enough; without them the prior run's width is
// estimated from its length at half the font size.
func shouldInsertSpace(xGap, posGap float64, lastTextLen int, fontSize float64, lastHasMetricWidth bool) bool {
	if lastHasMetricWidth {
		return xGap > 0.15*fontSize
	}
	n := lastTextLen
	if n < 1 {
		n = 1
	}
	estimate := float64(n) * fontSize * 0.5
	return posGap > estimate
}

// assembled is the shared result of one traversal: the plain text and the
// structured line model the Markdown and table passes consume.
type assembled struct {
	text  string
	lines []Line
}

// assemble walks the sorted items once, inserting line breaks, paragraph
// breaks, and word spaces from position and font-metric heuristics.
// links, when present, attach URIs to spans whose source item center
// falls inside a link rectangle.
func assemble(items []TextItem, opts LoadOptions, links []Link) assembled {
	items = sortItems(items)
	if len(items) == 0 {
		return assembled{}
	}

	var sb strings.Builder
	var lines []Line
	var cur *Line
	var weights map[float64]int

	flushLine := func(blankAfter bool) {
		if cur == nil {
			return
		}
		best, bestW := 0.0, -1
		for size, w := range weights {
			if w > bestW || (w == bestW && size > best) {
				best, bestW = size, w
			}
		}
		cur.FontSize = best
		cur.BlankAfter = blankAfter
		lines = append(lines, *cur)
		cur = nil
	}

	startLine := func(it TextItem) {
		cur = &Line{Y: it.Y}
		weights = map[float64]int{}
	}

	appendSpan := func(it TextItem, prefix string) {
		if cur == nil {
			startLine(it)
		}
		cur.Text += prefix + it.S
		weights[it.FontSize] += len(it.S)
		sp := Span{
			Text:   it.S,
			Bold:   boldFontRe.MatchString(it.Font),
			Italic: italicFontRe.MatchString(it.Font),
			Link:   linkAt(links, it.X+it.W/2, it.Y),
		}
		if n := len(cur.Spans); n > 0 && cur.Spans[n-1].Bold == sp.Bold &&
			cur.Spans[n-1].Italic == sp.Italic && cur.Spans[n-1].Link == sp.Link {
			cur.Spans[n-1].Text += prefix + sp.Text
		} else {
			if prefix != "" && len(cur.Spans) > 0 {
				cur.Spans[len(cur.Spans)-1].Text += prefix
			}
			cur.Spans = append(cur.Spans, sp)
		}
	}

	var lastX, lastY, lastFontSize, lastWidth float64
	var lastTextLen int
	var lastHasMetric bool

	for i, it := range items {
		if i == 0 {
			sb.WriteString(it.S)
			appendSpan(it, "")
		} else {
			fs := lastFontSize
			if fs == 0 {
				fs = 12
			}
			dy := it.Y - lastY
			if dy < 0 {
				dy = -dy
			}
			if dy > 0.5*fs {
				para := dy > 1.8*fs
				if para {
					sb.WriteString("\n\n")
				} else {
					sb.WriteString("\n")
				}
				flushLine(para)
				startLine(it)
				sb.WriteString(it.S)
				appendSpan(it, "")
			} else {
				xGap := it.X - (lastX + lastWidth)
				posGap := it.X - lastX
				space := xGap < -2*fs ||
					shouldInsertSpace(xGap, posGap, lastTextLen, fs, lastHasMetric)
				if space {
					sb.WriteString(" ")
					appendSpan(it, " ")
				} else {
					appendSpan(it, "")
				}
				sb.WriteString(it.S)
			}
		}
		lastX, lastY = it.X, it.Y
		lastFontSize = it.FontSize
		lastWidth = it.W
		lastTextLen = len(it.S)
		lastHasMetric = it.hasWidths
	}
	flushLine(false)

	text := sb.String()
	if opts.StripFormPlaceholders {
		text = stripPlaceholders(text)
		for i := range lines {
			lines[i] = stripLinePlaceholders(lines[i])
		}
	}
	return assembled{text: cleanText(text), lines: lines}
}

// Placeholder shapes left by DocuSign/IIO-style anchor tags: a
// self-closing \name\ token, an open \name1 tag whose value arrives in a
// separate run, and a lone backslash acting as an orphaned closer.
var (
	placeholderClosedRe = regexp.MustCompile(`\\[A-Za-z][A-Za-z0-9_]*\d*\\`)
	placeholderOpenRe   = regexp.MustCompile(`\\[A-Za-z][A-Za-z0-9_]*\d+`)
	placeholderOrphanRe = regexp.MustCompile(`(^|[ \t])\\([ \t]|$)`)
)

func stripPlaceholders(s string) string {
	s = placeholderClosedRe.ReplaceAllString(s, "")
	s = placeholderOpenRe.ReplaceAllString(s, "")
	s = placeholderOrphanRe.ReplaceAllString(s, "$1$2")
	return s
}

func stripLinePlaceholders(l Line) Line {
	l.Text = strings.TrimSpace(stripPlaceholders(l.Text))
	kept := l.Spans[:0]
	for _, sp := range l.Spans {
		sp.Text = stripPlaceholders(sp.Text)
		if strings.TrimSpace(sp.Text) != "" {
			kept = append(kept, sp)
		}
	}
	l.Spans = kept
	return l
}

var (
	runsOfSpaceRe      = regexp.MustCompile(`[^\S\n]+`)
	trailingSpaceRe    = regexp.MustCompile(`[^\S\n]+\n`)
	tripleNewlineRe    = regexp.MustCompile(`\n{3,}`)
	leadingSpaceLineRe = regexp.MustCompile(`\n[^\S\n]+`)
)

// cleanText collapses runs of non-newline whitespace, strips trailing
// spaces before newlines, and caps consecutive newlines at two.
func cleanText(s string) string {
	s = runsOfSpaceRe.ReplaceAllString(s, " ")
	s = trailingSpaceRe.ReplaceAllString(s, "\n")
	s = leadingSpaceLineRe.ReplaceAllString(s, "\n")
	s = tripleNewlineRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
