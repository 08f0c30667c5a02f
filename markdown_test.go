// Copyright © 2026, Extractly Authors. All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package extractly

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plainLine(text string, size, y float64) Line {
	return Line{Text: text, Spans: []Span{{Text: text}}, FontSize: size, Y: y}
}

func TestRenderMarkdown_Headings(t *testing.T) {
	lines := []Line{
		plainLine("Document Title", 24, 700),
		plainLine("Section", 20, 680),
		plainLine("Subsection", 16, 660),
		plainLine("Minor heading", 14, 650),
		plainLine("body text one", 12, 640),
		plainLine("body text two", 12, 620),
		plainLine("body text three", 12, 600),
	}
	md := renderMarkdown(lines, nil)
	assert.Contains(t, md, "# Document Title")
	assert.Contains(t, md, "## Section")
	assert.Contains(t, md, "### Subsection")
	assert.Contains(t, md, "#### Minor heading")
	assert.NotContains(t, md, "# body")
}

func TestRenderMarkdown_NoHeadingForTrailingComma(t *testing.T) {
	lines := []Line{
		plainLine("Dear Sir or Madam,", 24, 700),
		plainLine("a long body line that anchors the body font size", 12, 680),
		plainLine("another long body line that keeps the body at twelve", 12, 660),
	}
	md := renderMarkdown(lines, nil)
	assert.NotContains(t, md, "# Dear")
}

func TestRenderMarkdown_Emphasis(t *testing.T) {
	lines := []Line{
		{Text: "mixed bold word", FontSize: 12, Y: 700, Spans: []Span{
			{Text: "mixed "},
			{Text: "bold", Bold: true},
			{Text: " word"},
		}},
		{Text: "all italic line", FontSize: 12, Y: 680, Spans: []Span{
			{Text: "all italic line", Italic: true},
		}},
		{Text: "bolditalic", FontSize: 12, Y: 660, Spans: []Span{
			{Text: "bolditalic", Bold: true, Italic: true},
		}},
	}
	md := renderMarkdown(lines, nil)
	assert.Contains(t, md, "**bold**")
	assert.Contains(t, md, "*all italic line*")
	assert.Contains(t, md, "***bolditalic***")
	// the fully italic line is wrapped once, not per span
	assert.NotContains(t, md, "**all")
}

func TestRenderMarkdown_Links(t *testing.T) {
	lines := []Line{
		{Text: "see docs", FontSize: 12, Y: 700, Spans: []Span{
			{Text: "see "},
			{Text: "docs", Link: "https://docs.example.com"},
		}},
		plainLine("visit https://plain.example.com today", 12, 680),
	}
	md := renderMarkdown(lines, nil)
	assert.Contains(t, md, "[docs](https://docs.example.com)")
	assert.Contains(t, md, "[https://plain.example.com](https://plain.example.com)")
}

func TestRenderMarkdown_Bullets(t *testing.T) {
	lines := []Line{
		plainLine("• first point", 12, 700),
		plainLine("- second point", 12, 680),
		plainLine("1. third point", 12, 660),
		plainLine("2) fourth point", 12, 640),
		plainLine("a) fifth point", 12, 620),
	}
	md := renderMarkdown(lines, nil)
	assert.Contains(t, md, "- first point")
	assert.Contains(t, md, "- second point")
	assert.Contains(t, md, "1. third point")
	assert.Contains(t, md, "2. fourth point")
	assert.Contains(t, md, "- fifth point")
}

func TestRenderMarkdown_TableSubstitution(t *testing.T) {
	lines := []Line{
		plainLine("Before the table", 12, 720),
		plainLine("Item Qty", 10, 700),
		plainLine("Apples 3", 10, 685),
		plainLine("Pears 2", 10, 670),
		plainLine("After the table", 12, 600),
	}
	tables := []Table{{
		Cells:     [][]string{{"Item", "Qty"}, {"Apples", "3"}, {"Pears", "2"}},
		HasHeader: true,
		YStart:    700,
		YEnd:      670,
	}}
	md := renderMarkdown(lines, tables)

	assert.Contains(t, md, "| Item | Qty |")
	assert.Contains(t, md, "| --- | --- |")
	assert.Contains(t, md, "| Apples | 3 |")
	// the raw line emissions inside the y-range are suppressed
	assert.NotContains(t, md, "Item Qty")
	assert.Contains(t, md, "Before the table")
	assert.Contains(t, md, "After the table")
	assert.Less(t, strings.Index(md, "Before the table"), strings.Index(md, "| Item |"))
	assert.Less(t, strings.Index(md, "| Pears | 2 |"), strings.Index(md, "After the table"))
}

func TestMarkdownTable_NoHeaderEmitsEmptyHeader(t *testing.T) {
	md := markdownTable(Table{
		Cells: [][]string{{"a", "b"}, {"c", "d"}, {"e", "f"}},
	})
	lines := strings.Split(strings.TrimSpace(md), "\n")
	require.GreaterOrEqual(t, len(lines), 5)
	assert.Equal(t, "|  |  |", lines[0])
	assert.Equal(t, "| --- | --- |", lines[1])
	assert.Contains(t, md, "| a | b |")
}

func TestMarkdownTable_EscapesPipes(t *testing.T) {
	md := markdownTable(Table{
		Cells:     [][]string{{"h1", "h2"}, {"a|b", "c"}},
		HasHeader: true,
	})
	assert.Contains(t, md, `a\|b`)
}

func TestBodyFontSize(t *testing.T) {
	lines := []Line{
		plainLine("short", 24, 700),
		plainLine("the long body of the document text", 11, 680),
		plainLine("more of the body text right here", 11, 660),
	}
	assert.Equal(t, 11.0, bodyFontSize(lines))
}

func TestPageMarkdown_EndToEnd(t *testing.T) {
	content := strings.Join([]string{
		"BT /F1 24 Tf 72 720 Td (Big Heading) Tj ET",
		"BT /F1 12 Tf 72 680 Td (Body line with enough weight to anchor) Tj ET",
		"BT /F1 12 Tf 72 660 Td (Another body line of ordinary text) Tj ET",
	}, "\n")
	b := singlePage(content, helveticaFont)
	doc, err := mustLoad(b.bytes())
	require.NoError(t, err)
	defer doc.Close()

	md := doc.Markdown()
	assert.Contains(t, md, "# Big Heading")
	assert.Contains(t, md, "Body line")
}
