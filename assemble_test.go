// Copyright © 2026, Extractly Authors. All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package extractly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(s string, x, y float64, obj int) TextItem {
	return TextItem{S: s, X: x, Y: y, FontSize: 12, W: float64(len(s)) * 6, hasWidths: true, obj: obj}
}

func TestSortItems_ReadingOrder(t *testing.T) {
	items := []TextItem{
		item("bottom", 72, 100, 1),
		item("top", 72, 700, 1),
		item("middle", 72, 400, 1),
	}
	sorted := sortItems(items)
	require.Len(t, sorted, 3)
	assert.Equal(t, "top", sorted[0].S)
	assert.Equal(t, "middle", sorted[1].S)
	assert.Equal(t, "bottom", sorted[2].S)
}

func TestSortItems_GroupsKeepStreamOrder(t *testing.T) {
	// two overlapping text objects on one baseline: object 2 writes its
	// characters right-to-left in stream order but sits left of object 1
	items := []TextItem{
		item("B", 200, 500, 1),
		item("C", 210, 500, 1),
		item("x", 80, 500, 2),
		item("y", 72, 500, 2),
	}
	sorted := sortItems(items)
	var got string
	for _, it := range sorted {
		got += it.S
	}
	assert.Equal(t, "xyBC", got)
}

func TestSortItems_NoObjectIDFallsBackToX(t *testing.T) {
	items := []TextItem{
		item("second", 300, 500, 0),
		item("first", 72, 500, 0),
	}
	sorted := sortItems(items)
	assert.Equal(t, "first", sorted[0].S)
	assert.Equal(t, "second", sorted[1].S)
}

func TestShouldInsertSpace_MetricWidths(t *testing.T) {
	// gap above 0.15em inserts a space
	assert.True(t, shouldInsertSpace(3, 60, 5, 12, true))
	// kerning-sized negative gap does not
	assert.False(t, shouldInsertSpace(-0.24, 8, 1, 12, true))
	assert.False(t, shouldInsertSpace(1.0, 8, 1, 12, true))
}

func TestShouldInsertSpace_FallbackEstimate(t *testing.T) {
	// without metrics: estimated width of 4 chars at 12pt is 24
	assert.True(t, shouldInsertSpace(0, 30, 4, 12, false))
	assert.False(t, shouldInsertSpace(0, 20, 4, 12, false))
}

func TestAssemble_WordBoundaryExactlyOneSpace(t *testing.T) {
	items := []TextItem{
		{S: "Hello", X: 72, Y: 700, FontSize: 12, W: 30, hasWidths: true, obj: 1},
		{S: "World", X: 114, Y: 700, FontSize: 12, W: 30, hasWidths: true, obj: 1},
	}
	a := assemble(items, DefaultLoadOptions(), nil)
	assert.Equal(t, "Hello World", a.text)
}

func TestAssemble_LineAndParagraphBreaks(t *testing.T) {
	items := []TextItem{
		item("one", 72, 700, 1),
		item("two", 72, 685, 2),  // 15pt drop: line break
		item("three", 72, 640, 3), // 45pt drop: paragraph break
	}
	a := assemble(items, DefaultLoadOptions(), nil)
	assert.Equal(t, "one\ntwo\n\nthree", a.text)

	require.Len(t, a.lines, 3)
	assert.False(t, a.lines[0].BlankAfter)
	assert.True(t, a.lines[1].BlankAfter)
}

func TestAssemble_BackwardsJumpInsertsSpace(t *testing.T) {
	items := []TextItem{
		{S: "tail", X: 300, Y: 700, FontSize: 12, W: 24, hasWidths: true, obj: 1},
		{S: "head", X: 72, Y: 700, FontSize: 12, W: 24, hasWidths: true, obj: 1},
	}
	// same line, second item far left of the first: the xGap is a large
	// backwards jump and must still produce a space
	a := assemble(items, DefaultLoadOptions(), nil)
	assert.Contains(t, a.text, " ")
}

func TestAssemble_StripPlaceholders(t *testing.T) {
	items := []TextItem{
		item(`\signature1\`, 72, 700, 1),
		item("Alice", 72, 680, 2),
		item(`\namehere2`, 72, 660, 3),
		item("Bob", 72, 640, 4),
	}
	a := assemble(items, DefaultLoadOptions(), nil)
	assert.NotContains(t, a.text, `\signature1\`)
	assert.NotContains(t, a.text, `\namehere2`)
	assert.Contains(t, a.text, "Alice")
	assert.Contains(t, a.text, "Bob")

	opts := DefaultLoadOptions()
	opts.StripFormPlaceholders = false
	a = assemble(items, opts, nil)
	assert.Contains(t, a.text, `\signature1\`)
}

func TestAssemble_Lines_DominantFontSize(t *testing.T) {
	items := []TextItem{
		{S: "big", X: 72, Y: 700, FontSize: 24, W: 40, obj: 1},
		{S: "and a lot of small text here", X: 130, Y: 700, FontSize: 24, W: 200, obj: 1},
	}
	a := assemble(items, DefaultLoadOptions(), nil)
	require.Len(t, a.lines, 1)
	assert.Equal(t, 24.0, a.lines[0].FontSize)
}

func TestAssemble_SpanStylesAndLinks(t *testing.T) {
	links := []Link{{URI: "https://example.com", X1: 70, Y1: 690, X2: 200, Y2: 710}}
	items := []TextItem{
		{S: "click", X: 72, Y: 700, FontSize: 12, W: 30, Font: "Helvetica-Bold", obj: 1},
		{S: "after", X: 300, Y: 700, FontSize: 12, W: 30, Font: "Helvetica", obj: 1},
	}
	a := assemble(items, DefaultLoadOptions(), links)
	require.Len(t, a.lines, 1)
	require.GreaterOrEqual(t, len(a.lines[0].Spans), 2)
	assert.True(t, a.lines[0].Spans[0].Bold)
	assert.Equal(t, "https://example.com", a.lines[0].Spans[0].Link)
	assert.Empty(t, a.lines[0].Spans[1].Link)
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a b", cleanText("a   \t b"))
	assert.Equal(t, "a\nb", cleanText("a   \nb"))
	assert.Equal(t, "a\n\nb", cleanText("a\n\n\n\nb"))
	assert.Equal(t, "x", cleanText("  x  "))
}

func TestAssemble_Empty(t *testing.T) {
	a := assemble(nil, DefaultLoadOptions(), nil)
	assert.Equal(t, "", a.text)
	assert.Empty(t, a.lines)
}
