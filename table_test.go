// Copyright © 2026, Extractly Authors. All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package extractly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableItems(headerBold bool) []TextItem {
	font := "Helvetica"
	if headerBold {
		font = "Helvetica-Bold"
	}
	mk := func(s string, x, y float64, f string) TextItem {
		return TextItem{S: s, X: x, Y: y, FontSize: 10, W: float64(len(s)) * 5, Font: f, hasWidths: true, obj: 1}
	}
	return []TextItem{
		mk("Item", 72, 700, font), mk("Qty", 272, 700, font), mk("Price", 472, 700, font),
		mk("Apples", 72, 685, "Helvetica"), mk("3", 272, 685, "Helvetica"), mk("1.50", 472, 685, "Helvetica"),
		mk("Pears", 72, 670, "Helvetica"), mk("2", 272, 670, "Helvetica"), mk("2.10", 472, 670, "Helvetica"),
		mk("Plums", 72, 655, "Helvetica"), mk("9", 272, 655, "Helvetica"), mk("0.99", 472, 655, "Helvetica"),
	}
}

func TestDetectTables_AlignedRows(t *testing.T) {
	tables := detectTables(tableItems(true))
	require.Len(t, tables, 1)

	tb := tables[0]
	require.Len(t, tb.Cells, 4)
	assert.Equal(t, []string{"Item", "Qty", "Price"}, tb.Cells[0])
	assert.Equal(t, []string{"Apples", "3", "1.50"}, tb.Cells[1])
	assert.True(t, tb.HasHeader)
	assert.Greater(t, tb.YStart, tb.YEnd)
}

func TestDetectTables_HeaderByFontSize(t *testing.T) {
	items := tableItems(false)
	for i := 0; i < 3; i++ {
		items[i].FontSize = 12 // header row is larger, not bold
	}
	tables := detectTables(items)
	require.Len(t, tables, 1)
	assert.True(t, tables[0].HasHeader)
}

func TestDetectTables_NoHeader(t *testing.T) {
	tables := detectTables(tableItems(false))
	require.Len(t, tables, 1)
	assert.False(t, tables[0].HasHeader)
}

func TestDetectTables_TooFewRows(t *testing.T) {
	items := tableItems(true)[:6] // only two rows
	assert.Empty(t, detectTables(items))
}

func TestDetectTables_MisalignedColumnsRejected(t *testing.T) {
	items := tableItems(true)
	// shove the second row's middle column far off the grid
	items[4].X = 380
	tables := detectTables(items)
	assert.Empty(t, tables)
}

func TestSegmentRow_CellConcatenation(t *testing.T) {
	items := []TextItem{
		{S: "unit", X: 72, Y: 700, FontSize: 10, W: 20, hasWidths: true, obj: 1},
		{S: "price", X: 95, Y: 700, FontSize: 10, W: 25, hasWidths: true, obj: 1},
		{S: "total", X: 300, Y: 700, FontSize: 10, W: 25, hasWidths: true, obj: 1},
	}
	row := segmentRow(items)
	require.Len(t, row.cells, 2)
	assert.Equal(t, "unit price", row.cells[0].text)
	assert.Equal(t, "total", row.cells[1].text)
}
