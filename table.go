// Copyright © 2026, Extractly Authors. All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Table detection over raw positioned runs: row grouping, gap-based cell
// segmentation, and column alignment scanning.

package extractly

import (
	"math"
	"sort"
	"strings"
)

// A Table is a detected block of aligned rows. YStart and YEnd bound the
// block in device space (YStart above YEnd); the Markdown renderer
// suppresses line emission inside that range.
type Table struct {
	Cells     [][]string
	HasHeader bool
	YStart    float64
	YEnd      float64
}

type tableCell struct {
	text     string
	x        float64
	bold     bool
	fontSize float64
}

type tableRow struct {
	y     float64
	cells []tableCell
}

// detectTables groups items into rows with the assembler's Y-proximity
// rule, segments rows into cells at gaps beyond 1.5x the font size, and
// records blocks of three or more consecutive rows whose column count
// matches and whose column positions align within 3% of the page width.
func detectTables(items []TextItem) []Table {
	rows := groupRows(items)
	if len(rows) < 3 {
		return nil
	}

	pageWidth := 0.0
	for _, it := range items {
		if x := it.X + it.W; x > pageWidth {
			pageWidth = x
		}
	}
	if pageWidth <= 0 {
		pageWidth = 612
	}
	tolerance := pageWidth * 0.03

	var tables []Table
	for start := 0; start < len(rows); {
		run := 1
		for start+run < len(rows) && alignedRows(rows[start], rows[start+run], tolerance) {
			run++
		}
		if run >= 3 && len(rows[start].cells) >= 2 {
			tables = append(tables, buildTable(rows[start:start+run]))
			start += run
			continue
		}
		start++
	}
	return tables
}

func groupRows(items []TextItem) []tableRow {
	if len(items) == 0 {
		return nil
	}
	sorted := make([]TextItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Y > sorted[j].Y
	})

	var rows []tableRow
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
		rows = append(rows, segmentRow(sorted[start:end]))
		start = end
	}
	return rows
}

// segmentRow splits a row's items into cells: an x-gap beyond 1.5x the
// font size is a column boundary, anything narrower concatenates with the
// assembler's space rule.
func segmentRow(items []TextItem) tableRow {
	line := make([]TextItem, len(items))
	copy(line, items)
	sort.SliceStable(line, func(i, j int) bool { return line[i].X < line[j].X })

	row := tableRow{y: line[0].Y}
	var cur *tableCell
	var lastX, lastW float64
	var lastLen int
	var lastHasMetric bool

	for i, it := range line {
		fs := it.FontSize
		if fs == 0 {
			fs = 12
		}
		if i == 0 || it.X-(lastX+lastW) > 1.5*fs {
			row.cells = append(row.cells, tableCell{
				text:     it.S,
				x:        it.X,
				bold:     boldFontRe.MatchString(it.Font),
				fontSize: it.FontSize,
			})
			cur = &row.cells[len(row.cells)-1]
		} else {
			xGap := it.X - (lastX + lastW)
			posGap := it.X - lastX
			if xGap < -2*fs || shouldInsertSpace(xGap, posGap, lastLen, fs, lastHasMetric) {
				cur.text += " "
			}
			cur.text += it.S
			if boldFontRe.MatchString(it.Font) {
				cur.bold = true
			}
		}
		lastX, lastW = it.X, it.W
		lastLen = len(it.S)
		lastHasMetric = it.hasWidths
	}
	return row
}

func alignedRows(a, b tableRow, tolerance float64) bool {
	if len(a.cells) != len(b.cells) || len(a.cells) < 2 {
		return false
	}
	for i := range a.cells {
		if math.Abs(a.cells[i].x-b.cells[i].x) > tolerance {
			return false
		}
	}
	return true
}

// buildTable assembles the block and applies the header heuristic: the
// first row is a header when any of its cells uses a bold-looking font or
// its size differs from the second row's by more than half a point.
func buildTable(rows []tableRow) Table {
	t := Table{
		YStart: rows[0].y,
		YEnd:   rows[len(rows)-1].y,
	}
	for _, r := range rows {
		var cells []string
		for _, c := range r.cells {
			cells = append(cells, strings.TrimSpace(c.text))
		}
		t.Cells = append(t.Cells, cells)
	}

	first, second := rows[0], rows[1]
	for _, c := range first.cells {
		if c.bold {
			t.HasHeader = true
			break
		}
	}
	if !t.HasHeader && len(first.cells) > 0 && len(second.cells) > 0 {
		if math.Abs(first.cells[0].fontSize-second.cells[0].fontSize) > 0.5 {
			t.HasHeader = true
		}
	}
	return t
}
