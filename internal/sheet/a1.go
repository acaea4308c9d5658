package sheet

import (
	"fmt"
	"strings"

	sgerrors "sheetgenie/internal/errors"

	"github.com/xuri/excelize/v2"
)

// Range is a rectangular A1 reference in workbook coordinates: columns and rows
// are 1-based and row 1 is the header.
type Range struct {
	StartCol, StartRow int
	EndCol, EndRow     int
}

// ParseRange parses "B2:C4" or a single cell "B2".
func ParseRange(spec string) (Range, error) {
	spec = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(spec), "$", ""))
	if spec == "" {
		return Range{}, sgerrors.New(sgerrors.CodeInvalidExpression, "range is empty")
	}
	start, end, found := strings.Cut(spec, ":")
	if !found {
		end = start
	}
	c1, r1, err := excelize.CellNameToCoordinates(start)
	if err != nil {
		return Range{}, sgerrors.Wrap(sgerrors.CodeInvalidExpression, err, "invalid range %q", spec)
	}
	c2, r2, err := excelize.CellNameToCoordinates(end)
	if err != nil {
		return Range{}, sgerrors.Wrap(sgerrors.CodeInvalidExpression, err, "invalid range %q", spec)
	}
	if c2 < c1 {
		c1, c2 = c2, c1
	}
	if r2 < r1 {
		r1, r2 = r2, r1
	}
	return Range{StartCol: c1, StartRow: r1, EndCol: c2, EndRow: r2}, nil
}

// String renders the range back to A1 notation.
func (r Range) String() string {
	start, _ := excelize.CoordinatesToCellName(r.StartCol, r.StartRow)
	if r.StartCol == r.EndCol && r.StartRow == r.EndRow {
		return start
	}
	end, _ := excelize.CoordinatesToCellName(r.EndCol, r.EndRow)
	return start + ":" + end
}

// Cells returns the values inside r in row-major order. Row 1 yields header
// text; coordinates outside the table are reported as an error.
func (t *Table) Cells(r Range) ([]Value, error) {
	if r.EndCol > len(t.header) || r.EndRow > len(t.rows)+1 {
		return nil, sgerrors.New(sgerrors.CodeInvalidExpression,
			"range %s is outside the table (%s)", r, t.Extent())
	}
	var out []Value
	for row := r.StartRow; row <= r.EndRow; row++ {
		for col := r.StartCol; col <= r.EndCol; col++ {
			if row == 1 {
				out = append(out, Text(t.header[col-1]))
				continue
			}
			out = append(out, t.rows[row-2][col-1])
		}
	}
	return out, nil
}

// Extent returns the A1 range covering the whole table, header included.
func (t *Table) Extent() Range {
	return Range{StartCol: 1, StartRow: 1, EndCol: max(len(t.header), 1), EndRow: len(t.rows) + 1}
}

// ColumnRange returns the A1 range of column c's data cells, e.g. "B2:B6".
func (t *Table) ColumnRange(c int) string {
	if len(t.rows) == 0 {
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		return cell
	}
	return Range{StartCol: c + 1, StartRow: 2, EndCol: c + 1, EndRow: len(t.rows) + 1}.String()
}

// ColumnLetter returns the spreadsheet letter of column c (0-based).
func ColumnLetter(c int) string {
	name, err := excelize.ColumnNumberToName(c + 1)
	if err != nil {
		return fmt.Sprintf("C%d", c+1)
	}
	return name
}
