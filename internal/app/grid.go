package app

import (
	"fmt"

	sgerrors "sheetgenie/internal/errors"
	"sheetgenie/internal/sheet"
	"sheetgenie/internal/spreadsheet"
)

// ColumnType is how the grid widget renders and validates a column.
type ColumnType string

const (
	ColumnNumeric ColumnType = "numeric"
	ColumnText    ColumnType = "text"
)

// GridColumn configures one grid column.
type GridColumn struct {
	Data          int            `json:"data"`
	Title         string         `json:"title"`
	Type          ColumnType     `json:"type"`
	NumericFormat *NumericFormat `json:"numericFormat,omitempty"`
}

// NumericFormat is the widget's number pattern.
type NumericFormat struct {
	Pattern string `json:"pattern"`
}

// GridSettings is the configuration the grid widget binds to.
type GridSettings struct {
	Data               [][]any                  `json:"data"`
	ColHeaders         []string                 `json:"colHeaders"`
	Columns            []GridColumn             `json:"columns"`
	RowHeaders         bool                     `json:"rowHeaders"`
	ContextMenu        bool                     `json:"contextMenu"`
	ManualColumnResize bool                     `json:"manualColumnResize"`
	Stretch            string                   `json:"stretchH"`
	Height             int                      `json:"height"`
	LicenseKey         string                   `json:"licenseKey"`
	Revision           int                      `json:"revision"`
	CellFormatting     []spreadsheet.Formatting `json:"cellFormatting,omitempty"`
}

// Grid renders t into widget settings. Data rows exclude the header, which is
// carried in ColHeaders.
func Grid(t *sheet.Table) GridSettings {
	header := t.Header()
	columns := make([]GridColumn, len(header))
	for c, name := range header {
		col := GridColumn{Data: c, Title: name, Type: ColumnText}
		if t.NumericColumn(c) {
			col.Type = ColumnNumeric
			col.NumericFormat = &NumericFormat{Pattern: "0,0.[00]"}
		}
		columns[c] = col
	}

	data := make([][]any, t.Rows())
	for r := range data {
		row := t.Row(r)
		cells := make([]any, len(row))
		for c, v := range row {
			cells[c] = v.Any()
		}
		data[r] = cells
	}

	return GridSettings{
		Data:               data,
		ColHeaders:         header,
		Columns:            columns,
		RowHeaders:         true,
		ContextMenu:        true,
		ManualColumnResize: true,
		Stretch:            "all",
		Height:             500,
		LicenseKey:         "non-commercial-and-evaluation",
	}
}

// Edit is one cell change from the grid. Row 0 is the header row, so editing
// it renames a column; data rows start at 1.
type Edit struct {
	Row   int `json:"row"`
	Col   int `json:"col"`
	Value any `json:"value"`
}

// ApplyEdits applies edits in order and returns the new table. An edit may
// start one new row below the last; anything further out is rejected and
// nothing is applied.
func ApplyEdits(t *sheet.Table, edits []Edit) (*sheet.Table, error) {
	out := t
	for i, e := range edits {
		if e.Row < 0 || e.Row > out.Rows()+1 || e.Col < 0 || e.Col >= out.Columns() {
			return nil, sgerrors.New(sgerrors.CodeInvalidRequest,
				"edit %d at row %d, column %d is outside the %dx%d grid", i+1, e.Row, e.Col, out.Rows()+1, out.Columns())
		}
		next, err := out.WithCell(e.Row, e.Col, sheet.ValueOf(normalizeEditValue(e.Value)))
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}

// Widgets send numbers as JSON numbers and everything else as text; other
// JSON shapes are flattened to text.
func normalizeEditValue(v any) any {
	switch x := v.(type) {
	case nil, string, float64, int, int64, bool:
		return x
	default:
		return fmt.Sprint(x)
	}
}
