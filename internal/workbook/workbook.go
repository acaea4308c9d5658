// Package workbook converts between uploaded spreadsheet files and tables.
package workbook

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	sgerrors "sheetgenie/internal/errors"
	"sheetgenie/internal/sheet"
	"sheetgenie/internal/spreadsheet"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet name used for exports.
const SheetName = "Sheet1"

// ContentType is the MIME type of exported workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Format is a supported upload format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatCSV  Format = "csv"
)

// DetectFormat maps a file name to its format by extension.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".xls":
		return FormatXLS, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", sgerrors.New(sgerrors.CodeFileFormat,
			"unsupported file type %q: upload an .xlsx, .xls or .csv file", filepath.Ext(name))
	}
}

// Read parses an uploaded file into a table. Cells are trimmed, numeric text
// becomes numbers and blank rows are dropped. Only the first worksheet of a
// workbook is read.
func Read(name string, data []byte) (*sheet.Table, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, sgerrors.New(sgerrors.CodeFileFormat, "file %q is empty", name)
	}

	var rows [][]string
	switch format {
	case FormatXLSX, FormatXLS:
		rows, err = readWorkbook(bytes.NewReader(data))
	case FormatCSV:
		rows, err = readCSV(bytes.NewReader(data))
	}
	if err != nil {
		return nil, sgerrors.Wrap(sgerrors.CodeFileFormat, err, "could not read %q: %v", name, err)
	}
	return toTable(name, rows)
}

func readWorkbook(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("not a valid xlsx workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no worksheets")
	}
	return f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader.ReadAll()
}

func toTable(name string, rows [][]string) (*sheet.Table, error) {
	if len(rows) == 0 {
		return nil, sgerrors.New(sgerrors.CodeFileFormat, "file %q contains no data", name)
	}
	if len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	table, err := sheet.FromStrings(rows)
	if err != nil {
		return nil, sgerrors.Wrap(sgerrors.CodeFileFormat, err, "file %q has no usable header row", name)
	}
	return table, nil
}

// Write renders t as a single-sheet xlsx workbook. Numbers are written as
// numbers; formats are applied in order, later ones layering over earlier.
func Write(t *sheet.Table, formats ...spreadsheet.Formatting) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if first := f.GetSheetName(0); first != SheetName {
		if err := f.SetSheetName(first, SheetName); err != nil {
			return nil, err
		}
	}

	for r, row := range t.Values() {
		cells := make([]any, len(row))
		for c, v := range row {
			if v.IsEmpty() {
				continue
			}
			cells[c] = v.Any()
		}
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
			return nil, fmt.Errorf("write row %d: %w", r+1, err)
		}
	}

	for _, format := range formats {
		if err := applyFormatting(f, format); err != nil {
			return nil, fmt.Errorf("apply %s formatting to %s: %w", format.FormatType, format.Range, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func applyFormatting(f *excelize.File, format spreadsheet.Formatting) error {
	style := &excelize.Style{}
	if format.NumberFormat != "" {
		numFmt := format.NumberFormat
		style.CustomNumFmt = &numFmt
	}
	if format.Bold {
		style.Font = &excelize.Font{Bold: true}
	}
	if format.FillColor != "" {
		style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#" + strings.TrimPrefix(format.FillColor, "#")}}
	}
	styleID, err := f.NewStyle(style)
	if err != nil {
		return err
	}
	from, to, found := strings.Cut(format.Range, ":")
	if !found {
		to = from
	}
	return f.SetCellStyle(SheetName, from, to, styleID)
}

// Sheet reads the first worksheet back into rows of cell strings. It is used
// to inspect exported bytes.
func Sheet(data []byte) ([][]string, error) {
	return readWorkbook(bytes.NewReader(data))
}
