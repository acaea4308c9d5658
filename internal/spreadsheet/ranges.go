package spreadsheet

import (
	"fmt"
	"regexp"
	"strings"

	sgerrors "sheetgenie/internal/errors"
	"sheetgenie/internal/sheet"

	"gonum.org/v1/gonum/stat"
)

// RangeResult is the outcome of SumRange and AverageRange.
type RangeResult struct {
	Range   string      `json:"range"`
	Op      AggregateOp `json:"op"`
	Value   float64     `json:"value"`
	Cells   int         `json:"cells"`
	Skipped int         `json:"skipped"`
	Formula string      `json:"formula"`
}

func rangeNumbers(t *sheet.Table, spec string) (sheet.Range, []float64, int, error) {
	r, err := sheet.ParseRange(spec)
	if err != nil {
		return sheet.Range{}, nil, 0, err
	}
	cells, err := t.Cells(r)
	if err != nil {
		return sheet.Range{}, nil, 0, err
	}
	var values []float64
	skipped := 0
	for _, c := range cells {
		if f, ok := c.Float(); ok {
			values = append(values, f)
		} else if !c.IsEmpty() {
			skipped++
		}
	}
	return r, values, skipped, nil
}

// SumRange adds the numeric cells of an A1 range. Row 1 is the header.
func SumRange(t *sheet.Table, spec string) (*RangeResult, error) {
	r, values, skipped, err := rangeNumbers(t, spec)
	if err != nil {
		return nil, err
	}
	return &RangeResult{
		Range:   r.String(),
		Op:      OpSum,
		Value:   sum(values),
		Cells:   len(values),
		Skipped: skipped,
		Formula: fmt.Sprintf("=SUM(%s)", r),
	}, nil
}

// AverageRange averages the numeric cells of an A1 range.
func AverageRange(t *sheet.Table, spec string) (*RangeResult, error) {
	r, values, skipped, err := rangeNumbers(t, spec)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, sgerrors.New(sgerrors.CodeInsufficientData, "range %s has no numeric cells", r)
	}
	return &RangeResult{
		Range:   r.String(),
		Op:      OpAverage,
		Value:   stat.Mean(values, nil),
		Cells:   len(values),
		Skipped: skipped,
		Formula: fmt.Sprintf("=AVERAGE(%s)", r),
	}, nil
}

// Describe renders the result as a sentence.
func (r *RangeResult) Describe() string {
	return fmt.Sprintf("The %s of %s is %s.", r.Op, r.Range, formatFloat(r.Value))
}

// FormatType is the closed set of cell formats.
type FormatType string

const (
	FormatCurrency   FormatType = "currency"
	FormatPercentage FormatType = "percentage"
	FormatDate       FormatType = "date"
	FormatBold       FormatType = "bold"
	FormatColor      FormatType = "color"
)

// FormatTypes lists the formats in tool-schema order.
func FormatTypes() []FormatType {
	return []FormatType{FormatCurrency, FormatPercentage, FormatDate, FormatBold, FormatColor}
}

// Formatting describes styling applied to a range. It is rendered by the grid
// and carried into exported workbooks.
type Formatting struct {
	Range        string     `json:"range"`
	FormatType   FormatType `json:"format_type"`
	FormatValue  string     `json:"format_value,omitempty"`
	NumberFormat string     `json:"number_format,omitempty"`
	Bold         bool       `json:"bold,omitempty"`
	FillColor    string     `json:"fill_color,omitempty"`
}

const defaultFillColor = "FFFF00"

var hexColor = regexp.MustCompile(`^#?[0-9a-fA-F]{6}$`)

// FormatCells validates the range and builds the formatting descriptor.
func FormatCells(t *sheet.Table, spec string, formatType FormatType, value string) (*Formatting, error) {
	r, err := sheet.ParseRange(spec)
	if err != nil {
		return nil, err
	}
	if _, err := t.Cells(r); err != nil {
		return nil, err
	}

	f := &Formatting{Range: r.String(), FormatType: formatType, FormatValue: value}
	switch formatType {
	case FormatCurrency:
		f.NumberFormat = "$#,##0.00"
	case FormatPercentage:
		f.NumberFormat = "0.00%"
	case FormatDate:
		f.NumberFormat = "mm/dd/yyyy"
	case FormatBold:
		f.Bold = true
	case FormatColor:
		color := strings.TrimSpace(value)
		if color == "" {
			color = defaultFillColor
		}
		if !hexColor.MatchString(color) {
			return nil, sgerrors.New(sgerrors.CodeInvalidExpression, "color %q must be a hex code like FFFF00", value)
		}
		f.FillColor = strings.ToUpper(strings.TrimPrefix(color, "#"))
	default:
		return nil, sgerrors.New(sgerrors.CodeInvalidExpression, "unsupported format %q", formatType)
	}
	return f, nil
}
