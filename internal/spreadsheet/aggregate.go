package spreadsheet

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	sgerrors "sheetgenie/internal/errors"
	"sheetgenie/internal/sheet"

	"gonum.org/v1/gonum/stat"
)

// AggregateOp is the closed set of column aggregations.
type AggregateOp string

const (
	OpSum     AggregateOp = "sum"
	OpAverage AggregateOp = "average"
	OpMin     AggregateOp = "min"
	OpMax     AggregateOp = "max"
	OpCount   AggregateOp = "count"
)

// AggregateOps lists the aggregations in tool-schema order.
func AggregateOps() []AggregateOp {
	return []AggregateOp{OpSum, OpAverage, OpMin, OpMax, OpCount}
}

// ParseAggregateOp accepts the canonical names plus common aliases.
func ParseAggregateOp(name string) (AggregateOp, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sum", "total":
		return OpSum, nil
	case "average", "avg", "mean":
		return OpAverage, nil
	case "min", "minimum":
		return OpMin, nil
	case "max", "maximum":
		return OpMax, nil
	case "count":
		return OpCount, nil
	default:
		return "", sgerrors.New(sgerrors.CodeInvalidExpression, "unsupported aggregation %q", name)
	}
}

// excelFunction is the spreadsheet function name of op.
func (op AggregateOp) excelFunction() string {
	switch op {
	case OpSum:
		return "SUM"
	case OpAverage:
		return "AVERAGE"
	case OpMin:
		return "MIN"
	case OpMax:
		return "MAX"
	case OpCount:
		return "COUNT"
	default:
		return strings.ToUpper(string(op))
	}
}

// AggregateResult is the outcome of Aggregate.
type AggregateResult struct {
	Column  string      `json:"column"`
	Op      AggregateOp `json:"op"`
	Value   float64     `json:"value"`
	Rows    int         `json:"rows"`
	Skipped int         `json:"skipped"`
	Formula string      `json:"formula"`
}

// Aggregate reduces the numeric cells of a column. Non-numeric cells are
// skipped and counted rather than failing the operation.
func Aggregate(t *sheet.Table, column string, op AggregateOp) (*AggregateResult, error) {
	idx, err := t.ResolveColumn(column)
	if err != nil {
		return nil, err
	}
	values, skipped := t.Numbers(idx)
	value, err := reduce(values, op)
	if errors.Is(err, errNoValues) {
		return nil, sgerrors.New(sgerrors.CodeInsufficientData,
			"column %q has no numeric values to %s", t.Header()[idx], op)
	}
	if err != nil {
		return nil, sgerrors.Wrap(sgerrors.CodeInvalidExpression, err, "%v", err)
	}
	return &AggregateResult{
		Column:  t.Header()[idx],
		Op:      op,
		Value:   value,
		Rows:    len(values),
		Skipped: skipped,
		Formula: fmt.Sprintf("=%s(%s)", op.excelFunction(), t.ColumnRange(idx)),
	}, nil
}

var errNoValues = errors.New("no numeric values")

func reduce(values []float64, op AggregateOp) (float64, error) {
	switch op {
	case OpSum:
		return sum(values), nil
	case OpCount:
		return float64(len(values)), nil
	case OpAverage:
		if len(values) == 0 {
			return 0, errNoValues
		}
		return stat.Mean(values, nil), nil
	case OpMin:
		if len(values) == 0 {
			return 0, errNoValues
		}
		return slices.Min(values), nil
	case OpMax:
		if len(values) == 0 {
			return 0, errNoValues
		}
		return slices.Max(values), nil
	default:
		return 0, fmt.Errorf("unsupported aggregation %q", op)
	}
}

// Describe renders the result as a sentence.
func (r *AggregateResult) Describe() string {
	text := fmt.Sprintf("The %s of %s is %s", r.Op, r.Column, formatFloat(r.Value))
	if r.Skipped > 0 {
		text += fmt.Sprintf(" (%d non-numeric cells skipped)", r.Skipped)
	}
	return text + "."
}

// formatFloat renders v with at most two decimals and no trailing zeros.
func formatFloat(v float64) string {
	return sheet.FormatNumber(sheet.Round2(v))
}
