package spreadsheet

import (
	"slices"
	"strings"

	sgerrors "sheetgenie/internal/errors"
	"sheetgenie/internal/sheet"

	"gonum.org/v1/gonum/stat"
)

// PivotGroup is one row of a pivot table.
type PivotGroup struct {
	Keys   []string           `json:"keys"`
	Values map[string]float64 `json:"values"`
}

// PivotResult is a grouped aggregation. Table holds the same data as a grid.
type PivotResult struct {
	Rows    []string     `json:"rows"`
	Values  []string     `json:"values"`
	AggFunc AggregateOp  `json:"aggfunc"`
	Groups  []PivotGroup `json:"groups"`
	Table   *sheet.Table `json:"table"`
}

// Pivot groups data rows by the row columns and aggregates each value column.
// Groups are ordered by key, numerically where both keys are numbers. Groups
// with no numeric values aggregate to 0.
func Pivot(t *sheet.Table, rows, values []string, agg AggregateOp) (*PivotResult, error) {
	if len(rows) == 0 || len(values) == 0 {
		return nil, sgerrors.New(sgerrors.CodeInvalidExpression, "pivot needs at least one row column and one value column")
	}
	if agg == "" {
		agg = OpSum
	}
	header := t.Header()
	rowIdx, err := resolveAll(t, rows)
	if err != nil {
		return nil, err
	}
	valIdx, err := resolveAll(t, values)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		keys   []sheet.Value
		values [][]float64
	}
	buckets := map[string]*bucket{}
	var order []*bucket
	for r := 0; r < t.Rows(); r++ {
		keys := make([]sheet.Value, len(rowIdx))
		parts := make([]string, len(rowIdx))
		for i, idx := range rowIdx {
			keys[i] = t.Cell(r, idx)
			parts[i] = keys[i].String()
		}
		id := strings.Join(parts, "\x00")
		b, ok := buckets[id]
		if !ok {
			b = &bucket{keys: keys, values: make([][]float64, len(valIdx))}
			buckets[id] = b
			order = append(order, b)
		}
		for i, idx := range valIdx {
			if f, ok := t.Cell(r, idx).Float(); ok {
				b.values[i] = append(b.values[i], f)
			}
		}
	}

	slices.SortStableFunc(order, func(a, b *bucket) int {
		for i := range a.keys {
			if c := compareValues(a.keys[i], b.keys[i]); c != 0 {
				return c
			}
		}
		return 0
	})

	rowNames := make([]string, len(rowIdx))
	for i, idx := range rowIdx {
		rowNames[i] = header[idx]
	}
	valNames := make([]string, len(valIdx))
	for i, idx := range valIdx {
		valNames[i] = header[idx]
	}

	grid := [][]sheet.Value{make([]sheet.Value, 0, len(rowNames)+len(valNames))}
	for _, name := range append(append([]string{}, rowNames...), valNames...) {
		grid[0] = append(grid[0], sheet.Text(name))
	}

	groups := make([]PivotGroup, 0, len(order))
	for _, b := range order {
		g := PivotGroup{Keys: make([]string, len(b.keys)), Values: map[string]float64{}}
		line := make([]sheet.Value, 0, len(b.keys)+len(valNames))
		for i, k := range b.keys {
			g.Keys[i] = k.String()
			line = append(line, k)
		}
		for i, name := range valNames {
			v := pivotReduce(b.values[i], agg)
			g.Values[name] = v
			line = append(line, sheet.Number(v))
		}
		groups = append(groups, g)
		grid = append(grid, line)
	}

	table, err := sheet.New(grid)
	if err != nil {
		return nil, err
	}
	return &PivotResult{Rows: rowNames, Values: valNames, AggFunc: agg, Groups: groups, Table: table}, nil
}

func pivotReduce(values []float64, agg AggregateOp) float64 {
	if len(values) == 0 {
		return 0
	}
	switch agg {
	case OpSum:
		return sum(values)
	case OpAverage:
		return stat.Mean(values, nil)
	case OpCount:
		return float64(len(values))
	case OpMin:
		return slices.Min(values)
	case OpMax:
		return slices.Max(values)
	default:
		return sum(values)
	}
}

func resolveAll(t *sheet.Table, names []string) ([]int, error) {
	out := make([]int, len(names))
	for i, name := range names {
		idx, err := t.ResolveColumn(name)
		if err != nil {
			return nil, err
		}
		out[i] = idx
	}
	return out, nil
}

func compareValues(a, b sheet.Value) int {
	af, aok := a.Float()
	bf, bok := b.Float()
	switch {
	case aok && bok:
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	case aok:
		return -1
	case bok:
		return 1
	default:
		return strings.Compare(a.String(), b.String())
	}
}
