package spreadsheet

import (
	"strings"

	"sheetgenie/internal/chart"
	sgerrors "sheetgenie/internal/errors"
	"sheetgenie/internal/sheet"
)

// BuildChart projects the table onto a chart spec. Every axis key must name a
// header column; otherwise nothing is returned and the error is
// AxisKeyNotFound.
func BuildChart(t *sheet.Table, kind chart.Kind, xKey string, yKeys []string, opts chart.Options, title string) (*chart.Spec, error) {
	if len(yKeys) == 0 {
		return nil, sgerrors.New(sgerrors.CodeAxisKeyNotFound, "chart needs at least one y key")
	}
	header := t.Header()

	xIdx, err := resolveAxis(t, xKey)
	if err != nil {
		return nil, err
	}
	yIdx := make([]int, len(yKeys))
	resolved := make([]string, len(yKeys))
	for i, key := range yKeys {
		idx, err := resolveAxis(t, key)
		if err != nil {
			return nil, err
		}
		yIdx[i] = idx
		resolved[i] = header[idx]
	}

	numeric := make([]bool, len(yIdx))
	for i, idx := range yIdx {
		numeric[i] = t.NumericColumn(idx)
	}

	data := make([]map[string]any, t.Rows())
	for r := range data {
		point := map[string]any{header[xIdx]: t.Cell(r, xIdx).Any()}
		for i, idx := range yIdx {
			cell := t.Cell(r, idx)
			if f, ok := cell.Float(); ok {
				point[header[idx]] = f
			} else if numeric[i] {
				point[header[idx]] = 0.0
			} else {
				point[header[idx]] = cell.Any()
			}
		}
		data[r] = point
	}

	if opts.Palette == "" {
		opts.Palette = "default"
	}
	if strings.TrimSpace(title) == "" {
		title = chart.DefaultTitle(header[xIdx], resolved)
	}

	return &chart.Spec{
		Kind:    chart.ParseKind(string(kind)),
		Title:   title,
		XKey:    header[xIdx],
		YKeys:   resolved,
		Series:  chart.NewSeries(resolved, opts.Palette),
		Data:    data,
		Options: opts,
	}, nil
}

func resolveAxis(t *sheet.Table, key string) (int, error) {
	idx, err := t.ResolveColumn(key)
	if err != nil {
		return -1, sgerrors.Wrap(sgerrors.CodeAxisKeyNotFound, err,
			"axis key %q is not a column; available columns: %s", key, strings.Join(t.Header(), ", "))
	}
	return idx, nil
}
