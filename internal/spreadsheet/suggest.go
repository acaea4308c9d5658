package spreadsheet

import (
	"strings"

	"sheetgenie/internal/chart"
	"sheetgenie/internal/sheet"
)

// ChartRecommendation is one suggested chart kind.
type ChartRecommendation struct {
	Kind       chart.Kind `json:"chart_type"`
	Reason     string     `json:"reason"`
	Confidence string     `json:"confidence"`
}

// ChartSuggestion ranks chart kinds for an x/y column pair.
type ChartSuggestion struct {
	X           string                `json:"x_column"`
	Y           string                `json:"y_column"`
	XType       string                `json:"x_column_type"`
	YType       string                `json:"y_column_type"`
	XUnique     int                   `json:"x_unique_values"`
	YUnique     int                   `json:"y_unique_values"`
	Recommended []ChartRecommendation `json:"recommended_charts"`
}

var timeKeywords = []string{"date", "time", "month", "quarter", "year", "week", "day"}

// SuggestChart recommends chart kinds from the column types: categories
// against numbers suggest bar or pie, two numeric columns suggest scatter or
// line, and time-like x columns put line first.
func SuggestChart(t *sheet.Table, x, y string) (*ChartSuggestion, error) {
	xIdx, err := resolveAxis(t, x)
	if err != nil {
		return nil, err
	}
	yIdx, err := resolveAxis(t, y)
	if err != nil {
		return nil, err
	}
	header := t.Header()
	xNumeric, yNumeric := t.NumericColumn(xIdx), t.NumericColumn(yIdx)
	xUnique := uniqueCount(t, xIdx)

	var recs []ChartRecommendation
	switch {
	case !xNumeric && yNumeric:
		if xUnique <= 10 {
			recs = append(recs,
				ChartRecommendation{chart.KindBar, "Best for comparing numeric values across categories", "high"},
				ChartRecommendation{chart.KindPie, "Good for showing proportions when categories < 10", "medium"})
		} else {
			recs = append(recs, ChartRecommendation{chart.KindBar, "Bar chart handles many categories well", "medium"})
		}
	case xNumeric && yNumeric:
		recs = append(recs,
			ChartRecommendation{chart.KindScatter, "Perfect for showing correlation between two numeric variables", "high"},
			ChartRecommendation{chart.KindLine, "Good if x-axis represents time or sequential data", "medium"})
	case xNumeric && !yNumeric:
		recs = append(recs, ChartRecommendation{chart.KindBar, "Switch axes - categories work better on x-axis", "medium"})
	default:
		recs = append(recs, ChartRecommendation{chart.KindBar, "Consider aggregating data first", "low"})
	}

	lower := strings.ToLower(header[xIdx])
	for _, kw := range timeKeywords {
		if strings.Contains(lower, kw) {
			recs = append([]ChartRecommendation{{chart.KindLine, "Time series data is best visualized with line charts", "very_high"}}, recs...)
			break
		}
	}

	return &ChartSuggestion{
		X:           header[xIdx],
		Y:           header[yIdx],
		XType:       columnType(xNumeric),
		YType:       columnType(yNumeric),
		XUnique:     xUnique,
		YUnique:     uniqueCount(t, yIdx),
		Recommended: recs,
	}, nil
}

func columnType(numeric bool) string {
	if numeric {
		return "numeric"
	}
	return "categorical"
}

func uniqueCount(t *sheet.Table, c int) int {
	seen := map[string]struct{}{}
	for r := 0; r < t.Rows(); r++ {
		v := t.Cell(r, c)
		if v.IsEmpty() {
			continue
		}
		seen[v.Kind().String()+":"+v.String()] = struct{}{}
	}
	return len(seen)
}
