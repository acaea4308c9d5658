package spreadsheet

import (
	"fmt"
	"math"
	"strings"

	"sheetgenie/internal/sheet"

	"gonum.org/v1/gonum/stat"
)

// DataSummary describes the shape of a table.
type DataSummary struct {
	Rows               int            `json:"total_rows"`
	Columns            int            `json:"total_columns"`
	NumericColumns     int            `json:"numeric_columns"`
	CategoricalColumns int            `json:"categorical_columns"`
	MissingValues      map[string]int `json:"missing_values"`
}

// Quartiles of a numeric column.
type Quartiles struct {
	Q1 float64 `json:"q1"`
	Q2 float64 `json:"q2"`
	Q3 float64 `json:"q3"`
}

// ColumnStats are the descriptive statistics of one numeric column.
type ColumnStats struct {
	Column    string    `json:"column"`
	Mean      float64   `json:"mean"`
	Median    float64   `json:"median"`
	Std       float64   `json:"std"`
	Min       float64   `json:"min"`
	Max       float64   `json:"max"`
	Range     float64   `json:"range"`
	CV        float64   `json:"coefficient_variation"`
	Quartiles Quartiles `json:"quartiles"`
}

// ColumnTrend is the whole-column trend used by the insight report.
type ColumnTrend struct {
	Column        string    `json:"column"`
	Direction     Direction `json:"trend_direction"`
	Strength      float64   `json:"trend_strength"`
	GrowthPercent float64   `json:"growth_rate_percent"`
	Volatility    float64   `json:"volatility"`
}

// Correlation is a strongly correlated column pair.
type Correlation struct {
	Column1     string  `json:"column1"`
	Column2     string  `json:"column2"`
	Coefficient float64 `json:"correlation"`
	Strength    string  `json:"strength"`
}

// Outliers are the values of a column outside 1.5 IQR.
type Outliers struct {
	Column     string    `json:"column"`
	Count      int       `json:"outlier_count"`
	Percentage float64   `json:"outlier_percentage"`
	Values     []float64 `json:"outlier_values"`
	LowerBound float64   `json:"lower_bound"`
	UpperBound float64   `json:"upper_bound"`
}

// Insights is the full analysis of a table.
type Insights struct {
	Summary         DataSummary   `json:"data_summary"`
	Statistics      []ColumnStats `json:"statistical_insights"`
	Trends          []ColumnTrend `json:"trend_analysis"`
	Correlations    []Correlation `json:"strong_correlations"`
	Outliers        []Outliers    `json:"outlier_detection"`
	Recommendations []string      `json:"recommendations"`
}

const (
	strongCorrelation = 0.7
	outlierMinPoints  = 5
	trendMinPoints    = 3
)

type numericColumn struct {
	name   string
	idx    int
	values []float64
}

func numericColumns(t *sheet.Table) []numericColumn {
	var out []numericColumn
	header := t.Header()
	for c := range header {
		if !t.NumericColumn(c) {
			continue
		}
		values, _ := t.Numbers(c)
		out = append(out, numericColumn{name: header[c], idx: c, values: values})
	}
	return out
}

// Analyze computes statistics, trends, correlations, outliers and
// recommendations for every numeric column.
func Analyze(t *sheet.Table) *Insights {
	cols := numericColumns(t)
	in := &Insights{
		Summary:         summarize(t, len(cols)),
		Statistics:      []ColumnStats{},
		Trends:          []ColumnTrend{},
		Correlations:    []Correlation{},
		Outliers:        []Outliers{},
		Recommendations: []string{},
	}

	for _, col := range cols {
		if len(col.values) == 0 {
			continue
		}
		in.Statistics = append(in.Statistics, columnStats(col))
		if len(col.values) >= trendMinPoints {
			in.Trends = append(in.Trends, columnTrend(col))
		}
		if o, ok := outliers(col); ok {
			in.Outliers = append(in.Outliers, o)
		}
	}
	in.Correlations = correlations(t, cols)
	in.Recommendations = recommend(in)
	return in
}

func summarize(t *sheet.Table, numeric int) DataSummary {
	missing := map[string]int{}
	header := t.Header()
	for c, name := range header {
		count := 0
		for r := 0; r < t.Rows(); r++ {
			if t.Cell(r, c).IsEmpty() {
				count++
			}
		}
		missing[name] = count
	}
	return DataSummary{
		Rows:               t.Rows(),
		Columns:            t.Columns(),
		NumericColumns:     numeric,
		CategoricalColumns: t.Columns() - numeric,
		MissingValues:      missing,
	}
}

func columnStats(col numericColumn) ColumnStats {
	lo, hi := col.values[0], col.values[0]
	for _, v := range col.values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return ColumnStats{
		Column: col.name,
		Mean:   stat.Mean(col.values, nil),
		Median: quantile(col.values, 0.5),
		Std:    stdDev(col.values),
		Min:    lo,
		Max:    hi,
		Range:  hi - lo,
		CV:     coefficientOfVariation(col.values),
		Quartiles: Quartiles{
			Q1: quantile(col.values, 0.25),
			Q2: quantile(col.values, 0.5),
			Q3: quantile(col.values, 0.75),
		},
	}
}

func columnTrend(col numericColumn) ColumnTrend {
	slope, _ := linearFit(col.values)
	direction := DirectionFlat
	switch {
	case slope > 0:
		direction = DirectionIncreasing
	case slope < 0:
		direction = DirectionDecreasing
	}
	growth := 0.0
	first, last := col.values[0], col.values[len(col.values)-1]
	if first != 0 {
		growth = (last - first) / first * 100
	}
	return ColumnTrend{
		Column:        col.name,
		Direction:     direction,
		Strength:      math.Abs(slope),
		GrowthPercent: growth,
		Volatility:    coefficientOfVariation(col.values),
	}
}

func outliers(col numericColumn) (Outliers, bool) {
	if len(col.values) < outlierMinPoints {
		return Outliers{}, false
	}
	q1 := quantile(col.values, 0.25)
	q3 := quantile(col.values, 0.75)
	iqr := q3 - q1
	lower, upper := q1-1.5*iqr, q3+1.5*iqr

	var found []float64
	for _, v := range col.values {
		if v < lower || v > upper {
			found = append(found, v)
		}
	}
	if len(found) == 0 {
		return Outliers{}, false
	}
	return Outliers{
		Column:     col.name,
		Count:      len(found),
		Percentage: float64(len(found)) / float64(len(col.values)) * 100,
		Values:     found,
		LowerBound: lower,
		UpperBound: upper,
	}, true
}

// correlations pairs numeric columns row by row, using only rows where both
// cells are numbers.
func correlations(t *sheet.Table, cols []numericColumn) []Correlation {
	out := []Correlation{}
	for i := 0; i < len(cols); i++ {
		for j := i + 1; j < len(cols); j++ {
			var xs, ys []float64
			for r := 0; r < t.Rows(); r++ {
				x, xok := t.Cell(r, cols[i].idx).Float()
				y, yok := t.Cell(r, cols[j].idx).Float()
				if xok && yok {
					xs = append(xs, x)
					ys = append(ys, y)
				}
			}
			if len(xs) < 3 {
				continue
			}
			r := stat.Correlation(xs, ys, nil)
			if math.IsNaN(r) || math.Abs(r) <= strongCorrelation {
				continue
			}
			strength := "strong positive"
			if r < 0 {
				strength = "strong negative"
			}
			out = append(out, Correlation{Column1: cols[i].name, Column2: cols[j].name, Coefficient: r, Strength: strength})
		}
	}
	return out
}

func recommend(in *Insights) []string {
	var recs []string

	cells := in.Summary.Rows * in.Summary.Columns
	if cells > 0 {
		missing := 0
		for _, n := range in.Summary.MissingValues {
			missing += n
		}
		if pct := float64(missing) / float64(cells) * 100; pct > 10 {
			recs = append(recs, fmt.Sprintf("Consider addressing missing data (%.1f%% of total data)", pct))
		}
	}
	for _, tr := range in.Trends {
		switch {
		case tr.GrowthPercent > 20:
			recs = append(recs, fmt.Sprintf("%s shows strong growth (%.1f%%) - consider scaling strategies", tr.Column, tr.GrowthPercent))
		case tr.GrowthPercent < -10:
			recs = append(recs, fmt.Sprintf("%s shows decline (%.1f%%) - investigate causes", tr.Column, tr.GrowthPercent))
		}
	}
	for _, o := range in.Outliers {
		if o.Percentage > 15 {
			recs = append(recs, fmt.Sprintf("%s has many outliers (%.1f%%) - review data quality", o.Column, o.Percentage))
		}
	}
	for _, c := range in.Correlations {
		recs = append(recs, fmt.Sprintf("Strong correlation between %s and %s (%.2f)", c.Column1, c.Column2, c.Coefficient))
	}
	if len(recs) == 0 {
		recs = append(recs,
			"Data appears well-structured with no major issues detected",
			"Consider creating visualizations to better understand patterns")
	}
	return recs
}

// Report renders the insights as the bulleted text the chat panel shows.
func Report(t *sheet.Table) string {
	in := Analyze(t)
	var b strings.Builder

	b.WriteString("DATA ANALYSIS REPORT\n\n")
	b.WriteString("Data Overview:\n")
	fmt.Fprintf(&b, "• Dataset: %d rows × %d columns\n", in.Summary.Rows, in.Summary.Columns)
	fmt.Fprintf(&b, "• Numeric columns: %d\n", in.Summary.NumericColumns)
	fmt.Fprintf(&b, "• Categorical columns: %d\n", in.Summary.CategoricalColumns)

	if len(in.Statistics) > 0 {
		b.WriteString("\nKey Statistics:\n")
		for _, s := range in.Statistics[:min(3, len(in.Statistics))] {
			fmt.Fprintf(&b, "• %s: Mean = %.2f, Range = %.2f\n", s.Column, s.Mean, s.Range)
		}
	}
	if len(in.Trends) > 0 {
		b.WriteString("\nTrend Analysis:\n")
		for _, tr := range in.Trends {
			fmt.Fprintf(&b, "• %s: %s trend (%+.1f%% growth)\n", tr.Column, tr.Direction, tr.GrowthPercent)
		}
	}
	b.WriteString("\nRecommendations:\n")
	for _, rec := range in.Recommendations[:min(5, len(in.Recommendations))] {
		fmt.Fprintf(&b, "• %s\n", rec)
	}
	return strings.TrimRight(b.String(), "\n")
}
