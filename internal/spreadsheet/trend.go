package spreadsheet

import (
	"fmt"

	sgerrors "sheetgenie/internal/errors"
	"sheetgenie/internal/sheet"
)

// Direction of a trend.
type Direction string

const (
	DirectionIncreasing Direction = "increasing"
	DirectionDecreasing Direction = "decreasing"
	DirectionFlat       Direction = "flat"
)

// TrendResult summarizes a column read top to bottom.
type TrendResult struct {
	Column        string    `json:"column"`
	Direction     Direction `json:"direction"`
	First         float64   `json:"first"`
	Last          float64   `json:"last"`
	Change        float64   `json:"change"`
	PercentChange float64   `json:"percent_change"`
	Slope         float64   `json:"slope"`
	Volatility    float64   `json:"volatility"`
	Points        int       `json:"points"`
}

// SummarizeTrend compares the first and last numeric values of a column. The
// least squares slope is reported as the trend's strength.
func SummarizeTrend(t *sheet.Table, column string) (*TrendResult, error) {
	idx, err := t.ResolveColumn(column)
	if err != nil {
		return nil, err
	}
	values, _ := t.Numbers(idx)
	if len(values) < 2 {
		return nil, sgerrors.New(sgerrors.CodeInsufficientData,
			"column %q needs at least two numeric values for a trend, found %d", t.Header()[idx], len(values))
	}

	first, last := values[0], values[len(values)-1]
	change := last - first
	percent := 0.0
	if first != 0 {
		percent = change / first * 100
	}
	slope, _ := linearFit(values)

	direction := DirectionFlat
	switch {
	case change > 0:
		direction = DirectionIncreasing
	case change < 0:
		direction = DirectionDecreasing
	}

	return &TrendResult{
		Column:        t.Header()[idx],
		Direction:     direction,
		First:         first,
		Last:          last,
		Change:        change,
		PercentChange: percent,
		Slope:         slope,
		Volatility:    coefficientOfVariation(values),
		Points:        len(values),
	}, nil
}

// Describe renders the trend as a sentence.
func (r *TrendResult) Describe() string {
	return fmt.Sprintf("%s is %s: %s to %s (%+.1f%%) across %d values.",
		r.Column, r.Direction, formatFloat(r.First), formatFloat(r.Last), r.PercentChange, r.Points)
}

// ForecastResult projects a column forward along its linear trend.
type ForecastResult struct {
	Column     string    `json:"column"`
	Forecasts  []float64 `json:"forecasts"`
	Slope      float64   `json:"trend_slope"`
	Intercept  float64   `json:"intercept"`
	Method     string    `json:"method"`
	Confidence string    `json:"confidence"`
}

// MaxForecastPeriods bounds how far Forecast projects.
const MaxForecastPeriods = 24

// Forecast fits a line through the numeric values of a column and extends it
// by periods steps.
func Forecast(t *sheet.Table, column string, periods int) (*ForecastResult, error) {
	idx, err := t.ResolveColumn(column)
	if err != nil {
		return nil, err
	}
	if periods <= 0 {
		periods = 1
	}
	if periods > MaxForecastPeriods {
		return nil, sgerrors.New(sgerrors.CodeInvalidExpression,
			"can forecast at most %d periods, asked for %d", MaxForecastPeriods, periods)
	}
	values, _ := t.Numbers(idx)
	if len(values) < 3 {
		return nil, sgerrors.New(sgerrors.CodeInsufficientData,
			"column %q needs at least 3 numeric values for forecasting, found %d", t.Header()[idx], len(values))
	}

	slope, intercept := linearFit(values)
	forecasts := make([]float64, periods)
	for i := range forecasts {
		x := float64(len(values) + i)
		forecasts[i] = sheet.Round2(slope*x + intercept)
	}
	return &ForecastResult{
		Column:     t.Header()[idx],
		Forecasts:  forecasts,
		Slope:      slope,
		Intercept:  intercept,
		Method:     "linear_trend",
		Confidence: "medium",
	}, nil
}
