package spreadsheet

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// quantile uses linear interpolation between closest ranks, the convention
// spreadsheet users see from QUARTILE.INC and pandas.
func quantile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	h := float64(len(sorted)-1) * p
	lo := math.Floor(h)
	hi := math.Ceil(h)
	if lo == hi {
		return sorted[int(lo)]
	}
	return sorted[int(lo)] + (h-lo)*(sorted[int(hi)]-sorted[int(lo)])
}

// stdDev is the sample standard deviation; zero for fewer than two values.
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

// linearFit returns the least squares slope and intercept of values against
// their index.
func linearFit(values []float64) (slope, intercept float64) {
	if len(values) < 2 {
		return 0, firstOr(values, 0)
	}
	xs := make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i)
	}
	intercept, slope = stat.LinearRegression(xs, values, nil, false)
	return slope, intercept
}

// coefficientOfVariation is std/mean, or zero when the mean is zero.
func coefficientOfVariation(values []float64) float64 {
	mean := stat.Mean(values, nil)
	if mean == 0 {
		return 0
	}
	return stdDev(values) / mean
}

func firstOr(values []float64, fallback float64) float64 {
	if len(values) == 0 {
		return fallback
	}
	return values[0]
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}
