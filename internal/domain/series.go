package domain

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// BuildTimeSeries orders results by forecasted date and attaches the running
// total. Ties keep their input order, so callers pass results in discovery
// order. An empty input fails with ErrEmptyInput.
func BuildTimeSeries(results []RunResult) (TimeSeries, error) {
	if len(results) == 0 {
		return TimeSeries{}, fmt.Errorf("build time series: %w", ErrEmptyInput)
	}

	sorted := slices.Clone(results)
	slices.SortStableFunc(sorted, func(a, b RunResult) int {
		return a.ForecastedDate.Compare(b.ForecastedDate)
	})

	daily := make([]float64, len(sorted))
	for i, r := range sorted {
		daily[i] = r.AccumulatedValue
	}
	cumulative := floats.CumSum(make([]float64, len(daily)), daily)

	points := make([]SeriesPoint, len(sorted))
	for i, r := range sorted {
		points[i] = SeriesPoint{
			ForecastedDate:   r.ForecastedDate,
			ForecastDate:     r.ForecastDate,
			AccumulatedValue: r.AccumulatedValue,
			CumulativeValue:  cumulative[i],
		}
	}

	return TimeSeries{Points: points, GeneratedAt: clock.Now().UTC()}, nil
}
