package domain

import "gonum.org/v1/gonum/floats"

// AggregateRun sums the in-boundary values of one run. An empty inside set
// yields 0. total is the number of samples read before clipping.
func AggregateRun(run ForecastRun, inside []SamplePoint, total int) RunResult {
	values := make([]float64, len(inside))
	for i, s := range inside {
		values[i] = s.Value
	}
	return RunResult{
		SourcePath:       run.SourcePath,
		ForecastDate:     run.ForecastDate,
		ForecastedDate:   run.ForecastedDate,
		AccumulatedValue: floats.Sum(values),
		PointsTotal:      total,
		PointsInside:     len(inside),
	}
}

// ClipAndAggregate restricts samples to the boundary and sums them.
func ClipAndAggregate(boundary BoundaryPolygon, run ForecastRun, samples []SamplePoint) RunResult {
	return AggregateRun(run, boundary.Clip(samples), len(samples))
}
