package domain

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAggregateRun(t *testing.T) {
	run := ForecastRun{
		SourcePath:     testGridPath,
		ForecastDate:   day(2024, time.January, 1),
		ForecastedDate: day(2024, time.January, 2),
	}

	t.Run("sums inside values", func(t *testing.T) {
		inside := []SamplePoint{{Value: 1.5}, {Value: 2.25}, {Value: 0}}
		got := AggregateRun(run, inside, 10)

		assert.Equal(t, RunResult{
			SourcePath:       testGridPath,
			ForecastDate:     run.ForecastDate,
			ForecastedDate:   run.ForecastedDate,
			AccumulatedValue: 3.75,
			PointsTotal:      10,
			PointsInside:     3,
		}, got)
	})

	t.Run("empty inside set is exactly zero", func(t *testing.T) {
		got := AggregateRun(run, nil, 42)

		assert.Equal(t, 0.0, got.AccumulatedValue)
		assert.Equal(t, 0, got.PointsInside)
		assert.Equal(t, 42, got.PointsTotal)
	})

	t.Run("clip and aggregate triangle scenario", func(t *testing.T) {
		p := mustPolygon(t, []Vertex{{-22.0, -45.0}, {-22.0, -44.0}, {-21.0, -44.5}})
		samples := []SamplePoint{{-21.8, -44.5, 10.0}, {0, 0, 5.0}}

		got := ClipAndAggregate(p, run, samples)

		assert.Equal(t, 10.0, got.AccumulatedValue)
		assert.Equal(t, 1, got.PointsInside)
		assert.Equal(t, 2, got.PointsTotal)
	})
}

func TestBuildTimeSeries(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2024, time.January, 3, 6, 0, 0, 0, time.UTC))
	SetClock(fakeClock)
	t.Cleanup(func() { SetClock(nil) })

	t.Run("orders by forecasted date and accumulates", func(t *testing.T) {
		results := []RunResult{
			{ForecastedDate: day(2024, time.January, 2), AccumulatedValue: 5.0},
			{ForecastedDate: day(2024, time.January, 1), AccumulatedValue: 3.0},
		}

		series, err := BuildTimeSeries(results)
		require.NoError(t, err)

		want := []SeriesPoint{
			{ForecastedDate: day(2024, time.January, 1), AccumulatedValue: 3.0, CumulativeValue: 3.0},
			{ForecastedDate: day(2024, time.January, 2), AccumulatedValue: 5.0, CumulativeValue: 8.0},
		}
		if diff := cmp.Diff(want, series.Points); diff != "" {
			t.Fatalf("series mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, fakeClock.Now(), series.GeneratedAt)
		assert.Equal(t, 8.0, series.Total())
	})

	t.Run("ties keep input order", func(t *testing.T) {
		d := day(2024, time.January, 5)
		results := []RunResult{
			{SourcePath: "b", ForecastedDate: d, ForecastDate: day(2024, time.January, 3), AccumulatedValue: 1},
			{SourcePath: "z", ForecastedDate: day(2024, time.January, 4), AccumulatedValue: 7},
			{SourcePath: "a", ForecastedDate: d, ForecastDate: day(2024, time.January, 1), AccumulatedValue: 2},
		}

		series, err := BuildTimeSeries(results)
		require.NoError(t, err)

		require.Len(t, series.Points, 3)
		assert.Equal(t, day(2024, time.January, 4), series.Points[0].ForecastedDate)
		assert.Equal(t, day(2024, time.January, 3), series.Points[1].ForecastDate)
		assert.Equal(t, day(2024, time.January, 1), series.Points[2].ForecastDate)
		assert.Equal(t, []float64{7, 8, 10}, cumulativeValues(series))
	})

	t.Run("does not reorder caller slice", func(t *testing.T) {
		results := []RunResult{
			{ForecastedDate: day(2024, time.January, 2)},
			{ForecastedDate: day(2024, time.January, 1)},
		}

		_, err := BuildTimeSeries(results)
		require.NoError(t, err)
		assert.Equal(t, day(2024, time.January, 2), results[0].ForecastedDate)
	})

	t.Run("empty input fails explicitly", func(t *testing.T) {
		_, err := BuildTimeSeries(nil)
		assert.ErrorIs(t, err, ErrEmptyInput)

		_, err = BuildTimeSeries([]RunResult{})
		assert.ErrorIs(t, err, ErrEmptyInput)
	})
}

func TestBuildTimeSeries_CumulativeNonDecreasing(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for trial := 0; trial < 20; trial++ {
		results := make([]RunResult, 1+rng.IntN(60))
		for i := range results {
			results[i] = RunResult{
				ForecastedDate:   day(2024, time.January, 1).AddDate(0, 0, rng.IntN(30)),
				AccumulatedValue: rng.Float64() * 50,
			}
		}

		series, err := BuildTimeSeries(results)
		require.NoError(t, err)

		for i := 1; i < len(series.Points); i++ {
			prev, cur := series.Points[i-1], series.Points[i]
			assert.False(t, cur.ForecastedDate.Before(prev.ForecastedDate))
			assert.GreaterOrEqual(t, cur.CumulativeValue, prev.CumulativeValue)
			assert.InDelta(t, prev.CumulativeValue+cur.AccumulatedValue, cur.CumulativeValue, 1e-9)
		}
		assert.InDelta(t, series.Points[0].AccumulatedValue, series.Points[0].CumulativeValue, 1e-12)
	}
}

func cumulativeValues(s TimeSeries) []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.CumulativeValue
	}
	return out
}
