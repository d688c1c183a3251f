package store_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/basin-precip-etl/internal/adapter/store"
	"github.com/couchcryptid/basin-precip-etl/internal/domain"
)

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func result(path string, forecasted int, v float64) domain.RunResult {
	return domain.RunResult{
		SourcePath:       path,
		ForecastDate:     day(1),
		ForecastedDate:   day(forecasted),
		AccumulatedValue: v,
		PointsTotal:      400,
		PointsInside:     37,
	}
}

func openSQLite(t *testing.T) *store.SQL {
	t.Helper()
	s, err := store.OpenSQL(context.Background(), "sqlite", filepath.Join(t.TempDir(), "basin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// --- Memory ---

func TestMemory_GetPut(t *testing.T) {
	ctx := context.Background()
	c := store.NewMemory(10)

	_, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, "a", result("a.dat", 2, 1.5)))
	got, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, result("a.dat", 2, 1.5), got)

	require.NoError(t, c.Put(ctx, "a", result("a.dat", 2, 9)))
	got, _, _ = c.Get(ctx, "a")
	assert.InDelta(t, 9.0, got.AccumulatedValue, 0)
	assert.Equal(t, 1, c.Len())
}

func TestMemory_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := store.NewMemory(2)

	require.NoError(t, c.Put(ctx, "a", result("a.dat", 2, 1)))
	require.NoError(t, c.Put(ctx, "b", result("b.dat", 3, 2)))

	// Touch a so b becomes the eviction candidate.
	_, ok, _ := c.Get(ctx, "a")
	require.True(t, ok)

	require.NoError(t, c.Put(ctx, "c", result("c.dat", 4, 3)))
	assert.Equal(t, 2, c.Len())

	_, ok, _ = c.Get(ctx, "b")
	assert.False(t, ok, "b should be evicted")
	_, ok, _ = c.Get(ctx, "a")
	assert.True(t, ok)
	_, ok, _ = c.Get(ctx, "c")
	assert.True(t, ok)
}

func TestMemory_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := store.NewMemory(16)

	done := make(chan struct{})
	for w := range 8 {
		go func() {
			defer func() { done <- struct{}{} }()
			for i := range 100 {
				key := fmt.Sprintf("k%d", (w*100+i)%32)
				_ = c.Put(ctx, key, result(key, 2, float64(i)))
				_, _, _ = c.Get(ctx, key)
			}
		}()
	}
	for range 8 {
		<-done
	}
	assert.LessOrEqual(t, c.Len(), 16)
}

// --- SQL (sqlite) ---

func TestSQL_RunResultCache(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	want := result("forecast_files/ETA40_p010124a020124.dat", 2, 12.75)
	require.NoError(t, s.Put(ctx, "k1", want))

	got, ok, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("run result mismatch (-want +got):\n%s", diff)
	}

	updated := want
	updated.AccumulatedValue = 1
	require.NoError(t, s.Put(ctx, "k1", updated))
	got, _, err = s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got.AccumulatedValue, 0)
}

func TestSQL_Series(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)

	_, ok, err := s.LatestSeries(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	older := domain.TimeSeries{
		BatchID:     "batch-1",
		GeneratedAt: time.Date(2024, time.January, 5, 8, 0, 0, 0, time.UTC),
		Points: []domain.SeriesPoint{
			{ForecastedDate: day(2), ForecastDate: day(1), AccumulatedValue: 1, CumulativeValue: 1},
		},
	}
	newer := domain.TimeSeries{
		BatchID:     "batch-2",
		GeneratedAt: time.Date(2024, time.January, 6, 8, 0, 0, 0, time.UTC),
		Points: []domain.SeriesPoint{
			{ForecastedDate: day(2), ForecastDate: day(1), AccumulatedValue: 3, CumulativeValue: 3},
			{ForecastedDate: day(2), ForecastDate: day(2), AccumulatedValue: 2, CumulativeValue: 5},
			{ForecastedDate: day(3), ForecastDate: day(2), AccumulatedValue: 0.5, CumulativeValue: 5.5},
		},
	}
	require.NoError(t, s.LoadSeries(ctx, newer))
	require.NoError(t, s.LoadSeries(ctx, older))

	got, ok, err := s.LatestSeries(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	if diff := cmp.Diff(newer, got); diff != "" {
		t.Errorf("latest series mismatch (-want +got):\n%s", diff)
	}
}

func TestSQL_LoadSeriesDuplicateBatchFails(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)
	series := domain.TimeSeries{
		BatchID:     "batch-1",
		GeneratedAt: day(5),
		Points:      []domain.SeriesPoint{{ForecastedDate: day(2), ForecastDate: day(1)}},
	}

	require.NoError(t, s.LoadSeries(ctx, series))
	assert.Error(t, s.LoadSeries(ctx, series))
}

func TestSQL_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "basin.db")

	s, err := store.OpenSQL(ctx, "sqlite", path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "k1", result("a.dat", 2, 4)))
	require.NoError(t, s.Close())

	s, err = store.OpenSQL(ctx, "sqlite", path)
	require.NoError(t, err)
	defer s.Close()

	_, ok, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOpenSQL_UnsupportedBackend(t *testing.T) {
	_, err := store.OpenSQL(context.Background(), "mysql", "dsn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store backend")
}
