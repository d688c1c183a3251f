package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/basin-precip-etl/internal/adapter/filesystem"
	"github.com/couchcryptid/basin-precip-etl/internal/config"
	"github.com/couchcryptid/basin-precip-etl/internal/domain"
)

func testOptions(t *testing.T) options {
	t.Helper()
	dir := t.TempDir()
	opts := defaultOptions()
	opts.OutDir = filepath.Join(dir, "forecast_files")
	opts.BoundaryPath = filepath.Join(dir, "PSATCMG_CAMARGOS.bln")
	opts.Days = 3
	return opts
}

func TestGenerate_ReadableByPipelineAdapters(t *testing.T) {
	for _, compress := range []bool{false, true} {
		opts := testOptions(t)
		opts.Compress = compress

		files, err := generate(opts)
		require.NoError(t, err)
		require.Len(t, files, 3)

		boundary, err := filesystem.LoadBoundary(opts.BoundaryPath)
		require.NoError(t, err)
		assert.Equal(t, opts.Vertices, boundary.Len())

		d, err := filesystem.NewDiscoverer(opts.OutDir, config.DefaultRunFilePattern, "020106",
			slog.New(slog.NewTextHandler(io.Discard, nil)))
		require.NoError(t, err)
		runs, err := d.Discover(context.Background())
		require.NoError(t, err)
		require.Len(t, runs, 3)
		assert.Equal(t, opts.Start.AddDate(0, 0, 2), runs[2].ForecastedDate)

		samples, err := filesystem.ReadGrid(runs[0].SourcePath)
		require.NoError(t, err)
		assert.Len(t, samples, files[0].points)

		res := domain.ClipAndAggregate(boundary, runs[0], samples)
		assert.Positive(t, res.PointsInside)
		assert.Less(t, res.PointsInside, res.PointsTotal)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a, b := testOptions(t), testOptions(t)

	_, err := generate(a)
	require.NoError(t, err)
	_, err = generate(b)
	require.NoError(t, err)

	pa, err := filesystem.LoadBoundary(a.BoundaryPath)
	require.NoError(t, err)
	pb, err := filesystem.LoadBoundary(b.BoundaryPath)
	require.NoError(t, err)
	assert.Equal(t, pa.Fingerprint(), pb.Fingerprint())
}

func TestGenerate_RejectsBadOptions(t *testing.T) {
	opts := testOptions(t)
	opts.Vertices = 2
	_, err := generate(opts)
	assert.Error(t, err)
}
