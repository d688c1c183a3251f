package render_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/basin-precip-etl/internal/adapter/render"
	"github.com/couchcryptid/basin-precip-etl/internal/domain"
)

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func testSeries() domain.TimeSeries {
	return domain.TimeSeries{
		BatchID:     "batch-1",
		GeneratedAt: time.Date(2024, time.January, 5, 12, 0, 0, 0, time.UTC),
		Points: []domain.SeriesPoint{
			{ForecastedDate: day(1), ForecastDate: day(1), AccumulatedValue: 3.04, CumulativeValue: 3.04},
			{ForecastedDate: day(2), ForecastDate: day(1), AccumulatedValue: 5.16, CumulativeValue: 8.2},
		},
	}
}

func TestRenderer_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render.NewWriter(&buf, render.FormatText, 1).LoadSeries(context.Background(), testSeries()))

	out := buf.String()
	assert.Contains(t, out, "2024-01-02")
	assert.Contains(t, out, "3.0")
	assert.Contains(t, out, "5.2")
	assert.Contains(t, out, "8.2")
	assert.Contains(t, out, "2 days, 8.2 mm accumulated")
}

func TestRenderer_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render.NewWriter(&buf, render.FormatCSV, 2).Write(&buf, testSeries()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"forecasted_date", "forecast_date", "accumulated_mm", "cumulative_mm"},
		{"2024-01-01", "2024-01-01", "3.04", "3.04"},
		{"2024-01-02", "2024-01-01", "5.16", "8.20"},
	}, records)
}

func TestRenderer_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render.NewWriter(&buf, render.FormatJSON, 1).LoadSeries(context.Background(), testSeries()))

	var got struct {
		BatchID string  `json:"batch_id"`
		TotalMM float64 `json:"total_mm"`
		Points  []struct {
			ForecastedDate string  `json:"forecasted_date"`
			AccumulatedMM  float64 `json:"accumulated_mm"`
			CumulativeMM   float64 `json:"cumulative_mm"`
		} `json:"points"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "batch-1", got.BatchID)
	assert.InDelta(t, 8.2, got.TotalMM, 1e-9)
	require.Len(t, got.Points, 2)
	assert.Equal(t, "2024-01-01", got.Points[0].ForecastedDate)
	assert.InDelta(t, 3.0, got.Points[0].AccumulatedMM, 1e-9)
	assert.InDelta(t, 5.2, got.Points[1].AccumulatedMM, 1e-9)
}

func TestRenderer_ParquetFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.parquet")
	require.NoError(t, render.New(render.FormatParquet, 1, path).LoadSeries(context.Background(), testSeries()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	reader := parquet.NewGenericReader[render.SeriesRow](f)
	defer reader.Close()

	rows := make([]render.SeriesRow, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	require.Equal(t, 2, n)
	assert.Equal(t, "batch-1", rows[0].BatchID)
	assert.InDelta(t, 5.16, rows[1].AccumulatedMM, 1e-9)
	assert.InDelta(t, 8.2, rows[1].CumulativeMM, 1e-9)
	assert.True(t, day(2).Equal(rows[1].ForecastedDate))
}

func TestParquetSchema(t *testing.T) {
	schema := parquet.SchemaOf(new(render.SeriesRow))
	for _, col := range []string{"batch_id", "forecasted_date", "forecast_date", "accumulated_mm", "cumulative_mm"} {
		_, ok := schema.Lookup(col)
		assert.True(t, ok, "column %s should exist", col)
	}
}

func TestRenderer_FileOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.csv")
	r := render.New(render.FormatCSV, 1, path)

	require.NoError(t, r.LoadSeries(context.Background(), testSeries()))
	short := testSeries()
	short.Points = short.Points[:1]
	require.NoError(t, r.LoadSeries(context.Background(), short))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(data, []byte("\n")))
}

func TestRenderer_UnknownFormat(t *testing.T) {
	err := render.NewWriter(io.Discard, "xml", 1).LoadSeries(context.Background(), testSeries())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}

func TestRenderer_BadOutputPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "series.csv")
	err := render.New(render.FormatCSV, 1, path).LoadSeries(context.Background(), testSeries())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWritePoints(t *testing.T) {
	var buf bytes.Buffer
	points := []domain.SamplePoint{
		{Lat: -21.5, Long: -44.25, Value: 4.0},
		{Lat: -21.75, Long: -44.5, Value: 6.0},
	}
	require.NoError(t, render.WritePoints(&buf, points, 10, 1))

	out := buf.String()
	assert.Contains(t, out, "-21.7500")
	assert.Contains(t, out, "-44.2500")
	assert.Contains(t, out, "2 points inside, 10.0 mm")
}
