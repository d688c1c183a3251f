// Package render writes a finished series as a text table, CSV, JSON or
// Parquet, to stdout or a file.
package render

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/couchcryptid/basin-precip-etl/internal/domain"
)

// Output formats.
const (
	FormatText    = "text"
	FormatCSV     = "csv"
	FormatJSON    = "json"
	FormatParquet = "parquet"
)

// Renderer implements pipeline.SeriesLoader by writing each series it
// receives. With an empty path it writes to its stdout writer.
type Renderer struct {
	format    string
	precision int
	path      string
	stdout    io.Writer
}

// New creates a Renderer writing to path, or to os.Stdout when path is empty.
func New(format string, precision int, path string) *Renderer {
	return &Renderer{format: format, precision: precision, path: path, stdout: os.Stdout}
}

// NewWriter creates a Renderer that always writes to w.
func NewWriter(w io.Writer, format string, precision int) *Renderer {
	return &Renderer{format: format, precision: precision, stdout: w}
}

func (r *Renderer) LoadSeries(_ context.Context, series domain.TimeSeries) error {
	if r.path == "" {
		return r.Write(r.stdout, series)
	}

	f, err := os.Create(r.path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := r.Write(f, series); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Write dispatches on the configured format.
func (r *Renderer) Write(w io.Writer, series domain.TimeSeries) error {
	switch r.format {
	case FormatCSV:
		if err := writeCSV(w, series, r.precision); err != nil {
			return fmt.Errorf("write CSV output: %w", err)
		}
	case FormatJSON:
		if err := writeJSON(w, series, r.precision); err != nil {
			return fmt.Errorf("write JSON output: %w", err)
		}
	case FormatParquet:
		if err := writeParquet(w, series); err != nil {
			return fmt.Errorf("write parquet output: %w", err)
		}
	case FormatText, "":
		if err := writeTable(w, series, r.precision); err != nil {
			return fmt.Errorf("write table output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format %q", r.format)
	}
	return nil
}

func formatFloat(v float64, precision int) string {
	return strconv.FormatFloat(v, 'f', precision, 64)
}

func roundTo(v float64, precision int) float64 {
	p := math.Pow10(precision)
	return math.Round(v*p) / p
}

func writeTable(w io.Writer, series domain.TimeSeries, precision int) error {
	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"Forecasted", "Forecast", "Daily (mm)", "Cumulative (mm)"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	data := make([][]string, 0, len(series.Points))
	for _, p := range series.Points {
		data = append(data, []string{
			p.ForecastedDate.Format(time.DateOnly),
			p.ForecastDate.Format(time.DateOnly),
			formatFloat(p.AccumulatedValue, precision),
			formatFloat(p.CumulativeValue, precision),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d days, %s mm accumulated\n", len(series.Points), formatFloat(series.Total(), precision))
	return err
}

func writeCSV(w io.Writer, series domain.TimeSeries, precision int) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"forecasted_date", "forecast_date", "accumulated_mm", "cumulative_mm"}); err != nil {
		return err
	}
	for _, p := range series.Points {
		if err := cw.Write([]string{
			p.ForecastedDate.Format(time.DateOnly),
			p.ForecastDate.Format(time.DateOnly),
			formatFloat(p.AccumulatedValue, precision),
			formatFloat(p.CumulativeValue, precision),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type jsonPoint struct {
	ForecastedDate string  `json:"forecasted_date"`
	ForecastDate   string  `json:"forecast_date"`
	AccumulatedMM  float64 `json:"accumulated_mm"`
	CumulativeMM   float64 `json:"cumulative_mm"`
}

type jsonSeries struct {
	BatchID     string      `json:"batch_id,omitempty"`
	GeneratedAt time.Time   `json:"generated_at"`
	TotalMM     float64     `json:"total_mm"`
	Points      []jsonPoint `json:"points"`
}

func writeJSON(w io.Writer, series domain.TimeSeries, precision int) error {
	out := jsonSeries{
		BatchID:     series.BatchID,
		GeneratedAt: series.GeneratedAt,
		TotalMM:     roundTo(series.Total(), precision),
		Points:      make([]jsonPoint, len(series.Points)),
	}
	for i, p := range series.Points {
		out.Points[i] = jsonPoint{
			ForecastedDate: p.ForecastedDate.Format(time.DateOnly),
			ForecastDate:   p.ForecastDate.Format(time.DateOnly),
			AccumulatedMM:  roundTo(p.AccumulatedValue, precision),
			CumulativeMM:   roundTo(p.CumulativeValue, precision),
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
