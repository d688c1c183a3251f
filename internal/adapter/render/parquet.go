package render

import (
	"io"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/couchcryptid/basin-precip-etl/internal/domain"
)

// SeriesRow is the Parquet schema of one series point. Values are stored at
// full precision.
type SeriesRow struct {
	BatchID        string    `parquet:"batch_id,snappy"`
	ForecastedDate time.Time `parquet:"forecasted_date,snappy"`
	ForecastDate   time.Time `parquet:"forecast_date,snappy"`
	AccumulatedMM  float64   `parquet:"accumulated_mm,snappy"`
	CumulativeMM   float64   `parquet:"cumulative_mm,snappy"`
}

// SeriesRows converts a series into Parquet rows.
func SeriesRows(series domain.TimeSeries) []SeriesRow {
	rows := make([]SeriesRow, len(series.Points))
	for i, p := range series.Points {
		rows[i] = SeriesRow{
			BatchID:        series.BatchID,
			ForecastedDate: p.ForecastedDate,
			ForecastDate:   p.ForecastDate,
			AccumulatedMM:  p.AccumulatedValue,
			CumulativeMM:   p.CumulativeValue,
		}
	}
	return rows
}

func writeParquet(w io.Writer, series domain.TimeSeries) error {
	writer := parquet.NewGenericWriter[SeriesRow](w)
	if _, err := writer.Write(SeriesRows(series)); err != nil {
		_ = writer.Close()
		return err
	}
	return writer.Close()
}
