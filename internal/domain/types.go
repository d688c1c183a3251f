package domain

import "time"

// SamplePoint is one grid cell of a forecast file.
type SamplePoint struct {
	Lat   float64 `json:"lat"`
	Long  float64 `json:"long"`
	Value float64 `json:"value"`
}

// Vertex is one corner of a boundary outline.
type Vertex struct {
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
}

// ForecastRun identifies one forecast file and the dates it carries.
// ForecastDate is the issuance date; ForecastedDate is the date the values
// apply to. Size and ModTime come from the file system and are only used to
// key cached results.
type ForecastRun struct {
	SourcePath     string
	ForecastDate   time.Time
	ForecastedDate time.Time
	Size           int64
	ModTime        time.Time
}

// RunResult is the accumulated in-boundary precipitation for one run.
type RunResult struct {
	SourcePath       string    `json:"source_path"`
	ForecastDate     time.Time `json:"forecast_date"`
	ForecastedDate   time.Time `json:"forecasted_date"`
	AccumulatedValue float64   `json:"accumulated_value"`
	PointsTotal      int       `json:"points_total"`
	PointsInside     int       `json:"points_inside"`
}

// SeriesPoint is one day of the daily/cumulative series.
type SeriesPoint struct {
	ForecastedDate   time.Time `json:"forecasted_date"`
	ForecastDate     time.Time `json:"forecast_date"`
	AccumulatedValue float64   `json:"accumulated_value"`
	CumulativeValue  float64   `json:"cumulative_value"`
}

// TimeSeries is the ordered result of one batch, ascending by forecasted date.
type TimeSeries struct {
	BatchID     string        `json:"batch_id,omitempty"`
	Points      []SeriesPoint `json:"points"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// Total returns the final cumulative value, or 0 for an empty series.
func (s TimeSeries) Total() float64 {
	if len(s.Points) == 0 {
		return 0
	}
	return s.Points[len(s.Points)-1].CumulativeValue
}
