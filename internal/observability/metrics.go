package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the basin pipeline.
type Metrics struct {
	RunsDiscovered  prometheus.Counter
	RunsProcessed   prometheus.Counter
	RunErrors       prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Batch metrics.
	BatchesCompleted *prometheus.CounterVec // labels: outcome={success,failed,empty}
	BatchDuration    prometheus.Histogram
	RunDuration      prometheus.Histogram
	SeriesPoints     prometheus.Gauge
	SeriesTotal      prometheus.Gauge // final cumulative precipitation, mm

	// Cache and sink metrics.
	CacheLookups *prometheus.CounterVec // labels: result={hit,miss}
	LoadErrors   *prometheus.CounterVec // labels: sink
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry registers the pipeline metrics with reg.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(
		m.RunsDiscovered,
		m.RunsProcessed,
		m.RunErrors,
		m.PipelineRunning,
		m.BatchesCompleted,
		m.BatchDuration,
		m.RunDuration,
		m.SeriesPoints,
		m.SeriesTotal,
		m.CacheLookups,
		m.LoadErrors,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "basin_etl",
			Name:      "runs_discovered_total",
			Help:      "Total forecast run files matched in the forecast directory.",
		}),
		RunsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "basin_etl",
			Name:      "runs_processed_total",
			Help:      "Total forecast runs parsed, clipped and summed.",
		}),
		RunErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "basin_etl",
			Name:      "run_errors_total",
			Help:      "Total forecast runs that failed to parse.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "basin_etl",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "basin_etl",
			Name:      "batches_total",
			Help:      "Completed batches by outcome.",
		}, []string{"outcome"}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "basin_etl",
			Name:      "batch_duration_seconds",
			Help:      "Duration of a complete discover-clip-load cycle.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "basin_etl",
			Name:      "run_duration_seconds",
			Help:      "Duration of parsing and clipping a single forecast file.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		SeriesPoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "basin_etl",
			Name:      "series_points",
			Help:      "Number of points in the last built series.",
		}),
		SeriesTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "basin_etl",
			Name:      "series_cumulative_mm",
			Help:      "Final cumulative precipitation of the last built series.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "basin_etl",
			Name:      "cache_lookups_total",
			Help:      "Run result cache lookups by result.",
		}, []string{"result"}),
		LoadErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "basin_etl",
			Name:      "load_errors_total",
			Help:      "Series load failures by sink.",
		}, []string{"sink"}),
	}
}
