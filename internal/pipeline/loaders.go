package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchcryptid/basin-precip-etl/internal/domain"
	"github.com/couchcryptid/basin-precip-etl/internal/observability"
)

// Sink is a named SeriesLoader.
type Sink struct {
	Name string
	SeriesLoader
}

// MultiLoader hands a series to every sink in order. All sinks are
// attempted; their errors are joined.
type MultiLoader struct {
	sinks   []Sink
	metrics *observability.Metrics
}

// NewMultiLoader creates a loader fanning out to sinks.
func NewMultiLoader(metrics *observability.Metrics, sinks ...Sink) *MultiLoader {
	return &MultiLoader{sinks: sinks, metrics: metrics}
}

func (m *MultiLoader) LoadSeries(ctx context.Context, series domain.TimeSeries) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.LoadSeries(ctx, series); err != nil {
			m.metrics.LoadErrors.WithLabelValues(s.Name).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}
