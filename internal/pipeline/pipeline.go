package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/basin-precip-etl/internal/config"
	"github.com/couchcryptid/basin-precip-etl/internal/domain"
	"github.com/couchcryptid/basin-precip-etl/internal/observability"
)

const initialBackoff = 200 * time.Millisecond

// RunSource lists the forecast runs available for a batch.
type RunSource interface {
	Discover(ctx context.Context) ([]domain.ForecastRun, error)
}

// RunProcessor turns one forecast run into its accumulated basin value.
type RunProcessor interface {
	Process(ctx context.Context, run domain.ForecastRun) (domain.RunResult, error)
}

// SeriesLoader writes a finished series to its destination.
type SeriesLoader interface {
	LoadSeries(ctx context.Context, series domain.TimeSeries) error
}

// RunCache stores run results between batches.
type RunCache interface {
	Get(ctx context.Context, key string) (domain.RunResult, bool, error)
	Put(ctx context.Context, key string, result domain.RunResult) error
}

// Options controls batch execution.
type Options struct {
	Workers int
	// FailurePolicy is config.FailureAbort (the default) or config.FailureSkip.
	FailurePolicy string
	// Interval between batches; zero runs a single batch.
	Interval time.Duration
	// Cache is optional. Fingerprint identifies the boundary in cache keys.
	Cache       RunCache
	Fingerprint string
}

// RunError records a run that could not be processed.
type RunError struct {
	Run domain.ForecastRun
	Err error
}

func (e RunError) Error() string { return e.Err.Error() }

func (e RunError) Unwrap() error { return e.Err }

// Report summarizes one batch.
type Report struct {
	BatchID    string
	Series     domain.TimeSeries
	Discovered int
	Processed  int
	CacheHits  int
	Failed     []RunError
}

// Pipeline orchestrates the discover-process-load cycle.
type Pipeline struct {
	source    RunSource
	processor RunProcessor
	loader    SeriesLoader
	logger    *slog.Logger
	metrics   *observability.Metrics
	opts      Options
	ready     atomic.Bool
	latest    atomic.Pointer[domain.TimeSeries]
}

// New creates a Pipeline with the given stages and observability.
func New(s RunSource, p RunProcessor, l SeriesLoader, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.FailurePolicy == "" {
		opts.FailurePolicy = config.FailureAbort
	}
	return &Pipeline{
		source:    s,
		processor: p,
		loader:    l,
		logger:    logger,
		metrics:   metrics,
		opts:      opts,
	}
}

// CheckReadiness returns nil once a batch has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a batch yet")
	}
	return nil
}

// Latest returns the series of the last successful batch.
func (p *Pipeline) Latest() (domain.TimeSeries, bool) {
	s := p.latest.Load()
	if s == nil {
		return domain.TimeSeries{}, false
	}
	return *s, true
}

// Run executes one batch, or with a non-zero interval repeats batches until
// the context is cancelled. Failed batches are retried with exponential
// backoff capped at the interval.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started",
		"workers", p.opts.Workers,
		"failure_policy", p.opts.FailurePolicy,
		"interval", p.opts.Interval,
	)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	if p.opts.Interval <= 0 {
		_, err := p.RunOnce(ctx)
		return err
	}

	backoff := min(initialBackoff, p.opts.Interval)
	for {
		wait := p.opts.Interval
		if _, err := p.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			p.logger.Error("batch failed", "error", err, "retry_in", backoff)
			wait = backoff
			backoff = nextBackoff(backoff, p.opts.Interval)
		} else {
			backoff = min(initialBackoff, p.opts.Interval)
		}

		if !sleepWithContext(ctx, wait) {
			break
		}
	}
	p.logger.Info("pipeline stopping", "reason", ctx.Err())
	return nil
}

// RunOnce discovers, processes and loads one batch.
func (p *Pipeline) RunOnce(ctx context.Context) (Report, error) {
	start := time.Now()
	report := Report{BatchID: uuid.NewString()}
	logger := p.logger.With("batch_id", report.BatchID)

	runs, err := p.source.Discover(ctx)
	if err != nil {
		p.metrics.BatchesCompleted.WithLabelValues("failed").Inc()
		return report, fmt.Errorf("discover runs: %w", err)
	}
	report.Discovered = len(runs)
	p.metrics.RunsDiscovered.Add(float64(len(runs)))

	results, err := p.processAll(ctx, runs, &report)
	if err != nil {
		p.metrics.BatchesCompleted.WithLabelValues("failed").Inc()
		return report, err
	}

	if len(report.Failed) > 0 {
		for _, f := range report.Failed {
			logger.Warn("run failed",
				"path", f.Run.SourcePath,
				"forecasted_date", f.Run.ForecastedDate.Format(time.DateOnly),
				"error", f.Err,
			)
		}
		if p.opts.FailurePolicy == config.FailureAbort {
			p.metrics.BatchesCompleted.WithLabelValues("failed").Inc()
			errs := make([]error, len(report.Failed))
			for i, f := range report.Failed {
				errs[i] = f
			}
			return report, fmt.Errorf("%d of %d runs failed: %w", len(report.Failed), len(runs), errors.Join(errs...))
		}
	}

	series, err := domain.BuildTimeSeries(results)
	if err != nil {
		p.metrics.BatchesCompleted.WithLabelValues("empty").Inc()
		return report, err
	}
	series.BatchID = report.BatchID
	report.Series = series

	if err := p.loader.LoadSeries(ctx, series); err != nil {
		p.metrics.BatchesCompleted.WithLabelValues("failed").Inc()
		return report, fmt.Errorf("load series: %w", err)
	}

	p.latest.Store(&series)
	p.ready.Store(true)
	p.metrics.BatchesCompleted.WithLabelValues("success").Inc()
	p.metrics.SeriesPoints.Set(float64(len(series.Points)))
	p.metrics.SeriesTotal.Set(series.Total())

	elapsed := time.Since(start)
	p.metrics.BatchDuration.Observe(elapsed.Seconds())
	logger.Info("batch complete",
		"runs", len(runs),
		"processed", report.Processed,
		"cache_hits", report.CacheHits,
		"skipped", len(report.Failed),
		"total_mm", series.Total(),
		"processing_time", elapsed,
	)
	return report, nil
}

type runOutcome struct {
	result domain.RunResult
	cached bool
	err    error
}

// processAll fans runs out to the worker pool. Outcomes are written by index
// so the returned results keep discovery order.
func (p *Pipeline) processAll(ctx context.Context, runs []domain.ForecastRun, report *Report) ([]domain.RunResult, error) {
	outcomes := make([]runOutcome, len(runs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, run := range runs {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			res, cached, err := p.processRun(gCtx, run)
			outcomes[i] = runOutcome{result: res, cached: cached, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]domain.RunResult, 0, len(runs))
	for i, o := range outcomes {
		switch {
		case o.err != nil:
			report.Failed = append(report.Failed, RunError{Run: runs[i], Err: o.err})
		case o.cached:
			report.CacheHits++
			results = append(results, o.result)
		default:
			report.Processed++
			results = append(results, o.result)
		}
	}
	return results, nil
}

func (p *Pipeline) processRun(ctx context.Context, run domain.ForecastRun) (domain.RunResult, bool, error) {
	cache := p.opts.Cache
	key := CacheKey(run, p.opts.Fingerprint)

	if cache != nil {
		res, ok, err := cache.Get(ctx, key)
		switch {
		case err != nil:
			p.logger.Warn("cache lookup failed", "path", run.SourcePath, "error", err)
		case ok:
			p.metrics.CacheLookups.WithLabelValues("hit").Inc()
			return res, true, nil
		default:
			p.metrics.CacheLookups.WithLabelValues("miss").Inc()
		}
	}

	start := time.Now()
	res, err := p.processor.Process(ctx, run)
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		p.metrics.RunErrors.Inc()
		return domain.RunResult{}, false, err
	}
	p.metrics.RunsProcessed.Inc()

	if cache != nil {
		if err := cache.Put(ctx, key, res); err != nil {
			p.logger.Warn("cache store failed", "path", run.SourcePath, "error", err)
		}
	}
	return res, false, nil
}

// CacheKey identifies a run result by file identity and boundary.
func CacheKey(run domain.ForecastRun, fingerprint string) string {
	return fmt.Sprintf("%s|%d|%d|%s", run.SourcePath, run.Size, run.ModTime.UnixNano(), fingerprint)
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
