package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/basin-precip-etl/internal/domain"
)

// GridReader loads the samples of a grid file.
type GridReader func(path string) ([]domain.SamplePoint, error)

// BasinProcessor implements RunProcessor by clipping each grid to a fixed
// boundary and summing what falls inside.
type BasinProcessor struct {
	boundary domain.BoundaryPolygon
	read     GridReader
	logger   *slog.Logger
}

// NewProcessor creates a BasinProcessor for one boundary.
func NewProcessor(boundary domain.BoundaryPolygon, read GridReader, logger *slog.Logger) *BasinProcessor {
	return &BasinProcessor{
		boundary: boundary,
		read:     read,
		logger:   logger,
	}
}

func (b *BasinProcessor) Process(ctx context.Context, run domain.ForecastRun) (domain.RunResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.RunResult{}, err
	}

	samples, err := b.read(run.SourcePath)
	if err != nil {
		return domain.RunResult{}, err
	}

	res := domain.ClipAndAggregate(b.boundary, run, samples)
	b.logger.Debug("run processed",
		"path", run.SourcePath,
		"points_total", res.PointsTotal,
		"points_inside", res.PointsInside,
		"accumulated_mm", res.AccumulatedValue,
	)
	return res, nil
}
