// Package filesystem finds forecast run files on disk and opens grid and
// boundary files, including zstd-compressed grids.
package filesystem

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/couchcryptid/basin-precip-etl/internal/domain"
)

// Discoverer lists forecast runs in a directory by matching file names against
// a pattern whose first two capture groups are the forecast and forecasted dates.
type Discoverer struct {
	dir     string
	pattern *regexp.Regexp
	layout  string
	logger  *slog.Logger
}

// Warning describes a file whose name matched the pattern but could not be
// turned into a run.
type Warning struct {
	Name string
	Err  error
}

func (w Warning) Error() string { return fmt.Sprintf("%s: %v", w.Name, w.Err) }

// NewDiscoverer compiles pattern and checks it has at least two capture groups.
func NewDiscoverer(dir, pattern, layout string, logger *slog.Logger) (*Discoverer, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile run file pattern: %w", err)
	}
	if re.NumSubexp() < 2 {
		return nil, fmt.Errorf("run file pattern %q has %d capture groups, need 2", pattern, re.NumSubexp())
	}
	return &Discoverer{dir: dir, pattern: re, layout: layout, logger: logger}, nil
}

// Discover returns the runs found in the directory in file name order.
// Matching names with unparseable dates are logged and skipped.
func (d *Discoverer) Discover(ctx context.Context) ([]domain.ForecastRun, error) {
	runs, warnings, err := d.Scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		d.logger.Warn("skipping forecast file", "name", w.Name, "error", w.Err)
	}
	return runs, nil
}

// Scan is Discover without logging; skipped files are returned as warnings.
func (d *Discoverer) Scan(ctx context.Context) ([]domain.ForecastRun, []Warning, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, nil, fmt.Errorf("list forecast dir: %w", err)
	}

	var (
		runs     []domain.ForecastRun
		warnings []Warning
	)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := d.pattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}

		// Stat follows symlinks so size and modtime describe the grid data.
		path := filepath.Join(d.dir, e.Name())
		info, err := os.Stat(path)
		if err != nil {
			warnings = append(warnings, Warning{Name: e.Name(), Err: fmt.Errorf("stat: %w", err)})
			continue
		}
		if info.IsDir() {
			continue
		}

		run, err := d.runFromMatch(path, info, m)
		if err != nil {
			warnings = append(warnings, Warning{Name: e.Name(), Err: err})
			continue
		}
		runs = append(runs, run)
	}
	return runs, warnings, nil
}

func (d *Discoverer) runFromMatch(path string, info os.FileInfo, m []string) (domain.ForecastRun, error) {
	forecast, err := time.Parse(d.layout, m[1])
	if err != nil {
		return domain.ForecastRun{}, fmt.Errorf("parse forecast date %q: %w", m[1], err)
	}
	forecasted, err := time.Parse(d.layout, m[2])
	if err != nil {
		return domain.ForecastRun{}, fmt.Errorf("parse forecasted date %q: %w", m[2], err)
	}
	return domain.ForecastRun{
		SourcePath:     path,
		ForecastDate:   forecast,
		ForecastedDate: forecasted,
		Size:           info.Size(),
		ModTime:        info.ModTime(),
	}, nil
}
