package main

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/couchcryptid/basin-precip-etl/internal/adapter/filesystem"
)

type options struct {
	OutDir       string
	BoundaryPath string
	Start        time.Time
	Days         int
	CenterLat    float64
	CenterLong   float64
	Radius       float64
	Vertices     int
	Step         float64
	Seed         uint64
	Compress     bool
}

// Defaults place the basin around the Camargos reservoir.
func defaultOptions() options {
	return options{
		OutDir:       "forecast_files",
		BoundaryPath: "PSATCMG_CAMARGOS.bln",
		Start:        time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Days:         10,
		CenterLat:    -21.9,
		CenterLong:   -44.4,
		Radius:       0.5,
		Vertices:     64,
		Step:         0.1,
		Seed:         42,
	}
}

type generatedFile struct {
	path   string
	points int
}

func generate(opts options) ([]generatedFile, error) {
	if opts.Days < 1 || opts.Vertices < 3 || opts.Step <= 0 || opts.Radius <= 0 {
		return nil, fmt.Errorf("days, vertices (>=3), step and radius must be positive")
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	if err := writeBoundary(opts, rng); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	files := make([]generatedFile, 0, opts.Days)
	for i := range opts.Days {
		forecasted := opts.Start.AddDate(0, 0, i)
		name := fmt.Sprintf("ETA40_p%sa%s.dat", opts.Start.Format("020106"), forecasted.Format("020106"))
		if opts.Compress {
			name += filesystem.CompressedSuffix
		}
		path := filepath.Join(opts.OutDir, name)

		n, err := writeGrid(path, opts, rng)
		if err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
		files = append(files, generatedFile{path: path, points: n})
	}
	return files, nil
}

// writeBoundary writes an irregular star-shaped outline in .bln layout.
func writeBoundary(opts options, rng *rand.Rand) error {
	f, err := os.Create(opts.BoundaryPath)
	if err != nil {
		return fmt.Errorf("create boundary: %w", err)
	}
	w := bufio.NewWriter(f)

	fmt.Fprintf(w, "%d,1\n", opts.Vertices)
	for i := range opts.Vertices {
		theta := 2 * math.Pi * float64(i) / float64(opts.Vertices)
		r := opts.Radius * (0.8 + 0.2*math.Sin(3*theta) + 0.1*rng.Float64())
		fmt.Fprintf(w, "%.6f,%.6f\n", opts.CenterLat+r*math.Sin(theta), opts.CenterLong+r*math.Cos(theta))
	}

	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("write boundary: %w", err)
	}
	return f.Close()
}

// writeGrid covers the basin bounding box plus a margin with a drifting rain
// cell: values fall off with distance from a random centre.
func writeGrid(path string, opts options, rng *rand.Rand) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}

	var out io.WriteCloser = nopCloser{f}
	if opts.Compress {
		enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			_ = f.Close()
			return 0, err
		}
		out = enc
	}
	w := bufio.NewWriter(out)

	extent := opts.Radius * 1.5
	cellLat := opts.CenterLat + (rng.Float64()-0.5)*opts.Radius
	cellLong := opts.CenterLong + (rng.Float64()-0.5)*opts.Radius
	intensity := rng.ExpFloat64() * 8

	steps := int(math.Round(2 * extent / opts.Step))
	n := 0
	for i := 0; i <= steps; i++ {
		lat := opts.CenterLat - extent + float64(i)*opts.Step
		for j := 0; j <= steps; j++ {
			long := opts.CenterLong - extent + float64(j)*opts.Step
			d := math.Hypot(lat-cellLat, long-cellLong) / opts.Radius
			value := intensity * math.Exp(-d*d)
			fmt.Fprintf(w, "%.4f %.4f %.2f\n", lat, long, value)
			n++
		}
	}

	if err := w.Flush(); err != nil {
		_ = out.Close()
		_ = f.Close()
		return 0, err
	}
	if err := out.Close(); err != nil {
		_ = f.Close()
		return 0, err
	}
	return n, f.Close()
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
