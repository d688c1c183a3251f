// Command genmock writes a synthetic watershed boundary and a run of daily
// forecast grid files for demos and tests. Output is deterministic for a
// given seed.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out-dir forecast_files \
//	  -boundary PSATCMG_CAMARGOS.bln \
//	  -days 10 -start 2024-01-01 -zstd
package main

import (
	"flag"
	"fmt"
	"log"
	"time"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	opts := defaultOptions()
	start := flag.String("start", "2024-01-01", "forecast issuance date (YYYY-MM-DD)")
	flag.StringVar(&opts.OutDir, "out-dir", opts.OutDir, "directory for grid files")
	flag.StringVar(&opts.BoundaryPath, "boundary", opts.BoundaryPath, "output path for the boundary file")
	flag.IntVar(&opts.Days, "days", opts.Days, "number of forecasted days")
	flag.Float64Var(&opts.CenterLat, "lat", opts.CenterLat, "basin centre latitude")
	flag.Float64Var(&opts.CenterLong, "long", opts.CenterLong, "basin centre longitude")
	flag.Float64Var(&opts.Radius, "radius", opts.Radius, "basin radius in degrees")
	flag.IntVar(&opts.Vertices, "vertices", opts.Vertices, "boundary vertex count")
	flag.Float64Var(&opts.Step, "step", opts.Step, "grid spacing in degrees")
	flag.Uint64Var(&opts.Seed, "seed", opts.Seed, "random seed")
	flag.BoolVar(&opts.Compress, "zstd", opts.Compress, "write zstd-compressed grids (.dat.zst)")
	flag.Parse()

	d, err := time.Parse(time.DateOnly, *start)
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}
	opts.Start = d

	files, err := generate(opts)
	if err != nil {
		return err
	}
	log.Printf("boundary: %s (%d vertices)", opts.BoundaryPath, opts.Vertices)
	for _, f := range files {
		log.Printf("%s: %d points", f.path, f.points)
	}
	log.Printf("total: %d grid files", len(files))
	return nil
}
