package main

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/couchcryptid/basin-precip-etl/internal/adapter/filesystem"
	"github.com/couchcryptid/basin-precip-etl/internal/adapter/render"
	"github.com/couchcryptid/basin-precip-etl/internal/adapter/store"
	"github.com/couchcryptid/basin-precip-etl/internal/config"
	"github.com/couchcryptid/basin-precip-etl/internal/observability"
	"github.com/couchcryptid/basin-precip-etl/internal/pipeline"
)

func newSeriesCmd(v *viper.Viper, s *settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "series",
		Short: "Build the daily and cumulative basin precipitation series.",
		Long: `Discover every forecast file, clip each grid to the boundary, sum the
values inside and print the series ordered by forecasted date.

Examples:
  # Table on stdout
  basinctl series

  # CSV with two decimals, skipping unreadable grids
  basinctl series --output csv --precision 2 --failure-policy skip

  # Cache run results in SQLite and print the last stored series
  basinctl series --store-backend sqlite --store-dsn basin.db
  basinctl series --store-backend sqlite --store-dsn basin.db --stored`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeries(cmd, s, v.GetBool("stored"))
		},
	}
	cmd.Flags().Bool("stored", false, "Print the last series recorded in the store instead of processing files")
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		panic(fmt.Sprintf("bind series flags: %v", err))
	}
	return cmd
}

func runSeries(cmd *cobra.Command, s *settings, stored bool) error {
	ctx := cmd.Context()
	logger := s.logger()

	var renderer *render.Renderer
	if s.OutputFile != "" {
		renderer = render.New(s.Output, s.Precision, s.OutputFile)
	} else {
		renderer = render.NewWriter(cmd.OutOrStdout(), s.Output, s.Precision)
	}

	var db *store.SQL
	if s.StoreBackend != config.StoreNone {
		var err error
		if db, err = store.OpenSQL(ctx, s.StoreBackend, s.StoreDSN); err != nil {
			return err
		}
		defer db.Close()
	}

	if stored {
		if db == nil {
			return errors.New("--stored needs --store-backend")
		}
		series, ok, err := db.LatestSeries(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("store holds no series yet")
		}
		return renderer.LoadSeries(ctx, series)
	}

	boundary, err := filesystem.LoadBoundary(s.Boundary)
	if err != nil {
		return err
	}
	discoverer, err := filesystem.NewDiscoverer(s.ForecastDir, s.Pattern, s.DateLayout, logger)
	if err != nil {
		return err
	}

	metrics := observability.NewMetricsWithRegistry(prometheus.NewRegistry())
	sinks := []pipeline.Sink{{Name: "render", SeriesLoader: renderer}}
	opts := pipeline.Options{
		Workers:       s.Workers,
		FailurePolicy: s.FailurePolicy,
		Fingerprint:   boundary.Fingerprint(),
	}
	if db != nil {
		opts.Cache = db
		sinks = append(sinks, pipeline.Sink{Name: "store", SeriesLoader: db})
	}

	p := pipeline.New(
		discoverer,
		pipeline.NewProcessor(boundary, filesystem.ReadGrid, logger),
		pipeline.NewMultiLoader(metrics, sinks...),
		logger,
		metrics,
		opts,
	)

	report, err := p.RunOnce(ctx)
	if err != nil {
		return err
	}

	for _, f := range report.Failed {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %v\n", f.Run.SourcePath, f.Err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "batch %s: %d runs, %d processed, %d cached, %d skipped\n",
		report.BatchID, report.Discovered, report.Processed, report.CacheHits, len(report.Failed))
	return nil
}
