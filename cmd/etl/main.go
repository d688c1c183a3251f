package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/basin-precip-etl/internal/adapter/filesystem"
	httpadapter "github.com/couchcryptid/basin-precip-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/basin-precip-etl/internal/adapter/kafka"
	"github.com/couchcryptid/basin-precip-etl/internal/adapter/render"
	"github.com/couchcryptid/basin-precip-etl/internal/adapter/store"
	"github.com/couchcryptid/basin-precip-etl/internal/config"
	"github.com/couchcryptid/basin-precip-etl/internal/observability"
	"github.com/couchcryptid/basin-precip-etl/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	boundary, err := filesystem.LoadBoundary(cfg.BoundaryFile)
	if err != nil {
		logger.Error("failed to load boundary", "path", cfg.BoundaryFile, "error", err)
		return 1
	}
	logger.Info("boundary loaded",
		"path", cfg.BoundaryFile,
		"vertices", boundary.Len(),
		"fingerprint", boundary.Fingerprint(),
	)

	discoverer, err := filesystem.NewDiscoverer(cfg.ForecastDir, cfg.RunFilePattern, cfg.RunDateLayout, logger)
	if err != nil {
		logger.Error("invalid run file pattern", "error", err)
		return 1
	}

	sinks := []pipeline.Sink{
		{Name: "render", SeriesLoader: render.New(cfg.OutputFormat, cfg.Precision, cfg.OutputFile)},
	}

	var cache pipeline.RunCache
	switch cfg.StoreBackend {
	case config.StoreMemory:
		cache = store.NewMemory(cfg.StoreCacheSize)
		logger.Info("run cache enabled", "backend", cfg.StoreBackend, "size", cfg.StoreCacheSize)
	case config.StoreSQLite, config.StorePostgres:
		db, err := store.OpenSQL(ctx, cfg.StoreBackend, cfg.StoreDSN)
		if err != nil {
			logger.Error("failed to open store", "backend", cfg.StoreBackend, "error", err)
			return 1
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("store close error", "error", err)
			}
		}()
		cache = db
		sinks = append(sinks, pipeline.Sink{Name: "store", SeriesLoader: db})
		logger.Info("run cache enabled", "backend", cfg.StoreBackend)
	}

	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		sinks = append(sinks, pipeline.Sink{Name: "kafka", SeriesLoader: writer})
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaSinkTopic, "brokers", cfg.KafkaBrokers)
	}

	p := pipeline.New(
		discoverer,
		pipeline.NewProcessor(boundary, filesystem.ReadGrid, logger),
		pipeline.NewMultiLoader(metrics, sinks...),
		logger,
		metrics,
		pipeline.Options{
			Workers:       cfg.Workers,
			FailurePolicy: cfg.FailurePolicy,
			Interval:      cfg.RunInterval,
			Cache:         cache,
			Fingerprint:   boundary.Fingerprint(),
		},
	)

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, cfg.Precision, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	code := 0
	if err := p.Run(ctx); err != nil {
		logger.Error("pipeline error", "error", err)
		code = 1
	}

	logger.Info("shutting down")
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}
	logger.Info("shutdown complete")
	return code
}
