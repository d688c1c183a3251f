package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/basin-precip-etl/internal/adapter/render"
	"github.com/couchcryptid/basin-precip-etl/internal/domain"
)

// SeriesSource provides the last successfully built series.
type SeriesSource interface {
	Latest() (domain.TimeSeries, bool)
}

// Pipeline is what the server needs from the running pipeline.
type Pipeline interface {
	sharedobs.ReadinessChecker
	SeriesSource
}

// Server exposes health, readiness, metrics and series HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	precision  int
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and /series routes.
// precision is the /series default when the request does not set one.
func NewServer(addr string, precision int, p Pipeline, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger:    logger,
		precision: precision,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(p))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /series", s.handleSeries(p))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

var contentTypes = map[string]string{
	render.FormatJSON:    "application/json",
	render.FormatCSV:     "text/csv",
	render.FormatText:    "text/plain; charset=utf-8",
	render.FormatParquet: "application/vnd.apache.parquet",
}

// handleSeries serves the latest series. ?format= selects json (default),
// csv, text or parquet; ?precision= sets decimals for json, csv and text.
func (s *Server) handleSeries(src SeriesSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format := r.URL.Query().Get("format")
		if format == "" {
			format = render.FormatJSON
		}
		contentType, ok := contentTypes[format]
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown format " + strconv.Quote(format)})
			return
		}

		precision := s.precision
		if v := r.URL.Query().Get("precision"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 || n > 10 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "precision must be an integer between 0 and 10"})
				return
			}
			precision = n
		}

		series, ok := src.Latest()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no series has been built yet"})
			return
		}

		w.Header().Set("Content-Type", contentType)
		if err := render.NewWriter(w, format, precision).Write(w, series); err != nil {
			s.logger.Error("write series response", "error", err, "format", format)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort error response
}
