// Package store persists run results and finished series. Memory is an
// in-process LRU cache; SQL backs the same cache with SQLite or PostgreSQL
// and also keeps every loaded series.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver

	"github.com/couchcryptid/basin-precip-etl/internal/domain"
)

const (
	runResultsTable   = "basin_run_results"
	seriesPointsTable = "basin_series_points"
)

// SQL stores run results and series in SQLite or PostgreSQL.
// It implements pipeline.RunCache and pipeline.SeriesLoader.
type SQL struct {
	db *sql.DB
}

// OpenSQL connects to backend ("sqlite" or "postgres") and creates the tables.
func OpenSQL(ctx context.Context, backend, dsn string) (*SQL, error) {
	var driverName string
	switch backend {
	case "sqlite":
		driverName = "sqlite"
	case "postgres":
		driverName = "pgx"
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", backend)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", backend, err)
	}
	if driverName == "sqlite" {
		// Limit SQLite to a single open connection to avoid "database is locked" errors.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect %s store: %w", backend, err)
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQL{db: db}, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	tables := []struct {
		name  string
		query string
	}{
		{runResultsTable, `CREATE TABLE IF NOT EXISTS ` + runResultsTable + ` (
			cache_key        TEXT PRIMARY KEY,
			source_path      TEXT NOT NULL,
			forecast_date    TEXT NOT NULL,
			forecasted_date  TEXT NOT NULL,
			accumulated_mm   DOUBLE PRECISION NOT NULL,
			points_total     INTEGER NOT NULL,
			points_inside    INTEGER NOT NULL,
			updated_at       TEXT NOT NULL
		)`},
		{seriesPointsTable, `CREATE TABLE IF NOT EXISTS ` + seriesPointsTable + ` (
			batch_id         TEXT NOT NULL,
			seq              INTEGER NOT NULL,
			forecasted_date  TEXT NOT NULL,
			forecast_date    TEXT NOT NULL,
			accumulated_mm   DOUBLE PRECISION NOT NULL,
			cumulative_mm    DOUBLE PRECISION NOT NULL,
			generated_at     TEXT NOT NULL,
			PRIMARY KEY (batch_id, seq)
		)`},
	}

	for _, t := range tables {
		if _, err := db.ExecContext(ctx, t.query); err != nil {
			return fmt.Errorf("create table %s: %w", t.name, err)
		}
	}
	return nil
}

func (s *SQL) Close() error {
	return s.db.Close()
}

func (s *SQL) Get(ctx context.Context, key string) (domain.RunResult, bool, error) {
	var (
		r                    domain.RunResult
		forecast, forecasted string
	)
	err := s.db.QueryRowContext(ctx, `SELECT source_path, forecast_date, forecasted_date,
		accumulated_mm, points_total, points_inside
		FROM `+runResultsTable+` WHERE cache_key = $1`, key).
		Scan(&r.SourcePath, &forecast, &forecasted, &r.AccumulatedValue, &r.PointsTotal, &r.PointsInside)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RunResult{}, false, nil
	}
	if err != nil {
		return domain.RunResult{}, false, fmt.Errorf("query run result: %w", err)
	}

	if r.ForecastDate, err = parseTime(forecast); err != nil {
		return domain.RunResult{}, false, err
	}
	if r.ForecastedDate, err = parseTime(forecasted); err != nil {
		return domain.RunResult{}, false, err
	}
	return r, true, nil
}

func (s *SQL) Put(ctx context.Context, key string, r domain.RunResult) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO `+runResultsTable+` (
			cache_key, source_path, forecast_date, forecasted_date,
			accumulated_mm, points_total, points_inside, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (cache_key) DO UPDATE SET
			source_path = excluded.source_path,
			forecast_date = excluded.forecast_date,
			forecasted_date = excluded.forecasted_date,
			accumulated_mm = excluded.accumulated_mm,
			points_total = excluded.points_total,
			points_inside = excluded.points_inside,
			updated_at = excluded.updated_at`,
		key, r.SourcePath, formatTime(r.ForecastDate), formatTime(r.ForecastedDate),
		r.AccumulatedValue, r.PointsTotal, r.PointsInside, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("store run result: %w", err)
	}
	return nil
}

// LoadSeries records every point of the series under its batch ID.
func (s *SQL) LoadSeries(ctx context.Context, series domain.TimeSeries) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin series insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	generated := formatTime(series.GeneratedAt)
	for i, p := range series.Points {
		if _, err := tx.ExecContext(ctx, `INSERT INTO `+seriesPointsTable+` (
				batch_id, seq, forecasted_date, forecast_date,
				accumulated_mm, cumulative_mm, generated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			series.BatchID, i, formatTime(p.ForecastedDate), formatTime(p.ForecastDate),
			p.AccumulatedValue, p.CumulativeValue, generated); err != nil {
			return fmt.Errorf("insert series point: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit series: %w", err)
	}
	return nil
}

// LatestSeries returns the most recently generated stored series.
func (s *SQL) LatestSeries(ctx context.Context) (domain.TimeSeries, bool, error) {
	var batchID, generated string
	err := s.db.QueryRowContext(ctx, `SELECT batch_id, generated_at FROM `+seriesPointsTable+`
		ORDER BY generated_at DESC, batch_id DESC LIMIT 1`).Scan(&batchID, &generated)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TimeSeries{}, false, nil
	}
	if err != nil {
		return domain.TimeSeries{}, false, fmt.Errorf("query latest series: %w", err)
	}

	series := domain.TimeSeries{BatchID: batchID}
	if series.GeneratedAt, err = parseTime(generated); err != nil {
		return domain.TimeSeries{}, false, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT forecasted_date, forecast_date, accumulated_mm, cumulative_mm
		FROM `+seriesPointsTable+` WHERE batch_id = $1 ORDER BY seq`, batchID)
	if err != nil {
		return domain.TimeSeries{}, false, fmt.Errorf("query series points: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p                    domain.SeriesPoint
			forecasted, forecast string
		)
		if err := rows.Scan(&forecasted, &forecast, &p.AccumulatedValue, &p.CumulativeValue); err != nil {
			return domain.TimeSeries{}, false, fmt.Errorf("scan series point: %w", err)
		}
		if p.ForecastedDate, err = parseTime(forecasted); err != nil {
			return domain.TimeSeries{}, false, err
		}
		if p.ForecastDate, err = parseTime(forecast); err != nil {
			return domain.TimeSeries{}, false, err
		}
		series.Points = append(series.Points, p)
	}
	if err := rows.Err(); err != nil {
		return domain.TimeSeries{}, false, fmt.Errorf("read series points: %w", err)
	}
	return series, true, nil
}

// Times are stored as fixed-width UTC text so ordering works on both backends.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}
