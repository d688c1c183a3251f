package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "PSATCMG_CAMARGOS.bln", cfg.BoundaryFile)
	assert.Equal(t, "forecast_files/", cfg.ForecastDir)
	assert.Equal(t, DefaultRunFilePattern, cfg.RunFilePattern)
	assert.Equal(t, "020106", cfg.RunDateLayout)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, FailureAbort, cfg.FailurePolicy)
	assert.Zero(t, cfg.RunInterval)
	assert.Equal(t, "text", cfg.OutputFormat)
	assert.Empty(t, cfg.OutputFile)
	assert.Equal(t, 1, cfg.Precision)
	assert.Equal(t, StoreNone, cfg.StoreBackend)
	assert.Equal(t, 1000, cfg.StoreCacheSize)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "basin-precipitation-series", cfg.KafkaSinkTopic)
	assert.Empty(t, cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("BOUNDARY_FILE", "/data/basin.bln")
	t.Setenv("FORECAST_DIR", "/data/runs")
	t.Setenv("RUN_FILE_PATTERN", `run_(\d{8})_(\d{8})\.txt$`)
	t.Setenv("RUN_DATE_LAYOUT", "20060102")
	t.Setenv("WORKERS", "8")
	t.Setenv("FAILURE_POLICY", "SKIP")
	t.Setenv("RUN_INTERVAL", "15m")
	t.Setenv("OUTPUT_FORMAT", "csv")
	t.Setenv("OUTPUT_FILE", "/tmp/series.csv")
	t.Setenv("PRECISION", "3")
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("STORE_DSN", "file:basin.db")
	t.Setenv("STORE_CACHE_SIZE", "50")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/basin.bln", cfg.BoundaryFile)
	assert.Equal(t, "/data/runs", cfg.ForecastDir)
	assert.Equal(t, "20060102", cfg.RunDateLayout)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, FailureSkip, cfg.FailurePolicy)
	assert.Equal(t, 15*time.Minute, cfg.RunInterval)
	assert.Equal(t, "csv", cfg.OutputFormat)
	assert.Equal(t, "/tmp/series.csv", cfg.OutputFile)
	assert.Equal(t, 3, cfg.Precision)
	assert.Equal(t, StoreSQLite, cfg.StoreBackend)
	assert.Equal(t, "file:basin.db", cfg.StoreDSN)
	assert.Equal(t, 50, cfg.StoreCacheSize)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantMsg string
	}{
		{"workers zero", map[string]string{"WORKERS": "0"}, "Workers"},
		{"workers too many", map[string]string{"WORKERS": "65"}, "Workers"},
		{"workers not a number", map[string]string{"WORKERS": "four"}, "WORKERS"},
		{"unknown failure policy", map[string]string{"FAILURE_POLICY": "retry"}, "FailurePolicy"},
		{"unknown output format", map[string]string{"OUTPUT_FORMAT": "xml"}, "OutputFormat"},
		{"unknown store backend", map[string]string{"STORE_BACKEND": "redis"}, "StoreBackend"},
		{"negative run interval", map[string]string{"RUN_INTERVAL": "-1m"}, "RUN_INTERVAL"},
		{"bad run interval", map[string]string{"RUN_INTERVAL": "soon"}, "RUN_INTERVAL"},
		{"bad pattern", map[string]string{"RUN_FILE_PATTERN": "ETA40_p(["}, "RUN_FILE_PATTERN"},
		{"pattern with one group", map[string]string{"RUN_FILE_PATTERN": `ETA40_p(\d{6})\.dat`}, "two capture groups"},
		{"sqlite without dsn", map[string]string{"STORE_BACKEND": "sqlite"}, "STORE_DSN"},
		{"postgres without dsn", map[string]string{"STORE_BACKEND": "postgres"}, "STORE_DSN"},
		{"kafka without topic", map[string]string{"KAFKA_ENABLED": "true", "KAFKA_SINK_TOPIC": " "}, "KAFKA_SINK_TOPIC"},
		{"unknown log format", map[string]string{"LOG_FORMAT": "xml"}, "LogFormat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoad_MemoryStoreNeedsNoDSN(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.StoreBackend)
}
