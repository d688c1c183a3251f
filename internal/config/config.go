package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Failure policies for runs whose grid file cannot be parsed.
const (
	FailureAbort = "abort"
	FailureSkip  = "skip"
)

// Store backends.
const (
	StoreNone     = "none"
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// DefaultRunFilePattern matches ETA40 forecast files; group 1 is the forecast
// date, group 2 the forecasted date.
const DefaultRunFilePattern = `ETA40_p(\d{6})a(\d{6})\.dat(?:\.zst)?$`

// Config holds all service settings, populated from environment variables.
type Config struct {
	BoundaryFile   string `validate:"required"`
	ForecastDir    string `validate:"required"`
	RunFilePattern string `validate:"required"`
	RunDateLayout  string `validate:"required"`

	Workers       int    `validate:"min=1,max=64"`
	FailurePolicy string `validate:"oneof=abort skip"`
	RunInterval   time.Duration

	OutputFormat string `validate:"oneof=text csv json parquet"`
	OutputFile   string
	Precision    int `validate:"min=0,max=10"`

	StoreBackend   string `validate:"oneof=none memory sqlite postgres"`
	StoreDSN       string
	StoreCacheSize int `validate:"min=1"`

	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string

	HTTPAddr        string
	LogLevel        string `validate:"oneof=debug info warn warning error"`
	LogFormat       string `validate:"oneof=json text"`
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	runInterval, err := parseDuration("RUN_INTERVAL", "0s")
	if err != nil {
		return nil, err
	}
	if runInterval < 0 {
		return nil, errors.New("RUN_INTERVAL must not be negative")
	}

	workers, err := parseInt("WORKERS", 4)
	if err != nil {
		return nil, err
	}
	precision, err := parseInt("PRECISION", 1)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseInt("STORE_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		BoundaryFile:   sharedcfg.EnvOrDefault("BOUNDARY_FILE", "PSATCMG_CAMARGOS.bln"),
		ForecastDir:    sharedcfg.EnvOrDefault("FORECAST_DIR", "forecast_files/"),
		RunFilePattern: sharedcfg.EnvOrDefault("RUN_FILE_PATTERN", DefaultRunFilePattern),
		RunDateLayout:  sharedcfg.EnvOrDefault("RUN_DATE_LAYOUT", "020106"),
		Workers:        workers,
		FailurePolicy:  strings.ToLower(sharedcfg.EnvOrDefault("FAILURE_POLICY", FailureAbort)),
		RunInterval:    runInterval,
		OutputFormat:   strings.ToLower(sharedcfg.EnvOrDefault("OUTPUT_FORMAT", "text")),
		OutputFile:     os.Getenv("OUTPUT_FILE"),
		Precision:      precision,
		StoreBackend:   strings.ToLower(sharedcfg.EnvOrDefault("STORE_BACKEND", StoreNone)),
		StoreDSN:       os.Getenv("STORE_DSN"),
		StoreCacheSize: cacheSize,
		KafkaEnabled:   os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:   sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "basin-precipitation-series"),
		HTTPAddr:       os.Getenv("HTTP_ADDR"),
		LogLevel:       strings.ToLower(sharedcfg.EnvOrDefault("LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(sharedcfg.EnvOrDefault("LOG_FORMAT", "json")),

		ShutdownTimeout: shutdownTimeout,
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) check() error {
	re, err := regexp.Compile(c.RunFilePattern)
	if err != nil {
		return fmt.Errorf("invalid RUN_FILE_PATTERN: %w", err)
	}
	if re.NumSubexp() < 2 {
		return errors.New("RUN_FILE_PATTERN needs two capture groups (forecast date, forecasted date)")
	}
	if (c.StoreBackend == StoreSQLite || c.StoreBackend == StorePostgres) && c.StoreDSN == "" {
		return fmt.Errorf("STORE_DSN is required for STORE_BACKEND=%s", c.StoreBackend)
	}
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required")
		}
		if strings.TrimSpace(c.KafkaSinkTopic) == "" {
			return errors.New("KAFKA_SINK_TOPIC is required")
		}
	}
	return nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
