// Command basinctl runs basin precipitation batches from the command line,
// clips single grid files and validates forecast inputs.
//
// Settings come from flags, BASIN_* environment variables and an optional
// .basinctl.yaml in the working or home directory, in that order of precedence.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/couchcryptid/basin-precip-etl/internal/config"
	"github.com/couchcryptid/basin-precip-etl/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		red := color.New(color.FgRed).SprintFunc()
		fmt.Fprintln(os.Stderr, red("Error:"), err)
		os.Exit(1)
	}
}

// settings is the resolved configuration shared by all subcommands.
type settings struct {
	Boundary      string `mapstructure:"boundary" validate:"required"`
	ForecastDir   string `mapstructure:"forecast-dir" validate:"required"`
	Pattern       string `mapstructure:"pattern" validate:"required"`
	DateLayout    string `mapstructure:"date-layout" validate:"required"`
	Workers       int    `mapstructure:"workers" validate:"min=1,max=64"`
	FailurePolicy string `mapstructure:"failure-policy" validate:"oneof=abort skip"`
	Output        string `mapstructure:"output" validate:"oneof=text csv json parquet"`
	OutputFile    string `mapstructure:"output-file"`
	Precision     int    `mapstructure:"precision" validate:"min=0,max=10"`
	StoreBackend  string `mapstructure:"store-backend" validate:"oneof=none sqlite postgres"`
	StoreDSN      string `mapstructure:"store-dsn"`
	LogLevel      string `mapstructure:"log-level" validate:"oneof=debug info warn error"`
	Color         bool   `mapstructure:"color"`
}

func (s *settings) logger() *slog.Logger {
	return observability.NewLogger(&config.Config{LogLevel: s.LogLevel, LogFormat: "text"})
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	s := &settings{}

	root := &cobra.Command{
		Use:           "basinctl",
		Short:         "Accumulate forecast precipitation over a watershed boundary.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadSettings(v, s)
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "Path to config file (default .basinctl.yaml)")
	pf.String("boundary", "PSATCMG_CAMARGOS.bln", "Boundary (.bln) file")
	pf.String("forecast-dir", "forecast_files", "Directory holding forecast grid files")
	pf.String("pattern", config.DefaultRunFilePattern, "File name pattern; groups 1 and 2 are the forecast and forecasted dates")
	pf.String("date-layout", "020106", "Go time layout of the captured dates")
	pf.Int("workers", 4, "Number of files processed concurrently")
	pf.String("failure-policy", config.FailureAbort, "What to do with unreadable grid files: abort or skip")
	pf.String("output", "text", "Output format: text or csv or json or parquet")
	pf.String("output-file", "", "Optional path to write output to")
	pf.Int("precision", 1, "Decimal precision for numeric columns")
	pf.String("store-backend", "none", "Run cache and series history: none or sqlite or postgres")
	pf.String("store-dsn", "", "Store connection string or SQLite path")
	pf.String("log-level", "warn", "Log level: debug or info or warn or error")
	pf.Bool("color", true, "Colour PASS/FAIL labels")
	if err := v.BindPFlags(pf); err != nil {
		panic(fmt.Sprintf("bind root flags: %v", err))
	}

	root.AddCommand(
		newSeriesCmd(v, s),
		newClipCmd(s),
		newValidateCmd(s),
	)
	return root
}

func loadSettings(v *viper.Viper, s *settings) error {
	if configFile := v.GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".basinctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}
	v.SetEnvPrefix("BASIN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config file: %w", err)
		}
	}
	if err := v.Unmarshal(s); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validator.New().Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if s.StoreBackend != config.StoreNone && s.StoreDSN == "" {
		return fmt.Errorf("--store-dsn is required for --store-backend=%s", s.StoreBackend)
	}

	color.NoColor = !s.Color
	return nil
}
