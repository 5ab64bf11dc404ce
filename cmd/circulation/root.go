package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/AntonStoeckl/library-circulation-go/circulation"
	"github.com/AntonStoeckl/library-circulation-go/oteladapters"
	"github.com/AntonStoeckl/library-circulation-go/shell"
	"github.com/AntonStoeckl/library-circulation-go/shell/config"
	"github.com/AntonStoeckl/library-circulation-go/store"
	"github.com/AntonStoeckl/library-circulation-go/store/postgresengine"
)

// circulationStore is a store that can also create its own schema.
type circulationStore interface {
	store.Store
	CreateSchema(ctx context.Context) error
}

type storeOpener func(
	ctx context.Context,
	settings config.Settings,
	logger *slog.Logger,
	metrics store.MetricsCollector,
) (circulationStore, func(), error)

func openPostgresStore(
	ctx context.Context,
	settings config.Settings,
	logger *slog.Logger,
	metrics store.MetricsCollector,
) (circulationStore, func(), error) {
	s, closeFn, err := config.OpenStore(ctx, settings, postgresengine.WithLogger(logger), postgresengine.WithMetrics(metrics))
	if err != nil {
		return nil, nil, err
	}

	return s, closeFn, nil
}

type globalFlags struct {
	configFile string
	jsonOutput bool
	logLevel   string
	logFormat  string
}

// app is the state shared by all commands of one invocation.
type app struct {
	flags       globalFlags
	openStore   storeOpener
	clock       circulation.Clock
	metrics     store.MetricsCollector
	settings    config.Settings
	logger      *slog.Logger
	store       circulationStore
	closeStore  func()
	coordinator *circulation.Coordinator
}

// newRootCmd reports metrics to the global OpenTelemetry meter provider, a no-op unless one is installed.
func newRootCmd(openStore storeOpener) *cobra.Command {
	metrics := oteladapters.NewMetricsCollector(otel.GetMeterProvider().Meter("circulation"))

	return newRootCmdWithClock(openStore, circulation.SystemClock{}, metrics)
}

func newRootCmdWithClock(openStore storeOpener, clock circulation.Clock, metrics store.MetricsCollector) *cobra.Command {
	a := &app{openStore: openStore, clock: clock, metrics: metrics}

	rootCmd := &cobra.Command{
		Use:   "circulation",
		Short: "Library loan circulation",
		Long: `circulation manages book loans of a public library: the catalogue,
members and staff users, lending, returns, renewals and overdue penalties.

Settings are read from circulation.yaml in the working directory (or --config)
and CIRCULATION_* environment variables.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.init,
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error { return a.close() },
	}

	rootCmd.PersistentFlags().StringVar(&a.flags.configFile, "config", "", "config file (default: ./circulation.yaml)")
	rootCmd.PersistentFlags().BoolVar(&a.flags.jsonOutput, "json", false, "print results as JSON")
	rootCmd.PersistentFlags().StringVar(&a.flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&a.flags.logFormat, "log-format", "", "log format (text, json)")

	rootCmd.AddCommand(newSchemaCmd(a))
	rootCmd.AddCommand(newBookCmd(a))
	rootCmd.AddCommand(newMemberCmd(a))
	rootCmd.AddCommand(newUserCmd(a))
	rootCmd.AddCommand(newLoanCmd(a))

	return rootCmd
}

// init loads the settings and wires logger, store and coordinator.
func (a *app) init(cmd *cobra.Command, _ []string) error {
	settings, err := config.LoadSettings(a.flags.configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if a.flags.logLevel != "" {
		if err = settings.LogLevel.UnmarshalText([]byte(a.flags.logLevel)); err != nil {
			return fmt.Errorf("--log-level: %w", err)
		}
	}

	switch a.flags.logFormat {
	case "":
	case config.LogFormatText, config.LogFormatJSON:
		settings.LogFormat = a.flags.logFormat
	default:
		return fmt.Errorf("--log-format: unknown format %q", a.flags.logFormat)
	}

	a.settings = settings
	a.logger = newLogger(cmd.ErrOrStderr(), settings)

	s, closeStore, err := a.openStore(cmd.Context(), settings, a.logger, a.metrics)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	a.store = s
	a.closeStore = closeStore

	a.coordinator, err = circulation.New(s, a.clock, settings.Policy(),
		circulation.WithLogger(a.logger),
		circulation.WithMetrics(a.metrics),
	)
	if err != nil {
		return fmt.Errorf("create coordinator: %w", err)
	}

	return nil
}

func (a *app) close() error {
	if a.closeStore != nil {
		a.closeStore()
		a.closeStore = nil
	}

	return nil
}

func newLogger(w io.Writer, settings config.Settings) *slog.Logger {
	opts := &slog.HandlerOptions{Level: settings.LogLevel}

	if settings.LogFormat == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// retry runs a mutating operation again while it loses concurrency conflicts.
func (a *app) retry(ctx context.Context, operation string, fn shell.RetryableFunc) error {
	meta, err := shell.RetryWithExponentialBackoff(ctx, fn, shell.WithMetrics(a.metrics, operation))
	if meta.Attempts > 1 {
		a.logger.InfoContext(ctx, "operation retried",
			circulation.LogAttrOperation, operation,
			"attempts", meta.Attempts,
			"total_delay_ms", meta.TotalDelay.Milliseconds(),
			"last_error_type", meta.LastErrorType,
		)
	}

	return err
}
