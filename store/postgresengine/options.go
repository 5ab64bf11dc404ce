package postgresengine

import (
	"github.com/AntonStoeckl/library-circulation-go/store"
)

// Option defines a functional option for configuring Store.
type Option func(*Store) error

// TableNames overrides the default table names. Empty fields keep the default.
type TableNames struct {
	Books   string
	Members string
	Users   string
	Loans   string
}

// WithTableNames sets the table names for the Store.
// It fails with store.ErrEmptyTableName when all names are empty, which is almost certainly a config error.
func WithTableNames(names TableNames) Option {
	return func(s *Store) error {
		if names == (TableNames{}) {
			return store.ErrEmptyTableName
		}

		s.tables.override(names)

		return nil
	}
}

// WithLogger sets the logger for the Store.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing (development use)
// Info level: rollbacks, duplicates, concurrency conflicts (production-safe)
// Warn level: Non-critical issues like cleanup failures
// Error level: Critical failures that cause operation failures.
func WithLogger(logger store.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Store.
// It receives statement and transaction durations, database errors, and concurrency conflicts.
func WithMetrics(collector store.MetricsCollector) Option {
	return func(s *Store) error {
		s.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Store. Every transaction becomes one span.
func WithTracing(collector store.TracingCollector) Option {
	return func(s *Store) error {
		s.tracingCollector = collector
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Store.
func WithContextualLogger(logger store.ContextualLogger) Option {
	return func(s *Store) error {
		s.contextualLogger = logger
		return nil
	}
}
