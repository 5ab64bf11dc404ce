package shell

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/AntonStoeckl/library-circulation-go/store"
)

const (
	defaultMaxAttempts  = 6
	defaultBaseDelay    = 10 * time.Millisecond
	defaultJitterFactor = 0.3
)

var (
	// ErrNilMetricsCollector is returned when a nil metrics collector is provided to WithMetrics.
	ErrNilMetricsCollector = errors.New("metrics collector must not be nil")

	// ErrEmptyOperation is returned when an empty operation name is provided to WithMetrics.
	ErrEmptyOperation = errors.New("operation must not be empty")

	// ErrInvalidMaxAttempts is returned when max attempts are not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrNegativeBaseDelay is returned when the base delay is negative.
	ErrNegativeBaseDelay = errors.New("base delay must not be negative")

	// ErrInvalidJitterFactor is returned when the jitter factor is not between 0.0 and 1.0.
	ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")
)

// RetryableFunc represents a function that can be retried.
type RetryableFunc func(ctx context.Context) error

// RetryMetadata describes how a retried call went.
type RetryMetadata struct {
	Attempts      int
	TotalDelay    time.Duration
	LastErrorType string
}

type retryConfig struct {
	maxAttempts      int
	baseDelay        time.Duration
	jitterFactor     float64
	metricsCollector store.MetricsCollector
	operation        string
}

// RetryWithExponentialBackoff executes fn and retries it while it fails with a concurrency conflict.
//
// Retry Schedule (default): 0 ms, 10 ms, 20 ms, 40 ms, 80 ms, 160 ms (with 30% jitter)
//
// Only store.ErrConcurrencyConflict is retried. Policy violations, not found errors and
// every other storage failure are returned after the first attempt.
func RetryWithExponentialBackoff(
	ctx context.Context,
	fn RetryableFunc,
	options ...RetryOption,
) (RetryMetadata, error) {
	config := &retryConfig{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
	}

	for _, option := range options {
		if err := option(config); err != nil {
			return RetryMetadata{}, err
		}
	}

	var meta RetryMetadata
	var lastErr error

	for attempt := 0; attempt < config.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := config.baseDelay * time.Duration(1<<(attempt-1))
			jitter := rand.Float64() * float64(delay) * config.jitterFactor //nolint:gosec //math/rand is sufficient for jitter
			backoffDelay := delay + time.Duration(jitter)

			recordDuration(ctx, config.metricsCollector, RetryDelayMetric, backoffDelay, map[string]string{
				LabelOperation:     config.operation,
				LabelAttemptNumber: fmt.Sprintf("%d", attempt),
			})

			select {
			case <-time.After(backoffDelay):
				meta.TotalDelay += backoffDelay
			case <-ctx.Done():
				meta.LastErrorType = errorTypeFor(ctx.Err())
				return meta, ctx.Err()
			}
		}

		meta.Attempts++

		lastErr = fn(ctx)
		meta.LastErrorType = errorTypeFor(lastErr)

		if lastErr == nil {
			return meta, nil
		}

		if !isRetryableError(lastErr) {
			return meta, lastErr
		}

		if attempt < config.maxAttempts-1 && config.metricsCollector != nil {
			incrementCounter(ctx, config.metricsCollector, RetriesMetric,
				BuildRetryLabels(config.operation, attempt+1, meta.LastErrorType))
		}
	}

	if config.metricsCollector != nil {
		incrementCounter(ctx, config.metricsCollector, MaxRetriesReachedMetric, map[string]string{
			LabelOperation:      config.operation,
			LabelFinalErrorType: meta.LastErrorType,
		})
	}

	return meta, lastErr
}

// isRetryableError reports whether err is worth another attempt.
//
// A context.DeadlineExceeded is NOT retryable - retrying timeouts during overload creates cascade failures.
func isRetryableError(err error) bool {
	return errors.Is(err, store.ErrConcurrencyConflict)
}

func errorTypeFor(err error) string {
	switch {
	case err == nil:
		return errorTypeNone
	case errors.Is(err, store.ErrConcurrencyConflict):
		return errorTypeConcurrencyConflict
	case errors.Is(err, context.Canceled):
		return errorTypeContextCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return errorTypeContextDeadlineExceeded
	default:
		return errorTypeOther
	}
}

// RetryOption configures retry behavior using the functional options pattern.
type RetryOption func(*retryConfig) error

// WithMaxAttempts sets the maximum number of attempts, the first one included.
func WithMaxAttempts(attempts int) RetryOption {
	return func(config *retryConfig) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}

		config.maxAttempts = attempts

		return nil
	}
}

// WithBaseDelay sets the base delay for exponential backoff.
// Actual delays: baseDelay, baseDelay*2, baseDelay*4, baseDelay*8, etc.
func WithBaseDelay(delay time.Duration) RetryOption {
	return func(config *retryConfig) error {
		if delay < 0 {
			return ErrNegativeBaseDelay
		}

		config.baseDelay = delay

		return nil
	}
}

// WithJitterFactor sets the jitter factor, as a share of the backoff delay.
// Valid range: 0.0 (no jitter) to 1.0 (100% jitter).
func WithJitterFactor(factor float64) RetryOption {
	return func(config *retryConfig) error {
		if factor < 0.0 || factor > 1.0 {
			return ErrInvalidJitterFactor
		}

		config.jitterFactor = factor

		return nil
	}
}

// WithMetrics sets the metrics collector for retry instrumentation.
// Requires the operation name to label metrics.
func WithMetrics(collector store.MetricsCollector, operation string) RetryOption {
	return func(config *retryConfig) error {
		if collector == nil {
			return ErrNilMetricsCollector
		}

		if operation == "" {
			return ErrEmptyOperation
		}

		config.metricsCollector = collector
		config.operation = operation

		return nil
	}
}
