package shell

import (
	"context"
	"fmt"
	"time"

	"github.com/AntonStoeckl/library-circulation-go/store"
)

const (
	// RetriesMetric tracks retry attempts of circulation operations.
	//
	// Labels:
	//   - operation: circulation operation being retried
	//   - attempt_number: which retry attempt (1, 2, 3, ...)
	//   - error_type: error that caused the retry
	RetriesMetric = "circulation_retries_total"

	// RetryDelayMetric tracks the backoff delay before each retry.
	//
	// Labels:
	//   - operation: circulation operation being retried
	//   - attempt_number: which retry attempt
	RetryDelayMetric = "circulation_retry_delay_seconds"

	// MaxRetriesReachedMetric tracks when retries are exhausted.
	//
	// Labels:
	//   - operation: circulation operation that exhausted its retries
	//   - final_error_type: error that caused the final failure
	MaxRetriesReachedMetric = "circulation_max_retries_reached_total"
)

const (
	LabelOperation      = "operation"
	LabelAttemptNumber  = "attempt_number"
	LabelErrorType      = "error_type"
	LabelFinalErrorType = "final_error_type"
)

const (
	errorTypeNone                    = "none"
	errorTypeConcurrencyConflict     = "concurrency_conflict"
	errorTypeContextCanceled         = "context_canceled"
	errorTypeContextDeadlineExceeded = "context_deadline_exceeded"
	errorTypeOther                   = "other"
)

// BuildRetryLabels creates standard metric labels for retry attempts.
func BuildRetryLabels(operation string, attemptNumber int, errorType string) map[string]string {
	return map[string]string{
		LabelOperation:     operation,
		LabelAttemptNumber: fmt.Sprintf("%d", attemptNumber),
		LabelErrorType:     errorType,
	}
}

func recordDuration(ctx context.Context, collector store.MetricsCollector, metric string, d time.Duration, labels map[string]string) {
	if collector == nil {
		return
	}

	if contextualCollector, ok := collector.(store.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metric, d, labels)
		return
	}

	collector.RecordDuration(metric, d, labels)
}

func incrementCounter(ctx context.Context, collector store.MetricsCollector, metric string, labels map[string]string) {
	if collector == nil {
		return
	}

	if contextualCollector, ok := collector.(store.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
		return
	}

	collector.IncrementCounter(metric, labels)
}
