package postgresengine

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/AntonStoeckl/library-circulation-go/store"
)

const (
	metricStatementDuration    = "circulation_store_statement_duration_seconds"
	metricTransactionDuration  = "circulation_store_transaction_duration_seconds"
	metricDatabaseErrors       = "circulation_store_database_errors_total"
	metricConcurrencyConflicts = "circulation_store_concurrency_conflicts_total"

	spanNameTransaction = "store.transaction"

	spanAttrOperation  = "operation"
	spanAttrErrorType  = "error_type"
	spanAttrDurationMS = "duration_ms"
	spanAttrStatements = "statement_count"
	labelStatus        = "status"

	statusSuccess    = "success"
	statusError      = "error"
	statusRejected   = "rejected"
	statusCommitted  = "committed"
	statusRolledBack = "rolled_back"

	errorTypeConcurrencyConflict = "concurrency_conflict"
	errorTypeDuplicate           = "duplicate_record"
	errorTypeNotFound            = "not_found"
	errorTypeDatabase            = "database_error"
	errorTypeOther               = "other"
)

// logQueryWithDuration logs SQL statements with execution time at debug level.
func (s *Store) logQueryWithDuration(ctx context.Context, sqlQuery string, action string, duration time.Duration) {
	if s.logger != nil {
		s.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, s.toMilliseconds(duration), logAttrQuery, sqlQuery)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, logAttrDurationMS, s.toMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

// logOperation logs operational information at info level.
func (s *Store) logOperation(ctx context.Context, action string, args ...any) {
	if s.logger != nil {
		s.logger.Info(logMsgOperation+action, args...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	}
}

// logWarn logs non-critical problems like cleanup failures.
func (s *Store) logWarn(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if s.logger != nil {
		s.logger.Warn(message, allArgs...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.WarnContext(ctx, message, allArgs...)
	}
}

// logError logs failures that make an operation fail.
func (s *Store) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if s.logger != nil {
		s.logger.Error(message, allArgs...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.ErrorContext(ctx, message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func (s *Store) toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

func (s *Store) recordDuration(ctx context.Context, metric string, duration time.Duration, labels map[string]string) {
	if s.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := s.metricsCollector.(store.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	s.metricsCollector.RecordDuration(metric, duration, labels)
}

func (s *Store) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if s.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := s.metricsCollector.(store.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
		return
	}

	s.metricsCollector.IncrementCounter(metric, labels)
}

// recordStatementMetrics records the duration of a single statement, plus an error counter on failure.
func (s *Store) recordStatementMetrics(ctx context.Context, action string, duration time.Duration, err error) {
	status := statusSuccess
	if err != nil {
		status = statusError
	}

	s.recordDuration(ctx, metricStatementDuration, duration, map[string]string{
		spanAttrOperation: action,
		labelStatus:       status,
	})

	if err == nil {
		return
	}

	errorType := errorTypeFor(err)

	if errorType == errorTypeConcurrencyConflict {
		s.incrementCounter(ctx, metricConcurrencyConflicts, map[string]string{spanAttrOperation: action})
	}

	s.incrementCounter(ctx, metricDatabaseErrors, map[string]string{
		spanAttrOperation: action,
		labelStatus:       statusError,
		spanAttrErrorType: errorType,
	})
}

// txObserver encapsulates tracing and metrics for one transaction.
type txObserver struct {
	s          *Store
	ctx        context.Context
	span       store.SpanContext
	start      time.Time
	statements int
}

func (s *Store) startTxObservation(ctx context.Context) (*txObserver, context.Context) {
	var span store.SpanContext

	if s.tracingCollector != nil {
		ctx, span = s.tracingCollector.StartSpan(ctx, spanNameTransaction, map[string]string{
			spanAttrOperation: actionTransaction,
		})
	}

	return &txObserver{s: s, ctx: ctx, span: span, start: time.Now()}, ctx
}

func (o *txObserver) statementExecuted() {
	o.statements++
}

func (o *txObserver) finish(status string, err error) {
	duration := time.Since(o.start)

	o.s.recordDuration(o.ctx, metricTransactionDuration, duration, map[string]string{labelStatus: status})

	if o.s.tracingCollector == nil || o.span == nil {
		return
	}

	attrs := map[string]string{
		spanAttrDurationMS: strconv.FormatFloat(o.s.toMilliseconds(duration), 'f', 2, 64),
		spanAttrStatements: strconv.Itoa(o.statements),
	}

	spanStatus := statusSuccess
	switch {
	case err == nil:
	case isRejection(err):
		spanStatus = statusRejected
		attrs[spanAttrErrorType] = errorTypeFor(err)
	default:
		spanStatus = statusError
		attrs[spanAttrErrorType] = errorTypeFor(err)
	}

	o.s.tracingCollector.FinishSpan(o.span, spanStatus, attrs)
}
