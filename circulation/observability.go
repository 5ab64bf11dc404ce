package circulation

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/AntonStoeckl/library-circulation-go/core"
	"github.com/AntonStoeckl/library-circulation-go/store"
)

const (
	// OperationDurationMetric tracks operation execution duration (OpenTelemetry-compatible).
	OperationDurationMetric = "circulation_operation_duration_seconds"
	// OperationCallsMetric tracks total operation calls.
	OperationCallsMetric = "circulation_operation_calls_total"
	// PenaltyChargedMetric records the penalty of every returned loan, zero included.
	PenaltyChargedMetric = "circulation_penalty_charged"

	// SpanNamePrefix prefixes the operation name in span names, e.g. "circulation.create_loan".
	SpanNamePrefix = "circulation."

	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
	OutcomeCanceled = "canceled"

	LogMsgOperationStarted   = "circulation operation started"
	LogMsgOperationCompleted = "circulation operation completed"
	LogMsgOperationRejected  = "circulation operation rejected"
	LogMsgOperationFailed    = "circulation operation failed"

	LogAttrOperation  = "operation"
	LogAttrOutcome    = "outcome"
	LogAttrDurationMS = "duration_ms"
	LogAttrError      = "error"
	LogAttrStatus     = "status"
)

const (
	OpCreateLoan             = "create_loan"
	OpReturnBook             = "return_book"
	OpRenewLoan              = "renew_loan"
	OpCalculatePenalty       = "calculate_penalty"
	OpFindLoanByID           = "find_loan_by_id"
	OpGetActiveLoansByMember = "get_active_loans_by_member"
	OpGetOverdueLoans        = "get_overdue_loans"
	OpGetLoansByDateRange    = "get_loans_by_date_range"
	OpListLoans              = "list_loans"
	OpAddBook                = "add_book"
	OpRegisterMember         = "register_member"
	OpRegisterUser           = "register_user"
	OpSetMemberActive        = "set_member_active"
	OpFindBookByID           = "find_book_by_id"
	OpFindMemberByID         = "find_member_by_id"
	OpFindBookByISBN         = "find_book_by_isbn"
	OpFindMemberByNumber     = "find_member_by_number"
	OpCheckEligibility       = "check_eligibility"
)

// ClassifyOutcome maps an operation result onto the outcome label used in logs, metrics and spans.
func ClassifyOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	case errors.Is(err, core.ErrPolicyViolation), errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrInvalidInput):
		return OutcomeRejected
	default:
		return OutcomeError
	}
}

// observe runs one operation with logging, metrics and a tracing span around it.
func (c *Coordinator) observe(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	start := time.Now()

	ctx, span := c.startSpan(ctx, operation)
	c.logInfo(ctx, LogMsgOperationStarted, LogAttrOperation, operation)

	err := fn(ctx)

	duration := time.Since(start)
	outcome := ClassifyOutcome(err)

	c.recordMetrics(ctx, operation, outcome, duration)
	c.finishSpan(span, outcome, duration, err)

	switch outcome {
	case OutcomeSuccess:
		c.logInfo(ctx, LogMsgOperationCompleted,
			LogAttrOperation, operation, LogAttrOutcome, outcome, LogAttrDurationMS, toMilliseconds(duration))
	case OutcomeRejected, OutcomeCanceled:
		c.logInfo(ctx, LogMsgOperationRejected,
			LogAttrOperation, operation, LogAttrOutcome, outcome, LogAttrDurationMS, toMilliseconds(duration),
			LogAttrError, err.Error())
	default:
		c.logError(ctx, LogMsgOperationFailed,
			LogAttrOperation, operation, LogAttrOutcome, outcome, LogAttrDurationMS, toMilliseconds(duration),
			LogAttrError, err.Error())
	}

	return err
}

func (c *Coordinator) logInfo(ctx context.Context, msg string, args ...any) {
	if c.contextualLogger != nil {
		c.contextualLogger.InfoContext(ctx, msg, args...)
	} else if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Coordinator) logError(ctx context.Context, msg string, args ...any) {
	if c.contextualLogger != nil {
		c.contextualLogger.ErrorContext(ctx, msg, args...)
	} else if c.logger != nil {
		c.logger.Error(msg, args...)
	}
}

func (c *Coordinator) recordMetrics(ctx context.Context, operation, outcome string, duration time.Duration) {
	if c.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		LogAttrOperation: operation,
		LogAttrOutcome:   outcome,
	}

	if contextualCollector, ok := c.metricsCollector.(store.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, OperationDurationMetric, duration, labels)
		contextualCollector.IncrementCounterContext(ctx, OperationCallsMetric, labels)

		return
	}

	c.metricsCollector.RecordDuration(OperationDurationMetric, duration, labels)
	c.metricsCollector.IncrementCounter(OperationCallsMetric, labels)
}

func (c *Coordinator) recordPenalty(ctx context.Context, loan core.Loan) {
	if c.metricsCollector == nil {
		return
	}

	penalty := loan.Penalty.InexactFloat64()
	labels := map[string]string{LogAttrStatus: string(loan.Status)}

	if contextualCollector, ok := c.metricsCollector.(store.ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, PenaltyChargedMetric, penalty, labels)
		return
	}

	c.metricsCollector.RecordValue(PenaltyChargedMetric, penalty, labels)
}

func (c *Coordinator) startSpan(ctx context.Context, operation string) (context.Context, store.SpanContext) {
	if c.tracingCollector == nil {
		return ctx, nil
	}

	return c.tracingCollector.StartSpan(ctx, SpanNamePrefix+operation, map[string]string{
		LogAttrOperation: operation,
	})
}

func (c *Coordinator) finishSpan(span store.SpanContext, outcome string, duration time.Duration, err error) {
	if c.tracingCollector == nil || span == nil {
		return
	}

	attrs := map[string]string{
		LogAttrOutcome:    outcome,
		LogAttrDurationMS: strconv.FormatFloat(toMilliseconds(duration), 'f', 2, 64),
	}

	if err != nil {
		attrs[LogAttrError] = err.Error()
	}

	// rejections are expected business outcomes, only infrastructure failures mark the span as failed
	status := OutcomeSuccess
	switch outcome {
	case OutcomeError:
		status = OutcomeError
	case OutcomeCanceled:
		status = OutcomeCanceled
	}

	c.tracingCollector.FinishSpan(span, status, attrs)
}

func toMilliseconds(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
