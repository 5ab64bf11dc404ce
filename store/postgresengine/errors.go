package postgresengine

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/AntonStoeckl/library-circulation-go/core"
	"github.com/AntonStoeckl/library-circulation-go/store"
)

// SQLSTATE codes this engine maps onto store sentinels.
const (
	sqlStateUniqueViolation      = "23505"
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// sqlState extracts the SQLSTATE from pgx and lib/pq errors.
func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}

	return ""
}

// classifyDriverError returns the store sentinel matching a driver error, or nil if there is none.
func classifyDriverError(err error) error {
	switch sqlState(err) {
	case sqlStateUniqueViolation:
		return store.ErrDuplicateRecord
	case sqlStateSerializationFailure, sqlStateDeadlockDetected:
		return store.ErrConcurrencyConflict
	default:
		return nil
	}
}

// errorTypeFor labels errors for metrics and spans.
func errorTypeFor(err error) string {
	switch {
	case errors.Is(err, store.ErrConcurrencyConflict):
		return errorTypeConcurrencyConflict
	case errors.Is(err, store.ErrDuplicateRecord):
		return errorTypeDuplicate
	case errors.Is(err, store.ErrRecordNotFound):
		return errorTypeNotFound
	case errors.Is(err, store.ErrStorageFailure):
		return errorTypeDatabase
	default:
		return errorTypeOther
	}
}

// isRejection reports whether a rollback was caused by the caller's request rather than by the database.
func isRejection(err error) bool {
	return errors.Is(err, core.ErrPolicyViolation) ||
		errors.Is(err, core.ErrNotFound) ||
		errors.Is(err, core.ErrInvalidInput) ||
		errors.Is(err, store.ErrDuplicateRecord) ||
		errors.Is(err, store.ErrRecordNotFound)
}
