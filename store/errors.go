package store

import (
	"errors"
	"fmt"
)

// ErrStorageFailure is the category of all infrastructure failures of a store.
var ErrStorageFailure = errors.New("storage failure")

var (
	ErrRecordNotFound        = errors.New("record not found")
	ErrDuplicateRecord       = errors.New("duplicate record")
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")
	ErrEmptyTableName        = errors.New("empty table name supplied")
)

var (
	// ErrConcurrencyConflict is returned when the database aborted a transaction because of a serialization
	// failure or a deadlock. It is the only storage error that is safe to retry.
	ErrConcurrencyConflict = fmt.Errorf("%w: concurrency conflict, transaction was rolled back", ErrStorageFailure)

	ErrBeginTxFailed       = fmt.Errorf("%w: begin transaction failed", ErrStorageFailure)
	ErrCommitFailed        = fmt.Errorf("%w: commit failed", ErrStorageFailure)
	ErrRollbackFailed      = fmt.Errorf("%w: rollback failed", ErrStorageFailure)
	ErrQueryFailed         = fmt.Errorf("%w: query failed", ErrStorageFailure)
	ErrExecFailed          = fmt.Errorf("%w: statement execution failed", ErrStorageFailure)
	ErrScanningDBRowFailed = fmt.Errorf("%w: scanning db row failed", ErrStorageFailure)
	ErrBuildingQueryFailed = fmt.Errorf("%w: building query failed", ErrStorageFailure)
	ErrNoRowsAffected      = fmt.Errorf("%w: no rows affected", ErrStorageFailure)
)
