// Package core contains the pure domain model of library circulation.
//
// Nothing in here performs I/O: the stock ledger, the membership policy, the penalty calculator,
// and the loan state machine are plain functions and value types that the circulation
// coordinator composes inside a storage transaction.
//
// All dates are calendar dates. See ToDate.
package core
