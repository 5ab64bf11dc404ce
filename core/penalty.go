package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// OverdueDays returns how many whole days comparisonDate lies after expectedReturnDate, never less than zero.
func OverdueDays(expectedReturnDate, comparisonDate time.Time) int {
	return max(0, DaysBetween(expectedReturnDate, comparisonDate))
}

// CalculatePenalty computes the late fee as penaltyPerDay times the overdue days.
// Returning on or before the due date costs nothing.
func CalculatePenalty(expectedReturnDate, comparisonDate time.Time, penaltyPerDay decimal.Decimal) decimal.Decimal {
	overdueDays := OverdueDays(expectedReturnDate, comparisonDate)
	if overdueDays <= 0 {
		return decimal.Zero
	}

	return penaltyPerDay.Mul(decimal.NewFromInt(int64(overdueDays)))
}

// IsOverdue reports whether an active loan is past its due date on the calendar day of now.
// Loans that are already closed are never overdue.
func IsOverdue(loan Loan, now time.Time) bool {
	if !loan.Status.IsActive() {
		return false
	}

	return ToDate(now).After(ToDate(loan.ExpectedReturnDate))
}

// PenaltyFor re-derives the penalty of a loan.
// The comparison date is the actual return date once the loan was returned, otherwise today.
func PenaltyFor(loan Loan, now time.Time, penaltyPerDay decimal.Decimal) decimal.Decimal {
	comparisonDate := now
	if loan.ActualReturnDate != nil {
		comparisonDate = *loan.ActualReturnDate
	}

	return CalculatePenalty(loan.ExpectedReturnDate, comparisonDate, penaltyPerDay)
}
