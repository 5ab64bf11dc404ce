package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanStatus is the lifecycle state of a loan.
//
//	ACTIVE  --return, on time-->  RETURNED  (terminal)
//	ACTIVE  --return, late----->  OVERDUE   (terminal)
//	ACTIVE  --renew------------>  RENEWED
//	RENEWED --return----------->  RETURNED | OVERDUE
type LoanStatus string

const (
	LoanStatusActive   LoanStatus = "ACTIVE"
	LoanStatusReturned LoanStatus = "RETURNED"
	LoanStatusOverdue  LoanStatus = "OVERDUE"
	LoanStatusRenewed  LoanStatus = "RENEWED"
)

// ActiveLoanStatuses are the statuses of loans that still hold a copy and count against the member's limit.
var ActiveLoanStatuses = []LoanStatus{LoanStatusActive, LoanStatusRenewed}

// ParseLoanStatus parses the stored representation of a status.
func ParseLoanStatus(s string) (LoanStatus, error) {
	switch st := LoanStatus(s); st {
	case LoanStatusActive, LoanStatusReturned, LoanStatusOverdue, LoanStatusRenewed:
		return st, nil
	default:
		return "", ErrUnknownLoanStatus
	}
}

// IsActive reports whether the copy is still with the member.
func (s LoanStatus) IsActive() bool {
	return s == LoanStatusActive || s == LoanStatusRenewed
}

// IsTerminal reports whether the loan is closed for good.
func (s LoanStatus) IsTerminal() bool {
	return s == LoanStatusReturned || s == LoanStatusOverdue
}

// Loan records one copy of a book lent to one member.
type Loan struct {
	ID                 uuid.UUID
	BookID             uuid.UUID
	MemberID           uuid.UUID
	UserID             uuid.UUID
	LoanDate           time.Time
	ExpectedReturnDate time.Time
	ActualReturnDate   *time.Time
	Status             LoanStatus
	Penalty            decimal.Decimal
	Notes              string
}

// OpenLoan creates a new ACTIVE loan starting today and due maxLoanDays later.
func OpenLoan(id, bookID, memberID, userID uuid.UUID, now time.Time, maxLoanDays int) Loan {
	today := ToDate(now)

	return Loan{
		ID:                 id,
		BookID:             bookID,
		MemberID:           memberID,
		UserID:             userID,
		LoanDate:           today,
		ExpectedReturnDate: AddDays(today, maxLoanDays),
		Status:             LoanStatusActive,
		Penalty:            decimal.Zero,
	}
}

// Return closes the loan today.
// A late return ends in OVERDUE with the penalty charged, an on-time return ends in RETURNED with no penalty.
func (l Loan) Return(now time.Time, penaltyPerDay decimal.Decimal) (Loan, error) {
	if !l.Status.IsActive() {
		return l, LoanNotActiveError{LoanID: l.ID, Status: l.Status}
	}

	today := ToDate(now)
	overdue := IsOverdue(l, now)

	l.ActualReturnDate = &today

	if overdue {
		l.Status = LoanStatusOverdue
		l.Penalty = CalculatePenalty(l.ExpectedReturnDate, today, penaltyPerDay)

		return l, nil
	}

	l.Status = LoanStatusReturned
	l.Penalty = decimal.Zero

	return l, nil
}

// Renew extends the due date by additionalDays.
// Only ACTIVE loans that are not yet overdue can be renewed, and only once.
func (l Loan) Renew(now time.Time, additionalDays int, maxRenewalDays int) (Loan, error) {
	if l.Status != LoanStatusActive {
		return l, LoanNotActiveError{LoanID: l.ID, Status: l.Status}
	}

	if IsOverdue(l, now) {
		return l, OverdueRenewalError{LoanID: l.ID, ExpectedReturnDate: l.ExpectedReturnDate}
	}

	if additionalDays < 1 || additionalDays > maxRenewalDays {
		return l, InvalidRenewalPeriodError{AdditionalDays: additionalDays, MaxDays: maxRenewalDays}
	}

	l.ExpectedReturnDate = AddDays(l.ExpectedReturnDate, additionalDays)
	l.Status = LoanStatusRenewed

	return l, nil
}
