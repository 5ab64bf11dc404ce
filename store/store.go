package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-circulation-go/core"
)

// TxFunc is the unit of work executed by Store.WithinTx.
type TxFunc func(ctx context.Context, tx Tx) error

// Store is the transactional row store the circulation core persists into.
type Store interface {
	Reader

	// WithinTx runs fn inside a single transaction.
	// It commits when fn returns nil and rolls back when fn returns an error or panics.
	// The error of fn is returned unchanged.
	WithinTx(ctx context.Context, fn TxFunc) error
}

// Reader offers reads outside of any transaction.
// Lookups of a single record return ErrRecordNotFound when nothing matches.
type Reader interface {
	FindLoanByID(ctx context.Context, loanID uuid.UUID) (core.Loan, error)
	FindLoans(ctx context.Context, filter LoanFilter) ([]core.Loan, error)
	FindBookByID(ctx context.Context, bookID uuid.UUID) (core.Book, error)
	FindMemberByID(ctx context.Context, memberID uuid.UUID) (core.Member, error)

	FindBookByISBN(ctx context.Context, isbn string) (core.Book, error)
	FindMemberByNumber(ctx context.Context, memberNumber string) (core.Member, error)
}

// Tx is a running transaction.
//
// The Lock* methods return the current row and hold an exclusive lock on it until the transaction ends,
// so check-then-write sequences on that row cannot interleave with other transactions.
type Tx interface {
	LockMember(ctx context.Context, memberID uuid.UUID) (core.Member, error)
	LockBook(ctx context.Context, bookID uuid.UUID) (core.Book, error)
	LockLoan(ctx context.Context, loanID uuid.UUID) (core.Loan, error)
	LoadUser(ctx context.Context, userID uuid.UUID) (core.User, error)

	CountLoansByMember(ctx context.Context, memberID uuid.UUID, statuses ...core.LoanStatus) (int, error)

	InsertLoan(ctx context.Context, loan core.Loan) error
	UpdateLoan(ctx context.Context, loan core.Loan) error
	UpdateBookStock(ctx context.Context, book core.Book) error

	InsertBook(ctx context.Context, book core.Book) error
	InsertMember(ctx context.Context, member core.Member) error
	InsertUser(ctx context.Context, user core.User) error
	UpdateMemberActive(ctx context.Context, memberID uuid.UUID, active bool) error
}

// LoanFilter narrows FindLoans. Zero values mean "no restriction".
// Results are ordered by loan date, newest first.
type LoanFilter struct {
	MemberID uuid.UUID
	Statuses []core.LoanStatus

	// DueBefore matches loans whose expected return date lies strictly before this date.
	DueBefore time.Time

	// LoanDateFrom and LoanDateUntil match loan dates within the inclusive range.
	LoanDateFrom  time.Time
	LoanDateUntil time.Time
}

// Matches evaluates the filter against a single loan.
func (f LoanFilter) Matches(loan core.Loan) bool {
	if f.MemberID != uuid.Nil && loan.MemberID != f.MemberID {
		return false
	}

	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, loan.Status) {
		return false
	}

	if !f.DueBefore.IsZero() && !core.ToDate(loan.ExpectedReturnDate).Before(core.ToDate(f.DueBefore)) {
		return false
	}

	if !f.LoanDateFrom.IsZero() && core.ToDate(loan.LoanDate).Before(core.ToDate(f.LoanDateFrom)) {
		return false
	}

	if !f.LoanDateUntil.IsZero() && core.ToDate(loan.LoanDate).After(core.ToDate(f.LoanDateUntil)) {
		return false
	}

	return true
}

func containsStatus(statuses []core.LoanStatus, status core.LoanStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}

	return false
}
