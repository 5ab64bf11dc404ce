package circulation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-circulation-go/core"
	"github.com/AntonStoeckl/library-circulation-go/store"
)

// FindLoanByID returns the loan or core.LoanNotFoundError.
func (c *Coordinator) FindLoanByID(ctx context.Context, loanID uuid.UUID) (core.Loan, error) {
	var found core.Loan

	err := c.observe(ctx, OpFindLoanByID, func(ctx context.Context) error {
		loan, err := c.store.FindLoanByID(ctx, loanID)
		if err != nil {
			return notFoundAs(err, core.LoanNotFoundError{LoanID: loanID})
		}

		found = loan

		return nil
	})

	return found, err
}

// GetActiveLoansByMember returns the member's loans that still hold a copy (ACTIVE and RENEWED).
func (c *Coordinator) GetActiveLoansByMember(ctx context.Context, memberID uuid.UUID) ([]core.Loan, error) {
	return c.findLoans(ctx, OpGetActiveLoansByMember, store.LoanFilter{
		MemberID: memberID,
		Statuses: core.ActiveLoanStatuses,
	})
}

// GetOverdueLoans returns open loans whose due date lies before today.
func (c *Coordinator) GetOverdueLoans(ctx context.Context) ([]core.Loan, error) {
	return c.findLoans(ctx, OpGetOverdueLoans, store.LoanFilter{
		Statuses:  core.ActiveLoanStatuses,
		DueBefore: core.ToDate(c.clock.Now()),
	})
}

// GetLoansByDateRange returns loans made between from and to, both days included.
func (c *Coordinator) GetLoansByDateRange(ctx context.Context, from, to time.Time) ([]core.Loan, error) {
	return c.findLoans(ctx, OpGetLoansByDateRange, store.LoanFilter{
		LoanDateFrom:  core.ToDate(from),
		LoanDateUntil: core.ToDate(to),
	})
}

// ListLoans returns all loans, newest first.
func (c *Coordinator) ListLoans(ctx context.Context) ([]core.Loan, error) {
	return c.findLoans(ctx, OpListLoans, store.LoanFilter{})
}

func (c *Coordinator) findLoans(ctx context.Context, operation string, filter store.LoanFilter) ([]core.Loan, error) {
	var loans []core.Loan

	err := c.observe(ctx, operation, func(ctx context.Context) error {
		found, err := c.store.FindLoans(ctx, filter)
		if err != nil {
			return err
		}

		loans = found

		return nil
	})

	return loans, err
}

// FindBookByID returns the book or core.BookNotFoundError.
func (c *Coordinator) FindBookByID(ctx context.Context, bookID uuid.UUID) (core.Book, error) {
	var found core.Book

	err := c.observe(ctx, OpFindBookByID, func(ctx context.Context) error {
		book, err := c.store.FindBookByID(ctx, bookID)
		if err != nil {
			return notFoundAs(err, core.BookNotFoundError{BookID: bookID})
		}

		found = book

		return nil
	})

	return found, err
}

// FindMemberByID returns the member or core.MemberNotFoundError.
func (c *Coordinator) FindMemberByID(ctx context.Context, memberID uuid.UUID) (core.Member, error) {
	var found core.Member

	err := c.observe(ctx, OpFindMemberByID, func(ctx context.Context) error {
		member, err := c.store.FindMemberByID(ctx, memberID)
		if err != nil {
			return notFoundAs(err, core.MemberNotFoundError{MemberID: memberID})
		}

		found = member

		return nil
	})

	return found, err
}

// FindBookByISBN returns the book or core.BookNotFoundError.
func (c *Coordinator) FindBookByISBN(ctx context.Context, isbn string) (core.Book, error) {
	var found core.Book

	err := c.observe(ctx, OpFindBookByISBN, func(ctx context.Context) error {
		isbn = strings.TrimSpace(isbn)
		if isbn == "" {
			return core.ErrEmptyISBN
		}

		book, err := c.store.FindBookByISBN(ctx, isbn)
		if err != nil {
			return notFoundAs(err, core.BookNotFoundError{ISBN: isbn})
		}

		found = book

		return nil
	})

	return found, err
}

// FindMemberByNumber returns the member or core.MemberNotFoundError.
func (c *Coordinator) FindMemberByNumber(ctx context.Context, memberNumber string) (core.Member, error) {
	var found core.Member

	err := c.observe(ctx, OpFindMemberByNumber, func(ctx context.Context) error {
		memberNumber = strings.TrimSpace(memberNumber)
		if memberNumber == "" {
			return core.ErrEmptyMemberNumber
		}

		member, err := c.store.FindMemberByNumber(ctx, memberNumber)
		if err != nil {
			return notFoundAs(err, core.MemberNotFoundError{MemberNumber: memberNumber})
		}

		found = member

		return nil
	})

	return found, err
}

// CheckEligibility previews whether the member could borrow a book right now.
// A member who may not borrow is a normal result, the reason is in the returned eligibility.
// Stock is not considered and nothing is locked, so a later CreateLoan can still be rejected.
func (c *Coordinator) CheckEligibility(ctx context.Context, memberID uuid.UUID) (core.BorrowingEligibility, error) {
	var eligibility core.BorrowingEligibility

	err := c.observe(ctx, OpCheckEligibility, func(ctx context.Context) error {
		member, err := c.store.FindMemberByID(ctx, memberID)
		if err != nil {
			return notFoundAs(err, core.MemberNotFoundError{MemberID: memberID})
		}

		active, err := c.store.FindLoans(ctx, store.LoanFilter{MemberID: memberID, Statuses: core.ActiveLoanStatuses})
		if err != nil {
			return err
		}

		eligibility = core.EvaluateEligibility(member, len(active))

		return nil
	})

	return eligibility, err
}
