package circulation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AntonStoeckl/library-circulation-go/core"
	"github.com/AntonStoeckl/library-circulation-go/store"
)

var (
	ErrNilStore = errors.New("store must not be nil")
	ErrNilClock = errors.New("clock must not be nil")
)

// Coordinator runs the loan lifecycle: borrow, return, renew, and the penalty preview.
// It is safe for concurrent use; serialization of conflicting writes is left to the store's row locks.
type Coordinator struct {
	store  store.Store
	clock  Clock
	policy Policy

	logger           store.Logger
	contextualLogger store.ContextualLogger
	metricsCollector store.MetricsCollector
	tracingCollector store.TracingCollector
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger. Operations are logged at info, policy violations included;
// infrastructure failures are logged at error.
func WithLogger(logger store.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithContextualLogger sets a context-aware logger. It takes precedence over the plain logger.
func WithContextualLogger(logger store.ContextualLogger) Option {
	return func(c *Coordinator) {
		c.contextualLogger = logger
	}
}

// WithMetrics sets the metrics collector which receives one duration and one call count per operation.
func WithMetrics(collector store.MetricsCollector) Option {
	return func(c *Coordinator) {
		c.metricsCollector = collector
	}
}

// WithTracing sets the tracing collector. Every operation becomes one span.
func WithTracing(collector store.TracingCollector) Option {
	return func(c *Coordinator) {
		c.tracingCollector = collector
	}
}

// New creates a Coordinator. The policy is validated up front.
func New(s store.Store, clock Clock, policy Policy, opts ...Option) (*Coordinator, error) {
	if s == nil {
		return nil, ErrNilStore
	}

	if clock == nil {
		return nil, ErrNilClock
	}

	if err := policy.Validate(); err != nil {
		return nil, err
	}

	c := &Coordinator{
		store:  s,
		clock:  clock,
		policy: policy,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Policy returns the rules the Coordinator was built with.
func (c *Coordinator) Policy() Policy {
	return c.policy
}

// CreateLoan lends a copy of the book to the member, recorded by the operator userID.
//
// Checks run in this order and the first failure wins: member exists and is active, book exists and
// has an available copy, operator exists, member is below the loan limit of their tier.
// The new loan and the stock decrement are committed together.
func (c *Coordinator) CreateLoan(ctx context.Context, memberID, bookID, userID uuid.UUID) (core.Loan, error) {
	var created core.Loan

	err := c.observe(ctx, OpCreateLoan, func(ctx context.Context) error {
		return c.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
			member, err := tx.LockMember(ctx, memberID)
			if err != nil {
				return notFoundAs(err, core.MemberNotFoundError{MemberID: memberID})
			}

			if !member.Active {
				return core.InactiveMemberError{MemberNumber: member.MemberNumber}
			}

			book, err := tx.LockBook(ctx, bookID)
			if err != nil {
				return notFoundAs(err, core.BookNotFoundError{BookID: bookID})
			}

			if !core.HasAvailableCopy(book) {
				return core.BookNotAvailableError{ISBN: book.ISBN, Title: book.Title}
			}

			if _, err = tx.LoadUser(ctx, userID); err != nil {
				return notFoundAs(err, core.UserNotFoundError{UserID: userID})
			}

			activeLoans, err := tx.CountLoansByMember(ctx, memberID, core.ActiveLoanStatuses...)
			if err != nil {
				return err
			}

			if err = core.CheckBorrowingEligibility(member, activeLoans); err != nil {
				return err
			}

			loanID, err := uuid.NewV7()
			if err != nil {
				return err
			}

			loan := core.OpenLoan(loanID, bookID, memberID, userID, c.clock.Now(), c.policy.MaxLoanDays)

			book, err = core.DecrementStock(book)
			if err != nil {
				return err
			}

			if err = tx.InsertLoan(ctx, loan); err != nil {
				return err
			}

			if err = tx.UpdateBookStock(ctx, book); err != nil {
				return err
			}

			created = loan

			return nil
		})
	})

	return created, err
}

// ReturnBook closes an active loan today and puts the copy back on the shelf.
// A late return ends in OVERDUE with the penalty charged. Returning a closed loan fails with
// core.LoanNotActiveError and changes nothing.
func (c *Coordinator) ReturnBook(ctx context.Context, loanID uuid.UUID) (core.Loan, error) {
	var returned core.Loan

	err := c.observe(ctx, OpReturnBook, func(ctx context.Context) error {
		return c.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
			loan, err := tx.LockLoan(ctx, loanID)
			if err != nil {
				return notFoundAs(err, core.LoanNotFoundError{LoanID: loanID})
			}

			loan, err = loan.Return(c.clock.Now(), c.policy.PenaltyPerDay)
			if err != nil {
				return err
			}

			book, err := tx.LockBook(ctx, loan.BookID)
			if err != nil {
				return notFoundAs(err, core.BookNotFoundError{BookID: loan.BookID})
			}

			book, err = core.IncrementStock(book)
			if err != nil {
				return err
			}

			if err = tx.UpdateLoan(ctx, loan); err != nil {
				return err
			}

			if err = tx.UpdateBookStock(ctx, book); err != nil {
				return err
			}

			returned = loan

			return nil
		})
	})

	if err == nil {
		c.recordPenalty(ctx, returned)
	}

	return returned, err
}

// RenewLoan pushes the due date of an ACTIVE, not yet overdue loan by additionalDays.
// Stock is not touched.
func (c *Coordinator) RenewLoan(ctx context.Context, loanID uuid.UUID, additionalDays int) (core.Loan, error) {
	var renewed core.Loan

	err := c.observe(ctx, OpRenewLoan, func(ctx context.Context) error {
		return c.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
			loan, err := tx.LockLoan(ctx, loanID)
			if err != nil {
				return notFoundAs(err, core.LoanNotFoundError{LoanID: loanID})
			}

			loan, err = loan.Renew(c.clock.Now(), additionalDays, c.policy.MaxRenewalDays)
			if err != nil {
				return err
			}

			if err = tx.UpdateLoan(ctx, loan); err != nil {
				return err
			}

			renewed = loan

			return nil
		})
	})

	return renewed, err
}

// CalculatePenalty derives the penalty of a loan without changing anything.
// Closed loans are measured against their return date, open ones against today.
func (c *Coordinator) CalculatePenalty(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error) {
	penalty := decimal.Zero

	err := c.observe(ctx, OpCalculatePenalty, func(ctx context.Context) error {
		loan, err := c.store.FindLoanByID(ctx, loanID)
		if err != nil {
			return notFoundAs(err, core.LoanNotFoundError{LoanID: loanID})
		}

		penalty = core.PenaltyFor(loan, c.clock.Now(), c.policy.PenaltyPerDay)

		return nil
	})

	return penalty, err
}

// notFoundAs replaces store.ErrRecordNotFound with the typed error of the missing entity.
func notFoundAs(err error, notFound error) error {
	if errors.Is(err, store.ErrRecordNotFound) {
		return notFound
	}

	return err
}
