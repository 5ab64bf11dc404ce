package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Error categories. Every typed error below matches exactly one of them with errors.Is.
var (
	// ErrNotFound is the category of all "referenced entity does not exist" errors.
	ErrNotFound = errors.New("not found")

	// ErrPolicyViolation is the category of expected business rejections.
	// These are outcomes, not defects, and are never logged as system errors.
	ErrPolicyViolation = errors.New("policy violation")

	// ErrInvariantViolation is the category of broken domain invariants, which always indicate a defect.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrInvalidInput is the category of malformed caller input.
	ErrInvalidInput = errors.New("invalid input")
)

// Validation errors for catalog input.
var (
	ErrEmptyISBN           = fmt.Errorf("%w: isbn must not be empty", ErrInvalidInput)
	ErrEmptyMemberNumber   = fmt.Errorf("%w: member number must not be empty", ErrInvalidInput)
	ErrEmptyUsername       = fmt.Errorf("%w: username must not be empty", ErrInvalidInput)
	ErrInvalidTotalStock   = fmt.Errorf("%w: total stock must be at least 1", ErrInvalidInput)
	ErrUnknownMembership   = fmt.Errorf("%w: unknown membership type", ErrInvalidInput)
	ErrUnknownUserRole     = fmt.Errorf("%w: unknown user role", ErrInvalidInput)
	ErrUnknownLoanStatus   = fmt.Errorf("%w: unknown loan status", ErrInvalidInput)
	ErrNegativePenaltyRate = fmt.Errorf("%w: penalty per day must not be negative", ErrInvalidInput)
)

// MemberNotFoundError is returned when a referenced member does not exist.
// Lookups by member number set MemberNumber instead of MemberID.
type MemberNotFoundError struct {
	MemberID     uuid.UUID
	MemberNumber string
}

func (e MemberNotFoundError) Error() string {
	if e.MemberNumber != "" {
		return fmt.Sprintf("member with number %q not found", e.MemberNumber)
	}

	return fmt.Sprintf("member %s not found", e.MemberID)
}

func (e MemberNotFoundError) Is(target error) bool { return target == ErrNotFound }

// BookNotFoundError is returned when a referenced book does not exist.
// Lookups by ISBN set ISBN instead of BookID.
type BookNotFoundError struct {
	BookID uuid.UUID
	ISBN   string
}

func (e BookNotFoundError) Error() string {
	if e.ISBN != "" {
		return fmt.Sprintf("book with isbn %q not found", e.ISBN)
	}

	return fmt.Sprintf("book %s not found", e.BookID)
}

func (e BookNotFoundError) Is(target error) bool { return target == ErrNotFound }

// UserNotFoundError is returned when the operating user does not exist.
type UserNotFoundError struct {
	UserID uuid.UUID
}

func (e UserNotFoundError) Error() string {
	return fmt.Sprintf("user %s not found", e.UserID)
}

func (e UserNotFoundError) Is(target error) bool { return target == ErrNotFound }

// LoanNotFoundError is returned when a referenced loan does not exist.
type LoanNotFoundError struct {
	LoanID uuid.UUID
}

func (e LoanNotFoundError) Error() string {
	return fmt.Sprintf("loan %s not found", e.LoanID)
}

func (e LoanNotFoundError) Is(target error) bool { return target == ErrNotFound }

// InactiveMemberError is returned when an inactive member tries to borrow.
type InactiveMemberError struct {
	MemberNumber string
}

func (e InactiveMemberError) Error() string {
	return fmt.Sprintf("member %s is not active", e.MemberNumber)
}

func (e InactiveMemberError) Is(target error) bool { return target == ErrPolicyViolation }

// BookNotAvailableError is returned when no copy of a book is on the shelf.
type BookNotAvailableError struct {
	ISBN  string
	Title string
}

func (e BookNotAvailableError) Error() string {
	return fmt.Sprintf("book %q (isbn %s) has no available copies", e.Title, e.ISBN)
}

func (e BookNotAvailableError) Is(target error) bool { return target == ErrPolicyViolation }

// LoanLimitExceededError is returned when a member already holds the maximum number of active loans for the tier.
type LoanLimitExceededError struct {
	MemberNumber   string
	MembershipType MembershipType
	ActiveLoans    int
	MaxLoans       int
}

func (e LoanLimitExceededError) Error() string {
	return fmt.Sprintf(
		"member %s has reached the loan limit of %d for membership %s (active loans: %d)",
		e.MemberNumber, e.MaxLoans, e.MembershipType, e.ActiveLoans,
	)
}

func (e LoanLimitExceededError) Is(target error) bool { return target == ErrPolicyViolation }

// OverdueRenewalError is returned when renewing a loan that is already past its due date.
type OverdueRenewalError struct {
	LoanID             uuid.UUID
	ExpectedReturnDate time.Time
}

func (e OverdueRenewalError) Error() string {
	return fmt.Sprintf("loan %s is overdue since %s and cannot be renewed", e.LoanID, e.ExpectedReturnDate.Format(time.DateOnly))
}

func (e OverdueRenewalError) Is(target error) bool { return target == ErrPolicyViolation }

// LoanNotActiveError is returned when a return or renewal hits a loan whose status does not allow it.
// A second return of the same loan ends up here.
type LoanNotActiveError struct {
	LoanID uuid.UUID
	Status LoanStatus
}

func (e LoanNotActiveError) Error() string {
	return fmt.Sprintf("loan %s is %s", e.LoanID, e.Status)
}

func (e LoanNotActiveError) Is(target error) bool { return target == ErrPolicyViolation }

// InvalidRenewalPeriodError is returned when the requested extension is outside the allowed range.
type InvalidRenewalPeriodError struct {
	AdditionalDays int
	MaxDays        int
}

func (e InvalidRenewalPeriodError) Error() string {
	return fmt.Sprintf("renewal period of %d days is outside the allowed range 1..%d", e.AdditionalDays, e.MaxDays)
}

func (e InvalidRenewalPeriodError) Is(target error) bool { return target == ErrPolicyViolation }

// DuplicateISBNError is returned when a book with the same ISBN is already catalogued.
type DuplicateISBNError struct {
	ISBN string
}

func (e DuplicateISBNError) Error() string {
	return fmt.Sprintf("a book with isbn %s already exists", e.ISBN)
}

func (e DuplicateISBNError) Is(target error) bool { return target == ErrPolicyViolation }

// DuplicateMemberNumberError is returned when the member number is already taken.
type DuplicateMemberNumberError struct {
	MemberNumber string
}

func (e DuplicateMemberNumberError) Error() string {
	return fmt.Sprintf("a member with number %s already exists", e.MemberNumber)
}

func (e DuplicateMemberNumberError) Is(target error) bool { return target == ErrPolicyViolation }

// DuplicateUsernameError is returned when the username is already taken.
type DuplicateUsernameError struct {
	Username string
}

func (e DuplicateUsernameError) Error() string {
	return fmt.Sprintf("a user with username %s already exists", e.Username)
}

func (e DuplicateUsernameError) Is(target error) bool { return target == ErrPolicyViolation }

// StockInvariantViolationError is returned when a stock mutation would break 0 <= available <= total.
type StockInvariantViolationError struct {
	BookID         uuid.UUID
	AvailableStock int
	TotalStock     int
	Delta          int
}

func (e StockInvariantViolationError) Error() string {
	return fmt.Sprintf(
		"stock of book %s would become %d of %d",
		e.BookID, e.AvailableStock+e.Delta, e.TotalStock,
	)
}

func (e StockInvariantViolationError) Is(target error) bool { return target == ErrInvariantViolation }
