package circulation

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/AntonStoeckl/library-circulation-go/core"
)

const (
	DefaultMaxLoanDays    = 15
	DefaultMaxRenewalDays = 30
)

// DefaultPenaltyPerDay is the fine charged per overdue day.
var DefaultPenaltyPerDay = decimal.RequireFromString("1.50")

var ErrInvalidPolicy = errors.New("invalid circulation policy")

// Policy holds the tunable circulation rules.
type Policy struct {
	MaxLoanDays    int
	PenaltyPerDay  decimal.Decimal
	MaxRenewalDays int
}

func DefaultPolicy() Policy {
	return Policy{
		MaxLoanDays:    DefaultMaxLoanDays,
		PenaltyPerDay:  DefaultPenaltyPerDay,
		MaxRenewalDays: DefaultMaxRenewalDays,
	}
}

// Validate reports the first rule that is out of range.
func (p Policy) Validate() error {
	if p.MaxLoanDays < 1 {
		return fmt.Errorf("%w: max loan days must be at least 1, got %d", ErrInvalidPolicy, p.MaxLoanDays)
	}

	if p.PenaltyPerDay.IsNegative() {
		return errors.Join(ErrInvalidPolicy, core.ErrNegativePenaltyRate)
	}

	// penalties are stored with two decimal places
	if !p.PenaltyPerDay.Equal(p.PenaltyPerDay.Round(2)) {
		return fmt.Errorf("%w: penalty per day must be whole cents, got %s", ErrInvalidPolicy, p.PenaltyPerDay)
	}

	if p.MaxRenewalDays < 1 {
		return fmt.Errorf("%w: max renewal days must be at least 1, got %d", ErrInvalidPolicy, p.MaxRenewalDays)
	}

	return nil
}
