package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MembershipType is the tier of a member, which determines how many loans they may hold at once.
type MembershipType string

const (
	MembershipBasic   MembershipType = "BASIC"
	MembershipPremium MembershipType = "PREMIUM"
	MembershipVIP     MembershipType = "VIP"
)

const (
	maxConcurrentLoansBasic   = 3
	maxConcurrentLoansPremium = 5
	maxConcurrentLoansVIP     = 10
)

// ParseMembershipType accepts the tier name case-insensitively.
func ParseMembershipType(s string) (MembershipType, error) {
	switch t := MembershipType(strings.ToUpper(strings.TrimSpace(s))); t {
	case MembershipBasic, MembershipPremium, MembershipVIP:
		return t, nil
	default:
		return "", ErrUnknownMembership
	}
}

// MaxConcurrentLoans returns the tier's limit of simultaneously active loans.
// Unknown tiers get zero, which makes them unable to borrow.
func MaxConcurrentLoans(t MembershipType) int {
	switch t {
	case MembershipBasic:
		return maxConcurrentLoansBasic
	case MembershipPremium:
		return maxConcurrentLoansPremium
	case MembershipVIP:
		return maxConcurrentLoansVIP
	default:
		return 0
	}
}

// Member is a registered library patron.
type Member struct {
	ID               uuid.UUID
	MemberNumber     string
	FirstName        string
	LastName         string
	DocumentID       string
	Email            string
	Phone            string
	Address          string
	RegistrationDate time.Time
	Active           bool
	MembershipType   MembershipType
}

// FullName joins first and last name.
func (m Member) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// NewMember is the input for registering a member.
type NewMember struct {
	MemberNumber   string
	FirstName      string
	LastName       string
	DocumentID     string
	Email          string
	Phone          string
	Address        string
	MembershipType MembershipType
}

// BuildMember validates the input and returns an active member registered on the given day.
// An empty membership type defaults to BASIC.
func BuildMember(id uuid.UUID, input NewMember, registeredAt time.Time) (Member, error) {
	number := strings.TrimSpace(input.MemberNumber)
	if number == "" {
		return Member{}, ErrEmptyMemberNumber
	}

	tier := input.MembershipType
	if tier == "" {
		tier = MembershipBasic
	}

	if MaxConcurrentLoans(tier) == 0 {
		return Member{}, ErrUnknownMembership
	}

	return Member{
		ID:               id,
		MemberNumber:     number,
		FirstName:        input.FirstName,
		LastName:         input.LastName,
		DocumentID:       input.DocumentID,
		Email:            input.Email,
		Phone:            input.Phone,
		Address:          input.Address,
		RegistrationDate: ToDate(registeredAt),
		Active:           true,
		MembershipType:   tier,
	}, nil
}

// CanBorrow reports whether the member may take out one more loan.
func CanBorrow(member Member, currentActiveLoanCount int) bool {
	return member.Active && currentActiveLoanCount < MaxConcurrentLoans(member.MembershipType)
}

// CheckBorrowingEligibility returns the policy error that prevents the member from borrowing, if any.
func CheckBorrowingEligibility(member Member, currentActiveLoanCount int) error {
	if !member.Active {
		return InactiveMemberError{MemberNumber: member.MemberNumber}
	}

	if !CanBorrow(member, currentActiveLoanCount) {
		return LoanLimitExceededError{
			MemberNumber:   member.MemberNumber,
			MembershipType: member.MembershipType,
			ActiveLoans:    currentActiveLoanCount,
			MaxLoans:       MaxConcurrentLoans(member.MembershipType),
		}
	}

	return nil
}

// BorrowingEligibility is a read-only preview of whether a member could borrow right now.
type BorrowingEligibility struct {
	MemberID     uuid.UUID
	MemberNumber string
	Active       bool
	ActiveLoans  int
	MaxLoans     int

	// Reason is the policy error a borrow attempt would fail with, nil if none.
	Reason error
}

func (e BorrowingEligibility) CanBorrow() bool {
	return e.Reason == nil
}

// EvaluateEligibility applies CheckBorrowingEligibility without failing.
func EvaluateEligibility(member Member, currentActiveLoanCount int) BorrowingEligibility {
	return BorrowingEligibility{
		MemberID:     member.ID,
		MemberNumber: member.MemberNumber,
		Active:       member.Active,
		ActiveLoans:  currentActiveLoanCount,
		MaxLoans:     MaxConcurrentLoans(member.MembershipType),
		Reason:       CheckBorrowingEligibility(member, currentActiveLoanCount),
	}
}
