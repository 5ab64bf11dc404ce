package core_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-circulation-go/core"
)

func Test_MaxConcurrentLoans(t *testing.T) {
	assert.Equal(t, 3, core.MaxConcurrentLoans(core.MembershipBasic))
	assert.Equal(t, 5, core.MaxConcurrentLoans(core.MembershipPremium))
	assert.Equal(t, 10, core.MaxConcurrentLoans(core.MembershipVIP))
	assert.Equal(t, 0, core.MaxConcurrentLoans("GOLD"))
}

func Test_CanBorrow(t *testing.T) {
	testCases := []struct {
		description string
		tier        core.MembershipType
		active      bool
		loans       int
		want        bool
	}{
		{description: "basic below limit", tier: core.MembershipBasic, active: true, loans: 2, want: true},
		{description: "basic at limit", tier: core.MembershipBasic, active: true, loans: 3, want: false},
		{description: "premium below limit", tier: core.MembershipPremium, active: true, loans: 4, want: true},
		{description: "vip at limit", tier: core.MembershipVIP, active: true, loans: 10, want: false},
		{description: "inactive with no loans", tier: core.MembershipVIP, active: false, loans: 0, want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			member := core.Member{MemberNumber: "M-1", Active: tc.active, MembershipType: tc.tier}

			assert.Equal(t, tc.want, core.CanBorrow(member, tc.loans))
		})
	}
}

func Test_CheckBorrowingEligibility_NamesTheLimit(t *testing.T) {
	// arrange
	member := core.Member{MemberNumber: "M-42", Active: true, MembershipType: core.MembershipBasic}

	// act
	err := core.CheckBorrowingEligibility(member, 3)

	// assert
	var limitErr core.LoanLimitExceededError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, 3, limitErr.MaxLoans)
	assert.Equal(t, "M-42", limitErr.MemberNumber)
	assert.ErrorIs(t, err, core.ErrPolicyViolation)
}

func Test_CheckBorrowingEligibility_InactiveWinsOverLimit(t *testing.T) {
	member := core.Member{MemberNumber: "M-42", Active: false, MembershipType: core.MembershipBasic}

	err := core.CheckBorrowingEligibility(member, 3)

	assertPolicyViolation[core.InactiveMemberError](t, err)
}

func Test_EvaluateEligibility(t *testing.T) {
	member := core.Member{ID: uuid.New(), MemberNumber: "M-42", Active: true, MembershipType: core.MembershipPremium}

	eligible := core.EvaluateEligibility(member, 4)
	atLimit := core.EvaluateEligibility(member, 5)

	assert.True(t, eligible.CanBorrow())
	assert.Equal(t, member.ID, eligible.MemberID)
	assert.Equal(t, 4, eligible.ActiveLoans)
	assert.Equal(t, 5, eligible.MaxLoans)

	assert.False(t, atLimit.CanBorrow())
	assert.ErrorIs(t, atLimit.Reason, core.ErrPolicyViolation)
}

func Test_NotFoundErrors_NameTheLookupKey(t *testing.T) {
	assert.Equal(t, `book with isbn "978-1" not found`, core.BookNotFoundError{ISBN: "978-1"}.Error())
	assert.Equal(t, `member with number "M-1" not found`, core.MemberNotFoundError{MemberNumber: "M-1"}.Error())
	assert.ErrorIs(t, core.BookNotFoundError{ISBN: "978-1"}, core.ErrNotFound)
}

func Test_BuildMember_DefaultsToBasicAndActive(t *testing.T) {
	// act
	member, err := core.BuildMember(uuid.New(), core.NewMember{MemberNumber: " M-7 ", FirstName: "Ada", LastName: "Lovelace"}, time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC))

	// assert
	require.NoError(t, err)
	assert.Equal(t, "M-7", member.MemberNumber)
	assert.Equal(t, core.MembershipBasic, member.MembershipType)
	assert.True(t, member.Active)
	assert.Equal(t, date(2024, 1, 2), member.RegistrationDate)
	assert.Equal(t, "Ada Lovelace", member.FullName())
}

func Test_BuildMember_Error(t *testing.T) {
	_, err := core.BuildMember(uuid.New(), core.NewMember{}, time.Now())
	assert.ErrorIs(t, err, core.ErrEmptyMemberNumber)

	_, err = core.BuildMember(uuid.New(), core.NewMember{MemberNumber: "M-1", MembershipType: "GOLD"}, time.Now())
	assert.ErrorIs(t, err, core.ErrUnknownMembership)
}

func Test_ParseMembershipType(t *testing.T) {
	tier, err := core.ParseMembershipType("premium")
	require.NoError(t, err)
	assert.Equal(t, core.MembershipPremium, tier)

	_, err = core.ParseMembershipType("gold")
	assert.ErrorIs(t, err, core.ErrUnknownMembership)
}

func Test_BuildUser(t *testing.T) {
	user, err := core.BuildUser(uuid.New(), core.NewUser{Username: "jdoe", Role: "librarian"})
	require.NoError(t, err)
	assert.Equal(t, core.RoleLibrarian, user.Role)
	assert.True(t, user.Active)

	_, err = core.BuildUser(uuid.New(), core.NewUser{Username: "jdoe", Role: "janitor"})
	assert.ErrorIs(t, err, core.ErrUnknownUserRole)

	_, err = core.BuildUser(uuid.New(), core.NewUser{Role: core.RoleAssistant})
	assert.ErrorIs(t, err, core.ErrEmptyUsername)
}
