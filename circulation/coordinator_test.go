package circulation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-circulation-go/circulation"
	"github.com/AntonStoeckl/library-circulation-go/core"
	"github.com/AntonStoeckl/library-circulation-go/store"
	"github.com/AntonStoeckl/library-circulation-go/store/memengine"
	. "github.com/AntonStoeckl/library-circulation-go/testutil/helper"
)

var loanDay = time.Date(2024, time.March, 1, 10, 30, 0, 0, time.UTC)

type fixture struct {
	ctx         context.Context
	store       *memengine.Store
	clock       *FixedClock
	coordinator *circulation.Coordinator
	user        core.User
}

func givenFixture(t *testing.T, opts ...circulation.Option) fixture {
	t.Helper()

	s := memengine.NewStore()
	clock := NewFixedClock(loanDay)

	coordinator, err := circulation.New(s, clock, circulation.DefaultPolicy(), opts...)
	require.NoError(t, err, "error in arranging test data")

	ctx := context.Background()

	return fixture{
		ctx:         ctx,
		store:       s,
		clock:       clock,
		coordinator: coordinator,
		user:        GivenUserWasRegistered(t, ctx, coordinator),
	}
}

func Test_CreateLoan_OpensActiveLoanAndTakesOneCopy(t *testing.T) {
	// arrange
	f := givenFixture(t)
	book := GivenBookWasAdded(t, f.ctx, f.coordinator, 2)
	member := GivenMemberWasRegistered(t, f.ctx, f.coordinator, core.MembershipBasic)

	// act
	loan, err := f.coordinator.CreateLoan(f.ctx, member.ID, book.ID, f.user.ID)

	// assert
	require.NoError(t, err)
	assert.Equal(t, core.LoanStatusActive, loan.Status)
	assert.Equal(t, Date(2024, time.March, 1), loan.LoanDate)
	assert.Equal(t, Date(2024, time.March, 16), loan.ExpectedReturnDate)
	assert.Nil(t, loan.ActualReturnDate)
	assert.True(t, loan.Penalty.IsZero())
	assert.Equal(t, uuid.Version(7), loan.ID.Version())
	assertAvailableStock(t, f, book.ID, 1)

	stored, err := f.coordinator.FindLoanByID(f.ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, loan, stored)
}

func Test_Scenario_SingleCopyBook_SecondBorrowerRejected_LateReturnChargesPenalty(t *testing.T) {
	// arrange
	f := givenFixture(t)
	book := GivenBookWasAdded(t, f.ctx, f.coordinator, 1)
	memberA := GivenMemberWasRegistered(t, f.ctx, f.coordinator, core.MembershipBasic)
	memberB := GivenMemberWasRegistered(t, f.ctx, f.coordinator, core.MembershipBasic)

	// act
	loan, err := f.coordinator.CreateLoan(f.ctx, memberA.ID, book.ID, f.user.ID)
	require.NoError(t, err)
	assertAvailableStock(t, f, book.ID, 0)

	_, rejectedErr := f.coordinator.CreateLoan(f.ctx, memberB.ID, book.ID, f.user.ID)

	f.clock.AdvanceDays(20)
	returned, returnErr := f.coordinator.ReturnBook(f.ctx, loan.ID)

	// assert
	var notAvailable core.BookNotAvailableError
	require.ErrorAs(t, rejectedErr, &notAvailable)
	assert.Equal(t, book.ISBN, notAvailable.ISBN)
	assert.ErrorIs(t, rejectedErr, core.ErrPolicyViolation)

	require.NoError(t, returnErr)
	assert.Equal(t, core.LoanStatusOverdue, returned.Status)
	assert.True(t, decimal.RequireFromString("7.50").Equal(returned.Penalty), "penalty was %s", returned.Penalty)
	require.NotNil(t, returned.ActualReturnDate)
	assert.Equal(t, Date(2024, time.March, 21), *returned.ActualReturnDate)
	assertAvailableStock(t, f, book.ID, 1)
}

func Test_Scenario_BasicMemberWithThreeLoans_FourthRejectedNamingMaxThree(t *testing.T) {
	// arrange
	f := givenFixture(t)
	member := GivenMemberWasRegistered(t, f.ctx, f.coordinator, core.MembershipBasic)

	for range 3 {
		book := GivenBookWasAdded(t, f.ctx, f.coordinator, 1)
		GivenLoanWasCreated(t, f.ctx, f.coordinator, member.ID, book.ID, f.user.ID)
	}

	fourth := GivenBookWasAdded(t, f.ctx, f.coordinator, 1)

	// act
	_, err := f.coordinator.CreateLoan(f.ctx, member.ID, fourth.ID, f.user.ID)

	// assert
	var limitErr core.LoanLimitExceededError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, 3, limitErr.MaxLoans)
	assert.Equal(t, 3, limitErr.ActiveLoans)
	assert.Contains(t, err.Error(), "3")
	assertAvailableStock(t, f, fourth.ID, 1)
}

func Test_CreateLoan_RenewedLoansCountAgainstTheLimit(t *testing.T) {
	// arrange
	f := givenFixture(t)
	member := GivenMemberWasRegistered(t, f.ctx, f.coordinator, core.MembershipBasic)

	for range 3 {
		book := GivenBookWasAdded(t, f.ctx, f.coordinator, 1)
		loan := GivenLoanWasCreated(t, f.ctx, f.coordinator, member.ID, book.ID, f.user.ID)
		_, err := f.coordinator.RenewLoan(f.ctx, loan.ID, 5)
		require.NoError(t, err, "error in arranging test data")
	}

	book := GivenBookWasAdded(t, f.ctx, f.coordinator, 1)

	// act
	_, err := f.coordinator.CreateLoan(f.ctx, member.ID, book.ID, f.user.ID)

	// assert
	assert.ErrorAs(t, err, &core.LoanLimitExceededError{})
}

func Test_CreateLoan_ReturnedLoansFreeASlot(t *testing.T) {
	// arrange
	f := givenFixture(t)
	member := GivenMemberWasRegistered(t, f.ctx, f.coordinator, core.MembershipBasic)

	var first core.Loan
	for i := range 3 {
		book := GivenBookWasAdded(t, f.ctx, f.coordinator, 1)
		loan := GivenLoanWasCreated(t, f.ctx, f.coordinator, member.ID, book.ID, f.user.ID)
		if i == 0 {
			first = loan
		}
	}

	_, err := f.coordinator.ReturnBook(f.ctx, first.ID)
	require.NoError(t, err, "error in arranging test data")

	book := GivenBookWasAdded(t, f.ctx, f.coordinator, 1)

	// act
	_, err = f.coordinator.CreateLoan(f.ctx, member.ID, book.ID, f.user.ID)

	// assert
	assert.NoError(t, err)
}

func Test_CreateLoan_PreconditionsFailInOrder(t *testing.T) {
	f := givenFixture(t)

	available := GivenBookWasAdded(t, f.ctx, f.coordinator, 1)
	exhausted := GivenBookWasAdded(t, f.ctx, f.coordinator, 1)
	activeMember := GivenMemberWasRegistered(t, f.ctx, f.coordinator, core.MembershipBasic)
	GivenLoanWasCreated(t, f.ctx, f.coordinator, activeMember.ID, exhausted.ID, f.user.ID)

	inactiveMember := GivenMemberWasRegistered(t, f.ctx, f.coordinator, core.MembershipBasic)
	GivenMemberWasDeactivated(t, f.ctx, f.coordinator, inactiveMember.ID)

	unknown := GivenUniqueID(t)

	testCases := []struct {
		description string
		memberID    uuid.UUID
		bookID      uuid.UUID
		userID      uuid.UUID
		expected    error
		category    error
	}{
		{"unknown member wins over everything", unknown, unknown, unknown,
			core.MemberNotFoundError{MemberID: unknown}, core.ErrNotFound},
		{"inactive member wins over unknown book", inactiveMember.ID, unknown, unknown,
			core.InactiveMemberError{MemberNumber: inactiveMember.MemberNumber}, core.ErrPolicyViolation},
		{"unknown book wins over unknown user", activeMember.ID, unknown, unknown,
			core.BookNotFoundError{BookID: unknown}, core.ErrNotFound},
		{"unavailable book wins over unknown user", activeMember.ID, exhausted.ID, unknown,
			core.BookNotAvailableError{ISBN: exhausted.ISBN, Title: exhausted.Title}, core.ErrPolicyViolation},
		{"unknown user", activeMember.ID, available.ID, unknown,
			core.UserNotFoundError{UserID: unknown}, core.ErrNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			// act
			_, err := f.coordinator.CreateLoan(f.ctx, tc.memberID, tc.bookID, tc.userID)

			// assert
			assert.Equal(t, tc.expected, err)
			assert.ErrorIs(t, err, tc.category)
		})
	}

	assertAvailableStock(t, f, available.ID, 1)
}

func Test_ReturnBook_OnOrBeforeDueDate_EndsReturnedWithoutPenalty(t *testing.T) {
	testCases := []struct {
		description string
		daysLater   int
	}{
		{"same day", 0},
		{"before due date", 10},
		{"on due date", 15},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			// arrange
			f := givenFixture(t)
			book := GivenBookWasAdded(t, f.ctx, f.coordinator, 1)
			member := GivenMemberWasRegistered(t, f.ctx, f.coordinator, core.MembershipBasic)
			loan := GivenLoanWasCreated(t, f.ctx, f.coordinator, member.ID, book.ID, f.user.ID)
			f.clock.AdvanceDays(tc.daysLater)

			// act
			returned, err := f.coordinator.ReturnBook(f.ctx, loan.ID)

			// assert
			require.NoError(t, err)
			assert.Equal(t, core.LoanStatusReturned, returned.Status)
			assert.True(t, returned.Penalty.IsZero())
			assertAvailableStock(t, f, book.ID, 1)
		})
	}
}

func Test_ReturnBook_Twice_FailsWithoutTouchingStock(t *testing.T) {
	// arrange
	f := givenFixture(t)
	book := GivenBookWasAdded(t, f.ctx, f.coordinator, 2)
	member := GivenMemberWasRegistered(t, f.ctx, f.coordinator, core.MembershipBasic)
	loan := GivenLoanWasCreated(t, f.ctx, f.coordinator, member.ID, book.ID, f.user.ID)
	first, err := f.coordinator.ReturnBook(f.ctx, loan.ID)
	require.NoError(t, err, "error in arranging test data")

	// act
	_, err = f.coordinator.ReturnBook(f.ctx, loan.ID)

	// assert
	var notActive core.LoanNotActiveError
	require.ErrorAs(t, err, &notActive)
	assert.Equal(t, core.LoanStatusReturned, notActive.Status)
	assertAvailableStock(t, f, book.ID, 2)

	stored, err := f.coordinator.FindLoanByID(f.ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, first, stored)
}

func Test_ReturnBook_Error_WhenLoanUnknown(t *testing.T) {
	f := givenFixture(t)
	loanID := GivenUniqueID(t)

	_, err := f.coordinator.ReturnBook(f.ctx, loanID)

	assert.Equal(t, core.LoanNotFoundError{LoanID: loanID}, err)
}

func Test_ReturnBook_RenewedLoanCanBeReturned(t *testing.T) {
	// arrange
	f := givenFixture(t)
	book := GivenBookWasAdded(t, f.ctx, f.coordinator, 1)
	member := GivenMemberWasRegistered(t, f.ctx, f.coordinator, core.MembershipBasic)
	loan := GivenLoanWasCreated(t, f.ctx, f.coordinator, member.ID, book.ID, f.user.ID)
	_, err := f.coordinator.RenewLoan(f.ctx, loan.ID, 10)
	require.NoError(t, err, "error in arranging test data")
	f.clock.AdvanceDays(20)

	// act
	returned, err := f.coordinator.ReturnBook(f.ctx, loan.ID)

	// assert
	require.NoError(t, err)
	assert.Equal(t, core.LoanStatusReturned, returned.Status)
	assertAvailableStock(t, f, book.ID, 1)
}

func Test_RenewLoan_ExtendsDueDateWithoutTouchingStock(t *testing.T) {
	// arrange
	f := givenFixture(t)
	book := GivenBookWasAdded(t, f.ctx, f.coordinator, 1)
	member := GivenMemberWasRegistered(t, f.ctx, f.coordinator, core.MembershipBasic)
	loan := GivenLoanWasCreated(t, f.ctx, f.coordinator, member.ID, book.ID, f.user.ID)

	// act
	renewed, err := f.coordinator.RenewLoan(f.ctx, loan.ID, 10)

	// assert
	require.NoError(t, err)
	assert.Equal(t, core.LoanStatusRenewed, renewed.Status)
	assert.Equal(t, Date(2024, time.March, 26), renewed.ExpectedReturnDate)
	assert.Equal(t, loan.LoanDate, renewed.LoanDate)
	assertAvailableStock(t, f, book.ID, 0)
}

func Test_RenewLoan_Rejections(t *testing.T) {
	testCases := []struct {
		description    string
		arrange        func(t *testing.T, f fixture, loan core.Loan)
		additionalDays int
		expectedType   error
	}{
		{
			description:    "zero days",
			arrange:        func(*testing.T, fixture, core.Loan) {},
			additionalDays: 0,
			expectedType:   core.InvalidRenewalPeriodError{AdditionalDays: 0, MaxDays: 30},
		},
		{
			description:    "more than 30 days",
			arrange:        func(*testing.T, fixture, core.Loan) {},
			additionalDays: 31,
			expectedType:   core.InvalidRenewalPeriodError{AdditionalDays: 31, MaxDays: 30},
		},
		{
			description: "overdue loan",
			arrange: func(_ *testing.T, f fixture, _ core.Loan) {
				f.clock.AdvanceDays(16)
			},
			additionalDays: 5,
			expectedType:   core.OverdueRenewalError{},
		},
		{
			description: "already renewed",
			arrange: func(t *testing.T, f fixture, loan core.Loan) {
				_, err := f.coordinator.RenewLoan(f.ctx, loan.ID, 5)
				require.NoError(t, err, "error in arranging test data")
			},
			additionalDays: 5,
			expectedType:   core.LoanNotActiveError{},
		},
		{
			description: "returned loan",
			arrange: func(t *testing.T, f fixture, loan core.Loan) {
				_, err := f.coordinator.ReturnBook(f.ctx, loan.ID)
				require.NoError(t, err, "error in arranging test data")
			},
			additionalDays: 5,
			expectedType:   core.LoanNotActiveError{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			// arrange
			f := givenFixture(t)
			book := GivenBookWasAdded(t, f.ctx, f.coordinator, 1)
			member := GivenMemberWasRegistered(t, f.ctx, f.coordinator, core.MembershipBasic)
			loan := GivenLoanWasCreated(t, f.ctx, f.coordinator, member.ID, book.ID, f.user.ID)
			tc.arrange(t, f, loan)
			before, err := f.coordinator.FindLoanByID(f.ctx, loan.ID)
			require.NoError(t, err, "error in arranging test data")

			// act
			_, err = f.coordinator.RenewLoan(f.ctx, loan.ID, tc.additionalDays)

			// assert
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrPolicyViolation)
			assert.IsType(t, tc.expectedType, err)

			if invalid, ok := tc.expectedType.(core.InvalidRenewalPeriodError); ok {
				assert.Equal(t, invalid, err)
			}

			after, err := f.coordinator.FindLoanByID(f.ctx, loan.ID)
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func Test_CalculatePenalty(t *testing.T) {
	// arrange
	f := givenFixture(t)
	book := GivenBookWasAdded(t, f.ctx, f.coordinator, 1)
	member := GivenMemberWasRegistered(t, f.ctx, f.coordinator, core.MembershipBasic)
	loan := GivenLoanWasCreated(t, f.ctx, f.coordinator, member.ID, book.ID, f.user.ID)

	// act
	onTime, onTimeErr := f.coordinator.CalculatePenalty(f.ctx, loan.ID)
	f.clock.AdvanceDays(17)
	late, lateErr := f.coordinator.CalculatePenalty(f.ctx, loan.ID)
	_, unknownErr := f.coordinator.CalculatePenalty(f.ctx, GivenUniqueID(t))

	// assert
	require.NoError(t, onTimeErr)
	assert.True(t, onTime.IsZero())

	require.NoError(t, lateErr)
	assert.True(t, decimal.RequireFromString("3.00").Equal(late), "penalty was %s", late)

	assert.ErrorIs(t, unknownErr, core.ErrNotFound)
	assertAvailableStock(t, f, book.ID, 0)
}

func Test_CalculatePenalty_ClosedLoanIsMeasuredAgainstItsReturnDate(t *testing.T) {
	// arrange
	f := givenFixture(t)
	book := GivenBookWasAdded(t, f.ctx, f.coordinator, 1)
	member := GivenMemberWasRegistered(t, f.ctx, f.coordinator, core.MembershipBasic)
	loan := GivenLoanWasCreated(t, f.ctx, f.coordinator, member.ID, book.ID, f.user.ID)
	f.clock.AdvanceDays(18)
	returned, err := f.coordinator.ReturnBook(f.ctx, loan.ID)
	require.NoError(t, err, "error in arranging test data")
	f.clock.AdvanceDays(30)

	// act
	penalty, err := f.coordinator.CalculatePenalty(f.ctx, loan.ID)

	// assert
	require.NoError(t, err)
	assert.True(t, returned.Penalty.Equal(penalty), "expected %s, got %s", returned.Penalty, penalty)
}

func Test_Queries(t *testing.T) {
	// arrange
	f := givenFixture(t)
	member := GivenMemberWasRegistered(t, f.ctx, f.coordinator, core.MembershipVIP)
	other := GivenMemberWasRegistered(t, f.ctx, f.coordinator, core.MembershipVIP)

	newLoan := func(memberID uuid.UUID) core.Loan {
		book := GivenBookWasAdded(t, f.ctx, f.coordinator, 1)
		return GivenLoanWasCreated(t, f.ctx, f.coordinator, memberID, book.ID, f.user.ID)
	}

	earliest := newLoan(member.ID) // March 1, due March 16

	f.clock.AdvanceDays(5)
	returned := newLoan(member.ID) // March 6
	_, err := f.coordinator.ReturnBook(f.ctx, returned.ID)
	require.NoError(t, err, "error in arranging test data")

	f.clock.AdvanceDays(5)
	renewed := newLoan(member.ID) // March 11
	_, err = f.coordinator.RenewLoan(f.ctx, renewed.ID, 20)
	require.NoError(t, err, "error in arranging test data")

	foreign := newLoan(other.ID) // March 11, due March 26

	f.clock.Set(Date(2024, time.March, 20))

	t.Run("active loans by member include renewed ones", func(t *testing.T) {
		loans, err := f.coordinator.GetActiveLoansByMember(f.ctx, member.ID)

		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{earliest.ID, renewed.ID}, loanIDs(loans))
	})

	t.Run("overdue loans are open and past their due date", func(t *testing.T) {
		loans, err := f.coordinator.GetOverdueLoans(f.ctx)

		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{earliest.ID}, loanIDs(loans))
	})

	t.Run("date range includes both ends", func(t *testing.T) {
		loans, err := f.coordinator.GetLoansByDateRange(f.ctx, Date(2024, time.March, 6), Date(2024, time.March, 11))

		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{returned.ID, renewed.ID, foreign.ID}, loanIDs(loans))
	})

	t.Run("inverted date range is empty", func(t *testing.T) {
		loans, err := f.coordinator.GetLoansByDateRange(f.ctx, Date(2024, time.March, 11), Date(2024, time.March, 1))

		require.NoError(t, err)
		assert.Empty(t, loans)
	})

	t.Run("list loans is newest first", func(t *testing.T) {
		loans, err := f.coordinator.ListLoans(f.ctx)

		require.NoError(t, err)
		require.Len(t, loans, 4)
		assert.Equal(t, earliest.ID, loans[3].ID)
		assert.Equal(t, returned.ID, loans[2].ID)
	})
}

func Test_CreateLoan_IsAtomic_WhenStockWriteFails(t *testing.T) {
	// arrange
	f := givenFixture(t)
	book := GivenBookWasAdded(t, f.ctx, f.coordinator, 1)
	member := GivenMemberWasRegistered(t, f.ctx, f.coordinator, core.MembershipBasic)
	failure := errors.Join(store.ErrExecFailed, errors.New("disk full"))

	faulty, err := circulation.New(stockWriteFailingStore{Store: f.store, failure: failure}, f.clock, circulation.DefaultPolicy())
	require.NoError(t, err, "error in arranging test data")

	// act
	_, err = faulty.CreateLoan(f.ctx, member.ID, book.ID, f.user.ID)

	// assert
	assert.ErrorIs(t, err, store.ErrStorageFailure)
	assertAvailableStock(t, f, book.ID, 1)

	loans, err := f.coordinator.ListLoans(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, loans)
}

func Test_ReturnBook_IsAtomic_WhenStockWriteFails(t *testing.T) {
	// arrange
	f := givenFixture(t)
	book := GivenBookWasAdded(t, f.ctx, f.coordinator, 1)
	member := GivenMemberWasRegistered(t, f.ctx, f.coordinator, core.MembershipBasic)
	loan := GivenLoanWasCreated(t, f.ctx, f.coordinator, member.ID, book.ID, f.user.ID)
	failure := errors.Join(store.ErrExecFailed, errors.New("disk full"))

	faulty, err := circulation.New(stockWriteFailingStore{Store: f.store, failure: failure}, f.clock, circulation.DefaultPolicy())
	require.NoError(t, err, "error in arranging test data")

	// act
	_, err = faulty.ReturnBook(f.ctx, loan.ID)

	// assert
	assert.ErrorIs(t, err, store.ErrStorageFailure)
	assertAvailableStock(t, f, book.ID, 0)

	stored, err := f.coordinator.FindLoanByID(f.ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, core.LoanStatusActive, stored.Status)
}

func Test_CreateLoan_ConcurrentBorrowersNeverOverdrawStock(t *testing.T) {
	// arrange
	const copies = 5
	const borrowers = 20

	f := givenFixture(t)
	book := GivenBookWasAdded(t, f.ctx, f.coordinator, copies)

	members := make([]core.Member, borrowers)
	for i := range members {
		members[i] = GivenMemberWasRegistered(t, f.ctx, f.coordinator, core.MembershipBasic)
	}

	// act
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)

	for _, member := range members {
		wg.Add(1)

		go func(memberID uuid.UUID) {
			defer wg.Done()

			_, err := f.coordinator.CreateLoan(f.ctx, memberID, book.ID, f.user.ID)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				succeeded++
			case errors.As(err, &core.BookNotAvailableError{}):
				rejected++
			}
		}(member.ID)
	}

	wg.Wait()

	// assert
	assert.Equal(t, copies, succeeded)
	assert.Equal(t, borrowers-copies, rejected)
	assertAvailableStock(t, f, book.ID, 0)

	loans, err := f.coordinator.ListLoans(f.ctx)
	require.NoError(t, err)
	assert.Len(t, loans, copies)
}

func Test_CreateLoan_And_ReturnBook_RacingOnOneBookConserveStock(t *testing.T) {
	// arrange
	const copies = 3
	const workers = 12
	const cycles = 15

	f := givenFixture(t)
	book := GivenBookWasAdded(t, f.ctx, f.coordinator, copies)

	members := make([]core.Member, workers)
	for i := range members {
		members[i] = GivenMemberWasRegistered(t, f.ctx, f.coordinator, core.MembershipBasic)
	}

	// act
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		unexpected []error
	)

	for _, member := range members {
		wg.Add(1)

		go func(memberID uuid.UUID) {
			defer wg.Done()

			failed := func(err error) {
				mu.Lock()
				defer mu.Unlock()
				unexpected = append(unexpected, err)
			}

			for range cycles {
				loan, err := f.coordinator.CreateLoan(f.ctx, memberID, book.ID, f.user.ID)
				if errors.As(err, &core.BookNotAvailableError{}) {
					continue
				}
				if err != nil {
					failed(err)
					return
				}

				if _, err = f.coordinator.ReturnBook(f.ctx, loan.ID); err != nil {
					failed(err)
					return
				}
			}

			// the last loan stays open
			_, err := f.coordinator.CreateLoan(f.ctx, memberID, book.ID, f.user.ID)
			if err != nil && !errors.As(err, &core.BookNotAvailableError{}) {
				failed(err)
			}
		}(member.ID)
	}

	wg.Wait()

	// assert
	require.Empty(t, unexpected)
	assertStockMatchesOpenLoans(t, f, book.ID)
}

func Test_New_Error_WhenPolicyInvalid(t *testing.T) {
	policy := circulation.DefaultPolicy()
	policy.MaxLoanDays = 0

	_, err := circulation.New(memengine.NewStore(), circulation.SystemClock{}, policy)

	assert.ErrorIs(t, err, circulation.ErrInvalidPolicy)
}

func Test_Policy_Validate_PenaltyPrecision(t *testing.T) {
	testCases := []struct {
		rate  string
		valid bool
	}{
		{"0", true},
		{"1.5", true},
		{"2.25", true},
		{"0.125", false},
		{"1.001", false},
	}

	for _, tc := range testCases {
		t.Run(tc.rate, func(t *testing.T) {
			policy := circulation.DefaultPolicy()
			policy.PenaltyPerDay = decimal.RequireFromString(tc.rate)

			err := policy.Validate()

			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, circulation.ErrInvalidPolicy)
			}
		})
	}
}

func Test_New_Error_WhenStoreNil(t *testing.T) {
	_, err := circulation.New(nil, circulation.SystemClock{}, circulation.DefaultPolicy())

	assert.ErrorIs(t, err, circulation.ErrNilStore)
}

func assertAvailableStock(t *testing.T, f fixture, bookID uuid.UUID, expected int) {
	t.Helper()

	book, err := f.coordinator.FindBookByID(f.ctx, bookID)
	require.NoError(t, err)
	assert.Equal(t, expected, book.AvailableStock, "available stock")
	assert.GreaterOrEqual(t, book.AvailableStock, 0)
	assert.LessOrEqual(t, book.AvailableStock, book.TotalStock)
}

func assertStockMatchesOpenLoans(t *testing.T, f fixture, bookID uuid.UUID) {
	t.Helper()

	book, err := f.coordinator.FindBookByID(f.ctx, bookID)
	require.NoError(t, err)

	loans, err := f.coordinator.ListLoans(f.ctx)
	require.NoError(t, err)

	open := 0
	for _, loan := range loans {
		if loan.BookID == bookID && loan.Status.IsActive() {
			open++
		}
	}

	assert.Equal(t, book.TotalStock-open, book.AvailableStock, "available stock must equal total minus open loans")
	assert.GreaterOrEqual(t, book.AvailableStock, 0)
}

func loanIDs(loans []core.Loan) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(loans))
	for _, loan := range loans {
		ids = append(ids, loan.ID)
	}

	return ids
}

// stockWriteFailingStore injects a failure into every stock write.
type stockWriteFailingStore struct {
	store.Store
	failure error
}

func (s stockWriteFailingStore) WithinTx(ctx context.Context, fn store.TxFunc) error {
	return s.Store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return fn(ctx, stockWriteFailingTx{Tx: tx, failure: s.failure})
	})
}

type stockWriteFailingTx struct {
	store.Tx
	failure error
}

func (tx stockWriteFailingTx) UpdateBookStock(context.Context, core.Book) error {
	return tx.failure
}
