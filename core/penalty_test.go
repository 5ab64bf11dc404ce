package core_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/library-circulation-go/core"
)

func Test_CalculatePenalty(t *testing.T) {
	expected := date(2024, 3, 25)

	testCases := []struct {
		description    string
		comparisonDate time.Time
		want           string
	}{
		{description: "returned long before due", comparisonDate: date(2024, 3, 1), want: "0"},
		{description: "returned on the due date", comparisonDate: expected, want: "0"},
		{description: "late in the evening of the due date", comparisonDate: expected.Add(23*time.Hour + 59*time.Minute), want: "0"},
		{description: "one day late", comparisonDate: date(2024, 3, 26), want: "1.5"},
		{description: "five days late", comparisonDate: date(2024, 3, 30), want: "7.5"},
		{description: "across a month boundary", comparisonDate: date(2024, 4, 4), want: "15"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			// act
			penalty := core.CalculatePenalty(expected, tc.comparisonDate, penaltyPerDay)

			// assert
			assert.True(t, decimal.RequireFromString(tc.want).Equal(penalty), "want %s, got %s", tc.want, penalty)
		})
	}
}

func Test_CalculatePenalty_IsDeterministic(t *testing.T) {
	expected := date(2024, 3, 25)
	comparison := date(2024, 4, 2)

	first := core.CalculatePenalty(expected, comparison, penaltyPerDay)
	second := core.CalculatePenalty(expected, comparison, penaltyPerDay)

	assert.True(t, first.Equal(second))
	assert.Equal(t, 8, core.OverdueDays(expected, comparison))
}

func Test_IsOverdue_StrictCalendarDateComparison(t *testing.T) {
	loan := givenActiveLoan(date(2024, 3, 10)) // due 2024-03-25

	assert.False(t, core.IsOverdue(loan, date(2024, 3, 25).Add(23*time.Hour)))
	assert.True(t, core.IsOverdue(loan, date(2024, 3, 26)))

	loan.Status = core.LoanStatusReturned
	assert.False(t, core.IsOverdue(loan, date(2024, 4, 26)), "closed loans are never overdue")
}

func Test_PenaltyFor_UsesActualReturnDateWhenReturned(t *testing.T) {
	// arrange
	loan := givenActiveLoan(date(2024, 3, 10))
	returned, _ := loan.Return(date(2024, 3, 27), penaltyPerDay)

	// act
	penaltyLater := core.PenaltyFor(returned, date(2024, 6, 1), penaltyPerDay)
	penaltyStillOpen := core.PenaltyFor(loan, date(2024, 3, 28), penaltyPerDay)

	// assert
	assert.Equal(t, "3", penaltyLater.String())
	assert.Equal(t, "4.5", penaltyStillOpen.String())
}

func Test_DaysBetween_IgnoresTimeOfDayAndLocation(t *testing.T) {
	berlin := time.FixedZone("CET", 3600)

	from := time.Date(2024, 3, 10, 23, 30, 0, 0, berlin)
	to := time.Date(2024, 3, 11, 0, 15, 0, 0, berlin)

	assert.Equal(t, 1, core.DaysBetween(from, to))
	assert.Equal(t, -1, core.DaysBetween(to, from))
}
