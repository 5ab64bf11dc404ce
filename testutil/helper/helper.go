package helper

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-circulation-go/circulation"
	"github.com/AntonStoeckl/library-circulation-go/core"
)

var fixtureSequence atomic.Int64

func GivenUniqueID(t testing.TB) uuid.UUID {
	id, err := uuid.NewV7()
	require.NoError(t, err, "error in arranging test data")

	return id
}

// UniqueSuffix returns a process-wide unique string for ISBNs, member numbers and usernames.
func UniqueSuffix() string {
	return strconv.FormatInt(time.Now().UnixNano(), 36) + "-" + strconv.FormatInt(fixtureSequence.Add(1), 10)
}

// FixedClock is a circulation.Clock that only moves when told to.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFixedClock(now time.Time) *FixedClock {
	return &FixedClock{now: now}
}

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

// AdvanceDays moves the clock forward by whole days.
func (c *FixedClock) AdvanceDays(days int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.AddDate(0, 0, days)
}

func (c *FixedClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = now
}

// Date builds a UTC calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func GivenBookWasAdded(t testing.TB, ctx context.Context, c *circulation.Coordinator, copies int) core.Book {
	t.Helper()

	book, err := c.AddBook(ctx, core.NewBook{
		ISBN:            "978-" + UniqueSuffix(),
		Title:           "Domain-Driven Design",
		Author:          "Eric Evans",
		Publisher:       "Addison-Wesley",
		PublicationYear: 2003,
		Category:        "Software",
		TotalStock:      copies,
	})
	require.NoError(t, err, "error in arranging test data")

	return book
}

func GivenMemberWasRegistered(t testing.TB, ctx context.Context, c *circulation.Coordinator, tier core.MembershipType) core.Member {
	t.Helper()

	member, err := c.RegisterMember(ctx, core.NewMember{
		MemberNumber:   "M-" + UniqueSuffix(),
		FirstName:      "Ada",
		LastName:       "Lovelace",
		Email:          "ada@example.org",
		MembershipType: tier,
	})
	require.NoError(t, err, "error in arranging test data")

	return member
}

func GivenMemberWasDeactivated(t testing.TB, ctx context.Context, c *circulation.Coordinator, memberID uuid.UUID) {
	t.Helper()

	_, err := c.SetMemberActive(ctx, memberID, false)
	require.NoError(t, err, "error in arranging test data")
}

func GivenUserWasRegistered(t testing.TB, ctx context.Context, c *circulation.Coordinator) core.User {
	t.Helper()

	user, err := c.RegisterUser(ctx, core.NewUser{
		Username:  "librarian-" + UniqueSuffix(),
		FirstName: "Melvil",
		LastName:  "Dewey",
		Role:      core.RoleLibrarian,
	})
	require.NoError(t, err, "error in arranging test data")

	return user
}

func GivenLoanWasCreated(
	t testing.TB,
	ctx context.Context,
	c *circulation.Coordinator,
	memberID, bookID, userID uuid.UUID,
) core.Loan {

	t.Helper()

	loan, err := c.CreateLoan(ctx, memberID, bookID, userID)
	require.NoError(t, err, "error in arranging test data")

	return loan
}
