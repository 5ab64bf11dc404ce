package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-circulation-go/core"
	"github.com/AntonStoeckl/library-circulation-go/circulation"
	"github.com/AntonStoeckl/library-circulation-go/shell/config"
	"github.com/AntonStoeckl/library-circulation-go/store"
	"github.com/AntonStoeckl/library-circulation-go/store/memengine"
	. "github.com/AntonStoeckl/library-circulation-go/testutil/helper" //nolint:revive
)

type memoryStore struct {
	*memengine.Store
	schemaCreated bool
}

func (s *memoryStore) CreateSchema(_ context.Context) error {
	s.schemaCreated = true
	return nil
}

type cli struct {
	t       *testing.T
	store   *memoryStore
	clock   *FixedClock
	metrics *MetricsCollectorSpy
}

func givenCLI(t *testing.T) *cli {
	t.Helper()

	return &cli{
		t:       t,
		store:   &memoryStore{Store: memengine.NewStore()},
		clock:   NewFixedClock(time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)),
		metrics: NewMetricsCollectorSpy(),
	}
}

func (c *cli) opener() storeOpener {
	return func(_ context.Context, _ config.Settings, _ *slog.Logger, _ store.MetricsCollector) (circulationStore, func(), error) {
		return c.store, func() {}, nil
	}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()

	cmd := newRootCmdWithClock(c.opener(), c.clock, c.metrics)

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return stdout.String(), err
}

func runJSON[T any](c *cli, args ...string) T {
	c.t.Helper()

	out, err := c.run(append(args, "--json")...)
	require.NoError(c.t, err, "error in running %v", args)

	var v T
	require.NoError(c.t, json.Unmarshal([]byte(out), &v), "error in decoding output %q", out)

	return v
}

func Test_CLI_LendReturnWithPenalty(t *testing.T) {
	// arrange
	c := givenCLI(t)
	user := runJSON[userView](c, "user", "register", "--username", "jdoe", "--role", "librarian")
	book := runJSON[bookView](c, "book", "add", "--isbn", "978-0134190440", "--title", "The Go Programming Language", "--copies", "1")
	member := runJSON[memberView](c, "member", "register", "--number", "M-1", "--first-name", "Ada", "--last-name", "Lovelace")

	// act
	loan := runJSON[loanView](c, "loan", "borrow", "--member", member.ID, "--book", book.ID, "--user", user.ID)

	// assert
	assert.Equal(t, "ACTIVE", loan.Status)
	assert.Equal(t, "2024-03-01", loan.LoanDate)
	assert.Equal(t, "2024-03-16", loan.ExpectedReturnDate)
	assert.Equal(t, "0.00", loan.Penalty)
	assert.Equal(t, 0, runJSON[bookView](c, "book", "show", book.ID).AvailableStock)

	// act
	c.clock.AdvanceDays(20)
	penalty := runJSON[penaltyView](c, "loan", "penalty", loan.ID)
	returned := runJSON[loanView](c, "loan", "return", loan.ID)

	// assert
	assert.Equal(t, "7.50", penalty.Penalty)
	assert.Equal(t, "OVERDUE", returned.Status)
	assert.Equal(t, "2024-03-21", returned.ActualReturnDate)
	assert.Equal(t, "7.50", returned.Penalty)
	assert.Equal(t, 1, runJSON[bookView](c, "book", "show", book.ID).AvailableStock)
}

func Test_CLI_RenewAndListLoans(t *testing.T) {
	// arrange
	c := givenCLI(t)
	user := runJSON[userView](c, "user", "register", "--username", "jdoe")
	book := runJSON[bookView](c, "book", "add", "--isbn", "978-1", "--copies", "2")
	member := runJSON[memberView](c, "member", "register", "--number", "M-1", "--tier", "premium")
	loan := runJSON[loanView](c, "loan", "borrow", "--member", member.ID, "--book", book.ID, "--user", user.ID)

	// act
	renewed := runJSON[loanView](c, "loan", "renew", loan.ID, "--days", "10")

	// assert
	assert.Equal(t, "RENEWED", renewed.Status)
	assert.Equal(t, "2024-03-26", renewed.ExpectedReturnDate)

	assert.Len(t, runJSON[[]loanView](c, "loan", "list"), 1)
	assert.Len(t, runJSON[[]loanView](c, "loan", "list", "--member", member.ID), 1)
	assert.Empty(t, runJSON[[]loanView](c, "loan", "list", "--overdue"))
	assert.Len(t, runJSON[[]loanView](c, "loan", "list", "--from", "2024-03-01", "--to", "2024-03-01"), 1)
	assert.Empty(t, runJSON[[]loanView](c, "loan", "list", "--from", "2024-03-02", "--to", "2024-03-31"))

	c.clock.AdvanceDays(30)
	assert.Len(t, runJSON[[]loanView](c, "loan", "list", "--overdue"), 1)
}

func Test_CLI_MemberLifecycle(t *testing.T) {
	// arrange
	c := givenCLI(t)
	member := runJSON[memberView](c, "member", "register", "--number", "M-7", "--tier", "VIP")

	// act
	deactivated := runJSON[memberView](c, "member", "deactivate", member.ID)
	activated := runJSON[memberView](c, "member", "activate", member.ID)

	// assert
	assert.Equal(t, "VIP", member.MembershipType)
	assert.Equal(t, "2024-03-01", member.RegistrationDate)
	assert.False(t, deactivated.Active)
	assert.True(t, activated.Active)
}

func Test_CLI_ShowByNaturalKey(t *testing.T) {
	// arrange
	c := givenCLI(t)
	book := runJSON[bookView](c, "book", "add", "--isbn", "978-0201633610", "--title", "Design Patterns")
	member := runJSON[memberView](c, "member", "register", "--number", "M-12")

	// act
	byISBN := runJSON[bookView](c, "book", "show", "--isbn", "978-0201633610")
	byNumber := runJSON[memberView](c, "member", "show", "--number", "M-12")

	// assert
	assert.Equal(t, book.ID, byISBN.ID)
	assert.Equal(t, member.ID, byNumber.ID)
}

func Test_CLI_MemberCanBorrow(t *testing.T) {
	// arrange
	c := givenCLI(t)
	user := runJSON[userView](c, "user", "register", "--username", "jdoe")
	member := runJSON[memberView](c, "member", "register", "--number", "M-3")
	for i := range 3 {
		book := runJSON[bookView](c, "book", "add", "--isbn", fmt.Sprintf("978-9-%d", i))
		runJSON[loanView](c, "loan", "borrow", "--member", member.ID, "--book", book.ID, "--user", user.ID)
	}

	// act
	atLimit := runJSON[eligibilityView](c, "member", "can-borrow", member.ID)
	runJSON[memberView](c, "member", "register", "--number", "M-4")
	fresh := runJSON[eligibilityView](c, "member", "can-borrow", "--number", "M-4")
	textOut, textErr := c.run("member", "can-borrow", member.ID)

	// assert
	assert.False(t, atLimit.CanBorrow)
	assert.Equal(t, 3, atLimit.ActiveLoans)
	assert.Equal(t, 3, atLimit.MaxLoans)
	assert.NotEmpty(t, atLimit.Reason)
	assert.True(t, fresh.CanBorrow)
	assert.Equal(t, "M-4", fresh.MemberNumber)
	assert.Zero(t, fresh.ActiveLoans)
	assert.Empty(t, fresh.Reason)
	require.NoError(t, textErr)
	assert.Contains(t, textOut, "Can borrow:\tfalse")
}

func Test_CLI_ReportsOperationMetrics(t *testing.T) {
	// arrange
	c := givenCLI(t)
	user := runJSON[userView](c, "user", "register", "--username", "jdoe")
	book := runJSON[bookView](c, "book", "add", "--isbn", "978-5")
	member := runJSON[memberView](c, "member", "register", "--number", "M-5")
	loan := runJSON[loanView](c, "loan", "borrow", "--member", member.ID, "--book", book.ID, "--user", user.ID)

	// act
	runJSON[loanView](c, "loan", "return", loan.ID)

	// assert
	assert.True(t, c.metrics.HasCounterRecordForMetric(circulation.OperationCallsMetric).
		WithLabel(circulation.LogAttrOperation, circulation.OpCreateLoan).
		WithLabel(circulation.LogAttrOutcome, circulation.OutcomeSuccess).
		Assert())

	values := c.metrics.GetValueRecords()
	require.Len(t, values, 1)
	assert.Equal(t, circulation.PenaltyChargedMetric, values[0].Metric)
	assert.Zero(t, values[0].Value)
}

func Test_CLI_SchemaCommandCreatesSchema(t *testing.T) {
	c := givenCLI(t)

	out, err := c.run("schema")

	require.NoError(t, err)
	assert.True(t, c.store.schemaCreated)
	assert.Contains(t, out, "Schema is up to date.")
}

func Test_CLI_TextOutput(t *testing.T) {
	// arrange
	c := givenCLI(t)
	book := runJSON[bookView](c, "book", "add", "--isbn", "978-2", "--title", "Refactoring", "--copies", "3")

	// act
	bookOut, bookErr := c.run("book", "show", book.ID)
	listOut, listErr := c.run("loan", "list")

	// assert
	require.NoError(t, bookErr)
	require.NoError(t, listErr)
	assert.Contains(t, bookOut, "Refactoring")
	assert.Contains(t, bookOut, "3 of 3 available")
	assert.Contains(t, listOut, "No loans found.")
}

func Test_CLI_Errors(t *testing.T) {
	c := givenCLI(t)
	user := runJSON[userView](c, "user", "register", "--username", "jdoe")
	book := runJSON[bookView](c, "book", "add", "--isbn", "978-3", "--copies", "1")
	member := runJSON[memberView](c, "member", "register", "--number", "M-1")
	runJSON[memberView](c, "member", "deactivate", member.ID)

	testCases := []struct {
		description string
		args        []string
		expected    error
	}{
		{"inactive member", []string{"loan", "borrow", "--member", member.ID, "--book", book.ID, "--user", user.ID}, core.ErrPolicyViolation},
		{"unknown loan", []string{"loan", "show", GivenUniqueID(t).String()}, core.ErrNotFound},
		{"unknown book", []string{"book", "show", GivenUniqueID(t).String()}, core.ErrNotFound},
		{"duplicate isbn", []string{"book", "add", "--isbn", "978-3"}, core.DuplicateISBNError{ISBN: "978-3"}},
		{"unknown tier", []string{"member", "register", "--number", "M-2", "--tier", "gold"}, core.ErrUnknownMembership},
		{"unknown role", []string{"user", "register", "--username", "x", "--role", "janitor"}, core.ErrUnknownUserRole},
		{"unknown isbn", []string{"book", "show", "--isbn", "978-unknown"}, core.ErrNotFound},
		{"unknown member number", []string{"member", "can-borrow", "--number", "M-404"}, core.ErrNotFound},
		{"id and isbn together", []string{"book", "show", book.ID, "--isbn", "978-3"}, errIDOrKey},
		{"neither id nor number", []string{"member", "show"}, errIDOrKey},
		{"half a date range", []string{"loan", "list", "--from", "2024-03-01"}, errIncompleteDateRange},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			_, err := c.run(tc.args...)

			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

func Test_CLI_Error_WhenIDIsMalformed(t *testing.T) {
	c := givenCLI(t)

	_, err := c.run("loan", "return", "not-a-uuid")

	assert.ErrorContains(t, err, `invalid loan id "not-a-uuid"`)
}

func Test_CLI_Error_WhenLogFormatIsUnknown(t *testing.T) {
	c := givenCLI(t)

	_, err := c.run("loan", "list", "--log-format", "xml")

	assert.ErrorContains(t, err, "--log-format")
}
