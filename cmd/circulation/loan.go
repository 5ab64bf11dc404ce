package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/library-circulation-go/circulation"
	"github.com/AntonStoeckl/library-circulation-go/core"
	"github.com/AntonStoeckl/library-circulation-go/store"
)

var errIncompleteDateRange = errors.New("--from and --to must be given together")

func newLoanCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loan",
		Short: "Lend, return and renew books",
	}

	cmd.AddCommand(newLoanBorrowCmd(a))
	cmd.AddCommand(newLoanReturnCmd(a))
	cmd.AddCommand(newLoanRenewCmd(a))
	cmd.AddCommand(newLoanPenaltyCmd(a))
	cmd.AddCommand(newLoanShowCmd(a))
	cmd.AddCommand(newLoanListCmd(a))

	return cmd
}

func newLoanBorrowCmd(a *app) *cobra.Command {
	var memberArg, bookArg, userArg string

	cmd := &cobra.Command{
		Use:   "borrow",
		Short: "Lend one copy of a book to a member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ids := make([]uuid.UUID, 3)
			for i, raw := range []struct{ kind, value string }{{"member", memberArg}, {"book", bookArg}, {"user", userArg}} {
				id, err := parseID(raw.kind, raw.value)
				if err != nil {
					return err
				}

				ids[i] = id
			}

			var loan core.Loan

			err := a.retry(cmd.Context(), circulation.OpCreateLoan, func(ctx context.Context) error {
				var err error
				loan, err = a.coordinator.CreateLoan(ctx, ids[0], ids[1], ids[2])

				return err
			})
			if err != nil {
				return err
			}

			return a.renderLoan(cmd, loan)
		},
	}

	cmd.Flags().StringVar(&memberArg, "member", "", "borrowing member id")
	cmd.Flags().StringVar(&bookArg, "book", "", "book id")
	cmd.Flags().StringVar(&userArg, "user", "", "id of the staff user processing the loan")
	_ = cmd.MarkFlagRequired("member")
	_ = cmd.MarkFlagRequired("book")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newLoanReturnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "return <loan-id>",
		Short: "Take a copy back and charge any overdue penalty",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("loan", args[0])
			if err != nil {
				return err
			}

			var loan core.Loan

			err = a.retry(cmd.Context(), circulation.OpReturnBook, func(ctx context.Context) error {
				var err error
				loan, err = a.coordinator.ReturnBook(ctx, id)

				return err
			})
			if err != nil {
				return err
			}

			return a.renderLoan(cmd, loan)
		},
	}
}

func newLoanRenewCmd(a *app) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "renew <loan-id>",
		Short: "Extend the due date of an active loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("loan", args[0])
			if err != nil {
				return err
			}

			var loan core.Loan

			err = a.retry(cmd.Context(), circulation.OpRenewLoan, func(ctx context.Context) error {
				var err error
				loan, err = a.coordinator.RenewLoan(ctx, id, days)

				return err
			})
			if err != nil {
				return err
			}

			return a.renderLoan(cmd, loan)
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "additional days")

	return cmd
}

func newLoanPenaltyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "penalty <loan-id>",
		Short: "Show the penalty a loan owes as of today",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("loan", args[0])
			if err != nil {
				return err
			}

			penalty, err := a.coordinator.CalculatePenalty(cmd.Context(), id)
			if err != nil {
				return err
			}

			v := penaltyView{LoanID: id.String(), Penalty: formatMoney(penalty)}

			return a.render(cmd, v, func(w io.Writer) {
				fmt.Fprintf(w, "Penalty:\t%s\n", v.Penalty)
			})
		},
	}
}

func newLoanShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <loan-id>",
		Short: "Show a loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("loan", args[0])
			if err != nil {
				return err
			}

			loan, err := a.coordinator.FindLoanByID(cmd.Context(), id)
			if err != nil {
				return err
			}

			return a.renderLoan(cmd, loan)
		},
	}
}

type loanListFlags struct {
	member  string
	overdue bool
	from    string
	to      string
}

func newLoanListCmd(a *app) *cobra.Command {
	var flags loanListFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List loans, newest first",
		Long: `List loans, newest first.

Without filters all loans are listed. --member lists the member's active loans,
--overdue lists open loans past their due date and --from/--to (YYYY-MM-DD, both
days included) list loans made in that period.

Listings read from the replica when database.replica_dsn is configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// listings tolerate replica lag
			loans, err := a.listLoans(store.WithEventualConsistency(cmd.Context()), flags)
			if err != nil {
				return err
			}

			views := newLoanViews(loans)

			return a.render(cmd, views, func(w io.Writer) { printLoanTable(w, views) })
		},
	}

	cmd.Flags().StringVar(&flags.member, "member", "", "only active loans of this member id")
	cmd.Flags().BoolVar(&flags.overdue, "overdue", false, "only open loans past their due date")
	cmd.Flags().StringVar(&flags.from, "from", "", "first loan day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flags.to, "to", "", "last loan day (YYYY-MM-DD)")
	cmd.MarkFlagsMutuallyExclusive("member", "overdue", "from")
	cmd.MarkFlagsMutuallyExclusive("member", "overdue", "to")

	return cmd
}

func (a *app) listLoans(ctx context.Context, flags loanListFlags) ([]core.Loan, error) {
	switch {
	case flags.member != "":
		id, err := parseID("member", flags.member)
		if err != nil {
			return nil, err
		}

		return a.coordinator.GetActiveLoansByMember(ctx, id)

	case flags.overdue:
		return a.coordinator.GetOverdueLoans(ctx)

	case flags.from != "" || flags.to != "":
		if flags.from == "" || flags.to == "" {
			return nil, errIncompleteDateRange
		}

		from, err := time.Parse(time.DateOnly, flags.from)
		if err != nil {
			return nil, fmt.Errorf("--from: %w", err)
		}

		to, err := time.Parse(time.DateOnly, flags.to)
		if err != nil {
			return nil, fmt.Errorf("--to: %w", err)
		}

		return a.coordinator.GetLoansByDateRange(ctx, from, to)

	default:
		return a.coordinator.ListLoans(ctx)
	}
}

func (a *app) renderLoan(cmd *cobra.Command, loan core.Loan) error {
	v := newLoanView(loan)

	return a.render(cmd, v, func(w io.Writer) { printLoan(w, v) })
}
