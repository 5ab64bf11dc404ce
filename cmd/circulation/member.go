package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/library-circulation-go/circulation"
	"github.com/AntonStoeckl/library-circulation-go/core"
)

func newMemberCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Manage library members",
	}

	cmd.AddCommand(newMemberRegisterCmd(a))
	cmd.AddCommand(newMemberSetActiveCmd(a, "activate", "Allow a member to borrow again", true))
	cmd.AddCommand(newMemberSetActiveCmd(a, "deactivate", "Stop a member from borrowing", false))
	cmd.AddCommand(newMemberShowCmd(a))
	cmd.AddCommand(newMemberCanBorrowCmd(a))

	return cmd
}

func newMemberRegisterCmd(a *app) *cobra.Command {
	var (
		input core.NewMember
		tier  string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new active member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			membership, err := core.ParseMembershipType(tier)
			if err != nil {
				return fmt.Errorf("--tier: %w", err)
			}

			input.MembershipType = membership

			var member core.Member

			err = a.retry(cmd.Context(), circulation.OpRegisterMember, func(ctx context.Context) error {
				var err error
				member, err = a.coordinator.RegisterMember(ctx, input)

				return err
			})
			if err != nil {
				return err
			}

			return a.renderMember(cmd, member)
		},
	}

	cmd.Flags().StringVar(&input.MemberNumber, "number", "", "member number (required, unique)")
	cmd.Flags().StringVar(&input.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&input.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&input.DocumentID, "document", "", "identity document number")
	cmd.Flags().StringVar(&input.Email, "email", "", "email address")
	cmd.Flags().StringVar(&input.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&input.Address, "address", "", "postal address")
	cmd.Flags().StringVar(&tier, "tier", string(core.MembershipBasic), "membership tier (BASIC, PREMIUM, VIP)")
	_ = cmd.MarkFlagRequired("number")

	return cmd
}

func newMemberSetActiveCmd(a *app, use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <member-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("member", args[0])
			if err != nil {
				return err
			}

			var member core.Member

			err = a.retry(cmd.Context(), circulation.OpSetMemberActive, func(ctx context.Context) error {
				var err error
				member, err = a.coordinator.SetMemberActive(ctx, id, active)

				return err
			})
			if err != nil {
				return err
			}

			return a.renderMember(cmd, member)
		},
	}
}

func newMemberShowCmd(a *app) *cobra.Command {
	var number string

	cmd := &cobra.Command{
		Use:   "show [<member-id>]",
		Short: "Show a member with their active loans",
		Long:  "Show a member by id, or by member number when --number is given.",
		Args:  cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			member, err := a.lookupMember(cmd.Context(), args, number)
			if err != nil {
				return err
			}

			loans, err := a.coordinator.GetActiveLoansByMember(cmd.Context(), member.ID)
			if err != nil {
				return err
			}

			type memberWithLoans struct {
				memberView
				ActiveLoans []loanView `json:"active_loans"`
			}

			v := memberWithLoans{memberView: newMemberView(member), ActiveLoans: newLoanViews(loans)}

			return a.render(cmd, v, func(w io.Writer) {
				printMember(w, v.memberView)
				fmt.Fprintf(w, "Active loans:\t%d of %d\n", len(loans), core.MaxConcurrentLoans(member.MembershipType))
				for _, l := range v.ActiveLoans {
					fmt.Fprintf(w, "  %s\tdue %s\t%s\n", l.ID, l.ExpectedReturnDate, l.Status)
				}
			})
		},
	}

	cmd.Flags().StringVar(&number, "number", "", "look the member up by member number")

	return cmd
}

func newMemberCanBorrowCmd(a *app) *cobra.Command {
	var number string

	cmd := &cobra.Command{
		Use:   "can-borrow [<member-id>]",
		Short: "Tell whether a member may take out another loan",
		Long: "Report the member's standing against the borrowing rules without creating a loan.\n" +
			"The command succeeds either way; can_borrow and reason carry the answer.",
		Args: cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			member, err := a.lookupMember(cmd.Context(), args, number)
			if err != nil {
				return err
			}

			eligibility, err := a.coordinator.CheckEligibility(cmd.Context(), member.ID)
			if err != nil {
				return err
			}

			v := newEligibilityView(eligibility)

			return a.render(cmd, v, func(w io.Writer) {
				fmt.Fprintf(w, "Member:\t%s (%s)\n", v.MemberID, v.MemberNumber)
				fmt.Fprintf(w, "Active:\t%t\n", v.Active)
				fmt.Fprintf(w, "Active loans:\t%d of %d\n", v.ActiveLoans, v.MaxLoans)
				fmt.Fprintf(w, "Can borrow:\t%t\n", v.CanBorrow)
				if v.Reason != "" {
					fmt.Fprintf(w, "Reason:\t%s\n", v.Reason)
				}
			})
		},
	}

	cmd.Flags().StringVar(&number, "number", "", "look the member up by member number")

	return cmd
}

func (a *app) lookupMember(ctx context.Context, args []string, number string) (core.Member, error) {
	if err := checkIDOrKey(args, number); err != nil {
		return core.Member{}, err
	}

	if number != "" {
		return a.coordinator.FindMemberByNumber(ctx, number)
	}

	id, err := parseID("member", args[0])
	if err != nil {
		return core.Member{}, err
	}

	return a.coordinator.FindMemberByID(ctx, id)
}

func (a *app) renderMember(cmd *cobra.Command, member core.Member) error {
	v := newMemberView(member)

	return a.render(cmd, v, func(w io.Writer) { printMember(w, v) })
}

func printMember(w io.Writer, v memberView) {
	fmt.Fprintf(w, "Member:\t%s\n", v.ID)
	fmt.Fprintf(w, "Number:\t%s\n", v.MemberNumber)
	fmt.Fprintf(w, "Name:\t%s\n", v.Name)
	fmt.Fprintf(w, "Tier:\t%s\n", v.MembershipType)
	fmt.Fprintf(w, "Registered:\t%s\n", v.RegistrationDate)
	fmt.Fprintf(w, "Active:\t%t\n", v.Active)
}
