package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/library-circulation-go/circulation"
	"github.com/AntonStoeckl/library-circulation-go/core"
)

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage staff users",
	}

	cmd.AddCommand(newUserRegisterCmd(a))

	return cmd
}

func newUserRegisterCmd(a *app) *cobra.Command {
	var (
		input core.NewUser
		role  string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a staff user who can process loans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			input.Role = core.UserRole(role)

			var user core.User

			err := a.retry(cmd.Context(), circulation.OpRegisterUser, func(ctx context.Context) error {
				var err error
				user, err = a.coordinator.RegisterUser(ctx, input)

				return err
			})
			if err != nil {
				return err
			}

			v := newUserView(user)

			return a.render(cmd, v, func(w io.Writer) {
				fmt.Fprintf(w, "User:\t%s\n", v.ID)
				fmt.Fprintf(w, "Username:\t%s\n", v.Username)
				fmt.Fprintf(w, "Role:\t%s\n", v.Role)
			})
		},
	}

	cmd.Flags().StringVar(&input.Username, "username", "", "login name (required, unique)")
	cmd.Flags().StringVar(&input.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&input.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&input.Email, "email", "", "email address")
	cmd.Flags().StringVar(&role, "role", string(core.RoleLibrarian), "role (ADMINISTRATOR, LIBRARIAN, ASSISTANT)")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}
