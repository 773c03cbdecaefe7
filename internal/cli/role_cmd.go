package cli

import (
	"fmt"

	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/spf13/cobra"
)

func newRoleCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role",
		Short: "Grant and revoke HoD, Approver and Requester roles",
	}
	cmd.AddCommand(
		newRoleChangeCmd(app, "grant", "Grant a role to a user"),
		newRoleChangeCmd(app, "revoke", "Revoke a role from a user"),
		newRoleListCmd(app),
	)
	return cmd
}

var pastTense = map[string]string{"grant": "Granted", "revoke": "Revoked"}

func newRoleChangeCmd(app *App, verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " USER ROLE",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := domain.ParseRole(args[1])
			if err != nil {
				return err
			}
			apply := app.Roles.Grant
			if verb == "revoke" {
				apply = app.Roles.Revoke
			}
			if err := apply(cmd.Context(), args[0], role); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s for %s\n", pastTense[verb], role, args[0])
			return nil
		},
	}
}

func newRoleListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list USER",
		Short: "List the roles of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roles, err := app.Roles.Roles(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(roles) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s has no roles.\n", args[0])
				return nil
			}
			for _, r := range roles {
				fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			return nil
		},
	}
}
