package cmd

import (
	"fmt"

	"github.com/bnema/browser-accounts-cli/internal/application"
	"github.com/bnema/browser-accounts-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newAccountCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}

	cmd.AddCommand(
		newAccountListCmd(app),
		newAccountAddCmd(app),
		newAccountRenameCmd(app),
	)

	return cmd
}

func newAccountListCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured accounts with their session freshness",
		RunE: func(cmd *cobra.Command, _ []string) error {
			statuses, err := app.service.GetStatusAll(cmd.Context(), app.cfg.Reauth.StaleAfter)
			if err != nil {
				return err
			}

			return writeStatusesOutput(cmd, app, statuses, "", asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print statuses as JSON")
	return cmd
}

func newAccountAddCmd(app *app) *cobra.Command {
	var (
		id     string
		name   string
		siteID string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register an account",
		Long:  "Register an account. Without --site-id the identity observed on the first successful switch is adopted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			account, err := app.service.AddAccount(cmd.Context(), application.AddAccountCommand{
				ID:     domain.AccountID(id),
				Name:   name,
				SiteID: siteID,
			})
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", describeAccount(account))
			return err
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Account id")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&siteID, "site-id", "", "Identity the site reports once signed in")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newAccountRenameCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Change the display name of an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.service.RenameAccount(cmd.Context(), application.RenameAccountCommand{
				ID:   domain.AccountID(args[0]),
				Name: args[1],
			})
		},
	}
}
