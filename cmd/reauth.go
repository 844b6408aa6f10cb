package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/bnema/browser-accounts-cli/internal/application"
	"github.com/bnema/browser-accounts-cli/internal/ports"
	"github.com/bnema/browser-accounts-cli/internal/scheduler"
	"github.com/spf13/cobra"
)

func newReauthCmd(app *app) *cobra.Command {
	var (
		force  bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "reauth",
		Short: "Revisit every stale account once so its session stays fresh",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry := app.newRegistry()
			defer app.shutdown(registry)

			controller, err := app.openSession(cmd.Context(), registry)
			if err != nil {
				return err
			}

			job := app.newReauthenticator(controller)
			summary, err := job.Run(cmd.Context(), force)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}

			if summary.Skipped {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "skipped: shell is visible (use --force)")
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), summary.Message())
			return err
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Run even while the shell is visible")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the run summary as JSON")

	return cmd
}

func (a *app) newReauthenticator(controller *application.SessionController) *scheduler.Reauthenticator {
	return scheduler.NewReauthenticator(
		a.repo,
		controller,
		ports.StaticShellState(a.cfg.ShellVisible),
		a.notifier,
		ports.SystemClock{},
		a.log,
		a.cfg.Reauth.Interval,
		a.cfg.Reauth.StaleAfter,
	)
}
