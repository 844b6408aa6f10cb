package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bnema/browser-accounts-cli/internal/application"
	"github.com/bnema/browser-accounts-cli/internal/domain"
	"github.com/spf13/cobra"
)

var errNotAuthenticated = errors.New("not authenticated")

type switchOutput struct {
	AccountID      domain.AccountID `json:"account_id"`
	Outcome        string           `json:"outcome"`
	ObservedSiteID string           `json:"observed_site_id,omitempty"`
	Account        *domain.Account  `json:"account,omitempty"`
}

func newSwitchCmd(app *app) *cobra.Command {
	var (
		asJSON   bool
		keepOpen bool
	)

	cmd := &cobra.Command{
		Use:   "switch <id>",
		Short: "Load an account's cookie jar into a browser and verify the signed-in identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := app.newRegistry()
			defer app.shutdown(registry)

			controller, err := app.openSession(cmd.Context(), registry)
			if err != nil {
				return err
			}

			id := domain.AccountID(args[0])
			var result domain.SwitchResult
			if asJSON {
				result, err = controller.ChangeAccount(cmd.Context(), id)
			} else {
				result, err = runSwitchProgress(cmd.Context(), cmd.ErrOrStderr(), id, func(ctx context.Context) (domain.SwitchResult, error) {
					return controller.ChangeAccount(ctx, id)
				})
			}
			if err != nil {
				return err
			}

			if err := writeSwitchOutput(cmd, controller, result, asJSON); err != nil {
				return err
			}
			if err := switchError(result); err != nil {
				return err
			}

			if keepOpen {
				return waitForSignal(cmd.Context())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the switch result as JSON")
	cmd.Flags().BoolVar(&keepOpen, "keep-open", false, "Keep the browser open until interrupted")

	return cmd
}

func writeSwitchOutput(cmd *cobra.Command, controller *application.SessionController, result domain.SwitchResult, asJSON bool) error {
	current, hasCurrent := controller.CurrentAccount()

	if asJSON {
		out := switchOutput{
			AccountID:      result.AccountID,
			Outcome:        result.Outcome.String(),
			ObservedSiteID: result.ObservedSiteID,
		}
		if result.Succeeded() && hasCurrent {
			out.Account = &current
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	var line string
	switch result.Outcome {
	case domain.SwitchSucceeded:
		line = fmt.Sprintf("switched to %s, site id %s", describeAccount(current), sanitizeForTerminal(current.SiteID))
	case domain.SwitchNotFound:
		line = fmt.Sprintf("account %s not found", result.AccountID)
	case domain.SwitchTimeout:
		line = fmt.Sprintf("page did not finish loading for %s", result.AccountID)
	case domain.SwitchNotAuthenticated:
		if result.ObservedSiteID != "" {
			line = fmt.Sprintf("%s is signed in as %s instead", result.AccountID, sanitizeForTerminal(result.ObservedSiteID))
		} else {
			line = fmt.Sprintf("%s is not signed in, import a fresh cookie jar", result.AccountID)
		}
	default:
		line = fmt.Sprintf("switch to %s: %s", result.AccountID, result.Outcome)
	}

	_, err := fmt.Fprintln(cmd.OutOrStdout(), line)
	return err
}

func switchError(result domain.SwitchResult) error {
	if err := result.Err(); err != nil {
		return err
	}
	if result.Outcome == domain.SwitchNotAuthenticated {
		return fmt.Errorf("switch to %q: %w", result.AccountID, errNotAuthenticated)
	}
	return nil
}

func waitForSignal(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	return nil
}
