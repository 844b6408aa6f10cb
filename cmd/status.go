package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	statusadapter "github.com/bnema/browser-accounts-cli/internal/adapters/render/status"
	"github.com/bnema/browser-accounts-cli/internal/application"
	"github.com/bnema/browser-accounts-cli/internal/domain"
	"github.com/spf13/cobra"
)

func writeStatusesOutput(cmd *cobra.Command, app *app, statuses []application.Status, active domain.AccountID, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(statuses)
	}

	rendered, err := app.statusRenderer(statuses, statusadapter.RenderOptions{
		Now:        app.now(),
		StaleAfter: app.cfg.Reauth.StaleAfter,
		Active:     active,
	})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

func describeAccount(account domain.Account) string {
	name := sanitizeForTerminal(account.DisplayName())
	if name == string(account.ID) {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, account.ID)
}

func sanitizeForTerminal(value string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
}
