package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/bnema/browser-accounts-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newCookiesCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cookies",
		Short: "Inspect and manage stored cookie jars",
	}

	cmd.AddCommand(
		newCookiesShowCmd(app),
		newCookiesImportCmd(app),
		newCookiesClearCmd(app),
	)

	return cmd
}

func newCookiesShowCmd(app *app) *cobra.Command {
	var showValues bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print the stored jar of an account as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jar, err := app.service.Cookies(cmd.Context(), domain.AccountID(args[0]))
			if err != nil {
				return err
			}
			if !showValues {
				for i := range jar {
					if jar[i].Value != "" {
						jar[i].Value = "<redacted>"
					}
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(jar)
		},
	}

	cmd.Flags().BoolVar(&showValues, "show-values", false, "Print cookie values instead of redacting them")
	return cmd
}

func newCookiesImportCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <id> <file|->",
		Short: "Replace the stored jar of an account with a JSON cookie list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jar, err := readJar(cmd, args[1])
			if err != nil {
				return err
			}

			if err := app.service.ImportCookies(cmd.Context(), domain.AccountID(args[0]), jar); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d cookies into %s\n", len(jar), args[0])
			return err
		},
	}
}

func newCookiesClearCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <id>",
		Short: "Delete the stored jar so the next switch starts signed out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.service.ClearCookies(cmd.Context(), domain.AccountID(args[0])); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "cleared cookies for %s\n", args[0])
			return err
		},
	}
}

func readJar(cmd *cobra.Command, source string) ([]domain.Cookie, error) {
	var (
		raw []byte
		err error
	)
	if source == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("read cookie jar: %w", err)
	}

	var jar []domain.Cookie
	if err := json.Unmarshal(raw, &jar); err != nil {
		return nil, fmt.Errorf("decode cookie jar: %w", err)
	}
	return jar, nil
}
