package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bnema/browser-accounts-cli/internal/domain"
	"github.com/bnema/browser-accounts-cli/internal/logger"
	"github.com/spf13/cobra"
)

func newServeCmd(app *app) *cobra.Command {
	var initial string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Keep a browser open and re-authenticate stale accounts periodically",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, app, domain.AccountID(initial))
		},
	}

	cmd.Flags().StringVar(&initial, "account", "", "Account to load once the browser is up")

	return cmd
}

func serve(ctx context.Context, app *app, initial domain.AccountID) error {
	registry := app.newRegistry()
	defer app.shutdown(registry)

	if err := app.repo.Watch(ctx, app.log); err != nil {
		return err
	}

	controller, err := app.openSession(ctx, registry)
	if err != nil {
		return err
	}

	unsubscribe := controller.OnAccountDataChanged(func(change domain.AccountChange) {
		app.log.Info("active account updated",
			logger.String("account_id", string(change.Account.ID)),
			logger.String("field", string(change.Field)))
	})
	defer unsubscribe()

	if initial != "" {
		result, err := controller.ChangeAccount(ctx, initial)
		if err != nil {
			return err
		}
		if err := switchError(result); err != nil {
			app.log.Warn("initial account not loaded", logger.Error(err))
		}
	}

	job := app.newReauthenticator(controller)
	job.Start(ctx)
	defer job.Stop()

	app.log.Info("serving",
		logger.Int("instances", len(registry.List())),
		logger.Duration("interval", app.cfg.Reauth.Interval))

	<-ctx.Done()
	return nil
}
