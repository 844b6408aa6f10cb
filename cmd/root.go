package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ba",
		Short:         "Browser Accounts CLI (ba): switch one site between stored sessions",
		Long:          "ba keeps a cookie jar per account, swaps jars inside an embedded browser, verifies the signed-in identity and keeps idle sessions fresh in the background.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		_ = app.log.Sync()
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newAccountCmd(app),
		newCookiesCmd(app),
		newSwitchCmd(app),
		newReauthCmd(app),
		newServeCmd(app),
	)

	return rootCmd
}
