package main

import (
	"fmt"
	"io"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-oauth-broker/internal/config"
	"github.com/jrsteele09/go-oauth-broker/internal/logging"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	flow        string
	metricsAddr string
	banner      bool

	app *app
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "oauthctl",
		Short: "Obtain, cache and use OAuth 2.0 access tokens",
		Long: `oauthctl keeps one access token per client, fetching, refreshing and
persisting it as needed, and uses it to call protected resources.

Configuration is read from the environment and an optional .env file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.New()
			logging.Setup(cfg.GetEnv(), cfg.GetLogLevel())
			if opts.banner {
				displayAppname(cmd.ErrOrStderr(), cfg.GetAppName())
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			opts.app = a

			if opts.metricsAddr != "" {
				if err := a.serveMetrics(cmd.Context(), opts.metricsAddr); err != nil {
					a.close()
					return err
				}
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.flow, "flow", flowClient, `token flow: "client" (client credentials) or "code" (signed in user)`)
	cmd.PersistentFlags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the command runs")
	cmd.PersistentFlags().BoolVar(&opts.banner, "banner", false, "print the application banner")

	cmd.AddCommand(
		newTokenCmd(opts),
		newLoginCmd(opts),
		newGetCmd(opts),
		newStatusCmd(opts),
		newLogoutCmd(opts),
	)
	return cmd
}

// runWithApp releases the app once the command is done, failed or not.
func runWithApp(opts *rootOptions, run func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer opts.app.close()
		return run(cmd, args, opts.app)
	}
}

func displayAppname(w io.Writer, appname string) {
	fmt.Fprintln(w, figure.NewFigure(appname, "cybermedium", true).String())
}
