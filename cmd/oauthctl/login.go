package main

import (
	"fmt"
	"time"

	"github.com/jrsteele09/go-oauth-broker/codeflow"
	"github.com/spf13/cobra"
)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var noBrowser bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in through the browser and store the resulting token",
		Long: `login runs the authorization code flow with PKCE. The redirect is
received on a loopback listener, OAUTH_REDIRECT_URI or
http://127.0.0.1:<OAUTH_CALLBACK_PORT>/callback, and the code is exchanged
for a token that later "--flow code" commands reuse and refresh.`,
		Args: cobra.NoArgs,
		RunE: runWithApp(opts, func(cmd *cobra.Command, _ []string, a *app) error {
			manager := a.codeFlowManager()

			session := codeflow.NewLoopbackSession(a.cfg.GetAuthCodeTimeout())
			session.OpenBrowser = func(authURL string) error {
				fmt.Fprintf(cmd.ErrOrStderr(), "Open this URL to sign in:\n\n  %s\n\n", authURL)
				if noBrowser {
					return nil
				}
				return codeflow.OpenBrowser(authURL)
			}

			grant, err := manager.SignIn(cmd.Context(), session)
			if err != nil {
				return err
			}

			flow := grant.Flow(manager.Configuration().ClientID, manager.Configuration().RedirectURI)
			// Drop what an earlier login stored, or it would be returned as is.
			if err := a.auth.Configure(cmd.Context(), flow); err != nil {
				return err
			}
			if err := a.auth.RemoveToken(cmd.Context()); err != nil {
				return err
			}
			if err := a.auth.Configure(cmd.Context(), flow); err != nil {
				return err
			}
			tok, err := a.auth.ValidToken(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as client %s, token valid until %s\n",
				flow.ClientID(), tok.ExpiresAt().Format(time.RFC3339))
			return nil
		}),
	}
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "only print the sign in URL")
	return cmd
}
