package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jrsteele09/go-oauth-broker/token"
	"github.com/spf13/cobra"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored token for the configured client without fetching",
		Args:  cobra.NoArgs,
		RunE: runWithApp(opts, func(cmd *cobra.Command, _ []string, a *app) error {
			flow, err := a.flow(opts.flow)
			if err != nil {
				return err
			}
			if err := a.auth.Configure(cmd.Context(), flow); err != nil {
				return err
			}

			tok := a.auth.CurrentToken()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "client\t%s\n", flow.ClientID())
			fmt.Fprintf(w, "grant\t%s\n", flow.GrantType())
			fmt.Fprintf(w, "state\t%s\n", a.auth.State())
			if tok.AccessToken != "" {
				fmt.Fprintf(w, "type\t%s\n", tok.TokenType)
				fmt.Fprintf(w, "expires\t%s\n", tok.ExpiresAt().Format(time.RFC3339))
				fmt.Fprintf(w, "refreshable\t%t\n", tok.HasRefreshToken())
				if tok.Scope != "" {
					fmt.Fprintf(w, "scope\t%s\n", tok.Scope)
				}
				writeClaims(w, tok)
			}
			return w.Flush()
		}),
	}
}

func writeClaims(w *tabwriter.Writer, tok token.Token) {
	claims, err := tok.Claims()
	if err != nil {
		fmt.Fprintf(w, "format\topaque\n")
		return
	}
	fmt.Fprintf(w, "format\tjwt\n")
	if claims.Subject != "" {
		fmt.Fprintf(w, "subject\t%s\n", claims.Subject)
	}
	if claims.Issuer != "" {
		fmt.Fprintf(w, "issuer\t%s\n", claims.Issuer)
	}
	if len(claims.Audience) > 0 {
		fmt.Fprintf(w, "audience\t%s\n", strings.Join(claims.Audience, ", "))
	}
	if claims.ExpiresAt != nil {
		fmt.Fprintf(w, "jwt expires\t%s\n", claims.ExpiresAt.Format(time.RFC3339))
	}
}
