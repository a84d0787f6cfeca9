package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a valid access token, fetching or refreshing it when needed",
		Args:  cobra.NoArgs,
		RunE: runWithApp(opts, func(cmd *cobra.Command, _ []string, a *app) error {
			flow, err := a.flow(opts.flow)
			if err != nil {
				return err
			}
			if err := a.auth.Configure(cmd.Context(), flow); err != nil {
				return err
			}

			tok, err := a.auth.ValidToken(cmd.Context())
			if err != nil {
				return err
			}

			if !asJSON {
				fmt.Fprintln(cmd.OutOrStdout(), tok.AccessToken)
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(tok)
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the whole token response as JSON")
	return cmd
}
