package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the token of the configured client",
		Args:  cobra.NoArgs,
		RunE: runWithApp(opts, func(cmd *cobra.Command, _ []string, a *app) error {
			flow, err := a.flow(opts.flow)
			if err != nil {
				return err
			}
			if err := a.auth.Configure(cmd.Context(), flow); err != nil {
				return err
			}
			if err := a.auth.RemoveToken(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed the token of client %s\n", flow.ClientID())
			return nil
		}),
	}
}
