package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-oauth-broker/resource"
	"github.com/spf13/cobra"
)

func newGetCmd(opts *rootOptions) *cobra.Command {
	var (
		output   string
		download bool
		header   string
	)

	cmd := &cobra.Command{
		Use:   "get <url>",
		Short: "GET a protected resource with the current access token",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(opts, func(cmd *cobra.Command, args []string, a *app) error {
			flow, err := a.flow(opts.flow)
			if err != nil {
				return err
			}
			if err := a.auth.Configure(cmd.Context(), flow); err != nil {
				return err
			}

			build := func(ctx context.Context, target string) (*http.Request, error) {
				return resource.NewRequest(ctx, resource.MethodGet, target, "", nil, nil)
			}
			res := resource.New[string, []byte](a.client, build, resource.WithAuthenticator(a.auth, header))

			if output == "" && !download {
				body, err := res.Request(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(body)
				return err
			}

			file, err := res.Download(cmd.Context(), args[0], output)
			if err != nil {
				return err
			}
			defer file.Close()
			fmt.Fprintln(cmd.OutOrStdout(), file.Name())
			return nil
		}),
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "save the body to this file")
	cmd.Flags().BoolVar(&download, "download", false, "save the body under the user cache directory")
	cmd.Flags().StringVar(&header, "header", resource.HeaderAuthorization, "header carrying the token")
	return cmd
}
