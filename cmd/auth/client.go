package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/kubarr/internal/auth/app"
	"github.com/aussiebroadwan/kubarr/internal/auth/service"
)

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "OAuth2 client administration",
}

var (
	clientName      string
	clientRedirects []string
	clientScopes    []string
	clientPublic    bool
)

var clientCreateCmd = &cobra.Command{
	Use:     "create <client_id>",
	Short:   "Register an OAuth2 client",
	Long:    "Register a client. Confidential clients get a secret that is printed once.",
	Example: "  kubarr-auth client create sonarr --redirect-uri https://sonarr.example.com/signin-oidc",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdmin(func(a *app.Admin) error {
			client, secret, err := a.Clients.CreateClient(cmd.Context(), service.ClientInput{
				ID:           args[0],
				Name:         clientName,
				RedirectURIs: clientRedirects,
				Scopes:       clientScopes,
				Public:       clientPublic,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "client_id:     %s\n", client.ID)
			if secret != "" {
				fmt.Fprintf(out, "client_secret: %s\n", secret)
			}
			return nil
		})
	},
}

var clientListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered clients",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdmin(func(a *app.Admin) error {
			clients, err := a.Clients.ListClients(cmd.Context())
			if err != nil {
				return err
			}
			if len(clients) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No clients registered")
				return nil
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Client ID", "Name", "Type", "Scopes", "Redirect URIs", "Created"})
			table.SetAutoWrapText(false)
			table.SetBorder(false)
			for _, c := range clients {
				kind := "confidential"
				if c.IsPublic() {
					kind = "public"
				}
				table.Append([]string{
					c.ID,
					c.Name,
					kind,
					strings.Join(c.Scopes, " "),
					strings.Join(c.RedirectURIs, "\n"),
					c.CreatedAt.Format(time.DateOnly),
				})
			}
			table.Render()
			return nil
		})
	},
}

var clientRotateCmd = &cobra.Command{
	Use:   "rotate-secret <client_id>",
	Short: "Replace the secret of a confidential client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdmin(func(a *app.Admin) error {
			secret, err := a.Clients.RegenerateClientSecret(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "client_secret: %s\n", secret)
			return nil
		})
	},
}

func init() {
	clientCreateCmd.Flags().StringVar(&clientName, "name", "", "display name")
	clientCreateCmd.Flags().StringSliceVar(&clientRedirects, "redirect-uri", nil, "allowed redirect URI (repeatable)")
	clientCreateCmd.Flags().StringSliceVar(&clientScopes, "scope", nil, "scope the client may request (repeatable, default openid profile email)")
	clientCreateCmd.Flags().BoolVar(&clientPublic, "public", false, "public client without a secret (PKCE required)")
	_ = clientCreateCmd.MarkFlagRequired("redirect-uri")

	clientCmd.AddCommand(clientCreateCmd, clientListCmd, clientRotateCmd)
}
