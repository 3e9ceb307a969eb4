package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inkwell/inkwell-cli/internal/appctx"
	"github.com/inkwell/inkwell-cli/internal/output"
	"github.com/inkwell/inkwell-cli/internal/tui"
)

// NewAuthCmd creates the auth command and its subcommands.
func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with Inkwell",
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthLogoutCmd())
	cmd.AddCommand(newAuthStatusCmd())

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var token string
	var noBrowser bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with a personal access token",
		Long: `Log in by pasting a personal access token.

Without --token, the browser opens the token settings page and the
command prompts for the token. Tokens are stored in the system keyring
when available, with a file fallback.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app := appctx.FromContext(ctx)

			if token == "" {
				if !app.IsInteractive() {
					return output.ErrUsageHint(
						"No token provided",
						"Pass --token or set INKWELL_TOKEN",
					)
				}
				if !noBrowser {
					if err := app.Auth.OpenTokensPage(); err != nil {
						app.Logger.Debug("opening browser", "error", err)
					}
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Create a token at %s\n", app.Auth.TokensPageURL())

				entered, err := tui.InputRequired("Personal access token", "inkwell_pat_…")
				if err != nil {
					return output.ErrUsage("Cancelled")
				}
				token = strings.TrimSpace(entered)
			}

			account, err := app.Auth.LoginWithToken(ctx, token)
			if err != nil {
				return err
			}

			storage := "keyring"
			if !app.Auth.GetStore().UsingKeyring() {
				storage = "file"
			}

			return app.OK(map[string]any{
				"email":   account.Email,
				"storage": storage,
			}, output.WithSummary(fmt.Sprintf("Logged in as %s", account.Email)))
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Personal access token")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Don't open the token settings page")

	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			if !app.Auth.IsAuthenticated() {
				return app.OK(map[string]any{"logged_out": false},
					output.WithSummary("Not logged in"))
			}
			if err := app.Auth.Logout(); err != nil {
				return err
			}
			return app.OK(map[string]any{"logged_out": true},
				output.WithSummary("Logged out"))
		},
	}
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app := appctx.FromContext(ctx)

			result := map[string]any{
				"base_url": app.Config.BaseURL,
			}

			if os.Getenv("INKWELL_TOKEN") != "" {
				result["authenticated"] = true
				result["source"] = "environment"
				return app.OK(result, output.WithSummary("Authenticated via INKWELL_TOKEN"))
			}

			if !app.Auth.IsAuthenticated() {
				result["authenticated"] = false
				return app.OK(result,
					output.WithSummary("Not logged in"),
					output.WithBreadcrumbs(output.Breadcrumb{
						Action:      "login",
						Cmd:         "inkwell auth login",
						Description: "Authenticate with a personal access token",
					}),
				)
			}

			result["authenticated"] = true
			if app.Auth.GetStore().UsingKeyring() {
				result["storage"] = "keyring"
			} else {
				result["storage"] = "file"
			}

			summary := "Authenticated"
			if email := app.Auth.AccountEmail(); email != "" {
				result["email"] = email
				summary = "Authenticated as " + email
			}

			// Verify the token still works when we can reach the API.
			if account, err := app.API.Me(ctx); err == nil {
				result["email"] = account.Email
				result["verified"] = true
				summary = "Authenticated as " + account.Email
			}

			return app.OK(result, output.WithSummary(summary))
		},
	}
}
