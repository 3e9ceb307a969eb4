package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/inkwell/inkwell-cli/internal/appctx"
	"github.com/inkwell/inkwell-cli/internal/completion"
	"github.com/inkwell/inkwell-cli/internal/output"
	"github.com/inkwell/inkwell-cli/internal/tui"
)

// NewCompletionCmd creates the completion command group.
func NewCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [shell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for inkwell.

To load completions:

Bash:
  $ source <(inkwell completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ inkwell completion bash > /etc/bash_completion.d/inkwell
  # macOS:
  $ inkwell completion bash > $(brew --prefix)/etc/bash_completion.d/inkwell

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ inkwell completion zsh > "${fpath[1]}/_inkwell"

Fish:
  $ inkwell completion fish | source

  # To load completions for each session, execute once:
  $ inkwell completion fish > ~/.config/fish/completions/inkwell.fish

PowerShell:
  PS> inkwell completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompletion(cmd.Root(), args[0])
		},
	}

	cmd.AddCommand(newCompletionRefreshCmd())
	cmd.AddCommand(newCompletionStatusCmd())

	return cmd
}

func runCompletion(rootCmd *cobra.Command, shell string) error {
	switch shell {
	case "bash":
		return rootCmd.GenBashCompletionV2(os.Stdout, true)
	case "zsh":
		return rootCmd.GenZshCompletion(os.Stdout)
	case "fish":
		return rootCmd.GenFishCompletion(os.Stdout, true)
	case "powershell":
		return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
	default:
		return fmt.Errorf("unknown shell: %s", shell)
	}
}

func newCompletionRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the completion cache",
		Long: `Refresh the cached document list used for tab completion.

The cache normally refreshes in the background when stale; use this to
force a refresh after creating documents elsewhere.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if err := requireAuth(app); err != nil {
				return err
			}

			store := completion.NewStore(app.Config.CacheDir)
			refresher := completion.NewRefresher(store, app.API)

			refresh := func() error {
				refreshResult := refresher.RefreshAll(cmd.Context())
				if refreshResult.HasError() {
					return refreshResult.Error()
				}
				return nil
			}
			if app.IsInteractive() {
				_, err := tui.NewSpinner("Refreshing document cache...").Run(func() (string, error) {
					return "Cache refreshed", refresh()
				})
				if err != nil {
					return fmt.Errorf("refresh failed: %w", err)
				}
			} else if err := refresh(); err != nil {
				return fmt.Errorf("refresh failed: %w", err)
			}

			cache, err := store.Load()
			if err != nil {
				return fmt.Errorf("refresh completed but failed to read cache: %w", err)
			}

			return app.OK(map[string]any{
				"documents":  len(cache.Documents),
				"cache_path": store.Path(),
			}, output.WithSummary(fmt.Sprintf("Cached %d documents", len(cache.Documents))))
		},
	}
}

func newCompletionStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show completion cache status",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			store := completion.NewStore(app.Config.CacheDir)
			cache, err := store.Load()
			if err != nil {
				return err
			}

			isStale := store.IsStale(completion.DefaultMaxAge)

			var age, status string
			switch {
			case len(cache.Documents) == 0:
				age = "never"
				status = "empty"
			case cache.DocumentsUpdatedAt.IsZero():
				age = "unknown"
				status = "stale"
			default:
				age = time.Since(cache.DocumentsUpdatedAt).Round(time.Second).String()
				if isStale {
					status = "stale"
				} else {
					status = "fresh"
				}
			}

			return app.OK(map[string]any{
				"documents":  len(cache.Documents),
				"updated_at": cache.DocumentsUpdatedAt,
				"age":        age,
				"status":     status,
				"stale":      isStale,
				"cache_path": store.Path(),
			}, output.WithSummary(fmt.Sprintf("%d documents (%s)", len(cache.Documents), status)))
		},
	}
}
