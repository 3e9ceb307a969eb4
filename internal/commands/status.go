package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/inkwell/inkwell-cli/internal/appctx"
	"github.com/inkwell/inkwell-cli/internal/backup"
	"github.com/inkwell/inkwell-cli/internal/output"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connectivity, drafts, and session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app := appctx.FromContext(ctx)

			result := map[string]any{
				"base_url": app.Config.BaseURL,
			}

			if email := app.Auth.AccountEmail(); email != "" {
				result["account"] = email
				result["authenticated"] = true
			} else {
				result["authenticated"] = app.Auth.IsAuthenticated()
			}

			start := time.Now()
			if err := app.API.Health(ctx); err != nil {
				result["online"] = false
				result["connectivity_error"] = err.Error()
			} else {
				result["online"] = true
				result["latency_ms"] = time.Since(start).Milliseconds()
			}

			store := backup.NewStore(app.Config.DraftsDir)
			entries, err := store.List()
			if err == nil {
				result["pending_drafts"] = len(entries)
				result["drafts_dir"] = store.Dir()
				var newest time.Time
				for _, e := range entries {
					if e.SavedAt.After(newest) {
						newest = e.SavedAt
					}
				}
				if !newest.IsZero() {
					result["newest_draft"] = newest.Format(time.RFC3339)
				}
			}

			summary := "Online"
			if online, _ := result["online"].(bool); !online {
				summary = "Offline"
			}
			if n, _ := result["pending_drafts"].(int); n > 0 {
				summary = fmt.Sprintf("%s, %s", summary, countDrafts(n))
			}

			opts := []output.ResponseOption{output.WithSummary(summary)}
			if n, _ := result["pending_drafts"].(int); n > 0 {
				opts = append(opts, output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "sync",
					Cmd:         "inkwell sync",
					Description: "Push pending drafts",
				}))
			}
			return app.OK(result, opts...)
		},
	}
}
