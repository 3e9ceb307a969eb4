package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/inkwell/inkwell-cli/internal/appctx"
	"github.com/inkwell/inkwell-cli/internal/backup"
	"github.com/inkwell/inkwell-cli/internal/output"
	"github.com/inkwell/inkwell-cli/internal/tui/editor"
)

// NewSyncCmd creates the sync command.
func NewSyncCmd() *cobra.Command {
	var dryRun, mine, theirs bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push all pending drafts",
		Long: `Push every pending offline draft to the server.

Drafts that conflict with newer server copies are left in place unless
--mine or --theirs picks a side for all of them. Use 'inkwell drafts
restore' to resolve a single document interactively.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app := appctx.FromContext(ctx)
			if err := requireAuth(app); err != nil {
				return err
			}
			if mine && theirs {
				return output.ErrUsage("--mine and --theirs are mutually exclusive")
			}

			store := backup.NewStore(app.Config.DraftsDir)
			entries, err := store.List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return app.OK([]syncResult{},
					output.WithSummary("Nothing to sync"))
			}

			if dryRun {
				results := make([]syncResult, 0, len(entries))
				for _, e := range entries {
					row := syncResult{Document: e.Key, Action: "would push"}
					if rec, err := store.Load(e.Key); err == nil && rec != nil {
						var p editor.Payload
						if json.Unmarshal(rec.Data, &p) == nil {
							row.Title = p.Title
						}
						row.SavedAt = rec.Time().Format(time.RFC3339)
					}
					results = append(results, row)
				}
				return app.OK(results,
					output.WithEntity("draft"),
					output.WithSummary(fmt.Sprintf("Would push %d drafts", len(results))))
			}

			var pushed, skipped, failed int
			results := make([]syncResult, 0, len(entries))
			for _, e := range entries {
				row := syncResult{Document: e.Key}
				rec, err := store.Load(e.Key)
				if err != nil {
					row.Action = "failed"
					row.Error = err.Error()
					failed++
					results = append(results, row)
					continue
				}
				if rec == nil {
					// Cleared between List and Load, nothing left to push
					row.Action = "skipped"
					skipped++
					results = append(results, row)
					continue
				}

				res, err := pushDraft(ctx, app, store, e.Key, rec, mine, theirs)
				switch {
				case err == nil:
					row.Action = res.Action
					row.Version = res.Version
					if res.Pushed {
						pushed++
					} else {
						skipped++
					}
				case output.IsConflict(err):
					// Neither side chosen: leave the draft for a
					// per-document restore.
					row.Action = "conflict"
					row.Error = "server copy diverged"
					skipped++
				default:
					row.Action = "failed"
					row.Error = err.Error()
					failed++
				}
				results = append(results, row)
			}

			summary := fmt.Sprintf("Pushed %d of %d drafts", pushed, len(entries))
			opts := []output.ResponseOption{
				output.WithEntity("draft"),
				output.WithSummary(summary),
				output.WithContext("pushed", pushed),
				output.WithContext("skipped", skipped),
				output.WithContext("failed", failed),
			}
			if skipped > 0 {
				opts = append(opts, output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "restore",
					Cmd:         "inkwell drafts restore <document> --mine|--theirs",
					Description: "Resolve a conflicted draft",
				}))
			}
			return app.OK(results, opts...)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be pushed without pushing")
	cmd.Flags().BoolVar(&mine, "mine", false, "On conflict, overwrite the server copy")
	cmd.Flags().BoolVar(&theirs, "theirs", false, "On conflict, discard the draft")

	return cmd
}

// syncResult is the per-draft outcome row.
type syncResult struct {
	Document string `json:"document"`
	Title    string `json:"title,omitempty"`
	Action   string `json:"action"`
	Version  int64  `json:"version,omitempty"`
	SavedAt  string `json:"saved_at,omitempty"`
	Error    string `json:"error,omitempty"`
}
