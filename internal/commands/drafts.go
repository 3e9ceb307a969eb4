package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/inkwell/inkwell-cli/internal/appctx"
	"github.com/inkwell/inkwell-cli/internal/backup"
	"github.com/inkwell/inkwell-cli/internal/output"
	"github.com/inkwell/inkwell-cli/internal/tui"
	"github.com/inkwell/inkwell-cli/internal/tui/editor"
)

// NewDraftsCmd creates the drafts command and its subcommands.
func NewDraftsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "drafts",
		Aliases: []string{"draft"},
		Short:   "Manage offline drafts",
		Long: `Inspect, push, or discard drafts left behind by offline edit
sessions. Drafts live under the local data directory, one file per
document.`,
	}

	cmd.AddCommand(newDraftsListCmd())
	cmd.AddCommand(newDraftsShowCmd())
	cmd.AddCommand(newDraftsRestoreCmd())
	cmd.AddCommand(newDraftsDiscardCmd())

	return cmd
}

// draftRow is the list-output shape for a single draft.
type draftRow struct {
	Document string    `json:"document"`
	Title    string    `json:"title,omitempty"`
	SavedAt  time.Time `json:"saved_at"`
	Size     int64     `json:"size"`
	Path     string    `json:"path"`
}

func newDraftsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending drafts",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			store := backup.NewStore(app.Config.DraftsDir)
			entries, err := store.List()
			if err != nil {
				return err
			}

			rows := make([]draftRow, 0, len(entries))
			for _, e := range entries {
				row := draftRow{
					Document: e.Key,
					SavedAt:  e.SavedAt,
					Size:     e.Size,
					Path:     store.Path(e.Key),
				}
				if rec, err := store.Load(e.Key); err == nil && rec != nil {
					var p editor.Payload
					if json.Unmarshal(rec.Data, &p) == nil {
						row.Title = p.Title
					}
				}
				rows = append(rows, row)
			}

			opts := []output.ResponseOption{
				output.WithEntity("draft"),
				output.WithSummary(countDrafts(len(rows))),
			}
			if len(rows) > 0 {
				opts = append(opts, output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "sync",
					Cmd:         "inkwell sync",
					Description: "Push all pending drafts",
				}))
			}
			return app.OK(rows, opts...)
		},
	}
}

func newDraftsShowCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show <document>",
		Short: "Show a draft's content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app := appctx.FromContext(ctx)

			store := backup.NewStore(app.Config.DraftsDir)
			key, rec, err := findDraft(ctx, app, store, args[0])
			if err != nil {
				return err
			}

			var p editor.Payload
			if err := json.Unmarshal(rec.Data, &p); err != nil {
				return fmt.Errorf("draft %s is corrupted: %w", key, err)
			}

			if raw {
				fmt.Fprintln(cmd.OutOrStdout(), p.Body)
				return nil
			}

			return app.OK(map[string]any{
				"document": key,
				"title":    p.Title,
				"body":     p.Body,
				"saved_at": rec.Time().Format(time.RFC3339),
			}, output.WithSummary(fmt.Sprintf("Draft of %q from %s",
				p.Title, rec.Time().Local().Format("Jan 2 15:04"))))
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print only the draft body")
	return cmd
}

func newDraftsRestoreCmd() *cobra.Command {
	var mine, theirs bool

	cmd := &cobra.Command{
		Use:   "restore <document>",
		Short: "Push a draft to the server",
		Long: `Push a pending draft to the server.

When the server copy changed since the draft was taken, the push is
rejected as a conflict. Pick a side with --mine (overwrite the server)
or --theirs (discard the draft); without either flag an interactive
prompt asks.`,
		Args: cobra.ExactArgs(1),
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
			key, rec, err := findDraft(ctx, app, store, args[0])
			if err != nil {
				return err
			}

			result, err := pushDraft(ctx, app, store, key, rec, mine, theirs)
			if err != nil {
				return err
			}
			return app.OK(result, output.WithSummary(result.Summary))
		},
	}

	cmd.Flags().BoolVar(&mine, "mine", false, "On conflict, overwrite the server copy")
	cmd.Flags().BoolVar(&theirs, "theirs", false, "On conflict, discard the draft")
	return cmd
}

func newDraftsDiscardCmd() *cobra.Command {
	var yes, all bool

	cmd := &cobra.Command{
		Use:   "discard [document]",
		Short: "Discard drafts without pushing",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app := appctx.FromContext(ctx)

			store := backup.NewStore(app.Config.DraftsDir)

			if all {
				entries, err := store.List()
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					return app.OK(map[string]any{"discarded": 0},
						output.WithSummary("No drafts to discard"))
				}
				if !yes && app.IsInteractive() {
					ok, err := tui.ConfirmDangerous(
						fmt.Sprintf("Discard all %d drafts?", len(entries)))
					if err != nil || !ok {
						return output.ErrUsage("Cancelled")
					}
				}
				discarded := 0
				for _, e := range entries {
					if store.Clear(e.Key) == nil {
						discarded++
					}
				}
				return app.OK(map[string]any{"discarded": discarded},
					output.WithSummary(fmt.Sprintf("Discarded %d drafts", discarded)))
			}

			if len(args) == 0 {
				return output.ErrUsageHint("Missing document", "Pass a document or --all")
			}

			key, rec, err := findDraft(ctx, app, store, args[0])
			if err != nil {
				return err
			}

			if !yes && app.IsInteractive() {
				var p editor.Payload
				_ = json.Unmarshal(rec.Data, &p)
				ok, err := tui.ConfirmDangerous(
					fmt.Sprintf("Discard the draft of %q from %s?",
						p.Title, rec.Time().Local().Format("Jan 2 15:04")))
				if err != nil || !ok {
					return output.ErrUsage("Cancelled")
				}
			}

			if err := store.Clear(key); err != nil {
				return err
			}
			return app.OK(map[string]any{"document": key, "discarded": true},
				output.WithSummary("Draft discarded"))
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	cmd.Flags().BoolVar(&all, "all", false, "Discard every pending draft")
	return cmd
}

// findDraft locates the draft for a document reference. The reference is
// tried as a raw draft key first so drafts remain reachable offline; name
// resolution only runs when that misses.
func findDraft(ctx context.Context, app *appctx.App, store *backup.Store, ref string) (string, *backup.Record, error) {
	// Load reports a miss as (nil, nil), not an error.
	if rec, err := store.Load(ref); err == nil && rec != nil {
		return ref, rec, nil
	}

	id, err := resolveDocument(ctx, app, ref)
	if err != nil {
		return "", nil, output.ErrNotFoundHint("draft", ref,
			"Run 'inkwell drafts list' to see pending drafts")
	}
	rec, err := store.Load(id)
	if err != nil || rec == nil {
		return "", nil, output.ErrNotFoundHint("draft", ref,
			"Run 'inkwell drafts list' to see pending drafts")
	}
	return id, rec, nil
}

// draftPushResult is the outcome of pushing one draft.
type draftPushResult struct {
	Document string `json:"document"`
	Pushed   bool   `json:"pushed"`
	Action   string `json:"action,omitempty"` // saved, overwrote, discarded
	Version  int64  `json:"version,omitempty"`
	Summary  string `json:"-"`
}

// pushDraft writes one draft to the server, resolving conflicts per the
// mine/theirs flags (interactive prompt when neither is set). The draft is
// cleared once either side has won.
func pushDraft(ctx context.Context, app *appctx.App, store *backup.Store, key string, rec *backup.Record, mine, theirs bool) (*draftPushResult, error) {
	var p editor.Payload
	if err := json.Unmarshal(rec.Data, &p); err != nil {
		return nil, fmt.Errorf("draft %s is corrupted: %w", key, err)
	}

	doc, err := app.API.GetDocument(ctx, key)
	if err != nil {
		return nil, err
	}
	saver := newDocSaver(app.API, doc)

	// First try against the version the document has now. The server
	// still rejects the write when someone saved between fetch and push.
	err = saver.Save(ctx, p)
	if err == nil {
		if cerr := store.Clear(key); cerr != nil {
			app.Logger.Warn("draft pushed but not cleared", "document", key, "error", cerr)
		}
		return &draftPushResult{
			Document: key,
			Pushed:   true,
			Action:   "saved",
			Version:  saver.Version(),
			Summary:  "Draft pushed",
		}, nil
	}
	if !output.IsConflict(err) {
		return nil, err
	}

	// Conflict: the server copy diverged from the draft's base.
	switch {
	case theirs:
		if cerr := store.Clear(key); cerr != nil {
			return nil, cerr
		}
		return &draftPushResult{
			Document: key,
			Pushed:   false,
			Action:   "discarded",
			Summary:  "Server version kept, draft discarded",
		}, nil

	case mine:
		// Adopt the remote version as base and push again so the
		// draft overwrites it.
		if _, lerr := saver.Load(ctx); lerr != nil {
			return nil, lerr
		}
		if serr := saver.Save(ctx, p); serr != nil {
			return nil, serr
		}
		if cerr := store.Clear(key); cerr != nil {
			app.Logger.Warn("draft pushed but not cleared", "document", key, "error", cerr)
		}
		return &draftPushResult{
			Document: key,
			Pushed:   true,
			Action:   "overwrote",
			Version:  saver.Version(),
			Summary:  "Draft pushed, server copy overwritten",
		}, nil

	case app.IsInteractive():
		choice, serr := tui.Select(
			fmt.Sprintf("%q changed on the server since this draft", doc.Title),
			[]tui.SelectOption{
				{Label: "Keep my draft (overwrite the server)", Value: "mine"},
				{Label: "Take the server version (discard the draft)", Value: "theirs"},
			})
		if serr != nil {
			return nil, err
		}
		return pushDraft(ctx, app, store, key, rec, choice == "mine", choice == "theirs")

	default:
		return nil, err
	}
}

func countDrafts(n int) string {
	if n == 1 {
		return "1 pending draft"
	}
	return fmt.Sprintf("%d pending drafts", n)
}
