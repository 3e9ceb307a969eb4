package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/inkwell/inkwell-cli/internal/appctx"
	"github.com/inkwell/inkwell-cli/internal/autosave"
	"github.com/inkwell/inkwell-cli/internal/backup"
	"github.com/inkwell/inkwell-cli/internal/output"
	"github.com/inkwell/inkwell-cli/internal/tui"
	"github.com/inkwell/inkwell-cli/internal/tui/editor"
)

// NewEditCmd creates the edit command.
func NewEditCmd() *cobra.Command {
	var file string
	var debounce time.Duration
	var noOffline, readOnly, force bool

	cmd := &cobra.Command{
		Use:     "edit [document]",
		Aliases: []string{"e"},
		Short:   "Edit a document with live autosave",
		Long: `Open a document in the terminal editor.

Edits are saved automatically after a short quiet period. While offline,
edits are kept as a local draft and pushed when connectivity returns.
With --file outside a terminal, the file content is saved once and the
command exits (useful in scripts).`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: documentCompletion(),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app := appctx.FromContext(ctx)
			if err := requireAuth(app); err != nil {
				return err
			}

			var id string
			var err error
			switch {
			case len(args) == 1:
				id, err = resolveDocument(ctx, app, args[0])
			case app.IsInteractive():
				id, err = pickDocument(ctx, app)
			default:
				err = output.ErrUsage("No document specified")
			}
			if err != nil {
				return err
			}

			doc, err := app.API.GetDocument(ctx, id)
			if err != nil {
				return err
			}
			recordRecentDocument(app, doc.ID, doc.Title, doc.Slug)

			initial := editor.Payload{Title: doc.Title, Body: doc.Body}
			if file != "" {
				body, err := readBody("", file)
				if err != nil {
					return err
				}
				initial.Body = body
			}

			store := backup.NewStore(app.Config.DraftsDir)
			saver := newDocSaver(app.API, doc)

			if !app.IsInteractive() {
				return editOneShot(cmd, app, store, saver, id, initial, file, noOffline)
			}

			if !readOnly {
				lock := backup.NewEditLock(store.Dir())
				holder, acquired, err := lock.Acquire(id)
				if err != nil {
					return fmt.Errorf("acquiring edit lock: %w", err)
				}
				if !acquired {
					if !force {
						return output.ErrUsageHint(
							fmt.Sprintf("Document is being edited by another process (pid %d)", holder.PID),
							"Use --force to take over the session",
						)
					}
					app.Logger.Warn("taking over edit lock", "document", id, "holder_pid", holder.PID)
					if _, err := lock.ForceAcquire(id); err != nil {
						return fmt.Errorf("taking over edit lock: %w", err)
					}
				}
				defer lock.Release(id)
			}

			// A draft left behind by an earlier offline session takes
			// precedence over the server copy if the user wants it.
			if rec, err := store.Load(id); err == nil && rec != nil {
				var draft editor.Payload
				if json.Unmarshal(rec.Data, &draft) == nil {
					restore, err := tui.Confirm(fmt.Sprintf(
						"An unsynced draft from %s exists. Restore it?",
						rec.Time().Local().Format("Jan 2 15:04"),
					), true)
					if err == nil && restore {
						initial = draft
					}
				}
			}

			app.Monitor.Start()
			defer app.Monitor.Stop()

			debounceDur := time.Duration(app.Config.DebounceMS) * time.Millisecond
			if cmd.Flags().Changed("debounce") {
				debounceDur = debounce
			}

			ctrl, err := autosave.New(autosave.Config[editor.Payload]{
				Save:           saver.Save,
				Load:           saver.Load,
				Debounce:       debounceDur,
				SavedDecay:     time.Duration(app.Config.SavedDecayMS) * time.Millisecond,
				BackupKey:      id,
				Backups:        store,
				DisableOffline: noOffline || !app.Config.OfflineEnabled,
				Observer:       app.Monitor,
				Hooks:          app.SaveHooks(id),
				Logger:         app.Logger,
			})
			if err != nil {
				return err
			}
			defer ctrl.Close()

			if err := editor.Run(editor.Session{
				DocumentID: id,
				Initial:    initial,
				Controller: ctrl,
				Styles:     tui.NewStyles(),
				ReadOnly:   readOnly,
			}); err != nil {
				return err
			}

			return editSummary(app, ctrl, store, id)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Pre-load body from file ('-' for stdin)")
	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "Quiet period before autosave")
	cmd.Flags().BoolVar(&noOffline, "no-offline", false, "Fail saves while offline instead of drafting")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "View without saving")
	cmd.Flags().BoolVar(&force, "force", false, "Take over an existing edit session")

	return cmd
}

// editOneShot is the non-interactive degradation: save once and exit.
func editOneShot(cmd *cobra.Command, app *appctx.App, store *backup.Store, saver *docSaver, id string, payload editor.Payload, file string, noOffline bool) error {
	if file == "" {
		return output.ErrUsageHint(
			"Interactive editing needs a terminal",
			"Pass --file to save content non-interactively",
		)
	}

	err := saver.Save(cmd.Context(), payload)
	if err == nil {
		return app.OK(map[string]any{
			"id":      id,
			"version": saver.Version(),
			"saved":   true,
		}, output.WithSummary("Saved"))
	}
	if output.IsConflict(err) {
		return err
	}

	// Park the payload as a draft on network failure, matching the
	// editor's offline behavior.
	var oerr *output.Error
	offlineOK := !noOffline && app.Config.OfflineEnabled
	if offlineOK && errors.As(err, &oerr) && oerr.Code == output.CodeNetwork {
		data, merr := json.Marshal(payload)
		if merr == nil && store.Save(id, data, time.Now()) == nil {
			return app.OK(map[string]any{
				"id":    id,
				"saved": false,
				"draft": store.Path(id),
			},
				output.WithSummary("Offline — draft saved"),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "sync",
					Cmd:         "inkwell sync",
					Description: "Push pending drafts when back online",
				}),
			)
		}
	}
	return err
}

// editSummary reports the session outcome after the editor exits.
func editSummary(app *appctx.App, ctrl *autosave.Controller[editor.Payload], store *backup.Store, id string) error {
	st := ctrl.State()

	result := map[string]any{
		"id":     id,
		"status": st.Status.String(),
	}
	if !st.LastSaved.IsZero() {
		result["last_saved"] = st.LastSaved.Format(time.RFC3339)
	}

	opts := []output.ResponseOption{}
	switch {
	case st.Status == autosave.StatusOffline || store.Exists(id):
		result["draft"] = store.Path(id)
		opts = append(opts,
			output.WithSummary("Edits kept as a local draft"),
			output.WithBreadcrumbs(output.Breadcrumb{
				Action:      "sync",
				Cmd:         "inkwell sync",
				Description: "Push pending drafts",
			}),
		)
	case st.HasUnsavedChanges:
		opts = append(opts, output.WithSummary("Session ended with unsaved changes"))
	default:
		opts = append(opts, output.WithSummary("All changes saved"))
	}

	return app.OK(result, opts...)
}
