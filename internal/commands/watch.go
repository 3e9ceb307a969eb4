package commands

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/inkwell/inkwell-cli/internal/appctx"
	"github.com/inkwell/inkwell-cli/internal/autosave"
	"github.com/inkwell/inkwell-cli/internal/backup"
	"github.com/inkwell/inkwell-cli/internal/output"
	"github.com/inkwell/inkwell-cli/internal/tui/editor"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	var debounce time.Duration
	var noOffline, force bool

	cmd := &cobra.Command{
		Use:   "watch <document> <file>",
		Short: "Autosave a local file to a document",
		Long: `Watch a local file and save its contents to a document whenever it
changes, debounced the same way the editor is. Useful for editing in
your own editor while keeping the document in sync.

Ctrl-C flushes any pending save and exits.`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: documentCompletion(),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app := appctx.FromContext(ctx)
			if err := requireAuth(app); err != nil {
				return err
			}

			id, err := resolveDocument(ctx, app, args[0])
			if err != nil {
				return err
			}

			path, err := filepath.Abs(args[1])
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err != nil {
				return output.ErrUsageHint("Cannot watch file", err.Error())
			}

			doc, err := app.API.GetDocument(ctx, id)
			if err != nil {
				return err
			}

			store := backup.NewStore(app.Config.DraftsDir)

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

			app.Monitor.Start()
			defer app.Monitor.Stop()

			debounceDur := time.Duration(app.Config.DebounceMS) * time.Millisecond
			if cmd.Flags().Changed("debounce") {
				debounceDur = debounce
			}

			saver := newDocSaver(app.API, doc)
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

			stderr := cmd.ErrOrStderr()
			cancelSub := ctrl.Subscribe(func(st autosave.State) {
				switch st.Status {
				case autosave.StatusSaving:
					fmt.Fprintln(stderr, "saving…")
				case autosave.StatusSaved:
					fmt.Fprintln(stderr, "saved")
				case autosave.StatusOffline:
					fmt.Fprintln(stderr, "offline — edits kept as a local draft")
				case autosave.StatusError:
					fmt.Fprintln(stderr, "save failed, will retry on next change")
				case autosave.StatusConflict:
					fmt.Fprintln(stderr, "conflict — resolve with: inkwell drafts restore "+id+" --mine|--theirs")
				}
			})
			defer cancelSub()

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			defer watcher.Close()

			// Watch the directory, not the file: most editors replace
			// the file on save, which drops a file-level watch.
			if err := watcher.Add(filepath.Dir(path)); err != nil {
				return err
			}

			save := func() {
				data, err := os.ReadFile(path)
				if err != nil {
					app.Logger.Warn("reading watched file", "path", path, "error", err)
					return
				}
				ctrl.Save(editor.Payload{Title: doc.Title, Body: string(data)})
			}

			// Push the current content once so the document matches the
			// file from the start.
			save()

			fmt.Fprintf(stderr, "watching %s → %s (ctrl-c to stop)\n", args[1], doc.Title)

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			for {
				select {
				case <-ctx.Done():
					fmt.Fprintln(stderr, "flushing…")
					ctrl.Flush()
					return watchSummary(app, ctrl, store, id)

				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if watchedFileChanged(event, path) {
						save()
					}

				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					app.Logger.Warn("watch error", "error", err)
				}
			}
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "Quiet period before autosave")
	cmd.Flags().BoolVar(&noOffline, "no-offline", false, "Fail saves while offline instead of drafting")
	cmd.Flags().BoolVar(&force, "force", false, "Take over an existing edit session")

	return cmd
}

// watchedFileChanged reports whether a directory event means the watched
// file has new content. Editors that replace the file on save emit Create
// or Rename rather than Write; Chmod and Remove carry no content.
func watchedFileChanged(event fsnotify.Event, path string) bool {
	if event.Name != path {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

func watchSummary(app *appctx.App, ctrl *autosave.Controller[editor.Payload], store *backup.Store, id string) error {
	st := ctrl.State()

	result := map[string]any{
		"id":     id,
		"status": st.Status.String(),
	}
	if !st.LastSaved.IsZero() {
		result["last_saved"] = st.LastSaved.Format(time.RFC3339)
	}

	if st.Status == autosave.StatusOffline || store.Exists(id) {
		result["draft"] = store.Path(id)
		return app.OK(result,
			output.WithSummary("Edits kept as a local draft"),
			output.WithBreadcrumbs(output.Breadcrumb{
				Action:      "sync",
				Cmd:         "inkwell sync",
				Description: "Push pending drafts",
			}),
		)
	}
	return app.OK(result, output.WithSummary("Stopped watching"))
}
