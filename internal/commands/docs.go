// Package commands implements the CLI commands.
package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inkwell/inkwell-cli/internal/api"
	"github.com/inkwell/inkwell-cli/internal/appctx"
	"github.com/inkwell/inkwell-cli/internal/completion"
	"github.com/inkwell/inkwell-cli/internal/dateparse"
	"github.com/inkwell/inkwell-cli/internal/models"
	"github.com/inkwell/inkwell-cli/internal/output"
	"github.com/inkwell/inkwell-cli/internal/richtext"
	"github.com/inkwell/inkwell-cli/internal/tui"
)

// NewDocsCmd creates the docs command and its subcommands.
func NewDocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "docs",
		Aliases: []string{"doc", "d"},
		Short:   "Manage documents",
		Long:    "List, show, create, delete, or open Inkwell documents.",
	}

	cmd.AddCommand(newDocsListCmd())
	cmd.AddCommand(newDocsShowCmd())
	cmd.AddCommand(newDocsCreateCmd())
	cmd.AddCommand(newDocsDeleteCmd())
	cmd.AddCommand(newDocsOpenCmd())

	return cmd
}

func newDocsListCmd() *cobra.Command {
	var archived bool
	var updatedSince, query string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents",
		Long: `List documents in your account.

--updated-since accepts a date or a relative expression:
  --updated-since=2026-08-01
  --updated-since=yesterday
  --updated-since="last week"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app := appctx.FromContext(ctx)
			if err := requireAuth(app); err != nil {
				return err
			}

			opts := api.ListOptions{
				Archived: archived,
				Query:    query,
				Limit:    limit,
			}
			if updatedSince != "" {
				t, err := dateparse.Time(updatedSince)
				if err != nil {
					return output.ErrUsageHint(
						fmt.Sprintf("Invalid date: %s", updatedSince),
						"Use a date (2026-08-01) or a relative expression (yesterday, last week)",
					)
				}
				opts.UpdatedSince = t
			}

			docs, err := app.API.ListDocuments(ctx, opts)
			if err != nil {
				return err
			}

			return app.OK(docs,
				output.WithEntity("document"),
				output.WithSummary(countDocs(len(docs))),
			)
		},
	}

	cmd.Flags().BoolVar(&archived, "archived", false, "List archived documents")
	cmd.Flags().StringVar(&updatedSince, "updated-since", "", "Only documents updated since this date")
	cmd.Flags().StringVarP(&query, "query", "Q", "", "Filter by title text")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of documents")

	return cmd
}

func newDocsShowCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:               "show [document]",
		Short:             "Show a document",
		Long:              "Show a document by ID, slug, title, or URL. The body renders as styled Markdown on a terminal; use --raw for the unrendered source.",
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

			if raw && app.IsInteractive() {
				fmt.Fprintln(cmd.OutOrStdout(), doc.Body)
				return nil
			}
			if app.IsInteractive() && doc.Body != "" && richtext.IsMarkdown(doc.Body) {
				if rendered, rerr := richtext.RenderMarkdown(doc.Body); rerr == nil {
					display := *doc
					display.Body = rendered
					return app.OK(display, output.WithEntity("document"))
				}
			}

			return app.OK(doc, output.WithEntity("document"))
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the Markdown source without rendering")

	return cmd
}

func newDocsCreateCmd() *cobra.Command {
	var title, body, file, slug string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a document",
		Long:  "Create a new document. Body comes from --body, --file, or stdin (--file -).",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app := appctx.FromContext(ctx)
			if err := requireAuth(app); err != nil {
				return err
			}

			if title == "" && app.IsInteractive() {
				entered, err := tui.Input("Document title", "Release notes")
				if err != nil {
					return err
				}
				title = strings.TrimSpace(entered)
			}
			if title == "" {
				return output.ErrUsageHint("Document title is required", "Use --title to name the document")
			}

			content, err := readBody(body, file)
			if err != nil {
				return err
			}

			doc, err := app.API.CreateDocument(ctx, models.NewDocument{
				Title: title,
				Body:  content,
				Slug:  slug,
			})
			if err != nil {
				return err
			}

			return app.OK(doc,
				output.WithEntity("document"),
				output.WithSummary("Document created"),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "edit",
					Cmd:         "inkwell edit " + doc.ID,
					Description: "Open in the editor",
				}),
			)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Document title (required)")
	cmd.Flags().StringVar(&body, "body", "", "Document body (Markdown)")
	cmd.Flags().StringVar(&file, "file", "", "Read body from file ('-' for stdin)")
	cmd.Flags().StringVar(&slug, "slug", "", "URL slug")

	return cmd
}

func newDocsDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:               "delete <document>",
		Short:             "Delete a document",
		Args:              cobra.ExactArgs(1),
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

			if !yes && app.IsInteractive() {
				ok, cerr := tui.ConfirmDangerous(fmt.Sprintf("Delete document %s?", args[0]))
				if cerr != nil || !ok {
					return output.ErrUsage("Cancelled")
				}
			}

			if err := app.API.DeleteDocument(ctx, id); err != nil {
				return err
			}

			return app.OK(map[string]string{"id": id, "status": "deleted"},
				output.WithSummary("Document deleted"))
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")

	return cmd
}

func newDocsOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "open <document>",
		Short:             "Open a document in the browser",
		Args:              cobra.ExactArgs(1),
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

			doc, err := app.API.GetDocument(ctx, id)
			if err != nil {
				return err
			}

			url := doc.AppURL
			if url == "" {
				url = doc.URL
			}
			if url == "" {
				return output.ErrNotFoundHint("Document URL", id, "The document has no web URL")
			}

			if err := openBrowser(url); err != nil {
				return fmt.Errorf("opening browser: %w", err)
			}
			return app.OK(map[string]string{"id": id, "url": url},
				output.WithSummary("Opened "+url))
		},
	}
}

// documentCompletion returns the cached document completion func.
func documentCompletion() cobra.CompletionFunc {
	return completion.NewCompleter(nil).DocumentCompletion()
}

func countDocs(n int) string {
	if n == 1 {
		return "1 document"
	}
	return fmt.Sprintf("%d documents", n)
}
