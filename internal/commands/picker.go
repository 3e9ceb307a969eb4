package commands

import (
	"context"
	"fmt"

	"github.com/inkwell/inkwell-cli/internal/api"
	"github.com/inkwell/inkwell-cli/internal/appctx"
	"github.com/inkwell/inkwell-cli/internal/models"
	"github.com/inkwell/inkwell-cli/internal/output"
	"github.com/inkwell/inkwell-cli/internal/tui"
	"github.com/inkwell/inkwell-cli/internal/tui/recents"
)

// pickDocument shows a fuzzy picker over the account's documents and returns
// the selected ID. Recently opened documents are pinned to the top of the
// list, and the selection is recorded so it surfaces first next time.
func pickDocument(ctx context.Context, app *appctx.App) (string, error) {
	docs, err := app.API.ListDocuments(ctx, api.ListOptions{})
	if err != nil {
		return "", fmt.Errorf("fetching documents: %w", err)
	}

	items := make([]tui.PickerItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, documentToPickerItem(doc))
	}

	store := recents.NewStore(app.Config.CacheDir)
	var recent []tui.PickerItem
	for _, r := range store.Get() {
		recent = append(recent, tui.PickerItem{
			ID:          r.ID,
			Title:       r.Title,
			Description: r.Slug,
		})
	}

	selected, err := tui.PickDocument(items, recent)
	if err != nil {
		return "", fmt.Errorf("document selection failed: %w", err)
	}
	if selected == nil {
		return "", output.ErrUsage("document selection canceled")
	}

	recordRecentDocument(app, selected.ID, selected.Title, selected.Description)
	return selected.ID, nil
}

// recordRecentDocument adds a document to the recents list. Failures are
// ignored; recents are a convenience, not state the command depends on.
func recordRecentDocument(app *appctx.App, id, title, slug string) {
	store := recents.NewStore(app.Config.CacheDir)
	store.Add(recents.Item{ID: id, Title: title, Slug: slug})
}

func documentToPickerItem(doc models.DocumentSummary) tui.PickerItem {
	description := doc.Slug
	if doc.Archived {
		description = "[archived] " + description
	}
	return tui.PickerItem{
		ID:          doc.ID,
		Title:       doc.Title,
		Description: description,
	}
}
