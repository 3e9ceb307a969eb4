package completion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/inkwell/inkwell-cli/internal/api"
	"github.com/inkwell/inkwell-cli/internal/models"
)

// RefreshResult contains the outcome of a refresh operation.
type RefreshResult struct {
	DocumentsCount int
	DocumentsErr   error
}

// HasError returns true if the refresh failed.
func (r RefreshResult) HasError() bool {
	return r.DocumentsErr != nil
}

// Error returns the refresh error, if any.
func (r RefreshResult) Error() error {
	if r.DocumentsErr != nil {
		return fmt.Errorf("documents: %w", r.DocumentsErr)
	}
	return nil
}

// Refresher handles background cache refresh operations.
type Refresher struct {
	store *Store
	api   *api.Client

	mu         sync.Mutex
	refreshing bool
}

// NewRefresher creates a new cache refresher.
func NewRefresher(store *Store, apiClient *api.Client) *Refresher {
	return &Refresher{
		store: store,
		api:   apiClient,
	}
}

// RefreshIfStale triggers a background refresh if the cache is stale.
// Returns immediately - the refresh happens asynchronously.
// If a refresh is already in progress, this is a no-op.
func (r *Refresher) RefreshIfStale(maxAge time.Duration) {
	if !r.store.IsStale(maxAge) {
		return
	}

	r.mu.Lock()
	if r.refreshing {
		r.mu.Unlock()
		return
	}
	r.refreshing = true
	r.mu.Unlock()

	go func() {
		defer func() {
			r.mu.Lock()
			r.refreshing = false
			r.mu.Unlock()
		}()

		// Use a detached context with timeout for background refresh
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Errors are intentionally ignored in background refresh - this is best-effort
		r.RefreshAll(ctx)
	}()
}

// RefreshAll fetches fresh document data from the API and updates the cache.
// This is a synchronous operation - use RefreshIfStale for async.
// On failure, existing cached data is preserved.
func (r *Refresher) RefreshAll(ctx context.Context) RefreshResult {
	var result RefreshResult

	docs, err := r.api.ListDocuments(ctx, api.ListOptions{})
	if err != nil {
		result.DocumentsErr = err
		return result
	}

	converted := convertDocuments(docs)
	if err := r.store.UpdateDocuments(converted); err != nil {
		result.DocumentsErr = err
		return result
	}
	result.DocumentsCount = len(converted)
	return result
}

// convertDocuments converts API document summaries to cached documents.
func convertDocuments(docs []models.DocumentSummary) []CachedDocument {
	result := make([]CachedDocument, len(docs))
	for i, d := range docs {
		updatedAt, _ := time.Parse(time.RFC3339, d.UpdatedAt)
		result[i] = CachedDocument{
			ID:        d.ID,
			Slug:      d.Slug,
			Title:     d.Title,
			UpdatedAt: updatedAt,
		}
	}
	return result
}

// IsRefreshing returns true if a background refresh is in progress.
func (r *Refresher) IsRefreshing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshing
}
