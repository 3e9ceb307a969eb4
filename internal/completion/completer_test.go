package completion

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCompleter creates a Completer for testing with a fixed cache directory.
func newTestCompleter(cacheDir string) *Completer {
	return NewCompleter(func(cmd *cobra.Command) string { return cacheDir })
}

// newTestCmd creates a minimal cobra.Command with a context for testing completion functions.
func newTestCmd() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	return cmd
}

func TestRankDocuments(t *testing.T) {
	now := time.Now()
	docs := []CachedDocument{
		{ID: "doc-1", Title: "Alpha Notes", UpdatedAt: now.Add(-24 * time.Hour)},
		{ID: "doc-2", Title: "Beta Notes", UpdatedAt: now.Add(-48 * time.Hour)},
		{ID: "doc-3", Title: "Zeta Notes", UpdatedAt: now.Add(-1 * time.Hour)},
		{ID: "doc-4", Title: "Gamma Notes", UpdatedAt: now.Add(-2 * time.Hour)},
	}

	ranked := rankDocuments(docs)

	// Expected order: most recently updated first
	expected := []string{"doc-3", "doc-4", "doc-1", "doc-2"}
	for i, id := range expected {
		assert.Equal(t, id, ranked[i].ID, "position %d: expected ID %s, got %s (%s)", i, id, ranked[i].ID, ranked[i].Title)
	}
}

func TestRankDocumentsAlphabetical(t *testing.T) {
	// Without timestamps, should sort alphabetically by title
	docs := []CachedDocument{
		{ID: "doc-1", Title: "Zebra"},
		{ID: "doc-2", Title: "Apple"},
		{ID: "doc-3", Title: "Banana"},
	}

	ranked := rankDocuments(docs)

	expected := []string{"Apple", "Banana", "Zebra"}
	for i, title := range expected {
		assert.Equal(t, title, ranked[i].Title, "position %d: expected %s, got %s", i, title, ranked[i].Title)
	}
}

func TestRankDocumentsDoesNotMutate(t *testing.T) {
	docs := []CachedDocument{
		{ID: "doc-1", Title: "Zebra"},
		{ID: "doc-2", Title: "Apple"},
	}

	rankDocuments(docs)

	assert.Equal(t, "doc-1", docs[0].ID, "rankDocuments should not mutate its input")
}

func TestCompleterDocumentCompletion(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewStore(tmpDir)

	now := time.Now()
	docs := []CachedDocument{
		{ID: "doc-100", Slug: "engineering-weekly", Title: "Engineering Weekly", UpdatedAt: now},
		{ID: "doc-200", Slug: "marketing-campaign", Title: "Marketing Campaign", UpdatedAt: now.Add(-time.Hour)},
		{ID: "doc-300", Slug: "sales-pipeline", Title: "Sales Pipeline", UpdatedAt: now.Add(-2 * time.Hour)},
	}
	require.NoError(t, store.UpdateDocuments(docs), "failed to update documents")

	completer := newTestCompleter(tmpDir)
	fn := completer.DocumentCompletion()

	tests := []struct {
		name       string
		toComplete string
		wantIDs    []string // Expected IDs in order
	}{
		{
			name:       "empty prefix returns all ranked by recency",
			toComplete: "",
			wantIDs:    []string{"doc-100", "doc-200", "doc-300"},
		},
		{
			name:       "title prefix filter",
			toComplete: "eng",
			wantIDs:    []string{"doc-100"},
		},
		{
			name:       "title contains filter",
			toComplete: "campaign",
			wantIDs:    []string{"doc-200"},
		},
		{
			name:       "slug prefix filter",
			toComplete: "sales-",
			wantIDs:    []string{"doc-300"},
		},
		{
			name:       "id prefix filter",
			toComplete: "doc-2",
			wantIDs:    []string{"doc-200"},
		},
		{
			name:       "no matches",
			toComplete: "xyz",
			wantIDs:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completions, directive := fn(newTestCmd(), nil, tt.toComplete)
			assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive, "expected NoFileComp directive")

			require.Len(t, completions, len(tt.wantIDs), "expected %d completions", len(tt.wantIDs))

			for i, wantID := range tt.wantIDs {
				// Completion format is "ID\tDescription"
				got := completions[i]
				assert.True(t, len(got) >= len(wantID) && got[:len(wantID)] == wantID, "completion %d: expected to start with %s, got %s", i, wantID, got)
			}
		})
	}
}

func TestCompleterSlugCompletion(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewStore(tmpDir)

	docs := []CachedDocument{
		{ID: "doc-1", Slug: "meeting-notes", Title: "Meeting Notes"},
		{ID: "doc-2", Title: "Untitled Draft"}, // no slug
	}
	require.NoError(t, store.UpdateDocuments(docs))

	completer := newTestCompleter(tmpDir)
	fn := completer.SlugCompletion()

	completions, directive := fn(newTestCmd(), nil, "")
	assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)
	require.Len(t, completions, 2)

	// Both entries present: the slugged document completes by slug, the
	// slugless one falls back to its title.
	assert.Equal(t, "meeting-notes\tMeeting Notes", completions[0])
	assert.Equal(t, "Untitled Draft", completions[1])
}

func TestCompleterProfileCompletion(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)

	inkwellDir := filepath.Join(configHome, "inkwell")
	require.NoError(t, os.MkdirAll(inkwellDir, 0700))
	configJSON := `{
		"profiles": {
			"work": {"base_url": "https://api.inkwell.app"},
			"staging": {"base_url": "https://staging-api.inkwell.app"}
		}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(inkwellDir, "config.json"), []byte(configJSON), 0600))

	completer := newTestCompleter(t.TempDir())
	fn := completer.ProfileCompletion()

	completions, directive := fn(newTestCmd(), nil, "")
	assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)
	require.Len(t, completions, 2)
	assert.Equal(t, "staging\thttps://staging-api.inkwell.app", completions[0])
	assert.Equal(t, "work\thttps://api.inkwell.app", completions[1])

	completions, _ = fn(newTestCmd(), nil, "wo")
	require.Len(t, completions, 1)
	assert.Equal(t, "work\thttps://api.inkwell.app", completions[0])
}

func TestCompleterEmptyCache(t *testing.T) {
	tmpDir := t.TempDir()
	// Initialize empty store
	_ = NewStore(tmpDir)

	completer := newTestCompleter(tmpDir)

	fn := completer.DocumentCompletion()
	completions, directive := fn(newTestCmd(), nil, "")
	assert.Len(t, completions, 0, "expected no completions with empty cache")
	assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive, "expected NoFileComp directive")
}

func TestCompleterMissingCacheFile(t *testing.T) {
	// Use a directory that doesn't have a cache file
	tmpDir := t.TempDir()
	nonExistentDir := filepath.Join(tmpDir, "nonexistent")

	completer := newTestCompleter(nonExistentDir)
	fn := completer.DocumentCompletion()

	completions, directive := fn(newTestCmd(), nil, "test")
	assert.Len(t, completions, 0, "expected no completions with missing cache")
	assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive, "expected NoFileComp directive")
}

func TestCompleterCorruptedCache(t *testing.T) {
	tmpDir := t.TempDir()

	// Write corrupted JSON
	require.NoError(t, os.MkdirAll(tmpDir, 0700))
	cachePath := filepath.Join(tmpDir, CacheFileName)
	require.NoError(t, os.WriteFile(cachePath, []byte("{invalid json"), 0600))

	completer := newTestCompleter(tmpDir)
	fn := completer.DocumentCompletion()

	// Should return empty completions, not error
	completions, _ := fn(newTestCmd(), nil, "")
	assert.Len(t, completions, 0, "expected no completions with corrupted cache")
}

func TestDefaultCacheDirFuncEnvFallback(t *testing.T) {
	t.Setenv("INKWELL_CACHE_DIR", "/tmp/inkwell-cache-test")

	cmd := newTestCmd()
	dir := DefaultCacheDirFunc(cmd)
	assert.Equal(t, "/tmp/inkwell-cache-test", dir)
}
