package completion

import (
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inkwell/inkwell-cli/internal/appctx"
)

// CacheDirFunc returns the cache directory to use for completion.
// Takes the command to allow checking both context and flags at completion time.
type CacheDirFunc func(cmd *cobra.Command) string

// DefaultCacheDirFunc returns the cache directory by checking (in order):
// 1. --cache-dir flag on the root command
// 2. App config from context (set by PersistentPreRunE)
// 3. INKWELL_CACHE_DIR environment variable
// 4. Default cache directory
//
// This is the standard CacheDirFunc that all commands should use.
//
// Limitation: During __complete, PersistentPreRunE doesn't run, so appctx is
// not set and config files are not loaded. This means cache_dir set in config
// files is NOT honored during completion; only --cache-dir and the env var
// work. Loading config files adds latency that defeats fast completions, so
// users who set cache_dir in config should also set INKWELL_CACHE_DIR.
func DefaultCacheDirFunc(cmd *cobra.Command) string {
	// Check --cache-dir flag on root command
	if root := cmd.Root(); root != nil {
		if flag := root.PersistentFlags().Lookup("cache-dir"); flag != nil && flag.Changed {
			return flag.Value.String()
		}
	}
	// Check app context (populated by PersistentPreRunE)
	if app := appctx.FromContext(cmd.Context()); app != nil {
		return app.Config.CacheDir
	}
	// Check env var (for completions where appctx isn't set)
	if v := os.Getenv("INKWELL_CACHE_DIR"); v != "" {
		return v
	}
	// Fall back to default
	return ""
}

// Completer provides tab completion functions for the inkwell CLI.
// It reads from a file-based cache and does NOT initialize the full App or
// API client.
type Completer struct {
	getCacheDir CacheDirFunc
}

// NewCompleter creates a new Completer.
// The getCacheDir function is called at completion time to determine the
// cache directory. If nil, DefaultCacheDirFunc is used.
func NewCompleter(getCacheDir CacheDirFunc) *Completer {
	if getCacheDir == nil {
		getCacheDir = DefaultCacheDirFunc
	}
	return &Completer{getCacheDir: getCacheDir}
}

// store returns the Store to use for completion, resolving the cache dir at call time.
func (c *Completer) store(cmd *cobra.Command) *Store {
	return NewStore(c.getCacheDir(cmd))
}

// DocumentCompletion returns a Cobra completion function for document
// arguments. Completions are document IDs with titles as descriptions,
// ranked most recently updated first.
func (c *Completer) DocumentCompletion() cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
		docs := c.store(cmd).Documents()
		if len(docs) == 0 {
			// No cache - suggest no completions but allow any input
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		ranked := rankDocuments(docs)

		// Filter by prefix or substring on ID, slug, and title
		toCompleteLower := strings.ToLower(toComplete)
		var completions []cobra.Completion
		for _, d := range ranked {
			if matchesDocument(d, toCompleteLower) {
				completions = append(completions, cobra.CompletionWithDesc(d.ID, d.Title))
			}
		}

		return completions, cobra.ShellCompDirectiveNoFileComp
	}
}

// SlugCompletion returns a Cobra completion function for document reference
// arguments. Unlike DocumentCompletion, this returns slugs (falling back to
// titles) for commands that accept human-readable references.
func (c *Completer) SlugCompletion() cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
		docs := c.store(cmd).Documents()
		if len(docs) == 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		ranked := rankDocuments(docs)
		toCompleteLower := strings.ToLower(toComplete)
		var completions []cobra.Completion
		for _, d := range ranked {
			if !matchesDocument(d, toCompleteLower) {
				continue
			}
			if d.Slug != "" {
				completions = append(completions, cobra.CompletionWithDesc(d.Slug, d.Title))
				continue
			}
			// Return the title as-is; Cobra's completion scripts handle escaping
			completions = append(completions, cobra.Completion(d.Title))
		}

		return completions, cobra.ShellCompDirectiveNoFileComp
	}
}

// ProfileCompletion returns a Cobra completion function for --profile values.
// Profiles come from config files, so no cache freshness concerns apply.
func (c *Completer) ProfileCompletion() cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
		profiles := c.store(cmd).Profiles()
		if len(profiles) == 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		sort.Slice(profiles, func(i, j int) bool {
			return profiles[i].Name < profiles[j].Name
		})

		toCompleteLower := strings.ToLower(toComplete)
		var completions []cobra.Completion
		for _, p := range profiles {
			if strings.HasPrefix(strings.ToLower(p.Name), toCompleteLower) {
				completions = append(completions, cobra.CompletionWithDesc(p.Name, p.BaseURL))
			}
		}

		return completions, cobra.ShellCompDirectiveNoFileComp
	}
}

// matchesDocument reports whether a document matches the typed fragment on
// ID, slug, or title.
func matchesDocument(d CachedDocument, toCompleteLower string) bool {
	if toCompleteLower == "" {
		return true
	}
	idLower := strings.ToLower(d.ID)
	slugLower := strings.ToLower(d.Slug)
	titleLower := strings.ToLower(d.Title)
	return strings.HasPrefix(idLower, toCompleteLower) ||
		strings.HasPrefix(slugLower, toCompleteLower) ||
		strings.HasPrefix(titleLower, toCompleteLower) ||
		strings.Contains(titleLower, toCompleteLower)
}

// rankDocuments returns documents sorted by priority:
// 1. Recently updated
// 2. Alphabetical by title
func rankDocuments(docs []CachedDocument) []CachedDocument {
	// Copy to avoid mutating the original
	ranked := make([]CachedDocument, len(docs))
	copy(ranked, docs)

	sort.Slice(ranked, func(i, j int) bool {
		if !ranked[i].UpdatedAt.IsZero() && !ranked[j].UpdatedAt.IsZero() {
			if !ranked[i].UpdatedAt.Equal(ranked[j].UpdatedAt) {
				return ranked[i].UpdatedAt.After(ranked[j].UpdatedAt)
			}
		}
		return strings.ToLower(ranked[i].Title) < strings.ToLower(ranked[j].Title)
	})

	return ranked
}
