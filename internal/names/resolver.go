// Package names resolves document references to IDs. A reference may be a
// document ID, a pasted inkwell.app URL, a slug, or a title. Title matching
// runs in priority order:
// 1. Exact match (case-sensitive)
// 2. Case-insensitive match
// 3. Unique prefix
// 4. Partial match (contains)
package names

import (
	"context"
	"strings"
	"sync"

	"github.com/inkwell/inkwell-cli/internal/api"
	"github.com/inkwell/inkwell-cli/internal/models"
	"github.com/inkwell/inkwell-cli/internal/output"
	"github.com/inkwell/inkwell-cli/internal/urlarg"
)

// Resolver resolves document references to IDs.
type Resolver struct {
	api *api.Client

	// Session-scoped cache
	mu   sync.RWMutex
	docs []models.DocumentSummary
}

// NewResolver creates a new document resolver.
func NewResolver(apiClient *api.Client) *Resolver {
	return &Resolver{api: apiClient}
}

// ResolveDocument resolves a document reference to an ID.
// Returns the ID and the document title for display. The title is empty
// when the reference passed through unvalidated (URLs and presumed IDs).
func (r *Resolver) ResolveDocument(ctx context.Context, input string) (string, string, error) {
	// Pasted URLs carry the ID directly; no lookup needed.
	if parsed := urlarg.Parse(input); parsed != nil {
		return parsed.DocumentID, "", nil
	}

	docs, err := r.getDocuments(ctx)
	if err != nil {
		return "", "", err
	}

	// Exact ID match
	for _, d := range docs {
		if d.ID == input {
			return d.ID, d.Title, nil
		}
	}

	// Exact slug match
	for _, d := range docs {
		if d.Slug != "" && strings.EqualFold(d.Slug, input) {
			return d.ID, d.Title, nil
		}
	}

	// Title resolution
	match, matches := matchTitle(input, docs)
	if match != nil {
		return match.ID, match.Title, nil
	}

	if len(matches) > 1 {
		titles := make([]string, len(matches))
		for i, m := range matches {
			titles[i] = m.Title
		}
		return "", "", output.ErrAmbiguous("document", titles)
	}

	// Not found - provide suggestions
	suggestions := suggest(input, docs)
	if len(suggestions) > 0 {
		return "", "", output.ErrNotFoundHint("Document", input, "Did you mean: "+strings.Join(suggestions, ", "))
	}

	// A bare token may be the ID of a document outside the listing, such
	// as an archived one. Pass it through and let the API validate.
	if !strings.ContainsAny(input, " \t") && input != "" {
		return input, "", nil
	}
	return "", "", output.ErrNotFound("Document", input)
}

// ClearCache clears the session cache.
func (r *Resolver) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = nil
}

// GetDocuments returns all active documents (useful for pickers and
// completion).
func (r *Resolver) GetDocuments(ctx context.Context) ([]models.DocumentSummary, error) {
	return r.getDocuments(ctx)
}

func (r *Resolver) getDocuments(ctx context.Context) ([]models.DocumentSummary, error) {
	r.mu.RLock()
	if r.docs != nil {
		defer r.mu.RUnlock()
		return r.docs, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if r.docs != nil {
		return r.docs, nil
	}

	docs, err := r.api.ListDocuments(ctx, api.ListOptions{})
	if err != nil {
		return nil, err
	}

	r.docs = docs
	return docs, nil
}

// matchTitle performs title resolution in priority order:
// 1. Exact match (case-sensitive)
// 2. Case-insensitive match
// 3. Unique prefix
// 4. Partial match (contains)
// Returns the single match if unambiguous, or all matches if ambiguous.
func matchTitle(input string, docs []models.DocumentSummary) (*models.DocumentSummary, []models.DocumentSummary) {
	inputLower := strings.ToLower(input)

	// Phase 1: Exact match
	for i := range docs {
		if docs[i].Title == input {
			return &docs[i], nil
		}
	}

	// Phase 2: Case-insensitive match
	var caseMatches []models.DocumentSummary
	for i := range docs {
		if strings.ToLower(docs[i].Title) == inputLower {
			caseMatches = append(caseMatches, docs[i])
		}
	}
	if len(caseMatches) == 1 {
		return &caseMatches[0], nil
	}
	if len(caseMatches) > 1 {
		return nil, caseMatches
	}

	// Phase 3: Unique prefix
	var prefixMatches []models.DocumentSummary
	for i := range docs {
		if strings.HasPrefix(strings.ToLower(docs[i].Title), inputLower) {
			prefixMatches = append(prefixMatches, docs[i])
		}
	}
	if len(prefixMatches) == 1 {
		return &prefixMatches[0], nil
	}
	if len(prefixMatches) > 1 {
		return nil, prefixMatches
	}

	// Phase 4: Partial match (contains)
	var partialMatches []models.DocumentSummary
	for i := range docs {
		if strings.Contains(strings.ToLower(docs[i].Title), inputLower) {
			partialMatches = append(partialMatches, docs[i])
		}
	}
	if len(partialMatches) == 1 {
		return &partialMatches[0], nil
	}
	return nil, partialMatches
}

// suggest returns up to 3 suggestions for similar titles or slugs.
func suggest(input string, docs []models.DocumentSummary) []string {
	inputLower := strings.ToLower(input)
	var suggestions []string

	// Simple heuristic: titles that share a common prefix or contain a word
	for _, d := range docs {
		nameLower := strings.ToLower(d.Title)

		// Check for common prefix (at least 2 chars)
		commonLen := 0
		for i := 0; i < len(inputLower) && i < len(nameLower); i++ {
			if inputLower[i] == nameLower[i] {
				commonLen++
			} else {
				break
			}
		}

		if commonLen >= 2 || containsWord(nameLower, inputLower) || slugClose(d.Slug, inputLower) {
			suggestions = append(suggestions, d.Title)
			if len(suggestions) >= 3 {
				break
			}
		}
	}

	return suggestions
}

// containsWord checks if haystack contains any word from needle.
func containsWord(haystack, needle string) bool {
	words := strings.Fields(needle)
	for _, word := range words {
		if len(word) >= 2 && strings.Contains(haystack, word) {
			return true
		}
	}
	return false
}

// slugClose checks if a slug shares a hyphen-separated segment with the input.
func slugClose(slug, inputLower string) bool {
	if slug == "" {
		return false
	}
	for _, seg := range strings.Split(strings.ToLower(slug), "-") {
		if len(seg) >= 3 && strings.Contains(inputLower, seg) {
			return true
		}
	}
	return false
}
