// Package recents tracks recently opened documents for the interactive picker.
package recents

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Item is a recently opened document.
type Item struct {
	ID     string    `json:"id"`
	Title  string    `json:"title"`
	Slug   string    `json:"slug,omitempty"`
	UsedAt time.Time `json:"used_at"`
}

// Store persists the recently opened document list.
type Store struct {
	mu        sync.RWMutex
	items     []Item
	maxItems  int
	path      string
	lastError error // last error from save(), for debugging
}

// NewStore creates a recents store backed by <cacheDir>/recents.json.
func NewStore(cacheDir string) *Store {
	s := &Store{
		maxItems: 10,
		path:     filepath.Join(cacheDir, "recents.json"),
	}
	s.load()
	return s
}

// Add records a document open, moving it to the front of the list.
func (s *Store) Add(item Item) {
	item.UsedAt = time.Now()

	// Copy state while holding the lock, then release before I/O
	var snapshot []Item
	func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		filtered := make([]Item, 0, len(s.items))
		for _, existing := range s.items {
			if existing.ID != item.ID {
				filtered = append(filtered, existing)
			}
		}

		s.items = append([]Item{item}, filtered...)
		if len(s.items) > s.maxItems {
			s.items = s.items[:s.maxItems]
		}

		snapshot = s.copyItems()
	}()

	// Save outside the lock to avoid blocking readers during I/O
	s.saveSnapshot(snapshot)
}

// Get returns the recent documents, most recent first. The returned slice is
// a copy so callers cannot mutate internal state.
func (s *Store) Get() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyItems()
}

// Clear removes all recent documents.
func (s *Store) Clear() {
	var snapshot []Item
	func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.items = nil
		snapshot = s.copyItems()
	}()
	s.saveSnapshot(snapshot)
}

// copyItems returns a copy of the item list (must be called with lock held).
func (s *Store) copyItems() []Item {
	result := make([]Item, len(s.items))
	copy(result, s.items)
	return result
}

// load reads the store from disk.
func (s *Store) load() {
	data, err := os.ReadFile(s.path) //nolint:gosec // G304: Path is from trusted config
	if err != nil {
		return
	}

	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return
	}

	s.items = items
}

// saveSnapshot writes the given snapshot to disk. Errors are stored in
// lastError for debugging (recents are non-critical). Safe to call without
// holding the lock.
func (s *Store) saveSnapshot(items []Item) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		s.mu.Lock()
		s.lastError = err
		s.mu.Unlock()
		return
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		s.mu.Lock()
		s.lastError = err
		s.mu.Unlock()
		return
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		s.mu.Lock()
		s.lastError = err
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.lastError = nil
	s.mu.Unlock()
}

// LastError returns the last error from a save operation, if any.
func (s *Store) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}
