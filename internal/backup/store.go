// Package backup persists local draft snapshots for documents being edited.
// Drafts survive crashes, network loss, and conflicts, and are written with
// file locking so concurrent CLI invocations stay safe.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const (
	// DefaultDirName is the drafts subdirectory within the data dir.
	DefaultDirName = "drafts"
)

// Record is the on-disk shape of a draft snapshot.
type Record struct {
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"` // RFC 3339
	Version   int64           `json:"version"`   // unix milliseconds, used for ordering
}

// Time returns the snapshot time, preferring the RFC 3339 timestamp and
// falling back to the millisecond version counter.
func (r *Record) Time() time.Time {
	if t, err := time.Parse(time.RFC3339Nano, r.Timestamp); err == nil {
		return t
	}
	return time.UnixMilli(r.Version)
}

// Entry describes one stored draft for listings.
type Entry struct {
	Key     string    `json:"key"`
	Version int64     `json:"version"`
	SavedAt time.Time `json:"saved_at"`
	Size    int64     `json:"size"`
}

// Store handles reading and writing draft records with file locking.
// It provides atomic operations safe for concurrent access across processes.
type Store struct {
	dir string
}

// NewStore creates a draft store rooted at dir.
// If dir is empty, it uses the default location (~/.local/share/inkwell/drafts/).
func NewStore(dir string) *Store {
	if dir == "" {
		dir = defaultDraftsDir()
	}
	return &Store{dir: dir}
}

// defaultDraftsDir returns the default drafts directory path.
func defaultDraftsDir() string {
	// XDG_DATA_HOME takes priority (Linux/BSD convention)
	if dataDir := os.Getenv("XDG_DATA_HOME"); dataDir != "" {
		return filepath.Join(dataDir, "inkwell", DefaultDirName)
	}

	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".local", "share", "inkwell", DefaultDirName)
	}

	// Last resort: use temp directory to avoid relative paths
	return filepath.Join(os.TempDir(), "inkwell", DefaultDirName)
}

// Dir returns the drafts directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the full path to the draft file for key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, SanitizeKey(key)+".json")
}

// lockPath returns the path to the lock file.
func (s *Store) lockPath() string {
	return filepath.Join(s.dir, ".lock")
}

// SanitizeKey maps a draft key to a safe file name. Any rune outside
// [A-Za-z0-9._-] becomes an underscore so keys cannot escape the drafts dir.
func SanitizeKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, c := range key {
		isDigit := c >= '0' && c <= '9'
		isLower := c >= 'a' && c <= 'z'
		isUpper := c >= 'A' && c <= 'Z'
		if isDigit || isLower || isUpper || c == '.' || c == '_' || c == '-' {
			b.WriteRune(c)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// LockTimeout is the maximum time to wait for acquiring the file lock.
// If exceeded, operations proceed without locking (fail-open) to avoid CLI hangs.
const LockTimeout = 100 * time.Millisecond

// fileLock represents an acquired file lock.
type fileLock struct {
	flock *flock.Flock
}

// acquireLock obtains an exclusive lock on the drafts directory.
// The caller must call release() when done.
//
// Fail-open semantics: returns nil (with no error) if the lock cannot be
// acquired within LockTimeout. A brief race window beats a hung editor when
// another process crashed while holding the lock. Draft writes are atomic
// renames, so the worst case is one snapshot overwriting another.
func (s *Store) acquireLock() (*fileLock, error) {
	// Ensure directory exists
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return nil, err
	}

	fl := flock.New(s.lockPath())

	// Try to acquire lock with timeout
	ctx, cancel := context.WithTimeout(context.Background(), LockTimeout)
	defer cancel()

	// TryLockContext retries every 10ms until context expires
	locked, err := fl.TryLockContext(ctx, 10*time.Millisecond)
	if err != nil {
		// Only fail-open on context deadline (timeout), not real errors
		if ctx.Err() == context.DeadlineExceeded {
			return nil, nil
		}
		// Real lock error (permissions, filesystem issues) - return error
		return nil, err
	}
	if !locked {
		// Timeout without error - proceed without lock
		return nil, nil
	}

	return &fileLock{flock: fl}, nil
}

// release releases the file lock.
func (fl *fileLock) release() error {
	if fl == nil || fl.flock == nil {
		return nil
	}
	return fl.flock.Unlock()
}

// Save writes a draft record atomically with proper locking.
// The record is stamped with at, so callers control the clock.
// If the lock cannot be acquired, proceeds without locking (fail-open).
func (s *Store) Save(key string, data json.RawMessage, at time.Time) error {
	lock, err := s.acquireLock()
	if err != nil {
		return err
	}
	if lock != nil {
		defer func() { _ = lock.release() }()
	}

	return s.saveUnsafe(key, data, at)
}

// saveUnsafe writes the record without locking (caller must hold lock).
func (s *Store) saveUnsafe(key string, data json.RawMessage, at time.Time) error {
	// Ensure directory exists
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return err
	}

	record := Record{
		Data:      data,
		Timestamp: at.UTC().Format(time.RFC3339Nano),
		Version:   at.UnixMilli(),
	}

	raw, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}

	path := s.Path(key)

	// Write atomically via temp file with unique name (PID + timestamp)
	// to avoid conflicts when lock cannot be acquired (fail-open scenario)
	tmpPath := fmt.Sprintf("%s.%d.%d.tmp", path, os.Getpid(), time.Now().UnixNano())
	if err := os.WriteFile(tmpPath, raw, 0600); err != nil {
		return err
	}

	// On Windows, os.Rename fails if destination exists. Remove it first.
	// This leaves a brief window where the draft is missing; acceptable since
	// the lock is held in the common case and drafts are advisory snapshots.
	if runtime.GOOS == "windows" {
		_ = os.Remove(path) // Ignore error if file doesn't exist
	}

	if err := os.Rename(tmpPath, path); err != nil {
		// Clean up temp file on error
		_ = os.Remove(tmpPath)
		return err
	}

	return nil
}

// Load reads the draft record for key with proper locking.
// Returns (nil, nil) when no draft exists or the file is corrupted, so
// callers can treat both as "no draft" without special-casing.
func (s *Store) Load(key string) (*Record, error) {
	lock, err := s.acquireLock()
	if err != nil {
		return nil, err
	}
	if lock != nil {
		defer func() { _ = lock.release() }()
	}

	return s.loadUnsafe(key)
}

// loadUnsafe reads the record without locking (caller must hold lock).
func (s *Store) loadUnsafe(key string) (*Record, error) {
	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		// Corrupted draft - treat as absent rather than failing the caller
		return nil, nil
	}

	return &record, nil
}

// Clear removes the draft file for key.
// If the lock cannot be acquired, proceeds without locking (fail-open).
func (s *Store) Clear(key string) error {
	lock, err := s.acquireLock()
	if err != nil {
		return err
	}
	if lock != nil {
		defer func() { _ = lock.release() }()
	}

	err = os.Remove(s.Path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Exists returns true if a draft file exists for key.
func (s *Store) Exists(key string) bool {
	_, err := os.Stat(s.Path(key))
	return err == nil
}

// List returns all stored drafts, newest first.
// Corrupted records are skipped rather than failing the listing.
func (s *Store) List() ([]Entry, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		key := strings.TrimSuffix(name, ".json")
		record, err := s.Load(key)
		if err != nil || record == nil {
			continue
		}

		info, err := f.Info()
		var size int64
		if err == nil {
			size = info.Size()
		}

		entries = append(entries, Entry{
			Key:     key,
			Version: record.Version,
			SavedAt: record.Time(),
			Size:    size,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Version > entries[j].Version
	})

	return entries, nil
}
