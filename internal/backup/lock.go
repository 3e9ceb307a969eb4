package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// locksDirName is the subdirectory holding edit lock files.
const locksDirName = "locks"

// LockInfo records which process holds an edit lock.
type LockInfo struct {
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
}

// EditLock prevents two editor sessions from writing the same document.
// It uses PID-based tracking so locks left behind by crashed processes
// are reclaimed on the next acquire.
type EditLock struct {
	dir string
}

// NewEditLock creates an edit lock manager under the given drafts directory.
func NewEditLock(draftsDir string) *EditLock {
	return &EditLock{dir: filepath.Join(draftsDir, locksDirName)}
}

// path returns the lock file path for key.
func (l *EditLock) path(key string) string {
	return filepath.Join(l.dir, SanitizeKey(key)+".lock.json")
}

// Acquire tries to take the edit lock for key.
// Returns (nil, true, nil) on success. When another live process holds the
// lock it returns that holder's info with acquired=false. Locks held by dead
// processes are reclaimed.
func (l *EditLock) Acquire(key string) (holder *LockInfo, acquired bool, err error) {
	if err := os.MkdirAll(l.dir, 0700); err != nil {
		return nil, false, err
	}

	path := l.path(key)
	pid := os.Getpid()

	existing, err := l.read(path)
	if err != nil {
		return nil, false, err
	}

	if existing != nil && existing.PID != pid && isProcessAlive(existing.PID) {
		return existing, false, nil
	}

	// Stale, absent, or our own lock: (re)write it
	startedAt := time.Now()
	if existing != nil && existing.PID == pid {
		startedAt = existing.StartedAt
	}
	if err := l.write(path, startedAt); err != nil {
		return nil, false, err
	}
	return nil, true, nil
}

// ForceAcquire takes the edit lock for key regardless of who holds it,
// overwriting a live holder's lock file. Returns the displaced holder when
// a live foreign process held the lock. Used for --force takeover.
func (l *EditLock) ForceAcquire(key string) (*LockInfo, error) {
	if err := os.MkdirAll(l.dir, 0700); err != nil {
		return nil, err
	}

	path := l.path(key)
	prev, err := l.read(path)
	if err != nil {
		return nil, err
	}

	if err := l.write(path, time.Now()); err != nil {
		return nil, err
	}

	if prev == nil || prev.PID == os.Getpid() || !isProcessAlive(prev.PID) {
		return nil, nil
	}
	return prev, nil
}

// write atomically records this process as the lock holder.
func (l *EditLock) write(path string, startedAt time.Time) error {
	data, err := json.Marshal(LockInfo{PID: os.Getpid(), StartedAt: startedAt})
	if err != nil {
		return err
	}

	tmpPath := fmt.Sprintf("%s.%d.tmp", path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// Release removes the edit lock for key if this process holds it.
func (l *EditLock) Release(key string) error {
	path := l.path(key)

	existing, err := l.read(path)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	if existing.PID != os.Getpid() {
		// Not ours to remove
		return nil
	}

	err = os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Holder returns the current lock holder for key, or nil when the lock is
// free or held by a dead process.
func (l *EditLock) Holder(key string) (*LockInfo, error) {
	info, err := l.read(l.path(key))
	if err != nil {
		return nil, err
	}
	if info == nil || !isProcessAlive(info.PID) {
		return nil, nil
	}
	return info, nil
}

// read loads a lock file, returning nil for absent or corrupted files.
func (l *EditLock) read(path string) (*LockInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		// Corrupted lock file - treat as free
		return nil, nil
	}
	return &info, nil
}
