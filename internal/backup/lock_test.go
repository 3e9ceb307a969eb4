package backup

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditLockAcquireRelease(t *testing.T) {
	lock := NewEditLock(t.TempDir())

	holder, acquired, err := lock.Acquire("doc-abc123")
	require.NoError(t, err)
	assert.True(t, acquired)
	assert.Nil(t, holder)

	info, err := lock.Holder("doc-abc123")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, os.Getpid(), info.PID)

	require.NoError(t, lock.Release("doc-abc123"))

	info, err = lock.Holder("doc-abc123")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestEditLockReacquireSamePID(t *testing.T) {
	lock := NewEditLock(t.TempDir())

	_, acquired, err := lock.Acquire("doc")
	require.NoError(t, err)
	require.True(t, acquired)

	first, err := lock.Holder("doc")
	require.NoError(t, err)
	require.NotNil(t, first)

	// Same process re-acquires and keeps its original start time
	_, acquired, err = lock.Acquire("doc")
	require.NoError(t, err)
	assert.True(t, acquired)

	second, err := lock.Holder("doc")
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.True(t, second.StartedAt.Equal(first.StartedAt))
}

func TestEditLockReclaimsStaleLock(t *testing.T) {
	dir := t.TempDir()
	lock := NewEditLock(dir)

	// Manually create a lock held by a dead process
	deadPID := 999999999 // Very unlikely to be a real PID
	require.NoError(t, os.MkdirAll(lock.dir, 0700))
	stale, err := json.Marshal(LockInfo{PID: deadPID, StartedAt: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(lock.path("doc"), stale, 0600))

	holder, acquired, err := lock.Acquire("doc")
	require.NoError(t, err)
	assert.True(t, acquired, "stale lock should be reclaimed")
	assert.Nil(t, holder)

	info, err := lock.Holder("doc")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, os.Getpid(), info.PID)
}

func TestEditLockHolderIgnoresDeadProcess(t *testing.T) {
	lock := NewEditLock(t.TempDir())

	deadPID := 999999999
	require.NoError(t, os.MkdirAll(lock.dir, 0700))
	stale, err := json.Marshal(LockInfo{PID: deadPID, StartedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(lock.path("doc"), stale, 0600))

	info, err := lock.Holder("doc")
	require.NoError(t, err)
	assert.Nil(t, info, "dead holder should read as free")
}

func TestEditLockCorruptedFileTreatedAsFree(t *testing.T) {
	lock := NewEditLock(t.TempDir())

	require.NoError(t, os.MkdirAll(lock.dir, 0700))
	require.NoError(t, os.WriteFile(lock.path("doc"), []byte("{broken"), 0600))

	_, acquired, err := lock.Acquire("doc")
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestEditLockForceAcquireFromLiveHolder(t *testing.T) {
	lock := NewEditLock(t.TempDir())

	// Fabricate a lock held by PID 1, which is always alive on Unix.
	// A plain Acquire must refuse it; ForceAcquire takes it over.
	require.NoError(t, os.MkdirAll(lock.dir, 0700))
	foreign, err := json.Marshal(LockInfo{PID: 1, StartedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(lock.path("doc"), foreign, 0600))

	_, acquired, err := lock.Acquire("doc")
	require.NoError(t, err)
	require.False(t, acquired)

	prev, err := lock.ForceAcquire("doc")
	require.NoError(t, err)
	require.NotNil(t, prev, "displaced live holder should be reported")
	assert.Equal(t, 1, prev.PID)

	info, err := lock.Holder("doc")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, os.Getpid(), info.PID, "lock should now be ours")

	// Ours now, so Release works again
	require.NoError(t, lock.Release("doc"))
	info, err = lock.Holder("doc")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestEditLockForceAcquireFreeLock(t *testing.T) {
	lock := NewEditLock(t.TempDir())

	prev, err := lock.ForceAcquire("doc")
	require.NoError(t, err)
	assert.Nil(t, prev, "no holder to displace")

	info, err := lock.Holder("doc")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, os.Getpid(), info.PID)
}

func TestEditLockReleaseForeignLockKept(t *testing.T) {
	lock := NewEditLock(t.TempDir())

	// Fabricate a lock held by PID 1, which is always alive on Unix
	require.NoError(t, os.MkdirAll(lock.dir, 0700))
	foreign, err := json.Marshal(LockInfo{PID: 1, StartedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(lock.path("doc"), foreign, 0600))

	require.NoError(t, lock.Release("doc"))

	// Still present
	_, statErr := os.Stat(lock.path("doc"))
	assert.NoError(t, statErr, "foreign lock should not be removed")
}
