package backup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	data := json.RawMessage(`{"title":"Notes","body":"hello"}`)
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	require.NoError(t, store.Save("doc-abc123", data, at))

	record, err := store.Load("doc-abc123")
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.JSONEq(t, string(data), string(record.Data))
	assert.Equal(t, at.UnixMilli(), record.Version)
	assert.Equal(t, "2026-03-14T09:26:53Z", record.Timestamp)
	assert.True(t, record.Time().Equal(at))
}

func TestStoreLoadMissing(t *testing.T) {
	store := NewStore(t.TempDir())

	record, err := store.Load("nope")
	require.NoError(t, err)
	assert.Nil(t, record, "missing draft should load as nil")
}

func TestStoreLoadCorrupted(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	require.NoError(t, os.WriteFile(store.Path("bad"), []byte("{not json"), 0600))

	record, err := store.Load("bad")
	require.NoError(t, err)
	assert.Nil(t, record, "corrupted draft should load as nil")
}

func TestStoreSaveOverwrites(t *testing.T) {
	store := NewStore(t.TempDir())

	t1 := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(5 * time.Minute)

	require.NoError(t, store.Save("doc", json.RawMessage(`{"body":"first"}`), t1))
	require.NoError(t, store.Save("doc", json.RawMessage(`{"body":"second"}`), t2))

	record, err := store.Load("doc")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.JSONEq(t, `{"body":"second"}`, string(record.Data))
	assert.Equal(t, t2.UnixMilli(), record.Version)
}

func TestStoreClear(t *testing.T) {
	store := NewStore(t.TempDir())

	require.NoError(t, store.Save("doc", json.RawMessage(`{}`), time.Now()))
	assert.True(t, store.Exists("doc"))

	require.NoError(t, store.Clear("doc"))
	assert.False(t, store.Exists("doc"))

	// Clearing again is a no-op
	require.NoError(t, store.Clear("doc"))
}

func TestStoreList(t *testing.T) {
	store := NewStore(t.TempDir())

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save("older", json.RawMessage(`{"body":"a"}`), base))
	require.NoError(t, store.Save("newer", json.RawMessage(`{"body":"b"}`), base.Add(time.Minute)))

	entries, err := store.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first
	assert.Equal(t, "newer", entries[0].Key)
	assert.Equal(t, "older", entries[1].Key)
	assert.Greater(t, entries[0].Size, int64(0))
}

func TestStoreListEmptyDir(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "does-not-exist"))

	entries, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStoreListSkipsCorrupted(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	require.NoError(t, store.Save("good", json.RawMessage(`{}`), time.Now()))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{nope"), 0600))

	entries, err := store.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "good", entries[0].Key)
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"doc-abc123", "doc-abc123"},
		{"notes.v2_final", "notes.v2_final"},
		{"path/../escape", "path_.._escape"},
		{"with spaces", "with_spaces"},
		{"emoji🖋key", "emoji_key"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeKey(tt.in), "sanitize %q", tt.in)
	}
}

func TestStorePathStaysInsideDir(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	path := store.Path("../../etc/passwd")
	rel, err := filepath.Rel(dir, path)
	require.NoError(t, err)
	assert.False(t, filepath.IsAbs(rel))
	assert.NotContains(t, rel, "..")
}

func TestStoreConcurrentSaves(t *testing.T) {
	store := NewStore(t.TempDir())

	done := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func(n int) {
			at := time.Now().Add(time.Duration(n) * time.Millisecond)
			done <- store.Save("doc", json.RawMessage(`{"n":1}`), at)
		}(i)
	}

	for i := 0; i < 10; i++ {
		require.NoError(t, <-done)
	}

	record, err := store.Load("doc")
	require.NoError(t, err)
	require.NotNil(t, record, "one of the concurrent saves must win")
}
