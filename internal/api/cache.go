package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// Cache stores GET response bodies keyed by ETag so repeat requests can be
// served from a 304. Layout under dir: etags.json maps cache key to ETag,
// responses/<key>.body holds the raw response. Bodies are keyed by a hash of
// URL, account, and token, so entries from different identities never mix.
type Cache struct {
	dir string
	mu  sync.Mutex
}

// NewCache creates a cache rooted at dir. An empty dir disables the cache.
func NewCache(dir string) *Cache {
	return &Cache{dir: dir}
}

// Key derives the cache key for a request. The token participates in the
// hash so a cached body is never served across credentials, and only the
// hash ever touches disk.
func (c *Cache) Key(url, account, token string) string {
	h := sha256.New()
	h.Write([]byte(url))
	h.Write([]byte{0})
	h.Write([]byte(account))
	h.Write([]byte{0})
	h.Write([]byte(token))
	return hex.EncodeToString(h.Sum(nil))
}

// GetETag returns the stored ETag for key, or "" if absent.
func (c *Cache) GetETag(key string) string {
	if c.dir == "" {
		return ""
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	etags := c.loadETags()
	return etags[key]
}

// GetBody returns the cached response body for key, or nil if absent.
func (c *Cache) GetBody(key string) []byte {
	if c.dir == "" {
		return nil
	}

	data, err := os.ReadFile(c.bodyPath(key))
	if err != nil {
		return nil
	}
	return data
}

// Set stores a response body and its ETag. Best effort: callers ignore the
// error since a cold cache only costs a full response next time.
func (c *Cache) Set(key string, body []byte, etag string) error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.responsesDir(), 0700); err != nil {
		return err
	}
	if err := writeFileAtomic(c.bodyPath(key), body); err != nil {
		return err
	}

	etags := c.loadETags()
	etags[key] = etag
	return c.saveETags(etags)
}

// Invalidate drops a single cache entry.
func (c *Cache) Invalidate(key string) error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.Remove(c.bodyPath(key)); err != nil && !os.IsNotExist(err) {
		return err
	}

	etags := c.loadETags()
	if _, ok := etags[key]; !ok {
		return nil
	}
	delete(etags, key)
	return c.saveETags(etags)
}

// Clear removes every cached response.
func (c *Cache) Clear() error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.RemoveAll(c.responsesDir()); err != nil {
		return err
	}
	if err := os.Remove(c.etagsPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (c *Cache) responsesDir() string {
	return filepath.Join(c.dir, "responses")
}

func (c *Cache) bodyPath(key string) string {
	return filepath.Join(c.responsesDir(), key+".body")
}

func (c *Cache) etagsPath() string {
	return filepath.Join(c.dir, "etags.json")
}

// loadETags reads the ETag index. A missing or corrupt index is an empty
// cache, never an error. Caller must hold mu.
func (c *Cache) loadETags() map[string]string {
	etags := make(map[string]string)
	data, err := os.ReadFile(c.etagsPath())
	if err != nil {
		return etags
	}
	if err := json.Unmarshal(data, &etags); err != nil {
		return make(map[string]string)
	}
	return etags
}

// saveETags writes the ETag index. Caller must hold mu.
func (c *Cache) saveETags(etags map[string]string) error {
	if err := os.MkdirAll(c.dir, 0700); err != nil {
		return err
	}
	data, err := json.Marshal(etags)
	if err != nil {
		return err
	}
	return writeFileAtomic(c.etagsPath(), data)
}

// writeFileAtomic writes via a temp file and rename so a crash mid-write
// never leaves a truncated entry.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		// Windows cannot rename over an existing file
		if removeErr := os.Remove(path); removeErr == nil {
			if err := os.Rename(tmpName, path); err == nil {
				return nil
			}
		}
		os.Remove(tmpName)
		return err
	}
	return nil
}
