package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// Freshness describes the state of a file cache entry.
type Freshness string

const (
	Fresh Freshness = "fresh"
	Stale Freshness = "stale"
	Empty Freshness = "empty"
)

// FileCache is a file-based TTL cache. Each key maps to one JSON file in the
// cache directory; freshness is derived from the file's modification time.
// Stale entries are still returned so callers can fall back to stale data when
// a refresh fails. Writes are serialised across processes with a lock file.
type FileCache struct {
	dir string
	ttl time.Duration
}

// DefaultCacheDir resolves the cache directory for the given application name:
// $XDG_CACHE_HOME/<app> when set, otherwise ~/.cache/<app>.
func DefaultCacheDir(app string) (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, app), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".cache", app), nil
}

// NewFileCache creates a file cache rooted at dir with the given TTL, creating
// the directory if needed.
func NewFileCache(dir string, ttl time.Duration) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	return &FileCache{dir: dir, ttl: ttl}, nil
}

func (c *FileCache) entryPath(key string) string {
	return filepath.Join(c.dir, key+".json")
}

func (c *FileCache) lockPath(key string) string {
	return filepath.Join(c.dir, key+".lock")
}

// Status reports the freshness of a key without reading its value.
func (c *FileCache) Status(key string) Freshness {
	info, err := os.Stat(c.entryPath(key))
	if err != nil {
		return Empty
	}
	if time.Since(info.ModTime()) < c.ttl {
		return Fresh
	}
	return Stale
}

// Get unmarshals the cached value for key into out and reports its freshness.
// On Empty, out is untouched.
func (c *FileCache) Get(key string, out any) (Freshness, error) {
	status := c.Status(key)
	if status == Empty {
		return Empty, nil
	}

	data, err := os.ReadFile(c.entryPath(key))
	if err != nil {
		return Empty, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return Empty, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	return status, nil
}

// Put stores a value under key, taking a file lock so concurrent writers from
// other processes cannot interleave partial writes.
func (c *FileCache) Put(key string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}

	lock := flock.New(c.lockPath(key))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock cache entry %s: %w", key, err)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	tmp := c.entryPath(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write cache entry %s: %w", key, err)
	}
	if err := os.Rename(tmp, c.entryPath(key)); err != nil {
		return fmt.Errorf("failed to commit cache entry %s: %w", key, err)
	}
	return nil
}
