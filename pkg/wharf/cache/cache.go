// Package cache persists file digests between manifest builds so unchanged
// files need not be rehashed.
package cache

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/jamesainslie/wharf/pkg/wharf/types"
)

// Cache provides high-level digest caching operations.
type Cache struct {
	store *Store
	path  string
}

// Stats summarizes cache contents.
type Stats struct {
	Path    string `json:"path" yaml:"path"`
	Entries int    `json:"entries" yaml:"entries"`
	Roots   int    `json:"roots" yaml:"roots"`
	Bytes   int64  `json:"bytes" yaml:"bytes"`
}

// Open opens or creates a cache at the given path.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, types.NewIOError("mkdir", path, err)
	}

	store, err := OpenStore(path)
	if err != nil {
		return nil, err
	}

	return &Cache{store: store, path: path}, nil
}

// Close closes the cache.
func (c *Cache) Close() error {
	return c.store.Close()
}

// Path returns the cache directory.
func (c *Cache) Path() string {
	return c.path
}

// Lookup returns the cached digest of relPath under root if it was recorded
// with the same stamp. Any failure is treated as a miss.
func (c *Cache) Lookup(root, relPath string, stamp Stamp) (string, bool) {
	entry, err := c.store.Get(root, relPath)
	if err != nil {
		return "", false
	}
	if !entry.Fresh(stamp) {
		return "", false
	}
	return entry.Hash, true
}

// Update records digests computed during a build.
func (c *Cache) Update(root string, entries map[string]*CachedEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return c.store.PutBatch(root, entries)
}

// Forget removes a single entry. Missing entries are not an error.
func (c *Cache) Forget(root, relPath string) error {
	err := c.store.Delete(root, relPath)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// Clear removes all cached entries for a root.
func (c *Cache) Clear(root string) error {
	return c.store.DeletePrefix(root)
}

// ClearAll removes all cached entries.
func (c *Cache) ClearAll() error {
	return c.store.DeletePrefix("")
}

// Stats reports entry counts and on-disk size.
func (c *Cache) Stats() (Stats, error) {
	entries, roots, err := c.store.Count()
	if err != nil {
		return Stats{}, err
	}

	var size int64
	_ = filepath.WalkDir(c.path, func(_ string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, infoErr := d.Info(); infoErr == nil {
			size += info.Size()
		}
		return nil
	})

	return Stats{
		Path:    c.path,
		Entries: entries,
		Roots:   roots,
		Bytes:   size,
	}, nil
}
