package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type sizeSnapshot struct {
	Size    int64     `json:"size"`
	Updated time.Time `json:"updated"`
}

// sizeCache persists resolved Overview root sizes between runs. The file is
// loaded lazily on first use and rewritten atomically on every change. A
// cache with an empty path keeps nothing.
type sizeCache struct {
	mu      sync.Mutex
	path    string
	ttl     time.Duration
	now     func() time.Time
	loaded  bool
	entries map[string]sizeSnapshot
}

func newSizeCache(path string, ttl time.Duration) *sizeCache {
	return &sizeCache{path: path, ttl: ttl, now: time.Now}
}

func (c *sizeCache) enabled() bool { return c != nil && c.path != "" }

// Load reads the cache file now instead of on first use.
func (c *sizeCache) Load() error {
	if !c.enabled() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked()
}

// Lookup returns a size stored less than ttl ago.
func (c *sizeCache) Lookup(path string) (int64, bool) {
	if !c.enabled() {
		return 0, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadLocked(); err != nil {
		return 0, false
	}
	snap, ok := c.entries[path]
	if !ok || snap.Size < 0 || c.now().Sub(snap.Updated) >= c.ttl {
		return 0, false
	}
	return snap.Size, true
}

func (c *sizeCache) Store(path string, size int64) error {
	if !c.enabled() || size < 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadLocked(); err != nil {
		return err
	}
	c.entries[path] = sizeSnapshot{Size: size, Updated: c.now()}
	return c.persistLocked()
}

func (c *sizeCache) Forget(paths ...string) error {
	if !c.enabled() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadLocked(); err != nil {
		return err
	}
	changed := false
	for _, p := range paths {
		if _, ok := c.entries[p]; ok {
			delete(c.entries, p)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return c.persistLocked()
}

// InvalidateContaining drops every cached root that is target or one of its
// ancestors.
func (c *sizeCache) InvalidateContaining(target string) error {
	if !c.enabled() {
		return nil
	}
	c.mu.Lock()
	var stale []string
	if err := c.loadLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	for root := range c.entries {
		if isWithin(target, root) {
			stale = append(stale, root)
		}
	}
	c.mu.Unlock()
	return c.Forget(stale...)
}

func (c *sizeCache) loadLocked() error {
	if c.loaded {
		return nil
	}
	c.entries = map[string]sizeSnapshot{}
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		c.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("read size cache: %w", err)
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		// a corrupt cache is replaced on the next write
		c.entries = map[string]sizeSnapshot{}
	}
	c.loaded = true
	return nil
}

func (c *sizeCache) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode size cache: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write size cache: %w", err)
	}
	return os.Rename(tmp, c.path)
}

// isWithin reports whether path equals root or lies beneath it.
func isWithin(path, root string) bool {
	if path == root {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
