package inventory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DuplicateCache is a local mirror of confirmed creative IDs, keyed by
// normalized filename. It lets a run skip files that were already confirmed
// uploaded without re-scraping the full remote listing.
type DuplicateCache struct {
	path    string
	entries map[string]string
	dirty   bool
}

// LoadDuplicateCache reads the cache file. A missing file yields an empty
// cache.
func LoadDuplicateCache(path string) (*DuplicateCache, error) {
	cache := &DuplicateCache{
		path:    path,
		entries: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cache, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read duplicate cache: %w", err)
	}
	if err := json.Unmarshal(data, &cache.entries); err != nil {
		return nil, fmt.Errorf("failed to parse duplicate cache %s: %w", path, err)
	}
	return cache, nil
}

// Lookup returns the creative ID previously confirmed for a filename.
func (c *DuplicateCache) Lookup(filename string) (string, bool) {
	id, ok := c.entries[filename]
	return id, ok
}

// Record remembers a confirmed filename → creative ID mapping.
func (c *DuplicateCache) Record(filename, creativeID string) {
	if filename == "" || creativeID == "" {
		return
	}
	c.entries[filename] = creativeID
	c.dirty = true
}

// Len returns the number of cached entries.
func (c *DuplicateCache) Len() int {
	return len(c.entries)
}

// Save writes the cache back to disk if anything changed.
func (c *DuplicateCache) Save() error {
	if !c.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write duplicate cache: %w", err)
	}
	c.dirty = false
	return nil
}
