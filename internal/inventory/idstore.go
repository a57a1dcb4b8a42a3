package inventory

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// IDStore tracks every unique inventory id ever issued, persisted as a JSON
// array in tracking/processed_ids.json. It guarantees ids are never reused
// across runs.
type IDStore struct {
	path string
	ids  map[string]bool
}

// LoadIDStore reads the processed-id file. A missing file yields an empty
// store.
func LoadIDStore(path string) (*IDStore, error) {
	store := &IDStore{
		path: path,
		ids:  make(map[string]bool),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read id store: %w", err)
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse id store %s: %w", path, err)
	}
	for _, id := range list {
		store.ids[id] = true
	}
	return store, nil
}

// Generate issues a fresh unique id of the form ID-XXXXXXXX (8 hex digits,
// upper-cased) that has never been issued before.
func (s *IDStore) Generate() (string, error) {
	for {
		buf := make([]byte, 4)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate unique id: %w", err)
		}
		id := "ID-" + strings.ToUpper(hex.EncodeToString(buf))
		if !s.ids[id] {
			s.ids[id] = true
			return id, nil
		}
	}
}

// Contains reports whether an id was previously issued.
func (s *IDStore) Contains(id string) bool {
	return s.ids[id]
}

// Save writes the id set back to disk.
func (s *IDStore) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	list := make([]string, 0, len(s.ids))
	for id := range s.ids {
		list = append(list, id)
	}
	sort.Strings(list)
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}
