package naming

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"

	"github.com/creativeflow/creative-int/internal/models"
)

// FolderDefaults is the metadata applied to files in one source folder when
// their filenames carry no structured metadata.
type FolderDefaults struct {
	CategoryName string
	CreatorName  string
	Language     string
	ContentType  string
	Description  string
}

// Metadata converts folder defaults into file metadata.
func (d FolderDefaults) Metadata() models.Metadata {
	desc := d.Description
	if desc == "" {
		desc = "Generic"
	}
	return models.Metadata{
		Language:     d.Language,
		Category:     d.CategoryName,
		ContentType:  d.ContentType,
		CreativeName: desc,
		CreatorName:  d.CreatorName,
	}
}

// DefaultsStore is the per-folder metadata defaults cache, persisted as
// tracking/metadata_defaults.csv. Folders added during a run are kept in
// memory and appended on Save.
type DefaultsStore struct {
	path    string
	entries map[string]FolderDefaults
	added   map[string]FolderDefaults
}

var defaultsHeader = []string{"folder_path", "category_name", "creator_name", "language", "content_type", "creative_description"}

// LoadDefaults reads the defaults CSV. A missing file yields an empty store.
// Duplicate folder rows are an error the operator has to fix by hand; picking
// one silently would apply the wrong metadata to every file in the folder.
func LoadDefaults(path string) (*DefaultsStore, error) {
	store := &DefaultsStore{
		path:    path,
		entries: make(map[string]FolderDefaults),
		added:   make(map[string]FolderDefaults),
	}

	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open defaults file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read defaults CSV: %w", err)
	}

	for i, record := range records {
		if i == 0 && len(record) > 0 && record[0] == "folder_path" {
			continue
		}
		if len(record) < 5 {
			continue
		}
		folder := record[0]
		if _, exists := store.entries[folder]; exists {
			return nil, fmt.Errorf("duplicate folder %q in %s: each folder must appear exactly once", folder, path)
		}
		d := FolderDefaults{
			CategoryName: record[1],
			CreatorName:  record[2],
			Language:     record[3],
			ContentType:  record[4],
		}
		if len(record) > 5 {
			d.Description = record[5]
		}
		if d.CategoryName == "" {
			d.CategoryName = folder
		}
		store.entries[folder] = d
	}

	return store, nil
}

// Lookup returns the defaults for a folder, if known.
func (s *DefaultsStore) Lookup(folder string) (FolderDefaults, bool) {
	d, ok := s.entries[folder]
	return d, ok
}

// Add registers defaults for a new folder for this run. The entry is visible
// to subsequent Lookup calls immediately and persisted on Save.
func (s *DefaultsStore) Add(folder string, d FolderDefaults) {
	if d.CategoryName == "" {
		d.CategoryName = folder
	}
	s.entries[folder] = d
	s.added[folder] = d
}

// Folders returns the known folder names, sorted.
func (s *DefaultsStore) Folders() []string {
	folders := make([]string, 0, len(s.entries))
	for f := range s.entries {
		folders = append(folders, f)
	}
	sort.Strings(folders)
	return folders
}

// Added returns how many folders were registered during this run.
func (s *DefaultsStore) Added() int {
	return len(s.added)
}

// Save appends the folders added during this run to the defaults CSV.
// No-op when nothing was added.
func (s *DefaultsStore) Save() error {
	if len(s.added) == 0 {
		return nil
	}

	writeHeader := false
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		writeHeader = true
	}

	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open defaults file for append: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if writeHeader {
		if err := writer.Write(defaultsHeader); err != nil {
			return err
		}
	}

	folders := make([]string, 0, len(s.added))
	for f := range s.added {
		folders = append(folders, f)
	}
	sort.Strings(folders)

	for _, folder := range folders {
		d := s.added[folder]
		row := []string{folder, d.CategoryName, d.CreatorName, d.Language, d.ContentType, d.Description}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
