package platform

// Snapshot is a fully-paged, point-in-time view of the platform's creative
// listing. IDs are unique within a snapshot; display names are not assumed
// unique. A snapshot may be stale by the time it is compared.
type Snapshot struct {
	names map[string]string // id -> display name
}

// NewSnapshot creates an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{names: make(map[string]string)}
}

// Add records a creative. Re-adding an id already present (the same creative
// seen again while paging) keeps the first display name.
func (s *Snapshot) Add(id, displayName string) {
	if id == "" {
		return
	}
	if _, exists := s.names[id]; !exists {
		s.names[id] = displayName
	}
}

// Contains reports whether the snapshot holds the given id.
func (s *Snapshot) Contains(id string) bool {
	_, ok := s.names[id]
	return ok
}

// DisplayName returns the display name recorded for an id.
func (s *Snapshot) DisplayName(id string) string {
	return s.names[id]
}

// Len returns the number of creatives in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.names)
}

// NewIDs returns the ids present in s but absent from base, i.e. the
// creatives that appeared between the two snapshots. A nil base treats
// everything as new.
func (s *Snapshot) NewIDs(base *Snapshot) []string {
	var ids []string
	for id := range s.names {
		if base == nil || !base.Contains(id) {
			ids = append(ids, id)
		}
	}
	return ids
}
