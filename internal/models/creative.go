// Package models defines the data records shared across the creative-int
// pipeline: candidates queued for upload, per-file results, and run summaries.
package models

import "time"

// CreativeKind classifies a creative asset for the platform's media library.
// The declared order is the platform-mandated upload order: the media-library
// UI keeps one active tab, so batches must be submitted kind by kind.
type CreativeKind string

const (
	KindNativeVideo CreativeKind = "native_video"
	KindNativeImage CreativeKind = "native_image"
	KindVideo       CreativeKind = "video"
	KindImage       CreativeKind = "image"
)

// KindUploadOrder lists the kinds in the order batches must be submitted.
var KindUploadOrder = []CreativeKind{KindNativeVideo, KindNativeImage, KindVideo, KindImage}

// IsNative reports whether the kind goes through the platform's Native tab.
func (k CreativeKind) IsNative() bool {
	return k == KindNativeVideo || k == KindNativeImage
}

// Metadata holds the resolved descriptive metadata for one creative file.
type Metadata struct {
	Language     string // e.g. "EN"
	Category     string
	ContentType  string // "SFW" or "NSFW"
	CreativeName string
	CreatorName  string
}

// UploadCandidate is one local file queued for submission to the platform.
// Candidates are created from the session ledger at run start and are
// immutable for the duration of a run.
type UploadCandidate struct {
	UniqueID      string       // Inventory id, e.g. "ID-6BCC9A21" (with -VID/-IMG suffix for native pairs)
	Filename      string       // Normalized filename as stored under uploaded/
	StoragePath   string       // Absolute path on disk
	Kind          CreativeKind
	KnownRemoteID string // Creative ID from a previous run, empty if never uploaded
	PairID        string // Links a native video to its companion thumbnail; empty otherwise
}

// ResultStatus is the terminal per-candidate outcome of an upload run.
type ResultStatus string

const (
	StatusSuccess   ResultStatus = "success"
	StatusFailed    ResultStatus = "failed"
	StatusSkipped   ResultStatus = "skipped"
	StatusDuplicate ResultStatus = "duplicate"
	StatusDryRun    ResultStatus = "dry_run"
)

// ResultRecord is one row of the per-run upload status ledger. Every
// attempted candidate ends the run with exactly one record.
type ResultRecord struct {
	UniqueID   string
	Filename   string
	Path       string
	Platform   string
	CreativeID string
	Status     ResultStatus
	Error      string
	Kind       CreativeKind
	PairID     string
	Retries    int
	Timestamp  time.Time
}

// SessionSummary aggregates an upload run. Owned by the upload session and
// written once at run end.
type SessionSummary struct {
	Total      int
	Successful int
	Failed     int
	Skipped    int
	Results    []ResultRecord
}

// Record appends a per-candidate result and bumps the matching counter.
// Duplicate and dry-run outcomes count as skipped at the summary level,
// matching how the run is reported to the operator.
func (s *SessionSummary) Record(r ResultRecord) {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	s.Results = append(s.Results, r)
	switch r.Status {
	case StatusSuccess:
		s.Successful++
	case StatusFailed:
		s.Failed++
	default:
		s.Skipped++
	}
}
