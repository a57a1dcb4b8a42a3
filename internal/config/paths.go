package config

import (
	"os"
	"path/filepath"
)

// Paths describes the on-disk workspace layout rooted at the project base
// directory. The layout matches what the ingest and upload pipelines expect:
//
//	source_files/          incoming assets, one subfolder per category
//	uploaded/              normalized assets, by kind
//	tracking/              inventory ledgers and state files
//	tracking/upload_logs/  per-run upload status ledgers and logs
//	archive/               retired assets
//	data/session/          persisted platform session
type Paths struct {
	Base string

	SourceDir    string
	UploadDir    string
	TrackingDir  string
	ArchiveDir   string
	SessionDir   string
	UploadLogDir string

	// Kind subdirectories under UploadDir
	NativeVideoDir string
	NativeImageDir string
	VideoDir       string
	ImageDir       string

	// Ledger and state files
	MasterLedger   string // tracking/creative_inventory.csv
	SessionLedger  string // tracking/creative_inventory_session.csv
	DefaultsFile   string // tracking/metadata_defaults.csv
	ProcessedIDs   string // tracking/processed_ids.json
	DuplicateCache string // tracking/uploaded_ids.json
	SessionFile    string // data/session/tj_session.json
}

// NewPaths builds the workspace layout for the given base directory.
func NewPaths(base string) *Paths {
	tracking := filepath.Join(base, "tracking")
	upload := filepath.Join(base, "uploaded")
	return &Paths{
		Base:         base,
		SourceDir:    filepath.Join(base, "source_files"),
		UploadDir:    upload,
		TrackingDir:  tracking,
		ArchiveDir:   filepath.Join(base, "archive"),
		SessionDir:   filepath.Join(base, "data", "session"),
		UploadLogDir: filepath.Join(tracking, "upload_logs"),

		NativeVideoDir: filepath.Join(upload, "Native", "Video"),
		NativeImageDir: filepath.Join(upload, "Native", "Image"),
		VideoDir:       filepath.Join(upload, "Video"),
		ImageDir:       filepath.Join(upload, "Image"),

		MasterLedger:   filepath.Join(tracking, "creative_inventory.csv"),
		SessionLedger:  filepath.Join(tracking, "creative_inventory_session.csv"),
		DefaultsFile:   filepath.Join(tracking, "metadata_defaults.csv"),
		ProcessedIDs:   filepath.Join(tracking, "processed_ids.json"),
		DuplicateCache: filepath.Join(tracking, "uploaded_ids.json"),
		SessionFile:    filepath.Join(base, "data", "session", "tj_session.json"),
	}
}

// EnsureDirs creates the workspace directories that must exist before a run.
func (p *Paths) EnsureDirs() error {
	dirs := []string{
		p.TrackingDir,
		p.ArchiveDir,
		p.UploadLogDir,
		p.SessionDir,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// EnsureUploadDirs creates the per-kind output directories used by ingest.
func (p *Paths) EnsureUploadDirs(native bool) error {
	dirs := []string{p.VideoDir, p.ImageDir}
	if native {
		dirs = append(dirs, p.NativeVideoDir, p.NativeImageDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// KindDir returns the uploaded/ subdirectory for a creative kind string.
func (p *Paths) KindDir(kind string) string {
	switch kind {
	case "native_video":
		return p.NativeVideoDir
	case "native_image":
		return p.NativeImageDir
	case "video", "short_video":
		return p.VideoDir
	case "image":
		return p.ImageDir
	}
	return p.UploadDir
}
