// Package inventory persists the creative inventory: the append-only master
// ledger, the per-run session ledger, upload status records, and the local
// caches used for duplicate suppression.
package inventory

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/creativeflow/creative-int/internal/config"
	"github.com/creativeflow/creative-int/internal/models"
)

// Record is one inventory ledger row. The master ledger is cumulative across
// runs; the session ledger holds only the most recent process run.
type Record struct {
	UniqueID         string
	OriginalFilename string
	NewFilename      string
	CreatorName      string
	Language         string
	Category         string
	ContentType      string
	CreativeType     string
	DurationSeconds  float64
	AspectRatio      string
	WidthPx          int
	HeightPx         int
	FileSizeMB       float64
	FileFormat       string
	DateProcessed    string
	SourcePath       string
	Notes            string
	NativePairID     string

	// Populated after a confirmed upload
	CreativeID string
	UploadDate string
}

var ledgerHeader = []string{
	"unique_id", "original_filename", "new_filename", "creator_name",
	"language", "category", "content_type", "creative_type",
	"duration_seconds", "aspect_ratio", "width_px", "height_px",
	"file_size_mb", "file_format", "date_processed", "source_path",
	"notes", "native_pair_id", "tj_creative_id", "tj_upload_date",
}

// Ledger provides access to the inventory CSV files under tracking/.
type Ledger struct {
	paths *config.Paths
}

// NewLedger creates a ledger over the given workspace layout.
func NewLedger(paths *config.Paths) *Ledger {
	return &Ledger{paths: paths}
}

// LoadMaster reads all rows from the master ledger. A missing file yields an
// empty slice.
func (l *Ledger) LoadMaster() ([]Record, error) {
	return readLedger(l.paths.MasterLedger)
}

// LoadSession reads all rows from the session ledger.
func (l *Ledger) LoadSession() ([]Record, error) {
	return readLedger(l.paths.SessionLedger)
}

// WriteSession replaces the session ledger with the given records.
func (l *Ledger) WriteSession(records []Record) error {
	return writeLedger(l.paths.SessionLedger, records)
}

// AppendMaster appends records to the master ledger, preserving prior rows.
func (l *Ledger) AppendMaster(records []Record) error {
	existing, err := l.LoadMaster()
	if err != nil {
		return err
	}
	return writeLedger(l.paths.MasterLedger, append(existing, records...))
}

// SourcePaths returns the set of source paths already present in the master
// ledger, used to skip already-processed files on re-runs.
func (l *Ledger) SourcePaths() (map[string]bool, error) {
	records, err := l.LoadMaster()
	if err != nil {
		return nil, err
	}
	paths := make(map[string]bool, len(records))
	for _, r := range records {
		if r.SourcePath != "" {
			paths[r.SourcePath] = true
		}
	}
	return paths, nil
}

// LoadPending builds the upload candidate list from the session ledger.
// ORG_-prefixed rows are the untouched originals of native conversions and
// are never uploaded. Known creative IDs are joined in from the master
// ledger so duplicate suppression can skip confirmed files.
func (l *Ledger) LoadPending() ([]models.UploadCandidate, error) {
	session, err := l.LoadSession()
	if err != nil {
		return nil, err
	}

	master, err := l.LoadMaster()
	if err != nil {
		return nil, err
	}
	knownIDs := make(map[string]string, len(master))
	for _, r := range master {
		if r.CreativeID != "" {
			knownIDs[r.UniqueID] = r.CreativeID
		}
	}

	var candidates []models.UploadCandidate
	for _, r := range session {
		if strings.HasPrefix(r.NewFilename, "ORG_") {
			continue
		}
		kind, ok := kindFromCreativeType(r.CreativeType)
		if !ok {
			continue
		}
		candidates = append(candidates, models.UploadCandidate{
			UniqueID:      r.UniqueID,
			Filename:      r.NewFilename,
			StoragePath:   filepath.Join(l.paths.KindDir(r.CreativeType), r.NewFilename),
			Kind:          kind,
			KnownRemoteID: knownIDs[r.UniqueID],
			PairID:        r.NativePairID,
		})
	}
	return candidates, nil
}

// MarkKnownRemoteID records a confirmed creative ID against a master ledger
// row. The creative-id columns are part of the ledger schema and written for
// every row; rows without an upload keep them empty.
func (l *Ledger) MarkKnownRemoteID(uniqueID, creativeID string) error {
	records, err := l.LoadMaster()
	if err != nil {
		return err
	}
	updated := false
	for i := range records {
		if records[i].UniqueID == uniqueID {
			records[i].CreativeID = creativeID
			records[i].UploadDate = time.Now().Format("2006-01-02")
			updated = true
		}
	}
	if !updated {
		return fmt.Errorf("unique id %s not found in master ledger", uniqueID)
	}
	return writeLedger(l.paths.MasterLedger, records)
}

// AppendResults writes the per-run upload status ledger under
// tracking/upload_logs/, named with the run identifier.
func (l *Ledger) AppendResults(runID string, results []models.ResultRecord) (string, error) {
	if len(results) == 0 {
		return "", nil
	}

	path := filepath.Join(l.paths.UploadLogDir, fmt.Sprintf("upload_status_%s.csv", runID))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload status file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := []string{
		"unique_id", "file_name", "file_path", "upload_date", "upload_time",
		"platform", "tj_creative_id", "status", "error_message",
		"creative_type", "native_pair_id", "retries",
	}
	if err := writer.Write(header); err != nil {
		return "", err
	}
	for _, r := range results {
		row := []string{
			r.UniqueID,
			r.Filename,
			r.Path,
			r.Timestamp.Format("2006-01-02"),
			r.Timestamp.Format("15:04:05"),
			r.Platform,
			r.CreativeID,
			string(r.Status),
			r.Error,
			string(r.Kind),
			r.PairID,
			strconv.Itoa(r.Retries),
		}
		if err := writer.Write(row); err != nil {
			return "", err
		}
	}
	writer.Flush()
	return path, writer.Error()
}

func kindFromCreativeType(creativeType string) (models.CreativeKind, bool) {
	switch creativeType {
	case "native_video":
		return models.KindNativeVideo, true
	case "native_image":
		return models.KindNativeImage, true
	case "video", "short_video":
		return models.KindVideo, true
	case "image":
		return models.KindImage, true
	}
	return "", false
}

func readLedger(path string) ([]Record, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	// Header-driven column mapping: older ledgers may lack the creative-id
	// columns, and column order is not guaranteed once operators open the
	// file in a spreadsheet.
	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}

	get := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		duration, _ := strconv.ParseFloat(get(row, "duration_seconds"), 64)
		width, _ := strconv.Atoi(get(row, "width_px"))
		height, _ := strconv.Atoi(get(row, "height_px"))
		size, _ := strconv.ParseFloat(get(row, "file_size_mb"), 64)

		records = append(records, Record{
			UniqueID:         get(row, "unique_id"),
			OriginalFilename: get(row, "original_filename"),
			NewFilename:      get(row, "new_filename"),
			CreatorName:      get(row, "creator_name"),
			Language:         get(row, "language"),
			Category:         get(row, "category"),
			ContentType:      get(row, "content_type"),
			CreativeType:     get(row, "creative_type"),
			DurationSeconds:  duration,
			AspectRatio:      get(row, "aspect_ratio"),
			WidthPx:          width,
			HeightPx:         height,
			FileSizeMB:       size,
			FileFormat:       get(row, "file_format"),
			DateProcessed:    get(row, "date_processed"),
			SourcePath:       get(row, "source_path"),
			Notes:            get(row, "notes"),
			NativePairID:     get(row, "native_pair_id"),
			CreativeID:       get(row, "tj_creative_id"),
			UploadDate:       get(row, "tj_upload_date"),
		})
	}
	return records, nil
}

func writeLedger(path string, records []Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write ledger %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(ledgerHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.UniqueID,
			r.OriginalFilename,
			r.NewFilename,
			r.CreatorName,
			r.Language,
			r.Category,
			r.ContentType,
			r.CreativeType,
			strconv.FormatFloat(r.DurationSeconds, 'f', 2, 64),
			r.AspectRatio,
			strconv.Itoa(r.WidthPx),
			strconv.Itoa(r.HeightPx),
			strconv.FormatFloat(r.FileSizeMB, 'f', 2, 64),
			r.FileFormat,
			r.DateProcessed,
			r.SourcePath,
			r.Notes,
			r.NativePairID,
			r.CreativeID,
			r.UploadDate,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
