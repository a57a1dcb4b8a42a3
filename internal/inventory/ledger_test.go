package inventory

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/creativeflow/creative-int/internal/config"
	"github.com/creativeflow/creative-int/internal/models"
)

func newTestLedger(t *testing.T) (*Ledger, *config.Paths) {
	t.Helper()
	paths := config.NewPaths(t.TempDir())
	if err := paths.EnsureDirs(); err != nil {
		t.Fatal(err)
	}
	return NewLedger(paths), paths
}

func sampleRecord(id, filename, creativeType, pairID string) Record {
	return Record{
		UniqueID:     id,
		NewFilename:  filename,
		CreativeType: creativeType,
		NativePairID: pairID,
		CreatorName:  "Seras",
		Language:     "EN",
		Category:     "Cosplay",
		ContentType:  "NSFW",
		SourcePath:   "source_files/cosplay/" + filename,
	}
}

func TestSessionLedgerRoundTrip(t *testing.T) {
	ledger, _ := newTestLedger(t)

	records := []Record{
		sampleRecord("ID-00000001", "EN_Cosplay_NSFW_Generic_Seras_5sec_ID-00000001.mp4", "video", ""),
		sampleRecord("ID-00000002", "EN_Cosplay_NSFW_Generic_Seras_ID-00000002.jpg", "image", ""),
	}
	if err := ledger.WriteSession(records); err != nil {
		t.Fatalf("WriteSession failed: %v", err)
	}

	loaded, err := ledger.LoadSession()
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(loaded))
	}
	if loaded[0].UniqueID != "ID-00000001" || loaded[0].CreativeType != "video" {
		t.Errorf("Round-trip mismatch: %+v", loaded[0])
	}
}

func TestAppendMasterPreservesRows(t *testing.T) {
	ledger, _ := newTestLedger(t)

	if err := ledger.AppendMaster([]Record{sampleRecord("ID-00000001", "a.mp4", "video", "")}); err != nil {
		t.Fatal(err)
	}
	if err := ledger.AppendMaster([]Record{sampleRecord("ID-00000002", "b.mp4", "video", "")}); err != nil {
		t.Fatal(err)
	}

	records, err := ledger.LoadMaster()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 master rows, got %d", len(records))
	}
}

func TestLoadPendingSkipsOriginalsAndJoinsKnownIDs(t *testing.T) {
	ledger, paths := newTestLedger(t)

	master := []Record{sampleRecord("ID-00000001", "v.mp4", "video", "")}
	master[0].CreativeID = "1032382001"
	if err := ledger.AppendMaster(master); err != nil {
		t.Fatal(err)
	}

	session := []Record{
		sampleRecord("ID-00000001", "v.mp4", "video", ""),
		sampleRecord("ID-00000002", "ORG_v2.mp4", "video", ""),
		sampleRecord("ID-00000003-VID", "VID_v3.mp4", "native_video", "ID-00000003"),
		sampleRecord("ID-00000003-IMG", "IMG_v3.png", "native_image", "ID-00000003"),
	}
	if err := ledger.WriteSession(session); err != nil {
		t.Fatal(err)
	}

	pending, err := ledger.LoadPending()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 3 {
		t.Fatalf("Expected 3 pending candidates (ORG_ filtered), got %d", len(pending))
	}

	if pending[0].KnownRemoteID != "1032382001" {
		t.Errorf("Known creative ID should be joined from the master ledger, got %q", pending[0].KnownRemoteID)
	}
	if pending[1].Kind != models.KindNativeVideo || pending[1].PairID != "ID-00000003" {
		t.Errorf("Native video candidate wrong: %+v", pending[1])
	}
	if !strings.HasPrefix(pending[1].StoragePath, paths.NativeVideoDir) {
		t.Errorf("Native video path should be under Native/Video: %s", pending[1].StoragePath)
	}
	if pending[2].Kind != models.KindNativeImage {
		t.Errorf("Native image candidate wrong: %+v", pending[2])
	}
}

func TestShortVideoMapsToVideoKind(t *testing.T) {
	ledger, _ := newTestLedger(t)
	if err := ledger.WriteSession([]Record{sampleRecord("ID-00000009", "s.mp4", "short_video", "")}); err != nil {
		t.Fatal(err)
	}
	pending, err := ledger.LoadPending()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Kind != models.KindVideo {
		t.Errorf("short_video should upload as a plain video, got %+v", pending)
	}
}

func TestMarkKnownRemoteID(t *testing.T) {
	ledger, _ := newTestLedger(t)
	if err := ledger.AppendMaster([]Record{sampleRecord("ID-00000001", "v.mp4", "video", "")}); err != nil {
		t.Fatal(err)
	}

	if err := ledger.MarkKnownRemoteID("ID-00000001", "1032382001"); err != nil {
		t.Fatalf("MarkKnownRemoteID failed: %v", err)
	}

	records, err := ledger.LoadMaster()
	if err != nil {
		t.Fatal(err)
	}
	if records[0].CreativeID != "1032382001" {
		t.Errorf("Creative ID not persisted: %+v", records[0])
	}
	if records[0].UploadDate == "" {
		t.Error("Upload date should be set")
	}

	if err := ledger.MarkKnownRemoteID("ID-MISSING1", "x"); err == nil {
		t.Error("Unknown unique id should be an error")
	}
}

func TestAppendResults(t *testing.T) {
	ledger, paths := newTestLedger(t)

	results := []models.ResultRecord{
		{
			UniqueID:   "ID-00000001",
			Filename:   "v.mp4",
			Platform:   "TrafficJunky",
			CreativeID: "1032382001",
			Status:     models.StatusSuccess,
			Kind:       models.KindVideo,
		},
		{
			UniqueID: "ID-00000002",
			Filename: "w.mp4",
			Platform: "TrafficJunky",
			Status:   models.StatusFailed,
			Error:    "upload processing timeout",
			Kind:     models.KindVideo,
			Retries:  2,
		},
	}

	path, err := ledger.AppendResults("20260830_120000", results)
	if err != nil {
		t.Fatalf("AppendResults failed: %v", err)
	}
	if filepath.Dir(path) != paths.UploadLogDir {
		t.Errorf("Status file should land in upload_logs: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, "1032382001") || !strings.Contains(content, "upload processing timeout") {
		t.Errorf("Status CSV missing expected fields:\n%s", content)
	}
}

func TestAppendResultsEmpty(t *testing.T) {
	ledger, _ := newTestLedger(t)
	path, err := ledger.AppendResults("run", nil)
	if err != nil || path != "" {
		t.Errorf("Empty results should be a no-op, got path=%q err=%v", path, err)
	}
}
