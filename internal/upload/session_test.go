package upload

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/creativeflow/creative-int/internal/config"
	"github.com/creativeflow/creative-int/internal/inventory"
	"github.com/creativeflow/creative-int/internal/logging"
	"github.com/creativeflow/creative-int/internal/models"
)

type sessionEnv struct {
	paths   *config.Paths
	ledger  *inventory.Ledger
	cfg     *config.Config
	records []inventory.Record
}

func newSessionEnv(t *testing.T) *sessionEnv {
	t.Helper()
	paths := config.NewPaths(t.TempDir())
	if err := paths.EnsureDirs(); err != nil {
		t.Fatal(err)
	}
	if err := paths.EnsureUploadDirs(true); err != nil {
		t.Fatal(err)
	}

	cfg := config.Defaults()
	cfg.DryRun = false
	cfg.MaxRetries = 1
	cfg.PollInterval = 0
	cfg.PerFileTimeout = 0
	cfg.SettleDelay = 0

	return &sessionEnv{
		paths:  paths,
		ledger: inventory.NewLedger(paths),
		cfg:    cfg,
	}
}

// addCreative writes a file of the given size under the kind directory and
// queues the matching ledger row.
func (e *sessionEnv) addCreative(t *testing.T, uniqueID, filename, creativeType string, size int) {
	t.Helper()
	path := filepath.Join(e.paths.KindDir(creativeType), filename)
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
	e.records = append(e.records, inventory.Record{
		UniqueID:     uniqueID,
		NewFilename:  filename,
		CreativeType: creativeType,
	})
}

// addMissing queues a ledger row whose file does not exist on disk.
func (e *sessionEnv) addMissing(uniqueID, filename, creativeType string) {
	e.records = append(e.records, inventory.Record{
		UniqueID:     uniqueID,
		NewFilename:  filename,
		CreativeType: creativeType,
	})
}

func (e *sessionEnv) writeLedgers(t *testing.T) {
	t.Helper()
	if err := e.ledger.WriteSession(e.records); err != nil {
		t.Fatal(err)
	}
	if err := e.ledger.AppendMaster(e.records); err != nil {
		t.Fatal(err)
	}
}

func (e *sessionEnv) run(t *testing.T, ctx context.Context, wf *fakeWorkflow) (*models.SessionSummary, error) {
	t.Helper()
	cache, err := inventory.LoadDuplicateCache(e.paths.DuplicateCache)
	if err != nil {
		t.Fatal(err)
	}
	s := NewSession(e.cfg, e.paths, wf, e.ledger, cache, logging.NewLogger(io.Discard), nil)
	return s.Run(ctx)
}

func TestSessionRunConfirmsCreativeIDs(t *testing.T) {
	env := newSessionEnv(t)
	env.addCreative(t, "ID-AAAA1111", "EN_Cosplay_SFW_Generic_Seras_ID-AAAA1111.mp4", "video", 64)
	env.writeLedgers(t)

	wf := newFakeWorkflow(
		listResult{snap: snap()},
		listResult{snap: snap("900", "EN_Cosplay_SFW_Generic_Seras_ID-AAAA1111.mp4")},
	)

	summary, err := env.run(t, context.Background(), wf)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Successful != 1 || summary.Failed != 0 {
		t.Fatalf("summary = %+v, want 1 success", summary)
	}

	// The creative ID must land in the master ledger...
	master, err := env.ledger.LoadMaster()
	if err != nil {
		t.Fatal(err)
	}
	if master[0].CreativeID != "900" {
		t.Errorf("master ledger creative id = %q, want 900", master[0].CreativeID)
	}

	// ...and in the duplicate cache.
	cache, err := inventory.LoadDuplicateCache(env.paths.DuplicateCache)
	if err != nil {
		t.Fatal(err)
	}
	if id, ok := cache.Lookup("EN_Cosplay_SFW_Generic_Seras_ID-AAAA1111.mp4"); !ok || id != "900" {
		t.Errorf("duplicate cache lookup = %q, %v, want 900", id, ok)
	}

	// A per-run status ledger is written.
	logs, err := filepath.Glob(filepath.Join(env.paths.UploadLogDir, "upload_status_*.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 {
		t.Errorf("found %d upload status files, want 1", len(logs))
	}
}

func TestSessionSkipsConfirmedDuplicates(t *testing.T) {
	env := newSessionEnv(t)
	env.addCreative(t, "ID-BBBB2222", "dup.mp4", "video", 64)
	env.writeLedgers(t)
	if err := env.ledger.MarkKnownRemoteID("ID-BBBB2222", "555"); err != nil {
		t.Fatal(err)
	}

	wf := newFakeWorkflow()
	summary, err := env.run(t, context.Background(), wf)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Skipped != 1 || summary.Successful != 0 {
		t.Fatalf("summary = %+v, want 1 skipped", summary)
	}
	if len(wf.steps) != 0 {
		t.Errorf("workflow was driven for an already-confirmed file: steps %v", wf.steps)
	}
}

func TestSessionForceReuploadsDuplicates(t *testing.T) {
	env := newSessionEnv(t)
	env.cfg.Force = true
	env.addCreative(t, "ID-CCCC3333", "dup.mp4", "video", 64)
	env.writeLedgers(t)
	if err := env.ledger.MarkKnownRemoteID("ID-CCCC3333", "555"); err != nil {
		t.Fatal(err)
	}

	wf := newFakeWorkflow(
		listResult{snap: snap("555", "dup.mp4")},
		listResult{snap: snap("555", "dup.mp4", "901", "dup.mp4")},
	)
	summary, err := env.run(t, context.Background(), wf)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Successful != 1 {
		t.Fatalf("summary = %+v, want the duplicate re-uploaded under force", summary)
	}
	if wf.attachCount() != 1 {
		t.Errorf("attach was called %d times, want 1", wf.attachCount())
	}
}

func TestSessionPartialMatchRecordsEachCandidateOnce(t *testing.T) {
	env := newSessionEnv(t)
	env.addCreative(t, "ID-AAAA0001", "a.mp4", "video", 64)
	env.addCreative(t, "ID-BBBB0002", "b.mp4", "video", 64)
	env.writeLedgers(t)

	// Only a.mp4 materializes on the platform.
	wf := newFakeWorkflow(
		listResult{snap: snap()},
		listResult{snap: snap("200", "a.mp4")},
	)

	summary, err := env.run(t, context.Background(), wf)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Successful != 1 || summary.Failed != 1 {
		t.Fatalf("summary = %d successful / %d failed, want 1 / 1", summary.Successful, summary.Failed)
	}

	// Every candidate ends the run with exactly one result record.
	perCandidate := map[string][]models.ResultRecord{}
	for _, r := range summary.Results {
		perCandidate[r.UniqueID] = append(perCandidate[r.UniqueID], r)
	}
	for id, rs := range perCandidate {
		if len(rs) != 1 {
			t.Errorf("candidate %s has %d result records, want exactly 1", id, len(rs))
		}
	}
	if rs := perCandidate["ID-BBBB0002"]; len(rs) == 1 {
		if rs[0].Status != models.StatusFailed || rs[0].CreativeID != "" {
			t.Errorf("unmatched candidate record = %+v, want failed with no creative id", rs[0])
		}
	}

	// The unmatched candidate must not be confirmed anywhere.
	master, err := env.ledger.LoadMaster()
	if err != nil {
		t.Fatal(err)
	}
	for _, row := range master {
		if row.UniqueID == "ID-BBBB0002" && (row.CreativeID != "" || row.UploadDate != "") {
			t.Errorf("unmatched candidate stamped in master ledger: id=%q date=%q", row.CreativeID, row.UploadDate)
		}
	}
	cache, err := inventory.LoadDuplicateCache(env.paths.DuplicateCache)
	if err != nil {
		t.Fatal(err)
	}
	if id, ok := cache.Lookup("b.mp4"); ok {
		t.Errorf("unmatched candidate cached as creative %q", id)
	}
}

func TestSessionDryRun(t *testing.T) {
	env := newSessionEnv(t)
	env.cfg.DryRun = true
	env.addCreative(t, "ID-DDDD4444", "a.mp4", "video", 64)
	env.writeLedgers(t)

	wf := newFakeWorkflow(listResult{snap: snap()})
	summary, err := env.run(t, context.Background(), wf)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Skipped != 1 || summary.Successful != 0 {
		t.Fatalf("summary = %+v, want the dry run counted as skipped", summary)
	}
	if wf.attachCount() != 0 {
		t.Errorf("attach was called %d times in dry run, want 0", wf.attachCount())
	}
	if summary.Results[0].Status != models.StatusDryRun {
		t.Errorf("result status = %s, want dry_run", summary.Results[0].Status)
	}
}

func TestSessionValidation(t *testing.T) {
	env := newSessionEnv(t)
	env.addMissing("ID-EEEE5555", "gone.mp4", "video")
	env.addCreative(t, "ID-FFFF6666", "big.png", "native_image", maxNativeImageBytes+1)
	env.writeLedgers(t)

	wf := newFakeWorkflow()
	summary, err := env.run(t, context.Background(), wf)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Failed != 2 {
		t.Fatalf("summary = %+v, want both candidates failed validation", summary)
	}
	if len(wf.steps) != 0 {
		t.Errorf("workflow was driven with no valid candidates: steps %v", wf.steps)
	}
}

func TestSessionHonorsCancellationBetweenBatches(t *testing.T) {
	env := newSessionEnv(t)
	env.addCreative(t, "ID-1111AAAA", "a.mp4", "video", 64)
	env.addCreative(t, "ID-2222BBBB", "b.mp4", "video", 64)
	env.writeLedgers(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	wf := newFakeWorkflow()
	summary, err := env.run(t, ctx, wf)
	if err == nil {
		t.Fatal("Run() should surface the cancellation")
	}

	if summary.Skipped != 2 {
		t.Fatalf("summary = %+v, want both candidates skipped", summary)
	}
	if len(wf.steps) != 0 {
		t.Errorf("workflow was driven after cancellation: steps %v", wf.steps)
	}
}
