package upload

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/creativeflow/creative-int/internal/config"
	"github.com/creativeflow/creative-int/internal/inventory"
	"github.com/creativeflow/creative-int/internal/logging"
	"github.com/creativeflow/creative-int/internal/models"
	"github.com/creativeflow/creative-int/internal/platform"
	"github.com/creativeflow/creative-int/internal/progress"
)

// Native image creatives are rejected by the platform above this size.
// The limit is decimal kilobytes, not KiB.
const maxNativeImageBytes = 300_000

const retryBackoff = 2 * time.Second

const platformName = "trafficjunky"

// Session runs one upload pass end to end: load pending candidates from the
// session ledger, validate and deduplicate them, submit batches in kind order,
// and persist results. At most one Session runs at a time; candidates are
// immutable for the duration of the run.
type Session struct {
	cfg      *config.Config
	paths    *config.Paths
	workflow platform.UploadWorkflow
	ledger   *inventory.Ledger
	cache    *inventory.DuplicateCache
	log      *logging.Logger
	reporter progress.Reporter

	runID   string
	summary models.SessionSummary
}

// NewSession wires an upload session over an authenticated workflow.
func NewSession(cfg *config.Config, paths *config.Paths, workflow platform.UploadWorkflow, ledger *inventory.Ledger, cache *inventory.DuplicateCache, log *logging.Logger, reporter progress.Reporter) *Session {
	if reporter == nil {
		reporter = progress.NewNoOpProgress()
	}
	return &Session{
		cfg:      cfg,
		paths:    paths,
		workflow: workflow,
		ledger:   ledger,
		cache:    cache,
		log:      log,
		reporter: reporter,
		runID:    time.Now().Format("20060102_150405") + "_" + uuid.NewString()[:8],
	}
}

// RunID identifies this run in the upload status ledger filename.
func (s *Session) RunID() string { return s.runID }

// Run executes the upload pass and returns the aggregated summary. The
// context is honored between batches only: an in-flight batch always runs to
// completion so its reconciliation is not lost.
func (s *Session) Run(ctx context.Context) (*models.SessionSummary, error) {
	pending, err := s.ledger.LoadPending()
	if err != nil {
		return nil, fmt.Errorf("failed to load pending candidates: %w", err)
	}
	if len(pending) == 0 {
		s.log.Info().Msg("No pending creatives to upload")
		return &s.summary, nil
	}
	s.log.Infof("Loaded %d pending creatives from session ledger", len(pending))

	valid := s.validate(pending)
	fresh := s.skipDuplicates(valid)
	fresh = ApplyLimit(fresh, s.cfg.Limit)

	batches := Plan(fresh, s.cfg.MaxBatchSize)
	s.summary.Total = len(pending)
	if len(batches) == 0 {
		s.log.Info().Msg("Nothing left to upload after validation and duplicate checks")
		return s.finish()
	}

	if s.cfg.DryRun {
		s.log.Warn().Msg("DRY RUN mode: upload forms will be opened but no files attached")
	}

	driver := NewDriver(s.workflow, s.log,
		WithDryRun(s.cfg.DryRun),
		WithTiming(s.cfg.PollInterval, s.cfg.PerFileTimeout, s.cfg.SettleDelay),
	)
	coordinator := NewCoordinator(driver, s.workflow, s.log, s.cfg.MaxRetries, retryBackoff)

	s.reporter.Start(int64(len(batches)), "Uploading batches")
	cancelled := false
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			s.log.Warn().Msg("Run cancelled; remaining batches skipped")
			for _, b := range batches[i:] {
				s.recordBatch(b, models.StatusSkipped, "", "run cancelled", 0)
			}
			cancelled = true
			break
		}

		s.log.Infof("Batch %d/%d: %d %s file(s)", i+1, len(batches), len(batch.Sequence), batch.Kind)
		s.applyOutcome(batch, coordinator.Attempt(ctx, batch))
		s.reporter.Increment()
	}
	s.reporter.Finish()

	summary, err := s.finish()
	if err != nil {
		return summary, err
	}
	if cancelled {
		return summary, ctx.Err()
	}
	return summary, nil
}

// validate drops candidates that cannot be submitted, recording a failure for
// each. Native images are size-checked locally so an oversized thumbnail does
// not poison its whole batch.
func (s *Session) validate(candidates []models.UploadCandidate) []models.UploadCandidate {
	valid := candidates[:0:0]
	for _, c := range candidates {
		info, err := os.Stat(c.StoragePath)
		if err != nil {
			s.log.Error().Str("file", c.Filename).Msg("File missing on disk")
			s.record(c, models.StatusFailed, "", "file not found on disk", 0)
			continue
		}
		if c.Kind == models.KindNativeImage && info.Size() > maxNativeImageBytes {
			s.log.Error().Str("file", c.Filename).Int64("bytes", info.Size()).Msg("Native image exceeds the 300 KB platform limit")
			s.record(c, models.StatusFailed, "", fmt.Sprintf("native image is %d bytes, limit is %d", info.Size(), maxNativeImageBytes), 0)
			continue
		}
		valid = append(valid, c)
	}
	return valid
}

// skipDuplicates removes candidates already confirmed on the platform, via
// either the master ledger join or the local duplicate cache. Force overrides
// both.
func (s *Session) skipDuplicates(candidates []models.UploadCandidate) []models.UploadCandidate {
	if s.cfg.Force {
		return candidates
	}
	fresh := candidates[:0:0]
	for _, c := range candidates {
		creativeID := c.KnownRemoteID
		if creativeID == "" {
			creativeID, _ = s.cache.Lookup(c.Filename)
		}
		if creativeID != "" {
			s.log.Debugf("Skipping %s: already uploaded as creative %s", c.Filename, creativeID)
			s.record(c, models.StatusSkipped, creativeID, "already uploaded", 0)
			continue
		}
		fresh = append(fresh, c)
	}
	return fresh
}

// applyOutcome converts one batch outcome into per-candidate result records
// and persists confirmed creative IDs.
func (s *Session) applyOutcome(batch Batch, outcome Outcome) {
	retries := outcome.Attempts - 1

	switch outcome.Status {
	case OutcomeDryRun:
		s.recordBatch(batch, models.StatusDryRun, "", "", retries)

	case OutcomeDuplicate:
		s.recordBatch(batch, models.StatusDuplicate, "", "no new creative ids appeared after upload", retries)

	case OutcomeFailed:
		msg := "batch submission failed"
		if outcome.Err != nil {
			msg = outcome.Err.Error()
		}
		s.recordBatch(batch, models.StatusFailed, "", msg, retries)

	case OutcomeSuccess:
		for _, m := range outcome.Result.Matches {
			// Unmatched candidates carry an empty id and are recorded as
			// failures below; confirming them would stamp bogus ledger rows.
			if m.CreativeID == "" {
				continue
			}
			s.record(m.Candidate, models.StatusSuccess, m.CreativeID, "", retries)
			s.confirm(m.Candidate, m.CreativeID)
		}
		for _, c := range outcome.Result.UnmatchedCandidates {
			s.record(c, models.StatusFailed, "", "creative id not extracted", retries)
		}
		if len(outcome.Result.UnmatchedNewIDs) > 0 {
			s.log.Warnf("%d new creative id(s) could not be matched to any submitted file: %s",
				len(outcome.Result.UnmatchedNewIDs), strings.Join(outcome.Result.UnmatchedNewIDs, ", "))
		}
	}
}

// confirm persists a creative ID in both the master ledger and the duplicate
// cache. Ledger write failures are logged, not fatal: the cache still
// prevents re-upload on the next run.
func (s *Session) confirm(c models.UploadCandidate, creativeID string) {
	s.cache.Record(c.Filename, creativeID)
	if err := s.ledger.MarkKnownRemoteID(c.UniqueID, creativeID); err != nil {
		s.log.Error().Err(err).Str("file", c.Filename).Msg("Failed to record creative ID in master ledger")
	}
}

func (s *Session) record(c models.UploadCandidate, status models.ResultStatus, creativeID, errMsg string, retries int) {
	s.summary.Record(models.ResultRecord{
		UniqueID:   c.UniqueID,
		Filename:   c.Filename,
		Path:       c.StoragePath,
		Platform:   platformName,
		CreativeID: creativeID,
		Status:     status,
		Error:      errMsg,
		Kind:       c.Kind,
		PairID:     c.PairID,
		Retries:    retries,
	})
}

func (s *Session) recordBatch(batch Batch, status models.ResultStatus, creativeID, errMsg string, retries int) {
	for _, c := range batch.Sequence {
		s.record(c, status, creativeID, errMsg, retries)
	}
}

// finish persists the duplicate cache and the per-run status ledger, then
// logs the summary line.
func (s *Session) finish() (*models.SessionSummary, error) {
	if err := s.cache.Save(); err != nil {
		s.log.Error().Err(err).Msg("Failed to save duplicate cache")
	}

	path, err := s.ledger.AppendResults(s.runID, s.summary.Results)
	if err != nil {
		return &s.summary, fmt.Errorf("failed to write upload status ledger: %w", err)
	}
	if path != "" {
		s.log.Infof("Upload status written to %s", path)
	}

	s.log.Infof("Upload run complete: %d successful, %d failed, %d skipped (of %d)",
		s.summary.Successful, s.summary.Failed, s.summary.Skipped, s.summary.Total)
	return &s.summary, nil
}
