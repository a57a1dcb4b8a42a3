package upload

import (
	"context"
	"errors"
	"time"

	"github.com/creativeflow/creative-int/internal/logging"
	"github.com/creativeflow/creative-int/internal/platform"
)

// OutcomeStatus classifies the terminal result of one batch.
type OutcomeStatus string

const (
	OutcomeSuccess   OutcomeStatus = "success"
	OutcomeDuplicate OutcomeStatus = "duplicate"
	OutcomeFailed    OutcomeStatus = "failed"
	OutcomeDryRun    OutcomeStatus = "dry_run"
)

// Outcome is the terminal result of a batch after retries are exhausted or a
// terminal status was reached.
type Outcome struct {
	Status   OutcomeStatus
	Result   ReconcileResult // populated for OutcomeSuccess
	Err      error           // populated for OutcomeFailed
	Attempts int             // submission attempts performed
}

// Coordinator wraps one batch submission plus reconciliation with bounded
// retries. It is the sole authority on retry-vs-surface decisions.
type Coordinator struct {
	driver   *Driver
	workflow platform.UploadWorkflow
	log      *logging.Logger

	maxRetries int           // total submission attempts per batch
	backoff    time.Duration // wait between attempts
}

// NewCoordinator creates a retry coordinator. maxRetries is the total number
// of attempts, not the number of re-tries after the first.
func NewCoordinator(driver *Driver, workflow platform.UploadWorkflow, log *logging.Logger, maxRetries int, backoff time.Duration) *Coordinator {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Coordinator{
		driver:     driver,
		workflow:   workflow,
		log:        log,
		maxRetries: maxRetries,
		backoff:    backoff,
	}
}

// Attempt submits the batch and reconciles its creative IDs, retrying failed
// attempts up to the configured bound.
//
// The baseline snapshot is taken exactly once, immediately before the first
// submission, after navigating to the batch kind's listing so the baseline
// and the post-upload snapshot cover the same scope. A retry resubmits the
// same unconfirmed batch and must be diffed against the same baseline:
// re-taking it after a half-completed attempt would hide entries that
// attempt already created, losing their ids for good. Only a failure before
// anything was submitted may re-take the baseline.
//
// Duplicate (the diff yields no new ids) and DryRun are terminal without
// retry. A partial match is accepted as Success for the matched subset;
// retrying the whole batch would risk double submission of the files the
// platform already accepted.
func (c *Coordinator) Attempt(ctx context.Context, batch Batch) Outcome {
	var (
		baseline *platform.Snapshot
		lastErr  error
	)

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			c.log.Warnf("Retry attempt %d/%d for %s batch", attempt, c.maxRetries, batch.Kind)
			time.Sleep(c.backoff)
		}

		if baseline == nil {
			// The listing is tab-scoped: select the batch kind first so the
			// baseline covers the same tab the post-upload snapshot will.
			if err := c.workflow.NavigateToListing(ctx); err != nil {
				lastErr = err
				c.log.Error().Err(err).Msg("Baseline navigation failed")
				continue
			}
			if err := c.workflow.SelectKind(ctx, batch.Kind); err != nil {
				lastErr = err
				c.log.Error().Err(err).Msg("Baseline kind selection failed")
				continue
			}
			pre, err := c.workflow.ListCurrentSnapshot(ctx)
			if err != nil {
				lastErr = err
				c.log.Error().Err(err).Msg("Baseline snapshot failed")
				continue
			}
			baseline = pre
			c.log.Debug().Int("existing", baseline.Len()).Msg("Baseline snapshot captured")
		}

		err := c.driver.Submit(ctx, batch)
		if errors.Is(err, ErrDryRun) {
			return Outcome{Status: OutcomeDryRun, Attempts: attempt}
		}
		if err != nil {
			lastErr = err
			c.log.Error().Err(err).Int("attempt", attempt).Msg("Batch submission failed")
			continue
		}

		post, err := c.workflow.ListCurrentSnapshot(ctx)
		if err != nil {
			lastErr = err
			c.log.Error().Err(err).Msg("Post-upload snapshot failed")
			continue
		}

		result := Reconcile(baseline, post, batch)
		if result.NoNewIDs() {
			c.log.Warnf("No new creative IDs found for %s batch - files may already exist on the platform", batch.Kind)
			return Outcome{Status: OutcomeDuplicate, Attempts: attempt}
		}

		if matched := result.Matched(); matched < len(batch.Sequence) {
			c.log.Warnf("Matched %d/%d creative IDs; unmatched files are recorded individually", matched, len(batch.Sequence))
		}
		return Outcome{Status: OutcomeSuccess, Result: result, Attempts: attempt}
	}

	return Outcome{Status: OutcomeFailed, Err: lastErr, Attempts: c.maxRetries}
}
