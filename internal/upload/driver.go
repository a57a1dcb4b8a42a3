package upload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/creativeflow/creative-int/internal/logging"
	"github.com/creativeflow/creative-int/internal/platform"
)

// ErrDryRun is returned by Driver.Submit when dry-run mode stopped the
// workflow after the upload form was reached, before any file was attached.
var ErrDryRun = errors.New("dry run: upload form reached, no files attached")

// Driver drives the platform upload workflow through its required step
// sequence for one batch and blocks until the platform reports per-item
// completion or the processing budget is exhausted.
type Driver struct {
	workflow platform.UploadWorkflow
	log      *logging.Logger

	dryRun bool

	// Timing knobs, overridable for tests.
	pollInterval   time.Duration // delay between processing polls
	perFileTimeout time.Duration // processing budget per file in the batch
	settleDelay    time.Duration // post-completion wait absorbing indexing lag
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithDryRun stops every submission after the upload form is opened.
func WithDryRun(dryRun bool) DriverOption {
	return func(d *Driver) { d.dryRun = dryRun }
}

// WithTiming overrides the processing wait parameters.
func WithTiming(pollInterval, perFileTimeout, settleDelay time.Duration) DriverOption {
	return func(d *Driver) {
		d.pollInterval = pollInterval
		d.perFileTimeout = perFileTimeout
		d.settleDelay = settleDelay
	}
}

// NewDriver creates a submission driver over the given workflow.
func NewDriver(workflow platform.UploadWorkflow, log *logging.Logger, opts ...DriverOption) *Driver {
	d := &Driver{
		workflow:       workflow,
		log:            log,
		pollInterval:   2 * time.Second,
		perFileTimeout: 30 * time.Second,
		settleDelay:    5 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Submit runs one batch through the workflow:
//
//	NavigateToListing → SelectKind → OpenUploadForm → AttachFiles → AwaitProcessing
//
// Any step that cannot locate its remote affordance fails the attempt; the
// error surfaces to the retry coordinator, which owns the retry decision.
// In dry-run mode Submit stops after OpenUploadForm and returns ErrDryRun.
//
// The batch always runs to completion or failure: the context is passed to
// workflow calls for transport deadlines, but the processing wait is not cut
// short mid-batch, since aborting there would leave the remote form in an
// indeterminate state.
func (d *Driver) Submit(ctx context.Context, batch Batch) error {
	if len(batch.Sequence) == 0 {
		return fmt.Errorf("empty batch")
	}

	d.log.Debug().Str("kind", string(batch.Kind)).Int("files", len(batch.Sequence)).Msg("Submitting batch")

	if err := d.workflow.NavigateToListing(ctx); err != nil {
		return err
	}
	if err := d.workflow.SelectKind(ctx, batch.Kind); err != nil {
		return err
	}
	if err := d.workflow.OpenUploadForm(ctx); err != nil {
		return err
	}

	if d.dryRun {
		d.log.Infof("DRY RUN: would upload %d %s file(s)", len(batch.Sequence), batch.Kind)
		return ErrDryRun
	}

	if err := d.workflow.AttachFiles(ctx, batch.Paths()); err != nil {
		return err
	}

	return d.awaitProcessing(ctx, len(batch.Sequence))
}

// awaitProcessing polls until the platform reports every file of the batch as
// processed, then waits the settle delay so the listing has caught up with
// asynchronous indexing before the post-upload snapshot is taken.
func (d *Driver) awaitProcessing(ctx context.Context, expected int) error {
	budget := time.Duration(expected) * d.perFileTimeout
	deadline := time.Now().Add(budget)

	var last platform.ProcessingStatus
	for {
		status, err := d.workflow.PollProcessing(ctx)
		if err != nil {
			return err
		}
		last = status

		if status.Completed >= expected {
			d.log.Debug().Int("completed", status.Completed).Int("expected", expected).Msg("Processing complete")
			time.Sleep(d.settleDelay)
			return nil
		}

		if time.Now().After(deadline) {
			break
		}

		d.log.Debugf("Processing %d/%d files...", status.Completed, expected)
		time.Sleep(d.pollInterval)
	}

	return platform.NewWorkflowError("await-processing",
		fmt.Sprintf("upload processing timeout: %d/%d files completed after %s", last.Completed, expected, budget),
		nil)
}
