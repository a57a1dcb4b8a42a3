// Package platform defines the capability interface the upload engine drives
// against an advertising platform's media-library workflow, plus the snapshot
// and error types shared by implementations.
//
// The platform offers no transactional submit-and-get-id API: a submission
// only materializes as new entries in the paginated listing, so the engine
// diffs a snapshot taken before the upload against one taken after.
package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/creativeflow/creative-int/internal/models"
)

// ProcessingStatus reports how many files of the current upload the platform
// has finished processing.
type ProcessingStatus struct {
	Completed int
	Total     int
}

// UploadWorkflow is the capability interface for one authenticated
// media-library session. Calls are strictly sequential: the workflow owns a
// single page context and concurrent use would race on its UI state.
type UploadWorkflow interface {
	// NavigateToListing opens the media-library listing.
	NavigateToListing(ctx context.Context) error

	// SelectKind activates the tab for the given creative kind. The active
	// tab determines which form receives the next submission.
	SelectKind(ctx context.Context, kind models.CreativeKind) error

	// OpenUploadForm opens the upload form on the active tab.
	OpenUploadForm(ctx context.Context) error

	// AttachFiles submits all files to the open upload form in one go.
	AttachFiles(ctx context.Context, paths []string) error

	// PollProcessing reports the platform's processing progress for the
	// in-flight submission.
	PollProcessing(ctx context.Context) (ProcessingStatus, error)

	// ListCurrentSnapshot pages through the full listing and returns the
	// union of all pages as a point-in-time snapshot.
	ListCurrentSnapshot(ctx context.Context) (*Snapshot, error)
}

// WorkflowError is raised when a workflow step cannot locate or operate its
// required remote affordance. It fails the current attempt; the retry
// coordinator decides whether the batch is retried.
type WorkflowError struct {
	Step  string
	Cause string
	Err   error
}

func (e *WorkflowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("workflow step %s failed: %s: %v", e.Step, e.Cause, e.Err)
	}
	return fmt.Sprintf("workflow step %s failed: %s", e.Step, e.Cause)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// NewWorkflowError builds a WorkflowError for a failed step.
func NewWorkflowError(step, cause string, err error) *WorkflowError {
	return &WorkflowError{Step: step, Cause: cause, Err: err}
}

// IsWorkflowError reports whether err is (or wraps) a WorkflowError.
func IsWorkflowError(err error) bool {
	var we *WorkflowError
	return errors.As(err, &we)
}

// ErrNotAuthenticated indicates the platform session is missing or expired.
var ErrNotAuthenticated = errors.New("not authenticated with platform")
