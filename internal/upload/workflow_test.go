package upload

import (
	"context"

	"github.com/creativeflow/creative-int/internal/models"
	"github.com/creativeflow/creative-int/internal/platform"
)

type listResult struct {
	snap *platform.Snapshot
	err  error
}

// fakeWorkflow records the step sequence the driver performs and serves
// scripted snapshots and errors.
type fakeWorkflow struct {
	steps    []string
	kinds    []models.CreativeKind
	attached [][]string

	navErr     error
	selectErr  error
	openErr    error
	attachErrs []error // popped one per AttachFiles call

	// completed overrides PollProcessing; -1 reports the last attach size.
	completed int

	listResults []listResult // popped per ListCurrentSnapshot call, last repeats
	listCalls   int
}

func newFakeWorkflow(results ...listResult) *fakeWorkflow {
	return &fakeWorkflow{completed: -1, listResults: results}
}

func (f *fakeWorkflow) NavigateToListing(ctx context.Context) error {
	f.steps = append(f.steps, "navigate")
	return f.navErr
}

func (f *fakeWorkflow) SelectKind(ctx context.Context, kind models.CreativeKind) error {
	f.steps = append(f.steps, "select")
	f.kinds = append(f.kinds, kind)
	return f.selectErr
}

func (f *fakeWorkflow) OpenUploadForm(ctx context.Context) error {
	f.steps = append(f.steps, "open")
	return f.openErr
}

func (f *fakeWorkflow) AttachFiles(ctx context.Context, paths []string) error {
	f.steps = append(f.steps, "attach")
	f.attached = append(f.attached, paths)
	if len(f.attachErrs) > 0 {
		err := f.attachErrs[0]
		f.attachErrs = f.attachErrs[1:]
		return err
	}
	return nil
}

func (f *fakeWorkflow) PollProcessing(ctx context.Context) (platform.ProcessingStatus, error) {
	f.steps = append(f.steps, "poll")
	if f.completed >= 0 {
		return platform.ProcessingStatus{Completed: f.completed}, nil
	}
	n := 0
	if len(f.attached) > 0 {
		n = len(f.attached[len(f.attached)-1])
	}
	return platform.ProcessingStatus{Completed: n, Total: n}, nil
}

func (f *fakeWorkflow) ListCurrentSnapshot(ctx context.Context) (*platform.Snapshot, error) {
	f.steps = append(f.steps, "list")
	f.listCalls++
	if len(f.listResults) == 0 {
		return platform.NewSnapshot(), nil
	}
	idx := f.listCalls - 1
	if idx >= len(f.listResults) {
		idx = len(f.listResults) - 1
	}
	r := f.listResults[idx]
	return r.snap, r.err
}

func (f *fakeWorkflow) attachCount() int {
	n := 0
	for _, s := range f.steps {
		if s == "attach" {
			n++
		}
	}
	return n
}

// snap builds a snapshot from alternating id, displayName pairs.
func snap(pairs ...string) *platform.Snapshot {
	s := platform.NewSnapshot()
	for i := 0; i+1 < len(pairs); i += 2 {
		s.Add(pairs[i], pairs[i+1])
	}
	return s
}

func candidate(id, filename string, kind models.CreativeKind) models.UploadCandidate {
	return models.UploadCandidate{
		UniqueID:    id,
		Filename:    filename,
		StoragePath: "/tmp/" + filename,
		Kind:        kind,
	}
}
