package upload

import (
	"strings"

	"github.com/creativeflow/creative-int/internal/models"
	"github.com/creativeflow/creative-int/internal/platform"
)

// Match pairs one batch candidate with the creative ID attributed to it.
// CreativeID is empty when no new creative could be matched to the file.
type Match struct {
	Candidate  models.UploadCandidate
	CreativeID string
}

// ReconcileResult attributes the creative IDs that appeared between two
// snapshots to the candidates of one batch.
type ReconcileResult struct {
	// Matches preserves batch sequence order: Matches[i] corresponds to
	// batch.Sequence[i], with an empty CreativeID when unmatched.
	Matches []Match

	// UnmatchedCandidates are the batch entries no new creative ID could be
	// attributed to. Diagnostic; they do not block the rest of the batch.
	UnmatchedCandidates []models.UploadCandidate

	// UnmatchedNewIDs are new ids left over after matching, e.g. creatives
	// created by a concurrent operator session.
	UnmatchedNewIDs []string
}

// Matched returns how many candidates received a creative ID.
func (r ReconcileResult) Matched() int {
	n := 0
	for _, m := range r.Matches {
		if m.CreativeID != "" {
			n++
		}
	}
	return n
}

// NoNewIDs reports that the diff produced nothing: every file of the batch
// already existed on the platform. Callers treat this as a duplicate
// outcome, not a failure.
//
// A diff that yields only foreign ids (Matched() == 0 but UnmatchedNewIDs
// non-empty) is deliberately not a duplicate: something new appeared, it just
// could not be attributed to this batch, e.g. a concurrent operator session.
// The batch outcome stays Success with zero matches and every candidate is
// recorded individually as failed, so nothing is wrongly confirmed and
// nothing is blindly resubmitted.
func (r ReconcileResult) NoNewIDs() bool {
	return r.Matched() == 0 && len(r.UnmatchedNewIDs) == 0
}

// Reconcile computes which creative IDs are genuinely new between the
// pre-upload and post-upload snapshots and maps them back to the batch's
// candidates via the platform's displayed name.
//
// Matching per candidate, in sequence order: exact display-name match first,
// then the name with its file extension stripped (the platform may display
// names without extensions). First match wins and each id is consumed at
// most once, so no two candidates can claim the same creative.
//
// Freshness invariant: every returned id was absent from pre and present in
// post. An id from the pre-upload snapshot is never attributed to a
// candidate, so a pre-existing creative can never be mistaken for a fresh
// upload.
func Reconcile(pre, post *platform.Snapshot, batch Batch) ReconcileResult {
	newIDs := post.NewIDs(pre)

	// Display name → id over new ids only. On a name collision between two
	// new creatives the first seen wins; the loser surfaces in
	// UnmatchedNewIDs rather than being guessed at.
	nameToID := make(map[string]string, len(newIDs))
	for _, id := range newIDs {
		name := post.DisplayName(id)
		if _, exists := nameToID[name]; !exists {
			nameToID[name] = id
		}
	}

	claimed := make(map[string]bool, len(newIDs))
	result := ReconcileResult{Matches: make([]Match, 0, len(batch.Sequence))}

	for _, candidate := range batch.Sequence {
		id := claimName(nameToID, claimed, candidate.Filename)
		if id == "" {
			id = claimName(nameToID, claimed, stripExtension(candidate.Filename))
		}

		result.Matches = append(result.Matches, Match{Candidate: candidate, CreativeID: id})
		if id == "" {
			result.UnmatchedCandidates = append(result.UnmatchedCandidates, candidate)
		}
	}

	for _, id := range newIDs {
		if !claimed[id] {
			result.UnmatchedNewIDs = append(result.UnmatchedNewIDs, id)
		}
	}
	return result
}

func claimName(nameToID map[string]string, claimed map[string]bool, name string) string {
	id, ok := nameToID[name]
	if !ok || claimed[id] {
		return ""
	}
	claimed[id] = true
	return id
}

func stripExtension(filename string) string {
	if idx := strings.LastIndex(filename, "."); idx > 0 {
		return filename[:idx]
	}
	return filename
}
