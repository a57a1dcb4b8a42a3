// Package upload implements the batch submission engine: planning bounded
// batches, driving the platform upload workflow, reconciling new creative IDs
// out of before/after listing snapshots, and coordinating retries.
package upload

import (
	"github.com/creativeflow/creative-int/internal/models"
)

// Batch is a bounded, ordered group of candidates submitted together through
// one upload form interaction. All candidates in a batch share a kind.
type Batch struct {
	Kind     models.CreativeKind
	Sequence []models.UploadCandidate
}

// Paths returns the storage paths of the batch in sequence order.
func (b Batch) Paths() []string {
	paths := make([]string, len(b.Sequence))
	for i, c := range b.Sequence {
		paths[i] = c.StoragePath
	}
	return paths
}

// Plan partitions candidates into batches: grouped by kind in the
// platform-mandated upload order, then chunked in input order into runs of at
// most maxBatchSize. The bound is chosen below the listing page size so one
// batch's results always fit on a single listing page.
//
// Plan is pure: no I/O, and an empty input yields an empty plan.
func Plan(candidates []models.UploadCandidate, maxBatchSize int) []Batch {
	if maxBatchSize < 1 {
		maxBatchSize = 1
	}

	grouped := groupByKind(candidates)

	var batches []Batch
	for _, kind := range models.KindUploadOrder {
		group := grouped[kind]
		for start := 0; start < len(group); start += maxBatchSize {
			end := min(start+maxBatchSize, len(group))
			batches = append(batches, Batch{
				Kind:     kind,
				Sequence: group[start:end:end],
			})
		}
	}
	return batches
}

// ApplyLimit caps each kind group at limit candidates, for testing runs.
// Paired kinds are limited by correlating PairID: native videos are truncated
// first, then native images are filtered to the pairs whose video survived.
// A truncated run therefore never produces an orphaned thumbnail whose paired
// video was not submitted. limit <= 0 means no limit.
func ApplyLimit(candidates []models.UploadCandidate, limit int) []models.UploadCandidate {
	if limit <= 0 {
		return candidates
	}

	grouped := groupByKind(candidates)

	videos := grouped[models.KindNativeVideo]
	if len(videos) > limit {
		videos = videos[:limit]
	}
	surviving := make(map[string]bool, len(videos))
	for _, v := range videos {
		if v.PairID != "" {
			surviving[v.PairID] = true
		}
	}

	var images []models.UploadCandidate
	for _, img := range grouped[models.KindNativeImage] {
		if surviving[img.PairID] {
			images = append(images, img)
		}
	}

	plainVideos := grouped[models.KindVideo]
	if len(plainVideos) > limit {
		plainVideos = plainVideos[:limit]
	}
	plainImages := grouped[models.KindImage]
	if len(plainImages) > limit {
		plainImages = plainImages[:limit]
	}

	var out []models.UploadCandidate
	out = append(out, videos...)
	out = append(out, images...)
	out = append(out, plainVideos...)
	out = append(out, plainImages...)
	return out
}

func groupByKind(candidates []models.UploadCandidate) map[models.CreativeKind][]models.UploadCandidate {
	grouped := make(map[models.CreativeKind][]models.UploadCandidate)
	for _, c := range candidates {
		grouped[c.Kind] = append(grouped[c.Kind], c)
	}
	return grouped
}
