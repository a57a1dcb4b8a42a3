package upload

import (
	"fmt"
	"testing"

	"github.com/creativeflow/creative-int/internal/models"
)

func TestPlanChunksWithinBound(t *testing.T) {
	var candidates []models.UploadCandidate
	for i := 0; i < 25; i++ {
		candidates = append(candidates, candidate(fmt.Sprintf("ID-%02d", i), fmt.Sprintf("v%02d.mp4", i), models.KindVideo))
	}

	batches := Plan(candidates, 10)

	wantSizes := []int{10, 10, 5}
	if len(batches) != len(wantSizes) {
		t.Fatalf("Plan() produced %d batches, want %d", len(batches), len(wantSizes))
	}
	idx := 0
	for i, b := range batches {
		if len(b.Sequence) != wantSizes[i] {
			t.Errorf("batch %d has %d candidates, want %d", i, len(b.Sequence), wantSizes[i])
		}
		if b.Kind != models.KindVideo {
			t.Errorf("batch %d kind = %s, want %s", i, b.Kind, models.KindVideo)
		}
		for _, c := range b.Sequence {
			if c.UniqueID != candidates[idx].UniqueID {
				t.Fatalf("input order not preserved: got %s at position %d, want %s", c.UniqueID, idx, candidates[idx].UniqueID)
			}
			idx++
		}
	}
}

func TestPlanKindOrder(t *testing.T) {
	candidates := []models.UploadCandidate{
		candidate("ID-1", "a.png", models.KindImage),
		candidate("ID-2", "b.mp4", models.KindVideo),
		candidate("ID-3", "c.png", models.KindNativeImage),
		candidate("ID-4", "d.mp4", models.KindNativeVideo),
	}

	batches := Plan(candidates, 10)
	if len(batches) != 4 {
		t.Fatalf("Plan() produced %d batches, want 4", len(batches))
	}

	wantOrder := []models.CreativeKind{
		models.KindNativeVideo, models.KindNativeImage, models.KindVideo, models.KindImage,
	}
	for i, b := range batches {
		if b.Kind != wantOrder[i] {
			t.Errorf("batch %d kind = %s, want %s", i, b.Kind, wantOrder[i])
		}
	}
}

func TestPlanEmpty(t *testing.T) {
	if batches := Plan(nil, 10); len(batches) != 0 {
		t.Errorf("Plan(nil) produced %d batches, want 0", len(batches))
	}
}

func TestPlanBatchSizeFloor(t *testing.T) {
	candidates := []models.UploadCandidate{
		candidate("ID-1", "a.mp4", models.KindVideo),
		candidate("ID-2", "b.mp4", models.KindVideo),
	}
	batches := Plan(candidates, 0)
	if len(batches) != 2 {
		t.Fatalf("Plan() with zero batch size produced %d batches, want 2 single-file batches", len(batches))
	}
}

func TestApplyLimitPairAware(t *testing.T) {
	var candidates []models.UploadCandidate
	for i := 1; i <= 3; i++ {
		pair := fmt.Sprintf("ID-PAIR%d", i)
		vid := candidate(pair+"-VID", fmt.Sprintf("v%d.mp4", i), models.KindNativeVideo)
		vid.PairID = pair
		img := candidate(pair+"-IMG", fmt.Sprintf("v%d.png", i), models.KindNativeImage)
		img.PairID = pair
		candidates = append(candidates, vid, img)
	}

	limited := ApplyLimit(candidates, 2)

	videos, images := 0, 0
	pairs := make(map[string]int)
	for _, c := range limited {
		pairs[c.PairID]++
		switch c.Kind {
		case models.KindNativeVideo:
			videos++
		case models.KindNativeImage:
			images++
		}
	}
	if videos != 2 || images != 2 {
		t.Fatalf("ApplyLimit(2) kept %d videos, %d images, want 2 and 2", videos, images)
	}
	for pair, n := range pairs {
		if n != 2 {
			t.Errorf("pair %s has %d members after limiting, want both or neither", pair, n)
		}
	}
	if pairs["ID-PAIR3"] != 0 {
		t.Errorf("pair ID-PAIR3 should have been truncated entirely")
	}
}

func TestApplyLimitPlainKinds(t *testing.T) {
	candidates := []models.UploadCandidate{
		candidate("ID-1", "a.mp4", models.KindVideo),
		candidate("ID-2", "b.mp4", models.KindVideo),
		candidate("ID-3", "c.png", models.KindImage),
	}

	limited := ApplyLimit(candidates, 1)
	if len(limited) != 2 {
		t.Fatalf("ApplyLimit(1) kept %d candidates, want 2 (one per kind)", len(limited))
	}
}

func TestApplyLimitZeroMeansUnlimited(t *testing.T) {
	candidates := []models.UploadCandidate{
		candidate("ID-1", "a.mp4", models.KindVideo),
		candidate("ID-2", "b.mp4", models.KindVideo),
	}
	if got := ApplyLimit(candidates, 0); len(got) != 2 {
		t.Errorf("ApplyLimit(0) kept %d candidates, want all", len(got))
	}
}
