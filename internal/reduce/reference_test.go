package reduce

import (
	"math"
	"testing"
	"time"
)

func TestReferenceScoreWeights(t *testing.T) {
	sample := ReferenceMeta{ExpS: 1.0, Mon: 1000, Trans: 0.5}
	ref := ReferenceMeta{ExpS: 1.2, Mon: 800, Trans: 0.6}

	// bg: (0.2*1.0 + 0.2*0.8 + 0.1*1.5) / (1.0 + 0.8 + 1.5)
	wantBG := (0.2 + 0.16 + 0.15) / 3.3
	if got := ReferenceScore(sample, ref, KindBackground); math.Abs(got-wantBG) > 1e-12 {
		t.Errorf("bg score = %v, want %v", got, wantBG)
	}

	// dark ignores transmission entirely.
	wantDark := (0.2 + 0.16) / 1.8
	if got := ReferenceScore(sample, ref, KindDark); math.Abs(got-wantDark) > 1e-12 {
		t.Errorf("dark score = %v, want %v", got, wantDark)
	}
}

func TestReferenceScoreMissingFields(t *testing.T) {
	nan := math.NaN()
	empty := ReferenceMeta{ExpS: nan, Mon: nan, Trans: nan}
	if got := ReferenceScore(empty, empty, KindBackground); got != noMatchScore {
		t.Errorf("score = %v, want noMatchScore for incomparable metadata", got)
	}

	// A missing field drops from the weight sum rather than penalizing.
	sample := ReferenceMeta{ExpS: 1.0, Mon: nan, Trans: nan}
	ref := ReferenceMeta{ExpS: 1.5, Mon: 900, Trans: 0.7}
	want := 0.5 / 1.0
	if got := ReferenceScore(sample, ref, KindBackground); math.Abs(got-want) > 1e-12 {
		t.Errorf("score = %v, want %v with only exposure comparable", got, want)
	}
}

func TestReferenceScoreFileAge(t *testing.T) {
	nan := math.NaN()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sample := ReferenceMeta{ExpS: nan, Mon: nan, Trans: nan, MTime: t0}

	// Two days apart: min(48/24, 3) * 0.5 / 0.5 = 2.
	ref := ReferenceMeta{ExpS: nan, Mon: nan, Trans: nan, MTime: t0.Add(-48 * time.Hour)}
	if got := ReferenceScore(sample, ref, KindDark); math.Abs(got-2.0) > 1e-12 {
		t.Errorf("score = %v, want 2 for a 2-day-old reference", got)
	}

	// Age contribution caps at three days.
	ref.MTime = t0.Add(-240 * time.Hour)
	if got := ReferenceScore(sample, ref, KindDark); math.Abs(got-3.0) > 1e-12 {
		t.Errorf("score = %v, want capped 3", got)
	}
}

func TestSelectBestReferencePrefersShape(t *testing.T) {
	sample := ReferenceMeta{Rows: 100, Cols: 100, ExpS: 1.0, Mon: 1000, Trans: 0.5}
	perfectWrongShape := ReferenceMeta{
		Path: "small.tif", Rows: 50, Cols: 50, ExpS: 1.0, Mon: 1000, Trans: 0.5,
	}
	okRightShape := ReferenceMeta{
		Path: "big.tif", Rows: 100, Cols: 100, ExpS: 2.0, Mon: 500, Trans: 0.4,
	}

	best, score, ok := SelectBestReference(sample,
		[]ReferenceMeta{perfectWrongShape, okRightShape}, KindBackground)
	if !ok {
		t.Fatal("SelectBestReference returned no match")
	}
	if best.Path != "big.tif" {
		t.Errorf("best = %q, want the shape-matched candidate", best.Path)
	}
	if score <= 0 {
		t.Errorf("score = %v, want > 0 for imperfect metadata", score)
	}

	if _, _, ok := SelectBestReference(sample, nil, KindBackground); ok {
		t.Error("expected no match from an empty library")
	}
}

func TestSelectBestReferenceRanksByScore(t *testing.T) {
	sample := ReferenceMeta{Rows: 10, Cols: 10, ExpS: 1.0, Mon: 1000, Trans: 0.5}
	refs := []ReferenceMeta{
		{Path: "far.tif", Rows: 10, Cols: 10, ExpS: 5.0, Mon: 100, Trans: 0.9},
		{Path: "near.tif", Rows: 10, Cols: 10, ExpS: 1.1, Mon: 950, Trans: 0.52},
	}
	best, _, ok := SelectBestReference(sample, refs, KindBackground)
	if !ok || best.Path != "near.tif" {
		t.Errorf("best = %q, want near.tif", best.Path)
	}
}
