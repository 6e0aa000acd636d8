package reduce

import (
	"math"
	"os"
	"sort"
	"time"

	"saxs-abs/internal/header"
	"saxs-abs/internal/logger"
)

// ReferenceKind selects the metadata weights used when scoring a
// candidate against a sample.
type ReferenceKind string

const (
	KindBackground ReferenceKind = "bg"
	KindDark       ReferenceKind = "dark"
)

// ReferenceMeta describes one candidate background or dark frame.
// Numeric fields are NaN when the header did not provide them; a zero
// MTime means the file time is unknown.
type ReferenceMeta struct {
	Path  string
	Rows  int
	Cols  int
	ExpS  float64
	Mon   float64
	Trans float64
	MTime time.Time
}

// noMatchScore is returned when no metadata field is comparable.
const noMatchScore = 1e9

// BuildReferenceLibrary opens each candidate frame, parses its header,
// and records the metadata needed for matching. Unreadable candidates
// are skipped with a warning rather than failing the batch.
func BuildReferenceLibrary(paths []string, opener FrameOpener) []ReferenceMeta {
	seen := make(map[string]bool, len(paths))
	var refs []ReferenceMeta
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true

		frame, hdr, err := opener.OpenFrame(p)
		if err != nil {
			lg := logger.L()
			lg.Warn().Str("path", p).Err(err).Msg("skipping unreadable reference candidate")
			continue
		}
		exp, mon, trans := header.ParseHeaderValues(hdr)
		rows, cols := frame.Dims()
		ref := ReferenceMeta{
			Path: p, Rows: rows, Cols: cols,
			ExpS: exp, Mon: mon, Trans: trans,
		}
		if fi, err := os.Stat(p); err == nil {
			ref.MTime = fi.ModTime()
		}
		refs = append(refs, ref)
	}
	return refs
}

// ReferenceScore is a weighted metadata distance between a sample and a
// reference candidate; lower is better. Exposure and monitor compare by
// relative difference, transmission (background only) by absolute
// difference, and file time by age in days capped at three. Fields
// missing on either side drop out of both the numerator and the weight
// sum, so the score stays comparable across candidates with different
// metadata coverage.
func ReferenceScore(sample, ref ReferenceMeta, kind ReferenceKind) float64 {
	score, used := 0.0, 0.0

	if d, ok := header.RelativeDiff(sample.ExpS, ref.ExpS); ok && sample.ExpS > 0 && ref.ExpS > 0 {
		score += d * 1.0
		used += 1.0
	}
	if d, ok := header.RelativeDiff(sample.Mon, ref.Mon); ok && sample.Mon > 0 && ref.Mon > 0 {
		score += d * 0.8
		used += 0.8
	}
	if kind == KindBackground && positive(sample.Trans) && positive(ref.Trans) {
		score += math.Abs(sample.Trans-ref.Trans) * 1.5
		used += 1.5
	}
	if !sample.MTime.IsZero() && !ref.MTime.IsZero() {
		dtHours := math.Abs(sample.MTime.Sub(ref.MTime).Hours())
		score += math.Min(dtHours/24.0, 3.0) * 0.5
		used += 0.5
	}

	if used == 0 {
		return noMatchScore
	}
	return score / used
}

// SelectBestReference picks the lowest-scoring candidate, restricting
// the pool to shape-matched frames when any exist.
func SelectBestReference(sample ReferenceMeta, refs []ReferenceMeta, kind ReferenceKind) (ReferenceMeta, float64, bool) {
	if len(refs) == 0 {
		return ReferenceMeta{}, 0, false
	}
	pool := refs
	var sameShape []ReferenceMeta
	for _, r := range refs {
		if r.Rows == sample.Rows && r.Cols == sample.Cols {
			sameShape = append(sameShape, r)
		}
	}
	if len(sameShape) > 0 {
		pool = sameShape
	}

	type scored struct {
		score float64
		ref   ReferenceMeta
	}
	ranked := make([]scored, 0, len(pool))
	for _, r := range pool {
		ranked = append(ranked, scored{ReferenceScore(sample, r, kind), r})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score < ranked[j].score })
	return ranked[0].ref, ranked[0].score, true
}

func positive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
