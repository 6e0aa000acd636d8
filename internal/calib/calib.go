// Package calib estimates the absolute-intensity K-factor by comparing a
// measured scattering profile against a reference standard curve.
//
// The estimator is deliberately robust: SAXS overlap regions routinely carry
// a handful of corrupted points (beamstop-edge pixels, detector module gaps)
// that would bias a mean-based fit, so the point-wise intensity ratios are
// filtered with a median +/- 3*MAD inlier rule before the final median.
package calib

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat"

	"saxs-abs/internal/standards"
	"saxs-abs/pkg/robust"
)

// Result holds the outcome of a robust K-factor estimation.
type Result struct {
	KFactor     float64
	KStd        float64
	QMinOverlap float64
	QMaxOverlap float64
	PointsTotal int
	PointsUsed  int
	RatiosUsed  []float64
}

// Options tunes EstimateKFactorRobust. Zero-value fields fall back to the
// standard defaults: q window (0.01, 0.2), positive floor 1e-9, minimum 3
// points.
type Options struct {
	QWindowMin    float64
	QWindowMax    float64
	PositiveFloor float64
	MinPoints     int
}

func (o Options) withDefaults() Options {
	if o.QWindowMin == 0 && o.QWindowMax == 0 {
		o.QWindowMin, o.QWindowMax = 0.01, 0.2
	}
	if o.PositiveFloor == 0 {
		o.PositiveFloor = 1e-9
	}
	if o.MinPoints <= 0 {
		o.MinPoints = 3
	}
	return o
}

// RegularizeProfile validates, cleans, sorts, and deduplicates a profile.
// Non-finite pairs are dropped and duplicate q values are merged by averaging
// intensity. Errors out below minPoints unique points.
func RegularizeProfile(q, i []float64, minPoints int) (qc, ic []float64, err error) {
	if len(q) != len(i) {
		return nil, nil, fmt.Errorf("q and intensity length mismatch: %d vs %d", len(q), len(i))
	}
	if minPoints <= 0 {
		minPoints = 3
	}

	type pt struct{ q, i float64 }
	pts := make([]pt, 0, len(q))
	for k := range q {
		if finite(q[k]) && finite(i[k]) {
			pts = append(pts, pt{q[k], i[k]})
		}
	}
	if len(pts) < minPoints {
		return nil, nil, fmt.Errorf("insufficient valid points: %d < %d", len(pts), minPoints)
	}
	sort.Slice(pts, func(a, b int) bool { return pts[a].q < pts[b].q })

	qc = make([]float64, 0, len(pts))
	ic = make([]float64, 0, len(pts))
	for k := 0; k < len(pts); {
		j := k
		sum := 0.0
		for j < len(pts) && pts[j].q == pts[k].q {
			sum += pts[j].i
			j++
		}
		qc = append(qc, pts[k].q)
		ic = append(ic, sum/float64(j-k))
		k = j
	}
	if len(qc) < minPoints {
		return nil, nil, fmt.Errorf("insufficient unique q points: %d < %d", len(qc), minPoints)
	}
	return qc, ic, nil
}

// EstimateKFactorRobust computes the calibration multiplier K such that
// K * I_meas matches the reference curve. When qRef/iRef are nil the
// built-in NIST SRM 3600 glassy carbon curve is used.
//
// The measured profile is interpolated onto the reference q grid inside the
// q window and the overlap interval; ratios I_ref/I_meas are filtered with a
// median +/- 3*MAD inlier rule (the full ratio set is kept when too few
// inliers survive). Each failure stage errors with a message naming the
// stage so batch callers can report it per sample.
func EstimateKFactorRobust(qMeas, iMeas, qRef, iRef []float64, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	qm, im, err := RegularizeProfile(qMeas, iMeas, opts.MinPoints)
	if err != nil {
		return nil, fmt.Errorf("measured profile: %w", err)
	}

	if qRef == nil || iRef == nil {
		qRef, iRef = standards.SRM3600Data()
	}
	if len(qRef) != len(iRef) {
		return nil, fmt.Errorf("reference q/intensity length mismatch: %d vs %d", len(qRef), len(iRef))
	}

	// Reference restricted to the comparison window.
	var qWin, iWin []float64
	for k := range qRef {
		if qRef[k] >= opts.QWindowMin && qRef[k] <= opts.QWindowMax {
			qWin = append(qWin, qRef[k])
			iWin = append(iWin, iRef[k])
		}
	}
	if len(qWin) < opts.MinPoints {
		return nil, fmt.Errorf("reference points in q window are insufficient: %d < %d", len(qWin), opts.MinPoints)
	}

	qMin := math.Max(minOf(qm), minOf(qWin))
	qMax := math.Min(maxOf(qm), maxOf(qWin))
	var qUsed, iUsed []float64
	for k := range qWin {
		if qWin[k] >= qMin && qWin[k] <= qMax {
			qUsed = append(qUsed, qWin[k])
			iUsed = append(iUsed, iWin[k])
		}
	}
	if len(qUsed) < opts.MinPoints {
		return nil, fmt.Errorf("q overlap with reference is insufficient: %d points in [%g, %g]", len(qUsed), qMin, qMax)
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(qm, im); err != nil {
		return nil, fmt.Errorf("measured profile interpolation: %w", err)
	}

	ratios := make([]float64, 0, len(qUsed))
	valid := 0
	for k := range qUsed {
		mi := pl.Predict(qUsed[k])
		if !finite(mi) || mi <= opts.PositiveFloor {
			continue
		}
		valid++
		r := iUsed[k] / mi
		if finite(r) && r > 0 {
			ratios = append(ratios, r)
		}
	}
	if valid < opts.MinPoints {
		return nil, fmt.Errorf("measured signal too weak or non-positive in overlap region: %d valid points", valid)
	}
	if len(ratios) < opts.MinPoints {
		return nil, fmt.Errorf("insufficient valid ratio points for robust K estimation: %d < %d", len(ratios), opts.MinPoints)
	}

	rMed := robust.Median(ratios)
	rMAD := robust.MAD(ratios)
	used := ratios
	if finite(rMAD) && rMAD > 0 {
		sigma := robust.MADScale * rMAD
		var inliers []float64
		for _, r := range ratios {
			if math.Abs(r-rMed) <= 3.0*sigma {
				inliers = append(inliers, r)
			}
		}
		// Graceful degradation: keep the unfiltered set rather than fail
		// when the inlier count falls below the minimum.
		if len(inliers) >= opts.MinPoints {
			used = inliers
		}
	}

	k := robust.Median(used)
	kStd := stat.PopStdDev(used, nil)
	if !finite(k) || k <= 0 {
		return nil, fmt.Errorf("estimated K factor is non-positive: %g", k)
	}

	return &Result{
		KFactor:     k,
		KStd:        kStd,
		QMinOverlap: qMin,
		QMaxOverlap: qMax,
		PointsTotal: len(qUsed),
		PointsUsed:  len(used),
		RatiosUsed:  used,
	}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func minOf(xs []float64) float64 {
	m := math.Inf(1)
	for _, v := range xs {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(xs []float64) float64 {
	m := math.Inf(-1)
	for _, v := range xs {
		if v > m {
			m = v
		}
	}
	return m
}
