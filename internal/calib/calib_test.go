package calib

import (
	"math"
	"strings"
	"testing"

	"saxs-abs/internal/standards"
)

const kTrue = 12.5

// measuredFromReference builds a measured curve that is the reference
// divided by a known K factor.
func measuredFromReference() (q, i []float64) {
	q, iRef := standards.SRM3600Data()
	i = make([]float64, len(iRef))
	for k := range iRef {
		i[k] = iRef[k] / kTrue
	}
	return q, i
}

func TestEstimateKFactorCleanData(t *testing.T) {
	qm, im := measuredFromReference()
	res, err := EstimateKFactorRobust(qm, im, nil, nil, Options{})
	if err != nil {
		t.Fatalf("EstimateKFactorRobust: %v", err)
	}
	if math.Abs(res.KFactor-kTrue) > 1e-9*kTrue {
		t.Errorf("KFactor = %v, want %v", res.KFactor, kTrue)
	}
	if res.KStd > 1e-9 {
		t.Errorf("KStd = %v, want ~0 for clean data", res.KStd)
	}
	if res.QMinOverlap != 0.010 || res.QMaxOverlap != 0.200 {
		t.Errorf("overlap = [%v, %v], want [0.010, 0.200]", res.QMinOverlap, res.QMaxOverlap)
	}
	if res.PointsTotal != 12 {
		t.Errorf("PointsTotal = %d, want 12 reference points in window", res.PointsTotal)
	}
}

func TestEstimateKFactorOutlierRobust(t *testing.T) {
	qm, im := measuredFromReference()
	// Corrupt one point by a 10x multiplicative factor.
	im[8] *= 10
	res, err := EstimateKFactorRobust(qm, im, nil, nil, Options{})
	if err != nil {
		t.Fatalf("EstimateKFactorRobust: %v", err)
	}
	if math.Abs(res.KFactor-kTrue)/kTrue > 0.10 {
		t.Errorf("KFactor = %v, want within 10%% of %v", res.KFactor, kTrue)
	}
}

func TestEstimateKFactorNoOverlap(t *testing.T) {
	qm := []float64{1.0, 1.5, 2.0}
	im := []float64{1.0, 0.5, 0.25}
	_, err := EstimateKFactorRobust(qm, im, nil, nil, Options{})
	if err == nil {
		t.Fatal("expected error for disjoint q ranges")
	}
	if !strings.Contains(err.Error(), "overlap") {
		t.Errorf("error %q should mention overlap", err)
	}
}

func TestEstimateKFactorNonPositiveSignal(t *testing.T) {
	qRef, _ := standards.SRM3600Data()
	im := make([]float64, len(qRef))
	for k := range im {
		im[k] = -1.0
	}
	_, err := EstimateKFactorRobust(qRef, im, nil, nil, Options{})
	if err == nil {
		t.Fatal("expected error for all-negative measured signal")
	}
}

func TestEstimateKFactorTooFewPoints(t *testing.T) {
	_, err := EstimateKFactorRobust([]float64{0.01, 0.02}, []float64{1, 2}, nil, nil, Options{})
	if err == nil {
		t.Fatal("expected error for a 2-point profile")
	}
	if !strings.Contains(err.Error(), "insufficient") {
		t.Errorf("error %q should mention insufficient points", err)
	}
}

func TestRegularizeProfile(t *testing.T) {
	q := []float64{0.03, 0.01, 0.02, 0.02, math.NaN(), 0.04}
	i := []float64{3, 1, 2, 4, 5, math.Inf(1)}
	qc, ic, err := RegularizeProfile(q, i, 3)
	if err != nil {
		t.Fatalf("RegularizeProfile: %v", err)
	}
	wantQ := []float64{0.01, 0.02, 0.03}
	wantI := []float64{1, 3, 3} // duplicate q=0.02 averaged: (2+4)/2
	if len(qc) != len(wantQ) {
		t.Fatalf("got %d points, want %d", len(qc), len(wantQ))
	}
	for k := range wantQ {
		if qc[k] != wantQ[k] || ic[k] != wantI[k] {
			t.Errorf("point %d = (%v, %v), want (%v, %v)", k, qc[k], ic[k], wantQ[k], wantI[k])
		}
	}
}

func TestRegularizeProfileTooFew(t *testing.T) {
	if _, _, err := RegularizeProfile([]float64{0.01}, []float64{1}, 3); err == nil {
		t.Fatal("expected error below minimum point count")
	}
}
