// Package subtraction implements background removal for SAXS data, both
// the 1D buffer/solvent subtraction used in solution work and the 2D
// dark-corrected net frame used during calibration and batch reduction.
package subtraction

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat"

	"saxs-abs/internal/logger"
)

// BufferResult holds a buffer-subtracted profile with its high-q
// residual diagnostic.
type BufferResult struct {
	Q                []float64
	ISubtracted      []float64
	ErrSubtracted    []float64
	Alpha            float64
	HighQResidualMean float64
	HighQCheckPassed bool
}

// ValidateAlpha warns when the buffer scaling factor is far from 1.0,
// which usually indicates capillary mismatch or a concentration error.
func ValidateAlpha(alpha float64) {
	if alpha < 0.8 || alpha > 1.2 {
		lg := logger.L()
		lg.Warn().
			Float64("alpha", alpha).
			Msg("buffer scaling factor far from 1.0; check capillary match and concentration")
	}
}

// SubtractBuffer removes a scaled buffer curve from a sample curve with
// quadrature error propagation:
//
//	I_sub = I_s - alpha * I_b
//	sigma_sub^2 = sigma_s^2 + alpha^2 * sigma_b^2
//
// A buffer on a different q-grid is linearly interpolated onto the
// sample grid. Nil error slices are treated as zeros. The mean residual
// in [highQLo, highQHi] should be near zero for a good subtraction; the
// check passes when |mean| < 3*std over at least 3 finite points.
func SubtractBuffer(qSample, iSample, errSample, qBuffer, iBuffer, errBuffer []float64, alpha, highQLo, highQHi float64) (*BufferResult, error) {
	if len(qSample) != len(iSample) {
		return nil, fmt.Errorf("sample q and intensity lengths differ: %d vs %d", len(qSample), len(iSample))
	}
	if len(qBuffer) != len(iBuffer) {
		return nil, fmt.Errorf("buffer q and intensity lengths differ: %d vs %d", len(qBuffer), len(iBuffer))
	}
	if len(qSample) == 0 || len(qBuffer) == 0 {
		return nil, fmt.Errorf("empty profile")
	}
	ValidateAlpha(alpha)

	eS := orZeros(errSample, len(iSample))
	eB := orZeros(errBuffer, len(iBuffer))

	iB, eB2 := iBuffer, eB
	if !sameGrid(qSample, qBuffer) {
		var err error
		iB, err = interpOnto(qSample, qBuffer, iBuffer)
		if err != nil {
			return nil, fmt.Errorf("interpolate buffer intensity: %w", err)
		}
		eB2, err = interpOnto(qSample, qBuffer, eB)
		if err != nil {
			return nil, fmt.Errorf("interpolate buffer errors: %w", err)
		}
	}

	n := len(qSample)
	iSub := make([]float64, n)
	errSub := make([]float64, n)
	for i := 0; i < n; i++ {
		iSub[i] = iSample[i] - alpha*iB[i]
		errSub[i] = math.Sqrt(eS[i]*eS[i] + (alpha*eB2[i])*(alpha*eB2[i]))
	}

	var window []float64
	for i := 0; i < n; i++ {
		if qSample[i] >= highQLo && qSample[i] <= highQHi && finite(iSub[i]) {
			window = append(window, iSub[i])
		}
	}
	mean, passed := 0.0, true
	if len(window) >= 3 {
		mean = stat.Mean(window, nil)
		std := stat.PopStdDev(window, nil)
		passed = math.Abs(mean) < 3.0*math.Max(std, 1e-30)
	}

	return &BufferResult{
		Q:                 qSample,
		ISubtracted:       iSub,
		ErrSubtracted:     errSub,
		Alpha:             alpha,
		HighQResidualMean: mean,
		HighQCheckPassed:  passed,
	}, nil
}

// sameGrid reports whether two q-grids match pointwise within 1e-8.
func sameGrid(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-8 {
			return false
		}
	}
	return true
}

// interpOnto evaluates (xs, ys) at target points with constant
// extrapolation beyond the data range.
func interpOnto(target, xs, ys []float64) ([]float64, error) {
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, err
	}
	out := make([]float64, len(target))
	for i, x := range target {
		out[i] = pl.Predict(x)
	}
	return out, nil
}

func orZeros(e []float64, n int) []float64 {
	if e != nil {
		return e
	}
	return make([]float64, n)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
