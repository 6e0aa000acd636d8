package subtraction

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
)

// AlignProfile resamples a reference curve onto a target x-grid for the
// net-signal formula. Target points outside the reference range become
// NaN and are counted in outside. Errors are interpolated over their
// finite subset only; fewer than two finite errors yields all-NaN
// errors. Grids that already match within rtol 1e-7 pass through
// untouched.
func AlignProfile(targetX, x, i, e []float64) (iAligned, eAligned []float64, outside int, err error) {
	for _, v := range targetX {
		if !finite(v) {
			return nil, nil, 0, fmt.Errorf("target x grid contains non-finite values")
		}
	}
	if len(x) != len(i) {
		return nil, nil, 0, fmt.Errorf("reference x and intensity lengths differ: %d vs %d", len(x), len(i))
	}
	if len(x) < 2 {
		return nil, nil, 0, fmt.Errorf("reference profile needs at least 2 points, got %d", len(x))
	}

	if gridsClose(targetX, x) {
		iAligned = append([]float64(nil), i...)
		if e != nil {
			eAligned = append([]float64(nil), e...)
		} else {
			eAligned = nanSlice(len(i))
		}
		return iAligned, eAligned, 0, nil
	}

	iAligned, err = interpNaNOutside(targetX, x, i)
	if err != nil {
		return nil, nil, 0, err
	}

	var xe, ye []float64
	for k := range x {
		if e != nil && k < len(e) && finite(e[k]) {
			xe = append(xe, x[k])
			ye = append(ye, e[k])
		}
	}
	if len(xe) >= 2 {
		eAligned, err = interpNaNOutside(targetX, xe, ye)
		if err != nil {
			return nil, nil, 0, err
		}
	} else {
		eAligned = nanSlice(len(targetX))
	}

	for _, v := range iAligned {
		if !finite(v) {
			outside++
		}
	}
	return iAligned, eAligned, outside, nil
}

func interpNaNOutside(target, xs, ys []float64) ([]float64, error) {
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, err
	}
	lo, hi := xs[0], xs[len(xs)-1]
	out := make([]float64, len(target))
	for k, x := range target {
		if x < lo || x > hi {
			out[k] = math.NaN()
			continue
		}
		out[k] = pl.Predict(x)
	}
	return out, nil
}

func gridsClose(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if math.Abs(a[k]-b[k]) > 1e-7*math.Abs(b[k])+1e-9 {
			return false
		}
	}
	return true
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for k := range out {
		out[k] = math.NaN()
	}
	return out
}
