// Package robust provides outlier-resistant summary statistics shared by the
// calibration and subtraction layers.
package robust

import (
	"math"
	"sort"
)

// MADScale converts a median absolute deviation into an estimate of the
// standard deviation under a Gaussian assumption.
const MADScale = 1.4826

// Finite returns a new slice holding only the finite values of xs.
func Finite(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, v := range xs {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// Median returns the median of the finite values of xs, averaging the two
// central values for an even count. It returns NaN when no finite value
// remains. Implemented by sorting a copy rather than an empirical quantile so
// that even-length inputs match the conventional two-point average.
func Median(xs []float64) float64 {
	vals := Finite(xs)
	if len(vals) == 0 {
		return math.NaN()
	}
	sort.Float64s(vals)
	n := len(vals)
	if n%2 == 1 {
		return vals[n/2]
	}
	return 0.5 * (vals[n/2-1] + vals[n/2])
}

// MAD returns the median absolute deviation of xs about its median.
func MAD(xs []float64) float64 {
	med := Median(xs)
	if math.IsNaN(med) {
		return math.NaN()
	}
	devs := make([]float64, 0, len(xs))
	for _, v := range xs {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			devs = append(devs, math.Abs(v-med))
		}
	}
	return Median(devs)
}
