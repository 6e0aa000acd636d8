package subtraction

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"saxs-abs/internal/logger"
)

// NetFrame computes the dark-corrected, monitor-normalized net detector
// frame used for calibration and raw reduction:
//
//	net = (sample - dark) / normSample - (background - dark) / normBackground
//
// All frames must share the same shape and both normalization factors
// must be positive.
func NetFrame(sample, background, dark *mat.Dense, normSample, normBackground float64) (*mat.Dense, error) {
	if err := sameShape(sample, background, "sample", "background"); err != nil {
		return nil, err
	}
	if err := sameShape(sample, dark, "sample", "dark"); err != nil {
		return nil, err
	}
	if !(normSample > 0) || !(normBackground > 0) {
		return nil, fmt.Errorf("normalization factors must be > 0, got sample=%g background=%g",
			normSample, normBackground)
	}
	checkNormRatio(normSample, normBackground)

	r, c := sample.Dims()
	net := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			d := dark.At(i, j)
			net.Set(i, j,
				(sample.At(i, j)-d)/normSample-(background.At(i, j)-d)/normBackground)
		}
	}
	return net, nil
}

// NetFrameSigma propagates Poisson counting statistics through NetFrame.
// Each raw frame contributes sqrt(max(counts, 0)) and the dark frame
// enters both terms, so its variance is scaled by (1/n_s + 1/n_b)^2.
func NetFrameSigma(sample, background, dark *mat.Dense, normSample, normBackground float64) (*mat.Dense, error) {
	if err := sameShape(sample, background, "sample", "background"); err != nil {
		return nil, err
	}
	if err := sameShape(sample, dark, "sample", "dark"); err != nil {
		return nil, err
	}
	if !(normSample > 0) || !(normBackground > 0) {
		return nil, fmt.Errorf("normalization factors must be > 0, got sample=%g background=%g",
			normSample, normBackground)
	}

	r, c := sample.Dims()
	darkCoeff := 1.0/normSample + 1.0/normBackground
	sigma := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			sVar := math.Max(sample.At(i, j), 0) / (normSample * normSample)
			bVar := math.Max(background.At(i, j), 0) / (normBackground * normBackground)
			dVar := math.Max(dark.At(i, j), 0) * darkCoeff * darkCoeff
			sigma.Set(i, j, math.Sqrt(sVar+bVar+dVar))
		}
	}
	return sigma, nil
}

// NetProfile applies the same kernel to already integrated 1D curves.
// Dark errors count toward both the sample and background terms. Error
// output is all-NaN when no input carries finite errors, and NaN
// wherever the net value itself is not finite.
func NetProfile(iSample, errSample, iBackground, errBackground, iDark, errDark []float64, normSample, normBackground float64) (net, netErr []float64, err error) {
	n := len(iSample)
	if len(iBackground) != n || len(iDark) != n {
		return nil, nil, fmt.Errorf("profile lengths differ: sample=%d background=%d dark=%d",
			n, len(iBackground), len(iDark))
	}
	if !(normSample > 0) || !(normBackground > 0) {
		return nil, nil, fmt.Errorf("normalization factors must be > 0, got sample=%g background=%g",
			normSample, normBackground)
	}
	checkNormRatio(normSample, normBackground)

	net = make([]float64, n)
	anyFinite := false
	for i := 0; i < n; i++ {
		net[i] = (iSample[i]-iDark[i])/normSample - (iBackground[i]-iDark[i])/normBackground
		if finite(net[i]) {
			anyFinite = true
		}
	}
	if !anyFinite {
		return nil, nil, fmt.Errorf("net signal contains no valid values")
	}

	hasErrors := anyFiniteIn(errSample) || anyFiniteIn(errBackground) || anyFiniteIn(errDark)
	netErr = make([]float64, n)
	if !hasErrors {
		for i := range netErr {
			netErr[i] = math.NaN()
		}
		return net, netErr, nil
	}

	darkCoeff := 1.0/normSample + 1.0/normBackground
	for i := 0; i < n; i++ {
		if !finite(net[i]) {
			netErr[i] = math.NaN()
			continue
		}
		sTerm := zeroIfNaN(at(errSample, i)) / normSample
		bTerm := zeroIfNaN(at(errBackground, i)) / normBackground
		dTerm := zeroIfNaN(at(errDark, i)) * darkCoeff
		netErr[i] = math.Sqrt(sTerm*sTerm + bTerm*bTerm + dTerm*dTerm)
	}
	return net, netErr, nil
}

func sameShape(a, b *mat.Dense, nameA, nameB string) error {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return fmt.Errorf("%s frame is %dx%d but %s frame is %dx%d", nameA, ar, ac, nameB, br, bc)
	}
	return nil
}

// checkNormRatio flags wildly mismatched normalization factors, which
// usually means the monitor semantics differ between the two exposures.
func checkNormRatio(normSample, normBackground float64) {
	ratio := normBackground / math.Max(normSample, 1e-12)
	if ratio < 0.01 || ratio > 100.0 {
		lg := logger.L()
		lg.Warn().
			Float64("ratio", ratio).
			Msg("background and sample normalization factors differ by over two decades; check Time/I0/T semantics")
	}
}

func anyFiniteIn(v []float64) bool {
	for _, x := range v {
		if finite(x) {
			return true
		}
	}
	return false
}

func at(v []float64, i int) float64 {
	if v == nil || i >= len(v) {
		return math.NaN()
	}
	return v[i]
}

func zeroIfNaN(v float64) float64 {
	if finite(v) {
		return v
	}
	return 0
}
