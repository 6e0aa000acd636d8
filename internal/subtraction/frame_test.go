package subtraction

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNetFrame(t *testing.T) {
	sample := mat.NewDense(2, 2, []float64{110, 210, 310, 410})
	background := mat.NewDense(2, 2, []float64{30, 30, 30, 30})
	dark := mat.NewDense(2, 2, []float64{10, 10, 10, 10})

	net, err := NetFrame(sample, background, dark, 2.0, 4.0)
	if err != nil {
		t.Fatalf("NetFrame: %v", err)
	}
	// (s-10)/2 - (30-10)/4 = (s-10)/2 - 5
	want := []float64{45, 95, 145, 195}
	for k, w := range want {
		got := net.At(k/2, k%2)
		if math.Abs(got-w) > 1e-12 {
			t.Errorf("net[%d] = %v, want %v", k, got, w)
		}
	}
}

func TestNetFrameSigma(t *testing.T) {
	sample := mat.NewDense(1, 1, []float64{100})
	background := mat.NewDense(1, 1, []float64{64})
	dark := mat.NewDense(1, 1, []float64{16})

	sigma, err := NetFrameSigma(sample, background, dark, 2.0, 4.0)
	if err != nil {
		t.Fatalf("NetFrameSigma: %v", err)
	}
	darkCoeff := 1.0/2.0 + 1.0/4.0
	want := math.Sqrt(100.0/4.0 + 64.0/16.0 + 16.0*darkCoeff*darkCoeff)
	if math.Abs(sigma.At(0, 0)-want) > 1e-12 {
		t.Errorf("sigma = %v, want %v", sigma.At(0, 0), want)
	}

	// Negative counts clamp to zero variance.
	sample = mat.NewDense(1, 1, []float64{-5})
	background = mat.NewDense(1, 1, []float64{0})
	dark = mat.NewDense(1, 1, []float64{0})
	sigma, err = NetFrameSigma(sample, background, dark, 1.0, 1.0)
	if err != nil {
		t.Fatalf("NetFrameSigma: %v", err)
	}
	if sigma.At(0, 0) != 0 {
		t.Errorf("sigma = %v, want 0 for negative counts", sigma.At(0, 0))
	}
}

func TestNetFrameValidation(t *testing.T) {
	a := mat.NewDense(2, 2, nil)
	b := mat.NewDense(2, 3, nil)
	if _, err := NetFrame(a, b, a, 1, 1); err == nil {
		t.Error("expected shape mismatch error for background")
	}
	if _, err := NetFrame(a, a, b, 1, 1); err == nil {
		t.Error("expected shape mismatch error for dark")
	}
	if _, err := NetFrame(a, a, a, 0, 1); err == nil {
		t.Error("expected error for zero sample norm")
	}
	if _, err := NetFrame(a, a, a, 1, -2); err == nil {
		t.Error("expected error for negative background norm")
	}
	if _, err := NetFrameSigma(a, b, a, 1, 1); err == nil {
		t.Error("expected shape mismatch error from sigma")
	}
}

func TestNetProfile(t *testing.T) {
	iS := []float64{110, 210}
	iB := []float64{30, 30}
	iD := []float64{10, 10}
	eS := []float64{2.0, 2.0}
	eB := []float64{1.0, 1.0}
	eD := []float64{0.5, 0.5}

	net, netErr, err := NetProfile(iS, eS, iB, eB, iD, eD, 2.0, 4.0)
	if err != nil {
		t.Fatalf("NetProfile: %v", err)
	}
	if math.Abs(net[0]-45.0) > 1e-12 || math.Abs(net[1]-95.0) > 1e-12 {
		t.Errorf("net = %v, want [45 95]", net)
	}
	darkCoeff := 1.0/2.0 + 1.0/4.0
	want := math.Sqrt(math.Pow(2.0/2.0, 2) + math.Pow(1.0/4.0, 2) + math.Pow(0.5*darkCoeff, 2))
	for k := range netErr {
		if math.Abs(netErr[k]-want) > 1e-12 {
			t.Errorf("netErr[%d] = %v, want %v", k, netErr[k], want)
		}
	}
}

func TestNetProfileNoInputErrors(t *testing.T) {
	nan := math.NaN()
	net, netErr, err := NetProfile(
		[]float64{10, 20}, []float64{nan, nan},
		[]float64{1, 1}, nil,
		[]float64{0, 0}, nil,
		1.0, 1.0)
	if err != nil {
		t.Fatalf("NetProfile: %v", err)
	}
	if net[0] != 9 || net[1] != 19 {
		t.Errorf("net = %v, want [9 19]", net)
	}
	for k, e := range netErr {
		if !math.IsNaN(e) {
			t.Errorf("netErr[%d] = %v, want NaN with no input errors", k, e)
		}
	}
}

func TestNetProfileAllInvalid(t *testing.T) {
	nan := math.NaN()
	_, _, err := NetProfile(
		[]float64{nan, nan}, nil,
		[]float64{1, 1}, nil,
		[]float64{0, 0}, nil,
		1.0, 1.0)
	if err == nil {
		t.Fatal("expected error when no net value is finite")
	}
}

func TestNetProfileNaNPropagation(t *testing.T) {
	nan := math.NaN()
	net, netErr, err := NetProfile(
		[]float64{10, nan, 30}, []float64{1, 1, 1},
		[]float64{2, 2, 2}, nil,
		[]float64{0, 0, 0}, nil,
		1.0, 1.0)
	if err != nil {
		t.Fatalf("NetProfile: %v", err)
	}
	if !math.IsNaN(net[1]) {
		t.Errorf("net[1] = %v, want NaN", net[1])
	}
	if !math.IsNaN(netErr[1]) {
		t.Errorf("netErr[1] = %v, want NaN where net is NaN", netErr[1])
	}
	if math.IsNaN(netErr[0]) || math.IsNaN(netErr[2]) {
		t.Errorf("netErr = %v, want finite at valid points", netErr)
	}
}
