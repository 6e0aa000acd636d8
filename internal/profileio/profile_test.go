package profileio

import (
	"math"
	"testing"
)

func TestSortDedup(t *testing.T) {
	x := []float64{0.03, 0.01, 0.02, 0.02}
	i := []float64{30, 10, 18, 22}
	e := []float64{0.3, 0.1, 0.3, 0.4}

	xs, is, es := sortDedup(x, i, e)
	if len(xs) != 3 {
		t.Fatalf("len = %d, want 3", len(xs))
	}
	wantX := []float64{0.01, 0.02, 0.03}
	for k := range wantX {
		if xs[k] != wantX[k] {
			t.Errorf("xs[%d] = %v, want %v", k, xs[k], wantX[k])
		}
	}
	if is[1] != 20.0 {
		t.Errorf("merged intensity = %v, want 20", is[1])
	}
	// sqrt(0.3^2 + 0.4^2) / 2
	if math.Abs(es[1]-0.25) > 1e-12 {
		t.Errorf("merged error = %v, want 0.25", es[1])
	}
}

func TestSortDedupNaNErrorPoisonsGroup(t *testing.T) {
	x := []float64{0.01, 0.01}
	i := []float64{10, 12}
	e := []float64{0.1, math.NaN()}

	xs, is, es := sortDedup(x, i, e)
	if len(xs) != 1 || is[0] != 11.0 {
		t.Fatalf("got %d points, intensity %v; want 1 point with mean 11", len(xs), is)
	}
	if !math.IsNaN(es[0]) {
		t.Errorf("merged error = %v, want NaN when any duplicate lacks an error", es[0])
	}
}

func TestProfileHasErrors(t *testing.T) {
	p := &Profile{Err: []float64{math.NaN(), math.NaN()}}
	if p.HasErrors() {
		t.Error("HasErrors = true for all-NaN errors")
	}
	p.Err[1] = 0.5
	if !p.HasErrors() {
		t.Error("HasErrors = false with one finite error")
	}
}
