package robust

import (
	"math"
	"testing"
)

func TestMedian(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want float64
	}{
		{"odd count", []float64{3, 1, 2}, 2},
		{"even count averages middle pair", []float64{4, 1, 3, 2}, 2.5},
		{"single value", []float64{7}, 7},
		{"ignores non-finite", []float64{1, math.NaN(), 3, math.Inf(1)}, 2},
		{"negative values", []float64{-5, -1, -3}, -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Median(tt.in)
			if got != tt.want {
				t.Errorf("Median(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMedianEmpty(t *testing.T) {
	if got := Median(nil); !math.IsNaN(got) {
		t.Errorf("Median(nil) = %v, want NaN", got)
	}
	if got := Median([]float64{math.NaN()}); !math.IsNaN(got) {
		t.Errorf("Median([NaN]) = %v, want NaN", got)
	}
}

func TestMAD(t *testing.T) {
	// Median of {1,2,3,4,100} is 3; deviations {2,1,0,1,97}; median 1.
	got := MAD([]float64{1, 2, 3, 4, 100})
	if got != 1 {
		t.Errorf("MAD = %v, want 1", got)
	}
}

func TestMADConstant(t *testing.T) {
	if got := MAD([]float64{5, 5, 5, 5}); got != 0 {
		t.Errorf("MAD of constant slice = %v, want 0", got)
	}
}

func TestFinite(t *testing.T) {
	in := []float64{1, math.NaN(), 2, math.Inf(-1), 3}
	got := Finite(in)
	want := []float64{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("Finite returned %d values, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Finite[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
