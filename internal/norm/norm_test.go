package norm

import (
	"math"
	"testing"
)

func TestFactorRate(t *testing.T) {
	got, err := Factor(0.2, 1.2e6, 0.85, ModeRate)
	if err != nil {
		t.Fatalf("Factor: %v", err)
	}
	want := 0.2 * 1.2e6 * 0.85
	if math.Abs(got-want) > 1e-9*want {
		t.Errorf("Factor = %v, want %v", got, want)
	}
}

func TestFactorIntegratedIgnoresExposure(t *testing.T) {
	got, err := Factor(math.NaN(), 1000, 0.5, ModeIntegrated)
	if err != nil {
		t.Fatalf("Factor: %v", err)
	}
	if got != 500 {
		t.Errorf("Factor = %v, want 500", got)
	}
}

func TestFactorInvalidInputs(t *testing.T) {
	tests := []struct {
		name             string
		exp, mon, trans  float64
		mode             Mode
	}{
		{"missing exposure in rate mode", math.NaN(), 1000, 0.5, ModeRate},
		{"zero exposure", 0, 1000, 0.5, ModeRate},
		{"negative monitor", 1, -5, 0.5, ModeRate},
		{"missing monitor", 1, math.NaN(), 0.5, ModeRate},
		{"zero transmission", 1, 1000, 0, ModeRate},
		{"transmission above one", 1, 1000, 1.5, ModeRate},
		{"transmission above one integrated", 1, 1000, 1.2, ModeIntegrated},
		{"infinite monitor", 1, math.Inf(1), 0.5, ModeRate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Factor(tt.exp, tt.mon, tt.trans, tt.mode)
			if err != nil {
				t.Fatalf("Factor returned error for data problem: %v", err)
			}
			if !math.IsNaN(got) {
				t.Errorf("Factor = %v, want NaN", got)
			}
		})
	}
}

func TestFactorUnknownMode(t *testing.T) {
	if _, err := Factor(1, 1000, 0.5, Mode("banana")); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestFactorDeterministic(t *testing.T) {
	a, _ := Factor(0.5, 2e5, 0.9, ModeRate)
	b, _ := Factor(0.5, 2e5, 0.9, ModeRate)
	if a != b {
		t.Errorf("Factor not deterministic: %v vs %v", a, b)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"rate", ModeRate, false},
		{"Integrated", ModeIntegrated, false},
		{" RATE ", ModeRate, false},
		{"total", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormula(t *testing.T) {
	if f, _ := Formula(ModeRate); f != "exp * I0 * T" {
		t.Errorf("Formula(rate) = %q", f)
	}
	if f, _ := Formula(ModeIntegrated); f != "I0 * T" {
		t.Errorf("Formula(integrated) = %q", f)
	}
	if _, err := Formula(Mode("bogus")); err == nil {
		t.Error("expected error for unknown mode")
	}
}
