package header

import (
	"math"
	"testing"
)

func TestValueWithUnitToSI(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		target UnitTarget
		want   float64
	}{
		{"distance mm", "1200 mm", TargetDistanceM, 1.2},
		{"distance cm", "120 cm", TargetDistanceM, 1.2},
		{"distance meters", "1.2 m", TargetDistanceM, 1.2},
		{"distance magnitude heuristic", "1200", TargetDistanceM, 1.2},
		{"distance small bare value", "1.2", TargetDistanceM, 1.2},
		{"pixel um", "172 um", TargetPixelM, 172e-6},
		{"pixel magnitude heuristic", "172", TargetPixelM, 172e-6},
		{"pixel mm heuristic", "0.172", TargetPixelM, 172e-6},
		{"wavelength nm", "0.154 nm", TargetWavelengthA, 1.54},
		{"wavelength angstrom bare", "1.54", TargetWavelengthA, 1.54},
		{"energy ev", "8000 eV", TargetEnergyKeV, 8.0},
		{"energy kev bare", "8.05", TargetEnergyKeV, 8.05},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ValueWithUnitToSI(tt.raw, tt.target)
			if !ok {
				t.Fatalf("ValueWithUnitToSI(%q) not ok", tt.raw)
			}
			if math.Abs(got-tt.want) > 1e-12*math.Abs(tt.want) {
				t.Errorf("ValueWithUnitToSI(%q, %s) = %v, want %v", tt.raw, tt.target, got, tt.want)
			}
		})
	}
}

func TestExtractInstrumentSignature(t *testing.T) {
	h := map[string]any{
		"Wavelength":  "1.54 A",
		"DetDistance": "1200 mm",
		"Pixel1":      "172 um",
	}
	sig := ExtractInstrumentSignature(h)
	if math.Abs(sig.WavelengthA-1.54) > 1e-9 {
		t.Errorf("WavelengthA = %v, want 1.54", sig.WavelengthA)
	}
	if math.Abs(sig.DistanceM-1.2) > 1e-9 {
		t.Errorf("DistanceM = %v, want 1.2", sig.DistanceM)
	}
	if math.Abs(sig.Pixel1M-172e-6) > 1e-12 {
		t.Errorf("Pixel1M = %v, want 172e-6", sig.Pixel1M)
	}
	// Energy derived from wavelength via E = hc/lambda.
	wantE := HCKeVA / 1.54
	if math.Abs(sig.EnergyKeV-wantE) > 1e-9 {
		t.Errorf("EnergyKeV = %v, want %v", sig.EnergyKeV, wantE)
	}
}

func TestExtractInstrumentSignatureFromEnergy(t *testing.T) {
	sig := ExtractInstrumentSignature(map[string]any{"Energy": "8000 eV"})
	if math.Abs(sig.EnergyKeV-8.0) > 1e-9 {
		t.Errorf("EnergyKeV = %v, want 8.0", sig.EnergyKeV)
	}
	wantWL := HCKeVA / 8.0
	if math.Abs(sig.WavelengthA-wantWL) > 1e-9 {
		t.Errorf("WavelengthA = %v, want %v", sig.WavelengthA, wantWL)
	}
	if !math.IsNaN(sig.DistanceM) {
		t.Errorf("DistanceM = %v, want NaN", sig.DistanceM)
	}
}
