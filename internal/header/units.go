package header

import (
	"math"
	"strings"
)

// UnitTarget selects the SI interpretation for ValueWithUnitToSI.
type UnitTarget string

const (
	TargetDistanceM   UnitTarget = "distance_m"
	TargetPixelM      UnitTarget = "pixel_m"
	TargetWavelengthA UnitTarget = "wavelength_a"
	TargetEnergyKeV   UnitTarget = "energy_kev"
)

// ValueWithUnitToSI parses a raw header string such as "1200 mm" or "9.6 um"
// and converts it to the target quantity's canonical unit (meters for
// distances and pixel sizes, angstrom for wavelength, keV for energy). When
// no unit token is present, magnitude heuristics guess the unit the way
// beamline headers conventionally store the quantity (detector distances
// above 20 are millimeters, pixel sizes above 10 are micrometers).
func ValueWithUnitToSI(raw string, target UnitTarget) (float64, bool) {
	val, ok := ExtractFloat(raw)
	if !ok {
		return 0, false
	}
	s := strings.ToLower(raw)

	switch target {
	case TargetDistanceM:
		switch {
		case strings.Contains(s, "mm"):
			return val / 1e3, true
		case strings.Contains(s, "cm"):
			return val / 1e2, true
		case strings.Contains(s, "um") || strings.Contains(s, "micron"):
			return val / 1e6, true
		case strings.Contains(s, "nm"):
			return val / 1e9, true
		case strings.Contains(" "+s, " m") || strings.HasSuffix(s, "m"):
			return val, true
		case val > 20:
			return val / 1e3, true
		}
		return val, true

	case TargetPixelM:
		switch {
		case strings.Contains(s, "um") || strings.Contains(s, "micron"):
			return val / 1e6, true
		case strings.Contains(s, "mm"):
			return val / 1e3, true
		case strings.Contains(s, "nm"):
			return val / 1e9, true
		case strings.Contains(" "+s, " m") || strings.HasSuffix(s, "m"):
			return val, true
		case val > 10:
			return val / 1e6, true
		case val > 0.01:
			return val / 1e3, true
		}
		return val, true

	case TargetWavelengthA:
		switch {
		case strings.Contains(s, "nm"):
			return val * 10.0, true
		case strings.Contains(s, "pm"):
			return val / 100.0, true
		case strings.Contains(s, "m") && !strings.Contains(s, "mm") &&
			!strings.Contains(s, "um") && !strings.Contains(s, "nm"):
			return val * 1e10, true
		}
		return val, true

	case TargetEnergyKeV:
		switch {
		case strings.Contains(s, "mev"):
			return val * 1e3, true
		case strings.Contains(s, "ev") && !strings.Contains(s, "kev"):
			return val / 1e3, true
		}
		return val, true
	}
	return val, true
}

// InstrumentSignature holds the geometry parameters that identify an
// instrument configuration. Fields are NaN when the header does not carry
// the quantity.
type InstrumentSignature struct {
	DistanceM   float64
	Pixel1M     float64
	Pixel2M     float64
	WavelengthA float64
	EnergyKeV   float64
}

// relaxed lookup for signature fields: exact key, then any substring match.
func (m metaTable) lookupLoose(candidates []string) (string, bool) {
	for _, k := range candidates {
		for _, e := range m {
			if e.key == k {
				return e.value, true
			}
		}
	}
	for _, e := range m {
		for _, k := range candidates {
			if strings.Contains(e.key, k) {
				return e.value, true
			}
		}
	}
	return "", false
}

// ExtractInstrumentSignature pulls geometry metadata out of a header.
// Wavelength and energy are cross-derived via E = hc/lambda when only one of
// the two is present.
func ExtractInstrumentSignature(h map[string]any) InstrumentSignature {
	meta := buildMeta(h)
	sig := InstrumentSignature{
		DistanceM:   math.NaN(),
		Pixel1M:     math.NaN(),
		Pixel2M:     math.NaN(),
		WavelengthA: math.NaN(),
		EnergyKeV:   math.NaN(),
	}

	conv := func(candidates []string, target UnitTarget) float64 {
		raw, ok := meta.lookupLoose(candidates)
		if !ok {
			return math.NaN()
		}
		v, ok := ValueWithUnitToSI(raw, target)
		if !ok {
			return math.NaN()
		}
		return v
	}

	sig.WavelengthA = conv([]string{"wavelength", "lambda", "wave"}, TargetWavelengthA)
	sig.EnergyKeV = conv([]string{"energykev", "energy", "xrayenergy", "beamenergy"}, TargetEnergyKeV)
	sig.DistanceM = conv([]string{"detdistance", "distance", "sampledetdist", "camlength"}, TargetDistanceM)
	sig.Pixel1M = conv([]string{"pixel1", "pixelsizey", "pixely", "ypixelsize"}, TargetPixelM)
	sig.Pixel2M = conv([]string{"pixel2", "pixelsizex", "pixelx", "xpixelsize"}, TargetPixelM)

	if math.IsNaN(sig.WavelengthA) && sig.EnergyKeV > 0 {
		sig.WavelengthA = HCKeVA / sig.EnergyKeV
	}
	if math.IsNaN(sig.EnergyKeV) && sig.WavelengthA > 0 {
		sig.EnergyKeV = HCKeVA / sig.WavelengthA
	}
	return sig
}

// RelativeDiff returns |a-b| / max(|a|, eps). The second return is false when
// either value is non-finite.
func RelativeDiff(a, b float64) (float64, bool) {
	if math.IsNaN(a) || math.IsInf(a, 0) || math.IsNaN(b) || math.IsInf(b, 0) {
		return 0, false
	}
	den := math.Max(math.Abs(a), 1e-12)
	return math.Abs(a-b) / den, true
}
