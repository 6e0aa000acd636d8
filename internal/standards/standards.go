// Package standards supplies calibration reference curves for SAXS absolute
// intensity standards.
//
// The registry is built once at package initialization and never mutated;
// accessors return copies so callers cannot corrupt the tabulated data.
//
// Data sources:
//
//	NIST SRM 3600 (glassy carbon): Allen et al. (2017) J. Appl. Cryst. 50,
//	462-474; NIST certificate SP260-185.
//	Water: Orthaber, Bergmann & Glatter (2000) J. Appl. Cryst. 33, 218-225.
//	Lupolen (LDPE): Russell et al. (1988) J. Appl. Cryst. 21, 629-638.
package standards

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"
)

// Standard types.
const (
	TypePrimary      = "primary"
	TypeSecondary    = "secondary"
	TypeUserProvided = "user_provided"
)

// Standard describes one registry entry. QData/IData are nil for flat or
// user-provided standards.
type Standard struct {
	Name           string
	Type           string
	QData          []float64
	IData          []float64
	QIndependent   bool
	FlatValueCmInv float64
	Reference      string
	Notes          string
}

// srm3600 is the 15-point dSigma/dOmega (cm^-1 sr^-1) vs q (A^-1) table from
// the NIST SRM 3600 certificate.
var srm3600Q = []float64{
	0.008, 0.010, 0.020, 0.030, 0.040, 0.050, 0.060, 0.080,
	0.100, 0.120, 0.150, 0.180, 0.200, 0.220, 0.250,
}

var srm3600I = []float64{
	35.0, 34.2, 30.8, 28.8, 27.5, 26.8, 26.3, 25.4,
	23.6, 20.8, 15.8, 10.9, 8.4, 6.5, 4.2,
}

// Isothermal compressibility of water, kappa_T in 1e-10 Pa^-1 (CRC Handbook,
// 97th ed.). Values kept verbatim from the certified lookup.
var (
	waterKappaTempC = []float64{4, 5, 10, 15, 20, 25, 30, 35, 40}
	waterKappa      = []float64{5.068, 4.920, 4.788, 4.524, 4.591, 4.524, 4.475, 4.422, 4.399}
)

const (
	waterRefTempC = 20.0
	waterRefDSDW  = 0.01632 // cm^-1 at 20 C
)

var registry = map[string]Standard{
	"SRM3600": {
		Name:      "NIST SRM 3600 (Glassy Carbon)",
		Type:      TypePrimary,
		QData:     srm3600Q,
		IData:     srm3600I,
		Reference: "Allen et al. (2017) J. Appl. Cryst. 50, 462-474; NIST SP260-185",
		Notes:     "Recommended q window: 0.01-0.20 A^-1.",
	},
	"Water_20C": {
		Name:           "Water (H2O) 20 C",
		Type:           TypePrimary,
		QIndependent:   true,
		FlatValueCmInv: waterRefDSDW,
		Reference:      "Orthaber, Bergmann & Glatter (2000) J. Appl. Cryst. 33, 218-225",
		Notes:          "Flat signal; ensure careful parasitic-scattering subtraction.",
	},
	"Lupolen": {
		Name:      "Lupolen (LDPE)",
		Type:      TypeUserProvided,
		Reference: "Russell et al. (1988) J. Appl. Cryst. 21, 629-638",
		Notes:     "Batch-dependent; user must supply beamline calibration curve.",
	},
	"Custom": {
		Name:  "Custom (user file)",
		Type:  TypeUserProvided,
		Notes: "Load a q-I reference curve from a data file.",
	},
}

// Keys returns the registry keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup returns the registry entry for key with the tabulated arrays copied.
func Lookup(key string) (Standard, error) {
	std, ok := registry[key]
	if !ok {
		return Standard{}, fmt.Errorf("unknown standard key: %q", key)
	}
	out := std
	if std.QData != nil {
		out.QData = append([]float64(nil), std.QData...)
		out.IData = append([]float64(nil), std.IData...)
	}
	return out, nil
}

// SRM3600Data returns copies of the built-in glassy carbon reference arrays.
func SRM3600Data() (q, i []float64) {
	return append([]float64(nil), srm3600Q...), append([]float64(nil), srm3600I...)
}

// WaterDSDW returns the absolute differential scattering cross-section of
// water (cm^-1) at the given temperature, referenced to 0.01632 cm^-1 at
// 20 C and corrected by the ratio of kappa_T * T_K to the reference
// condition. Valid from 4 to 40 C.
func WaterDSDW(temperatureC float64) (float64, error) {
	if temperatureC < waterKappaTempC[0] || temperatureC > waterKappaTempC[len(waterKappaTempC)-1] {
		return 0, fmt.Errorf("water temperature %g C is outside the valid range 4-40 C", temperatureC)
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(waterKappaTempC, waterKappa); err != nil {
		return 0, fmt.Errorf("water compressibility table: %w", err)
	}
	kappa := pl.Predict(temperatureC)
	kappaRef := pl.Predict(waterRefTempC)

	tK := temperatureC + 273.15
	tRefK := waterRefTempC + 273.15
	return waterRefDSDW * (kappa * tK) / (kappaRef * tRefK), nil
}

// ReferenceOptions controls GetReferenceData. Start from DefaultOptions:
// NaN is the unset sentinel for TemperatureC, and a literal 0 is a real
// temperature that fails the 4-40 C range check.
type ReferenceOptions struct {
	// TemperatureC is the sample temperature for temperature-dependent flat
	// standards. NaN selects the 20 C reference condition.
	TemperatureC float64
	// QUser/IUser supply the curve for user-provided standards.
	QUser []float64
	IUser []float64
	// QMin/QMax/NPoints define the synthesized grid for flat standards.
	QMin    float64
	QMax    float64
	NPoints int
}

// DefaultOptions returns the standard flat-curve synthesis parameters.
func DefaultOptions() ReferenceOptions {
	return ReferenceOptions{
		TemperatureC: math.NaN(),
		QMin:         0.005,
		QMax:         0.50,
		NPoints:      100,
	}
}

func (o ReferenceOptions) withDefaults() ReferenceOptions {
	def := DefaultOptions()
	if o.QMin == 0 && o.QMax == 0 {
		o.QMin, o.QMax = def.QMin, def.QMax
	}
	if o.NPoints <= 0 {
		o.NPoints = def.NPoints
	}
	return o
}

// GetReferenceData returns (qRef, iRef) for the chosen standard.
//
// Tabulated standards return their fixed curves verbatim. Flat standards
// synthesize a uniform curve over [QMin, QMax]. User-provided standards
// require QUser/IUser and error otherwise. An unknown key is an error.
func GetReferenceData(key string, opts ReferenceOptions) (qRef, iRef []float64, err error) {
	std, ok := registry[key]
	if !ok {
		return nil, nil, fmt.Errorf("unknown standard key: %q", key)
	}
	opts = opts.withDefaults()

	if std.QData != nil && std.IData != nil {
		return append([]float64(nil), std.QData...), append([]float64(nil), std.IData...), nil
	}

	if std.QIndependent {
		t := opts.TemperatureC
		if math.IsNaN(t) {
			t = waterRefTempC
		}
		dsdw, err := WaterDSDW(t)
		if err != nil {
			return nil, nil, err
		}
		n := opts.NPoints
		q := make([]float64, n)
		i := make([]float64, n)
		step := (opts.QMax - opts.QMin) / float64(n-1)
		for k := 0; k < n; k++ {
			q[k] = opts.QMin + float64(k)*step
			i[k] = dsdw
		}
		return q, i, nil
	}

	if opts.QUser != nil && opts.IUser != nil {
		if len(opts.QUser) != len(opts.IUser) {
			return nil, nil, fmt.Errorf("user reference q/intensity length mismatch: %d vs %d",
				len(opts.QUser), len(opts.IUser))
		}
		return append([]float64(nil), opts.QUser...), append([]float64(nil), opts.IUser...), nil
	}

	return nil, nil, fmt.Errorf(
		"standard %q requires a user-supplied reference curve (QUser/IUser), but none was provided", std.Name)
}
