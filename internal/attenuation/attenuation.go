// Package attenuation computes X-ray mass and linear attenuation
// coefficients for elements and multi-element materials.
//
// The linear coefficient of a mixture follows the weight-fraction rule
// mu = rho * sum(w_i * (mu/rho)_i), with per-element mass coefficients
// supplied by a CoefficientSource (typically an Elam-style lookup table).
package attenuation

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"

	"saxs-abs/internal/logger"
)

// CoefficientSource supplies mass attenuation coefficients mu/rho in
// cm^2/g for a single element at a photon energy in keV.
type CoefficientSource interface {
	MuOverRho(element string, energyKeV float64) (float64, error)
}

// Result describes a linear attenuation calculation.
type Result struct {
	MuRhoCm2G     float64            // mass coefficient of the mixture, cm^2/g
	MuLinearCmInv float64            // mu = (mu/rho)_mix * rho, 1/cm
	Composition   map[string]float64 // element -> weight fraction
	DensityGCm3   float64
	EnergyKeV     float64
	Contributions map[string]float64 // element -> w_i * (mu/rho)_i, cm^2/g
}

// Preset is a named material with a fixed composition and bulk density.
type Preset struct {
	DisplayName string
	Composition map[string]float64 // weight fractions, sum ~1
	DensityGCm3 float64
}

// Presets lists common sample and container materials.
var Presets = map[string]Preset{
	"Ti-6Al-4V": {
		DisplayName: "Ti-6Al-4V (Grade 5)",
		Composition: map[string]float64{"Ti": 0.90, "Al": 0.06, "V": 0.04},
		DensityGCm3: 4.43,
	},
	"SS304": {
		DisplayName: "Stainless Steel 304",
		Composition: map[string]float64{"Fe": 0.69, "Cr": 0.19, "Ni": 0.10, "Mn": 0.02},
		DensityGCm3: 7.93,
	},
	"SS316L": {
		DisplayName: "Stainless Steel 316L",
		Composition: map[string]float64{
			"Fe": 0.65, "Cr": 0.17, "Ni": 0.12, "Mo": 0.025, "Mn": 0.02, "Si": 0.0075,
		},
		DensityGCm3: 7.99,
	},
	"Al-7075": {
		DisplayName: "Al 7075",
		Composition: map[string]float64{
			"Al": 0.895, "Zn": 0.058, "Mg": 0.025, "Cu": 0.016, "Cr": 0.002,
		},
		DensityGCm3: 2.81,
	},
	"Pure-Fe": {DisplayName: "Pure Fe", Composition: map[string]float64{"Fe": 1.0}, DensityGCm3: 7.874},
	"Pure-Cu": {DisplayName: "Pure Cu", Composition: map[string]float64{"Cu": 1.0}, DensityGCm3: 8.96},
	"Pure-Ti": {DisplayName: "Pure Ti", Composition: map[string]float64{"Ti": 1.0}, DensityGCm3: 4.506},
	"Pure-Al": {DisplayName: "Pure Al", Composition: map[string]float64{"Al": 1.0}, DensityGCm3: 2.70},
	"H2O": {
		DisplayName: "Water (H2O)",
		Composition: map[string]float64{"H": 0.1119, "O": 0.8881},
		DensityGCm3: 1.00,
	},
	"SiO2": {
		DisplayName: "SiO2 (quartz capillary)",
		Composition: map[string]float64{"Si": 0.4674, "O": 0.5326},
		DensityGCm3: 2.20,
	},
	"Kapton": {
		DisplayName: "Kapton (polyimide)",
		Composition: map[string]float64{"C": 0.6911, "H": 0.0265, "N": 0.0733, "O": 0.2091},
		DensityGCm3: 1.42,
	},
}

// PresetKeys returns the preset names in sorted order.
func PresetKeys() []string {
	keys := make([]string, 0, len(Presets))
	for k := range Presets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MuRhoSingle returns mu/rho in cm^2/g for one element.
func MuRhoSingle(src CoefficientSource, element string, energyKeV float64) (float64, error) {
	if energyKeV <= 0 {
		return 0, fmt.Errorf("energy must be > 0 keV, got %g", energyKeV)
	}
	return src.MuOverRho(element, energyKeV)
}

// CalculateMu computes the linear attenuation coefficient of a
// multi-element material from weight fractions and bulk density.
// Weight fractions summing outside [0.98, 1.02] are accepted with a
// warning since results remain defined, just less trustworthy.
func CalculateMu(src CoefficientSource, composition map[string]float64, densityGCm3, energyKeV float64) (*Result, error) {
	if energyKeV <= 0 {
		return nil, fmt.Errorf("energy must be > 0 keV, got %g", energyKeV)
	}
	if densityGCm3 <= 0 {
		return nil, fmt.Errorf("density must be > 0 g/cm^3, got %g", densityGCm3)
	}
	if len(composition) == 0 {
		return nil, fmt.Errorf("composition is empty")
	}

	wtSum := 0.0
	elems := make([]string, 0, len(composition))
	for elem, w := range composition {
		wtSum += w
		elems = append(elems, elem)
	}
	sort.Strings(elems)
	if math.Abs(wtSum-1.0) > 0.02 {
		lg := logger.L()
		lg.Warn().
			Float64("weight_sum", wtSum).
			Msg("weight fractions do not sum to 1; results may be inaccurate")
	}

	contributions := make(map[string]float64, len(composition))
	muRhoMix := 0.0
	for _, elem := range elems {
		muRho, err := src.MuOverRho(elem, energyKeV)
		if err != nil {
			return nil, fmt.Errorf("mu/rho for %s: %w", elem, err)
		}
		contrib := composition[elem] * muRho
		contributions[elem] = contrib
		muRhoMix += contrib
	}

	comp := make(map[string]float64, len(composition))
	for k, v := range composition {
		comp[k] = v
	}
	return &Result{
		MuRhoCm2G:     muRhoMix,
		MuLinearCmInv: muRhoMix * densityGCm3,
		Composition:   comp,
		DensityGCm3:   densityGCm3,
		EnergyKeV:     energyKeV,
		Contributions: contributions,
	}, nil
}

var compPattern = regexp.MustCompile(`([A-Z][a-z]?)\s*:\s*([\d.]+)`)

// ParseCompositionString parses "Fe:0.69, Cr:0.19, Ni:0.10" notation.
// When every value exceeds 1 and the sum is within 5 of 100 the values
// are treated as weight percent and divided by 100.
func ParseCompositionString(text string) (map[string]float64, error) {
	pairs := compPattern.FindAllStringSubmatch(text, -1)
	if len(pairs) == 0 {
		return nil, fmt.Errorf("cannot parse composition string %q", text)
	}

	comp := make(map[string]float64, len(pairs))
	sum := 0.0
	allAboveOne := true
	for _, p := range pairs {
		v, err := strconv.ParseFloat(p[2], 64)
		if err != nil {
			return nil, fmt.Errorf("cannot parse weight %q for %s", p[2], p[1])
		}
		comp[p[1]] = v
		sum += v
		if v <= 1 {
			allAboveOne = false
		}
	}

	if allAboveOne && math.Abs(sum-100.0) < 5.0 {
		for k, v := range comp {
			comp[k] = v / 100.0
		}
	}
	return comp, nil
}
