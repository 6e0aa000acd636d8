package attenuation

import (
	"fmt"
	"math"
	"os"
	"sort"

	"gonum.org/v1/gonum/interp"
	"gopkg.in/yaml.v3"
)

// elementTable is one element's tabulated mass coefficients.
type elementTable struct {
	EnergiesKeV []float64 `yaml:"energies_kev"`
	MuRhoCm2G   []float64 `yaml:"mu_rho_cm2_g"`
}

// TableSource interpolates mu/rho from tabulated per-element data.
// Interpolation is piecewise linear in log-log space, which is how
// photoabsorption cross sections are conventionally tabulated.
type TableSource struct {
	curves map[string]*interp.PiecewiseLinear
	ranges map[string][2]float64
}

// LoadTableSource reads a YAML table mapping element symbols to energy
// grids and mass coefficients:
//
//	Fe:
//	  energies_kev: [5.0, 8.0, 10.0, 17.4]
//	  mu_rho_cm2_g: [139.8, 305.0, 170.6, 40.1]
func LoadTableSource(path string) (*TableSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read attenuation table: %w", err)
	}
	var tables map[string]elementTable
	if err := yaml.Unmarshal(raw, &tables); err != nil {
		return nil, fmt.Errorf("parse attenuation table: %w", err)
	}
	return NewTableSource(tables)
}

// NewTableSource builds a source from in-memory element tables.
func NewTableSource(tables map[string]elementTable) (*TableSource, error) {
	src := &TableSource{
		curves: make(map[string]*interp.PiecewiseLinear, len(tables)),
		ranges: make(map[string][2]float64, len(tables)),
	}
	for elem, tab := range tables {
		if len(tab.EnergiesKeV) != len(tab.MuRhoCm2G) || len(tab.EnergiesKeV) < 2 {
			return nil, fmt.Errorf("element %s: need matching grids with at least 2 points", elem)
		}
		type pt struct{ e, mu float64 }
		pts := make([]pt, 0, len(tab.EnergiesKeV))
		for i, e := range tab.EnergiesKeV {
			if e <= 0 || tab.MuRhoCm2G[i] <= 0 {
				return nil, fmt.Errorf("element %s: energies and coefficients must be > 0", elem)
			}
			pts = append(pts, pt{e, tab.MuRhoCm2G[i]})
		}
		sort.Slice(pts, func(i, j int) bool { return pts[i].e < pts[j].e })

		logE := make([]float64, len(pts))
		logMu := make([]float64, len(pts))
		for i, p := range pts {
			logE[i] = math.Log(p.e)
			logMu[i] = math.Log(p.mu)
		}
		var pl interp.PiecewiseLinear
		if err := pl.Fit(logE, logMu); err != nil {
			return nil, fmt.Errorf("element %s: %w", elem, err)
		}
		src.curves[elem] = &pl
		src.ranges[elem] = [2]float64{pts[0].e, pts[len(pts)-1].e}
	}
	return src, nil
}

// Elements returns the symbols covered by the table, sorted.
func (s *TableSource) Elements() []string {
	elems := make([]string, 0, len(s.curves))
	for k := range s.curves {
		elems = append(elems, k)
	}
	sort.Strings(elems)
	return elems
}

// MuOverRho implements CoefficientSource.
func (s *TableSource) MuOverRho(element string, energyKeV float64) (float64, error) {
	pl, ok := s.curves[element]
	if !ok {
		return 0, fmt.Errorf("no attenuation data for element %q", element)
	}
	r := s.ranges[element]
	if energyKeV < r[0] || energyKeV > r[1] {
		return 0, fmt.Errorf("energy %g keV outside tabulated range [%g, %g] for %s",
			energyKeV, r[0], r[1], element)
	}
	return math.Exp(pl.Predict(math.Log(energyKeV))), nil
}
