// Package profileio ingests and exports one-dimensional scattering profiles.
//
// External 1-D files arrive in many flavours: comma/space/semicolon
// delimited text with or without header rows, canSAS 1D XML
// (urn:cansas1d:1.1), and NXcanSAS HDF5. The reader normalizes all of them
// into a canonical Profile record with ascending, deduplicated x values.
// Writers produce the canonical tab/comma table and the community-standard
// canSAS and NXcanSAS formats.
package profileio

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"
)

// Profile is the canonical 1-D scattering record. X is strictly ascending
// and deduplicated. Err may be all-NaN when the source carries no
// uncertainty column. The *Col fields record which source columns the roles
// were inferred from.
type Profile struct {
	X         []float64
	Intensity []float64
	Err       []float64

	XCol   string
	ICol   string
	ErrCol string
}

// Len returns the number of points.
func (p *Profile) Len() int { return len(p.X) }

// HasErrors reports whether at least one error value is finite.
func (p *Profile) HasErrors() bool {
	for _, e := range p.Err {
		if !math.IsNaN(e) && !math.IsInf(e, 0) {
			return true
		}
	}
	return false
}

// Metadata carries the optional instrument/sample fields embedded in canSAS
// and NXcanSAS output. Zero or negative WavelengthA/SDDM are treated as
// unset.
type Metadata struct {
	Title          string
	Run            string
	SampleName     string
	InstrumentName string
	DetectorName   string
	ProcessName    string
	WavelengthA    float64
	SDDM           float64
}

// ReadExternal1D parses a 1-D profile file, dispatching on the extension:
// .xml is tried as canSAS 1D XML with a fallback to the generic text parser
// on failure; .h5/.hdf5/.hdf/.nxs are read as NXcanSAS (no fallback);
// anything else goes through the multi-strategy delimited-text parser.
func ReadExternal1D(path string) (*Profile, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		if p, err := ReadCanSAS1DXML(path); err == nil {
			return p, nil
		}
		return parseDelimitedText(path)
	case ".h5", ".hdf5", ".hdf", ".nxs":
		return ReadNXcanSASH5(path)
	default:
		return parseDelimitedText(path)
	}
}

// InferXLabel guesses the output x-axis label for a profile: chi-flavoured
// column names or a .chi file extension indicate an azimuthal profile,
// everything else is treated as radial q.
func InferXLabel(path string, p *Profile) string {
	name := strings.ToLower(p.XCol)
	fname := strings.ToLower(filepath.Base(path))
	if strings.Contains(name, "chi") || strings.HasSuffix(fname, ".chi") {
		return "Chi_deg"
	}
	return "Q_A^-1"
}

// sortDedup sorts the triplet by x and merges duplicate x values: intensity
// by mean, error by quadrature combination when every duplicate carries a
// finite error.
func sortDedup(x, i, e []float64) (xs, is, es []float64) {
	idx := make([]int, len(x))
	for k := range idx {
		idx[k] = k
	}
	sort.SliceStable(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })

	xs = make([]float64, 0, len(x))
	is = make([]float64, 0, len(x))
	es = make([]float64, 0, len(x))
	for k := 0; k < len(idx); {
		j := k
		iSum, eSq := 0.0, 0.0
		errOK := true
		for j < len(idx) && x[idx[j]] == x[idx[k]] {
			iSum += i[idx[j]]
			ev := e[idx[j]]
			if math.IsNaN(ev) || math.IsInf(ev, 0) {
				errOK = false
			} else {
				eSq += ev * ev
			}
			j++
		}
		n := float64(j - k)
		xs = append(xs, x[idx[k]])
		is = append(is, iSum/n)
		if errOK {
			es = append(es, math.Sqrt(eSq)/n)
		} else {
			es = append(es, math.NaN())
		}
		k = j
	}
	return xs, is, es
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func formatG(v float64, prec int) string {
	return fmt.Sprintf("%.*g", prec, v)
}
