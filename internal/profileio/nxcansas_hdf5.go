//go:build hdf5

package profileio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/hdf5"
)

func readNXcanSAS(path string) (*Profile, error) {
	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	q, inten, errs, found, err := findSASData(&f.CommonFG, true)
	if err == nil && !found {
		// No group is marked as SASdata by class or name; fall back to
		// structural detection so conforming files with unconventional
		// group names still read.
		q, inten, errs, found, err = findSASData(&f.CommonFG, false)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if !found {
		return nil, fmt.Errorf("cannot find SASdata/Q,I datasets in %s", filepath.Base(path))
	}
	if errs == nil {
		errs = make([]float64, len(q))
		for i := range errs {
			errs[i] = math.NaN()
		}
	}

	xs, is, es := sortDedup(q, inten, errs)
	return &Profile{
		X: xs, Intensity: is, Err: es,
		XCol: "Q", ICol: "I", ErrCol: "Idev",
	}, nil
}

// findSASData walks the group tree depth-first and reads the first group
// that holds the reduced curve. In strict mode a group qualifies by its
// canSAS_class marker or a name starting with "sasdata"; in loose mode any
// group with Q and I datasets qualifies.
func findSASData(g *hdf5.CommonFG, strict bool) (q, inten, errs []float64, found bool, err error) {
	n, err := g.NumObjects()
	if err != nil {
		return nil, nil, nil, false, err
	}
	for idx := uint(0); idx < n; idx++ {
		name := g.ObjectNameByIndex(idx)
		child, openErr := g.OpenGroup(name)
		if openErr != nil {
			continue // not a group
		}
		if isSASDataGroup(child, name, strict) {
			q, err = readFloatDataset(child, "Q")
			if err == nil {
				inten, err = readFloatDataset(child, "I")
			}
			if err == nil && child.LinkExists("Idev") {
				errs, err = readFloatDataset(child, "Idev")
			}
			child.Close()
			return q, inten, errs, err == nil, err
		}
		q, inten, errs, found, err = findSASData(&child.CommonFG, strict)
		child.Close()
		if found || err != nil {
			return q, inten, errs, found, err
		}
	}
	return nil, nil, nil, false, nil
}

// isSASDataGroup reports whether a group carries the reduced curve. The
// binding attaches attributes to datasets only, so the canSAS_class=SASdata
// marker is read from the group's signal dataset I rather than the group
// itself; the sasdata name prefix covers files written by tools that put the
// class attribute on the group, where it is invisible to this binding.
func isSASDataGroup(g *hdf5.Group, name string, strict bool) bool {
	if !g.LinkExists("Q") || !g.LinkExists("I") {
		return false
	}
	if !strict {
		return true
	}
	if strings.HasPrefix(strings.ToLower(name), "sasdata") {
		return true
	}
	return datasetStringAttr(g, "I", "canSAS_class") == "SASdata"
}

// datasetStringAttr reads a string attribute from a named dataset,
// returning "" when the dataset or attribute is absent.
func datasetStringAttr(g *hdf5.Group, dsName, attrName string) string {
	dset, err := g.OpenDataset(dsName)
	if err != nil {
		return ""
	}
	defer dset.Close()
	attr, err := dset.OpenAttribute(attrName)
	if err != nil {
		return ""
	}
	defer attr.Close()
	var value string
	if err := attr.Read(&value, hdf5.T_GO_STRING); err != nil {
		return ""
	}
	return value
}

func readFloatDataset(g *hdf5.Group, name string) ([]float64, error) {
	dset, err := g.OpenDataset(name)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", name, err)
	}
	defer dset.Close()

	space := dset.Space()
	defer space.Close()
	dims, _, err := space.SimpleExtentDims()
	if err != nil {
		return nil, fmt.Errorf("dataset %s extent: %w", name, err)
	}
	n := uint(1)
	for _, d := range dims {
		n *= d
	}
	data := make([]float64, n)
	if err := dset.Read(&data); err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", name, err)
	}
	return data, nil
}

func writeNXcanSAS(path string, q, iAbs, errs []float64, meta Metadata) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := hdf5.CreateFile(path, hdf5.F_ACC_TRUNC)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	entry, err := f.CreateGroup("sasentry01")
	if err != nil {
		return fmt.Errorf("create sasentry01: %w", err)
	}
	defer entry.Close()

	if err := writeStringDataset(entry, "definition", "NXcanSAS"); err != nil {
		return err
	}
	// Group class markers ride on a dataset inside each group because the
	// binding cannot attach attributes to groups.
	if err := tagClass(entry, "definition", "NXentry", "SASentry"); err != nil {
		return err
	}
	if err := writeStringDataset(entry, "title", orDefault(meta.Title, "SAXS profile")); err != nil {
		return err
	}
	if err := writeStringDataset(entry, "run", orDefault(meta.Run, "001")); err != nil {
		return err
	}

	data, err := entry.CreateGroup("sasdata01")
	if err != nil {
		return fmt.Errorf("create sasdata01: %w", err)
	}
	defer data.Close()

	if err := writeFloatDataset(data, "Q", q, "1/angstrom"); err != nil {
		return err
	}
	if err := writeFloatDataset(data, "I", iAbs, "1/cm"); err != nil {
		return err
	}
	if err := tagClass(data, "I", "NXdata", "SASdata"); err != nil {
		return err
	}
	if errs != nil {
		if err := writeFloatDataset(data, "Idev", errs, "1/cm"); err != nil {
			return err
		}
	}

	inst, err := entry.CreateGroup("sasinstrument01")
	if err != nil {
		return fmt.Errorf("create sasinstrument01: %w", err)
	}
	defer inst.Close()
	if meta.InstrumentName != "" {
		if err := writeStringDataset(inst, "name", meta.InstrumentName); err != nil {
			return err
		}
	}

	src, err := inst.CreateGroup("source01")
	if err != nil {
		return fmt.Errorf("create source01: %w", err)
	}
	defer src.Close()
	if err := writeStringDataset(src, "radiation", "x-ray"); err != nil {
		return err
	}
	if meta.WavelengthA > 0 {
		if err := writeFloatDataset(src, "incident_wavelength",
			[]float64{meta.WavelengthA}, "angstrom"); err != nil {
			return err
		}
	}

	sample, err := entry.CreateGroup("sassample01")
	if err != nil {
		return fmt.Errorf("create sassample01: %w", err)
	}
	defer sample.Close()
	return writeStringDataset(sample, "name", orDefault(meta.SampleName, "unknown"))
}

func writeFloatDataset(g *hdf5.Group, name string, data []float64, units string) error {
	space, err := hdf5.CreateSimpleDataspace([]uint{uint(len(data))}, nil)
	if err != nil {
		return fmt.Errorf("dataspace for %s: %w", name, err)
	}
	defer space.Close()
	dset, err := g.CreateDataset(name, hdf5.T_NATIVE_DOUBLE, space)
	if err != nil {
		return fmt.Errorf("create dataset %s: %w", name, err)
	}
	defer dset.Close()
	if err := dset.Write(&data); err != nil {
		return fmt.Errorf("write dataset %s: %w", name, err)
	}
	return setStringAttr(dset, "units", units)
}

func writeStringDataset(g *hdf5.Group, name, value string) error {
	space, err := hdf5.CreateSimpleDataspace([]uint{1}, nil)
	if err != nil {
		return fmt.Errorf("dataspace for %s: %w", name, err)
	}
	defer space.Close()
	dset, err := g.CreateDataset(name, hdf5.T_GO_STRING, space)
	if err != nil {
		return fmt.Errorf("create dataset %s: %w", name, err)
	}
	defer dset.Close()
	if err := dset.Write(&value); err != nil {
		return fmt.Errorf("write dataset %s: %w", name, err)
	}
	return nil
}

// tagClass stamps NX_class and canSAS_class markers for the group holding
// dsName onto that dataset.
func tagClass(g *hdf5.Group, dsName, nxClass, cansasClass string) error {
	dset, err := g.OpenDataset(dsName)
	if err != nil {
		return fmt.Errorf("open dataset %s: %w", dsName, err)
	}
	defer dset.Close()
	if err := setStringAttr(dset, "NX_class", nxClass); err != nil {
		return err
	}
	return setStringAttr(dset, "canSAS_class", cansasClass)
}

func setStringAttr(d *hdf5.Dataset, name, value string) error {
	space, err := hdf5.CreateSimpleDataspace([]uint{1}, nil)
	if err != nil {
		return fmt.Errorf("dataspace for attribute %s: %w", name, err)
	}
	defer space.Close()
	attr, err := d.CreateAttribute(name, hdf5.T_GO_STRING, space)
	if err != nil {
		return fmt.Errorf("create attribute %s: %w", name, err)
	}
	defer attr.Close()
	if err := attr.Write(&value, hdf5.T_GO_STRING); err != nil {
		return fmt.Errorf("write attribute %s: %w", name, err)
	}
	return nil
}
