package profileio

import (
	"errors"
	"fmt"
)

// ErrHDF5Unavailable is returned by the NXcanSAS reader and writer when the
// binary was built without HDF5 support. NXcanSAS needs the HDF5 C library
// through the gonum binding, which is opt-in at build time.
var ErrHDF5Unavailable = errors.New(
	"NXcanSAS support requires HDF5: install libhdf5 and rebuild with -tags hdf5")

// ReadNXcanSASH5 reads an NXcanSAS HDF5 file: the first group tagged as
// SASdata (by canSAS_class attribute or a name starting with "sasdata")
// containing Q and I datasets, with optional Idev. Points are sorted by Q.
//
// Returns ErrHDF5Unavailable when built without the hdf5 tag.
func ReadNXcanSASH5(path string) (*Profile, error) {
	p, err := readNXcanSAS(path)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// WriteNXcanSASH5 writes a profile as NXcanSAS: a sasentry01/sasdata01 group
// pair with Q, I and optional Idev datasets carrying 1/angstrom and 1/cm
// unit attributes. Parent directories are created and an existing file is
// overwritten.
//
// Returns ErrHDF5Unavailable when built without the hdf5 tag.
func WriteNXcanSASH5(path string, q, iAbs, errs []float64, meta Metadata) error {
	if len(q) != len(iAbs) {
		return fmt.Errorf("q and intensity length mismatch: %d vs %d", len(q), len(iAbs))
	}
	if errs != nil && len(errs) != len(q) {
		return fmt.Errorf("q and error length mismatch: %d vs %d", len(q), len(errs))
	}
	return writeNXcanSAS(path, q, iAbs, errs, meta)
}
