//go:build !hdf5

package profileio

func readNXcanSAS(path string) (*Profile, error) {
	return nil, ErrHDF5Unavailable
}

func writeNXcanSAS(path string, q, iAbs, errs []float64, meta Metadata) error {
	return ErrHDF5Unavailable
}
