package profileio

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// WriteProfileTable writes the canonical three-column profile table: a
// header row "{xLabel}<sep>I_abs_cm^-1<sep>Error_cm^-1" followed by one row
// per point with %.10g formatting. Non-finite values become empty cells. The
// file is UTF-8 with a BOM so spreadsheet tools pick the encoding up, and
// uses the given separator (tab for .dat/.txt outputs, comma for .csv).
func WriteProfileTable(path string, x, iAbs, iErr []float64, xLabel string, sep rune) error {
	if len(x) != len(iAbs) {
		return fmt.Errorf("x and intensity length mismatch: %d vs %d", len(x), len(iAbs))
	}
	if iErr != nil && len(iErr) != len(x) {
		return fmt.Errorf("x and error length mismatch: %d vs %d", len(x), len(iErr))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	if _, err := f.WriteString("\ufeff"); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	w := csv.NewWriter(f)
	w.Comma = sep
	if err := w.Write([]string{xLabel, "I_abs_cm^-1", "Error_cm^-1"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range x {
		ev := ""
		if iErr != nil {
			ev = cellG(iErr[i])
		}
		if err := w.Write([]string{cellG(x[i]), cellG(iAbs[i]), ev}); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// cellG formats with %.10g, mapping NaN and infinities to an empty cell.
func cellG(v float64) string {
	if !finite(v) {
		return ""
	}
	return formatG(v, 10)
}
