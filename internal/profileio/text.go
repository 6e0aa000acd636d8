package profileio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var multiSep = regexp.MustCompile(`[,\s;]+`)

// textStrategy is one parse attempt over the raw lines of a delimited file.
type textStrategy struct {
	name      string
	sniffSep  bool // detect a single separator from the first data line
	headerRow bool // treat the first non-comment line as column names
}

// The three strategies mirror the tolerant read order used on beamline data:
// sniffed separator with header, explicit multi-separator with header, and
// multi-separator positional columns for headerless files. The attempt
// yielding the most valid points wins.
var textStrategies = []textStrategy{
	{name: "sniffed separator", sniffSep: true, headerRow: true},
	{name: "multi separator", sniffSep: false, headerRow: true},
	{name: "multi separator, no header", sniffSep: false, headerRow: false},
}

func parseDelimitedText(path string) (*Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	lines := dataLines(string(raw))
	if len(lines) == 0 {
		return nil, fmt.Errorf("cannot parse file: %s (no data lines)", filepath.Base(path))
	}

	var best *Profile
	bestPts := -1
	for _, strat := range textStrategies {
		p := tryStrategy(lines, strat)
		if p != nil && p.Len() > bestPts {
			best = p
			bestPts = p.Len()
		}
	}
	if best == nil {
		return nil, fmt.Errorf("cannot identify valid numeric columns in %s", filepath.Base(path))
	}
	return best, nil
}

// dataLines strips '#' comments (whole-line and trailing) and blank lines.
func dataLines(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimRight(strings.TrimPrefix(line, "\ufeff"), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

func splitLine(line string, strat textStrategy, sep string) []string {
	if strat.sniffSep {
		switch sep {
		case "ws":
			return strings.Fields(line)
		default:
			fields := strings.Split(line, sep)
			for i := range fields {
				fields[i] = strings.TrimSpace(fields[i])
			}
			return fields
		}
	}
	return multiSep.Split(strings.TrimSpace(line), -1)
}

func sniffSeparator(line string) string {
	switch {
	case strings.Contains(line, "\t"):
		return "\t"
	case strings.Contains(line, ","):
		return ","
	case strings.Contains(line, ";"):
		return ";"
	default:
		return "ws"
	}
}

func tryStrategy(lines []string, strat textStrategy) *Profile {
	sep := ""
	if strat.sniffSep {
		sep = sniffSeparator(lines[0])
	}

	var names []string
	rows := lines
	if strat.headerRow {
		names = splitLine(lines[0], strat, sep)
		rows = lines[1:]
	}
	if len(rows) == 0 {
		return nil
	}
	nCols := len(splitLine(rows[0], strat, sep))
	if strat.headerRow {
		nCols = len(names)
	}
	if nCols < 2 {
		return nil
	}
	if names == nil {
		names = make([]string, nCols)
		for j := range names {
			names[j] = strconv.Itoa(j)
		}
	}

	// Coerce every cell to a float; unparseable or missing cells become NaN.
	cols := make([][]float64, nCols)
	for j := range cols {
		cols[j] = make([]float64, len(rows))
	}
	for r, line := range rows {
		fields := splitLine(line, strat, sep)
		for j := 0; j < nCols; j++ {
			v := math.NaN()
			if j < len(fields) {
				if f, err := strconv.ParseFloat(strings.TrimSpace(fields[j]), 64); err == nil {
					v = f
				}
			}
			cols[j][r] = v
		}
	}

	// Columns with at least three finite values are numeric candidates.
	var candidates []int
	for j := range cols {
		n := 0
		for _, v := range cols[j] {
			if finite(v) {
				n++
			}
		}
		if n >= 3 {
			candidates = append(candidates, j)
		}
	}
	if len(candidates) < 2 {
		return nil
	}

	xIdx := pickColumn(names, candidates, []string{"q", "chi", "radial", "2theta", "x"}, nil)
	if xIdx < 0 {
		xIdx = candidates[0]
	}
	iIdx := pickColumn(names, candidates, []string{"intensity", "irel", "iabs", "signal", "count", "i"}, []int{xIdx})
	if iIdx < 0 {
		iIdx = firstRemaining(candidates, []int{xIdx})
	}
	if iIdx < 0 {
		return nil
	}
	errIdx := pickColumn(names, candidates, []string{"error", "sigma", "std", "unc"}, []int{xIdx, iIdx})
	if errIdx < 0 && len(candidates) >= 3 {
		errIdx = firstRemaining(candidates, []int{xIdx, iIdx})
	}

	var x, inten, errs []float64
	for r := range rows {
		xv, iv := cols[xIdx][r], cols[iIdx][r]
		if !finite(xv) || !finite(iv) {
			continue
		}
		x = append(x, xv)
		inten = append(inten, iv)
		if errIdx >= 0 {
			errs = append(errs, cols[errIdx][r])
		} else {
			errs = append(errs, math.NaN())
		}
	}
	if len(x) < 3 {
		return nil
	}
	xs, is, es := sortDedup(x, inten, errs)
	if len(xs) < 3 {
		return nil
	}

	errName := ""
	if errIdx >= 0 {
		errName = names[errIdx]
	}
	return &Profile{
		X: xs, Intensity: is, Err: es,
		XCol: names[xIdx], ICol: names[iIdx], ErrCol: errName,
	}
}

// pickColumn returns the first candidate column whose normalized name
// contains one of the tokens, skipping excluded indices.
func pickColumn(names []string, candidates []int, tokens []string, exclude []int) int {
	for _, j := range candidates {
		if contains(exclude, j) {
			continue
		}
		name := strings.ToLower(names[j])
		name = strings.ReplaceAll(name, "_", "")
		name = strings.ReplaceAll(name, " ", "")
		for _, t := range tokens {
			if strings.Contains(name, t) {
				return j
			}
		}
	}
	return -1
}

func firstRemaining(candidates []int, exclude []int) int {
	for _, j := range candidates {
		if !contains(exclude, j) {
			return j
		}
	}
	return -1
}

func contains(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
