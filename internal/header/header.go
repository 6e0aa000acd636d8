// Package header normalizes heterogeneous instrument-header metadata into
// typed physical quantities. Beamlines disagree on key names, units, and
// whether transmission is stored as a fraction or a percent, so the parser is
// a prioritized fuzzy lookup over normalized keys with tolerant numeric
// coercion. Absent or unparseable fields surface as NaN, never as errors.
package header

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// HCKeVA is the Planck-constant speed-of-light product, E(keV) x lambda(A).
const HCKeVA = 12.398419843320025

// Transmission values in (transPercentLow, transPercentHigh] are treated as
// bare percent literals. The lower boundary is an empirical policy: values in
// (1, 2] are left untouched as measurement drift. Do not adjust without
// domain confirmation; changing it silently changes calibration results for
// borderline headers.
const (
	transPercentLow  = 2.0
	transPercentHigh = 100.0
)

var floatPattern = regexp.MustCompile(`[-+]?\d*\.?\d+(?:[eE][-+]?\d+)?`)

// NormKey lowercases a header key and strips whitespace and separators so
// that "Exposure_Time", "exposure-time" and "ExposureTime" all collapse to
// "exposuretime".
func NormKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "_", "")
	return s
}

// ExtractFloat coerces a header value into a float64. Numeric types pass
// through directly. Strings are cleaned of locale commas (a comma acts as a
// decimal separator only when no '.' is present, otherwise commas are
// thousands separators) and the first float or scientific-notation token is
// extracted. Returns false when no numeric value can be recovered.
func ExtractFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		return extractFloatString(v)
	default:
		return extractFloatString(fmt.Sprint(raw))
	}
}

func extractFloatString(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	m := floatPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// NormalizeTransmission converts a raw transmission reading to the (0, ~2]
// fractional scale. An explicit percent hint in the raw text or the matched
// key forces division by 100; otherwise values in (2, 100] are treated as
// bare percent literals.
func NormalizeTransmission(trans float64, raw, key string) float64 {
	rawLower := strings.ToLower(strings.TrimSpace(raw))
	keyNorm := NormKey(key)

	pctHint := strings.Contains(rawLower, "%") ||
		strings.Contains(rawLower, "percent") ||
		strings.Contains(rawLower, "pct") ||
		strings.Contains(keyNorm, "percent") ||
		strings.Contains(keyNorm, "pct")

	if pctHint {
		return trans / 100.0
	}
	if trans > transPercentLow && trans <= transPercentHigh {
		return trans / 100.0
	}
	return trans
}

// metaEntry is one normalized-key / raw-value pair. Entries are kept sorted
// by key so fuzzy resolution is deterministic regardless of map order.
type metaEntry struct {
	key   string
	value string
}

type metaTable []metaEntry

func buildMeta(header map[string]any) metaTable {
	meta := make(metaTable, 0, len(header))
	seen := make(map[string]bool, len(header))
	for k, v := range header {
		if v == nil {
			continue
		}
		nk := NormKey(k)
		if nk == "" || seen[nk] {
			continue
		}
		seen[nk] = true
		meta = append(meta, metaEntry{key: nk, value: strings.TrimSpace(fmt.Sprint(v))})
	}
	sort.Slice(meta, func(i, j int) bool { return meta[i].key < meta[j].key })
	return meta
}

// lookup resolves a quantity in three passes: exact key match, prefix/suffix
// match (skipping ambiguous exact-only fragments), then substring match
// restricted to fragments of at least six characters.
func (m metaTable) lookup(candidates []string, exactOnly map[string]bool) (value, key string, ok bool) {
	for _, k := range candidates {
		for _, e := range m {
			if e.key == k {
				return e.value, e.key, true
			}
		}
	}
	for _, e := range m {
		for _, k := range candidates {
			if exactOnly[k] {
				continue
			}
			if strings.HasPrefix(e.key, k) || strings.HasSuffix(e.key, k) {
				return e.value, e.key, true
			}
		}
	}
	for _, e := range m {
		for _, k := range candidates {
			if exactOnly[k] || len(k) < 6 {
				continue
			}
			if strings.Contains(e.key, k) {
				return e.value, e.key, true
			}
		}
	}
	return "", "", false
}

var (
	expCandidates   = []string{"exposuretime", "counttime", "acqtime", "exposure", "time"}
	monCandidates   = []string{"monitor", "beammonitor", "ionchamber", "mon", "i0", "flux"}
	transCandidates = []string{"sampletransmission", "transmission", "trans", "abs"}

	expExactOnly   = map[string]bool{"time": true}
	monExactOnly   = map[string]bool{"mon": true, "i0": true}
	transExactOnly = map[string]bool{"abs": true}
)

// ParseHeaderValues extracts exposure time (seconds), monitor counts, and
// transmission (fractional) from an arbitrary instrument header. Missing or
// unparseable quantities are returned as NaN.
//
// Exposure values whose raw text or matched key mention "ms" or "us" are
// converted to seconds. The "us" check is a plain substring test, so a key
// containing "us" anywhere triggers the microsecond correction; this is a
// known heuristic limitation kept for compatibility with existing headers.
func ParseHeaderValues(h map[string]any) (exp, mon, trans float64) {
	exp, mon, trans = math.NaN(), math.NaN(), math.NaN()
	meta := buildMeta(h)

	expRaw, expKey, expFound := meta.lookup(expCandidates, expExactOnly)
	monRaw, _, monFound := meta.lookup(monCandidates, monExactOnly)
	transRaw, transKey, transFound := meta.lookup(transCandidates, transExactOnly)

	if expFound {
		if v, ok := ExtractFloat(expRaw); ok {
			tag := strings.ToLower(expKey + " " + expRaw)
			switch {
			case strings.Contains(tag, "ms"):
				v /= 1e3
			case strings.Contains(tag, "us"):
				v /= 1e6
			}
			exp = v
		}
	}
	if monFound {
		if v, ok := ExtractFloat(monRaw); ok {
			mon = v
		}
	}
	if transFound {
		if v, ok := ExtractFloat(transRaw); ok {
			trans = NormalizeTransmission(v, transRaw, transKey)
		}
	}
	return exp, mon, trans
}
