// Package norm computes monitor-mode-aware normalization factors for
// absolute-intensity conversion.
//
// Two monitor semantics exist in the wild: detectors reporting a rate
// (counts per second), where the factor is exposure * I0 * T, and detectors
// reporting counts already integrated over the acquisition window, where the
// factor is I0 * T. Invalid data yields NaN; an invalid mode is a
// configuration error and yields an error instead.
package norm

import (
	"fmt"
	"math"
	"strings"
)

// Mode selects the monitor semantics.
type Mode string

const (
	// ModeRate treats the detector signal as a rate: factor = exp * I0 * T.
	ModeRate Mode = "rate"
	// ModeIntegrated treats the signal as already integrated: factor = I0 * T.
	ModeIntegrated Mode = "integrated"
)

// ParseMode validates a mode string (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeRate:
		return ModeRate, nil
	case ModeIntegrated:
		return ModeIntegrated, nil
	}
	return "", fmt.Errorf("unknown I0 normalization mode: %q", s)
}

// Formula returns the human-readable normalization formula for a mode.
func Formula(mode Mode) (string, error) {
	m, err := ParseMode(string(mode))
	if err != nil {
		return "", err
	}
	if m == ModeRate {
		return "exp * I0 * T", nil
	}
	return "I0 * T", nil
}

// Factor computes the normalization factor. Missing inputs are passed as NaN.
//
// The result is NaN when any required input is missing, non-finite, or <= 0,
// or when transmission exceeds 1.0 (a transmission above unity is physically
// impossible and indicates an upstream parsing failure). An unrecognized
// mode returns an error: that is a configuration bug, not a data-quality
// problem.
func Factor(exp, mon, trans float64, mode Mode) (float64, error) {
	m, err := ParseMode(string(mode))
	if err != nil {
		return math.NaN(), err
	}

	if !isPositive(mon) || !isPositive(trans) {
		return math.NaN(), nil
	}
	if trans > 1.0 {
		return math.NaN(), nil
	}

	if m == ModeRate {
		if !isPositive(exp) {
			return math.NaN(), nil
		}
		return exp * mon * trans, nil
	}
	return mon * trans, nil
}

func isPositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
