package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetAndL(t *testing.T) {
	defer Set(zerolog.Nop())

	var buf bytes.Buffer
	Set(New(&buf, zerolog.InfoLevel))
	lg := L()
	lg.Info().Str("stage", "calibration").Msg("k factor estimated")

	out := buf.String()
	if !strings.Contains(out, `"stage":"calibration"`) || !strings.Contains(out, "k factor estimated") {
		t.Errorf("log output = %q", out)
	}
	if !strings.Contains(out, `"time"`) {
		t.Errorf("log output missing timestamp: %q", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	defer Set(zerolog.Nop())

	var buf bytes.Buffer
	Set(New(&buf, zerolog.WarnLevel))
	lg := L()
	lg.Debug().Msg("noise")
	lg.Warn().Msg("transmission out of range")

	out := buf.String()
	if strings.Contains(out, "noise") {
		t.Errorf("debug message leaked through warn level: %q", out)
	}
	if !strings.Contains(out, "transmission out of range") {
		t.Errorf("warning missing: %q", out)
	}
}

func TestDefaultIsNop(t *testing.T) {
	// The zero state must be safe to log against from any package.
	lg := L()
	lg.Error().Msg("goes nowhere")
}
