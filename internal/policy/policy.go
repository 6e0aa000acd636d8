// Package policy holds the stateless decision helpers that gate batch
// execution: skip-existing-output resolution and the preflight readiness
// score computed before an expensive run.
package policy

import "fmt"

// RunPolicy controls how existing outputs are treated during a batch run.
type RunPolicy struct {
	ResumeEnabled     bool
	OverwriteExisting bool
}

// Mode resolves the effective execution mode. Overwrite beats resume.
func (p RunPolicy) Mode() string {
	switch {
	case p.OverwriteExisting:
		return "overwrite"
	case p.ResumeEnabled:
		return "resume-skip"
	default:
		return "always-run"
	}
}

// ShouldSkipExisting reports whether an output that already exists
// should be left alone.
func (p RunPolicy) ShouldSkipExisting(exists bool) bool {
	return p.ResumeEnabled && !p.OverwriteExisting && exists
}

// ShouldSkipAllExisting reports whether a multi-output step can be
// skipped entirely. An empty list never skips.
func ShouldSkipAllExisting(existingFlags []bool, p RunPolicy) bool {
	if len(existingFlags) == 0 {
		return false
	}
	for _, exists := range existingFlags {
		if !p.ShouldSkipExisting(exists) {
			return false
		}
	}
	return true
}

// Gate levels, in increasing severity.
const (
	GateReady   = "READY"
	GateCaution = "CAUTION"
	GateBlocked = "BLOCKED"
)

// PreflightGateSummary is the outcome of the batch readiness check.
type PreflightGateSummary struct {
	Level        string
	Score        int
	TotalFiles   int
	FailedFiles  int
	RiskyFiles   int
	WarningCount int
	Reasons      []string
}

// Preflight scoring constants. Ad hoc weights kept as configuration to
// preserve historical gate behavior.
const (
	preflightFailedWeight = 5
	preflightRiskyWeight  = 2
	preflightWarnWeight   = 1

	preflightScoreCaution = 8
	preflightWarnCaution  = 6
)

// EvaluatePreflightGate scores a batch before execution. Any failed
// file blocks the run outright, as does an empty batch. A non-zero
// score without failures yields CAUTION, escalated in the reasons when
// the score, warning count, or risky fraction crosses its threshold.
func EvaluatePreflightGate(totalFiles, failedFiles, warningCount, riskyFiles int) PreflightGateSummary {
	// Negative counts from a buggy caller must not subtract risk.
	failedFiles = max(failedFiles, 0)
	warningCount = max(warningCount, 0)
	riskyFiles = max(riskyFiles, 0)

	s := PreflightGateSummary{
		TotalFiles:   totalFiles,
		FailedFiles:  failedFiles,
		RiskyFiles:   riskyFiles,
		WarningCount: warningCount,
	}
	s.Score = preflightFailedWeight*failedFiles +
		preflightRiskyWeight*riskyFiles +
		preflightWarnWeight*warningCount

	if totalFiles <= 0 {
		s.Level = GateBlocked
		s.Reasons = append(s.Reasons, "no input files")
		return s
	}
	if failedFiles > 0 {
		s.Level = GateBlocked
		s.Reasons = append(s.Reasons, fmt.Sprintf("%d file(s) failed preflight checks", failedFiles))
		return s
	}

	riskyCaution := totalFiles / 2
	if riskyCaution < 2 {
		riskyCaution = 2
	}
	if s.Score >= preflightScoreCaution {
		s.Reasons = append(s.Reasons, fmt.Sprintf("risk score %d is high", s.Score))
	}
	if warningCount >= preflightWarnCaution {
		s.Reasons = append(s.Reasons, fmt.Sprintf("%d warnings", warningCount))
	}
	if riskyFiles >= riskyCaution {
		s.Reasons = append(s.Reasons, fmt.Sprintf("%d of %d files look risky", riskyFiles, totalFiles))
	}
	if s.Score > 0 {
		s.Level = GateCaution
		if len(s.Reasons) == 0 {
			s.Reasons = append(s.Reasons, fmt.Sprintf("nonzero risk score %d", s.Score))
		}
		return s
	}

	s.Level = GateReady
	return s
}
