// Package reduce orchestrates batch reduction of 2D detector frames to
// absolute-intensity 1D profiles: header parsing, reference matching,
// dark-corrected net signal, integration, absolute scaling, and output.
//
// Frame decoding and azimuthal integration are supplied by the caller
// through the FrameOpener and Integrator capabilities, keeping detector
// format and geometry code out of the reduction core.
package reduce

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gonum.org/v1/gonum/mat"

	"saxs-abs/internal/config"
	"saxs-abs/internal/header"
	"saxs-abs/internal/logger"
	"saxs-abs/internal/norm"
	"saxs-abs/internal/policy"
	"saxs-abs/internal/profileio"
	"saxs-abs/internal/subtraction"
)

// FrameOpener decodes a 2D detector frame and its header mapping.
type FrameOpener interface {
	OpenFrame(path string) (*mat.Dense, map[string]any, error)
}

// Integrator performs azimuthal integration of a corrected frame into
// a 1D curve of nPoints bins with per-bin sigma (may be all NaN).
type Integrator interface {
	Integrate1D(frame *mat.Dense, nPoints int) (q, i, sigma []float64, err error)
}

// Runner holds everything shared across one batch run.
type Runner struct {
	Opener     FrameOpener
	Integrator Integrator
	Cfg        config.RunConfig
	Policy     policy.RunPolicy
	Mode       norm.Mode

	// Fixed references, used when the auto-match libraries are empty.
	FixedBackground string
	FixedDark       string

	// Auto-match candidate pools built with BuildReferenceLibrary.
	BGLibrary   []ReferenceMeta
	DarkLibrary []ReferenceMeta

	// Integration bins; 0 means 1000.
	NPoints int
}

// Sample statuses reported per file.
const (
	StatusOK      = "ok"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// SampleReport is one row of the batch report.
type SampleReport struct {
	File        string
	Status      string
	OutputPath  string
	ExpS        float64
	Mon         float64
	Trans       float64
	NormFactor  float64
	ThicknessCM float64
	Background  string
	Dark        string
	BGScore     float64
	DarkScore   float64
	Err         string
}

// ProcessSample reduces one detector frame to an absolute-intensity
// table. Failures are captured in the report rather than returned, so a
// bad file never aborts the batch.
func (r *Runner) ProcessSample(samplePath string) SampleReport {
	rep := SampleReport{
		File:        filepath.Base(samplePath),
		ExpS:        math.NaN(),
		Mon:         math.NaN(),
		Trans:       math.NaN(),
		NormFactor:  math.NaN(),
		ThicknessCM: math.NaN(),
		BGScore:     math.NaN(),
		DarkScore:   math.NaN(),
	}

	stem := strings.TrimSuffix(rep.File, filepath.Ext(rep.File))
	outPath := filepath.Join(r.Cfg.OutputDir, stem+"_abs.dat")
	rep.OutputPath = outPath
	if _, err := os.Stat(outPath); err == nil && r.Policy.ShouldSkipExisting(true) {
		rep.Status = StatusSkipped
		return rep
	}

	frame, hdr, err := r.Opener.OpenFrame(samplePath)
	if err != nil {
		return rep.fail(fmt.Errorf("open frame: %w", err))
	}
	exp, mon, trans := header.ParseHeaderValues(hdr)
	rep.ExpS, rep.Mon, rep.Trans = exp, mon, trans

	if err := validateSampleHeader(exp, mon, trans, r.Mode); err != nil {
		return rep.fail(err)
	}
	normS, err := norm.Factor(exp, mon, trans, r.Mode)
	if err != nil {
		return rep.fail(err)
	}
	if !(normS > 0) || math.IsNaN(normS) {
		return rep.fail(fmt.Errorf("sample normalization factor invalid (exp/I0/T)"))
	}
	rep.NormFactor = normS

	bgPath, dkPath, err := r.resolveReferences(&rep, frame, samplePath)
	if err != nil {
		return rep.fail(err)
	}

	bgFrame, bgHdr, err := r.Opener.OpenFrame(bgPath)
	if err != nil {
		return rep.fail(fmt.Errorf("open background: %w", err))
	}
	normBG := r.backgroundNorm(bgHdr)
	if !(normBG > 0) || math.IsNaN(normBG) {
		return rep.fail(fmt.Errorf("background normalization factor invalid"))
	}

	var darkFrame *mat.Dense
	if dkPath != "" {
		darkFrame, _, err = r.Opener.OpenFrame(dkPath)
		if err != nil {
			return rep.fail(fmt.Errorf("open dark: %w", err))
		}
	} else {
		rows, cols := frame.Dims()
		darkFrame = mat.NewDense(rows, cols, nil)
	}

	net, err := subtraction.NetFrame(frame, bgFrame, darkFrame, normS, normBG)
	if err != nil {
		return rep.fail(err)
	}

	nPoints := r.NPoints
	if nPoints <= 0 {
		nPoints = 1000
	}
	q, intensity, sigma, err := r.Integrator.Integrate1D(net, nPoints)
	if err != nil {
		return rep.fail(fmt.Errorf("integrate: %w", err))
	}
	if len(q) < 3 {
		return rep.fail(fmt.Errorf("integration produced too few points: %d", len(q)))
	}

	thkCm, err := r.thickness(trans)
	if err != nil {
		return rep.fail(err)
	}
	rep.ThicknessCM = thkCm

	scale := r.Cfg.KFactor / thkCm
	iAbs := make([]float64, len(intensity))
	errAbs := make([]float64, len(intensity))
	for k := range intensity {
		iAbs[k] = intensity[k] * scale
		if k < len(sigma) {
			errAbs[k] = sigma[k] * math.Abs(scale)
		} else {
			errAbs[k] = math.NaN()
		}
	}

	if issue := ProfileHealthIssue(iAbs); issue != "" {
		return rep.fail(fmt.Errorf("%s", issue))
	}

	if err := profileio.WriteProfileTable(outPath, q, iAbs, errAbs, "Q_A^-1", '\t'); err != nil {
		return rep.fail(err)
	}
	rep.Status = StatusOK
	return rep
}

// resolveReferences picks the background and dark frames for a sample,
// either fixed paths or the best-scoring library candidates. A missing
// background is fatal; a missing dark degrades to a zero frame.
func (r *Runner) resolveReferences(rep *SampleReport, frame *mat.Dense, samplePath string) (bgPath, dkPath string, err error) {
	if len(r.BGLibrary) == 0 && len(r.DarkLibrary) == 0 {
		if r.FixedBackground == "" {
			return "", "", fmt.Errorf("no background frame configured")
		}
		rep.Background = filepath.Base(r.FixedBackground)
		if r.FixedDark != "" {
			rep.Dark = filepath.Base(r.FixedDark)
		}
		return r.FixedBackground, r.FixedDark, nil
	}

	rows, cols := frame.Dims()
	sampleMeta := ReferenceMeta{
		Path: samplePath, Rows: rows, Cols: cols,
		ExpS: rep.ExpS, Mon: rep.Mon, Trans: rep.Trans,
	}
	if fi, statErr := os.Stat(samplePath); statErr == nil {
		sampleMeta.MTime = fi.ModTime()
	}

	bg, bgScore, ok := SelectBestReference(sampleMeta, r.BGLibrary, KindBackground)
	if !ok {
		return "", "", fmt.Errorf("background library is empty")
	}
	rep.Background, rep.BGScore = filepath.Base(bg.Path), bgScore

	dk, dkScore, ok := SelectBestReference(sampleMeta, r.DarkLibrary, KindDark)
	if !ok {
		lg := logger.L()
		lg.Warn().Str("sample", rep.File).Msg("no dark candidate matched; using zero dark frame")
		return bg.Path, "", nil
	}
	rep.Dark, rep.DarkScore = filepath.Base(dk.Path), dkScore
	return bg.Path, dk.Path, nil
}

// backgroundNorm computes the background normalization from its own
// header, falling back to the configured values when the header is
// unusable.
func (r *Runner) backgroundNorm(bgHdr map[string]any) float64 {
	exp, mon, trans := header.ParseHeaderValues(bgHdr)
	if n, err := norm.Factor(exp, mon, trans, r.Mode); err == nil && n > 0 && !math.IsNaN(n) {
		return n
	}
	lg := logger.L()
	lg.Warn().Msg("background header lacks usable Time/I0/T; using configured background values")
	n, err := norm.Factor(r.Cfg.BackgroundExp, r.Cfg.BackgroundI0, r.Cfg.BackgroundT, r.Mode)
	if err != nil {
		return math.NaN()
	}
	return n
}

func (r *Runner) thickness(trans float64) (float64, error) {
	if r.Cfg.AutoThickness {
		return ThicknessFromTransmission(trans, r.Cfg.MuLinearCmInv)
	}
	thkCm := r.Cfg.FixedThicknessMM / 10.0
	if !(thkCm > 0) {
		return 0, fmt.Errorf("fixed thickness must be > 0 mm, got %g", r.Cfg.FixedThicknessMM)
	}
	return thkCm, nil
}

func validateSampleHeader(exp, mon, trans float64, mode norm.Mode) error {
	var missing []string
	if math.IsNaN(mon) {
		missing = append(missing, "MON")
	}
	if math.IsNaN(trans) {
		missing = append(missing, "T")
	}
	if mode == norm.ModeRate && math.IsNaN(exp) {
		missing = append(missing, "EXP")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing header fields: %s", strings.Join(missing, ","))
	}
	switch {
	case mode == norm.ModeRate && exp <= 0:
		return fmt.Errorf("EXP <= 0")
	case mon <= 0:
		return fmt.Errorf("MON <= 0")
	case !(trans > 0 && trans <= 1):
		return fmt.Errorf("T outside (0,1]")
	}
	return nil
}

func (rep SampleReport) fail(err error) SampleReport {
	rep.Status = StatusFailed
	rep.Err = err.Error()
	return rep
}

// RunBatch reduces all samples with a bounded worker pool, preserving
// input order in the returned reports.
func (r *Runner) RunBatch(samples []string) []SampleReport {
	workers := r.Cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(samples) {
		workers = len(samples)
	}

	reports := make([]SampleReport, len(samples))
	jobs := make(chan int)
	var wg sync.WaitGroup
	var mu sync.Mutex
	done := 0

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				rep := r.ProcessSample(samples[idx])
				reports[idx] = rep

				mu.Lock()
				done++
				n := done
				mu.Unlock()
				lg := logger.L()
				lg.Info().
					Str("file", rep.File).
					Str("status", rep.Status).
					Int("done", n).
					Int("total", len(samples)).
					Msg("sample processed")
			}
		}()
	}
	for idx := range samples {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()
	return reports
}

// Summary tallies report statuses.
func Summary(reports []SampleReport) (ok, skipped, failed int) {
	for _, rep := range reports {
		switch rep.Status {
		case StatusOK:
			ok++
		case StatusSkipped:
			skipped++
		default:
			failed++
		}
	}
	return ok, skipped, failed
}

// WriteReportCSV saves the batch report next to the outputs.
func WriteReportCSV(path string, reports []SampleReport) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"File", "Status", "Output", "Exp_s", "Mon", "Trans",
		"Norm", "Thk_cm", "BG", "Dark", "BG_Score", "Dark_Score", "Error",
	}); err != nil {
		return err
	}
	for _, rep := range reports {
		row := []string{
			rep.File, rep.Status, rep.OutputPath,
			reportCell(rep.ExpS), reportCell(rep.Mon), reportCell(rep.Trans),
			reportCell(rep.NormFactor), reportCell(rep.ThicknessCM),
			rep.Background, rep.Dark,
			reportCell(rep.BGScore), reportCell(rep.DarkScore),
			rep.Err,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func reportCell(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}
