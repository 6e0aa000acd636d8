package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"saxs-abs/internal/config"
	"saxs-abs/internal/logger"
	"saxs-abs/internal/norm"
	"saxs-abs/internal/policy"
	"saxs-abs/internal/profileio"
	"saxs-abs/internal/reduce"
	"saxs-abs/internal/subtraction"
)

// cmdReduce1D converts externally integrated 1D profiles to absolute
// intensity. In "scaled" mode the input is already background-corrected
// and normalized, so only K/thickness is applied. In "raw" mode the
// input is a raw integration that still needs the net-signal formula
// with a background (and optional dark) 1D curve.
func cmdReduce1D(args []string) error {
	fs := flag.NewFlagSet("reduce1d", flag.ExitOnError)
	cfgPath := fs.String("config", "", "YAML run configuration")
	mode := fs.String("pipeline", "scaled", "Pipeline: scaled or raw")
	bgPath := fs.String("bg", "", "Background 1D profile (raw pipeline)")
	darkPath := fs.String("dark", "", "Dark 1D profile (raw pipeline, optional)")
	exp := fs.Float64("exp", math.NaN(), "Sample exposure time in seconds (raw pipeline)")
	i0 := fs.Float64("i0", math.NaN(), "Sample monitor counts (raw pipeline)")
	trans := fs.Float64("trans", math.NaN(), "Sample transmission (raw pipeline)")
	reportPath := fs.String("report", "", "Write a CSV batch report to this path")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: reduce1d [options] <profile files...>")
	}

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			return err
		}
	}
	monMode, err := norm.ParseMode(cfg.MonitorMode)
	if err != nil {
		return err
	}
	pol := policy.RunPolicy{
		ResumeEnabled:     cfg.ResumeEnabled,
		OverwriteExisting: cfg.OverwriteExisting,
	}
	thkCm := cfg.FixedThicknessMM / 10.0
	if !(thkCm > 0) {
		return fmt.Errorf("fixed thickness must be > 0 mm, got %g", cfg.FixedThicknessMM)
	}

	var bgProf, darkProf *profileio.Profile
	var normBG float64
	if *mode == "raw" {
		if *bgPath == "" {
			return fmt.Errorf("raw pipeline requires -bg")
		}
		bgProf, err = profileio.ReadExternal1D(*bgPath)
		if err != nil {
			return fmt.Errorf("read background 1D: %w", err)
		}
		if *darkPath != "" {
			darkProf, err = profileio.ReadExternal1D(*darkPath)
			if err != nil {
				return fmt.Errorf("read dark 1D: %w", err)
			}
		}
		normBG, err = norm.Factor(cfg.BackgroundExp, cfg.BackgroundI0, cfg.BackgroundT, monMode)
		if err != nil {
			return err
		}
		if !(normBG > 0) || math.IsNaN(normBG) {
			return fmt.Errorf("background normalization factor invalid (config background_exp_s/background_i0/background_trans)")
		}
	} else if *mode != "scaled" {
		return fmt.Errorf("unknown pipeline %q (want scaled or raw)", *mode)
	}

	var reports []reduce.SampleReport
	okCount, skipCount, failCount := 0, 0, 0
	for _, path := range fs.Args() {
		rep := reduce1DFile(path, cfg, pol, *mode, monMode, thkCm, *exp, *i0, *trans, bgProf, darkProf, normBG)
		reports = append(reports, rep)
		switch rep.Status {
		case reduce.StatusOK:
			okCount++
		case reduce.StatusSkipped:
			skipCount++
		default:
			failCount++
			lg := logger.L()
			lg.Error().Str("file", rep.File).Str("reason", rep.Err).Msg("reduction failed")
		}
	}

	if *reportPath != "" {
		if err := reduce.WriteReportCSV(*reportPath, reports); err != nil {
			return err
		}
	}
	return printJSON(map[string]any{
		"success": okCount,
		"skipped": skipCount,
		"failed":  failCount,
		"output":  cfg.OutputDir,
	})
}

func reduce1DFile(path string, cfg config.RunConfig, pol policy.RunPolicy, mode string, monMode norm.Mode, thkCm, exp, i0, trans float64, bgProf, darkProf *profileio.Profile, normBG float64) reduce.SampleReport {
	rep := reduce.SampleReport{
		File:        filepath.Base(path),
		ExpS:        exp,
		Mon:         i0,
		Trans:       trans,
		NormFactor:  math.NaN(),
		ThicknessCM: thkCm,
		BGScore:     math.NaN(),
		DarkScore:   math.NaN(),
	}
	fail := func(err error) reduce.SampleReport {
		rep.Status = reduce.StatusFailed
		rep.Err = err.Error()
		return rep
	}

	stem := strings.TrimSuffix(rep.File, filepath.Ext(rep.File))
	outPath := filepath.Join(cfg.OutputDir, stem+"_abs.dat")
	rep.OutputPath = outPath
	if _, err := os.Stat(outPath); err == nil && pol.ShouldSkipExisting(true) {
		rep.Status = reduce.StatusSkipped
		return rep
	}

	prof, err := profileio.ReadExternal1D(path)
	if err != nil {
		return fail(err)
	}

	var iAbs, errAbs []float64
	scale := cfg.KFactor / thkCm
	if mode == "scaled" {
		iAbs = make([]float64, prof.Len())
		errAbs = make([]float64, prof.Len())
		for k := range prof.X {
			iAbs[k] = prof.Intensity[k] * scale
			errAbs[k] = prof.Err[k] * math.Abs(scale)
		}
		if issue := reduce.ProfileHealthIssue(iAbs); issue != "" {
			return fail(fmt.Errorf("%s", issue))
		}
	} else {
		normS, err := norm.Factor(exp, i0, trans, monMode)
		if err != nil {
			return fail(err)
		}
		if !(normS > 0) || math.IsNaN(normS) {
			return fail(fmt.Errorf("sample normalization factor invalid (use -exp/-i0/-trans)"))
		}
		rep.NormFactor = normS

		bgI, bgE, _, err := subtraction.AlignProfile(prof.X, bgProf.X, bgProf.Intensity, bgProf.Err)
		if err != nil {
			return fail(fmt.Errorf("align background: %w", err))
		}
		var dkI, dkE []float64
		if darkProf != nil {
			dkI, dkE, _, err = subtraction.AlignProfile(prof.X, darkProf.X, darkProf.Intensity, darkProf.Err)
			if err != nil {
				return fail(fmt.Errorf("align dark: %w", err))
			}
		} else {
			dkI = make([]float64, prof.Len())
			dkE = nil
		}

		net, netErr, err := subtraction.NetProfile(prof.Intensity, prof.Err, bgI, bgE, dkI, dkE, normS, normBG)
		if err != nil {
			return fail(err)
		}
		iAbs = make([]float64, len(net))
		errAbs = make([]float64, len(net))
		for k := range net {
			iAbs[k] = net[k] * scale
			errAbs[k] = netErr[k] * math.Abs(scale)
		}
		if issue := reduce.ProfileHealthIssue(iAbs); issue != "" {
			return fail(fmt.Errorf("%s", issue))
		}
	}

	label := profileio.InferXLabel(path, prof)
	if err := profileio.WriteProfileTable(outPath, prof.X, iAbs, errAbs, label, '\t'); err != nil {
		return fail(err)
	}
	rep.Status = reduce.StatusOK
	return rep
}
