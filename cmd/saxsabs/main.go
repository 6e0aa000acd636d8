// Command saxsabs exposes the calibration and reduction core on the
// command line: normalization factors, header parsing, 1D profile
// inspection, K-factor estimation, buffer subtraction, and attenuation
// coefficients.
//
// Usage: saxsabs <command> [options]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/rs/zerolog"

	"saxs-abs/internal/attenuation"
	"saxs-abs/internal/calib"
	"saxs-abs/internal/header"
	"saxs-abs/internal/logger"
	"saxs-abs/internal/norm"
	"saxs-abs/internal/profileio"
	"saxs-abs/internal/standards"
	"saxs-abs/internal/subtraction"
	"saxs-abs/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	logger.Set(logger.NewConsole(zerolog.WarnLevel))

	var err error
	switch os.Args[1] {
	case "norm-factor":
		err = cmdNormFactor(os.Args[2:])
	case "parse-header":
		err = cmdParseHeader(os.Args[2:])
	case "parse-external1d":
		err = cmdParseExternal1D(os.Args[2:])
	case "estimate-k":
		err = cmdEstimateK(os.Args[2:])
	case "subtract":
		err = cmdSubtract(os.Args[2:])
	case "mu":
		err = cmdMu(os.Args[2:])
	case "reduce1d":
		err = cmdReduce1D(os.Args[2:])
	case "version":
		fmt.Printf("saxsabs %s (commit %s, built %s)\n",
			version.Version, version.GitCommit, version.BuildTime)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s <command> [options]

Commands:
  norm-factor       compute the scalar normalization factor
  parse-header      extract exposure/monitor/transmission from header JSON
  parse-external1d  parse a 1D profile file and report column roles
  estimate-k        estimate the absolute-intensity K factor
  subtract          buffer-subtract one 1D profile from another
  mu                linear attenuation coefficient of a material
  reduce1d          convert external 1D profiles to absolute intensity
  version           print version information
`, os.Args[0])
}

func cmdNormFactor(args []string) error {
	fs := flag.NewFlagSet("norm-factor", flag.ExitOnError)
	exp := fs.Float64("exp", math.NaN(), "Exposure time in seconds")
	var mon float64
	fs.Float64Var(&mon, "mon", math.NaN(), "Monitor counts")
	fs.Float64Var(&mon, "i0", math.NaN(), "Monitor counts (alias for -mon)")
	trans := fs.Float64("trans", math.NaN(), "Sample transmission (0,1]")
	mode := fs.String("mode", "rate", "Monitor semantics: rate or integrated")
	fs.Parse(args)

	m, err := norm.ParseMode(*mode)
	if err != nil {
		return err
	}
	factor, err := norm.Factor(*exp, mon, *trans, m)
	if err != nil {
		return err
	}
	fmt.Println(strconv.FormatFloat(factor, 'g', -1, 64))
	return nil
}

func cmdParseHeader(args []string) error {
	fs := flag.NewFlagSet("parse-header", flag.ExitOnError)
	var file string
	fs.StringVar(&file, "header-json", "", "JSON file with the header mapping (default stdin)")
	fs.StringVar(&file, "file", "", "Alias for -header-json")
	fs.Parse(args)

	var raw []byte
	var err error
	if file != "" {
		raw, err = os.ReadFile(file)
	} else {
		raw, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	var hdr map[string]any
	if err := json.Unmarshal(raw, &hdr); err != nil {
		return fmt.Errorf("parse header JSON: %w", err)
	}

	exp, mon, trans := header.ParseHeaderValues(hdr)
	return printJSON(map[string]any{
		"exp_s": jsonNumber(exp),
		"i0":    jsonNumber(mon),
		"trans": jsonNumber(trans),
	})
}

func cmdParseExternal1D(args []string) error {
	fs := flag.NewFlagSet("parse-external1d", flag.ExitOnError)
	input := fs.String("input", "", "1D profile file to parse")
	fs.Parse(args)
	path := *input
	if path == "" && fs.NArg() >= 1 {
		path = fs.Arg(0)
	}
	if path == "" {
		return fmt.Errorf("usage: parse-external1d -input <profile-file>")
	}

	prof, err := profileio.ReadExternal1D(path)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"points":  prof.Len(),
		"x_col":   prof.XCol,
		"i_col":   prof.ICol,
		"err_col": prof.ErrCol,
		"x_label": profileio.InferXLabel(path, prof),
	})
}

func cmdEstimateK(args []string) error {
	fs := flag.NewFlagSet("estimate-k", flag.ExitOnError)
	measPath := fs.String("meas", "", "Measured 1D profile (normalized, per cm)")
	refPath := fs.String("ref", "", "Reference 1D profile file")
	stdKey := fs.String("std", "", "Reference standard key instead of -ref (e.g. SRM3600, Water_20C)")
	tempC := fs.Float64("temp", 20.0, "Water temperature in Celsius (Water_20C only)")
	qMin := fs.Float64("qmin", 0.01, "Lower q bound of the calibration window")
	qMax := fs.Float64("qmax", 0.2, "Upper q bound of the calibration window")
	fs.Parse(args)

	if *measPath == "" {
		return fmt.Errorf("-meas is required")
	}
	meas, err := profileio.ReadExternal1D(*measPath)
	if err != nil {
		return fmt.Errorf("read measured profile: %w", err)
	}

	var qRef, iRef []float64
	switch {
	case *stdKey != "":
		opts := standards.DefaultOptions()
		opts.TemperatureC = *tempC
		opts.QMin, opts.QMax = *qMin, *qMax
		qRef, iRef, err = standards.GetReferenceData(*stdKey, opts)
		if err != nil {
			return err
		}
	case *refPath != "":
		ref, err := profileio.ReadExternal1D(*refPath)
		if err != nil {
			return fmt.Errorf("read reference profile: %w", err)
		}
		qRef, iRef = ref.X, ref.Intensity
	default:
		return fmt.Errorf("one of -ref or -std is required")
	}

	res, err := calib.EstimateKFactorRobust(meas.X, meas.Intensity, qRef, iRef, calib.Options{
		QWindowMin: *qMin,
		QWindowMax: *qMax,
	})
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"k_factor":      res.KFactor,
		"k_std":         res.KStd,
		"q_min_overlap": res.QMinOverlap,
		"q_max_overlap": res.QMaxOverlap,
		"points_used":   res.PointsUsed,
		"points_total":  res.PointsTotal,
	})
}

func cmdSubtract(args []string) error {
	fs := flag.NewFlagSet("subtract", flag.ExitOnError)
	samplePath := fs.String("sample", "", "Sample 1D profile")
	bufferPath := fs.String("buffer", "", "Buffer/solvent 1D profile")
	out := fs.String("o", "", "Output table path (default stdout summary only)")
	alpha := fs.Float64("alpha", 1.0, "Buffer scaling factor")
	fs.Parse(args)

	if *samplePath == "" || *bufferPath == "" {
		return fmt.Errorf("-sample and -buffer are required")
	}
	sample, err := profileio.ReadExternal1D(*samplePath)
	if err != nil {
		return fmt.Errorf("read sample: %w", err)
	}
	buffer, err := profileio.ReadExternal1D(*bufferPath)
	if err != nil {
		return fmt.Errorf("read buffer: %w", err)
	}

	res, err := subtraction.SubtractBuffer(
		sample.X, sample.Intensity, errOrNil(sample),
		buffer.X, buffer.Intensity, errOrNil(buffer),
		*alpha, 0.15, 0.25)
	if err != nil {
		return err
	}

	if *out != "" {
		label := profileio.InferXLabel(*samplePath, sample)
		if err := profileio.WriteProfileTable(*out, res.Q, res.ISubtracted, res.ErrSubtracted, label, '\t'); err != nil {
			return err
		}
	}
	return printJSON(map[string]any{
		"points":               len(res.Q),
		"alpha":                res.Alpha,
		"high_q_residual_mean": res.HighQResidualMean,
		"high_q_check_passed":  res.HighQCheckPassed,
		"output":               *out,
	})
}

func cmdMu(args []string) error {
	fs := flag.NewFlagSet("mu", flag.ExitOnError)
	table := fs.String("table", "", "YAML attenuation coefficient table (required)")
	preset := fs.String("preset", "", "Material preset name (see -list)")
	compStr := fs.String("comp", "", "Composition string, e.g. \"Fe:0.69, Cr:0.19, Ni:0.10, Mn:0.02\"")
	density := fs.Float64("density", 0, "Bulk density in g/cm^3 (required with -comp)")
	energy := fs.Float64("energy", 0, "Photon energy in keV")
	list := fs.Bool("list", false, "List material presets and exit")
	fs.Parse(args)

	if *list {
		for _, key := range attenuation.PresetKeys() {
			p := attenuation.Presets[key]
			fmt.Printf("%-10s %s (rho=%.3f g/cm^3)\n", key, p.DisplayName, p.DensityGCm3)
		}
		return nil
	}
	if *table == "" {
		return fmt.Errorf("-table is required")
	}
	src, err := attenuation.LoadTableSource(*table)
	if err != nil {
		return err
	}

	comp := map[string]float64{}
	rho := *density
	switch {
	case *preset != "":
		p, ok := attenuation.Presets[*preset]
		if !ok {
			return fmt.Errorf("unknown preset %q (use -list)", *preset)
		}
		comp, rho = p.Composition, p.DensityGCm3
	case *compStr != "":
		comp, err = attenuation.ParseCompositionString(*compStr)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("one of -preset or -comp is required")
	}

	res, err := attenuation.CalculateMu(src, comp, rho, *energy)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"mu_rho_cm2_g":     res.MuRhoCm2G,
		"mu_linear_cm_inv": res.MuLinearCmInv,
		"density_g_cm3":    res.DensityGCm3,
		"energy_kev":       res.EnergyKeV,
	})
}

func errOrNil(p *profileio.Profile) []float64 {
	if p.HasErrors() {
		return p.Err
	}
	return nil
}

func jsonNumber(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

