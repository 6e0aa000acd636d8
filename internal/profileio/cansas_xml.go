package profileio

import (
	"encoding/xml"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	cansasNS     = "urn:cansas1d:1.1"
	cansasXSI    = "http://www.w3.org/2001/XMLSchema-instance"
	cansasSchema = "urn:cansas1d:1.1 http://www.cansas.org/formats/canSAS1d/1.1/doc/cansas1d.xsd"
)

type cansasValue struct {
	Unit string `xml:"unit,attr,omitempty"`
	Text string `xml:",chardata"`
}

type cansasIdata struct {
	Q    cansasValue  `xml:"Q"`
	I    cansasValue  `xml:"I"`
	Idev *cansasValue `xml:"Idev,omitempty"`
}

type cansasData struct {
	Idata []cansasIdata `xml:"Idata"`
}

type cansasSample struct {
	ID string `xml:"ID"`
}

type cansasSource struct {
	Radiation  string       `xml:"radiation"`
	Wavelength *cansasValue `xml:"wavelength,omitempty"`
}

type cansasDetector struct {
	Name string       `xml:"name"`
	SDD  *cansasValue `xml:"SDD,omitempty"`
}

type cansasInstrument struct {
	Name        string          `xml:"name"`
	Source      cansasSource    `xml:"SASsource"`
	Collimation struct{}        `xml:"SAScollimation"`
	Detector    cansasDetector  `xml:"SASdetector"`
}

type cansasProcess struct {
	Name string `xml:"name"`
}

type cansasEntry struct {
	Name       string           `xml:"name,attr"`
	Title      string           `xml:"Title"`
	Run        string           `xml:"Run"`
	Data       cansasData       `xml:"SASdata"`
	Sample     cansasSample     `xml:"SASsample"`
	Instrument cansasInstrument `xml:"SASinstrument"`
	Process    cansasProcess    `xml:"SASprocess"`
}

type cansasRoot struct {
	XMLName        xml.Name    `xml:"SASroot"`
	Version        string      `xml:"version,attr"`
	Xmlns          string      `xml:"xmlns,attr"`
	XmlnsXSI       string      `xml:"xmlns:xsi,attr"`
	SchemaLocation string      `xml:"xsi:schemaLocation,attr"`
	Entry          cansasEntry `xml:"SASentry"`
}

// read-side structs match by local name only, so namespaced and plain files
// both parse.
type cansasReadRoot struct {
	Entries []struct {
		Data []struct {
			Idata []struct {
				Q    string `xml:"Q"`
				I    string `xml:"I"`
				Idev string `xml:"Idev"`
			} `xml:"Idata"`
		} `xml:"SASdata"`
	} `xml:"SASentry"`
}

// ReadCanSAS1DXML reads a canSAS 1D XML file (urn:cansas1d:1.1, namespaced
// or not) and returns the profile sorted by Q. At least two points are
// required.
func ReadCanSAS1DXML(path string) (*Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	var doc cansasReadRoot
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("canSAS XML parse %s: %w", filepath.Base(path), err)
	}

	var q, inten, errs []float64
	for _, entry := range doc.Entries {
		for _, data := range entry.Data {
			for _, id := range data.Idata {
				qv, err1 := strconv.ParseFloat(strings.TrimSpace(id.Q), 64)
				iv, err2 := strconv.ParseFloat(strings.TrimSpace(id.I), 64)
				if err1 != nil || err2 != nil {
					continue
				}
				q = append(q, qv)
				inten = append(inten, iv)
				if ev, err3 := strconv.ParseFloat(strings.TrimSpace(id.Idev), 64); err3 == nil {
					errs = append(errs, ev)
				} else {
					errs = append(errs, math.NaN())
				}
			}
		}
	}
	if len(q) < 2 {
		return nil, fmt.Errorf("canSAS XML contains too few data points: %s", filepath.Base(path))
	}

	xs, is, es := sortDedup(q, inten, errs)
	return &Profile{
		X: xs, Intensity: is, Err: es,
		XCol: "Q", ICol: "I", ErrCol: "Idev",
	}, nil
}

// WriteCanSAS1DXML writes a profile in canSAS 1D XML format. Points with a
// non-finite error omit the Idev element. Parent directories are created and
// an existing file is overwritten.
func WriteCanSAS1DXML(path string, q, iAbs, errs []float64, meta Metadata) error {
	if len(q) != len(iAbs) {
		return fmt.Errorf("q and intensity length mismatch: %d vs %d", len(q), len(iAbs))
	}
	if errs != nil && len(errs) != len(q) {
		return fmt.Errorf("q and error length mismatch: %d vs %d", len(q), len(errs))
	}

	entry := cansasEntry{
		Name:  "entry01",
		Title: orDefault(meta.Title, "SAXS profile"),
		Run:   orDefault(meta.Run, "001"),
		Sample: cansasSample{
			ID: orDefault(meta.SampleName, "unknown"),
		},
		Instrument: cansasInstrument{
			Name: meta.InstrumentName,
			Source: cansasSource{
				Radiation: "x-ray",
			},
			Detector: cansasDetector{
				Name: meta.DetectorName,
			},
		},
		Process: cansasProcess{
			Name: orDefault(meta.ProcessName, "SAXS absolute calibration"),
		},
	}
	if meta.WavelengthA > 0 {
		entry.Instrument.Source.Wavelength = &cansasValue{
			Unit: "A", Text: formatG(meta.WavelengthA, 6),
		}
	}
	if meta.SDDM > 0 {
		entry.Instrument.Detector.SDD = &cansasValue{
			Unit: "m", Text: formatG(meta.SDDM, 4),
		}
	}

	for idx := range q {
		id := cansasIdata{
			Q: cansasValue{Unit: "1/A", Text: formatG(q[idx], 8)},
			I: cansasValue{Unit: "1/cm", Text: formatG(iAbs[idx], 8)},
		}
		if errs != nil && finite(errs[idx]) {
			id.Idev = &cansasValue{Unit: "1/cm", Text: formatG(errs[idx], 8)}
		}
		entry.Data.Idata = append(entry.Data.Idata, id)
	}

	doc := cansasRoot{
		Version:        "1.1",
		Xmlns:          cansasNS,
		XmlnsXSI:       cansasXSI,
		SchemaLocation: cansasSchema,
		Entry:          entry,
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("canSAS XML marshal: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	payload := append([]byte(xml.Header), out...)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
