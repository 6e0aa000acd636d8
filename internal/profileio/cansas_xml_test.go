package profileio

import (
	"math"
	"path/filepath"
	"testing"
)

func TestCanSASRoundTrip(t *testing.T) {
	q := []float64{0.01, 0.02, 0.05, 0.1}
	iAbs := []float64{120.5, 60.25, 12.0, 1.5}
	errs := []float64{1.2, 0.8, 0.3, 0.05}

	path := filepath.Join(t.TempDir(), "out.xml")
	meta := Metadata{
		Title:       "glassy carbon",
		SampleName:  "GC-A",
		WavelengthA: 1.5406,
		SDDM:        2.43,
	}
	if err := WriteCanSAS1DXML(path, q, iAbs, errs, meta); err != nil {
		t.Fatalf("WriteCanSAS1DXML: %v", err)
	}

	p, err := ReadCanSAS1DXML(path)
	if err != nil {
		t.Fatalf("ReadCanSAS1DXML: %v", err)
	}
	if p.Len() != len(q) {
		t.Fatalf("Len = %d, want %d", p.Len(), len(q))
	}
	for k := range q {
		if relDiff(p.X[k], q[k]) > 1e-6 {
			t.Errorf("X[%d] = %v, want %v", k, p.X[k], q[k])
		}
		if relDiff(p.Intensity[k], iAbs[k]) > 1e-6 {
			t.Errorf("Intensity[%d] = %v, want %v", k, p.Intensity[k], iAbs[k])
		}
		if relDiff(p.Err[k], errs[k]) > 1e-6 {
			t.Errorf("Err[%d] = %v, want %v", k, p.Err[k], errs[k])
		}
	}
}

func TestCanSASRoundTripNoErrors(t *testing.T) {
	q := []float64{0.01, 0.02, 0.03}
	iAbs := []float64{3.0, 2.0, 1.0}

	path := filepath.Join(t.TempDir(), "noerr.xml")
	if err := WriteCanSAS1DXML(path, q, iAbs, nil, Metadata{}); err != nil {
		t.Fatalf("WriteCanSAS1DXML: %v", err)
	}
	p, err := ReadCanSAS1DXML(path)
	if err != nil {
		t.Fatalf("ReadCanSAS1DXML: %v", err)
	}
	if p.HasErrors() {
		t.Error("HasErrors = true, want false when Idev omitted")
	}
	for k, e := range p.Err {
		if !math.IsNaN(e) {
			t.Errorf("Err[%d] = %v, want NaN", k, e)
		}
	}
}

func TestCanSASReadPlainNamespace(t *testing.T) {
	// Hand-written file without the urn:cansas1d namespace.
	content := `<?xml version="1.0"?>
<SASroot version="1.1">
 <SASentry>
  <SASdata>
   <Idata><Q>0.02</Q><I>5.5</I><Idev>0.2</Idev></Idata>
   <Idata><Q>0.01</Q><I>11.0</I><Idev>0.4</Idev></Idata>
   <Idata><Q>0.03</Q><I>2.75</I></Idata>
  </SASdata>
 </SASentry>
</SASroot>`
	path := writeTemp(t, "plain.xml", content)

	p, err := ReadCanSAS1DXML(path)
	if err != nil {
		t.Fatalf("ReadCanSAS1DXML: %v", err)
	}
	if p.Len() != 3 {
		t.Fatalf("Len = %d, want 3", p.Len())
	}
	if p.X[0] != 0.01 || p.Intensity[0] != 11.0 {
		t.Errorf("points not sorted by Q: X[0]=%v I[0]=%v", p.X[0], p.Intensity[0])
	}
	if !math.IsNaN(p.Err[2]) {
		t.Errorf("Err[2] = %v, want NaN for missing Idev", p.Err[2])
	}
}

func TestCanSASReadTooFewPoints(t *testing.T) {
	path := writeTemp(t, "single.xml", `<?xml version="1.0"?>
<SASroot><SASentry><SASdata>
 <Idata><Q>0.01</Q><I>1.0</I></Idata>
</SASdata></SASentry></SASroot>`)
	if _, err := ReadCanSAS1DXML(path); err == nil {
		t.Fatal("expected error for single-point file")
	}
}

func TestCanSASWriteLengthMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xml")
	if err := WriteCanSAS1DXML(path, []float64{0.01, 0.02}, []float64{1.0}, nil, Metadata{}); err == nil {
		t.Fatal("expected length mismatch error")
	}
}

func TestReadExternal1DXMLFallback(t *testing.T) {
	// An .xml extension with non-XML content falls back to text parsing.
	path := writeTemp(t, "actually_text.xml",
		"0.01 1.0\n0.02 2.0\n0.03 3.0\n")
	p, err := ReadExternal1D(path)
	if err != nil {
		t.Fatalf("ReadExternal1D: %v", err)
	}
	if p.Len() != 3 {
		t.Errorf("Len = %d, want 3", p.Len())
	}
}

func relDiff(a, b float64) float64 {
	d := math.Abs(b)
	if d == 0 {
		return math.Abs(a - b)
	}
	return math.Abs(a-b) / d
}
