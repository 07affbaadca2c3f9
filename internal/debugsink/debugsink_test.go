package debugsink

import (
	"bytes"
	"testing"
)

type nopWriteCloser struct {
	bytes.Buffer
	closed bool
}

func (w *nopWriteCloser) Close() error {
	w.closed = true
	return nil
}

func TestEnsureFITSSuffixAddsWhenMissing(t *testing.T) {
	cases := map[string]string{
		"debug":      "debug.fits",
		"debug.fits": "debug.fits",
		"debug.FITS": "debug.FITS",
		"debug.txt":  "debug.txt.fits",
	}
	for in, want := range cases {
		if got := ensureFITSSuffix(in); got != want {
			t.Errorf("ensureFITSSuffix(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewFITSSinkNormalisesPath(t *testing.T) {
	s := NewFITSSink("out")
	if s.Path != "out.fits" {
		t.Errorf("Path = %q, want out.fits", s.Path)
	}
}

func TestFITSSinkImageRejectsShapeMismatch(t *testing.T) {
	s := NewFITSSink("out")
	if err := s.Image("bad", []float64{1, 2, 3}, 2, 2); err == nil {
		t.Errorf("Image() with a mismatched shape returned nil error")
	}
}

func TestFITSSinkImageRoundTripsThroughExtensions(t *testing.T) {
	s := NewFITSSink("out")
	data := []float64{1, 2, 3, 4}
	if err := s.Image("template", data, 2, 2); err != nil {
		t.Fatalf("Image() = %v", err)
	}
	got := s.Extensions()["template"]
	if len(got) != len(data) {
		t.Fatalf("Extensions()[template] has %d samples, want %d", len(got), len(data))
	}
	for i := range data {
		if got[i] != data[i] {
			t.Errorf("Extensions()[template][%d] = %v, want %v", i, got[i], data[i])
		}
	}
	// The stored copy must be independent of the caller's slice.
	data[0] = 99
	if got[0] == 99 {
		t.Errorf("FITSSink.Image aliased the caller's slice instead of copying it")
	}
}

func TestFITSSinkCurveStoresAsOneRowImage(t *testing.T) {
	s := NewFITSSink("out")
	y := []float64{0.1, 0.2, 0.3}
	if err := s.Curve("xcorr", y); err != nil {
		t.Fatalf("Curve() = %v", err)
	}
	if len(s.Extensions()["xcorr"]) != len(y) {
		t.Errorf("Curve did not record %d samples", len(y))
	}
}

func TestFITSSinkTextIsANoOp(t *testing.T) {
	s := NewFITSSink("out")
	if err := s.Text("ignored"); err != nil {
		t.Errorf("Text() on a FITS sink = %v, want nil", err)
	}
}

func TestTextSinkTextAppendsNewline(t *testing.T) {
	w := &nopWriteCloser{}
	s := NewTextSink(w)
	if err := s.Text("wavelength shift = 1.000"); err != nil {
		t.Fatalf("Text() = %v", err)
	}
	if w.String() != "wavelength shift = 1.000\n" {
		t.Errorf("Text() wrote %q", w.String())
	}
}

func TestTextSinkImageIsIgnored(t *testing.T) {
	w := &nopWriteCloser{}
	s := NewTextSink(w)
	if err := s.Image("ignored", []float64{1, 2}, 2, 1); err != nil {
		t.Errorf("Image() on a text sink = %v, want nil", err)
	}
	if w.Len() != 0 {
		t.Errorf("Image() on a text sink wrote to the underlying writer")
	}
}

func TestTextSinkCloseClosesTheUnderlyingWriter(t *testing.T) {
	w := &nopWriteCloser{}
	s := NewTextSink(w)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if !w.closed {
		t.Errorf("Close() did not close the underlying writer")
	}
}
