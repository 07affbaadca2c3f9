/*
NAME
  debugsink.go

DESCRIPTION
  debugsink implements the "Debug file dispatch" design note (spec.md
  §9): the debug artifact is a text file for gratings/prism and a FITS
  file for echelle. A DebugSink is chosen once the imset header is read
  and used for every imset of the run.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package debugsink provides the -d debug-output destinations used by
// the wavecal driver: a human-readable text sink for grating/prism
// exposures and an image/curve sink for echelle exposures.
package debugsink

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ausocean/utils/logging"
)

// Log is the package-level logger.
var Log logging.Logger

const pkg = "debugsink: "

// Sink is the DebugSink interface from spec.md §9: Text for gratings,
// Image/Curve for echelle and optional plot output.
type Sink interface {
	// Text appends a human-readable line describing one imset's result.
	Text(line string) error

	// Image records a 2-D array (e.g. the echelle template or the
	// cross-correlation surface) under the given label.
	Image(label string, data []float64, nx, ny int) error

	// Curve records a 1-D curve under the given label: TextSink appends
	// it to the text output as a PNG plot, FITSSink stores it as a
	// one-row image. It writes on every call; no path suffix or separate
	// option gates it.
	Curve(label string, y []float64) error

	// Close flushes and closes any open file handle.
	Close() error
}

// ensureFITSSuffix applies spec.md §4.9's "a FITS file whose extension
// matches the convention (add .fits if missing)" rule.
func ensureFITSSuffix(path string) string {
	if strings.HasSuffix(strings.ToLower(path), ".fits") {
		return path
	}
	return path + ".fits"
}

// TextSink is the grating/prism debug sink: a single text file, opened
// once and closed once per spec.md §4.9.
type TextSink struct {
	w io.WriteCloser
}

// NewTextSink wraps an already-open writer (the caller owns opening the
// file at path, per spec.md §4.9's "open a text file once").
func NewTextSink(w io.WriteCloser) *TextSink {
	return &TextSink{w: w}
}

func (s *TextSink) Text(line string) error {
	_, err := io.WriteString(s.w, line+"\n")
	return err
}

func (s *TextSink) Image(label string, data []float64, nx, ny int) error {
	if Log != nil {
		Log.Warning(pkg + "Image() called on a text sink, ignoring: " + label)
	}
	return nil
}

// Curve renders y as a line plot and appends the PNG bytes to the text
// sink's writer, preceded by a marker line naming the curve; an optional
// companion to the teacher's plain HISTORY-style text lines, for the
// cross-correlation curve named in the DOMAIN STACK's gonum/plot entry.
func (s *TextSink) Curve(label string, y []float64) error {
	p := plot.New()
	p.Title.Text = label
	pts := make(plotter.XYs, len(y))
	for i, v := range y {
		pts[i].X = float64(i)
		pts[i].Y = v
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrap(err, "debugsink: building curve plot")
	}
	p.Add(line)

	if _, err := fmt.Fprintf(s.w, "%s: %d samples, PNG follows\n", label, len(y)); err != nil {
		return err
	}
	wt, err := p.WriterTo(4*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return errors.Wrap(err, "debugsink: rendering curve plot")
	}
	_, err = wt.WriteTo(s.w)
	return err
}

func (s *TextSink) Close() error { return s.w.Close() }

// FITSSink is the echelle debug sink: a single FITS-like file receiving
// the template and/or DQ arrays as named image extensions.
type FITSSink struct {
	Path string

	extensions map[string][]float64
	shapes     map[string][2]int
}

// NewFITSSink prepares an echelle debug sink targeting path, normalising
// its extension per spec.md §4.9.
func NewFITSSink(path string) *FITSSink {
	return &FITSSink{
		Path:       ensureFITSSuffix(path),
		extensions: make(map[string][]float64),
		shapes:     make(map[string][2]int),
	}
}

func (s *FITSSink) Text(line string) error {
	if Log != nil {
		Log.Debug(pkg + "Text() called on a FITS sink, ignoring: " + line)
	}
	return nil
}

func (s *FITSSink) Image(label string, data []float64, nx, ny int) error {
	if len(data) != nx*ny {
		return errors.Errorf("debugsink: image %q has %d samples, want %d (%dx%d)", label, len(data), nx*ny, nx, ny)
	}
	cp := make([]float64, len(data))
	copy(cp, data)
	s.extensions[label] = cp
	s.shapes[label] = [2]int{nx, ny}
	return nil
}

func (s *FITSSink) Curve(label string, y []float64) error {
	return s.Image(label, y, len(y), 1)
}

// Extensions returns the recorded image extensions, for tests and for
// the real FITS writer collaborator to consume.
func (s *FITSSink) Extensions() map[string][]float64 { return s.extensions }

func (s *FITSSink) Close() error { return nil }
