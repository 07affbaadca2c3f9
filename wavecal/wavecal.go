/*
NAME
  wavecal.go

DESCRIPTION
  wavecal is the Driver / Imset Loop (spec.md §4.9): it opens the
  primary header, iterates imsets in ascending extver order, and for
  each processed imset runs the Reference Loader, the CR Flagger (CCD
  only), the echelle 2-D path or the grating/prism wavelength-then-
  spatial path, scales the resulting shift pair to reference pixels,
  writes the SHIFTA1/SHIFTA2 keywords, and on the first processed imset
  appends HISTORY records naming the reference tables consulted.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package wavecal orchestrates the shift-finding pipeline across every
// imset of one exposure.
package wavecal

import (
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/ausocean/utils/logging"

	"github.com/spacetelescope/hstcal-sub005/crflag"
	"github.com/spacetelescope/hstcal-sub005/echelle"
	"github.com/spacetelescope/hstcal-sub005/fitsio"
	"github.com/spacetelescope/hstcal-sub005/internal/debugsink"
	"github.com/spacetelescope/hstcal-sub005/refdata"
	"github.com/spacetelescope/hstcal-sub005/shift"
	"github.com/spacetelescope/hstcal-sub005/spatial"
	"github.com/spacetelescope/hstcal-sub005/template"
	"github.com/spacetelescope/hstcal-sub005/wavecal/config"
	"github.com/spacetelescope/hstcal-sub005/waveshift"
)

// Log is the package-level logger.
var Log logging.Logger

const pkg = "wavecal: "

// Run processes every imset of host in ascending extver order, per
// spec.md §4.9/§5. reader supplies on-disk reference tables. When
// cfg.DebugPath is set, the debug sink is opened once, on the first
// processed imset, as a text file for grating/prism or a FITS file for
// echelle (spec.md §4.9, §9's "Debug file dispatch"), and closed once at
// the end of the run. A non-nil error here is a setup or runtime-
// exhaustion failure (spec.md §7) and is fatal for the whole invocation;
// imset-level failures are logged and do not stop the loop.
func Run(host fitsio.ExtensionHost, cfg *config.Config, reader refdata.TableReader) error {
	n := host.NumImsets()
	historyWritten := false

	var sink debugsink.Sink
	defer func() {
		if sink != nil {
			if err := sink.Close(); err != nil && Log != nil {
				Log.Warning(pkg+"closing debug sink", "error", err.Error())
			}
		}
	}()

	for i := 1; i <= n; i++ {
		hdr, frame, err := host.OpenImset(i)
		if err != nil {
			return errors.Wrapf(err, "wavecal: opening imset %d", i)
		}

		if !hdr.ImsetOK {
			if Log != nil {
				Log.Warning(pkg+"skipping imset, imset_ok is false", "imset", i)
			}
			continue
		}

		if sink == nil && cfg.DebugPath != "" {
			sink, err = openDebugSink(cfg.DebugPath, hdr.Disperser)
			if err != nil {
				return errors.Wrap(err, "wavecal: opening debug sink")
			}
		}

		pair, sources, err := processImset(hdr, frame, cfg, reader, sink)
		if err != nil {
			return errors.Wrapf(err, "wavecal: imset %d", i)
		}

		refPair := scaleToReferencePixels(pair, hdr)
		if err := host.WriteShifts(i, refPair.A1, refPair.A2); err != nil {
			return errors.Wrapf(err, "wavecal: writing shifts for imset %d", i)
		}

		if !historyWritten && len(sources) > 0 {
			if err := host.AppendHistory(historyLines(sources)); err != nil {
				return errors.Wrapf(err, "wavecal: appending history")
			}
			historyWritten = true
		}
	}
	return nil
}

// openDebugSink picks the text or FITS debug sink based on the
// disperser class of the first processed imset (spec.md §9).
func openDebugSink(path string, disperser fitsio.DisperserClass) (debugsink.Sink, error) {
	if disperser == fitsio.Echelle {
		return debugsink.NewFITSSink(path), nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return debugsink.NewTextSink(f), nil
}

// scaleToReferencePixels converts an image-pixel shift pair to reference
// pixels by multiplying by 1/LTM (spec.md §4.9), swapping which keyword
// the wavelength/spatial shifts map to when DISPAXIS=2.
func scaleToReferencePixels(pair shift.Pair, hdr *fitsio.ImsetHeader) shift.Pair {
	ltm0, ltm1 := hdr.Coord.LTM[0], hdr.Coord.LTM[1]
	if ltm0 == 0 {
		ltm0 = 1
	}
	if ltm1 == 0 {
		ltm1 = 1
	}
	scaled := pair.Scale(1/ltm0, 1/ltm1)
	if hdr.DispAxis == 2 {
		return shift.Pair{A1: scaled.A2, A2: scaled.A1}
	}
	return scaled
}

// historyLines turns a Bundle's Sources list into HISTORY records, per
// spec.md §4.9 "append HISTORY records... noting which reference tables
// contributed" (recovered from original_source's history4.c, see
// DESIGN.md).
func historyLines(sources []string) []string {
	lines := make([]string, 0, len(sources)+1)
	lines = append(lines, "WAVECAL reference tables used:")
	for _, s := range sources {
		lines = append(lines, "  "+s)
	}
	return lines
}

// processImset runs the Reference Loader followed by the disperser-
// appropriate shift-finding path for one imset, returning the raw
// image-pixel shift pair and the reference-table sources consulted.
func processImset(hdr *fitsio.ImsetHeader, frame *fitsio.PixelFrame, cfg *config.Config, reader refdata.TableReader, sink debugsink.Sink) (shift.Pair, []string, error) {
	h := headerAdapter{hdr: hdr, cfg: cfg}
	bundle, status, err := refdata.Load(h, reader, hdr.Disperser)
	if err != nil {
		return shift.UndefinedPair(), nil, err
	}
	if status == refdata.StatusNothingToDo {
		if Log != nil {
			Log.Warning(pkg + "reference table DUMMY: nothing to do for this imset")
		}
		return shift.UndefinedPair(), nil, nil
	}

	if hdr.Detector == fitsio.CCD {
		crflag.Flag(frame, hdr.DispAxis, hdr.SDQFlags, bundle.WCP)
	}

	var pair shift.Pair
	switch hdr.Disperser {
	case fitsio.Echelle:
		pair = findEchelleShift(hdr, frame, bundle, cfg, sink)
	default:
		pair = findGratingOrPrismShift(hdr, frame, bundle, sink)
	}

	return pair, bundle.Sources, nil
}

// findEchelleShift runs the Echelle 2-D Shift Finder (spec.md §4.8): a
// full 2-D synthetic template is painted for every order, then
// cross-correlated in the frequency domain against the observed frame.
func findEchelleShift(hdr *fitsio.ImsetHeader, frame *fitsio.PixelFrame, bundle *refdata.Bundle, cfg *config.Config, sink debugsink.Sink) shift.Pair {
	b := &template.Builder{
		Coord:            hdr.Coord,
		DispAxis:         hdr.DispAxis,
		Lamp:             bundle.Lamp,
		Disp:             bundle.Disp,
		Traces:           bundle.Traces,
		Aper:             bundle.Aper,
		EchelleSlitAngle: cfg.EchelleSlitAngleRad(),
	}
	b = b.WithFOV(hdr.ApertureFOV)
	tmpl := b.Build(frame.Nx, frame.Ny)

	if sink != nil {
		_ = sink.Image("echelle_template", tmpl, frame.Nx, frame.Ny)
	}

	wShift, sShift, ok := echelle.FindShift2D(tmpl, frame.SCI, frame.Nx, frame.Ny)
	if !ok {
		if Log != nil {
			Log.Warning(pkg + "echelle shift-finding failed, peak at grid edge")
		}
		return shift.UndefinedPair()
	}
	return shift.Pair{A1: wShift, A2: sShift}
}

// findGratingOrPrismShift runs the Wavelength Shift Finder followed by
// the Spatial Shift Finder (spec.md §4.5/§4.6/§4.7), dispatching to the
// appropriate slit-class path.
func findGratingOrPrismShift(hdr *fitsio.ImsetHeader, frame *fitsio.PixelFrame, bundle *refdata.Bundle, sink debugsink.Sink) shift.Pair {
	dispAxisIdx := 0
	if hdr.DispAxis == 2 {
		dispAxisIdx = 1
	}
	order := hdr.SpectralOrder

	fovW, _, _ := template.ParseApertureFOV(hdr.ApertureFOV)
	cdeltDisp := hdr.Coord.CDELT[dispAxisIdx]
	if cdeltDisp == 0 {
		cdeltDisp = 1
	}
	slitWidthPix := fovW / cdeltDisp

	wr := waveshift.FindShift(frame, hdr.DispAxis, hdr.SDQFlags, bundle.WCP, hdr.Coord, bundle.Disp, order, bundle.Lamp, slitWidthPix)
	if sink != nil {
		_ = sink.Curve("wavelength_xcorr", wr.SpecWeight)
		_ = sink.Text("wavelength shift = " + formatShift(wr.Shift))
	}

	var profile []float64
	var bad []bool
	if hdr.Disperser == fitsio.Prism && bundle.Traces != nil && bundle.Traces.Len() > 0 {
		rec := bundle.Traces.At(0)
		trace := bundle.Traces.Interpolate(rec.A2Center)
		profile, bad = spatial.CollapseAlongTrace(frame, hdr.DispAxis, hdr.SDQFlags, wr.SpecWeight, bundle.WCP, trace)
	} else {
		profile, bad = spatial.CollapseAlongDispersion(frame, hdr.DispAxis, hdr.SDQFlags, wr.SpecWeight, bundle.WCP)
	}

	class := spatial.ClassifySlit(hdr.Aperture)
	crossAxisIdx := 1 - dispAxisIdx
	cdeltCross := hdr.Coord.CDELT[crossAxisIdx]
	if cdeltCross == 0 {
		cdeltCross = 1
	}
	spShift, ok, warn := spatial.FindShift(class, profile, bad, bundle.Aper, cdeltCross, bundle.WCP.SPRange)
	if warn && Log != nil {
		Log.Warning(pkg + "spatial shift-finding reported a warning-level disagreement")
	}
	if sink != nil {
		_ = sink.Text("spatial shift = " + formatShift(spShift))
	}

	pair := shift.Pair{A1: wr.Shift, A2: shift.Undefined}
	if ok {
		pair.A2 = spShift
	}
	return pair
}

// formatShift renders a shift value for the debug text sink, spelling
// out the sentinel rather than printing -9999.
func formatShift(v float64) string {
	if v == shift.Undefined {
		return "UNDEFINED"
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// headerAdapter adapts a fitsio.ImsetHeader plus the run's Config into
// the fitsio.Header the Reference Loader selects against: the primary-
// header selection keys come from the imset metadata while the
// reference-file bindings come from the exposure context (spec.md §3's
// "list of reference-file name/keyword bindings").
type headerAdapter struct {
	hdr *fitsio.ImsetHeader
	cfg *config.Config
}

func (h headerAdapter) OptElem() string    { return h.hdr.Grating }
func (h headerAdapter) CenWave() int       { return h.hdr.CenWave }
func (h headerAdapter) Detector() fitsio.Detector { return h.hdr.Detector }
func (h headerAdapter) LampSet() string    { return h.hdr.LampSet }
func (h headerAdapter) SCLamp() string     { return h.hdr.SCLamp }
func (h headerAdapter) Aperture() string   { return h.hdr.Aperture }

func (h headerAdapter) ReferenceFile(keyword string) string {
	if f := h.cfg.ReferenceFile(keyword); f != "" {
		return f
	}
	return fitsio.NotApplicable
}
