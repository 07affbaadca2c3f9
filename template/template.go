/*
NAME
  template.go

DESCRIPTION
  template implements the Template Builder (spec.md §4.3): it resamples
  the lamp spectrum to the pixel grid through the dispersion relation,
  convolves it with the slit width, and paints the result into a 2-D
  template along every spectral trace.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package template builds the 2-D synthetic wavecal image ("template")
// that the wavelength/spatial/echelle shift finders cross-correlate
// against the observed frame.
package template

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spacetelescope/hstcal-sub005/dispersion"
	"github.com/spacetelescope/hstcal-sub005/fitsio"
	"github.com/spacetelescope/hstcal-sub005/refdata"
)

// ParseApertureFOV parses a "WxH" aperture field-of-view string (arcsec)
// as used in ImsetHeader.ApertureFOV.
func ParseApertureFOV(s string) (w, h float64, err error) {
	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("template: malformed aperture FOV %q", s)
	}
	w, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("template: malformed aperture FOV width %q: %w", s, err)
	}
	h, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("template: malformed aperture FOV height %w", err)
	}
	return w, h, nil
}

// Builder holds everything needed to paint a 2-D template; it is reused
// across imsets of the same exposure since reference data is immutable
// for the run (spec.md §5 "Shared resources").
type Builder struct {
	Coord    fitsio.CoordParams
	DispAxis int
	Lamp     *refdata.LampSpectrum
	Disp     *dispersion.Relation
	Traces   *dispersion.List
	Aper     refdata.ApertureDescription

	// EchelleSlitAngle tilts each painted row by round(angle*(j-y_im))
	// pixels, for the echelle long-slit option (spec.md §4.3).
	EchelleSlitAngle float64

	// InverseTol is the Newton-iteration tolerance used when inverting
	// the dispersion relation; defaults to dispersion.InverseTolDefault
	// when zero.
	InverseTol float64

	fov string // Aperture field-of-view "WxH" string, set via WithFOV.
}

// slitWidthPixels converts the aperture FOV "WxH" (arcsec) to an image
// pixel width along the dispersion axis and a pixel height along the
// cross-dispersion axis, scaled by LTM to account for on-chip binning
// (spec.md §4.3 step 2). For a uniform-lamp aperture, the cross-
// dispersion "PSF" boxcar is the full aperture height rather than the
// telescope PSF, per spec.md §3.
func (b *Builder) slitWidthPixels(fovW, fovH float64) (dispPix, crossPix float64) {
	dispAxisIdx, crossAxisIdx := 0, 1
	if b.DispAxis == 2 {
		dispAxisIdx, crossAxisIdx = 1, 0
	}
	cdeltDisp := b.Coord.CDELT[dispAxisIdx]
	cdeltCross := b.Coord.CDELT[crossAxisIdx]
	if cdeltDisp == 0 {
		cdeltDisp = 1
	}
	if cdeltCross == 0 {
		cdeltCross = 1
	}
	dispPix = fovW / cdeltDisp * b.Coord.LTM[dispAxisIdx]
	crossPix = fovH / cdeltCross * b.Coord.LTM[crossAxisIdx]
	return dispPix, crossPix
}

// Build paints the 2-D template on a frame of shape (nx, ny).
func (b *Builder) Build(nx, ny int) []float64 {
	out := make([]float64, nx*ny)
	if b.Traces == nil || b.Lamp == nil || b.Disp == nil {
		return out
	}

	fovW, fovH := 0.0, 0.0
	if w, h, err := ParseApertureFOV(mustFOV(b)); err == nil {
		fovW, fovH = w, h
	}
	slitDispPix, slitCrossPix := b.slitWidthPixels(fovW, fovH)
	if b.Aper.UniformLamp {
		// Replace the telescope PSF boxcar with the full aperture
		// height; slitCrossPix already is the aperture height in image
		// pixels, so nothing further to do beyond documenting intent.
		_ = slitCrossPix
	}

	dispLen, crossLen := fitsio.AxisLens(&fitsio.PixelFrame{Nx: nx, Ny: ny}, b.DispAxis)

	for _, rec := range b.Traces.Records() {
		// Skip if the middle of the trace maps outside the image
		// (spec.md §4.3 step 3).
		yTraceMid := b.Coord.LTM[1]*rec.A2Center + b.Coord.LTV[1]
		if yTraceMid < 0 || yTraceMid >= float64(crossLen) {
			continue
		}

		order := rec.Order
		if b.Disp.IsEchelle {
			b.Disp.ApplyA4(order)
		}

		profile := make([]float64, dispLen)
		for i := 0; i < dispLen; i++ {
			xRefLeft := float64(i) - 0.5
			xRefRight := float64(i) + 0.5
			xRefLeft = (xRefLeft - b.Coord.LTV[0]) / nonZero(b.Coord.LTM[0])
			xRefRight = (xRefRight - b.Coord.LTV[0]) / nonZero(b.Coord.LTM[0])

			wlLeft := b.Disp.Eval(order, xRefLeft)
			wlRight := b.Disp.Eval(order, xRefRight)
			if wlLeft > wlRight {
				wlLeft, wlRight = wlRight, wlLeft
			}
			profile[i] = b.Lamp.Integrate(wlLeft, wlRight)
		}
		if b.Disp.IsEchelle {
			b.Disp.Reset()
		}

		boxcarConvolve(profile, slitDispPix)

		yTrace := yTraceMid
		halfHeight := int(slitCrossPix/2 + 0.5)
		for j := -halfHeight; j <= halfHeight; j++ {
			yRow := int(yTrace) + j
			if yRow < 0 || yRow >= crossLen {
				continue
			}
			shiftPix := 0
			if b.EchelleSlitAngle != 0 {
				shiftPix = roundInt(b.EchelleSlitAngle * (float64(yRow) - yTrace))
			}
			for i := 0; i < dispLen; i++ {
				di := i + shiftPix
				if di < 0 || di >= dispLen {
					continue
				}
				x, y := fitsio.Coord(b.DispAxis, di, yRow)
				if x < 0 || x >= nx || y < 0 || y >= ny {
					continue
				}
				out[y*nx+x] += profile[i]
			}
		}
	}
	return out
}

func mustFOV(b *Builder) string {
	// The builder itself does not own ApertureFOV (it lives on
	// ImsetHeader); callers set it via WithFOV. Kept as a function so
	// Build can be called before WithFOV is wired without panicking.
	return b.fov
}

// WithFOV sets the aperture field-of-view string ("WxH" arcsec) read
// from the imset header, and returns the builder for chaining.
func (b *Builder) WithFOV(fov string) *Builder {
	b.fov = fov
	return b
}

func nonZero(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

func roundInt(v float64) int {
	if v >= 0 {
		return int(v + 0.5)
	}
	return -int(-v + 0.5)
}

// boxcarConvolve convolves profile in place with a boxcar of the given
// width in pixels, via a moving sum (spec.md §4.3 step 3). The window
// spans exactly w samples (w/2 before the centre, the rest after), so
// that a column far from any edge integrates exactly w cells of a
// constant-valued profile, matching the template round-trip law of
// spec.md §8.
func boxcarConvolve(profile []float64, width float64) {
	w := int(width + 0.5)
	if w <= 1 {
		return
	}
	start := -(w / 2)
	end := start + w - 1
	out := make([]float64, len(profile))
	var sum float64
	for i := start; i <= end; i++ {
		if i >= 0 && i < len(profile) {
			sum += profile[i]
		}
	}
	out[0] = sum
	for i := 1; i < len(profile); i++ {
		drop := i + start - 1
		add := i + end
		if drop >= 0 && drop < len(profile) {
			sum -= profile[drop]
		}
		if add >= 0 && add < len(profile) {
			sum += profile[add]
		}
		out[i] = sum
	}
	copy(profile, out)
}
