/*
NAME
  waveshift.go

DESCRIPTION
  waveshift implements the Wavelength Shift Finder (spec.md §4.5): 1-D
  collapse of the image along the dispersion axis, a 1-D lamp template
  built the same way as the 2-D template builder's per-column profile,
  windowed cross-correlation, and a quadratic sub-pixel peak fit.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package waveshift determines the dispersion-axis shift for the
// grating/prism path by cross-correlating a 1-D collapsed spectrum
// against a 1-D lamp template.
package waveshift

import (
	"github.com/ausocean/utils/logging"

	"github.com/spacetelescope/hstcal-sub005/dispersion"
	"github.com/spacetelescope/hstcal-sub005/fitsio"
	"github.com/spacetelescope/hstcal-sub005/internal/stats"
	"github.com/spacetelescope/hstcal-sub005/refdata"
	"github.com/spacetelescope/hstcal-sub005/shift"
)

var Log logging.Logger

const pkg = "waveshift: "

// ChopExtra is the number of columns the template is trimmed inward by,
// beyond the first/last non-bad columns (spec.md §4.5 step 4).
const ChopExtra = 10

// Collapse result: the 1-D spectrum, its bad-bin mask, and specweight
// (the median-subtracted, negative-clamped spectrum reused by the
// Spatial Shift Finder).
type Collapsed struct {
	Spec       []float64
	Bad        []bool
	SpecWeight []float64
}

// Collapse averages the image across the cross-dispersion trim box for
// each dispersion-axis bin inside the dispersion-axis trim box, ignoring
// pixels with serious DQ bits (spec.md §4.5 step 1-2).
func Collapse(frame *fitsio.PixelFrame, dispAxis int, sdqflags uint16, wcp refdata.WcpParameters) Collapsed {
	dispLen, crossLen := fitsio.AxisLens(frame, dispAxis)
	spec := make([]float64, dispLen)
	bad := make([]bool, dispLen)

	crossLo, crossHi := wcp.SPTrim1, crossLen-1-wcp.SPTrim2
	dispLo, dispHi := wcp.WLTrim1, dispLen-1-wcp.WLTrim2

	for d := 0; d < dispLen; d++ {
		if d < dispLo || d > dispHi {
			bad[d] = true
			continue
		}
		var sum float64
		var n int
		for c := crossLo; c <= crossHi && c < crossLen; c++ {
			if c < 0 {
				continue
			}
			x, y := fitsio.Coord(dispAxis, d, c)
			if frame.Dq(x, y)&sdqflags != 0 {
				continue
			}
			sum += frame.Sci(x, y)
			n++
		}
		if n == 0 {
			bad[d] = true
			continue
		}
		spec[d] = sum / float64(n)
	}

	med := stats.Median(withoutBad(spec, bad))
	weight := make([]float64, dispLen)
	for i, v := range spec {
		w := v - med
		if w < 0 {
			w = 0
		}
		weight[i] = w
	}
	return Collapsed{Spec: spec, Bad: bad, SpecWeight: weight}
}

func withoutBad(v []float64, bad []bool) []float64 {
	out := make([]float64, 0, len(v))
	for i, x := range v {
		if !bad[i] {
			out = append(out, x)
		}
	}
	return out
}

// BuildTemplate1D computes the 1-D lamp template over dispLen bins for
// spectral order m, the same dispersion-to-wavelength-to-integrated-flux
// mapping as the 2-D template builder, then convolves with the slit
// width in pixels (spec.md §4.5 step 3).
func BuildTemplate1D(dispLen int, coord fitsio.CoordParams, dispAxisIdx int, rel *dispersion.Relation, order int, lamp *refdata.LampSpectrum, slitWidthPix float64) []float64 {
	out := make([]float64, dispLen)
	if lamp == nil || rel == nil {
		return out
	}
	ltm := coord.LTM[dispAxisIdx]
	if ltm == 0 {
		ltm = 1
	}
	ltv := coord.LTV[dispAxisIdx]
	for i := 0; i < dispLen; i++ {
		xRefLeft := (float64(i) - 0.5 - ltv) / ltm
		xRefRight := (float64(i) + 0.5 - ltv) / ltm
		wlLeft := rel.Eval(order, xRefLeft)
		wlRight := rel.Eval(order, xRefRight)
		if wlLeft > wlRight {
			wlLeft, wlRight = wlRight, wlLeft
		}
		out[i] = lamp.Integrate(wlLeft, wlRight)
	}
	convolveBoxcarInPlace(out, slitWidthPix)
	return out
}

func convolveBoxcarInPlace(v []float64, width float64) {
	w := int(width + 0.5)
	if w <= 1 {
		return
	}
	start := -(w / 2)
	end := start + w - 1
	out := make([]float64, len(v))
	for i := range v {
		var sum float64
		for k := start; k <= end; k++ {
			j := i + k
			if j >= 0 && j < len(v) {
				sum += v[j]
			}
		}
		out[i] = sum
	}
	copy(v, out)
}

// trimTemplate zeroes templ outside [firstGood+ChopExtra, lastGood-ChopExtra]
// where firstGood/lastGood are the first/last indices with bad[i]==false
// (spec.md §4.5 step 4).
func trimTemplate(templ []float64, bad []bool) {
	first, last := -1, -1
	for i, b := range bad {
		if !b {
			if first == -1 {
				first = i
			}
			last = i
		}
	}
	if first == -1 {
		for i := range templ {
			templ[i] = 0
		}
		return
	}
	lo := first + ChopExtra
	hi := last - ChopExtra
	for i := range templ {
		if i < lo || i > hi {
			templ[i] = 0
		}
	}
}

// Result is the outcome of FindShift: the shift (or shift.Undefined) and
// the specweight vector for reuse by the Spatial Shift Finder.
type Result struct {
	Shift      float64
	SpecWeight []float64
}

// FindShift runs the full wavelength-shift pipeline on one frame.
func FindShift(frame *fitsio.PixelFrame, dispAxis int, sdqflags uint16, wcp refdata.WcpParameters, coord fitsio.CoordParams, rel *dispersion.Relation, order int, lamp *refdata.LampSpectrum, slitWidthPix float64) Result {
	dispAxisIdx := 0
	if dispAxis == 2 {
		dispAxisIdx = 1
	}
	c := Collapse(frame, dispAxis, sdqflags, wcp)
	dispLen := len(c.Spec)
	templ := BuildTemplate1D(dispLen, coord, dispAxisIdx, rel, order, lamp, slitWidthPix)
	trimTemplate(templ, c.Bad)

	s := CrossCorrelate(c.Spec, c.Bad, templ, wcp.WLRange)
	sh, ok := PeakShift(s)
	if !ok {
		if Log != nil {
			Log.Warning(pkg + "cross-correlation peak at window edge, shift undefined")
		}
		return Result{Shift: shift.Undefined, SpecWeight: c.SpecWeight}
	}
	return Result{Shift: sh, SpecWeight: c.SpecWeight}
}

// CrossCorrelate produces the cross-correlation vector of length rng
// (forced odd by the caller's wcp.WLRange) between x (with bad mask) and
// template, per spec.md §4.5 step 5. Each output bin ignores bad pixels
// in x (treated as zero contribution); at least one non-bad pixel must
// contribute or the bin is left at zero.
func CrossCorrelate(x []float64, bad []bool, template []float64, rng int) []float64 {
	out := make([]float64, rng)
	mid := rng / 2
	n := len(x)
	half := rng / 2
	for j := 0; j < rng; j++ {
		lag := mid - j
		var sum float64
		var contributed bool
		for i := half; i < n-half; i++ {
			if bad[i] {
				continue
			}
			ti := i + lag
			if ti < 0 || ti >= len(template) {
				continue
			}
			sum += x[i] * template[ti]
			contributed = true
		}
		if contributed {
			out[j] = sum
		}
	}
	return out
}

// PeakShift locates the cross-correlation peak and returns the sub-pixel
// shift, or ok=false if the peak sits at either end of the window
// (spec.md §4.5 step 6, and §8's boundary-behaviour requirement).
func PeakShift(xcorr []float64) (float64, bool) {
	if len(xcorr) < 3 {
		return 0, false
	}
	idx, _ := stats.ArgMax(xcorr)
	if idx == 0 || idx == len(xcorr)-1 {
		return 0, false
	}
	mid := len(xcorr) / 2
	sub := stats.QuadraticPeak(xcorr[idx-1], xcorr[idx], xcorr[idx+1])
	return float64(idx-mid) + sub, true
}
