/*
NAME
  spatial.go

DESCRIPTION
  spatial implements the Spatial Shift Finder (spec.md §4.6): slit-type
  dispatch over the aperture name, short/medium echelle-slit boxcar and
  edge-mask cross-correlation, and the hand-off to the long-slit
  occulting-bar finder (bars.go) or the prism trace-following subpath
  (prism.go).

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package spatial determines the cross-dispersion-direction shift for
// the grating/prism path: it classifies the aperture's slit type and
// dispatches to a boxcar, edge-mask, or occulting-bar algorithm.
package spatial

import (
	"strconv"
	"strings"

	"github.com/ausocean/utils/logging"

	"github.com/spacetelescope/hstcal-sub005/fitsio"
	"github.com/spacetelescope/hstcal-sub005/internal/stats"
	"github.com/spacetelescope/hstcal-sub005/refdata"
	"github.com/spacetelescope/hstcal-sub005/shift"
)

// Log is the package-level logger.
var Log logging.Logger

const pkg = "spatial: "

// MaxDiffError and MaxDiffWarning are the per-pixel disagreement
// thresholds shared by the medium-slit edge finder and the occulting-bar
// combiner (spec.md §4.6/§4.7).
const (
	MaxDiffError   = 10.0
	MaxDiffWarning = 5.0
)

// SlitClass enumerates the slit-length buckets of spec.md §4.6,
// recovered from original_source/lib/cs4/whichslit.c as a single
// exported classifier rather than inlined string parsing at each call
// site.
type SlitClass int

const (
	Unknown SlitClass = iota
	ShortEchelle
	MediumEchelle
	LongSlit
)

func (c SlitClass) String() string {
	switch c {
	case ShortEchelle:
		return "short-echelle"
	case MediumEchelle:
		return "medium-echelle"
	case LongSlit:
		return "long-slit"
	default:
		return "unknown"
	}
}

// ClassifySlit parses a STIS aperture name of the form "<length>X<width>"
// (e.g. "52X0.2", "0.3X0.05E1") and buckets it by slit length in arcsec
// per spec.md §4.6: short < 5, medium [5, 7), long >= 7.
func ClassifySlit(apertureName string) SlitClass {
	length, ok := parseSlitLength(apertureName)
	if !ok {
		return Unknown
	}
	switch {
	case length < 5:
		return ShortEchelle
	case length < 7:
		return MediumEchelle
	default:
		return LongSlit
	}
}

func parseSlitLength(name string) (float64, bool) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	idx := strings.IndexByte(upper, 'X')
	if idx <= 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(upper[:idx], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// BoxcarTemplate builds the boxcar slit profile used by the short-slit
// path: width pixels of 1.0 centred on the profile, zero elsewhere
// (spec.md §4.6 "build a boxcar template of the slit image").
func BoxcarTemplate(length int, widthPix float64) []float64 {
	out := make([]float64, length)
	w := int(widthPix + 0.5)
	if w <= 0 {
		return out
	}
	start := length/2 - w/2
	end := start + w - 1
	for i := start; i <= end; i++ {
		if i >= 0 && i < length {
			out[i] = 1
		}
	}
	return out
}

// ShortSlitShift cross-correlates profile against a boxcar template of
// the slit width, windowed to spRange (forced odd), and returns the
// sub-pixel peak offset or shift.Undefined on failure.
func ShortSlitShift(profile []float64, bad []bool, widthPix float64, spRange int) float64 {
	templ := BoxcarTemplate(len(profile), widthPix)
	xc := crossCorrelate1D(profile, bad, templ, spRange)
	idx, ok := peakIndex(xc)
	if !ok {
		return shift.Undefined
	}
	mid := spRange / 2
	sub := stats.QuadraticPeak(xc[idx-1], xc[idx], xc[idx+1])
	return float64(idx-mid) + sub
}

// crossCorrelate1D is the windowed cross-correlation of spec.md §4.5
// step 5, shared by the short-slit and occulting-bar paths.
func crossCorrelate1D(x []float64, bad []bool, template []float64, rng int) []float64 {
	out := make([]float64, rng)
	mid := rng / 2
	n := len(x)
	half := rng / 2
	for j := 0; j < rng; j++ {
		lag := mid - j
		var sum float64
		var contributed bool
		for i := half; i < n-half; i++ {
			if bad != nil && i < len(bad) && bad[i] {
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

func peakIndex(xc []float64) (int, bool) {
	if len(xc) < 3 {
		return 0, false
	}
	idx, _ := stats.ArgMax(xc)
	if idx == 0 || idx == len(xc)-1 {
		return 0, false
	}
	return idx, true
}

// findEdge cross-correlates profile against a {-1, 0, +1} edge mask
// (reversed to {+1, 0, -1} when rising is false, so a falling edge also
// gives a positive peak) inside a +/- spRange/2 window around
// expectedCenter, returning the sub-pixel edge location (in profile index
// units) or shift.Undefined on failure. Kept distinct from the
// occulting-bar cross-correlation per SUPPLEMENTED FEATURE #2, matching
// original_source's findedge.c being its own file.
func findEdge(profile []float64, bad []bool, expectedCenter int, spRange int, rising bool) float64 {
	mask := []float64{-1, 0, 1}
	if !rising {
		mask = []float64{1, 0, -1}
	}
	lo := expectedCenter - spRange/2
	hi := expectedCenter + spRange/2
	if lo < 1 {
		lo = 1
	}
	if hi > len(profile)-2 {
		hi = len(profile) - 2
	}
	if hi <= lo {
		return shift.Undefined
	}

	n := hi - lo + 1
	xc := make([]float64, n)
	for k := 0; k < n; k++ {
		i := lo + k
		if (bad != nil && (isBadAt(bad, i-1) || isBadAt(bad, i) || isBadAt(bad, i+1))) {
			continue
		}
		xc[k] = mask[0]*profile[i-1] + mask[1]*profile[i] + mask[2]*profile[i+1]
	}

	idx, ok := peakIndex(xc)
	if !ok {
		return shift.Undefined
	}
	sub := stats.QuadraticPeak(xc[idx-1], xc[idx], xc[idx+1])
	return float64(lo+idx) + sub
}

func isBadAt(bad []bool, i int) bool {
	if i < 0 || i >= len(bad) {
		return false
	}
	return bad[i]
}

// MediumSlitShift finds the lower and upper slit edges independently via
// findEdge and averages them, per spec.md §4.6. The a-priori edge
// locations, in profile-index units, are center minus and plus
// halfWidthPix (rounded); the lower edge is searched as a rising edge and
// the upper as a falling one. spRange is the search-window width (forced
// odd).
func MediumSlitShift(profile []float64, bad []bool, center int, halfWidthPix float64, spRange int) (result float64, ok bool, warn bool) {
	lowerExpected := center - int(halfWidthPix+0.5)
	upperExpected := center + int(halfWidthPix+0.5)

	lowerEdge := findEdge(profile, bad, lowerExpected, spRange, true)
	upperEdge := findEdge(profile, bad, upperExpected, spRange, false)

	lowerOK := lowerEdge != shift.Undefined
	upperOK := upperEdge != shift.Undefined
	if !lowerOK && !upperOK {
		return shift.Undefined, false, false
	}
	if lowerOK && !upperOK {
		return lowerEdge - float64(lowerExpected), true, false
	}
	if upperOK && !lowerOK {
		return upperEdge - float64(upperExpected), true, false
	}

	lowerShift := lowerEdge - float64(lowerExpected)
	upperShift := upperEdge - float64(upperExpected)
	diff := absDiff(lowerShift, upperShift)
	if diff > MaxDiffError {
		if Log != nil {
			Log.Warning(pkg+"medium-slit edges disagree beyond MAX_DIFF_ERROR", "diff", diff)
		}
		return shift.Undefined, false, false
	}
	avg := 0.5 * (lowerShift + upperShift)
	if diff > MaxDiffWarning {
		if Log != nil {
			Log.Warning(pkg+"medium-slit edges disagree beyond MAX_DIFF_WARNING", "diff", diff)
		}
		return avg, true, true
	}
	return avg, true, false
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}

// CollapseAlongDispersion averages the frame along the dispersion axis
// within the wavelength trim box, weighted by specWeight (the wavelength
// finder's median-subtracted spectrum), producing the 1-D
// cross-dispersion profile that every non-prism spatial path starts
// from (spec.md §4.6).
func CollapseAlongDispersion(frame *fitsio.PixelFrame, dispAxis int, sdqflags uint16, specWeight []float64, wcp refdata.WcpParameters) (profile []float64, bad []bool) {
	dispLen, crossLen := fitsio.AxisLens(frame, dispAxis)
	profile = make([]float64, crossLen)
	bad = make([]bool, crossLen)

	dispLo, dispHi := wcp.WLTrim1, dispLen-1-wcp.WLTrim2

	for c := 0; c < crossLen; c++ {
		var sum, wsum float64
		for d := dispLo; d <= dispHi && d < dispLen; d++ {
			if d < 0 {
				continue
			}
			x, y := fitsio.Coord(dispAxis, d, c)
			if frame.Dq(x, y)&sdqflags != 0 {
				continue
			}
			w := 1.0
			if d < len(specWeight) {
				w = specWeight[d]
			}
			sum += w * frame.Sci(x, y)
			wsum += w
		}
		if wsum == 0 {
			bad[c] = true
			continue
		}
		profile[c] = sum / wsum
	}
	return profile, bad
}

// FindShift dispatches on slit class and returns the spatial shift, a
// success flag, and a warn flag (set only when a medium-slit edge
// disagreement exceeded MaxDiffWarning but was still usable), per
// spec.md §4.6's "unknown slit type or no bars on a long slit" →
// UNDEFINED_SHIFT rule.
func FindShift(class SlitClass, profile []float64, bad []bool, aper refdata.ApertureDescription, cdeltCrossDeg float64, spRange int) (result float64, ok bool, warn bool) {
	switch class {
	case ShortEchelle:
		widthPix := ArcsecToPixels(aper.WidthCross, cdeltCrossDeg)
		sh := ShortSlitShift(profile, bad, widthPix, spRange)
		return sh, sh != shift.Undefined, false

	case MediumEchelle:
		center := len(profile) / 2
		halfWidthPix := ArcsecToPixels(aper.WidthCross, cdeltCrossDeg) / 2
		return MediumSlitShift(profile, bad, center, halfWidthPix, spRange)

	case LongSlit:
		if len(aper.Bars) == 0 {
			if Log != nil {
				Log.Warning(pkg + "long slit with no occulting bars in APDESTAB")
			}
			return shift.Undefined, false, false
		}
		sh, sok := FindOccultingBarShift(profile, bad, aper.Bars, cdeltCrossDeg, spRange)
		return sh, sok, false

	default:
		if Log != nil {
			Log.Warning(pkg+"unrecognised slit type", "aperture", aper.Name)
		}
		return shift.Undefined, false, false
	}
}
