/*
NAME
  bars.go

DESCRIPTION
  bars.go implements the Occulting-Bar Finder (spec.md §4.7): the
  slit-illumination spline fit and normalisation, per-bar binary-template
  cross-correlation, horizontal-slice-midpoint centroiding, and the
  multi-bar combination rule shared with the medium-slit edge finder's
  disagreement thresholds.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package spatial

import (
	"math"

	"gonum.org/v1/gonum/interp"

	"github.com/spacetelescope/hstcal-sub005/internal/stats"
	"github.com/spacetelescope/hstcal-sub005/refdata"
	"github.com/spacetelescope/hstcal-sub005/shift"
)

// Weight bounds for accepting a bar's cross-correlation peak (spec.md §4.7).
const (
	MinBarWeight = 0.5
	MaxBarWeight = 1.5
)

// OutlierCutoff is the maximum distance, in pixels, a horizontal-slice
// midpoint may sit from the median before it is dropped.
const OutlierCutoff = 0.3

// CentroidCutoffFrac is the fraction of the peak height at which the
// horizontal-slice descent stops. Spec.md §4.7 names the constant
// (CENTROID_CUTOFF) without a numeric value; 0.1 is chosen here as a
// conservative default that still samples several slices above the
// continuum before the cross-correlation curve's skirts grow noisy.
const CentroidCutoffFrac = 0.1

const illuminationSections = 8

// madOutlierFactor is the "6*MAD" outlier-rejection threshold of spec.md
// §4.7 step 2.
const madOutlierFactor = 6.0

// BarResult is one bar's measured shift and cross-correlation weight.
type BarResult struct {
	Shift  float64
	Weight float64
	OK     bool
}

// ArcsecToPixels converts an arcsec offset to image pixels via
// CDELT (degrees/pixel) * 3600, per spec.md §4.7 step 1.
func ArcsecToPixels(arcsec, cdeltDeg float64) float64 {
	scale := cdeltDeg * 3600
	if scale == 0 {
		return 0
	}
	return arcsec / scale
}

// illuminationCurve fits a natural cubic spline through the medians of
// illuminationSections contiguous sections of profile, refitting once
// after discarding sections whose median residual exceeds
// madOutlierFactor*MAD (spec.md §4.7 step 2). Returns a clamped predictor
// so callers never see NaN or an out-of-domain extrapolation.
func illuminationCurve(profile []float64, bad []bool) (clampedSpline, error) {
	xs, ys := sectionMedians(profile, bad)
	if len(xs) < 2 {
		return clampedSpline{}, errNotEnoughSections
	}

	var sp interp.NaturalCubic
	if err := sp.Fit(xs, ys); err != nil {
		return clampedSpline{}, err
	}

	resid := make([]float64, len(ys))
	for i, x := range xs {
		resid[i] = ys[i] - sp.Predict(x)
	}
	mad := stats.MAD(resid)
	thresh := madOutlierFactor * mad
	if thresh > 0 {
		var xs2, ys2 []float64
		for i := range xs {
			if math.Abs(resid[i]) <= thresh {
				xs2 = append(xs2, xs[i])
				ys2 = append(ys2, ys[i])
			}
		}
		if len(xs2) >= 2 && len(xs2) < len(xs) {
			var sp2 interp.NaturalCubic
			if err := sp2.Fit(xs2, ys2); err == nil {
				xs, sp = xs2, sp2
			}
		}
	}

	return clampedSpline{sp: sp, lo: xs[0], hi: xs[len(xs)-1]}, nil
}

var errNotEnoughSections = errNotEnoughSectionsType{}

type errNotEnoughSectionsType struct{}

func (errNotEnoughSectionsType) Error() string {
	return "spatial: fewer than two valid illumination sections"
}

// clampedSpline predicts at(x) within [lo, hi], clamping outside it, so a
// caller can never observe NaN from an extrapolated spline (spec.md §8
// "interpolate outside the table range returns the endpoint value without
// NaN").
type clampedSpline struct {
	sp     interp.NaturalCubic
	lo, hi float64
}

func (c clampedSpline) at(x float64) float64 {
	if x < c.lo {
		x = c.lo
	}
	if x > c.hi {
		x = c.hi
	}
	return c.sp.Predict(x)
}

func sectionMedians(profile []float64, bad []bool) (xs, ys []float64) {
	n := len(profile)
	if n == 0 {
		return nil, nil
	}
	secLen := n / illuminationSections
	if secLen == 0 {
		secLen = 1
	}
	for s := 0; s < illuminationSections; s++ {
		lo := s * secLen
		hi := lo + secLen
		if s == illuminationSections-1 {
			hi = n
		}
		if lo >= n {
			break
		}
		if hi > n {
			hi = n
		}
		var vals []float64
		for i := lo; i < hi; i++ {
			if bad == nil || i >= len(bad) || !bad[i] {
				vals = append(vals, profile[i])
			}
		}
		if len(vals) == 0 {
			continue
		}
		xs = append(xs, float64(lo+hi-1)/2)
		ys = append(ys, stats.Median(vals))
	}
	return xs, ys
}

// NormalizeProfile subtracts the fit illumination curve from profile and
// divides by it, after replacing non-positive predicted illuminations
// with their nearest valid neighbour, per spec.md §4.7 step 2. The
// result is approximately 0 in lit regions and approximately 1 inside an
// occulting bar.
func NormalizeProfile(profile []float64, bad []bool, curve clampedSpline) []float64 {
	n := len(profile)
	illum := make([]float64, n)
	for i := range illum {
		illum[i] = curve.at(float64(i))
	}
	fillNonPositive(illum)

	norm := make([]float64, n)
	for i, v := range profile {
		if illum[i] == 0 {
			continue
		}
		norm[i] = (illum[i] - v) / illum[i]
	}
	return norm
}

func fillNonPositive(v []float64) {
	last := 0.0
	haveLast := false
	for i, x := range v {
		if x > 0 {
			last = x
			haveLast = true
			continue
		}
		if haveLast {
			v[i] = last
		}
	}
	haveNext := false
	next := 0.0
	for i := len(v) - 1; i >= 0; i-- {
		if v[i] > 0 {
			next = v[i]
			haveNext = true
			continue
		}
		if haveNext {
			v[i] = next
		}
	}
}

// BuildBarTemplate builds a binary template of the given width in
// pixels, centred at centerPix, with linear edge-pixel fractions (spec.md
// §4.7 step 3).
func BuildBarTemplate(length int, widthPix float64, centerPix float64) []float64 {
	out := make([]float64, length)
	half := widthPix / 2
	lo, hi := centerPix-half, centerPix+half
	for i := 0; i < length; i++ {
		l := math.Max(lo, float64(i))
		h := math.Min(hi, float64(i+1))
		if h > l {
			out[i] = h - l
		}
	}
	return out
}

// centroidPeak implements the horizontal-slice-midpoint centroiding of
// spec.md §4.7 step 4.
func centroidPeak(xc []float64, peakIdx int) (float64, bool) {
	peak := xc[peakIdx]
	if peak <= 0 {
		return 0, false
	}
	cutoff := CentroidCutoffFrac * peak

	var mids []float64
	for v := peak - 1; v >= cutoff; v-- {
		left, lok := intersectLeft(xc, peakIdx, v)
		right, rok := intersectRight(xc, peakIdx, v)
		if lok && rok {
			mids = append(mids, 0.5*(left+right))
		}
	}
	if len(mids) == 0 {
		return 0, false
	}

	med := stats.Median(mids)
	var kept []float64
	for _, m := range mids {
		if math.Abs(m-med) <= OutlierCutoff {
			kept = append(kept, m)
		}
	}
	if len(kept) == 0 {
		kept = mids
	}
	var sum float64
	for _, m := range kept {
		sum += m
	}
	return sum / float64(len(kept)), true
}

func intersectLeft(xc []float64, peakIdx int, v float64) (float64, bool) {
	for i := peakIdx; i > 0; i-- {
		if xc[i] >= v && xc[i-1] < v {
			frac := (v - xc[i-1]) / (xc[i] - xc[i-1])
			return float64(i-1) + frac, true
		}
	}
	return 0, false
}

func intersectRight(xc []float64, peakIdx int, v float64) (float64, bool) {
	for i := peakIdx; i < len(xc)-1; i++ {
		if xc[i] >= v && xc[i+1] < v {
			frac := (xc[i] - v) / (xc[i] - xc[i+1])
			return float64(i) + frac, true
		}
	}
	return 0, false
}

// CombineBarShifts applies spec.md §4.7 step 5's disagreement rule: drop
// the whole result if the spread across usable bars exceeds
// MaxDiffError; drop the weakest bar if it exceeds MaxDiffWarning; else
// weight-average every usable bar's shift.
func CombineBarShifts(results []BarResult) (float64, bool) {
	var usable []BarResult
	for _, r := range results {
		if r.OK && r.Weight > 0 {
			usable = append(usable, r)
		}
	}
	if len(usable) == 0 {
		return shift.Undefined, false
	}

	minS, maxS := usable[0].Shift, usable[0].Shift
	for _, r := range usable[1:] {
		if r.Shift < minS {
			minS = r.Shift
		}
		if r.Shift > maxS {
			maxS = r.Shift
		}
	}
	diff := maxS - minS
	if diff > MaxDiffError {
		if Log != nil {
			Log.Warning(pkg+"occulting-bar shifts disagree beyond MAX_DIFF_ERROR", "diff", diff)
		}
		return shift.Undefined, false
	}
	if diff > MaxDiffWarning && len(usable) > 1 {
		weakest := 0
		for i, r := range usable {
			if r.Weight < usable[weakest].Weight {
				weakest = i
			}
		}
		if Log != nil {
			Log.Warning(pkg + "occulting-bar shifts disagree beyond MAX_DIFF_WARNING, dropping weakest bar")
		}
		usable = append(usable[:weakest], usable[weakest+1:]...)
	}

	var sum, wsum float64
	for _, r := range usable {
		sum += r.Weight * r.Shift
		wsum += r.Weight
	}
	if wsum == 0 {
		return shift.Undefined, false
	}
	return sum / wsum, true
}

// FindOccultingBarShift runs the full long-slit occulting-bar pipeline
// over the 1-D cross-dispersion profile, returning the combined spatial
// shift or shift.Undefined if nothing usable was found.
func FindOccultingBarShift(profile []float64, bad []bool, bars []refdata.Bar, cdeltCrossDeg float64, spRange int) (float64, bool) {
	if len(bars) == 0 {
		return shift.Undefined, false
	}
	curve, err := illuminationCurve(profile, bad)
	if err != nil {
		if Log != nil {
			Log.Warning(pkg+"occulting-bar illumination fit failed", "error", err)
		}
		return shift.Undefined, false
	}
	norm := NormalizeProfile(profile, bad, curve)
	center := float64(len(norm)) / 2

	results := make([]BarResult, 0, len(bars))
	for _, bar := range bars {
		widthPix := ArcsecToPixels(bar.Width, cdeltCrossDeg)
		centerPix := center + ArcsecToPixels(bar.Center, cdeltCrossDeg)
		templ := BuildBarTemplate(len(norm), widthPix, centerPix)

		xc := crossCorrelate1D(norm, nil, templ, spRange)
		idx, ok := peakIndex(xc)
		if !ok || widthPix <= 0 {
			results = append(results, BarResult{})
			continue
		}
		weight := xc[idx] / widthPix
		if weight < MinBarWeight || weight > MaxBarWeight {
			results = append(results, BarResult{Weight: weight})
			continue
		}
		centroid, cok := centroidPeak(xc, idx)
		if !cok {
			results = append(results, BarResult{Weight: weight})
			continue
		}
		mid := float64(spRange / 2)
		results = append(results, BarResult{Shift: centroid - mid, Weight: weight, OK: true})
	}
	return CombineBarShifts(results)
}
