/*
NAME
  stats.go

DESCRIPTION
  stats collects the small robust-statistics and peak-fitting helpers
  shared by the cosmic-ray flagger, the wavelength/spatial/echelle shift
  finders, and the occulting-bar finder: median, MAD-floored robust
  mean/stddev, and quadratic sub-pixel peak interpolation.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package stats provides the robust-statistics plumbing (median, MAD,
// clipped mean/stddev) and quadratic peak interpolation reused across the
// wavecal core's several shift-finding algorithms.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Median returns the median of a copy of v (v is not reordered).
func Median(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	cp := append([]float64(nil), v...)
	sort.Float64s(cp)
	return stat.Quantile(0.5, stat.Empirical, cp, nil)
}

// MAD returns the median absolute deviation of v about its median.
func MAD(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	med := Median(v)
	dev := make([]float64, len(v))
	for i, x := range v {
		dev[i] = math.Abs(x - med)
	}
	return Median(dev)
}

// RobustMeanStddev implements the clipped mean/stddev recipe of spec.md
// §4.4: median, MAD floored at minMAD, then mean/stddev over only the
// pixels within madReject*max(MAD,minMAD) of the median. Special cases
// for group sizes 0, 1 and 2 are handled exactly as spec.md states.
func RobustMeanStddev(v []float64, madReject, minMAD float64) (mean, sd float64) {
	switch len(v) {
	case 0:
		return 0, 0
	case 1:
		return v[0], 0
	case 2:
		lo, hi := v[0], v[1]
		if lo > hi {
			lo, hi = hi, lo
		}
		return lo, hi - lo
	}

	med := Median(v)
	mad := MAD(v)
	if mad < minMAD {
		mad = minMAD
	}
	thresh := madReject * mad

	var sum, sumsq float64
	var n int
	for _, x := range v {
		if math.Abs(x-med) > thresh {
			continue
		}
		sum += x
		sumsq += x * x
		n++
	}
	if n == 0 {
		// Nothing survived clipping; fall back to the unclipped group.
		return stat.MeanStdDev(v, nil)
	}
	mean = sum / float64(n)
	if n == 1 {
		return mean, 0
	}
	variance := sumsq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	sd = math.Sqrt(variance * float64(n) / float64(n-1))
	return mean, sd
}

// QuadraticPeak fits a parabola through three equally spaced samples
// (y0, y1, y2) centred on index 1 and returns the sub-pixel offset of the
// true peak from index 1, i.e. in [-0.5, 0.5] for a well-formed peak.
// Returns 0 if the samples are degenerate (denominator ~ 0).
func QuadraticPeak(y0, y1, y2 float64) float64 {
	denom := y0 - 2*y1 + y2
	if math.Abs(denom) < 1e-12 {
		return 0
	}
	return 0.5 * (y0 - y2) / denom
}

// ArgMax returns the index of the largest value in v, and the value
// itself. Panics on an empty slice, matching the precondition every
// caller in this module already enforces (a non-empty correlation
// window).
func ArgMax(v []float64) (idx int, val float64) {
	idx = 0
	val = v[0]
	for i, x := range v[1:] {
		if x > val {
			val = x
			idx = i + 1
		}
	}
	return idx, val
}
