/*
NAME
  crflag.go

DESCRIPTION
  crflag implements the Cosmic-Ray Flagger (spec.md §4.4): 1-D column (or
  row) MAD-based rejection on CCD wavecal frames, run only when the
  detector is CCD and DATAREJECT is in SDQFLAGS.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package crflag flags additional cosmic-ray pixels on CCD wavecal
// frames by robust statistics along each column or row, per spec.md
// §4.4. It only ever sets fitsio.DQDataReject; it never clears bits.
package crflag

import (
	"github.com/ausocean/utils/logging"

	"github.com/spacetelescope/hstcal-sub005/fitsio"
	"github.com/spacetelescope/hstcal-sub005/internal/stats"
	"github.com/spacetelescope/hstcal-sub005/refdata"
)

// Log is the package-level logger.
var Log logging.Logger

const pkg = "crflag: "

// Flag runs the CR rejection in place on frame.DQ for a CCD exposure,
// vectorising along columns if dispAxis==1 or rows if dispAxis==2 (the
// rejection runs perpendicular to the dispersion direction, spec.md
// §4.4). sdqflags is the header's serious-DQ mask; DATAMASKED is cleared
// from it before use per spec.md §3. Returns the count of newly flagged
// pixels.
func Flag(frame *fitsio.PixelFrame, dispAxis int, sdqflags uint16, wcp refdata.WcpParameters) int {
	sdqflagsPrime := sdqflags &^ fitsio.DQDataMasked

	dispLen, crossLen := fitsio.AxisLens(frame, dispAxis)
	total := 0
	for d := 0; d < dispLen; d++ {
		vec := make([]float64, crossLen)
		dq := make([]uint16, crossLen)
		for c := 0; c < crossLen; c++ {
			x, y := fitsio.Coord(dispAxis, d, c)
			vec[c] = frame.Sci(x, y)
			dq[c] = frame.Dq(x, y)
		}
		n := flagVector(vec, dq, sdqflagsPrime, wcp)
		if n == 0 {
			continue
		}
		for c := 0; c < crossLen; c++ {
			if dq[c]&fitsio.DQDataReject != 0 {
				x, y := fitsio.Coord(dispAxis, d, c)
				if frame.Dq(x, y)&fitsio.DQDataReject == 0 {
					frame.OrDq(x, y, fitsio.DQDataReject)
					total++
				}
			}
		}
	}
	if Log != nil && total > 0 {
		Log.Info(pkg+"flagged cosmic rays", "count", total)
	}
	return total
}

// flagVector runs one 1-D vector's rejection, setting DQDataReject in dq
// in place, and returns the number of pixels flagged.
func flagVector(vec []float64, dq []uint16, sdqflagsPrime uint16, wcp refdata.WcpParameters) int {
	var illum, masked []float64
	var illumIdx, maskedIdx []int

	for i, v := range vec {
		switch {
		case dq[i]&fitsio.DQDataMasked != 0:
			masked = append(masked, v)
			maskedIdx = append(maskedIdx, i)
		case dq[i]&sdqflagsPrime != 0:
			// Any other serious flag: ignore entirely.
			continue
		default:
			illum = append(illum, v)
			illumIdx = append(illumIdx, i)
		}
	}

	illumMean, illumSD := stats.RobustMeanStddev(illum, wcp.MADReject, wcp.MinMAD)
	maskedMean, maskedSD := stats.RobustMeanStddev(masked, wcp.MADReject, wcp.MinMAD)

	// Special-case stddev borrowing for an empty group (spec.md §4.4).
	if len(illum) == 0 {
		illumSD = maskedSD
	}
	if len(masked) == 0 {
		maskedSD = illumSD
	}

	flagged := 0
	for k, i := range maskedIdx {
		v := masked[k]
		if v > maskedMean+wcp.NSigmaCR*maskedSD && absDiff(v, illumMean) > wcp.NSigmaIllum*illumSD {
			dq[i] |= fitsio.DQDataReject
			flagged++
		}
	}
	for k, i := range illumIdx {
		v := illum[k]
		if v > illumMean+wcp.NSigmaCR*illumSD {
			dq[i] |= fitsio.DQDataReject
			flagged++
		}
	}
	return flagged
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
