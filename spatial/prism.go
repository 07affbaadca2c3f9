/*
NAME
  prism.go

DESCRIPTION
  prism.go implements the prism long-slit subpath of spec.md §4.6: rather
  than averaging straight across the wavelength trim box at a fixed row,
  it follows the spectral trace's curvature, sampling the image column
  that lies on the trace path for every cross-dispersion offset, with
  linear interpolation in Y and nearest-pixel DQ.

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

	"github.com/spacetelescope/hstcal-sub005/dispersion"
	"github.com/spacetelescope/hstcal-sub005/fitsio"
	"github.com/spacetelescope/hstcal-sub005/refdata"
)

// CollapseAlongTrace builds the cross-dispersion profile for the prism
// long-slit subpath: for every cross-dispersion offset it walks the
// dispersion-axis trim box along the trace's curved path (trace.A2Displ
// added to trace.A2Center, plus the row's offset from the trace centre),
// sampling the science value by linear interpolation in Y and taking the
// DQ of the nearer of the two bracketing rows (spec.md §4.6 "Prism
// subpath").
func CollapseAlongTrace(frame *fitsio.PixelFrame, dispAxis int, sdqflags uint16, specWeight []float64, wcp refdata.WcpParameters, trace dispersion.Record) (profile []float64, bad []bool) {
	dispLen, crossLen := fitsio.AxisLens(frame, dispAxis)
	profile = make([]float64, crossLen)
	bad = make([]bool, crossLen)

	dispLo, dispHi := wcp.WLTrim1, dispLen-1-wcp.WLTrim2

	for off := 0; off < crossLen; off++ {
		delta := float64(off) - trace.A2Center
		var sum, wsum float64
		for d := dispLo; d <= dispHi && d < dispLen && d < trace.NElem; d++ {
			if d < 0 {
				continue
			}
			yCenter := trace.A2Center + trace.A2Displ[d] + delta
			yLo := int(math.Floor(yCenter))
			yHi := yLo + 1
			frac := yCenter - float64(yLo)
			if yLo < 0 || yHi >= crossLen {
				continue
			}
			x0, y0 := fitsio.Coord(dispAxis, d, yLo)
			x1, y1 := fitsio.Coord(dispAxis, d, yHi)
			dqNearest := frame.Dq(x0, y0)
			if frac >= 0.5 {
				dqNearest = frame.Dq(x1, y1)
			}
			if dqNearest&sdqflags != 0 {
				continue
			}
			v := frame.Sci(x0, y0)*(1-frac) + frame.Sci(x1, y1)*frac
			w := 1.0
			if d < len(specWeight) {
				w = specWeight[d]
			}
			sum += w * v
			wsum += w
		}
		if wsum == 0 {
			bad[off] = true
			continue
		}
		profile[off] = sum / wsum
	}
	return profile, bad
}
