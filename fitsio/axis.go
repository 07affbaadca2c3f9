/*
NAME
  axis.go

DESCRIPTION
  axis.go provides dispersion-axis-aware indexing so the template
  builder, cosmic-ray flagger, and shift finders can be written once in
  "dispersion index / cross-dispersion index" terms and still work for
  DISPAXIS=1 (dispersion along image X) and DISPAXIS=2 (dispersion along
  image Y), per spec.md §3/§4.4/§4.5.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package fitsio

// AxisLens returns (dispersion-length, cross-dispersion-length) for a
// frame given dispAxis (1 or 2).
func AxisLens(f *PixelFrame, dispAxis int) (dispLen, crossLen int) {
	if dispAxis == 2 {
		return f.Ny, f.Nx
	}
	return f.Nx, f.Ny
}

// Coord maps (dispersion index, cross-dispersion index) to (x, y) image
// coordinates given dispAxis.
func Coord(dispAxis, dispI, crossJ int) (x, y int) {
	if dispAxis == 2 {
		return crossJ, dispI
	}
	return dispI, crossJ
}
