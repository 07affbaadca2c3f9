/*
NAME
  quadfit.go

DESCRIPTION
  quadfit.go fits a 2-D quadratic surface through a 3x3 neighbourhood
  around a correlation peak and solves for the sub-pixel peak location,
  per spec.md §4.8 step 4.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package echelle

import "gonum.org/v1/gonum/mat"

// QuadraticPeak2D fits z = a + b*dx + c*dy + d*dx^2 + e*dy^2 + f*dx*dy
// over the 9 samples of a 3x3 neighbourhood centred on the discrete
// peak (patch[1][1]), via a least-squares solve, then returns the
// sub-pixel offset (dx, dy) of the surface's stationary point from the
// centre. Falls back to (0, 0) if the fit is degenerate or the
// stationary point falls outside the neighbourhood.
func QuadraticPeak2D(patch [3][3]float64) (dx, dy float64) {
	rows := 9
	a := mat.NewDense(rows, 6, nil)
	z := mat.NewVecDense(rows, nil)

	row := 0
	for jy := -1; jy <= 1; jy++ {
		for jx := -1; jx <= 1; jx++ {
			x, y := float64(jx), float64(jy)
			a.SetRow(row, []float64{1, x, y, x * x, y * y, x * y})
			z.SetVec(row, patch[jy+1][jx+1])
			row++
		}
	}

	var qr mat.QR
	qr.Factorize(a)
	var coeff mat.VecDense
	if err := qr.SolveVecTo(&coeff, false, z); err != nil {
		return 0, 0
	}

	b, c, d, e, f := coeff.AtVec(1), coeff.AtVec(2), coeff.AtVec(3), coeff.AtVec(4), coeff.AtVec(5)
	det := 4*d*e - f*f
	if det == 0 {
		return 0, 0
	}
	dx = (-2*e*b + f*c) / det
	dy = (-2*d*c + f*b) / det
	if dx < -1 || dx > 1 || dy < -1 || dy > 1 {
		return 0, 0
	}
	return dx, dy
}
