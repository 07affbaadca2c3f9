/*
NAME
  echelle.go

DESCRIPTION
  echelle implements the Echelle 2-D Shift Finder (spec.md §4.8):
  Fourier-domain 2-D cross-correlation of the observed SCI array against
  the synthesised template, and a 3x3-neighbourhood 2-D quadratic
  sub-pixel peak fit.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package echelle determines both wavelength- and spatial-axis shifts
// simultaneously for echelle data by cross-correlating the 2-D
// synthetic template against the observed frame in the frequency
// domain.
package echelle

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/ausocean/utils/logging"
)

// Log is the package-level logger.
var Log logging.Logger

const pkg = "echelle: "

// PadFactor pads each axis to PadFactor times its image size before
// transforming, per spec.md §4.8 ("the padding convention... yields
// 2*nx x 2*ny").
const PadFactor = 2

// paddedSize returns the padded axis length for an image axis of size n.
func paddedSize(n int) int { return PadFactor * n }

// embedReal places a row-major (ny, nx) real array into the top-left
// corner of a zero-filled (padNy, padNx) grid.
func embedReal(flat []float64, nx, ny, padNx, padNy int) [][]float64 {
	out := make([][]float64, padNy)
	for y := 0; y < padNy; y++ {
		out[y] = make([]float64, padNx)
	}
	for y := 0; y < ny && y < padNy; y++ {
		for x := 0; x < nx && x < padNx; x++ {
			out[y][x] = flat[y*nx+x]
		}
	}
	return out
}

// ForwardFFT embeds a row-major (nx, ny) real array into a zero-padded
// (2nx, 2ny) grid and returns its forward 2-D FFT (spec.md §4.8 steps
// 1-2, shared by the template and the per-imset SCI array).
func ForwardFFT(flat []float64, nx, ny int) [][]complex128 {
	padNx, padNy := paddedSize(nx), paddedSize(ny)
	grid := embedReal(flat, nx, ny, padNx, padNy)
	return fft.FFT2Real(grid)
}

// CrossCorrelateFreq multiplies the template's FFT by the conjugate of
// the image's FFT, which is cross-correlation in the frequency domain
// (spec.md §4.8 step 3).
func CrossCorrelateFreq(templFFT, imageFFT [][]complex128) [][]complex128 {
	ny := len(templFFT)
	out := make([][]complex128, ny)
	for y := 0; y < ny; y++ {
		nx := len(templFFT[y])
		out[y] = make([]complex128, nx)
		for x := 0; x < nx; x++ {
			out[y][x] = templFFT[y][x] * cmplx.Conj(imageFFT[y][x])
		}
	}
	return out
}

// FFTShift2D swaps quadrants so that the zero-lag sample lands at the
// centre of the grid (spec.md §4.8 step 3).
func FFTShift2D(grid [][]float64) [][]float64 {
	ny := len(grid)
	if ny == 0 {
		return grid
	}
	nx := len(grid[0])
	out := make([][]float64, ny)
	for y := range out {
		out[y] = make([]float64, nx)
	}
	hy, hx := ny/2, nx/2
	for y := 0; y < ny; y++ {
		sy := (y + hy) % ny
		for x := 0; x < nx; x++ {
			sx := (x + hx) % nx
			out[sy][sx] = grid[y][x]
		}
	}
	return out
}

// InverseFFTReal inverse-transforms prod and returns the real part of
// every sample (spec.md §4.8 step 3's "inverse-FFT").
func InverseFFTReal(prod [][]complex128) [][]float64 {
	inv := fft.IFFT2(prod)
	ny := len(inv)
	out := make([][]float64, ny)
	for y := 0; y < ny; y++ {
		nx := len(inv[y])
		out[y] = make([]float64, nx)
		for x := 0; x < nx; x++ {
			out[y][x] = real(inv[y][x])
		}
	}
	return out
}

// findPeak2D returns the (row, col) of the maximum value in grid.
func findPeak2D(grid [][]float64) (py, px int, val float64) {
	val = grid[0][0]
	for y, row := range grid {
		for x, v := range row {
			if v > val || (y == 0 && x == 0) {
				val, py, px = v, y, x
			}
		}
	}
	return py, px, val
}

// FindShift2D runs the full frequency-domain cross-correlation pipeline
// and returns the wavelength- and spatial-axis image-pixel shifts, or
// ok=false if the peak sits on the padded grid's edge (no 3x3
// neighbourhood available for the quadratic fit).
func FindShift2D(template, image []float64, nx, ny int) (wShift, sShift float64, ok bool) {
	templFFT := ForwardFFT(template, nx, ny)
	imageFFT := ForwardFFT(image, nx, ny)
	prod := CrossCorrelateFreq(templFFT, imageFFT)
	corr := FFTShift2D(InverseFFTReal(prod))

	py, px, _ := findPeak2D(corr)
	padNy, padNx := len(corr), len(corr[0])
	if py <= 0 || py >= padNy-1 || px <= 0 || px >= padNx-1 {
		if Log != nil {
			Log.Warning(pkg + "echelle cross-correlation peak at grid edge")
		}
		return 0, 0, false
	}

	var patch [3][3]float64
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			patch[dy+1][dx+1] = corr[py+dy][px+dx]
		}
	}
	subDx, subDy := QuadraticPeak2D(patch)

	// The template x conj(image) peak sits at the template-minus-image
	// lag, so the image's displacement from the template is its negative.
	centerY, centerX := padNy/2, padNx/2
	wShift = float64(centerX-px) - subDx
	sShift = float64(centerY-py) - subDy
	return wShift, sShift, true
}
