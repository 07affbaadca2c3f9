package echelle

import (
	"math"
	"testing"
)

func TestQuadraticPeak2DRecoversKnownOffset(t *testing.T) {
	var patch [3][3]float64
	for jy := -1; jy <= 1; jy++ {
		for jx := -1; jx <= 1; jx++ {
			dx, dy := float64(jx)-0.3, float64(jy)-0.2
			patch[jy+1][jx+1] = 10 - dx*dx - dy*dy
		}
	}
	dx, dy := QuadraticPeak2D(patch)
	if math.Abs(dx-0.3) > 1e-9 {
		t.Errorf("dx = %v, want 0.3", dx)
	}
	if math.Abs(dy-0.2) > 1e-9 {
		t.Errorf("dy = %v, want 0.2", dy)
	}
}

func TestQuadraticPeak2DFlatPatchReturnsZero(t *testing.T) {
	var patch [3][3]float64
	for jy := range patch {
		for jx := range patch[jy] {
			patch[jy][jx] = 5
		}
	}
	dx, dy := QuadraticPeak2D(patch)
	if dx != 0 || dy != 0 {
		t.Errorf("QuadraticPeak2D on a flat patch = (%v, %v), want (0, 0)", dx, dy)
	}
}

func pointSource(nx, ny, cx, cy int, val float64) []float64 {
	out := make([]float64, nx*ny)
	if cx >= 0 && cx < nx && cy >= 0 && cy < ny {
		out[cy*nx+cx] = val
	}
	return out
}

func TestFindShift2DRecoversIntegerDisplacement(t *testing.T) {
	const nx, ny = 32, 32
	const cx, cy = 10, 16
	const dxTrue, dyTrue = 3, -2

	template := pointSource(nx, ny, cx, cy, 1000)
	image := pointSource(nx, ny, cx+dxTrue, cy+dyTrue, 1000)

	w, s, ok := FindShift2D(template, image, nx, ny)
	if !ok {
		t.Fatalf("FindShift2D reported failure")
	}
	if math.Abs(w-dxTrue) > 0.5 {
		t.Errorf("wShift = %v, want approximately %v", w, dxTrue)
	}
	if math.Abs(s-dyTrue) > 0.5 {
		t.Errorf("sShift = %v, want approximately %v", s, dyTrue)
	}
}

func TestForwardFFTPadsToDoubleSize(t *testing.T) {
	const nx, ny = 8, 6
	flat := make([]float64, nx*ny)
	out := ForwardFFT(flat, nx, ny)
	if len(out) != 2*ny {
		t.Errorf("padded rows = %d, want %d", len(out), 2*ny)
	}
	if len(out[0]) != 2*nx {
		t.Errorf("padded cols = %d, want %d", len(out[0]), 2*nx)
	}
}
