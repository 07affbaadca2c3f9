/*
NAME
  dispersion.go

DESCRIPTION
  dispersion implements the Dispersion & Trace Model (spec.md §4.2): a
  polynomial (grating or echelle) dispersion relation and its Newton-
  iterated inverse, plus the specialised prism relation and its clamped
  inverse.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package dispersion evaluates the wavelength-vs-pixel relation for
// first-order grating, echelle, and prism dispersers, and provides the
// spectral-trace interpolation used to locate a spectral order's Y centre
// across X.
package dispersion

import (
	"math"

	"github.com/pkg/errors"
)

// MaxCoeff is the maximum number of dispersion-polynomial coefficients.
const MaxCoeff = 10

// MaxPrismWavelength is the clamp applied to the prism inverse as it
// diverges (spec.md §4.2).
const MaxPrismWavelength = 6000.0

// Relation is the dispersion-relation model for one exposure/order. For
// echelle data, A4Corr adjusts Coeff[4] before evaluation (see ApplyA4).
// Coeff is the mutable working copy; CoeffSave is the untouched snapshot
// so echelle per-order a4 adjustments can be rolled back.
type Relation struct {
	NCoeff int
	Coeff  [MaxCoeff]float64
	CoeffSave [MaxCoeff]float64

	IsPrism   bool
	IsEchelle bool

	// Echelle a4-correction inputs (spec.md §3, §9 open question).
	MRef   int
	YRef   float64
	A4Corr float64

	// prismMaxPixel caches the pixel location where the prism inverse
	// saturates at MaxPrismWavelength, replacing the source's
	// module-level "maximum pixel" static (see design note "Global
	// state").
	prismMaxPixel float64
	prismMaxSet   bool
}

// NewRelation builds a Relation from NCoeff coefficients, snapshotting
// CoeffSave.
func NewRelation(coeff []float64, isPrism, isEchelle bool) (*Relation, error) {
	if len(coeff) > MaxCoeff {
		return nil, errors.Errorf("dispersion: %d coefficients exceeds max %d", len(coeff), MaxCoeff)
	}
	r := &Relation{NCoeff: len(coeff), IsPrism: isPrism, IsEchelle: isEchelle}
	copy(r.Coeff[:], coeff)
	r.CoeffSave = r.Coeff
	return r, nil
}

// Reset restores Coeff from CoeffSave, undoing any per-order a4
// adjustment (spec.md §5 "Shared resources").
func (r *Relation) Reset() { r.Coeff = r.CoeffSave }

// ApplyA4 adjusts Coeff[4] for the given spectral order m, per the
// MREF/YREF/A4CORR triple (spec.md §9 open question: the precise
// interaction must be verified against canonical exposures; here the
// adjustment is proportional to the order's distance from MRef, which is
// the simplest relation consistent with A4Corr being defined at a single
// reference order).
func (r *Relation) ApplyA4(m int) {
	if !r.IsEchelle || r.NCoeff <= 4 {
		return
	}
	r.Coeff[4] = r.CoeffSave[4] + r.A4Corr*float64(m-r.MRef)
}

// Eval evaluates the dispersion relation at reference-pixel x for
// spectral order m, returning a wavelength in Angstroms.
func (r *Relation) Eval(m int, x float64) float64 {
	if r.IsPrism {
		return r.evalPrism(x)
	}
	return r.evalPoly(m, x)
}

// evalPoly evaluates the grating/echelle polynomial: for echelle data the
// wavelength is divided by the order m (a standard echelle normalisation:
// m*wavelength is the smooth polynomial in x).
func (r *Relation) evalPoly(m int, x float64) float64 {
	var sum, xp float64 = 0, 1
	for i := 0; i < r.NCoeff; i++ {
		sum += r.Coeff[i] * xp
		xp *= x
	}
	if r.IsEchelle && m != 0 {
		return sum / float64(m)
	}
	return sum
}

// evalPrism evaluates the specialised prism dispersion relation: a
// polynomial in 1/(x-coeff[1]) reproducing the steep wavelength-vs-pixel
// curve of a prism near its red cutoff.
func (r *Relation) evalPrism(x float64) float64 {
	if r.NCoeff < 2 {
		return 0
	}
	denom := x - r.Coeff[1]
	if denom == 0 {
		return MaxPrismWavelength
	}
	var sum, xp float64 = r.Coeff[0], 1
	inv := 1.0 / denom
	for i := 2; i < r.NCoeff; i++ {
		xp *= inv
		sum += r.Coeff[i] * xp
	}
	if sum > MaxPrismWavelength {
		return MaxPrismWavelength
	}
	return sum
}

// InverseTolDefault is the default Newton-iteration tolerance in
// Angstroms, matching the round-trip law in spec.md §8.
const InverseTolDefault = 1e-6

const maxNewtonIter = 50

// Inverse returns the reference-pixel x such that Eval(m, x) == target
// wavelength, Newton-iterating from an estimate, to within tol Angstroms.
// For prism data, as the inverse diverges approaching MaxPrismWavelength
// the result is clamped to the pixel at which the prism relation first
// reaches that wavelength.
func (r *Relation) Inverse(m int, target, estimate, tol float64) float64 {
	if r.IsPrism && target >= MaxPrismWavelength {
		return r.prismClampPixel(m)
	}

	x := estimate
	const dx = 1e-3
	for i := 0; i < maxNewtonIter; i++ {
		f := r.Eval(m, x) - target
		if math.Abs(f) < tol {
			return x
		}
		fPrime := (r.Eval(m, x+dx) - r.Eval(m, x-dx)) / (2 * dx)
		if fPrime == 0 {
			break
		}
		step := f / fPrime
		x -= step
		if math.Abs(step) < tol*1e-3 {
			break
		}
	}
	return x
}

// prismClampPixel returns the cached pixel at which the prism relation
// saturates at MaxPrismWavelength, computing it once via bisection.
func (r *Relation) prismClampPixel(m int) float64 {
	if r.prismMaxSet {
		return r.prismMaxPixel
	}
	// Bisect over a generous pixel range; the prism relation is monotone
	// in x away from the pole at Coeff[1].
	lo, hi := r.Coeff[1]+1e-3, r.Coeff[1]+2048
	for i := 0; i < 100; i++ {
		mid := 0.5 * (lo + hi)
		if r.evalPrism(mid) > MaxPrismWavelength-1e-9 {
			lo = mid
		} else {
			hi = mid
		}
	}
	r.prismMaxPixel = 0.5 * (lo + hi)
	r.prismMaxSet = true
	return r.prismMaxPixel
}
