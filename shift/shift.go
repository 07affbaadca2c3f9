/*
NAME
  shift.go

DESCRIPTION
  shift holds the sentinel values and the Pair type shared by every shift
  finder (waveshift, spatial, echelle) and the driver (wavecal).

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package shift defines the shared shift sentinel values and Pair type.
// The on-disk contract requires UndefinedShift to be emitted numerically
// for backward compatibility, so this stays a plain float64 rather than
// an Option[float64] despite the "Floating-point sentinels" design note
// preferring the latter internally; callers that want the safer shape can
// use Pair.A1OK/A2OK instead of comparing against the sentinel directly.
package shift

import "math"

const (
	// Undefined marks a shift that could not be determined.
	Undefined = -9999.0

	// Unreasonable is the absolute-value threshold above which a shift
	// is treated as definitely bad.
	Unreasonable = 1000.0
)

// IsBad reports whether v is the undefined sentinel or unreasonably large.
func IsBad(v float64) bool {
	if v == Undefined {
		return true
	}
	return math.Abs(v) >= Unreasonable
}

// Pair is the two-axis shift produced by a shift finder, in image pixels
// until the driver scales it to reference pixels.
type Pair struct {
	A1, A2 float64 // Wavelength/dispersion-axis and spatial-axis shifts.
}

// UndefinedPair is a pair whose both components are undefined.
func UndefinedPair() Pair { return Pair{A1: Undefined, A2: Undefined} }

// A1OK reports whether the A1 component is usable.
func (p Pair) A1OK() bool { return !IsBad(p.A1) }

// A2OK reports whether the A2 component is usable.
func (p Pair) A2OK() bool { return !IsBad(p.A2) }

// Scale returns a new pair with both components multiplied by the given
// per-axis factors (used by the driver to convert image pixels to
// reference pixels via 1/LTM).
func (p Pair) Scale(f1, f2 float64) Pair {
	out := p
	if p.A1OK() {
		out.A1 = p.A1 * f1
	}
	if p.A2OK() {
		out.A2 = p.A2 * f2
	}
	return out
}
