/*
NAME
  types.go

DESCRIPTION
  types.go holds the reference-data model populated by the Reference
  Loader (spec.md §4.1): WcpParameters, LampSpectrum, ApertureDescription,
  and the table-matching primitives (selection tuples, ANY wildcard,
  DUMMY pedigree).

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package refdata resolves and validates the WCP/LAMP/APDES/DISP/INANG/
// SPTRC/SDC reference tables for one exposure, applying the ANY-wildcard
// row-matching rule and the DUMMY-pedigree policy of spec.md §4.1.
package refdata

import "strings"

// AnyWildcard is the case-insensitive wildcard literal.
const AnyWildcard = "ANY"

// MatchField reports whether a table row's selection-column value
// matches the observation's value, honouring the ANY wildcard and
// treating an absent column (empty row value) as a wildcard for
// backward compatibility.
func MatchField(rowVal, obsVal string) bool {
	if rowVal == "" || strings.EqualFold(rowVal, AnyWildcard) {
		return true
	}
	return strings.EqualFold(rowVal, obsVal)
}

// Pedigree is the provenance marker read from a table row's PEDIGREE
// column (only the first whitespace-delimited token matters).
type Pedigree string

// IsDummy reports whether the pedigree's first token is "DUMMY"
// (case-insensitive).
func (p Pedigree) IsDummy() bool {
	fields := strings.Fields(string(p))
	if len(fields) == 0 {
		return false
	}
	return strings.EqualFold(fields[0], "DUMMY")
}

// WcpParameters are the per-grating/detector processing parameters from
// WCPTAB (spec.md §3).
type WcpParameters struct {
	WLTrim1, WLTrim2 int
	SPTrim1, SPTrim2 int
	WLRange, SPRange int // Cross-correlation half-ranges, forced odd.

	NSigmaCR    float64
	NSigmaIllum float64
	MADReject   float64
	MinMAD      float64

	IsDefault bool // true when WCPTAB was missing or DUMMY.
}

// DefaultWCP are the hard-coded fallback parameters of spec.md §3, used
// when WCPTAB is missing or carries a DUMMY pedigree.
func DefaultWCP() WcpParameters {
	return WcpParameters{
		WLTrim1: 0, WLTrim2: 300,
		SPTrim1: 200, SPTrim2: 0,
		WLRange: 63, SPRange: 61,
		NSigmaCR: 3, NSigmaIllum: 2, MADReject: 3, MinMAD: 1,
		IsDefault: true,
	}
}

// ForceOdd adjusts n up by one if it is even, matching the "both forced
// odd" requirement on WLRange/SPRange.
func ForceOdd(n int) int {
	if n%2 == 0 {
		return n + 1
	}
	return n
}

// LampSpectrum is a calibration-lamp spectrum resampled to pixel-edge
// wavelengths: Wavelength has length n+1 (edges), Flux has length n
// (per-pixel integrated flux), and the lamp is piecewise-constant between
// successive Wavelength entries.
type LampSpectrum struct {
	Wavelength []float64
	Flux       []float64
}

// NewLampSpectrum synthesises pixel-edge wavelengths from a monotone
// array of tabulated line wavelengths by taking midpoints between
// successive entries and extrapolating the two ends, matching spec.md
// §3's "LampSpectrum" construction.
func NewLampSpectrum(tabWL, tabFlux []float64) *LampSpectrum {
	n := len(tabWL)
	if n == 0 {
		return &LampSpectrum{}
	}
	edges := make([]float64, n+1)
	for i := 1; i < n; i++ {
		edges[i] = 0.5 * (tabWL[i-1] + tabWL[i])
	}
	if n == 1 {
		edges[0] = tabWL[0] - 0.5
		edges[1] = tabWL[0] + 0.5
	} else {
		edges[0] = tabWL[0] - (edges[1] - tabWL[0])
		edges[n] = tabWL[n-1] + (tabWL[n-1] - edges[n-1])
	}
	return &LampSpectrum{Wavelength: edges, Flux: append([]float64(nil), tabFlux...)}
}

// Integrate sums the piecewise-constant lamp flux between wlLo and wlHi
// (wlLo <= wlHi), apportioning partial cells by the fraction of the cell
// inside the range, as spec.md §4.3 describes ("fraction of left cell +
// full middle cells + fraction of right cell").
func (s *LampSpectrum) Integrate(wlLo, wlHi float64) float64 {
	if len(s.Flux) == 0 || wlHi <= wlLo {
		return 0
	}
	var sum float64
	for i, f := range s.Flux {
		cellLo, cellHi := s.Wavelength[i], s.Wavelength[i+1]
		lo := cellLo
		if wlLo > lo {
			lo = wlLo
		}
		hi := cellHi
		if wlHi < hi {
			hi = wlHi
		}
		if hi <= lo {
			continue
		}
		width := cellHi - cellLo
		if width <= 0 {
			continue
		}
		sum += f * (hi - lo) / width
	}
	return sum
}

// Bar is one occulting bar in an aperture's slit.
type Bar struct {
	Center float64 // Offset from slit centre, arcsec.
	Width  float64 // arcsec.
}

// ApertureDescription is the slit geometry from APDESTAB (spec.md §3).
type ApertureDescription struct {
	Name string

	WidthDisp   float64 // arcsec, dispersion direction.
	WidthCross  float64 // arcsec, cross-dispersion direction.
	Bars        []Bar   // Up to 3 occulting bars.

	// UniformLamp is true when SCLAMP != "NONE"; the telescope PSF is
	// then replaced by a boxcar of the aperture height in detector
	// pixels (spec.md §3).
	UniformLamp bool
}
