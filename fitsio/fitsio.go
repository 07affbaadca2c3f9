/*
NAME
  fitsio.go

DESCRIPTION
  fitsio defines the narrow interface the wavecal core needs from a FITS
  I/O layer: open an extension and hand back its header, a 2-D pixel
  buffer, a 2-D data-quality buffer, and the LT/CD coordinate parameters;
  later update two keyword values. The actual FITS reader/writer (opening
  files, parsing header cards, managing header arrays) is an external
  collaborator and is deliberately not implemented here.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package fitsio describes the host contract the wavecal core consumes:
// an image extension boils down to a header, a science buffer, a
// data-quality buffer, and coordinate parameters, with a late write-back
// of two keyword values per imset.
package fitsio

import "fmt"

// Detector enumerates the STIS detectors the core understands.
type Detector int

const (
	NUVMAMA Detector = iota
	FUVMAMA
	CCD
)

func (d Detector) String() string {
	switch d {
	case NUVMAMA:
		return "NUV-MAMA"
	case FUVMAMA:
		return "FUV-MAMA"
	case CCD:
		return "CCD"
	default:
		return fmt.Sprintf("Detector(%d)", int(d))
	}
}

// DisperserClass enumerates the three dispersion families the core
// supports; see the "Polymorphism over disperser" design note.
type DisperserClass int

const (
	Rectified DisperserClass = iota // first-order grating
	Echelle
	Prism
)

func (d DisperserClass) String() string {
	switch d {
	case Rectified:
		return "rectified"
	case Echelle:
		return "echelle"
	case Prism:
		return "prism"
	default:
		return fmt.Sprintf("DisperserClass(%d)", int(d))
	}
}

// CoordParams bundles the zero-indexed CRPIX/CRVAL/CDELT/LTM/LTV values for
// one axis pair. All fields are always zero-indexed internally; any
// one-indexed on-disk convention is converted by the host at read time.
type CoordParams struct {
	CRPIX [2]float64 // Reference pixel, axis 1 and 2.
	CRVAL [2]float64 // Reference value, axis 1 and 2.
	CDELT [2]float64 // Pixel scale, axis 1 and 2.
	LTM   [2]float64 // Diagonal image-to-reference scale, axis 1 and 2.
	LTV   [2]float64 // Image-to-reference offset, axis 1 and 2.
}

// DQ bit masks used by the data-quality buffer. Only the bits the core
// inspects are named; a real DQ array may carry other bits the core
// ignores.
const (
	DQOK         uint16 = 0
	DQDataReject uint16 = 1 << 0 // Flagged as a cosmic ray / outlier.
	DQDataMasked uint16 = 1 << 1 // Behind an occulting bar, or off-slit.
	DQHotPix     uint16 = 1 << 2
	DQSmallBlem  uint16 = 1 << 3
)

// PixelFrame is a pair of same-shaped 2-D arrays: the science buffer and
// the data-quality buffer. Row-major, Ny rows of Nx columns.
type PixelFrame struct {
	Nx, Ny int
	SCI    []float64 // len == Nx*Ny
	DQ     []uint16  // len == Nx*Ny
}

// NewPixelFrame allocates a zeroed frame of the given shape.
func NewPixelFrame(nx, ny int) *PixelFrame {
	return &PixelFrame{
		Nx:  nx,
		Ny:  ny,
		SCI: make([]float64, nx*ny),
		DQ:  make([]uint16, nx*ny),
	}
}

// At returns the linear index of pixel (x, y), x fastest-varying.
func (f *PixelFrame) At(x, y int) int { return y*f.Nx + x }

// Sci returns the science value at (x, y).
func (f *PixelFrame) Sci(x, y int) float64 { return f.SCI[f.At(x, y)] }

// SetSci sets the science value at (x, y).
func (f *PixelFrame) SetSci(x, y int, v float64) { f.SCI[f.At(x, y)] = v }

// Dq returns the DQ value at (x, y).
func (f *PixelFrame) Dq(x, y int) uint16 { return f.DQ[f.At(x, y)] }

// OrDq ORs bits into the DQ value at (x, y).
func (f *PixelFrame) OrDq(x, y int, bits uint16) { f.DQ[f.At(x, y)] |= bits }

// ImsetHeader is the immutable-after-load per-imset metadata described in
// spec.md §3.
type ImsetHeader struct {
	ExtVer int

	Detector       Detector
	Disperser      DisperserClass
	DispAxis       int // 1 or 2
	Aperture       string
	Grating        string
	ApertureFOV    string // "WxH" in arcsec
	LampName       string
	LampSet        string
	SCLamp         string // "NONE" unless a uniform lamp is in use
	LampCurrent    float64
	CenWave        int
	SpectralOrder  int
	MRef           int     // Reference order for echelle a4-correction.
	YRef           float64 // Reference Y for echelle a4-correction.
	A4Corr         float64

	Coord CoordParams

	SDQFlags uint16

	ImsetOK  bool
	ExpTime  float64
	ExpStart float64 // Modified Julian day.
}

// Header is the primary + extension header accessor the Reference Loader
// needs: selection-key lookups plus the keyword write-back.
type Header interface {
	// Primary-header selection keys used by the Reference Loader (§4.1).
	OptElem() string
	CenWave() int
	Detector() Detector
	LampSet() string
	SCLamp() string
	Aperture() string

	// ReferenceFile returns the on-disk path bound to a reference-file
	// keyword (e.g. "WCPTAB"), or "" / NOT_APPLICABLE if the keyword is
	// absent or deliberately omitted.
	ReferenceFile(keyword string) string
}

// ExtensionHost is the per-imset collaborator: open an extension, get its
// header/pixels/coordinates, and write back the two shift keywords.
type ExtensionHost interface {
	Header

	// NumImsets returns the number of SCI/ERR/DQ imsets in the exposure.
	NumImsets() int

	// OpenImset reads imset i (1-based, ascending extver order) and
	// returns its header metadata and pixel buffers.
	OpenImset(i int) (*ImsetHeader, *PixelFrame, error)

	// WriteShifts writes SHIFTA1 and SHIFTA2 (in reference pixels) to the
	// SCI extension header of imset i.
	WriteShifts(i int, shiftA1, shiftA2 float64) error

	// AppendHistory appends HISTORY records to the primary header. Called
	// once, after the first processed imset.
	AppendHistory(lines []string) error
}

// NotApplicable is the sentinel filename meaning "deliberately omitted".
const NotApplicable = "N/A"

// IsOmitted reports whether a reference-file name means "not used".
func IsOmitted(name string) bool {
	return name == "" || name == NotApplicable
}
