/*
NAME
  fitsfile.go

DESCRIPTION
  fitsfile.go documents the narrow contract a real FITS I/O layer must
  satisfy to drive the wavecal core (spec.md §1/§6): "open an extension
  and hand back its header, a 2-D pixel buffer, a 2-D data-quality
  buffer, and the LT/CD coordinate parameters; later update two keyword
  values." Opening files, parsing header cards, and header-array
  management are deliberately out of scope (spec.md §1) and are left to
  the host application; this stub only wires the contract so cmd/wavecal
  has a concrete type to construct against until that layer exists.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package fitsio

import "fmt"

// File is the narrow ExtensionHost a real FITS reader/writer
// must implement to drive the core. Path is the on-disk file passed on
// the command line; every method below is unimplemented here and must be
// supplied by the host application's FITS layer (spec.md §1's "Deliberately
// OUT OF SCOPE" list).
type File struct {
	Path string
}

// Open returns a File bound to path. It performs no I/O itself; opening
// the underlying file is the host FITS layer's responsibility.
func Open(path string) (*File, error) {
	return &File{Path: path}, nil
}

var errNotImplemented = fmt.Errorf("fitsio: File is a contract stub; wire a real FITS reader/writer to implement ExtensionHost")

func (f *File) OptElem() string                   { return "" }
func (f *File) CenWave() int                       { return 0 }
func (f *File) Detector() Detector                 { return NUVMAMA }
func (f *File) LampSet() string                    { return "" }
func (f *File) SCLamp() string                     { return "" }
func (f *File) Aperture() string                   { return "" }
func (f *File) ReferenceFile(keyword string) string { return NotApplicable }

func (f *File) NumImsets() int { return 0 }

func (f *File) OpenImset(i int) (*ImsetHeader, *PixelFrame, error) {
	return nil, nil, errNotImplemented
}

func (f *File) WriteShifts(i int, shiftA1, shiftA2 float64) error {
	return errNotImplemented
}

func (f *File) AppendHistory(lines []string) error {
	return errNotImplemented
}
