/*
NAME
  memhost.go

DESCRIPTION
  memhost is an in-memory ExtensionHost used by the rest of the module's
  tests so that refdata/dispersion/template/crflag/waveshift/spatial/
  echelle/wavecal can be exercised without a real FITS reader.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package fitsio

// MemImset is one fabricated imset: header plus pixel frame.
type MemImset struct {
	Header *ImsetHeader
	Frame  *PixelFrame

	ShiftA1, ShiftA2 float64
	Written          bool
}

// MemHost is an in-memory ExtensionHost, primarily for tests and for the
// "-d" debug harness.
type MemHost struct {
	OptElemVal  string
	CenWaveVal  int
	DetectorVal Detector
	LampSetVal  string
	SCLampVal   string
	ApertureVal string

	RefFiles map[string]string

	Imsets []*MemImset

	History []string
}

func NewMemHost() *MemHost {
	return &MemHost{RefFiles: make(map[string]string)}
}

func (h *MemHost) OptElem() string       { return h.OptElemVal }
func (h *MemHost) CenWave() int          { return h.CenWaveVal }
func (h *MemHost) Detector() Detector    { return h.DetectorVal }
func (h *MemHost) LampSet() string       { return h.LampSetVal }
func (h *MemHost) SCLamp() string        { return h.SCLampVal }
func (h *MemHost) Aperture() string      { return h.ApertureVal }

func (h *MemHost) ReferenceFile(keyword string) string {
	if f, ok := h.RefFiles[keyword]; ok {
		return f
	}
	return NotApplicable
}

func (h *MemHost) NumImsets() int { return len(h.Imsets) }

func (h *MemHost) OpenImset(i int) (*ImsetHeader, *PixelFrame, error) {
	m := h.Imsets[i-1]
	return m.Header, m.Frame, nil
}

func (h *MemHost) WriteShifts(i int, a1, a2 float64) error {
	m := h.Imsets[i-1]
	m.ShiftA1, m.ShiftA2 = a1, a2
	m.Written = true
	return nil
}

func (h *MemHost) AppendHistory(lines []string) error {
	h.History = append(h.History, lines...)
	return nil
}
