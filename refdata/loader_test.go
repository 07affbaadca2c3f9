package refdata

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/spacetelescope/hstcal-sub005/fitsio"
)

type fakeHeader struct {
	optElem, lampSet, sclamp, aperture string
	cenwave                            int
	detector                           fitsio.Detector
	refFiles                           map[string]string
}

func (h *fakeHeader) OptElem() string            { return h.optElem }
func (h *fakeHeader) CenWave() int                { return h.cenwave }
func (h *fakeHeader) Detector() fitsio.Detector   { return h.detector }
func (h *fakeHeader) LampSet() string             { return h.lampSet }
func (h *fakeHeader) SCLamp() string              { return h.sclamp }
func (h *fakeHeader) Aperture() string            { return h.aperture }
func (h *fakeHeader) ReferenceFile(kw string) string {
	if f, ok := h.refFiles[kw]; ok {
		return f
	}
	return fitsio.NotApplicable
}

type fakeReader struct {
	tables map[string][]Row
}

func (r *fakeReader) ReadTable(path string) ([]Row, error) { return r.tables[path], nil }

func TestLoadWCPDefaultsWhenDummy(t *testing.T) {
	h := &fakeHeader{optElem: "G430L", detector: fitsio.CCD, refFiles: map[string]string{"WCPTAB": "wcp.fits"}}
	reader := &fakeReader{tables: map[string][]Row{
		"wcp.fits": {
			{"DETECTOR": "CCD", "OPT_ELEM": "G430L", "PEDIGREE": "DUMMY"},
		},
	}}
	wcp, _, err := loadWCP(h, reader, SelectionFrom(h))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(DefaultWCP(), wcp); diff != "" {
		t.Errorf("expected default WCP (-want +got):\n%s", diff)
	}
}

func TestLoadWCPNoMatchIsHardError(t *testing.T) {
	h := &fakeHeader{optElem: "E230M", detector: fitsio.CCD, refFiles: map[string]string{"WCPTAB": "wcp.fits"}}
	reader := &fakeReader{tables: map[string][]Row{
		"wcp.fits": {{"DETECTOR": "CCD", "OPT_ELEM": "G430L"}},
	}}
	_, _, err := loadWCP(h, reader, SelectionFrom(h))
	if err == nil {
		t.Fatal("expected hard error for no matching WCPTAB row")
	}
}

func TestLoadWCPAnyWildcard(t *testing.T) {
	h := &fakeHeader{optElem: "G430L", detector: fitsio.CCD, refFiles: map[string]string{"WCPTAB": "wcp.fits"}}
	reader := &fakeReader{tables: map[string][]Row{
		"wcp.fits": {{
			"DETECTOR": "any", "OPT_ELEM": "G430L",
			"WL_TRIM1": "1", "WL_TRIM2": "2", "SP_TRIM1": "3", "SP_TRIM2": "4",
			"WL_RANGE": "62", "SP_RANGE": "60",
			"NSIGMA_CR": "3", "NSIGMA_ILLUM": "2", "MAD_REJECT": "3", "MIN_MAD": "1",
		}},
	}}
	wcp, _, err := loadWCP(h, reader, SelectionFrom(h))
	if err != nil {
		t.Fatal(err)
	}
	if wcp.WLRange != 63 || wcp.SPRange != 61 {
		t.Errorf("ForceOdd not applied: got WLRange=%d SPRange=%d", wcp.WLRange, wcp.SPRange)
	}
}

func TestLoadLampRequiredDummyIsNothingToDo(t *testing.T) {
	h := &fakeHeader{optElem: "G430L", lampSet: "20", sclamp: "NONE", refFiles: map[string]string{"LAMPTAB": "lamp.fits"}}
	reader := &fakeReader{tables: map[string][]Row{
		"lamp.fits": {{"LAMPSET": "20", "SCLAMP": "NONE", "OPT_ELEM": "G430L", "PEDIGREE": "DUMMY"}},
	}}
	_, _, status, err := loadLamp(h, reader, SelectionFrom(h))
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusNothingToDo {
		t.Errorf("status = %v, want StatusNothingToDo", status)
	}
}

func TestLoadDispersionTieBreakClosestToMiddle(t *testing.T) {
	h := &fakeHeader{optElem: "G430L", cenwave: 4300, refFiles: map[string]string{"DISPTAB": "disp.fits"}}
	reader := &fakeReader{tables: map[string][]Row{
		"disp.fits": {
			{"OPT_ELEM": "G430L", "CENWAVE": "4300", "A2CENTER": "100", "NCOEFF": "1", "COEFF_0": "4300"},
			{"OPT_ELEM": "G430L", "CENWAVE": "4300", "A2CENTER": "510", "NCOEFF": "1", "COEFF_0": "4350"},
			{"OPT_ELEM": "G430L", "CENWAVE": "4300", "A2CENTER": "900", "NCOEFF": "1", "COEFF_0": "4400"},
		},
	}}
	rel, _, _, status, err := loadDispersion(h, reader, SelectionFrom(h), fitsio.Rectified)
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusOK {
		t.Fatalf("status = %v", status)
	}
	if rel.Coeff[0] != 4350 {
		t.Errorf("tie-break picked wrong row: coeff[0]=%v want 4350", rel.Coeff[0])
	}
}
