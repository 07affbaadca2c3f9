package wavecal

import (
	"path/filepath"
	"testing"

	"github.com/spacetelescope/hstcal-sub005/fitsio"
	"github.com/spacetelescope/hstcal-sub005/internal/debugsink"
	"github.com/spacetelescope/hstcal-sub005/refdata"
	"github.com/spacetelescope/hstcal-sub005/shift"
	"github.com/spacetelescope/hstcal-sub005/wavecal/config"
)

type fakeReader struct {
	tables map[string][]refdata.Row
}

func (r *fakeReader) ReadTable(path string) ([]refdata.Row, error) { return r.tables[path], nil }

func TestRunSkipsImsetNotOK(t *testing.T) {
	host := fitsio.NewMemHost()
	host.Imsets = []*fitsio.MemImset{{
		Header: &fitsio.ImsetHeader{ExtVer: 1, ImsetOK: false},
		Frame:  fitsio.NewPixelFrame(4, 4),
	}}
	cfg := &config.Config{RefFiles: map[string]string{}}

	if err := Run(host, cfg, &fakeReader{}); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if host.Imsets[0].Written {
		t.Errorf("WriteShifts was called on a skipped (imset_ok=false) imset")
	}
}

func TestRunWritesUndefinedShiftsWhenLampIsDummy(t *testing.T) {
	host := fitsio.NewMemHost()
	host.Imsets = []*fitsio.MemImset{{
		Header: &fitsio.ImsetHeader{
			ExtVer:   1,
			ImsetOK:  true,
			Detector: fitsio.NUVMAMA,
			DispAxis: 1,
			Grating:  "G430L",
			LampSet:  "20",
			SCLamp:   "NONE",
			Aperture: "52X0.2",
			Coord:    fitsio.CoordParams{LTM: [2]float64{1, 1}},
		},
		Frame: fitsio.NewPixelFrame(4, 4),
	}}

	reader := &fakeReader{tables: map[string][]refdata.Row{
		"lamp.fits": {{"LAMPSET": "20", "SCLAMP": "NONE", "OPT_ELEM": "G430L", "PEDIGREE": "DUMMY"}},
	}}
	cfg := &config.Config{RefFiles: map[string]string{"LAMPTAB": "lamp.fits"}}

	if err := Run(host, cfg, reader); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	imset := host.Imsets[0]
	if !imset.Written {
		t.Fatalf("WriteShifts was not called")
	}
	if imset.ShiftA1 != shift.Undefined || imset.ShiftA2 != shift.Undefined {
		t.Errorf("shifts = (%v, %v), want both Undefined on a DUMMY required table", imset.ShiftA1, imset.ShiftA2)
	}
	if len(host.History) != 0 {
		t.Errorf("HISTORY was appended despite no tables having been successfully resolved")
	}
}

func TestScaleToReferencePixelsDividesByLTM(t *testing.T) {
	hdr := &fitsio.ImsetHeader{DispAxis: 1, Coord: fitsio.CoordParams{LTM: [2]float64{2, 4}}}
	got := scaleToReferencePixels(shift.Pair{A1: 10, A2: 20}, hdr)
	if got.A1 != 5 || got.A2 != 5 {
		t.Errorf("scaleToReferencePixels = %+v, want {5 5}", got)
	}
}

func TestScaleToReferencePixelsSwapsOnDispAxis2(t *testing.T) {
	hdr := &fitsio.ImsetHeader{DispAxis: 2, Coord: fitsio.CoordParams{LTM: [2]float64{1, 1}}}
	got := scaleToReferencePixels(shift.Pair{A1: 3, A2: 7}, hdr)
	if got.A1 != 7 || got.A2 != 3 {
		t.Errorf("scaleToReferencePixels with DISPAXIS=2 = %+v, want {7 3}", got)
	}
}

func TestScaleToReferencePixelsLeavesUndefinedAlone(t *testing.T) {
	hdr := &fitsio.ImsetHeader{DispAxis: 1, Coord: fitsio.CoordParams{LTM: [2]float64{2, 2}}}
	got := scaleToReferencePixels(shift.Pair{A1: shift.Undefined, A2: 4}, hdr)
	if got.A1 != shift.Undefined {
		t.Errorf("Undefined shift was scaled: got %v", got.A1)
	}
	if got.A2 != 2 {
		t.Errorf("A2 = %v, want 2", got.A2)
	}
}

func TestHistoryLinesNamesEveryTable(t *testing.T) {
	lines := historyLines([]string{"WCPTAB=wcp.fits", "LAMPTAB=lamp.fits"})
	if len(lines) != 3 {
		t.Fatalf("historyLines returned %d lines, want 3", len(lines))
	}
	if lines[1] != "  WCPTAB=wcp.fits" || lines[2] != "  LAMPTAB=lamp.fits" {
		t.Errorf("historyLines = %v", lines)
	}
}

func TestOpenDebugSinkPicksFITSForEchelle(t *testing.T) {
	sink, err := openDebugSink(filepath.Join(t.TempDir(), "debug"), fitsio.Echelle)
	if err != nil {
		t.Fatalf("openDebugSink() = %v", err)
	}
	defer sink.Close()
	if _, ok := sink.(*debugsink.FITSSink); !ok {
		t.Errorf("openDebugSink(echelle) = %T, want *debugsink.FITSSink", sink)
	}
}

func TestOpenDebugSinkPicksTextForGrating(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.txt")
	sink, err := openDebugSink(path, fitsio.Rectified)
	if err != nil {
		t.Fatalf("openDebugSink() = %v", err)
	}
	defer sink.Close()
	if err := sink.Text("hello"); err != nil {
		t.Errorf("Text() = %v", err)
	}
}
