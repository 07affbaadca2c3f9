package waveshift

import (
	"math"
	"testing"

	"github.com/spacetelescope/hstcal-sub005/dispersion"
	"github.com/spacetelescope/hstcal-sub005/fitsio"
	"github.com/spacetelescope/hstcal-sub005/refdata"
	"github.com/spacetelescope/hstcal-sub005/shift"
)

func gaussian(i int, center, width float64) float64 {
	d := (float64(i) - center) / width
	return math.Exp(-0.5 * d * d)
}

func TestCrossCorrelateRecoversIntegerShift(t *testing.T) {
	const n = 201
	template := make([]float64, n)
	for i := range template {
		template[i] = gaussian(i, 100, 5)
	}
	const trueShift = 2
	x := make([]float64, n)
	bad := make([]bool, n)
	for i := range x {
		j := i + trueShift
		if j >= 0 && j < n {
			x[i] = template[j]
		}
	}

	xcorr := CrossCorrelate(x, bad, template, 21)
	sh, ok := PeakShift(xcorr)
	if !ok {
		t.Fatalf("PeakShift reported failure, want success")
	}
	if math.Abs(sh-(-trueShift)) > 0.05 {
		t.Errorf("shift = %v, want approximately %v", sh, -trueShift)
	}
}

func TestPeakShiftRejectsEdgePeak(t *testing.T) {
	// Monotonically decreasing: the maximum sits at index 0, the window
	// edge, so the peak is unreliable (spec.md §8).
	xcorr := []float64{10, 8, 6, 4, 2, 1}
	if _, ok := PeakShift(xcorr); ok {
		t.Errorf("PeakShift succeeded with peak at window edge, want failure")
	}
}

func TestPeakShiftTooShort(t *testing.T) {
	if _, ok := PeakShift([]float64{1, 2}); ok {
		t.Errorf("PeakShift succeeded on a window shorter than 3 samples")
	}
}

func TestCollapseAllBadYieldsUndefinedShift(t *testing.T) {
	const nx, ny = 50, 50
	frame := fitsio.NewPixelFrame(nx, ny)
	for i := range frame.SCI {
		frame.SCI[i] = 100
	}
	// Trim the entire dispersion axis away: every column is out of the
	// WL trim box.
	wcp := refdata.WcpParameters{WLTrim1: 0, WLTrim2: nx, SPTrim1: 0, SPTrim2: 0, WLRange: 21}

	rel, err := dispersion.NewRelation([]float64{0, 1}, false, false)
	if err != nil {
		t.Fatal(err)
	}
	lamp := refdata.NewLampSpectrum([]float64{1, 2, 3}, []float64{1, 1, 1})
	coord := fitsio.CoordParams{LTM: [2]float64{1, 1}, LTV: [2]float64{0, 0}}

	res := FindShift(frame, 1, 0, wcp, coord, rel, 0, lamp, 3)
	if res.Shift != shift.Undefined {
		t.Errorf("Shift = %v, want shift.Undefined for an all-trimmed frame", res.Shift)
	}
	for i, w := range res.SpecWeight {
		if w != 0 {
			t.Errorf("SpecWeight[%d] = %v, want 0 when every bin is bad", i, w)
		}
	}
}

func TestCollapseSpecWeightIsNonNegative(t *testing.T) {
	const nx, ny = 40, 20
	frame := fitsio.NewPixelFrame(nx, ny)
	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			frame.SetSci(x, y, float64(x)-float64(nx)/2)
		}
	}
	wcp := refdata.WcpParameters{WLTrim1: 2, WLTrim2: 2, SPTrim1: 2, SPTrim2: 2, WLRange: 21}
	c := Collapse(frame, 1, 0, wcp)
	for i, w := range c.SpecWeight {
		if w < 0 {
			t.Errorf("SpecWeight[%d] = %v, want >= 0", i, w)
		}
	}
}

func TestTrimTemplateZeroesOutsideChopMargin(t *testing.T) {
	templ := make([]float64, 100)
	for i := range templ {
		templ[i] = 1
	}
	bad := make([]bool, 100)
	bad[0] = true
	bad[99] = true
	trimTemplate(templ, bad)
	if templ[ChopExtra-1] != 0 {
		t.Errorf("templ[%d] = %v, want 0 (inside the chopped margin)", ChopExtra-1, templ[ChopExtra-1])
	}
	if templ[ChopExtra+1] != 1 {
		t.Errorf("templ[%d] = %v, want 1 (past the chopped margin)", ChopExtra+1, templ[ChopExtra+1])
	}
}

func TestBuildTemplate1DZeroWithoutLampOrRelation(t *testing.T) {
	out := BuildTemplate1D(10, fitsio.CoordParams{}, 0, nil, 0, nil, 3)
	for i, v := range out {
		if v != 0 {
			t.Errorf("out[%d] = %v, want 0 when lamp/relation is nil", i, v)
		}
	}
}
