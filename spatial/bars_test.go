package spatial

import (
	"math"
	"testing"

	"github.com/spacetelescope/hstcal-sub005/refdata"
	"github.com/spacetelescope/hstcal-sub005/shift"
)

func flatProfileWithDip(n, dipLo, dipHi int, baseline float64) []float64 {
	p := make([]float64, n)
	for i := range p {
		p[i] = baseline
	}
	for i := dipLo; i < dipHi && i < n; i++ {
		if i >= 0 {
			p[i] = 0
		}
	}
	return p
}

func TestFindOccultingBarShiftRecoversSingleBarShift(t *testing.T) {
	const n = 200
	const baseline = 100.0
	const trueShift = 2
	// Template for a 4-arcsec-wide bar centred on the array centre (100)
	// covers [98, 102); shift the actual dip right by trueShift pixels.
	profile := flatProfileWithDip(n, 100, 104, baseline)
	bad := make([]bool, n)

	bars := []refdata.Bar{{Center: 0, Width: 4}}
	const cdeltCrossDeg = 1.0 / 3600.0 // 1 arcsec/pixel

	got, ok := FindOccultingBarShift(profile, bad, bars, cdeltCrossDeg, 41)
	if !ok {
		t.Fatalf("FindOccultingBarShift reported failure")
	}
	if math.Abs(got-trueShift) > 0.75 {
		t.Errorf("shift = %v, want approximately %v", got, trueShift)
	}
}

func TestFindOccultingBarShiftTwoBarsAgree(t *testing.T) {
	const n = 400
	const baseline = 100.0
	const trueShift = 3

	profile := make([]float64, n)
	for i := range profile {
		profile[i] = baseline
	}
	// Two bars, one left-of-centre and one right-of-centre, both shifted
	// by the same amount.
	dip(profile, 150+trueShift-2, 150+trueShift+2)
	dip(profile, 250+trueShift-2, 250+trueShift+2)
	bad := make([]bool, n)

	bars := []refdata.Bar{
		{Center: -50, Width: 4},
		{Center: 50, Width: 4},
	}
	const cdeltCrossDeg = 1.0 / 3600.0

	got, ok := FindOccultingBarShift(profile, bad, bars, cdeltCrossDeg, 41)
	if !ok {
		t.Fatalf("FindOccultingBarShift reported failure")
	}
	if math.Abs(got-trueShift) > 0.75 {
		t.Errorf("shift = %v, want approximately %v", got, trueShift)
	}
}

func dip(p []float64, lo, hi int) {
	for i := lo; i < hi && i < len(p); i++ {
		if i >= 0 {
			p[i] = 0
		}
	}
}

func TestFindOccultingBarShiftNoBarsReturnsUndefined(t *testing.T) {
	profile := make([]float64, 100)
	bad := make([]bool, 100)
	got, ok := FindOccultingBarShift(profile, bad, nil, 1.0/3600.0, 21)
	if ok || got != shift.Undefined {
		t.Errorf("FindOccultingBarShift with no bars = (%v, %v), want (Undefined, false)", got, ok)
	}
}

func TestCombineBarShiftsWeightedAverage(t *testing.T) {
	results := []BarResult{
		{Shift: 2.0, Weight: 1, OK: true},
		{Shift: 2.2, Weight: 1, OK: true},
	}
	got, ok := CombineBarShifts(results)
	if !ok {
		t.Fatalf("CombineBarShifts reported failure")
	}
	if math.Abs(got-2.1) > 1e-9 {
		t.Errorf("combined shift = %v, want 2.1", got)
	}
}

func TestCombineBarShiftsDropsWeakestOnWarningSpread(t *testing.T) {
	results := []BarResult{
		{Shift: 0, Weight: 1.0, OK: true},
		{Shift: 7, Weight: 0.5, OK: true},
	}
	got, ok := CombineBarShifts(results)
	if !ok {
		t.Fatalf("CombineBarShifts reported failure")
	}
	if got != 0 {
		t.Errorf("combined shift = %v, want 0 (weakest bar dropped)", got)
	}
}

func TestCombineBarShiftsErrorsOnLargeSpread(t *testing.T) {
	results := []BarResult{
		{Shift: 0, Weight: 1, OK: true},
		{Shift: 15, Weight: 1, OK: true},
	}
	if _, ok := CombineBarShifts(results); ok {
		t.Errorf("CombineBarShifts succeeded despite a spread beyond MAX_DIFF_ERROR")
	}
}

func TestCombineBarShiftsIgnoresUnusableBars(t *testing.T) {
	results := []BarResult{
		{Shift: 5, Weight: 2, OK: false},
		{Shift: 3, Weight: 1, OK: true},
	}
	got, ok := CombineBarShifts(results)
	if !ok || got != 3 {
		t.Errorf("CombineBarShifts = (%v, %v), want (3, true)", got, ok)
	}
}
