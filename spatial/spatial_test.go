package spatial

import (
	"math"
	"testing"

	"github.com/spacetelescope/hstcal-sub005/fitsio"
	"github.com/spacetelescope/hstcal-sub005/refdata"
	"github.com/spacetelescope/hstcal-sub005/shift"
)

func TestClassifySlit(t *testing.T) {
	cases := []struct {
		name string
		want SlitClass
	}{
		{"0.2X0.2", ShortEchelle},
		{"0.3X0.05E1", ShortEchelle},
		{"6X0.2", MediumEchelle},
		{"52X0.2", LongSlit},
		{"52X0.5", LongSlit},
		{"garbage", Unknown},
		{"", Unknown},
	}
	for _, c := range cases {
		if got := ClassifySlit(c.name); got != c.want {
			t.Errorf("ClassifySlit(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestShortSlitShiftRecoversInjectedOffset(t *testing.T) {
	const n = 101
	const width = 6.0
	const injected = 3

	profile := BoxcarTemplate(n, width)
	shifted := make([]float64, n)
	bad := make([]bool, n)
	for i := range shifted {
		j := i - injected
		if j >= 0 && j < n {
			shifted[i] = profile[j]
		}
	}

	got := ShortSlitShift(shifted, bad, width, 21)
	if got == shift.Undefined {
		t.Fatalf("ShortSlitShift returned undefined")
	}
	if math.Abs(got-injected) > 0.5 {
		t.Errorf("ShortSlitShift = %v, want approximately %v", got, injected)
	}
}

func TestMediumSlitShiftAveragesBothEdges(t *testing.T) {
	const n = 201
	profile := make([]float64, n)
	bad := make([]bool, n)
	lo, hi := 90, 111
	for i := lo; i < hi; i++ {
		profile[i] = 1
	}
	center := (lo + hi) / 2
	halfWidth := float64(hi-lo) / 2

	got, ok, warn := MediumSlitShift(profile, bad, center, halfWidth, 21)
	if !ok {
		t.Fatalf("MediumSlitShift reported failure")
	}
	if warn {
		t.Errorf("unexpected warning on a clean edge pair")
	}
	if math.Abs(got) > 0.6 {
		t.Errorf("shift = %v, want close to 0 for a correctly centred slit", got)
	}
}

func TestMediumSlitShiftErrorsOnLargeDisagreement(t *testing.T) {
	const n = 201
	profile := make([]float64, n)
	bad := make([]bool, n)
	// Build a profile whose rising edge (79.5, expected 75) and falling
	// edge (99.5, expected 115) are both found but give shifts of +4.5
	// and -15.5, to force a MAX_DIFF_ERROR rejection. The second block
	// only adds a rising edge, which the upper (falling) search ignores.
	for i := 80; i < 100; i++ {
		profile[i] = 1
	}
	for i := 120; i < 141; i++ {
		profile[i] = 1
	}
	center := 95
	halfWidth := 20.0

	_, ok, _ := MediumSlitShift(profile, bad, center, halfWidth, 41)
	if ok {
		t.Errorf("MediumSlitShift succeeded despite a gross edge disagreement")
	}
}

func TestCollapseAlongDispersionAllBadYieldsBadFlags(t *testing.T) {
	frame := fitsio.NewPixelFrame(20, 10)
	wcp := refdata.WcpParameters{WLTrim1: 0, WLTrim2: 20}
	specWeight := make([]float64, 20)
	_, bad := CollapseAlongDispersion(frame, 1, 0, specWeight, wcp)
	for i := range bad {
		if !bad[i] {
			t.Errorf("bad[%d] = false, want true when the whole dispersion range is trimmed away", i)
		}
	}
}
