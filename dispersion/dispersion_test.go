package dispersion

import (
	"math"
	"testing"
)

func TestEvalInverseRoundTripGrating(t *testing.T) {
	r, err := NewRelation([]float64{4300, 2.75, 1e-5}, false, false)
	if err != nil {
		t.Fatal(err)
	}
	for x := -500.0; x <= 500.0; x += 37 {
		wl := r.Eval(0, x)
		got := r.Inverse(0, wl, x+5, InverseTolDefault)
		if math.Abs(got-x) > 1e-4 {
			t.Errorf("x=%v: inverse(eval(x))=%v, want %v", x, got, x)
		}
	}
}

func TestEvalInverseRoundTripEchelle(t *testing.T) {
	r, err := NewRelation([]float64{2.707e6, 2.0, 1e-4, 0, 1e-7}, false, true)
	if err != nil {
		t.Fatal(err)
	}
	r.MRef = 100
	for _, m := range []int{98, 100, 103} {
		for x := -400.0; x <= 400.0; x += 80 {
			wl := r.Eval(m, x)
			got := r.Inverse(m, wl, x+3, InverseTolDefault)
			if math.Abs(got-x) > 1e-3 {
				t.Errorf("m=%d x=%v: inverse(eval(x))=%v, want %v", m, x, got, x)
			}
		}
	}
}

func TestPrismInverseClamped(t *testing.T) {
	r, err := NewRelation([]float64{1000, -50, 2e6}, true, false)
	if err != nil {
		t.Fatal(err)
	}
	got := r.Inverse(0, MaxPrismWavelength+500, 0, InverseTolDefault)
	if r.evalPrism(got) < MaxPrismWavelength-1 {
		t.Errorf("clamped inverse pixel %v evaluates to %v, want >= %v", got, r.evalPrism(got), MaxPrismWavelength-1)
	}
}

func TestApplyA4ResetRoundTrip(t *testing.T) {
	r, err := NewRelation([]float64{1, 2, 3, 4, 5}, false, true)
	if err != nil {
		t.Fatal(err)
	}
	r.MRef = 10
	r.A4Corr = 0.25
	r.ApplyA4(12)
	if r.Coeff[4] == r.CoeffSave[4] {
		t.Fatalf("ApplyA4 did not change Coeff[4]")
	}
	r.Reset()
	if r.Coeff != r.CoeffSave {
		t.Fatalf("Reset did not restore Coeff from CoeffSave")
	}
}

func TestTraceInterpolateExact(t *testing.T) {
	recs := []Record{
		{A2Center: 100, A1Center: 10, Order: 1, NElem: 3, A2Displ: [MaxTraceElem]float64{0, 1, 2}},
		{A2Center: 500, A1Center: 12, Order: 1, NElem: 3, A2Displ: [MaxTraceElem]float64{0.5, 1.5, 2.5}},
		{A2Center: 900, A1Center: 14, Order: 1, NElem: 3, A2Displ: [MaxTraceElem]float64{1, 2, 3}},
	}
	l := NewList(recs)
	for k, want := range recs {
		got := l.Interpolate(want.A2Center)
		if got.A1Center != want.A1Center {
			t.Errorf("record %d: A1Center=%v want %v", k, got.A1Center, want.A1Center)
		}
		for i := 0; i < want.NElem; i++ {
			if got.A2Displ[i] != want.A2Displ[i] {
				t.Errorf("record %d elem %d: got %v want %v", k, i, got.A2Displ[i], want.A2Displ[i])
			}
		}
	}
}

func TestTraceInterpolateOutOfRange(t *testing.T) {
	recs := []Record{
		{A2Center: 100, A1Center: 10, Order: 1, NElem: 2, A2Displ: [MaxTraceElem]float64{1, 2}},
		{A2Center: 900, A1Center: 14, Order: 1, NElem: 2, A2Displ: [MaxTraceElem]float64{3, 4}},
	}
	l := NewList(recs)

	below := l.Interpolate(-50)
	if below.A1Center != 10 || below.A2Center != -50 {
		t.Errorf("below range: got %+v", below)
	}
	if math.IsNaN(below.A2Displ[0]) {
		t.Errorf("below range produced NaN")
	}

	above := l.Interpolate(2000)
	if above.A1Center != 14 || above.A2Center != 2000 {
		t.Errorf("above range: got %+v", above)
	}
}

func TestRotate(t *testing.T) {
	rec := Record{A1Center: 0, NElem: 3, A2Displ: [MaxTraceElem]float64{0, 0, 0}}
	rotated := Rotate(rec, 45)
	if math.Abs(rotated.A2Displ[1]-1) > 1e-9 {
		t.Errorf("rotate by 45deg at dx=1: got %v want ~1", rotated.A2Displ[1])
	}
}
