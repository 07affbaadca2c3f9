/*
NAME
  inang.go

DESCRIPTION
  inang.go applies the INANGTAB incidence-angle correction to the
  dispersion coefficients in place (spec.md §4.1), given the slit-offset
  angle between the aperture used for this observation and the one the
  dispersion relation was measured against.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package refdata

import (
	"github.com/pkg/errors"

	"github.com/spacetelescope/hstcal-sub005/dispersion"
	"github.com/spacetelescope/hstcal-sub005/fitsio"
)

// applyIncidenceAngle reads INANGTAB's two coefficient arrays for
// (opt_elem, cenwave) and adjusts rel.Coeff in place using the slit
// offset between ap (this observation's aperture) and refAper (the
// aperture the dispersion relation was measured against), per spec.md
// §4.1:
//
//	disp.coeff[i] += coeff1[i] * angle,  i = 0 .. min(N1,ncoeff)-1
//	disp.coeff[0] += coeff2[0] * angle       if N2 >= 1
//	disp.coeff[0] += coeff2[1] * angle^2     if N2 >= 2
//
// rel.CoeffSave is left untouched, matching spec.md's "preserved in
// coeff_save".
func applyIncidenceAngle(h fitsio.Header, reader TableReader, sel Selection, rel *dispersion.Relation, ap, refAper ApertureDescription) (Status, error) {
	path := h.ReferenceFile("INANGTAB")
	if fitsio.IsOmitted(path) {
		return StatusOK, errors.New("INANGTAB: required reference file missing")
	}
	rows, err := reader.ReadTable(path)
	if err != nil {
		return StatusOK, errors.Wrapf(err, "reading INANGTAB %q", path)
	}
	matches := SelectRows(rows, map[string]string{
		"OPT_ELEM": sel.OptElem,
		"CENWAVE":  cenwaveToken(sel.CenWave),
	})
	if len(matches) == 0 {
		return StatusOK, errors.Errorf("INANGTAB %q: no row matches opt_elem=%s cenwave=%d", path, sel.OptElem, sel.CenWave)
	}
	row, ok := FirstUsable(matches)
	if !ok {
		if Log != nil {
			Log.Warning(pkg + "INANGTAB row is DUMMY: nothing to do")
		}
		return StatusNothingToDo, nil
	}

	n1, _ := row.Int("NCOEFF1")
	n2, _ := row.Int("NCOEFF2")
	coeff1 := make([]float64, n1)
	for i := 0; i < n1; i++ {
		coeff1[i], _ = row.Float("COEFF1_" + itoa(i))
	}
	coeff2 := make([]float64, n2)
	for i := 0; i < n2; i++ {
		coeff2[i], _ = row.Float("COEFF2_" + itoa(i))
	}

	angle := ap.WidthCross*0 + (apOffset(ap) - apOffset(refAper))

	lim := n1
	if rel.NCoeff < lim {
		lim = rel.NCoeff
	}
	for i := 0; i < lim; i++ {
		rel.Coeff[i] += coeff1[i] * angle
	}
	if n2 >= 1 {
		rel.Coeff[0] += coeff2[0] * angle
	}
	if n2 >= 2 {
		rel.Coeff[0] += coeff2[1] * angle * angle
	}
	if n2 > 2 && Log != nil {
		Log.Warning(pkg + "INANGTAB coeff2 has >2 terms, extra terms ignored")
	}
	return StatusOK, nil
}

// apOffset returns the aperture's nominal cross-dispersion centre offset
// in arcsec. Apertures carry their slit-offset as the centre of their
// primary (first) occulting bar when one exists, else zero (a plain
// long slit with no bar is centred on the reference line by convention).
func apOffset(ap ApertureDescription) float64 {
	if len(ap.Bars) > 0 {
		return ap.Bars[0].Center
	}
	return 0
}
