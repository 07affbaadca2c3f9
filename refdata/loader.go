/*
NAME
  loader.go

DESCRIPTION
  loader.go is the Reference Loader (spec.md §4.1): resolves and validates
  WCPTAB/LAMPTAB/APDESTAB/DISPTAB/INANGTAB/SPTRCTAB/SDCTAB, applies the
  tuple-matching and tie-break rules, and applies the DUMMY-pedigree
  policy (soft defaults for WCP/SDC, clean "nothing to do" for everything
  else).

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package refdata

import (
	"math"

	"github.com/pkg/errors"

	"github.com/ausocean/utils/logging"

	"github.com/spacetelescope/hstcal-sub005/dispersion"
	"github.com/spacetelescope/hstcal-sub005/fitsio"
)

// Log is the package-level logger, set by the driver at startup,
// following the teacher's "var Log logging.Logger" convention
// (codec/jpeg/lex.go).
var Log logging.Logger

const pkg = "refdata: "

// Status reports the outcome of a reference-load attempt.
type Status int

const (
	StatusOK Status = iota
	// StatusNothingToDo means a required table carried a DUMMY
	// pedigree; the driver must treat the imset cleanly, exit 0, and
	// leave both shifts undefined (spec.md §4.1, §7).
	StatusNothingToDo
)

// DefaultSDCCrpix2 and DefaultSDCCdelt2Deg are the prism cross-dispersion
// defaults used when SDCTAB is missing or DUMMY (spec.md §4.1).
const (
	DefaultSDCCrpix2    = 512.0
	DefaultSDCCdelt2Deg = 0.02915 / 3600.0
)

// DetectorMiddleY is the DISPTAB tie-break constant: the row whose
// a2center is closest to this value wins. Spec.md §9 notes this assumes
// a 1024-row detector and may not generalise.
const DetectorMiddleY = 512.0

// Bundle is everything the Reference Loader resolves for one exposure:
// ready for the dispersion/template/shift-finder stages.
type Bundle struct {
	WCP    WcpParameters
	Lamp   *LampSpectrum
	Aper   ApertureDescription
	Disp   *dispersion.Relation
	Traces *dispersion.List

	SDCCrpix2    float64
	SDCCdelt2Deg float64

	// Sources lists, in resolution order, "TABLE=filename" strings for
	// every table actually consulted; the driver turns this into the
	// primary-header HISTORY records (spec.md §4.9).
	Sources []string
}

// Selection is the tuple of primary-header values the table-matching
// rules select on (spec.md §4.1).
type Selection struct {
	OptElem  string
	CenWave  int
	Detector fitsio.Detector
	LampSet  string
	SCLamp   string
	Aperture string
}

// SelectionFrom builds a Selection from a Header.
func SelectionFrom(h fitsio.Header) Selection {
	return Selection{
		OptElem:  h.OptElem(),
		CenWave:  h.CenWave(),
		Detector: h.Detector(),
		LampSet:  h.LampSet(),
		SCLamp:   h.SCLamp(),
		Aperture: h.Aperture(),
	}
}

func detectorToken(d fitsio.Detector) string { return d.String() }
func cenwaveToken(c int) string {
	if c == 0 {
		return ""
	}
	return itoa(c)
}

func itoa(n int) string {
	neg := n < 0
	if n == 0 {
		return "0"
	}
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Load resolves every table for disp (the disperser class) given the
// primary header's selection tuple and the bound reference-file paths.
// reader reads on-disk tables (the FITS bintable layer); each table's path
// is looked up by keyword (e.g. "WCPTAB") through h.ReferenceFile.
func Load(h fitsio.Header, reader TableReader, disp fitsio.DisperserClass) (*Bundle, Status, error) {
	sel := SelectionFrom(h)
	b := &Bundle{}

	wcp, wcpSrc, err := loadWCP(h, reader, sel)
	if err != nil {
		return nil, StatusOK, err
	}
	b.WCP = wcp
	if wcpSrc != "" {
		b.Sources = append(b.Sources, "WCPTAB="+wcpSrc)
	}

	lamp, lampSrc, status, err := loadLamp(h, reader, sel)
	if err != nil || status != StatusOK {
		return nil, status, err
	}
	b.Lamp = lamp
	b.Sources = append(b.Sources, "LAMPTAB="+lampSrc)

	aper, aperSrc, status, err := loadAperture(h, reader, sel.Aperture)
	if err != nil || status != StatusOK {
		return nil, status, err
	}
	aper.UniformLamp = sel.SCLamp != "" && !equalFold(sel.SCLamp, "NONE")
	b.Aper = aper
	b.Sources = append(b.Sources, "APDESTAB="+aperSrc)

	dispRel, dispSrc, refAperName, status, err := loadDispersion(h, reader, sel, disp)
	if err != nil || status != StatusOK {
		return nil, status, err
	}
	b.Sources = append(b.Sources, "DISPTAB="+dispSrc)

	if refAperName != "" && refAperName != sel.Aperture {
		refAper, refSrc, status, err := loadAperture(h, reader, refAperName)
		if err != nil || status != StatusOK {
			return nil, status, err
		}
		b.Sources = append(b.Sources, "APDESTAB(ref)="+refSrc)
		if status, err := applyIncidenceAngle(h, reader, sel, dispRel, aper, refAper); err != nil {
			return nil, StatusOK, err
		} else if status != StatusOK {
			return nil, status, nil
		}
	}
	b.Disp = dispRel

	traces, traceSrc, status, err := loadTraces(h, reader, sel)
	if err != nil || status != StatusOK {
		return nil, status, err
	}
	b.Traces = traces
	b.Sources = append(b.Sources, "SPTRCTAB="+traceSrc)

	if disp == fitsio.Prism {
		crpix2, cdelt2, sdcSrc := loadSDC(h, reader, sel)
		b.SDCCrpix2, b.SDCCdelt2Deg = crpix2, cdelt2
		if sdcSrc != "" {
			b.Sources = append(b.Sources, "SDCTAB="+sdcSrc)
		}
	}

	return b, StatusOK, nil
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

func loadWCP(h fitsio.Header, reader TableReader, sel Selection) (WcpParameters, string, error) {
	path := h.ReferenceFile("WCPTAB")
	if fitsio.IsOmitted(path) {
		if Log != nil {
			Log.Warning(pkg + "WCPTAB omitted, using defaults")
		}
		return DefaultWCP(), "", nil
	}
	rows, err := reader.ReadTable(path)
	if err != nil {
		return WcpParameters{}, "", errors.Wrapf(err, "reading WCPTAB %q", path)
	}
	matches := SelectRows(rows, map[string]string{
		"DETECTOR": detectorToken(sel.Detector),
		"OPT_ELEM": sel.OptElem,
	})
	if len(matches) == 0 {
		return WcpParameters{}, "", errors.Errorf("WCPTAB %q: no row matches detector=%s opt_elem=%s", path, sel.Detector, sel.OptElem)
	}
	row, ok := FirstUsable(matches)
	if !ok {
		if Log != nil {
			Log.Warning(pkg + "WCPTAB row is DUMMY, using defaults")
		}
		return DefaultWCP(), path, nil
	}
	wcp := WcpParameters{}
	wcp.WLTrim1, _ = row.Int("WL_TRIM1")
	wcp.WLTrim2, _ = row.Int("WL_TRIM2")
	wcp.SPTrim1, _ = row.Int("SP_TRIM1")
	wcp.SPTrim2, _ = row.Int("SP_TRIM2")
	wlRange, _ := row.Int("WL_RANGE")
	spRange, _ := row.Int("SP_RANGE")
	wcp.WLRange = ForceOdd(wlRange)
	wcp.SPRange = ForceOdd(spRange)
	wcp.NSigmaCR, _ = row.Float("NSIGMA_CR")
	wcp.NSigmaIllum, _ = row.Float("NSIGMA_ILLUM")
	wcp.MADReject, _ = row.Float("MAD_REJECT")
	wcp.MinMAD, _ = row.Float("MIN_MAD")
	return wcp, path, nil
}

func loadLamp(h fitsio.Header, reader TableReader, sel Selection) (*LampSpectrum, string, Status, error) {
	path := h.ReferenceFile("LAMPTAB")
	if fitsio.IsOmitted(path) {
		return nil, "", StatusOK, errors.New("LAMPTAB: required reference file missing")
	}
	rows, err := reader.ReadTable(path)
	if err != nil {
		return nil, "", StatusOK, errors.Wrapf(err, "reading LAMPTAB %q", path)
	}
	matches := SelectRows(rows, map[string]string{
		"LAMPSET":  sel.LampSet,
		"SCLAMP":   sel.SCLamp,
		"OPT_ELEM": sel.OptElem,
	})
	if len(matches) == 0 {
		return nil, "", StatusOK, errors.Errorf("LAMPTAB %q: no row matches lampset=%s sclamp=%s opt_elem=%s", path, sel.LampSet, sel.SCLamp, sel.OptElem)
	}
	row, ok := FirstUsable(matches)
	if !ok {
		if Log != nil {
			Log.Warning(pkg + "LAMPTAB row is DUMMY: nothing to do")
		}
		return nil, path, StatusNothingToDo, nil
	}
	wl, fl := parseSpectrumColumns(row)
	return NewLampSpectrum(wl, fl), path, StatusOK, nil
}

// parseSpectrumColumns reads WAVELENGTH/FLUX array-valued columns. The
// exact array-column encoding is a FITS-table concern outside this core;
// this helper assumes the TableReader has already split the columns into
// per-element "WAVELENGTH_i"/"FLUX_i" keys up to a count in "NELEM".
func parseSpectrumColumns(row Row) (wl, fl []float64) {
	n, err := row.Int("NELEM")
	if err != nil {
		return nil, nil
	}
	wl = make([]float64, 0, n)
	fl = make([]float64, 0, n)
	for i := 0; i < n; i++ {
		w, werr := row.Float("WAVELENGTH_" + itoa(i))
		f, ferr := row.Float("FLUX_" + itoa(i))
		if werr != nil || ferr != nil {
			break
		}
		wl = append(wl, w)
		fl = append(fl, f)
	}
	return wl, fl
}

func loadAperture(h fitsio.Header, reader TableReader, apertureName string) (ApertureDescription, string, Status, error) {
	path := h.ReferenceFile("APDESTAB")
	if fitsio.IsOmitted(path) {
		return ApertureDescription{}, "", StatusOK, errors.New("APDESTAB: required reference file missing")
	}
	rows, err := reader.ReadTable(path)
	if err != nil {
		return ApertureDescription{}, "", StatusOK, errors.Wrapf(err, "reading APDESTAB %q", path)
	}
	matches := SelectRows(rows, map[string]string{"APERTURE": apertureName})
	if len(matches) == 0 {
		return ApertureDescription{}, "", StatusOK, errors.Errorf("APDESTAB %q: no row matches aperture=%s", path, apertureName)
	}
	row, ok := FirstUsable(matches)
	if !ok {
		if Log != nil {
			Log.Warning(pkg + "APDESTAB row is DUMMY: nothing to do")
		}
		return ApertureDescription{}, path, StatusNothingToDo, nil
	}
	aper := ApertureDescription{Name: apertureName}
	aper.WidthDisp, _ = row.Float("WIDTH_DISP")
	aper.WidthCross, _ = row.Float("WIDTH_CROSS")
	for i := 1; i <= 3; i++ {
		c, cerr := row.Float("BAR" + itoa(i) + "_CENTER")
		w, werr := row.Float("BAR" + itoa(i) + "_WIDTH")
		if cerr != nil || werr != nil || w <= 0 {
			continue
		}
		aper.Bars = append(aper.Bars, Bar{Center: c, Width: w})
	}
	return aper, path, StatusOK, nil
}

// loadDispersion resolves DISPTAB, breaking ties on the row whose
// a2center is closest to DetectorMiddleY, and returns the DISPTAB
// reference-aperture name (used to read the aperture APDESTAB was
// measured against, for the incidence-angle correction).
func loadDispersion(h fitsio.Header, reader TableReader, sel Selection, disp fitsio.DisperserClass) (*dispersion.Relation, string, string, Status, error) {
	path := h.ReferenceFile("DISPTAB")
	if fitsio.IsOmitted(path) {
		return nil, "", "", StatusOK, errors.New("DISPTAB: required reference file missing")
	}
	rows, err := reader.ReadTable(path)
	if err != nil {
		return nil, "", "", StatusOK, errors.Wrapf(err, "reading DISPTAB %q", path)
	}
	matches := SelectRows(rows, map[string]string{
		"OPT_ELEM": sel.OptElem,
		"CENWAVE":  cenwaveToken(sel.CenWave),
	})
	if len(matches) == 0 {
		return nil, "", "", StatusOK, errors.Errorf("DISPTAB %q: no row matches opt_elem=%s cenwave=%d", path, sel.OptElem, sel.CenWave)
	}
	if AllDummy(matches) {
		if Log != nil {
			Log.Warning(pkg + "DISPTAB row is DUMMY: nothing to do")
		}
		return nil, path, "", StatusNothingToDo, nil
	}

	var best Row
	bestDist := math.Inf(1)
	for _, row := range matches {
		if row.Pedigree().IsDummy() {
			continue
		}
		a2, err := row.Float("A2CENTER")
		if err != nil {
			a2 = DetectorMiddleY
		}
		d := math.Abs(a2 - DetectorMiddleY)
		if d < bestDist {
			bestDist = d
			best = row
		}
	}

	n, _ := best.Int("NCOEFF")
	coeff := make([]float64, n)
	for i := 0; i < n; i++ {
		coeff[i], _ = best.Float("COEFF_" + itoa(i))
	}
	rel, err := dispersion.NewRelation(coeff, disp == fitsio.Prism, disp == fitsio.Echelle)
	if err != nil {
		return nil, "", "", StatusOK, err
	}
	if mref, merr := best.Int("MREF"); merr == nil {
		rel.MRef = mref
	}
	if yref, yerr := best.Float("YREF"); yerr == nil {
		rel.YRef = yref
	}
	if a4, aerr := best.Float("A4CORR"); aerr == nil {
		rel.A4Corr = a4
	}
	refAper := best.Str("APERTURE")
	return rel, path, refAper, StatusOK, nil
}

func loadTraces(h fitsio.Header, reader TableReader, sel Selection) (*dispersion.List, string, Status, error) {
	path := h.ReferenceFile("SPTRCTAB")
	if fitsio.IsOmitted(path) {
		return nil, "", StatusOK, errors.New("SPTRCTAB: required reference file missing")
	}
	rows, err := reader.ReadTable(path)
	if err != nil {
		return nil, "", StatusOK, errors.Wrapf(err, "reading SPTRCTAB %q", path)
	}
	matches := SelectRows(rows, map[string]string{
		"OPT_ELEM": sel.OptElem,
		"CENWAVE":  cenwaveToken(sel.CenWave),
	})
	if len(matches) == 0 {
		return nil, "", StatusOK, errors.Errorf("SPTRCTAB %q: no row matches opt_elem=%s cenwave=%d", path, sel.OptElem, sel.CenWave)
	}
	if AllDummy(matches) {
		if Log != nil {
			Log.Warning(pkg + "SPTRCTAB rows are DUMMY: nothing to do")
		}
		return nil, path, StatusNothingToDo, nil
	}

	var recs []dispersion.Record
	for _, row := range matches {
		if row.Pedigree().IsDummy() {
			continue
		}
		rec := dispersion.Record{}
		rec.A2Center, _ = row.Float("A2CENTER")
		rec.A1Center, _ = row.Float("A1CENTER")
		rec.Order, _ = row.Int("SPORDER")
		n, _ := row.Int("NELEM")
		if n > dispersion.MaxTraceElem {
			n = dispersion.MaxTraceElem
		}
		rec.NElem = n
		for i := 0; i < n; i++ {
			rec.A2Displ[i], _ = row.Float("A2DISPL_" + itoa(i))
		}
		recs = append(recs, rec)
	}
	return dispersion.NewList(recs), path, StatusOK, nil
}

func loadSDC(h fitsio.Header, reader TableReader, sel Selection) (crpix2, cdelt2 float64, src string) {
	path := h.ReferenceFile("SDCTAB")
	if fitsio.IsOmitted(path) {
		return DefaultSDCCrpix2, DefaultSDCCdelt2Deg, ""
	}
	rows, err := reader.ReadTable(path)
	if err != nil {
		if Log != nil {
			Log.Warning(pkg+"SDCTAB unreadable, using defaults", "error", err)
		}
		return DefaultSDCCrpix2, DefaultSDCCdelt2Deg, ""
	}
	matches := SelectRows(rows, map[string]string{"OPT_ELEM": sel.OptElem})
	row, ok := FirstUsable(matches)
	if !ok {
		if Log != nil {
			Log.Warning(pkg + "SDCTAB missing or DUMMY, using defaults")
		}
		return DefaultSDCCrpix2, DefaultSDCCdelt2Deg, path
	}
	c2, err1 := row.Float("CRPIX2")
	d2, err2 := row.Float("CDELT2")
	if err1 != nil {
		c2 = DefaultSDCCrpix2
	}
	if err2 != nil {
		d2 = DefaultSDCCdelt2Deg
	}
	return c2, d2, path
}
