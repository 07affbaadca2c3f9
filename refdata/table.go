/*
NAME
  table.go

DESCRIPTION
  table.go defines the row-oriented reference-table contract the Reference
  Loader consumes. Opening the actual on-disk table (a FITS bintable, in
  the real pipeline) is outside this core's scope per spec.md §1/§6; the
  loader only needs a TableReader that hands back string-keyed rows.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package refdata

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Row is one reference-table row: column name (upper-cased) to string
// value. Numeric/selection columns are parsed on demand by the helpers
// below.
type Row map[string]string

// Pedigree returns the row's pedigree marker, or "" if absent.
func (r Row) Pedigree() Pedigree { return Pedigree(r["PEDIGREE"]) }

// Str returns column col, or "" if absent.
func (r Row) Str(col string) string { return r[strings.ToUpper(col)] }

// Float returns column col parsed as float64, erroring if absent or
// unparsable.
func (r Row) Float(col string) (float64, error) {
	v, ok := r[strings.ToUpper(col)]
	if !ok {
		return 0, errors.Errorf("table row missing column %q", col)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, errors.Wrapf(err, "column %q value %q", col, v)
	}
	return f, nil
}

// Int returns column col parsed as int, erroring if absent or unparsable.
func (r Row) Int(col string) (int, error) {
	v, ok := r[strings.ToUpper(col)]
	if !ok {
		return 0, errors.Errorf("table row missing column %q", col)
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, errors.Wrapf(err, "column %q value %q", col, v)
	}
	return n, nil
}

// TableReader opens a reference table by path and returns every row. The
// real implementation reads a FITS bintable extension; it lives in the
// (out-of-scope) FITS I/O layer.
type TableReader interface {
	ReadTable(path string) ([]Row, error)
}

// SelectRows returns every row of rows whose selection columns match the
// key/value pairs in sel, honouring the ANY wildcard and treating an
// absent column as wildcard (spec.md §4.1). DUMMY rows are included in
// the result so the caller can distinguish "no matching row at all"
// (hard error) from "the matching row is DUMMY" (soft policy, see
// spec.md §4.1's DUMMY-pedigree policy).
func SelectRows(rows []Row, sel map[string]string) []Row {
	var out []Row
	for _, row := range rows {
		ok := true
		for col, want := range sel {
			if !MatchField(row.Str(col), want) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, row)
		}
	}
	return out
}

// AllDummy reports whether every row in a non-empty match set is DUMMY.
func AllDummy(rows []Row) bool {
	if len(rows) == 0 {
		return false
	}
	for _, row := range rows {
		if !row.Pedigree().IsDummy() {
			return false
		}
	}
	return true
}

// FirstUsable returns the first non-DUMMY row, or the zero Row and false
// if every row is DUMMY.
func FirstUsable(rows []Row) (Row, bool) {
	for _, row := range rows {
		if !row.Pedigree().IsDummy() {
			return row, true
		}
	}
	return nil, false
}
