/*
NAME
  reader_stub.go

DESCRIPTION
  reader_stub.go documents the TableReader a real FITS bintable layer
  must implement (spec.md §1/§6): read a reference table by path and
  hand back its rows. Parsing the actual FITS bintable is outside this
  core's scope; FileTableReader exists so cmd/wavecal has a concrete
  type to construct against until that layer exists.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package refdata

import "github.com/pkg/errors"

// FileTableReader is a TableReader contract stub bound to a reference-
// table search directory. A real implementation parses FITS bintable
// extensions; this one only wires the interface.
type FileTableReader struct {
	// Dir is the directory reference-file paths are resolved relative
	// to, when they are not already absolute.
	Dir string
}

func (r FileTableReader) ReadTable(path string) ([]Row, error) {
	return nil, errors.Errorf("refdata: FileTableReader is a contract stub; wire a real FITS bintable reader to read %q", path)
}
