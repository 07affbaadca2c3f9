/*
NAME
  config.go

DESCRIPTION
  config holds the exposure context (spec.md §3): the input paths,
  debug/verbosity options, the echelle-slit angle, and the reference-file
  name/keyword bindings that the Reference Loader consults. It is
  constructed once per run from parsed command-line flags and the primary
  header, and is immutable for the lifetime of that run (spec.md §5).

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config provides the configuration settings for wavecal.
package config

import (
	"math"

	"github.com/pkg/errors"

	"github.com/ausocean/utils/logging"
)

// Key* name the reference-file keywords the Reference Loader binds
// against the primary header (spec.md §4.1). Collected here, rather than
// sprinkled as string literals, the way revid/config names its Input/
// Output/Codec enums.
const (
	KeyWCPTAB   = "WCPTAB"
	KeyLAMPTAB  = "LAMPTAB"
	KeyAPDESTAB = "APDESTAB"
	KeyDISPTAB  = "DISPTAB"
	KeyINANGTAB = "INANGTAB"
	KeySPTRCTAB = "SPTRCTAB"
	KeySDCTAB   = "SDCTAB"
)

// ReferenceKeywords lists every keyword the loader may consult, in the
// order the Reference Loader resolves them.
var ReferenceKeywords = []string{
	KeyWCPTAB,
	KeyLAMPTAB,
	KeyAPDESTAB,
	KeyDISPTAB,
	KeyINANGTAB,
	KeySPTRCTAB,
	KeySDCTAB,
}

// Config provides the parameters relevant to one wavecal invocation. A
// new Config must be passed to the driver; default values for fields
// left unset are applied by Validate.
type Config struct {
	// InputPaths is the positional argument list: one or more input
	// image paths (spec.md §6).
	InputPaths []string

	// Timestamp, if true, prints a timestamp after each major step (-t).
	Timestamp bool

	// Verbose enables diagnostic-level logging (-v).
	Verbose bool

	// DebugPath, if non-empty, names the debug output destination (-d).
	// Appended to for gratings/prism; a FITS file for echelle.
	DebugPath string

	// EchelleSlitAngleDeg is the long-slit-with-echelle tilt angle in
	// degrees, as given on the command line (-angle); default 0.
	EchelleSlitAngleDeg float64

	// RefFiles maps a Key* reference-file keyword to the on-disk path
	// bound to it by the primary header.
	RefFiles map[string]string

	// Logger is the sink every package's package-level Log variable is
	// set to at startup. Must be set for wavecal to work correctly.
	Logger logging.Logger

	// LogLevel is the wavecal logging verbosity level. Valid values are
	// defined by logging.Debug, logging.Info, logging.Warning,
	// logging.Error, logging.Fatal.
	LogLevel int8
}

// EchelleSlitAngleRad returns the configured slit angle in radians, the
// unit the Template Builder and spec.md §3 use internally.
func (c *Config) EchelleSlitAngleRad() float64 {
	return c.EchelleSlitAngleDeg * math.Pi / 180
}

// ReferenceFile returns the path bound to a Key* keyword, or "" if unset.
func (c *Config) ReferenceFile(keyword string) string {
	return c.RefFiles[keyword]
}

// Validate checks for errors in the config fields and is called once
// after flag parsing, before the imset loop starts. A positional-
// argument or flag problem here is a setup error per spec.md §7
// ("inconsistent command line") and is fatal for the whole invocation.
func (c *Config) Validate() error {
	if len(c.InputPaths) == 0 {
		return errors.New("config: no input image paths given")
	}
	if c.RefFiles == nil {
		c.RefFiles = make(map[string]string)
	}
	return nil
}
