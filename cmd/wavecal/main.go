/*
NAME
  main.go

DESCRIPTION
  wavecal is the command-line surface over the shift-determination core
  (spec.md §6): given one or more wavecal exposures, it computes the
  wavelength and spatial (or echelle 2-D) pixel shift for every imset
  and writes SHIFTA1/SHIFTA2 back into each SCI extension header.

AUTHORS
  hstcal-sub005 contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package main is the wavecal command-line entry point.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/utils/logging"

	"github.com/spacetelescope/hstcal-sub005/crflag"
	"github.com/spacetelescope/hstcal-sub005/echelle"
	"github.com/spacetelescope/hstcal-sub005/fitsio"
	"github.com/spacetelescope/hstcal-sub005/internal/debugsink"
	"github.com/spacetelescope/hstcal-sub005/refdata"
	"github.com/spacetelescope/hstcal-sub005/spatial"
	"github.com/spacetelescope/hstcal-sub005/wavecal"
	"github.com/spacetelescope/hstcal-sub005/wavecal/config"
	"github.com/spacetelescope/hstcal-sub005/waveshift"
)

// Current software version.
const version = "v1.0.0"

// Logging configuration, the same shape as cmd/rv's.
const (
	logPath      = "wavecal.log"
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logSuppress  = false
)

const pkg = "wavecal: "

// errorReturn is the non-zero exit code for any fatal error (spec.md §6
// "ERROR_RETURN" on reference file missing, keyword missing, out of
// memory, or inconsistent command line).
const errorReturn = 1

func main() {
	var (
		timestamp   = flag.Bool("t", false, "print timestamp after each major step")
		verbose     = flag.Bool("v", false, "verbose diagnostic output")
		debugPath   = flag.String("d", "", "write debug output to this file")
		angle       = flag.Float64("angle", 0, "slit angle in degrees, for a long slit used with an echelle")
		showVersion = flag.Bool("version", false, "print version string and exit")
		fullVersion = flag.Bool("r", false, "print full version detail and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}
	if *fullVersion {
		fmt.Printf("wavecal %s\n", version)
		os.Exit(0)
	}

	cfg := &config.Config{
		InputPaths:          flag.Args(),
		Timestamp:           *timestamp,
		Verbose:             *verbose,
		DebugPath:           *debugPath,
		EchelleSlitAngleDeg: *angle,
		LogLevel:            logging.Info,
	}
	if *verbose {
		cfg.LogLevel = logging.Debug
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, pkg+"inconsistent command line: "+err.Error())
		os.Exit(errorReturn)
	}

	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(cfg.LogLevel, io.MultiWriter(fileLog, os.Stderr), logSuppress)
	cfg.Logger = log
	wireLoggers(log)

	log.Info("starting wavecal", "version", version)

	for _, path := range cfg.InputPaths {
		if *timestamp {
			log.Info("processing", "path", path)
		}
		if err := processFile(path, cfg); err != nil {
			log.Error(pkg+"fatal error processing exposure", "path", path, "error", err.Error())
			os.Exit(errorReturn)
		}
	}
	os.Exit(0)
}

// wireLoggers points every package's package-level Log variable at the
// driver's logger, the way cmd/rv wires revid's logger at startup.
func wireLoggers(log logging.Logger) {
	refdata.Log = log
	crflag.Log = log
	waveshift.Log = log
	spatial.Log = log
	echelle.Log = log
	wavecal.Log = log
	debugsink.Log = log
}

// processFile runs the driver over one input exposure, constructing the
// host FITS-layer stub from the command-line configuration. The debug
// sink, if requested, is opened by the driver itself once it knows the
// first processed imset's disperser class (spec.md §9).
func processFile(path string, cfg *config.Config) error {
	host, err := fitsio.Open(path)
	if err != nil {
		return err
	}

	reader := refdata.FileTableReader{}
	return wavecal.Run(host, cfg, reader)
}
