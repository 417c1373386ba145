// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command decom parses decommutation definitions and builds measurands
// out of telemetry frames.
//
// Usage: decom <command> [OPTIONS] [ARGS...]
//
// Commands:
//
//	calc    TEXT [PV]   evaluate a calculator expression
//	param   TEXT        parse a parameter definition
//	meas    TEXT        parse a measurand definition
//	build   FILE        build the measurands of a catalog out of a frame file
//	shell               start an interactive shell
//	version             print the version of decom
//
// Example:
//
//	$> decom calc "2**3 + 1"
//	out = 9
//	$> decom calc "PV*2 + 1" 20
//	func(pv) = 41
//	$> decom meas "[1-2];2c;EUC[0.5]"
//	out = [1+2];2c;EUC[0.5]
//	$> decom build -c catalog.yaml -o eu.csv frames.bin
package main // import "github.com/go-lpc/decom/cmd/decom"

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-lpc/decom"
)

var errUsage = errors.New("invalid usage")

func main() {
	log.SetPrefix("decom: ")
	log.SetFlags(0)

	err := xmain(os.Stdout, os.Args[1:])
	if err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		log.Fatalf("%+v", err)
	}
}

func xmain(stdout io.Writer, args []string) error {
	if len(args) == 0 {
		usage(os.Stderr)
		return errUsage
	}

	switch cmd, args := args[0], args[1:]; cmd {
	case "calc":
		return runCalc(stdout, args)
	case "param":
		return runParam(stdout, args)
	case "meas":
		return runMeas(stdout, args)
	case "build":
		return runBuild(stdout, args)
	case "shell":
		return runShell(stdout, args)
	case "version":
		version, sum := decom.Version()
		fmt.Fprintf(stdout, "decom %s %s\n", version, sum)
		return nil
	case "help", "-h", "--help":
		usage(stdout)
		return nil
	default:
		usage(os.Stderr)
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `decom parses decommutation definitions and builds measurands.

Usage: decom <command> [OPTIONS] [ARGS...]

Commands:

  calc    TEXT [PV]   evaluate a calculator expression
  param   TEXT        parse a parameter definition
  meas    TEXT        parse a measurand definition
  build   FILE        build the measurands of a catalog out of a frame file
  shell               start an interactive shell
  version             print the version of decom

Use "decom <command> -h" for more information about a command.
`)
}
