// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/go-lpc/decom/calc"
	"github.com/go-lpc/decom/measurand"
	"github.com/go-lpc/decom/param"
	"github.com/spf13/pflag"
)

func newFlagSet(name, args, doc string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s\n\nUsage: decom %s [OPTIONS] %s\n\n", doc, name, args)
		fmt.Fprintf(os.Stderr, "Arguments starting with '-' must follow '--'.\n\n")
		fs.PrintDefaults()
	}
	return fs
}

// parseFlags parses args and reports whether the command should run.
func parseFlags(fs *pflag.FlagSet, args []string, nargs ...int) (bool, error) {
	err := fs.Parse(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return false, nil
		}
		return false, fmt.Errorf("%v: %w", err, errUsage)
	}
	for _, n := range nargs {
		if fs.NArg() == n {
			return true, nil
		}
	}
	fs.Usage()
	return false, fmt.Errorf("invalid number of arguments (got=%d): %w", fs.NArg(), errUsage)
}

func runCalc(w io.Writer, args []string) error {
	fs := newFlagSet("calc", "TEXT [PV]", "calc evaluates a calculator expression, for the parameter value PV (default 0).")
	ok, err := parseFlags(fs, args, 1, 2)
	if !ok || err != nil {
		return err
	}

	pv := 0.0
	if fs.NArg() == 2 {
		pv, err = strconv.ParseFloat(fs.Arg(1), 64)
		if err != nil {
			return fmt.Errorf("could not parse parameter value %q: %w", fs.Arg(1), err)
		}
	}
	return evalCalc(w, fs.Arg(0), pv)
}

func runParam(w io.Writer, args []string) error {
	fs := newFlagSet("param", "TEXT", "param parses a parameter definition.")
	ok, err := parseFlags(fs, args, 1)
	if !ok || err != nil {
		return err
	}
	return evalParam(w, fs.Arg(0))
}

func runMeas(w io.Writer, args []string) error {
	fs := newFlagSet("meas", "TEXT", "meas parses a measurand definition.")
	ok, err := parseFlags(fs, args, 1)
	if !ok || err != nil {
		return err
	}
	return evalMeas(w, fs.Arg(0))
}

func evalCalc(w io.Writer, text string, pv float64) error {
	v, err := calc.Parse(text)
	if err != nil {
		return fmt.Errorf("could not parse expression: %w", err)
	}
	if v.IsConst() {
		fmt.Fprintf(w, "out = %v\n", v.Eval(pv))
		return nil
	}
	fmt.Fprintf(w, "func(pv) = %v\n", v.Eval(pv))
	return nil
}

func evalParam(w io.Writer, text string) error {
	p, err := param.Parse(text)
	if err != nil {
		return fmt.Errorf("could not parse parameter: %w", err)
	}
	fmt.Fprintf(w, "out = %v\n", p)
	return nil
}

func evalMeas(w io.Writer, text string) error {
	m, err := measurand.Parse(text)
	if err != nil {
		return fmt.Errorf("could not parse measurand: %w", err)
	}
	fmt.Fprintf(w, "out = %v\n", m)
	return nil
}
