// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-lpc/decom/catalog"
	"github.com/go-lpc/decom/frames"
	"github.com/go-lpc/decom/measurand"
)

func runBuild(w io.Writer, args []string) error {
	fs := newFlagSet("build", "FILE", `build builds every measurand of a catalog out of a frame file.

Frames are indexed by their position in the file. Measurands with a sampling
strategy are written to their own <out>_<name>.csv file.`)
	var (
		cname = fs.StringP("catalog", "c", "", "path to the YAML catalog of measurands")
		csv   = fs.Bool("csv", false, "read frames from a CSV file")
		wsize = fs.IntP("word-size", "w", 0, "word size of CSV frames (default from catalog)")
		oname = fs.StringP("output", "o", "out.csv", "path to the output CSV file")
		verb  = fs.BoolP("verbose", "v", false, "enable verbose mode")
	)
	ok, err := parseFlags(fs, args, 1)
	if !ok || err != nil {
		return err
	}
	if *cname == "" {
		fs.Usage()
		return fmt.Errorf("missing catalog: %w", errUsage)
	}

	var msg *log.Logger
	if *verb {
		msg = log.New(os.Stderr, "decom: ", 0)
	}

	return build(w, msg, buildOptions{
		catalog:  *cname,
		input:    fs.Arg(0),
		csv:      *csv,
		wordSize: *wsize,
		output:   *oname,
	})
}

type buildOptions struct {
	catalog  string
	input    string
	csv      bool
	wordSize int
	output   string
}

func build(w io.Writer, msg *log.Logger, opts buildOptions) error {
	cat, err := catalog.Open(opts.catalog)
	if err != nil {
		return fmt.Errorf("could not open catalog: %w", err)
	}

	set, err := cat.Compile(msg)
	if err != nil {
		return fmt.Errorf("could not compile catalog: %w", err)
	}

	batch, err := readFrames(opts, cat.WordSize)
	if err != nil {
		return err
	}
	if cat.WordSize != 0 && batch.Data.WordSize() != cat.WordSize {
		return fmt.Errorf(
			"word size mismatch: frames=%d, catalog=%d",
			batch.Data.WordSize(), cat.WordSize,
		)
	}

	index := make([]uint64, batch.Len())
	for i := range index {
		index[i] = uint64(i)
	}
	ib, err := frames.NewIndexedBatch(index, batch)
	if err != nil {
		return fmt.Errorf("could not index frames: %w", err)
	}

	outs, err := set.BuildIndexed(context.Background(), ib)
	if err != nil {
		return fmt.Errorf("could not build measurands: %w", err)
	}

	files := make(map[string][]frames.Column)
	for _, m := range set.Measurands() {
		fname := opts.output
		if len(m.Sampling.Selectors) > 0 {
			fname = sampledName(opts.output, m)
		}
		files[fname] = append(files[fname], frames.Column{
			Name:   m.Name,
			Values: outs[m.Name],
		})
	}

	for _, fname := range sortedKeys(files) {
		err = frames.WriteCSV(fname, files[fname])
		if err != nil {
			return fmt.Errorf("could not write measurands: %w", err)
		}
		fmt.Fprintf(w, "wrote %d measurand(s) to %q\n", len(files[fname]), fname)
	}
	return nil
}

func readFrames(opts buildOptions, wordSize int) (frames.Batch, error) {
	if opts.csv {
		wsize := opts.wordSize
		if wsize == 0 {
			wsize = wordSize
		}
		if wsize == 0 {
			return frames.Batch{}, fmt.Errorf("missing word size for CSV frames: %w", errUsage)
		}
		b, err := frames.ReadCSV(opts.input, wsize)
		if err != nil {
			return frames.Batch{}, fmt.Errorf("could not read CSV frames: %w", err)
		}
		return b, nil
	}

	f, err := frames.Open(opts.input)
	if err != nil {
		return frames.Batch{}, fmt.Errorf("could not open frames: %w", err)
	}
	defer f.Close()

	b, err := f.DecodeAll()
	if err != nil {
		return frames.Batch{}, fmt.Errorf("could not decode frames: %w", err)
	}
	return b, nil
}

func sampledName(out string, m *measurand.Measurand) string {
	ext := filepath.Ext(out)
	return strings.TrimSuffix(out, ext) + "_" + m.Name + ext
}

func sortedKeys(m map[string][]frames.Column) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
