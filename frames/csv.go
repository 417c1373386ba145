// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frames

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-lpc/decom/words"
	"go-hep.org/x/hep/csvutil"
	"gonum.org/v1/gonum/mat"
)

// ReadCSV reads a batch of frames from a CSV file.
// Each record is a frame, each field a word slot. Lines starting with '#'
// are ignored. Words are decimal unsigned integers, or hexadecimal, octal
// and binary ones with a 0x, 0o or 0b prefix.
func ReadCSV(fname string, wordSize int) (Batch, error) {
	tbl, err := csvutil.Open(fname)
	if err != nil {
		return Batch{}, fmt.Errorf("frames: could not open CSV file %q: %w", fname, err)
	}
	defer tbl.Close()

	tbl.Reader.Comma = ','
	tbl.Reader.Comment = '#'
	tbl.Reader.TrimLeadingSpace = true

	mask := words.Mask(wordSize)

	var rows [][]uint64
	for {
		rec, err := tbl.Reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return Batch{}, fmt.Errorf("frames: could not read CSV file %q: %w", fname, err)
		}
		row := make([]uint64, len(rec))
		for j, field := range rec {
			v, err := parseWord(field)
			if err != nil {
				return Batch{}, fmt.Errorf(
					"frames: could not parse word (frame=%d, slot=%d) in %q: %w",
					len(rows), j, fname, err,
				)
			}
			if v&^mask != 0 {
				return Batch{}, fmt.Errorf(
					"frames: word (frame=%d, slot=%d) value %d overflows %d bits in %q",
					len(rows), j, v, wordSize, fname,
				)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}

	data, err := words.FromRows(rows, wordSize)
	if err != nil {
		return Batch{}, fmt.Errorf("frames: could not create batch from %q: %w", fname, err)
	}
	return Batch{Data: data}, nil
}

// Column is a named matrix of engineering-unit values, one row per frame.
type Column struct {
	Name   string
	Values *mat.Dense
}

// WriteCSV writes engineering-unit values to a CSV file, one record per
// frame. Columns holding several values per frame are expanded as
// name[0], name[1], ...
// The header line lists the field names, commented out with '#'.
func WriteCSV(fname string, cols []Column) error {
	if len(cols) == 0 {
		return fmt.Errorf("frames: no column to write to %q", fname)
	}

	var (
		rows, _ = cols[0].Values.Dims()
		names   []string
	)
	for _, col := range cols {
		r, c := col.Values.Dims()
		if r != rows {
			return fmt.Errorf(
				"%w: column %q has %d frames (want=%d)",
				ErrShape, col.Name, r, rows,
			)
		}
		if c == 1 {
			names = append(names, col.Name)
			continue
		}
		for j := 0; j < c; j++ {
			names = append(names, fmt.Sprintf("%s[%d]", col.Name, j))
		}
	}

	tbl, err := csvutil.Create(fname)
	if err != nil {
		return fmt.Errorf("frames: could not create CSV file %q: %w", fname, err)
	}
	defer tbl.Close()

	err = tbl.WriteHeader("# " + strings.Join(names, ",") + "\n")
	if err != nil {
		return fmt.Errorf("frames: could not write CSV header to %q: %w", fname, err)
	}

	row := make([]interface{}, 0, len(names))
	for i := 0; i < rows; i++ {
		row = row[:0]
		for _, col := range cols {
			_, c := col.Values.Dims()
			for j := 0; j < c; j++ {
				row = append(row, col.Values.At(i, j))
			}
		}
		err = tbl.WriteRow(row...)
		if err != nil {
			return fmt.Errorf("frames: could not write frame %d to %q: %w", i, fname, err)
		}
	}

	err = tbl.Close()
	if err != nil {
		return fmt.Errorf("frames: could not close CSV file %q: %w", fname, err)
	}
	return nil
}

func parseWord(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	base := 10
	if len(s) > 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X', 'o', 'O', 'b', 'B':
			base = 0
		}
	}
	return strconv.ParseUint(s, base, 64)
}
