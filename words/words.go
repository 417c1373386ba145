// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package words holds types to describe batches of fixed-width unsigned
// telemetry words.
//
// A batch is a rectangular matrix: rows are frames, columns are word slots.
// Every batch is tagged with the number of significant bits per word.
package words // import "github.com/go-lpc/decom/words"

import (
	"errors"
	"fmt"
)

// MaxWordSize is the largest supported word size, in bits.
const MaxWordSize = 64

var (
	ErrWordSize = errors.New("words: invalid word size")
	ErrShape    = errors.New("words: invalid shape")
)

// Container returns the width of the smallest unsigned container
// (8, 16, 32 or 64 bits) able to hold a word of w bits.
func Container(w int) (int, error) {
	switch {
	case w < 1 || w > MaxWordSize:
		return 0, fmt.Errorf("%w: %d is outside [1, %d]", ErrWordSize, w, MaxWordSize)
	case w <= 8:
		return 8, nil
	case w <= 16:
		return 16, nil
	case w <= 32:
		return 32, nil
	default:
		return 64, nil
	}
}

// Mask returns the mask selecting the w least significant bits.
func Mask(w int) uint64 {
	if w >= 64 {
		return ^uint64(0)
	}
	if w <= 0 {
		return 0
	}
	return 1<<uint(w) - 1
}

func checkWordSize(w int) error {
	_, err := Container(w)
	return err
}

// Column is one word slot over a batch of frames.
type Column struct {
	WordSize int
	Data     []uint64
}

// Len returns the number of frames in the column.
func (c Column) Len() int { return len(c.Data) }

// Invert returns the bitwise complement of c, masked to its word size.
func (c Column) Invert() Column {
	var (
		m = Mask(c.WordSize)
		o = Column{WordSize: c.WordSize, Data: make([]uint64, len(c.Data))}
	)
	for i, v := range c.Data {
		o.Data[i] = ^v & m
	}
	return o
}

// Array is a batch of frames of fixed-width words.
//
// Element values are trusted to fit the word size: they are not
// checked at construction.
type Array struct {
	rows  int
	cols  int
	wsize int
	data  []uint64 // row-major
}

// New returns a zero-valued rows×cols batch of words.
func New(rows, cols, wordSize int) (*Array, error) {
	err := checkWordSize(wordSize)
	if err != nil {
		return nil, err
	}
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: %dx%d batch", ErrShape, rows, cols)
	}
	return &Array{
		rows:  rows,
		cols:  cols,
		wsize: wordSize,
		data:  make([]uint64, rows*cols),
	}, nil
}

// FromRows creates a batch from a slice of frames.
// All frames must hold the same number of words.
func FromRows(rows [][]uint64, wordSize int) (*Array, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no frames", ErrShape)
	}
	arr, err := New(len(rows), len(rows[0]), wordSize)
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		if len(row) != arr.cols {
			return nil, fmt.Errorf(
				"%w: frame %d has %d words (want=%d)",
				ErrShape, i, len(row), arr.cols,
			)
		}
		copy(arr.data[i*arr.cols:], row)
	}
	return arr, nil
}

// FromColumns creates a batch from a slice of word slots.
// All columns must share the same length and word size.
func FromColumns(cols []Column) (*Array, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: no columns", ErrShape)
	}
	arr, err := New(cols[0].Len(), len(cols), cols[0].WordSize)
	if err != nil {
		return nil, err
	}
	for j, col := range cols {
		if col.Len() != arr.rows {
			return nil, fmt.Errorf(
				"%w: column %d has %d frames (want=%d)",
				ErrShape, j, col.Len(), arr.rows,
			)
		}
		if col.WordSize != arr.wsize {
			return nil, fmt.Errorf(
				"%w: column %d has word size %d (want=%d)",
				ErrWordSize, j, col.WordSize, arr.wsize,
			)
		}
		for i, v := range col.Data {
			arr.data[i*arr.cols+j] = v
		}
	}
	return arr, nil
}

func (a *Array) Rows() int     { return a.rows }
func (a *Array) Cols() int     { return a.cols }
func (a *Array) WordSize() int { return a.wsize }

// At returns the word at frame i, slot j (both 0-based).
func (a *Array) At(i, j int) uint64 {
	return a.data[i*a.cols+j]
}

// Set sets the word at frame i, slot j (both 0-based).
// Set is meant to be used while filling a freshly allocated batch.
func (a *Array) Set(i, j int, v uint64) {
	a.data[i*a.cols+j] = v
}

// Row returns a copy of the words of frame i.
func (a *Array) Row(i int) []uint64 {
	o := make([]uint64, a.cols)
	copy(o, a.data[i*a.cols:(i+1)*a.cols])
	return o
}

// Col returns a copy of the word slot j (0-based) over all frames.
func (a *Array) Col(j int) (Column, error) {
	if j < 0 || j >= a.cols {
		return Column{}, fmt.Errorf(
			"%w: word slot %d outside of [0, %d)", ErrShape, j, a.cols,
		)
	}
	col := Column{WordSize: a.wsize, Data: make([]uint64, a.rows)}
	for i := range col.Data {
		col.Data[i] = a.data[i*a.cols+j]
	}
	return col, nil
}

// Invert returns a new batch holding the bitwise complement of every
// word, masked to the word size.
func (a *Array) Invert() *Array {
	var (
		m = Mask(a.wsize)
		o = &Array{
			rows:  a.rows,
			cols:  a.cols,
			wsize: a.wsize,
			data:  make([]uint64, len(a.data)),
		}
	)
	for i, v := range a.data {
		o.data[i] = ^v & m
	}
	return o
}

// Slice returns a copy of frames [beg, end).
func (a *Array) Slice(beg, end int) (*Array, error) {
	if beg < 0 || end > a.rows || beg >= end {
		return nil, fmt.Errorf(
			"%w: invalid frame range [%d, %d) (frames=%d)",
			ErrShape, beg, end, a.rows,
		)
	}
	o := &Array{
		rows:  end - beg,
		cols:  a.cols,
		wsize: a.wsize,
		data:  make([]uint64, (end-beg)*a.cols),
	}
	copy(o.data, a.data[beg*a.cols:end*a.cols])
	return o, nil
}

// Select returns a copy of the frames whose indices are listed in rows.
func (a *Array) Select(rows []int) (*Array, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty frame selection", ErrShape)
	}
	o := &Array{
		rows:  len(rows),
		cols:  a.cols,
		wsize: a.wsize,
		data:  make([]uint64, len(rows)*a.cols),
	}
	for k, i := range rows {
		if i < 0 || i >= a.rows {
			return nil, fmt.Errorf(
				"%w: frame %d outside of [0, %d)", ErrShape, i, a.rows,
			)
		}
		copy(o.data[k*a.cols:], a.data[i*a.cols:(i+1)*a.cols])
	}
	return o, nil
}

// Equal returns whether a and b have the same shape, word size and content.
func (a *Array) Equal(b *Array) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.rows != b.rows || a.cols != b.cols || a.wsize != b.wsize {
		return false
	}
	for i, v := range a.data {
		if b.data[i] != v {
			return false
		}
	}
	return true
}

func (a *Array) String() string {
	return fmt.Sprintf("words.Array{frames=%d, words=%d, word-size=%d}", a.rows, a.cols, a.wsize)
}
