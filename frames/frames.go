// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package frames holds batches of telemetry frames, as acquired from a
// decommutator, and the file formats used to store them.
package frames // import "github.com/go-lpc/decom/frames"

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-lpc/decom/words"
)

var (
	ErrShape  = errors.New("frames: inconsistent batch")
	ErrSelect = errors.New("frames: empty selection")
)

// Batch is a batch of frames.
type Batch struct {
	CTime []time.Time // capture times, optional
	Time  []time.Time // frame times, optional
	Data  *words.Array
}

// NewBatch creates a batch of frames.
// Time slices are either nil or hold one entry per frame.
func NewBatch(ctime, tframe []time.Time, data *words.Array) (Batch, error) {
	b := Batch{CTime: ctime, Time: tframe, Data: data}
	err := b.check()
	if err != nil {
		return Batch{}, err
	}
	return b, nil
}

func (b Batch) check() error {
	if b.Data == nil {
		return fmt.Errorf("%w: no data", ErrShape)
	}
	n := b.Data.Rows()
	if b.CTime != nil && len(b.CTime) != n {
		return fmt.Errorf("%w: %d capture times for %d frames", ErrShape, len(b.CTime), n)
	}
	if b.Time != nil && len(b.Time) != n {
		return fmt.Errorf("%w: %d frame times for %d frames", ErrShape, len(b.Time), n)
	}
	return nil
}

// Len returns the number of frames in the batch.
func (b Batch) Len() int {
	if b.Data == nil {
		return 0
	}
	return b.Data.Rows()
}

// Slice returns a copy of frames [beg, end).
func (b Batch) Slice(beg, end int) (Batch, error) {
	data, err := b.Data.Slice(beg, end)
	if err != nil {
		return Batch{}, fmt.Errorf("frames: could not slice batch: %w", err)
	}
	o := Batch{Data: data}
	if b.CTime != nil {
		o.CTime = append([]time.Time(nil), b.CTime[beg:end]...)
	}
	if b.Time != nil {
		o.Time = append([]time.Time(nil), b.Time[beg:end]...)
	}
	return o, nil
}

func (b Batch) rows(idx []int) (Batch, error) {
	data, err := b.Data.Select(idx)
	if err != nil {
		return Batch{}, fmt.Errorf("frames: could not select frames: %w", err)
	}
	o := Batch{Data: data}
	if b.CTime != nil {
		o.CTime = make([]time.Time, len(idx))
		for k, i := range idx {
			o.CTime[k] = b.CTime[i]
		}
	}
	if b.Time != nil {
		o.Time = make([]time.Time, len(idx))
		for k, i := range idx {
			o.Time[k] = b.Time[i]
		}
	}
	return o, nil
}

// Equal returns whether both batches hold the same frames.
func (b Batch) Equal(o Batch) bool {
	return b.Data.Equal(o.Data) &&
		equalTimes(b.CTime, o.CTime) &&
		equalTimes(b.Time, o.Time)
}

func equalTimes(a, b []time.Time) bool {
	if (a == nil) != (b == nil) || len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Concat concatenates batches of frames with the same number of words and
// word size.
func Concat(bs ...Batch) (Batch, error) {
	if len(bs) == 0 {
		return Batch{}, fmt.Errorf("%w: no batch to concatenate", ErrShape)
	}
	var (
		ref    = bs[0].Data
		rows   = 0
		ctimes = true
		ftimes = true
	)
	for i, b := range bs {
		err := b.check()
		if err != nil {
			return Batch{}, fmt.Errorf("frames: invalid batch %d: %w", i, err)
		}
		if b.Data.Cols() != ref.Cols() || b.Data.WordSize() != ref.WordSize() {
			return Batch{}, fmt.Errorf(
				"%w: batch %d has %d words of %d bits (want=%d words of %d bits)",
				ErrShape, i, b.Data.Cols(), b.Data.WordSize(), ref.Cols(), ref.WordSize(),
			)
		}
		rows += b.Len()
		ctimes = ctimes && b.CTime != nil
		ftimes = ftimes && b.Time != nil
	}

	data, err := words.New(rows, ref.Cols(), ref.WordSize())
	if err != nil {
		return Batch{}, fmt.Errorf("frames: could not create batch: %w", err)
	}
	o := Batch{Data: data}
	i := 0
	for _, b := range bs {
		for r := 0; r < b.Len(); r++ {
			for j := 0; j < ref.Cols(); j++ {
				data.Set(i, j, b.Data.At(r, j))
			}
			if ctimes {
				o.CTime = append(o.CTime, b.CTime[r])
			}
			if ftimes {
				o.Time = append(o.Time, b.Time[r])
			}
			i++
		}
	}
	return o, nil
}

// Selector selects the frames whose index i satisfies i%Mod == Value.
// A zero Mod selects the frames whose index is Value.
type Selector struct {
	Value uint64
	Mod   uint64
}

// Match reports whether the frame index i is selected.
func (sel Selector) Match(i uint64) bool {
	if sel.Mod == 0 {
		return i == sel.Value
	}
	return i%sel.Mod == sel.Value
}

func (sel Selector) String() string {
	if sel.Mod == 0 {
		return fmt.Sprintf("index==%d", sel.Value)
	}
	return fmt.Sprintf("index%%%d==%d", sel.Mod, sel.Value)
}

// IndexedBatch is a batch of frames tagged with their minor frame index.
type IndexedBatch struct {
	Index  []uint64
	Frames Batch
}

// NewIndexedBatch creates an indexed batch of frames.
func NewIndexedBatch(index []uint64, b Batch) (IndexedBatch, error) {
	err := b.check()
	if err != nil {
		return IndexedBatch{}, err
	}
	if len(index) != b.Len() {
		return IndexedBatch{}, fmt.Errorf(
			"%w: %d indices for %d frames", ErrShape, len(index), b.Len(),
		)
	}
	return IndexedBatch{Index: index, Frames: b}, nil
}

// Select returns the frames matching any of the provided selectors.
// Frames keep their relative order.
func (ib IndexedBatch) Select(sels ...Selector) (Batch, error) {
	if len(sels) == 0 {
		return Batch{}, fmt.Errorf("%w: no selector", ErrSelect)
	}
	var idx []int
	for i, v := range ib.Index {
		for _, sel := range sels {
			if sel.Match(v) {
				idx = append(idx, i)
				break
			}
		}
	}
	if len(idx) == 0 {
		return Batch{}, fmt.Errorf("%w: no frame matches %v", ErrSelect, sels)
	}
	return ib.Frames.rows(idx)
}
