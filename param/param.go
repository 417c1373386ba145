// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package param describes how telemetry parameters are assembled from
// bit-field fragments of fixed-width words.
//
// A parameter is written as a bracketed list of fragments, e.g.:
//
//	[5]              word 5
//	[~5:1-4+6R]      complemented bits 1-4 of word 5, then word 6 reversed
//	[1+2] XOR x55    words 1 and 2, XOR-ed with 0x55
//	[1++1<17]        words 1 to 16, one column each
//	[1]++32          supercommutated word, every 32 words
package param // import "github.com/go-lpc/decom/param"

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-lpc/decom/words"
)

var (
	ErrWord       = errors.New("param: invalid word slot")
	ErrBit        = errors.New("param: invalid bit position")
	ErrWordSize   = errors.New("param: word size mismatch")
	ErrConstant   = errors.New("param: invalid constant")
	ErrFragment   = errors.New("param: invalid fragment")
	ErrNoWord     = errors.New("param: no word fragment")
	ErrBitOp      = errors.New("param: invalid bit operator")
	ErrStep       = errors.New("param: invalid iterator step")
	ErrEmptyRange = errors.New("param: empty iteration range")
	ErrSyntax     = errors.New("param: syntax error")
)

// Parameter is an assembled bit-field, built out of a batch of frames.
type Parameter interface {
	// Build assembles the parameter for every frame of the batch.
	// The result holds one column per generated parameter.
	Build(data *words.Array) (*words.Array, error)

	Equal(o Parameter) bool
	String() string
}

// BitOperator is a bitwise operation applied to an assembled parameter.
type BitOperator struct {
	Mode  string // AND, OR or XOR
	Value uint64
}

// NewBitOperator creates a bit operator. mode is case-insensitive.
func NewBitOperator(mode string, v uint64) (*BitOperator, error) {
	mode = strings.ToUpper(mode)
	switch mode {
	case "AND", "OR", "XOR":
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrBitOp, mode)
	}
	return &BitOperator{Mode: mode, Value: v}, nil
}

// Apply applies the operator to v, a value of w bits.
// The operand is truncated to w bits.
func (op *BitOperator) Apply(v uint64, w int) uint64 {
	rhs := op.Value & words.Mask(w)
	switch op.Mode {
	case "AND":
		return v & rhs
	case "OR":
		return v | rhs
	case "XOR":
		return v ^ rhs
	}
	panic(fmt.Errorf("param: invalid bit operator mode %q", op.Mode))
}

func (op *BitOperator) equal(o *BitOperator) bool {
	if op == nil || o == nil {
		return op == o
	}
	return *op == *o
}

func (op *BitOperator) String() string {
	size := 4
	for size < 64 && op.Value > words.Mask(size) {
		size += 4
	}
	return op.Mode + " " + formatConstant(op.Value, size)
}

// Iterator describes how a parameter template is repeated over word slots.
type Iterator struct {
	Step    int  // word increment, negative to count down
	Stop    int  // exclusive bound on the word slot
	Bounded bool // whether Stop was explicitly given
}

// NewIterator creates an unbounded iterator.
// Counting down without a bound stops before word 0.
func NewIterator(step int) (Iterator, error) {
	if step == 0 {
		return Iterator{}, fmt.Errorf("%w: step must be non-zero", ErrStep)
	}
	return Iterator{Step: step}, nil
}

// NewIteratorTo creates an iterator stopping before word slot stop.
func NewIteratorTo(step, stop int) (Iterator, error) {
	it, err := NewIterator(step)
	if err != nil {
		return it, err
	}
	it.Stop = stop
	it.Bounded = true
	return it, nil
}

// targets returns the word slots visited when starting from beg,
// over a frame of n words.
func (it Iterator) targets(beg, n int) ([]int, error) {
	if it.Step == 0 {
		return nil, fmt.Errorf("%w: step must be non-zero", ErrStep)
	}
	end := it.Stop
	if !it.Bounded && it.Step > 0 {
		end = n
	}
	var o []int
	switch {
	case it.Step > 0:
		for i := beg; i < end; i += it.Step {
			o = append(o, i)
		}
	default:
		for i := beg; i > end; i += it.Step {
			o = append(o, i)
		}
	}
	if len(o) == 0 {
		return nil, fmt.Errorf(
			"%w: no word from %d to %d with step %d",
			ErrEmptyRange, beg, end, it.Step,
		)
	}
	return o, nil
}

func (it Iterator) String() string {
	var s string
	switch {
	case it.Step > 0:
		s = "++" + strconv.Itoa(it.Step)
	default:
		s = "--" + strconv.Itoa(-it.Step)
	}
	if it.Bounded {
		s += "<" + strconv.Itoa(it.Stop)
	}
	return s
}

func (it Iterator) equal(o Iterator) bool {
	if it.Step != o.Step {
		return false
	}
	stop := func(it Iterator) (int, bool) {
		if it.Step < 0 && !it.Bounded {
			return 0, true
		}
		return it.Stop, it.Bounded
	}
	s1, b1 := stop(it)
	s2, b2 := stop(o)
	return s1 == s2 && b1 == b2
}
