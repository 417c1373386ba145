// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package param

import (
	"fmt"
	"strings"

	"github.com/go-lpc/decom/words"
)

// Basic is a parameter made of the concatenation of fragments.
// The first fragment occupies the most significant bits.
type Basic struct {
	Fragments []Fragment
	BitOp     *BitOperator // optional
}

// NewBasic creates a parameter from a list of fragments and an optional
// bit operator.
func NewBasic(frags []Fragment, op *BitOperator) (*Basic, error) {
	if len(frags) == 0 {
		return nil, fmt.Errorf("%w: parameter without fragments", ErrFragment)
	}
	for i, f := range frags {
		switch f := f.(type) {
		case *Word:
			if f == nil {
				return nil, fmt.Errorf("%w: nil word fragment %d", ErrFragment, i)
			}
		case *Constant:
			if f == nil {
				return nil, fmt.Errorf("%w: nil constant fragment %d", ErrFragment, i)
			}
		default:
			return nil, fmt.Errorf("%w: fragment %d has unknown type %T", ErrFragment, i, f)
		}
	}
	return &Basic{
		Fragments: append([]Fragment(nil), frags...),
		BitOp:     op,
	}, nil
}

// Width returns the number of bits of the parameter when built out of
// words of wordSize bits.
func (p *Basic) Width(wordSize int) int {
	n := 0
	for _, f := range p.Fragments {
		n += f.Width(wordSize)
	}
	return n
}

// BuildAt assembles the parameter with all word slots shifted by offset.
func (p *Basic) BuildAt(data *words.Array, offset int) (words.Column, error) {
	width := p.Width(data.WordSize())
	if width > words.MaxWordSize {
		return words.Column{}, fmt.Errorf(
			"%w: parameter %v is %d bits wide (max=%d)",
			ErrWordSize, p, width, words.MaxWordSize,
		)
	}

	out := words.Column{
		WordSize: width,
		Data:     make([]uint64, data.Rows()),
	}
	for i, f := range p.Fragments {
		if f == nil {
			return out, fmt.Errorf("%w: nil fragment %d", ErrFragment, i)
		}
		col, err := f.Build(data, offset)
		if err != nil {
			return out, fmt.Errorf("param: could not build fragment %d of %v: %w", i, p, err)
		}
		shift := uint(col.WordSize)
		for j, v := range col.Data {
			if i > 0 {
				out.Data[j] <<= shift
			}
			out.Data[j] += v
		}
	}

	if p.BitOp != nil {
		for j, v := range out.Data {
			out.Data[j] = p.BitOp.Apply(v, width)
		}
	}

	return out, nil
}

// Build assembles the parameter into a single-column batch.
func (p *Basic) Build(data *words.Array) (*words.Array, error) {
	col, err := p.BuildAt(data, 0)
	if err != nil {
		return nil, err
	}
	return words.FromColumns([]words.Column{col})
}

func (p *Basic) wordSlots() []int {
	var o []int
	for _, f := range p.Fragments {
		if w, ok := f.(*Word); ok {
			o = append(o, w.Word)
		}
	}
	return o
}

// MaxWord returns the highest word slot referenced by the parameter.
func (p *Basic) MaxWord() (int, error) {
	ws := p.wordSlots()
	if len(ws) == 0 {
		return 0, fmt.Errorf("%w: %v", ErrNoWord, p)
	}
	v := ws[0]
	for _, w := range ws[1:] {
		if w > v {
			v = w
		}
	}
	return v, nil
}

// MinWord returns the lowest word slot referenced by the parameter.
func (p *Basic) MinWord() (int, error) {
	ws := p.wordSlots()
	if len(ws) == 0 {
		return 0, fmt.Errorf("%w: %v", ErrNoWord, p)
	}
	v := ws[0]
	for _, w := range ws[1:] {
		if w < v {
			v = w
		}
	}
	return v, nil
}

func (p *Basic) body() string {
	strs := make([]string, len(p.Fragments))
	for i, f := range p.Fragments {
		strs[i] = f.String()
	}
	return strings.Join(strs, "+")
}

func (p *Basic) bitop() string {
	if p.BitOp == nil {
		return ""
	}
	return " " + p.BitOp.String()
}

func (p *Basic) String() string {
	return "[" + p.body() + "]" + p.bitop()
}

func (p *Basic) Equal(o Parameter) bool {
	b, ok := o.(*Basic)
	if !ok || b == nil || p == nil {
		return false
	}
	return p.equal(b)
}

func (p *Basic) equal(b *Basic) bool {
	if len(p.Fragments) != len(b.Fragments) {
		return false
	}
	for i, f := range p.Fragments {
		if !f.Equal(b.Fragments[i]) {
			return false
		}
	}
	return p.BitOp.equal(b.BitOp)
}

var _ Parameter = (*Basic)(nil)
