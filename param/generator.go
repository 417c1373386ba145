// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package param

import (
	"fmt"

	"github.com/go-lpc/decom/words"
)

// Generator repeats a parameter template over word slots.
// Each iteration shifts every word slot of the template by the distance
// travelled since the first iteration.
type Generator struct {
	Template *Basic
	Iter     Iterator
	WordSize int // pinned word size in bits. 0 when not pinned
}

// NewGenerator creates a generated parameter family.
func NewGenerator(tmpl *Basic, it Iterator) (*Generator, error) {
	if tmpl == nil {
		return nil, fmt.Errorf("%w: nil template", ErrFragment)
	}
	if it.Step == 0 {
		return nil, fmt.Errorf("%w: step must be non-zero", ErrStep)
	}
	if _, err := tmpl.MinWord(); err != nil {
		return nil, fmt.Errorf("param: invalid generator template: %w", err)
	}
	return &Generator{Template: tmpl, Iter: it}, nil
}

func (p *Generator) start() (int, error) {
	if p.Iter.Step > 0 {
		return p.Template.MaxWord()
	}
	return p.Template.MinWord()
}

// Build assembles the template once per iteration, into one column per
// iteration.
func (p *Generator) Build(data *words.Array) (*words.Array, error) {
	return p.build(data, p)
}

// build builds the generated columns, naming the parameter as name in errors.
func (p *Generator) build(data *words.Array, name fmt.Stringer) (*words.Array, error) {
	if p.WordSize != 0 && p.WordSize != data.WordSize() {
		return nil, fmt.Errorf(
			"%w: parameter %v expects %d-bit words, batch holds %d-bit words",
			ErrWordSize, name, p.WordSize, data.WordSize(),
		)
	}

	beg, err := p.start()
	if err != nil {
		return nil, err
	}

	targets, err := p.Iter.targets(beg, data.Cols())
	if err != nil {
		return nil, fmt.Errorf("param: could not iterate %v: %w", name, err)
	}

	cols := make([]words.Column, len(targets))
	for i, target := range targets {
		cols[i], err = p.Template.BuildAt(data, target-beg)
		if err != nil {
			return nil, fmt.Errorf(
				"param: could not build iteration %d (word=%d) of %v: %w",
				i, target, name, err,
			)
		}
	}

	return words.FromColumns(cols)
}

func (p *Generator) String() string {
	return "[" + p.Template.body() + p.Iter.String() + "]" + p.Template.bitop()
}

func (p *Generator) Equal(o Parameter) bool {
	g, ok := o.(*Generator)
	if !ok || g == nil || p == nil {
		return false
	}
	return p.equal(g)
}

func (p *Generator) equal(o *Generator) bool {
	return p.Template.equal(o.Template) && p.Iter.equal(o.Iter)
}

// Supercom is a supercommutated parameter: a word (or group of words)
// sampled at a fixed interval within a frame.
// It is built as a Generator.
type Supercom struct {
	Generator
}

// NewSupercom creates a supercommutated parameter.
func NewSupercom(tmpl *Basic, it Iterator) (*Supercom, error) {
	gen, err := NewGenerator(tmpl, it)
	if err != nil {
		return nil, err
	}
	return &Supercom{Generator: *gen}, nil
}

// Build assembles the template once per iteration, into one column per
// iteration.
func (p *Supercom) Build(data *words.Array) (*words.Array, error) {
	return p.Generator.build(data, p)
}

func (p *Supercom) String() string {
	return "[" + p.Template.body() + "]" + p.Template.bitop() + p.Iter.String()
}

func (p *Supercom) Equal(o Parameter) bool {
	s, ok := o.(*Supercom)
	if !ok || s == nil || p == nil {
		return false
	}
	return p.equal(&s.Generator)
}

var (
	_ Parameter = (*Generator)(nil)
	_ Parameter = (*Supercom)(nil)
)
