// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package measurand composes parameters, interpretations and
// engineering-unit conversions into named measurements.
//
// A measurand is written as:
//
//	<parameter>[;<interp>[;<euc>]]
//
// for example:
//
//	[1+2];2c;EUC[0.5,-10]
//	[3:1-4];;[PV*2]
package measurand // import "github.com/go-lpc/decom/measurand"

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-lpc/decom/euc"
	"github.com/go-lpc/decom/frames"
	"github.com/go-lpc/decom/interp"
	"github.com/go-lpc/decom/param"
	"github.com/go-lpc/decom/words"
	"gonum.org/v1/gonum/mat"
)

// Sampling selects the frames a measurand is built from.
// The zero value selects every frame.
type Sampling struct {
	Selectors []frames.Selector
}

func (s Sampling) equal(o Sampling) bool {
	if len(s.Selectors) != len(o.Selectors) {
		return false
	}
	for i := range s.Selectors {
		if s.Selectors[i] != o.Selectors[i] {
			return false
		}
	}
	return true
}

// Measurand is a named measurement.
// Interp and EUC are optional: without Interp raw values are converted
// as unsigned integers, without EUC values are left unchanged.
type Measurand struct {
	Name      string
	Parameter param.Parameter
	Interp    *interp.Interp
	EUC       *euc.EUC
	Sampling  Sampling
}

var unsigned = interp.MustLookup("u")

// Build builds the measurand out of a batch of frames.
// The result holds one row per frame and one column per generated
// parameter.
func (m *Measurand) Build(data *words.Array) (*mat.Dense, error) {
	if m.Parameter == nil {
		return nil, fmt.Errorf("measurand: %q has no parameter", m.Name)
	}
	raw, err := m.Parameter.Build(data)
	if err != nil {
		return nil, fmt.Errorf("measurand: could not build parameter of %q: %w", m.Name, err)
	}

	ip := unsigned
	if m.Interp != nil {
		ip = *m.Interp
	}
	vs, err := ip.Apply(raw)
	if err != nil {
		return nil, fmt.Errorf("measurand: could not interpret %q: %w", m.Name, err)
	}

	if m.EUC != nil {
		vs = m.EUC.Apply(vs)
	}
	return vs, nil
}

// BuildIndexed builds the measurand out of the frames of an indexed batch
// selected by the sampling strategy.
// BuildIndexed returns an empty matrix when no frame of the batch is selected.
func (m *Measurand) BuildIndexed(batch frames.IndexedBatch) (*mat.Dense, error) {
	if len(m.Sampling.Selectors) == 0 {
		return m.Build(batch.Frames.Data)
	}
	sel, err := batch.Select(m.Sampling.Selectors...)
	switch {
	case errors.Is(err, frames.ErrSelect):
		return &mat.Dense{}, nil
	case err != nil:
		return nil, fmt.Errorf("measurand: could not sample frames of %q: %w", m.Name, err)
	}
	return m.Build(sel.Data)
}

// Equal returns whether both measurands have the same definition.
func (m *Measurand) Equal(o *Measurand) bool {
	if m == nil || o == nil {
		return m == o
	}
	switch {
	case m.Name != o.Name:
		return false
	case (m.Parameter == nil) != (o.Parameter == nil):
		return false
	case m.Parameter != nil && !m.Parameter.Equal(o.Parameter):
		return false
	case (m.Interp == nil) != (o.Interp == nil):
		return false
	case m.Interp != nil && m.Interp.Kind() != o.Interp.Kind():
		return false
	case (m.EUC == nil) != (o.EUC == nil):
		return false
	case m.EUC != nil && !m.EUC.Equal(*o.EUC):
		return false
	}
	return m.Sampling.equal(o.Sampling)
}

// String returns the textual definition of the measurand.
func (m *Measurand) String() string {
	o := new(strings.Builder)
	if m.Parameter != nil {
		o.WriteString(m.Parameter.String())
	}
	if m.Interp == nil && m.EUC == nil {
		return o.String()
	}
	o.WriteString(";")
	if m.Interp != nil {
		o.WriteString(m.Interp.String())
	}
	if m.EUC != nil {
		o.WriteString(";")
		o.WriteString(m.EUC.String())
	}
	return o.String()
}

// Parse parses the textual definition of a measurand.
// An empty interpretation or conversion is left unset.
func Parse(text string) (*Measurand, error) {
	parts := strings.SplitN(text, ";", 3)

	p, err := param.Parse(parts[0])
	if err != nil {
		return nil, fmt.Errorf("measurand: could not parse parameter: %w", err)
	}
	m := &Measurand{Parameter: p}

	if len(parts) > 1 {
		if name := strings.TrimSpace(parts[1]); name != "" {
			ip, err := interp.Lookup(name)
			if err != nil {
				return nil, fmt.Errorf("measurand: could not parse interpretation: %w", err)
			}
			m.Interp = &ip
		}
	}

	if len(parts) > 2 {
		if txt := strings.TrimSpace(parts[2]); txt != "" {
			e, err := euc.Parse(txt)
			if err != nil {
				return nil, fmt.Errorf("measurand: could not parse conversion: %w", err)
			}
			m.EUC = &e
		}
	}

	return m, nil
}

// MustParse is like Parse but panics on error.
func MustParse(text string) *Measurand {
	m, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return m
}
