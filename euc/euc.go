// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package euc implements engineering-unit conversions: the calibration
// applied to interpreted parameter values.
//
// A conversion subtracts a data bias, applies a scale factor and adds a
// scaled bias:
//
//	eu = scale(pv - data_bias) + scaled_bias
//
// The scale factor is either a constant, by which values are multiplied,
// or a function of the parameter value PV.
package euc // import "github.com/go-lpc/decom/euc"

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-lpc/decom/calc"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrArgs = errors.New("euc: invalid number of arguments")
	ErrBias = errors.New("euc: bias is not a constant")
)

// EUC is an engineering-unit conversion.
// Zero biases leave values unchanged.
type EUC struct {
	Scale      calc.Value
	DataBias   float64
	ScaledBias float64
}

// New returns a conversion with the given scale factor and no bias.
func New(scale calc.Value) EUC {
	return EUC{Scale: scale}
}

// Eval converts a single value.
func (e EUC) Eval(v float64) float64 {
	v -= e.DataBias
	if c, ok := e.Scale.Float(); ok {
		v *= c
	} else {
		v = e.Scale.Eval(v)
	}
	return v + e.ScaledBias
}

// Apply converts every value of data into a new matrix.
// data is left untouched.
func (e EUC) Apply(data *mat.Dense) *mat.Dense {
	r, c := data.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, _ int, v float64) float64 {
		return e.Eval(v)
	}, data)
	return out
}

// Equal reports whether both conversions have the same biases and the same
// scale factor. Deferred scale factors compare by source text.
func (e EUC) Equal(o EUC) bool {
	if e.DataBias != o.DataBias || e.ScaledBias != o.ScaledBias {
		return false
	}
	c1, ok1 := e.Scale.Float()
	c2, ok2 := o.Scale.Float()
	switch {
	case ok1 && ok2:
		return c1 == c2
	case ok1 || ok2:
		return false
	default:
		return e.Scale.String() == o.Scale.String()
	}
}

// String returns the shortest text form of the conversion:
//
//	EUC[scale]
//	EUC[scale,scaled_bias]
//	EUC[data_bias,scale,scaled_bias]
func (e EUC) String() string {
	var args []string
	if e.DataBias != 0 {
		args = append(args, formatFloat(e.DataBias))
	}
	args = append(args, e.Scale.String())
	if e.DataBias != 0 || e.ScaledBias != 0 {
		args = append(args, formatFloat(e.ScaledBias))
	}
	return "EUC[" + strings.Join(args, ",") + "]"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Parse parses a conversion of the form:
//
//	[EUC][scale]
//	[EUC][scale,scaled_bias]
//	[EUC][data_bias,scale,scaled_bias]
//
// Each argument is a calculator expression. Only the scale factor may
// depend on PV.
func Parse(text string) (EUC, error) {
	txt := strings.TrimSpace(text)
	if len(txt) >= 3 && strings.EqualFold(txt[:3], "EUC") {
		txt = strings.TrimSpace(txt[3:])
	}
	if !strings.HasPrefix(txt, "[") || !strings.HasSuffix(txt, "]") {
		return EUC{}, fmt.Errorf("euc: invalid conversion %q: missing brackets", text)
	}

	args, err := calc.ParseList(txt[1 : len(txt)-1])
	if err != nil {
		return EUC{}, fmt.Errorf("euc: could not parse conversion %q: %w", text, err)
	}

	bias := func(v calc.Value, name string) (float64, error) {
		c, ok := v.Float()
		if !ok {
			return 0, fmt.Errorf("%w: %s %q in %q", ErrBias, name, v, text)
		}
		return c, nil
	}

	var e EUC
	switch len(args) {
	case 1:
		e.Scale = args[0]
	case 2:
		e.Scale = args[0]
		e.ScaledBias, err = bias(args[1], "scaled bias")
	case 3:
		e.DataBias, err = bias(args[0], "data bias")
		if err != nil {
			return EUC{}, err
		}
		e.Scale = args[1]
		e.ScaledBias, err = bias(args[2], "scaled bias")
	default:
		return EUC{}, fmt.Errorf("%w: got %d in %q, want 1 to 3", ErrArgs, len(args), text)
	}
	if err != nil {
		return EUC{}, err
	}
	return e, nil
}

// MustParse is like Parse but panics on error.
func MustParse(text string) EUC {
	e, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return e
}
