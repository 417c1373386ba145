// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package calc implements the arithmetic expression calculator used to
// describe calibrations.
//
// An expression reduces either to a constant, when it does not depend on
// the parameter value placeholder PV, or to a function of PV:
//
//	(1+2)*3          -> 9
//	PV*2**16         -> func(pv) = pv*65536
//	deg(atan2(1,PV)) -> func(pv) = ...
package calc // import "github.com/go-lpc/decom/calc"

import (
	"strconv"
)

// Value is the result of reducing an expression: either a constant, or a
// function of the parameter value.
type Value struct {
	c   float64
	fn  func(pv float64) float64 // nil for constants
	src string
}

// Const returns a constant value.
func Const(v float64) Value { return Value{c: v} }

// Func returns a value deferred until the parameter value is known.
func Func(fn func(pv float64) float64) Value {
	if fn == nil {
		panic("calc: nil function")
	}
	return Value{fn: fn}
}

// PV returns the parameter value placeholder.
func PV() Value {
	return Value{fn: func(pv float64) float64 { return pv }, src: "PV"}
}

// IsConst reports whether v does not depend on the parameter value.
func (v Value) IsConst() bool { return v.fn == nil }

// Float returns the constant held by v, and whether v is a constant.
func (v Value) Float() (float64, bool) {
	if v.fn != nil {
		return 0, false
	}
	return v.c, true
}

// Eval evaluates v for the parameter value pv.
// Constants ignore pv.
func (v Value) Eval(pv float64) float64 {
	if v.fn == nil {
		return v.c
	}
	return v.fn(pv)
}

// Fn returns v as a function of the parameter value.
func (v Value) Fn() func(pv float64) float64 {
	if v.fn != nil {
		return v.fn
	}
	c := v.c
	return func(float64) float64 { return c }
}

// String returns the source text of v when known, its constant value
// otherwise.
func (v Value) String() string {
	switch {
	case v.src != "":
		return v.src
	case v.fn == nil:
		return strconv.FormatFloat(v.c, 'g', -1, 64)
	default:
		return "func(PV)"
	}
}

// unary folds f over a, deferring only when a depends on PV.
func unary(f func(x float64) float64, a Value) Value {
	if a.fn == nil {
		return Const(f(a.c))
	}
	fa := a.fn
	return Func(func(pv float64) float64 { return f(fa(pv)) })
}

// binary folds f over a and b, deferring only the operands that depend
// on PV.
func binary(f func(x, y float64) float64, a, b Value) Value {
	switch {
	case a.fn == nil && b.fn == nil:
		return Const(f(a.c, b.c))
	case a.fn == nil:
		x, fb := a.c, b.fn
		return Func(func(pv float64) float64 { return f(x, fb(pv)) })
	case b.fn == nil:
		fa, y := a.fn, b.c
		return Func(func(pv float64) float64 { return f(fa(pv), y) })
	default:
		fa, fb := a.fn, b.fn
		return Func(func(pv float64) float64 { return f(fa(pv), fb(pv)) })
	}
}

// nary folds f over args, deferring when any of them depends on PV.
func nary(f func(xs []float64) float64, args []Value) Value {
	deferred := false
	for _, a := range args {
		if a.fn != nil {
			deferred = true
			break
		}
	}
	if !deferred {
		xs := make([]float64, len(args))
		for i, a := range args {
			xs[i] = a.c
		}
		return Const(f(xs))
	}
	args = append([]Value(nil), args...)
	return Func(func(pv float64) float64 {
		xs := make([]float64, len(args))
		for i, a := range args {
			xs[i] = a.Eval(pv)
		}
		return f(xs)
	})
}
