// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package calc

import (
	"math"
	"math/bits"
	"sort"
)

const variadic = -1

type function struct {
	arity int // number of arguments, or variadic
	eval  func(xs []float64) float64
}

func fn1(f func(x float64) float64) function {
	return function{arity: 1, eval: func(xs []float64) float64 { return f(xs[0]) }}
}

func fn2(f func(x, y float64) float64) function {
	return function{arity: 2, eval: func(xs []float64) float64 { return f(xs[0], xs[1]) }}
}

// funcs holds the built-in functions, keyed by lower-case name.
var funcs = map[string]function{
	"float": fn1(func(x float64) float64 { return x }),
	"round": fn1(math.RoundToEven),
	"floor": fn1(math.Floor),
	"ceil":  fn1(math.Ceil),
	"fix":   fn1(math.Floor),
	"sin":   fn1(math.Sin),
	"cos":   fn1(math.Cos),
	"tan":   fn1(math.Tan),
	"asin":  fn1(math.Asin),
	"acos":  fn1(math.Acos),
	"atan":  fn1(math.Atan),
	"atan2": fn2(math.Atan2),
	"deg":   fn1(func(x float64) float64 { return x * (180 / math.Pi) }),
	"rad":   fn1(func(x float64) float64 { return x * (math.Pi / 180) }),
	"abs":   fn1(math.Abs),
	"exp":   fn1(math.Exp),
	"tento": fn1(func(x float64) float64 { return math.Pow(10, x) }),
	"nxtwo": fn1(nxtwo),
	"ln":    fn1(math.Log),
	"log":   fn1(math.Log10),
	"sqrt":  fn1(math.Sqrt),
	"hamdist": fn2(func(x, y float64) float64 {
		return float64(bits.OnesCount64(uint64(int64(x)) ^ uint64(int64(y))))
	}),
	"min": {arity: variadic, eval: func(xs []float64) float64 {
		v := xs[0]
		for _, x := range xs[1:] {
			v = math.Min(v, x)
		}
		return v
	}},
	"max": {arity: variadic, eval: func(xs []float64) float64 {
		v := xs[0]
		for _, x := range xs[1:] {
			v = math.Max(v, x)
		}
		return v
	}},
	"if": {arity: 3, eval: func(xs []float64) float64 {
		if xs[0] != 0 {
			return xs[1]
		}
		return xs[2]
	}},
}

// nxtwo returns the smallest power of two greater than or equal to x.
func nxtwo(x float64) float64 {
	return math.Pow(2, math.Ceil(math.Log2(x)))
}

// Funcs returns the sorted names of the built-in functions.
func Funcs() []string {
	o := make([]string, 0, len(funcs))
	for k := range funcs {
		o = append(o, k)
	}
	sort.Strings(o)
	return o
}

var consts = map[string]float64{
	"E":  math.E,
	"PI": math.Pi,
}
