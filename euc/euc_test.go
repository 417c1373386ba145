// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package euc

import (
	"errors"
	"math"
	"testing"

	"github.com/go-lpc/decom/calc"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

const nrows = 10

func column(v float64) *mat.Dense {
	data := make([]float64, nrows)
	for i := range data {
		data[i] = v
	}
	return mat.NewDense(nrows, 1, data)
}

func TestApply(t *testing.T) {
	for _, tc := range []struct {
		name string
		euc  EUC
		pv   float64
		want float64
	}{
		{"zero", EUC{Scale: calc.Const(0)}, 100, 0},
		{"identity", EUC{Scale: calc.Const(1)}, 100, 100},
		{"data-bias", EUC{Scale: calc.Const(2), DataBias: 1}, 5, (5 - 1) * 2},
		{"scaled-bias", EUC{Scale: calc.Const(2), ScaledBias: 3}, 5, 5*2 + 3},
		{"both", EUC{Scale: calc.Const(2), DataBias: 1, ScaledBias: 3}, 5, 11},
		{"sin", EUC{Scale: calc.Func(math.Sin)}, math.Pi / 2, 1},
		{"cos", EUC{Scale: calc.Func(math.Cos)}, 0, 1},
		{"cos-bias", EUC{Scale: calc.Func(math.Cos), ScaledBias: 1}, 0, 2},
		{"pv-expr", EUC{Scale: calc.MustParse("PV*2**16")}, 3, 196608},
	} {
		t.Run(tc.name, func(t *testing.T) {
			in := column(tc.pv)
			out := tc.euc.Apply(in)
			r, c := out.Dims()
			if r != nrows || c != 1 {
				t.Fatalf("invalid dims: got=(%d,%d), want=(%d,1)", r, c, nrows)
			}
			for i := 0; i < nrows; i++ {
				assert.InDelta(t, tc.want, out.At(i, 0), 1e-6)
				if got := in.At(i, 0); got != tc.pv {
					t.Fatalf("input modified: got=%v, want=%v", got, tc.pv)
				}
			}
		})
	}
}

func TestParse(t *testing.T) {
	for _, tc := range []struct {
		text string
		pv   float64
		want float64
		str  string
	}{
		{"EUC[1]", 100, 100, "EUC[1]"},
		{"[1.0]", 100, 100, "EUC[1]"},
		{"EUC[1,1]", 100, 101, "EUC[1,1]"},
		{"[1,1,1]", 100, 100, "EUC[1,1,1]"},
		{"euc[ 2 , 3 ]", 5, 13, "EUC[2,3]"},
		{"[1, 2, 3]", 5, 11, "EUC[1,2,3]"},
		{"[0, 2, 3]", 5, 13, "EUC[2,3]"},
		{"[2**4]", 2, 32, "EUC[16]"},
		{"[PV*2]", 4, 8, "EUC[PV*2]"},
		{"[1, sqrt(PV), 0.5]", 5, 2.5, "EUC[1,sqrt(PV),0.5]"},
	} {
		t.Run(tc.text, func(t *testing.T) {
			e, err := Parse(tc.text)
			if err != nil {
				t.Fatalf("could not parse %q: %+v", tc.text, err)
			}
			assert.InDelta(t, tc.want, e.Eval(tc.pv), 1e-9)
			if got, want := e.String(), tc.str; got != want {
				t.Fatalf("invalid string: got=%q, want=%q", got, want)
			}
			back, err := Parse(e.String())
			if err != nil {
				t.Fatalf("could not re-parse %q: %+v", e.String(), err)
			}
			if !back.Equal(e) {
				t.Fatalf("round-trip mismatch: got=%v, want=%v", back, e)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, tc := range []struct {
		text string
		want error
	}{
		{"EUC[]", calc.ErrSyntax},
		{"EUC[1,2,3,4]", ErrArgs},
		{"EUC[1,PV]", ErrBias},
		{"EUC[PV,1,2]", ErrBias},
		{"EUC[1+]", calc.ErrSyntax},
		{"EUC[FOO]", calc.ErrUnknownConstant},
	} {
		t.Run(tc.text, func(t *testing.T) {
			_, err := Parse(tc.text)
			if !errors.Is(err, tc.want) {
				t.Fatalf("invalid error: got=%v, want=%v", err, tc.want)
			}
		})
	}

	for _, text := range []string{"EUC", "EUC(1)", "1,2"} {
		_, err := Parse(text)
		if err == nil {
			t.Fatalf("expected an error parsing %q", text)
		}
	}
}

func TestEqual(t *testing.T) {
	for _, tc := range []struct {
		a, b string
		want bool
	}{
		{"[1]", "EUC[1.0]", true},
		{"[2,3]", "[0,2,3]", true},
		{"[2,3]", "[2,4]", false},
		{"[PV]", "[PV]", true},
		{"[PV]", "[1]", false},
		{"[PV*2]", "[2*PV]", false},
	} {
		if got := MustParse(tc.a).Equal(MustParse(tc.b)); got != tc.want {
			t.Fatalf("%s == %s: got=%v, want=%v", tc.a, tc.b, got, tc.want)
		}
	}
}
