// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package param

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/go-lpc/decom/words"
	"pgregory.net/rapid"
)

const nframes = 10

var sample = make(map[int]*words.Array)

// sampleData returns a batch of 10 identical frames of 2^w words,
// where word slot j (1-based) holds j mod 2^w.
func sampleData(t testing.TB, w int) *words.Array {
	t.Helper()
	if arr, ok := sample[w]; ok {
		return arr
	}
	n := 1 << uint(w)
	arr, err := words.New(nframes, n, w)
	if err != nil {
		t.Fatalf("could not create sample data: %+v", err)
	}
	for i := 0; i < nframes; i++ {
		for j := 0; j < n; j++ {
			arr.Set(i, j, uint64(j+1)%uint64(n))
		}
	}
	sample[w] = arr
	return arr
}

func checkColumn(t *testing.T, col words.Column, want uint64) {
	t.Helper()
	if got, want := col.Len(), nframes; got != want {
		t.Fatalf("invalid number of frames: got=%d, want=%d", got, want)
	}
	for i, v := range col.Data {
		if v != want {
			t.Fatalf("frame %d: got=0x%x, want=0x%x", i, v, want)
		}
	}
}

func mustWord(t *testing.T, w int, bits ...int) *Word {
	t.Helper()
	f, err := NewWord(w, bits...)
	if err != nil {
		t.Fatalf("could not create word fragment: %+v", err)
	}
	return f
}

func TestWordBuild(t *testing.T) {
	for _, tc := range []struct {
		wsize int
		word  int
		bits  []int
		want  uint64
	}{
		{8, 1, nil, 1},
		{8, 64, nil, 64},
		{8, 128, nil, 128},
		{8, 0xFF, []int{1}, 1},
		{8, 0x0F, []int{1, 2, 3, 4}, 0xF},
		{8, 0x0F, []int{5, 6, 7, 8}, 0x0},
		{8, 0xF0, []int{1, 2, 3, 4}, 0x0},
		{8, 0xF0, []int{5, 6, 7, 8}, 0xF},
		{8, 0xF0, []int{8, 7, 6, 5}, 0xF},
		{8, 256, nil, 0},
		{8, 255, []int{1, 2}, 3},
		{8, 255, []int{1, 2, 3, 4}, 15},
		{8, 255, []int{1, 2, 3, 4, 5, 6}, 63},
		{8, 255, []int{1, 2, 3, 4, 5, 6, 7, 8}, 255},
		{8, 0b11000101, []int{1, 2, 3, 7, 8}, 0b11101},
		{8, 1, []int{1, 3, 5, 7}, 0b0001},
		{8, 1, []int{7, 5, 3, 1}, 0b1000},
		{10, 1, nil, 1},
		{10, 256, nil, 256},
		{10, 1024, nil, 0},
		{10, 0b0111111110, []int{2, 3, 4, 5, 6, 7, 8, 9}, 0b11111111},
	} {
		t.Run(fmt.Sprintf("w=%d-word=%d-bits=%v", tc.wsize, tc.word, tc.bits), func(t *testing.T) {
			frag := mustWord(t, tc.word, tc.bits...)
			col, err := frag.Build(sampleData(t, tc.wsize), 0)
			if err != nil {
				t.Fatalf("could not build fragment: %+v", err)
			}
			checkColumn(t, col, tc.want)

			want := tc.wsize
			if tc.bits != nil {
				want = len(tc.bits)
			}
			if got := col.WordSize; got != want {
				t.Fatalf("invalid fragment width: got=%d, want=%d", got, want)
			}
		})
	}
}

func TestWordComplementReverse(t *testing.T) {
	data := sampleData(t, 8)
	for _, word := range []int{1, 0x0F, 0x35, 0xA0} {
		t.Run(fmt.Sprintf("word=%d", word), func(t *testing.T) {
			frag := mustWord(t, word, 1, 2, 3, 4, 5, 6)
			frag.Complement = true
			frag.Reverse = true
			col, err := frag.Build(data, 0)
			if err != nil {
				t.Fatalf("could not build fragment: %+v", err)
			}
			v := uint64(word) & 0x3F
			want := reverseBits(^v&0x3F, 6)
			checkColumn(t, col, want)
		})
	}
}

func TestWordErrors(t *testing.T) {
	_, err := NewWord(0)
	if !errors.Is(err, ErrWord) {
		t.Fatalf("invalid error: got=%v, want=%v", err, ErrWord)
	}

	_, err = NewWord(1, 1, 1)
	if !errors.Is(err, ErrBit) {
		t.Fatalf("invalid error: got=%v, want=%v", err, ErrBit)
	}

	_, err = NewWord(1, 65)
	if !errors.Is(err, ErrBit) {
		t.Fatalf("invalid error: got=%v, want=%v", err, ErrBit)
	}

	frag := mustWord(t, 1, 1, 2)
	frag.WordSize = 10
	_, err = frag.Build(sampleData(t, 8), 0)
	if !errors.Is(err, ErrWordSize) {
		t.Fatalf("invalid error: got=%v, want=%v", err, ErrWordSize)
	}

	_, err = mustWord(t, 1, 9).Build(sampleData(t, 8), 0)
	if !errors.Is(err, ErrBit) {
		t.Fatalf("invalid error: got=%v, want=%v", err, ErrBit)
	}

	_, err = mustWord(t, 257).Build(sampleData(t, 8), 0)
	if !errors.Is(err, words.ErrShape) {
		t.Fatalf("invalid error: got=%v, want=%v", err, words.ErrShape)
	}
}

func TestConstantBuild(t *testing.T) {
	for _, tc := range []struct {
		value uint64
		size  int
		want  uint64
	}{
		{0xF, 4, 0xF},
		{0xAA, 8, 0xAA},
		{0b1010, 4, 0b1010},
	} {
		t.Run(fmt.Sprintf("0x%x", tc.value), func(t *testing.T) {
			frag, err := NewConstant(tc.value, tc.size, false, false)
			if err != nil {
				t.Fatalf("could not create constant: %+v", err)
			}
			col, err := frag.Build(sampleData(t, 8), 0)
			if err != nil {
				t.Fatalf("could not build constant: %+v", err)
			}
			checkColumn(t, col, tc.want)
		})
	}

	rapid.Check(t, func(t *rapid.T) {
		size := rapid.IntRange(1, 64).Draw(t, "size")
		v := rapid.Uint64Range(0, words.Mask(size)).Draw(t, "v")
		frag, err := NewConstant(v, size, false, false)
		if err != nil {
			t.Fatalf("could not create constant: %+v", err)
		}
		data, err := words.FromRows([][]uint64{{0}, {1}}, 8)
		if err != nil {
			t.Fatalf("could not create data: %+v", err)
		}
		col, err := frag.Build(data, 0)
		if err != nil {
			t.Fatalf("could not build constant: %+v", err)
		}
		for _, got := range col.Data {
			if got != v {
				t.Fatalf("invalid constant: got=0x%x, want=0x%x", got, v)
			}
		}
	})
}

func TestConstantErrors(t *testing.T) {
	for _, tc := range []struct {
		value uint64
		size  int
	}{
		{0x10, 4},
		{1, 0},
		{1, 65},
	} {
		_, err := NewConstant(tc.value, tc.size, false, false)
		if !errors.Is(err, ErrConstant) {
			t.Fatalf("NewConstant(0x%x, %d): got=%v, want=%v", tc.value, tc.size, err, ErrConstant)
		}
	}

	_, err := Parse("[x1FFFFFFFFFFFFFFFF]")
	if !errors.Is(err, ErrConstant) {
		t.Fatalf("invalid error: got=%v, want=%v", err, ErrConstant)
	}

	c, err := NewConstant(0b0011, 4, true, true)
	if err != nil {
		t.Fatalf("could not create constant: %+v", err)
	}
	if got, want := c.Value, uint64(0b0011); got != want {
		t.Fatalf("invalid complemented-reversed constant: got=0b%b, want=0b%b", got, want)
	}
}

func TestParameterBuild(t *testing.T) {
	for _, tc := range []struct {
		wsize int
		text  string
		want  uint64
	}{
		{8, "[255+255]", 0xFFFF},
		{8, "[255:1-4+255]", 0xFFF},
		{8, "[170+85]", 0xAA55},
		{8, "[170R+85]", 0x5555},
		{8, "[170+85R]", 0xAAAA},
		{8, "[170R+85R]", 0x55AA},
		{8, "[255] XOR xFF", 0x00},
		{8, "[256] XOR xFF", 0xFF},
		{8, "[255] AND xF0", 0xF0},
		{8, "[255] AND x0F", 0x0F},
		{8, "[63] OR xF0", 0xFF},
		{8, "[15] OR b10000000", 0b10001111},
		{8, "[1+2+3+x00]", 0x01020300},
		{8, "[~1-2]", 0xFEFD},
		{10, "[1023:1-4+xF]", 0xFF},
	} {
		t.Run(tc.text, func(t *testing.T) {
			p, err := Parse(tc.text)
			if err != nil {
				t.Fatalf("could not parse %q: %+v", tc.text, err)
			}
			out, err := p.Build(sampleData(t, tc.wsize))
			if err != nil {
				t.Fatalf("could not build %q: %+v", tc.text, err)
			}
			if got, want := out.Cols(), 1; got != want {
				t.Fatalf("invalid number of columns: got=%d, want=%d", got, want)
			}
			col, err := out.Col(0)
			if err != nil {
				t.Fatal(err)
			}
			checkColumn(t, col, tc.want)
		})
	}
}

func TestConcatenation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		w := rapid.IntRange(1, 32).Draw(t, "w")
		a := rapid.Uint64Range(0, words.Mask(w)).Draw(t, "a")
		b := rapid.Uint64Range(0, words.Mask(w)).Draw(t, "b")
		data, err := words.FromRows([][]uint64{{a, b}, {b, a}}, w)
		if err != nil {
			t.Fatalf("could not create data: %+v", err)
		}

		out, err := MustParse("[1+2]").Build(data)
		if err != nil {
			t.Fatalf("could not build: %+v", err)
		}
		if got, want := out.At(0, 0), a<<uint(w)+b; got != want {
			t.Fatalf("invalid frame 0: got=0x%x, want=0x%x", got, want)
		}
		if got, want := out.At(1, 0), b<<uint(w)+a; got != want {
			t.Fatalf("invalid frame 1: got=0x%x, want=0x%x", got, want)
		}
		if got, want := out.WordSize(), 2*w; got != want {
			t.Fatalf("invalid width: got=%d, want=%d", got, want)
		}
	})
}

func TestParse(t *testing.T) {
	for _, text := range []string{
		"[5]",
		"[~5]",
		"[~5R]",
		"[5+6]",
		"[5:1-4+6:5-8R]",
		"[5:x0FR+6:xF0R]",
		"[~5]++10",
		"[95]--10",
		"[~5]++10<55",
		"[4+6]++20",
		"[1+2+3+x00]",
		"[1+2] XOR x55",
		"[1+2] xor x55",
		"[1++1<17]",
		"[1:2-9++1<513]",
		"[95--10] AND xFF",
		"[1] AND xFF++32",
		"[o17+b101+x3]",
	} {
		t.Run(text, func(t *testing.T) {
			p, err := Parse(text)
			if err != nil {
				t.Fatalf("could not parse %q: %+v", text, err)
			}

			str := p.String()
			q, err := Parse(str)
			if err != nil {
				t.Fatalf("could not re-parse %q (from %q): %+v", str, text, err)
			}
			if !p.Equal(q) {
				t.Fatalf("round-trip failed: %q -> %q", text, str)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, tc := range []struct {
		text string
		err  error
	}{
		{"", ErrSyntax},
		{"5", ErrSyntax},
		{"[5", ErrSyntax},
		{"[5+]", ErrSyntax},
		{"[5] NAND x1", ErrSyntax},
		{"[5]++", ErrSyntax},
		{"[5++0]", ErrStep},
		{"[5--0]", ErrStep},
		{"[1++1]++2", ErrSyntax},
		{"[x0++1]", ErrNoWord},
		{"[0]", ErrWord},
		{"[1:x00]", ErrSyntax},
		{"[1-2:1-4-6]", ErrSyntax},
		{"[1] ?", ErrSyntax},
		{"['x1]", ErrSyntax},
		{"[1-2147483647]", ErrSyntax},
		{"[4294967296]", ErrSyntax},
		{"[1-65]", ErrSyntax},
		{"[1:1-2147483647]", ErrSyntax},
		{"[1:2-1-2147483647]", ErrSyntax},
	} {
		t.Run(tc.text, func(t *testing.T) {
			_, err := Parse(tc.text)
			if !errors.Is(err, tc.err) {
				t.Fatalf("invalid error: got=%v, want=%v", err, tc.err)
			}
		})
	}
}

func TestParameterEqual(t *testing.T) {
	for _, text := range []string{
		"[1:5-8]==[1:8-5]==[1:5,6,7,8]==[1:8,7,6,5]",
		"[1:1,3,5,7]==[1:7,5,3,1]",
		"[1:4-1-4]==[1-4:1-4]==[1:1-4+2:1-4+3:1-4+4:1-4]",
		"[~1+~2+~3]==[~1-3]",
		"[1R+2R+3R]==[1-3R]",
		"[1:1-8]==[1:8-1]==[1:o377]==[1:xff]==[1:xFF]",
		"[1-4:8,5-3,1]==[1:b10011101-4]==[1-4:b10011101]",
		"[xFF]==[b11111111]",
		"[o377]==[b011111111]",
		"[1-4:xf0]==[1:xf0-4]",
		"[xf0]==['xf0']",
		"[1] XOR x55==[1] xor b01010101",
		"[1]++32==[1]++32",
		"[5]--10==[5]--10<0",
	} {
		t.Run(text, func(t *testing.T) {
			defs := strings.Split(text, "==")
			ref, err := Parse(defs[0])
			if err != nil {
				t.Fatalf("could not parse %q: %+v", defs[0], err)
			}
			for _, def := range defs[1:] {
				p, err := Parse(def)
				if err != nil {
					t.Fatalf("could not parse %q: %+v", def, err)
				}
				if !ref.Equal(p) {
					t.Fatalf("%q != %q", defs[0], def)
				}
			}
		})
	}
}

func TestParameterNotEqual(t *testing.T) {
	for _, tc := range []struct {
		a, b string
	}{
		{"[1:7+1:5+1:3+1:1]", "[1:1+1:3+1:5+1:7]"},
		{"[1]", "[~1]"},
		{"[1]", "[1R]"},
		{"[1]", "[1] AND xFF"},
		{"[1++32]", "[1]++32"},
		{"[1]++32", "[1]++16"},
		{"[x0F]", "[b1111]"},
	} {
		t.Run(tc.a+"!="+tc.b, func(t *testing.T) {
			a := MustParse(tc.a)
			b := MustParse(tc.b)
			if a.Equal(b) || b.Equal(a) {
				t.Fatalf("%q == %q", tc.a, tc.b)
			}
		})
	}
}

func TestBitOrder(t *testing.T) {
	// equal definitions may assemble bits differently.
	data := sampleData(t, 8)
	a := MustParse("[1:1,3,5,7]")
	b := MustParse("[1:7,5,3,1]")
	if !a.Equal(b) {
		t.Fatalf("%v != %v", a, b)
	}
	oa, err := a.Build(data)
	if err != nil {
		t.Fatal(err)
	}
	ob, err := b.Build(data)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := oa.At(0, 0), uint64(0b0001); got != want {
		t.Fatalf("invalid %v: got=0b%b, want=0b%b", a, got, want)
	}
	if got, want := ob.At(0, 0), uint64(0b1000); got != want {
		t.Fatalf("invalid %v: got=0b%b, want=0b%b", b, got, want)
	}

	c := MustParse("[240:5-8]")
	d := MustParse("[240:8-5]")
	oc, err := c.Build(data)
	if err != nil {
		t.Fatal(err)
	}
	od, err := d.Build(data)
	if err != nil {
		t.Fatal(err)
	}
	if !oc.Equal(od) {
		t.Fatalf("contiguous runs should build identically")
	}
}

func TestGenerator(t *testing.T) {
	type expect struct {
		beg, end, step int
		tmpl           string
	}
	for _, tc := range []struct {
		wsize int
		text  string
		want  expect
	}{
		{8, "[1++1<17]", expect{0, 16, 1, "[%d]"}},
		{10, "[1:2-9++1<513]", expect{0, 512, 1, "[%d:2-9]"}},
		{8, "[1++32]", expect{0, 256, 32, "[%d]"}},
		{8, "[1++64]", expect{0, 256, 64, "[%d]"}},
		{10, "[1:2-9++64]", expect{0, 1024, 64, "[%d:2-9]"}},
	} {
		t.Run(tc.text, func(t *testing.T) {
			data := sampleData(t, tc.wsize)
			p, err := Parse(tc.text)
			if err != nil {
				t.Fatalf("could not parse %q: %+v", tc.text, err)
			}
			if _, ok := p.(*Generator); !ok {
				t.Fatalf("invalid parameter type %T", p)
			}
			out, err := p.Build(data)
			if err != nil {
				t.Fatalf("could not build %q: %+v", tc.text, err)
			}

			col := 0
			for i := tc.want.beg; i < tc.want.end; i += tc.want.step {
				def := fmt.Sprintf(tc.want.tmpl, i+1)
				ref, err := MustParse(def).Build(data)
				if err != nil {
					t.Fatalf("could not build %q: %+v", def, err)
				}
				for row := 0; row < nframes; row++ {
					if got, want := out.At(row, col), ref.At(row, 0); got != want {
						t.Fatalf("column %d (%s), frame %d: got=%d, want=%d", col, def, row, got, want)
					}
				}
				col++
			}
			if got, want := out.Cols(), col; got != want {
				t.Fatalf("invalid number of columns: got=%d, want=%d", got, want)
			}
		})
	}
}

func TestGeneratorDown(t *testing.T) {
	data := sampleData(t, 8)
	p := MustParse("[96:1-4+95--10]")
	out, err := p.Build(data)
	if err != nil {
		t.Fatalf("could not build: %+v", err)
	}
	// start at word 95, down to word 5 included.
	if got, want := out.Cols(), 10; got != want {
		t.Fatalf("invalid number of columns: got=%d, want=%d", got, want)
	}
	for i := 0; i < out.Cols(); i++ {
		w := 95 - 10*i
		want := uint64((w+1)&0xF)<<8 | uint64(w)
		if got := out.At(0, i); got != want {
			t.Fatalf("column %d: got=0x%x, want=0x%x", i, got, want)
		}
	}
}

func TestSupercom(t *testing.T) {
	data := sampleData(t, 8)
	p, err := Parse("[1]++32")
	if err != nil {
		t.Fatalf("could not parse: %+v", err)
	}
	if _, ok := p.(*Supercom); !ok {
		t.Fatalf("invalid parameter type %T", p)
	}
	out, err := p.Build(data)
	if err != nil {
		t.Fatalf("could not build: %+v", err)
	}
	if got, want := out.Rows(), nframes; got != want {
		t.Fatalf("invalid number of frames: got=%d, want=%d", got, want)
	}
	if got, want := out.Cols(), 8; got != want {
		t.Fatalf("invalid number of columns: got=%d, want=%d", got, want)
	}
	for i := 0; i < out.Rows(); i++ {
		for j := 0; j < out.Cols(); j++ {
			if got, want := out.At(i, j), uint64(1+32*j); got != want {
				t.Fatalf("(%d,%d): got=%d, want=%d", i, j, got, want)
			}
		}
	}
}

func TestGeneratorErrors(t *testing.T) {
	data := sampleData(t, 8)

	_, err := MustParse("[5++1<5]").Build(data)
	if !errors.Is(err, ErrEmptyRange) {
		t.Fatalf("invalid error: got=%v, want=%v", err, ErrEmptyRange)
	}

	sup := MustParse("[5]++1<5")
	_, err = sup.Build(data)
	if !errors.Is(err, ErrEmptyRange) {
		t.Fatalf("invalid error: got=%v, want=%v", err, ErrEmptyRange)
	}
	if got, want := err.Error(), sup.String(); !strings.Contains(got, want) {
		t.Fatalf("error does not name the parameter:\ngot= %q\nwant=%q", got, want)
	}

	_, err = NewIterator(0)
	if !errors.Is(err, ErrStep) {
		t.Fatalf("invalid error: got=%v, want=%v", err, ErrStep)
	}

	gen := MustParse("[1++1<4]").(*Generator)
	gen.WordSize = 12
	_, err = gen.Build(data)
	if !errors.Is(err, ErrWordSize) {
		t.Fatalf("invalid error: got=%v, want=%v", err, ErrWordSize)
	}

	_, err = MustParse("[250++4<300]").Build(data)
	if !errors.Is(err, words.ErrShape) {
		t.Fatalf("invalid error: got=%v, want=%v", err, words.ErrShape)
	}

	_, err = NewBitOperator("nand", 1)
	if !errors.Is(err, ErrBitOp) {
		t.Fatalf("invalid error: got=%v, want=%v", err, ErrBitOp)
	}

	tmpl, err := NewBasic([]Fragment{&Constant{Value: 1, Size: 4}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = tmpl.MaxWord()
	if !errors.Is(err, ErrNoWord) {
		t.Fatalf("invalid error: got=%v, want=%v", err, ErrNoWord)
	}

	_, err = NewBasic([]Fragment{nil}, nil)
	if !errors.Is(err, ErrFragment) {
		t.Fatalf("invalid error: got=%v, want=%v", err, ErrFragment)
	}

	_, err = MustParse("[1+2+3+4+5+6+7+8+9]").Build(data)
	if !errors.Is(err, ErrWordSize) {
		t.Fatalf("invalid error: got=%v, want=%v", err, ErrWordSize)
	}
}
