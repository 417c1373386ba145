// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package words

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestContainer(t *testing.T) {
	for _, tc := range []struct {
		w    int
		want int
		err  error
	}{
		{w: 0, err: ErrWordSize},
		{w: -1, err: ErrWordSize},
		{w: 1, want: 8},
		{w: 8, want: 8},
		{w: 9, want: 16},
		{w: 10, want: 16},
		{w: 16, want: 16},
		{w: 17, want: 32},
		{w: 32, want: 32},
		{w: 33, want: 64},
		{w: 64, want: 64},
		{w: 65, err: ErrWordSize},
	} {
		t.Run(strconv.Itoa(tc.w), func(t *testing.T) {
			got, err := Container(tc.w)
			switch {
			case tc.err != nil:
				if !errors.Is(err, tc.err) {
					t.Fatalf("invalid error: got=%v, want=%v", err, tc.err)
				}
				return
			case err != nil:
				t.Fatalf("could not compute container: %+v", err)
			}
			if got != tc.want {
				t.Fatalf("invalid container: got=%d, want=%d", got, tc.want)
			}
		})
	}
}

func TestArrayInvert(t *testing.T) {
	for _, text := range []string{
		"0000",
		"0101",
		"1010",
		"1111",
		"00000000",
		"00001111",
		"11110000",
		"11111111",
		"0000000000000000",
		"0101010101010101",
		"1010101010101010",
		"1111111111111111",
	} {
		t.Run(text, func(t *testing.T) {
			v, err := strconv.ParseUint(text, 2, 64)
			if err != nil {
				t.Fatal(err)
			}
			flip := strings.NewReplacer("0", "1", "1", "0").Replace(text)
			want, err := strconv.ParseUint(flip, 2, 64)
			if err != nil {
				t.Fatal(err)
			}

			const nframes = 10
			rows := make([][]uint64, nframes)
			for i := range rows {
				rows[i] = []uint64{v}
			}
			arr, err := FromRows(rows, len(text))
			if err != nil {
				t.Fatalf("could not create array: %+v", err)
			}

			inv := arr.Invert()
			if got, want := inv.WordSize(), len(text); got != want {
				t.Fatalf("invalid word size: got=%d, want=%d", got, want)
			}
			for i := 0; i < nframes; i++ {
				if got := inv.At(i, 0); got != want {
					t.Fatalf("frame %d: got=%b, want=%b", i, got, want)
				}
			}
			if got := arr.At(0, 0); got != v {
				t.Fatalf("input was modified: got=%b, want=%b", got, v)
			}
		})
	}
}

func TestInvertInvolution(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		w := rapid.IntRange(1, MaxWordSize).Draw(t, "w")
		v := rapid.Uint64Range(0, Mask(w)).Draw(t, "v")
		col := Column{WordSize: w, Data: []uint64{v}}
		inv := col.Invert()
		if inv.Data[0] > Mask(w) {
			t.Fatalf("inverted value 0x%x exceeds %d bits", inv.Data[0], w)
		}
		if got := inv.Invert().Data[0]; got != v {
			t.Fatalf("double inversion: got=0x%x, want=0x%x", got, v)
		}
	})
}

func TestShape(t *testing.T) {
	_, err := FromRows([][]uint64{{1, 2}, {3}}, 8)
	if !errors.Is(err, ErrShape) {
		t.Fatalf("ragged frames: got=%v, want=%v", err, ErrShape)
	}

	_, err = FromRows(nil, 8)
	if !errors.Is(err, ErrShape) {
		t.Fatalf("no frames: got=%v, want=%v", err, ErrShape)
	}

	_, err = FromRows([][]uint64{{1}}, 65)
	if !errors.Is(err, ErrWordSize) {
		t.Fatalf("invalid word size: got=%v, want=%v", err, ErrWordSize)
	}

	_, err = FromColumns([]Column{
		{WordSize: 8, Data: []uint64{1, 2}},
		{WordSize: 10, Data: []uint64{1, 2}},
	})
	if !errors.Is(err, ErrWordSize) {
		t.Fatalf("mixed word sizes: got=%v, want=%v", err, ErrWordSize)
	}
}

func TestArrayAccessors(t *testing.T) {
	arr, err := FromRows([][]uint64{
		{1, 2, 3},
		{4, 5, 6},
		{7, 8, 9},
	}, 4)
	if err != nil {
		t.Fatalf("could not create array: %+v", err)
	}

	col, err := arr.Col(1)
	if err != nil {
		t.Fatalf("could not get column: %+v", err)
	}
	if got, want := col.Data, []uint64{2, 5, 8}; !equal(got, want) {
		t.Fatalf("invalid column: got=%v, want=%v", got, want)
	}

	_, err = arr.Col(3)
	if !errors.Is(err, ErrShape) {
		t.Fatalf("invalid error: got=%v, want=%v", err, ErrShape)
	}

	sli, err := arr.Slice(1, 3)
	if err != nil {
		t.Fatalf("could not slice: %+v", err)
	}
	if got, want := sli.Row(0), []uint64{4, 5, 6}; !equal(got, want) {
		t.Fatalf("invalid slice: got=%v, want=%v", got, want)
	}

	sel, err := arr.Select([]int{2, 0})
	if err != nil {
		t.Fatalf("could not select: %+v", err)
	}
	if got, want := sel.Row(0), []uint64{7, 8, 9}; !equal(got, want) {
		t.Fatalf("invalid selection: got=%v, want=%v", got, want)
	}

	back, err := FromColumns([]Column{
		{WordSize: 4, Data: []uint64{1, 4, 7}},
		{WordSize: 4, Data: []uint64{2, 5, 8}},
		{WordSize: 4, Data: []uint64{3, 6, 9}},
	})
	if err != nil {
		t.Fatalf("could not create from columns: %+v", err)
	}
	if !back.Equal(arr) {
		t.Fatalf("round-trip through columns failed")
	}
}

func equal(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
