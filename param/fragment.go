// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package param

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/go-lpc/decom/words"
)

// Fragment is a building block of a Parameter: a slice of bits of one
// word, or a literal constant.
type Fragment interface {
	// Build extracts the fragment from the batch, with word slots
	// shifted by offset.
	Build(data *words.Array, offset int) (words.Column, error)

	// Width returns the number of bits of the fragment when built
	// out of words of wordSize bits.
	Width(wordSize int) int

	Equal(o Fragment) bool
	String() string

	isFragment()
}

// Word is a fragment made of (some of) the bits of one word slot.
type Word struct {
	Word       int   // 1-based word slot
	Bits       []int // 1-based bit positions, least significant first. nil for the whole word
	Complement bool
	Reverse    bool
	WordSize   int // pinned word size in bits. 0 when not pinned

	runs []bitRun
}

// NewWord creates a fragment extracting the given bits from word slot w.
// Without bits, the whole word is extracted.
func NewWord(w int, bits ...int) (*Word, error) {
	if w < 1 {
		return nil, fmt.Errorf("%w: word slot %d (slots are 1-based)", ErrWord, w)
	}
	seen := make(map[int]bool, len(bits))
	for _, b := range bits {
		if b < 1 || b > words.MaxWordSize {
			return nil, fmt.Errorf(
				"%w: bit %d of word %d outside of [1, %d]",
				ErrBit, b, w, words.MaxWordSize,
			)
		}
		if seen[b] {
			return nil, fmt.Errorf("%w: bit %d of word %d listed twice", ErrBit, b, w)
		}
		seen[b] = true
	}
	frag := &Word{Word: w}
	if len(bits) > 0 {
		frag.Bits = append([]int(nil), bits...)
		frag.runs = bitRuns(frag.Bits)
	}
	return frag, nil
}

func (*Word) isFragment() {}

func (f *Word) Width(wordSize int) int {
	if len(f.Bits) > 0 {
		return len(f.Bits)
	}
	return wordSize
}

// Build selects word slot Word-1+offset and extracts the requested bits.
// Runs of consecutive bits are concatenated in listing order, the first
// run landing in the least significant bits.
// The extracted field is then complemented, then bit-reversed.
func (f *Word) Build(data *words.Array, offset int) (words.Column, error) {
	wsize := data.WordSize()
	if f.WordSize != 0 && f.WordSize != wsize {
		return words.Column{}, fmt.Errorf(
			"%w: fragment %v expects %d-bit words, batch holds %d-bit words",
			ErrWordSize, f, f.WordSize, wsize,
		)
	}

	col, err := data.Col(f.Word - 1 + offset)
	if err != nil {
		return col, fmt.Errorf("param: could not select word %d (offset=%d): %w", f.Word, offset, err)
	}

	if len(f.Bits) > 0 {
		runs := f.runs
		if runs == nil {
			runs = bitRuns(f.Bits)
		}
		for _, r := range runs {
			if r.lo() < 1 || r.hi() > wsize {
				return col, fmt.Errorf(
					"%w: fragment %v selects bits %d-%d of a %d-bit word",
					ErrBit, f, r.lo(), r.hi(), wsize,
				)
			}
		}
		for i, v := range col.Data {
			var (
				acc uint64
				pos uint
			)
			for _, r := range runs {
				mask, shift := r.maskShift()
				acc |= ((v & mask) >> shift) << pos
				pos += uint(r.len())
			}
			col.Data[i] = acc
		}
		col.WordSize = len(f.Bits)
	}

	if f.Complement {
		col = col.Invert()
	}

	if f.Reverse {
		for i, v := range col.Data {
			col.Data[i] = reverseBits(v, col.WordSize)
		}
	}

	return col, nil
}

// Equal reports whether o selects the same set of bits of the same word,
// with the same complement and reverse flags.
// The listing order of bits is ignored.
func (f *Word) Equal(o Fragment) bool {
	w, ok := o.(*Word)
	if !ok || w == nil || f == nil {
		return false
	}
	if f.Word != w.Word || f.Complement != w.Complement || f.Reverse != w.Reverse {
		return false
	}
	if len(f.Bits) != len(w.Bits) {
		return false
	}
	a := append([]int(nil), f.Bits...)
	b := append([]int(nil), w.Bits...)
	sort.Ints(a)
	sort.Ints(b)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (f *Word) String() string {
	s := strconv.Itoa(f.Word)
	if len(f.Bits) > 0 {
		runs := f.runs
		if runs == nil {
			runs = bitRuns(f.Bits)
		}
		s += ":" + formatRuns(runs)
	}
	if f.Complement {
		s = "~" + s
	}
	if f.Reverse {
		s += "R"
	}
	return s
}

// Constant is a literal fragment.
// Complement and reverse are applied to the value at construction.
type Constant struct {
	Value uint64
	Size  int // width in bits
}

// NewConstant creates a constant fragment of size bits.
func NewConstant(v uint64, size int, complement, reverse bool) (*Constant, error) {
	if size < 1 || size > words.MaxWordSize {
		return nil, fmt.Errorf(
			"%w: constant size %d outside of [1, %d]",
			ErrConstant, size, words.MaxWordSize,
		)
	}
	if v > words.Mask(size) {
		return nil, fmt.Errorf(
			"%w: value 0x%x does not fit in %d bits", ErrConstant, v, size,
		)
	}
	if complement {
		v = ^v & words.Mask(size)
	}
	if reverse {
		v = reverseBits(v, size)
	}
	return &Constant{Value: v, Size: size}, nil
}

func (*Constant) isFragment() {}

func (f *Constant) Width(int) int { return f.Size }

// Build returns the constant value for every frame of the batch.
func (f *Constant) Build(data *words.Array, offset int) (words.Column, error) {
	col := words.Column{
		WordSize: f.Size,
		Data:     make([]uint64, data.Rows()),
	}
	for i := range col.Data {
		col.Data[i] = f.Value
	}
	return col, nil
}

func (f *Constant) Equal(o Fragment) bool {
	c, ok := o.(*Constant)
	if !ok || c == nil || f == nil {
		return false
	}
	return f.Value == c.Value && f.Size == c.Size
}

func (f *Constant) String() string {
	return formatConstant(f.Value, f.Size)
}

// formatConstant formats v as a zero-padded hexadecimal, octal or binary
// literal holding exactly size bits, when size allows it.
func formatConstant(v uint64, size int) string {
	switch {
	case size%4 == 0:
		return fmt.Sprintf("x%0*X", size/4, v)
	case size%3 == 0:
		return fmt.Sprintf("o%0*o", size/3, v)
	default:
		return fmt.Sprintf("b%0*b", size, v)
	}
}

var (
	_ Fragment = (*Word)(nil)
	_ Fragment = (*Constant)(nil)
)
