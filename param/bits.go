// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package param

import (
	"math/bits"
	"strconv"
	"strings"
)

// bitRun is a run of consecutive bit positions, in listing order.
// first and last are 1-based and may be descending.
type bitRun struct {
	first int
	last  int
}

func (r bitRun) lo() int {
	if r.first < r.last {
		return r.first
	}
	return r.last
}

func (r bitRun) hi() int {
	if r.first > r.last {
		return r.first
	}
	return r.last
}

func (r bitRun) len() int { return r.hi() - r.lo() + 1 }

// maskShift returns the mask and right shift extracting the run
// from a word.
func (r bitRun) maskShift() (uint64, uint) {
	var (
		shift = uint(r.lo() - 1)
		n     = r.len()
		mask  = ^uint64(0)
	)
	if n < 64 {
		mask = 1<<uint(n) - 1
	}
	return mask << shift, shift
}

func (r bitRun) String() string {
	if r.first == r.last {
		return strconv.Itoa(r.first)
	}
	return strconv.Itoa(r.first) + "-" + strconv.Itoa(r.last)
}

// bitRuns splits a bit list into runs of consecutive positions,
// keeping the listing order. A run is either ascending or descending.
//
//	[1,2,3,7,8] -> (1-3), (7-8)
//	[8,5,4,3,1] -> (8), (5-3), (1)
func bitRuns(bs []int) []bitRun {
	if len(bs) == 0 {
		return nil
	}
	var (
		runs []bitRun
		cur  = bitRun{first: bs[0], last: bs[0]}
		dir  = 0
	)
	for _, b := range bs[1:] {
		d := b - cur.last
		switch {
		case (d == 1 || d == -1) && (dir == 0 || dir == d):
			cur.last = b
			dir = d
		default:
			runs = append(runs, cur)
			cur = bitRun{first: b, last: b}
			dir = 0
		}
	}
	return append(runs, cur)
}

func formatRuns(runs []bitRun) string {
	strs := make([]string, len(runs))
	for i, r := range runs {
		strs[i] = r.String()
	}
	return strings.Join(strs, ",")
}

// reverseBits reverses the order of the w least significant bits of v.
func reverseBits(v uint64, w int) uint64 {
	if w <= 0 {
		return 0
	}
	return bits.Reverse64(v) >> uint(64-w)
}

// bitMask returns the 1-based positions of the bits set in v,
// least significant first.
func bitMask(v uint64) []int {
	var o []int
	for i := 1; v != 0; i++ {
		if v&1 == 1 {
			o = append(o, i)
		}
		v >>= 1
	}
	return o
}

// irange returns the inclusive sequence from beg to end,
// counting down when end < beg.
func irange(beg, end int) []int {
	if beg <= end {
		o := make([]int, 0, end-beg+1)
		for i := beg; i <= end; i++ {
			o = append(o, i)
		}
		return o
	}
	o := make([]int, 0, beg-end+1)
	for i := beg; i >= end; i-- {
		o = append(o, i)
	}
	return o
}
