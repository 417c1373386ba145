// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package interp decodes assembled raw parameter values into signed or
// floating-point numbers.
package interp // import "github.com/go-lpc/decom/interp"

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-lpc/decom/words"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrUnknown     = errors.New("interp: unknown interpretation")
	ErrUnsupported = errors.New("interp: unsupported interpretation")
)

// Kind enumerates the known interpretations.
type Kind uint8

const (
	Unsigned       Kind = iota // u
	OnesComplement             // 1c
	TwosComplement             // 2c
	SignMagnitude              // sm
	IEEE32                     // ieee32
	IEEE64                     // ieee64
	MIL1750A32                 // 1750a32
	MIL1750A48                 // 1750a48
	TI32                       // ti32
	TI40                       // ti40
)

var kindNames = [...]string{
	Unsigned:       "u",
	OnesComplement: "1c",
	TwosComplement: "2c",
	SignMagnitude:  "sm",
	IEEE32:         "ieee32",
	IEEE64:         "ieee64",
	MIL1750A32:     "1750a32",
	MIL1750A48:     "1750a48",
	TI32:           "ti32",
	TI40:           "ti40",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// decoder decodes a raw value v of w bits.
type decoder func(v uint64, w int) float64

var decoders = [...]decoder{
	Unsigned:       func(v uint64, w int) float64 { return float64(v) },
	OnesComplement: func(v uint64, w int) float64 { return float64(Ones(v, w)) },
	TwosComplement: func(v uint64, w int) float64 { return float64(Twos(v, w)) },
}

// Interp is an interpretation of raw parameter values.
type Interp struct {
	kind Kind
	dec  decoder
}

// Lookup returns the interpretation registered under name.
func Lookup(name string) (Interp, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for i, n := range kindNames {
		if n != key {
			continue
		}
		k := Kind(i)
		var dec decoder
		if int(k) < len(decoders) {
			dec = decoders[k]
		}
		return Interp{kind: k, dec: dec}, nil
	}
	return Interp{}, fmt.Errorf("%w: %s is not a valid interpretation type", ErrUnknown, name)
}

// MustLookup is like Lookup but panics on error.
func MustLookup(name string) Interp {
	ip, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return ip
}

// Names returns the names of all known interpretations.
func Names() []string {
	return append([]string(nil), kindNames[:]...)
}

func (ip Interp) Kind() Kind     { return ip.kind }
func (ip Interp) String() string { return ip.kind.String() }

// Supported reports whether values can be decoded with this interpretation.
func (ip Interp) Supported() bool { return ip.dec != nil }

// Decode decodes a single raw value v of w bits.
func (ip Interp) Decode(v uint64, w int) (float64, error) {
	if ip.dec == nil {
		return 0, fmt.Errorf("%w: %q has no decoder", ErrUnsupported, ip.kind)
	}
	return ip.dec(v, w), nil
}

// Apply decodes every value of the batch.
func (ip Interp) Apply(data *words.Array) (*mat.Dense, error) {
	if ip.dec == nil {
		return nil, fmt.Errorf("%w: %q has no decoder", ErrUnsupported, ip.kind)
	}
	var (
		rows = data.Rows()
		cols = data.Cols()
		w    = data.WordSize()
		out  = make([]float64, rows*cols)
	)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out[i*cols+j] = ip.dec(data.At(i, j), w)
		}
	}
	return mat.NewDense(rows, cols, out), nil
}

// Ones decodes v, a one's complement value of w bits.
// Both representations of zero decode to 0.
func Ones(v uint64, w int) int64 {
	if w < 1 || w > words.MaxWordSize {
		return 0
	}
	m := words.Mask(w)
	v &= m
	if v>>uint(w-1) == 1 {
		return -int64(m - v)
	}
	return int64(v)
}

// Twos decodes v, a two's complement value of w bits.
func Twos(v uint64, w int) int64 {
	if w < 1 || w > words.MaxWordSize {
		return 0
	}
	s := uint(64 - w)
	return int64(v<<s) >> s
}
