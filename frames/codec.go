// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frames

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/go-lpc/decom/internal/crc16"
	"github.com/go-lpc/decom/internal/mmap"
	"github.com/go-lpc/decom/words"
	"golang.org/x/xerrors"
)

const (
	Version = 1 // binary format version

	hdrMarker = 0xd0 // batch header marker
	trlMarker = 0xa0 // batch trailer marker

	flagCTime = 1 << 0 // batch holds capture times
	flagTime  = 1 << 1 // batch holds frame times

	// MaxWords is the maximum number of words a decoded batch may hold.
	MaxWords = 1 << 26
)

// ErrSize is returned when a batch header describes more than MaxWords words.
var ErrSize = xerrors.New("frames: invalid batch size")

// Encoder writes batches of frames to an output stream.
// Encoder computes the CRC-16 checksum of each batch on the fly and
// appends it after the batch trailer marker.
type Encoder struct {
	w   io.Writer
	buf []byte
	err error
	crc crc16.Hash16
}

// NewEncoder returns a new Encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		w:   w,
		buf: make([]byte, 8),
		crc: crc16.New(nil),
	}
}

func (enc *Encoder) crcw(p []byte) {
	_, _ = enc.crc.Write(p) // can not fail.
}

// Encode writes the batch of frames to the stream.
func (enc *Encoder) Encode(b Batch) error {
	err := b.check()
	if err != nil {
		return fmt.Errorf("frames: could not encode batch: %w", err)
	}
	if enc.err != nil {
		return enc.err
	}

	var (
		rows  = b.Data.Rows()
		cols  = b.Data.Cols()
		wsize = b.Data.WordSize()
		flags = uint8(0)
	)
	if b.CTime != nil {
		flags |= flagCTime
	}
	if b.Time != nil {
		flags |= flagTime
	}

	cbits, err := words.Container(wsize)
	if err != nil {
		return fmt.Errorf("frames: could not encode batch: %w", err)
	}

	enc.crc.Reset()

	enc.writeU8(hdrMarker)
	enc.writeU8(Version)
	enc.writeU8(uint8(wsize))
	enc.writeU8(flags)
	enc.writeU32(uint32(rows))
	enc.writeU32(uint32(cols))
	if enc.err != nil {
		return fmt.Errorf("frames: could not write batch header: %w", enc.err)
	}

	for i := 0; i < rows; i++ {
		if b.CTime != nil {
			enc.writeI64(b.CTime[i].UnixNano())
		}
		if b.Time != nil {
			enc.writeI64(b.Time[i].UnixNano())
		}
		for j := 0; j < cols; j++ {
			enc.writeWord(b.Data.At(i, j), cbits)
		}
	}
	enc.writeU8(trlMarker)

	crc := enc.crc.Sum16()
	enc.writeU16(crc)

	if enc.err != nil {
		return fmt.Errorf("frames: could not write batch: %w", enc.err)
	}
	return nil
}

func (enc *Encoder) write(p []byte) {
	if enc.err != nil {
		return
	}
	_, enc.err = enc.w.Write(p)
	enc.crcw(p)
}

func (enc *Encoder) writeU8(v uint8) {
	enc.buf[0] = v
	enc.write(enc.buf[:1])
}

func (enc *Encoder) writeU16(v uint16) {
	binary.BigEndian.PutUint16(enc.buf[:2], v)
	enc.write(enc.buf[:2])
}

func (enc *Encoder) writeU32(v uint32) {
	binary.BigEndian.PutUint32(enc.buf[:4], v)
	enc.write(enc.buf[:4])
}

func (enc *Encoder) writeI64(v int64) {
	binary.BigEndian.PutUint64(enc.buf[:8], uint64(v))
	enc.write(enc.buf[:8])
}

func (enc *Encoder) writeWord(v uint64, cbits int) {
	n := cbits / 8
	binary.BigEndian.PutUint64(enc.buf[:8], v)
	enc.write(enc.buf[8-n : 8])
}

// Decoder reads and validates batches of frames from an underlying data
// source.
type Decoder struct {
	r io.Reader

	buf []byte
	err error
	crc crc16.Hash16

	n    int64 // bytes read so far
	size int64 // size of the data source, -1 if unknown
}

// NewDecoder creates a decoder that reads and validates data from r.
func NewDecoder(r io.Reader) *Decoder {
	size := int64(-1)
	switch r := r.(type) {
	case interface{ Len() int }:
		size = int64(r.Len())
	case *io.SectionReader:
		size = r.Size()
	}
	return &Decoder{
		r:    r,
		buf:  make([]byte, 8),
		crc:  crc16.New(nil),
		size: size,
	}
}

// Decode reads the next batch of frames from the stream.
// Decode returns io.EOF when the stream holds no more batches.
func (dec *Decoder) Decode(b *Batch) error {
	if dec.err != nil {
		return dec.err
	}
	dec.crc.Reset()

	v := dec.readU8()
	if dec.err != nil {
		if xerrors.Is(dec.err, io.EOF) {
			return io.EOF
		}
		return xerrors.Errorf("frames: could not read batch header marker: %w", dec.err)
	}
	if v != hdrMarker {
		dec.err = xerrors.Errorf("frames: invalid batch header marker (got=0x%x, want=0x%x)", v, hdrMarker)
		return dec.err
	}

	var (
		vers  = dec.readU8()
		wsize = int(dec.readU8())
		flags = dec.readU8()
		rows  = int(dec.readU32())
		cols  = int(dec.readU32())
	)
	if dec.err != nil {
		return xerrors.Errorf("frames: could not read batch header: %w", dec.unexpected())
	}
	if vers != Version {
		dec.err = xerrors.Errorf("frames: invalid format version (got=%d, want=%d)", vers, Version)
		return dec.err
	}

	cbits, err := words.Container(wsize)
	if err != nil {
		dec.err = xerrors.Errorf("frames: invalid batch header: %w", err)
		return dec.err
	}
	err = dec.checkSize(uint64(rows), uint64(cols), cbits, flags)
	if err != nil {
		dec.err = err
		return dec.err
	}
	data, err := words.New(rows, cols, wsize)
	if err != nil {
		dec.err = xerrors.Errorf("frames: invalid batch header: %w", err)
		return dec.err
	}

	var ctime, ftime []time.Time
	if flags&flagCTime != 0 {
		ctime = make([]time.Time, rows)
	}
	if flags&flagTime != 0 {
		ftime = make([]time.Time, rows)
	}

	mask := words.Mask(wsize)
	for i := 0; i < rows; i++ {
		if ctime != nil {
			ctime[i] = time.Unix(0, dec.readI64()).UTC()
		}
		if ftime != nil {
			ftime[i] = time.Unix(0, dec.readI64()).UTC()
		}
		for j := 0; j < cols; j++ {
			v := dec.readWord(cbits)
			if v&^mask != 0 {
				dec.err = xerrors.Errorf(
					"frames: word (frame=%d, slot=%d) value 0x%x overflows %d bits",
					i, j, v, wsize,
				)
				return dec.err
			}
			data.Set(i, j, v)
		}
		if dec.err != nil {
			return xerrors.Errorf("frames: could not read frame %d: %w", i, dec.unexpected())
		}
	}

	v = dec.readU8()
	if dec.err != nil {
		return xerrors.Errorf("frames: could not read batch trailer marker: %w", dec.unexpected())
	}
	if v != trlMarker {
		dec.err = xerrors.Errorf("frames: invalid batch trailer marker (got=0x%x, want=0x%x)", v, trlMarker)
		return dec.err
	}

	var (
		compCRC = dec.crc.Sum16()
		recvCRC = dec.readU16()
	)
	if dec.err != nil {
		return xerrors.Errorf("frames: could not receive CRC-16: %w", dec.unexpected())
	}
	if compCRC != recvCRC {
		dec.err = xerrors.Errorf("frames: inconsistent CRC: recv=0x%04x comp=0x%04x", recvCRC, compCRC)
		return dec.err
	}

	*b = Batch{CTime: ctime, Time: ftime, Data: data}
	return nil
}

// DecodeAll reads all the remaining batches from the stream and
// concatenates them.
func (dec *Decoder) DecodeAll() (Batch, error) {
	var bs []Batch
	for {
		var b Batch
		err := dec.Decode(&b)
		if err != nil {
			if xerrors.Is(err, io.EOF) {
				break
			}
			return Batch{}, err
		}
		bs = append(bs, b)
	}
	if len(bs) == 0 {
		return Batch{}, xerrors.Errorf("frames: could not decode batches: %w", io.ErrUnexpectedEOF)
	}
	return Concat(bs...)
}

// checkSize checks the batch described by a header holds at most MaxWords
// words and, when the size of the source is known, fits in its remaining bytes.
func (dec *Decoder) checkSize(rows, cols uint64, cbits int, flags uint8) error {
	if rows > MaxWords || cols > MaxWords || rows*cols > MaxWords {
		return xerrors.Errorf("%w: %dx%d words (max=%d)", ErrSize, rows, cols, MaxWords)
	}
	if dec.size < 0 {
		return nil
	}
	frame := cols * uint64(cbits/8)
	if flags&flagCTime != 0 {
		frame += 8
	}
	if flags&flagTime != 0 {
		frame += 8
	}
	var (
		need = rows*frame + 3 // frames, trailer marker and CRC-16
		left = uint64(dec.size - dec.n)
	)
	if dec.n > dec.size || need > left {
		return xerrors.Errorf(
			"frames: batch of %dx%d words needs %d bytes, %d left: %w",
			rows, cols, need, left, io.ErrUnexpectedEOF,
		)
	}
	return nil
}

func (dec *Decoder) unexpected() error {
	if xerrors.Is(dec.err, io.EOF) {
		dec.err = io.ErrUnexpectedEOF
	}
	return dec.err
}

func (dec *Decoder) read(p []byte) {
	if dec.err != nil {
		return
	}
	var n int
	n, dec.err = io.ReadFull(dec.r, p)
	dec.n += int64(n)
	if dec.err == nil {
		_, _ = dec.crc.Write(p) // can not fail.
	}
}

func (dec *Decoder) readU8() uint8 {
	dec.read(dec.buf[:1])
	return dec.buf[0]
}

func (dec *Decoder) readU16() uint16 {
	// the checksum itself is not part of the checksummed data.
	if dec.err != nil {
		return 0
	}
	var n int
	n, dec.err = io.ReadFull(dec.r, dec.buf[:2])
	dec.n += int64(n)
	return binary.BigEndian.Uint16(dec.buf[:2])
}

func (dec *Decoder) readU32() uint32 {
	dec.read(dec.buf[:4])
	return binary.BigEndian.Uint32(dec.buf[:4])
}

func (dec *Decoder) readI64() int64 {
	dec.read(dec.buf[:8])
	return int64(binary.BigEndian.Uint64(dec.buf[:8]))
}

func (dec *Decoder) readWord(cbits int) uint64 {
	if dec.err != nil {
		return 0
	}
	n := cbits / 8
	for i := range dec.buf[:8-n] {
		dec.buf[i] = 0
	}
	dec.read(dec.buf[8-n : 8])
	return binary.BigEndian.Uint64(dec.buf[:8])
}

// File is a memory-mapped binary frame file.
type File struct {
	*Decoder
	h *mmap.Handle
}

// Open memory-maps the named binary frame file and returns a decoder
// reading from it.
func Open(fname string) (*File, error) {
	h, err := mmap.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("frames: could not open frame file: %w", err)
	}
	return &File{
		Decoder: NewDecoder(io.NewSectionReader(h, 0, int64(h.Len()))),
		h:       h,
	}, nil
}

// Close unmaps the frame file.
func (f *File) Close() error {
	return f.h.Close()
}
