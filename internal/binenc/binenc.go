// seehuhn.de/go/fapi - font rendering backends for page description languages
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package binenc packs and unpacks the fixed layout binary records
// exchanged with font backends.  The byte order is always explicit.
package binenc

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrShort is returned when a record ends before all fields were read.
var ErrShort = errors.New("binenc: record too short")

// Writer appends fields to a byte slice.
type Writer struct {
	order binary.AppendByteOrder
	buf   []byte
}

// NewWriter returns a Writer using the given byte order.
func NewWriter(order binary.AppendByteOrder) *Writer {
	return &Writer{order: order}
}

// Bytes returns the encoded record.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Uint8 appends a single byte.
func (w *Writer) Uint8(x uint8) {
	w.buf = append(w.buf, x)
}

// Uint16 appends a 16 bit unsigned integer.
func (w *Writer) Uint16(x uint16) {
	w.buf = w.order.AppendUint16(w.buf, x)
}

// Int16 appends a 16 bit signed integer.
func (w *Writer) Int16(x int16) {
	w.buf = w.order.AppendUint16(w.buf, uint16(x))
}

// Uint32 appends a 32 bit unsigned integer.
func (w *Writer) Uint32(x uint32) {
	w.buf = w.order.AppendUint32(w.buf, x)
}

// Int32 appends a 32 bit signed integer.
func (w *Writer) Int32(x int32) {
	w.buf = w.order.AppendUint32(w.buf, uint32(x))
}

// Fixed appends x as a signed 16.16 fixed point number.
// Values outside the representable range are clamped.
func (w *Writer) Fixed(x float64) {
	v := math.Round(x * 65536)
	switch {
	case math.IsNaN(v):
		v = 0
	case v > math.MaxInt32:
		v = math.MaxInt32
	case v < math.MinInt32:
		v = math.MinInt32
	}
	w.Int32(int32(v))
}

// Float32 appends an IEEE 754 single precision number.
func (w *Writer) Float32(x float32) {
	w.buf = w.order.AppendUint32(w.buf, math.Float32bits(x))
}

// Reader decodes fields from a byte slice.
// After the first error, all further reads return zero and the
// error is available from Err.
type Reader struct {
	order binary.ByteOrder
	buf   []byte
	pos   int
	err   error
}

// NewReader returns a Reader for buf using the given byte order.
func NewReader(buf []byte, order binary.ByteOrder) *Reader {
	return &Reader{order: order, buf: buf}
}

// Err returns the first error encountered.
func (r *Reader) Err() error {
	return r.err
}

// Seek moves the read position to the given offset from the start.
func (r *Reader) Seek(pos int) {
	if pos < 0 || pos > len(r.buf) {
		r.err = ErrShort
		return
	}
	r.pos = pos
}

func (r *Reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.pos+n > len(r.buf) {
		r.err = ErrShort
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

// Uint8 reads a single byte.
func (r *Reader) Uint8() uint8 {
	b := r.next(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// Uint16 reads a 16 bit unsigned integer.
func (r *Reader) Uint16() uint16 {
	b := r.next(2)
	if b == nil {
		return 0
	}
	return r.order.Uint16(b)
}

// Int16 reads a 16 bit signed integer.
func (r *Reader) Int16() int16 {
	return int16(r.Uint16())
}

// Uint32 reads a 32 bit unsigned integer.
func (r *Reader) Uint32() uint32 {
	b := r.next(4)
	if b == nil {
		return 0
	}
	return r.order.Uint32(b)
}

// Int32 reads a 32 bit signed integer.
func (r *Reader) Int32() int32 {
	return int32(r.Uint32())
}

// Fixed reads a signed 16.16 fixed point number.
func (r *Reader) Fixed() float64 {
	return float64(r.Int32()) / 65536
}

// Float32 reads an IEEE 754 single precision number.
func (r *Reader) Float32() float32 {
	return math.Float32frombits(r.Uint32())
}
