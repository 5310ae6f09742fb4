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

// Package bitmap implements operations on 1 bit per pixel glyph bitmaps.
//
// Bitmaps are stored row by row, most significant bit first.  Rows start at
// multiples of the row stride.
package bitmap

// RowBytes returns the number of bytes needed to store width bits.
func RowBytes(width int) int {
	return (width + 7) / 8
}

// Stride returns the row stride for the given width, rounded up
// to a multiple of align bytes.
func Stride(width, align int) int {
	n := RowBytes(width)
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}

// Realign copies a bitmap into a new buffer with the given row alignment.
// All bits beyond the bitmap width are cleared in the copy, including the
// unused low bits of the last data byte in each row.
func Realign(src []byte, srcStride, width, height, align int) ([]byte, int) {
	dstStride := Stride(width, align)
	dst := make([]byte, dstStride*height)
	n := RowBytes(width)
	for y := range height {
		row := dst[y*dstStride : y*dstStride+n]
		copy(row, src[y*srcStride:y*srcStride+n])
		clearTail(row, width)
	}
	return dst, dstStride
}

// clearTail zeros the bits after the first width bits of the last byte.
func clearTail(row []byte, width int) {
	if r := width % 8; r != 0 && len(row) > 0 {
		row[len(row)-1] &= 0xff << (8 - r)
	}
}

// Merge ORs src into dst, byte by byte.
func Merge(dst, src []byte) {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i] |= src[i]
	}
}

// SmearHorizontally writes a scan line of width+bold bits to dst.
// Bit i of the output is set if any of the source bits i-bold, ..., i is set.
// Source bits outside the range 0, ..., width-1 count as clear.
//
// The function keeps a running count of set bits in the window, so the cost
// is independent of bold.
func SmearHorizontally(dst, src []byte, width, bold int) {
	outBytes := RowBytes(width + bold)
	clear(dst[:outBytes])

	on := 0
	for i := range width + bold {
		if i < width && bitSet(src, i) {
			on++
		}
		if on > 0 {
			dst[i>>3] |= 0x80 >> (i & 7)
		}
		if j := i - bold; j >= 0 && j < width && bitSet(src, j) {
			on--
		}
	}
}

func bitSet(row []byte, i int) bool {
	return row[i>>3]&(0x80>>(i&7)) != 0
}

// Emboldener produces the rows of an artificially emboldened bitmap.
//
// The output is Bold pixels wider and Bold pixels taller than the source.
// Output row y is the union of the horizontally smeared source rows
// y-Bold, ..., y.  Unions of groups of rows are cached in a ring of Bold+1
// lines, so that each output row takes O(log Bold) merges.
type Emboldener struct {
	src       []byte
	srcStride int
	srcW      int
	srcH      int
	bold      int

	rowBytes int
	lines    []byte // line 0 is the output, lines 1..Bold+1 the ring
	y        int
}

// NewEmboldener prepares to embolden a bitmap by bold pixels.
func NewEmboldener(src []byte, srcStride, width, height, bold int) *Emboldener {
	rowBytes := RowBytes(width + bold)
	return &Emboldener{
		src:       src,
		srcStride: srcStride,
		srcW:      width,
		srcH:      height,
		bold:      bold,
		rowBytes:  rowBytes,
		lines:     make([]byte, (bold+2)*rowBytes),
	}
}

// Width returns the width of the emboldened bitmap.
func (e *Emboldener) Width() int {
	return e.srcW + e.bold
}

// Height returns the height of the emboldened bitmap.
func (e *Emboldener) Height() int {
	return e.srcH + e.bold
}

// RowBytes returns the number of bytes in one output row.
func (e *Emboldener) RowBytes() int {
	return e.rowBytes
}

func (e *Emboldener) merged(i int) []byte {
	k := i%(e.bold+1) + 1
	return e.lines[k*e.rowBytes : (k+1)*e.rowBytes]
}

// Next returns the next output row, or nil after the last row.
// The returned slice is only valid until the next call.
func (e *Emboldener) Next() []byte {
	y := e.y
	if y >= e.Height() {
		return nil
	}
	e.y++

	y0 := max(y-e.bold, 0)
	y1 := min(y+1, e.srcH)

	if y < e.srcH {
		SmearHorizontally(e.merged(y), e.src[y*e.srcStride:], e.srcW, e.bold)
		// For every Y with y0 <= Y < y1, let k be maximal with Y mod 2^k == 0
		// and Y + 2^k <= y+1.  Then merged(Y) holds the union of the smeared
		// rows Y, ..., Y + 2^k - 1.
		for kmask := 1; y&kmask == kmask && y-kmask >= y0; kmask = kmask<<1 + 1 {
			Merge(e.merged(y-kmask), e.merged(y-kmask>>1))
		}
	}

	out := e.lines[:e.rowBytes]
	first := true
	for iy := y1 - 1; iy >= y0; iy-- {
		for kmask := 1; iy&kmask == kmask && iy-kmask >= y0; kmask <<= 1 {
			iy -= kmask
		}
		if first {
			copy(out, e.merged(iy))
			first = false
		} else {
			Merge(out, e.merged(iy))
		}
	}
	if first {
		clear(out)
	}
	return out
}

// BoldAmount returns the number of pixels by which a glyph of the given
// height is emboldened for the given embolden fraction.  Any positive
// fraction gives at least one pixel.
func BoldAmount(height int, fraction float64) int {
	if fraction <= 0 || height <= 0 {
		return 0
	}
	bold := int(2*float64(height)*fraction + 0.5)
	return max(bold, 1)
}
