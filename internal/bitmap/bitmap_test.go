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

package bitmap

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRealign(t *testing.T) {
	// 10 pixels wide, stride 3, garbage in the padding
	src := []byte{
		0xFF, 0xFF, 0xAA,
		0x81, 0x7F, 0x55,
	}
	dst, stride := Realign(src, 3, 10, 2, 4)
	if stride != 4 {
		t.Fatalf("stride = %d, want 4", stride)
	}
	want := []byte{
		0xFF, 0xC0, 0, 0,
		0x81, 0x40, 0, 0,
	}
	if d := cmp.Diff(want, dst); d != "" {
		t.Error(d)
	}
}

func TestStride(t *testing.T) {
	cases := []struct {
		width, align, want int
	}{
		{0, 1, 0},
		{1, 1, 1},
		{8, 1, 1},
		{9, 1, 2},
		{9, 4, 4},
		{33, 4, 8},
		{64, 8, 8},
	}
	for _, c := range cases {
		if got := Stride(c.width, c.align); got != c.want {
			t.Errorf("Stride(%d, %d) = %d, want %d", c.width, c.align, got, c.want)
		}
	}
}

func TestSmearHorizontally(t *testing.T) {
	cases := []struct {
		src   []byte
		width int
		bold  int
		want  []byte
	}{
		{[]byte{0x80}, 8, 0, []byte{0x80}},
		{[]byte{0x80}, 8, 2, []byte{0xE0, 0x00}},
		{[]byte{0x01}, 8, 3, []byte{0x01, 0xE0}},
		{[]byte{0x81}, 8, 1, []byte{0xC1, 0x80}},
		{[]byte{0x00, 0x80}, 9, 1, []byte{0x00, 0xC0}},
		{[]byte{0xC0}, 2, 9, []byte{0xFF, 0xE0}},
	}
	for i, c := range cases {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			dst := make([]byte, RowBytes(c.width+c.bold))
			SmearHorizontally(dst, c.src, c.width, c.bold)
			if d := cmp.Diff(c.want, dst); d != "" {
				t.Error(d)
			}
		})
	}
}

// emboldenNaive computes the emboldened bitmap directly from the definition.
func emboldenNaive(src []byte, stride, w, h, bold int) [][]byte {
	var res [][]byte
	for y := range h + bold {
		row := make([]byte, RowBytes(w+bold))
		for x := range w + bold {
			on := false
			for sy := y - bold; sy <= y && !on; sy++ {
				for sx := x - bold; sx <= x && !on; sx++ {
					if sy >= 0 && sy < h && sx >= 0 && sx < w {
						on = bitSet(src[sy*stride:], sx)
					}
				}
			}
			if on {
				row[x>>3] |= 0x80 >> (x & 7)
			}
		}
		res = append(res, row)
	}
	return res
}

func TestEmboldener(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, size := range []struct{ w, h int }{{1, 1}, {7, 3}, {8, 8}, {13, 17}, {30, 5}} {
		for _, bold := range []int{1, 2, 3, 4, 7, 8, 11} {
			stride := RowBytes(size.w) + 1
			src := make([]byte, stride*size.h)
			for y := range size.h {
				for x := range size.w {
					if rng.Intn(5) == 0 {
						src[y*stride+x/8] |= 0x80 >> (x % 8)
					}
				}
			}

			want := emboldenNaive(src, stride, size.w, size.h, bold)

			e := NewEmboldener(src, stride, size.w, size.h, bold)
			if e.Width() != size.w+bold || e.Height() != size.h+bold {
				t.Fatalf("wrong size %dx%d", e.Width(), e.Height())
			}
			var got [][]byte
			for row := e.Next(); row != nil; row = e.Next() {
				got = append(got, append([]byte(nil), row...))
			}
			if d := cmp.Diff(want, got); d != "" {
				t.Errorf("%dx%d bold=%d: %s", size.w, size.h, bold, d)
			}
		}
	}
}

func TestEmboldenerEmpty(t *testing.T) {
	e := NewEmboldener(nil, 0, 0, 0, 2)
	n := 0
	for row := e.Next(); row != nil; row = e.Next() {
		for _, b := range row {
			if b != 0 {
				t.Fatal("non-zero row for empty bitmap")
			}
		}
		n++
	}
	if n != 2 {
		t.Errorf("got %d rows, want 2", n)
	}
}

func TestBoldAmount(t *testing.T) {
	cases := []struct {
		height   int
		fraction float64
		want     int
	}{
		{100, 0, 0},
		{100, -1, 0},
		{0, 0.1, 0},
		{10, 0.01, 1},
		{100, 0.02, 4},
		{50, 0.025, 3},
	}
	for _, c := range cases {
		if got := BoldAmount(c.height, c.fraction); got != c.want {
			t.Errorf("BoldAmount(%d, %g) = %d, want %d", c.height, c.fraction, got, c.want)
		}
	}
}
