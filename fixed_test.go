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

package fapi

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
)

func TestToFixed16(t *testing.T) {
	cases := []struct {
		in   float64
		want Fixed16
		ok   bool
	}{
		{0, 0, true},
		{1, 1 << 16, true},
		{-0.5, -1 << 15, true},
		{32767, 32767 << 16, true},
		{32768, 0, false},
		{-32768, math.MinInt32, true},
		{1e6, 0, false},
		{math.NaN(), 0, false},
		{math.Inf(-1), 0, false},
	}
	for _, c := range cases {
		got, ok := ToFixed16(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("%g: got %d %t, want %d %t", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestFixedMatrix(t *testing.T) {
	m := matrix.Matrix{12, 0.5, -0.25, 12, 100, 200}
	fm, ok := ToFixedMatrix(m)
	if !ok {
		t.Fatal("conversion failed")
	}
	want := matrix.Matrix{12, 0.5, -0.25, 12, 0, 0}
	if d := cmp.Diff(want, fm.Matrix()); d != "" {
		t.Errorf("matrix (-want +got):\n%s", d)
	}

	if _, ok := ToFixedMatrix(matrix.Scale(1e5, 1)); ok {
		t.Error("overflow not detected")
	}

	sc := &FontScale{Matrix: fm, Resolution: [2]int{144, 72}}
	want = matrix.Matrix{24, 0.5, -0.5, 12, 0, 0}
	if d := cmp.Diff(want, sc.DeviceMatrix()); d != "" {
		t.Errorf("device matrix (-want +got):\n%s", d)
	}
}

func TestTransformRect(t *testing.T) {
	r := rect.Rect{LLx: 0, LLy: 0, URx: 2, URy: 1}
	m := matrix.Matrix{0, 1, -1, 0, 10, 0}
	want := rect.Rect{LLx: 9, LLy: 0, URx: 10, URy: 2}
	if d := cmp.Diff(want, transformRect(m, r)); d != "" {
		t.Errorf("rect (-want +got):\n%s", d)
	}
}

func TestToPoint26_6(t *testing.T) {
	if _, ok := toInt26_6(1 << 26); ok {
		t.Error("overflow not detected")
	}
	x, ok := toInt26_6(-2.5)
	if !ok || x != -160 {
		t.Errorf("got %d %t", x, ok)
	}
}
