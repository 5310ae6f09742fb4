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

package outline

import (
	"errors"
	"image"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/fapi"
)

// square returns a glyph covering [1,4]×[2,5] design units.
func square() *Glyph {
	g := &Glyph{Advance: vec.Vec2{X: 6}}
	g.Path.Cmds = append(g.Path.Cmds,
		path.CmdMoveTo, path.CmdLineTo, path.CmdLineTo, path.CmdLineTo, path.CmdClose)
	g.Path.Coords = []vec.Vec2{{X: 1, Y: 2}, {X: 4, Y: 2}, {X: 4, Y: 5}, {X: 1, Y: 5}}
	g.BBox = BBox(&g.Path)
	g.LSB = g.BBox.LLx
	return g
}

// flip maps design units to y-down pixels.
var flip = matrix.Scale(1, -1)

func TestBBox(t *testing.T) {
	want := rect.Rect{LLx: 1, LLy: 2, URx: 4, URy: 5}
	if d := cmp.Diff(want, square().BBox); d != "" {
		t.Errorf("bbox (-want +got):\n%s", d)
	}
	if !BBox(&path.Data{}).IsZero() {
		t.Error("empty path has a bounding box")
	}
}

func TestPixelBox(t *testing.T) {
	cases := []struct {
		m    matrix.Matrix
		r    rect.Rect
		want image.Rectangle
	}{
		{flip, rect.Rect{LLx: 1, LLy: 2, URx: 4, URy: 5}, image.Rect(1, -5, 4, -2)},
		{flip, rect.Rect{LLx: 0.5, LLy: -0.5, URx: 1.5, URy: 0.5}, image.Rect(0, -1, 2, 1)},
		{matrix.Matrix{0, 1, 1, 0, 0, 0}, rect.Rect{LLx: 0, LLy: 0, URx: 2, URy: 1}, image.Rect(0, 0, 1, 2)},
		{flip, rect.Rect{}, image.Rectangle{}},
	}
	for i, c := range cases {
		if got := PixelBox(c.m, c.r); got != c.want {
			t.Errorf("%d: got %v, want %v", i, got, c.want)
		}
	}
}

func TestRasterize(t *testing.T) {
	r, err := Rasterize(square(), flip, [2]int{1, 1}, 128, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := &fapi.Raster{
		Width: 3, Height: 3, Stride: 4,
		Left: 1, Top: -5,
		Pix: []byte{
			0xe0, 0, 0, 0,
			0xe0, 0, 0, 0,
			0xe0, 0, 0, 0,
		},
	}
	if d := cmp.Diff(want, r); d != "" {
		t.Errorf("raster (-want +got):\n%s", d)
	}

	// Oversampling gives the same result for pixel aligned edges.
	r2, err := Rasterize(square(), flip, [2]int{4, 4}, 128, 0)
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(want, r2); d != "" {
		t.Errorf("oversampled raster (-want +got):\n%s", d)
	}
}

func TestRasterizeThreshold(t *testing.T) {
	// The right half of the square covers half a pixel.
	g := square()
	g.Path.Coords[1].X = 3.5
	g.Path.Coords[2].X = 3.5
	g.BBox = BBox(&g.Path)

	for _, c := range []struct {
		threshold uint8
		row       byte
	}{
		{100, 0xe0},
		{200, 0xc0},
	} {
		r, err := Rasterize(g, flip, [2]int{4, 4}, c.threshold, 0)
		if err != nil {
			t.Fatal(err)
		}
		if r.Width != 3 || r.Pix[0] != c.row {
			t.Errorf("threshold %d: width %d, row %08b", c.threshold, r.Width, r.Pix[0])
		}
	}
}

func TestRasterizeLimits(t *testing.T) {
	cases := []struct {
		sub       int
		maxBitmap int
		want      error
	}{
		{1, 12, nil},
		{1, 11, fapi.ErrVM},
		{4, 144, nil},
		{4, 143, fapi.ErrLimitCheck},
		{4, 11, fapi.ErrVM},
	}
	for _, c := range cases {
		_, err := Rasterize(square(), flip, [2]int{c.sub, c.sub}, 128, c.maxBitmap)
		if !errors.Is(err, c.want) || (err == nil) != (c.want == nil) {
			t.Errorf("sub=%d max=%d: got %v, want %v", c.sub, c.maxBitmap, err, c.want)
		}
	}
}

func TestRasterizeEmpty(t *testing.T) {
	r, err := Rasterize(&Glyph{Advance: vec.Vec2{X: 3}}, flip, [2]int{1, 1}, 128, 1)
	if err != nil {
		t.Fatal(err)
	}
	if r.Width != 0 || r.Height != 0 || r.Pix != nil {
		t.Errorf("unexpected raster %+v", r)
	}
}

func TestEmit(t *testing.T) {
	rec := &fapi.PathRecorder{}
	sink := fapi.NewPathSink(rec, matrix.Identity)
	if err := Emit(sink, &square().Path, flip); err != nil {
		t.Fatal(err)
	}
	if sink.Shift != Shift {
		t.Errorf("shift %d", sink.Shift)
	}

	var want path.Data
	want.Cmds = append(want.Cmds,
		path.CmdMoveTo, path.CmdLineTo, path.CmdLineTo, path.CmdLineTo, path.CmdClose)
	want.Coords = []vec.Vec2{{X: 1, Y: -2}, {X: 4, Y: -2}, {X: 4, Y: -5}, {X: 1, Y: -5}}
	if d := cmp.Diff(want, rec.Path); d != "" {
		t.Errorf("path (-want +got):\n%s", d)
	}
}

func TestEmitRejected(t *testing.T) {
	rec := &fapi.PathRecorder{}
	sink := fapi.NewPathSink(rec, matrix.Identity)
	g := square()
	g.Path.Coords[0] = vec.Vec2{X: math.Inf(1)}
	if err := Emit(sink, &g.Path, flip); err != nil {
		t.Fatal(err)
	}
	if sink.Rejected() == 0 {
		t.Error("no segments rejected")
	}
}

func TestToFixed(t *testing.T) {
	cases := []struct {
		in   float64
		want int64
	}{
		{1, 1 << 16},
		{-0.5, -1 << 15},
		{math.Inf(1), maxCoord},
		{math.Inf(-1), -maxCoord},
		{math.NaN(), maxCoord},
	}
	for _, c := range cases {
		if got := toFixed(c.in); got != c.want {
			t.Errorf("%g: got %d, want %d", c.in, got, c.want)
		}
	}
}
