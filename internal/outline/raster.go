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

// Package outline holds the glyph outlines loaded by the font backends,
// and turns them into rasters and path segments.
package outline

import (
	"image"
	"math"

	"golang.org/x/image/vector"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/fapi"
	"seehuhn.de/go/fapi/internal/bitmap"
)

// RowAlign is the row alignment of the rasters produced by this package.
const RowAlign = 4

// Glyph is the outline and the metrics of a glyph, in design units.
type Glyph struct {
	Path    path.Data
	Advance vec.Vec2
	LSB     float64
	BBox    rect.Rect
}

// Metrics returns the glyph metrics for a font with the given number
// of design units per em.
func (g *Glyph) Metrics(emX, emY float64) *fapi.GlyphMetrics {
	return &fapi.GlyphMetrics{
		Escapement:  g.Advance,
		SideBearing: vec.Vec2{X: g.LSB},
		BBox:        g.BBox,
		EmX:         emX,
		EmY:         emY,
	}
}

// BBox returns the bounding box of the control points of an outline.
func BBox(d *path.Data) rect.Rect {
	if len(d.Coords) == 0 {
		return rect.Rect{}
	}
	p := d.Coords[0]
	bbox := rect.Rect{LLx: p.X, LLy: p.Y, URx: p.X, URy: p.Y}
	for _, p := range d.Coords[1:] {
		bbox.LLx = min(bbox.LLx, p.X)
		bbox.LLy = min(bbox.LLy, p.Y)
		bbox.URx = max(bbox.URx, p.X)
		bbox.URy = max(bbox.URy, p.Y)
	}
	return bbox
}

func apply(m matrix.Matrix, v vec.Vec2) vec.Vec2 {
	return vec.Vec2{
		X: m[0]*v.X + m[2]*v.Y + m[4],
		Y: m[1]*v.X + m[3]*v.Y + m[5],
	}
}

// PixelBox returns the smallest pixel rectangle which covers the image
// of r under m.
func PixelBox(m matrix.Matrix, r rect.Rect) image.Rectangle {
	if r.IsZero() {
		return image.Rectangle{}
	}
	corners := [4]vec.Vec2{
		apply(m, vec.Vec2{X: r.LLx, Y: r.LLy}),
		apply(m, vec.Vec2{X: r.URx, Y: r.LLy}),
		apply(m, vec.Vec2{X: r.LLx, Y: r.URy}),
		apply(m, vec.Vec2{X: r.URx, Y: r.URy}),
	}
	x0, y0 := corners[0].X, corners[0].Y
	x1, y1 := x0, y0
	for _, c := range corners[1:] {
		x0, y0 = min(x0, c.X), min(y0, c.Y)
		x1, y1 = max(x1, c.X), max(y1, c.Y)
	}
	return image.Rect(
		int(math.Floor(x0)), int(math.Floor(y0)),
		int(math.Ceil(x1)), int(math.Ceil(y1)))
}

// fill draws the outline, transformed by m, into z.
func fill(z *vector.Rasterizer, d *path.Data, m matrix.Matrix) {
	pt := func(v vec.Vec2) (float32, float32) {
		q := apply(m, v)
		return float32(q.X), float32(q.Y)
	}
	coords := d.Coords
	open := false
	for _, cmd := range d.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			if open {
				z.ClosePath()
			}
			z.MoveTo(pt(coords[0]))
			coords = coords[1:]
			open = true
		case path.CmdLineTo:
			z.LineTo(pt(coords[0]))
			coords = coords[1:]
		case path.CmdQuadTo:
			x1, y1 := pt(coords[0])
			x2, y2 := pt(coords[1])
			z.QuadTo(x1, y1, x2, y2)
			coords = coords[2:]
		case path.CmdCubeTo:
			x1, y1 := pt(coords[0])
			x2, y2 := pt(coords[1])
			x3, y3 := pt(coords[2])
			z.CubeTo(x1, y1, x2, y2, x3, y3)
			coords = coords[3:]
		case path.CmdClose:
			if open {
				z.ClosePath()
				open = false
			}
		}
	}
	if open {
		z.ClosePath()
	}
}

// Rasterize renders a glyph outline into a 1 bit per pixel raster.
// m maps design units to device pixels.  Each pixel is sampled at
// sub[0]×sub[1] subpixels, and is set if the mean coverage reaches
// threshold.
//
// If maxBitmap is positive, [fapi.ErrVM] is returned if the raster is
// larger than maxBitmap bytes, and [fapi.ErrLimitCheck] if only the
// subpixel buffer is too large.
func Rasterize(g *Glyph, m matrix.Matrix, sub [2]int, threshold uint8, maxBitmap int) (*fapi.Raster, error) {
	box := PixelBox(m, g.BBox)
	res := &fapi.Raster{Left: box.Min.X, Top: box.Min.Y}
	if box.Empty() || len(g.Path.Cmds) == 0 {
		return res, nil
	}

	w, h := box.Dx(), box.Dy()
	stride := bitmap.Stride(w, RowAlign)
	sx, sy := max(sub[0], 1), max(sub[1], 1)
	if maxBitmap > 0 {
		if stride*h > maxBitmap {
			return nil, fapi.ErrVM
		}
		if (sx > 1 || sy > 1) && w*sx*h*sy > maxBitmap {
			return nil, fapi.ErrLimitCheck
		}
	}

	// subpixel coordinates relative to the top left corner of box
	toSub := m.Mul(matrix.Translate(float64(-box.Min.X), float64(-box.Min.Y))).
		Mul(matrix.Scale(float64(sx), float64(sy)))
	cov := image.NewAlpha(image.Rect(0, 0, w*sx, h*sy))
	z := vector.NewRasterizer(w*sx, h*sy)
	fill(z, &g.Path, toSub)
	z.Draw(cov, cov.Bounds(), image.Opaque, image.Point{})

	pix := make([]byte, stride*h)
	limit := int(threshold) * sx * sy
	for y := range h {
		row := pix[y*stride:]
		for x := range w {
			sum := 0
			for j := range sy {
				off := (y*sy+j)*cov.Stride + x*sx
				for _, a := range cov.Pix[off : off+sx] {
					sum += int(a)
				}
			}
			if sum >= limit {
				row[x/8] |= 0x80 >> (x % 8)
			}
		}
	}

	res.Width, res.Height, res.Stride = w, h, stride
	res.Pix = pix
	return res, nil
}
