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
	"errors"
	"image"
	"image/color"

	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/fapi/internal/bitmap"
)

// CacheStatus tells whether a glyph can be rendered immediately after
// its metrics have been installed in the glyph cache.
type CacheStatus int

// These are the possible cache states.
const (
	RenderNow CacheStatus = iota
	Deferred
)

// PathBuilder receives path segments in device space.
type PathBuilder interface {
	MoveTo(p fixed.Point26_6) error
	LineTo(p fixed.Point26_6) error
	CubeTo(p1, p2, p3 fixed.Point26_6) error
	ClosePath() error
}

// ImageWriter receives the rows of a 1 bit per pixel image.
type ImageWriter interface {
	WriteRow(row []byte) error
	Close() error
}

// Device is the output side of the glyph renderer.
//
// All rectangles are in device pixels, relative to the glyph origin.
type Device interface {
	// SetCache installs the advance and bounding box of a glyph.
	SetCache(advance vec.Vec2, box image.Rectangle) (CacheStatus, error)

	// RowAlignment returns the byte alignment of bitmap rows expected
	// by CopyMono.
	RowAlignment() int

	// CopyMono paints the set bits of a bitmap in the current colour.
	CopyMono(pix []byte, stride int, r image.Rectangle) error

	// BeginImage starts an image covering r.  Rows are written top to
	// bottom.
	BeginImage(r image.Rectangle) (ImageWriter, error)

	// FillPath fills the path constructed by build.
	FillPath(build func(PathBuilder) error) error
}

// CacheDevice is a [Device] which renders glyphs into an in-memory
// glyph cache entry.
type CacheDevice struct {
	// Align is the row alignment in bytes.  Zero means 1.
	Align int

	// Defer makes SetCache request deferred rendering.
	Defer bool

	Advance vec.Vec2
	Box     image.Rectangle

	// Mask holds the glyph image, with bounds Box.
	Mask *image.Alpha
}

var _ Device = (*CacheDevice)(nil)

// SetCache implements [Device].
func (d *CacheDevice) SetCache(advance vec.Vec2, box image.Rectangle) (CacheStatus, error) {
	d.Advance = advance
	d.Box = box
	d.Mask = image.NewAlpha(box)
	if d.Defer {
		return Deferred, nil
	}
	return RenderNow, nil
}

// RowAlignment implements [Device].
func (d *CacheDevice) RowAlignment() int {
	return max(d.Align, 1)
}

var errNoCache = errors.New("fapi: glyph cache entry not set up")

// CopyMono implements [Device].
func (d *CacheDevice) CopyMono(pix []byte, stride int, r image.Rectangle) error {
	if d.Mask == nil {
		return errNoCache
	}
	for y := range r.Dy() {
		d.setRow(pix[y*stride:], r.Min.X, r.Min.Y+y, r.Dx())
	}
	return nil
}

func (d *CacheDevice) setRow(row []byte, x0, y, width int) {
	for x := range width {
		if row[x>>3]&(0x80>>(x&7)) != 0 {
			// pixels outside the mask bounds are ignored
			d.Mask.SetAlpha(x0+x, y, color.Alpha{A: 0xff})
		}
	}
}

// BeginImage implements [Device].
func (d *CacheDevice) BeginImage(r image.Rectangle) (ImageWriter, error) {
	if d.Mask == nil {
		return nil, errNoCache
	}
	return &cacheImage{d: d, r: r, y: r.Min.Y}, nil
}

type cacheImage struct {
	d *CacheDevice
	r image.Rectangle
	y int
}

func (w *cacheImage) WriteRow(row []byte) error {
	if w.y >= w.r.Max.Y {
		return errors.New("fapi: too many image rows")
	}
	if len(row) < bitmap.RowBytes(w.r.Dx()) {
		return errors.New("fapi: image row too short")
	}
	w.d.setRow(row, w.r.Min.X, w.y, w.r.Dx())
	w.y++
	return nil
}

func (w *cacheImage) Close() error {
	return nil
}

// FillPath implements [Device].  The path is rasterised with
// anti-aliasing and the coverage is stored in the mask.
func (d *CacheDevice) FillPath(build func(PathBuilder) error) error {
	if d.Mask == nil {
		return errNoCache
	}
	b := d.Mask.Rect
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	err := build(&rasterPath{z: z, origin: b.Min})
	if err != nil {
		return err
	}
	if !b.Empty() {
		z.Draw(d.Mask, b, image.Opaque, image.Point{})
	}
	return nil
}

// rasterPath feeds device space segments into a rasterizer whose
// coordinates start at origin.
type rasterPath struct {
	z      *vector.Rasterizer
	origin image.Point
}

func (r *rasterPath) xy(p fixed.Point26_6) (float32, float32) {
	return float32(p.X)/64 - float32(r.origin.X), float32(p.Y)/64 - float32(r.origin.Y)
}

func (r *rasterPath) MoveTo(p fixed.Point26_6) error {
	r.z.MoveTo(r.xy(p))
	return nil
}

func (r *rasterPath) LineTo(p fixed.Point26_6) error {
	r.z.LineTo(r.xy(p))
	return nil
}

func (r *rasterPath) CubeTo(p1, p2, p3 fixed.Point26_6) error {
	x1, y1 := r.xy(p1)
	x2, y2 := r.xy(p2)
	x3, y3 := r.xy(p3)
	r.z.CubeTo(x1, y1, x2, y2, x3, y3)
	return nil
}

func (r *rasterPath) ClosePath() error {
	r.z.ClosePath()
	return nil
}

// PathRecorder is a [PathBuilder] which stores the path.
type PathRecorder struct {
	Path path.Data
}

var _ PathBuilder = (*PathRecorder)(nil)

func toVec(p fixed.Point26_6) vec.Vec2 {
	return vec.Vec2{X: float64(p.X) / 64, Y: float64(p.Y) / 64}
}

// MoveTo implements [PathBuilder].
func (r *PathRecorder) MoveTo(p fixed.Point26_6) error {
	r.Path.Cmds = append(r.Path.Cmds, path.CmdMoveTo)
	r.Path.Coords = append(r.Path.Coords, toVec(p))
	return nil
}

// LineTo implements [PathBuilder].
func (r *PathRecorder) LineTo(p fixed.Point26_6) error {
	r.Path.Cmds = append(r.Path.Cmds, path.CmdLineTo)
	r.Path.Coords = append(r.Path.Coords, toVec(p))
	return nil
}

// CubeTo implements [PathBuilder].
func (r *PathRecorder) CubeTo(p1, p2, p3 fixed.Point26_6) error {
	r.Path.Cmds = append(r.Path.Cmds, path.CmdCubeTo)
	r.Path.Coords = append(r.Path.Coords, toVec(p1), toVec(p2), toVec(p3))
	return nil
}

// ClosePath implements [PathBuilder].
func (r *PathRecorder) ClosePath() error {
	r.Path.Cmds = append(r.Path.Cmds, path.CmdClose)
	return nil
}
