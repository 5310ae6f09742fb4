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

	"golang.org/x/image/math/fixed"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/fapi/internal/bitmap"
)

// PathSink receives a glyph outline from a backend.
//
// Coordinates are device space positions relative to the glyph origin,
// with Shift fractional bits.  Segments which cannot be represented in
// device space are dropped and reported as [ErrUndefinedResult].
type PathSink struct {
	// Shift is the number of fractional bits in the coordinates.
	// The backend sets this before sending segments.
	Shift uint

	out   PathBuilder
	xform matrix.Matrix

	cur, start vec.Vec2
	open       bool
	skip       bool

	rejected int
}

// NewPathSink returns a PathSink which transforms coordinates by m and
// appends the result to out.
func NewPathSink(out PathBuilder, m matrix.Matrix) *PathSink {
	return &PathSink{out: out, xform: m}
}

// Rejected returns the number of segments which were dropped.
func (p *PathSink) Rejected() int {
	return p.rejected
}

func (p *PathSink) point(x, y int64) vec.Vec2 {
	scale := 1 / float64(uint64(1)<<p.Shift)
	return vec.Vec2{X: float64(x) * scale, Y: float64(y) * scale}
}

func (p *PathSink) device(v vec.Vec2) (fixed.Point26_6, bool) {
	return toPoint26_6(apply(p.xform, v.X, v.Y))
}

func (p *PathSink) reject() error {
	p.rejected++
	return ErrUndefinedResult
}

// MoveTo starts a new subpath.  Any open subpath is closed first.
func (p *PathSink) MoveTo(x, y int64) error {
	if err := p.closeOpen(); err != nil {
		return err
	}
	v := p.point(x, y)
	p.cur, p.start = v, v
	q, ok := p.device(v)
	if !ok {
		// Drop the subpath up to the next MoveTo.
		p.skip = true
		return p.reject()
	}
	p.skip = false
	if err := p.out.MoveTo(q); err != nil {
		return err
	}
	p.open = true
	return nil
}

// LineTo appends a straight line segment.
func (p *PathSink) LineTo(x, y int64) error {
	v := p.point(x, y)
	p.cur = v
	if p.skip {
		return p.reject()
	}
	q, ok := p.device(v)
	if !ok {
		return p.reject()
	}
	return p.out.LineTo(q)
}

// QuadTo appends a quadratic Bézier segment.  The segment is converted
// to a cubic curve.
func (p *PathSink) QuadTo(x1, y1, x2, y2 int64) error {
	c := p.point(x1, y1)
	end := p.point(x2, y2)
	c1 := p.cur.Add(c.Sub(p.cur).Mul(2.0 / 3))
	c2 := end.Add(c.Sub(end).Mul(2.0 / 3))
	return p.cubeTo(c1, c2, end)
}

// CurveTo appends a cubic Bézier segment.
func (p *PathSink) CurveTo(x1, y1, x2, y2, x3, y3 int64) error {
	return p.cubeTo(p.point(x1, y1), p.point(x2, y2), p.point(x3, y3))
}

func (p *PathSink) cubeTo(c1, c2, end vec.Vec2) error {
	p.cur = end
	if p.skip {
		return p.reject()
	}
	q1, ok1 := p.device(c1)
	q2, ok2 := p.device(c2)
	q3, ok3 := p.device(end)
	if !ok1 || !ok2 || !ok3 {
		return p.reject()
	}
	return p.out.CubeTo(q1, q2, q3)
}

// ClosePath closes the current subpath.
func (p *PathSink) ClosePath() error {
	p.cur = p.start
	if !p.open {
		return nil
	}
	p.open = false
	return p.out.ClosePath()
}

func (p *PathSink) closeOpen() error {
	if p.open {
		return p.ClosePath()
	}
	return nil
}

// outlineTransform returns the map from backend outline coordinates
// to device space, including the side bearing shift.
func (p *pipeline) outlineTransform() matrix.Matrix {
	shift := p.result.Shift
	return p.post.Mul(matrix.Translate(float64(shift.X), float64(shift.Y)))
}

// deliverPath streams the glyph outline into out.  Open subpaths are
// closed.  Segments outside the device range are dropped and counted.
func (p *pipeline) deliverPath(out PathBuilder) error {
	sink := NewPathSink(out, p.outlineTransform())
	err := p.s.call("Outline", p.f, func() error {
		return p.s.backend.Outline(p.f, sink)
	})
	if errors.Is(err, ErrUndefinedResult) {
		err = nil
	}
	if cerr := sink.closeOpen(); err == nil {
		err = cerr
	}
	p.result.Rejected = sink.rejected
	if sink.rejected > 0 {
		Logger().Debug("outline segments dropped", p.s.logAttrs(), "glyph", p.id, "count", sink.rejected)
	}
	return err
}

// deliver sends the glyph image to the device.
func (p *pipeline) deliver(dev Device) error {
	if p.s.outline {
		return dev.FillPath(p.deliverPath)
	}
	return p.deliverRaster(dev)
}

// deliverRaster copies the backend raster to the device.
func (p *pipeline) deliverRaster(dev Device) error {
	var r *Raster
	err := p.s.call("Raster", p.f, func() error {
		var err error
		r, err = p.s.backend.Raster(p.f)
		return err
	})
	if err != nil {
		return err
	}
	if r == nil || r.Width <= 0 || r.Height <= 0 {
		return nil
	}

	pix, stride := r.Pix, r.Stride
	if align := dev.RowAlignment(); stride != bitmap.Stride(r.Width, align) {
		pix, stride = bitmap.Realign(pix, stride, r.Width, r.Height, align)
	}

	box := image.Rect(r.Left, r.Top, r.Left+r.Width, r.Top+r.Height).Add(p.result.Shift)
	if p.st.PureColor && p.bold == 0 {
		return dev.CopyMono(pix, stride, box)
	}
	return imageRaster(dev, pix, stride, r.Width, r.Height, box, p.bold)
}

// imageRaster sends a raster to the device row by row, emboldening it by
// bold pixels.  Emboldened glyphs grow to the right and upwards.
func imageRaster(dev Device, pix []byte, stride, width, height int, box image.Rectangle, bold int) error {
	if bold > 0 {
		box.Min.Y -= bold
		box.Max.X += bold
	}
	w, err := dev.BeginImage(box)
	if err != nil {
		return err
	}

	if bold == 0 {
		n := bitmap.RowBytes(width)
		for y := range height {
			if err = w.WriteRow(pix[y*stride : y*stride+n]); err != nil {
				break
			}
		}
	} else {
		e := bitmap.NewEmboldener(pix, stride, width, height, bold)
		for row := e.Next(); row != nil; row = e.Next() {
			if err = w.WriteRow(row); err != nil {
				break
			}
		}
	}

	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return err
}
