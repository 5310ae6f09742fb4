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

// Package ximage implements a font rendering backend for TrueType and
// OpenType fonts, using the font parser from golang.org/x/image/font/sfnt.
//
// The backend understands the following configuration settings:
//
//	hinting       round advance widths to whole pixels
//	threshold=N   coverage (1-255) at which a pixel is set, default 128
//
// Advance widths are also rounded if the server requests pixel aligned
// rendering and the glyph is neither rotated nor skewed.
package ximage

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/fapi"
	"seehuhn.de/go/fapi/internal/outline"
)

// Backend is a [fapi.Backend] based on golang.org/x/image/font/sfnt.
type Backend struct {
	opened    bool
	hinting   bool
	threshold uint8

	buf sfnt.Buffer
}

var _ fapi.Backend = (*Backend)(nil)

// New allocates a new backend.
func New() *Backend {
	return &Backend{threshold: 128}
}

type face struct {
	font  *sfnt.Font
	upem  float64
	scale fapi.FontScale

	cur    *outline.Glyph
	raster *fapi.Raster
}

// Name implements [fapi.Backend].
func (b *Backend) Name() string {
	return "ximage"
}

// EnsureOpen implements [fapi.Backend].
func (b *Backend) EnsureOpen(config []byte) error {
	if b.opened {
		return nil
	}
	cfg, err := fapi.ParseConfig(config)
	if err != nil {
		return err
	}
	if err := cfg.CheckKeys("hinting", "threshold"); err != nil {
		return err
	}
	hinting, err := cfg.Bool("hinting", false)
	if err != nil {
		return err
	}
	threshold, err := cfg.Int("threshold", 128)
	if err != nil {
		return err
	}
	if threshold < 1 || threshold > 255 {
		return fmt.Errorf("%w: threshold %d out of range", fapi.ErrConfig, threshold)
	}
	b.hinting = hinting
	b.threshold = uint8(threshold)
	b.opened = true
	return nil
}

// GetScaledFont implements [fapi.Backend].
func (b *Backend) GetScaledFont(f *fapi.FontData, scale *fapi.FontScale, xlat []byte, phase fapi.Phase) error {
	if phase == fapi.PhaseToplevelComplete {
		return nil
	}

	fc, ok := f.Private().(*face)
	if !ok {
		switch f.Format {
		case fapi.FormatTrueType, fapi.FormatCFF, fapi.FormatUnknown:
			// pass
		default:
			return fmt.Errorf("%w: %s fonts are not supported", fapi.ErrInvalidFont, f.Format)
		}
		data, err := f.FontFile()
		if errors.Is(err, fapi.ErrUnsupported) {
			return fmt.Errorf("%w: no font file", fapi.ErrInvalidFont)
		} else if err != nil {
			return err
		}
		xf, err := sfnt.Parse(data)
		if err != nil {
			return fmt.Errorf("%w: %w", fapi.ErrInvalidFont, err)
		}
		upem := xf.UnitsPerEm()
		if upem <= 0 {
			return fmt.Errorf("%w: invalid units per em", fapi.ErrInvalidFont)
		}
		fc = &face{font: xf, upem: float64(upem)}
		f.SetPrivate(fc)
	}
	fc.scale = *scale
	return nil
}

func (b *Backend) face(f *fapi.FontData) (*face, error) {
	fc, ok := f.Private().(*face)
	if !ok {
		return nil, fmt.Errorf("%w: font %d not prepared", fapi.ErrInvalidFont, f.ID())
	}
	return fc, nil
}

// designPPEM is the size at which glyphs are loaded.  At this size, the
// 26.6 fixed point coordinates returned by the parser are design units.
func (fc *face) designPPEM() fixed.Int26_6 {
	return fixed.Int26_6(fc.upem)
}

// FontBBox implements [fapi.Backend].
func (b *Backend) FontBBox(f *fapi.FontData) (rect.Rect, float64, error) {
	fc, err := b.face(f)
	if err != nil {
		return rect.Rect{}, 0, err
	}
	r, err := fc.font.Bounds(&b.buf, fc.designPPEM(), font.HintingNone)
	if err != nil {
		return rect.Rect{}, 0, fmt.Errorf("%w: %w", fapi.ErrInvalidFont, err)
	}
	return toRect(r), fc.upem, nil
}

// FontMatrix implements [fapi.Backend].
func (b *Backend) FontMatrix(f *fapi.FontData) (matrix.Matrix, error) {
	fc, err := b.face(f)
	if err != nil {
		return matrix.Matrix{}, err
	}
	return matrix.Scale(1/fc.upem, 1/fc.upem), nil
}

// CanReplaceMetrics implements [fapi.Backend].
func (b *Backend) CanReplaceMetrics(f *fapi.FontData, req *fapi.GlyphRequest) bool {
	return false
}

// toRect converts a y-down rectangle to a y-up rectangle.
func toRect(r fixed.Rectangle26_6) rect.Rect {
	return rect.Rect{
		LLx: float64(r.Min.X),
		LLy: -float64(r.Max.Y),
		URx: float64(r.Max.X),
		URy: -float64(r.Min.Y),
	}
}

func toVec(p fixed.Point26_6) vec.Vec2 {
	return vec.Vec2{X: float64(p.X), Y: -float64(p.Y)}
}

// glyphIndex maps a request to a glyph index.
func (b *Backend) glyphIndex(fc *face, req *fapi.GlyphRequest) (sfnt.GlyphIndex, error) {
	if req.IsGlyphIndex {
		if int64(req.ID) >= int64(fc.font.NumGlyphs()) {
			return 0, fapi.ErrRange
		}
		return sfnt.GlyphIndex(req.ID), nil
	}
	gid, err := fc.font.GlyphIndex(&b.buf, rune(req.ID))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", fapi.ErrInvalidFont, err)
	}
	return gid, nil
}

// load reads a glyph into the face and returns its metrics.
func (b *Backend) load(fc *face, req *fapi.GlyphRequest) (*fapi.GlyphMetrics, error) {
	fc.cur, fc.raster = nil, nil
	gid, err := b.glyphIndex(fc, req)
	if err != nil {
		return nil, err
	}

	ppem := fc.designPPEM()
	segments, err := fc.font.LoadGlyph(&b.buf, gid, ppem, nil)
	if errors.Is(err, sfnt.ErrColoredGlyph) {
		segments = nil
	} else if err != nil {
		return nil, fmt.Errorf("%w: %w", fapi.ErrInvalidFont, err)
	}
	g := &outline.Glyph{}
	d := &g.Path
	for i, seg := range segments {
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			if i > 0 {
				d.Cmds = append(d.Cmds, path.CmdClose)
			}
			d.Cmds = append(d.Cmds, path.CmdMoveTo)
			d.Coords = append(d.Coords, toVec(seg.Args[0]))
		case sfnt.SegmentOpLineTo:
			d.Cmds = append(d.Cmds, path.CmdLineTo)
			d.Coords = append(d.Coords, toVec(seg.Args[0]))
		case sfnt.SegmentOpQuadTo:
			d.Cmds = append(d.Cmds, path.CmdQuadTo)
			d.Coords = append(d.Coords, toVec(seg.Args[0]), toVec(seg.Args[1]))
		case sfnt.SegmentOpCubeTo:
			d.Cmds = append(d.Cmds, path.CmdCubeTo)
			d.Coords = append(d.Coords, toVec(seg.Args[0]), toVec(seg.Args[1]), toVec(seg.Args[2]))
		}
	}
	if len(segments) > 0 {
		d.Cmds = append(d.Cmds, path.CmdClose)
		g.BBox = toRect(segments.Bounds())
		g.LSB = g.BBox.LLx
	}

	adv, err := b.advance(fc, gid)
	if err != nil {
		return nil, err
	}
	g.Advance = vec.Vec2{X: adv}
	fc.cur = g
	return g.Metrics(fc.upem, fc.upem), nil
}

// advance returns the advance width of a glyph in design units.
// If hinting applies, the width is rounded to whole device pixels.
func (b *Backend) advance(fc *face, gid sfnt.GlyphIndex) (float64, error) {
	ppem := fc.designPPEM()
	m := fc.scale.DeviceMatrix()
	px := math.Abs(m[0])
	hint := (b.hinting || fc.scale.AlignToPixels) &&
		m[1] == 0 && m[2] == 0 && px == math.Abs(m[3]) && px >= 1
	if hint {
		ppem = fixed.Int26_6(math.Round(px * 64))
	}

	h := font.HintingNone
	if hint {
		h = font.HintingFull
	}
	adv, err := fc.font.GlyphAdvance(&b.buf, gid, ppem, h)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", fapi.ErrInvalidFont, err)
	}
	if !hint {
		return float64(adv), nil
	}
	return float64(adv) / float64(ppem) * fc.upem, nil
}

// designToDevice maps design units to device pixels at the current scale.
func (fc *face) designToDevice() matrix.Matrix {
	return matrix.Scale(1/fc.upem, 1/fc.upem).Mul(fc.scale.DeviceMatrix())
}

// OutlineMetrics implements [fapi.Backend].
func (b *Backend) OutlineMetrics(f *fapi.FontData, req *fapi.GlyphRequest) (*fapi.GlyphMetrics, error) {
	fc, err := b.face(f)
	if err != nil {
		return nil, err
	}
	return b.load(fc, req)
}

// RasterMetrics implements [fapi.Backend].
func (b *Backend) RasterMetrics(f *fapi.FontData, req *fapi.GlyphRequest, opts *fapi.RasterOptions) (*fapi.GlyphMetrics, error) {
	fc, err := b.face(f)
	if err != nil {
		return nil, err
	}
	m, err := b.load(fc, req)
	if err != nil {
		return nil, err
	}
	sub := [2]int{1, 1}
	if opts.Oversampling {
		sub = fc.scale.Subpixels
	}
	r, err := outline.Rasterize(fc.cur, fc.designToDevice(), sub, b.threshold, opts.MaxBitmap)
	if err != nil {
		return nil, err
	}
	fc.raster = r
	return m, nil
}

// Outline implements [fapi.Backend].
func (b *Backend) Outline(f *fapi.FontData, sink *fapi.PathSink) error {
	fc, err := b.face(f)
	if err != nil {
		return err
	}
	if fc.cur == nil {
		return fmt.Errorf("%w: no glyph loaded", fapi.ErrInvalidFont)
	}
	return outline.Emit(sink, &fc.cur.Path, fc.designToDevice())
}

// Raster implements [fapi.Backend].
func (b *Backend) Raster(f *fapi.FontData) (*fapi.Raster, error) {
	fc, err := b.face(f)
	if err != nil {
		return nil, err
	}
	if fc.raster == nil {
		return nil, fmt.Errorf("%w: no glyph rendered", fapi.ErrInvalidFont)
	}
	return fc.raster, nil
}

// ReleaseCharData implements [fapi.Backend].
func (b *Backend) ReleaseCharData(f *fapi.FontData) error {
	if fc, ok := f.Private().(*face); ok {
		fc.cur, fc.raster = nil, nil
	}
	return nil
}

// ReleaseTypeface implements [fapi.Backend].
func (b *Backend) ReleaseTypeface(f *fapi.FontData) error {
	if _, ok := f.Private().(*face); ok {
		f.SetPrivate(nil)
	}
	return nil
}

// SetWeightVector implements [fapi.Backend].
func (b *Backend) SetWeightVector(f *fapi.FontData, wv []float64) error {
	return fapi.ErrUnsupported
}

// Close implements [fapi.Backend].
func (b *Backend) Close() error {
	b.opened = false
	return nil
}
