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

// Package builtin implements a font rendering backend on top of the
// seehuhn.de/go font parsers.
//
// The backend renders TrueType, OpenType and Type 1 fonts which are
// supplied as complete font files.  Glyph rasters are produced with the
// anti-aliasing rasteriser from golang.org/x/image/vector and are
// thresholded to one bit per pixel.
//
// The backend understands the following configuration settings:
//
//	threshold=N   coverage (1-255) at which a pixel is set, default 128
//	maxbitmap=N   upper limit for the raster size in bytes
package builtin

import (
	"errors"
	"fmt"
	"math"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/fapi"
	"seehuhn.de/go/fapi/internal/outline"
)

// DefaultThreshold is the coverage at which a pixel is set.
const DefaultThreshold = 128

// Backend is a [fapi.Backend] which uses the seehuhn.de/go font parsers.
type Backend struct {
	opened    bool
	threshold uint8
	maxBitmap int
}

var _ fapi.Backend = (*Backend)(nil)

// New allocates a new backend.
func New() *Backend {
	return &Backend{threshold: DefaultThreshold}
}

// face is the per-font state of the backend.
type face struct {
	prog  program
	scale fapi.FontScale

	cur    *outline.Glyph
	raster *fapi.Raster
}

// Name implements [fapi.Backend].
func (b *Backend) Name() string {
	return "builtin"
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
	if err := cfg.CheckKeys("threshold", "maxbitmap"); err != nil {
		return err
	}
	threshold, err := cfg.Int("threshold", DefaultThreshold)
	if err != nil {
		return err
	}
	if threshold < 1 || threshold > 255 {
		return fmt.Errorf("%w: threshold %d out of range", fapi.ErrConfig, threshold)
	}
	maxBitmap, err := cfg.Int("maxbitmap", 0)
	if err != nil {
		return err
	}
	if maxBitmap < 0 {
		return fmt.Errorf("%w: negative maxbitmap", fapi.ErrConfig)
	}

	b.threshold = uint8(threshold)
	b.maxBitmap = maxBitmap
	b.opened = true
	return nil
}

// GetScaledFont implements [fapi.Backend].
// The font file is parsed when the font is first seen.
func (b *Backend) GetScaledFont(f *fapi.FontData, scale *fapi.FontScale, xlat []byte, phase fapi.Phase) error {
	if phase == fapi.PhaseToplevelComplete {
		return nil
	}

	fc, ok := f.Private().(*face)
	if !ok {
		if f.HasType1Data {
			return fmt.Errorf("%w: glyph-by-glyph Type 1 data", fapi.ErrInvalidFont)
		}
		data, err := f.FontFile()
		if errors.Is(err, fapi.ErrUnsupported) {
			return fmt.Errorf("%w: no font file", fapi.ErrInvalidFont)
		} else if err != nil {
			return err
		}
		prog, err := parse(data, f.Format)
		if err != nil {
			return err
		}
		fc = &face{prog: prog}
		f.SetPrivate(fc)
		fapi.Logger().Debug("font loaded",
			"backend", b.Name(), "font", f.ID(), "glyphs", prog.NumGlyphs())
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

// FontBBox implements [fapi.Backend].
func (b *Backend) FontBBox(f *fapi.FontData) (rect.Rect, float64, error) {
	fc, err := b.face(f)
	if err != nil {
		return rect.Rect{}, 0, err
	}
	emX, _ := emSize(fc.prog.FontMatrix())
	return fc.prog.BBox(), emX, nil
}

// FontMatrix implements [fapi.Backend].
func (b *Backend) FontMatrix(f *fapi.FontData) (matrix.Matrix, error) {
	fc, err := b.face(f)
	if err != nil {
		return matrix.Matrix{}, err
	}
	return fc.prog.FontMatrix(), nil
}

// CanReplaceMetrics implements [fapi.Backend].
// Side bearings are always applied by the server.
func (b *Backend) CanReplaceMetrics(f *fapi.FontData, req *fapi.GlyphRequest) bool {
	return false
}

// emSize returns the number of design units per em in x and y direction.
func emSize(fm matrix.Matrix) (float64, float64) {
	emX, emY := 1000.0, 1000.0
	if fm[0] != 0 {
		emX = math.Abs(1 / fm[0])
	}
	if fm[3] != 0 {
		emY = math.Abs(1 / fm[3])
	}
	return emX, emY
}

// load reads a glyph into the face and returns its metrics.
func (b *Backend) load(fc *face, req *fapi.GlyphRequest) (*fapi.GlyphMetrics, error) {
	fc.cur, fc.raster = nil, nil
	g, err := fc.prog.Glyph(req.ID, req.IsGlyphIndex)
	if err != nil {
		return nil, err
	}
	fc.cur = g

	return g.Metrics(emSize(fc.prog.FontMatrix())), nil
}

// designToDevice maps design units to device pixels at the current scale.
func (fc *face) designToDevice() matrix.Matrix {
	fm := fc.prog.FontMatrix()
	fm[4], fm[5] = 0, 0
	return fm.Mul(fc.scale.DeviceMatrix())
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

	limit := opts.MaxBitmap
	if b.maxBitmap > 0 && (limit == 0 || b.maxBitmap < limit) {
		limit = b.maxBitmap
	}
	sub := [2]int{1, 1}
	if opts.Oversampling {
		sub = fc.scale.Subpixels
	}
	r, err := outline.Rasterize(fc.cur, fc.designToDevice(), sub, b.threshold, limit)
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
// Multiple master fonts are not supported.
func (b *Backend) SetWeightVector(f *fapi.FontData, wv []float64) error {
	return fapi.ErrUnsupported
}

// Close implements [fapi.Backend].
func (b *Backend) Close() error {
	b.opened = false
	return nil
}
