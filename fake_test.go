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
	"image"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// fakeBackend is a scriptable backend for testing the server logic.
type fakeBackend struct {
	name string

	openErr    error
	prepareErr func(f *FontData, scale *FontScale, phase Phase) error

	fm         matrix.Matrix
	bbox       rect.Rect
	upem       float64
	canReplace bool
	metrics    GlyphMetrics

	// rasterErrs and outlineErrs are returned by successive calls
	// to RasterMetrics and OutlineMetrics.
	rasterErrs  []error
	outlineErrs []error

	// hook runs at the start of RasterMetrics and OutlineMetrics.
	hook func(f *FontData) error

	raster  *Raster
	outline func(sink *PathSink) error

	phases        []Phase
	scales        []FontScale
	requests      []GlyphRequest
	rasterOpts    []RasterOptions
	rasterCalls   int
	outlineCalls  int
	charReleases  int
	released      []*FontData
	weightVectors [][]float64
	closed        int
}

var _ Backend = (*fakeBackend)(nil)

func (b *fakeBackend) Name() string {
	if b.name == "" {
		return "fake"
	}
	return b.name
}

func (b *fakeBackend) EnsureOpen([]byte) error {
	return b.openErr
}

func (b *fakeBackend) GetScaledFont(f *FontData, scale *FontScale, xlat []byte, phase Phase) error {
	b.phases = append(b.phases, phase)
	b.scales = append(b.scales, *scale)
	if f.Private() == nil {
		f.SetPrivate(b.Name())
	}
	if b.prepareErr != nil {
		return b.prepareErr(f, scale, phase)
	}
	return nil
}

func (b *fakeBackend) FontBBox(f *FontData) (rect.Rect, float64, error) {
	if b.upem == 0 {
		return rect.Rect{}, 0, ErrUnsupported
	}
	return b.bbox, b.upem, nil
}

func (b *fakeBackend) FontMatrix(f *FontData) (matrix.Matrix, error) {
	if b.fm == (matrix.Matrix{}) {
		return matrix.Matrix{}, ErrUnsupported
	}
	return b.fm, nil
}

func (b *fakeBackend) CanReplaceMetrics(f *FontData, req *GlyphRequest) bool {
	return b.canReplace
}

func nextErr(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func (b *fakeBackend) OutlineMetrics(f *FontData, req *GlyphRequest) (*GlyphMetrics, error) {
	b.outlineCalls++
	b.requests = append(b.requests, *req)
	if b.hook != nil {
		if err := b.hook(f); err != nil {
			return nil, err
		}
	}
	if err := nextErr(&b.outlineErrs); err != nil {
		return nil, err
	}
	m := b.metrics
	return &m, nil
}

func (b *fakeBackend) RasterMetrics(f *FontData, req *GlyphRequest, opts *RasterOptions) (*GlyphMetrics, error) {
	b.rasterCalls++
	b.requests = append(b.requests, *req)
	b.rasterOpts = append(b.rasterOpts, *opts)
	if b.hook != nil {
		if err := b.hook(f); err != nil {
			return nil, err
		}
	}
	if err := nextErr(&b.rasterErrs); err != nil {
		return nil, err
	}
	m := b.metrics
	return &m, nil
}

func (b *fakeBackend) Outline(f *FontData, sink *PathSink) error {
	if b.outline == nil {
		return nil
	}
	return b.outline(sink)
}

func (b *fakeBackend) Raster(f *FontData) (*Raster, error) {
	return b.raster, nil
}

func (b *fakeBackend) ReleaseCharData(f *FontData) error {
	b.charReleases++
	return nil
}

func (b *fakeBackend) ReleaseTypeface(f *FontData) error {
	b.released = append(b.released, f)
	return nil
}

func (b *fakeBackend) SetWeightVector(f *FontData, wv []float64) error {
	b.weightVectors = append(b.weightVectors, wv)
	return nil
}

func (b *fakeBackend) Close() error {
	b.closed++
	return nil
}

func (b *fakeBackend) count(phase Phase) int {
	n := 0
	for _, p := range b.phases {
		if p == phase {
			n++
		}
	}
	return n
}

// recordingDevice records everything sent to it, without allocating
// pixel storage.
type recordingDevice struct {
	align    int
	deferred bool

	advance vec.Vec2
	box     image.Rectangle

	mono      int
	imageBox  image.Rectangle
	rows      [][]byte
	path      PathRecorder
	fillCalls int
}

func (d *recordingDevice) SetCache(advance vec.Vec2, box image.Rectangle) (CacheStatus, error) {
	d.advance = advance
	d.box = box
	if d.deferred {
		return Deferred, nil
	}
	return RenderNow, nil
}

func (d *recordingDevice) RowAlignment() int {
	return max(d.align, 1)
}

func (d *recordingDevice) CopyMono(pix []byte, stride int, r image.Rectangle) error {
	d.mono++
	return nil
}

func (d *recordingDevice) BeginImage(r image.Rectangle) (ImageWriter, error) {
	d.imageBox = r
	return d, nil
}

func (d *recordingDevice) WriteRow(row []byte) error {
	d.rows = append(d.rows, append([]byte(nil), row...))
	return nil
}

func (d *recordingDevice) Close() error {
	return nil
}

func (d *recordingDevice) FillPath(build func(PathBuilder) error) error {
	d.fillCalls++
	return build(&d.path)
}

// testMetrics are design unit metrics for a glyph in a 1000 unit em.
var testMetrics = GlyphMetrics{
	Escapement:  vec.Vec2{X: 500},
	SideBearing: vec.Vec2{X: 50},
	BBox:        rect.Rect{LLx: 50, LLy: -10, URx: 450, URy: 700},
	EmX:         1000,
	EmY:         1000,
}

// testFont returns a simple font with 10 glyphs and a 1000 unit em.
func testFont() *FontData {
	f := NewFontData(&MemSource{}, FormatType1)
	f.NumGlyphs = 10
	return f
}

// testState returns a render state for the given pixel size, with y
// pointing down.
func testState(size float64) *RenderState {
	return &RenderState{
		CharCTM:    matrix.Matrix{size / 1000, 0, 0, -size / 1000, 0, 0},
		Resolution: [2]int{72, 72},
	}
}

// testRaster is a 6x10 bitmap matching testMetrics at 12 pixels per em.
func testRaster() *Raster {
	pix := make([]byte, 10)
	for i := range pix {
		pix[i] = 0b10110100 >> (i % 3)
	}
	return &Raster{Width: 6, Height: 10, Stride: 1, Left: 0, Top: -9, Pix: pix}
}
