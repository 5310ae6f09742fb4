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
	"fmt"
	"image"
	"math"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/postscript/cid"

	"seehuhn.de/go/fapi/internal/bitmap"
)

// midRangeSize is the em size, in points, at which glyphs are rendered
// when the requested size does not fit into 16.16 fixed point.  The
// remaining scale factor is applied to the outline afterwards.
const midRangeSize = 1000

// bboxSlack is the number of device pixels by which the declared font
// bounding box is expanded before it is used to clip glyph boxes.
// Do not change this without checking the glyph boxes reported by
// the FreeType based backends, which may exceed the declared box.
const bboxSlack = 2

// minStrokeExpansion is the smallest factor (relative to half the line
// width) by which stroked glyphs may extend beyond their outline.
const minStrokeExpansion = 1.415

// RenderState holds the graphics state for rendering one glyph.
type RenderState struct {
	// CharCTM maps glyph space to device space.  Device space is measured
	// in pixels, with y pointing down.  The translation part is ignored;
	// glyphs are rendered relative to their origin.
	CharCTM matrix.Matrix

	// Resolution is the device resolution in pixels per inch.
	// Zero values mean 72.
	Resolution [2]int

	AlignToPixels bool

	// Oversampling requests anti-aliased rendering at a higher resolution.
	Oversampling bool

	// Embolden is the fraction of the glyph height by which glyphs
	// are artificially emboldened.
	Embolden float64

	// PureColor is set if glyphs are painted in a single, opaque colour.
	PureColor bool

	// MiterLimit and LineWidth (in glyph space) are used for stroked fonts.
	MiterLimit float64
	LineWidth  float64

	// Path, if non-nil, receives the glyph outline instead of the
	// glyph being imaged.
	Path PathBuilder
}

// Retry records the retries of the render step for one glyph.  Each kind
// of retry happens at most once per glyph, so a glyph may see both.
type Retry int

// These are the possible retries.
const (
	RetryNoOversampling Retry = 1 << iota
	RetryOutline

	RetryNone Retry = 0
)

func (r Retry) String() string {
	switch r {
	case RetryNone:
		return "none"
	case RetryNoOversampling:
		return "no-oversampling"
	case RetryOutline:
		return "outline"
	case RetryNoOversampling | RetryOutline:
		return "no-oversampling+outline"
	default:
		return fmt.Sprintf("Retry(%d)", int(r))
	}
}

// CharResult describes a rendered glyph.
type CharResult struct {
	// Advance is the escapement in device space.
	Advance vec.Vec2

	// Box is the device space bounding box of the glyph, relative to
	// the glyph origin.  The side bearing shift is included.
	Box image.Rectangle

	// Shift is the integer pixel offset applied to compensate for a
	// caller side bearing which the backend could not honour.
	Shift image.Point

	// Outline is set if the glyph was rendered from its outline.
	Outline bool

	// Overflow is set if the glyph scale did not fit into fixed point.
	Overflow bool

	// Retry lists the retries which were needed to render the glyph.
	Retry Retry

	// Rejected counts outline segments which were dropped because they
	// fell outside the device coordinate range.
	Rejected int

	// Deferred is set if the glyph cache asked to render the glyph later.
	// The rendering is completed by [Server.FinishChar].
	Deferred bool
}

type pipelineState int

const (
	stateComputeScale pipelineState = iota
	statePrepareFont
	stateComputeMetrics
	stateRender
	stateRetryNoOversampling
	stateRetryOutline
	stateDone
	stateFailed
)

func (s pipelineState) String() string {
	switch s {
	case stateComputeScale:
		return "compute-scale"
	case statePrepareFont:
		return "prepare-font"
	case stateComputeMetrics:
		return "compute-metrics"
	case stateRender:
		return "render"
	case stateRetryNoOversampling:
		return "retry-oversampling-off"
	case stateRetryOutline:
		return "retry-as-outline"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	default:
		return fmt.Sprintf("pipelineState(%d)", int(s))
	}
}

// pipeline holds the state for rendering one glyph.
type pipeline struct {
	s   *Server
	f   *FontData
	req GlyphRequest
	st  *RenderState
	id  GlyphID

	outline      bool
	oversampling bool
	isIndex      bool
	overflow     bool
	retry        Retry

	// emToDev maps the em square to device pixels.
	emToDev matrix.Matrix
	// post maps backend outline coordinates to device space.
	post  matrix.Matrix
	scale FontScale

	mtype      MetricsType
	sbw        [4]float64
	canReplace bool
	metrics    *GlyphMetrics

	bold   int
	result CharResult
}

// RenderChar renders one glyph of a prepared font.
//
// The glyph is measured, its bounding box and advance are installed in the
// glyph cache of dev, and the glyph image is delivered to dev.  If
// st.Path is set, the outline is appended to st.Path instead.
func (s *Server) RenderChar(f *FontData, req *GlyphRequest, st *RenderState, dev Device) (*CharResult, error) {
	s.releaseLive()

	if req.IsGlyphIndex && f.NumGlyphs > 0 && int64(req.ID) >= int64(f.NumGlyphs) {
		return nil, &OpError{Backend: s.Name(), Op: "RenderChar", Err: ErrRange}
	}

	p := &pipeline{
		s:            s,
		f:            f,
		req:          *req,
		st:           st,
		id:           req.ID,
		outline:      st.Path != nil,
		oversampling: st.Oversampling,
		isIndex:      req.IsGlyphIndex,
	}
	if f.Vertical {
		if vs, ok := f.Src.(VerticalSubstituter); ok {
			if v, ok := vs.VerticalGlyph(req.ID); ok {
				p.id = v
			}
		}
	}
	return p.run(dev)
}

func (p *pipeline) run(dev Device) (*CharResult, error) {
	var err error
	state := stateComputeScale
	for {
		switch state {
		case stateComputeScale:
			p.computeScale()
			state = statePrepareFont

		case statePrepareFont:
			err = p.s.prepareFace(p.f, &p.scale)
			state = stateComputeMetrics
			if err != nil {
				state = stateFailed
			}

		case stateComputeMetrics:
			err = p.selectMetrics()
			state = stateRender
			if err != nil {
				err = &OpError{Backend: p.s.Name(), Op: "Metrics", Err: classify(err)}
				state = stateFailed
			}

		case stateRender:
			err = p.render()
			if err == nil {
				state = stateDone
			} else {
				state = p.nextRetry(err)
			}

		case stateRetryNoOversampling:
			Logger().Debug("retrying without oversampling", p.s.logAttrs(), "glyph", p.id)
			p.retry |= RetryNoOversampling
			p.oversampling = false
			state = stateComputeScale

		case stateRetryOutline:
			Logger().Debug("retrying as outline", p.s.logAttrs(), "glyph", p.id)
			p.retry |= RetryOutline
			p.outline = true
			state = stateComputeScale

		case stateDone:
			res, err := p.finish(dev)
			if err != nil {
				p.s.releaseLive()
				return nil, err
			}
			return res, nil

		case stateFailed:
			p.s.releaseLive()
			return nil, err
		}
	}
}

// nextRetry selects the state after a failed render step.  Each kind of
// retry is tried at most once per glyph, and outline rendering is never
// retried.
func (p *pipeline) nextRetry(err error) pipelineState {
	if p.outline {
		return stateFailed
	}
	switch {
	case p.retry&RetryOutline == 0 && errors.Is(err, ErrVM):
		return stateRetryOutline
	case p.retry&RetryNoOversampling == 0 && p.oversampling && errors.Is(err, ErrLimitCheck):
		return stateRetryNoOversampling
	}
	return stateFailed
}

// backendFontMatrix returns the matrix which maps design units to the
// em square.  If the backend cannot provide it, the font matrix declared
// by the caller is used.
func (p *pipeline) backendFontMatrix() matrix.Matrix {
	var fm matrix.Matrix
	err := p.s.call("FontMatrix", p.f, func() error {
		var err error
		fm, err = p.s.backend.FontMatrix(p.f)
		return err
	})
	if err != nil || det(fm) == 0 {
		fm = p.f.FontMatrix
	}
	if det(fm) == 0 {
		fm = matrix.Identity
	}
	return fm
}

// computeScale determines the em to device transformation and the scale
// passed to the backend.
func (p *pipeline) computeScale() {
	st := p.st
	fm := p.backendFontMatrix()

	ctm := st.CharCTM
	ctm[4], ctm[5] = 0, 0
	fmInv := fm.Inv()
	fmInv[4], fmInv[5] = 0, 0
	m := fmInv.Mul(ctm)

	d := det(m)
	if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		Logger().Debug("degenerate glyph matrix", p.s.logAttrs(), "matrix", st.CharCTM)
		m = matrix.Identity
	}
	p.emToDev = m

	rx, ry := st.Resolution[0], st.Resolution[1]
	if rx <= 0 {
		rx = 72
	}
	if ry <= 0 {
		ry = 72
	}
	toPoints := m.Mul(matrix.Scale(72/float64(rx), 72/float64(ry)))

	sub := [2]int{1, 1}
	if p.oversampling && !p.outline {
		sub = [2]int{p.s.oversample, p.s.oversample}
	}

	p.overflow = false
	p.post = matrix.Identity
	fx, ok := ToFixedMatrix(toPoints)
	if !ok {
		k := maxCoeff(toPoints) / midRangeSize
		reduced := matrix.Matrix{toPoints[0] / k, toPoints[1] / k, toPoints[2] / k, toPoints[3] / k, 0, 0}
		fx, _ = ToFixedMatrix(reduced)
		p.post = matrix.Scale(k, k)
		p.overflow = true
		p.outline = true
		sub = [2]int{1, 1}
		Logger().Debug("glyph scale overflow, using outline", p.s.logAttrs(), "factor", k)
	}

	p.scale = FontScale{
		Matrix:        fx,
		Resolution:    [2]int{rx, ry},
		Subpixels:     sub,
		AlignToPixels: st.AlignToPixels,
	}
}

// render asks the backend for the glyph metrics.  The backend keeps the
// glyph data until it is delivered or released.
func (p *pipeline) render() error {
	s := p.s
	s.releaseLive()

	req := &p.req
	req.ID = p.id
	if err := p.mapCID(req); err != nil {
		return err
	}
	req.Metrics = p.mtype
	req.SBW = p.sbw
	req.SubBearingX = p.sbw[0] * p.f.FontMatrix[0]
	req.AdvanceX = p.sbw[2] * p.f.FontMatrix[0]
	p.canReplace = s.backend.CanReplaceMetrics(p.f, req)

	if req.WidthOnly && (p.mtype == MetricsReplace || p.mtype == MetricsReplaceWidth) {
		p.metrics = nil
		return nil
	}

	outline := p.outline || req.WidthOnly
	var m *GlyphMetrics
	var err error
	if outline {
		err = s.call("OutlineMetrics", p.f, func() error {
			var err error
			m, err = s.backend.OutlineMetrics(p.f, req)
			return err
		})
	} else {
		opt := &RasterOptions{
			Oversampling: p.scale.Subpixels[0] > 1 || p.scale.Subpixels[1] > 1,
			MaxBitmap:    s.maxBitmap,
		}
		err = s.call("RasterMetrics", p.f, func() error {
			var err error
			m, err = s.backend.RasterMetrics(p.f, req, opt)
			return err
		})
	}
	// The backend may hold glyph data even after an error.
	s.live = &GlyphResult{s: s, f: p.f, outline: outline}
	s.outline = outline
	if err != nil {
		return err
	}
	if m == nil || m.EmX <= 0 || m.EmY <= 0 {
		return &OpError{Backend: s.Name(), Op: "Metrics", Err: fmt.Errorf("%w: invalid em size", ErrInvalidFont)}
	}
	p.metrics = m
	return nil
}

// mapCID replaces the CID in a request for a CID-keyed font by its glyph
// index, if the font source maps this CID.
func (p *pipeline) mapCID(req *GlyphRequest) error {
	req.IsGlyphIndex = p.isIndex
	if !p.f.CID || p.isIndex {
		return nil
	}
	m, ok := p.f.Src.(CIDMapper)
	if !ok {
		return nil
	}
	gid, ok := m.GlyphIndex(cid.CID(p.id))
	if !ok {
		return nil
	}
	if n := p.f.NumGlyphs; n > 0 && int64(gid) >= int64(n) {
		return &OpError{Backend: p.s.Name(), Op: "RenderChar", Err: ErrRange}
	}
	req.ID = gid
	req.IsGlyphIndex = true
	return nil
}

// glyphToDev returns the linear part of the glyph space to device space map.
func (p *pipeline) glyphToDev() matrix.Matrix {
	m := p.st.CharCTM
	m[4], m[5] = 0, 0
	return m
}

// finish computes the device space metrics of the glyph and delivers it.
func (p *pipeline) finish(dev Device) (*CharResult, error) {
	res := &p.result
	res.Outline = p.s.outline
	res.Overflow = p.overflow
	res.Retry = p.retry

	gm := p.glyphToDev()
	var designToDev matrix.Matrix
	if p.metrics != nil {
		designToDev = matrix.Scale(1/p.metrics.EmX, 1/p.metrics.EmY).Mul(p.emToDev)
	}

	// escapement
	switch p.mtype {
	case MetricsReplace, MetricsReplaceWidth:
		res.Advance = applyDelta(gm, p.sbw[2], p.sbw[3])
	default:
		res.Advance = applyDelta(designToDev, p.metrics.Escapement.X, p.metrics.Escapement.Y)
		if p.mtype == MetricsAdd {
			res.Advance = res.Advance.Add(applyDelta(gm, p.sbw[2], p.sbw[3]))
		}
	}

	if p.req.WidthOnly {
		p.s.releaseLive()
		return res, nil
	}

	box := roundOut(transformRect(designToDev, p.metrics.BBox), p.metrics.BBox.IsZero())
	box = p.clipToFontBBox(box)

	if !p.canReplace {
		var delta vec.Vec2
		switch p.mtype {
		case MetricsReplace:
			want := applyDelta(gm, p.sbw[0], p.sbw[1])
			have := applyDelta(designToDev, p.metrics.SideBearing.X, p.metrics.SideBearing.Y)
			delta = want.Sub(have)
		case MetricsAdd:
			delta = applyDelta(gm, p.sbw[0], p.sbw[1])
		}
		res.Shift = image.Pt(int(math.Round(delta.X)), int(math.Round(delta.Y)))
	}
	res.Box = box.Add(res.Shift)

	if p.st.Path != nil {
		err := p.deliverPath(p.st.Path)
		p.s.releaseLive()
		return res, err
	}

	if p.st.Embolden > 0 && !p.s.outline {
		p.bold = bitmap.BoldAmount(res.Box.Dy(), p.st.Embolden)
	}
	cacheBox := res.Box
	if p.bold > 0 {
		cacheBox.Min.Y -= p.bold
		cacheBox.Max.X += p.bold
	}

	status, err := dev.SetCache(res.Advance, cacheBox)
	if err != nil {
		return nil, err
	}
	if status == Deferred {
		res.Deferred = true
		p.s.pending = p
		return res, nil
	}

	err = p.deliver(dev)
	p.s.releaseLive()
	if err != nil {
		return nil, err
	}
	return res, nil
}

// FinishChar completes the rendering of a glyph which was deferred by
// the glyph cache.
func (s *Server) FinishChar(dev Device) (*CharResult, error) {
	p := s.pending
	if p == nil || s.live == nil {
		return nil, errors.New("fapi: no deferred glyph")
	}
	s.pending = nil
	err := p.deliver(dev)
	s.releaseLive()
	if err != nil {
		return nil, err
	}
	p.result.Deferred = false
	return &p.result, nil
}

// roundOut returns the smallest pixel rectangle containing r.
func roundOut(r rect.Rect, empty bool) image.Rectangle {
	if empty {
		return image.Rectangle{}
	}
	return image.Rect(
		int(math.Floor(r.LLx)), int(math.Floor(r.LLy)),
		int(math.Ceil(r.URx)), int(math.Ceil(r.URy)))
}

// clipToFontBBox intersects a glyph box with the declared font bounding
// box, expanded by bboxSlack pixels.  The glyph box is kept if the font
// bounding box is degenerate or the intersection is empty.
func (p *pipeline) clipToFontBBox(box image.Rectangle) image.Rectangle {
	fb := p.f.FontBBox
	if fb.URx <= fb.LLx || fb.URy <= fb.LLy {
		return box
	}
	if p.f.PaintType != 0 {
		lw := p.st.LineWidth
		if lw == 0 {
			lw = p.f.StrokeWidth
		}
		e := max(minStrokeExpansion, p.st.MiterLimit) * lw / 2
		fb = rect.Rect{LLx: fb.LLx - e, LLy: fb.LLy - e, URx: fb.URx + e, URy: fb.URy + e}
	}

	dr := transformRect(p.glyphToDev(), fb)
	limit := image.Rect(
		int(math.Floor(dr.LLx))-bboxSlack, int(math.Floor(dr.LLy))-bboxSlack,
		int(math.Ceil(dr.URx))+bboxSlack, int(math.Ceil(dr.URy))+bboxSlack)
	if in := box.Intersect(limit); !in.Empty() {
		return in
	}
	return box
}
