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
	"fmt"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
)

// Phase identifies the step of font preparation in a call to
// [Backend.GetScaledFont].
type Phase int

// These are the phases of font preparation.
const (
	// PhaseToplevelBegin starts the preparation of a font.
	PhaseToplevelBegin Phase = iota

	// PhaseDescendant prepares one descendant of a composite font.
	// The index of the descendant is in [FontScale.Descendant].
	PhaseDescendant

	// PhaseToplevelComplete finishes the preparation of a composite font,
	// after all descendants have been prepared.
	PhaseToplevelComplete

	// PhasePrepared sets the scale of an already prepared font, before
	// glyphs are rendered.
	PhasePrepared
)

func (p Phase) String() string {
	switch p {
	case PhaseToplevelBegin:
		return "toplevel-begin"
	case PhaseDescendant:
		return "descendant"
	case PhaseToplevelComplete:
		return "toplevel-complete"
	case PhasePrepared:
		return "prepared"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// FontScale describes the size at which a backend renders a font.
type FontScale struct {
	// Matrix maps the em square to device space, measured in points.
	Matrix FixedMatrix

	// Resolution is the device resolution in pixels per inch.
	Resolution [2]int

	// Subpixels is the number of subpixels per device pixel used
	// for oversampling.
	Subpixels [2]int

	AlignToPixels bool

	// Descendant is the index of the descendant font in PhaseDescendant.
	Descendant int
}

// DeviceMatrix returns the matrix which maps the em square to device pixels.
func (sc *FontScale) DeviceMatrix() matrix.Matrix {
	m := sc.Matrix.Matrix()
	rx, ry := float64(sc.Resolution[0]), float64(sc.Resolution[1])
	if rx <= 0 {
		rx = 72
	}
	if ry <= 0 {
		ry = 72
	}
	return m.Mul(matrix.Scale(rx/72, ry/72))
}

// Backend is a font rendering engine.
//
// The methods which take a *FontData find the backend's state for the
// font via [FontData.Private].  Between a call to OutlineMetrics or
// RasterMetrics and the matching call to Outline, Raster or
// ReleaseCharData, the backend holds the data for exactly one glyph.
//
// Backend errors are classified with [errors.Is] against the error
// variables of this package.  Any other error makes the font invalid
// for this backend.
type Backend interface {
	// Name returns a short name for the backend.
	Name() string

	// EnsureOpen initialises the backend.  Repeated calls have no effect.
	EnsureOpen(config []byte) error

	// GetScaledFont prepares a font, or changes the scale of a prepared
	// font.  xlat is an optional glyph translation table.
	GetScaledFont(f *FontData, scale *FontScale, xlat []byte, phase Phase) error

	// FontBBox returns the font bounding box in design units, together
	// with the number of design units per em.
	FontBBox(f *FontData) (rect.Rect, float64, error)

	// FontMatrix returns the matrix which maps design units to the em square.
	FontMatrix(f *FontData) (matrix.Matrix, error)

	// CanReplaceMetrics reports whether the backend honours caller
	// supplied side bearings itself.
	CanReplaceMetrics(f *FontData, req *GlyphRequest) bool

	// OutlineMetrics loads the outline of a glyph and returns its metrics.
	OutlineMetrics(f *FontData, req *GlyphRequest) (*GlyphMetrics, error)

	// RasterMetrics renders a glyph and returns its metrics.
	RasterMetrics(f *FontData, req *GlyphRequest, opts *RasterOptions) (*GlyphMetrics, error)

	// Outline streams the outline loaded by OutlineMetrics into sink.
	// The backend must continue after a segment is rejected with
	// [ErrUndefinedResult].
	Outline(f *FontData, sink *PathSink) error

	// Raster returns the raster produced by RasterMetrics.  The pixel
	// data remains owned by the backend until ReleaseCharData.
	Raster(f *FontData) (*Raster, error)

	ReleaseCharData(f *FontData) error

	// ReleaseTypeface frees all backend state for a font.
	ReleaseTypeface(f *FontData) error

	// SetWeightVector sets the design vector of a multiple master font.
	// Backends without multiple master support return [ErrUnsupported].
	SetWeightVector(f *FontData, wv []float64) error

	Close() error
}
