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

	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// MetricsType describes how caller supplied metrics are combined with
// the metrics measured by the backend.
type MetricsType int

// These are the supported metrics types.
const (
	// MetricsNone means that the backend metrics are used unchanged.
	MetricsNone MetricsType = iota

	// MetricsReplace replaces both side bearing and advance.
	MetricsReplace

	// MetricsReplaceWidth replaces the advance only.
	MetricsReplaceWidth

	// MetricsAdd adds the caller values to the backend metrics.
	MetricsAdd
)

func (t MetricsType) String() string {
	switch t {
	case MetricsNone:
		return "none"
	case MetricsReplace:
		return "replace"
	case MetricsReplaceWidth:
		return "replace-width"
	case MetricsAdd:
		return "add"
	default:
		return fmt.Sprintf("MetricsType(%d)", int(t))
	}
}

// GlyphRequest describes one glyph to be rendered.
type GlyphRequest struct {
	// ID is a character code, or a glyph index if IsGlyphIndex is set.
	ID           GlyphID
	IsGlyphIndex bool

	// Metrics and SBW give caller supplied metrics in glyph space:
	// side bearing (x, y) followed by advance (x, y).  If Metrics is
	// MetricsNone, the font source is consulted.
	Metrics MetricsType
	SBW     [4]float64

	// WidthOnly requests the advance without rendering the glyph.
	WidthOnly bool

	// SubBearingX and AdvanceX are the caller side bearing and advance
	// in em units.  They are filled in before the backend is called, for
	// backends which cannot replace metrics themselves.
	SubBearingX float64
	AdvanceX    float64
}

// GlyphMetrics are the metrics of a glyph as measured by a backend.
// All lengths are in design units, with EmX and EmY design units
// per em.
type GlyphMetrics struct {
	Escapement  vec.Vec2
	SideBearing vec.Vec2
	BBox        rect.Rect
	EmX, EmY    float64
}

// Raster is a 1 bit per pixel glyph image produced by a backend.
// Bits are stored most significant bit first.
type Raster struct {
	Width, Height int
	Stride        int

	// Left and Top give the device space position of the top left pixel,
	// relative to the glyph origin.
	Left, Top int

	Pix []byte
}

// RasterOptions control the production of glyph rasters.
type RasterOptions struct {
	// Oversampling is set if the prepared face uses more than one
	// subpixel per device pixel.
	Oversampling bool

	// MaxBitmap is the largest raster, in bytes, the backend may produce.
	// If a glyph does not fit, the backend returns [ErrVM], or
	// [ErrLimitCheck] if only the oversampled raster does not fit.
	// Zero means no limit.
	MaxBitmap int
}

// GlyphResult is the handle for the glyph data held by a backend between
// a metrics call and the delivery of the outline or raster.  A server
// holds at most one live result.
type GlyphResult struct {
	s        *Server
	f        *FontData
	outline  bool
	released bool
}

// Release frees the backend glyph data.  Only the first call has an effect.
func (g *GlyphResult) Release() error {
	if g == nil || g.released {
		return nil
	}
	g.released = true
	if g.s.live == g {
		g.s.live = nil
	}
	return g.s.call("ReleaseCharData", g.f, func() error {
		return g.s.backend.ReleaseCharData(g.f)
	})
}
