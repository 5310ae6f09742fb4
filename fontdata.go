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
	"sync/atomic"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/postscript/cid"
)

// GlyphID identifies a glyph within a font.  Depending on the request,
// this is a character code, a glyph index or a CID.
type GlyphID uint32


// Format describes the outline format of a font.
type Format int

// These are the supported outline formats.
const (
	FormatUnknown Format = iota
	FormatType1
	FormatCFF
	FormatTrueType
)

func (f Format) String() string {
	switch f {
	case FormatType1:
		return "Type1"
	case FormatCFF:
		return "CFF"
	case FormatTrueType:
		return "TrueType"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Feature selects a scalar font property.
type Feature int

// These are the font properties a backend can query.
const (
	FeatureUnitsPerEm Feature = iota + 1
	FeatureFontMatrix
	FeatureFontBBox
	FeaturePaintType
	FeatureStrokeWidth
	FeatureNumGlyphs
	FeatureSubrCount
	FeatureGlobalSubrCount
	FeatureLanguageGroup
	FeatureWeightVector
)

func (f Feature) String() string {
	switch f {
	case FeatureUnitsPerEm:
		return "UnitsPerEm"
	case FeatureFontMatrix:
		return "FontMatrix"
	case FeatureFontBBox:
		return "FontBBox"
	case FeaturePaintType:
		return "PaintType"
	case FeatureStrokeWidth:
		return "StrokeWidth"
	case FeatureNumGlyphs:
		return "NumGlyphs"
	case FeatureSubrCount:
		return "SubrCount"
	case FeatureGlobalSubrCount:
		return "GlobalSubrCount"
	case FeatureLanguageGroup:
		return "LanguageGroup"
	case FeatureWeightVector:
		return "WeightVector"
	default:
		return fmt.Sprintf("Feature(%d)", int(f))
	}
}

// MetricsAvailability tells which glyph metrics a font source provides.
type MetricsAvailability int

// These are the possible results of [FontSource.Metrics].
const (
	MetricsNotAvailable MetricsAvailability = iota
	MetricsWidthOnly
	MetricsSideBearingAndWidth
)

// FontSource gives read access to the data of a font.
// It is implemented by the interpreter front end.
//
// Variable length data is read in two steps: the length is queried first,
// then the data is read into a caller supplied buffer of at least this
// length.  The Read methods return the number of bytes written.
type FontSource interface {
	GlyphLength(id GlyphID) (int, error)
	ReadGlyph(id GlyphID, buf []byte) (int, error)

	Word(f Feature, index int) (uint16, error)
	Long(f Feature, index int) (uint32, error)
	Float(f Feature, index int) (float64, error)

	SubrLength(index int) (int, error)
	ReadSubr(index int, buf []byte) (int, error)
	GlobalSubrLength(index int) (int, error)
	ReadGlobalSubr(index int, buf []byte) (int, error)

	// FontLength and SerializeFont give access to a complete font file
	// embedded in the font.
	FontLength() (int, error)
	SerializeFont(buf []byte) (int, error)

	// Metrics returns caller declared metrics for a glyph, in glyph space.
	// The values are the side bearing (x, y) and the advance (x, y).
	Metrics(id GlyphID, vertical bool) (MetricsAvailability, [4]float64, error)
}

// VerticalSubstituter is implemented by font sources which provide
// replacement glyphs for vertical writing mode.
type VerticalSubstituter interface {
	VerticalGlyph(id GlyphID) (GlyphID, bool)
}

// CIDMapper is implemented by font sources of CID-keyed fonts whose
// glyphs are stored by glyph index.  Caller metrics and glyph records
// stay keyed by CID; only the backend sees the glyph index.
type CIDMapper interface {
	GlyphIndex(c cid.CID) (GlyphID, bool)
}

var lastFontID atomic.Uint64

func nextFontID() uint64 {
	return lastFontID.Add(1)
}

// FontData is the view of one interpreter font seen by the backends.
//
// The exported fields describe the font and must not change after the
// font has been passed to a backend; call [FontData.Invalidate] if the
// underlying font is modified.
type FontData struct {
	Format Format

	// Vertical is set for fonts used in vertical writing mode.
	Vertical bool

	// CID is set for CID-keyed fonts.
	CID bool

	// HasType1Data is set for CID fonts with embedded Type 1 glyph data.
	HasType1Data bool

	// FileBased is set if the font was supplied as a complete font file,
	// rather than being built glyph by glyph.
	FileBased bool

	// FontMatrix maps glyph space to text space.
	FontMatrix matrix.Matrix

	// FontBBox is the declared font bounding box in glyph space.
	FontBBox rect.Rect

	// NumGlyphs is the number of glyphs in the font, or 0 if unknown.
	NumGlyphs int

	// PaintType is 0 for filled fonts and 2 for stroked fonts.
	PaintType int

	// StrokeWidth is the line width in glyph space, for stroked fonts.
	StrokeWidth float64

	// Descendants lists the component fonts of a composite font.
	Descendants []*FontData

	Src FontSource

	id      uint64
	private any
	owner   *Server

	// ctx is the server on whose behalf a backend is currently
	// accessing the font data.
	ctx *Server
}

// NewFontData allocates a new font view with a fresh font ID.
func NewFontData(src FontSource, format Format) *FontData {
	return &FontData{
		Format:     format,
		FontMatrix: matrix.Matrix{0.001, 0, 0, 0.001, 0, 0},
		Src:        src,
		id:         nextFontID(),
	}
}

// ID returns the font ID.  The ID changes whenever the font is invalidated.
func (f *FontData) ID() uint64 {
	if f.id == 0 {
		f.id = nextFontID()
	}
	return f.id
}

// IsComposite reports whether the font has descendant fonts.
func (f *FontData) IsComposite() bool {
	return len(f.Descendants) > 0
}

// Private returns the backend-private handle attached to the font.
func (f *FontData) Private() any {
	return f.private
}

// SetPrivate attaches a backend-private handle to the font.
// This is called by backends while preparing a font.  The handle is
// released by the backend's ReleaseTypeface method.
func (f *FontData) SetPrivate(v any) {
	f.private = v
}

// Invalidate must be called when the underlying font is modified or
// discarded.  Any backend-private state is released and the font is
// assigned a new ID.
func (f *FontData) Invalidate() error {
	var firstErr error
	for _, d := range f.Descendants {
		if err := d.Invalidate(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if f.owner != nil {
		if err := f.owner.releaseTypeface(f); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.id = nextFontID()
	return firstErr
}

// record stores err as the sticky error of the server on whose behalf
// the font data is currently accessed.  Requests for optional data
// which the font does not have are not recorded.
func (f *FontData) record(err error) error {
	if err != nil && f.ctx != nil && f.ctx.sticky == nil && !errors.Is(err, ErrUnsupported) {
		f.ctx.sticky = err
	}
	return err
}

// GlyphLength returns the length of the raw data of a glyph.
func (f *FontData) GlyphLength(id GlyphID) (int, error) {
	n, err := f.Src.GlyphLength(id)
	return n, f.record(err)
}

// ReadGlyph reads the raw data of a glyph into buf.
func (f *FontData) ReadGlyph(id GlyphID, buf []byte) (int, error) {
	n, err := f.Src.ReadGlyph(id, buf)
	return n, f.record(err)
}

// Glyph returns the raw data of a glyph.
func (f *FontData) Glyph(id GlyphID) ([]byte, error) {
	n, err := f.GlyphLength(id)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	n, err = f.ReadGlyph(id, buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// Word returns a 16 bit font property.
func (f *FontData) Word(feat Feature, index int) (uint16, error) {
	v, err := f.Src.Word(feat, index)
	return v, f.record(err)
}

// Long returns a 32 bit font property.
func (f *FontData) Long(feat Feature, index int) (uint32, error) {
	v, err := f.Src.Long(feat, index)
	return v, f.record(err)
}

// Float returns a real valued font property.
func (f *FontData) Float(feat Feature, index int) (float64, error) {
	v, err := f.Src.Float(feat, index)
	return v, f.record(err)
}

// Subr returns a local subroutine.
func (f *FontData) Subr(index int) ([]byte, error) {
	n, err := f.Src.SubrLength(index)
	if err != nil {
		return nil, f.record(err)
	}
	buf := make([]byte, n)
	n, err = f.Src.ReadSubr(index, buf)
	if err != nil {
		return nil, f.record(err)
	}
	return buf[:n], nil
}

// GlobalSubr returns a global subroutine.
func (f *FontData) GlobalSubr(index int) ([]byte, error) {
	n, err := f.Src.GlobalSubrLength(index)
	if err != nil {
		return nil, f.record(err)
	}
	buf := make([]byte, n)
	n, err = f.Src.ReadGlobalSubr(index, buf)
	if err != nil {
		return nil, f.record(err)
	}
	return buf[:n], nil
}

// FontFile returns the complete embedded font file.
func (f *FontData) FontFile() ([]byte, error) {
	n, err := f.Src.FontLength()
	if err != nil {
		return nil, f.record(err)
	}
	buf := make([]byte, n)
	n, err = f.Src.SerializeFont(buf)
	if err != nil {
		return nil, f.record(err)
	}
	return buf[:n], nil
}
