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

package builtin

import (
	"bytes"
	"fmt"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/postscript/funit"
	"seehuhn.de/go/postscript/type1"
	"seehuhn.de/go/sfnt"
	"seehuhn.de/go/sfnt/cmap"
	"seehuhn.de/go/sfnt/glyph"

	"seehuhn.de/go/fapi"
	"seehuhn.de/go/fapi/internal/outline"
)

// program is a parsed font program.
type program interface {
	// NumGlyphs returns the number of glyphs in the font.
	NumGlyphs() int

	// FontMatrix maps design units to the em square.
	FontMatrix() matrix.Matrix

	// BBox returns the font bounding box in design units.
	BBox() rect.Rect

	// Glyph loads a glyph, given either a character code or a glyph index.
	Glyph(id fapi.GlyphID, isIndex bool) (*outline.Glyph, error)
}

func toRect(r funit.Rect16) rect.Rect {
	return rect.Rect{
		LLx: float64(r.LLx),
		LLy: float64(r.LLy),
		URx: float64(r.URx),
		URy: float64(r.URy),
	}
}

// parse reads a font file in the given format.  Files of unknown format
// are tried as sfnt first.
func parse(data []byte, format fapi.Format) (program, error) {
	switch format {
	case fapi.FormatTrueType, fapi.FormatCFF:
		return parseSfnt(data)
	case fapi.FormatType1:
		return parseType1(data)
	}
	if p, err := parseSfnt(data); err == nil {
		return p, nil
	}
	return parseType1(data)
}

type sfntProgram struct {
	info *sfnt.Font
	cmap cmap.Subtable
}

func parseSfnt(data []byte) (*sfntProgram, error) {
	info, err := sfnt.Read(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fapi.ErrInvalidFont, err)
	}
	if info.Outlines == nil || info.UnitsPerEm == 0 {
		return nil, fmt.Errorf("%w: no outlines", fapi.ErrInvalidFont)
	}
	p := &sfntProgram{info: info}
	if info.CMapTable != nil {
		// Fonts without a usable cmap can only be used with glyph indices.
		p.cmap, _ = info.CMapTable.GetBest()
	}
	return p, nil
}

func (p *sfntProgram) NumGlyphs() int {
	return p.info.NumGlyphs()
}

func (p *sfntProgram) FontMatrix() matrix.Matrix {
	if fm := p.info.FontMatrix; fm != (matrix.Matrix{}) {
		return fm
	}
	q := 1 / float64(p.info.UnitsPerEm)
	return matrix.Scale(q, q)
}

func (p *sfntProgram) BBox() rect.Rect {
	return toRect(p.info.FontBBox())
}

func (p *sfntProgram) Glyph(id fapi.GlyphID, isIndex bool) (*outline.Glyph, error) {
	var gid glyph.ID
	switch {
	case isIndex:
		if int64(id) >= int64(p.NumGlyphs()) {
			return nil, fapi.ErrRange
		}
		gid = glyph.ID(id)
	case p.cmap != nil:
		gid = p.cmap.Lookup(rune(id))
	default:
		return nil, fmt.Errorf("%w: no character map", fapi.ErrInvalidFont)
	}

	g := &outline.Glyph{
		Advance: vec.Vec2{X: float64(p.info.GlyphWidth(gid))},
		BBox:    toRect(p.info.GlyphBBox(gid)),
	}
	g.LSB = g.BBox.LLx
	for cmd, pts := range p.info.Outlines.Path(gid) {
		g.Path.Cmds = append(g.Path.Cmds, cmd)
		g.Path.Coords = append(g.Path.Coords, pts...)
	}
	return g, nil
}

type type1Program struct {
	font  *type1.Font
	names []string
}

func parseType1(data []byte) (*type1Program, error) {
	psFont, err := type1.Read(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fapi.ErrInvalidFont, err)
	}
	return newType1Program(psFont), nil
}

func newType1Program(psFont *type1.Font) *type1Program {
	return &type1Program{
		font:  psFont,
		names: psFont.GlyphList(),
	}
}

func (p *type1Program) NumGlyphs() int {
	return len(p.names)
}

func (p *type1Program) FontMatrix() matrix.Matrix {
	return p.font.FontInfo.FontMatrix
}

// BBox returns the union of the glyph bounding boxes.
func (p *type1Program) BBox() rect.Rect {
	var bbox rect.Rect
	for _, g := range p.font.Outlines.Glyphs {
		gb := outline.BBox(path.DataFromPath(g.Path()))
		if gb.IsZero() {
			continue
		}
		if bbox.IsZero() {
			bbox = gb
		} else {
			bbox.Extend(gb)
		}
	}
	return bbox
}

func (p *type1Program) Glyph(id fapi.GlyphID, isIndex bool) (*outline.Glyph, error) {
	var name string
	switch {
	case isIndex:
		if int64(id) >= int64(len(p.names)) {
			return nil, fapi.ErrRange
		}
		name = p.names[id]
	case int64(id) < int64(len(p.font.Outlines.Encoding)):
		name = p.font.Outlines.Encoding[id]
	}
	glyphs := p.font.Outlines.Glyphs
	g, ok := glyphs[name]
	if !ok {
		g, ok = glyphs[".notdef"]
	}
	if !ok {
		return nil, fmt.Errorf("%w: glyph %d not found", fapi.ErrInvalidFont, id)
	}

	res := &outline.Glyph{
		Advance: vec.Vec2{X: g.WidthX, Y: g.WidthY},
	}
	for cmd, pts := range g.Path() {
		res.Path.Cmds = append(res.Path.Cmds, cmd)
		res.Path.Coords = append(res.Path.Coords, pts...)
	}
	res.BBox = outline.BBox(&res.Path)
	res.LSB = res.BBox.LLx
	return res, nil
}
