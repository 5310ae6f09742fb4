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

	"seehuhn.de/go/postscript/cid"
)

// GlyphMetricsEntry holds caller declared metrics for one glyph.
type GlyphMetricsEntry struct {
	Avail MetricsAvailability
	SBW   [4]float64
}

// MemSource is a [FontSource] which keeps all font data in memory.
type MemSource struct {
	// File is a complete font file, or nil.
	File []byte

	Glyphs      map[GlyphID][]byte
	Subrs       [][]byte
	GlobalSubrs [][]byte
	Features    map[Feature][]float64

	HMetrics map[GlyphID]GlyphMetricsEntry
	VMetrics map[GlyphID]GlyphMetricsEntry

	// VerticalGlyphs maps glyphs to their vertical writing mode substitutes.
	VerticalGlyphs map[GlyphID]GlyphID

	// CIDMap maps the CIDs of a CID-keyed font to glyph indices.
	CIDMap map[cid.CID]GlyphID
}

var (
	_ FontSource = (*MemSource)(nil)
	_ CIDMapper  = (*MemSource)(nil)
)

func (s *MemSource) glyph(id GlyphID) ([]byte, error) {
	data, ok := s.Glyphs[id]
	if !ok {
		return nil, fmt.Errorf("%w: no data for glyph %d", ErrInvalidFont, id)
	}
	return data, nil
}

// GlyphLength implements [FontSource].
func (s *MemSource) GlyphLength(id GlyphID) (int, error) {
	data, err := s.glyph(id)
	return len(data), err
}

// ReadGlyph implements [FontSource].
func (s *MemSource) ReadGlyph(id GlyphID, buf []byte) (int, error) {
	data, err := s.glyph(id)
	if err != nil {
		return 0, err
	}
	if len(buf) < len(data) {
		return 0, fmt.Errorf("%w: buffer too short for glyph %d", ErrLimitCheck, id)
	}
	return copy(buf, data), nil
}

func (s *MemSource) feature(f Feature, index int) (float64, error) {
	vals := s.Features[f]
	if index < 0 || index >= len(vals) {
		return 0, fmt.Errorf("%w: feature %s[%d]", ErrUnsupported, f, index)
	}
	return vals[index], nil
}

// Word implements [FontSource].
func (s *MemSource) Word(f Feature, index int) (uint16, error) {
	v, err := s.feature(f, index)
	return uint16(v), err
}

// Long implements [FontSource].
func (s *MemSource) Long(f Feature, index int) (uint32, error) {
	v, err := s.feature(f, index)
	return uint32(v), err
}

// Float implements [FontSource].
func (s *MemSource) Float(f Feature, index int) (float64, error) {
	return s.feature(f, index)
}

func entry(list [][]byte, index int, what string) ([]byte, error) {
	if index < 0 || index >= len(list) {
		return nil, fmt.Errorf("%w: %s %d", ErrInvalidFont, what, index)
	}
	return list[index], nil
}

// SubrLength implements [FontSource].
func (s *MemSource) SubrLength(index int) (int, error) {
	data, err := entry(s.Subrs, index, "subroutine")
	return len(data), err
}

// ReadSubr implements [FontSource].
func (s *MemSource) ReadSubr(index int, buf []byte) (int, error) {
	data, err := entry(s.Subrs, index, "subroutine")
	if err != nil {
		return 0, err
	}
	return copy(buf, data), nil
}

// GlobalSubrLength implements [FontSource].
func (s *MemSource) GlobalSubrLength(index int) (int, error) {
	data, err := entry(s.GlobalSubrs, index, "global subroutine")
	return len(data), err
}

// ReadGlobalSubr implements [FontSource].
func (s *MemSource) ReadGlobalSubr(index int, buf []byte) (int, error) {
	data, err := entry(s.GlobalSubrs, index, "global subroutine")
	if err != nil {
		return 0, err
	}
	return copy(buf, data), nil
}

// FontLength implements [FontSource].
func (s *MemSource) FontLength() (int, error) {
	if s.File == nil {
		return 0, fmt.Errorf("%w: no embedded font file", ErrUnsupported)
	}
	return len(s.File), nil
}

// SerializeFont implements [FontSource].
func (s *MemSource) SerializeFont(buf []byte) (int, error) {
	if s.File == nil {
		return 0, fmt.Errorf("%w: no embedded font file", ErrUnsupported)
	}
	if len(buf) < len(s.File) {
		return 0, fmt.Errorf("%w: buffer too short for font file", ErrLimitCheck)
	}
	return copy(buf, s.File), nil
}

// Metrics implements [FontSource].
func (s *MemSource) Metrics(id GlyphID, vertical bool) (MetricsAvailability, [4]float64, error) {
	m := s.HMetrics
	if vertical {
		m = s.VMetrics
	}
	e, ok := m[id]
	if !ok {
		return MetricsNotAvailable, [4]float64{}, nil
	}
	return e.Avail, e.SBW, nil
}

// VerticalGlyph implements [VerticalSubstituter].
func (s *MemSource) VerticalGlyph(id GlyphID) (GlyphID, bool) {
	v, ok := s.VerticalGlyphs[id]
	return v, ok
}

// GlyphIndex implements [CIDMapper].
func (s *MemSource) GlyphIndex(c cid.CID) (GlyphID, bool) {
	gid, ok := s.CIDMap[c]
	return gid, ok
}
