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

// Package fapi connects the font machinery of a page description language
// interpreter to pluggable font rendering backends.
//
// A [Backend] turns font data into glyph outlines and bitmaps.  Each backend
// is wrapped in a [Server], which keeps track of the fonts prepared by the
// backend and of the glyph data the backend currently holds.  A [Registry]
// lists the available servers in order of preference, and picks the first
// one which accepts a given font:
//
//	reg := fapi.NewRegistry(
//	    fapi.NewServer(builtin.New(), nil),
//	    fapi.NewServer(ximage.New(), nil),
//	)
//	defer reg.Close()
//
//	s, err := reg.Select(font, "", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Glyphs are then rendered with [Server.RenderChar].  The resulting
// metrics are installed in the glyph cache of a [Device], and the glyph
// is delivered either as a bitmap or as a filled path:
//
//	dev := &fapi.CacheDevice{}
//	res, err := s.RenderChar(font, &fapi.GlyphRequest{ID: gid, IsGlyphIndex: true}, st, dev)
//
// Fonts are described by [FontData].  Backends read glyph programs and font
// parameters through the [FontSource] callbacks of the font, so that fonts
// which are built glyph by glyph in the interpreter can be rendered as well
// as complete font files.
//
// Backends report failures using the error values defined in this package.
// [ErrInvalidFont] makes the registry try the next backend, [ErrVM] causes
// a glyph to be rendered from its outline, and [ErrLimitCheck] switches off
// oversampling.  Each kind of retry happens at most once per glyph, and
// glyphs rendered from their outline are not retried.
//
// Diagnostic output is written to the logger set by [SetLogger].  By
// default, nothing is logged.
package fapi
