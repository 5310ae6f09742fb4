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
	"log/slog"
)

// DefaultMaxBitmap is the default limit for the size of glyph rasters.
// Larger glyphs are rendered as outlines.
const DefaultMaxBitmap = 1 << 20

// DefaultOversample is the default number of subpixels per pixel,
// in each direction, when oversampling is requested.
const DefaultOversample = 4

// Options configure a [Server].
type Options struct {
	// Config is passed to [Backend.EnsureOpen].
	Config []byte

	// MaxBitmap limits the size of glyph rasters in bytes.
	// The default is DefaultMaxBitmap.
	MaxBitmap int

	// Oversample is the number of subpixels per pixel used when
	// oversampling.  The default is DefaultOversample.
	Oversample int
}

// faceKey identifies the scale at which a font was last prepared.
type faceKey struct {
	font          uint64
	matrix        FixedMatrix
	resolution    [2]int
	subpixels     [2]int
	alignToPixels bool
}

// Server manages the use of one backend.
//
// A Server is not safe for concurrent use.
type Server struct {
	backend    Backend
	config     []byte
	maxBitmap  int
	oversample int

	opened  bool
	openErr error

	face      faceKey
	faceValid bool

	// live is the glyph data currently held by the backend.
	live *GlyphResult

	// outline is set while the current glyph is rendered as an outline.
	outline bool

	// sticky is the first error reported by font data accessors during
	// the current backend call.
	sticky error

	owned   map[*FontData]struct{}
	pending *pipeline
}

// NewServer wraps a backend.  The backend is opened on first use.
func NewServer(b Backend, opt *Options) *Server {
	if opt == nil {
		opt = &Options{}
	}
	s := &Server{
		backend:    b,
		config:     opt.Config,
		maxBitmap:  opt.MaxBitmap,
		oversample: opt.Oversample,
		owned:      make(map[*FontData]struct{}),
	}
	if s.maxBitmap <= 0 {
		s.maxBitmap = DefaultMaxBitmap
	}
	if s.oversample <= 1 {
		s.oversample = DefaultOversample
	}
	return s
}

// Name returns the name of the backend.
func (s *Server) Name() string {
	return s.backend.Name()
}

// Backend returns the wrapped backend.
func (s *Server) Backend() Backend {
	return s.backend
}

// Live returns the glyph data currently held by the backend, or nil.
func (s *Server) Live() *GlyphResult {
	return s.live
}

// Open initialises the backend.  A failure is remembered, and later calls
// return the same error.
func (s *Server) Open() error {
	if s.opened {
		return s.openErr
	}
	err := s.call("EnsureOpen", nil, func() error {
		return s.backend.EnsureOpen(s.config)
	})
	if err != nil && errors.Is(err, ErrConfig) {
		s.opened = true
		s.openErr = err
		Logger().Warn("backend disabled", "backend", s.Name(), "error", err)
		return err
	}
	if err == nil {
		s.opened = true
	}
	return err
}

// call invokes one backend operation and classifies the resulting error.
// Errors recorded by font data accessors take precedence over the error
// returned by the backend.
func (s *Server) call(op string, f *FontData, fn func() error) error {
	s.sticky = nil
	if f != nil {
		prev := f.ctx
		f.ctx = s
		defer func() { f.ctx = prev }()
	}

	err := fn()
	if s.sticky != nil {
		err = s.sticky
		s.sticky = nil
	}
	if err == nil {
		return nil
	}

	err = classify(err)
	if isRendererInternal(err) {
		Logger().Warn("renderer error", "backend", s.Name(), "op", op, "error", err)
	}
	return &OpError{Backend: s.Name(), Op: op, Err: err}
}

// releaseLive frees the glyph data held by the backend, if any.
func (s *Server) releaseLive() {
	if s.live == nil {
		return
	}
	if err := s.live.Release(); err != nil {
		Logger().Warn("cannot release glyph data", "backend", s.Name(), "error", err)
	}
	s.live = nil
	s.pending = nil
}

// getScaledFont calls the backend to prepare a font and takes ownership
// of any backend-private handle attached to the font.
func (s *Server) getScaledFont(f *FontData, scale *FontScale, phase Phase) error {
	err := s.call("GetScaledFont", f, func() error {
		return s.backend.GetScaledFont(f, scale, nil, phase)
	})
	if f.private != nil && f.owner == nil {
		f.owner = s
		s.owned[f] = struct{}{}
	}
	return err
}

// prepareFace sets the scale of a prepared font.  Nothing is done if the
// font was last prepared with the same parameters.
func (s *Server) prepareFace(f *FontData, scale *FontScale) error {
	key := faceKey{
		font:          f.ID(),
		matrix:        scale.Matrix,
		resolution:    scale.Resolution,
		subpixels:     scale.Subpixels,
		alignToPixels: scale.AlignToPixels,
	}
	if s.faceValid && s.face == key && f.owner == s {
		Logger().Debug("face cache hit", "backend", s.Name(), "font", key.font)
		return nil
	}

	s.faceValid = false
	err := s.getScaledFont(f, scale, PhasePrepared)
	if err != nil {
		return err
	}
	s.face = key
	s.faceValid = true
	return nil
}

// releaseTypeface frees the backend state of a font owned by this server.
// The backend's ReleaseTypeface is called at most once per handle.
func (s *Server) releaseTypeface(f *FontData) error {
	if f.owner != s {
		return nil
	}
	if s.live != nil && s.live.f == f {
		s.releaseLive()
	}
	err := s.call("ReleaseTypeface", f, func() error {
		return s.backend.ReleaseTypeface(f)
	})
	f.private = nil
	f.owner = nil
	delete(s.owned, f)
	if s.face.font == f.id {
		s.faceValid = false
	}
	return err
}

// ReleaseTypeface frees the backend state of f and its descendants.
func (s *Server) ReleaseTypeface(f *FontData) error {
	var firstErr error
	for _, d := range f.Descendants {
		if err := s.ReleaseTypeface(d); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := s.releaseTypeface(f); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// SetWeightVector sets the design vector of a multiple master font.
func (s *Server) SetWeightVector(f *FontData, wv []float64) error {
	return s.call("SetWeightVector", f, func() error {
		return s.backend.SetWeightVector(f, wv)
	})
}

// Close releases all fonts still owned by the server and closes the backend.
func (s *Server) Close() error {
	s.releaseLive()

	var firstErr error
	for f := range s.owned {
		if err := s.releaseTypeface(f); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.faceValid = false

	if s.opened && s.openErr == nil {
		err := s.call("Close", nil, s.backend.Close)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		s.opened = false
	}
	return firstErr
}

func (s *Server) logAttrs() slog.Attr {
	return slog.String("backend", s.Name())
}
