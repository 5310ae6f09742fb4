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
	"testing"
)

func TestOpenConfigError(t *testing.T) {
	b := &fakeBackend{openErr: fmt.Errorf("%w: bad key", ErrConfig)}
	s := NewServer(b, nil)

	for range 2 {
		if err := s.Open(); !errors.Is(err, ErrConfig) {
			t.Errorf("expected config error, got %v", err)
		}
	}
	if err := s.Close(); err != nil {
		t.Error(err)
	}
	if b.closed != 0 {
		t.Error("backend closed after failed open")
	}
}

func TestOpenRetry(t *testing.T) {
	b := &fakeBackend{openErr: ErrVM}
	s := NewServer(b, nil)
	if err := s.Open(); !errors.Is(err, ErrVM) {
		t.Errorf("got %v", err)
	}
	// Other errors are not remembered.
	b.openErr = nil
	if err := s.Open(); err != nil {
		t.Error(err)
	}
}

func TestReleaseTypeface(t *testing.T) {
	b := &fakeBackend{}
	s := NewServer(b, nil)
	f := compositeFont(2)
	if err := s.PrepareFont(f, nil); err != nil {
		t.Fatal(err)
	}

	if err := s.ReleaseTypeface(f); err != nil {
		t.Fatal(err)
	}
	if len(b.released) != 3 {
		t.Errorf("released %d fonts, want 3", len(b.released))
	}
	// Releasing again has no effect.
	if err := s.ReleaseTypeface(f); err != nil {
		t.Fatal(err)
	}
	if len(b.released) != 3 {
		t.Errorf("released %d fonts after second call", len(b.released))
	}
}

func TestInvalidate(t *testing.T) {
	b := &fakeBackend{raster: testRaster()}
	s, f := setup(t, b)
	if _, err := s.RenderChar(f, &GlyphRequest{ID: 1}, testState(12), &recordingDevice{}); err != nil {
		t.Fatal(err)
	}

	id := f.ID()
	if err := f.Invalidate(); err != nil {
		t.Fatal(err)
	}
	if f.ID() == id {
		t.Error("font id unchanged")
	}
	if len(b.released) != 1 || f.Private() != nil {
		t.Error("backend state not released")
	}

	// The next glyph prepares the font again.
	n := b.count(PhasePrepared)
	if _, err := s.RenderChar(f, &GlyphRequest{ID: 1}, testState(12), &recordingDevice{}); err != nil {
		t.Fatal(err)
	}
	if b.count(PhasePrepared) != n+1 {
		t.Error("face cache not invalidated")
	}
}

func TestGlyphResultRelease(t *testing.T) {
	b := &fakeBackend{raster: testRaster()}
	s, f := setup(t, b)
	if _, err := s.RenderChar(f, &GlyphRequest{ID: 1}, testState(12), &recordingDevice{deferred: true}); err != nil {
		t.Fatal(err)
	}

	g := s.Live()
	if g == nil || g.outline {
		t.Fatalf("unexpected live glyph %v", g)
	}
	for range 2 {
		if err := g.Release(); err != nil {
			t.Fatal(err)
		}
	}
	if b.charReleases != 1 || s.Live() != nil {
		t.Errorf("glyph data released %d times", b.charReleases)
	}
}

func TestServerDefaults(t *testing.T) {
	s := NewServer(&fakeBackend{}, &Options{MaxBitmap: -1, Oversample: 1})
	if s.maxBitmap != DefaultMaxBitmap || s.oversample != DefaultOversample {
		t.Errorf("got %d %d", s.maxBitmap, s.oversample)
	}
	s = NewServer(&fakeBackend{}, &Options{MaxBitmap: 100, Oversample: 2})
	if s.maxBitmap != 100 || s.oversample != 2 {
		t.Errorf("got %d %d", s.maxBitmap, s.oversample)
	}
}
