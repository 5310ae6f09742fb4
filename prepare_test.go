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
	"testing"

	"github.com/google/go-cmp/cmp"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
)

func compositeFont(n int) *FontData {
	top := testFont()
	top.FileBased = true
	for range n {
		top.Descendants = append(top.Descendants, testFont())
	}
	return top
}

func TestPrepareComposite(t *testing.T) {
	b := &fakeBackend{}
	s := NewServer(b, nil)
	f := compositeFont(3)

	err := s.PrepareFont(f, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []Phase{PhaseToplevelBegin, PhaseDescendant, PhaseDescendant, PhaseDescendant, PhaseToplevelComplete}
	if d := cmp.Diff(want, b.phases); d != "" {
		t.Errorf("phases (-want +got):\n%s", d)
	}
	for i := 1; i <= 3; i++ {
		if b.scales[i].Descendant != i-1 {
			t.Errorf("descendant index: got %d, want %d", b.scales[i].Descendant, i-1)
		}
	}
}

func TestPrepareCompositeBuiltByInterpreter(t *testing.T) {
	b := &fakeBackend{}
	s := NewServer(b, nil)
	f := compositeFont(2)
	f.FileBased = false

	err := s.PrepareFont(f, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []Phase{PhaseDescendant, PhaseDescendant, PhaseToplevelComplete}
	if d := cmp.Diff(want, b.phases); d != "" {
		t.Errorf("phases (-want +got):\n%s", d)
	}
}

func TestPrepareCompositeFailure(t *testing.T) {
	f := compositeFont(3)
	bad := f.Descendants[1]
	b := &fakeBackend{
		prepareErr: func(g *FontData, scale *FontScale, phase Phase) error {
			if g == bad {
				return ErrInvalidFont
			}
			return nil
		},
	}
	s := NewServer(b, nil)

	err := s.PrepareFont(f, nil)
	if !errors.Is(err, ErrInvalidFont) {
		t.Fatalf("expected invalid font, got %v", err)
	}

	released := make(map[*FontData]bool)
	for _, g := range b.released {
		if released[g] {
			t.Error("font released twice")
		}
		released[g] = true
	}
	for _, g := range []*FontData{f, f.Descendants[0], bad} {
		if !released[g] {
			t.Errorf("font %d not released", g.ID())
		}
	}
	if released[f.Descendants[2]] {
		t.Error("unprepared descendant released")
	}
	for _, g := range append(f.Descendants, f) {
		if g.Private() != nil {
			t.Errorf("font %d still has backend state", g.ID())
		}
	}
	if b.count(PhaseToplevelComplete) != 0 {
		t.Error("composite completed after failure")
	}
}

func TestProvisionalScale(t *testing.T) {
	cases := []struct {
		fm   matrix.Matrix
		size float64
	}{
		{matrix.Matrix{0.001, 0, 0, 0.001, 0, 0}, 1000},
		{matrix.Matrix{1.0 / 2048, 0, 0, 1.0 / 2048, 0, 0}, 2048},
		{matrix.Matrix{0.01, 0, 0, 0.01, 0, 0}, 1000},
		{matrix.Matrix{1e-6, 0, 0, 1e-6, 0, 0}, 16384},
		{matrix.Matrix{}, 1000},
	}
	for _, c := range cases {
		f := testFont()
		f.FontMatrix = c.fm
		sc := provisionalScale(f)
		want, _ := ToFixedMatrix(matrix.Scale(c.size, c.size))
		if sc.Matrix != want {
			t.Errorf("%v: got %v, want %v", c.fm, sc.Matrix, want)
		}
		if sc.Resolution != [2]int{72, 72} {
			t.Errorf("%v: resolution %v", c.fm, sc.Resolution)
		}
	}
}

func TestPrepareWeightVector(t *testing.T) {
	b := &fakeBackend{}
	s := NewServer(b, nil)
	f := testFont()

	wv := []float64{0.25, 0.75}
	err := s.PrepareFont(f, &PrepareOptions{WeightVector: wv})
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff([][]float64{wv}, b.weightVectors); d != "" {
		t.Errorf("weight vectors (-want +got):\n%s", d)
	}
}

func TestRefineBBox(t *testing.T) {
	b := &fakeBackend{
		bbox: rect.Rect{LLx: -100, LLy: -200, URx: 900, URy: 800},
		upem: 1000,
	}
	s := NewServer(b, nil)

	declared := rect.Rect{LLx: 0, LLy: 0, URx: 1000, URy: 1000}
	for _, fileBased := range []bool{false, true} {
		f := testFont()
		f.FileBased = fileBased
		f.FontBBox = declared

		err := s.PrepareFont(f, &PrepareOptions{RefineBBox: true})
		if err != nil {
			t.Fatal(err)
		}

		want := declared
		if fileBased {
			want = b.bbox
		}
		if d := cmp.Diff(want, f.FontBBox, approx); d != "" {
			t.Errorf("file based %t: bbox (-want +got):\n%s", fileBased, d)
		}
	}

	// Without a backend bounding box, the declared one is kept.
	b.upem = 0
	f := testFont()
	f.FileBased = true
	f.FontBBox = declared
	if err := s.PrepareFont(f, &PrepareOptions{RefineBBox: true}); err != nil {
		t.Fatal(err)
	}
	if f.FontBBox != declared {
		t.Errorf("declared bbox replaced by %v", f.FontBBox)
	}
}
