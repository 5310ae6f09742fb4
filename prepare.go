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
	"math"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
)

// minProvisionalSize is the smallest em size, in design units, at which
// fonts are prepared.
const minProvisionalSize = 1000

// maxProvisionalSize keeps the provisional matrix within 16.16 range.
const maxProvisionalSize = 16384

// PrepareOptions control [Server.PrepareFont].
type PrepareOptions struct {
	// RefineBBox replaces the declared font bounding box by the one
	// reported by the backend.  This only applies to file based fonts.
	RefineBBox bool

	// WeightVector is passed to the backend for multiple master fonts.
	WeightVector []float64
}

// provisionalScale returns the scale used to prepare a font: one point
// per design unit, but at least minProvisionalSize points per em.
func provisionalScale(f *FontData) *FontScale {
	size := float64(minProvisionalSize)
	if a := math.Abs(f.FontMatrix[0]); a > 0 {
		size = max(size, math.Round(1/a))
	}
	size = min(size, maxProvisionalSize)
	m, _ := ToFixedMatrix(matrix.Scale(size, size))
	return &FontScale{
		Matrix:     m,
		Resolution: [2]int{72, 72},
		Subpixels:  [2]int{1, 1},
	}
}

// PrepareFont makes the backend build its font object for f.
//
// For composite fonts, every descendant is prepared.  If any descendant
// fails, all descendants prepared so far are released again.
func (s *Server) PrepareFont(f *FontData, opt *PrepareOptions) error {
	if opt == nil {
		opt = &PrepareOptions{}
	}
	s.releaseLive()
	defer func() { s.faceValid = false }()

	var err error
	if f.IsComposite() {
		err = s.prepareComposite(f)
	} else {
		err = s.getScaledFont(f, provisionalScale(f), PhaseToplevelBegin)
	}
	if err != nil {
		return err
	}

	if len(opt.WeightVector) > 0 {
		err = s.SetWeightVector(f, opt.WeightVector)
		if errors.Is(err, ErrUnsupported) {
			Logger().Debug("weight vector ignored", s.logAttrs(), "font", f.ID())
		} else if err != nil {
			return err
		}
	}

	if opt.RefineBBox && f.FileBased {
		s.refineBBox(f)
	}
	return nil
}

func (s *Server) prepareComposite(f *FontData) error {
	// A composite font built by the interpreter has no font object of
	// its own in the backend.
	if f.FileBased {
		err := s.getScaledFont(f, provisionalScale(f), PhaseToplevelBegin)
		if err != nil {
			s.releasePartial(f, nil)
			return err
		}
	}

	var done []*FontData
	for i, d := range f.Descendants {
		scale := provisionalScale(d)
		scale.Descendant = i
		err := s.getScaledFont(d, scale, PhaseDescendant)
		done = append(done, d)
		if err != nil {
			s.releasePartial(f, done)
			return err
		}
	}

	err := s.getScaledFont(f, provisionalScale(f), PhaseToplevelComplete)
	if err != nil {
		s.releasePartial(f, done)
		return err
	}
	return nil
}

// releasePartial frees the backend state of a partially prepared
// composite font.
func (s *Server) releasePartial(f *FontData, done []*FontData) {
	for _, d := range done {
		if err := s.releaseTypeface(d); err != nil {
			Logger().Warn("cannot release descendant", s.logAttrs(), "font", d.ID(), "error", err)
		}
	}
	if err := s.releaseTypeface(f); err != nil {
		Logger().Warn("cannot release font", s.logAttrs(), "font", f.ID(), "error", err)
	}
}

// refineBBox replaces the declared bounding box of f by the one
// reported by the backend.  If the backend has no bounding box,
// the declared one is kept.
func (s *Server) refineBBox(f *FontData) {
	var bbox rect.Rect
	var upem float64
	err := s.call("FontBBox", f, func() error {
		var err error
		bbox, upem, err = s.backend.FontBBox(f)
		return err
	})
	if err != nil || bbox.IsZero() || upem <= 0 || det(f.FontMatrix) == 0 {
		Logger().Debug("keeping declared FontBBox", s.logAttrs(), "font", f.ID(), "error", err)
		return
	}

	em := rect.Rect{
		LLx: bbox.LLx / upem,
		LLy: bbox.LLy / upem,
		URx: bbox.URx / upem,
		URy: bbox.URy / upem,
	}
	inv := f.FontMatrix.Inv()
	inv[4], inv[5] = 0, 0
	f.FontBBox = transformRect(inv, em)
}
