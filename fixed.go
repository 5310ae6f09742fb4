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
	"math"

	"golang.org/x/image/math/fixed"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// Fixed16 is a signed 16.16 fixed point number.
type Fixed16 int32

const fixed16One = 1 << 16

// ToFixed16 converts x to 16.16 fixed point.  The second return value is
// false if x cannot be represented.
func ToFixed16(x float64) (Fixed16, bool) {
	v := math.Round(x * fixed16One)
	if math.IsNaN(v) || v > math.MaxInt32 || v < math.MinInt32 {
		return 0, false
	}
	return Fixed16(v), true
}

// Float returns x as a floating point number.
func (x Fixed16) Float() float64 {
	return float64(x) / fixed16One
}

// FixedMatrix is the linear part of a transformation matrix,
// in 16.16 fixed point.  The entries are in the order of [matrix.Matrix].
type FixedMatrix [4]Fixed16

// ToFixedMatrix converts the linear part of m to fixed point.  The second
// return value is false if any coefficient overflows.
func ToFixedMatrix(m matrix.Matrix) (FixedMatrix, bool) {
	var res FixedMatrix
	for i := range res {
		v, ok := ToFixed16(m[i])
		if !ok {
			return FixedMatrix{}, false
		}
		res[i] = v
	}
	return res, true
}

// Matrix converts m back to floating point.
func (m FixedMatrix) Matrix() matrix.Matrix {
	return matrix.Matrix{m[0].Float(), m[1].Float(), m[2].Float(), m[3].Float(), 0, 0}
}

// apply maps the point (x, y) through m.
func apply(m matrix.Matrix, x, y float64) vec.Vec2 {
	return vec.Vec2{
		X: m[0]*x + m[2]*y + m[4],
		Y: m[1]*x + m[3]*y + m[5],
	}
}

// applyDelta maps the vector (x, y) through the linear part of m.
func applyDelta(m matrix.Matrix, x, y float64) vec.Vec2 {
	return vec.Vec2{
		X: m[0]*x + m[2]*y,
		Y: m[1]*x + m[3]*y,
	}
}

// transformRect returns the bounding box of the image of r under m.
func transformRect(m matrix.Matrix, r rect.Rect) rect.Rect {
	corners := [4]vec.Vec2{
		apply(m, r.LLx, r.LLy),
		apply(m, r.URx, r.LLy),
		apply(m, r.LLx, r.URy),
		apply(m, r.URx, r.URy),
	}
	res := rect.Rect{LLx: corners[0].X, LLy: corners[0].Y, URx: corners[0].X, URy: corners[0].Y}
	for _, c := range corners[1:] {
		res.LLx = min(res.LLx, c.X)
		res.LLy = min(res.LLy, c.Y)
		res.URx = max(res.URx, c.X)
		res.URy = max(res.URy, c.Y)
	}
	return res
}

// det returns the determinant of the linear part of m.
func det(m matrix.Matrix) float64 {
	return m[0]*m[3] - m[1]*m[2]
}

// maxCoeff returns the largest absolute value of the linear coefficients.
func maxCoeff(m matrix.Matrix) float64 {
	return max(math.Abs(m[0]), math.Abs(m[1]), math.Abs(m[2]), math.Abs(m[3]))
}

// toInt26_6 converts a device coordinate to 26.6 fixed point.
func toInt26_6(x float64) (fixed.Int26_6, bool) {
	v := math.Round(x * 64)
	if math.IsNaN(v) || v > math.MaxInt32 || v < math.MinInt32 {
		return 0, false
	}
	return fixed.Int26_6(v), true
}

// toPoint26_6 converts a device space point to 26.6 fixed point.
func toPoint26_6(p vec.Vec2) (fixed.Point26_6, bool) {
	x, okX := toInt26_6(p.X)
	y, okY := toInt26_6(p.Y)
	return fixed.Point26_6{X: x, Y: y}, okX && okY
}
