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

package outline

import (
	"errors"
	"math"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"

	"seehuhn.de/go/fapi"
)

// Shift is the number of fractional bits of the emitted coordinates.
const Shift = 16

const maxCoord = 1 << 62

func toFixed(v float64) int64 {
	v = math.Round(v * (1 << Shift))
	switch {
	case v >= maxCoord:
		return maxCoord
	case v <= -maxCoord:
		return -maxCoord
	case math.IsNaN(v):
		return maxCoord
	}
	return int64(v)
}

// Emit sends an outline, transformed by m, to sink.  Segments rejected
// by the sink are skipped.
func Emit(sink *fapi.PathSink, d *path.Data, m matrix.Matrix) error {
	sink.Shift = Shift

	pt := func(i int) (int64, int64) {
		q := apply(m, d.Coords[i])
		return toFixed(q.X), toFixed(q.Y)
	}

	k := 0
	for _, cmd := range d.Cmds {
		var err error
		switch cmd {
		case path.CmdMoveTo:
			x, y := pt(k)
			err = sink.MoveTo(x, y)
			k++
		case path.CmdLineTo:
			x, y := pt(k)
			err = sink.LineTo(x, y)
			k++
		case path.CmdQuadTo:
			x1, y1 := pt(k)
			x2, y2 := pt(k + 1)
			err = sink.QuadTo(x1, y1, x2, y2)
			k += 2
		case path.CmdCubeTo:
			x1, y1 := pt(k)
			x2, y2 := pt(k + 1)
			x3, y3 := pt(k + 2)
			err = sink.CurveTo(x1, y1, x2, y2, x3, y3)
			k += 3
		case path.CmdClose:
			err = sink.ClosePath()
		}
		if err != nil && !errors.Is(err, fapi.ErrUndefinedResult) {
			return err
		}
	}
	return nil
}
