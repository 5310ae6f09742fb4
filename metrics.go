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
	"encoding/binary"
	"math"

	"seehuhn.de/go/fapi/internal/binenc"
)

// DecodeRecordMetrics extracts the metrics stored in the header of a
// class 1 or class 2 glyph record.  The values are the left side bearing
// and the advance width in design units.  The last return value is false
// if the record does not carry metrics.
func DecodeRecordMetrics(rec []byte) (lsb, width int16, ok bool) {
	if len(rec) < 8 || (rec[1] != 1 && rec[1] != 2) {
		return 0, 0, false
	}
	r := binenc.NewReader(rec, binary.BigEndian)
	r.Seek(4)
	lsb = r.Int16()
	width = r.Int16()
	return lsb, width, r.Err() == nil
}

// EncodeRecordHeader returns the header of a glyph record of the given
// class, carrying the given metrics.
func EncodeRecordHeader(format, class uint8, lsb, width int16) []byte {
	w := binenc.NewWriter(binary.BigEndian)
	w.Uint8(format)
	w.Uint8(class)
	w.Uint16(0)
	w.Int16(lsb)
	w.Int16(width)
	return w.Bytes()
}

// selectMetrics determines the caller metrics for the current glyph.
//
// Metrics given in the request take precedence.  Otherwise the sources are
// tried in order: vertical metrics of the font source (for vertical
// writing), horizontal metrics of the font source, and for CID fonts
// without Type 1 data the metrics in the glyph record.
func (p *pipeline) selectMetrics() error {
	if p.req.Metrics != MetricsNone {
		p.mtype = p.req.Metrics
		p.sbw = p.req.SBW
		return nil
	}
	p.mtype = MetricsNone
	p.sbw = [4]float64{}

	f := p.f
	if f.Vertical {
		avail, sbw, err := f.Src.Metrics(p.id, true)
		if err != nil {
			return err
		}
		if avail != MetricsNotAvailable {
			p.useMetrics(avail, sbw)
			return nil
		}
		if f.CID && !f.HasType1Data && f.FileBased {
			var w float64
			avail, hm, err := f.Src.Metrics(p.id, false)
			if err == nil && avail != MetricsNotAvailable {
				w = hm[2]
			}
			bb := f.FontBBox
			p.mtype = MetricsReplace
			// The vertical advance is -URx, not the height of the box.
			p.sbw = [4]float64{w / 2, bb.URy, 0, -bb.URx}
			return nil
		}
	}

	avail, sbw, err := f.Src.Metrics(p.id, false)
	if err != nil {
		return err
	}
	if avail != MetricsNotAvailable {
		p.useMetrics(avail, sbw)
		return nil
	}

	if f.CID && !f.HasType1Data {
		p.recordMetrics()
	}
	return nil
}

func (p *pipeline) useMetrics(avail MetricsAvailability, sbw [4]float64) {
	p.sbw = sbw
	if avail == MetricsWidthOnly {
		p.mtype = MetricsReplaceWidth
	} else {
		p.mtype = MetricsReplace
	}
}

// recordMetrics uses the metrics stored in the glyph record, if any.
func (p *pipeline) recordMetrics() {
	f := p.f
	n, err := f.Src.GlyphLength(p.id)
	if err != nil || n < 8 {
		return
	}
	rec := make([]byte, n)
	if _, err := f.Src.ReadGlyph(p.id, rec); err != nil {
		return
	}
	lsb, width, ok := DecodeRecordMetrics(rec)
	if !ok {
		return
	}

	upem := unitsPerEm(f)
	fx, fy := f.FontMatrix[0], f.FontMatrix[3]
	if fx == 0 || fy == 0 {
		return
	}
	// design units -> em -> glyph space
	sx := 1 / (upem * fx)
	sy := 1 / (upem * fy)
	p.mtype = MetricsReplace
	if f.Vertical {
		p.sbw = [4]float64{0, -float64(lsb) * sy, 0, -float64(width) * sy}
	} else {
		p.sbw = [4]float64{float64(lsb) * sx, 0, float64(width) * sx, 0}
	}
}

// unitsPerEm returns the number of design units per em of a font.
func unitsPerEm(f *FontData) float64 {
	if v, err := f.Src.Word(FeatureUnitsPerEm, 0); err == nil && v > 0 {
		return float64(v)
	}
	if a := math.Abs(f.FontMatrix[0]); a > 0 {
		return math.Round(1 / a)
	}
	return 1000
}
