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

// Glyphdump renders glyphs of a font file as text.
//
// Usage:
//
//	glyphdump [options] font-file text
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"
	"golang.org/x/text/unicode/runenames"
	"seehuhn.de/go/geom/matrix"

	"seehuhn.de/go/fapi"
	"seehuhn.de/go/fapi/builtin"
	"seehuhn.de/go/fapi/ximage"
)

func main() {
	backend := flag.String("backend", "", "preferred backend (builtin or ximage)")
	config := flag.String("config", "", "backend configuration")
	size := flag.Float64("size", 24, "font size in pixels")
	oversample := flag.Bool("oversample", false, "use anti-aliased rendering")
	embolden := flag.Float64("bold", 0, "emboldening, as a fraction of the glyph height")
	verbose := flag.Bool("v", false, "log debug messages")
	flag.Parse()

	if flag.NArg() != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s [options] font-file text\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *verbose {
		h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		fapi.SetLogger(slog.New(h))
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}

	opt := &fapi.Options{Config: []byte(*config)}
	reg := fapi.NewRegistry(
		fapi.NewServer(builtin.New(), opt),
		fapi.NewServer(ximage.New(), opt))
	defer reg.Close()

	f := fapi.NewFontData(&fapi.MemSource{File: data}, formatOf(flag.Arg(0)))
	f.FileBased = true
	s, err := reg.Select(f, *backend, nil)
	if err != nil {
		log.Fatal(err)
	}
	fm, err := s.Backend().FontMatrix(f)
	if err != nil {
		log.Fatal(err)
	}
	f.FontMatrix = fm

	st := &fapi.RenderState{
		CharCTM:      fm.Mul(matrix.Scale(*size, -*size)),
		Oversampling: *oversample,
		Embolden:     *embolden,
	}

	width := 0
	if fd := int(os.Stdout.Fd()); term.IsTerminal(fd) {
		width, _, _ = term.GetSize(fd)
	}

	fmt.Printf("backend %s\n", s.Name())
	for _, r := range flag.Arg(1) {
		dev := &fapi.CacheDevice{}
		res, err := s.RenderChar(f, &fapi.GlyphRequest{ID: fapi.GlyphID(r)}, st, dev)
		if err != nil {
			log.Printf("%q: %v", r, err)
			continue
		}
		fmt.Printf("\nU+%04X %s  advance %.2f  box %v",
			r, runenames.Name(r), res.Advance.X, dev.Box)
		if res.Retry != fapi.RetryNone {
			fmt.Printf("  (%s)", res.Retry)
		}
		fmt.Println()
		dump(os.Stdout, dev, width)
	}
}

// formatOf guesses the font format from a file name.
func formatOf(fname string) fapi.Format {
	switch strings.ToLower(filepath.Ext(fname)) {
	case ".ttf":
		return fapi.FormatTrueType
	case ".otf":
		return fapi.FormatCFF
	case ".pfa", ".pfb", ".t1":
		return fapi.FormatType1
	default:
		return fapi.FormatUnknown
	}
}

// dump writes the glyph mask as text.  Lines are cut at width
// characters, if width is positive.
func dump(w io.Writer, dev *fapi.CacheDevice, width int) {
	if dev.Mask == nil {
		return
	}
	b := dev.Mask.Bounds()
	line := make([]byte, 0, b.Dx())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		line = line[:0]
		for x := b.Min.X; x < b.Max.X; x++ {
			switch {
			case x == 0 && dev.Mask.AlphaAt(x, y).A == 0:
				line = append(line, '|')
			case dev.Mask.AlphaAt(x, y).A != 0:
				line = append(line, '#')
			default:
				line = append(line, '.')
			}
		}
		if width > 0 && len(line) > width {
			line = line[:width]
		}
		fmt.Fprintf(w, "%s\n", line)
	}
}
