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
	"strconv"
)

// Error classes.  Errors returned by this package and by backends can be
// tested against these values using [errors.Is].
var (
	// ErrConfig indicates that a backend could not be initialised.
	// Only this backend is affected.
	ErrConfig = errors.New("fapi: configuration error")

	// ErrInvalidFont indicates that a backend cannot render a font.
	// The registry reacts by trying the next backend.
	ErrInvalidFont = errors.New("fapi: invalid font")

	// ErrVM indicates that a backend ran out of memory while producing
	// a raster.  The glyph is retried in outline mode.
	ErrVM = errors.New("fapi: VMerror")

	// ErrLimitCheck indicates that a size limit was exceeded.  When
	// oversampling was active, the glyph is retried without it.
	ErrLimitCheck = errors.New("fapi: limitcheck")

	// ErrUndefinedResult indicates that part of a glyph could not be
	// represented in device space.  The affected part is left empty.
	ErrUndefinedResult = errors.New("fapi: undefined result")

	// ErrUnsupported indicates that a backend does not implement an
	// optional operation.
	ErrUnsupported = errors.New("fapi: not supported")

	// ErrRange indicates a glyph index outside the font.
	ErrRange = fmt.Errorf("%w: glyph index out of range", ErrInvalidFont)
)

// RendererError carries a status code native to a rendering engine.
// Negative codes are renderer internal errors and are passed to the
// caller unchanged.  All other codes are treated as [ErrInvalidFont].
type RendererError struct {
	Backend string
	Code    int
}

func (err *RendererError) Error() string {
	return "fapi: " + err.Backend + ": renderer error " + strconv.Itoa(err.Code)
}

// Is reports positive codes as invalid font errors.
func (err *RendererError) Is(target error) bool {
	return target == ErrInvalidFont && err.Code >= 0
}

// OpError records the backend and operation which caused an error.
type OpError struct {
	Backend string
	Op      string
	Err     error
}

func (err *OpError) Error() string {
	return "fapi: " + err.Backend + " " + err.Op + ": " + err.Err.Error()
}

func (err *OpError) Unwrap() error {
	return err.Err
}

// knownClasses lists the error classes which cross the backend boundary
// without modification.
var knownClasses = []error{
	ErrConfig, ErrInvalidFont, ErrVM, ErrLimitCheck, ErrUndefinedResult, ErrUnsupported,
}

// classify maps an error returned by a backend into the error taxonomy
// of this package.  Errors which belong to a known class are returned
// unchanged, as are renderer internal errors.  Everything else becomes
// an invalid font error which wraps the original error.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var rErr *RendererError
	if errors.As(err, &rErr) && rErr.Code < 0 {
		return err
	}
	for _, class := range knownClasses {
		if errors.Is(err, class) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrInvalidFont, err)
}

// isRendererInternal reports whether err is a renderer internal error.
func isRendererInternal(err error) bool {
	var rErr *RendererError
	return errors.As(err, &rErr) && rErr.Code < 0
}
