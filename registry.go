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
)

// ErrNoBackend is returned by [Registry.Select] if no backends are registered.
var ErrNoBackend = fmt.Errorf("%w: no backend available", ErrInvalidFont)

// Registry holds the available servers, in order of preference.
type Registry struct {
	servers []*Server
}

// NewRegistry creates a registry for the given servers.
func NewRegistry(servers ...*Server) *Registry {
	return &Registry{servers: servers}
}

// Names returns the names of the registered backends in order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.servers))
	for i, s := range r.servers {
		names[i] = s.Name()
	}
	return names
}

// Find returns the server for the named backend, or nil if there is none.
func (r *Registry) Find(name string) *Server {
	for _, s := range r.servers {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

// Select finds a server which can render f and prepares the font.
//
// The preferred backend is tried first, if it is registered.  After this,
// the remaining servers are tried in order.  No server is tried twice.
// If all servers fail, the last error is returned.
func (r *Registry) Select(f *FontData, preferred string, opt *PrepareOptions) (*Server, error) {
	tried := make(map[*Server]bool, len(r.servers))
	lastErr := ErrNoBackend

	try := func(s *Server) bool {
		tried[s] = true
		err := r.tryServer(s, f, opt)
		if err == nil {
			return true
		}
		Logger().Warn("backend rejected font",
			s.logAttrs(), "font", f.ID(), "error", err)
		lastErr = err
		return false
	}

	if preferred != "" {
		if s := r.Find(preferred); s != nil && try(s) {
			return s, nil
		}
	}
	for _, s := range r.servers {
		if tried[s] {
			continue
		}
		if try(s) {
			return s, nil
		}
	}
	return nil, lastErr
}

func (r *Registry) tryServer(s *Server, f *FontData, opt *PrepareOptions) error {
	if err := s.Open(); err != nil {
		return err
	}
	if err := releaseForeign(s, f); err != nil {
		Logger().Warn("cannot release font", "font", f.ID(), "error", err)
	}
	return s.PrepareFont(f, opt)
}

// releaseForeign frees the state of f and its descendants held by
// servers other than s.
func releaseForeign(s *Server, f *FontData) error {
	var errs []error
	for _, d := range f.Descendants {
		errs = append(errs, releaseForeign(s, d))
	}
	if f.owner != nil && f.owner != s {
		errs = append(errs, f.owner.releaseTypeface(f))
	}
	return errors.Join(errs...)
}

// Close closes all servers.
func (r *Registry) Close() error {
	var errs []error
	for _, s := range r.servers {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
