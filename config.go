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
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/exp/maps"
)

// Config holds the settings parsed from a backend configuration blob.
type Config map[string]string

// ParseConfig parses a configuration blob.  The blob is a list of
// key=value pairs, separated by semicolons or by the platform list
// separator.  Empty entries are ignored.  A key without a value is
// set to "true".
func ParseConfig(blob []byte) (Config, error) {
	cfg := make(Config)
	fields := strings.FieldsFunc(string(blob), func(r rune) bool {
		return r == ';' || r == os.PathListSeparator || r == '\n'
	})
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		key, value, found := strings.Cut(field, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("%w: missing key in %q", ErrConfig, field)
		}
		if !found {
			value = "true"
		}
		cfg[key] = strings.TrimSpace(value)
	}
	return cfg, nil
}

// Keys returns the configured keys in sorted order.
func (c Config) Keys() []string {
	keys := maps.Keys(c)
	slices.Sort(keys)
	return keys
}

// String returns the value for key, or def if the key is not set.
func (c Config) String(key, def string) string {
	if v, ok := c[key]; ok {
		return v
	}
	return def
}

// Int returns the integer value for key, or def if the key is not set.
func (c Config) Int(key string, def int) (int, error) {
	v, ok := c[key]
	if !ok {
		return def, nil
	}
	x, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrConfig, key, v)
	}
	return x, nil
}

// Bool returns the boolean value for key, or def if the key is not set.
func (c Config) Bool(key string, def bool) (bool, error) {
	v, ok := c[key]
	if !ok {
		return def, nil
	}
	x, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q is not a boolean", ErrConfig, key, v)
	}
	return x, nil
}

// CheckKeys returns an error if the configuration contains keys
// not listed in allowed.
func (c Config) CheckKeys(allowed ...string) error {
	for _, key := range c.Keys() {
		if !slices.Contains(allowed, key) {
			return fmt.Errorf("%w: unknown setting %q", ErrConfig, key)
		}
	}
	return nil
}
