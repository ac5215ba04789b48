// Copyright (C) 2025  Nexedi SA and Contributors.
//                     Kirill Smelkov <kirr@nexedi.com>
//
// This program is free software: you can Use, Study, Modify and Redistribute
// it under the terms of the GNU General Public License version 3, or (at your
// option) any later version, as published by the Free Software Foundation.
//
// This program is distributed WITHOUT ANY WARRANTY; without even the implied
// warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
//
// See COPYING file for full licensing terms.

// Git wrapper | configuration access
package git

import (
	"runtime"
)

// Config returns the repository's configuration (repository layer over the
// global/system layers, the way `git config` resolves it).
func (r *Repository) Config() (*Config, error) {
	cfg, err := r.repo.Config()
	if err != nil {
		return nil, err
	}
	return &Config{cfg}, nil
}

// LookupString reads a string configuration entry. Absent entries return an
// error satisfying IsNotFound.
func (c *Config) LookupString(name string) (string, error) {
	s, err := c.cfg.LookupString(name)
	s = stringsClone(s)
	runtime.KeepAlive(c)
	return s, err
}

// SetString writes a string configuration entry into the repository layer.
func (c *Config) SetString(name, value string) error {
	return c.cfg.SetString(name, value)
}
