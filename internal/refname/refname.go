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

// Package refname escapes arbitrary names so that git is happy to use them
// as reference components.
//
// Patch names are user input; a name such as "wip..fix" or "fix.lock" is not
// a valid ref component, so the patch ref namespace stores names in escaped
// form and display paths unescape them back.
package refname

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Escape escapes path so that git accepts it as a ref.
// https://git.kernel.org/cgit/git/git.git/tree/refs.c?h=v2.9.0-37-g6d523a3#n34
// XXX very suboptimal
func Escape(path string) string {
	outv := []string{}
	for _, component := range strings.Split(path, "/") {
		out := ""
		dots := 0 // number of seen consecutive dots
		for len(component) > 0 {
			r, size := utf8.DecodeRuneInString(component)

			// no ".." anywhere - we replace dots run to %46%46... with trailing "."
			// this way for single "." case we'll have it intact and avoid .. anywhere
			// also this way: trailing .git is always encoded as ".git"
			if r == '.' {
				dots += 1
				component = component[size:]
				continue
			}
			if dots != 0 {
				out += strings.Repeat(escape("."), dots-1)
				out += "."
				dots = 0
			}

			rbytes := component[:size]
			if shouldEscape(r) {
				rbytes = escape(rbytes)
			}
			out += rbytes
			component = component[size:]
		}

		// handle trailing dots
		if dots != 0 {
			out += strings.Repeat(escape("."), dots-1)
			out += "."
		}

		if len(out) > 0 {
			// ^. not allowed
			if out[0] == '.' {
				out = escape(".") + out[1:]
			}
			// .lock$ not allowed
			if strings.HasSuffix(out, ".lock") {
				out = out[:len(out)-5] + escape(".") + "lock"
			}
		}
		outv = append(outv, out)
	}

	// strip trailing /
	for len(outv) > 0 {
		if len(outv[len(outv)-1]) != 0 {
			break
		}
		outv = outv[:len(outv)-1]
	}
	return strings.Join(outv, "/")
}

func shouldEscape(r rune) bool {
	if unicode.IsSpace(r) || unicode.IsControl(r) {
		return true
	}
	switch r {
	// NOTE RuneError is for always escaping non-valid UTF-8
	case ':', '?', '[', '\\', '^', '~', '*', '@', '%', utf8.RuneError:
		return true
	}
	return false
}

func escape(s string) string {
	out := ""
	for i := 0; i < len(s); i++ {
		out += fmt.Sprintf("%%%02X", s[i])
	}
	return out
}

// Unescape decodes a name encoded by Escape().
// Decoding is permissive - any byte can be %-encoded, not only special cases.
// XXX very suboptimal
func Unescape(s string) (string, error) {
	l := len(s)
	out := make([]byte, 0, len(s))
	for i := 0; i < l; i++ {
		c := s[i]
		if c == '%' {
			if i+2 >= l {
				return "", EscapeError(s)
			}
			b, err := hex.DecodeString(s[i+1 : i+3])
			if err != nil {
				return "", EscapeError(s)
			}

			c = b[0]
			i += 2
		}
		out = append(out, c)
	}
	return string(out), nil
}

type EscapeError string

func (e EscapeError) Error() string {
	return fmt.Sprintf("%q: invalid escape format", string(e))
}
