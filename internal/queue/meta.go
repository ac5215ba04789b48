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

// Git-queue | Metadata codec for log entries
//
// Each log entry commit carries a blob `meta` with the JSON-encoded record
// below. Version 1 of the record has the fields:
//
//	version:   1
//	previous:  oid of the previous log entry; key absent for the initial entry
//	head:      the queue head when the entry was created
//	base_name: full ref name of the branch the queue was created from
//	base:      oid of the last commit before the applied series
//	applied:   list of applied patch names, bottom-first
//	unapplied: list of unapplied patch names
//	patches:   map patch name -> commit oid
//
// Encoding is deterministic: struct fields keep declaration order and
// encoding/json sorts the patches map by key, so two entries with equal
// state produce byte-identical blobs and therefore identical trees.
package queue

import (
	"bytes"
	"encoding/json"

	"go.gitqueue.dev/gq/internal/git"
)

const metaVersion = 1

// logEntry is the in-memory form of one decoded metadata record.
type logEntry struct {
	previous  *git.Oid // nil for the initial entry
	head      *git.Oid
	base      *git.Oid
	baseName  string
	applied   []string
	unapplied []string
	patches   map[string]*git.Oid
}

// metaV1 is the wire form; object ids travel as lowercase hex strings.
type metaV1 struct {
	Version   int               `json:"version"`
	Previous  string            `json:"previous,omitempty"`
	Head      string            `json:"head"`
	BaseName  string            `json:"base_name"`
	Base      string            `json:"base"`
	Applied   []string          `json:"applied"`
	Unapplied []string          `json:"unapplied"`
	Patches   map[string]string `json:"patches"`
}

func encodeMeta(e *logEntry) ([]byte, error) {
	m := metaV1{
		Version:   metaVersion,
		Head:      e.head.String(),
		BaseName:  e.baseName,
		Base:      e.base.String(),
		Applied:   e.applied,
		Unapplied: e.unapplied,
		Patches:   make(map[string]string, len(e.patches)),
	}
	if e.previous != nil {
		m.Previous = e.previous.String()
	}
	if m.Applied == nil {
		m.Applied = []string{}
	}
	if m.Unapplied == nil {
		m.Unapplied = []string{}
	}
	for name, oid := range e.patches {
		m.Patches[name] = oid.String()
	}
	return json.MarshalIndent(&m, "", "  ")
}

func decodeMeta(data []byte) (*logEntry, error) {
	var m metaV1
	dec := json.NewDecoder(bytes.NewReader(data))
	// unknown fields come from future record versions - reject early
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, invalidMetadata("expected meta content to be a JSON record")
	}
	if m.Version != metaVersion {
		return nil, invalidMetadata("unsupported meta version")
	}

	e := &logEntry{
		baseName:  m.BaseName,
		applied:   m.Applied,
		unapplied: m.Unapplied,
		patches:   make(map[string]*git.Oid, len(m.Patches)),
	}
	if e.applied == nil {
		e.applied = []string{}
	}
	if e.unapplied == nil {
		e.unapplied = []string{}
	}

	var err error
	if m.Previous != "" {
		e.previous, err = git.ParseOid(m.Previous)
		if err != nil {
			return nil, invalidMetadata("previous is not a valid oid")
		}
	}
	e.head, err = git.ParseOid(m.Head)
	if err != nil {
		return nil, invalidMetadata("head is not a valid oid")
	}
	e.base, err = git.ParseOid(m.Base)
	if err != nil {
		return nil, invalidMetadata("base is not a valid oid")
	}
	for name, hexOid := range m.Patches {
		e.patches[name], err = git.ParseOid(hexOid)
		if err != nil {
			return nil, invalidMetadata("patch oid is not a valid oid")
		}
	}
	return e, nil
}

// checkConsistent verifies the record-level invariants: applied and
// unapplied are disjoint and together cover exactly domain(patches).
func (e *logEntry) checkConsistent() error {
	seen := StrSet{}
	for _, name := range e.applied {
		if seen.Contains(name) {
			return invalidMetadata("patch listed twice")
		}
		seen.Add(name)
	}
	for _, name := range e.unapplied {
		if seen.Contains(name) {
			return invalidMetadata("patch listed twice")
		}
		seen.Add(name)
	}
	if len(seen) != len(e.patches) {
		return invalidMetadata("patch lists do not match patches map")
	}
	for name := range e.patches {
		if !seen.Contains(name) {
			return invalidMetadata("patch lists do not match patches map")
		}
	}
	return nil
}
