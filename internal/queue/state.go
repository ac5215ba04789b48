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

// Git-queue | Queue state - one stack at one point in time
package queue

import (
	"fmt"
	"strings"

	"go.gitqueue.dev/gq/internal/git"
)

const queueLogPrefix = "refs/queuelogs/"

// State is the queue state at a specific point in time: the decoded metadata
// record of one log entry plus the entry's own identity. A State with oid ==
// nil is being built but not yet committed; every committed State is
// immutable - mutations go through CreateNext.
type State struct {
	oid     *git.Oid // nil while uncommitted
	refName string
	entry   logEntry
}

func queueLogRefName(queue string) string {
	return queueLogPrefix + queue
}

// CurrentForQueue reads the tip of refs/queuelogs/<queue> and decodes its
// meta blob.
//
// If the log ref does not exist the returned error satisfies
// git.IsNotFound, so callers can distinguish "absent" from "broken"; any
// other failure while peeling the tip or extracting meta surfaces as
// Inconsistency("queuelog reference").
func CurrentForQueue(repo *git.Repository, queue string) (*State, error) {
	refName := queueLogRefName(queue)
	ref, err := repo.References.Lookup(refName)
	if err != nil {
		return nil, err
	}

	commit, err := ref.PeelToCommit()
	if err != nil {
		return nil, inconsistency("queuelog reference")
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, inconsistency("queuelog reference")
	}
	metaEntry := tree.EntryByName("meta")
	if metaEntry == nil || metaEntry.Type != git.ObjectBlob {
		return nil, inconsistency("queuelog reference")
	}
	odb, err := repo.Odb()
	if err != nil {
		return nil, inconsistency("queuelog reference")
	}
	metaObj, err := odb.Read(metaEntry.Id)
	if err != nil {
		return nil, inconsistency("queuelog reference")
	}
	entry, err := decodeMeta(metaObj.Data())
	if err != nil {
		return nil, inconsistency("queuelog reference")
	}
	if err := entry.checkConsistent(); err != nil {
		return nil, inconsistency("queuelog reference")
	}

	return &State{
		oid:     commit.Id(),
		refName: refName,
		entry:   *entry,
	}, nil
}

// NewState creates the initial state for queue on top of base and commits
// the initial log entry: head = base = tip(base), empty patch lists, the
// base commit as only parent.
func NewState(repo *git.Repository, queue string, base *git.Branch, user *git.Signature) (*State, error) {
	refName := queueLogRefName(queue)
	if _, err := repo.References.Lookup(refName); err == nil {
		return nil, alreadyExists("queuelog")
	}

	baseCommit, err := base.Reference().PeelToCommit()
	if err != nil {
		return nil, err
	}
	baseOid := baseCommit.Id()
	baseName := base.Reference().Name()

	s := &State{
		refName: refName,
		entry: logEntry{
			head:      baseOid,
			base:      baseOid,
			baseName:  baseName,
			applied:   []string{},
			unapplied: []string{},
			patches:   map[string]*git.Oid{},
		},
	}

	baseTree, err := baseCommit.Tree()
	if err != nil {
		return nil, err
	}
	tree, err := s.entry.buildTree(repo, baseTree)
	if err != nil {
		return nil, err
	}

	// there is no previous entry, nor patches to anchor
	oid, err := repo.CreateCommit(refName, user, user, "initialise stack log", tree, []*git.Commit{baseCommit})
	if err != nil {
		return nil, err
	}
	s.oid = oid
	return s, nil
}

// Oid is the log entry commit this state was loaded from; nil while the
// state is being built inside CreateNext.
func (s *State) Oid() *git.Oid { return s.oid }

// Gitref is the full name of the queue log reference.
func (s *State) Gitref() string { return s.refName }

// Name is the queue name, i.e. the log ref name without its namespace.
func (s *State) Name() string { return s.refName[len(queueLogPrefix):] }

// Head is the queue head commit of this state.
func (s *State) Head() *git.Oid { return s.entry.head }

// SetHead changes the queue head of an uncommitted state. Mutators passed
// to CreateNext use it when the operation moves the top of the series.
func (s *State) SetHead(oid *git.Oid) { s.entry.head = oid }

// Base is the commit immediately below the applied series.
func (s *State) Base() *git.Oid { return s.entry.base }

// BaseName is the full ref name of the branch the queue was created from.
func (s *State) BaseName() string { return s.entry.baseName }

func (s *State) PatchesNum() int { return len(s.entry.patches) }

func (s *State) HasPatch(name string) bool {
	_, ok := s.entry.patches[name]
	return ok
}

// NamedOid is one (patch name, commit oid) element of Applied/Unapplied.
type NamedOid struct {
	Name string
	Oid  *git.Oid
}

// Applied lists the applied patches bottom-first with their commits.
func (s *State) Applied() []NamedOid {
	return s.namedOids(s.entry.applied)
}

// Unapplied lists the unapplied patches with their commits.
func (s *State) Unapplied() []NamedOid {
	return s.namedOids(s.entry.unapplied)
}

func (s *State) namedOids(names []string) []NamedOid {
	v := make([]NamedOid, len(names))
	for i, name := range names {
		v[i] = NamedOid{name, s.entry.patches[name]}
	}
	return v
}

// Pop moves the top applied patch to the top of the unapplied pile. The head
// becomes the new top applied patch, or - when the last applied patch was
// popped - the first parent of the popped commit, obtained via getParent.
//
// No-op when nothing is applied.
func (s *State) Pop(getParent func(*git.Oid) (*git.Oid, error)) error {
	if len(s.entry.applied) == 0 {
		return nil
	}

	last := len(s.entry.applied) - 1
	patch := s.entry.applied[last]
	patchOid := s.entry.patches[patch]
	s.entry.applied = s.entry.applied[:last]
	s.entry.unapplied = append(s.entry.unapplied, patch)

	if len(s.entry.applied) > 0 {
		s.entry.head = s.entry.patches[s.entry.applied[len(s.entry.applied)-1]]
	} else {
		parent, err := getParent(patchOid)
		if err != nil {
			return err
		}
		s.entry.head = parent
	}
	return nil
}

// Push moves the top unapplied patch back onto the applied series and makes
// it the head. No-op when nothing is unapplied.
func (s *State) Push() {
	if len(s.entry.unapplied) == 0 {
		return
	}

	last := len(s.entry.unapplied) - 1
	patch := s.entry.unapplied[last]
	s.entry.unapplied = s.entry.unapplied[:last]
	s.entry.head = s.entry.patches[patch]
	s.entry.applied = append(s.entry.applied, patch)
}

// RenamePatch renames a patch in the state, rewriting whichever of the
// applied/unapplied lists contains it.
//
// Panics if there is no patch with the old name; use HasPatch first.
func (s *State) RenamePatch(oldName, newName string) {
	oid, ok := s.entry.patches[oldName]
	if !ok {
		panic(fmt.Sprintf("patch %s not found in state", oldName))
	}

	delete(s.entry.patches, oldName)
	s.entry.patches[newName] = oid

	if i := index(s.entry.applied, oldName); i >= 0 {
		s.entry.applied[i] = newName
	} else if i := index(s.entry.unapplied, oldName); i >= 0 {
		s.entry.unapplied[i] = newName
	}
}

// UpsertPatch updates or creates a patch oid in the state. A new patch
// enters at the top of the applied series.
func (s *State) UpsertPatch(name string, commit *git.Oid) {
	if !s.HasPatch(name) {
		s.entry.applied = append(s.entry.applied, name)
	}
	s.entry.patches[name] = commit
}

func index(v []string, s string) int {
	for i, e := range v {
		if e == s {
			return i
		}
	}
	return -1
}

// IsQueueBranch reports whether a branch name, short ("queues/work") or full
// ("refs/heads/queues/work"), belongs to the queue namespace, returning the
// queue name when it does.
func IsQueueBranch(refName string) (string, bool) {
	short := strings.TrimPrefix(refName, "refs/heads/")
	if rest, ok := strings.CutPrefix(short, "queues/"); ok && rest != "" {
		return rest, true
	}
	return "", false
}
