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

// Git-queue | Queue state log - persistent chain of states
//
// Each queue has a log attached to it in the ref refs/queuelogs/<queue>.
// The log tracks every operation executed on the queue: one commit per
// operation, whose message describes the operation, whose tree carries the
// metadata record (see meta.go) and whose parents pin every object the
// state references:
//
//   - the previous entry commit,
//   - the repository HEAD commit when the entry was created,
//   - every patch commit, applied or unapplied.
//
// The parent set is a reachability anchor: anything a metadata record
// mentions stays an ancestor of the log tip, so the object database cannot
// collect it. HEAD is pinned even when it is unrelated to the queue, which
// keeps the user's branch tip at each operation around for future undo.
package queue

import (
	"fmt"
	"sort"

	"go.gitqueue.dev/gq/internal/git"
)

// next derives an uncommitted copy of a committed state. The copy is deep:
// mutating it never touches the parent state.
func (s *State) next() *State {
	if s.oid == nil {
		panic("tried to get next state from an uncommitted one")
	}

	applied := make([]string, len(s.entry.applied))
	copy(applied, s.entry.applied)
	unapplied := make([]string, len(s.entry.unapplied))
	copy(unapplied, s.entry.unapplied)
	patches := make(map[string]*git.Oid, len(s.entry.patches))
	for name, oid := range s.entry.patches {
		patches[name] = oid
	}

	return &State{
		refName: s.refName,
		entry: logEntry{
			previous:  s.oid,
			head:      s.entry.head,
			base:      s.entry.base,
			baseName:  s.entry.baseName,
			applied:   applied,
			unapplied: unapplied,
			patches:   patches,
		},
	}
}

// commit writes the uncommitted state as a new log entry and fast-forwards
// the queue log ref to it.
func (s *State) commit(repo *git.Repository, user *git.Signature, message string) error {
	if s.oid != nil {
		panic("tried to commit already committed entry")
	}
	if s.entry.previous == nil {
		panic("tried to commit root state")
	}

	prev, err := repo.LookupCommit(s.entry.previous)
	if err != nil {
		return err
	}
	prevTree, err := prev.Tree()
	if err != nil {
		return err
	}
	tree, err := s.entry.buildTree(repo, prevTree)
	if err != nil {
		return err
	}

	headRef, err := repo.Head()
	if err != nil {
		return err
	}
	headCommit, err := headRef.PeelToCommit()
	if err != nil {
		return err
	}

	parents := []*git.Commit{prev, headCommit}
	// sorted so the parent order is stable within a single commit
	names := make([]string, 0, len(s.entry.patches))
	for name := range s.entry.patches {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		patch, err := repo.LookupCommit(s.entry.patches[name])
		if err != nil {
			return err
		}
		parents = append(parents, patch)
	}

	oid, err := repo.CreateCommit(s.refName, user, user, message, tree, parents)
	if err != nil {
		return err
	}
	s.oid = oid
	return nil
}

// CreateNext derives the next state from s, lets f mutate it, and commits
// it as a new log entry with the given message. Both the committed state and
// f's result are returned. If f or the commit fails the log ref is not
// moved and s stays the tip.
func CreateNext[T any](s *State, repo *git.Repository, user *git.Signature, message string, f func(*State) (T, error)) (*State, T, error) {
	next := s.next()

	res, err := f(next)
	if err != nil {
		var zero T
		return nil, zero, err
	}

	if err := next.commit(repo, user, message); err != nil {
		var zero T
		return nil, zero, err
	}

	return next, res, nil
}

// buildTree derives the entry's tree from the previous entry's tree,
// replacing only the meta blob.
func (e *logEntry) buildTree(repo *git.Repository, prev *git.Tree) (*git.Tree, error) {
	builder, err := repo.TreeBuilderFromTree(prev)
	if err != nil {
		return nil, err
	}
	defer builder.Free()

	data, err := encodeMeta(e)
	if err != nil {
		return nil, fmt.Errorf("encode meta: %w", err)
	}
	metaOid, err := repo.CreateBlob(data)
	if err != nil {
		return nil, err
	}

	err = builder.Insert("meta", metaOid, git.FilemodeBlob)
	if err != nil {
		return nil, err
	}
	return builder.Write()
}
