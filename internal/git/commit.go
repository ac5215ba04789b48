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

// Git wrapper | tree construction and commit creation/amend
package git

import (
	"runtime"

	git2go "github.com/libgit2/git2go/v31"
)

// TreeBuilder incrementally edits a tree starting from an existing one.
type TreeBuilder struct {
	repo *Repository
	tb   *git2go.TreeBuilder
}

// TreeBuilderFromTree starts a tree builder seeded with base's entries; a
// nil base starts from an empty tree.
func (r *Repository) TreeBuilderFromTree(base *Tree) (*TreeBuilder, error) {
	var tb *git2go.TreeBuilder
	var err error
	if base != nil {
		tb, err = r.repo.TreeBuilderFromTree(base.tree)
	} else {
		tb, err = r.repo.TreeBuilder()
	}
	if err != nil {
		return nil, err
	}
	return &TreeBuilder{repo: r, tb: tb}, nil
}

// Insert adds or overwrites the entry at filename.
func (tb *TreeBuilder) Insert(filename string, id *Oid, mode Filemode) error {
	return tb.tb.Insert(filename, id, mode)
}

// Write flushes the builder to the object database and returns the new tree.
func (tb *TreeBuilder) Write() (*Tree, error) {
	oid, err := tb.tb.Write()
	if err != nil {
		return nil, err
	}
	return tb.repo.LookupTree(oid)
}

func (tb *TreeBuilder) Free() {
	tb.tb.Free()
}

func (t *Tree) Id() *Oid {
	return oidClone(t.tree.Id())
}

// CreateBlob writes data as a blob object and returns its id.
func (r *Repository) CreateBlob(data []byte) (*Oid, error) {
	odb, err := r.Odb()
	if err != nil {
		return nil, err
	}
	return odb.Write(data, ObjectBlob)
}

// CreateCommit writes a new commit object and, when refname is non-empty,
// fast-forwards that reference to it. parents is intentionally a slice (not
// variadic) so callers building a long, programmatically-assembled parent
// list - exactly the queue log's case - don't need to spread it.
func (r *Repository) CreateCommit(refname string, author, committer *Signature, message string, tree *Tree, parents []*Commit) (*Oid, error) {
	parentCommits := make([]*git2go.Commit, len(parents))
	for i, p := range parents {
		parentCommits[i] = p.commit
	}
	oid, err := r.repo.CreateCommit(refname, author, committer, message, tree.tree, parentCommits...)
	if err != nil {
		return nil, err
	}
	return oidClone(oid), nil
}

// Amend rewrites the commit like `git commit --amend`: an empty message
// keeps the existing message, a nil tree keeps the existing tree, author
// and parents are always preserved, the committer becomes sig. When refname
// is non-empty the reference is moved to the new commit in the same
// operation.
func (c *Commit) Amend(refname string, sig *Signature, message string, tree *Tree) (*Oid, error) {
	var treep *git2go.Tree
	if tree != nil {
		treep = tree.tree
	}
	if message == "" {
		message = c.commit.Message()
	}
	oid, err := c.commit.Amend(refname, nil, sig, message, treep)
	if err != nil {
		return nil, err
	}
	oid = oidClone(oid)
	runtime.KeepAlive(c)
	return oid, err
}
