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

// Git wrapper | references, branches and HEAD
package git

import (
	"errors"
	"runtime"

	git2go "github.com/libgit2/git2go/v31"
)

// IsNotFound reports whether err is the git2go "reference/object not found"
// error, the condition read paths use to report "absent" instead of failing.
func IsNotFound(err error) bool {
	return git2go.IsErrorCode(err, git2go.ErrorCodeNotFound)
}

// IsExists reports whether err is the git2go "already exists" error.
func IsExists(err error) bool {
	return git2go.IsErrorCode(err, git2go.ErrorCodeExists)
}

// IsInvalidSpec reports whether err is the git2go "invalid refspec" error.
func IsInvalidSpec(err error) bool {
	return git2go.IsErrorCode(err, git2go.ErrorCodeInvalidSpec)
}

// IsUnbornBranch reports whether err indicates HEAD points at a branch with
// no commits yet.
func IsUnbornBranch(err error) bool {
	return git2go.IsErrorCode(err, git2go.ErrorCodeUnbornBranch)
}

// ErrorClass returns the git2go error class of err, or ErrorClassNone if err
// does not carry a *git2go.GitError anywhere in its chain.
func ErrorClass(err error) git2go.ErrorClass {
	var gerr *git2go.GitError
	if errors.As(err, &gerr) {
		return gerr.Class
	}
	return git2go.ErrorClassNone
}

func (r *Reference) Name() string {
	name := stringsClone(r.ref.Name())
	runtime.KeepAlive(r)
	return name
}

func (r *Reference) IsBranch() bool { return r.ref.IsBranch() }

// PeelToCommit resolves r (following symbolic refs and tags) to the commit
// it ultimately points at.
func (r *Reference) PeelToCommit() (*Commit, error) {
	obj, err := r.ref.Peel(ObjectCommit)
	if err != nil {
		return nil, err
	}
	commit, err := obj.AsCommit()
	if err != nil {
		return nil, err
	}
	return &Commit{commit}, nil
}

// Delete removes the reference from the repository's reference database.
func (r *Reference) Delete() error {
	return r.ref.Delete()
}

func (r *Reference) AsBranch() *Branch {
	return &Branch{&git2go.Branch{Reference: r.ref}}
}

// Head returns the reference HEAD currently points at (possibly symbolic).
func (r *Repository) Head() (*Reference, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return nil, err
	}
	return &Reference{ref}, nil
}

// SetHeadToRef moves HEAD to point at the given fully qualified ref name,
// without touching the working tree or index.
func (r *Repository) SetHeadToRef(refname string) error {
	return r.repo.SetHead(refname)
}

// CreateBranch creates a local branch pointing at target. force=false makes
// this fail with IsExists(err) when the branch ref is already taken.
func (r *Repository) CreateBranch(name string, target *Commit, force bool) (*Branch, error) {
	b, err := r.repo.CreateBranch(name, target.commit, force)
	if err != nil {
		return nil, err
	}
	return &Branch{b}, nil
}

// LookupBranch finds a local branch by short name ("main", not
// "refs/heads/main"). Returns a not-found error when absent.
func (r *Repository) LookupBranch(name string, bt BranchType) (*Branch, error) {
	b, err := r.repo.LookupBranch(name, bt)
	if err != nil {
		return nil, err
	}
	return &Branch{b}, nil
}

func (b *Branch) Name() (string, error) {
	name, err := b.branch.Name()
	return stringsClone(name), err
}

func (b *Branch) Reference() *Reference {
	return &Reference{b.branch.Reference}
}

func (b *Branch) IsHead() bool {
	isHead, _ := b.branch.IsHead()
	return isHead
}

func (b *Branch) Delete() error {
	return b.branch.Delete()
}

// BranchIterator walks the repository's local branches.
type BranchIterator struct {
	it *git2go.BranchIterator
}

// NewBranchIterator returns an iterator over branches of the given type.
func (r *Repository) NewBranchIterator(bt BranchType) (*BranchIterator, error) {
	it, err := r.repo.NewBranchIterator(bt)
	if err != nil {
		return nil, err
	}
	return &BranchIterator{it}, nil
}

// Next returns the next branch, or (nil, bt, git2go's iterator-over error)
// once exhausted; callers should check IsIterOver.
func (it *BranchIterator) Next() (*Branch, BranchType, error) {
	b, bt, err := it.it.Next()
	if err != nil {
		return nil, bt, err
	}
	return &Branch{b}, bt, nil
}

// IsIterOver reports whether err is the git2go "iterator exhausted" sentinel.
func IsIterOver(err error) bool {
	return git2go.IsErrorCode(err, git2go.ErrorCodeIterOver)
}

func (it *BranchIterator) Free() {
	it.it.Free()
}
