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

// Git-queue | Context - repository, configuration and identity of one run
package queue

import (
	"os"

	"go.gitqueue.dev/gq/internal/git"
)

// Context carries everything one command invocation needs: the repository
// enclosing the working directory, its configuration, the configured
// signature and the GPG settings. It is created once at CLI entry and
// threaded explicitly through every operation.
type Context struct {
	Repo   *git.Repository
	Config *git.Config
	User   *git.Signature
	Gpg    *Gpg
}

// CurrentContext discovers the repository enclosing the current working
// directory and loads its configuration and signature.
func CurrentContext() (*Context, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, notInRepository(err)
	}
	return ContextAt(cwd)
}

// ContextAt is CurrentContext starting from an explicit directory.
func ContextAt(dir string) (*Context, error) {
	repo, err := git.OpenRepository(dir)
	if err != nil {
		return nil, notInRepository(err)
	}
	cfg, err := repo.Config()
	if err != nil {
		return nil, err
	}
	user, err := repo.DefaultSignature()
	if err != nil {
		return nil, err
	}

	return &Context{
		Repo:   repo,
		Config: cfg,
		User:   user,
		Gpg:    GpgFromConfig(cfg),
	}, nil
}

// CurrentBranch returns the branch HEAD points at, or nil when HEAD is
// detached or unborn.
func (ctx *Context) CurrentBranch() (*git.Branch, error) {
	head, err := ctx.Repo.Head()
	if err != nil {
		if git.IsUnbornBranch(err) {
			return nil, nil
		}
		return nil, err
	}
	if !head.IsBranch() {
		return nil, nil
	}
	return head.AsBranch(), nil
}

// FindBranch looks a local branch up by short name, returning nil when it
// does not exist.
func (ctx *Context) FindBranch(name string) (*git.Branch, error) {
	b, err := ctx.Repo.LookupBranch(name, git.BranchLocal)
	if err != nil {
		if git.IsNotFound(err) {
			return nil, nil
		}
		if git.IsInvalidSpec(err) {
			return nil, invalidName(err)
		}
		return nil, err
	}
	return b, nil
}

// CheckoutBranch checks the branch's tree out into the working tree and
// moves HEAD to the branch. merge selects the three-way conflict style;
// conflicts stay in the working tree for the caller to inspect.
func (ctx *Context) CheckoutBranch(branch *git.Branch, merge bool) error {
	tree, err := branch.Reference().PeelToTree()
	if err != nil {
		return err
	}
	strategy := git.CheckoutSafe
	if merge {
		strategy |= git.CheckoutConflictStyleMerge
	}
	err = ctx.Repo.CheckoutTree(tree, strategy)
	if err != nil {
		return err
	}
	return ctx.Repo.SetHeadToRef(branch.Reference().Name())
}
