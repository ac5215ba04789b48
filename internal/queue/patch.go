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

// Git-queue | Patch - named reference to a single patch commit
package queue

import (
	"strings"

	"go.gitqueue.dev/gq/internal/git"
	"go.gitqueue.dev/gq/internal/refname"
)

const patchRefPrefix = "refs/patches/"

// Patch is a handle to one patch commit via its owning ref
// refs/patches/<queue>/<name>. The ref component is the escaped form of the
// patch name; Name reports the unescaped one.
type Patch struct {
	refName string
	commit  *git.Commit
}

func patchRefName(queue, name string) string {
	return patchRefPrefix + queue + "/" + refname.Escape(name)
}

// PatchFromName looks the patch up by name, returning nil when the patch
// ref does not exist.
func PatchFromName(repo *git.Repository, queue, name string) (*Patch, error) {
	refName := patchRefName(queue, name)
	ref, err := repo.References.Lookup(refName)
	if err != nil {
		if git.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	commit, err := ref.PeelToCommit()
	if err != nil {
		return nil, err
	}
	return &Patch{refName: refName, commit: commit}, nil
}

// CreatePatch creates refs/patches/<queue>/<name> at commit. Fails with
// AlreadyExists("patch") when the ref is already taken.
func CreatePatch(repo *git.Repository, queue, name string, commit *git.Oid) (*Patch, error) {
	refName := patchRefName(queue, name)
	c, err := repo.LookupCommit(commit)
	if err != nil {
		return nil, err
	}
	_, err = repo.References.Create(refName, commit, false, "new patch "+name)
	if err != nil {
		if git.IsExists(err) {
			return nil, alreadyExists("patch")
		}
		if git.IsInvalidSpec(err) {
			return nil, invalidName(err)
		}
		return nil, err
	}
	return &Patch{refName: refName, commit: c}, nil
}

// RefName is the full reference name of this patch.
func (p *Patch) RefName() string {
	return p.refName
}

// Name is the patch name as the user gave it.
func (p *Patch) Name() string {
	component := p.refName[strings.LastIndexByte(p.refName, '/')+1:]
	name, err := refname.Unescape(component)
	if err != nil {
		// the tool always writes Escape()-produced components; a ref that
		// does not decode was created by hand
		return component
	}
	return name
}

// Id is the object id of the patch commit.
func (p *Patch) Id() *git.Oid {
	return p.commit.Id()
}

// AmendSpec carries the optional overrides of Amend. A nil Tree keeps the
// commit's tree; an empty Message keeps the commit's message.
type AmendSpec struct {
	Message string
	Tree    *git.Tree
}

// Amend recomposes the patch commit with the spec's overrides, keeping
// authorship and parents, refreshing the committer from the current
// repository identity, and moves the patch ref to the new commit in the
// same operation. Returns the new commit id.
func (p *Patch) Amend(repo *git.Repository, spec AmendSpec) (*git.Oid, error) {
	committer, err := repo.DefaultSignature()
	if err != nil {
		return nil, err
	}

	oid, err := p.commit.Amend(p.refName, committer, spec.Message, spec.Tree)
	if err != nil {
		return nil, err
	}

	commit, err := repo.LookupCommit(oid)
	if err != nil {
		return nil, err
	}
	p.commit = commit

	return p.Id(), nil
}
