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

// Package queue layers a patch-queue abstraction on top of a git
// repository.
//
// A queue is a named stack of patches owned by a branch under
// refs/heads/queues/, with an append-only operation log on
// refs/queuelogs/ that makes every state change recoverable and keeps
// every referenced object safe from garbage collection. See log.go for the
// log layout.
package queue

import (
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"go.gitqueue.dev/gq/internal/git"
)

const queueBranchPrefix = "queues/"

// Queue binds a user-facing queue branch to its state log.
type Queue struct {
	branch *git.Branch
	state  *State
	ctx    *Context
}

func queueBranchName(queue string) string {
	return queueBranchPrefix + queue
}

// ForQueue looks a queue up by name. Returns nil when the queue branch does
// not exist; a branch whose queue log is missing surfaces as
// Inconsistency("queuelog").
func ForQueue(ctx *Context, name string) (*Queue, error) {
	branch, err := ctx.Repo.LookupBranch(queueBranchName(name), git.BranchLocal)
	if err != nil {
		if git.IsNotFound(err) {
			return nil, nil
		}
		if git.IsInvalidSpec(err) {
			return nil, invalidName(err)
		}
		return nil, err
	}

	state, err := CurrentForQueue(ctx.Repo, name)
	if err != nil {
		if git.IsNotFound(err) {
			return nil, inconsistency("queuelog")
		}
		return nil, err
	}

	return &Queue{branch: branch, state: state, ctx: ctx}, nil
}

// Current returns the queue whose branch HEAD is on, or nil when HEAD is
// not on a queue branch.
func Current(ctx *Context) (*Queue, error) {
	branch, err := ctx.CurrentBranch()
	if err != nil {
		return nil, err
	}
	if branch == nil {
		// no current branch, no current queue
		return nil, nil
	}

	name, err := branch.Name()
	if err != nil {
		return nil, err
	}
	if !utf8.ValidString(name) {
		return nil, nonUtf8()
	}
	if queueName, ok := IsQueueBranch(name); ok {
		return ForQueue(ctx, queueName)
	}
	return nil, nil
}

// Initialize creates a queue named name on top of base: the queue branch at
// tip(base), then the initial log entry. Returns nil when a queue with that
// name already exists, leaving all refs untouched.
//
// The branch is created before the log ref; if log creation fails the bare
// branch is left behind and a later List reports it as inconsistent.
func Initialize(ctx *Context, name string, base *git.Branch) (*Queue, error) {
	if name == "" || strings.ContainsRune(name, '/') {
		return nil, invalidName(nil)
	}

	baseCommit, err := base.Reference().PeelToCommit()
	if err != nil {
		return nil, err
	}

	branch, err := ctx.Repo.CreateBranch(queueBranchName(name), baseCommit, false)
	if err != nil {
		if git.IsExists(err) {
			return nil, nil
		}
		if git.IsInvalidSpec(err) {
			return nil, invalidName(err)
		}
		return nil, err
	}

	state, err := NewState(ctx.Repo, name, base, ctx.User)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("queue", name).Str("base", state.BaseName()).Msg("initialized queue")
	return &Queue{branch: branch, state: state, ctx: ctx}, nil
}

// ListItem is one result of List: a queue, or the error that one branch of
// the queues namespace produced.
type ListItem struct {
	Queue *Queue
	Err   error
}

// List yields a queue per local branch under the queues namespace. A branch
// whose log ref is missing yields an Inconsistency("queuelog") item instead
// of a queue.
func List(ctx *Context) ([]ListItem, error) {
	it, err := ctx.Repo.NewBranchIterator(git.BranchLocal)
	if err != nil {
		return nil, err
	}
	defer it.Free()

	var items []ListItem
	for {
		branch, _, err := it.Next()
		if err != nil {
			if git.IsIterOver(err) {
				return items, nil
			}
			return nil, err
		}

		name, err := branch.Name()
		if err != nil {
			return nil, err
		}
		if !utf8.ValidString(name) {
			items = append(items, ListItem{Err: nonUtf8()})
			continue
		}
		queueName, ok := IsQueueBranch(name)
		if !ok {
			continue
		}

		q, err := ForQueue(ctx, queueName)
		switch {
		case err != nil:
			items = append(items, ListItem{Err: err})
		case q == nil:
			items = append(items, ListItem{Err: inconsistency("queuelog")})
		default:
			items = append(items, ListItem{Queue: q})
		}
	}
}

// Name is the queue name.
func (q *Queue) Name() string {
	return q.state.Name()
}

// BaseName is the full ref name of the branch the queue was created from.
func (q *Queue) BaseName() string {
	return q.state.BaseName()
}

// State is the queue state at the log tip.
func (q *Queue) State() *State {
	return q.state
}

func (q *Queue) PatchesNum() int {
	return q.state.PatchesNum()
}

// IsCurrent reports whether HEAD is on this queue's branch.
func (q *Queue) IsCurrent() bool {
	return q.branch.IsHead()
}

// CanClose reports whether the queue may be closed: no patches left.
func (q *Queue) CanClose() bool {
	return q.state.PatchesNum() == 0
}

// SwitchTo checks the queue branch out and moves HEAD to it. merge selects
// the three-way conflict style for local modifications.
func (q *Queue) SwitchTo(merge bool) error {
	log.Debug().Str("queue", q.Name()).Bool("merge", merge).Msg("switching to queue")
	return q.ctx.CheckoutBranch(q.branch, merge)
}

// Close deletes the queue branch and then the queue log ref. A log ref that
// was already removed, maybe manually, is tolerated with a warning; the
// branch goes first so that a partial failure leaves a recoverable log-only
// remnant rather than an orphan branch.
//
// Panics when the queue is current or still has patches; callers check
// IsCurrent and CanClose first.
func (q *Queue) Close() error {
	if q.IsCurrent() {
		panic("tried to close current queue")
	}
	if q.state.PatchesNum() != 0 {
		panic("tried to close queue with associated patches")
	}

	if err := q.branch.Delete(); err != nil {
		return err
	}

	logRef, err := q.ctx.Repo.References.Lookup(q.state.Gitref())
	if err != nil {
		if git.IsNotFound(err) {
			log.Warn().Str("ref", q.state.Gitref()).Msg("reference was already deleted!")
			return nil
		}
		return err
	}
	return logRef.Delete()
}

// CloseForce is the close path that would also drop pending patches. The
// patch-removal semantics are not defined yet, so the request is refused
// instead of guessing.
func (q *Queue) CloseForce() error {
	return usageError("cannot force-close %s: removal of pending patches is not implemented", q.Name())
}

// NewPatch creates refs/patches/<queue>/<name> at commit and records the
// patch at the top of the applied series in a new log entry.
func (q *Queue) NewPatch(name string, commit *git.Oid) (*Patch, error) {
	patch, err := CreatePatch(q.ctx.Repo, q.Name(), name, commit)
	if err != nil {
		return nil, err
	}

	state, _, err := CreateNext(q.state, q.ctx.Repo, q.ctx.User, "new patch "+name,
		func(next *State) (struct{}, error) {
			next.UpsertPatch(name, commit)
			next.SetHead(commit)
			return struct{}{}, nil
		})
	if err != nil {
		return nil, err
	}
	q.state = state

	log.Debug().Str("queue", q.Name()).Str("patch", name).Msg("created patch")
	return patch, nil
}
