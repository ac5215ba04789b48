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

package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.gitqueue.dev/gq/internal/git"
)

// testContext builds a throwaway repository with one commit on main and
// returns a context over it.
func testContext(t *testing.T) *Context {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.InitRepository(dir, false)
	require.NoError(t, err)

	cfg, err := repo.Config()
	require.NoError(t, err)
	require.NoError(t, cfg.SetString("user.name", "Test User"))
	require.NoError(t, cfg.SetString("user.email", "test@example.com"))
	require.NoError(t, repo.SetHeadToRef("refs/heads/main"))

	commitTree(t, repo, "HEAD", "initial commit", "hello.txt", "hello\n", nil)

	ctx, err := ContextAt(dir)
	require.NoError(t, err)
	return ctx
}

// commitTree writes a one-file tree and commits it, optionally updating a
// ref and chaining onto parents.
func commitTree(t *testing.T, repo *git.Repository, refname, message, file, content string, parents []*git.Commit) *git.Oid {
	t.Helper()

	blob, err := repo.CreateBlob([]byte(content))
	require.NoError(t, err)
	tb, err := repo.TreeBuilderFromTree(nil)
	require.NoError(t, err)
	defer tb.Free()
	require.NoError(t, tb.Insert(file, blob, git.FilemodeBlob))
	tree, err := tb.Write()
	require.NoError(t, err)

	sig, err := repo.DefaultSignature()
	require.NoError(t, err)
	oid, err := repo.CreateCommit(refname, sig, sig, message, tree, parents)
	require.NoError(t, err)
	return oid
}

func mainBranch(t *testing.T, ctx *Context) *git.Branch {
	t.Helper()
	b, err := ctx.FindBranch("main")
	require.NoError(t, err)
	require.NotNil(t, b)
	return b
}

func mainTip(t *testing.T, ctx *Context) *git.Oid {
	t.Helper()
	c, err := mainBranch(t, ctx).Reference().PeelToCommit()
	require.NoError(t, err)
	return c.Id()
}

func lookupCommit(t *testing.T, ctx *Context, refName string) *git.Commit {
	t.Helper()
	ref, err := ctx.Repo.References.Lookup(refName)
	require.NoError(t, err)
	c, err := ref.PeelToCommit()
	require.NoError(t, err)
	return c
}

// headParent resolves a commit's first parent; the oracle Pop consults when
// the last applied patch goes away.
func headParent(ctx *Context) func(*git.Oid) (*git.Oid, error) {
	return func(oid *git.Oid) (*git.Oid, error) {
		c, err := ctx.Repo.LookupCommit(oid)
		if err != nil {
			return nil, err
		}
		return c.ParentId(0), nil
	}
}

func TestInitializeFromEmpty(t *testing.T) {
	ctx := testContext(t)
	c0 := mainTip(t, ctx)

	q, err := Initialize(ctx, "work", mainBranch(t, ctx))
	require.NoError(t, err)
	require.NotNil(t, q)

	// queue branch at the base tip
	assert.Equal(t, c0, lookupCommit(t, ctx, "refs/heads/queues/work").Id())

	// initial log entry: single parent C0, meta-carrying tree on top of C0's
	l0 := lookupCommit(t, ctx, "refs/queuelogs/work")
	assert.Equal(t, uint(1), l0.ParentCount())
	assert.Equal(t, c0, l0.ParentId(0))
	assert.Equal(t, "initialise stack log", l0.Message())

	tree, err := l0.Tree()
	require.NoError(t, err)
	meta := tree.EntryByName("meta")
	require.NotNil(t, meta)
	assert.Equal(t, git.ObjectBlob, meta.Type)
	// paths of the previous tree are preserved
	assert.NotNil(t, tree.EntryByName("hello.txt"))

	s := q.State()
	assert.Equal(t, "work", s.Name())
	assert.Equal(t, c0, s.Head())
	assert.Equal(t, c0, s.Base())
	assert.Equal(t, "refs/heads/main", s.BaseName())
	assert.Empty(t, s.Applied())
	assert.Empty(t, s.Unapplied())
	assert.Equal(t, 0, s.PatchesNum())
	assert.Equal(t, l0.Id(), s.Oid())
}

func TestInitializeDuplicate(t *testing.T) {
	ctx := testContext(t)

	q, err := Initialize(ctx, "work", mainBranch(t, ctx))
	require.NoError(t, err)
	require.NotNil(t, q)
	l0 := lookupCommit(t, ctx, "refs/queuelogs/work").Id()

	// second initialize returns nil and leaves all refs untouched
	q2, err := Initialize(ctx, "work", mainBranch(t, ctx))
	require.NoError(t, err)
	assert.Nil(t, q2)
	assert.Equal(t, l0, lookupCommit(t, ctx, "refs/queuelogs/work").Id())
}

func TestInitializeInvalidName(t *testing.T) {
	ctx := testContext(t)

	for _, name := range []string{"", "a/b"} {
		_, err := Initialize(ctx, name, mainBranch(t, ctx))
		require.Error(t, err, "name %q", name)
		assert.Equal(t, KindInvalidName, KindOf(err))
	}
}

func TestForQueueAbsent(t *testing.T) {
	ctx := testContext(t)

	q, err := ForQueue(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, q)
}

func TestSwitchToAndCurrent(t *testing.T) {
	ctx := testContext(t)

	q, err := Initialize(ctx, "work", mainBranch(t, ctx))
	require.NoError(t, err)

	// not current before the switch
	cur, err := Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, cur)

	require.NoError(t, q.SwitchTo(false))

	assert.True(t, q.IsCurrent())
	head, err := ctx.Repo.Head()
	require.NoError(t, err)
	assert.Equal(t, "refs/heads/queues/work", head.Name())

	cur, err = Current(ctx)
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, "work", cur.Name())
}

func TestCloseEmpty(t *testing.T) {
	ctx := testContext(t)

	q, err := Initialize(ctx, "work", mainBranch(t, ctx))
	require.NoError(t, err)
	require.True(t, q.CanClose())

	require.NoError(t, q.Close())

	_, err = ctx.Repo.References.Lookup("refs/heads/queues/work")
	assert.True(t, git.IsNotFound(err))
	_, err = ctx.Repo.References.Lookup("refs/queuelogs/work")
	assert.True(t, git.IsNotFound(err))

	q2, err := ForQueue(ctx, "work")
	require.NoError(t, err)
	assert.Nil(t, q2)
}

func TestCloseCurrentPanics(t *testing.T) {
	ctx := testContext(t)

	q, err := Initialize(ctx, "work", mainBranch(t, ctx))
	require.NoError(t, err)
	require.NoError(t, q.SwitchTo(false))

	assert.Panics(t, func() { _ = q.Close() })

	// both refs stay intact
	_, err = ctx.Repo.References.Lookup("refs/heads/queues/work")
	assert.NoError(t, err)
	_, err = ctx.Repo.References.Lookup("refs/queuelogs/work")
	assert.NoError(t, err)
}

func TestCloseToleratesMissingLog(t *testing.T) {
	ctx := testContext(t)

	q, err := Initialize(ctx, "work", mainBranch(t, ctx))
	require.NoError(t, err)

	ref, err := ctx.Repo.References.Lookup("refs/queuelogs/work")
	require.NoError(t, err)
	require.NoError(t, ref.Delete())

	// already-deleted log ref is tolerated with a warning
	require.NoError(t, q.Close())
	_, err = ctx.Repo.References.Lookup("refs/heads/queues/work")
	assert.True(t, git.IsNotFound(err))
}

func TestCloseForceRefused(t *testing.T) {
	ctx := testContext(t)

	q, err := Initialize(ctx, "work", mainBranch(t, ctx))
	require.NoError(t, err)

	err = q.CloseForce()
	require.Error(t, err)
	assert.Equal(t, KindUsage, KindOf(err))
}

func TestListDetectsInconsistency(t *testing.T) {
	ctx := testContext(t)

	_, err := Initialize(ctx, "good", mainBranch(t, ctx))
	require.NoError(t, err)
	_, err = Initialize(ctx, "broken", mainBranch(t, ctx))
	require.NoError(t, err)

	// manual git surgery: drop the log ref from under one queue
	ref, err := ctx.Repo.References.Lookup("refs/queuelogs/broken")
	require.NoError(t, err)
	require.NoError(t, ref.Delete())

	items, err := List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)

	byOutcome := map[string]ListItem{}
	for _, item := range items {
		if item.Err != nil {
			byOutcome["err"] = item
		} else {
			byOutcome[item.Queue.Name()] = item
		}
	}
	require.Contains(t, byOutcome, "good")
	require.Contains(t, byOutcome, "err")
	assert.Equal(t, KindInconsistency, KindOf(byOutcome["err"].Err))

	// the same surgery surfaces through ForQueue as well
	_, err = ForQueue(ctx, "broken")
	require.Error(t, err)
	assert.Equal(t, KindInconsistency, KindOf(err))
}

func TestNewPatch(t *testing.T) {
	ctx := testContext(t)
	c0 := mainTip(t, ctx)

	q, err := Initialize(ctx, "work", mainBranch(t, ctx))
	require.NoError(t, err)
	l0 := lookupCommit(t, ctx, "refs/queuelogs/work")

	parent, err := ctx.Repo.LookupCommit(c0)
	require.NoError(t, err)
	c1 := commitTree(t, ctx.Repo, "", "feature work", "hello.txt", "hello, patched\n", []*git.Commit{parent})

	p, err := q.NewPatch("feature", c1)
	require.NoError(t, err)
	assert.Equal(t, "feature", p.Name())
	assert.Equal(t, "refs/patches/work/feature", p.RefName())
	assert.Equal(t, c1, p.Id())
	assert.Equal(t, c1, lookupCommit(t, ctx, "refs/patches/work/feature").Id())

	s := q.State()
	assert.True(t, s.HasPatch("feature"))
	assert.Equal(t, []NamedOid{{"feature", c1}}, s.Applied())
	assert.Equal(t, c1, s.Head())

	// new log entry anchors previous entry, HEAD and the patch commit
	l1 := lookupCommit(t, ctx, "refs/queuelogs/work")
	assert.Equal(t, "new patch feature", l1.Message())
	require.Equal(t, uint(3), l1.ParentCount())
	assert.Equal(t, l0.Id(), l1.ParentId(0))
	assert.Equal(t, c0, l1.ParentId(1)) // HEAD is on main at C0
	assert.Equal(t, c1, l1.ParentId(2))

	// only meta changed between the two entry trees
	tree0, err := l0.Tree()
	require.NoError(t, err)
	tree1, err := l1.Tree()
	require.NoError(t, err)
	assert.Equal(t, tree0.EntryByName("hello.txt").Id, tree1.EntryByName("hello.txt").Id)
	assert.NotEqual(t, tree0.EntryByName("meta").Id, tree1.EntryByName("meta").Id)

	// the state reloads identically from disk
	s2, err := CurrentForQueue(ctx.Repo, "work")
	require.NoError(t, err)
	assert.Equal(t, s, s2)

	// duplicate patch name is rejected
	_, err = q.NewPatch("feature", c1)
	require.Error(t, err)
	assert.Equal(t, KindAlreadyExists, KindOf(err))
}

func TestNewPatchEscapedName(t *testing.T) {
	ctx := testContext(t)

	q, err := Initialize(ctx, "work", mainBranch(t, ctx))
	require.NoError(t, err)

	parent, err := ctx.Repo.LookupCommit(mainTip(t, ctx))
	require.NoError(t, err)
	c1 := commitTree(t, ctx.Repo, "", "wip", "hello.txt", "wip\n", []*git.Commit{parent})

	p, err := q.NewPatch("wip fix", c1)
	require.NoError(t, err)
	assert.Equal(t, "refs/patches/work/wip%20fix", p.RefName())
	assert.Equal(t, "wip fix", p.Name())

	p2, err := PatchFromName(ctx.Repo, "work", "wip fix")
	require.NoError(t, err)
	require.NotNil(t, p2)
	assert.Equal(t, c1, p2.Id())
}

func TestCreateNextAtomicOnError(t *testing.T) {
	ctx := testContext(t)

	q, err := Initialize(ctx, "work", mainBranch(t, ctx))
	require.NoError(t, err)
	l0 := lookupCommit(t, ctx, "refs/queuelogs/work").Id()

	boom := usageError("boom")
	_, _, err = CreateNext(q.State(), ctx.Repo, ctx.User, "doomed",
		func(next *State) (struct{}, error) {
			next.UpsertPatch("junk", mustOid(t, oidA))
			return struct{}{}, boom
		})
	require.ErrorIs(t, err, boom)

	// the log ref did not move
	assert.Equal(t, l0, lookupCommit(t, ctx, "refs/queuelogs/work").Id())
}

func TestPopPushPersisted(t *testing.T) {
	ctx := testContext(t)
	c0 := mainTip(t, ctx)

	q, err := Initialize(ctx, "work", mainBranch(t, ctx))
	require.NoError(t, err)

	parent, err := ctx.Repo.LookupCommit(c0)
	require.NoError(t, err)
	c1 := commitTree(t, ctx.Repo, "", "p1", "hello.txt", "one\n", []*git.Commit{parent})
	c1commit, err := ctx.Repo.LookupCommit(c1)
	require.NoError(t, err)
	c2 := commitTree(t, ctx.Repo, "", "p2", "hello.txt", "two\n", []*git.Commit{c1commit})

	_, err = q.NewPatch("p1", c1)
	require.NoError(t, err)
	_, err = q.NewPatch("p2", c2)
	require.NoError(t, err)

	// pop p2: head falls back to the new top of the series
	s, _, err := CreateNext(q.State(), ctx.Repo, ctx.User, "pop patch p2",
		func(next *State) (struct{}, error) {
			return struct{}{}, next.Pop(headParent(ctx))
		})
	require.NoError(t, err)
	assert.Equal(t, []NamedOid{{"p1", c1}}, s.Applied())
	assert.Equal(t, []NamedOid{{"p2", c2}}, s.Unapplied())
	assert.Equal(t, c1, s.Head())

	// pop p1: the oracle resolves the popped commit's first parent
	s, _, err = CreateNext(s, ctx.Repo, ctx.User, "pop patch p1",
		func(next *State) (struct{}, error) {
			return struct{}{}, next.Pop(headParent(ctx))
		})
	require.NoError(t, err)
	assert.Empty(t, s.Applied())
	assert.Equal(t, c0, s.Head())
	assert.Equal(t, s.Base(), s.Head())

	// push brings p1 back on top
	s, _, err = CreateNext(s, ctx.Repo, ctx.User, "push patch p1",
		func(next *State) (struct{}, error) {
			next.Push()
			return struct{}{}, nil
		})
	require.NoError(t, err)
	assert.Equal(t, []NamedOid{{"p1", c1}}, s.Applied())
	assert.Equal(t, c1, s.Head())

	// every entry still anchors both patch commits
	tip := lookupCommit(t, ctx, "refs/queuelogs/work")
	require.Equal(t, uint(4), tip.ParentCount())
	assert.Equal(t, c1, tip.ParentId(2)) // patches sorted by name
	assert.Equal(t, c2, tip.ParentId(3))

	// the chain of previous links is linear back to the root
	s2, err := CurrentForQueue(ctx.Repo, "work")
	require.NoError(t, err)
	depth := 0
	for prev := s2.entry.previous; prev != nil; depth++ {
		entry := metaAt(t, ctx, prev)
		prev = entry.previous
	}
	assert.Equal(t, 5, depth) // init, p1, p2, pop, pop, push -> 6 entries, 5 links
}

// metaAt decodes the metadata record of the log entry at oid.
func metaAt(t *testing.T, ctx *Context, oid *git.Oid) *logEntry {
	t.Helper()
	c, err := ctx.Repo.LookupCommit(oid)
	require.NoError(t, err)
	tree, err := c.Tree()
	require.NoError(t, err)
	metaEntry := tree.EntryByName("meta")
	require.NotNil(t, metaEntry)
	odb, err := ctx.Repo.Odb()
	require.NoError(t, err)
	obj, err := odb.Read(metaEntry.Id)
	require.NoError(t, err)
	entry, err := decodeMeta(obj.Data())
	require.NoError(t, err)
	return entry
}

func TestPatchAmend(t *testing.T) {
	ctx := testContext(t)
	c0 := mainTip(t, ctx)

	q, err := Initialize(ctx, "work", mainBranch(t, ctx))
	require.NoError(t, err)

	parent, err := ctx.Repo.LookupCommit(c0)
	require.NoError(t, err)
	c1 := commitTree(t, ctx.Repo, "", "feature work\n", "hello.txt", "patched\n", []*git.Commit{parent})
	p, err := q.NewPatch("feature", c1)
	require.NoError(t, err)

	newOid, err := p.Amend(ctx.Repo, AmendSpec{Message: "feature, reworded\n"})
	require.NoError(t, err)
	assert.NotEqual(t, c1, newOid)
	assert.Equal(t, newOid, p.Id())

	// ref moved in the same operation
	amended := lookupCommit(t, ctx, "refs/patches/work/feature")
	assert.Equal(t, newOid, amended.Id())
	assert.Equal(t, "feature, reworded\n", amended.Message())
	// parents fall through from the existing commit
	require.Equal(t, uint(1), amended.ParentCount())
	assert.Equal(t, c0, amended.ParentId(0))
}

func TestPatchFromNameAbsent(t *testing.T) {
	ctx := testContext(t)

	p, err := PatchFromName(ctx.Repo, "work", "ghost")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestCurrentForQueueAbsent(t *testing.T) {
	ctx := testContext(t)

	_, err := CurrentForQueue(ctx.Repo, "ghost")
	require.Error(t, err)
	assert.True(t, git.IsNotFound(err))
}
