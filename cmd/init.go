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

// Git-queue CLI | init subcommand
package cmd

import (
	"github.com/spf13/cobra"

	"go.gitqueue.dev/gq/internal/git"
	"go.gitqueue.dev/gq/internal/queue"
)

var initCommand = &cobra.Command{
	Use:   "init <queue> [<branch>]",
	Short: "Create a new patch queue",
	Long: `Create a new patch queue named <queue> on top of <branch>, or on top of
the current branch when <branch> is not given.

The queue branch is created at the base branch's tip and the queue's
operation log is initialised. The working tree is not touched; use
'gq switch' to move onto the new queue.`,
	Args: cobra.RangeArgs(1, 2),
}

// Init creates the cobra.Command for the init operation.
func Init() *cobra.Command {
	cmd := *initCommand
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		branch := ""
		if len(args) == 2 {
			branch = args[1]
		}
		return runInit(args[0], branch)
	}
	return &cmd
}

func runInit(name, branch string) error {
	ctx, err := queue.CurrentContext()
	if err != nil {
		return mapError(err)
	}

	base, err := resolveBase(ctx, branch)
	if err != nil {
		return err
	}

	q, err := queue.Initialize(ctx, name, base)
	if err != nil {
		return mapError(err)
	}
	if q == nil {
		return fail(exCantCreat, "queue `%s` already exists", name)
	}
	return nil
}

// resolveBase picks the base branch for a new queue: the named branch, or
// the current branch when name is empty.
func resolveBase(ctx *queue.Context, name string) (*git.Branch, error) {
	if name != "" {
		base, err := ctx.FindBranch(name)
		if err != nil {
			return nil, mapError(err)
		}
		if base == nil {
			return nil, fail(exDataErr, "branch `%s` does not exist", name)
		}
		return base, nil
	}

	base, err := ctx.CurrentBranch()
	if err != nil {
		return nil, mapError(err)
	}
	if base == nil {
		return nil, fail(exUsage, "HEAD is not on a branch; name the base branch explicitly")
	}
	return base, nil
}
