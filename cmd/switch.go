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

// Git-queue CLI | switch subcommand
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"go.gitqueue.dev/gq/internal/queue"
)

var switchCommand = &cobra.Command{
	Use:   "switch <queue> [<branch>]",
	Short: "Switch queues",
	Long: `Switch to a specified queue. The working tree and the index are updated
to match the applied patches in the queue. All new patches will be added
to the top of this queue.

Optionally a new queue can be created with --create, along with
switching. By default the queue is created on top of the current branch;
pass <branch> to use a different base.

Switching queues does not require a clean index and working tree.
Conflicting local modifications are left in the working tree.`,
	Args: cobra.RangeArgs(1, 2),
}

// SwitchConfig holds the configuration for the switch command
type SwitchConfig struct {
	Create bool
	Merge  bool
}

// Switch creates the cobra.Command for the switch operation.
func Switch() *cobra.Command {
	var cfg SwitchConfig
	cmd := *switchCommand
	cmd.Flags().AddFlagSet(switchFlags(cmd.Name(), &cfg))
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		branch := ""
		if len(args) == 2 {
			branch = args[1]
		}
		return runSwitch(args[0], branch, cfg)
	}
	return &cmd
}

func switchFlags(name string, cfg *SwitchConfig) *pflag.FlagSet {
	set := pflag.NewFlagSet(name, pflag.ContinueOnError)
	set.BoolVarP(&cfg.Create, "create", "c", false, "create a new queue with name given by <queue>")
	set.BoolVarP(&cfg.Merge, "merge", "m", false,
		"three-way merge local modifications between the current queue and the queue switched to")
	return set
}

func runSwitch(name, branch string, cfg SwitchConfig) error {
	ctx, err := queue.CurrentContext()
	if err != nil {
		return mapError(err)
	}

	q, err := queue.ForQueue(ctx, name)
	if err != nil {
		return mapError(err)
	}
	if q == nil {
		if !cfg.Create {
			return fail(exDataErr, "queue `%s` does not exist", name)
		}

		base, err := resolveBase(ctx, branch)
		if err != nil {
			return err
		}
		q, err = queue.Initialize(ctx, name, base)
		if err != nil {
			return mapError(err)
		}
		if q == nil {
			return fail(exCantCreat, "queue `%s` already exists", name)
		}
	}

	return mapError(q.SwitchTo(cfg.Merge))
}
