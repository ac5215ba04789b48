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

// Git-queue CLI | close subcommand
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"go.gitqueue.dev/gq/internal/queue"
)

var closeCommand = &cobra.Command{
	Use:   "close <queue>...",
	Short: "Close patch queues",
	Long: `Close one or more patch queues. The branch of each queue is deleted
together with its operation log. If a patch is still associated with a
queue, the command aborts.`,
	Args: cobra.MinimumNArgs(1),
}

// CloseConfig holds the configuration for the close command
type CloseConfig struct {
	Force bool
}

// Close creates the cobra.Command for the close operation.
func Close() *cobra.Command {
	var cfg CloseConfig
	cmd := *closeCommand
	cmd.Flags().AddFlagSet(closeFlags(cmd.Name(), &cfg))
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runClose(args, cfg)
	}
	return &cmd
}

func closeFlags(name string, cfg *CloseConfig) *pflag.FlagSet {
	set := pflag.NewFlagSet(name, pflag.ContinueOnError)
	set.BoolVarP(&cfg.Force, "force", "f", false,
		"force-close the queues; refused with a usage error, no queue or patch is deleted")
	return set
}

func runClose(names []string, cfg CloseConfig) error {
	ctx, err := queue.CurrentContext()
	if err != nil {
		return mapError(err)
	}

	// resolve everything first so one bad name aborts before any deletion
	queues := make([]*queue.Queue, 0, len(names))
	for _, name := range names {
		q, err := queue.ForQueue(ctx, name)
		if err != nil {
			return mapError(err)
		}
		if q == nil {
			return fail(exDataErr, "queue `%s` not found", name)
		}
		queues = append(queues, q)
	}

	for _, q := range queues {
		if err := closeOne(q, cfg.Force); err != nil {
			return err
		}
	}
	return nil
}

func closeOne(q *queue.Queue, force bool) error {
	switch {
	case q.IsCurrent():
		return fail(exUsage,
			"cannot close current queue, please switch to a different queue/branch before trying again")
	case force:
		return mapError(q.CloseForce())
	case q.CanClose():
		return mapError(q.Close())
	default:
		return fail(exUsage, "the queue contains %d patches, cannot close", q.PatchesNum())
	}
}
