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

// Git-queue CLI | queues subcommand
package cmd

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"go.gitqueue.dev/gq/internal/queue"
)

var queuesCommand = &cobra.Command{
	Use:   "queues",
	Short: "List available queues",
	Long: `List all available queues, showing individual information about each
queue.

The queues are printed in a table: the name (the current queue is marked
with *), the base branch unless -B/--no-base is given, and the patch
count with the last applied patch unless -P/--no-patches is given. With
both -B and -P the bare names are printed, one per line.`,
	Args: cobra.NoArgs,
}

// QueuesConfig holds the configuration for the queues command
type QueuesConfig struct {
	NoBase    bool
	NoPatches bool
}

// Queues creates the cobra.Command for the queues operation.
func Queues() *cobra.Command {
	var cfg QueuesConfig
	cmd := *queuesCommand
	cmd.Flags().AddFlagSet(queuesFlags(cmd.Name(), &cfg))
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runQueues(cmd.OutOrStdout(), cfg)
	}
	return &cmd
}

func queuesFlags(name string, cfg *QueuesConfig) *pflag.FlagSet {
	set := pflag.NewFlagSet(name, pflag.ContinueOnError)
	set.BoolVarP(&cfg.NoBase, "no-base", "B", false, "do not show the base for each queue")
	set.BoolVarP(&cfg.NoPatches, "no-patches", "P", false, "do not show patch information for each queue")
	return set
}

func runQueues(w io.Writer, cfg QueuesConfig) error {
	ctx, err := queue.CurrentContext()
	if err != nil {
		return mapError(err)
	}

	items, err := queue.List(ctx)
	if err != nil {
		return mapError(err)
	}

	if cfg.NoBase && cfg.NoPatches {
		for _, item := range items {
			if item.Err != nil {
				return mapError(item.Err)
			}
			fmt.Fprintln(w, item.Queue.Name())
		}
		return nil
	}

	table := newTable(w, cfg)
	for _, item := range items {
		if item.Err != nil {
			return mapError(item.Err)
		}
		table.Append(queueRow(item.Queue, cfg))
	}
	table.Render()
	return nil
}

func newTable(w io.Writer, cfg QueuesConfig) *tablewriter.Table {
	titles := []string{"Name"}
	if !cfg.NoBase {
		titles = append(titles, "Base")
	}
	if !cfg.NoPatches {
		titles = append(titles, "Patches", "Last patch")
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(titles)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetColumnSeparator(" ")
	table.SetHeaderLine(false)
	table.SetAutoWrapText(false)
	return table
}

func queueRow(q *queue.Queue, cfg QueuesConfig) []string {
	name := q.Name()
	if q.IsCurrent() {
		name = "* " + name
	}
	row := []string{name}

	if !cfg.NoBase {
		row = append(row, q.BaseName())
	}
	if !cfg.NoPatches {
		lastPatch := ""
		if applied := q.State().Applied(); len(applied) > 0 {
			lastPatch = applied[len(applied)-1].Name
		}
		row = append(row, fmt.Sprint(q.PatchesNum()), lastPatch)
	}
	return row
}
