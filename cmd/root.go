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

// Package cmd is the command-line surface of git-queue: argument parsing,
// subcommand dispatch and exit-code translation. The behavior lives in
// internal/queue; this package stays thin.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCommand = &cobra.Command{
	Use:   "gq",
	Short: "gq - patch queues on top of git",
	Long: `gq manages patch queues: named, ordered stacks of patches, each patch a
single commit, owned by a branch under refs/heads/queues/.

Every operation on a queue is recorded in an append-only log on
refs/queuelogs/<queue>. Each log entry pins the commits its state
references, so no intermediate patch commit is ever lost to git gc.`,

	SilenceUsage:  true,
	SilenceErrors: true,
}

// Root assembles the full command tree.
func Root() *cobra.Command {
	var verbose int

	root := *rootCommand
	root.PersistentFlags().CountVarP(&verbose, "verbose", "v", "increase log verbosity (repeatable)")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		setupLogging(verbose)
	}

	root.AddCommand(
		Init(),
		Switch(),
		Close(),
		Queues(),
		GenerateCompletions(&root),
	)
	return &root
}

func setupLogging(verbose int) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	switch {
	case verbose <= 0:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case verbose == 1:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case verbose == 2:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	}
}

// Execute runs the command tree and exits the process with the code the
// failed operation maps to, printing the chain of causes on the way out.
func Execute() {
	err := Root().Execute()
	if err == nil {
		return
	}

	fmt.Fprintf(os.Stderr, "gq: %s\n", err)
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		fmt.Fprintf(os.Stderr, "  caused by: %s\n", cause)
	}

	var cerr *cliError
	if errors.As(err, &cerr) {
		os.Exit(cerr.code)
	}
	os.Exit(exUsage) // bad invocation reported by the flag parser
}
