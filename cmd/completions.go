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

// Git-queue CLI | shell completion generation
package cmd

import (
	"github.com/spf13/cobra"
)

// GenerateCompletions creates the generate-completions subcommand for root.
func GenerateCompletions(root *cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate-completions <shell>",
		Short: "Generate shell completions for a specific shell",
		Long: `Generate shell completions for a specific shell.

The completions are written to the standard output, redirect to a file to
persist it.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletion(out)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(out)
			default:
				return fail(exUsage, "unsupported shell %q", args[0])
			}
		},
	}
	return cmd
}
