// Package cli provides the command-line interface for ibdlog.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eklitzke/bitcoin-tools/internal/cli/commands"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		// SilenceErrors keeps cobra from printing this itself.
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return commands.ExitCode
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ibdlog",
		Short: "Unpack systemtap IBD trace logs",
		Long: `ibdlog turns the sectioned logs written while tracing a node's initial
block download into typed, time-indexed tables.

A log has up to three sections:
  --- system     host facts, one "<key> <value>" per line
  --- config     the node configuration, kept verbatim
  --- systemtap  the trace: begin, time markers, event records, finish

Every event kind becomes one table whose rows line up with the timer
ticks; the flush event lines up with the flush markers instead.

Exit codes:
  0 - Success
  1 - Parsed with warnings
  2 - Configuration, runtime or parse error`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewUnpackCommand())
	rootCmd.AddCommand(commands.NewLatestCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
