// Package cli provides the legsim command-line interface.
package cli

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// NewRootCommand builds the legsim command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "legsim",
		Short: "legsim is a cycle-accurate 5-stage LEGv8 pipeline simulator.",
		Long: `legsim runs LEGv8 program images on a 5-stage in-order pipeline ` +
			`with timed instruction and data caches and a gshare branch ` +
			`predictor, and reports cycle-level statistics.`,
		SilenceUsage: true,
	}

	root.AddCommand(newRunCommand())
	root.AddCommand(newConfigCommand())
	root.AddCommand(newBenchCommand())

	return root
}

// Execute runs the command line and exits through atexit so that trace
// databases are flushed.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
