// Package cli wires the jclassdump command tree: a cobra root command
// with "dump" and "roundtrip" subcommands.
package cli

import (
	"github.com/spf13/cobra"
)

var verbose bool

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "jclassdump",
		Short:         "Inspect and round-trip JVM .class files through the jclass codec",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print additional diagnostic detail")
	root.AddCommand(newDumpCmd())
	root.AddCommand(newRoundtripCmd())
	return root
}

// Execute runs the jclassdump command tree against os.Args.
func Execute() error {
	return newRootCmd().Execute()
}
