package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Build information, set by main from its ldflags-populated variables.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "funccensus %s (commit %s, built %s)\n", Version, GitCommit, BuildTime)
		},
	}
}
