package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"funccensus/internal/mcp"
)

func (a *app) newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve [dir]",
		Short: "Serve census requests as an MCP tool over stdio",
		Long: `Start a JSON-RPC server on stdin/stdout exposing the count_functions tool.
Calls without a path scan the given directory. Outcomes are cached for the
lifetime of the server.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := rootArg(args)
			stderr := &syncWriter{w: cmd.ErrOrStderr()}

			if a.cfg.Verbose {
				fmt.Fprintf(stderr, "→ Serving %s on stdio\n", root)
			}

			server := mcp.NewServer(root, Version, a.censusOptions(stderr))
			return server.Run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
