package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"funccensus/internal/config"
	"funccensus/internal/models"
	"funccensus/internal/report"
	"funccensus/internal/watch"
)

func (a *app) newWatchCommand() *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Re-run the census whenever files change",
		Long: `Run the census once, then again after every burst of file changes under
the directory. Each run prints a full report. Stop with Ctrl-C.`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.runWatch,
	}

	watchCmd.Flags().Duration("debounce", config.DefaultDebounce, "quiet period before re-scanning")
	_ = a.v.BindPFlag("debounce", watchCmd.Flags().Lookup("debounce"))

	return watchCmd
}

func (a *app) runWatch(cmd *cobra.Command, args []string) error {
	root := rootArg(args)
	stderr := &syncWriter{w: cmd.ErrOrStderr()}
	out := cmd.OutOrStdout()

	fmt.Fprintf(stderr, "→ Watching %s (debounce %s)\n", root, a.cfg.Debounce)

	var writeErr error
	err := watch.Run(cmd.Context(), root, watch.Options{
		Census:   a.censusOptions(stderr),
		Debounce: a.cfg.Debounce,
		OnResult: func(result *models.ScanResult, changed []string) {
			if len(changed) > 0 && a.cfg.Verbose {
				fmt.Fprintf(stderr, "→ Changed: %s\n", strings.Join(changed, ", "))
			}
			if err := report.Write(out, a.cfg.Format, result); err != nil && writeErr == nil {
				writeErr = err
			}
			s := result.Summarize()
			fmt.Fprintf(stderr, "✓ %d files, %d functions, %d errors\n", s.Files, s.Functions, s.Errors)
		},
		OnError: func(err error) {
			fmt.Fprintf(stderr, "✗ Re-scan failed: %v\n", err)
		},
	})
	if err != nil {
		return err
	}
	return writeErr
}
