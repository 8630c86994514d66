package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"funccensus/internal/census"
	"funccensus/internal/config"
	"funccensus/internal/models"
	"funccensus/internal/report"
)

// app carries the state shared by one command tree: its viper instance and
// the configuration loaded before any command runs.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
}

// NewRootCommand builds the funccensus command tree with its own viper
// instance.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "funccensus [dir]",
		Short: "Count top-level function definitions per source file",
		Long: `funccensus walks a directory tree and reports, for every eligible source
file, how many functions are defined at module level. Files that cannot be
read or parsed are reported with an error message instead of a count.

Example:
  funccensus ./src --ext .py,.go --format tree`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
		RunE: a.runCensus,
	}

	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is .funccensus.yaml in the working or home directory)")
	flags.StringSlice("ext", nil, "file extensions to scan (default .py)")
	flags.StringSlice("exclude", nil, "glob patterns for files and directories to skip")
	flags.Bool("gitignore", false, "skip paths matched by the root .gitignore")
	flags.Int("workers", 0, "parser workers (default: number of CPUs)")
	flags.String("format", config.DefaultFormat, "output format: json, yaml or tree")
	flags.Bool("verbose", false, "print progress to stderr")

	_ = a.v.BindPFlag("extensions", flags.Lookup("ext"))
	_ = a.v.BindPFlag("exclude", flags.Lookup("exclude"))
	_ = a.v.BindPFlag("gitignore", flags.Lookup("gitignore"))
	_ = a.v.BindPFlag("workers", flags.Lookup("workers"))
	_ = a.v.BindPFlag("format", flags.Lookup("format"))
	_ = a.v.BindPFlag("verbose", flags.Lookup("verbose"))

	rootCmd.AddCommand(a.newWatchCommand())
	rootCmd.AddCommand(a.newServeCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// Execute runs the root command until it finishes or the process receives
// an interrupt.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}

func (a *app) loadConfig() error {
	if err := config.Init(a.v, a.cfgFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func (a *app) runCensus(cmd *cobra.Command, args []string) error {
	root := rootArg(args)
	stderr := &syncWriter{w: cmd.ErrOrStderr()}

	if a.cfg.Verbose {
		if used := a.v.ConfigFileUsed(); used != "" {
			fmt.Fprintf(stderr, "→ Using config file: %s\n", used)
		}
		fmt.Fprintf(stderr, "→ Scanning %s (%v)\n", root, a.cfg.Extensions)
	}

	opts := a.censusOptions(stderr)
	result, err := census.New(opts).Analyze(cmd.Context(), root)
	if err != nil {
		return err
	}

	if err := report.Write(cmd.OutOrStdout(), a.cfg.Format, result); err != nil {
		return err
	}

	if a.cfg.Verbose {
		s := result.Summarize()
		fmt.Fprintf(stderr, "✓ %d files, %d functions, %d errors\n", s.Files, s.Functions, s.Errors)
	}
	return nil
}

// censusOptions maps the loaded configuration onto census options. Warnings
// always go to stderr, even when the tree report repeats them.
func (a *app) censusOptions(stderr io.Writer) census.Options {
	opts := census.Options{
		Extensions: a.cfg.Extensions,
		Exclude:    a.cfg.Exclude,
		Gitignore:  a.cfg.Gitignore,
		Workers:    a.cfg.Workers,
		OnWarning: func(err error) {
			fmt.Fprintf(stderr, "⚠ %v\n", err)
		},
	}
	if a.cfg.Verbose {
		opts.OnResult = func(fr models.FileResult) {
			if fr.Outcome.Failed() {
				fmt.Fprintf(stderr, "✗ %s: %s\n", fr.Path, fr.Outcome.Failure)
			}
		}
	}
	return opts
}

func rootArg(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return "."
}

// syncWriter serializes writes from the walker and aggregator goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
