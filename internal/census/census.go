// Package census counts top-level function definitions across a directory
// tree. It feeds the files found by the scanner to a pool of parser workers
// and merges their outcomes into a single ScanResult.
package census

import (
	"context"
	"fmt"
	"os"
	"path"
	"runtime"
	"sync"

	"funccensus/internal/models"
	"funccensus/internal/parser"
	"funccensus/internal/scanner"
)

// Options configures an Analyzer. The zero value scans `.py` files with one
// worker per CPU.
type Options struct {
	Extensions []string                // Allowlist used when Filter is nil
	Filter     func(name string) bool  // Overrides Extensions
	Exclude    []string                // Glob patterns pruned from the walk
	Gitignore  bool                    // Honour the root .gitignore
	Workers    int                     // <= 0 means runtime.NumCPU()
	Cache      *Cache                  // Optional; reuses outcomes of unchanged files
	OnWarning  func(error)             // Non-fatal traversal problems
	OnResult   func(models.FileResult) // Called from the aggregating goroutine
}

// Analyzer runs scans. It holds no per-scan state, so one Analyzer may serve
// concurrent Analyze calls.
type Analyzer struct {
	factory *parser.Factory
	opts    Options
}

// New creates an analyzer with every built-in language counter registered.
func New(opts Options) *Analyzer {
	return &Analyzer{
		factory: parser.NewFactory(),
		opts:    opts,
	}
}

// RegisterCounter adds or replaces the counter used for lang.
func (a *Analyzer) RegisterCounter(lang parser.Language, c parser.Counter) {
	a.factory.Register(lang, c)
}

// Analyze scans root with default options.
func Analyze(ctx context.Context, root string) (*models.ScanResult, error) {
	return New(Options{}).Analyze(ctx, root)
}

// Analyze walks root and returns one outcome per eligible file. It fails only
// when root is invalid (*scanner.InvalidRootError) or ctx is cancelled; file
// level problems are recorded as failure outcomes.
func (a *Analyzer) Analyze(ctx context.Context, root string) (*models.ScanResult, error) {
	var warnings []string
	walk, err := scanner.Open(scanner.Request{
		Root:      root,
		Filter:    a.filter(),
		Exclude:   a.opts.Exclude,
		Gitignore: a.opts.Gitignore,
		OnWarning: func(err error) {
			// Only the producer goroutine walks, so no lock is needed.
			warnings = append(warnings, err.Error())
			if a.opts.OnWarning != nil {
				a.opts.OnWarning(err)
			}
		},
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := a.workers()
	fileCh := make(chan scanner.File, workers*2)
	resultCh := make(chan fileOutcome, workers*2)

	go func() {
		defer close(fileCh)
		for f := range walk.Files(ctx) {
			select {
			case fileCh <- f:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.processWorker(ctx, fileCh, resultCh)
		}()
	}
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	result := models.NewScanResult(walk.Root())
	seen := make(map[string]bool)
	for fo := range resultCh {
		seen[fo.abs] = true
		if !result.Add(fo.result) {
			continue
		}
		if a.opts.OnResult != nil {
			a.opts.OnResult(fo.result)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result.Warnings = warnings
	if a.opts.Cache != nil {
		a.opts.Cache.Prune(walk.Root(), seen)
	}
	return result, nil
}

type fileOutcome struct {
	abs    string
	result models.FileResult
}

func (a *Analyzer) processWorker(ctx context.Context, fileCh <-chan scanner.File, resultCh chan<- fileOutcome) {
	for f := range fileCh {
		if ctx.Err() != nil {
			continue
		}
		resultCh <- fileOutcome{
			abs: f.Abs,
			result: models.FileResult{
				Path:    f.Rel,
				Outcome: a.processFile(f),
			},
		}
	}
}

func (a *Analyzer) processFile(f scanner.File) models.Outcome {
	counter, err := a.factory.GetCounterByFilePath(f.Rel)
	if err != nil {
		return models.FailureOutcome(err.Error())
	}

	code, err := os.ReadFile(f.Abs)
	if err != nil {
		return models.FailureOutcome(fmt.Sprintf("read error: %v", err))
	}

	if a.opts.Cache != nil {
		if outcome, ok := a.opts.Cache.Lookup(f.Abs, code); ok {
			return outcome
		}
	}

	// Diagnostics name the file by its base name so a cached outcome reads
	// the same whichever root the scan started from.
	var outcome models.Outcome
	n, err := counter.CountFunctions(path.Base(f.Rel), code)
	if err != nil {
		outcome = models.FailureOutcome(err.Error())
	} else {
		outcome = models.CountOutcome(n)
	}

	if a.opts.Cache != nil {
		a.opts.Cache.Store(f.Abs, code, outcome)
	}
	return outcome
}

func (a *Analyzer) filter() func(string) bool {
	if a.opts.Filter != nil {
		return a.opts.Filter
	}
	if len(a.opts.Extensions) > 0 {
		return scanner.ExtensionFilter(a.opts.Extensions...)
	}
	return nil
}

func (a *Analyzer) workers() int {
	if a.opts.Workers > 0 {
		return a.opts.Workers
	}
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}
