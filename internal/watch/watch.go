// Package watch keeps a census current while files under a root change.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"funccensus/internal/census"
	"funccensus/internal/models"
	"funccensus/internal/scanner"
)

const defaultDebounce = 250 * time.Millisecond

// Options configures Run.
type Options struct {
	Census   census.Options
	Debounce time.Duration // Quiet period before a re-scan

	// OnResult receives the initial census and every re-census. changed lists
	// the paths whose events triggered it and is empty for the first call.
	OnResult func(result *models.ScanResult, changed []string)

	// OnError receives failed re-scans, e.g. when the root disappears. The
	// watch keeps running.
	OnError func(error)
}

// Run performs an initial census of root, then re-runs it after every burst
// of file system activity until ctx is done. Unchanged files are served from
// a cache shared by all scans. An invalid root fails before anything is
// watched.
func Run(ctx context.Context, root string, opts Options) error {
	if opts.Census.Cache == nil {
		opts.Census.Cache = census.NewCache()
	}
	analyzer := census.New(opts.Census)

	result, err := analyzer.Analyze(ctx, root)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	absRoot := result.Root
	emit(opts, result, nil)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := addWatchRecursive(watcher, absRoot, absRoot, opts.Census.Exclude); err != nil {
		return err
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false
	pendingPaths := map[string]bool{}

	resetDebounce := func(path string) {
		pendingPaths[path] = true
		if pending && !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(debounce)
		pending = true
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			eventPath := filepath.Clean(event.Name)
			if shouldIgnoreEvent(eventPath) {
				continue
			}

			if event.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(eventPath); statErr == nil && info.IsDir() {
					_ = addWatchRecursive(watcher, eventPath, absRoot, opts.Census.Exclude)
				}
			}

			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			resetDebounce(eventPath)
		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			changed := relativePaths(absRoot, pendingPaths)
			pendingPaths = map[string]bool{}

			result, err := analyzer.Analyze(ctx, absRoot)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				if opts.OnError != nil {
					opts.OnError(err)
				}
				continue
			}
			emit(opts, result, changed)
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return watchErr
		}
	}
}

func emit(opts Options, result *models.ScanResult, changed []string) {
	if opts.OnResult != nil {
		opts.OnResult(result, changed)
	}
}

// addWatchRecursive watches root and every directory below it that a scan
// would descend into.
func addWatchRecursive(watcher *fsnotify.Watcher, root, projectRoot string, exclude []string) error {
	root = filepath.Clean(root)
	return filepath.WalkDir(root, func(path string, entry os.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if path != projectRoot {
			rel, err := filepath.Rel(projectRoot, path)
			if err == nil && scanner.IsExcludedDir(entry.Name(), filepath.ToSlash(rel), exclude) {
				return filepath.SkipDir
			}
		}
		return watcher.Add(path)
	})
}

// shouldIgnoreEvent drops editor scratch files that never hold source.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	return base == ".DS_Store" ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasSuffix(base, "~") ||
		strings.HasPrefix(base, ".#")
}

func relativePaths(root string, paths map[string]bool) []string {
	out := make([]string, 0, len(paths))
	for p := range paths {
		if rel, err := filepath.Rel(root, p); err == nil {
			p = filepath.ToSlash(rel)
		}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
