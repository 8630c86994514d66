// Package scanner walks a directory tree and lazily yields the source files
// eligible for a function census.
package scanner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
)

// DefaultExtension is matched when a Request carries no filter.
const DefaultExtension = ".py"

// binarySniffLen matches the window git uses to classify binary content.
const binarySniffLen = 8000

// Always pruned, in addition to every hidden directory.
var excludedDirs = map[string]bool{
	"__pycache__":  true,
	"node_modules": true,
}

// Request describes one scan.
type Request struct {
	Root      string
	Filter    func(name string) bool // Nil matches DefaultExtension
	Exclude   []string               // Glob patterns matched against base name and root-relative path
	Gitignore bool                   // Honour patterns from the root .gitignore
	OnWarning func(error)            // Receives DirectoryAccessError and SymlinkCycleError
}

// File is one eligible source file.
type File struct {
	Abs string // Absolute path on disk
	Rel string // Slash-separated path relative to the root
}

// Walk is a single-use traversal of a validated root.
type Walk struct {
	root    string
	filter  func(string) bool
	exclude []string
	ignore  []string
	warn    func(error)
	used    atomic.Bool
}

// ExtensionFilter returns a case-sensitive filter matching any of exts. A
// missing leading dot is added.
func ExtensionFilter(exts ...string) func(string) bool {
	set := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = true
	}
	return func(name string) bool {
		return set[filepath.Ext(name)]
	}
}

// Open validates the root and prepares a walk. It fails with
// *InvalidRootError when the root is missing, not a directory, or unreadable.
func Open(req Request) (*Walk, error) {
	raw := strings.TrimSpace(req.Root)
	if raw == "" {
		return nil, &InvalidRootError{Path: req.Root, Err: errors.New("empty path")}
	}

	root, err := filepath.Abs(raw)
	if err != nil {
		return nil, &InvalidRootError{Path: req.Root, Err: err}
	}
	root = filepath.Clean(root)

	info, err := os.Stat(root)
	if err != nil {
		return nil, &InvalidRootError{Path: req.Root, Err: err}
	}
	if !info.IsDir() {
		return nil, &InvalidRootError{Path: req.Root, Err: ErrNotDirectory}
	}
	f, err := os.Open(root)
	if err != nil {
		return nil, &InvalidRootError{Path: req.Root, Err: err}
	}
	f.Close()

	w := &Walk{
		root:    root,
		filter:  req.Filter,
		exclude: req.Exclude,
		warn:    req.OnWarning,
	}
	if w.filter == nil {
		w.filter = ExtensionFilter(DefaultExtension)
	}
	if req.Gitignore {
		w.ignore = loadGitIgnorePatterns(root)
	}
	return w, nil
}

// Root returns the absolute, cleaned root directory.
func (w *Walk) Root() string {
	return w.root
}

// Files returns the lazy sequence of eligible files in depth-first lexical
// order. The sequence can be consumed once; later calls yield nothing.
// Iteration stops early when ctx is cancelled.
func (w *Walk) Files(ctx context.Context) iter.Seq[File] {
	return func(yield func(File) bool) {
		if !w.used.CompareAndSwap(false, true) {
			return
		}
		visited := make(map[string]bool)
		if real, err := filepath.EvalSymlinks(w.root); err == nil {
			visited[real] = true
		} else {
			visited[w.root] = true
		}
		w.walkDir(ctx, w.root, "", visited, yield)
	}
}

// walkDir reports false once the consumer stops or ctx is done.
func (w *Walk) walkDir(ctx context.Context, dir, rel string, visited map[string]bool, yield func(File) bool) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.emit(&DirectoryAccessError{Path: dir, Err: err})
		if len(entries) == 0 {
			return true
		}
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return false
		}

		name := entry.Name()
		full := filepath.Join(dir, name)
		childRel := path.Join(rel, name)

		mode := entry.Type()
		if mode&fs.ModeSymlink != 0 {
			info, err := os.Stat(full)
			if err != nil {
				// Dangling link.
				continue
			}
			mode = info.Mode().Type()
		}

		switch {
		case mode.IsDir():
			if w.excludedDir(name, childRel) {
				continue
			}
			real, err := filepath.EvalSymlinks(full)
			if err != nil {
				w.emit(&DirectoryAccessError{Path: full, Err: err})
				continue
			}
			if visited[real] {
				w.emit(&SymlinkCycleError{Path: full, Target: real})
				continue
			}
			visited[real] = true
			if !w.walkDir(ctx, full, childRel, visited, yield) {
				return false
			}

		case mode.IsRegular():
			if !w.filter(name) || w.excludedFile(name, childRel) {
				continue
			}
			if isBinaryFile(full) {
				continue
			}
			if !yield(File{Abs: full, Rel: childRel}) {
				return false
			}
		}
	}
	return true
}

func (w *Walk) excludedDir(name, rel string) bool {
	if strings.HasPrefix(name, ".") || excludedDirs[name] {
		return true
	}
	return w.excludedFile(name, rel)
}

func (w *Walk) excludedFile(name, rel string) bool {
	if matchesAny(w.exclude, name, rel) {
		return true
	}
	return len(w.ignore) > 0 && isIgnoredPath(rel, w.ignore)
}

func (w *Walk) emit(err error) {
	if w.warn != nil {
		w.warn(err)
	}
}

// IsExcludedDir applies the built-in directory exclusions plus patterns to a
// directory name and its root-relative path.
func IsExcludedDir(name, rel string, patterns []string) bool {
	if strings.HasPrefix(name, ".") || excludedDirs[name] {
		return true
	}
	return matchesAny(patterns, name, rel)
}

func matchesAny(patterns []string, name, rel string) bool {
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if ok, _ := path.Match(p, name); ok {
			return true
		}
		if ok, _ := path.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// isBinaryFile reports whether the leading bytes contain a NUL. Unreadable
// files are not classified as binary so the reader can report the failure.
func isBinaryFile(name string) bool {
	f, err := os.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, binarySniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return false
	}
	return bytes.IndexByte(buf[:n], 0) >= 0
}

// Scan opens req and returns its file sequence.
func Scan(ctx context.Context, req Request) (iter.Seq[File], error) {
	w, err := Open(req)
	if err != nil {
		return nil, err
	}
	return w.Files(ctx), nil
}
