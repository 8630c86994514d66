package models

import (
	"sort"
	"strings"
)

const unknownFailure = "unknown error"

// Outcome is the per-file result of a census: either a non-negative count of
// top-level function definitions or a failure message.
type Outcome struct {
	Count   int    // Number of top-level function definitions
	Failure string // Non-empty when the file could not be read or parsed
}

// CountOutcome returns a successful outcome. Negative counts are clamped to 0.
func CountOutcome(n int) Outcome {
	if n < 0 {
		n = 0
	}
	return Outcome{Count: n}
}

// FailureOutcome returns an error outcome carrying msg.
func FailureOutcome(msg string) Outcome {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		msg = unknownFailure
	}
	return Outcome{Failure: msg}
}

// Failed reports whether the outcome is an error rather than a count.
func (o Outcome) Failed() bool {
	return o.Failure != ""
}

// FileResult pairs a discovered file with its outcome.
type FileResult struct {
	Path    string
	Outcome Outcome
}

// ScanResult is the aggregate output of one scan invocation, keyed by
// root-relative slash-separated path.
type ScanResult struct {
	Root     string
	Warnings []string

	files map[string]FileResult
}

// NewScanResult creates an empty result for root.
func NewScanResult(root string) *ScanResult {
	return &ScanResult{
		Root:  root,
		files: make(map[string]FileResult),
	}
}

// Add records a file result. It reports false when the path is already
// present; the first result wins.
func (r *ScanResult) Add(fr FileResult) bool {
	if r.files == nil {
		r.files = make(map[string]FileResult)
	}
	if _, exists := r.files[fr.Path]; exists {
		return false
	}
	r.files[fr.Path] = fr
	return true
}

// Get returns the result for path.
func (r *ScanResult) Get(path string) (FileResult, bool) {
	fr, ok := r.files[path]
	return fr, ok
}

// Len returns the number of files in the result.
func (r *ScanResult) Len() int {
	return len(r.files)
}

// Paths returns every path in lexical order.
func (r *ScanResult) Paths() []string {
	paths := make([]string, 0, len(r.files))
	for p := range r.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Files returns every file result in lexical path order.
func (r *ScanResult) Files() []FileResult {
	paths := r.Paths()
	out := make([]FileResult, 0, len(paths))
	for _, p := range paths {
		out = append(out, r.files[p])
	}
	return out
}

// Summary holds aggregate numbers over a ScanResult.
type Summary struct {
	Files     int `json:"files" yaml:"files"`
	Functions int `json:"functions" yaml:"functions"`
	Errors    int `json:"errors" yaml:"errors"`
}

// Summarize totals the counts and failures in the result.
func (r *ScanResult) Summarize() Summary {
	var s Summary
	for _, fr := range r.files {
		s.Files++
		if fr.Outcome.Failed() {
			s.Errors++
			continue
		}
		s.Functions += fr.Outcome.Count
	}
	return s
}

// Equal reports whether both results carry the same path to outcome
// associations. Root and warnings are ignored.
func (r *ScanResult) Equal(other *ScanResult) bool {
	if r == nil || other == nil {
		return r == other
	}
	if len(r.files) != len(other.files) {
		return false
	}
	for p, fr := range r.files {
		o, ok := other.files[p]
		if !ok || o.Outcome != fr.Outcome {
			return false
		}
	}
	return true
}
