package scanner

import (
	"errors"
	"fmt"
)

// ErrNotDirectory is wrapped by InvalidRootError when the root exists but is
// not a directory.
var ErrNotDirectory = errors.New("not a directory")

// InvalidRootError reports a scan root that is missing, not a directory, or
// cannot be opened. It aborts the whole scan.
type InvalidRootError struct {
	Path string
	Err  error
}

func (e *InvalidRootError) Error() string {
	return fmt.Sprintf("invalid root %q: %v", e.Path, e.Err)
}

func (e *InvalidRootError) Unwrap() error { return e.Err }

// DirectoryAccessError reports a subdirectory that could not be listed. The
// subtree is skipped and the walk continues.
type DirectoryAccessError struct {
	Path string
	Err  error
}

func (e *DirectoryAccessError) Error() string {
	return fmt.Sprintf("cannot list directory %s: %v", e.Path, e.Err)
}

func (e *DirectoryAccessError) Unwrap() error { return e.Err }

// SymlinkCycleError reports a directory whose real path was already visited,
// either through a symlink cycle or an alias. The directory is skipped.
type SymlinkCycleError struct {
	Path   string
	Target string
}

func (e *SymlinkCycleError) Error() string {
	return fmt.Sprintf("skipping %s: %s already visited", e.Path, e.Target)
}
