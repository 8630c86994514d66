package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func collect(t *testing.T, req Request) []string {
	t.Helper()
	w, err := Open(req)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	var rels []string
	for f := range w.Files(context.Background()) {
		rels = append(rels, f.Rel)
	}
	return rels
}

func TestFilesYieldsEligibleFilesInOrder(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "b.py", "")
	writeFile(t, root, "a.py", "")
	writeFile(t, root, "notes.txt", "")
	writeFile(t, root, "sub/c.py", "")
	writeFile(t, root, "sub/deeper/d.py", "")
	writeFile(t, root, "sub/e.PY", "")

	got := strings.Join(collect(t, Request{Root: root}), ",")
	want := "a.py,b.py,sub/c.py,sub/deeper/d.py"
	if got != want {
		t.Fatalf("Files=%q, want %q", got, want)
	}
}

func TestFilesAbsolutePaths(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "pkg/m.py", "")

	w, err := Open(Request{Root: root})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for f := range w.Files(context.Background()) {
		if !filepath.IsAbs(f.Abs) {
			t.Fatalf("Abs=%q is not absolute", f.Abs)
		}
		if _, err := os.Stat(f.Abs); err != nil {
			t.Fatalf("Stat(%q): %v", f.Abs, err)
		}
		if f.Rel != "pkg/m.py" {
			t.Fatalf("Rel=%q, want %q", f.Rel, "pkg/m.py")
		}
	}
}

func TestFilesPrunesExcludedDirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "keep.py", "")
	writeFile(t, root, ".git/hooks/pre.py", "")
	writeFile(t, root, ".venv/lib/site.py", "")
	writeFile(t, root, "__pycache__/keep.cpython.py", "")
	writeFile(t, root, "node_modules/pkg/x.py", "")
	writeFile(t, root, "build/gen.py", "")
	writeFile(t, root, "src/tests/test_x.py", "")
	writeFile(t, root, "src/app.py", "")
	writeFile(t, root, ".hidden.py", "")

	got := strings.Join(collect(t, Request{
		Root:    root,
		Exclude: []string{"build", "src/tests"},
	}), ",")
	want := ".hidden.py,keep.py,src/app.py"
	if got != want {
		t.Fatalf("Files=%q, want %q", got, want)
	}
}

func TestFilesExcludeFilePattern(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "app.py", "")
	writeFile(t, root, "test_app.py", "")
	writeFile(t, root, "pkg/test_pkg.py", "")

	got := strings.Join(collect(t, Request{Root: root, Exclude: []string{"test_*.py"}}), ",")
	if got != "app.py" {
		t.Fatalf("Files=%q, want %q", got, "app.py")
	}
}

func TestFilesHonoursGitignore(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, ".gitignore", "# generated\ngen/\n*_pb2.py\n!keep_pb2.py\n")
	writeFile(t, root, "main.py", "")
	writeFile(t, root, "gen/out.py", "")
	writeFile(t, root, "api/service_pb2.py", "")

	got := strings.Join(collect(t, Request{Root: root, Gitignore: true}), ",")
	if got != "main.py" {
		t.Fatalf("Files(gitignore)=%q, want %q", got, "main.py")
	}

	all := collect(t, Request{Root: root})
	if len(all) != 3 {
		t.Fatalf("Files(no gitignore)=%v, want 3 files", all)
	}
}

func TestFilesCustomFilter(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "a.py", "")
	writeFile(t, root, "b.go", "")
	writeFile(t, root, "c.js", "")

	got := strings.Join(collect(t, Request{Root: root, Filter: ExtensionFilter("go", ".js", " ")}), ",")
	if got != "b.go,c.js" {
		t.Fatalf("Files=%q, want %q", got, "b.go,c.js")
	}
}

func TestFilesSkipsBinary(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "text.py", "def f():\n    pass\n")
	writeFile(t, root, "blob.py", "\x00\x01\x02binary")

	got := strings.Join(collect(t, Request{Root: root}), ",")
	if got != "text.py" {
		t.Fatalf("Files=%q, want %q", got, "text.py")
	}
}

func TestFilesEmptyDirectory(t *testing.T) {
	t.Parallel()

	if got := collect(t, Request{Root: t.TempDir()}); len(got) != 0 {
		t.Fatalf("Files(empty)=%v, want none", got)
	}
}

func TestFilesNotRestartable(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "a.py", "")

	w, err := Open(Request{Root: root})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	first := 0
	for range w.Files(context.Background()) {
		first++
	}
	second := 0
	for range w.Files(context.Background()) {
		second++
	}
	if first != 1 || second != 0 {
		t.Fatalf("first=%d second=%d, want 1 and 0", first, second)
	}
}

func TestFilesStopsWhenConsumerBreaks(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for _, name := range []string{"a.py", "b.py", "c.py", "d/e.py"} {
		writeFile(t, root, name, "")
	}

	seq, err := Scan(context.Background(), Request{Root: root})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	seen := 0
	for range seq {
		seen++
		if seen == 2 {
			break
		}
	}
	if seen != 2 {
		t.Fatalf("seen=%d, want 2", seen)
	}
}

func TestFilesStopsOnCancel(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "a.py", "")
	writeFile(t, root, "b.py", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w, err := Open(Request{Root: root})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for f := range w.Files(ctx) {
		t.Fatalf("unexpected file %q after cancel", f.Rel)
	}
}

func TestOpenInvalidRoot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "file.py")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	tests := []struct {
		name    string
		root    string
		notDir  bool
		missing bool
	}{
		{name: "empty", root: "  "},
		{name: "missing", root: filepath.Join(dir, "nope"), missing: true},
		{name: "file", root: file, notDir: true},
	}
	for _, tt := range tests {
		_, err := Open(Request{Root: tt.root})
		var rootErr *InvalidRootError
		if !errors.As(err, &rootErr) {
			t.Fatalf("%s: Open err=%v, want *InvalidRootError", tt.name, err)
		}
		if tt.notDir && !errors.Is(err, ErrNotDirectory) {
			t.Fatalf("%s: err=%v, want ErrNotDirectory", tt.name, err)
		}
		if tt.missing && !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("%s: err=%v, want os.ErrNotExist", tt.name, err)
		}
	}
}

func TestFilesSymlinkCycle(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "pkg/mod.py", "")
	if err := os.Symlink(root, filepath.Join(root, "pkg", "loop")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(filepath.Join(root, "pkg"), filepath.Join(root, "alias")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	var mu sync.Mutex
	var warnings []error
	got := collect(t, Request{
		Root: root,
		OnWarning: func(err error) {
			mu.Lock()
			defer mu.Unlock()
			warnings = append(warnings, err)
		},
	})

	// "alias" sorts before "pkg", so the tree is reached through the alias.
	if strings.Join(got, ",") != "alias/mod.py" {
		t.Fatalf("Files=%v, want [alias/mod.py]", got)
	}
	if len(warnings) != 2 {
		t.Fatalf("warnings=%v, want 2", warnings)
	}
	for _, w := range warnings {
		var cycle *SymlinkCycleError
		if !errors.As(w, &cycle) {
			t.Fatalf("warning %v is not a *SymlinkCycleError", w)
		}
	}
}

func TestFilesFollowsFileSymlink(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	outside := t.TempDir()
	writeFile(t, outside, "shared.py", "")
	if err := os.Symlink(filepath.Join(outside, "shared.py"), filepath.Join(root, "link.py")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(filepath.Join(outside, "missing.py"), filepath.Join(root, "dangling.py")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	got := collect(t, Request{Root: root})
	if strings.Join(got, ",") != "link.py" {
		t.Fatalf("Files=%v, want [link.py]", got)
	}
}

func TestFilesUnreadableDirectory(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root can list any directory")
	}

	root := t.TempDir()
	writeFile(t, root, "ok/a.py", "")
	writeFile(t, root, "locked/b.py", "")
	writeFile(t, root, "z.py", "")
	locked := filepath.Join(root, "locked")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatalf("Chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	var warnings []error
	got := collect(t, Request{Root: root, OnWarning: func(err error) { warnings = append(warnings, err) }})

	sort.Strings(got)
	if strings.Join(got, ",") != "ok/a.py,z.py" {
		t.Fatalf("Files=%v, want [ok/a.py z.py]", got)
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings=%v, want 1", warnings)
	}
	var accessErr *DirectoryAccessError
	if !errors.As(warnings[0], &accessErr) {
		t.Fatalf("warning %v is not a *DirectoryAccessError", warnings[0])
	}
	if !errors.Is(warnings[0], os.ErrPermission) {
		t.Fatalf("warning %v does not wrap os.ErrPermission", warnings[0])
	}
}

func TestIsIgnoredPath(t *testing.T) {
	t.Parallel()

	patterns := []string{"dist/", "*.gen.py", "/top.py", "docs/conf.py", "cache"}
	tests := []struct {
		rel  string
		want bool
	}{
		{"dist", true},
		{"dist/x.py", true},
		{"pkg/dist/x.py", true},
		{"a.gen.py", true},
		{"pkg/b.gen.py", true},
		{"top.py", true},
		{"pkg/top.py", false},
		{"docs/conf.py", true},
		{"pkg/docs/conf.py", false},
		{"pkg/cache/x.py", true},
		{"main.py", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isIgnoredPath(tt.rel, patterns); got != tt.want {
			t.Errorf("isIgnoredPath(%q)=%v, want %v", tt.rel, got, tt.want)
		}
	}
}

func TestIsExcludedDir(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rel  string
		want bool
	}{
		{".git", ".git", true},
		{"__pycache__", "pkg/__pycache__", true},
		{"node_modules", "node_modules", true},
		{"vendor", "vendor", true},
		{"src", "src", false},
	}
	for _, tt := range tests {
		if got := IsExcludedDir(tt.name, tt.rel, []string{"vendor"}); got != tt.want {
			t.Errorf("IsExcludedDir(%q)=%v, want %v", tt.name, got, tt.want)
		}
	}
}
