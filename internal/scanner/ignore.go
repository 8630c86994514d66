package scanner

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

// loadGitIgnorePatterns reads the root-level .gitignore (if present) and
// returns a list of non-empty, non-comment patterns. Negations are dropped.
func loadGitIgnorePatterns(rootPath string) []string {
	data, err := os.ReadFile(filepath.Join(rootPath, ".gitignore"))
	if err != nil {
		return nil
	}

	var patterns []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}

// isIgnoredPath applies a minimal subset of .gitignore semantics. Patterns
// are root-relative against the slash-separated relPath.
func isIgnoredPath(relPath string, patterns []string) bool {
	relPath = strings.TrimPrefix(strings.TrimSpace(relPath), "./")
	if relPath == "" {
		return false
	}

	for _, pattern := range patterns {
		p := filepath.ToSlash(strings.TrimSpace(pattern))
		if p == "" {
			continue
		}
		anchored := strings.HasPrefix(p, "/")
		p = strings.TrimPrefix(p, "/")

		// Directory-style pattern, e.g. "build/".
		if strings.HasSuffix(p, "/") {
			dir := strings.TrimPrefix(strings.TrimSuffix(p, "/"), "./")
			if relPath == dir || strings.HasPrefix(relPath, dir+"/") {
				return true
			}
			if !anchored && !strings.Contains(dir, "/") && containsSegment(relPath, dir) {
				return true
			}
			continue
		}

		if ok, _ := path.Match(p, relPath); ok {
			return true
		}

		// Unanchored patterns without a slash match any path segment.
		if !anchored && !strings.Contains(p, "/") {
			for _, segment := range strings.Split(relPath, "/") {
				if ok, _ := path.Match(p, segment); ok {
					return true
				}
			}
		}
	}

	return false
}

func containsSegment(relPath, segment string) bool {
	return strings.Contains("/"+relPath+"/", "/"+segment+"/")
}
