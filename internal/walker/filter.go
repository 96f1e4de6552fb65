package walker

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// SkippedDirs lists directory names (matched case-insensitively) that never
// hold user documents: archive and OS metadata, trash folders and dependency
// trees that ship their own READMEs and licenses.
var SkippedDirs = []string{
	"__MACOSX",
	"$RECYCLE.BIN",
	"System Volume Information",
	"lost+found",
	"node_modules",
	"__pycache__",
}

// skipDir reports whether a directory subtree is left out of traversal.
func skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, d := range SkippedDirs {
		if strings.EqualFold(name, d) {
			return true
		}
	}
	return false
}

// skipFile reports files that carry a document extension but are not
// documents: hidden files, macOS resource forks ("._report.pdf") and Office
// owner files ("~$report.docx") written while a document is open.
func skipFile(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$")
}

// ValidatePatterns reports the first malformed glob in patterns.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	return nil
}

// MatchesInclude reports whether relPath matches one of patterns. An empty
// list includes everything.
func MatchesInclude(relPath string, patterns []string) bool {
	return len(patterns) == 0 || matchesAny(relPath, patterns)
}

// MatchesExclude reports whether relPath matches one of patterns. An empty
// list excludes nothing.
func MatchesExclude(relPath string, patterns []string) bool {
	return len(patterns) > 0 && matchesAny(relPath, patterns)
}

// matchesAny matches slash-separated relPath against doublestar patterns.
// A pattern without a slash ("*.pdf", "draft-*") is matched against the
// base name so it applies at any depth.
func matchesAny(relPath string, patterns []string) bool {
	base := path.Base(relPath)
	for _, p := range patterns {
		target := relPath
		if !strings.Contains(p, "/") {
			target = base
		}
		if ok, err := doublestar.Match(p, target); err == nil && ok {
			return true
		}
	}
	return false
}
