// Package walker discovers ingestible documents under a directory tree.
package walker

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/ziadkadry99/docsense/internal/document"
	"github.com/ziadkadry99/docsense/internal/loader"
)

// DefaultMaxFileSize is the maximum document size to ingest (50 MB).
const DefaultMaxFileSize int64 = 50 << 20

// FileInfo holds metadata about a single document found during traversal.
type FileInfo struct {
	Path    string // Absolute path on disk.
	RelPath string // Path relative to the root directory, slash separated.
	Size    int64
	Format  document.Format
}

// Config controls the behaviour of Walk.
type Config struct {
	RootDir     string
	Include     []string // Glob patterns; only matching files are kept.
	Exclude     []string // Glob patterns; matching files are dropped.
	MaxFileSize int64    // 0 means DefaultMaxFileSize.
}

// Walk traverses the tree rooted at cfg.RootDir and returns every PDF, TXT
// and DOCX file that passes filtering, sorted by relative path. Hidden
// entries, SkippedDirs and Office owner files are skipped.
func Walk(cfg Config) ([]FileInfo, error) {
	root, err := filepath.Abs(cfg.RootDir)
	if err != nil {
		return nil, fmt.Errorf("walker: resolve root: %w", err)
	}

	if err := ValidatePatterns(cfg.Include); err != nil {
		return nil, fmt.Errorf("walker: include: %w", err)
	}
	if err := ValidatePatterns(cfg.Exclude); err != nil {
		return nil, fmt.Errorf("walker: exclude: %w", err)
	}

	maxSize := cfg.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	var files []FileInfo

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			// Skip entries we cannot read instead of aborting.
			return nil
		}

		name := d.Name()

		if d.IsDir() {
			if path != root && skipDir(name) {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || skipFile(name) {
			return nil
		}

		if !loader.Supported(name) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		relPath := filepath.ToSlash(rel)

		if !MatchesInclude(relPath, cfg.Include) {
			return nil
		}
		if MatchesExclude(relPath, cfg.Exclude) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() > maxSize {
			return nil
		}

		format, err := loader.FormatOf(name)
		if err != nil {
			return nil
		}

		files = append(files, FileInfo{
			Path:    path,
			RelPath: relPath,
			Size:    info.Size(),
			Format:  format,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walker: traversal: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

// Paths returns the absolute paths of files.
func Paths(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}
