// Package batch finds prompt files and turns each one into a diagram.
package batch

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultMaxFileSize is the largest prompt file considered (64 KB).
const DefaultMaxFileSize int64 = 64 << 10

// DefaultExcludes are directory names never descended into.
var DefaultExcludes = []string{
	".git",
	"node_modules",
	"vendor",
	".flowgen",
	".idea",
	".vscode",
}

// PromptFile is one prompt discovered on disk.
type PromptFile struct {
	Path    string // Absolute path on disk.
	RelPath string // Slash-separated path relative to the root.
	Name    string // Base name without extension, used for output files.
	Prompt  string // Trimmed file content.
}

// Options controls Discover.
type Options struct {
	RootDir     string
	Include     []string // Glob patterns (** supported); at least one is required.
	Exclude     []string
	MaxFileSize int64 // 0 = DefaultMaxFileSize.
}

// Discover walks opts.RootDir and returns the text files matching the
// include patterns, in lexical order. Binary, oversized and blank files are
// skipped.
func Discover(opts Options) ([]PromptFile, error) {
	if len(opts.Include) == 0 {
		return nil, fmt.Errorf("batch: at least one include pattern is required")
	}
	for _, p := range append(append([]string{}, opts.Include...), opts.Exclude...) {
		if !doublestar.ValidatePattern(filepath.ToSlash(p)) {
			return nil, fmt.Errorf("batch: invalid pattern %q", p)
		}
	}

	root, err := filepath.Abs(opts.RootDir)
	if err != nil {
		return nil, fmt.Errorf("batch: resolve root: %w", err)
	}
	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	var files []PromptFile
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Skip entries we cannot read instead of aborting.
			return nil
		}
		if d.IsDir() {
			if path != root && shouldExcludeDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if !matchesAny(relPath, opts.Include) || matchesAny(relPath, opts.Exclude) {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Size() > maxSize || isBinary(path) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		prompt := strings.TrimSpace(string(data))
		if prompt == "" {
			return nil
		}

		base := filepath.Base(path)
		files = append(files, PromptFile{
			Path:    path,
			RelPath: filepath.ToSlash(relPath),
			Name:    strings.TrimSuffix(base, filepath.Ext(base)),
			Prompt:  prompt,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("batch: traversal: %w", err)
	}

	return files, nil
}

func shouldExcludeDir(name string) bool {
	for _, excl := range DefaultExcludes {
		if strings.EqualFold(name, excl) {
			return true
		}
	}
	return false
}

// matchesAny reports whether relPath, or its base name, matches any pattern.
func matchesAny(relPath string, patterns []string) bool {
	normalized := filepath.ToSlash(relPath)
	base := filepath.Base(normalized)

	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if matched, err := doublestar.Match(pattern, normalized); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(pattern, base); err == nil && matched {
			return true
		}
	}
	return false
}

// isBinary reads the first 512 bytes of a file and checks for NUL bytes.
func isBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return true
	}
	for i := 0; i < n; i++ {
		if buf[i] == 0 {
			return true
		}
	}
	return false
}
