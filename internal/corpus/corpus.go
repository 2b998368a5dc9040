// Package corpus resolves a target path into the ordered set of source
// files handed to the scan engine. All disk I/O for a scan happens here;
// the engine itself never touches the filesystem.
package corpus

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/gobwas/glob"

	"github.com/example/solscan/internal/scan"
)

// Directories that hold dependencies or build output rather than
// first-party contracts.
var skippedDirs = map[string]bool{
	"node_modules": true,
	"lib":          true,
	"artifacts":    true,
	"vendor":       true,
	"out":          true,
	"cache":        true,
}

// Provider collects Solidity files under a root path. Exclude patterns
// are matched against the slash-separated path relative to the root.
type Provider struct {
	excludes []glob.Glob
}

// NewProvider compiles the exclude patterns. Patterns use glob syntax,
// e.g. "test/**" or "**/*Mock.sol".
func NewProvider(excludes []string) (*Provider, error) {
	p := &Provider{}
	for _, pattern := range excludes {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("compile exclude pattern %q: %w", pattern, err)
		}
		p.excludes = append(p.excludes, g)
	}
	return p, nil
}

// Collect returns the corpus for root, which may be a single .sol file
// or a directory tree. Files come back sorted by path so downstream
// output is deterministic. Binary and non-UTF-8 files are skipped.
func (p *Provider) Collect(root string) ([]scan.SourceFile, error) {
	st, err := os.Stat(root)
	if err != nil {
		return nil, err
	}

	if !st.IsDir() {
		if !isSolidity(root) {
			return nil, fmt.Errorf("%s is not a Solidity source file", root)
		}
		file, ok, err := readSource(root, root)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		return []scan.SourceFile{file}, nil
	}

	var files []scan.SourceFile
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path == root {
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") || skippedDirs[d.Name()] || p.excluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !isSolidity(path) || p.excluded(rel) {
			return nil
		}

		file, ok, readErr := readSource(path, rel)
		if readErr != nil {
			return readErr
		}
		if ok {
			files = append(files, file)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func (p *Provider) excluded(rel string) bool {
	for _, g := range p.excludes {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

func isSolidity(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".sol")
}

// readSource loads one file and splits it into lines. ok is false for
// content that is not valid UTF-8 text.
func readSource(path, logical string) (scan.SourceFile, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return scan.SourceFile{}, false, err
	}
	if !utf8.Valid(data) {
		return scan.SourceFile{}, false, nil
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	var lines []string
	if text != "" {
		lines = strings.Split(text, "\n")
	}

	return scan.SourceFile{Path: logical, Lines: lines}, true, nil
}
