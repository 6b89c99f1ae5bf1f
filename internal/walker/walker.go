// Package walker discovers candidate files under a workspace root,
// honoring ignore rules and a size cap.
package walker

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileInfo holds metadata about a discovered file.
type FileInfo struct {
	Path     string // absolute
	RelPath  string // slash-separated, relative to root
	Size     int64
	Oversize bool // above the cap; emitted so the indexer can count skips
}

// defaultIgnores apply when the root has no .scoutignore file.
var defaultIgnores = []string{
	".git",
	".svn",
	".hg",
	"node_modules",
	"vendor",
	"target",
	"__pycache__",
	".idea",
	".vscode",
	"dist",
	"build",
}

// Walk traverses the tree rooted at root and sends discovered files on
// the returned channel. Files larger than maxSize are emitted with
// Oversize set so the caller can count them as skipped. Directories
// matching .scoutignore patterns (or the defaults) are pruned. Symlinks
// are never followed.
func Walk(root string, maxSize int64) (<-chan FileInfo, <-chan error) {
	files := make(chan FileInfo, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(files)
		defer close(errs)

		absRoot, err := filepath.Abs(root)
		if err != nil {
			errs <- err
			return
		}

		ignores := loadIgnorePatterns(absRoot)

		err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // unreadable entries are skipped, never abort the walk
			}

			rel, _ := filepath.Rel(absRoot, path)
			rel = filepath.ToSlash(rel)

			if d.IsDir() {
				if path == absRoot {
					return nil
				}
				if matchesIgnore(d.Name(), rel, ignores) {
					return filepath.SkipDir
				}
				return nil
			}

			if d.Type()&fs.ModeSymlink != 0 {
				return nil
			}
			if matchesIgnore(d.Name(), rel, ignores) {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return nil
			}

			files <- FileInfo{
				Path:     path,
				RelPath:  rel,
				Size:     info.Size(),
				Oversize: info.Size() > maxSize,
			}
			return nil
		})
		if err != nil {
			errs <- err
		}
	}()

	return files, errs
}

// loadIgnorePatterns reads .scoutignore from the root, falling back to
// the defaults when the file is absent or empty.
func loadIgnorePatterns(root string) []string {
	f, err := os.Open(filepath.Join(root, ".scoutignore"))
	if err != nil {
		return defaultIgnores
	}
	defer f.Close()

	patterns := append([]string{}, defaultIgnores...)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}

// matchesIgnore checks a name or relative path against the patterns.
func matchesIgnore(name, relPath string, patterns []string) bool {
	for _, p := range patterns {
		// Exact base name match (e.g. "node_modules", ".git").
		if name == p {
			return true
		}
		// Path prefix match (e.g. "third_party/vendor").
		if strings.HasPrefix(relPath, p+"/") || relPath == p {
			return true
		}
		// Glob match against the relative path or the base name.
		if matched, _ := filepath.Match(p, relPath); matched {
			return true
		}
		if matched, _ := filepath.Match(p, name); matched {
			return true
		}
	}
	return false
}
