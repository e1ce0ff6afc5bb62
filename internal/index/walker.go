package index

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// walker lists document files under a root matching the include patterns,
// minus excludes. Hidden files and directories are always skipped.
type walker struct {
	includes []string
	excludes []string
}

func newWalker(includes, excludes []string) *walker {
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	return &walker{includes: includes, excludes: excludes}
}

func (w *walker) walk(root string) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path != root && strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if w.matches(w.excludes, rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if w.matches(w.includes, rel) && !w.matches(w.excludes, rel) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func (w *walker) matches(patterns []string, path string) bool {
	for _, pattern := range patterns {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}
