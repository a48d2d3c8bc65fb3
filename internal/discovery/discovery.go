// Package discovery finds the scripts and HTML documents of a resource tree.
package discovery

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/resbuilder/internal/logfields"
)

const (
	ScriptSuffix = ".js"
	HTMLSuffix   = ".html"
)

// Walker performs depth-first discovery below a project root.
type Walker struct {
	root   string
	ignore IgnoreSet
}

// New creates a Walker over ResolveRoot(root).
func New(root string, ignore IgnoreSet) *Walker {
	return &Walker{root: ResolveRoot(root), ignore: ignore}
}

// ResolveRoot makes root absolute and follows a symlinked root to its target directory.
// A root that cannot be resolved is returned as the absolute path so later stats report it.
func ResolveRoot(root string) string {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	if real, err := filepath.EvalSymlinks(root); err == nil {
		root = real
	}
	return root
}

// Root returns the absolute project root.
func (w *Walker) Root() string { return w.root }

// Scripts returns every non-ignored script below the root.
func (w *Walker) Scripts() ([]string, error) {
	return w.find(ScriptSuffix, true)
}

// HTML returns every HTML document below the root. The ignored-file set does not apply.
func (w *Walker) HTML() ([]string, error) {
	return w.find(HTMLSuffix, false)
}

// Find returns absolute paths of files ending in suffix, applying the file filters.
func (w *Walker) Find(suffix string) ([]string, error) {
	return w.find(suffix, true)
}

func (w *Walker) find(suffix string, filterFiles bool) ([]string, error) {
	info, err := os.Stat(w.root)
	if err != nil {
		return nil, &NotFoundError{Path: w.root, Err: err}
	}
	if !info.IsDir() {
		return nil, &NotFoundError{Path: w.root}
	}

	var files []string
	err = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == w.root {
			return nil
		}

		rel, err := Rel(w.root, path)
		if err != nil {
			return err
		}

		if d.IsDir() {
			if w.ignore.SkipDir(d.Name(), rel) {
				slog.Debug("Pruned directory", logfields.File(rel))
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(d.Name(), suffix) {
			return nil
		}
		if filterFiles && w.ignore.SkipFile(rel) {
			slog.Debug("Ignored file", logfields.File(rel))
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrWalkFailed, w.root, err)
	}

	slog.Debug("Discovery completed", slog.String("suffix", suffix), logfields.Count(len(files)))
	return files, nil
}
