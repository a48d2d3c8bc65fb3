package discovery

import (
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"

	"git.home.luguber.info/inful/resbuilder/internal/logfields"
)

// HiddenPrefix marks directories that are always pruned.
const HiddenPrefix = "."

// IgnoreSet is the static ignore configuration handed to a Walker.
// Files and Dirs are matched exactly and case-sensitively.
type IgnoreSet struct {
	Files    []string // root-relative paths, compared after slash normalization
	Dirs     []string // directory names
	Patterns []string // doublestar globs against root-relative slash paths

	rules *gitignore.GitIgnore
}

// WithIgnoreFile loads gitignore-style rules from file. A missing file leaves the set unchanged.
func (s IgnoreSet) WithIgnoreFile(file string) (IgnoreSet, error) {
	if _, err := os.Stat(file); os.IsNotExist(err) {
		return s, nil
	}
	rules, err := gitignore.CompileIgnoreFile(file)
	if err != nil {
		return s, err
	}
	slog.Debug("Loaded ignore rules", logfields.Path(file))
	s.rules = rules
	return s, nil
}

// WithRules attaches in-memory gitignore-style rules.
func (s IgnoreSet) WithRules(lines ...string) IgnoreSet {
	s.rules = gitignore.CompileIgnoreLines(lines...)
	return s
}

// SkipDir reports whether a directory is pruned. rel is the root-relative slash path.
func (s IgnoreSet) SkipDir(name, rel string) bool {
	if strings.HasPrefix(name, HiddenPrefix) {
		return true
	}
	for _, d := range s.Dirs {
		if d == name {
			return true
		}
	}
	return s.rules != nil && s.rules.MatchesPath(rel+"/")
}

// SkipFile reports whether a file is excluded by the ignored-file set or the pattern rules.
func (s IgnoreSet) SkipFile(rel string) bool {
	for _, f := range s.Files {
		if normalize(f) == rel {
			return true
		}
	}
	for _, p := range s.Patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return s.rules != nil && s.rules.MatchesPath(rel)
}

func normalize(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	if p == "" {
		return p
	}
	return path.Clean(strings.TrimPrefix(p, "./"))
}

// Rel returns target relative to root with forward slashes.
func Rel(root, target string) (string, error) {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}
