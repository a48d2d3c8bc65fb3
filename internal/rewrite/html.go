package rewrite

import (
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/resbuilder/internal/discovery"
	"git.home.luguber.info/inful/resbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/resbuilder/internal/logfields"
	"git.home.luguber.info/inful/resbuilder/internal/transform"
)

type form struct{ from, to string }

// forms returns the root-relative form of a mapping and, for documents below the root,
// the document-relative one.
func forms(docDir string, r transform.BuildResult) []form {
	out := []form{{from: r.OriginalPath, to: r.BuiltPath}}
	if docDir == "" || docDir == "." {
		return out
	}
	from, err1 := relSlash(docDir, r.OriginalPath)
	to, err2 := relSlash(docDir, r.BuiltPath)
	if err1 != nil || err2 != nil || from == r.OriginalPath {
		return out
	}
	return append(out, form{from: from, to: to})
}

func relSlash(base, target string) (string, error) {
	rel, err := filepath.Rel(filepath.FromSlash(base), filepath.FromSlash(target))
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// HTMLText rewrites src and href attribute values in text. docDir is the root-relative
// slash directory of the document ("" or "." for the root).
func HTMLText(text, docDir string, results []transform.BuildResult) (string, int) {
	total := 0
	for _, r := range results {
		for _, f := range forms(docDir, r) {
			re := regexp.MustCompile(`(src|href)=(["'])` + regexp.QuoteMeta(f.from) + `(["'])`)
			n := len(re.FindAllStringIndex(text, -1))
			if n == 0 {
				continue
			}
			text = re.ReplaceAllString(text, "${1}=${2}"+strings.ReplaceAll(f.to, "$", "$$")+"${3}")
			total += n
		}
	}
	return text, total
}

// HTMLFile rewrites one document in place and reports whether it changed.
func HTMLFile(root, htmlPath string, results []transform.BuildResult) (bool, error) {
	rel, err := discovery.Rel(root, htmlPath)
	if err != nil {
		return false, errors.WrapError(err, errors.CategoryRewrite, "HTML file outside project root").
			WithContext("html_path", htmlPath).Build()
	}
	info, err := os.Stat(htmlPath)
	if err != nil {
		return false, errors.WrapError(err, errors.CategoryRewrite, "failed to stat HTML file").
			WithContext("html_path", rel).Build()
	}
	data, err := os.ReadFile(htmlPath)
	if err != nil {
		return false, errors.WrapError(err, errors.CategoryRewrite, "failed to read HTML file").
			WithContext("html_path", rel).Build()
	}

	text, n := HTMLText(string(data), path.Dir(rel), results)
	if n == 0 {
		slog.Info("No changes needed", logfields.File(rel))
		return false, nil
	}
	if err := os.WriteFile(htmlPath, []byte(text), info.Mode().Perm()); err != nil {
		return false, errors.WrapError(err, errors.CategoryRewrite, "failed to write HTML file").
			WithContext("html_path", rel).Build()
	}
	slog.Info("Updated HTML references", logfields.File(rel), logfields.Count(n))
	return true, nil
}

// HTMLFailure records a document that could not be processed.
type HTMLFailure struct {
	Path string
	Err  error
}

// HTMLSummary counts the outcome of an HTML pass.
type HTMLSummary struct {
	Rewritten []string
	Unchanged []string
	Failed    []HTMLFailure
}

// HTMLFiles rewrites every document, continuing past per-file errors.
func HTMLFiles(ctx context.Context, root string, htmlPaths []string, results []transform.BuildResult) HTMLSummary {
	var sum HTMLSummary
	for _, p := range htmlPaths {
		rel, relErr := discovery.Rel(root, p)
		if relErr != nil {
			rel = filepath.ToSlash(p)
		}
		if err := ctx.Err(); err != nil {
			sum.Failed = append(sum.Failed, HTMLFailure{Path: rel, Err: err})
			continue
		}
		changed, err := HTMLFile(root, p, results)
		switch {
		case err != nil:
			slog.Error("Failed to update HTML file", logfields.File(rel), logfields.Error(err))
			sum.Failed = append(sum.Failed, HTMLFailure{Path: rel, Err: err})
		case changed:
			sum.Rewritten = append(sum.Rewritten, rel)
		default:
			sum.Unchanged = append(sum.Unchanged, rel)
		}
	}
	return sum
}
