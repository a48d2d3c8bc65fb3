// Package rewrite points manifest and HTML references at built scripts.
//
// Both rewriters are textual: every mapping becomes one regular expression applied to the
// whole document, in the order the results were produced.
package rewrite

import (
	"log/slog"
	"os"
	"regexp"

	"git.home.luguber.info/inful/resbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/resbuilder/internal/logfields"
	"git.home.luguber.info/inful/resbuilder/internal/transform"
)

// ManifestOutcome is what happened to the manifest in one run.
type ManifestOutcome string

const (
	ManifestRewritten ManifestOutcome = "rewritten"
	ManifestUnchanged ManifestOutcome = "unchanged"
	ManifestMissing   ManifestOutcome = "missing"
	ManifestSkipped   ManifestOutcome = "skipped"
)

// ManifestText replaces every quoted occurrence of an original path with the built path in
// single quotes. Later mappings see the text produced by earlier ones.
func ManifestText(text string, results []transform.BuildResult) (string, int) {
	total := 0
	for _, r := range results {
		re := regexp.MustCompile(`(['"])` + regexp.QuoteMeta(r.OriginalPath) + `(['"])`)
		n := len(re.FindAllStringIndex(text, -1))
		if n == 0 {
			continue
		}
		text = re.ReplaceAllLiteralString(text, "'"+r.BuiltPath+"'")
		total += n
	}
	return text, total
}

// Manifest rewrites the manifest at path in place. A missing manifest is reported as
// ManifestMissing without an error; a manifest without matches is not written.
func Manifest(path string, results []transform.BuildResult) (ManifestOutcome, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		slog.Warn("Manifest not found, skipping manifest update", logfields.Path(path))
		return ManifestMissing, nil
	}
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryRewrite, "failed to stat manifest").
			WithContext("manifest", path).Build()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryRewrite, "failed to read manifest").
			WithContext("manifest", path).Build()
	}

	text, n := ManifestText(string(data), results)
	if n == 0 {
		slog.Info("Manifest has no references to built scripts", logfields.Path(path))
		return ManifestUnchanged, nil
	}
	if err := os.WriteFile(path, []byte(text), info.Mode().Perm()); err != nil {
		return "", errors.WrapError(err, errors.CategoryRewrite, "failed to write manifest").
			WithContext("manifest", path).Build()
	}
	slog.Info("Manifest updated", logfields.Path(path), logfields.Count(n))
	return ManifestRewritten, nil
}
