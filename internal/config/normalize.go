package config

import (
	"fmt"
	"path"
	"strings"
)

// NormalizationResult captures adjustments & warnings from normalization pass.
type NormalizationResult struct{ Warnings []string }

// NormalizeConfig canonicalizes enumerations and path lists prior to default application.
// It mutates the provided config in-place and returns a result describing any coercions.
func NormalizeConfig(c *Config) (*NormalizationResult, error) {
	if c == nil {
		return nil, fmt.Errorf("config nil")
	}
	res := &NormalizationResult{}

	c.Minify.Backend = MinifierBackend(strings.ToLower(strings.TrimSpace(string(c.Minify.Backend))))
	c.Obfuscate.Backend = ObfuscatorBackend(strings.ToLower(strings.TrimSpace(string(c.Obfuscate.Backend))))
	c.Obfuscate.StringArrayEncoding = StringArrayEncoding(strings.ToLower(strings.TrimSpace(string(c.Obfuscate.StringArrayEncoding))))
	c.Obfuscate.IdentifierNamesGenerator = strings.ToLower(strings.TrimSpace(c.Obfuscate.IdentifierNamesGenerator))

	if m := strings.TrimSpace(c.Project.Manifest); m != "" {
		c.Project.Manifest = path.Clean(strings.ReplaceAll(m, "\\", "/"))
	}

	c.Ignore.Files = normalizeStringSlice("ignore.files", toSlash(c.Ignore.Files), res)
	c.Ignore.Dirs = normalizeStringSlice("ignore.dirs", c.Ignore.Dirs, res)
	c.Ignore.Patterns = normalizeStringSlice("ignore.patterns", c.Ignore.Patterns, res)

	c.Obfuscate.StringArrayThreshold = clampRatio("obfuscate.string_array_threshold", c.Obfuscate.StringArrayThreshold, res)
	c.Obfuscate.DeadCodeInjectionThreshold = clampRatio("obfuscate.dead_code_injection_threshold", c.Obfuscate.DeadCodeInjectionThreshold, res)
	c.Obfuscate.ControlFlowFlatteningThreshold = clampRatio("obfuscate.control_flow_flattening_threshold", c.Obfuscate.ControlFlowFlatteningThreshold, res)

	return res, nil
}

// toSlash converts Windows separators so ignore entries compare against slash paths.
func toSlash(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		v = strings.ReplaceAll(v, "\\", "/")
		if v != "" {
			v = path.Clean(strings.TrimPrefix(v, "./"))
		}
		out[i] = v
	}
	return out
}

// normalizeStringSlice trims and dedupes a string slice, keeping first-seen order.
func normalizeStringSlice(label string, in []string, res *NormalizationResult) []string {
	if len(in) == 0 {
		return in
	}

	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	changed := false

	for _, v := range in {
		t := strings.TrimSpace(v)
		if t == "" {
			changed = true
			continue
		}
		if _, ok := seen[t]; ok {
			changed = true
			continue
		}
		if t != v {
			changed = true
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	if changed {
		res.Warnings = append(res.Warnings, fmt.Sprintf("normalized %s list (%d -> %d entries)", label, len(in), len(out)))
	}
	return out
}

func clampRatio(label string, v float64, res *NormalizationResult) float64 {
	switch {
	case v < 0:
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s %.2f clamped to 0", label, v))
		return 0
	case v > 1:
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s %.2f clamped to 1", label, v))
		return 1
	}
	return v
}
