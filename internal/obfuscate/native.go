package obfuscate

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"

	esbuildapi "github.com/evanw/esbuild/pkg/api"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"

	"git.home.luguber.info/inful/resbuilder/internal/config"
)

// ErrInvalidOutput is returned when an obfuscated script no longer parses.
var ErrInvalidOutput = errors.New("obfuscated output is not valid JavaScript")

// Native obfuscates in-process. Passes run in this order: local renaming, control-flow
// flattening, dead-code injection, string extraction, self-defending guard, compaction.
// Global bindings are never renamed regardless of RenameGlobals.
type Native struct {
	opts Options
}

func NewNative(opts Options) *Native {
	if opts.SplitStringsChunkLength <= 0 {
		opts.SplitStringsChunkLength = 10
	}
	return &Native{opts: opts}
}

func (*Native) Name() string { return string(config.ObfuscatorNative) }

// Stats counts what the passes changed in one script.
type Stats struct {
	Renamed   int
	Flattened int
	DeadCode  int
	Strings   int
}

func (n *Native) Obfuscate(ctx context.Context, name, src string) (string, error) {
	out, _, err := n.ObfuscateStats(ctx, name, src)
	return out, err
}

// ObfuscateStats is Obfuscate that also reports per-pass counts.
func (n *Native) ObfuscateStats(ctx context.Context, name, src string) (string, Stats, error) {
	var stats Stats
	if err := ctx.Err(); err != nil {
		return "", stats, err
	}
	ast, err := js.Parse(parse.NewInputString(src), js.Options{})
	if err != nil {
		return "", stats, fmt.Errorf("parse %s: %w", name, err)
	}

	rng := n.random(name)
	names := newNameGenerator(rng, src)

	if !usesDynamicScope(ast) {
		stats.Renamed = renameLocals(ast, names)
	}
	if n.opts.ControlFlowFlattening {
		f := &flattener{rng: rng, names: names, threshold: n.opts.ControlFlowFlatteningThreshold}
		stats.Flattened = f.run(ast)
	}
	if n.opts.DeadCodeInjection {
		d := &deadCodeInjector{rng: rng, names: names, threshold: n.opts.DeadCodeInjectionThreshold}
		stats.DeadCode = d.run(ast)
	}
	if err := ctx.Err(); err != nil {
		return "", stats, err
	}

	var preamble string
	if n.opts.SelfDefending {
		preamble = selfDefendingGuard(names)
	}
	if n.opts.StringArray {
		table := newStringTable(rng, names, n.opts)
		stats.Strings = table.extract(ast)
		preamble += table.preamble()
	}
	if preamble != "" {
		stmts, err := parseProgram(preamble)
		if err != nil {
			return "", stats, fmt.Errorf("%s: %w", name, err)
		}
		ast.List = insertAfterDirectives(ast.List, stmts)
	}

	out, err := n.compact(name, ast.JSString())
	return out, stats, err
}

// compact reprints the result through esbuild, which also rejects output that no longer parses.
func (n *Native) compact(name, src string) (string, error) {
	charset := esbuildapi.CharsetUTF8
	if n.opts.UnicodeEscapeSequence {
		charset = esbuildapi.CharsetASCII
	}
	result := esbuildapi.Transform(src, esbuildapi.TransformOptions{
		Loader:           esbuildapi.LoaderJS,
		Sourcefile:       name,
		MinifyWhitespace: n.opts.Compact || n.opts.SelfDefending,
		Charset:          charset,
		LegalComments:    esbuildapi.LegalCommentsNone,
		LogLevel:         esbuildapi.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return "", fmt.Errorf("%s: %w: %s", name, ErrInvalidOutput, result.Errors[0].Text)
	}
	return string(result.Code), nil
}

// random is seeded per file so that a fixed seed gives stable output for each script.
func (n *Native) random(name string) *rand.Rand {
	seed := uint64(n.opts.Seed)
	if seed == 0 {
		seed = rand.Uint64()
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return rand.New(rand.NewPCG(seed, h.Sum64()))
}
