// Package obfuscate makes built scripts harder to read while keeping their behavior.
//
// Two backends implement Obfuscator: Native works on the tdewolff/parse AST in-process,
// Command drives the javascript-obfuscator CLI. Both take the same Options.
package obfuscate

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/resbuilder/internal/config"
)

// Obfuscator is a behavior-preserving, readability-reducing source transform.
type Obfuscator interface {
	Obfuscate(ctx context.Context, name, src string) (string, error)
	Name() string
}

// Options is the obfuscation option set shared by the backends.
type Options struct {
	Seed int64

	StringArray          bool
	StringArrayEncoding  config.StringArrayEncoding
	StringArrayRotate    bool
	StringArrayThreshold float64

	SplitStrings            bool
	SplitStringsChunkLength int

	DeadCodeInjection          bool
	DeadCodeInjectionThreshold float64

	ControlFlowFlattening          bool
	ControlFlowFlatteningThreshold float64

	RenameGlobals         bool
	SelfDefending         bool
	Compact               bool
	UnicodeEscapeSequence bool
}

// OptionsFrom converts the configuration section.
func OptionsFrom(c config.ObfuscateConfig) Options {
	return Options{
		Seed:                           c.Seed,
		StringArray:                    c.StringArray,
		StringArrayEncoding:            c.StringArrayEncoding,
		StringArrayRotate:              c.StringArrayRotate,
		StringArrayThreshold:           c.StringArrayThreshold,
		SplitStrings:                   c.SplitStrings,
		SplitStringsChunkLength:        c.SplitStringsChunkLength,
		DeadCodeInjection:              c.DeadCodeInjection,
		DeadCodeInjectionThreshold:     c.DeadCodeInjectionThreshold,
		ControlFlowFlattening:          c.ControlFlowFlattening,
		ControlFlowFlatteningThreshold: c.ControlFlowFlatteningThreshold,
		RenameGlobals:                  c.RenameGlobals,
		SelfDefending:                  c.SelfDefending,
		Compact:                        c.Compact,
		UnicodeEscapeSequence:          c.UnicodeEscapeSequence,
	}
}

// New selects the backend named in the configuration.
func New(c config.ObfuscateConfig) (Obfuscator, error) {
	opts := OptionsFrom(c)
	switch c.Backend {
	case config.ObfuscatorNative, "":
		return NewNative(opts), nil
	case config.ObfuscatorCommand:
		return NewCommand(c.Command, opts), nil
	case config.ObfuscatorNone:
		return Passthrough{}, nil
	default:
		return nil, fmt.Errorf("unknown obfuscator backend %q", c.Backend)
	}
}

// Passthrough returns its input unchanged.
type Passthrough struct{}

func (Passthrough) Name() string { return string(config.ObfuscatorNone) }

func (Passthrough) Obfuscate(ctx context.Context, _ string, src string) (string, error) {
	return src, ctx.Err()
}
