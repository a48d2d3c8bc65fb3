// Package minify wraps the JavaScript minifiers used by the transform pipeline.
package minify

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/resbuilder/internal/config"
)

// Minifier is a behavior-preserving, size-reducing source transform.
type Minifier interface {
	Minify(ctx context.Context, name, src string) (string, error)
	Name() string
}

// Options is the minifier option set shared by the backends.
type Options struct {
	KeepConsole  bool
	DropDebugger bool
	TopLevel     bool
	KeepNames    bool
}

// OptionsFrom converts the configuration section.
func OptionsFrom(c config.MinifyConfig) Options {
	return Options{
		KeepConsole:  c.KeepConsole,
		DropDebugger: c.DropDebugger,
		TopLevel:     c.TopLevel,
		KeepNames:    c.KeepNames,
	}
}

// New selects the backend named in the configuration.
func New(c config.MinifyConfig) (Minifier, error) {
	opts := OptionsFrom(c)
	switch c.Backend {
	case config.MinifierESBuild, "":
		return NewESBuild(opts), nil
	case config.MinifierTdewolff:
		return NewTdewolff(opts), nil
	case config.MinifierNone:
		return Passthrough{}, nil
	default:
		return nil, fmt.Errorf("unknown minifier backend %q", c.Backend)
	}
}

// Passthrough returns its input unchanged.
type Passthrough struct{}

func (Passthrough) Name() string { return string(config.MinifierNone) }

func (Passthrough) Minify(ctx context.Context, _ string, src string) (string, error) {
	return src, ctx.Err()
}
