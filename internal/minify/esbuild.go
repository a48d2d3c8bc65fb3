package minify

import (
	"context"
	"fmt"
	"strings"

	esbuildapi "github.com/evanw/esbuild/pkg/api"

	"git.home.luguber.info/inful/resbuilder/internal/config"
)

// ESBuild minifies with esbuild's transform API.
type ESBuild struct {
	opts Options
}

func NewESBuild(opts Options) *ESBuild { return &ESBuild{opts: opts} }

func (e *ESBuild) Name() string { return string(config.MinifierESBuild) }

// TransformOptions maps Options onto esbuild. MinifySyntax covers dead-code removal,
// constant and conditional folding, if-return folding and declaration merging.
func (e *ESBuild) TransformOptions(name string) esbuildapi.TransformOptions {
	var drop esbuildapi.Drop
	if e.opts.DropDebugger {
		drop |= esbuildapi.DropDebugger
	}
	if !e.opts.KeepConsole {
		drop |= esbuildapi.DropConsole
	}

	opts := esbuildapi.TransformOptions{
		Loader:            esbuildapi.LoaderJS,
		Sourcefile:        name,
		Target:            esbuildapi.ES2020,
		MinifyWhitespace:  true,
		MinifySyntax:      true,
		MinifyIdentifiers: true,
		KeepNames:         e.opts.KeepNames,
		Drop:              drop,
		LegalComments:     esbuildapi.LegalCommentsNone,
		Charset:           esbuildapi.CharsetUTF8,
		Sourcemap:         esbuildapi.SourceMapNone,
		LogLevel:          esbuildapi.LogLevelSilent,
	}
	if e.opts.TopLevel {
		// Wrapping the file makes top-level bindings local, so they are renamed and
		// unused ones are dropped.
		opts.Format = esbuildapi.FormatIIFE
		opts.TreeShaking = esbuildapi.TreeShakingTrue
	}
	return opts
}

func (e *ESBuild) Minify(ctx context.Context, name, src string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	result := esbuildapi.Transform(src, e.TransformOptions(name))
	if len(result.Errors) > 0 {
		return "", fmt.Errorf("esbuild failed with %d error(s): %s", len(result.Errors), formatMessages(result.Errors))
	}
	return string(result.Code), nil
}

func formatMessages(msgs []esbuildapi.Message) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Location != nil {
			parts = append(parts, fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text))
			continue
		}
		parts = append(parts, m.Text)
	}
	return strings.Join(parts, "; ")
}
