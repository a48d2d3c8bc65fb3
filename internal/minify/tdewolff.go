package minify

import (
	"context"

	tdminify "github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/js"

	"git.home.luguber.info/inful/resbuilder/internal/config"
)

const mediaTypeJS = "application/javascript"

// Tdewolff minifies with github.com/tdewolff/minify. Only KeepNames applies: the backend
// neither drops statements nor wraps top-level code.
type Tdewolff struct {
	m *tdminify.M
}

func NewTdewolff(opts Options) *Tdewolff {
	m := tdminify.New()
	m.Add(mediaTypeJS, &js.Minifier{KeepVarNames: opts.KeepNames})
	return &Tdewolff{m: m}
}

func (t *Tdewolff) Name() string { return string(config.MinifierTdewolff) }

func (t *Tdewolff) Minify(ctx context.Context, _ string, src string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return t.m.String(mediaTypeJS, src)
}
