package commands

import (
	"context"
	"time"

	"git.home.luguber.info/inful/resbuilder/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	BuildFlags `embed:""`

	Debounce time.Duration `help:"Quiet period before a rebuild" default:"300ms"`
}

func (w *WatchCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	cfg, err := loadConfig(root, w.BuildFlags)
	if err != nil {
		return err
	}
	builder, rec, err := newBuilder(cfg, root, w.DryRun)
	if err != nil {
		return err
	}

	rebuild := func(ctx context.Context) error {
		_, err := builder.Run(ctx)
		flushMetrics(rec, cfg.Metrics.Textfile)
		return err
	}
	// A failed first build still leaves the watcher running; only a missing root is fatal.
	if _, _, err := builder.Discover(); err != nil {
		return err
	}
	if err := rebuild(ctx); err != nil {
		g.Logger.Warn("Initial build failed", "error", err)
	}

	return watch.Run(ctx, builder.Root(), builder.Ignore(), rebuild,
		watch.WithManifest(cfg.Project.Manifest),
		watch.WithDebounce(w.Debounce),
	)
}
