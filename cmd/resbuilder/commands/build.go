package commands

import "context"

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	BuildFlags `embed:""`
}

func (b *BuildCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	cfg, err := loadConfig(root, b.BuildFlags)
	if err != nil {
		return err
	}
	g.Logger.Debug("Configuration loaded", "config", root.Config, "root", cfg.Project.Root)

	builder, rec, err := newBuilder(cfg, root, b.DryRun)
	if err != nil {
		return err
	}
	_, err = builder.Run(ctx)
	flushMetrics(rec, cfg.Metrics.Textfile)
	return err
}
