package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/resbuilder/internal/build"
	"git.home.luguber.info/inful/resbuilder/internal/config"
	"git.home.luguber.info/inful/resbuilder/internal/metrics"
	"git.home.luguber.info/inful/resbuilder/internal/report"
)

// Global carries state shared by every subcommand.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"resbuilder.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	NoColor bool             `name:"no-color" help:"Disable colored console output"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build    BuildCmd    `cmd:"" default:"withargs" help:"Minify and obfuscate every script into the build directory (default)"`
	Discover DiscoverCmd `cmd:"" help:"List the scripts and HTML documents a build would process"`
	Watch    WatchCmd    `cmd:"" help:"Build, then rebuild whenever scripts, documents or the manifest change"`
	Init     InitCmd     `cmd:"" help:"Write a configuration file populated with the defaults"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: config.LogLevel(c.Verbose)}))
	slog.SetDefault(logger)
	return nil
}

// BuildFlags are shared by build and watch.
type BuildFlags struct {
	Root    string `short:"r" help:"Project root (overrides project.root)"`
	Workers int    `short:"w" help:"Parallel transform workers (overrides transform.workers)"`
	Strict  bool   `help:"Exit non-zero when any file fails"`
	DryRun  bool   `name:"dry-run" help:"Transform without writing outputs or rewriting references"`
}

// loadConfig reads the configuration and applies command-line overrides on top.
func loadConfig(root *CLI, f BuildFlags) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	if f.Root != "" {
		cfg.Project.Root = f.Root
	}
	if f.Workers > 0 {
		cfg.Transform.Workers = f.Workers
	}
	if f.Strict {
		cfg.Build.Strict = true
	}
	return cfg, nil
}

// newBuilder wires the console printer and, when a textfile is configured, a Prometheus recorder.
func newBuilder(cfg *config.Config, root *CLI, dryRun bool) (*build.Builder, *metrics.PrometheusRecorder, error) {
	opts := []build.Option{
		build.WithPrinter(report.NewPrinter(os.Stdout, root.NoColor)),
		build.WithDryRun(dryRun),
	}
	var rec *metrics.PrometheusRecorder
	if cfg.Metrics.Textfile != "" {
		rec = metrics.NewPrometheusRecorder(nil)
		opts = append(opts, build.WithRecorder(rec))
	}
	b, err := build.New(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	return b, rec, nil
}

// flushMetrics writes the textfile export; failures are logged, never fatal.
func flushMetrics(rec *metrics.PrometheusRecorder, path string) {
	if rec == nil {
		return
	}
	if err := metrics.WriteTextfile(rec.Registry(), path); err != nil {
		slog.Warn("Failed to write metrics textfile", "path", path, "error", err)
	}
}
