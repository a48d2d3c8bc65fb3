package build

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/resbuilder/internal/config"
	"git.home.luguber.info/inful/resbuilder/internal/discovery"
	"git.home.luguber.info/inful/resbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/resbuilder/internal/logfields"
	"git.home.luguber.info/inful/resbuilder/internal/metrics"
	"git.home.luguber.info/inful/resbuilder/internal/minify"
	"git.home.luguber.info/inful/resbuilder/internal/obfuscate"
	"git.home.luguber.info/inful/resbuilder/internal/observability"
	"git.home.luguber.info/inful/resbuilder/internal/report"
	"git.home.luguber.info/inful/resbuilder/internal/rewrite"
	"git.home.luguber.info/inful/resbuilder/internal/transform"
)

const (
	stageDiscover  = "discover"
	stageTransform = "transform"
	stageManifest  = "manifest"
	stageHTML      = "html"
	stageAudit     = "audit"
)

// Builder orchestrates one build per Run call.
type Builder struct {
	cfg        *config.Config
	root       string
	ignore     discovery.IgnoreSet
	minifier   minify.Minifier
	obfuscator obfuscate.Obfuscator
	recorder   metrics.Recorder
	printer    *report.Printer
	dryRun     bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithRecorder injects a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(b *Builder) {
		if r != nil {
			b.recorder = r
		}
	}
}

// WithPrinter enables console progress lines and the summary.
func WithPrinter(p *report.Printer) Option {
	return func(b *Builder) { b.printer = p }
}

// WithDryRun transforms scripts without writing outputs or rewriting references.
func WithDryRun(dry bool) Option {
	return func(b *Builder) { b.dryRun = dry }
}

// WithMinifier replaces the configured minifier backend.
func WithMinifier(m minify.Minifier) Option {
	return func(b *Builder) { b.minifier = m }
}

// WithObfuscator replaces the configured obfuscator backend.
func WithObfuscator(o obfuscate.Obfuscator) Option {
	return func(b *Builder) { b.obfuscator = o }
}

// New prepares a Builder from a finalized configuration.
func New(cfg *config.Config, opts ...Option) (*Builder, error) {
	root := discovery.ResolveRoot(cfg.Project.Root)
	var err error

	b := &Builder{
		cfg:      cfg,
		root:     root,
		recorder: metrics.NoopRecorder{},
		ignore: discovery.IgnoreSet{
			Files:    cfg.Ignore.Files,
			Dirs:     cfg.Ignore.Dirs,
			Patterns: cfg.Ignore.Patterns,
		},
	}
	for _, opt := range opts {
		opt(b)
	}

	if cfg.Ignore.IgnoreFile != "" {
		b.ignore, err = b.ignore.WithIgnoreFile(filepath.Join(root, cfg.Ignore.IgnoreFile))
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryConfig, "failed to load ignore file").
				Fatal().WithContext("ignore_file", cfg.Ignore.IgnoreFile).Build()
		}
	}
	if b.minifier == nil {
		if b.minifier, err = minify.New(cfg.Minify); err != nil {
			return nil, errors.WrapError(err, errors.CategoryConfig, "invalid minifier").Fatal().Build()
		}
	}
	if b.obfuscator == nil {
		if b.obfuscator, err = obfuscate.New(cfg.Obfuscate); err != nil {
			return nil, errors.WrapError(err, errors.CategoryConfig, "invalid obfuscator").Fatal().Build()
		}
	}
	return b, nil
}

// Root returns the absolute project root.
func (b *Builder) Root() string { return b.root }

// Ignore returns the effective ignore set, including loaded ignore-file rules.
func (b *Builder) Ignore() discovery.IgnoreSet { return b.ignore }

// Discover lists the scripts and HTML documents a build would process.
func (b *Builder) Discover() (scripts, html []string, err error) {
	w := discovery.New(b.root, b.ignore)
	if scripts, err = w.Scripts(); err != nil {
		return nil, nil, classifyDiscovery(err)
	}
	if html, err = w.HTML(); err != nil {
		return nil, nil, classifyDiscovery(err)
	}
	return scripts, html, nil
}

// Run executes one build. Per-file failures do not produce an error unless strict mode is
// configured; the report carries them either way.
func (b *Builder) Run(ctx context.Context) (*report.Report, error) {
	rep := &report.Report{
		RunID:  uuid.NewString(),
		Root:   b.root,
		DryRun: b.dryRun,
		Start:  time.Now(),
	}
	ctx = observability.WithRunID(ctx, rep.RunID)
	outcome := metrics.BuildOutcomeFailed
	defer func() {
		rep.Duration = time.Since(rep.Start)
		b.recorder.ObserveBuildDuration(rep.Duration)
		b.recorder.IncBuildOutcome(outcome)
	}()

	observability.InfoContext(ctx, "Starting build", logfields.Path(b.root))
	walker := discovery.New(b.root, b.ignore)

	stageStart := time.Now()
	scripts, err := walker.Scripts()
	if err != nil {
		b.recorder.IncStageResult(stageDiscover, metrics.ResultFailed)
		return rep, classifyDiscovery(err)
	}
	b.finishStage(stageDiscover, stageStart)
	rep.Discovered = len(scripts)

	if len(scripts) == 0 {
		observability.InfoContext(ctx, "Nothing to build")
		outcome = metrics.BuildOutcomeSuccess
		b.summary(rep)
		return rep, nil
	}

	stageStart = time.Now()
	tctx := observability.WithStage(ctx, stageTransform)
	opts := []transform.Option{
		transform.WithBuildDir(b.cfg.Project.BuildDir),
		transform.WithWorkers(b.cfg.Transform.Workers),
		transform.WithTimeout(b.cfg.Transform.Timeout),
		transform.WithDryRun(b.dryRun),
		transform.WithRecorder(b.recorder),
	}
	if b.printer != nil {
		opts = append(opts, transform.WithProgress(b.printer.Progress))
	}
	pipeline := transform.New(b.root, b.minifier, b.obfuscator, opts...)
	rep.Results, rep.Failures = pipeline.Run(tctx, scripts)
	if err := ctx.Err(); err != nil {
		outcome = metrics.BuildOutcomeCanceled
		b.recorder.IncStageResult(stageTransform, metrics.ResultCanceled)
		return rep, err
	}
	b.finishStage(stageTransform, stageStart)

	rep.Manifest = rewrite.ManifestSkipped
	if len(rep.Results) > 0 {
		if err := b.rewrite(ctx, walker, rep); err != nil {
			return rep, err
		}
	} else {
		observability.WarnContext(ctx, "No script was built, skipping reference rewriting")
	}

	outcome = rep.Outcome()
	b.summary(rep)

	if b.cfg.Build.Strict && rep.Partial() {
		return rep, errors.BuildError("build finished with failures").
			WithCause(fmt.Errorf("%w: %d scripts, %d HTML files failed", ErrPartial, rep.Failed(), len(rep.HTML.Failed))).
			WithContext("run_id", rep.RunID).Build()
	}
	return rep, nil
}

func (b *Builder) rewrite(ctx context.Context, walker *discovery.Walker, rep *report.Report) error {
	if b.cfg.Rewrite.Manifest && !b.dryRun {
		stageStart := time.Now()
		outcome, err := rewrite.Manifest(b.cfg.ManifestPath(), rep.Results)
		if err != nil {
			b.recorder.IncStageResult(stageManifest, metrics.ResultFailed)
			return err
		}
		rep.Manifest = outcome
		if outcome == rewrite.ManifestMissing {
			b.recorder.IncStageResult(stageManifest, metrics.ResultWarning)
			if b.printer != nil {
				b.printer.Warn("Manifest %s not found, skipping manifest update", b.cfg.Project.Manifest)
			}
		} else {
			b.finishStage(stageManifest, stageStart)
		}
	}

	if !b.cfg.Rewrite.HTML && !b.cfg.Rewrite.Audit {
		return nil
	}
	docs, err := walker.HTML()
	if err != nil {
		b.recorder.IncStageResult(stageHTML, metrics.ResultFailed)
		return classifyDiscovery(err)
	}

	if b.cfg.Rewrite.HTML && !b.dryRun {
		stageStart := time.Now()
		rep.HTML = rewrite.HTMLFiles(observability.WithStage(ctx, stageHTML), b.root, docs, rep.Results)
		if len(rep.HTML.Failed) > 0 {
			b.recorder.IncStageResult(stageHTML, metrics.ResultWarning)
		} else {
			b.finishStage(stageHTML, stageStart)
		}
	}

	if b.cfg.Rewrite.Audit {
		stageStart := time.Now()
		actx := observability.WithStage(ctx, stageAudit)
		for _, doc := range docs {
			findings, err := rewrite.Audit(doc, b.root, rep.Results)
			if err != nil {
				observability.WarnContext(actx, "Failed to audit HTML file", logfields.Path(doc), logfields.Error(err))
				continue
			}
			rep.Findings = append(rep.Findings, findings...)
		}
		if len(rep.Findings) > 0 {
			observability.WarnContext(actx, "HTML references still point at original scripts", logfields.Count(len(rep.Findings)))
		}
		b.finishStage(stageAudit, stageStart)
	}
	return nil
}

func (b *Builder) finishStage(stage string, start time.Time) {
	b.recorder.ObserveStageDuration(stage, time.Since(start))
	b.recorder.IncStageResult(stage, metrics.ResultSuccess)
}

func (b *Builder) summary(rep *report.Report) {
	rep.Duration = time.Since(rep.Start)
	if b.printer != nil {
		b.printer.Summary(rep)
	}
}

func classifyDiscovery(err error) error {
	var nf *discovery.NotFoundError
	if stderrors.As(err, &nf) {
		return errors.NotFoundError("project root not found").WithCause(err).WithContext("root", nf.Path).Build()
	}
	return errors.WrapError(fmt.Errorf("%w: %w", ErrDiscovery, err), errors.CategoryFileSystem, "discovery failed").
		Fatal().Build()
}
