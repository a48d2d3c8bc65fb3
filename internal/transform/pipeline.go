// Package transform runs each script through read, minify, obfuscate and write.
package transform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/resbuilder/internal/config"
	"git.home.luguber.info/inful/resbuilder/internal/discovery"
	"git.home.luguber.info/inful/resbuilder/internal/logfields"
	"git.home.luguber.info/inful/resbuilder/internal/metrics"
	"git.home.luguber.info/inful/resbuilder/internal/minify"
	"git.home.luguber.info/inful/resbuilder/internal/obfuscate"
	"git.home.luguber.info/inful/resbuilder/internal/observability"
)

// Event is delivered to the progress callback after each file, serialized.
type Event struct {
	Result   BuildResult
	Err      *FileError
	Duration time.Duration
}

// Pipeline transforms scripts below a project root.
type Pipeline struct {
	root       string
	buildDir   string
	minifier   minify.Minifier
	obfuscator obfuscate.Obfuscator
	workers    int
	timeout    time.Duration
	dryRun     bool
	recorder   metrics.Recorder

	progressMu sync.Mutex
	progress   func(Event)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBuildDir sets the name of the sibling output directory.
func WithBuildDir(name string) Option {
	return func(p *Pipeline) {
		if name != "" {
			p.buildDir = name
		}
	}
}

// WithWorkers bounds how many files are transformed at once. Values below 1 mean 1.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		p.workers = max(n, 1)
	}
}

// WithTimeout bounds the time spent on one file. Zero disables the limit.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.timeout = d }
}

// WithDryRun runs every stage except the write.
func WithDryRun(dry bool) Option {
	return func(p *Pipeline) { p.dryRun = dry }
}

// WithRecorder injects a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.recorder = r
		}
	}
}

// WithProgress registers a callback invoked after each file.
func WithProgress(fn func(Event)) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// New creates a Pipeline. root must be the directory the results are made relative to.
func New(root string, m minify.Minifier, o obfuscate.Obfuscator, opts ...Option) *Pipeline {
	p := &Pipeline{
		root:       discovery.ResolveRoot(root),
		buildDir:   config.DefaultBuildDir,
		minifier:   m,
		obfuscator: o,
		workers:    1,
		recorder:   metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// OutputPath returns <dir of source>/<build dir>/<base name>.
func (p *Pipeline) OutputPath(path string) string {
	return filepath.Join(filepath.Dir(path), p.buildDir, filepath.Base(path))
}

// File transforms one script. Any error is a *FileError.
func (p *Pipeline) File(ctx context.Context, path string) (BuildResult, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.root, path)
	}
	rel, err := discovery.Rel(p.root, path)
	if err != nil {
		return BuildResult{}, &FileError{Path: filepath.ToSlash(path), Stage: StageRead, Err: err}
	}
	fail := func(stage Stage, err error) (BuildResult, error) {
		return BuildResult{}, &FileError{Path: rel, Stage: stage, Err: err}
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	ctx = observability.WithFile(ctx, rel)

	src, err := os.ReadFile(path)
	if err != nil {
		return fail(StageRead, err)
	}
	if err := ctx.Err(); err != nil {
		return fail(StageRead, err)
	}

	minified, err := p.minifier.Minify(ctx, rel, string(src))
	if err != nil {
		return fail(StageMinify, err)
	}
	observability.DebugContext(ctx, "Minified", logfields.Backend(p.minifier.Name()),
		logfields.Count(len(minified)))

	obfuscated, err := p.obfuscator.Obfuscate(ctx, rel, minified)
	if err != nil {
		return fail(StageObfuscate, err)
	}

	out := p.OutputPath(path)
	built, err := discovery.Rel(p.root, out)
	if err != nil {
		return fail(StageWrite, err)
	}
	if !p.dryRun {
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return fail(StageWrite, err)
		}
		if err := os.WriteFile(out, []byte(obfuscated), 0o644); err != nil {
			return fail(StageWrite, err)
		}
	}
	p.recorder.ObserveFileSize(len(src), len(obfuscated))
	return BuildResult{OriginalPath: rel, BuiltPath: built}, nil
}

// Run transforms paths on the worker pool. Results and failures keep the order of paths.
// Once ctx is done, files not yet started are reported as failures with the context error.
func (p *Pipeline) Run(ctx context.Context, paths []string) ([]BuildResult, []FileFailure) {
	p.recorder.SetWorkers(p.workers)
	observability.InfoContext(ctx, "Transforming scripts", logfields.Count(len(paths)),
		logfields.Workers(p.workers), logfields.Backend(p.minifier.Name()+"+"+p.obfuscator.Name()))

	results := make([]*BuildResult, len(paths))
	failures := make([]*FileError, len(paths))

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, path := range paths {
		if ctx.Err() != nil {
			failures[i] = p.canceled(path, ctx.Err())
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				failures[i] = p.canceled(path, err)
				return nil
			}
			start := time.Now()
			res, err := p.File(ctx, path)
			elapsed := time.Since(start)

			ev := Event{Duration: elapsed}
			if err != nil {
				var fe *FileError
				if !errors.As(err, &fe) {
					fe = &FileError{Path: filepath.ToSlash(path), Stage: StageRead, Err: err}
				}
				failures[i] = fe
				ev.Err = fe
				p.recorder.ObserveFileDuration(elapsed, metrics.ResultFailed)
				observability.ErrorContext(observability.WithFile(ctx, fe.Path), "Failed to build script",
					logfields.Stage(string(fe.Stage)), logfields.Error(fe.Err))
			} else {
				results[i] = &res
				ev.Result = res
				p.recorder.ObserveFileDuration(elapsed, metrics.ResultSuccess)
				observability.InfoContext(observability.WithFile(ctx, res.OriginalPath), "Built script",
					logfields.Built(res.BuiltPath), logfields.DurationMS(float64(elapsed.Microseconds())/1000))
			}
			p.emit(ev)
			return nil
		})
	}
	_ = g.Wait()

	var built []BuildResult
	var failed []FileFailure
	for i := range paths {
		switch {
		case results[i] != nil:
			built = append(built, *results[i])
		case failures[i] != nil:
			failed = append(failed, *failures[i])
		}
	}
	return built, failed
}

func (p *Pipeline) canceled(path string, err error) *FileError {
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.root, path)
	}
	rel, relErr := discovery.Rel(p.root, path)
	if relErr != nil {
		rel = filepath.ToSlash(path)
	}
	return &FileError{Path: rel, Stage: StageRead, Err: err}
}

func (p *Pipeline) emit(ev Event) {
	if p.progress == nil {
		return
	}
	p.progressMu.Lock()
	defer p.progressMu.Unlock()
	p.progress(ev)
}
