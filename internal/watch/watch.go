// Package watch rebuilds a resource tree when its scripts, documents or manifest change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/resbuilder/internal/config"
	"git.home.luguber.info/inful/resbuilder/internal/discovery"
	"git.home.luguber.info/inful/resbuilder/internal/logfields"
)

// DefaultDebounce is the quiet period after the last relevant event before a rebuild.
const DefaultDebounce = 300 * time.Millisecond

// RebuildFunc runs one build.
type RebuildFunc func(ctx context.Context) error

type watcher struct {
	root     string
	ignore   discovery.IgnoreSet
	manifest string
	debounce time.Duration
	rebuild  RebuildFunc
}

// Option configures Run.
type Option func(*watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithManifest sets the root-relative manifest path whose changes trigger a rebuild.
func WithManifest(rel string) Option {
	return func(w *watcher) { w.manifest = path.Clean(filepath.ToSlash(rel)) }
}

// Run watches every non-ignored directory below root and calls rebuild after changes settle.
// Rebuilds never overlap; changes made during a rebuild, including its own manifest and HTML
// writes, queue at most one more. Run returns when ctx is done or the watcher shuts down.
func Run(ctx context.Context, root string, ignore discovery.IgnoreSet, rebuild RebuildFunc, opts ...Option) error {
	w := &watcher{
		root:     discovery.ResolveRoot(root),
		ignore:   ignore,
		manifest: config.DefaultManifest,
		debounce: DefaultDebounce,
		rebuild:  rebuild,
	}
	for _, opt := range opts {
		opt(w)
	}
	if fi, err := os.Stat(w.root); err != nil {
		return &discovery.NotFoundError{Path: w.root, Err: err}
	} else if !fi.IsDir() {
		return &discovery.NotFoundError{Path: w.root}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = fw.Close() }()
	if err := w.addDirsRecursive(fw, w.root); err != nil {
		return err
	}

	slog.Info("Watching for changes", logfields.Path(w.root))
	return w.serve(ctx, fw.Events, fw.Errors, fw)
}

// dirAdder registers a directory with the underlying watcher.
type dirAdder interface {
	Add(name string) error
}

// serve runs the rebuild worker and the event loop. It returns when ctx is done or either
// channel closes, and never before the worker has stopped.
func (w *watcher) serve(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, fw dirAdder) error {
	ctx, cancel := context.WithCancel(ctx)
	rebuildReq, trigger, stop := newDebouncer(w.debounce)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-rebuildReq:
				slog.Info("Change detected; rebuilding")
				if err := w.rebuild(ctx); err != nil {
					slog.Warn("Rebuild failed", logfields.Error(err))
				}
			}
		}
	}()
	defer func() {
		stop()
		cancel()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Stopped watching")
			return nil
		case ev, ok := <-events:
			if !ok {
				slog.Warn("Watcher event stream closed")
				return nil
			}
			w.handleEvent(fw, ev, trigger)
		case err, ok := <-errs:
			if !ok {
				slog.Warn("Watcher error stream closed")
				return nil
			}
			slog.Warn("Watcher error", logfields.Error(err))
		}
	}
}

func (w *watcher) handleEvent(fw dirAdder, ev fsnotify.Event, trigger func()) {
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			if w.ignored(ev.Name) {
				return
			}
			_ = w.addDirsRecursive(fw, ev.Name)
			trigger()
			return
		}
	}
	if !w.relevant(ev.Name) {
		return
	}
	slog.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	trigger()
}

// relevant reports whether a change to path should trigger a rebuild: a script, an HTML
// document or the manifest, outside pruned directories.
func (w *watcher) relevant(path string) bool {
	if w.ignored(path) || shouldIgnoreEvent(path) {
		return false
	}
	rel, err := discovery.Rel(w.root, path)
	if err != nil {
		return false
	}
	if rel == w.manifest {
		return true
	}
	return strings.HasSuffix(rel, discovery.ScriptSuffix) || strings.HasSuffix(rel, discovery.HTMLSuffix)
}

// ignored reports whether path lies outside the root or below a pruned directory.
func (w *watcher) ignored(path string) bool {
	rel, err := discovery.Rel(w.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		return true
	}
	parts := strings.Split(rel, "/")
	for i := range parts {
		dir := strings.Join(parts[:i+1], "/")
		isLast := i == len(parts)-1
		if isLast {
			if fi, err := os.Stat(path); err != nil || !fi.IsDir() {
				break
			}
		}
		if w.ignore.SkipDir(parts[i], dir) {
			return true
		}
	}
	return false
}

func (w *watcher) addDirsRecursive(fw dirAdder, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root {
			rel, relErr := discovery.Rel(w.root, path)
			if relErr == nil && w.ignore.SkipDir(d.Name(), rel) {
				return filepath.SkipDir
			}
		}
		if err := fw.Add(path); err != nil {
			slog.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

// newDebouncer returns a request channel, a trigger that fires it after d of quiet, and a
// stop function for the pending timer.
func newDebouncer(d time.Duration) (<-chan struct{}, func(), func()) {
	var mu sync.Mutex
	var timer *time.Timer
	req := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(d, func() {
			select {
			case req <- struct{}{}:
			default:
			}
		})
	}
	stop := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
	}
	return req, trigger, stop
}

// shouldIgnoreEvent returns true for hidden, editor temp and lock files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
