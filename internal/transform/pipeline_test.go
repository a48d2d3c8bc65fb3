package transform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/resbuilder/internal/minify"
	"git.home.luguber.info/inful/resbuilder/internal/obfuscate"
)

type funcMinifier func(ctx context.Context, name, src string) (string, error)

func (f funcMinifier) Minify(ctx context.Context, name, src string) (string, error) {
	return f(ctx, name, src)
}
func (funcMinifier) Name() string { return "func" }

type funcObfuscator func(ctx context.Context, name, src string) (string, error)

func (f funcObfuscator) Obfuscate(ctx context.Context, name, src string) (string, error) {
	return f(ctx, name, src)
}
func (funcObfuscator) Name() string { return "func" }

var (
	upper funcMinifier = func(_ context.Context, _ string, src string) (string, error) {
		return strings.ToUpper(src), nil
	}
	tag funcObfuscator = func(_ context.Context, name, src string) (string, error) {
		return "/*" + name + "*/" + src, nil
	}
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func abs(root string, rels ...string) []string {
	out := make([]string, len(rels))
	for i, r := range rels {
		out[i] = filepath.Join(root, filepath.FromSlash(r))
	}
	return out
}

func TestFile_WritesSiblingBuildDir(t *testing.T) {
	root := writeTree(t, map[string]string{"main.js": "var a=1", "web/script.js": "var b=2"})
	p := New(root, upper, tag)

	res, err := p.File(context.Background(), filepath.Join(root, "web", "script.js"))
	require.NoError(t, err)
	require.Equal(t, BuildResult{OriginalPath: "web/script.js", BuiltPath: "web/build/script.js"}, res)

	data, err := os.ReadFile(filepath.Join(root, "web", "build", "script.js"))
	require.NoError(t, err)
	require.Equal(t, "/*web/script.js*/VAR B=2", string(data))

	res, err = p.File(context.Background(), "main.js")
	require.NoError(t, err)
	require.Equal(t, "build/main.js", res.BuiltPath)
}

func TestFile_OverwritesExistingOutput(t *testing.T) {
	root := writeTree(t, map[string]string{"main.js": "new", "build/main.js": "stale content"})
	_, err := New(root, minify.Passthrough{}, obfuscate.Passthrough{}).File(context.Background(), filepath.Join(root, "main.js"))
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(root, "build", "main.js"))
	require.NoError(t, err)
	require.Equal(t, "new", string(data))
}

func TestFile_CustomBuildDir(t *testing.T) {
	root := writeTree(t, map[string]string{"main.js": "x"})
	res, err := New(root, upper, tag, WithBuildDir("dist")).File(context.Background(), filepath.Join(root, "main.js"))
	require.NoError(t, err)
	require.Equal(t, "dist/main.js", res.BuiltPath)
	require.FileExists(t, filepath.Join(root, "dist", "main.js"))
}

func TestFile_Stages(t *testing.T) {
	boom := errors.New("boom")
	root := writeTree(t, map[string]string{"main.js": "x"})
	path := filepath.Join(root, "main.js")

	cases := []struct {
		name  string
		p     *Pipeline
		path  string
		stage Stage
	}{
		{"read", New(root, upper, tag), filepath.Join(root, "missing.js"), StageRead},
		{"minify", New(root, funcMinifier(func(context.Context, string, string) (string, error) { return "", boom }), tag), path, StageMinify},
		{"obfuscate", New(root, upper, funcObfuscator(func(context.Context, string, string) (string, error) { return "", boom })), path, StageObfuscate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.p.File(context.Background(), tc.path)
			var fe *FileError
			require.ErrorAs(t, err, &fe)
			require.Equal(t, tc.stage, fe.Stage)
			require.Contains(t, err.Error(), string(tc.stage))
		})
	}
}

func TestFile_WriteFailure(t *testing.T) {
	root := writeTree(t, map[string]string{"main.js": "x", "build": "not a directory"})
	_, err := New(root, upper, tag).File(context.Background(), filepath.Join(root, "main.js"))
	var fe *FileError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, StageWrite, fe.Stage)
	require.Equal(t, "main.js", fe.Path)
}

func TestFile_DryRunWritesNothing(t *testing.T) {
	root := writeTree(t, map[string]string{"main.js": "x"})
	res, err := New(root, upper, tag, WithDryRun(true)).File(context.Background(), filepath.Join(root, "main.js"))
	require.NoError(t, err)
	require.Equal(t, "build/main.js", res.BuiltPath)
	require.NoDirExists(t, filepath.Join(root, "build"))
}

func TestFile_Timeout(t *testing.T) {
	root := writeTree(t, map[string]string{"slow.js": "x"})
	blocking := funcMinifier(func(ctx context.Context, _ string, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	_, err := New(root, blocking, tag, WithTimeout(20*time.Millisecond)).File(context.Background(), filepath.Join(root, "slow.js"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_FailureDoesNotAbortBatch(t *testing.T) {
	root := writeTree(t, map[string]string{"a.js": "a", "c.js": "c"})
	paths := abs(root, "a.js", "b.js", "c.js")

	results, failures := New(root, upper, tag).Run(context.Background(), paths)
	require.Equal(t, []BuildResult{
		{OriginalPath: "a.js", BuiltPath: "build/a.js"},
		{OriginalPath: "c.js", BuiltPath: "build/c.js"},
	}, results)
	require.Len(t, failures, 1)
	require.Equal(t, "b.js", failures[0].Path)
	require.Equal(t, StageRead, failures[0].Stage)
	require.NoFileExists(t, filepath.Join(root, "build", "b.js"))
}

func TestRun_OrderIsStableWithWorkers(t *testing.T) {
	files := map[string]string{}
	var rels []string
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		rel := "web/" + name + ".js"
		files[rel] = name
		rels = append(rels, rel)
	}
	root := writeTree(t, files)

	var active, peak atomic.Int32
	slowFirst := funcMinifier(func(_ context.Context, name, src string) (string, error) {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		// earlier files finish later
		time.Sleep(time.Duration(8-int(src[0]-'a')) * 3 * time.Millisecond)
		return src, nil
	})

	results, failures := New(root, slowFirst, tag, WithWorkers(4)).Run(context.Background(), abs(root, rels...))
	require.Empty(t, failures)
	require.Len(t, results, len(rels))
	for i, rel := range rels {
		require.Equal(t, rel, results[i].OriginalPath)
	}
	require.LessOrEqual(t, peak.Load(), int32(4))
}

func TestRun_CanceledContext(t *testing.T) {
	root := writeTree(t, map[string]string{"a.js": "a", "b.js": "b"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, failures := New(root, upper, tag).Run(ctx, abs(root, "a.js", "b.js"))
	require.Empty(t, results)
	require.Len(t, failures, 2)
	for _, f := range failures {
		require.ErrorIs(t, f.Err, context.Canceled)
	}
	require.Equal(t, "a.js", failures[0].Path)
}

func TestRun_ProgressEvents(t *testing.T) {
	root := writeTree(t, map[string]string{"a.js": "a"})
	var events []Event
	p := New(root, upper, tag, WithProgress(func(ev Event) { events = append(events, ev) }))

	p.Run(context.Background(), abs(root, "a.js", "missing.js"))
	require.Len(t, events, 2)

	var built, failed int
	for _, ev := range events {
		if ev.Err != nil {
			failed++
			require.Equal(t, "missing.js", ev.Err.Path)
		} else {
			built++
			require.Equal(t, "build/a.js", ev.Result.BuiltPath)
		}
	}
	require.Equal(t, 1, built)
	require.Equal(t, 1, failed)
}

func TestWithWorkers_Floor(t *testing.T) {
	require.Equal(t, 1, New(t.TempDir(), upper, tag, WithWorkers(0)).workers)
	require.Equal(t, 3, New(t.TempDir(), upper, tag, WithWorkers(3)).workers)
}
