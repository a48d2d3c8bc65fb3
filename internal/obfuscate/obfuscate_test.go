package obfuscate

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"testing"

	esbuildapi "github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/resbuilder/internal/config"
)

const sample = `"use strict";
function registerHandlers(bus) {
  var prefix = "secret-token-value";
  var count = 0;
  bus.on("player:join", function (id) {
    count++;
    bus.emit("notify", prefix + ":" + id);
  });
  var settings = {"alpha": 1, beta: 2};
  settings["gamma"] = count;
  return settings;
}
registerHandlers(globalThis.bus);
`

func fullOptions(seed int64) Options {
	return OptionsFrom(config.ObfuscateConfig{
		Seed:                           seed,
		StringArray:                    true,
		StringArrayEncoding:            config.EncodingRC4,
		StringArrayRotate:              true,
		StringArrayThreshold:           1,
		SplitStrings:                   true,
		SplitStringsChunkLength:        10,
		DeadCodeInjection:              true,
		DeadCodeInjectionThreshold:     1,
		ControlFlowFlattening:          true,
		ControlFlowFlatteningThreshold: 1,
		SelfDefending:                  true,
		Compact:                        true,
	})
}

func requireParses(t *testing.T, src string) {
	t.Helper()
	result := esbuildapi.Transform(src, esbuildapi.TransformOptions{Loader: esbuildapi.LoaderJS, LogLevel: esbuildapi.LogLevelSilent})
	require.Empty(t, result.Errors, "output should parse:\n%s", src)
}

func TestNative_FullPipeline(t *testing.T) {
	out, stats, err := NewNative(fullOptions(42)).ObfuscateStats(context.Background(), "main.js", sample)
	require.NoError(t, err)
	requireParses(t, out)

	require.True(t, strings.HasPrefix(out, `"use strict";`), out)
	require.Contains(t, out, "registerHandlers")
	require.Contains(t, out, "alpha")
	for _, plain := range []string{"secret-token-value", "secret-tok", "player:join", "notify", "gamma", "prefix", "settings"} {
		require.NotContains(t, out, plain)
	}
	require.LessOrEqual(t, strings.Count(out, "\n"), 1)

	require.Positive(t, stats.Renamed)
	require.Positive(t, stats.Flattened)
	require.Positive(t, stats.DeadCode)
	require.Positive(t, stats.Strings)
}

func TestNative_SeedIsDeterministic(t *testing.T) {
	ctx := context.Background()
	a, err := NewNative(fullOptions(7)).Obfuscate(ctx, "main.js", sample)
	require.NoError(t, err)
	b, err := NewNative(fullOptions(7)).Obfuscate(ctx, "main.js", sample)
	require.NoError(t, err)
	require.Equal(t, a, b)

	c, err := NewNative(fullOptions(8)).Obfuscate(ctx, "main.js", sample)
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestNative_RenamesOnlyLocals(t *testing.T) {
	src := `var total = 0;
function computeTotal(items) {
  var runningTotal = 0;
  for (var i = 0; i < items.length; i++) { runningTotal += items[i]; }
  return runningTotal;
}
total = computeTotal([1, 2, 3]);
`
	out, err := NewNative(Options{Seed: 1}).Obfuscate(context.Background(), "totals.js", src)
	require.NoError(t, err)
	requireParses(t, out)
	require.Contains(t, out, "computeTotal")
	require.Contains(t, out, "total")
	require.NotContains(t, out, "runningTotal")
	require.NotContains(t, out, "items")
}

func TestNative_WithStatementKeepsNames(t *testing.T) {
	src := `function lookup(scope) { var local = 1; with (scope) { return local; } }`
	out, err := NewNative(Options{Seed: 1}).Obfuscate(context.Background(), "with.js", src)
	require.NoError(t, err)
	require.Contains(t, out, "local")
	require.Contains(t, out, "scope")
}

func TestNative_FlattenKeepsDirectives(t *testing.T) {
	src := `function steps() {
  "use strict";
  var a = 1;
  a += 2;
  a *= 3;
  return a;
}`
	out, stats, err := NewNative(Options{Seed: 3, ControlFlowFlattening: true, ControlFlowFlatteningThreshold: 1, Compact: true}).
		ObfuscateStats(context.Background(), "steps.js", src)
	require.NoError(t, err)
	requireParses(t, out)
	require.Equal(t, 1, stats.Flattened)
	require.Contains(t, out, `{"use strict";`)
	require.Contains(t, out, "switch")
}

func TestNative_FlattenSkipsHoistedDeclarations(t *testing.T) {
	src := `function outer() {
  let a = inner();
  function inner() { return 1; }
  return a;
}`
	_, stats, err := NewNative(Options{Seed: 3, ControlFlowFlattening: true, ControlFlowFlatteningThreshold: 1}).
		ObfuscateStats(context.Background(), "outer.js", src)
	require.NoError(t, err)
	require.Zero(t, stats.Flattened)
}

func TestNative_SelfDefendingForcesCompact(t *testing.T) {
	src := "function greet(name) {\n  return 'hi ' + name;\n}\n"
	out, err := NewNative(Options{Seed: 5, SelfDefending: true}).Obfuscate(context.Background(), "greet.js", src)
	require.NoError(t, err)
	requireParses(t, out)
	require.Contains(t, out, `return"dev"`)
	require.LessOrEqual(t, strings.Count(out, "\n"), 1)
}

func TestNative_UnicodeEscapeSequence(t *testing.T) {
	src := `function label() { var s = "grüß"; return s; }`
	out, err := NewNative(Options{Seed: 5, UnicodeEscapeSequence: true, Compact: true}).Obfuscate(context.Background(), "label.js", src)
	require.NoError(t, err)
	require.NotContains(t, out, "ü")
	require.NotContains(t, out, "ß")
}

func TestNative_Errors(t *testing.T) {
	n := NewNative(fullOptions(1))

	_, err := n.Obfuscate(context.Background(), "broken.js", "function (")
	require.Error(t, err)
	require.Contains(t, err.Error(), "broken.js")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = n.Obfuscate(ctx, "main.js", sample)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNative_EmptySource(t *testing.T) {
	out, err := NewNative(fullOptions(1)).Obfuscate(context.Background(), "empty.js", "")
	require.NoError(t, err)
	requireParses(t, out)
}

var arrayPattern = regexp.MustCompile(`^var _0x[0-9a-f]+=\[([^\]]*)\];\(function\(a,n\)\{[^}]*\}\}\)\(_0x[0-9a-f]+,0x([0-9a-f]+)\);`)

func TestStringTable_RotationRestoresOrder(t *testing.T) {
	rng := NewNative(Options{Seed: 9}).random("table.js")
	table := newStringTable(rng, newNameGenerator(rng, ""), Options{
		StringArrayRotate:   true,
		StringArrayEncoding: config.EncodingNone,
	})
	values := []string{"a", "b", "c", "d", "e"}
	for _, v := range values {
		table.entry(v)
	}

	m := arrayPattern.FindStringSubmatch(table.preamble())
	require.NotNil(t, m, table.preamble())

	stored := strings.Split(m[1], ",")
	shift, err := strconv.ParseInt(m[2], 16, 64)
	require.NoError(t, err)
	for ; shift > 0; shift-- {
		stored = append(stored[1:], stored[0])
	}
	for i, v := range values {
		require.Equal(t, strconv.Quote(v), stored[i])
	}
}

func TestStringTable_EncodingsDecodeInGo(t *testing.T) {
	rng := NewNative(Options{Seed: 2}).random("enc.js")
	table := newStringTable(rng, newNameGenerator(rng, ""), Options{StringArrayEncoding: config.EncodingRC4})
	i := table.entry("Grüße, welt")
	e := table.entries[i]
	require.Len(t, e.key, rc4KeyLength)

	stored := table.encode(e)
	require.NotContains(t, stored, "welt")
	require.Equal(t, "Grüße, welt", string(rc4Crypt(e.key, mustBase64(t, stored))))

	table.opts.StringArrayEncoding = config.EncodingBase64
	require.Equal(t, "Grüße, welt", string(mustBase64(t, table.encode(e))))
}

func TestStringTable_ReuseAndSplit(t *testing.T) {
	rng := NewNative(Options{Seed: 2}).random("split.js")
	table := newStringTable(rng, newNameGenerator(rng, ""), Options{
		StringArrayEncoding:     config.EncodingRC4,
		SplitStrings:            true,
		SplitStringsChunkLength: 3,
	})
	ref := table.reference("abcdefg")
	require.True(t, strings.HasPrefix(ref, "("), ref)
	require.Equal(t, 2, strings.Count(ref, "+"))
	require.Len(t, table.entries, 3)

	require.Equal(t, table.reference("abc"), table.call(0))
	require.Len(t, table.entries, 3)
}

func TestUnquoteJS(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{`"plain"`, "plain", true},
		{`'single'`, "single", true},
		{`"a\nb\tc"`, "a\nb\tc", true},
		{`"\x41B\u{43}"`, "ABC", true},
		{`"😀"`, "😀", true},
		{`"it\'s"`, "it's", true},
		{"\"line\\\ncontinued\"", "linecontinued", true},
		{`"\0"`, "\x00", true},
		{`"\012"`, "", false},
		{`"\7"`, "", false},
		{`"\ud83d"`, "", false},
		{`"unterminated`, "", false},
	}
	for _, tc := range cases {
		got, ok := unquoteJS([]byte(tc.in))
		require.Equal(t, tc.ok, ok, tc.in)
		if tc.ok {
			require.Equal(t, tc.want, got, tc.in)
		}
	}
}

func TestQuoteJS(t *testing.T) {
	require.Equal(t, `"a\"b\\c\nd"`, quoteJS("a\"b\\c\nd", false))
	require.Equal(t, `"\x01"`, quoteJS("\x01", false))
	require.Equal(t, `"ü"`, quoteJS("ü", false))
	require.Equal(t, `"\u00fc\ud83d\ude00"`, quoteJS("ü😀", true))
	require.Equal(t, `"\u2028"`, quoteJS("\u2028", false))
}

func TestChunks(t *testing.T) {
	require.Equal(t, []string{"abc"}, chunks("abc", 10))
	require.Equal(t, []string{"ab", "cd", "e"}, chunks("abcde", 2))
	require.Equal(t, []string{"üß", "x"}, chunks("üßx", 2))
	require.Equal(t, []string{""}, chunks("", 3))
}

func TestNew_SelectsBackend(t *testing.T) {
	o, err := New(config.ObfuscateConfig{Backend: config.ObfuscatorNative})
	require.NoError(t, err)
	require.Equal(t, "native", o.Name())

	o, err = New(config.ObfuscateConfig{Backend: config.ObfuscatorCommand, Command: "javascript-obfuscator"})
	require.NoError(t, err)
	require.Equal(t, "command", o.Name())

	o, err = New(config.ObfuscateConfig{Backend: config.ObfuscatorNone})
	require.NoError(t, err)
	out, err := o.Obfuscate(context.Background(), "x.js", "var a=1")
	require.NoError(t, err)
	require.Equal(t, "var a=1", out)

	_, err = New(config.ObfuscateConfig{Backend: "uglify"})
	require.Error(t, err)
}

func TestCommand_Args(t *testing.T) {
	c := NewCommand("javascript-obfuscator", fullOptions(42))
	args := strings.Join(c.Args("in.js", "out.js"), " ")
	require.True(t, strings.HasPrefix(args, "in.js --output out.js"))
	for _, want := range []string{
		"--compact true",
		"--control-flow-flattening-threshold 1",
		"--dead-code-injection-threshold 1",
		"--identifier-names-generator hexadecimal",
		"--rename-globals false",
		"--self-defending true",
		"--split-strings-chunk-length 10",
		"--string-array-encoding rc4",
		"--string-array-rotate true",
		"--unicode-escape-sequence false",
		"--seed 42",
	} {
		require.Contains(t, args, want)
	}
}

func TestCommand_RunsExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stub")
	}
	bin := filepath.Join(t.TempDir(), "fake-obfuscator")
	script := "#!/bin/sh\nin=\"$1\"\nwhile [ $# -gt 0 ]; do\n  if [ \"$1\" = \"--output\" ]; then { echo '/*x*/'; cat \"$in\"; } > \"$2\"; fi\n  shift\ndone\n"
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))

	out, err := NewCommand(bin, Options{}).Obfuscate(context.Background(), "main.js", "var a=1;")
	require.NoError(t, err)
	require.Equal(t, "/*x*/\nvar a=1;", out)

	failing := filepath.Join(t.TempDir(), "failing")
	require.NoError(t, os.WriteFile(failing, []byte("#!/bin/sh\necho boom >&2\nexit 3\n"), 0o755))
	_, err = NewCommand(failing, Options{}).Obfuscate(context.Background(), "main.js", "var a=1;")
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
}

func mustBase64(t *testing.T, s string) []byte {
	t.Helper()
	b, err := base64.StdEncoding.DecodeString(s)
	require.NoError(t, err)
	return b
}
