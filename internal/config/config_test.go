package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/resbuilder/internal/foundation/errors"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultManifest, cfg.Project.Manifest)
	require.Equal(t, DefaultBuildDir, cfg.Project.BuildDir)
	require.Equal(t, []string{"web/bridge.js"}, cfg.Ignore.Files)
	require.Contains(t, cfg.Ignore.Dirs, "node_modules")
	require.Equal(t, MinifierESBuild, cfg.Minify.Backend)
	require.True(t, cfg.Minify.KeepConsole)
	require.Equal(t, ObfuscatorNative, cfg.Obfuscate.Backend)
	require.Equal(t, EncodingRC4, cfg.Obfuscate.StringArrayEncoding)
	require.Equal(t, 1, cfg.Transform.Workers)
	require.True(t, cfg.Rewrite.Manifest)
	require.True(t, cfg.Rewrite.HTML)
}

func TestLoad_OverridesKeepUnspecifiedDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resbuilder.yaml")
	content := "project:\n" +
		"  build_dir: dist\n" +
		"minify:\n" +
		"  backend: TdeWolff\n" +
		"transform:\n" +
		"  workers: 3\n" +
		"  timeout: 30s\n" +
		"obfuscate:\n" +
		"  dead_code_injection_threshold: 2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "dist", cfg.Project.BuildDir)
	require.Contains(t, cfg.Ignore.Dirs, "dist", "output dir must always be pruned from discovery")
	require.Equal(t, MinifierTdewolff, cfg.Minify.Backend)
	require.True(t, cfg.Minify.DropDebugger)
	require.Equal(t, 3, cfg.Transform.Workers)
	require.Equal(t, 30*time.Second, cfg.Transform.Timeout)
	require.InDelta(t, 1.0, cfg.Obfuscate.DeadCodeInjectionThreshold, 1e-9)
	require.True(t, cfg.Obfuscate.SelfDefending)
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("RESBUILDER_TEST_MANIFEST", "__resource.lua")
	path := filepath.Join(t.TempDir(), "resbuilder.yaml")
	require.NoError(t, os.WriteFile(path, []byte("project:\n  manifest: ${RESBUILDER_TEST_MANIFEST}\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "__resource.lua", cfg.Project.Manifest)
}

func TestLoad_DotEnvDoesNotOverrideProcessEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("RESBUILDER_TEST_DIR=fromfile\nRESBUILDER_TEST_ONLYFILE=x\n"), 0o644))
	t.Setenv("RESBUILDER_TEST_DIR", "fromenv")
	t.Cleanup(func() { _ = os.Unsetenv("RESBUILDER_TEST_ONLYFILE") })

	path := filepath.Join(dir, "resbuilder.yaml")
	require.NoError(t, os.WriteFile(path, []byte("project:\n  build_dir: ${RESBUILDER_TEST_DIR}\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "fromenv", cfg.Project.BuildDir)
	require.Equal(t, "x", os.Getenv("RESBUILDER_TEST_ONLYFILE"))
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resbuilder.yaml")
	require.NoError(t, os.WriteFile(path, []byte("project: [unclosed\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"build dir with separator", "project:\n  build_dir: out/build\n"},
		{"absolute manifest", "project:\n  manifest: /etc/fxmanifest.lua\n"},
		{"unknown minifier", "minify:\n  backend: terser\n"},
		{"unknown obfuscator", "obfuscate:\n  backend: jscrambler\n"},
		{"unknown encoding", "obfuscate:\n  string_array_encoding: xor\n"},
		{"bad glob", "ignore:\n  patterns: ['web/[']\n"},
		{"dir entry with path", "ignore:\n  dirs: ['web/vendor']\n"},
		{"mangled names", "obfuscate:\n  identifier_names_generator: mangled\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			require.True(t, errors.HasCategory(err, errors.CategoryConfig))
		})
	}
}

func TestNormalize_IgnoreFiles(t *testing.T) {
	cfg, err := Parse([]byte("ignore:\n  files: ['web\\\\bridge.js', './web/bridge.js', ' ', 'client/main.js']\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"web/bridge.js", "client/main.js"}, cfg.Ignore.Files)
}

func TestNormalize_ManifestPath(t *testing.T) {
	cfg, err := Parse([]byte("project:\n  manifest: ./fxmanifest.lua\n"))
	require.NoError(t, err)
	require.Equal(t, "fxmanifest.lua", cfg.Project.Manifest)

	cfg, err = Parse([]byte("project:\n  manifest: 'resource\\fxmanifest.lua'\n"))
	require.NoError(t, err)
	require.Equal(t, "resource/fxmanifest.lua", cfg.Project.Manifest)
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultConfigFile)
	require.NoError(t, Init(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Default().Obfuscate, cfg.Obfuscate)

	err = Init(path, false)
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryValidation))
	require.NoError(t, Init(path, true))
}

func TestLogLevel(t *testing.T) {
	t.Setenv(EnvLogLevel, "warn")
	require.Equal(t, "WARN", LogLevel(false).String())
	require.Equal(t, "DEBUG", LogLevel(true).String())
	t.Setenv(EnvLogLevel, "")
	require.Equal(t, "INFO", LogLevel(false).String())
}
