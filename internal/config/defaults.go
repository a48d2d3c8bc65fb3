package config

import "runtime"

const (
	DefaultConfigFile = "resbuilder.yaml"
	DefaultManifest   = "fxmanifest.lua"
	DefaultBuildDir   = "build"
	DefaultIgnoreFile = ".buildignore"
)

// Default returns the configuration used when no file is present. Values mirror the
// resource build script this tool replaces.
func Default() *Config {
	return &Config{
		Project: ProjectConfig{
			Root:     ".",
			Manifest: DefaultManifest,
			BuildDir: DefaultBuildDir,
		},
		Ignore: IgnoreConfig{
			Files:      []string{"web/bridge.js"},
			Dirs:       []string{"node_modules", DefaultBuildDir, ".git", "stream"},
			IgnoreFile: DefaultIgnoreFile,
		},
		Minify: MinifyConfig{
			Backend:      MinifierESBuild,
			KeepConsole:  true,
			DropDebugger: true,
			TopLevel:     true,
		},
		Obfuscate: ObfuscateConfig{
			Backend:                        ObfuscatorNative,
			Command:                        "javascript-obfuscator",
			StringArray:                    true,
			StringArrayEncoding:            EncodingRC4,
			StringArrayRotate:              true,
			StringArrayThreshold:           1,
			SplitStrings:                   true,
			SplitStringsChunkLength:        10,
			DeadCodeInjection:              true,
			DeadCodeInjectionThreshold:     0.4,
			ControlFlowFlattening:          true,
			ControlFlowFlatteningThreshold: 0.75,
			IdentifierNamesGenerator:       "hexadecimal",
			RenameGlobals:                  false,
			SelfDefending:                  true,
			Compact:                        true,
			UnicodeEscapeSequence:          false,
		},
		Transform: TransformConfig{Workers: 1},
		Rewrite:   RewriteConfig{Manifest: true, HTML: true},
	}
}

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config)
	Domain() string
}

// ProjectDefaultApplier fills in empty project locations.
type ProjectDefaultApplier struct{}

func (ProjectDefaultApplier) Domain() string { return "project" }

func (ProjectDefaultApplier) ApplyDefaults(cfg *Config) {
	if cfg.Project.Root == "" {
		cfg.Project.Root = "."
	}
	if cfg.Project.Manifest == "" {
		cfg.Project.Manifest = DefaultManifest
	}
	if cfg.Project.BuildDir == "" {
		cfg.Project.BuildDir = DefaultBuildDir
	}
}

// IgnoreDefaultApplier keeps the build output directory out of discovery.
type IgnoreDefaultApplier struct{}

func (IgnoreDefaultApplier) Domain() string { return "ignore" }

func (IgnoreDefaultApplier) ApplyDefaults(cfg *Config) {
	for _, d := range cfg.Ignore.Dirs {
		if d == cfg.Project.BuildDir {
			return
		}
	}
	cfg.Ignore.Dirs = append(cfg.Ignore.Dirs, cfg.Project.BuildDir)
}

// TransformDefaultApplier bounds the worker pool.
type TransformDefaultApplier struct{}

func (TransformDefaultApplier) Domain() string { return "transform" }

func (TransformDefaultApplier) ApplyDefaults(cfg *Config) {
	if cfg.Transform.Workers <= 0 {
		cfg.Transform.Workers = 1
	}
	if limit := runtime.NumCPU() * 4; cfg.Transform.Workers > limit {
		cfg.Transform.Workers = limit
	}
	if cfg.Transform.Timeout < 0 {
		cfg.Transform.Timeout = 0
	}
}

// ObfuscateDefaultApplier fills zero-valued obfuscation knobs.
type ObfuscateDefaultApplier struct{}

func (ObfuscateDefaultApplier) Domain() string { return "obfuscate" }

func (ObfuscateDefaultApplier) ApplyDefaults(cfg *Config) {
	o := &cfg.Obfuscate
	if o.Command == "" {
		o.Command = "javascript-obfuscator"
	}
	if o.StringArrayEncoding == "" {
		o.StringArrayEncoding = EncodingRC4
	}
	if o.SplitStringsChunkLength <= 0 {
		o.SplitStringsChunkLength = 10
	}
	if o.IdentifierNamesGenerator == "" {
		o.IdentifierNamesGenerator = "hexadecimal"
	}
}

// defaultAppliers lists domains in application order.
func defaultAppliers() []DefaultApplier {
	return []DefaultApplier{
		ProjectDefaultApplier{},
		IgnoreDefaultApplier{},
		TransformDefaultApplier{},
		ObfuscateDefaultApplier{},
	}
}

func applyDefaults(cfg *Config) {
	for _, a := range defaultAppliers() {
		a.ApplyDefaults(cfg)
	}
}
