package config

import "time"

// Config represents the resbuilder configuration file (resbuilder.yaml).
type Config struct {
	Project   ProjectConfig   `yaml:"project"`
	Ignore    IgnoreConfig    `yaml:"ignore"`
	Minify    MinifyConfig    `yaml:"minify"`
	Obfuscate ObfuscateConfig `yaml:"obfuscate"`
	Transform TransformConfig `yaml:"transform"`
	Rewrite   RewriteConfig   `yaml:"rewrite"`
	Build     BuildConfig     `yaml:"build"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ProjectConfig locates the resource tree and its manifest.
type ProjectConfig struct {
	Root     string `yaml:"root"`      // Project root; defaults to the working directory
	Manifest string `yaml:"manifest"`  // Manifest file name relative to the root
	BuildDir string `yaml:"build_dir"` // Name of the sibling output directory
}

// IgnoreConfig controls which files and directories discovery skips.
type IgnoreConfig struct {
	Files      []string `yaml:"files"`       // Root-relative paths, exact match after slash normalization
	Dirs       []string `yaml:"dirs"`        // Directory names, exact match
	Patterns   []string `yaml:"patterns"`    // doublestar globs matched against root-relative paths
	IgnoreFile string   `yaml:"ignore_file"` // gitignore-style file at the root (optional)
}

// MinifierBackend selects the minification implementation.
type MinifierBackend string

const (
	MinifierESBuild  MinifierBackend = "esbuild"
	MinifierTdewolff MinifierBackend = "tdewolff"
	MinifierNone     MinifierBackend = "none"
)

// MinifyConfig mirrors the minifier option set.
type MinifyConfig struct {
	Backend      MinifierBackend `yaml:"backend"`
	KeepConsole  bool            `yaml:"keep_console"`
	DropDebugger bool            `yaml:"drop_debugger"`
	TopLevel     bool            `yaml:"top_level"`  // Rename and drop unused top-level bindings
	KeepNames    bool            `yaml:"keep_names"` // Preserve function/class names
}

// ObfuscatorBackend selects the obfuscation implementation.
type ObfuscatorBackend string

const (
	ObfuscatorNative  ObfuscatorBackend = "native"
	ObfuscatorCommand ObfuscatorBackend = "command"
	ObfuscatorNone    ObfuscatorBackend = "none"
)

// StringArrayEncoding selects how string table entries are stored.
type StringArrayEncoding string

const (
	EncodingNone   StringArrayEncoding = "none"
	EncodingBase64 StringArrayEncoding = "base64"
	EncodingRC4    StringArrayEncoding = "rc4"
)

// ObfuscateConfig mirrors the obfuscator option set.
type ObfuscateConfig struct {
	Backend ObfuscatorBackend `yaml:"backend"`
	Command string            `yaml:"command"` // javascript-obfuscator executable for the command backend
	Seed    int64             `yaml:"seed"`    // 0 picks a random seed per run

	StringArray          bool                `yaml:"string_array"`
	StringArrayEncoding  StringArrayEncoding `yaml:"string_array_encoding"`
	StringArrayRotate    bool                `yaml:"string_array_rotate"`
	StringArrayThreshold float64             `yaml:"string_array_threshold"`

	SplitStrings            bool `yaml:"split_strings"`
	SplitStringsChunkLength int  `yaml:"split_strings_chunk_length"`

	DeadCodeInjection          bool    `yaml:"dead_code_injection"`
	DeadCodeInjectionThreshold float64 `yaml:"dead_code_injection_threshold"`

	ControlFlowFlattening          bool    `yaml:"control_flow_flattening"`
	ControlFlowFlatteningThreshold float64 `yaml:"control_flow_flattening_threshold"`

	IdentifierNamesGenerator string `yaml:"identifier_names_generator"`
	RenameGlobals            bool   `yaml:"rename_globals"`
	SelfDefending            bool   `yaml:"self_defending"`
	Compact                  bool   `yaml:"compact"`
	UnicodeEscapeSequence    bool   `yaml:"unicode_escape_sequence"`
}

// TransformConfig controls the per-file transform stage.
type TransformConfig struct {
	Workers int           `yaml:"workers"` // 1 keeps the strictly sequential behavior
	Timeout time.Duration `yaml:"timeout"` // Per-file budget; 0 disables
}

// RewriteConfig toggles the reference rewriting steps.
type RewriteConfig struct {
	Manifest bool `yaml:"manifest"`
	HTML     bool `yaml:"html"`
	Audit    bool `yaml:"audit"` // Report HTML references that still point at original scripts
}

// BuildConfig holds orchestration policy.
type BuildConfig struct {
	Strict bool `yaml:"strict"` // Treat partial failure as a failed run
}

// MetricsConfig controls the optional Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}
