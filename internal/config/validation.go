package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/resbuilder/internal/foundation/errors"
)

// ValidateConfig validates the complete configuration structure.
func ValidateConfig(cfg *Config) error {
	validator := newConfigurationValidator(cfg)
	return validator.validate()
}

// configurationValidator coordinates validation across all configuration domains.
type configurationValidator struct {
	config *Config
}

func newConfigurationValidator(config *Config) *configurationValidator {
	return &configurationValidator{config: config}
}

func (cv *configurationValidator) validate() error {
	if err := cv.validateProject(); err != nil {
		return err
	}
	if err := cv.validateIgnore(); err != nil {
		return err
	}
	if err := cv.validateMinify(); err != nil {
		return err
	}
	return cv.validateObfuscate()
}

func (cv *configurationValidator) validateProject() error {
	p := cv.config.Project
	if strings.ContainsAny(p.BuildDir, `/\`) || p.BuildDir == "." || p.BuildDir == ".." {
		return errors.ConfigError("project.build_dir must be a plain directory name").
			WithContext("build_dir", p.BuildDir).Build()
	}
	if filepath.IsAbs(p.Manifest) {
		return errors.ConfigError("project.manifest must be relative to the project root").
			WithContext("manifest", p.Manifest).Build()
	}
	return nil
}

func (cv *configurationValidator) validateIgnore() error {
	for _, pattern := range cv.config.Ignore.Patterns {
		if !doublestar.ValidatePattern(pattern) {
			return errors.ConfigError("invalid ignore pattern").
				WithContext("pattern", pattern).Build()
		}
	}
	for _, d := range cv.config.Ignore.Dirs {
		if strings.ContainsAny(d, `/\`) {
			return errors.ConfigError("ignore.dirs entries are directory names, not paths").
				WithContext("dir", d).Build()
		}
	}
	return nil
}

func (cv *configurationValidator) validateMinify() error {
	switch cv.config.Minify.Backend {
	case MinifierESBuild, MinifierTdewolff, MinifierNone:
		return nil
	default:
		return errors.ConfigError(fmt.Sprintf("unknown minify.backend %q (expected esbuild|tdewolff|none)", cv.config.Minify.Backend)).Build()
	}
}

func (cv *configurationValidator) validateObfuscate() error {
	o := cv.config.Obfuscate
	switch o.Backend {
	case ObfuscatorNative, ObfuscatorNone:
	case ObfuscatorCommand:
		if o.Command == "" {
			return errors.ConfigError("obfuscate.command is required for the command backend").Build()
		}
	default:
		return errors.ConfigError(fmt.Sprintf("unknown obfuscate.backend %q (expected native|command|none)", o.Backend)).Build()
	}
	switch o.StringArrayEncoding {
	case EncodingNone, EncodingBase64, EncodingRC4:
	default:
		return errors.ConfigError(fmt.Sprintf("unknown obfuscate.string_array_encoding %q (expected none|base64|rc4)", o.StringArrayEncoding)).Build()
	}
	if o.IdentifierNamesGenerator != "hexadecimal" {
		return errors.ConfigError("obfuscate.identifier_names_generator supports only hexadecimal").
			WithContext("value", o.IdentifierNamesGenerator).Build()
	}
	return nil
}
