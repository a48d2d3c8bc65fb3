package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/resbuilder/internal/foundation/errors"
)

// Load reads the configuration at configPath. A missing file is not an error: the defaults
// are returned so the tool works with no setup, run from the project root.
func Load(configPath string) (*Config, error) {
	for _, p := range loadEnvFiles(filepath.Dir(configPath)) {
		slog.Debug("Loaded environment variables", "path", p)
	}

	cfg := Default()

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		slog.Debug("Configuration file not found, using defaults", "path", configPath)
	case err != nil:
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read config file").
			Fatal().WithContext("path", configPath).Build()
	default:
		// Expand environment variables in the YAML content
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, errors.WrapError(err, errors.CategoryConfig, "failed to unmarshal config").
				Fatal().WithContext("path", configPath).Build()
		}
	}

	return finalize(cfg)
}

// Parse builds a configuration from raw YAML on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to unmarshal config").Fatal().Build()
	}
	return finalize(cfg)
}

func finalize(cfg *Config) (*Config, error) {
	if nres, err := NormalizeConfig(cfg); err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	} else if nres != nil {
		for _, w := range nres.Warnings {
			slog.Warn("config normalization", "detail", w)
		}
	}
	applyDefaults(cfg)
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ManifestPath returns the absolute manifest location for the configured root.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.Project.Root, c.Project.Manifest)
}

// Init writes a configuration file populated with the defaults.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ValidationError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).Build()
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal default config").Fatal().Build()
	}

	header := "# resbuilder configuration. Every field is optional; omitted fields keep these defaults.\n"
	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "failed to create config directory").Build()
		}
	}
	if err := os.WriteFile(configPath, append([]byte(header), data...), 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write config file").
			WithContext("path", configPath).Build()
	}
	return nil
}
