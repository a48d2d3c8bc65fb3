package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvLogLevel overrides the log level when set (debug|info|warn|error).
const EnvLogLevel = "RESBUILDER_LOG_LEVEL"

// envFiles are tried in order; existing process variables are never overridden.
var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads every present .env file from dir. Missing files are not an error.
func loadEnvFiles(dir string) []string {
	var loaded []string
	for _, name := range envFiles {
		p := name
		if dir != "" {
			p = dir + string(os.PathSeparator) + name
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			slog.Warn("Failed to load env file", "path", p, "error", err)
			continue
		}
		loaded = append(loaded, p)
	}
	return loaded
}

// LogLevel resolves the effective log level from the verbose flag and RESBUILDER_LOG_LEVEL.
func LogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv(EnvLogLevel))) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
