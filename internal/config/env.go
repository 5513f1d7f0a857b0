package config

import (
	"os"
	"strings"

	"github.com/cyrup-ai/kodegen-tools-config/internal/logging"
	"github.com/cyrup-ai/kodegen-tools-config/pkg/types"
)

// Environment variables read by the config package.
const (
	EnvAllowedDirs = "KODEGEN_ALLOWED_DIRS"
	EnvDeniedDirs  = "KODEGEN_DENIED_DIRS"
	EnvConfigPath  = "KODEGEN_CONFIG_PATH"
)

// AllowedDirsFromEnv returns the directories listed in KODEGEN_ALLOWED_DIRS.
// Colon-separated on Unix, semicolon-separated on Windows.
func AllowedDirsFromEnv() []string {
	return splitPathList(os.Getenv(EnvAllowedDirs))
}

// DeniedDirsFromEnv returns the directories listed in KODEGEN_DENIED_DIRS.
// Colon-separated on Unix, semicolon-separated on Windows.
func DeniedDirsFromEnv() []string {
	return splitPathList(os.Getenv(EnvDeniedDirs))
}

// splitPathList splits on the platform list separator, trimming entries and
// dropping empty ones.
func splitPathList(value string) []string {
	var dirs []string
	for _, part := range strings.Split(value, string(os.PathListSeparator)) {
		if part = strings.TrimSpace(part); part != "" {
			dirs = append(dirs, part)
		}
	}
	return dirs
}

// applyEnvOverrides replaces the directory lists with non-empty environment
// values. This is a security control: environment wins over the file.
func applyEnvOverrides(cfg *types.ServerConfig) {
	if allowed := AllowedDirsFromEnv(); len(allowed) > 0 {
		cfg.AllowedDirectories = allowed
		logging.Info().
			Int("count", len(allowed)).
			Msg("loaded allowed directories from " + EnvAllowedDirs)
	}

	if denied := DeniedDirsFromEnv(); len(denied) > 0 {
		cfg.DeniedDirectories = denied
		logging.Info().
			Int("count", len(denied)).
			Msg("loaded denied directories from " + EnvDeniedDirs)
	}
}
