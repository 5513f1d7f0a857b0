package config

import (
	"os"
	"path/filepath"
)

const (
	// DirName is the per-user directory holding the config file.
	DirName = ".kodegen"
	// FileName is the config file name.
	FileName = "config.json"
)

// DefaultPath returns the config file location.
// KODEGEN_CONFIG_PATH takes precedence over the home-relative default.
func DefaultPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path
	}
	return filepath.Join(configDir(), FileName)
}

// configDir returns ~/.kodegen, or ./.kodegen when home cannot be resolved.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return DirName
	}
	return filepath.Join(home, DirName)
}

// expandHome replaces a leading "~/" with the home directory.
func expandHome(path string) string {
	if path == "~" || len(path) > 1 && path[0] == '~' && os.IsPathSeparator(path[1]) {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
