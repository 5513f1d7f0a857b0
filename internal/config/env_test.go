package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cyrup-ai/kodegen-tools-config/pkg/types"
)

func joinList(parts ...string) string {
	return strings.Join(parts, string(os.PathListSeparator))
}

func TestSplitPathList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"single", "/tmp", []string{"/tmp"}},
		{"multiple", joinList("/a", "/b"), []string{"/a", "/b"}},
		{"trims and drops empties", joinList(" /a ", "", "  ", "/b"), []string{"/a", "/b"}},
		{"only separators", joinList("", "", ""), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitPathList(tt.input))
		})
	}
}

func TestDirsFromEnv(t *testing.T) {
	t.Setenv(EnvAllowedDirs, joinList("/srv/a", "/srv/b"))
	t.Setenv(EnvDeniedDirs, "/srv/a/secret")

	assert.Equal(t, []string{"/srv/a", "/srv/b"}, AllowedDirsFromEnv())
	assert.Equal(t, []string{"/srv/a/secret"}, DeniedDirsFromEnv())
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Run("non-empty replaces", func(t *testing.T) {
		t.Setenv(EnvAllowedDirs, "/env/allowed")
		t.Setenv(EnvDeniedDirs, "")

		cfg := types.DefaultServerConfig()
		cfg.AllowedDirectories = []string{"/file/allowed", "/file/other"}
		cfg.DeniedDirectories = []string{"/file/denied"}
		applyEnvOverrides(&cfg)

		assert.Equal(t, []string{"/env/allowed"}, cfg.AllowedDirectories)
		assert.Equal(t, []string{"/file/denied"}, cfg.DeniedDirectories)
	})

	t.Run("unset keeps file", func(t *testing.T) {
		t.Setenv(EnvAllowedDirs, "")
		t.Setenv(EnvDeniedDirs, joinList(" ", ""))

		cfg := types.DefaultServerConfig()
		cfg.DeniedDirectories = []string{"/file/denied"}
		applyEnvOverrides(&cfg)

		assert.Empty(t, cfg.AllowedDirectories)
		assert.Equal(t, []string{"/file/denied"}, cfg.DeniedDirectories)
	})
}

func TestDefaultPath(t *testing.T) {
	t.Run("env override", func(t *testing.T) {
		t.Setenv(EnvConfigPath, "/custom/config.json")
		assert.Equal(t, "/custom/config.json", DefaultPath())
	})

	t.Run("home relative", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv(EnvConfigPath, "")
		t.Setenv("HOME", home)
		t.Setenv("USERPROFILE", home)
		assert.Equal(t, filepath.Join(home, DirName, FileName), DefaultPath())
	})
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	assert.Equal(t, home, expandHome("~"))
	assert.Equal(t, filepath.Join(home, "projects"), expandHome("~"+string(filepath.Separator)+"projects"))
	assert.Equal(t, "/abs/path", expandHome("/abs/path"))
	assert.Equal(t, "~user/x", expandHome("~user/x"))
}
