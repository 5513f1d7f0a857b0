package types

import "runtime"

// Default limits applied when a field is missing from the config file.
const (
	DefaultFileReadLineLimit         = 1000
	DefaultFileWriteLineLimit        = 50
	DefaultFuzzySearchThreshold      = 0.7
	DefaultHTTPConnectionTimeoutSecs = 5
	DefaultPathValidationTimeoutMs   = 30_000

	// MaxPathValidationTimeoutMs is the upper bound for path_validation_timeout_ms (10 minutes).
	MaxPathValidationTimeoutMs = 600_000
)

// ServerConfig is the full settings snapshot.
// SystemInfo and SaveErrorCount are only populated on copies handed to readers.
type ServerConfig struct {
	// Commands that cannot be executed (exact match)
	BlockedCommands []string `json:"blocked_commands" yaml:"blocked_commands" toml:"blocked_commands"`

	// Shell used for command execution
	DefaultShell string `json:"default_shell" yaml:"default_shell" toml:"default_shell"`

	// Directories that may be accessed; empty means unrestricted
	AllowedDirectories []string `json:"allowed_directories" yaml:"allowed_directories" toml:"allowed_directories"`

	// Directories that may never be accessed
	DeniedDirectories []string `json:"denied_directories" yaml:"denied_directories" toml:"denied_directories"`

	FileReadLineLimit  int `json:"file_read_line_limit" yaml:"file_read_line_limit" toml:"file_read_line_limit"`
	FileWriteLineLimit int `json:"file_write_line_limit" yaml:"file_write_line_limit" toml:"file_write_line_limit"`

	// Minimum similarity ratio (0.0-1.0) for fuzzy search suggestions
	FuzzySearchThreshold float64 `json:"fuzzy_search_threshold" yaml:"fuzzy_search_threshold" toml:"fuzzy_search_threshold"`

	HTTPConnectionTimeoutSecs uint64 `json:"http_connection_timeout_secs" yaml:"http_connection_timeout_secs" toml:"http_connection_timeout_secs"`

	// Increase for slow network filesystems (NFS, SMB, S3FS)
	PathValidationTimeoutMs uint64 `json:"path_validation_timeout_ms" yaml:"path_validation_timeout_ms" toml:"path_validation_timeout_ms"`

	// Most recently connected client
	CurrentClient *ClientInfo `json:"current_client,omitempty" yaml:"current_client,omitempty" toml:"current_client,omitempty"`

	// One record per distinct (name, version) ever seen
	ClientHistory []ClientRecord `json:"client_history" yaml:"client_history" toml:"client_history"`

	// Live diagnostics, never persisted
	SystemInfo *SystemInfo `json:"system_info,omitempty" yaml:"system_info,omitempty" toml:"system_info,omitempty"`

	// Background save failures since process start, never persisted
	SaveErrorCount uint64 `json:"save_error_count,omitempty" yaml:"save_error_count,omitempty" toml:"save_error_count,omitempty"`
}

// DefaultServerConfig returns the hard-coded defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		BlockedCommands: []string{
			"rm", "rmdir", "del", "format", "dd", "shred",
			"sudo", "su", "passwd", "useradd", "userdel",
			"chmod", "chown", "shutdown", "reboot", "halt", "poweroff",
		},
		DefaultShell:              DefaultShell(),
		AllowedDirectories:        []string{},
		DeniedDirectories:         []string{},
		FileReadLineLimit:         DefaultFileReadLineLimit,
		FileWriteLineLimit:        DefaultFileWriteLineLimit,
		FuzzySearchThreshold:      DefaultFuzzySearchThreshold,
		HTTPConnectionTimeoutSecs: DefaultHTTPConnectionTimeoutSecs,
		PathValidationTimeoutMs:   DefaultPathValidationTimeoutMs,
		ClientHistory:             []ClientRecord{},
	}
}

// DefaultShell returns the platform default shell.
func DefaultShell() string {
	if runtime.GOOS == "windows" {
		return "powershell.exe"
	}
	return "/bin/sh"
}

// Clone returns a deep copy.
func (c ServerConfig) Clone() ServerConfig {
	out := c
	out.BlockedCommands = cloneStrings(c.BlockedCommands)
	out.AllowedDirectories = cloneStrings(c.AllowedDirectories)
	out.DeniedDirectories = cloneStrings(c.DeniedDirectories)
	if c.CurrentClient != nil {
		client := *c.CurrentClient
		out.CurrentClient = &client
	}
	if c.ClientHistory != nil {
		out.ClientHistory = make([]ClientRecord, len(c.ClientHistory))
		copy(out.ClientHistory, c.ClientHistory)
	}
	if c.SystemInfo != nil {
		info := *c.SystemInfo
		out.SystemInfo = &info
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
