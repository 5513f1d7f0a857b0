package types

// SystemInfo is a point-in-time diagnostics snapshot of the host.
type SystemInfo struct {
	Platform      string     `json:"platform" yaml:"platform" toml:"platform"`             // "linux", "darwin", "windows"
	Arch          string     `json:"arch" yaml:"arch" toml:"arch"`                         // "amd64", "arm64"
	OSVersion     string     `json:"os_version" yaml:"os_version" toml:"os_version"`       // "Ubuntu 22.04.4 LTS"
	KernelVersion string     `json:"kernel_version" yaml:"kernel_version" toml:"kernel_version"`
	Hostname      string     `json:"hostname" yaml:"hostname" toml:"hostname"`
	ServerVersion string     `json:"server_version" yaml:"server_version" toml:"server_version"`
	CPUCount      int        `json:"cpu_count" yaml:"cpu_count" toml:"cpu_count"`
	Memory        MemoryInfo `json:"memory" yaml:"memory" toml:"memory"`
}

// MemoryInfo holds human-readable memory figures ("<n> MB").
type MemoryInfo struct {
	TotalMB     string `json:"total_mb" yaml:"total_mb" toml:"total_mb"`
	AvailableMB string `json:"available_mb" yaml:"available_mb" toml:"available_mb"`
	UsedMB      string `json:"used_mb" yaml:"used_mb" toml:"used_mb"`
}
