// Package sysinfo collects host diagnostics embedded in config reads.
package sysinfo

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"

	"github.com/cyrup-ai/kodegen-tools-config/pkg/types"
)

// Version is the server version reported in diagnostics. Set at build time.
var Version = "0.1.0"

const unknown = "unknown"

// Replaced in tests.
var (
	hostInfo      = host.Info
	virtualMemory = mem.VirtualMemory
)

// Collect returns a fresh diagnostics snapshot. Every field is populated,
// falling back to "unknown" when the platform cannot report a value.
func Collect() types.SystemInfo {
	info := types.SystemInfo{
		Platform:      runtime.GOOS,
		Arch:          runtime.GOARCH,
		OSVersion:     unknown,
		KernelVersion: unknown,
		Hostname:      unknown,
		ServerVersion: Version,
		CPUCount:      runtime.NumCPU(),
		Memory: types.MemoryInfo{
			TotalMB:     formatMB(0),
			AvailableMB: formatMB(0),
			UsedMB:      formatMB(0),
		},
	}

	if h, err := hostInfo(); err == nil && h != nil {
		info.OSVersion = orUnknown(osVersion(h))
		info.KernelVersion = orUnknown(h.KernelVersion)
		info.Hostname = h.Hostname
	}
	if info.Hostname == "" || info.Hostname == unknown {
		if name, err := os.Hostname(); err == nil && name != "" {
			info.Hostname = name
		} else {
			info.Hostname = unknown
		}
	}

	if vm, err := virtualMemory(); err == nil && vm != nil {
		info.Memory = types.MemoryInfo{
			TotalMB:     formatMB(vm.Total),
			AvailableMB: formatMB(vm.Available),
			UsedMB:      formatMB(vm.Used),
		}
	}

	return info
}

// osVersion renders "ubuntu 22.04", falling back to the OS family name.
func osVersion(h *host.InfoStat) string {
	name := h.Platform
	if name == "" {
		name = h.OS
	}
	return strings.TrimSpace(name + " " + h.PlatformVersion)
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}

func formatMB(bytes uint64) string {
	return fmt.Sprintf("%d MB", bytes/1024/1024)
}
