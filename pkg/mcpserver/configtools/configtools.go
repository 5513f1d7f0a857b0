// Package configtools exposes the configuration store as MCP tools.
package configtools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/cyrup-ai/kodegen-tools-config/internal/config"
	"github.com/cyrup-ai/kodegen-tools-config/internal/logging"
	"github.com/cyrup-ai/kodegen-tools-config/pkg/types"
)

// Tool names.
const (
	ToolGet = "config_get"
	ToolSet = "config_set"
)

const serverName = "kodegen-config"

const setDescription = `Set a specific configuration value by key.

WARNING: Should be used in a separate chat from file operations and
command execution to prevent security issues.

Config keys include:
- blocked_commands (array)
- default_shell (string)
- allowed_directories (array of paths)
- denied_directories (array of paths)
- file_read_line_limit (number, max lines per read)
- file_write_line_limit (number, max lines per write)
- fuzzy_search_threshold (number, percent 0-100)
- http_connection_timeout_secs (number)
- path_validation_timeout_ms (number, at most 600000)

IMPORTANT: Setting allowed_directories to an empty array ([]) allows full access
to the entire file system.`

var setSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"key": {"type": "string", "description": "Configuration key to update"},
		"value": {
			"description": "New value: a string, an integer, a boolean or an array of strings",
			"anyOf": [
				{"type": "string"},
				{"type": "integer"},
				{"type": "boolean"},
				{"type": "array", "items": {"type": "string"}}
			]
		}
	},
	"required": ["key", "value"]
}`)

// NewServer returns an MCP server with the config tools registered against m.
// Client identities from initialize requests are recorded in m.
func NewServer(m *config.Manager, version string) *server.MCPServer {
	hooks := &server.Hooks{}
	hooks.AddAfterInitialize(func(ctx context.Context, id any, req *mcp.InitializeRequest, result *mcp.InitializeResult) {
		info := req.Params.ClientInfo
		if info.Name == "" {
			return
		}
		m.SetClientInfo(types.ClientInfo{Name: info.Name, Version: info.Version})
	})

	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(true),
		server.WithPromptCapabilities(false),
		server.WithHooks(hooks),
		server.WithRecovery(),
	)

	h := &handlers{manager: m}

	s.AddTool(mcp.NewTool(ToolGet,
		mcp.WithDescription("Get complete server configuration including security settings (blocked commands, "+
			"allowed directories), shell preferences, resource limits, and live system diagnostics "+
			"(platform, architecture, OS version, kernel version, hostname, CPU count, memory usage)."),
		mcp.WithReadOnlyHintAnnotation(true),
	), h.get)

	setTool := mcp.NewToolWithRawSchema(ToolSet, setDescription, setSchema)
	setTool.Annotations.ReadOnlyHint = mcp.ToBoolPtr(false)
	setTool.Annotations.DestructiveHint = mcp.ToBoolPtr(false)
	setTool.Annotations.IdempotentHint = mcp.ToBoolPtr(true)
	s.AddTool(setTool, h.set)

	s.AddPrompt(mcp.NewPrompt(ToolGet,
		mcp.WithPromptDescription("How to check server configuration"),
	), getPrompt)
	s.AddPrompt(mcp.NewPrompt(ToolSet,
		mcp.WithPromptDescription("How to update server configuration"),
	), setPrompt)

	return s
}

type handlers struct {
	manager *config.Manager
}

func (h *handlers) get(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.manager.Config()

	payload, err := json.MarshalIndent(map[string]any{
		"success": true,
		"config":  cfg,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(Summary(cfg)),
			mcp.NewTextContent(string(payload)),
		},
	}, nil
}

func (h *handlers) set(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := request.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	raw, ok := request.GetArguments()["value"]
	if !ok {
		return mcp.NewToolResultError(`required argument "value" not found`), nil
	}
	value, err := types.ValueFromAny(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := h.manager.SetValue(key, value); err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			return mcp.NewToolResultError(verr.Error()), nil
		}
		return nil, err
	}

	logging.Info().Str("key", key).Str("tool", ToolSet).Msg("config value set")

	payload, err := json.MarshalIndent(map[string]any{
		"success":        true,
		"key":            key,
		"value":          value,
		"updated_config": h.manager.Config(),
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}

	note := "Configuration value updated successfully."
	if field, ok := h.manager.Registry().Lookup(key); ok && field.Description != "" {
		note = field.Description
	}

	summary := fmt.Sprintf("Configuration Updated\n\nSetting: %s\nNew value: %s\n\n%s\n\nTo view full configuration, use %s.",
		key, displayValue(value), note, ToolGet)

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(summary),
			mcp.NewTextContent(string(payload)),
		},
	}, nil
}

// Summary renders the human-readable configuration overview.
func Summary(cfg types.ServerConfig) string {
	blocked := "none"
	if len(cfg.BlockedCommands) > 0 {
		blocked = strings.Join(cfg.BlockedCommands, ", ")
	}
	allowed := "all (unrestricted)"
	if len(cfg.AllowedDirectories) > 0 {
		allowed = fmt.Sprintf("%d paths", len(cfg.AllowedDirectories))
	}

	var b strings.Builder
	b.WriteString("Server Configuration\n\n")
	b.WriteString("Security:\n")
	fmt.Fprintf(&b, "  Blocked commands: %s\n", blocked)
	fmt.Fprintf(&b, "  Allowed directories: %s\n", allowed)
	fmt.Fprintf(&b, "  Denied directories: %d paths\n\n", len(cfg.DeniedDirectories))
	b.WriteString("Shell:\n")
	fmt.Fprintf(&b, "  Default: %s\n\n", cfg.DefaultShell)
	b.WriteString("Limits:\n")
	fmt.Fprintf(&b, "  Read limit: %d lines\n", cfg.FileReadLineLimit)
	fmt.Fprintf(&b, "  Write limit: %d lines", cfg.FileWriteLineLimit)

	if info := cfg.SystemInfo; info != nil {
		b.WriteString("\n\nSystem:\n")
		fmt.Fprintf(&b, "  Platform: %s (%s)\n", info.Platform, info.Arch)
		fmt.Fprintf(&b, "  OS: %s\n", info.OSVersion)
		fmt.Fprintf(&b, "  Kernel: %s\n", info.KernelVersion)
		fmt.Fprintf(&b, "  CPU cores: %d\n", info.CPUCount)
		fmt.Fprintf(&b, "  Memory: %s used, %s available of %s total",
			info.Memory.UsedMB, info.Memory.AvailableMB, info.Memory.TotalMB)
	}
	if cfg.SaveErrorCount > 0 {
		fmt.Fprintf(&b, "\n\nWarning: %d background saves failed", cfg.SaveErrorCount)
	}
	return b.String()
}

func displayValue(v types.ConfigValue) string {
	items, ok := v.AsArray()
	if !ok {
		return v.String()
	}
	switch {
	case len(items) == 0:
		return "[] (empty)"
	case len(items) <= 3:
		return "[" + strings.Join(items, ", ") + "]"
	default:
		return fmt.Sprintf("[%s, ... %d total]", items[0], len(items))
	}
}

func getPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return mcp.NewGetPromptResult("Checking server configuration", []mcp.PromptMessage{
		mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent("How do I check server configuration?")),
		mcp.NewPromptMessage(mcp.RoleAssistant, mcp.NewTextContent(
			"Use config_get to retrieve the current server configuration. "+
				"This shows blocked commands, allowed directories, shell settings, and line limits.")),
	}), nil
}

func setPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return mcp.NewGetPromptResult("Updating server configuration", []mcp.PromptMessage{
		mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent("How do I update server configuration?")),
		mcp.NewPromptMessage(mcp.RoleAssistant, mcp.NewTextContent(
			"Use config_set to update configuration. Examples:\n\n"+
				"Block additional commands:\n"+
				`{"key": "blocked_commands", "value": ["rm", "sudo", "wget"]}`+"\n\n"+
				"Change shell:\n"+
				`{"key": "default_shell", "value": "/bin/bash"}`+"\n\n"+
				"Restrict directories:\n"+
				`{"key": "allowed_directories", "value": ["/home/user/projects"]}`+"\n\n"+
				"Adjust line limits:\n"+
				`{"key": "file_read_line_limit", "value": 2000}`)),
	}), nil
}
