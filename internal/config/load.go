package config

import (
	"context"
	"errors"

	"github.com/cyrup-ai/kodegen-tools-config/internal/logging"
	"github.com/cyrup-ai/kodegen-tools-config/internal/storage"
	"github.com/cyrup-ai/kodegen-tools-config/pkg/types"
)

// load reads the document into a defaults-filled config. Fields missing from
// the file keep their defaults. A missing or malformed file yields defaults.
func load(ctx context.Context, doc *storage.Document) types.ServerConfig {
	cfg := types.DefaultServerConfig()

	err := doc.Read(ctx, &cfg)
	switch {
	case err == nil:
		logging.Debug().Str("path", doc.Path()).Msg("loaded config file")
	case errors.Is(err, storage.ErrNotFound):
		logging.Info().Str("path", doc.Path()).Msg("no config file, using defaults")
		cfg = types.DefaultServerConfig()
	default:
		logging.Warn().Err(err).Str("path", doc.Path()).Msg("config file unreadable, using defaults")
		cfg = types.DefaultServerConfig()
	}

	sanitize(&cfg)
	return cfg
}

// sanitize restores the snapshot invariants on loaded data.
func sanitize(cfg *types.ServerConfig) {
	defaults := types.DefaultServerConfig()

	// Transient fields are never taken from disk.
	cfg.SystemInfo = nil
	cfg.SaveErrorCount = 0

	if cfg.BlockedCommands == nil {
		cfg.BlockedCommands = []string{}
	}
	if cfg.AllowedDirectories == nil {
		cfg.AllowedDirectories = []string{}
	}
	if cfg.DeniedDirectories == nil {
		cfg.DeniedDirectories = []string{}
	}

	if cfg.FileReadLineLimit <= 0 {
		resetField("file_read_line_limit", cfg.FileReadLineLimit)
		cfg.FileReadLineLimit = defaults.FileReadLineLimit
	}
	if cfg.FileWriteLineLimit <= 0 {
		resetField("file_write_line_limit", cfg.FileWriteLineLimit)
		cfg.FileWriteLineLimit = defaults.FileWriteLineLimit
	}
	if cfg.FuzzySearchThreshold < 0 || cfg.FuzzySearchThreshold > 1 {
		resetField("fuzzy_search_threshold", cfg.FuzzySearchThreshold)
		cfg.FuzzySearchThreshold = defaults.FuzzySearchThreshold
	}
	if cfg.HTTPConnectionTimeoutSecs == 0 {
		resetField("http_connection_timeout_secs", cfg.HTTPConnectionTimeoutSecs)
		cfg.HTTPConnectionTimeoutSecs = defaults.HTTPConnectionTimeoutSecs
	}
	if cfg.PathValidationTimeoutMs == 0 || cfg.PathValidationTimeoutMs > types.MaxPathValidationTimeoutMs {
		resetField("path_validation_timeout_ms", cfg.PathValidationTimeoutMs)
		cfg.PathValidationTimeoutMs = defaults.PathValidationTimeoutMs
	}

	cfg.ClientHistory = dedupeHistory(cfg.ClientHistory)
}

func resetField(key string, value any) {
	logging.Warn().
		Str("key", key).
		Interface("value", value).
		Msg("invalid value in config file, using default")
}

// dedupeHistory keeps the first record per (name, version), carrying over the
// latest last_seen from any duplicates.
func dedupeHistory(history []types.ClientRecord) []types.ClientRecord {
	out := make([]types.ClientRecord, 0, len(history))
	index := make(map[types.ClientInfo]int, len(history))
	for _, rec := range history {
		if i, ok := index[rec.ClientInfo]; ok {
			if rec.LastSeen.After(out[i].LastSeen) {
				out[i].LastSeen = rec.LastSeen
			}
			continue
		}
		index[rec.ClientInfo] = len(out)
		out = append(out, rec)
	}
	return out
}
