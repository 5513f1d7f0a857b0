// Package config owns the service's canonical settings and the rules for
// changing them.
//
// # Store
//
// A Manager holds one ServerConfig behind a reader/writer mutex. Readers get
// deep copies; writers hold the lock only while applying an already-validated
// change. Every successful mutation enqueues a save request on the Manager's
// persist.Saver, which writes the file once requests have been quiet for the
// debounce window. Callers never wait for disk.
//
// # Keys
//
// SetValue accepts a generic types.ConfigValue. The Registry maps each key to a
// Field that knows the value kind it accepts, how to validate and apply it,
// and how to read it back. Adding a key is a Register call:
//
//	r := config.DefaultRegistry()
//	r.Register(config.StringField("shell", "Alias for default_shell",
//		func(c *types.ServerConfig) *string { return &c.DefaultShell }))
//
// Unknown keys fail with "Unknown config key: <key>"; when a registered key is
// close enough (Levenshtein similarity at or above fuzzy_search_threshold) the
// message suggests it.
//
// # Loading
//
// Init reads the config file (JSON, comments tolerated), falling back to
// defaults when the file is missing or cannot be parsed, then replaces the
// directory lists with KODEGEN_ALLOWED_DIRS / KODEGEN_DENIED_DIRS when those
// are set, and writes the result back once. Environment always beats the file.
//
// # Paths
//
// The file lives at ~/.kodegen/config.json unless KODEGEN_CONFIG_PATH is set.
// When the home directory cannot be resolved, ./.kodegen/config.json is used.
package config
