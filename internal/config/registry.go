package config

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/cyrup-ai/kodegen-tools-config/pkg/types"
)

// Validation failure categories. Use errors.Is on a *ValidationError.
var (
	ErrUnknownKey   = errors.New("unknown config key")
	ErrTypeMismatch = errors.New("config value type mismatch")
	ErrOutOfRange   = errors.New("config value out of range")
)

// ValidationError is returned by SetValue when a key or value is rejected.
// No state is changed when it is returned.
type ValidationError struct {
	Key    string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(key string, kind error, format string, args ...any) *ValidationError {
	return &ValidationError{Key: key, Reason: fmt.Sprintf(format, args...), Err: kind}
}

// Apply commits a validated value. It runs under the store's write lock.
type Apply func(cfg *types.ServerConfig)

// Field describes one settable key.
type Field struct {
	Key         string
	Kind        types.ValueKind
	Description string

	validate func(v types.ConfigValue) (Apply, error)
	read     func(cfg *types.ServerConfig) types.ConfigValue
}

// NewField builds a Field from a validator and a reader. validate only sees
// values of the declared kind.
func NewField(key string, kind types.ValueKind, description string,
	validate func(v types.ConfigValue) (Apply, error),
	read func(cfg *types.ServerConfig) types.ConfigValue,
) Field {
	return Field{Key: key, Kind: kind, Description: description, validate: validate, read: read}
}

// Validate checks v and returns the change to apply.
// A value of the wrong kind is rejected, never coerced.
func (f Field) Validate(v types.ConfigValue) (Apply, error) {
	if v.Kind() != f.Kind {
		return nil, invalid(f.Key, ErrTypeMismatch,
			"invalid value for %s: expected %s, got %s", f.Key, f.Kind, v.Kind())
	}
	return f.validate(v)
}

// Read projects the field out of cfg.
func (f Field) Read(cfg *types.ServerConfig) types.ConfigValue {
	return f.read(cfg)
}

// StringField is a free-form string setting.
func StringField(key, description string, ptr func(*types.ServerConfig) *string) Field {
	return NewField(key, types.KindString, description,
		func(v types.ConfigValue) (Apply, error) {
			s, _ := v.AsString()
			return func(cfg *types.ServerConfig) { *ptr(cfg) = s }, nil
		},
		func(cfg *types.ServerConfig) types.ConfigValue {
			return types.StringValue(*ptr(cfg))
		})
}

// ArrayField is a list-of-strings setting.
func ArrayField(key, description string, ptr func(*types.ServerConfig) *[]string) Field {
	return NewField(key, types.KindArray, description,
		func(v types.ConfigValue) (Apply, error) {
			items, _ := v.AsArray()
			return func(cfg *types.ServerConfig) { *ptr(cfg) = items }, nil
		},
		func(cfg *types.ServerConfig) types.ConfigValue {
			return types.ArrayValue(*ptr(cfg))
		})
}

// PositiveIntField is an int setting that must be greater than zero.
func PositiveIntField(key, description string, ptr func(*types.ServerConfig) *int) Field {
	return NewField(key, types.KindNumber, description,
		func(v types.ConfigValue) (Apply, error) {
			n, _ := v.AsNumber()
			if n <= 0 {
				return nil, invalid(key, ErrOutOfRange, "%s must be positive", key)
			}
			if n > math.MaxInt {
				return nil, invalid(key, ErrOutOfRange, "%s value out of range", key)
			}
			return func(cfg *types.ServerConfig) { *ptr(cfg) = int(n) }, nil
		},
		func(cfg *types.ServerConfig) types.ConfigValue {
			return types.NumberValue(int64(*ptr(cfg)))
		})
}

// BoundedUintField is a uint64 setting in (0, max]. A zero max means unbounded;
// exceeded is the message used when the value is above max.
func BoundedUintField(key, description string, max uint64, exceeded string, ptr func(*types.ServerConfig) *uint64) Field {
	return NewField(key, types.KindNumber, description,
		func(v types.ConfigValue) (Apply, error) {
			n, _ := v.AsNumber()
			if n <= 0 {
				return nil, invalid(key, ErrOutOfRange, "%s must be positive", key)
			}
			if max > 0 && uint64(n) > max {
				return nil, invalid(key, ErrOutOfRange, "%s", exceeded)
			}
			return func(cfg *types.ServerConfig) { *ptr(cfg) = uint64(n) }, nil
		},
		func(cfg *types.ServerConfig) types.ConfigValue {
			u := *ptr(cfg)
			if u > math.MaxInt64 {
				return types.NumberValue(math.MaxInt64)
			}
			return types.NumberValue(int64(u))
		})
}

// PercentField takes an integer percentage in [0, 100] and stores it as a
// fraction. Reads report the rounded percentage.
func PercentField(key, description string, ptr func(*types.ServerConfig) *float64) Field {
	return NewField(key, types.KindNumber, description,
		func(v types.ConfigValue) (Apply, error) {
			n, _ := v.AsNumber()
			if n < 0 || n > 100 {
				return nil, invalid(key, ErrOutOfRange, "%s must be between 0 and 100", key)
			}
			return func(cfg *types.ServerConfig) { *ptr(cfg) = float64(n) / 100 }, nil
		},
		func(cfg *types.ServerConfig) types.ConfigValue {
			return types.NumberValue(int64(math.Round(*ptr(cfg) * 100)))
		})
}

// Registry maps config keys to their fields. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	fields map[string]Field
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{fields: make(map[string]Field)}
}

// Register adds or replaces a field.
func (r *Registry) Register(f Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields[f.Key] = f
}

// Lookup returns the field registered for key.
func (r *Registry) Lookup(key string) (Field, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.fields[key]
	return f, ok
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.fields))
	for k := range r.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Fields returns the registered fields sorted by key.
func (r *Registry) Fields() []Field {
	keys := r.Keys()
	fields := make([]Field, 0, len(keys))
	for _, k := range keys {
		if f, ok := r.Lookup(k); ok {
			fields = append(fields, f)
		}
	}
	return fields
}

// UnknownKeyError builds the error for an unregistered key, suggesting the
// closest registered key when its similarity reaches threshold.
func (r *Registry) UnknownKeyError(key string, threshold float64) *ValidationError {
	err := invalid(key, ErrUnknownKey, "Unknown config key: %s", key)
	if suggestion, ok := suggestKey(key, r.Keys(), threshold); ok {
		err.Reason += fmt.Sprintf(" (did you mean %q?)", suggestion)
	}
	return err
}

// DefaultRegistry returns a registry with every built-in key.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(ArrayField("blocked_commands",
		"Commands in this list will be rejected by the terminal tool.",
		func(c *types.ServerConfig) *[]string { return &c.BlockedCommands }))
	r.Register(StringField("default_shell",
		"This shell will be used for all command executions.",
		func(c *types.ServerConfig) *string { return &c.DefaultShell }))
	r.Register(ArrayField("allowed_directories",
		"Only paths within these directories can be accessed (empty = unrestricted).",
		func(c *types.ServerConfig) *[]string { return &c.AllowedDirectories }))
	r.Register(ArrayField("denied_directories",
		"Paths within these directories can never be accessed.",
		func(c *types.ServerConfig) *[]string { return &c.DeniedDirectories }))
	r.Register(PositiveIntField("file_read_line_limit",
		"Maximum lines that can be read from a file in a single operation.",
		func(c *types.ServerConfig) *int { return &c.FileReadLineLimit }))
	r.Register(PositiveIntField("file_write_line_limit",
		"Maximum lines that can be written to a file in a single operation.",
		func(c *types.ServerConfig) *int { return &c.FileWriteLineLimit }))
	r.Register(PercentField("fuzzy_search_threshold",
		"Minimum similarity percentage for fuzzy search suggestions.",
		func(c *types.ServerConfig) *float64 { return &c.FuzzySearchThreshold }))
	r.Register(BoundedUintField("http_connection_timeout_secs",
		"HTTP connection timeout in seconds.",
		0, "",
		func(c *types.ServerConfig) *uint64 { return &c.HTTPConnectionTimeoutSecs }))
	r.Register(BoundedUintField("path_validation_timeout_ms",
		"Path validation timeout in milliseconds; raise for slow network filesystems.",
		types.MaxPathValidationTimeoutMs,
		fmt.Sprintf("path_validation_timeout_ms cannot exceed %dms (10 minutes)", types.MaxPathValidationTimeoutMs),
		func(c *types.ServerConfig) *uint64 { return &c.PathValidationTimeoutMs }))

	return r
}
