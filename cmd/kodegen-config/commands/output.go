package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/itchyny/gojq"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by --output.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
	formatTOML = "toml"
)

func checkFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML, formatTOML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want text, json, yaml or toml)", format)
	}
}

// render writes v in format. text renders the text form; when nil, text
// output falls back to indented JSON.
func render(w io.Writer, format string, v any, text func(io.Writer) error) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)

	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()

	case formatTOML:
		// TOML documents must be tables.
		if !isTable(v) {
			v = map[string]any{"value": v}
		}
		return toml.NewEncoder(w).Encode(v)

	default:
		if text != nil {
			return text(w)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

// isTable reports whether v encodes as a TOML table.
func isTable(v any) bool {
	switch v.(type) {
	case map[string]any, map[string]string:
		return true
	}
	data, err := json.Marshal(v)
	if err != nil {
		return false
	}
	return strings.HasPrefix(strings.TrimSpace(string(data)), "{")
}

// normalize converts v to the plain JSON types gojq works on.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// runQuery applies a jq filter to v. A single result is returned unwrapped.
func runQuery(ctx context.Context, filter string, v any) (any, error) {
	query, err := gojq.Parse(filter)
	if err != nil {
		return nil, fmt.Errorf("query parse error: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("query compile error: %w", err)
	}

	input, err := normalize(v)
	if err != nil {
		return nil, err
	}

	var results []any
	iter := code.RunWithContext(ctx, input)
	for {
		r, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := r.(error); ok {
			return nil, fmt.Errorf("query execution error: %w", err)
		}
		results = append(results, r)
	}

	if len(results) == 1 {
		return results[0], nil
	}
	return results, nil
}
