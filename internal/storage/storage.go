// Package storage provides a single JSON document stored on an afero filesystem.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/tidwall/jsonc"
)

var (
	ErrNotFound = errors.New("not found")
)

// Document is a JSON file that is read whole and replaced whole.
type Document struct {
	fs   afero.Fs
	path string
}

// NewDocument creates a Document at path. A nil fs uses the OS filesystem.
func NewDocument(fs afero.Fs, path string) *Document {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Document{fs: fs, path: path}
}

// Path returns the document location.
func (d *Document) Path() string {
	return d.path
}

// Fs returns the underlying filesystem.
func (d *Document) Fs() afero.Fs {
	return d.fs
}

// EnsureDir creates the parent directory of the document.
func (d *Document) EnsureDir() error {
	dir := filepath.Dir(d.path)
	if err := d.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// Read decodes the document into v.
// Comments and trailing commas are tolerated.
func (d *Document) Read(ctx context.Context, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := afero.ReadFile(d.fs, d.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read file: %w", err)
	}

	if err := json.Unmarshal(jsonc.ToJSON(data), v); err != nil {
		return fmt.Errorf("failed to unmarshal: %w", err)
	}

	return nil
}

// Write replaces the document with the pretty-printed encoding of v.
func (d *Document) Write(ctx context.Context, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}

	// Write to temp file first, then rename (atomic operation)
	tmpPath := d.path + ".tmp"
	if err := afero.WriteFile(d.fs, tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := d.fs.Rename(tmpPath, d.path); err != nil {
		d.fs.Remove(tmpPath) // Clean up temp file
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}

// Exists reports whether the document is present.
func (d *Document) Exists() bool {
	_, err := d.fs.Stat(d.path)
	return err == nil
}
