// Package jsonfile stores player statistics as a single indented JSON
// array on the local filesystem.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cory-johannsen/drawguess/internal/stats"
)

// Backend is a stats.Backend over one JSON document.
type Backend struct {
	path string
}

// New creates a Backend for path. The file need not exist yet.
//
// Precondition: path must be non-empty.
func New(path string) *Backend {
	return &Backend{path: path}
}

// Path returns the document location.
func (b *Backend) Path() string { return b.path }

// Load reads every record. A missing or blank file yields an empty slice.
//
// Postcondition: Returns a non-nil slice or a non-nil error.
func (b *Backend) Load(_ context.Context) ([]stats.Record, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []stats.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading stats file %s: %w", b.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []stats.Record{}, nil
	}

	var records []stats.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding stats file %s: %w", b.path, err)
	}
	if records == nil {
		records = []stats.Record{}
	}
	return records, nil
}

// Save replaces the document with records. The new content is written to a
// temporary file in the same directory and renamed over the old one.
//
// Postcondition: On success the file holds exactly records.
func (b *Backend) Save(_ context.Context, records []stats.Record) error {
	if records == nil {
		records = []stats.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding stats: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(b.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp stats file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp stats file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp stats file: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		return fmt.Errorf("replacing stats file %s: %w", b.path, err)
	}
	return nil
}
