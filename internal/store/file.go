package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"

	"panelbot/internal/domain"
)

const filePerm = 0o644

// FileBackend keeps the aggregate document in a single JSON file.
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend for the JSON file at path. The file is not
// touched until the first Read or Write.
func NewFileBackend(path string) (*FileBackend, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("file path is required")
	}

	return &FileBackend{path: filepath.Clean(path)}, nil
}

// Read decodes the backing file. A missing, empty or whitespace-only file
// reports found=false.
func (b *FileBackend) Read(ctx context.Context) (domain.Document, bool, error) {
	if ctx == nil {
		return domain.Document{}, false, errors.New("context is required")
	}

	raw, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Document{}, false, nil
		}
		return domain.Document{}, false, fmt.Errorf("read %s: %w", b.path, err)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return domain.Document{}, false, nil
	}

	var doc domain.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.Document{}, false, fmt.Errorf("decode %s: %w", b.path, err)
	}

	return doc, true, nil
}

// Write replaces the backing file atomically. The document goes to a sibling
// temp file that is synced and renamed over the target, and the directory is
// synced after the rename.
func (b *FileBackend) Write(ctx context.Context, doc domain.Document) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	raw = append(raw, '\n')

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	if err := renameio.WriteFile(b.path, raw, filePerm, renameio.WithTempDir(dir)); err != nil {
		return fmt.Errorf("replace %s: %w", b.path, err)
	}

	return nil
}

// Ping verifies that the directory holding the backing file is reachable.
func (b *FileBackend) Ping(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	dir := filepath.Dir(b.path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	return nil
}

// Close is a no-op; the file is not held open between operations.
func (b *FileBackend) Close(context.Context) error {
	return nil
}
