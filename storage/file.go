package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ruteri/tee-provenance-registry/interfaces"
)

// FileBackend stores content under a local directory, one file per item.
type FileBackend struct {
	baseDir string
	log     *slog.Logger
}

// NewFileBackend creates baseDir and its per-type subdirectories.
func NewFileBackend(baseDir string, log *slog.Logger) (*FileBackend, error) {
	for _, ct := range []interfaces.ContentType{interfaces.BlobType, interfaces.ManifestType} {
		if err := os.MkdirAll(filepath.Join(baseDir, ct.String()), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}
	return &FileBackend{baseDir: baseDir, log: log}, nil
}

func (b *FileBackend) path(id interfaces.ContentID, contentType interfaces.ContentType) string {
	return filepath.Join(b.baseDir, filepath.FromSlash(objectName(id, contentType)))
}

func (b *FileBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	data, err := os.ReadFile(b.path(id, contentType))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, interfaces.ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}
	if err := verifyContent(id, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Store writes through a temporary file so readers never see partial content.
func (b *FileBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)
	target := b.path(id, contentType)

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return id, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return id, fmt.Errorf("failed to write content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return id, fmt.Errorf("failed to write content: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return id, fmt.Errorf("failed to move content into place: %w", err)
	}

	b.log.Debug("Stored content in file backend", "contentID", id.String(), "type", contentType.String(), "size", len(data))
	return id, nil
}

func (b *FileBackend) Available(ctx context.Context) bool {
	info, err := os.Stat(b.baseDir)
	return err == nil && info.IsDir()
}

func (b *FileBackend) Name() string {
	return "file-" + filepath.Base(b.baseDir)
}

func (b *FileBackend) LocationURI() string {
	return "file://" + b.baseDir
}
