package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileStore implements ObjectStore on the local filesystem. Writes go to a
// temp file in the destination directory and are published with os.Rename, so
// a concurrent reader (or a crash mid-write) can never observe a torn object.
type FileStore struct {
	basePath string
}

// NewFileStore creates the base directory if missing.
func NewFileStore(basePath string) (*FileStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("storage base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// Put writes the object atomically under key.
func (f *FileStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	target, err := f.resolve(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(target)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("publish object: %w", err)
	}
	return nil
}

// Get opens the object for reading and reports its size.
func (f *FileStore) Get(_ context.Context, key string) (io.ReadCloser, int64, error) {
	target, err := f.resolve(key)
	if err != nil {
		return nil, 0, err
	}
	file, err := os.Open(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, ErrNotExist
		}
		return nil, 0, fmt.Errorf("open object: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, 0, fmt.Errorf("stat object: %w", err)
	}
	return file, info.Size(), nil
}

// Stat reports the object size.
func (f *FileStore) Stat(_ context.Context, key string) (int64, error) {
	target, err := f.resolve(key)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotExist
		}
		return 0, fmt.Errorf("stat object: %w", err)
	}
	return info.Size(), nil
}

// PresignGet is unsupported for local files; callers stream through the API.
func (f *FileStore) PresignGet(context.Context, string, time.Duration) (string, error) {
	return "", fmt.Errorf("file store does not support pre-signed URLs")
}

// Delete removes the object if present.
func (f *FileStore) Delete(_ context.Context, key string) error {
	target, err := f.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// resolve maps an object key to a path under basePath and rejects keys that
// would escape it.
func (f *FileStore) resolve(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("object key is required")
	}
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(f.basePath, cleaned), nil
}
