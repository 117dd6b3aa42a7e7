package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// MediaPathPrefix is the URL path under which locally stored media is served.
const MediaPathPrefix = "/media/"

// LocalStorage implements the Storage interface using local disk.
// Saved media is addressed by MediaPathPrefix, optionally prefixed with a
// public base URL.
type LocalStorage struct {
	dir     string
	baseURL string
}

// NewLocalStorage creates a new LocalStorage instance.
// If dir is empty, a "promptcast" directory under os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewLocalStorage(dir, baseURL string) (*LocalStorage, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "promptcast")
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}

	return &LocalStorage{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Dir returns the media directory path.
func (s *LocalStorage) Dir() string {
	return s.dir
}

// Save writes data to <dir>/<key>. The file is written to a temporary name
// first and renamed into place so readers never see partial media.
func (s *LocalStorage) Save(ctx context.Context, key, _ string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(s.dir, filepath.FromSlash(cleaned))
	if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return "", fmt.Errorf("create media directory: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(dest), ".partial_*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	tmpName := f.Name()
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("write media file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("close media file: %w", err)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("move media file: %w", err)
	}

	return s.baseURL + MediaPathPrefix + cleaned, nil
}

// Open opens a saved media file.
func (s *LocalStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	cleaned, err := cleanKey(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.dir, filepath.FromSlash(cleaned))) // #nosec G304 - key is cleaned above
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open media file: %w", err)
	}

	return f, nil
}

// Compile-time check that LocalStorage implements Storage.
var _ Storage = (*LocalStorage)(nil)
