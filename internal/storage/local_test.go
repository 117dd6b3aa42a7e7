package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocalStorage(t *testing.T) {
	t.Run("creates directory if not exists", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "media")

		storage, err := NewLocalStorage(dir, "")
		require.NoError(t, err)
		assert.Equal(t, dir, storage.Dir())

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("uses default directory when empty", func(t *testing.T) {
		storage, err := NewLocalStorage("", "")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(os.TempDir(), "promptcast"), storage.Dir())
	})
}

func TestLocalStorage_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("writes file and returns relative media location", func(t *testing.T) {
		storage := setupTestStorage(t, "")

		location, err := storage.Save(ctx, "videos/clip.mp4", "video/mp4", bytes.NewReader([]byte("video bytes")))
		require.NoError(t, err)
		assert.Equal(t, "/media/videos/clip.mp4", location)

		content, err := os.ReadFile(filepath.Join(storage.Dir(), "videos", "clip.mp4"))
		require.NoError(t, err)
		assert.Equal(t, "video bytes", string(content))
	})

	t.Run("prefixes public base URL", func(t *testing.T) {
		storage := setupTestStorage(t, "https://cdn.example.com/")

		location, err := storage.Save(ctx, "videos/clip.mp4", "video/mp4", bytes.NewReader([]byte("x")))
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/media/videos/clip.mp4", location)
	})

	t.Run("rejects keys escaping the root", func(t *testing.T) {
		storage := setupTestStorage(t, "")

		for _, key := range []string{"", "/etc/passwd", "../outside.mp4", "videos/../../x"} {
			_, err := storage.Save(ctx, key, "", bytes.NewReader([]byte("x")))
			assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
		}
	})

	t.Run("leaves no partial file when the reader fails", func(t *testing.T) {
		storage := setupTestStorage(t, "")

		_, err := storage.Save(ctx, "videos/broken.mp4", "video/mp4", &failingReader{})
		require.Error(t, err)

		entries, err := os.ReadDir(filepath.Join(storage.Dir(), "videos"))
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		storage := setupTestStorage(t, "")
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := storage.Save(cancelled, "videos/clip.mp4", "", bytes.NewReader([]byte("data")))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLocalStorage_Open(t *testing.T) {
	ctx := context.Background()
	storage := setupTestStorage(t, "")

	t.Run("reads saved media", func(t *testing.T) {
		_, err := storage.Save(ctx, "videos/open.mp4", "video/mp4", bytes.NewReader([]byte("load data")))
		require.NoError(t, err)

		reader, err := storage.Open(ctx, "videos/open.mp4")
		require.NoError(t, err)
		defer func() { _ = reader.Close() }()

		content, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, "load data", string(content))
	})

	t.Run("returns ErrNotFound for missing media", func(t *testing.T) {
		_, err := storage.Open(ctx, "videos/missing.mp4")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("rejects traversal", func(t *testing.T) {
		_, err := storage.Open(ctx, "../secret")
		assert.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := storage.Open(cancelled, "videos/open.mp4")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func setupTestStorage(t *testing.T, baseURL string) *LocalStorage {
	t.Helper()
	storage, err := NewLocalStorage(t.TempDir(), baseURL)
	require.NoError(t, err)
	return storage
}

type failingReader struct{}

func (r *failingReader) Read(_ []byte) (int, error) {
	return 0, errors.New("read failed")
}
