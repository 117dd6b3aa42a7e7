// Package storage provides persistence for generated media.
// It defines the Storage interface (port) and implementations for
// local disk and S3.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// Static errors for storage operations.
var (
	// ErrNotFound is returned when a media object does not exist.
	ErrNotFound = errors.New("storage: media not found")
	// ErrInvalidKey is returned when a key is empty or escapes the storage root.
	ErrInvalidKey = errors.New("storage: invalid key")
)

// Storage defines the interface for generated media persistence.
// Save returns a location the presentation layer can fetch the media from.
type Storage interface {
	// Save stores data under key and returns its public location.
	Save(ctx context.Context, key, contentType string, data io.Reader) (location string, err error)

	// Open returns a reader for a previously saved object.
	// The caller is responsible for closing the returned ReadCloser.
	// Returns ErrNotFound if the object does not exist.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// cleanKey normalizes a key and rejects keys that are empty, absolute or
// that would escape the storage root.
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
