// Package id provides unique identifier generation for generations and media objects.
package id

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Generate creates a new unique identifier with the given prefix.
// Format: <prefix>-<timestamp>-<uuid>
// Example: gen-1701432000-0b6e3c1a-9f1d-4c55-8f0e-5a1c0d2e4b7f
func Generate(prefix string) string {
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().Unix(), uuid.NewString())
}

// MediaKey builds a storage key for a generated media object.
// Format: <kind>/<uuid><ext>
func MediaKey(kind, ext string) string {
	return fmt.Sprintf("%s/%s%s", kind, uuid.NewString(), ext)
}
