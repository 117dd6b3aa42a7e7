package credential

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/maauso/promptcast/internal/gemini"
)

// ErrKeyFileEmpty is returned when the key file exists but holds no key.
var ErrKeyFileEmpty = errors.New("credential: key file is empty")

// Store holds the API key in memory. It is the Selector used in production
// and the gemini.KeySource read on every provider call.
type Store struct {
	mu      sync.RWMutex
	key     string
	keyFile string
}

// NewStore creates a store seeded with key. When keyFile is set it is read
// immediately and again on every OpenSelectKey.
func NewStore(key, keyFile string) *Store {
	s := &Store{
		key:     strings.TrimSpace(key),
		keyFile: keyFile,
	}
	if s.key == "" && keyFile != "" {
		_ = s.reload()
	}
	return s
}

// APIKey returns the current key, or "" when none is selected.
func (s *Store) APIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key
}

// Set replaces the key.
func (s *Store) Set(key string) {
	s.mu.Lock()
	s.key = strings.TrimSpace(key)
	s.mu.Unlock()
}

// HasSelectedKey reports whether a non-empty key is held.
func (s *Store) HasSelectedKey(_ context.Context) (bool, error) {
	return s.APIKey() != "", nil
}

// OpenSelectKey re-reads the key file if one is configured. Without a key
// file it is a no-op: keys arrive through Set.
func (s *Store) OpenSelectKey(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.keyFile == "" {
		return nil
	}
	return s.reload()
}

func (s *Store) reload() error {
	data, err := os.ReadFile(s.keyFile)
	if err != nil {
		return fmt.Errorf("credential: read key file: %w", err)
	}

	key := strings.TrimSpace(string(data))
	if key == "" {
		return ErrKeyFileEmpty
	}

	s.Set(key)
	return nil
}

// Compile-time checks that Store serves both roles.
var (
	_ Selector         = (*Store)(nil)
	_ gemini.KeySource = (*Store)(nil)
)
