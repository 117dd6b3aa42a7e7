// Package credential tracks whether a provider API key has been selected and
// drives the external key selection flow.
package credential

import (
	"context"
	"log/slog"
	"sync"
)

// Selector is the external key selection capability.
type Selector interface {
	// HasSelectedKey reports whether a key is currently selected.
	HasSelectedKey(ctx context.Context) (bool, error)

	// OpenSelectKey starts the interactive selection flow.
	OpenSelectKey(ctx context.Context) error
}

// Gate owns the selected-credential flag. It is safe for concurrent use.
//
// PromptSelection marks the credential as selected as soon as the selection
// flow returns, without checking that a key was actually chosen. A request
// admitted right after may still fail remotely; the orchestrator then calls
// Invalidate.
type Gate struct {
	mu       sync.RWMutex
	selected bool
	selector Selector
	logger   *slog.Logger
}

// NewGate creates a gate over selector. A nil selector means the capability is
// unavailable and the gate never reports a selected key until prompted.
func NewGate(selector Selector, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		selector: selector,
		logger:   logger,
	}
}

// Refresh queries the selector and stores the result. Errors are treated as
// "not selected".
func (g *Gate) Refresh(ctx context.Context) bool {
	selected := false
	if g.selector != nil {
		ok, err := g.selector.HasSelectedKey(ctx)
		if err != nil {
			g.logger.Warn("credential check failed",
				slog.String("error", err.Error()),
			)
		} else {
			selected = ok
		}
	}

	g.mu.Lock()
	g.selected = selected
	g.mu.Unlock()

	return selected
}

// Selected returns the current flag.
func (g *Gate) Selected() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.selected
}

// PromptSelection runs the selection flow and then sets the flag to true.
func (g *Gate) PromptSelection(ctx context.Context) {
	if g.selector != nil {
		if err := g.selector.OpenSelectKey(ctx); err != nil {
			g.logger.Warn("credential selection flow failed",
				slog.String("error", err.Error()),
			)
		}
	}

	g.mu.Lock()
	g.selected = true
	g.mu.Unlock()
}

// Invalidate clears the flag after the provider rejected the key.
func (g *Gate) Invalidate() {
	g.mu.Lock()
	g.selected = false
	g.mu.Unlock()

	g.logger.Info("credential invalidated")
}
