// Package engine runs one media generation request at a time: it validates
// the request, drives the provider gateway (polling long-running video jobs),
// writes the caption, and owns the observable engine state.
package engine

import (
	"errors"
	"time"
)

// Phase is the engine's position in the request lifecycle.
type Phase string

const (
	// PhaseIdle is the initial phase; nothing has been requested yet.
	PhaseIdle Phase = "idle"
	// PhaseGenerating indicates a request is in flight.
	PhaseGenerating Phase = "generating"
	// PhaseSucceeded indicates the last request produced an outcome.
	PhaseSucceeded Phase = "succeeded"
	// PhaseFailed indicates the last request failed.
	PhaseFailed Phase = "failed"
)

// ErrInvalidTransition is returned when an invalid phase transition is attempted.
var ErrInvalidTransition = errors.New("engine: invalid state transition")

// validTransitions defines which phase transitions are allowed.
var validTransitions = map[Phase][]Phase{
	PhaseIdle:       {PhaseGenerating},
	PhaseGenerating: {PhaseSucceeded, PhaseFailed},
	PhaseSucceeded:  {PhaseGenerating},
	PhaseFailed:     {PhaseGenerating},
}

func canTransition(from, to Phase) bool {
	for _, p := range validTransitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// Snapshot is a point-in-time copy of the engine state.
type Snapshot struct {
	// Phase is the current lifecycle phase.
	Phase Phase `json:"phase"`
	// Progress is the latest progress message while generating.
	Progress string `json:"progress,omitempty"`
	// Outcome is set only in PhaseSucceeded.
	Outcome *Outcome `json:"outcome,omitempty"`
	// Error is the failure description, or a rejected request's message.
	Error string `json:"error,omitempty"`
	// Warning is a non-fatal notice attached to a successful outcome.
	Warning string `json:"warning,omitempty"`
	// CredentialSelected mirrors the credential gate.
	CredentialSelected bool `json:"credential_selected"`
	// UpdatedAt is when the state last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// transitionTo moves s to phase p or returns ErrInvalidTransition.
func (s *Snapshot) transitionTo(p Phase) error {
	if !canTransition(s.Phase, p) {
		return ErrInvalidTransition
	}
	s.Phase = p
	s.UpdatedAt = time.Now()
	return nil
}

// clone returns a copy that shares nothing with s.
func (s *Snapshot) clone() Snapshot {
	c := *s
	if s.Outcome != nil {
		o := *s.Outcome
		c.Outcome = &o
	}
	return c
}
