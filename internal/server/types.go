// Package server provides the HTTP surface for the generation engine.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import (
	"time"

	"github.com/maauso/promptcast/internal/engine"
)

// CreateGenerationRequest is the HTTP request body for starting a generation.
type CreateGenerationRequest struct {
	// Prompt is the user's text prompt. May be empty when an image is attached.
	Prompt string `json:"prompt" validate:"max=4000"`
	// MediaType is one of image, animated-video or cinematic-video.
	MediaType string `json:"media_type" validate:"required,oneof=image animated-video cinematic-video"`
	// Style is the visual style; empty means Cinematic Realism.
	Style string `json:"style"`
	// ImageBase64 is an optional base64-encoded source image for videos.
	ImageBase64 string `json:"image_base64" validate:"omitempty,base64"`
	// ImageMimeType is the MIME type of ImageBase64; defaults to image/png.
	ImageMimeType string `json:"image_mime_type" validate:"omitempty,oneof=image/png image/jpeg image/webp image/gif"`
	// WebhookURL receives the outcome as JSON when set.
	WebhookURL string `json:"webhook_url" validate:"omitempty,http_url"`
}

// SelectCredentialRequest is the optional body of POST /credential.
type SelectCredentialRequest struct {
	// APIKey replaces the stored key when set.
	APIKey string `json:"api_key"`
}

// SelectCredentialResponse reports the credential flag after selection.
type SelectCredentialResponse struct {
	Selected bool `json:"selected"`
}

// OutcomeResponse is the HTTP representation of a generation outcome.
type OutcomeResponse struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Caption     string `json:"caption"`
	URL         string `json:"url"`
}

// StateResponse is the HTTP representation of the engine state.
type StateResponse struct {
	// Phase is idle, generating, succeeded or failed.
	Phase string `json:"phase"`
	// Progress is the current progress message while generating.
	Progress string `json:"progress,omitempty"`
	// Outcome is present once a generation succeeded.
	Outcome *OutcomeResponse `json:"outcome,omitempty"`
	// Error is the failure description or the last rejected request's message.
	Error string `json:"error,omitempty"`
	// Warning is a non-fatal notice such as a failed webhook delivery.
	Warning string `json:"warning,omitempty"`
	// CredentialSelected reports whether an API key is selected.
	CredentialSelected bool `json:"credential_selected"`
	// UpdatedAt is when the state last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}

func toStateResponse(s engine.Snapshot) StateResponse {
	resp := StateResponse{
		Phase:              string(s.Phase),
		Progress:           s.Progress,
		Error:              s.Error,
		Warning:            s.Warning,
		CredentialSelected: s.CredentialSelected,
		UpdatedAt:          s.UpdatedAt,
	}
	if s.Outcome != nil {
		resp.Outcome = &OutcomeResponse{
			Type:        string(s.Outcome.Kind),
			Description: s.Outcome.Description,
			Caption:     s.Outcome.Caption,
			URL:         s.Outcome.Location,
		}
	}
	return resp
}
