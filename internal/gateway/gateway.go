// Package gateway wraps the remote generative provider behind the five
// operations the engine needs: image synthesis, video submission, video
// status polling, video media resolution and caption synthesis.
// Every failure is reported as a *ProviderError carrying a human-readable
// message. The gateway never retries.
package gateway

import (
	"context"
	"errors"
)

// Provider-facing constants.
const (
	AspectRatio     = "16:9"
	VideoResolution = "1080p"
	ImageMimeType   = "image/png"

	CaptionSystemInstruction = "You are a witty social media expert, skilled at crafting short, engaging, and viral captions."
	captionPromptFormat      = `Based on this prompt: "%s", write a short viral caption for social media (like Instagram/TikTok). The caption should be a maximum of 15 words, include 3 relevant hashtags, and one emoji.`
)

// Messages carried by ProviderError for conditions detected locally.
const (
	MsgNoCredential     = "API key is not configured."
	MsgNoMediaReference = "no media reference returned"
	MsgNotComplete      = "video operation has not completed"
)

// SourceImage is an optional image that seeds video synthesis.
type SourceImage struct {
	Data     []byte
	MimeType string
}

// VideoOperation is a handle on an in-flight video job. It is a value: each
// poll returns a new handle.
type VideoOperation struct {
	Name     string
	Done     bool
	VideoURI string
	Error    string
}

// Gateway defines the provider operations used by the engine.
type Gateway interface {
	// SynthesizeImage generates one image and returns its media location.
	SynthesizeImage(ctx context.Context, prompt string) (location string, err error)

	// BeginVideoSynthesis submits one video job, optionally seeded with image.
	BeginVideoSynthesis(ctx context.Context, prompt string, image *SourceImage) (*VideoOperation, error)

	// PollVideoOperation refreshes op with a single status request.
	PollVideoOperation(ctx context.Context, op *VideoOperation) (*VideoOperation, error)

	// ResolveVideoMedia materializes the media of a completed op.
	ResolveVideoMedia(ctx context.Context, op *VideoOperation) (location string, err error)

	// SynthesizeCaption writes a short social caption for prompt.
	SynthesizeCaption(ctx context.Context, prompt string) (caption string, err error)
}

// ProviderError is the uniform failure of every gateway operation.
// Error returns Message verbatim so it can be surfaced to users.
type ProviderError struct {
	Op      string
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsProviderError reports whether err is or wraps a *ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

func newProviderError(op, message string, err error) *ProviderError {
	return &ProviderError{Op: op, Message: message, Err: err}
}
