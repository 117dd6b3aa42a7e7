package engine

import (
	"errors"
	"strings"
)

// Static errors returned by admission.
var (
	// ErrValidation is returned when a request is empty or malformed.
	ErrValidation = errors.New("engine: invalid request")
	// ErrCredentialRequired is returned for video requests without a selected credential.
	ErrCredentialRequired = errors.New("engine: credential required")
	// ErrBusy is returned when a request is already generating.
	ErrBusy = errors.New("engine: generation already in progress")
)

// User-facing messages.
const (
	MsgEmptyRequest       = "Please enter a prompt or upload an image."
	MsgCredentialRequired = "Please select an API key to generate videos."
	MsgInvalidCredential  = "API Key is invalid or not found. Please select a valid API key."
	MsgWebhookFailed      = "Media generated, but failed to send webhook. Check the URL and your automation setup."
	MsgPollLimit          = "Video generation did not finish in time."

	MsgImageStarting   = "Crafting your vision into a stunning image..."
	MsgVideoStarting   = "Preparing the digital canvas for your video..."
	MsgWritingCaption  = "Writing a viral caption for your masterpiece..."
	notFoundIndication = "Requested entity was not found"
)

// RejectedError is a request rejected before any remote call. Error returns
// Message; Unwrap returns ErrValidation or ErrCredentialRequired.
type RejectedError struct {
	Kind    error
	Message string
}

func (e *RejectedError) Error() string {
	return e.Message
}

func (e *RejectedError) Unwrap() error {
	return e.Kind
}

// normalizeFailure rewrites provider messages that mean the key is unusable.
// The boolean reports whether the rewrite applied.
func normalizeFailure(message string) (string, bool) {
	if strings.Contains(message, notFoundIndication) {
		return MsgInvalidCredential, true
	}
	return message, false
}
