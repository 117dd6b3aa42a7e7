package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/promptcast/internal/engine"
	"github.com/maauso/promptcast/internal/gateway"
	"github.com/maauso/promptcast/internal/storage"
)

// Engine is the part of engine.Orchestrator the handlers use.
type Engine interface {
	Start(ctx context.Context, req engine.Request) error
	Snapshot() engine.Snapshot
	Subscribe() (<-chan engine.Snapshot, func())
	SelectCredential(ctx context.Context) bool
}

// KeySetter stores an API key supplied over HTTP.
type KeySetter interface {
	Set(key string)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	engine    Engine
	keys      KeySetter
	media     storage.Storage
	validator *validator.Validate
	logger    *slog.Logger
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithKeySetter lets POST /credential store a key from the request body.
func WithKeySetter(k KeySetter) HandlerOption {
	return func(h *Handlers) {
		h.keys = k
	}
}

// WithMediaStorage enables GET /media/{key...} over s.
func WithMediaStorage(s storage.Storage) HandlerOption {
	return func(h *Handlers) {
		h.media = s
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(eng Engine, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		engine:    eng,
		validator: validator.New(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateGeneration handles POST /generations requests. Generation runs in the
// background; progress is read from GET /state or GET /state/stream.
func (h *Handlers) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	var req CreateGenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	genReq := engine.Request{
		PromptText:           req.Prompt,
		MediaKind:            engine.MediaKind(req.MediaType),
		Style:                engine.Style(req.Style),
		NotificationEndpoint: req.WebhookURL,
	}
	if req.ImageBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "image_base64 is not valid base64", "VALIDATION_ERROR")
			return
		}
		genReq.SourceImage = &gateway.SourceImage{Data: data, MimeType: req.ImageMimeType}
	}

	if err := h.engine.Start(r.Context(), genReq); err != nil {
		h.writeStartError(w, err)
		return
	}

	h.logger.Info("generation accepted",
		slog.String("media_type", req.MediaType),
		slog.String("style", req.Style),
	)

	writeJSON(w, http.StatusAccepted, toStateResponse(h.engine.Snapshot()))
}

func (h *Handlers) writeStartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrBusy):
		writeError(w, http.StatusConflict, "a generation is already in progress", "GENERATION_IN_PROGRESS")
	case errors.Is(err, engine.ErrCredentialRequired):
		writeError(w, http.StatusPreconditionRequired, err.Error(), "CREDENTIAL_REQUIRED")
	case errors.Is(err, engine.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
	default:
		h.logger.Error("failed to start generation",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to start generation", "GENERATION_START_FAILED")
	}
}

// GetState handles GET /state requests.
func (h *Handlers) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toStateResponse(h.engine.Snapshot()))
}

// SelectCredential handles POST /credential requests. The body is optional.
func (h *Handlers) SelectCredential(w http.ResponseWriter, r *http.Request) {
	var req SelectCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if req.APIKey != "" {
		if h.keys == nil {
			writeError(w, http.StatusBadRequest, "API keys cannot be set over HTTP", "KEY_INPUT_DISABLED")
			return
		}
		h.keys.Set(req.APIKey)
	}

	selected := h.engine.SelectCredential(r.Context())

	h.logger.Info("credential selection completed",
		slog.Bool("selected", selected),
		slog.Bool("key_supplied", req.APIKey != ""),
	)

	writeJSON(w, http.StatusOK, SelectCredentialResponse{Selected: selected})
}

// ServeMedia handles GET /media/{key...} requests.
func (h *Handlers) ServeMedia(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if h.media == nil || key == "" {
		writeError(w, http.StatusNotFound, "media not found", "MEDIA_NOT_FOUND")
		return
	}

	rc, err := h.media.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidKey) {
			writeError(w, http.StatusNotFound, "media not found", "MEDIA_NOT_FOUND")
			return
		}
		h.logger.Error("failed to open media",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to open media", "MEDIA_FETCH_FAILED")
		return
	}
	defer func() { _ = rc.Close() }()

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("media copy interrupted",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
