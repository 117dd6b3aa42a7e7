package gateway

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maauso/promptcast/internal/gemini"
	"github.com/maauso/promptcast/internal/id"
	"github.com/maauso/promptcast/internal/storage"
)

// Operation names used in ProviderError.Op and logs.
const (
	OpSynthesizeImage     = "synthesize_image"
	OpBeginVideoSynthesis = "begin_video_synthesis"
	OpPollVideoOperation  = "poll_video_operation"
	OpResolveVideoMedia   = "resolve_video_media"
	OpSynthesizeCaption   = "synthesize_caption"
)

// GeminiGateway adapts the Gemini client to the Gateway interface.
// Downloaded videos are handed to store; the store's location becomes the
// media location.
type GeminiGateway struct {
	client gemini.Client
	store  storage.Storage
	logger *slog.Logger
}

// NewGeminiGateway creates a new Gemini gateway.
func NewGeminiGateway(client gemini.Client, store storage.Storage, logger *slog.Logger) *GeminiGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiGateway{
		client: client,
		store:  store,
		logger: logger,
	}
}

// SynthesizeImage requests one 16:9 PNG and returns it as a data URL.
func (g *GeminiGateway) SynthesizeImage(ctx context.Context, prompt string) (string, error) {
	img, err := g.client.GenerateImage(ctx, gemini.ImageRequest{
		Prompt:         prompt,
		NumberOfImages: 1,
		AspectRatio:    AspectRatio,
		OutputMimeType: ImageMimeType,
	})
	if err != nil {
		return "", g.fail(OpSynthesizeImage, err)
	}

	return fmt.Sprintf("data:%s;base64,%s", img.MimeType, base64.StdEncoding.EncodeToString(img.Data)), nil
}

// BeginVideoSynthesis submits one 16:9 1080p video job.
func (g *GeminiGateway) BeginVideoSynthesis(ctx context.Context, prompt string, image *SourceImage) (*VideoOperation, error) {
	req := gemini.VideoRequest{
		Prompt:         prompt,
		NumberOfVideos: 1,
		AspectRatio:    AspectRatio,
		Resolution:     VideoResolution,
	}
	if image != nil && len(image.Data) > 0 {
		req.Image = &gemini.InlineImage{Data: image.Data, MimeType: image.MimeType}
	}

	op, err := g.client.GenerateVideo(ctx, req)
	if err != nil {
		return nil, g.fail(OpBeginVideoSynthesis, err)
	}

	g.logger.Debug("video job submitted",
		slog.String("operation", op.Name),
		slog.Bool("seeded", req.Image != nil),
	)

	return fromOperation(op), nil
}

// PollVideoOperation fetches the current status of op.
func (g *GeminiGateway) PollVideoOperation(ctx context.Context, op *VideoOperation) (*VideoOperation, error) {
	if op == nil {
		return nil, newProviderError(OpPollVideoOperation, "video operation handle is missing", gemini.ErrOperationNameRequired)
	}

	latest, err := g.client.GetOperation(ctx, op.Name)
	if err != nil {
		return nil, g.fail(OpPollVideoOperation, err)
	}

	return fromOperation(latest), nil
}

// ResolveVideoMedia downloads the video of a completed op and stores it.
func (g *GeminiGateway) ResolveVideoMedia(ctx context.Context, op *VideoOperation) (string, error) {
	if op == nil || !op.Done {
		return "", newProviderError(OpResolveVideoMedia, MsgNotComplete, nil)
	}
	if op.Error != "" {
		return "", newProviderError(OpResolveVideoMedia, op.Error, nil)
	}
	if op.VideoURI == "" {
		return "", newProviderError(OpResolveVideoMedia, MsgNoMediaReference, nil)
	}

	body, contentType, err := g.client.Download(ctx, op.VideoURI)
	if err != nil {
		var dlErr *gemini.DownloadError
		if errors.As(err, &dlErr) {
			return "", newProviderError(OpResolveVideoMedia, "download failed: "+dlErr.Status, err)
		}
		return "", g.fail(OpResolveVideoMedia, err)
	}
	defer func() { _ = body.Close() }()

	if contentType == "" {
		contentType = "video/mp4"
	}

	location, err := g.store.Save(ctx, id.MediaKey("videos", videoExtension(contentType)), contentType, body)
	if err != nil {
		return "", newProviderError(OpResolveVideoMedia, "store video: "+err.Error(), err)
	}

	g.logger.Debug("video media stored",
		slog.String("operation", op.Name),
		slog.String("location", location),
	)

	return location, nil
}

// SynthesizeCaption asks the text model for a short caption and trims it.
func (g *GeminiGateway) SynthesizeCaption(ctx context.Context, prompt string) (string, error) {
	text, err := g.client.GenerateText(ctx, gemini.TextRequest{
		SystemInstruction: CaptionSystemInstruction,
		Prompt:            CaptionPrompt(prompt),
	})
	if err != nil {
		return "", g.fail(OpSynthesizeCaption, err)
	}

	return strings.TrimSpace(text), nil
}

// CaptionPrompt builds the caption instruction for a user prompt.
func CaptionPrompt(prompt string) string {
	return fmt.Sprintf(captionPromptFormat, prompt)
}

// fail converts a client error into a ProviderError.
func (g *GeminiGateway) fail(op string, err error) *ProviderError {
	message := err.Error()
	if errors.Is(err, gemini.ErrAPIKeyNotSet) {
		message = MsgNoCredential
	}

	g.logger.Warn("provider call failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)

	return newProviderError(op, message, err)
}

func fromOperation(op gemini.Operation) *VideoOperation {
	return &VideoOperation{
		Name:     op.Name,
		Done:     op.Done,
		VideoURI: op.VideoURI,
		Error:    op.Error,
	}
}

func videoExtension(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "video/webm"):
		return ".webm"
	case strings.HasPrefix(contentType, "video/quicktime"):
		return ".mov"
	default:
		return ".mp4"
	}
}

// Compile-time check that GeminiGateway implements Gateway.
var _ Gateway = (*GeminiGateway)(nil)
