package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/promptcast/internal/gateway"
)

// MediaKind is the kind of media requested.
type MediaKind string

const (
	// MediaImage requests a still image.
	MediaImage MediaKind = "image"
	// MediaAnimatedVideo requests a video, usually seeded with an image.
	MediaAnimatedVideo MediaKind = "animated-video"
	// MediaCinematicVideo requests a video from the prompt alone.
	MediaCinematicVideo MediaKind = "cinematic-video"
)

// IsVideo returns true for both video kinds.
func (k MediaKind) IsVideo() bool {
	return k == MediaAnimatedVideo || k == MediaCinematicVideo
}

// Style is the visual style appended to the prompt.
type Style string

// Supported styles.
const (
	StyleCinematicRealism Style = "Cinematic Realism"
	StyleAnime            Style = "Anime"
	StylePhotorealistic   Style = "Photorealistic"
	StyleFantasyArt       Style = "Fantasy Art"
	StyleCyberpunk        Style = "Cyberpunk"
)

// DefaultStyle is used when a request carries no style.
const DefaultStyle = StyleCinematicRealism

// Styles lists the supported styles in display order.
func Styles() []Style {
	return []Style{StyleCinematicRealism, StyleAnime, StylePhotorealistic, StyleFantasyArt, StyleCyberpunk}
}

// IsValid returns true if s is a supported style.
func (s Style) IsValid() bool {
	for _, known := range Styles() {
		if s == known {
			return true
		}
	}
	return false
}

// Request is one generation request.
type Request struct {
	PromptText  string
	MediaKind   MediaKind `validate:"required,oneof=image animated-video cinematic-video"`
	Style       Style     `validate:"style"`
	SourceImage *gateway.SourceImage
	// NotificationEndpoint receives the outcome when set.
	NotificationEndpoint string
}

// EffectivePrompt is the prompt sent to the media model.
func (r Request) EffectivePrompt() string {
	return fmt.Sprintf("%s - Style: %s.", r.PromptText, r.Style)
}

// Description is the outcome description for r.
func (r Request) Description() string {
	switch {
	case r.MediaKind == MediaImage:
		return fmt.Sprintf("High-quality image generated from prompt: \"%s\"", r.PromptText)
	case r.hasImage():
		return fmt.Sprintf("Animated video created from an uploaded image with prompt: \"%s\"", r.PromptText)
	default:
		return fmt.Sprintf("Cinematic video generated from prompt: \"%s\"", r.PromptText)
	}
}

func (r Request) hasImage() bool {
	return r.SourceImage != nil && len(r.SourceImage.Data) > 0
}

// normalize fills defaults and drops an empty image.
func (r Request) normalize() Request {
	r.PromptText = strings.TrimSpace(r.PromptText)
	r.NotificationEndpoint = strings.TrimSpace(r.NotificationEndpoint)
	if r.Style == "" {
		r.Style = DefaultStyle
	}
	if !r.hasImage() {
		r.SourceImage = nil
	} else if r.SourceImage.MimeType == "" {
		img := *r.SourceImage
		img.MimeType = gateway.ImageMimeType
		r.SourceImage = &img
	}
	return r
}

// NewValidator returns a validator with the "style" rule registered.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("style", func(fl validator.FieldLevel) bool {
		return Style(fl.Field().String()).IsValid()
	})
	return v
}

// validationMessage renders validator errors as one readable line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Field() {
		case "MediaKind":
			parts = append(parts, fmt.Sprintf("unsupported media type %q", fe.Value()))
		case "Style":
			parts = append(parts, fmt.Sprintf("unsupported style %q", fe.Value()))
		default:
			parts = append(parts, fmt.Sprintf("invalid %s", fe.Field()))
		}
	}
	return strings.Join(parts, "; ")
}
