package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/maauso/promptcast/internal/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockGeminiClient implements gemini.Client for testing.
type mockGeminiClient struct {
	mock.Mock
}

func (m *mockGeminiClient) GenerateImage(ctx context.Context, req gemini.ImageRequest) (gemini.Image, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(gemini.Image), args.Error(1)
}

func (m *mockGeminiClient) GenerateVideo(ctx context.Context, req gemini.VideoRequest) (gemini.Operation, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(gemini.Operation), args.Error(1)
}

func (m *mockGeminiClient) GetOperation(ctx context.Context, name string) (gemini.Operation, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(gemini.Operation), args.Error(1)
}

func (m *mockGeminiClient) Download(ctx context.Context, uri string) (io.ReadCloser, string, error) {
	args := m.Called(ctx, uri)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.String(1), args.Error(2)
}

func (m *mockGeminiClient) GenerateText(ctx context.Context, req gemini.TextRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// mockStorage implements storage.Storage for testing.
type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Save(ctx context.Context, key, contentType string, data io.Reader) (string, error) {
	args := m.Called(ctx, key, contentType, data)
	return args.String(0), args.Error(1)
}

func (m *mockStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func newTestGateway() (*GeminiGateway, *mockGeminiClient, *mockStorage) {
	client := &mockGeminiClient{}
	store := &mockStorage{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewGeminiGateway(client, store, logger), client, store
}

func TestGeminiGateway_SynthesizeImage(t *testing.T) {
	ctx := context.Background()
	gw, client, _ := newTestGateway()

	client.On("GenerateImage", ctx, gemini.ImageRequest{
		Prompt:         "A lonely robot in rain - Style: Cyberpunk.",
		NumberOfImages: 1,
		AspectRatio:    "16:9",
		OutputMimeType: "image/png",
	}).Return(gemini.Image{Data: []byte("img"), MimeType: "image/png"}, nil)

	location, err := gw.SynthesizeImage(ctx, "A lonely robot in rain - Style: Cyberpunk.")
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,aW1n", location)
	client.AssertExpectations(t)
}

func TestGeminiGateway_SynthesizeImage_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing credential", func(t *testing.T) {
		gw, client, _ := newTestGateway()
		client.On("GenerateImage", ctx, mock.Anything).Return(gemini.Image{}, gemini.ErrAPIKeyNotSet)

		_, err := gw.SynthesizeImage(ctx, "p")
		var pe *ProviderError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, MsgNoCredential, pe.Message)
		assert.Equal(t, OpSynthesizeImage, pe.Op)
		assert.ErrorIs(t, err, gemini.ErrAPIKeyNotSet)
	})

	t.Run("remote failure keeps provider message", func(t *testing.T) {
		gw, client, _ := newTestGateway()
		remote := fmt.Errorf("%w with status 404: Requested entity was not found.", gemini.ErrRequestFailed)
		client.On("GenerateImage", ctx, mock.Anything).Return(gemini.Image{}, remote)

		_, err := gw.SynthesizeImage(ctx, "p")
		require.True(t, IsProviderError(err))
		assert.Contains(t, err.Error(), "Requested entity was not found")
	})
}

func TestGeminiGateway_BeginVideoSynthesis(t *testing.T) {
	ctx := context.Background()

	t.Run("with source image", func(t *testing.T) {
		gw, client, _ := newTestGateway()
		client.On("GenerateVideo", ctx, mock.MatchedBy(func(r gemini.VideoRequest) bool {
			return r.Prompt == "p" && r.NumberOfVideos == 1 && r.AspectRatio == "16:9" && r.Resolution == "1080p" &&
				r.Image != nil && string(r.Image.Data) == "seed" && r.Image.MimeType == "image/jpeg"
		})).Return(gemini.Operation{Name: "operations/1"}, nil)

		op, err := gw.BeginVideoSynthesis(ctx, "p", &SourceImage{Data: []byte("seed"), MimeType: "image/jpeg"})
		require.NoError(t, err)
		assert.Equal(t, "operations/1", op.Name)
		assert.False(t, op.Done)
		client.AssertExpectations(t)
	})

	t.Run("without source image", func(t *testing.T) {
		gw, client, _ := newTestGateway()
		client.On("GenerateVideo", ctx, mock.MatchedBy(func(r gemini.VideoRequest) bool {
			return r.Image == nil
		})).Return(gemini.Operation{Name: "operations/2"}, nil)

		_, err := gw.BeginVideoSynthesis(ctx, "p", &SourceImage{})
		require.NoError(t, err)
		client.AssertExpectations(t)
	})

	t.Run("failure", func(t *testing.T) {
		gw, client, _ := newTestGateway()
		client.On("GenerateVideo", ctx, mock.Anything).Return(gemini.Operation{}, errors.New("boom"))

		_, err := gw.BeginVideoSynthesis(ctx, "p", nil)
		var pe *ProviderError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "boom", pe.Message)
	})
}

func TestGeminiGateway_PollVideoOperation(t *testing.T) {
	ctx := context.Background()
	gw, client, _ := newTestGateway()

	client.On("GetOperation", ctx, "operations/1").
		Return(gemini.Operation{Name: "operations/1", Done: true, VideoURI: "https://files/v"}, nil)

	op, err := gw.PollVideoOperation(ctx, &VideoOperation{Name: "operations/1"})
	require.NoError(t, err)
	assert.Equal(t, &VideoOperation{Name: "operations/1", Done: true, VideoURI: "https://files/v"}, op)

	_, err = gw.PollVideoOperation(ctx, nil)
	assert.True(t, IsProviderError(err))
}

func TestGeminiGateway_ResolveVideoMedia(t *testing.T) {
	ctx := context.Background()

	t.Run("stores downloaded video", func(t *testing.T) {
		gw, client, store := newTestGateway()
		body := io.NopCloser(strings.NewReader("mp4"))
		client.On("Download", ctx, "https://files/v").Return(body, "video/mp4", nil)
		store.On("Save", ctx, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "videos/") && strings.HasSuffix(key, ".mp4")
		}), "video/mp4", body).Return("/media/videos/x.mp4", nil)

		location, err := gw.ResolveVideoMedia(ctx, &VideoOperation{Name: "op", Done: true, VideoURI: "https://files/v"})
		require.NoError(t, err)
		assert.Equal(t, "/media/videos/x.mp4", location)
		client.AssertExpectations(t)
		store.AssertExpectations(t)
	})

	t.Run("no media reference", func(t *testing.T) {
		gw, client, _ := newTestGateway()

		_, err := gw.ResolveVideoMedia(ctx, &VideoOperation{Name: "op", Done: true})
		var pe *ProviderError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "no media reference returned", pe.Message)
		client.AssertNotCalled(t, "Download", mock.Anything, mock.Anything)
	})

	t.Run("operation error", func(t *testing.T) {
		gw, _, _ := newTestGateway()

		_, err := gw.ResolveVideoMedia(ctx, &VideoOperation{Name: "op", Done: true, Error: "prompt rejected"})
		assert.EqualError(t, err, "prompt rejected")
	})

	t.Run("not complete", func(t *testing.T) {
		gw, _, _ := newTestGateway()

		_, err := gw.ResolveVideoMedia(ctx, &VideoOperation{Name: "op"})
		assert.EqualError(t, err, MsgNotComplete)
	})

	t.Run("download failed", func(t *testing.T) {
		gw, client, store := newTestGateway()
		client.On("Download", ctx, "https://files/v").
			Return(nil, "", &gemini.DownloadError{StatusCode: 403, Status: "403 Forbidden"})

		_, err := gw.ResolveVideoMedia(ctx, &VideoOperation{Name: "op", Done: true, VideoURI: "https://files/v"})
		assert.EqualError(t, err, "download failed: 403 Forbidden")
		store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("storage failure", func(t *testing.T) {
		gw, client, store := newTestGateway()
		client.On("Download", ctx, "https://files/v").Return(io.NopCloser(strings.NewReader("x")), "video/webm", nil)
		store.On("Save", ctx, mock.MatchedBy(func(key string) bool {
			return strings.HasSuffix(key, ".webm")
		}), "video/webm", mock.Anything).Return("", errors.New("disk full"))

		_, err := gw.ResolveVideoMedia(ctx, &VideoOperation{Name: "op", Done: true, VideoURI: "https://files/v"})
		assert.True(t, IsProviderError(err))
		assert.Contains(t, err.Error(), "disk full")
	})
}

func TestGeminiGateway_SynthesizeCaption(t *testing.T) {
	ctx := context.Background()
	gw, client, _ := newTestGateway()

	client.On("GenerateText", ctx, gemini.TextRequest{
		SystemInstruction: CaptionSystemInstruction,
		Prompt:            CaptionPrompt("A lonely robot in rain"),
	}).Return("  Drip, drip, beep. 🤖 #robot #rain #cyberpunk \n", nil)

	caption, err := gw.SynthesizeCaption(ctx, "A lonely robot in rain")
	require.NoError(t, err)
	assert.Equal(t, "Drip, drip, beep. 🤖 #robot #rain #cyberpunk", caption)
	client.AssertExpectations(t)
}

func TestCaptionPrompt(t *testing.T) {
	prompt := CaptionPrompt("sunset")

	assert.True(t, strings.HasPrefix(prompt, `Based on this prompt: "sunset"`))
	assert.Contains(t, prompt, "maximum of 15 words")
	assert.Contains(t, prompt, "3 relevant hashtags")
	assert.Contains(t, prompt, "one emoji")
	assert.True(t, strings.HasPrefix(CaptionSystemInstruction, "You are a witty social media expert"))
}

func TestVideoExtension(t *testing.T) {
	assert.Equal(t, ".mp4", videoExtension("video/mp4"))
	assert.Equal(t, ".webm", videoExtension("video/webm"))
	assert.Equal(t, ".mov", videoExtension("video/quicktime"))
	assert.Equal(t, ".mp4", videoExtension("application/octet-stream"))
}
