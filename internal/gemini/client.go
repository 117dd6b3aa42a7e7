package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Default models and endpoint.
const (
	DefaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	DefaultImageModel = "imagen-4.0-generate-001"
	DefaultVideoModel = "veo-3.1-fast-generate-preview"
	DefaultTextModel  = "gemini-2.5-flash"
)

// Static errors for Gemini client operations.
var (
	// ErrKeySourceRequired is returned when the client is built without a key source.
	ErrKeySourceRequired = errors.New("gemini: key source is required")
	// ErrAPIKeyNotSet is returned when no API key is currently selected.
	ErrAPIKeyNotSet = errors.New("gemini: API key is not set")
	// ErrOperationNameRequired is returned when polling without an operation name.
	ErrOperationNameRequired = errors.New("gemini: operation name is required")
	// ErrNoOperationReturned is returned when a video submission returns no operation name.
	ErrNoOperationReturned = errors.New("gemini: no operation returned")
	// ErrNoImageReturned is returned when an image response carries no image bytes.
	ErrNoImageReturned = errors.New("gemini: no image returned")
	// ErrNoTextReturned is returned when a text response carries no candidates.
	ErrNoTextReturned = errors.New("gemini: no text returned")
	// ErrVideoURIRequired is returned when downloading without a URI.
	ErrVideoURIRequired = errors.New("gemini: video URI is required")
	// ErrRequestFailed is returned when the request fails with a non-2xx status code.
	ErrRequestFailed = errors.New("gemini: request failed")
)

// DownloadError is returned when a video download answers with a non-2xx status.
type DownloadError struct {
	StatusCode int
	Status     string
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("gemini: download failed with status %s", e.Status)
}

// Client defines the interface for the generative provider.
type Client interface {
	// GenerateImage synthesizes images and returns the first one.
	GenerateImage(ctx context.Context, req ImageRequest) (Image, error)

	// GenerateVideo submits a long-running video job.
	GenerateVideo(ctx context.Context, req VideoRequest) (Operation, error)

	// GetOperation fetches the current state of a video job.
	GetOperation(ctx context.Context, name string) (Operation, error)

	// Download opens the media at uri. The caller must close the body.
	Download(ctx context.Context, uri string) (body io.ReadCloser, contentType string, err error)

	// GenerateText returns the concatenated text of the first candidate.
	GenerateText(ctx context.Context, req TextRequest) (string, error)
}

// HTTPClient is the HTTP implementation of the Client interface.
type HTTPClient struct {
	keys       KeySource
	baseURL    string
	imageModel string
	videoModel string
	textModel  string
	httpClient *http.Client
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(u string) ClientOption {
	return func(hc *HTTPClient) {
		if u != "" {
			hc.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithImageModel overrides the image model.
func WithImageModel(model string) ClientOption {
	return func(hc *HTTPClient) {
		if model != "" {
			hc.imageModel = model
		}
	}
}

// WithVideoModel overrides the video model.
func WithVideoModel(model string) ClientOption {
	return func(hc *HTTPClient) {
		if model != "" {
			hc.videoModel = model
		}
	}
}

// WithTextModel overrides the text model.
func WithTextModel(model string) ClientOption {
	return func(hc *HTTPClient) {
		if model != "" {
			hc.textModel = model
		}
	}
}

// NewClient creates a new Gemini HTTP client. The key source is consulted on
// every request; an empty key fails the request with ErrAPIKeyNotSet.
func NewClient(keys KeySource, opts ...ClientOption) (*HTTPClient, error) {
	if keys == nil {
		return nil, ErrKeySourceRequired
	}

	c := &HTTPClient{
		keys:       keys,
		baseURL:    DefaultBaseURL,
		imageModel: DefaultImageModel,
		videoModel: DefaultVideoModel,
		textModel:  DefaultTextModel,
		// Video downloads can be large; per-call deadlines come from ctx.
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// GenerateImage calls the image model's :predict endpoint.
func (c *HTTPClient) GenerateImage(ctx context.Context, req ImageRequest) (Image, error) {
	mimeType := orDefault(req.OutputMimeType, "image/png")
	body := predictRequest{
		Instances: []predictInstance{{Prompt: req.Prompt}},
		Parameters: predictParameters{
			SampleCount:    orDefaultInt(req.NumberOfImages, 1),
			AspectRatio:    orDefault(req.AspectRatio, "16:9"),
			OutputMimeType: mimeType,
		},
	}

	var resp predictResponse
	if err := c.doJSON(ctx, http.MethodPost, c.modelURL(c.imageModel, "predict"), body, &resp); err != nil {
		return Image{}, err
	}

	if len(resp.Predictions) == 0 || resp.Predictions[0].BytesBase64Encoded == "" {
		return Image{}, ErrNoImageReturned
	}

	data, err := base64.StdEncoding.DecodeString(resp.Predictions[0].BytesBase64Encoded)
	if err != nil {
		return Image{}, fmt.Errorf("gemini: decode image: %w", err)
	}

	return Image{
		Data:     data,
		MimeType: orDefault(resp.Predictions[0].MimeType, mimeType),
	}, nil
}

// GenerateVideo calls the video model's :predictLongRunning endpoint.
func (c *HTTPClient) GenerateVideo(ctx context.Context, req VideoRequest) (Operation, error) {
	instance := predictInstance{Prompt: req.Prompt}
	if req.Image != nil && len(req.Image.Data) > 0 {
		instance.Image = &inlineData{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(req.Image.Data),
			MimeType:           orDefault(req.Image.MimeType, "image/png"),
		}
	}

	body := predictRequest{
		Instances: []predictInstance{instance},
		Parameters: predictParameters{
			SampleCount: orDefaultInt(req.NumberOfVideos, 1),
			AspectRatio: orDefault(req.AspectRatio, "16:9"),
			Resolution:  orDefault(req.Resolution, "1080p"),
		},
	}

	var resp operationResponse
	if err := c.doJSON(ctx, http.MethodPost, c.modelURL(c.videoModel, "predictLongRunning"), body, &resp); err != nil {
		return Operation{}, err
	}

	if resp.Name == "" {
		return Operation{}, ErrNoOperationReturned
	}

	return toOperation(resp), nil
}

// GetOperation fetches a long-running operation by name.
func (c *HTTPClient) GetOperation(ctx context.Context, name string) (Operation, error) {
	if name == "" {
		return Operation{}, ErrOperationNameRequired
	}

	var resp operationResponse
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/"+strings.TrimLeft(name, "/"), nil, &resp); err != nil {
		return Operation{}, err
	}

	if resp.Name == "" {
		resp.Name = name
	}

	return toOperation(resp), nil
}

// Download opens the generated media at uri.
func (c *HTTPClient) Download(ctx context.Context, uri string) (io.ReadCloser, string, error) {
	if uri == "" {
		return nil, "", ErrVideoURIRequired
	}

	key := c.keys.APIKey()
	if key == "" {
		return nil, "", ErrAPIKeyNotSet
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, "", fmt.Errorf("gemini: create download request: %w", err)
	}
	req.Header.Set("x-goog-api-key", key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("gemini: download request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, "", &DownloadError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// GenerateText calls the text model's :generateContent endpoint.
func (c *HTTPClient) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	body := generateContentRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: req.Prompt}},
		}},
	}
	if req.SystemInstruction != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: req.SystemInstruction}}}
	}

	var resp generateContentResponse
	if err := c.doJSON(ctx, http.MethodPost, c.modelURL(c.textModel, "generateContent"), body, &resp); err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 {
		return "", ErrNoTextReturned
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

func (c *HTTPClient) modelURL(model, method string) string {
	return fmt.Sprintf("%s/models/%s:%s", c.baseURL, url.PathEscape(model), method)
}

// doJSON performs a single request. There are no retries: a failed call is
// reported to the caller as is.
func (c *HTTPClient) doJSON(ctx context.Context, method, endpoint string, body, result any) error {
	key := c.keys.APIKey()
	if key == "" {
		return ErrAPIKeyNotSet
	}

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gemini: marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("gemini: create request: %w", err)
	}

	req.Header.Set("x-goog-api-key", key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gemini: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("gemini: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w with status %d: %s", ErrRequestFailed, resp.StatusCode, errorMessage(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("gemini: unmarshal response: %w", err)
		}
	}

	return nil
}

// errorMessage extracts the API error message, falling back to the raw body.
func errorMessage(body []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		return env.Error.Message
	}
	return strings.TrimSpace(string(body))
}

func toOperation(resp operationResponse) Operation {
	op := Operation{
		Name: resp.Name,
		Done: resp.Done,
	}
	if resp.Error != nil {
		op.Error = resp.Error.Message
	}
	if resp.Response != nil {
		for _, sample := range resp.Response.GenerateVideoResponse.GeneratedSamples {
			if sample.Video.URI != "" {
				op.VideoURI = sample.Video.URI
				break
			}
		}
	}
	return op
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
