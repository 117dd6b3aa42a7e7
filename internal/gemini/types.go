// Package gemini provides an HTTP client for the Generative Language API
// image, video and text generation endpoints.
package gemini

// KeySource supplies the API key used on every request. The key is read per
// call so a newly selected credential takes effect without rebuilding the client.
type KeySource interface {
	APIKey() string
}

// StaticKey is a KeySource backed by a fixed key.
type StaticKey string

// APIKey returns the fixed key.
func (k StaticKey) APIKey() string {
	return string(k)
}

// ImageRequest describes a single image synthesis call.
type ImageRequest struct {
	Prompt         string
	NumberOfImages int    // default 1
	AspectRatio    string // default "16:9"
	OutputMimeType string // default "image/png"
}

// Image is one generated image.
type Image struct {
	Data     []byte
	MimeType string
}

// InlineImage is an image passed to the video model as the first frame.
type InlineImage struct {
	Data     []byte
	MimeType string
}

// VideoRequest describes a video synthesis job submission.
type VideoRequest struct {
	Prompt         string
	Image          *InlineImage // optional
	NumberOfVideos int          // default 1
	AspectRatio    string       // default "16:9"
	Resolution     string       // default "1080p"
}

// Operation is the state of a long-running video job.
type Operation struct {
	Name     string
	Done     bool
	VideoURI string // set when Done and the provider returned a sample
	Error    string // set when Done and the job failed
}

// TextRequest describes a single text generation call.
type TextRequest struct {
	SystemInstruction string
	Prompt            string
}

// predictRequest is the body for the :predict and :predictLongRunning endpoints.
type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type predictInstance struct {
	Prompt string      `json:"prompt"`
	Image  *inlineData `json:"image,omitempty"`
}

type inlineData struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type predictParameters struct {
	SampleCount    int    `json:"sampleCount,omitempty"`
	AspectRatio    string `json:"aspectRatio,omitempty"`
	OutputMimeType string `json:"outputMimeType,omitempty"`
	Resolution     string `json:"resolution,omitempty"`
}

// predictResponse is the response from the :predict endpoint.
type predictResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType"`
	} `json:"predictions"`
}

// operationResponse is the long-running operation resource.
type operationResponse struct {
	Name     string         `json:"name"`
	Done     bool           `json:"done"`
	Error    *apiError      `json:"error,omitempty"`
	Response *videoResponse `json:"response,omitempty"`
}

type videoResponse struct {
	GenerateVideoResponse struct {
		GeneratedSamples []struct {
			Video struct {
				URI string `json:"uri"`
			} `json:"video"`
		} `json:"generatedSamples"`
	} `json:"generateVideoResponse"`
}

// generateContentRequest is the body for the :generateContent endpoint.
type generateContentRequest struct {
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
	Contents          []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// apiError is the error object returned by the API.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}
