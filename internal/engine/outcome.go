package engine

// OutcomeKind is the kind of media in an Outcome.
type OutcomeKind string

const (
	// OutcomeImage is a still image.
	OutcomeImage OutcomeKind = "image"
	// OutcomeVideo is a video clip.
	OutcomeVideo OutcomeKind = "video"
)

// Outcome is the result of one successful request. It is the webhook payload.
type Outcome struct {
	Kind        OutcomeKind `json:"type"`
	Description string      `json:"description"`
	Caption     string      `json:"caption"`
	// Location is a data URL for images and a fetchable URL for videos.
	Location string `json:"url"`
}
