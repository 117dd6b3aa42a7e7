// Package notify delivers generation outcomes to user-supplied webhook URLs.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single delivery.
const DefaultTimeout = 15 * time.Second

// NotificationError reports a failed delivery. StatusCode is zero when the
// request never got a response.
type NotificationError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *NotificationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("notify: %s answered with status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("notify: post to %s: %v", e.Endpoint, e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

// Dispatcher posts JSON payloads. One attempt per call, no retries.
type Dispatcher struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) {
		d.httpClient = c
	}
}

// WithTimeout sets the per-delivery timeout. Non-positive values are ignored.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(logger *slog.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch posts payload as JSON to endpoint. An empty endpoint is a no-op.
// Any transport error or non-2xx answer is returned as *NotificationError.
// The response body is discarded.
func (d *Dispatcher) Dispatch(ctx context.Context, endpoint string, payload any) error {
	if endpoint == "" {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return &NotificationError{Endpoint: endpoint, Err: fmt.Errorf("marshal payload: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &NotificationError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return &NotificationError{Endpoint: endpoint, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &NotificationError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	d.logger.Debug("notification delivered",
		slog.String("endpoint", endpoint),
		slog.Int("status", resp.StatusCode),
	)

	return nil
}
