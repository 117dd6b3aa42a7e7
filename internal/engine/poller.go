package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/maauso/promptcast/internal/gateway"
)

// DefaultPollInterval is the wait between two video status checks.
const DefaultPollInterval = 10 * time.Second

// ProgressMessages are emitted in order, one per poll, wrapping around.
var ProgressMessages = []string{
	"Summoning digital artists...",
	"Mixing colors on a virtual palette...",
	"Rendering the first few frames...",
	"Applying cinematic lighting effects...",
	"This is taking a bit longer than usual, but greatness is worth the wait.",
	"Compositing scenes together...",
	"Adding the final touches of magic...",
	"Almost there! Polishing your masterpiece.",
}

// WaitFunc blocks for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

// Poller submits a video job and polls it until completion.
type Poller struct {
	gateway  gateway.Gateway
	interval time.Duration
	maxPolls int
	wait     WaitFunc
	logger   *slog.Logger
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithPollInterval sets the wait between polls. Non-positive values are ignored.
func WithPollInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithMaxPolls caps the number of status checks. Zero means unlimited.
func WithMaxPolls(n int) PollerOption {
	return func(p *Poller) {
		if n >= 0 {
			p.maxPolls = n
		}
	}
}

// WithWait replaces the wait between polls.
func WithWait(w WaitFunc) PollerOption {
	return func(p *Poller) {
		if w != nil {
			p.wait = w
		}
	}
}

// NewPoller creates a new Poller over gw.
func NewPoller(gw gateway.Gateway, logger *slog.Logger, opts ...PollerOption) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Poller{
		gateway:  gw,
		interval: DefaultPollInterval,
		wait:     sleep,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run submits the job, then until it is done emits the next progress message,
// waits one interval and polls. The completed job's media location is
// returned. onProgress may be nil.
func (p *Poller) Run(ctx context.Context, prompt string, image *gateway.SourceImage, onProgress func(string)) (string, error) {
	op, err := p.gateway.BeginVideoSynthesis(ctx, prompt, image)
	if err != nil {
		return "", err
	}

	for i := 0; !op.Done; i++ {
		if p.maxPolls > 0 && i >= p.maxPolls {
			p.logger.Warn("video job poll limit reached",
				slog.String("operation", op.Name),
				slog.Int("polls", i),
			)
			return "", &gateway.ProviderError{Op: gateway.OpPollVideoOperation, Message: MsgPollLimit}
		}

		if onProgress != nil {
			onProgress(ProgressMessages[i%len(ProgressMessages)])
		}

		if err := p.wait(ctx, p.interval); err != nil {
			return "", err
		}

		op, err = p.gateway.PollVideoOperation(ctx, op)
		if err != nil {
			return "", err
		}

		p.logger.Debug("video job polled",
			slog.String("operation", op.Name),
			slog.Int("poll", i+1),
			slog.Bool("done", op.Done),
		)
	}

	return p.gateway.ResolveVideoMedia(ctx, op)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
