package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/promptcast/internal/gateway"
	"github.com/maauso/promptcast/internal/id"
)

// CredentialGate is the part of credential.Gate the orchestrator uses.
type CredentialGate interface {
	Selected() bool
	PromptSelection(ctx context.Context)
	Invalidate()
}

// Notifier delivers an outcome to a webhook endpoint.
type Notifier interface {
	Dispatch(ctx context.Context, endpoint string, payload any) error
}

// Orchestrator owns the engine state and runs at most one request at a time.
type Orchestrator struct {
	mu         sync.RWMutex
	state      Snapshot
	generation uint64

	gateway   gateway.Gateway
	poller    *Poller
	gate      CredentialGate
	notifier  Notifier
	validator *validator.Validate
	logger    *slog.Logger

	subsMu sync.Mutex
	subs   map[chan Snapshot]struct{}

	// baseCtx scopes background work started by Start.
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewOrchestrator creates an orchestrator in PhaseIdle. notifier may be nil,
// in which case outcomes are never dispatched.
func NewOrchestrator(gw gateway.Gateway, poller *Poller, gate CredentialGate, notifier Notifier, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if poller == nil {
		poller = NewPoller(gw, logger)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		state:     Snapshot{Phase: PhaseIdle, UpdatedAt: time.Now()},
		gateway:   gw,
		poller:    poller,
		gate:      gate,
		notifier:  notifier,
		validator: NewValidator(),
		logger:    logger,
		subs:      make(map[chan Snapshot]struct{}),
		baseCtx:   ctx,
		cancel:    cancel,
	}
}

// Submit admits req and generates it, blocking until the outcome.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (*Outcome, error) {
	r, err := o.admit(ctx, req)
	if err != nil {
		return nil, err
	}
	return o.generate(ctx, r)
}

// Start admits req synchronously and generates it in the background.
// Admission errors are returned; generation errors only reach the state.
func (o *Orchestrator) Start(ctx context.Context, req Request) error {
	r, err := o.admit(ctx, req)
	if err != nil {
		return err
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		_, _ = o.generate(o.baseCtx, r)
	}()

	return nil
}

// SelectCredential runs the credential selection flow.
func (o *Orchestrator) SelectCredential(ctx context.Context) bool {
	o.gate.PromptSelection(ctx)

	o.mu.Lock()
	o.state.UpdatedAt = time.Now()
	o.publishLocked()
	o.mu.Unlock()

	return o.gate.Selected()
}

// Snapshot returns a copy of the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.snapshotLocked()
}

// Subscribe returns a channel that receives the latest snapshot after every
// state change. Slow readers only see the most recent one. The returned
// function unsubscribes and closes the channel.
func (o *Orchestrator) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	o.subsMu.Lock()
	o.subs[ch] = struct{}{}
	o.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.subsMu.Lock()
			delete(o.subs, ch)
			o.subsMu.Unlock()
			close(ch)
		})
	}
}

// Wait blocks until background generations and notifications finish.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Close cancels background generations and waits for them.
func (o *Orchestrator) Close() {
	o.cancel()
	o.wg.Wait()
}

// run is an admitted request bound to its generation number.
type run struct {
	id         string
	generation uint64
	req        Request
}

func (o *Orchestrator) admit(ctx context.Context, req Request) (run, error) {
	req = req.normalize()

	o.mu.Lock()

	if o.state.Phase == PhaseGenerating {
		o.mu.Unlock()
		return run{}, ErrBusy
	}

	if req.PromptText == "" && req.SourceImage == nil {
		o.rejectLocked(MsgEmptyRequest)
		o.mu.Unlock()
		return run{}, &RejectedError{Kind: ErrValidation, Message: MsgEmptyRequest}
	}

	if err := o.validator.Struct(req); err != nil {
		msg := validationMessage(err)
		o.rejectLocked(msg)
		o.mu.Unlock()
		return run{}, &RejectedError{Kind: ErrValidation, Message: msg}
	}

	if req.MediaKind.IsVideo() && !o.gate.Selected() {
		o.rejectLocked(MsgCredentialRequired)
		o.mu.Unlock()
		o.gate.PromptSelection(ctx)
		return run{}, &RejectedError{Kind: ErrCredentialRequired, Message: MsgCredentialRequired}
	}

	if err := o.state.transitionTo(PhaseGenerating); err != nil {
		o.mu.Unlock()
		return run{}, err
	}

	o.generation++
	r := run{
		id:         id.Generate("gen"),
		generation: o.generation,
		req:        req,
	}

	o.state.Outcome = nil
	o.state.Error = ""
	o.state.Warning = ""
	o.state.Progress = MsgImageStarting
	if req.MediaKind.IsVideo() {
		o.state.Progress = MsgVideoStarting
	}
	o.publishLocked()
	o.mu.Unlock()

	o.logger.Info("generation started",
		slog.String("generation_id", r.id),
		slog.String("media_type", string(req.MediaKind)),
		slog.String("style", string(req.Style)),
		slog.Bool("has_image", req.SourceImage != nil),
		slog.Bool("has_webhook", req.NotificationEndpoint != ""),
	)

	return r, nil
}

func (o *Orchestrator) generate(ctx context.Context, r run) (*Outcome, error) {
	started := time.Now()
	req := r.req

	var (
		kind     OutcomeKind
		location string
		err      error
	)
	if req.MediaKind == MediaImage {
		kind = OutcomeImage
		location, err = o.gateway.SynthesizeImage(ctx, req.EffectivePrompt())
	} else {
		kind = OutcomeVideo
		location, err = o.poller.Run(ctx, req.EffectivePrompt(), req.SourceImage, func(msg string) {
			o.setProgress(r.generation, msg)
		})
	}
	if err != nil {
		return nil, o.fail(r, err)
	}

	o.setProgress(r.generation, MsgWritingCaption)

	caption, err := o.gateway.SynthesizeCaption(ctx, req.PromptText)
	if err != nil {
		return nil, o.fail(r, err)
	}

	outcome := &Outcome{
		Kind:        kind,
		Description: req.Description(),
		Caption:     caption,
		Location:    location,
	}

	o.mu.Lock()
	if o.generation == r.generation {
		if err := o.state.transitionTo(PhaseSucceeded); err != nil {
			o.mu.Unlock()
			return nil, err
		}
		o.state.Outcome = outcome
		o.state.Progress = ""
		o.publishLocked()
	}
	o.mu.Unlock()

	o.logger.Info("generation succeeded",
		slog.String("generation_id", r.id),
		slog.String("type", string(kind)),
		slog.Duration("elapsed", time.Since(started)),
	)

	if o.notifier != nil && req.NotificationEndpoint != "" {
		o.wg.Add(1)
		go o.dispatch(context.WithoutCancel(ctx), r, *outcome)
	}

	result := *outcome
	return &result, nil
}

// fail moves the engine to PhaseFailed with the normalized message of err.
func (o *Orchestrator) fail(r run, err error) error {
	message, invalidKey := normalizeFailure(err.Error())
	if invalidKey {
		o.gate.Invalidate()
	}

	o.logger.Error("generation failed",
		slog.String("generation_id", r.id),
		slog.String("error", err.Error()),
	)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.generation != r.generation {
		return err
	}
	if terr := o.state.transitionTo(PhaseFailed); terr != nil {
		return terr
	}
	o.state.Error = message
	o.state.Progress = ""
	o.publishLocked()

	return err
}

func (o *Orchestrator) dispatch(ctx context.Context, r run, outcome Outcome) {
	defer o.wg.Done()

	err := o.notifier.Dispatch(ctx, r.req.NotificationEndpoint, outcome)
	if err == nil {
		return
	}

	o.logger.Warn("failed to send webhook",
		slog.String("generation_id", r.id),
		slog.String("error", err.Error()),
	)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.generation == r.generation && o.state.Phase == PhaseSucceeded {
		o.state.Warning = MsgWebhookFailed
		o.state.UpdatedAt = time.Now()
		o.publishLocked()
	}
}

func (o *Orchestrator) setProgress(generation uint64, msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.generation != generation || o.state.Phase != PhaseGenerating {
		return
	}
	o.state.Progress = msg
	o.state.UpdatedAt = time.Now()
	o.publishLocked()
}

// rejectLocked surfaces an admission message without touching phase or outcome.
func (o *Orchestrator) rejectLocked(msg string) {
	o.state.Error = msg
	o.state.UpdatedAt = time.Now()
	o.publishLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	s := o.state.clone()
	s.CredentialSelected = o.gate.Selected()
	return s
}

// publishLocked sends the current snapshot to every subscriber, replacing
// any snapshot the subscriber has not read yet.
func (o *Orchestrator) publishLocked() {
	s := o.snapshotLocked()

	o.subsMu.Lock()
	defer o.subsMu.Unlock()
	for ch := range o.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}
