package call

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/notify"
	"github.com/spigell/interview-coach/internal/transcript"
	"github.com/spigell/interview-coach/internal/utils"
)

const (
	maxLogLength           = 120
	emptyTranscriptMessage = "Transcript is empty"
)

type Options struct {
	Client   Client
	Handoff  HandoffFunc
	Settings Settings
	Notifier notify.Notifier
	Logger   *zap.Logger
	// OnChange is called outside the lock after every state change.
	OnChange func(Snapshot)
}

// Controller drives one interview call. All events and commands go through a single
// mutex-guarded transition, so the handoff runs at most once per ended call.
type Controller struct {
	// ctx is used for handoffs triggered by remote call-end events.
	ctx context.Context

	client   Client
	handoff  HandoffFunc
	settings Settings
	notifier notify.Notifier
	logger   *zap.Logger
	onChange func(Snapshot)

	transcript  *transcript.Accumulator
	unsubscribe func()

	mu         sync.Mutex
	state      State
	muted      bool
	aiLevel    float64
	userLevel  float64
	submitted  bool
	submitting bool
	lastErr    error
}

func New(ctx context.Context, opts Options) (*Controller, error) {
	if opts.Client == nil {
		return nil, errors.New("call client is required")
	}
	if opts.Handoff == nil {
		return nil, errors.New("handoff is required")
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	c := &Controller{
		ctx:        ctx,
		client:     opts.Client,
		handoff:    opts.Handoff,
		settings:   opts.Settings,
		notifier:   opts.Notifier,
		logger:     opts.Logger,
		onChange:   opts.OnChange,
		transcript: transcript.New(),
	}
	c.unsubscribe = opts.Client.Subscribe(c.Handle)

	return c, nil
}

// Start configures the call with the interview questions and starts it.
func (c *Controller) Start(ctx context.Context, questions []string) error {
	cfg, err := BuildConfig(c.settings, questions)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.mu.Unlock()

	c.logger.Info("starting call",
		zap.String("model_provider", cfg.Model.Provider),
		zap.String("model", cfg.Model.Model),
		zap.String("voice_id", cfg.Voice.VoiceID),
		zap.Int("questions", len(questions)),
	)

	if err := c.client.Start(ctx, cfg); err != nil {
		c.mu.Lock()
		c.state = StateEnded
		c.lastErr = err
		snap := c.snapshotLocked()
		c.mu.Unlock()

		c.notifier.Notify(notify.LevelError, fmt.Sprintf("Call error: %s", err))
		c.emit(snap)
		return fmt.Errorf("start call: %w", err)
	}

	c.mu.Lock()
	changed := c.activateLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if changed {
		c.emit(snap)
	}
	return nil
}

// Handle is the single transition function for call-client events.
func (c *Controller) Handle(ev Event) {
	c.handle(ev, true)
}

// handle applies ev. remote is false when the user ended the call and the
// client was already stopped.
func (c *Controller) handle(ev Event, remote bool) {
	c.mu.Lock()

	var (
		changed bool
		handOff bool
		stop    bool
		release bool
	)

	switch ev.Kind {
	case EventCallStart:
		changed = c.activateLocked()
	case EventCallEnd:
		if c.state == StateActive {
			c.state = StateEnding
			c.submitting = true
			c.aiLevel, c.userLevel = 0, 0
			changed, handOff = true, true
			release = remote
		}
	case EventTranscript:
		if c.state == StateActive {
			c.transcript.Add(ev.Role, ev.Text, ev.Final)
			changed = true
		}
	case EventSpeechStart, EventSpeechEnd:
		if c.state == StateActive {
			level := 0.0
			if ev.Kind == EventSpeechStart {
				level = ActiveLevel
			}
			changed = c.setLevelLocked(ev.Role, level)
		}
	case EventVolumeLevel:
		if c.state == StateActive {
			changed = c.setLevelLocked(transcript.RoleUser, clamp(ev.Level))
		}
	case EventError:
		if c.state == StateIdle || c.state == StateActive {
			c.state = StateEnded
			c.lastErr = ev.Err
			c.aiLevel, c.userLevel = 0, 0
			changed, stop = true, true
		}
	}

	state := c.state
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Debug("call event",
		zap.String("event", ev.Kind.String()),
		zap.String("role", string(ev.Role)),
		zap.String("text", utils.TruncateForLog(ev.Text, maxLogLength)),
		zap.String("state", state.String()),
		zap.Bool("changed", changed),
	)

	if stop {
		c.logger.Warn("call failed", zap.Error(ev.Err))
		c.notifier.Notify(notify.LevelError, fmt.Sprintf("Call error: %s", errorMessage(ev.Err)))
		if err := c.client.Stop(c.ctx); err != nil {
			c.logger.Debug("stopping failed call", zap.Error(err))
		}
	}

	if release {
		if err := c.client.Stop(c.ctx); err != nil {
			c.logger.Debug("stopping ended call", zap.Error(err))
		}
	}

	if changed {
		c.emit(snap)
	}

	if handOff {
		_ = c.runHandoff(c.ctx)
	}
}

// EndCall is the user-initiated end of the call. It shares the call-end path.
func (c *Controller) EndCall(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return ErrNotActive
	}
	c.mu.Unlock()

	if err := c.client.Stop(ctx); err != nil {
		c.logger.Warn("stopping call", zap.Error(err))
	}

	c.handle(Event{Kind: EventCallEnd}, false)
	return nil
}

func (c *Controller) ToggleMute() error {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return ErrNotActive
	}
	next := !c.muted
	c.mu.Unlock()

	if err := c.client.SetMuted(next); err != nil {
		return fmt.Errorf("set muted: %w", err)
	}

	c.mu.Lock()
	c.muted = next
	if next {
		c.userLevel = 0
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.emit(snap)
	return nil
}

// Resubmit retries the handoff of an ended call whose transcript was not submitted.
func (c *Controller) Resubmit(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateEnded || c.submitted || c.submitting {
		c.mu.Unlock()
		return ErrNotResubmittable
	}
	if c.transcript.Len() == 0 {
		c.mu.Unlock()
		c.notifier.Notify(notify.LevelError, emptyTranscriptMessage)
		return ErrEmptyTranscript
	}
	c.state = StateEnding
	c.submitting = true
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.emit(snap)
	return c.runHandoff(ctx)
}

func (c *Controller) runHandoff(ctx context.Context) error {
	text := c.transcript.Text()

	c.logger.Info("submitting transcript",
		zap.Int("messages", c.transcript.Len()),
		zap.String("transcript_preview", utils.TruncateForLog(text, maxLogLength)),
	)

	err := c.handoff(ctx, text)

	c.mu.Lock()
	c.state = StateEnded
	c.submitting = false
	if err != nil {
		c.lastErr = err
	} else {
		c.submitted = true
		c.lastErr = nil
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("transcript handoff failed", zap.Error(err))
		if snap.Messages > 0 {
			c.notifier.Notify(notify.LevelWarn, "The interview transcript was kept and can be resubmitted")
		}
	}

	c.emit(snap)
	return err
}

// Close removes the event subscription. It does not stop an active call.
func (c *Controller) Close() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) Transcript() *transcript.Accumulator {
	return c.transcript
}

func (c *Controller) activateLocked() bool {
	if c.state != StateIdle {
		return false
	}
	c.state = StateActive
	c.transcript.Reset()
	return true
}

func (c *Controller) setLevelLocked(role transcript.Role, level float64) bool {
	switch role {
	case transcript.RoleAssistant:
		c.aiLevel = level
		return true
	case transcript.RoleUser:
		if c.muted {
			return false
		}
		c.userLevel = level
		return true
	default:
		return false
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:            c.state,
		Muted:            c.muted,
		AIAudioLevel:     c.aiLevel,
		UserAudioLevel:   c.userLevel,
		AssistantCaption: c.transcript.Caption(transcript.RoleAssistant),
		UserCaption:      c.transcript.Caption(transcript.RoleUser),
		Messages:         c.transcript.Len(),
		Submitted:        c.submitted,
		Err:              c.lastErr,
	}
}

func (c *Controller) emit(s Snapshot) {
	if c.onChange != nil {
		c.onChange(s)
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func errorMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
