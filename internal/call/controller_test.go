package call

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/spigell/interview-coach/internal/notify"
	"github.com/spigell/interview-coach/internal/transcript"
)

type stubClient struct {
	mu        sync.Mutex
	handlers  map[int]func(Event)
	next      int
	started   []Config
	startErr  error
	stops     int
	muted     []bool
	muteErr   error
	autoStart bool
}

func newStubClient() *stubClient {
	return &stubClient{handlers: make(map[int]func(Event))}
}

func (s *stubClient) Start(_ context.Context, cfg Config) error {
	s.mu.Lock()
	s.started = append(s.started, cfg)
	err := s.startErr
	auto := s.autoStart
	s.mu.Unlock()
	if err == nil && auto {
		s.emit(Event{Kind: EventCallStart})
	}
	return err
}

func (s *stubClient) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return nil
}

func (s *stubClient) SetMuted(muted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.muteErr != nil {
		return s.muteErr
	}
	s.muted = append(s.muted, muted)
	return nil
}

func (s *stubClient) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.handlers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.handlers, id)
	}
}

func (s *stubClient) emit(ev Event) {
	s.mu.Lock()
	handlers := make([]func(Event), 0, len(s.handlers))
	for _, h := range s.handlers {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

type stubHandoff struct {
	mu    sync.Mutex
	calls []string
	errs  []error
}

func (h *stubHandoff) fn(_ context.Context, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, text)
	if len(h.errs) > 0 {
		err := h.errs[0]
		h.errs = h.errs[1:]
		return err
	}
	return nil
}

func (h *stubHandoff) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(level notify.Level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, level.String()+": "+message)
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

func newController(t *testing.T, client *stubClient, handoff *stubHandoff, notifier notify.Notifier) *Controller {
	t.Helper()
	ctrl, err := New(context.Background(), Options{
		Client:   client,
		Handoff:  handoff.fn,
		Notifier: notifier,
	})
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	t.Cleanup(ctrl.Close)
	return ctrl
}

func startedController(t *testing.T) (*Controller, *stubClient, *stubHandoff) {
	t.Helper()
	client := newStubClient()
	handoff := &stubHandoff{}
	ctrl := newController(t, client, handoff, nil)
	if err := ctrl.Start(context.Background(), []string{"Tell me about yourself"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := ctrl.Snapshot().State; got != StateActive {
		t.Fatalf("expected active state, got %s", got)
	}
	return ctrl, client, handoff
}

func TestNewRequiresClientAndHandoff(t *testing.T) {
	if _, err := New(context.Background(), Options{Handoff: (&stubHandoff{}).fn}); err == nil {
		t.Fatalf("expected error without client")
	}
	if _, err := New(context.Background(), Options{Client: newStubClient()}); err == nil {
		t.Fatalf("expected error without handoff")
	}
}

func TestStartSendsConfig(t *testing.T) {
	ctrl, client, _ := startedController(t)

	if len(client.started) != 1 {
		t.Fatalf("expected one start call, got %d", len(client.started))
	}
	cfg := client.started[0]
	if cfg.Model.Model != defaultModel || cfg.Voice.VoiceID != defaultVoiceID {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	if err := ctrl.Start(context.Background(), []string{"again"}); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestStartActivatesOnCallStartEventOnce(t *testing.T) {
	client := newStubClient()
	client.autoStart = true
	handoff := &stubHandoff{}
	var snaps []Snapshot
	ctrl, err := New(context.Background(), Options{
		Client:   client,
		Handoff:  handoff.fn,
		OnChange: func(s Snapshot) { snaps = append(snaps, s) },
	})
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	defer ctrl.Close()

	if err := ctrl.Start(context.Background(), []string{"q"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if ctrl.Snapshot().State != StateActive {
		t.Fatalf("expected active state")
	}
	if len(snaps) != 1 {
		t.Fatalf("expected a single activation change, got %d", len(snaps))
	}
}

func TestStartFailureEndsWithoutHandoff(t *testing.T) {
	client := newStubClient()
	client.startErr = errors.New("microphone denied")
	handoff := &stubHandoff{}
	notifier := &recordingNotifier{}
	ctrl := newController(t, client, handoff, notifier)

	err := ctrl.Start(context.Background(), []string{"q"})
	if err == nil || !strings.Contains(err.Error(), "microphone denied") {
		t.Fatalf("expected start error, got %v", err)
	}
	snap := ctrl.Snapshot()
	if snap.State != StateEnded || snap.Err == nil {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if handoff.count() != 0 {
		t.Fatalf("expected no handoff, got %d", handoff.count())
	}
	if msgs := notifier.all(); len(msgs) != 1 || !strings.HasPrefix(msgs[0], "error: Call error:") {
		t.Fatalf("unexpected notifications: %v", msgs)
	}
}

func TestStartRejectsEmptyQuestions(t *testing.T) {
	client := newStubClient()
	ctrl := newController(t, client, &stubHandoff{}, nil)

	if err := ctrl.Start(context.Background(), []string{" ", ""}); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
	if len(client.started) != 0 {
		t.Fatalf("client must not be started")
	}
	if ctrl.Snapshot().State != StateIdle {
		t.Fatalf("expected idle state")
	}
}

func TestDoubleEndTriggersSingleHandoff(t *testing.T) {
	ctrl, client, handoff := startedController(t)

	client.emit(Event{Kind: EventTranscript, Role: transcript.RoleAssistant, Text: "Hello", Final: true})
	client.emit(Event{Kind: EventTranscript, Role: transcript.RoleUser, Text: "Hi", Final: true})

	if err := ctrl.EndCall(context.Background()); err != nil {
		t.Fatalf("end call: %v", err)
	}
	client.emit(Event{Kind: EventCallEnd})
	client.emit(Event{Kind: EventCallEnd})

	if err := ctrl.EndCall(context.Background()); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}

	if handoff.count() != 1 {
		t.Fatalf("expected exactly one handoff, got %d", handoff.count())
	}
	if handoff.calls[0] != "assistant: Hello\nuser: Hi" {
		t.Fatalf("unexpected transcript %q", handoff.calls[0])
	}
	if client.stops != 1 {
		t.Fatalf("expected one stop, got %d", client.stops)
	}

	snap := ctrl.Snapshot()
	if snap.State != StateEnded || !snap.Submitted {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestSpeechLevels(t *testing.T) {
	ctrl, client, _ := startedController(t)

	var levels []float64
	record := func() {
		snap := ctrl.Snapshot()
		levels = append(levels, snap.AIAudioLevel)
		if snap.UserAudioLevel != 0 {
			t.Fatalf("user level changed: %v", snap.UserAudioLevel)
		}
	}

	record()
	client.emit(Event{Kind: EventSpeechStart, Role: transcript.RoleAssistant})
	record()
	client.emit(Event{Kind: EventSpeechEnd, Role: transcript.RoleAssistant})
	record()

	want := []float64{0, ActiveLevel, 0}
	for i := range want {
		if levels[i] != want[i] {
			t.Fatalf("levels = %v, want %v", levels, want)
		}
	}
}

func TestVolumeLevelClampedAndSuppressedWhenMuted(t *testing.T) {
	ctrl, client, _ := startedController(t)

	client.emit(Event{Kind: EventVolumeLevel, Level: 1.7})
	if got := ctrl.Snapshot().UserAudioLevel; got != 1 {
		t.Fatalf("expected clamped level 1, got %v", got)
	}

	if err := ctrl.ToggleMute(); err != nil {
		t.Fatalf("toggle mute: %v", err)
	}
	snap := ctrl.Snapshot()
	if !snap.Muted || snap.UserAudioLevel != 0 {
		t.Fatalf("unexpected snapshot after mute: %+v", snap)
	}

	client.emit(Event{Kind: EventVolumeLevel, Level: 0.5})
	client.emit(Event{Kind: EventSpeechStart, Role: transcript.RoleUser})
	if got := ctrl.Snapshot().UserAudioLevel; got != 0 {
		t.Fatalf("muted user level must stay 0, got %v", got)
	}

	if err := ctrl.ToggleMute(); err != nil {
		t.Fatalf("toggle unmute: %v", err)
	}
	if len(client.muted) != 2 || !client.muted[0] || client.muted[1] {
		t.Fatalf("unexpected mute calls: %v", client.muted)
	}
}

func TestToggleMuteRejectedByClient(t *testing.T) {
	ctrl, client, _ := startedController(t)
	client.muteErr = errors.New("no track")

	if err := ctrl.ToggleMute(); err == nil {
		t.Fatalf("expected mute error")
	}
	if ctrl.Snapshot().Muted {
		t.Fatalf("mute state must not change when the client rejects it")
	}
}

func TestToggleMuteRequiresActiveCall(t *testing.T) {
	ctrl := newController(t, newStubClient(), &stubHandoff{}, nil)
	if err := ctrl.ToggleMute(); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
}

func TestTranscriptCaptions(t *testing.T) {
	ctrl, client, _ := startedController(t)

	client.emit(Event{Kind: EventTranscript, Role: transcript.RoleUser, Text: "I worked", Final: false})
	snap := ctrl.Snapshot()
	if snap.UserCaption != "I worked" || snap.Messages != 0 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	client.emit(Event{Kind: EventTranscript, Role: transcript.RoleUser, Text: "I worked at Acme", Final: true})
	snap = ctrl.Snapshot()
	if snap.UserCaption != "" || snap.Messages != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestEventsIgnoredBeforeStart(t *testing.T) {
	client := newStubClient()
	handoff := &stubHandoff{}
	ctrl := newController(t, client, handoff, nil)

	client.emit(Event{Kind: EventTranscript, Role: transcript.RoleUser, Text: "early", Final: true})
	client.emit(Event{Kind: EventCallEnd})

	if ctrl.Transcript().Len() != 0 {
		t.Fatalf("expected empty transcript")
	}
	if handoff.count() != 0 {
		t.Fatalf("expected no handoff")
	}
}

func TestErrorEndsCallWithoutHandoff(t *testing.T) {
	client := newStubClient()
	handoff := &stubHandoff{}
	notifier := &recordingNotifier{}
	ctrl := newController(t, client, handoff, notifier)
	if err := ctrl.Start(context.Background(), []string{"q"}); err != nil {
		t.Fatalf("start: %v", err)
	}

	client.emit(Event{Kind: EventTranscript, Role: transcript.RoleUser, Text: "answer", Final: true})
	client.emit(Event{Kind: EventError, Err: errors.New("connection lost")})
	client.emit(Event{Kind: EventCallEnd})

	if handoff.count() != 0 {
		t.Fatalf("error must not trigger a handoff, got %d", handoff.count())
	}
	snap := ctrl.Snapshot()
	if snap.State != StateEnded || snap.Submitted {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if client.stops != 1 {
		t.Fatalf("expected best-effort stop, got %d", client.stops)
	}
	if msgs := notifier.all(); len(msgs) != 1 || msgs[0] != "error: Call error: connection lost" {
		t.Fatalf("unexpected notifications: %v", msgs)
	}

	if err := ctrl.Resubmit(context.Background()); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if handoff.count() != 1 || handoff.calls[0] != "user: answer" {
		t.Fatalf("unexpected handoff calls: %v", handoff.calls)
	}
}

func TestHandoffFailureKeepsTranscriptForResubmit(t *testing.T) {
	client := newStubClient()
	handoff := &stubHandoff{errs: []error{errors.New("bad status: 502")}}
	notifier := &recordingNotifier{}
	ctrl := newController(t, client, handoff, notifier)
	if err := ctrl.Start(context.Background(), []string{"q"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	client.emit(Event{Kind: EventTranscript, Role: transcript.RoleUser, Text: "answer", Final: true})
	client.emit(Event{Kind: EventCallEnd})

	snap := ctrl.Snapshot()
	if snap.State != StateEnded || snap.Submitted || snap.Err == nil {
		t.Fatalf("unexpected snapshot after failed handoff: %+v", snap)
	}
	if msgs := notifier.all(); len(msgs) != 1 || !strings.HasPrefix(msgs[0], "warn:") {
		t.Fatalf("unexpected notifications: %v", msgs)
	}

	if err := ctrl.Resubmit(context.Background()); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	snap = ctrl.Snapshot()
	if !snap.Submitted || snap.Err != nil {
		t.Fatalf("unexpected snapshot after resubmit: %+v", snap)
	}
	if err := ctrl.Resubmit(context.Background()); !errors.Is(err, ErrNotResubmittable) {
		t.Fatalf("expected ErrNotResubmittable, got %v", err)
	}
	if handoff.count() != 2 {
		t.Fatalf("expected two handoffs, got %d", handoff.count())
	}
	if handoff.calls[0] != handoff.calls[1] {
		t.Fatalf("resubmitted transcript differs: %q vs %q", handoff.calls[0], handoff.calls[1])
	}
}

func TestRemoteEndStopsClient(t *testing.T) {
	ctrl, client, handoff := startedController(t)

	client.emit(Event{Kind: EventTranscript, Role: transcript.RoleUser, Text: "Thanks, bye", Final: true})
	client.emit(Event{Kind: EventCallEnd})
	client.emit(Event{Kind: EventCallEnd})

	if client.stops != 1 {
		t.Fatalf("expected the client to be stopped once, got %d", client.stops)
	}
	if handoff.count() != 1 {
		t.Fatalf("expected exactly one handoff, got %d", handoff.count())
	}
	if err := ctrl.ToggleMute(); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive after remote end, got %v", err)
	}
	if len(client.muted) != 0 {
		t.Fatalf("mute must not reach an ended call: %v", client.muted)
	}
}

func TestEmptyTranscriptHandoffFailure(t *testing.T) {
	client := newStubClient()
	handoff := &stubHandoff{errs: []error{errors.New("validation failed")}}
	notifier := &recordingNotifier{}
	ctrl := newController(t, client, handoff, notifier)
	if err := ctrl.Start(context.Background(), []string{"q"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	client.emit(Event{Kind: EventCallEnd})

	if handoff.count() != 1 || handoff.calls[0] != "" {
		t.Fatalf("unexpected handoff calls: %q", handoff.calls)
	}
	if msgs := notifier.all(); len(msgs) != 0 {
		t.Fatalf("empty transcript must not be offered for resubmission: %v", msgs)
	}

	if err := ctrl.Resubmit(context.Background()); !errors.Is(err, ErrEmptyTranscript) {
		t.Fatalf("expected ErrEmptyTranscript, got %v", err)
	}
	if msgs := notifier.all(); len(msgs) != 1 || msgs[0] != "error: Transcript is empty" {
		t.Fatalf("unexpected notifications: %v", msgs)
	}
	if handoff.count() != 1 {
		t.Fatalf("resubmit of an empty transcript must not call the handoff, got %d calls", handoff.count())
	}
	if snap := ctrl.Snapshot(); snap.State != StateEnded || snap.Submitted {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestResubmitRejectedWhileActive(t *testing.T) {
	ctrl, _, _ := startedController(t)
	if err := ctrl.Resubmit(context.Background()); !errors.Is(err, ErrNotResubmittable) {
		t.Fatalf("expected ErrNotResubmittable, got %v", err)
	}
}

func TestCloseUnsubscribes(t *testing.T) {
	ctrl, client, handoff := startedController(t)
	ctrl.Close()

	client.emit(Event{Kind: EventCallEnd})
	if handoff.count() != 0 {
		t.Fatalf("closed controller must not react to events")
	}
	if ctrl.Snapshot().State != StateActive {
		t.Fatalf("close must not change the state")
	}
}

func TestConcurrentEndSignals(t *testing.T) {
	ctrl, client, handoff := startedController(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			client.emit(Event{Kind: EventCallEnd})
		}()
		go func() {
			defer wg.Done()
			_ = ctrl.EndCall(context.Background())
		}()
	}
	wg.Wait()

	if handoff.count() != 1 {
		t.Fatalf("expected exactly one handoff, got %d", handoff.count())
	}
}
