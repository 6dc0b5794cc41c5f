package call

import (
	"context"
	"errors"

	"github.com/spigell/interview-coach/internal/transcript"
)

// ActiveLevel is the audio level shown for a speaker between speech-start and speech-end.
// The voice service does not report per-speaker amplitude, so this is a fixed value.
const ActiveLevel = 0.8

var (
	ErrNotActive        = errors.New("call is not active")
	ErrAlreadyStarted   = errors.New("call was already started")
	ErrNotResubmittable = errors.New("transcript cannot be resubmitted in the current state")
	ErrNoQuestions      = errors.New("interview has no questions")
	ErrEmptyTranscript  = errors.New("transcript is empty")
)

type State int

const (
	StateIdle State = iota
	StateActive
	StateEnding
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateEnding:
		return "ending"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

type EventKind int

const (
	EventCallStart EventKind = iota + 1
	EventCallEnd
	EventTranscript
	EventSpeechStart
	EventSpeechEnd
	EventVolumeLevel
	EventError
)

var eventNames = map[EventKind]string{
	EventCallStart:   "call-start",
	EventCallEnd:     "call-end",
	EventTranscript:  "transcript",
	EventSpeechStart: "speech-start",
	EventSpeechEnd:   "speech-end",
	EventVolumeLevel: "volume-level",
	EventError:       "error",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseEventKind maps a wire event name onto an EventKind.
func ParseEventKind(name string) (EventKind, bool) {
	for kind, n := range eventNames {
		if n == name {
			return kind, true
		}
	}
	return 0, false
}

// Event is a tagged call-client event. Only the fields relevant to Kind are set.
type Event struct {
	Kind  EventKind
	Role  transcript.Role
	Text  string
	Final bool
	Level float64
	Err   error
}

// Client is the real-time voice call client consumed by the Controller.
type Client interface {
	Start(ctx context.Context, cfg Config) error
	Stop(ctx context.Context) error
	SetMuted(muted bool) error
	// Subscribe registers fn for every event until the returned func is called.
	Subscribe(fn func(Event)) (unsubscribe func())
}

// HandoffFunc receives the final transcript text once the call has ended.
type HandoffFunc func(ctx context.Context, transcript string) error

// Snapshot is a read-only view of the call state.
type Snapshot struct {
	State            State
	Muted            bool
	AIAudioLevel     float64
	UserAudioLevel   float64
	AssistantCaption string
	UserCaption      string
	Messages         int
	Submitted        bool
	Err              error
}

func (s Snapshot) Active() bool {
	return s.State == StateActive
}
