package transcript

import (
	"strings"
	"sync"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ParseRole maps a wire role onto a known Role. Unknown roles are reported as not ok.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, true
	case RoleAssistant:
		return RoleAssistant, true
	case RoleSystem:
		return RoleSystem, true
	default:
		return "", false
	}
}

type Message struct {
	Role      Role   `json:"role"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	IsFinal   bool   `json:"is_final"`
}

// Accumulator keeps the ordered log of finalized utterances of one interview session
// together with the in-progress caption of every speaker.
type Accumulator struct {
	mu       sync.RWMutex
	messages []Message
	captions map[Role]string
	last     int64
	now      func() time.Time
}

func New() *Accumulator {
	return &Accumulator{
		captions: make(map[Role]string),
		now:      time.Now,
	}
}

// Add records an utterance. Final utterances are appended and clear the caption of
// their speaker; interim ones only replace that caption.
func (a *Accumulator) Add(role Role, text string, final bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !final {
		a.captions[role] = text
		return
	}

	delete(a.captions, role)

	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	a.messages = append(a.messages, Message{
		Role:      role,
		Text:      text,
		Timestamp: a.nextTimestamp(),
		IsFinal:   true,
	})
}

// timestamps never go backwards even if the wall clock does.
func (a *Accumulator) nextTimestamp() int64 {
	ts := a.now().UnixMilli()
	if ts <= a.last {
		ts = a.last + 1
	}
	a.last = ts
	return ts
}

func (a *Accumulator) Caption(role Role) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.captions[role]
}

func (a *Accumulator) Messages() []Message {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]Message, len(a.messages))
	copy(out, a.messages)
	return out
}

func (a *Accumulator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.messages)
}

// Text renders the transcript as "role: text" lines in arrival order.
func (a *Accumulator) Text() string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	lines := make([]string, 0, len(a.messages))
	for _, m := range a.messages {
		lines = append(lines, string(m.Role)+": "+m.Text)
	}
	return strings.Join(lines, "\n")
}

func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.messages = nil
	a.captions = make(map[Role]string)
}
