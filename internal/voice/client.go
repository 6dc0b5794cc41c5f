package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/call"
	"github.com/spigell/interview-coach/internal/transcript"
	"github.com/spigell/interview-coach/internal/utils"
)

var (
	ErrNotConnected     = errors.New("voice call is not connected")
	ErrAlreadyConnected = errors.New("voice call is already connected")
)

const finalTranscript = "final"

type Options struct {
	URL              string
	PublicKey        string
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	Logger           *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 60 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Client talks to the voice-call service over a websocket and implements call.Client.
type Client struct {
	opts   Options
	logger *zap.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	subsMu sync.Mutex
	subs   map[int]func(call.Event)
	nextID int

	// closing is set once the call was ended by either side, so the
	// following read error is not reported as a call failure.
	closing atomic.Bool
}

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, errors.New("voice url is required")
	}
	opts = opts.withDefaults()
	return &Client{
		opts:   opts,
		logger: opts.Logger,
		subs:   make(map[int]func(call.Event)),
	}, nil
}

type outFrame struct {
	Type        string       `json:"type"`
	AssistantID string       `json:"assistant_id,omitempty"`
	Config      *call.Config `json:"config,omitempty"`
	Muted       *bool        `json:"muted,omitempty"`
}

type inFrame struct {
	Type           string  `mapstructure:"type"`
	Role           string  `mapstructure:"role"`
	TranscriptType string  `mapstructure:"transcriptType"`
	Transcript     string  `mapstructure:"transcript"`
	Level          float64 `mapstructure:"level"`
	Message        string  `mapstructure:"message"`
}

func (c *Client) Start(ctx context.Context, cfg call.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return ErrAlreadyConnected
	}

	header := http.Header{}
	if key := strings.TrimSpace(c.opts.PublicKey); key != "" {
		header.Set("Authorization", "Bearer "+key)
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.opts.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, c.opts.URL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial voice service: %w (status %s)", err, resp.Status)
		}
		return fmt.Errorf("dial voice service: %w", err)
	}

	c.conn = conn
	c.closing.Store(false)

	if err := c.writeJSON(conn, outFrame{Type: "start", AssistantID: cfg.AssistantID, Config: &cfg}); err != nil {
		_ = conn.Close()
		c.conn = nil
		return fmt.Errorf("send start frame: %w", err)
	}

	c.logger.Debug("voice call connected", zap.String("url", c.opts.URL))
	go c.readLoop(conn)
	return nil
}

// Stop asks the service to end the call and closes the connection.
// It never waits for the read loop, so it is safe to call from an event handler.
func (c *Client) Stop(context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	c.closing.Store(true)

	err := c.writeJSON(conn, outFrame{Type: "stop"})

	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "call ended"),
		time.Now().Add(2*time.Second))
	c.writeMu.Unlock()

	if cerr := conn.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("stop voice call: %w", err)
	}
	return nil
}

func (c *Client) SetMuted(muted bool) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}
	if err := c.writeJSON(conn, outFrame{Type: "mute", Muted: &muted}); err != nil {
		return fmt.Errorf("send mute frame: %w", err)
	}
	return nil
}

func (c *Client) Subscribe(fn func(call.Event)) func() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	id := c.nextID
	c.nextID++
	c.subs[id] = fn

	return func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Client) writeJSON(conn *websocket.Conn, frame outFrame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	return conn.WriteJSON(frame)
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_ = conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if c.closing.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.logger.Debug("voice connection closed", zap.Error(err))
				return
			}
			c.dispatch(call.Event{Kind: call.EventError, Err: fmt.Errorf("voice connection: %w", err)})
			return
		}

		ev, ok, err := decodeEvent(msg)
		if err != nil {
			c.logger.Warn("skipping malformed voice frame",
				zap.Error(err),
				zap.String("frame", utils.TruncateForLog(string(msg), 200)),
			)
			continue
		}
		if !ok {
			continue
		}
		if ev.Kind == call.EventCallEnd {
			c.closing.Store(true)
		}
		c.dispatch(ev)
		if ev.Kind == call.EventCallEnd {
			c.release(conn)
			return
		}
	}
}

// release drops a connection the service has already ended. Handlers may have
// stopped the call during dispatch, in which case conn is no longer current.
func (c *Client) release(conn *websocket.Conn) {
	c.mu.Lock()
	current := c.conn == conn
	if current {
		c.conn = nil
	}
	c.mu.Unlock()

	if !current {
		return
	}
	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "call ended"),
		time.Now().Add(2*time.Second))
	c.writeMu.Unlock()
	_ = conn.Close()
	c.logger.Debug("voice call ended by service")
}

func (c *Client) dispatch(ev call.Event) {
	c.subsMu.Lock()
	handlers := make([]func(call.Event), 0, len(c.subs))
	for _, fn := range c.subs {
		handlers = append(handlers, fn)
	}
	c.subsMu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

// decodeEvent converts one inbound frame into a call event. Unknown frame types
// are reported as not ok.
func decodeEvent(raw []byte) (call.Event, bool, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return call.Event{}, false, fmt.Errorf("decode frame: %w", err)
	}

	var frame inFrame
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &frame,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return call.Event{}, false, err
	}
	if err := decoder.Decode(payload); err != nil {
		return call.Event{}, false, fmt.Errorf("decode frame fields: %w", err)
	}

	kind, ok := call.ParseEventKind(frame.Type)
	if !ok {
		return call.Event{}, false, nil
	}

	ev := call.Event{Kind: kind}
	switch kind {
	case call.EventTranscript:
		role, ok := transcript.ParseRole(frame.Role)
		if !ok {
			return call.Event{}, false, fmt.Errorf("unknown transcript role %q", frame.Role)
		}
		ev.Role = role
		ev.Text = frame.Transcript
		ev.Final = strings.EqualFold(frame.TranscriptType, finalTranscript)
	case call.EventSpeechStart, call.EventSpeechEnd:
		role, ok := transcript.ParseRole(frame.Role)
		if !ok {
			return call.Event{}, false, fmt.Errorf("unknown speaker role %q", frame.Role)
		}
		ev.Role = role
	case call.EventVolumeLevel:
		ev.Level = frame.Level
	case call.EventError:
		msg := strings.TrimSpace(frame.Message)
		if msg == "" {
			msg = "voice call error"
		}
		ev.Err = errors.New(msg)
	}
	return ev, true, nil
}
