package notify

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notifier surfaces short user-visible messages (toasts).
type Notifier interface {
	Notify(level Level, message string)
}

// Console prints notifications to a terminal, colored by level.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = os.Stderr
	}
	return &Console{out: out}
}

func (c *Console) Notify(level Level, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var paint *color.Color
	switch level {
	case LevelSuccess:
		paint = color.New(color.FgGreen)
	case LevelWarn:
		paint = color.New(color.FgYellow)
	case LevelError:
		paint = color.New(color.FgRed, color.Bold)
	default:
		paint = color.New(color.FgCyan)
	}

	paint.Fprintf(c.out, "[%s] ", level)
	fmt.Fprintln(c.out, message)
}

type nop struct{}

func (nop) Notify(Level, string) {}

// Nop discards every notification.
func Nop() Notifier { return nop{} }
