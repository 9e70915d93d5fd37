package logging

import (
	"fmt"
	"io"
	"sync"

	"github.com/aretw0/patchbay/pkg/domain"
	"github.com/muesli/termenv"
)

// ConsoleSink prints console entries to a terminal, coloured by level.
// It implements ports.LogSink.
type ConsoleSink struct {
	mu  sync.Mutex
	out *termenv.Output
}

// NewConsoleSink writes to w using the colour profile detected for it.
func NewConsoleSink(w io.Writer, opts ...termenv.OutputOption) *ConsoleSink {
	return &ConsoleSink{out: termenv.NewOutput(w, opts...)}
}

func (c *ConsoleSink) Log(e domain.LogEntry) {
	var color string
	switch e.Level {
	case domain.LogError:
		color = "#f87171"
	case domain.LogSuccess:
		color = "#4ade80"
	default:
		color = "#94a3b8"
	}

	stamp := c.out.String(e.Time.Format("15:04:05")).Faint()
	msg := c.out.String(e.Message).Foreground(c.out.Color(color))
	if e.Level == domain.LogError {
		msg = msg.Bold()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e.NodeID != "" {
		fmt.Fprintf(c.out, "%s [%s] %s\n", stamp, e.NodeID, msg)
		return
	}
	fmt.Fprintf(c.out, "%s %s\n", stamp, msg)
}
