package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/patchbay/pkg/domain"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// Hub fans console entries out to websocket subscribers. It implements
// ports.LogSink and never blocks the caller: slow subscribers drop entries.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan domain.LogEntry]struct{}
	logger      *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subscribers: make(map[chan domain.LogEntry]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a buffered channel. The returned function unsubscribes
// and closes it.
func (h *Hub) Subscribe() (<-chan domain.LogEntry, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan domain.LogEntry, 32)
	h.subscribers[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subscribers, ch)
			close(ch)
		})
	}
}

// Subscribers is the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Log broadcasts e to every subscriber.
func (h *Hub) Log(e domain.LogEntry) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subscribers {
		select {
		case ch <- e:
		default:
			h.logger.Warn("console: client buffer full, dropping entry", "node", e.NodeID)
		}
	}
}

type consoleMessage struct {
	Type  string           `json:"type"`
	Entry *domain.LogEntry `json:"entry,omitempty"`
}

// ServeConsole handles GET /ws. The client first receives the retained
// entries, then every new entry as it is logged.
func (s *Server) ServeConsole(w http.ResponseWriter, r *http.Request) {
	if s.Hub == nil {
		http.Error(w, "console not attached", http.StatusNotFound)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	entries, unsubscribe := s.Hub.Subscribe()
	defer unsubscribe()

	var backlog []domain.LogEntry
	if s.Console != nil {
		backlog, _ = s.Console.Recent(ctx, 0)
	}

	// Reader: only control frames are expected. A read error ends the session.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(msg consoleMessage) error {
		if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
			return err
		}
		return conn.WriteJSON(msg)
	}

	if err := write(consoleMessage{Type: "subscribed"}); err != nil {
		return
	}
	for i := range backlog {
		if err := write(consoleMessage{Type: "entry", Entry: &backlog[i]}); err != nil {
			return
		}
	}

	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-entries:
			if !ok {
				return
			}
			if err := write(consoleMessage{Type: "entry", Entry: &e}); err != nil {
				s.logger.Debug("console: client gone", "err", err)
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
