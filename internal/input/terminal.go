package input

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/aretw0/patchbay/pkg/ports"
	"golang.org/x/term"
)

// DefaultRelease is how long a terminal key counts as held. Terminals report
// presses only, so a release is synthesized once no repeat arrives in time.
const DefaultRelease = 150 * time.Millisecond

const ctrlC = 0x03

var escapes = map[string]string{
	"\x1b[A": "ArrowUp",
	"\x1b[B": "ArrowDown",
	"\x1b[C": "ArrowRight",
	"\x1b[D": "ArrowLeft",
	"\x1bOA": "ArrowUp",
	"\x1bOB": "ArrowDown",
	"\x1bOC": "ArrowRight",
	"\x1bOD": "ArrowLeft",
}

// TerminalSource reads key presses from a terminal and implements
// ports.KeySource. When the reader is a terminal it is switched to raw mode
// while attached.
type TerminalSource struct {
	r         io.Reader
	fd        int
	raw       bool
	release   time.Duration
	interrupt func()
}

// TerminalOption configures a TerminalSource.
type TerminalOption func(*TerminalSource)

// WithRelease sets how long a press is held without repeats.
func WithRelease(d time.Duration) TerminalOption {
	return func(s *TerminalSource) { s.release = d }
}

// WithInterrupt is called on Ctrl+C, which raw mode no longer turns into SIGINT.
func WithInterrupt(fn func()) TerminalOption {
	return func(s *TerminalSource) { s.interrupt = fn }
}

// NewTerminalSource reads from f, usually os.Stdin.
func NewTerminalSource(f *os.File, opts ...TerminalOption) *TerminalSource {
	s := NewReaderSource(f, opts...)
	s.fd = int(f.Fd())
	s.raw = term.IsTerminal(s.fd)
	return s
}

// NewReaderSource reads key bytes from r without touching terminal modes.
func NewReaderSource(r io.Reader, opts ...TerminalOption) *TerminalSource {
	s := &TerminalSource{r: r, release: DefaultRelease}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Attach starts delivering presses to l until the returned function is called
// or the reader is exhausted.
func (s *TerminalSource) Attach(l ports.KeyListener) (func(), error) {
	var restore func()
	if s.raw {
		state, err := term.MakeRaw(s.fd)
		if err != nil {
			return nil, err
		}
		restore = func() { _ = term.Restore(s.fd, state) }
	}

	done := make(chan struct{})
	rel := newReleaser(l, s.release)
	go func() {
		buf := make([]byte, 64)
		for {
			n, err := s.r.Read(buf)
			select {
			case <-done:
				return
			default:
			}
			for _, key := range Decode(buf[:n]) {
				if key == "\x03" {
					if s.interrupt != nil {
						s.interrupt()
					}
					continue
				}
				rel.press(key)
			}
			if err != nil {
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			rel.stop()
			if restore != nil {
				restore()
			}
		})
	}, nil
}

// Decode splits raw terminal input into key names. Arrow escape sequences
// map to ArrowUp/Down/Left/Right, carriage return to Enter and every other
// byte to its character.
func Decode(b []byte) []string {
	var keys []string
	for i := 0; i < len(b); {
		if b[i] == 0x1b && i+2 < len(b) {
			if name, ok := escapes[string(b[i:i+3])]; ok {
				keys = append(keys, name)
				i += 3
				continue
			}
		}
		switch c := b[i]; {
		case c == ctrlC:
			keys = append(keys, "\x03")
		case c == '\r' || c == '\n':
			keys = append(keys, "Enter")
		case c == 0x1b:
			keys = append(keys, "Escape")
		case c == 0x7f:
			keys = append(keys, "Backspace")
		case c >= 0x20:
			keys = append(keys, string(rune(c)))
		}
		i++
	}
	return keys
}

// releaser turns isolated presses into down/up pairs.
type releaser struct {
	l     ports.KeyListener
	after time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newReleaser(l ports.KeyListener, after time.Duration) *releaser {
	return &releaser{l: l, after: after, timers: make(map[string]*time.Timer)}
}

func (r *releaser) press(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.timers[key]; ok {
		t.Reset(r.after)
		return
	}
	r.l.KeyDown(key)
	r.timers[key] = time.AfterFunc(r.after, func() {
		r.mu.Lock()
		delete(r.timers, key)
		r.mu.Unlock()
		r.l.KeyUp(key)
	})
}

func (r *releaser) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, t := range r.timers {
		t.Stop()
		r.l.KeyUp(key)
	}
	clear(r.timers)
}
