package memory

import (
	"context"
	"sync"

	"github.com/aretw0/patchbay/pkg/domain"
	"github.com/aretw0/patchbay/pkg/ports"
)

// Feed implements ports.LogFeed as a fixed-size ring in memory.
// Safe for concurrent use.
type Feed struct {
	mu      sync.RWMutex
	entries []domain.LogEntry
	next    int
	full    bool
	subs    []func(domain.LogEntry)
}

// NewFeed creates a feed retaining up to capacity entries.
// A non-positive capacity uses ports.DefaultFeedCapacity.
func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = ports.DefaultFeedCapacity
	}
	return &Feed{entries: make([]domain.LogEntry, capacity)}
}

// Log appends an entry, evicting the oldest when full.
func (f *Feed) Log(e domain.LogEntry) {
	f.mu.Lock()
	f.entries[f.next] = e
	f.next = (f.next + 1) % len(f.entries)
	if f.next == 0 {
		f.full = true
	}
	subs := f.subs
	f.mu.Unlock()

	for _, fn := range subs {
		fn(e)
	}
}

// Recent returns up to n entries, oldest first.
func (f *Feed) Recent(ctx context.Context, n int) ([]domain.LogEntry, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var out []domain.LogEntry
	if f.full {
		out = append(out, f.entries[f.next:]...)
	}
	out = append(out, f.entries[:f.next]...)
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out, nil
}

// Clear drops all entries.
func (f *Feed) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.entries)
	f.next = 0
	f.full = false
	return nil
}

// OnEntry registers fn to be called after every logged entry. Callbacks run on
// the logging goroutine and must not block.
func (f *Feed) OnEntry(fn func(domain.LogEntry)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, fn)
}
