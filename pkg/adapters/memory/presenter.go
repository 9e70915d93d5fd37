package memory

import (
	"sync"

	"github.com/aretw0/patchbay/pkg/canvas"
	"github.com/aretw0/patchbay/pkg/ports"
)

// Presenter keeps the latest texture of every mounted node.
// Safe for concurrent use.
type Presenter struct {
	mu      sync.RWMutex
	targets map[string]*Target
	auto    bool
}

// NewPresenter creates a presenter with the given nodes mounted.
func NewPresenter(ids ...string) *Presenter {
	p := &Presenter{targets: make(map[string]*Target)}
	for _, id := range ids {
		p.Mount(id)
	}
	return p
}

// NewAutoPresenter creates a presenter that mounts every node it is asked for.
func NewAutoPresenter() *Presenter {
	p := NewPresenter()
	p.auto = true
	return p
}

// Mount starts collecting frames for id.
func (p *Presenter) Mount(id string) *Target {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.targets[id]; ok {
		return t
	}
	t := &Target{}
	p.targets[id] = t
	return t
}

// Unmount stops collecting frames for id.
func (p *Presenter) Unmount(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.targets, id)
}

func (p *Presenter) Target(id string) (ports.PreviewTarget, bool) {
	p.mu.RLock()
	t, ok := p.targets[id]
	p.mu.RUnlock()
	if !ok && p.auto {
		return p.Mount(id), true
	}
	return t, ok
}

// Latest returns the last texture presented for id.
func (p *Presenter) Latest(id string) (*canvas.Texture, bool) {
	p.mu.RLock()
	t, ok := p.targets[id]
	p.mu.RUnlock()
	if !ok || t.Latest() == nil {
		return nil, false
	}
	return t.Latest(), true
}

// Target is one mounted preview.
type Target struct {
	mu     sync.RWMutex
	latest *canvas.Texture
	count  int
}

func (t *Target) Present(tex *canvas.Texture) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latest = tex
	t.count++
}

// Latest returns the last presented texture, nil before the first frame.
func (t *Target) Latest() *canvas.Texture {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latest
}

// Count is the number of frames presented.
func (t *Target) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.count
}
