package file

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/patchbay/pkg/canvas"
	"github.com/aretw0/patchbay/pkg/ports"
)

// Presenter writes node previews as PNG files under Dir.
//
// By default only the latest frame of each mounted node is kept in memory and
// written by Flush as <id>.png. With Sequence set, every presented frame is
// written immediately as <id>-<frame>.png.
type Presenter struct {
	Dir      string
	Sequence bool

	mu      sync.Mutex
	ids     map[string]bool
	latest  map[string]*canvas.Texture
	counter map[string]int
	err     error
}

// NewPresenter creates a presenter for the given node ids.
// With no ids, every node is mounted.
func NewPresenter(dir string, ids ...string) *Presenter {
	p := &Presenter{
		Dir:     dir,
		latest:  make(map[string]*canvas.Texture),
		counter: make(map[string]int),
	}
	if len(ids) > 0 {
		p.ids = make(map[string]bool, len(ids))
		for _, id := range ids {
			p.ids[id] = true
		}
	}
	return p
}

func (p *Presenter) Target(id string) (ports.PreviewTarget, bool) {
	if p.ids != nil && !p.ids[id] {
		return nil, false
	}
	return target{p: p, id: id}, true
}

type target struct {
	p  *Presenter
	id string
}

func (t target) Present(tex *canvas.Texture) {
	t.p.present(t.id, tex)
}

func (p *Presenter) present(id string, tex *canvas.Texture) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latest[id] = tex
	if !p.Sequence {
		return
	}
	p.counter[id]++
	name := fmt.Sprintf("%s-%06d.png", id, p.counter[id])
	if err := writePNG(filepath.Join(p.Dir, name), tex); err != nil && p.err == nil {
		p.err = err
	}
}

// Flush writes the latest frame of every node and returns the first error
// seen since the previous Flush.
func (p *Presenter) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.err
	p.err = nil
	for id, tex := range p.latest {
		if werr := writePNG(filepath.Join(p.Dir, id+".png"), tex); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}

func writePNG(path string, tex *canvas.Texture) error {
	if tex == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to ensure output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, tex.Image()); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
