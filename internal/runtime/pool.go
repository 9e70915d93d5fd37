package runtime

import (
	"github.com/aretw0/patchbay/pkg/canvas"
	"github.com/aretw0/patchbay/pkg/ports"
)

// Pool owns one surface per live node id.
type Pool struct {
	factory  ports.SurfaceFactory
	width    int
	height   int
	surfaces map[string]canvas.Surface
}

// NewPool creates an empty pool allocating width x height surfaces.
func NewPool(factory ports.SurfaceFactory, width, height int) *Pool {
	return &Pool{
		factory:  factory,
		width:    width,
		height:   height,
		surfaces: make(map[string]canvas.Surface),
	}
}

// Sync makes the pool match ids: surfaces are created for new ids and
// disposed for ids that are gone. It returns the removed ids.
func (p *Pool) Sync(ids []string) (gone []string) {
	live := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		live[id] = struct{}{}
	}
	for id, s := range p.surfaces {
		if _, ok := live[id]; !ok {
			s.Dispose()
			delete(p.surfaces, id)
			gone = append(gone, id)
		}
	}
	for _, id := range ids {
		if _, ok := p.surfaces[id]; !ok {
			p.surfaces[id] = p.factory.NewSurface(p.width, p.height)
		}
	}
	return gone
}

// Surface returns the surface of a node.
func (p *Pool) Surface(id string) (canvas.Surface, bool) {
	s, ok := p.surfaces[id]
	return s, ok
}

// Len is the number of live surfaces.
func (p *Pool) Len() int { return len(p.surfaces) }

// Close disposes every surface.
func (p *Pool) Close() {
	for id, s := range p.surfaces {
		s.Dispose()
		delete(p.surfaces, id)
	}
}
