package registry

import (
	"fmt"
	"sync"

	"github.com/aretw0/patchbay/pkg/domain"
)

// Registry holds the node definitions the editor can instantiate.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]domain.Definition
	order []string
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		defs: make(map[string]domain.Definition),
	}
}

// Register adds a definition to the registry.
// If a definition with the same id exists, it is overwritten in place.
func (r *Registry) Register(def domain.Definition) error {
	if def.ID == "" {
		return fmt.Errorf("definition id is required")
	}
	if !def.InputKind.Valid() || !def.OutputKind.Valid() {
		return fmt.Errorf("definition %s: invalid kind", def.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.defs[def.ID]; !ok {
		r.order = append(r.order, def.ID)
	}
	r.defs[def.ID] = def
	return nil
}

// Lookup returns the definition with the given id.
func (r *Registry) Lookup(id string) (domain.Definition, error) {
	r.mu.RLock()
	def, ok := r.defs[id]
	r.mu.RUnlock()

	if !ok {
		return domain.Definition{}, fmt.Errorf("%w: %s", domain.ErrUnknownDefinition, id)
	}
	return def, nil
}

// List returns every definition in registration order.
func (r *Registry) List() []domain.Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Definition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.defs[id])
	}
	return out
}
