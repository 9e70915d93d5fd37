package dsl

import (
	"fmt"

	"github.com/aretw0/patchbay/pkg/adapters/memory"
	"github.com/aretw0/patchbay/pkg/domain"
	"github.com/aretw0/patchbay/pkg/graph"
)

// Builder manages the graph construction.
type Builder struct {
	defs  graph.Definitions
	order []string
	nodes map[string]*NodeBuilder
}

// New creates a new graph builder resolving definitions through defs.
func New(defs graph.Definitions) *Builder {
	return &Builder{
		defs:  defs,
		nodes: make(map[string]*NodeBuilder),
	}
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node:    domain.Node{ID: id},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Snapshot assembles and validates the graph. Nodes without a script get
// their definition's default; parameters are derived from script annotations
// with explicit Param values applied on top.
func (b *Builder) Snapshot() (*domain.Snapshot, error) {
	snap := &domain.Snapshot{}
	for _, id := range b.order {
		nb := b.nodes[id]
		if nb.node.DefinitionID == "" {
			return nil, fmt.Errorf("node %s: no definition", id)
		}
		snap.Nodes = append(snap.Nodes, nb.node.Clone())
		snap.Edges = append(snap.Edges, nb.edges...)
	}

	ed := graph.NewEditor(b.defs)
	if err := ed.Replace(snap); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}
	return ed.Snapshot(), nil
}

// Build compiles the graph into a memory source.
func (b *Builder) Build() (*memory.Source, error) {
	snap, err := b.Snapshot()
	if err != nil {
		return nil, err
	}
	return memory.NewSource(snap), nil
}

// Apply replaces the editor's graph with the built one.
func (b *Builder) Apply(ed *graph.Editor) error {
	snap, err := b.Snapshot()
	if err != nil {
		return err
	}
	return ed.Replace(snap)
}
