package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/patchbay/pkg/domain"
)

// Source implements ports.SnapshotSource over a snapshot held in memory.
type Source struct {
	mu   sync.RWMutex
	snap *domain.Snapshot
}

// NewSource creates a source serving a copy of snap.
func NewSource(snap *domain.Snapshot) *Source {
	return &Source{snap: snap.Clone()}
}

// NewFromNodes builds a source from nodes and edges.
// This keeps fixtures short in tests.
func NewFromNodes(nodes []domain.Node, edges ...domain.Edge) (*Source, error) {
	for _, n := range nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("node missing ID")
		}
	}
	return NewSource(&domain.Snapshot{Nodes: nodes, Edges: edges}), nil
}

// Load returns an independent copy of the held snapshot.
func (s *Source) Load(ctx context.Context) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone(), nil
}

// Set replaces the held snapshot.
func (s *Source) Set(snap *domain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap.Clone()
}
