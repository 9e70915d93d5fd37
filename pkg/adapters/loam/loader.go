// Package loam stores a patch as a directory of markdown documents, one per
// node, through the loam document library. Frontmatter carries the node
// definition, placement, parameters and incoming connections; the body is the
// node script.
//
//	---
//	def: GEO_CIRCLE
//	order: 2
//	params: {radius: 40}
//	inputs: [{from: osc, input: 0}]
//	modulate: {radius: lfo}
//	---
//	return function(pg) pg:circle(0, 0, params.radius) end
package loam

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/patchbay/pkg/domain"
)

// Loader adapts a loam repository to ports.SnapshotStore and ports.Watchable.
type Loader struct {
	Repo *loam.TypedRepository[NodeMetadata]
	// Dir is the repository root. Save uses it to remove documents of
	// deleted nodes.
	Dir string
}

// New creates a new loam adapter.
func New(repo *loam.TypedRepository[NodeMetadata]) *Loader {
	return &Loader{Repo: repo}
}

// Open initializes a loam repository at dir and wraps it. A read-only loader
// never writes to dir.
func Open(dir string, readOnly bool) (*Loader, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	opts := []loam.Option{loam.WithVersioning(false)}
	if readOnly {
		opts = append(opts, loam.WithReadOnly(true))
	}
	repo, err := loam.Init(absPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	l := New(loam.NewTypedRepository[NodeMetadata](repo))
	l.Dir = absPath
	return l, nil
}

type entry struct {
	id    string
	path  string
	order int
	meta  NodeMetadata
	body  string
}

// Load reads every node document and assembles the snapshot.
func (l *Loader) Load(ctx context.Context) (*domain.Snapshot, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	entries := make([]entry, 0, len(docs))
	for _, doc := range docs {
		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)
		if existing, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", id, existing, doc.ID)
		}
		seen[id] = doc.ID
		if doc.Data.Def == "" {
			return nil, fmt.Errorf("node %s: missing def", id)
		}
		entries = append(entries, entry{id: id, path: doc.ID, order: doc.Data.Order, meta: doc.Data, body: doc.Content})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].order != entries[j].order {
			return entries[i].order < entries[j].order
		}
		return entries[i].id < entries[j].id
	})

	snap := &domain.Snapshot{}
	for _, e := range entries {
		snap.Nodes = append(snap.Nodes, domain.Node{
			ID:           e.id,
			DefinitionID: e.meta.Def,
			Position:     domain.Position{X: e.meta.X, Y: e.meta.Y},
			Script:       strings.TrimSpace(e.body),
			Params:       e.meta.Params,
		})
	}
	for _, e := range entries {
		for _, in := range e.meta.Inputs {
			snap.Edges = append(snap.Edges, domain.Edge{
				ID:         fmt.Sprintf("e-%s-%s-%d", in.From, e.id, in.Input),
				Source:     in.From,
				Target:     e.id,
				InputIndex: in.Input,
			})
		}
		keys := make([]string, 0, len(e.meta.Modulate))
		for k := range e.meta.Modulate {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			src := e.meta.Modulate[k]
			snap.Edges = append(snap.Edges, domain.Edge{
				ID:       fmt.Sprintf("e-%s-%s-%s", src, e.id, k),
				Source:   src,
				Target:   e.id,
				ParamKey: k,
			})
		}
	}
	return snap, nil
}

// Save writes one document per node. Documents of nodes missing from snap
// are removed when Dir is set.
func (l *Loader) Save(ctx context.Context, snap *domain.Snapshot) error {
	metas := make(map[string]*NodeMetadata, len(snap.Nodes))
	for i, n := range snap.Nodes {
		metas[n.ID] = &NodeMetadata{
			ID:     n.ID,
			Def:    n.DefinitionID,
			X:      n.Position.X,
			Y:      n.Position.Y,
			Order:  i,
			Params: n.Params,
		}
	}
	for _, e := range snap.Edges {
		m, ok := metas[e.Target]
		if !ok {
			continue
		}
		if e.IsModulation() {
			if m.Modulate == nil {
				m.Modulate = make(map[string]string)
			}
			m.Modulate[e.ParamKey] = e.Source
			continue
		}
		m.Inputs = append(m.Inputs, InputLink{From: e.Source, Input: e.InputIndex})
	}

	for _, n := range snap.Nodes {
		err := l.Repo.Save(ctx, &loam.DocumentModel[NodeMetadata]{
			ID:      n.ID,
			Content: n.Script,
			Data:    *metas[n.ID],
		})
		if err != nil {
			return fmt.Errorf("failed to save node %s: %w", n.ID, err)
		}
	}
	return l.prune(ctx, metas)
}

func (l *Loader) prune(ctx context.Context, keep map[string]*NodeMetadata) error {
	if l.Dir == "" {
		return nil
	}
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loam list failed: %w", err)
	}
	for _, doc := range docs {
		id := doc.Data.ID
		if id == "" {
			id = trimExtension(doc.ID)
		}
		if _, ok := keep[id]; ok {
			continue
		}
		path := doc.ID
		if filepath.Ext(path) == "" {
			path += ".md"
		}
		if err := os.Remove(filepath.Join(l.Dir, filepath.FromSlash(path))); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove node %s: %w", id, err)
		}
	}
	return nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				// Loam debounces; coalesce whatever still arrives in bursts.
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()
	return ch, nil
}
