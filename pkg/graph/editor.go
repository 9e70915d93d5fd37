package graph

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/aretw0/patchbay/pkg/annotation"
	"github.com/aretw0/patchbay/pkg/domain"
)

// Definitions resolves definition ids. *registry.Registry satisfies it.
type Definitions interface {
	Lookup(id string) (domain.Definition, error)
}

// Publisher receives every snapshot the editor commits. Publishers run with
// the editor lock held and must not call back into the editor.
type Publisher func(*domain.Snapshot)

// Editor owns the authoritative graph. Every mutation builds a new snapshot,
// swaps it in and hands it to the subscribers; published snapshots are never
// modified afterwards.
type Editor struct {
	mu   sync.Mutex
	defs Definitions
	snap *domain.Snapshot
	subs []Publisher
	seq  int
}

// EditorOption configures an Editor.
type EditorOption func(*Editor)

// WithSubscriber registers a publisher at construction time.
func WithSubscriber(p Publisher) EditorOption {
	return func(e *Editor) {
		e.subs = append(e.subs, p)
	}
}

// NewEditor creates an editor over an empty graph.
func NewEditor(defs Definitions, opts ...EditorOption) *Editor {
	e := &Editor{
		defs: defs,
		snap: &domain.Snapshot{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Subscribe registers p and immediately delivers the current snapshot.
func (e *Editor) Subscribe(p Publisher) {
	e.mu.Lock()
	e.subs = append(e.subs, p)
	snap := e.snap
	e.mu.Unlock()
	p(snap)
}

// Snapshot returns the current published snapshot. Callers must not modify it.
func (e *Editor) Snapshot() *domain.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap
}

// Definition resolves the definition of a node in the current graph.
func (e *Editor) Definition(nodeID string) (domain.Definition, error) {
	e.mu.Lock()
	n, ok := e.snap.Node(nodeID)
	e.mu.Unlock()
	if !ok {
		return domain.Definition{}, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, nodeID)
	}
	return e.defs.Lookup(n.DefinitionID)
}

// Replace swaps the whole graph, e.g. after a patch file reload.
// Nodes are completed with Materialize and the snapshot is validated against
// the connection rules first.
func (e *Editor) Replace(s *domain.Snapshot) error {
	next := s.Clone()
	for i, n := range next.Nodes {
		m, err := Materialize(e.defs, n)
		if err != nil {
			return fmt.Errorf("node %s: %w", n.ID, err)
		}
		next.Nodes[i] = m
	}
	if err := e.check(next); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, n := range next.Nodes {
		e.bumpSeq(n.ID)
	}
	e.commit(next)
	return nil
}

// AddNode instantiates defID with its default script and annotation defaults.
func (e *Editor) AddNode(defID string, pos domain.Position) (domain.Node, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addNode("", defID, pos)
}

// AddNodeWithID is AddNode with a caller-chosen id.
func (e *Editor) AddNodeWithID(id, defID string, pos domain.Position) (domain.Node, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addNode(id, defID, pos)
}

func (e *Editor) addNode(id, defID string, pos domain.Position) (domain.Node, error) {
	def, err := e.defs.Lookup(defID)
	if err != nil {
		return domain.Node{}, err
	}
	if id == "" {
		id = e.nextID(def.ID)
	} else if _, exists := e.snap.Node(id); exists {
		return domain.Node{}, fmt.Errorf("%w: %s", domain.ErrDuplicateNode, id)
	}
	e.bumpSeq(id)

	params := annotation.Parse(def.DefaultScript)
	node := domain.Node{
		ID:           id,
		DefinitionID: def.ID,
		Position:     pos,
		Script:       def.DefaultScript,
		Params:       params.Values,
		ParamConfigs: params.Configs,
	}

	next := e.snap.Clone()
	next.Nodes = append(next.Nodes, node)
	e.commit(next)
	return node.Clone(), nil
}

// Materialize completes a node read from outside the editor: an empty script
// becomes the definition default and parameters are re-derived from the
// script annotations, keeping given values for declared keys.
func Materialize(defs Definitions, n domain.Node) (domain.Node, error) {
	def, err := defs.Lookup(n.DefinitionID)
	if err != nil {
		return domain.Node{}, err
	}
	if n.Script == "" {
		n.Script = def.DefaultScript
	}
	parsed := annotation.Parse(n.Script)
	n.Params = annotation.Merge(n.Params, parsed)
	n.ParamConfigs = parsed.Configs
	return n, nil
}

// DeleteNode removes a node and, in the same snapshot, every edge touching it.
func (e *Editor) DeleteNode(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.snap.Clone()
	idx := slices.IndexFunc(next.Nodes, func(n domain.Node) bool { return n.ID == id })
	if idx < 0 {
		return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id)
	}
	next.Nodes = slices.Delete(next.Nodes, idx, idx+1)
	next.Edges = slices.DeleteFunc(next.Edges, func(ed domain.Edge) bool { return ed.Touches(id) })
	e.commit(next)
	return nil
}

// Move updates the editor position of a node.
func (e *Editor) Move(id string, pos domain.Position) error {
	return e.update(id, func(n *domain.Node, _ *domain.Snapshot) error {
		n.Position = pos
		return nil
	})
}

// EditScript replaces a node's script and re-derives its parameters: surviving
// keys keep their value, new keys get their default, removed keys are dropped
// along with any modulation edge driving them.
func (e *Editor) EditScript(id, script string) error {
	return e.update(id, func(n *domain.Node, next *domain.Snapshot) error {
		parsed := annotation.Parse(script)
		n.Script = script
		n.Params = annotation.Merge(n.Params, parsed)
		n.ParamConfigs = parsed.Configs
		next.Edges = slices.DeleteFunc(next.Edges, func(ed domain.Edge) bool {
			if ed.Target != id || !ed.IsModulation() {
				return false
			}
			_, keep := n.Params[ed.ParamKey]
			return !keep
		})
		return nil
	})
}

// SetParam stores a parameter value. The key must be declared by the script.
func (e *Editor) SetParam(id, key string, value float64) error {
	return e.update(id, func(n *domain.Node, _ *domain.Snapshot) error {
		if _, ok := n.Params[key]; !ok {
			return fmt.Errorf("%w: %s.%s", domain.ErrUnknownParam, id, key)
		}
		n.Params[key] = value
		return nil
	})
}

// Connect feeds the output of source into input slot inputIndex of target,
// replacing whatever edge occupied that slot.
func (e *Editor) Connect(source, target string, inputIndex int) (domain.Edge, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	port := strconv.Itoa(inputIndex)
	srcDef, dstDef, err := e.endpoints(source, target, port)
	if err != nil {
		return domain.Edge{}, err
	}
	if err := CanConnect(srcDef, dstDef); err != nil {
		return domain.Edge{}, &domain.ConnectionError{Source: source, Target: target, Port: port, Want: dstDef.InputKind, Got: srcDef.OutputKind, Err: err}
	}
	if !InRange(dstDef, inputIndex) {
		return domain.Edge{}, &domain.ConnectionError{Source: source, Target: target, Port: port, Err: domain.ErrNoSuchPort}
	}

	edge := domain.Edge{
		ID:         fmt.Sprintf("e-%s-%s-%d", source, target, inputIndex),
		Source:     source,
		Target:     target,
		InputIndex: inputIndex,
	}
	next := e.snap.Clone()
	next.Edges = slices.DeleteFunc(next.Edges, func(ed domain.Edge) bool {
		return ed.Target == target && !ed.IsModulation() && ed.InputIndex == inputIndex
	})
	next.Edges = append(next.Edges, edge)
	e.commit(next)
	return edge, nil
}

// ConnectParam drives parameter key of target with the scalar output of source,
// replacing any existing modulation of that parameter.
func (e *Editor) ConnectParam(source, target, key string) (domain.Edge, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	srcDef, _, err := e.endpoints(source, target, key)
	if err != nil {
		return domain.Edge{}, err
	}
	if err := CanModulate(srcDef); err != nil {
		return domain.Edge{}, &domain.ConnectionError{Source: source, Target: target, Port: key, Want: domain.KindValue, Got: srcDef.OutputKind, Err: err}
	}
	dst, _ := e.snap.Node(target)
	if _, ok := dst.Params[key]; !ok {
		return domain.Edge{}, &domain.ConnectionError{Source: source, Target: target, Port: key, Err: domain.ErrNoSuchPort}
	}

	edge := domain.Edge{
		ID:       fmt.Sprintf("e-%s-%s-%s", source, target, key),
		Source:   source,
		Target:   target,
		ParamKey: key,
	}
	next := e.snap.Clone()
	next.Edges = slices.DeleteFunc(next.Edges, func(ed domain.Edge) bool {
		return ed.Target == target && ed.ParamKey == key
	})
	next.Edges = append(next.Edges, edge)
	e.commit(next)
	return edge, nil
}

// Disconnect removes the edge occupying input slot inputIndex of target.
func (e *Editor) Disconnect(target string, inputIndex int) error {
	return e.removeEdges(func(ed domain.Edge) bool {
		return ed.Target == target && !ed.IsModulation() && ed.InputIndex == inputIndex
	}, fmt.Sprintf("%s[%d]", target, inputIndex))
}

// DisconnectParam removes the modulation of parameter key of target.
func (e *Editor) DisconnectParam(target, key string) error {
	return e.removeEdges(func(ed domain.Edge) bool {
		return ed.Target == target && ed.ParamKey == key
	}, target+"."+key)
}

// RemoveEdge removes an edge by id.
func (e *Editor) RemoveEdge(edgeID string) error {
	return e.removeEdges(func(ed domain.Edge) bool { return ed.ID == edgeID }, edgeID)
}

func (e *Editor) removeEdges(match func(domain.Edge) bool, label string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !slices.ContainsFunc(e.snap.Edges, match) {
		return fmt.Errorf("%w: %s", domain.ErrEdgeNotFound, label)
	}
	next := e.snap.Clone()
	next.Edges = slices.DeleteFunc(next.Edges, match)
	e.commit(next)
	return nil
}

func (e *Editor) update(id string, fn func(n *domain.Node, next *domain.Snapshot) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.snap.Clone()
	idx := slices.IndexFunc(next.Nodes, func(n domain.Node) bool { return n.ID == id })
	if idx < 0 {
		return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id)
	}
	if err := fn(&next.Nodes[idx], next); err != nil {
		return err
	}
	e.commit(next)
	return nil
}

func (e *Editor) endpoints(source, target, port string) (domain.Definition, domain.Definition, error) {
	src, ok := e.snap.Node(source)
	if !ok {
		return domain.Definition{}, domain.Definition{}, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, source)
	}
	dst, ok := e.snap.Node(target)
	if !ok {
		return domain.Definition{}, domain.Definition{}, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, target)
	}
	if source == target {
		return domain.Definition{}, domain.Definition{}, &domain.ConnectionError{Source: source, Target: target, Port: port, Err: domain.ErrSelfConnection}
	}
	srcDef, err := e.defs.Lookup(src.DefinitionID)
	if err != nil {
		return domain.Definition{}, domain.Definition{}, err
	}
	dstDef, err := e.defs.Lookup(dst.DefinitionID)
	if err != nil {
		return domain.Definition{}, domain.Definition{}, err
	}
	return srcDef, dstDef, nil
}

// check validates a whole snapshot against the same rules the editor enforces
// one mutation at a time.
func (e *Editor) check(s *domain.Snapshot) error {
	seen := make(map[string]bool, len(s.Nodes))
	for _, n := range s.Nodes {
		if seen[n.ID] {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateNode, n.ID)
		}
		seen[n.ID] = true
		if _, err := e.defs.Lookup(n.DefinitionID); err != nil {
			return fmt.Errorf("node %s: %w", n.ID, err)
		}
	}

	slots := make(map[string]bool, len(s.Edges))
	for _, ed := range s.Edges {
		srcDef, dstDef, err := e.endpointsIn(s, ed.Source, ed.Target)
		if err != nil {
			return fmt.Errorf("edge %s: %w", ed.ID, err)
		}
		port := strconv.Itoa(ed.InputIndex)
		if ed.IsModulation() {
			port = ed.ParamKey
			dst, _ := s.Node(ed.Target)
			if err := CanModulate(srcDef); err != nil {
				return &domain.ConnectionError{Source: ed.Source, Target: ed.Target, Port: port, Want: domain.KindValue, Got: srcDef.OutputKind, Err: err}
			}
			if _, ok := dst.Params[ed.ParamKey]; !ok {
				return &domain.ConnectionError{Source: ed.Source, Target: ed.Target, Port: port, Err: domain.ErrNoSuchPort}
			}
		} else {
			if err := CanConnect(srcDef, dstDef); err != nil {
				return &domain.ConnectionError{Source: ed.Source, Target: ed.Target, Port: port, Want: dstDef.InputKind, Got: srcDef.OutputKind, Err: err}
			}
			if !InRange(dstDef, ed.InputIndex) {
				return &domain.ConnectionError{Source: ed.Source, Target: ed.Target, Port: port, Err: domain.ErrNoSuchPort}
			}
		}
		slot := ed.Target + "/" + port
		if slots[slot] {
			return fmt.Errorf("edge %s: slot %s already occupied", ed.ID, slot)
		}
		slots[slot] = true
	}
	return nil
}

func (e *Editor) endpointsIn(s *domain.Snapshot, source, target string) (domain.Definition, domain.Definition, error) {
	if source == target {
		return domain.Definition{}, domain.Definition{}, domain.ErrSelfConnection
	}
	src, ok := s.Node(source)
	if !ok {
		return domain.Definition{}, domain.Definition{}, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, source)
	}
	dst, ok := s.Node(target)
	if !ok {
		return domain.Definition{}, domain.Definition{}, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, target)
	}
	srcDef, err := e.defs.Lookup(src.DefinitionID)
	if err != nil {
		return domain.Definition{}, domain.Definition{}, err
	}
	dstDef, err := e.defs.Lookup(dst.DefinitionID)
	if err != nil {
		return domain.Definition{}, domain.Definition{}, err
	}
	return srcDef, dstDef, nil
}

// commit must be called with mu held. Versions never go backwards, even when
// Replace installs a snapshot carrying an older version.
func (e *Editor) commit(next *domain.Snapshot) {
	next.Version = max(e.snap.Version, next.Version) + 1
	e.snap = next
	for _, p := range e.subs {
		p(next)
	}
}

func (e *Editor) nextID(defID string) string {
	e.seq++
	return fmt.Sprintf("%s-%d", strings.ToLower(defID), e.seq)
}

// bumpSeq keeps generated ids ahead of ids chosen by callers or loaded from files.
func (e *Editor) bumpSeq(id string) {
	i := strings.LastIndexByte(id, '-')
	if i < 0 {
		return
	}
	if n, err := strconv.Atoi(id[i+1:]); err == nil && n > e.seq {
		e.seq = n
	}
}
