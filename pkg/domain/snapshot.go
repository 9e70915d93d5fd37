package domain

import "slices"

// Snapshot is an immutable version of the graph. Nodes keep declaration order,
// which is also the default evaluation order.
type Snapshot struct {
	Version uint64 `json:"version" yaml:"version"`
	Nodes   []Node `json:"nodes" yaml:"nodes"`
	Edges   []Edge `json:"edges" yaml:"edges"`
}

// Node looks up a node by id.
func (s *Snapshot) Node(id string) (Node, bool) {
	if s == nil {
		return Node{}, false
	}
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// EdgesInto returns the edges whose target is id, in declaration order.
func (s *Snapshot) EdgesInto(id string) []Edge {
	if s == nil {
		return nil
	}
	var out []Edge
	for _, e := range s.Edges {
		if e.Target == id {
			out = append(out, e)
		}
	}
	return out
}

// ConnectedInputs returns the sorted input indices of id that have an edge.
func (s *Snapshot) ConnectedInputs(id string) []int {
	var out []int
	for _, e := range s.EdgesInto(id) {
		if !e.IsModulation() {
			out = append(out, e.InputIndex)
		}
	}
	slices.Sort(out)
	return out
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return &Snapshot{}
	}
	out := &Snapshot{
		Version: s.Version,
		Nodes:   make([]Node, len(s.Nodes)),
		Edges:   slices.Clone(s.Edges),
	}
	for i, n := range s.Nodes {
		out.Nodes[i] = n.Clone()
	}
	return out
}

// IDs returns the node ids in declaration order.
func (s *Snapshot) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, len(s.Nodes))
	for i, n := range s.Nodes {
		ids[i] = n.ID
	}
	return ids
}
