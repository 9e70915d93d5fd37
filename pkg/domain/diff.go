package domain

import (
	"fmt"
	"strings"
)

// SnapshotDiff represents the changes between two snapshots.
// It is designed to be serialized to JSON for partial updates on the client.
type SnapshotDiff struct {
	Version uint64 `json:"version"`

	AddedNodes   []string `json:"added_nodes,omitempty"`
	RemovedNodes []string `json:"removed_nodes,omitempty"`
	// ScriptChanged lists nodes present in both snapshots whose script or
	// definition changed.
	ScriptChanged []string `json:"script_changed,omitempty"`
	// Params contains only changed or added parameters per node.
	Params map[string]map[string]float64 `json:"params,omitempty"`

	AddedEdges   []string `json:"added_edges,omitempty"`
	RemovedEdges []string `json:"removed_edges,omitempty"`
}

// Diff calculates the difference between oldSnap and newSnap.
// If oldSnap is nil, it returns a diff representing the entire newSnap (initial load).
func Diff(oldSnap, newSnap *Snapshot) *SnapshotDiff {
	if newSnap == nil {
		return nil
	}
	if oldSnap == nil {
		oldSnap = &Snapshot{}
	}
	diff := &SnapshotDiff{Version: newSnap.Version}

	for _, n := range newSnap.Nodes {
		old, ok := oldSnap.Node(n.ID)
		if !ok {
			diff.AddedNodes = append(diff.AddedNodes, n.ID)
			continue
		}
		if old.Script != n.Script || old.DefinitionID != n.DefinitionID {
			diff.ScriptChanged = append(diff.ScriptChanged, n.ID)
		}
		if delta := diffParams(old.Params, n.Params); len(delta) > 0 {
			if diff.Params == nil {
				diff.Params = make(map[string]map[string]float64)
			}
			diff.Params[n.ID] = delta
		}
	}
	for _, n := range oldSnap.Nodes {
		if _, ok := newSnap.Node(n.ID); !ok {
			diff.RemovedNodes = append(diff.RemovedNodes, n.ID)
		}
	}

	oldEdges := edgeSet(oldSnap.Edges)
	newEdges := edgeSet(newSnap.Edges)
	for _, e := range newSnap.Edges {
		if _, ok := oldEdges[e]; !ok {
			diff.AddedEdges = append(diff.AddedEdges, e.ID)
		}
	}
	for _, e := range oldSnap.Edges {
		if _, ok := newEdges[e]; !ok {
			diff.RemovedEdges = append(diff.RemovedEdges, e.ID)
		}
	}
	return diff
}

func diffParams(old, new map[string]float64) map[string]float64 {
	var delta map[string]float64
	for k, v := range new {
		if ov, ok := old[k]; !ok || ov != v {
			if delta == nil {
				delta = make(map[string]float64)
			}
			delta[k] = v
		}
	}
	return delta
}

// edgeSet compares edges by endpoints; ids are regenerated on reload.
func edgeSet(edges []Edge) map[Edge]struct{} {
	set := make(map[Edge]struct{}, len(edges))
	for _, e := range edges {
		e.ID = ""
		set[e] = struct{}{}
	}
	return set
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SnapshotDiff) IsEmpty() bool {
	return len(d.AddedNodes) == 0 &&
		len(d.RemovedNodes) == 0 &&
		len(d.ScriptChanged) == 0 &&
		len(d.Params) == 0 &&
		len(d.AddedEdges) == 0 &&
		len(d.RemovedEdges) == 0
}

// String summarizes the diff for console messages, e.g. "+1 node, 2 scripts".
func (d *SnapshotDiff) String() string {
	if d == nil || d.IsEmpty() {
		return "no changes"
	}
	var parts []string
	count := func(n int, sign, noun string) {
		if n == 0 {
			return
		}
		if n > 1 {
			noun += "s"
		}
		parts = append(parts, fmt.Sprintf("%s%d %s", sign, n, noun))
	}
	count(len(d.AddedNodes), "+", "node")
	count(len(d.RemovedNodes), "-", "node")
	count(len(d.ScriptChanged), "", "script")
	count(len(d.Params), "", "param set")
	count(len(d.AddedEdges), "+", "edge")
	count(len(d.RemovedEdges), "-", "edge")
	return strings.Join(parts, ", ")
}

