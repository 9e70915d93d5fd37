package tests

import (
	"context"
	"testing"

	"github.com/aretw0/patchbay/pkg/ports"
)

// SnapshotSourceContractTest is a reusable test suite that verifies if an adapter complies with ports.SnapshotSource.
// want lists the node ids (in declaration order) and edges the source is expected to produce.
func SnapshotSourceContractTest(t *testing.T, src ports.SnapshotSource, wantIDs []string, wantEdges int) {
	t.Helper()

	// 1. Load succeeds
	snap, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error loading snapshot: %v", err)
	}

	// 2. Declaration order is preserved
	t.Run("Nodes_InOrder", func(t *testing.T) {
		ids := snap.IDs()
		if len(ids) != len(wantIDs) {
			t.Fatalf("expected %d nodes, got %d (%v)", len(wantIDs), len(ids), ids)
		}
		for i := range wantIDs {
			if ids[i] != wantIDs[i] {
				t.Errorf("node %d: got %q, want %q", i, ids[i], wantIDs[i])
			}
		}
	})

	// 3. Edges reference live nodes
	t.Run("Edges_Live", func(t *testing.T) {
		if len(snap.Edges) != wantEdges {
			t.Errorf("expected %d edges, got %d", wantEdges, len(snap.Edges))
		}
		for _, e := range snap.Edges {
			if _, ok := snap.Node(e.Source); !ok {
				t.Errorf("edge %s: dangling source %s", e.ID, e.Source)
			}
			if _, ok := snap.Node(e.Target); !ok {
				t.Errorf("edge %s: dangling target %s", e.ID, e.Target)
			}
		}
	})

	// 4. Loads are independent copies
	t.Run("Load_Independent", func(t *testing.T) {
		again, err := src.Load(context.Background())
		if err != nil {
			t.Fatalf("unexpected error on second load: %v", err)
		}
		if len(again.Nodes) > 0 {
			again.Nodes[0].Params = map[string]float64{"__mutated": 1}
			third, _ := src.Load(context.Background())
			if _, ok := third.Nodes[0].Params["__mutated"]; ok {
				t.Error("mutating a loaded snapshot leaked into the source")
			}
		}
	})
}
