package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/patchbay/pkg/adapters/memory"
	"github.com/aretw0/patchbay/pkg/domain"
	contract "github.com/aretw0/patchbay/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySource_Contract(t *testing.T) {
	src, err := memory.NewFromNodes(
		[]domain.Node{
			{ID: "circle", DefinitionID: "GEO_CIRCLE", Params: map[string]float64{"radius": 50}},
			{ID: "render", DefinitionID: "GEO_RENDER"},
		},
		domain.Edge{ID: "e1", Source: "circle", Target: "render"},
	)
	require.NoError(t, err)

	contract.SnapshotSourceContractTest(t, src, []string{"circle", "render"}, 1)
}

func TestMemorySource_Set(t *testing.T) {
	src := memory.NewSource(nil)
	snap, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Nodes)

	src.Set(&domain.Snapshot{Version: 3, Nodes: []domain.Node{{ID: "a"}}})
	snap, err = src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, snap.IDs())
}

func TestMemorySource_RejectsMissingID(t *testing.T) {
	_, err := memory.NewFromNodes([]domain.Node{{DefinitionID: "X"}})
	assert.Error(t, err)
}
