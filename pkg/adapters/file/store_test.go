package file_test

import (
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/patchbay/pkg/adapters/file"
	"github.com/aretw0/patchbay/pkg/canvas"
	"github.com/aretw0/patchbay/pkg/canvas/canvastest"
	"github.com/aretw0/patchbay/pkg/domain"
	contract "github.com/aretw0/patchbay/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "patch.json")
	store := file.NewSnapshotStore(path)
	ctx := context.Background()

	empty, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty.Nodes)

	snap := &domain.Snapshot{
		Version: 4,
		Nodes: []domain.Node{
			{ID: "osc", DefinitionID: "VAL_OSCILLATOR", Params: map[string]float64{"frequency": 1}},
			{ID: "circle", DefinitionID: "GEO_CIRCLE", Position: domain.Position{X: 10, Y: 20}, Params: map[string]float64{"radius": 50}},
		},
		Edges: []domain.Edge{{ID: "m", Source: "osc", Target: "circle", ParamKey: "radius"}},
	}
	require.NoError(t, store.Save(ctx, snap))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.Version, loaded.Version)
	assert.Equal(t, snap.Nodes[1].Position, loaded.Nodes[1].Position)
	assert.True(t, loaded.Edges[0].IsModulation())

	contract.SnapshotSourceContractTest(t, store, []string{"osc", "circle"}, 1)
}

func TestSnapshotStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patch.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0644))
	_, err := file.NewSnapshotStore(path).Load(context.Background())
	assert.Error(t, err)
}

func TestPresenter_Flush(t *testing.T) {
	dir := t.TempDir()
	p := file.NewPresenter(dir, "out")

	_, ok := p.Target("other")
	assert.False(t, ok)

	rec := canvastest.New(4, 3)
	rec.Background(canvas.Gray(77))
	target, ok := p.Target("out")
	require.True(t, ok)
	target.Present(rec.Snapshot())
	require.NoError(t, p.Flush())

	f, err := os.Open(filepath.Join(dir, "out.png"))
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
	r, _, _, _ := img.At(1, 1).RGBA()
	assert.Equal(t, uint32(77), r>>8)
}

func TestPresenter_Sequence(t *testing.T) {
	dir := t.TempDir()
	p := file.NewPresenter(dir)
	p.Sequence = true

	target, ok := p.Target("any")
	require.True(t, ok)
	for i := 0; i < 3; i++ {
		target.Present(canvastest.New(2, 2).Snapshot())
	}
	require.NoError(t, p.Flush())

	matches, err := filepath.Glob(filepath.Join(dir, "any-*.png"))
	require.NoError(t, err)
	assert.Len(t, matches, 3)
}
