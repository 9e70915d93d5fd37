package loam

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/patchbay/internal/testutils"
	"github.com/aretw0/patchbay/pkg/domain"
	"github.com/aretw0/patchbay/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var patchFiles = map[string]string{
	"osc.md": `---
def: VAL_OSCILLATOR
order: 0
---
`,
	"circle.md": `---
def: GEO_CIRCLE
order: 1
x: 120
y: 40
params:
  radius: 40
modulate:
  radius: osc
---
return function(pg) pg:circle(0, 0, params.radius) end
`,
	"render.md": `---
def: GEO_RENDER
order: 2
inputs:
  - from: circle
    input: 0
---
pg:background(0)
if input then input(pg) end
`,
}

func newLoader(t *testing.T, files map[string]string) (*Loader, string) {
	t.Helper()
	dir, repo := testutils.SetupTestRepo(t)
	testutils.WriteFiles(t, dir, files)
	l := New(loam.NewTypedRepository[NodeMetadata](repo))
	l.Dir = dir
	return l, dir
}

func TestLoader_Contract(t *testing.T) {
	l, _ := newLoader(t, patchFiles)
	tests.SnapshotSourceContractTest(t, l, []string{"osc", "circle", "render"}, 2)
}

func TestLoader_Load(t *testing.T) {
	l, _ := newLoader(t, patchFiles)
	snap, err := l.Load(context.Background())
	require.NoError(t, err)

	circle, ok := snap.Node("circle")
	require.True(t, ok)
	assert.Equal(t, "GEO_CIRCLE", circle.DefinitionID)
	assert.Equal(t, domain.Position{X: 120, Y: 40}, circle.Position)
	assert.Equal(t, 40.0, circle.Params["radius"])
	assert.Contains(t, circle.Script, "params.radius")

	osc, _ := snap.Node("osc")
	assert.Empty(t, osc.Script)

	assert.Contains(t, snap.Edges, domain.Edge{ID: "e-circle-render-0", Source: "circle", Target: "render"})
	assert.Contains(t, snap.Edges, domain.Edge{ID: "e-osc-circle-radius", Source: "osc", Target: "circle", ParamKey: "radius"})
}

func TestLoader_OrderTiesSortByID(t *testing.T) {
	l, _ := newLoader(t, map[string]string{
		"b.md": "---\ndef: X\n---\n",
		"a.md": "---\ndef: X\n---\n",
		"c.md": "---\ndef: X\norder: -1\n---\n",
	})
	snap, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, snap.IDs())
}

func TestLoader_DetectsCollisions(t *testing.T) {
	l, _ := newLoader(t, map[string]string{
		"foo.md":   "---\nid: foo\ndef: X\n---\n",
		"foo.json": `{"id": "foo", "def": "X"}`,
	})
	_, err := l.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collision detected")
}

func TestLoader_MissingDef(t *testing.T) {
	l, _ := newLoader(t, map[string]string{"n.md": "---\nx: 1\n---\n"})
	_, err := l.Load(context.Background())
	assert.ErrorContains(t, err, "missing def")
}

func TestLoader_SaveRoundTrip(t *testing.T) {
	l, dir := newLoader(t, map[string]string{"stale.md": "---\ndef: X\n---\n"})
	ctx := context.Background()

	snap := &domain.Snapshot{
		Nodes: []domain.Node{
			{ID: "b", DefinitionID: "NUM", Script: "return 2", Params: map[string]float64{"k": 1}},
			{ID: "a", DefinitionID: "NUM", Script: "return input", Position: domain.Position{X: 5}},
		},
		Edges: []domain.Edge{
			{ID: "e-b-a-0", Source: "b", Target: "a"},
			{ID: "e-a-b-k", Source: "a", Target: "b", ParamKey: "k"},
		},
	}
	require.NoError(t, l.Save(ctx, snap))

	_, err := os.Stat(filepath.Join(dir, "stale.md"))
	assert.True(t, os.IsNotExist(err), "documents of removed nodes are pruned")

	got, err := l.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, got.IDs(), "declaration order survives")
	a, _ := got.Node("a")
	assert.Equal(t, "return input", a.Script)
	assert.Equal(t, 5.0, a.Position.X)
	assert.ElementsMatch(t, snap.Edges, got.Edges)
}
