package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_CloneIsDeep(t *testing.T) {
	s := &Snapshot{
		Version: 3,
		Nodes:   []Node{{ID: "a", Params: map[string]float64{"radius": 5}}},
		Edges:   []Edge{{ID: "e1", Source: "a", Target: "b"}},
	}

	c := s.Clone()
	c.Nodes[0].Params["radius"] = 99
	c.Edges[0].Target = "z"

	assert.Equal(t, 5.0, s.Nodes[0].Params["radius"])
	assert.Equal(t, "b", s.Edges[0].Target)
	assert.Equal(t, uint64(3), c.Version)
}

func TestSnapshot_ConnectedInputs(t *testing.T) {
	s := &Snapshot{
		Edges: []Edge{
			{ID: "1", Source: "x", Target: "c", InputIndex: 1},
			{ID: "2", Source: "y", Target: "c", InputIndex: 0},
			{ID: "3", Source: "o", Target: "c", ParamKey: "mode"},
			{ID: "4", Source: "y", Target: "d", InputIndex: 0},
		},
	}
	assert.Equal(t, []int{0, 1}, s.ConnectedInputs("c"))
	assert.Len(t, s.EdgesInto("c"), 3)
	assert.Empty(t, s.ConnectedInputs("x"))
}

func TestSnapshot_NilSafe(t *testing.T) {
	var s *Snapshot
	_, ok := s.Node("a")
	assert.False(t, ok)
	assert.Nil(t, s.IDs())
	assert.NotNil(t, s.Clone())
}

func TestDefinition_Ports(t *testing.T) {
	assert.Equal(t, 0, Definition{}.Ports())
	assert.Equal(t, 1, Definition{InputKind: KindTexture}.Ports())
	assert.Equal(t, 4, Definition{InputKind: KindTexture, InputCount: 4}.Ports())
	assert.Equal(t, 0, Definition{InputCount: 2}.Ports())
}

func TestConnectionError(t *testing.T) {
	err := &ConnectionError{Source: "osc", Target: "render", Port: "0", Want: KindGeometry, Got: KindValue, Err: ErrTypeMismatch}
	require.True(t, errors.Is(err, ErrTypeMismatch))
	assert.False(t, errors.Is(err, ErrNoSuchPort))
	assert.Contains(t, err.Error(), "want GEO, got VALUE")

	var ce *ConnectionError
	require.True(t, errors.As(error(err), &ce))
	assert.Equal(t, "render", ce.Target)
}

func TestValue_Constructors(t *testing.T) {
	assert.True(t, Null.IsNull())
	assert.True(t, GeometryValue(nil).IsNull())
	assert.True(t, TextureValue(nil).IsNull())

	v := ScalarValue(0)
	assert.False(t, v.IsNull())
	assert.Equal(t, KindValue, v.Kind)
}

func TestLifecycleHooks_Merge(t *testing.T) {
	var calls []string
	a := LifecycleHooks{OnFrameEnd: func(_ context.Context, _ *FrameEvent) { calls = append(calls, "a") }}
	b := LifecycleHooks{OnFrameEnd: func(_ context.Context, _ *FrameEvent) { calls = append(calls, "b") }}

	m := a.Merge(b)
	m.OnFrameEnd(context.Background(), &FrameEvent{})
	assert.Equal(t, []string{"a", "b"}, calls)
	assert.Nil(t, m.OnCompile)
}
