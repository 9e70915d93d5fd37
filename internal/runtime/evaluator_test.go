package runtime_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/aretw0/patchbay/internal/logging"
	"github.com/aretw0/patchbay/internal/runtime"
	"github.com/aretw0/patchbay/pkg/canvas"
	"github.com/aretw0/patchbay/pkg/canvas/canvastest"
	"github.com/aretw0/patchbay/pkg/domain"
	"github.com/aretw0/patchbay/pkg/ports"
	"github.com/aretw0/patchbay/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDefs(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.NewRegistry()
	for _, d := range []domain.Definition{
		{ID: "NUM", OutputKind: domain.KindValue},
		{ID: "DOUBLE", InputKind: domain.KindValue, OutputKind: domain.KindValue},
		{ID: "MIX", InputKind: domain.KindValue, OutputKind: domain.KindValue, InputCount: 2},
		{ID: "SHAPE", OutputKind: domain.KindGeometry},
		{ID: "PAINT", InputKind: domain.KindGeometry, OutputKind: domain.KindTexture},
		{ID: "OUT", InputKind: domain.KindTexture},
	} {
		require.NoError(t, r.Register(d))
	}
	return r
}

type logRecorder struct {
	mu      sync.Mutex
	entries []domain.LogEntry
}

func (l *logRecorder) Log(e domain.LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

func (l *logRecorder) count(level domain.LogLevel, prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.Level == level && strings.HasPrefix(e.Message, prefix) {
			n++
		}
	}
	return n
}

type target struct{ frames []*canvas.Texture }

func (t *target) Present(tex *canvas.Texture) { t.frames = append(t.frames, tex) }

type presenter map[string]*target

func (p presenter) Target(id string) (ports.PreviewTarget, bool) {
	t, ok := p[id]
	return t, ok
}

func newEvaluator(t *testing.T, opts ...runtime.Option) (*runtime.Evaluator, *canvastest.Factory) {
	t.Helper()
	f := &canvastest.Factory{}
	ev, err := runtime.New(testDefs(t), f, opts...)
	require.NoError(t, err)
	t.Cleanup(ev.Close)
	return ev, f
}

func node(id, def, src string) domain.Node {
	return domain.Node{ID: id, DefinitionID: def, Script: src}
}

func frames(t *testing.T, ev *runtime.Evaluator, snap *domain.Snapshot, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, ev.Evaluate(context.Background(), snap, float64(i), nil))
	}
}

func scalar(t *testing.T, ev *runtime.Evaluator, id string) float64 {
	t.Helper()
	v, ok := ev.Output(id)
	require.True(t, ok, "no output for %s", id)
	require.Equal(t, domain.KindValue, v.Kind, "output of %s", id)
	return v.Scalar
}

func TestEvaluator_DeclarationOrderReadsPreviousFrame(t *testing.T) {
	ev, _ := newEvaluator(t)
	snap := &domain.Snapshot{
		Nodes: []domain.Node{
			node("src", "NUM", "return 5"),
			node("dbl", "DOUBLE", "return (input or 0) * 2"),
		},
		Edges: []domain.Edge{{ID: "e1", Source: "src", Target: "dbl"}},
	}

	frames(t, ev, snap, 1)
	assert.Equal(t, 0.0, scalar(t, ev, "dbl"), "first frame has no previous output")

	frames(t, ev, snap, 1)
	assert.Equal(t, 10.0, scalar(t, ev, "dbl"))
}

func TestEvaluator_TopologicalOrder(t *testing.T) {
	ev, _ := newEvaluator(t, runtime.WithOrdering(runtime.OrderTopological))
	snap := &domain.Snapshot{
		Nodes: []domain.Node{
			node("c", "DOUBLE", "return (input or 0) * 2"),
			node("b", "DOUBLE", "return (input or 0) * 2"),
			node("a", "NUM", "return 3"),
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "a", Target: "b"},
			{ID: "e2", Source: "b", Target: "c"},
		},
	}
	frames(t, ev, snap, 1)
	assert.Equal(t, 12.0, scalar(t, ev, "c"))
}

func TestEvaluator_Modulation(t *testing.T) {
	ev, _ := newEvaluator(t)
	target := domain.Node{
		ID: "n", DefinitionID: "NUM", Script: "return params.size",
		Params: map[string]float64{"size": 1},
	}
	snap := &domain.Snapshot{
		Nodes: []domain.Node{node("osc", "NUM", "return 7"), target},
		Edges: []domain.Edge{{ID: "m", Source: "osc", Target: "n", ParamKey: "size"}},
	}

	frames(t, ev, snap, 1)
	assert.Equal(t, 1.0, scalar(t, ev, "n"), "no modulation value yet")

	frames(t, ev, snap, 1)
	assert.Equal(t, 7.0, scalar(t, ev, "n"))
	assert.Equal(t, map[string]float64{"size": 7}, ev.ResolvedParams("n"))
	assert.Equal(t, 1.0, snap.Nodes[1].Params["size"], "stored value untouched")
}

func TestEvaluator_PoolFollowsSnapshot(t *testing.T) {
	ev, f := newEvaluator(t)
	snap := &domain.Snapshot{Nodes: []domain.Node{node("a", "NUM", "return 1"), node("b", "NUM", "return 2")}}
	frames(t, ev, snap, 2)
	assert.Equal(t, 2, ev.Surfaces())
	require.Len(t, f.Made, 2)
	assert.Equal(t, canvas.PreviewWidth, f.Made[0].Width())

	next := &domain.Snapshot{Version: 2, Nodes: snap.Nodes[:1]}
	frames(t, ev, next, 1)
	assert.Equal(t, 1, ev.Surfaces())
	assert.True(t, f.Made[1].Disposed)
	_, ok := ev.Output("b")
	assert.False(t, ok)
	assert.Nil(t, ev.ResolvedParams("b"))

	// Re-adding an id allocates a fresh surface.
	frames(t, ev, snap, 1)
	assert.Len(t, f.Made, 3)
}

func TestEvaluator_CompileErrorLoggedOnce(t *testing.T) {
	logs := &logRecorder{}
	var nodeErrors int
	ev, _ := newEvaluator(t,
		runtime.WithLogSink(logs),
		runtime.WithLifecycleHooks(domain.LifecycleHooks{
			OnNodeError: func(_ context.Context, e *domain.NodeErrorEvent) {
				assert.True(t, e.Compile)
				nodeErrors++
			},
		}),
	)
	snap := &domain.Snapshot{Nodes: []domain.Node{node("bad", "NUM", "return (")}}

	frames(t, ev, snap, 3)
	assert.Equal(t, 1, logs.count(domain.LogError, "Compile Error bad:"))
	assert.Equal(t, 1, nodeErrors)
	v, _ := ev.Output("bad")
	assert.True(t, v.IsNull())

	snap.Nodes[0].Script = "return (("
	frames(t, ev, snap, 1)
	assert.Equal(t, 2, logs.count(domain.LogError, "Compile Error bad:"))
}

func TestEvaluator_CompileErrorLeavesSiblingsRunning(t *testing.T) {
	p := presenter{"bad": &target{}}
	ev, f := newEvaluator(t, runtime.WithPresenter(p))
	snap := &domain.Snapshot{Nodes: []domain.Node{
		node("bad", "OUT", "pg:background("),
		node("good", "NUM", "return 3 + t"),
	}}

	frames(t, ev, snap, 2)
	assert.Equal(t, 4.0, scalar(t, ev, "good"))
	v, ok := ev.Output("bad")
	require.True(t, ok)
	assert.True(t, v.IsNull())

	assert.True(t, f.Made[0].Has("background 50 0 0 255"))
	require.Len(t, p["bad"].frames, 2, "a broken node is still shown every frame")
	assert.Equal(t, uint8(50), p["bad"].frames[1].Get(0, 0).R)
}

func TestEvaluator_UnwiredSlotsStayNil(t *testing.T) {
	ev, _ := newEvaluator(t, runtime.WithOrdering(runtime.OrderTopological))
	snap := &domain.Snapshot{
		Nodes: []domain.Node{
			node("src", "NUM", "return 5"),
			node("mix", "MIX", `
local first = (input == nil and inputs[1] == nil) and 10 or 0
return inputs.n * 100 + first + (inputs[2] or 0)`),
		},
		Edges: []domain.Edge{{ID: "e", Source: "src", Target: "mix", InputIndex: 1}},
	}
	frames(t, ev, snap, 1)
	assert.Equal(t, 215.0, scalar(t, ev, "mix"))
}

func TestEvaluator_GlobalsStayWithTheirNode(t *testing.T) {
	ev, _ := newEvaluator(t)
	snap := &domain.Snapshot{Nodes: []domain.Node{
		node("a", "NUM", "shared = 42; count = (count or 0) + 1; return count"),
		node("b", "NUM", "return (shared or 0) + (count or 0)"),
	}}
	frames(t, ev, snap, 3)
	assert.Equal(t, 3.0, scalar(t, ev, "a"))
	assert.Equal(t, 0.0, scalar(t, ev, "b"))
}

func TestEvaluator_NodesCannotBreakSharedLibraries(t *testing.T) {
	ev, _ := newEvaluator(t)
	snap := &domain.Snapshot{Nodes: []domain.Node{
		node("vandal", "NUM", "_G.math = nil; return 1"),
		node("wrecker", "NUM", "math.floor = nil; string = nil; p.noise = nil; return 1"),
		node("victim", "NUM", "return math.floor(2.5) + #string.rep('a', 2) + p.noise(0.5) * 0"),
	}}

	frames(t, ev, snap, 2)
	assert.Equal(t, 4.0, scalar(t, ev, "victim"))
	assert.Equal(t, 1.0, scalar(t, ev, "wrecker"))
	v, _ := ev.Output("vandal")
	assert.True(t, v.IsNull(), "_G is not reachable")

	// Removing the wrecker leaves nothing behind.
	next := &domain.Snapshot{Version: 2, Nodes: []domain.Node{snap.Nodes[2]}}
	frames(t, ev, next, 1)
	assert.Equal(t, 4.0, scalar(t, ev, "victim"))
}

func TestEvaluator_RuntimeError(t *testing.T) {
	logs := &logRecorder{}
	ev, f := newEvaluator(t, runtime.WithLogSink(logs))
	snap := &domain.Snapshot{Nodes: []domain.Node{node("n", "PAINT", `error("broken " .. math.floor(t / 2))`)}}

	frames(t, ev, snap, 2)
	rec := f.Made[0]
	assert.True(t, rec.Has("background 50 0 0 255"))
	assert.True(t, rec.Has(`text "script:1: broken 0" 5 15`))
	assert.Equal(t, uint8(50), rec.Get(0, 0).R)
	assert.Equal(t, 1, logs.count(domain.LogError, "Runtime Error n:"), "same message twice")

	require.NoError(t, ev.Evaluate(context.Background(), snap, 2, nil))
	assert.Equal(t, 2, logs.count(domain.LogError, "Runtime Error n:"), "message changed")

	v, _ := ev.Output("n")
	assert.True(t, v.IsNull())
}

func TestEvaluator_RuntimeErrorTraceback(t *testing.T) {
	var buf bytes.Buffer
	ev, _ := newEvaluator(t, runtime.WithLogger(logging.NewWithFormat(&buf, slog.LevelDebug, "text")))
	frames(t, ev, &domain.Snapshot{Nodes: []domain.Node{node("n", "NUM", `error("boom")`)}}, 2)

	assert.Equal(t, 1, strings.Count(buf.String(), "script traceback"), "logged with the first report only")
	assert.Contains(t, buf.String(), "stack traceback")
}

func TestEvaluator_Geometry(t *testing.T) {
	ev, f := newEvaluator(t)
	snap := &domain.Snapshot{
		Nodes: []domain.Node{
			node("shape", "SHAPE", "return function(s) s:circle(0, 0, 20) end"),
			node("paint", "PAINT", "pg:background(0); if input then input(pg) end"),
			node("nothing", "SHAPE", "return 3"),
		},
		Edges: []domain.Edge{{ID: "e", Source: "shape", Target: "paint"}},
	}
	frames(t, ev, snap, 2)

	shape := f.Made[0]
	assert.True(t, shape.Has("translate 100 50"))
	assert.True(t, shape.Has("stroke 234 179 8 255"))
	assert.True(t, shape.Has("circle 0 0 20"))
	v, _ := ev.Output("shape")
	assert.Equal(t, domain.KindGeometry, v.Kind)

	assert.True(t, f.Made[1].Has("circle 0 0 20"), "procedure drawn by consumer")
	out, _ := ev.Output("paint")
	assert.Equal(t, domain.KindTexture, out.Kind)

	none, _ := ev.Output("nothing")
	assert.True(t, none.IsNull())
}

func TestEvaluator_TextureWithoutReturn(t *testing.T) {
	ev, _ := newEvaluator(t)
	snap := &domain.Snapshot{Nodes: []domain.Node{node("n", "OUT", "pg:background(0, 0, 255)")}}
	frames(t, ev, snap, 1)
	v, _ := ev.Output("n")
	require.Equal(t, domain.KindTexture, v.Kind)
	assert.Equal(t, uint8(255), v.Texture.Get(3, 3).B)
}

func TestEvaluator_Presenter(t *testing.T) {
	p := presenter{"shown": &target{}}
	ev, _ := newEvaluator(t, runtime.WithPresenter(p))
	snap := &domain.Snapshot{Nodes: []domain.Node{
		node("shown", "OUT", "pg:background(9)"),
		node("hidden", "OUT", "pg:background(9)"),
	}}
	frames(t, ev, snap, 3)
	require.Len(t, p["shown"].frames, 3)
	assert.Equal(t, uint8(9), p["shown"].frames[2].Get(0, 0).R)
}

func TestEvaluator_ScriptLogAndDefaults(t *testing.T) {
	logs := &logRecorder{}
	ev, f := newEvaluator(t, runtime.WithLogSink(logs))
	snap := &domain.Snapshot{Nodes: []domain.Node{node("n", "OUT", `log("hello", 1)`)}}
	frames(t, ev, snap, 1)

	assert.Equal(t, 1, logs.count(domain.LogInfo, "hello 1"))
	calls := f.Made[0].Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, "clear", calls[0])
	assert.Contains(t, calls, "fill 255 255 255 255")
	assert.Contains(t, calls, "strokeWeight 1")
	assert.Equal(t, 0, f.Made[0].Depth())
}

func TestEvaluator_FrameHooks(t *testing.T) {
	var starts, ends int
	ev, _ := newEvaluator(t, runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnFrameStart: func(context.Context, *domain.FrameEvent) { starts++ },
		OnFrameEnd: func(_ context.Context, e *domain.FrameEvent) {
			ends++
			assert.Equal(t, 1, e.Nodes)
		},
	}))
	frames(t, ev, &domain.Snapshot{Nodes: []domain.Node{node("n", "NUM", "return 1")}}, 4)
	assert.Equal(t, 4, starts)
	assert.Equal(t, 4, ends)
	assert.Equal(t, uint64(4), ev.Frames())
}

func TestEvaluator_CancelledContext(t *testing.T) {
	ev, _ := newEvaluator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, ev.Evaluate(ctx, &domain.Snapshot{}, 0, nil), context.Canceled)
	assert.Zero(t, ev.Frames())
}
