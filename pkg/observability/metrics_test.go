package observability_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/patchbay/pkg/domain"
	"github.com/aretw0/patchbay/pkg/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	m := observability.NewMetrics()
	hooks := m.Hooks()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		hooks.OnFrameEnd(ctx, &domain.FrameEvent{Nodes: 4, Duration: 2 * time.Millisecond})
	}
	hooks.OnNodeError(ctx, &domain.NodeErrorEvent{NodeID: "a", Compile: true, Err: errors.New("x")})
	hooks.OnNodeError(ctx, &domain.NodeErrorEvent{NodeID: "a", Err: errors.New("y")})
	hooks.OnNodeError(ctx, &domain.NodeErrorEvent{NodeID: "a", Err: errors.New("z")})
	hooks.OnCompile(ctx, &domain.CompileEvent{NodeID: "a", Duration: time.Millisecond})
	hooks.OnCompile(ctx, &domain.CompileEvent{NodeID: "b", Cached: true})

	expected := `
# HELP patchbay_frames_total Total number of evaluated frames
# TYPE patchbay_frames_total counter
patchbay_frames_total 3
# HELP patchbay_nodes Nodes in the last evaluated snapshot
# TYPE patchbay_nodes gauge
patchbay_nodes 4
# HELP patchbay_node_errors_total Contained node failures
# TYPE patchbay_node_errors_total counter
patchbay_node_errors_total{node_id="a",phase="compile"} 1
patchbay_node_errors_total{node_id="a",phase="runtime"} 2
# HELP patchbay_script_compiles_total Script compilations, split by shared proto cache hits
# TYPE patchbay_script_compiles_total counter
patchbay_script_compiles_total{cached="false"} 1
patchbay_script_compiles_total{cached="true"} 1
`
	err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"patchbay_frames_total", "patchbay_nodes", "patchbay_node_errors_total", "patchbay_script_compiles_total")
	assert.NoError(t, err)
}

func TestMetrics_Handler(t *testing.T) {
	m := observability.NewMetrics()
	m.Hooks().OnFrameEnd(context.Background(), &domain.FrameEvent{Nodes: 1})

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "patchbay_frames_total 1")
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestInitTracing_Disabled(t *testing.T) {
	tp, err := observability.InitTracing(context.Background(), observability.DefaultTracingConfig())
	require.NoError(t, err)
	assert.False(t, tp.Enabled())
	assert.NotNil(t, tp.Tracer())
	assert.NoError(t, tp.Shutdown(context.Background()))
}
