package http

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/patchbay/pkg/adapters/memory"
	"github.com/aretw0/patchbay/pkg/canvas"
	"github.com/aretw0/patchbay/pkg/canvas/canvastest"
	"github.com/aretw0/patchbay/pkg/domain"
	"github.com/aretw0/patchbay/pkg/graph"
	"github.com/aretw0/patchbay/pkg/ports"
	"github.com/aretw0/patchbay/pkg/registry"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	editor   *graph.Editor
	defs     *registry.Registry
	resolved map[string]map[string]float64
	previews map[string]*canvas.Texture
}

func newFakeEngine() *fakeEngine {
	defs := registry.Builtin()
	return &fakeEngine{
		editor:   graph.NewEditor(defs),
		defs:     defs,
		resolved: map[string]map[string]float64{},
		previews: map[string]*canvas.Texture{},
	}
}

func (f *fakeEngine) Editor() ports.GraphEditor { return f.editor }
func (f *fakeEngine) Definitions() []domain.Definition { return f.defs.List() }
func (f *fakeEngine) ResolvedParams(id string) map[string]float64 { return f.resolved[id] }
func (f *fakeEngine) Preview(id string) (*canvas.Texture, bool) {
	t, ok := f.previews[id]
	return t, ok
}

type fakeKeys struct {
	events []string
	focus  bool
}

func (k *fakeKeys) KeyDown(key string) { k.events = append(k.events, "down "+key) }
func (k *fakeKeys) KeyUp(key string) { k.events = append(k.events, "up "+key) }
func (k *fakeKeys) SetTextFocus(f bool) { k.focus = f }

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServer_Health(t *testing.T) {
	h := NewHandler(newFakeEngine(), WithVersion("1.2.3"))
	w := do(t, h, "GET", "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","version":"1.2.3"}`, w.Body.String())
}

func TestServer_Definitions(t *testing.T) {
	h := NewHandler(newFakeEngine())
	w := do(t, h, "GET", "/definitions", "")
	require.Equal(t, http.StatusOK, w.Code)

	var defs []domain.Definition
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &defs))
	assert.Len(t, defs, 11)
}

func TestServer_NodeLifecycle(t *testing.T) {
	eng := newFakeEngine()
	h := NewHandler(eng)

	w := do(t, h, "POST", "/nodes", `{"id":"c","def":"GEO_CIRCLE","x":10,"y":20}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var n domain.Node
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &n))
	assert.Equal(t, 50.0, n.Params["radius"])

	w = do(t, h, "POST", "/nodes", `{"id":"c","def":"GEO_CIRCLE"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, h, "POST", "/nodes", `{"def":"NOPE"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, "POST", "/nodes", `{"def":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, "PUT", "/nodes/c/params/radius", `{"value":75}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, "PUT", "/nodes/c/params/nope", `{"value":1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, h, "PUT", "/nodes/c/params/radius", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	eng.resolved["c"] = map[string]float64{"radius": 99}
	w = do(t, h, "GET", "/nodes/c/params", "")
	require.Equal(t, http.StatusOK, w.Code)
	var params paramsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &params))
	assert.Equal(t, 75.0, params.Stored["radius"])
	assert.Equal(t, 99.0, params.Resolved["radius"])
	assert.Equal(t, 500.0, params.Configs["radius"].Max)

	w = do(t, h, "PUT", "/nodes/c/script", "-- @param size 3\nreturn function(pg) end")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &n))
	assert.Equal(t, map[string]float64{"size": 3}, n.Params)

	w = do(t, h, "PUT", "/nodes/c/position", `{"x":1,"y":2}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	got, _ := eng.editor.Snapshot().Node("c")
	assert.Equal(t, domain.Position{X: 1, Y: 2}, got.Position)

	w = do(t, h, "DELETE", "/nodes/c", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, "DELETE", "/nodes/c", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, h, "GET", "/nodes/c/params", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Edges(t *testing.T) {
	eng := newFakeEngine()
	h := NewHandler(eng)
	for _, body := range []string{
		`{"id":"circle","def":"GEO_CIRCLE"}`,
		`{"id":"render","def":"GEO_RENDER"}`,
		`{"id":"osc","def":"VAL_OSCILLATOR"}`,
		`{"id":"out","def":"FINAL_OUTPUT"}`,
	} {
		require.Equal(t, http.StatusCreated, do(t, h, "POST", "/nodes", body).Code)
	}

	tests := []struct {
		name string
		body string
		want int
	}{
		{"Standard", `{"source":"circle","target":"render","input":0}`, http.StatusCreated},
		{"Modulation", `{"source":"osc","target":"circle","param":"radius"}`, http.StatusCreated},
		{"Type mismatch", `{"source":"circle","target":"out"}`, http.StatusUnprocessableEntity},
		{"Modulation from geometry", `{"source":"circle","target":"render","param":"x"}`, http.StatusUnprocessableEntity},
		{"No such port", `{"source":"circle","target":"render","input":3}`, http.StatusNotFound},
		{"Unknown param", `{"source":"osc","target":"circle","param":"nope"}`, http.StatusNotFound},
		{"Unknown node", `{"source":"ghost","target":"render"}`, http.StatusNotFound},
		{"Self", `{"source":"render","target":"render"}`, http.StatusUnprocessableEntity},
		{"Missing target", `{"source":"circle"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, "POST", "/edges", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	w := do(t, h, "GET", "/nodes/render/inputs", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[0]`, w.Body.String())

	w = do(t, h, "GET", "/graph", "")
	require.Equal(t, http.StatusOK, w.Code)
	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	require.Len(t, snap.Edges, 2)

	w = do(t, h, "DELETE", "/edges/"+snap.Edges[0].ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, "DELETE", "/edges/"+snap.Edges[0].ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Preview(t *testing.T) {
	eng := newFakeEngine()
	s := canvastest.New(4, 2)
	s.Background(canvas.Gray(200))
	eng.previews["n"] = s.Snapshot()
	h := NewHandler(eng)

	w := do(t, h, "GET", "/nodes/n/preview.png", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())

	w = do(t, h, "GET", "/nodes/missing/preview.png", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Input(t *testing.T) {
	keys := &fakeKeys{}
	h := NewHandler(newFakeEngine(), WithKeys(keys))

	assert.Equal(t, http.StatusNoContent, do(t, h, "POST", "/input/keys", `{"key":"a","down":true}`).Code)
	assert.Equal(t, http.StatusNoContent, do(t, h, "POST", "/input/keys", `{"key":"a"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/input/keys", `{"down":true}`).Code)
	assert.Equal(t, []string{"down a", "up a"}, keys.events)

	assert.Equal(t, http.StatusNoContent, do(t, h, "POST", "/input/focus", `{"focused":true}`).Code)
	assert.True(t, keys.focus)

	bare := NewHandler(newFakeEngine())
	assert.Equal(t, http.StatusNotFound, do(t, bare, "POST", "/input/keys", `{"key":"a"}`).Code)
}

func TestServer_Metrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("patchbay_frames_total 1\n"))
	})
	h := NewHandler(newFakeEngine(), WithMetrics(metrics))
	w := do(t, h, "GET", "/metrics", "")
	assert.Contains(t, w.Body.String(), "patchbay_frames_total")

	assert.Equal(t, http.StatusNotFound, do(t, NewHandler(newFakeEngine()), "GET", "/metrics", "").Code)
}

func TestServer_Console(t *testing.T) {
	feed := memory.NewFeed(0)
	hub := NewHub(nil)
	feed.Log(domain.NewLogEntry(domain.LogInfo, "n", "before"))

	srv := httptest.NewServer(NewHandler(newFakeEngine(), WithConsole(feed, hub)))
	defer srv.Close()

	w := do(t, srv.Config.Handler, "GET", "/console", "")
	assert.Contains(t, w.Body.String(), `"before"`)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var msg consoleMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "subscribed", msg.Type)
	require.NoError(t, conn.ReadJSON(&msg))
	require.NotNil(t, msg.Entry)
	assert.Equal(t, "before", msg.Entry.Message)

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	hub.Log(domain.NewLogEntry(domain.LogError, "n", "after"))

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "after", msg.Entry.Message)
	assert.Equal(t, domain.LogError, msg.Entry.Level)
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub(nil)
	ch, cancel := hub.Subscribe()
	hub.Log(domain.NewLogEntry(domain.LogInfo, "", "x"))
	cancel()
	cancel()

	e, ok := <-ch
	assert.True(t, ok)
	assert.Equal(t, "x", e.Message)
	_, ok = <-ch
	assert.False(t, ok)
	assert.Zero(t, hub.Subscribers())

	// Logging with no subscribers is a no-op.
	hub.Log(domain.NewLogEntry(domain.LogInfo, "", "y"))
}
