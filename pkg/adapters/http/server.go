// Package http exposes the graph editor, previews, keyboard and console feed
// over HTTP and websockets.
package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"net/http"

	"github.com/aretw0/patchbay/internal/logging"
	"github.com/aretw0/patchbay/pkg/canvas"
	"github.com/aretw0/patchbay/pkg/domain"
	"github.com/aretw0/patchbay/pkg/ports"
	"github.com/go-chi/chi/v5"
)

// Engine is the part of the running engine the API drives.
type Engine interface {
	Editor() ports.GraphEditor
	Definitions() []domain.Definition
	ResolvedParams(nodeID string) map[string]float64
	Preview(nodeID string) (*canvas.Texture, bool)
}

// KeyInput receives key events and text-focus changes.
type KeyInput interface {
	ports.KeyListener
	SetTextFocus(focused bool)
}

// Server holds the handler dependencies.
type Server struct {
	Engine  Engine
	Keys    KeyInput
	Console ports.LogFeed
	Hub     *Hub
	Metrics http.Handler
	Version string

	logger *slog.Logger
}

// Option configures the handler.
type Option func(*Server)

// WithKeys routes /input requests to k.
func WithKeys(k KeyInput) Option {
	return func(s *Server) { s.Keys = k }
}

// WithConsole serves the retained entries of feed and streams new entries
// published on hub.
func WithConsole(feed ports.LogFeed, hub *Hub) Option {
	return func(s *Server) {
		s.Console = feed
		s.Hub = hub
	}
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.Metrics = h }
}

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) { s.Version = v }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine: engine,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/definitions", s.GetDefinitions)
	r.Get("/graph", s.GetGraph)

	r.Route("/nodes", func(r chi.Router) {
		r.Post("/", s.AddNode)
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", s.DeleteNode)
			r.Put("/script", s.EditScript)
			r.Put("/position", s.MoveNode)
			r.Get("/params", s.GetParams)
			r.Put("/params/{key}", s.SetParam)
			r.Get("/inputs", s.GetInputs)
			r.Get("/preview.png", s.GetPreview)
		})
	})

	r.Post("/edges", s.AddEdge)
	r.Delete("/edges/{id}", s.DeleteEdge)

	r.Post("/input/keys", s.PostKey)
	r.Post("/input/focus", s.PostFocus)

	r.Get("/console", s.GetConsole)
	r.Get("/ws", s.ServeConsole)

	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics)
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusFor maps editor errors to response codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrTypeMismatch), errors.Is(err, domain.ErrSelfConnection):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNodeNotFound),
		errors.Is(err, domain.ErrNoSuchPort),
		errors.Is(err, domain.ErrEdgeNotFound),
		errors.Is(err, domain.ErrUnknownParam),
		errors.Is(err, domain.ErrUnknownDefinition):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateNode):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.logger.Error(op+" failed", "err", err)
	} else {
		s.logger.Debug(op+" rejected", "err", err, "status", code)
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, op string, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.logger.Warn(op+": invalid request body", "err", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}
	if s.Version != "" {
		resp["version"] = s.Version
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetDefinitions handles GET /definitions.
func (s *Server) GetDefinitions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.Definitions())
}

// GetGraph handles GET /graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.Editor().Snapshot())
}

type addNodeRequest struct {
	ID  string  `json:"id"`
	Def string  `json:"def"`
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
}

// AddNode handles POST /nodes.
func (s *Server) AddNode(w http.ResponseWriter, r *http.Request) {
	var body addNodeRequest
	if !s.decode(w, r, "AddNode", &body) {
		return
	}
	if body.Def == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "def is required"})
		return
	}

	pos := domain.Position{X: body.X, Y: body.Y}
	var (
		n   domain.Node
		err error
	)
	if body.ID != "" {
		n, err = s.Engine.Editor().AddNodeWithID(body.ID, body.Def, pos)
	} else {
		n, err = s.Engine.Editor().AddNode(body.Def, pos)
	}
	if err != nil {
		s.fail(w, "AddNode", err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// DeleteNode handles DELETE /nodes/{id}.
func (s *Server) DeleteNode(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.Editor().DeleteNode(chi.URLParam(r, "id")); err != nil {
		s.fail(w, "DeleteNode", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EditScript handles PUT /nodes/{id}/script. The body is the raw script text.
func (s *Server) EditScript(w http.ResponseWriter, r *http.Request) {
	src, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.Engine.Editor().EditScript(id, string(src)); err != nil {
		s.fail(w, "EditScript", err)
		return
	}
	n, _ := s.Engine.Editor().Snapshot().Node(id)
	writeJSON(w, http.StatusOK, n)
}

// MoveNode handles PUT /nodes/{id}/position.
func (s *Server) MoveNode(w http.ResponseWriter, r *http.Request) {
	var pos domain.Position
	if !s.decode(w, r, "MoveNode", &pos) {
		return
	}
	if err := s.Engine.Editor().Move(chi.URLParam(r, "id"), pos); err != nil {
		s.fail(w, "MoveNode", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type paramsResponse struct {
	Stored   map[string]float64            `json:"stored"`
	Resolved map[string]float64            `json:"resolved,omitempty"`
	Configs  map[string]domain.ParamConfig `json:"configs,omitempty"`
}

// GetParams handles GET /nodes/{id}/params.
func (s *Server) GetParams(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	n, ok := s.Engine.Editor().Snapshot().Node(id)
	if !ok {
		s.fail(w, "GetParams", fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, paramsResponse{
		Stored:   n.Params,
		Resolved: s.Engine.ResolvedParams(id),
		Configs:  n.ParamConfigs,
	})
}

type paramRequest struct {
	Value *float64 `json:"value"`
}

// SetParam handles PUT /nodes/{id}/params/{key}.
func (s *Server) SetParam(w http.ResponseWriter, r *http.Request) {
	var body paramRequest
	if !s.decode(w, r, "SetParam", &body) {
		return
	}
	if body.Value == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "value is required"})
		return
	}
	if err := s.Engine.Editor().SetParam(chi.URLParam(r, "id"), chi.URLParam(r, "key"), *body.Value); err != nil {
		s.fail(w, "SetParam", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetInputs handles GET /nodes/{id}/inputs: the connected input indices.
func (s *Server) GetInputs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap := s.Engine.Editor().Snapshot()
	if _, ok := snap.Node(id); !ok {
		s.fail(w, "GetInputs", fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id))
		return
	}
	connected := snap.ConnectedInputs(id)
	if connected == nil {
		connected = []int{}
	}
	writeJSON(w, http.StatusOK, connected)
}

// GetPreview handles GET /nodes/{id}/preview.png.
func (s *Server) GetPreview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tex, ok := s.Engine.Preview(id)
	if !ok || tex == nil {
		s.fail(w, "GetPreview", fmt.Errorf("%w: no preview for %s", domain.ErrNodeNotFound, id))
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, tex.Image()); err != nil {
		s.fail(w, "GetPreview", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

type edgeRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Input  int    `json:"input"`
	Param  string `json:"param,omitempty"`
}

// AddEdge handles POST /edges. A param connects a modulation edge.
func (s *Server) AddEdge(w http.ResponseWriter, r *http.Request) {
	var body edgeRequest
	if !s.decode(w, r, "AddEdge", &body) {
		return
	}
	if body.Source == "" || body.Target == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "source and target are required"})
		return
	}

	var (
		e   domain.Edge
		err error
	)
	if body.Param != "" {
		e, err = s.Engine.Editor().ConnectParam(body.Source, body.Target, body.Param)
	} else {
		e, err = s.Engine.Editor().Connect(body.Source, body.Target, body.Input)
	}
	if err != nil {
		s.fail(w, "AddEdge", err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// DeleteEdge handles DELETE /edges/{id}.
func (s *Server) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.Editor().RemoveEdge(chi.URLParam(r, "id")); err != nil {
		s.fail(w, "DeleteEdge", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type keyRequest struct {
	Key  string `json:"key"`
	Down bool   `json:"down"`
}

// PostKey handles POST /input/keys.
func (s *Server) PostKey(w http.ResponseWriter, r *http.Request) {
	if s.Keys == nil {
		http.Error(w, "keyboard not attached", http.StatusNotFound)
		return
	}
	var body keyRequest
	if !s.decode(w, r, "PostKey", &body) {
		return
	}
	if body.Key == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "key is required"})
		return
	}
	if body.Down {
		s.Keys.KeyDown(body.Key)
	} else {
		s.Keys.KeyUp(body.Key)
	}
	w.WriteHeader(http.StatusNoContent)
}

// PostFocus handles POST /input/focus.
func (s *Server) PostFocus(w http.ResponseWriter, r *http.Request) {
	if s.Keys == nil {
		http.Error(w, "keyboard not attached", http.StatusNotFound)
		return
	}
	var body struct {
		Focused bool `json:"focused"`
	}
	if !s.decode(w, r, "PostFocus", &body) {
		return
	}
	s.Keys.SetTextFocus(body.Focused)
	w.WriteHeader(http.StatusNoContent)
}

// GetConsole handles GET /console: the retained console entries.
func (s *Server) GetConsole(w http.ResponseWriter, r *http.Request) {
	if s.Console == nil {
		writeJSON(w, http.StatusOK, []domain.LogEntry{})
		return
	}
	entries, err := s.Console.Recent(r.Context(), 0)
	if err != nil {
		s.fail(w, "GetConsole", err)
		return
	}
	if entries == nil {
		entries = []domain.LogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
