package patchbay

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/patchbay/internal/input"
	"github.com/aretw0/patchbay/internal/logging"
	"github.com/aretw0/patchbay/internal/runtime"
	"github.com/aretw0/patchbay/internal/script"
	"github.com/aretw0/patchbay/pkg/adapters/memory"
	"github.com/aretw0/patchbay/pkg/adapters/raster"
	"github.com/aretw0/patchbay/pkg/canvas"
	"github.com/aretw0/patchbay/pkg/domain"
	"github.com/aretw0/patchbay/pkg/graph"
	"github.com/aretw0/patchbay/pkg/ports"
	"github.com/aretw0/patchbay/pkg/registry"
	"go.opentelemetry.io/otel/trace"
)

//go:embed VERSION
var version string

// Version is the release of this module.
var Version = strings.TrimSpace(version)

// DefaultFPS is the frame rate of Run when none is configured.
const DefaultFPS = 60

// Ordering selects how nodes are sequenced within a frame.
type Ordering = runtime.Ordering

const (
	OrderDeclaration = runtime.OrderDeclaration
	OrderTopological = runtime.OrderTopological
)

// ParseOrdering accepts "declaration" or "topological".
func ParseOrdering(s string) (Ordering, error) {
	return runtime.ParseOrdering(s)
}

// Engine is the high-level entry point of the library. It owns the graph
// editor, the frame evaluator and the keyboard, and keeps the evaluator fed
// with the latest published snapshot.
type Engine struct {
	defs      *registry.Registry
	editor    *graph.Editor
	evaluator *runtime.Evaluator
	keyboard  *input.Keyboard
	previews  *memory.Presenter

	snap    atomic.Pointer[domain.Snapshot]
	frameMu sync.Mutex
	start   time.Time

	factory   ports.SurfaceFactory
	presenter ports.Presenter
	sink      ports.LogSink
	sources   []ports.KeySource
	fps       int
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	evalOpts  []runtime.Option
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the operator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks. Repeated calls add to
// the hooks already registered.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		e.evalOpts = append(e.evalOpts, runtime.WithTracer(t))
	}
}

// WithDefinitions replaces the built-in node definitions.
func WithDefinitions(defs *registry.Registry) Option {
	return func(e *Engine) {
		e.defs = defs
	}
}

// WithSurfaceFactory sets how node surfaces are allocated (default: raster).
func WithSurfaceFactory(f ports.SurfaceFactory) Option {
	return func(e *Engine) {
		e.factory = f
	}
}

// WithPresenter sets where node surfaces are shown after each run.
func WithPresenter(p ports.Presenter) Option {
	return func(e *Engine) {
		e.presenter = p
	}
}

// WithPreviews keeps the latest texture of every node for Preview.
func WithPreviews() Option {
	return func(e *Engine) {
		e.previews = memory.NewAutoPresenter()
	}
}

// WithLogSink sets where script logs and node errors are reported.
func WithLogSink(s ports.LogSink) Option {
	return func(e *Engine) {
		e.sink = s
	}
}

// WithKeySource attaches a key event producer while Run is active.
func WithKeySource(src ports.KeySource) Option {
	return func(e *Engine) {
		e.sources = append(e.sources, src)
	}
}

// WithOrdering selects the node sequencing strategy.
func WithOrdering(o Ordering) Option {
	return func(e *Engine) {
		e.evalOpts = append(e.evalOpts, runtime.WithOrdering(o))
	}
}

// WithFPS sets the frame rate of Run.
func WithFPS(fps int) Option {
	return func(e *Engine) {
		e.fps = fps
	}
}

// WithSurfaceSize sets the size of node surfaces.
func WithSurfaceSize(w, h int) Option {
	return func(e *Engine) {
		e.evalOpts = append(e.evalOpts, runtime.WithSurfaceSize(w, h))
	}
}

// WithNodeBudget aborts a single script run after d. Zero disables the limit.
func WithNodeBudget(d time.Duration) Option {
	return func(e *Engine) {
		e.evalOpts = append(e.evalOpts, runtime.WithNodeBudget(d))
	}
}

// WithProtoCacheSize bounds the compiled script cache.
func WithProtoCacheSize(n int) Option {
	return func(e *Engine) {
		e.evalOpts = append(e.evalOpts, runtime.WithScriptOptions(script.WithProtoCacheSize(n)))
	}
}

// WithNoiseSeed fixes the seed of the noise() script builtin.
func WithNoiseSeed(seed int64) Option {
	return func(e *Engine) {
		e.evalOpts = append(e.evalOpts, runtime.WithScriptOptions(script.WithNoiseSeed(seed)))
	}
}

// New creates an engine over an empty graph.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		keyboard: input.NewKeyboard(),
		fps:      DefaultFPS,
		start:    time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.defs == nil {
		e.defs = registry.Builtin()
	}
	if e.factory == nil {
		e.factory = raster.Factory{}
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.sink == nil {
		e.sink = ports.NopSink
	}
	if e.fps <= 0 {
		return nil, fmt.Errorf("invalid fps %d", e.fps)
	}

	presenter := e.presenter
	if e.previews != nil {
		presenter = ports.MultiPresenter(e.presenter, e.previews)
	}

	evalOpts := []runtime.Option{
		runtime.WithLogger(e.logger),
		runtime.WithLogSink(e.sink),
		runtime.WithPresenter(presenter),
		runtime.WithLifecycleHooks(e.hooks),
	}
	evalOpts = append(evalOpts, e.evalOpts...)

	ev, err := runtime.New(e.defs, e.factory, evalOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create evaluator: %w", err)
	}
	e.evaluator = ev
	e.editor = graph.NewEditor(e.defs, graph.WithSubscriber(e.snap.Store))
	e.snap.Store(e.editor.Snapshot())
	return e, nil
}

// Editor returns the mutation surface of the graph.
func (e *Engine) Editor() ports.GraphEditor {
	return e.editor
}

// Snapshot returns the latest published graph.
func (e *Engine) Snapshot() *domain.Snapshot {
	return e.snap.Load()
}

// Definitions lists the node definitions the engine accepts.
func (e *Engine) Definitions() []domain.Definition {
	return e.defs.List()
}

// Keyboard returns the listener that raw key events should be sent to.
func (e *Engine) Keyboard() *input.Keyboard {
	return e.keyboard
}

// Output returns the value a node produced in the last frame.
func (e *Engine) Output(nodeID string) (domain.Value, bool) {
	return e.evaluator.Output(nodeID)
}

// ResolvedParams returns a node's parameters as seen by its last run,
// modulation included.
func (e *Engine) ResolvedParams(nodeID string) map[string]float64 {
	return e.evaluator.ResolvedParams(nodeID)
}

// Preview returns the latest texture of a node. It needs WithPreviews.
func (e *Engine) Preview(nodeID string) (*canvas.Texture, bool) {
	if e.previews == nil {
		return nil, false
	}
	return e.previews.Latest(nodeID)
}

// Frames returns how many frames have been evaluated.
func (e *Engine) Frames() uint64 {
	return e.evaluator.Frames()
}

// Frame evaluates the current graph at the time elapsed since New.
func (e *Engine) Frame(ctx context.Context) error {
	return e.FrameAt(ctx, time.Since(e.start).Seconds())
}

// FrameAt evaluates the current graph at t seconds.
func (e *Engine) FrameAt(ctx context.Context, t float64) error {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()

	keys := e.keyboard.BeginFrame()
	defer e.keyboard.EndFrame()
	return e.evaluator.Evaluate(ctx, e.snap.Load(), t, keys)
}

// Run evaluates frames at the configured rate until ctx is done. Key sources
// are attached for the duration of the call.
func (e *Engine) Run(ctx context.Context) error {
	for _, src := range e.sources {
		detach, err := src.Attach(e.keyboard)
		if err != nil {
			return fmt.Errorf("failed to attach key source: %w", err)
		}
		defer detach()
	}

	ticker := time.NewTicker(time.Second / time.Duration(e.fps))
	defer ticker.Stop()
	e.logger.Info("engine running", "fps", e.fps)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := e.Frame(ctx); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil
				}
				return err
			}
		}
	}
}

// Load replaces the graph with the one held by src.
func (e *Engine) Load(ctx context.Context, src ports.SnapshotSource) error {
	snap, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load graph: %w", err)
	}
	if err := e.editor.Replace(snap); err != nil {
		return fmt.Errorf("failed to apply graph: %w", err)
	}
	e.logger.Debug("graph loaded", "nodes", len(snap.Nodes), "edges", len(snap.Edges))
	return nil
}

// Watch reloads the graph whenever src reports a change, until ctx is done.
// A failed reload keeps the previous graph and is reported to the console.
func (e *Engine) Watch(ctx context.Context, src ports.SnapshotSource) error {
	w, ok := src.(ports.Watchable)
	if !ok {
		return fmt.Errorf("source does not support watching")
	}
	ch, err := w.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch source: %w", err)
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
			}
			prev := e.Snapshot()
			if err := e.Load(ctx, src); err != nil {
				e.logger.Warn("reload failed", "err", err)
				e.sink.Log(domain.NewLogEntry(domain.LogError, "", "Reload Error: "+err.Error()))
				continue
			}
			diff := domain.Diff(prev, e.Snapshot())
			e.sink.Log(domain.NewLogEntry(domain.LogSuccess, "", fmt.Sprintf("Graph reloaded (%s)", diff)))
		}
	}()
	return nil
}

// Close releases every node surface.
func (e *Engine) Close() {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	e.evaluator.Close()
}
