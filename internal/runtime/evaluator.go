// Package runtime evaluates a patch snapshot once per frame.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/patchbay/internal/logging"
	"github.com/aretw0/patchbay/internal/script"
	"github.com/aretw0/patchbay/pkg/canvas"
	"github.com/aretw0/patchbay/pkg/domain"
	"github.com/aretw0/patchbay/pkg/ports"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Definitions resolves node definitions by id.
type Definitions interface {
	Lookup(id string) (domain.Definition, error)
}

var (
	errorBackground = rgb(50, 0, 0)
	geometryStroke  = rgb(234, 179, 8)
)

// Evaluator runs every node of a snapshot against its own surface and keeps
// the resulting values for the next frame.
//
// Evaluate must not be called concurrently with itself; the read accessors
// are safe from any goroutine.
type Evaluator struct {
	defs      Definitions
	compiler  *script.Compiler
	pool      *Pool
	presenter ports.Presenter
	sink      ports.LogSink
	logger    *slog.Logger
	hooks     domain.LifecycleHooks
	tracer    trace.Tracer
	ordering  Ordering
	budget    time.Duration

	frameMu sync.Mutex
	frame   atomic.Uint64
	lastErr map[string]string

	mu      sync.RWMutex
	outputs map[string]domain.Value
	display map[string]map[string]float64
}

// Option configures an Evaluator.
type Option func(*config)

type config struct {
	logger     *slog.Logger
	sink       ports.LogSink
	presenter  ports.Presenter
	hooks      domain.LifecycleHooks
	tracer     trace.Tracer
	ordering   Ordering
	budget     time.Duration
	width      int
	height     int
	scriptOpts []script.Option
}

// WithLogger sets the operator logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithLogSink sets where script logs and node errors are reported.
func WithLogSink(s ports.LogSink) Option {
	return func(c *config) { c.sink = s }
}

// WithPresenter sets where node surfaces are shown after each run.
func WithPresenter(p ports.Presenter) Option {
	return func(c *config) { c.presenter = p }
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(h domain.LifecycleHooks) Option {
	return func(c *config) { c.hooks = h }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(c *config) { c.tracer = t }
}

// WithOrdering selects the node sequencing strategy.
func WithOrdering(o Ordering) Option {
	return func(c *config) { c.ordering = o }
}

// WithNodeBudget aborts a single script run after d. Zero disables the limit.
func WithNodeBudget(d time.Duration) Option {
	return func(c *config) { c.budget = d }
}

// WithSurfaceSize sets the size of node surfaces.
func WithSurfaceSize(w, h int) Option {
	return func(c *config) { c.width, c.height = w, h }
}

// WithScriptOptions forwards options to the script compiler.
func WithScriptOptions(opts ...script.Option) Option {
	return func(c *config) { c.scriptOpts = append(c.scriptOpts, opts...) }
}

// New creates an evaluator. Surfaces are allocated through factory.
func New(defs Definitions, factory ports.SurfaceFactory, opts ...Option) (*Evaluator, error) {
	cfg := config{
		width:  canvas.PreviewWidth,
		height: canvas.PreviewHeight,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logging.NewNop()
	}
	if cfg.sink == nil {
		cfg.sink = ports.NopSink
	}
	if cfg.tracer == nil {
		cfg.tracer = otel.Tracer("github.com/aretw0/patchbay/internal/runtime")
	}

	compiler, err := script.New(cfg.scriptOpts...)
	if err != nil {
		return nil, fmt.Errorf("script compiler: %w", err)
	}

	return &Evaluator{
		defs:      defs,
		compiler:  compiler,
		pool:      NewPool(factory, cfg.width, cfg.height),
		presenter: cfg.presenter,
		sink:      cfg.sink,
		logger:    cfg.logger,
		hooks:     cfg.hooks,
		tracer:    cfg.tracer,
		ordering:  cfg.ordering,
		budget:    cfg.budget,
		lastErr:   make(map[string]string),
		outputs:   make(map[string]domain.Value),
		display:   make(map[string]map[string]float64),
	}, nil
}

// frameState is the working set of one Evaluate call.
type frameState struct {
	snap *domain.Snapshot
	t    float64
	keys script.KeyState
	cur  map[string]domain.Value
	prev map[string]domain.Value
	// done marks sources readable from cur; nil in declaration order.
	done map[string]bool
}

func (f *frameState) read(id string) domain.Value {
	if f.done != nil && f.done[id] {
		return f.cur[id]
	}
	return f.prev[id]
}

// Evaluate runs one frame of snap at time t seconds. Node failures are
// contained and reported; the returned error is only for a cancelled context.
func (e *Evaluator) Evaluate(ctx context.Context, snap *domain.Snapshot, t float64, keys script.KeyState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snap == nil {
		snap = &domain.Snapshot{}
	}
	e.frameMu.Lock()
	defer e.frameMu.Unlock()

	frame := e.frame.Add(1)
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "patchbay.frame", trace.WithAttributes(
		attribute.Int64("patchbay.frame", int64(frame)),
		attribute.Int64("patchbay.version", int64(snap.Version)),
		attribute.Int("patchbay.nodes", len(snap.Nodes)),
	))
	defer span.End()

	if e.hooks.OnFrameStart != nil {
		e.hooks.OnFrameStart(ctx, &domain.FrameEvent{
			EventBase: e.event(domain.EventFrameStart),
			Version:   snap.Version,
			Nodes:     len(snap.Nodes),
		})
	}

	e.reconcile(snap)

	e.mu.RLock()
	prev := e.outputs
	e.mu.RUnlock()

	fs := &frameState{
		snap: snap,
		t:    t,
		keys: keys,
		cur:  make(map[string]domain.Value, len(snap.Nodes)),
		prev: prev,
	}
	order := make([]int, len(snap.Nodes))
	for i := range order {
		order[i] = i
	}
	if e.ordering == OrderTopological {
		order = topoOrder(snap)
		fs.done = make(map[string]bool, len(snap.Nodes))
	}

	for _, i := range order {
		n := snap.Nodes[i]
		fs.cur[n.ID] = e.evalNode(ctx, fs, n)
		if fs.done != nil {
			fs.done[n.ID] = true
		}
	}

	e.mu.Lock()
	e.outputs = fs.cur
	e.mu.Unlock()

	if e.hooks.OnFrameEnd != nil {
		e.hooks.OnFrameEnd(ctx, &domain.FrameEvent{
			EventBase: e.event(domain.EventFrameEnd),
			Version:   snap.Version,
			Nodes:     len(snap.Nodes),
			Duration:  time.Since(start),
		})
	}
	return nil
}

// reconcile syncs the surface pool and forgets everything about removed nodes.
func (e *Evaluator) reconcile(snap *domain.Snapshot) {
	gone := e.pool.Sync(snap.IDs())
	if len(gone) == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range gone {
		e.compiler.Evict(id)
		delete(e.outputs, id)
		delete(e.display, id)
		delete(e.lastErr, id)
	}
	e.logger.Debug("released nodes", "count", len(gone))
}

func (e *Evaluator) evalNode(ctx context.Context, fs *frameState, n domain.Node) domain.Value {
	def, err := e.defs.Lookup(n.DefinitionID)
	if err != nil {
		e.logger.Warn("skipping node", "node_id", n.ID, "err", err)
		return domain.Null
	}
	surface, ok := e.pool.Surface(n.ID)
	if !ok {
		return domain.Null
	}

	inputs := e.resolveInputs(fs, n.ID, def.Ports())
	params := e.resolveParams(fs, n)
	e.mu.Lock()
	e.display[n.ID] = params
	e.mu.Unlock()

	compileStart := time.Now()
	prog, fresh, err := e.compiler.Program(n.ID, n.Script)
	if fresh && e.hooks.OnCompile != nil {
		e.hooks.OnCompile(ctx, &domain.CompileEvent{
			EventBase: e.event(domain.EventCompile),
			NodeID:    n.ID,
			Duration:  time.Since(compileStart),
			Err:       err,
		})
	}
	if err != nil {
		if fresh {
			e.sink.Log(domain.NewLogEntry(domain.LogError, n.ID, fmt.Sprintf("Compile Error %s: %s", n.ID, err)))
			e.nodeError(ctx, n.ID, true, err)
		}
		paintError(surface, err.Error())
		e.present(n.ID, surface, domain.Null)
		return domain.Null
	}

	out, err := e.execute(ctx, fs, n.ID, def, prog, surface, inputs, params)
	if err != nil {
		paintError(surface, err.Error())
		e.runtimeError(ctx, n.ID, err)
		out = domain.Null
	} else {
		delete(e.lastErr, n.ID)
	}
	e.present(n.ID, surface, out)
	return out
}

// present shows the node's result, or its surface when it produced no
// texture, on the preview registered for id.
func (e *Evaluator) present(id string, surface canvas.Surface, out domain.Value) {
	if e.presenter == nil {
		return
	}
	target, ok := e.presenter.Target(id)
	if !ok {
		return
	}
	tex := out.Texture
	if tex == nil {
		tex = surface.Snapshot()
	}
	target.Present(tex)
}

func (e *Evaluator) resolveInputs(fs *frameState, id string, slots int) []domain.Value {
	inputs := make([]domain.Value, slots)
	for _, ed := range fs.snap.EdgesInto(id) {
		if ed.IsModulation() || ed.InputIndex < 0 || ed.InputIndex >= slots {
			continue
		}
		inputs[ed.InputIndex] = fs.read(ed.Source)
	}
	return inputs
}

// resolveParams overlays scalar modulation sources on the stored values.
// The stored node is left untouched.
func (e *Evaluator) resolveParams(fs *frameState, n domain.Node) map[string]float64 {
	params := maps.Clone(n.Params)
	if params == nil {
		params = map[string]float64{}
	}
	for _, ed := range fs.snap.EdgesInto(n.ID) {
		if !ed.IsModulation() {
			continue
		}
		if _, ok := params[ed.ParamKey]; !ok {
			continue
		}
		if v := fs.read(ed.Source); v.Kind == domain.KindValue {
			params[ed.ParamKey] = v.Scalar
		}
	}
	return params
}

// execute runs the script and classifies its result. Panics from surfaces or
// Go procedures are contained here.
func (e *Evaluator) execute(ctx context.Context, fs *frameState, id string, def domain.Definition, prog *script.Program, s canvas.Surface, inputs []domain.Value, params map[string]float64) (out domain.Value, err error) {
	defer func() {
		if rcv := recover(); rcv != nil {
			out, err = domain.Null, &script.RuntimeError{NodeID: id, Message: fmt.Sprint(rcv)}
		}
	}()

	prepare(s)
	f := script.Frame{
		Surface: s,
		Time:    fs.t,
		Inputs:  inputs,
		Params:  params,
		Keys:    fs.keys,
		Log: func(msg string) {
			e.sink.Log(domain.NewLogEntry(domain.LogInfo, id, msg))
		},
	}
	if e.budget > 0 {
		var cancel context.CancelFunc
		f.Context, cancel = context.WithTimeout(ctx, e.budget)
		defer cancel()
	}

	s.Push()
	out, err = prog.Run(f)
	s.Pop()
	if err != nil {
		return domain.Null, err
	}
	return e.classify(def, s, out)
}

// classify turns a script result into the value published for the node's
// declared output kind.
func (e *Evaluator) classify(def domain.Definition, s canvas.Surface, out domain.Value) (domain.Value, error) {
	switch def.OutputKind {
	case domain.KindGeometry:
		if out.Kind != domain.KindGeometry {
			return domain.Null, nil
		}
		s.Push()
		s.Translate(float64(s.Width())/2, float64(s.Height())/2)
		s.NoFill()
		s.Stroke(geometryStroke)
		err := out.Draw.Draw(s)
		s.Pop()
		if err != nil {
			return domain.Null, err
		}
		return out, nil
	case domain.KindValue:
		if out.Kind != domain.KindValue {
			return domain.Null, nil
		}
		return out, nil
	}
	return domain.TextureValue(s.Snapshot()), nil
}

func (e *Evaluator) runtimeError(ctx context.Context, id string, err error) {
	msg := err.Error()
	if e.lastErr[id] != msg {
		e.lastErr[id] = msg
		e.sink.Log(domain.NewLogEntry(domain.LogError, id, fmt.Sprintf("Runtime Error %s: %s", id, msg)))
		var rerr *script.RuntimeError
		if errors.As(err, &rerr) && rerr.Trace != "" {
			e.logger.Debug("script traceback", "node_id", id, "trace", rerr.Trace)
		}
	}
	e.nodeError(ctx, id, false, err)
}

func (e *Evaluator) nodeError(ctx context.Context, id string, compile bool, err error) {
	e.logger.Debug("node failed", "node_id", id, "compile", compile, "err", err)
	span := trace.SpanFromContext(ctx)
	span.RecordError(err, trace.WithAttributes(attribute.String("patchbay.node", id)))
	span.SetStatus(codes.Error, "node failed")
	if e.hooks.OnNodeError != nil {
		e.hooks.OnNodeError(ctx, &domain.NodeErrorEvent{
			EventBase: e.event(domain.EventNodeError),
			NodeID:    id,
			Compile:   compile,
			Err:       err,
		})
	}
}

func (e *Evaluator) event(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, Frame: e.frame.Load()}
}

// Output returns the value a node produced in the last completed frame.
func (e *Evaluator) Output(id string) (domain.Value, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.outputs[id]
	return v, ok
}

// ResolvedParams returns the parameters a node last ran with, modulation
// included.
func (e *Evaluator) ResolvedParams(id string) map[string]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return maps.Clone(e.display[id])
}

// Frames is the number of frames evaluated so far.
func (e *Evaluator) Frames() uint64 {
	return e.frame.Load()
}

// Surfaces is the number of live node surfaces.
func (e *Evaluator) Surfaces() int {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	return e.pool.Len()
}

// Close disposes every surface and the script interpreter.
func (e *Evaluator) Close() {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	e.pool.Close()
	e.compiler.Close()
}
