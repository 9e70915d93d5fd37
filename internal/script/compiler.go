// Package script compiles and runs node scripts.
//
// Scripts are Lua 5.1 chunks executed once per frame. A chunk receives its
// arguments as locals: pg (the node surface), t (seconds), input (first input),
// inputs (all input slots, 1-based, with inputs.n slots), params, log and keys.
// The value returned by the chunk becomes the node output.
//
// Every node runs in its own global environment that reads through to a shared
// sandbox, so top-level assignments persist across frames until the script
// text changes. The math, string, table and p libraries are copied per node
// and the shared sandbox is unreachable from scripts, so a node can only
// break itself.
package script

import (
	"context"
	"fmt"
	"strings"

	"github.com/aquilax/go-perlin"
	"github.com/aretw0/patchbay/pkg/canvas"
	"github.com/aretw0/patchbay/pkg/domain"
	lru "github.com/hashicorp/golang-lru/v2"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// prelude binds the calling convention. It shares the first line with the
// script so reported line numbers match the source.
const prelude = "local pg, t, input, inputs, params, log, keys = ...; "

const chunkName = "script"

// DefaultProtoCacheSize bounds the shared compiled-source cache.
const DefaultProtoCacheSize = 256

// KeyState is the keyboard view handed to scripts. input.Snapshot satisfies it.
type KeyState interface {
	IsDown(key string) bool
	WasPressed(key string) bool
}

// Frame carries the per-invocation arguments of a script.
type Frame struct {
	Context context.Context
	Surface canvas.Surface
	Time    float64
	Inputs  []domain.Value
	Params  map[string]float64
	Keys    KeyState
	Log     func(msg string)
}

type entry struct {
	source string
	prog   *Program
	err    error
}

// Compiler owns one Lua interpreter and the per-node cache of compiled scripts.
// It is not safe for concurrent use; the frame loop is its only caller.
type Compiler struct {
	L      *lua.LState
	global *lua.LTable
	base   *lua.LTable // shared globals minus the copied libraries
	perlin *perlin.Perlin
	now    float64

	entries map[string]*entry
	protos  *lru.Cache[string, *lua.FunctionProto]

	surfaceMethods map[string]lua.LValue
}

// Option configures a Compiler.
type Option func(*options)

type options struct {
	cacheSize int
	seed      int64
}

// WithProtoCacheSize sets the number of distinct sources kept compiled.
func WithProtoCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

// WithNoiseSeed fixes the seed of p.noise.
func WithNoiseSeed(seed int64) Option {
	return func(o *options) { o.seed = seed }
}

// New creates a compiler with a fresh sandboxed interpreter.
func New(opts ...Option) (*Compiler, error) {
	o := options{cacheSize: DefaultProtoCacheSize, seed: 1}
	for _, opt := range opts {
		opt(&o)
	}

	protos, err := lru.New[string, *lua.FunctionProto](o.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("proto cache: %w", err)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	if err := openSandbox(L); err != nil {
		L.Close()
		return nil, err
	}

	c := &Compiler{
		L:       L,
		global:  L.G.Global,
		perlin:  perlin.NewPerlin(2, 2, 3, o.seed),
		entries: make(map[string]*entry),
		protos:  protos,
	}
	c.registerTypes()
	L.SetGlobal("p", c.helpers())
	c.base = c.sharedBase()
	return c, nil
}

// Close releases the interpreter.
func (c *Compiler) Close() {
	c.L.Close()
}

// Program returns the executable for a node's current script. The cached entry
// is reused while source is unchanged, including a cached compile error.
// fresh reports whether this call (re)compiled, so callers can report a compile
// error once per text change.
func (c *Compiler) Program(nodeID, source string) (prog *Program, fresh bool, err error) {
	if e, ok := c.entries[nodeID]; ok && e.source == source {
		return e.prog, false, e.err
	}

	e := &entry{source: source}
	proto, err := c.compile(source)
	if err != nil {
		e.err = &CompileError{NodeID: nodeID, Err: err}
	} else {
		e.prog = c.instantiate(nodeID, proto)
	}
	c.entries[nodeID] = e
	return e.prog, true, e.err
}

// Evict drops a node's cached program.
func (c *Compiler) Evict(nodeID string) {
	delete(c.entries, nodeID)
}

// Cached reports whether a node has a cached entry.
func (c *Compiler) Cached(nodeID string) bool {
	_, ok := c.entries[nodeID]
	return ok
}

func (c *Compiler) compile(source string) (*lua.FunctionProto, error) {
	if proto, ok := c.protos.Get(source); ok {
		return proto, nil
	}
	chunk, err := parse.Parse(strings.NewReader(prelude+source), chunkName)
	if err != nil {
		return nil, err
	}
	proto, err := lua.Compile(chunk, chunkName)
	if err != nil {
		return nil, err
	}
	c.protos.Add(source, proto)
	return proto, nil
}

func (c *Compiler) instantiate(nodeID string, proto *lua.FunctionProto) *Program {
	L := c.L
	env := c.newEnv()

	prog := &Program{c: c, nodeID: nodeID, env: env}
	env.RawSetString("print", L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		if prog.log != nil {
			prog.log(strings.Join(parts, " "))
		}
		return 0
	}))

	fn := L.NewFunctionFromProto(proto)
	fn.Env = env
	prog.fn = fn
	return prog
}

// Program is a compiled node script bound to its environment.
type Program struct {
	c      *Compiler
	nodeID string
	fn     *lua.LFunction
	env    *lua.LTable
	log    func(string)
}

// Run executes the script once. Script errors and panics raised by bindings
// are returned as *RuntimeError.
func (p *Program) Run(f Frame) (out domain.Value, err error) {
	c := p.c
	L := c.L
	top := L.GetTop()
	defer func() {
		if rcv := recover(); rcv != nil {
			out, err = domain.Null, panicError(p.nodeID, rcv)
		}
		L.SetTop(top)
		p.log = nil
		if f.Context != nil {
			L.RemoveContext()
		}
	}()

	if f.Context != nil {
		L.SetContext(f.Context)
	}
	c.now = f.Time
	p.log = f.Log

	inputs := L.CreateTable(len(f.Inputs), 1)
	for i, v := range f.Inputs {
		inputs.RawSetInt(i+1, c.toLua(v))
	}
	inputs.RawSetString("n", lua.LNumber(len(f.Inputs)))

	var first lua.LValue = lua.LNil
	if len(f.Inputs) > 0 {
		first = inputs.RawGetInt(1)
	}

	params := L.CreateTable(0, len(f.Params))
	for k, v := range f.Params {
		params.RawSetString(k, lua.LNumber(v))
	}

	if err := L.CallByParam(lua.P{Fn: p.fn, NRet: 1, Protect: true},
		c.surfaceValue(f.Surface),
		lua.LNumber(f.Time),
		first,
		inputs,
		params,
		c.logFunction(f.Log),
		c.keyTable(f.Keys),
	); err != nil {
		return domain.Null, runtimeError(p.nodeID, err)
	}
	return c.fromLua(p.nodeID, L.Get(-1)), nil
}

// luaProcedure is a geometry value produced by a script. It is drawn on the
// interpreter that created it, so it must only be drawn from the frame loop.
type luaProcedure struct {
	c      *Compiler
	nodeID string
	fn     *lua.LFunction
}

func (lp *luaProcedure) Draw(s canvas.Surface) (err error) {
	L := lp.c.L
	top := L.GetTop()
	defer func() {
		if rcv := recover(); rcv != nil {
			err = panicError(lp.nodeID, rcv)
		}
		L.SetTop(top)
	}()
	if err := L.CallByParam(lua.P{Fn: lp.fn, NRet: 0, Protect: true}, lp.c.surfaceValue(s)); err != nil {
		return runtimeError(lp.nodeID, err)
	}
	return nil
}
