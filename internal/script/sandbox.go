package script

import (
	"fmt"
	"math"

	lua "github.com/yuin/gopher-lua"
)

// Values of the p.* style constants seen by scripts.
const (
	constCenter   = "center"
	constCorner   = "corner"
	constLeft     = "left"
	constRight    = "right"
	constTop      = "top"
	constBottom   = "bottom"
	constBaseline = "baseline"
)

// removedGlobals would let a script reach the shared global table or its
// metatables, and through them the environment of every other node.
var removedGlobals = []string{
	"dofile", "loadfile", "load", "loadstring", "require", "module",
	"_G", "getfenv", "setfenv", "rawget", "rawset", "setmetatable", "getmetatable", "newproxy",
}

// copiedLibraries are copied into each node environment so writes to them
// stay local to the node.
var copiedLibraries = []string{lua.MathLibName, lua.StringLibName, lua.TabLibName, "p"}

// openSandbox loads the safe subset of the standard library into L.
func openSandbox(L *lua.LState) error {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			return fmt.Errorf("open %q: %w", lib.name, err)
		}
	}
	for _, name := range removedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	return nil
}

// sharedBase copies every global except the per-node libraries. Node
// environments fall back to it, so a node that drops its own copy of a
// library reads nil instead of the shared table.
func (c *Compiler) sharedBase() *lua.LTable {
	skip := make(map[string]bool, len(copiedLibraries))
	for _, name := range copiedLibraries {
		skip[name] = true
	}
	base := c.L.NewTable()
	c.global.ForEach(func(k, v lua.LValue) {
		if name, ok := k.(lua.LString); ok && skip[string(name)] {
			return
		}
		base.RawSet(k, v)
	})
	return base
}

// newEnv creates a node environment. Library tables are shallow copies; every
// other global is read through to the shared base, which scripts cannot reach.
func (c *Compiler) newEnv() *lua.LTable {
	L := c.L
	env := L.NewTable()
	for _, name := range copiedLibraries {
		src, ok := c.global.RawGetString(name).(*lua.LTable)
		if !ok {
			continue
		}
		dst := L.CreateTable(0, src.Len())
		src.ForEach(func(k, v lua.LValue) { dst.RawSet(k, v) })
		env.RawSetString(name, dst)
	}
	mt := L.NewTable()
	mt.RawSetString("__index", c.base)
	L.SetMetatable(env, mt)
	return env
}

// helpers builds the shared `p` table.
func (c *Compiler) helpers() *lua.LTable {
	L := c.L
	p := L.NewTable()
	L.SetFuncs(p, map[string]lua.LGFunction{
		"radians": func(L *lua.LState) int {
			L.Push(lua.LNumber(float64(L.CheckNumber(1)) * math.Pi / 180))
			return 1
		},
		"degrees": func(L *lua.LState) int {
			L.Push(lua.LNumber(float64(L.CheckNumber(1)) * 180 / math.Pi))
			return 1
		},
		"noise": func(L *lua.LState) int {
			x := float64(L.CheckNumber(1))
			y := float64(L.OptNumber(2, 0))
			z := float64(L.OptNumber(3, 0))
			L.Push(lua.LNumber(c.noise(x, y, z)))
			return 1
		},
		"millis": func(L *lua.LState) int {
			L.Push(lua.LNumber(c.now * 1000))
			return 1
		},
		"map": func(L *lua.LState) int {
			v := float64(L.CheckNumber(1))
			a1, b1 := float64(L.CheckNumber(2)), float64(L.CheckNumber(3))
			a2, b2 := float64(L.CheckNumber(4)), float64(L.CheckNumber(5))
			if b1 == a1 {
				L.Push(lua.LNumber(a2))
				return 1
			}
			L.Push(lua.LNumber(a2 + (v-a1)*(b2-a2)/(b1-a1)))
			return 1
		},
		"constrain": func(L *lua.LState) int {
			v := float64(L.CheckNumber(1))
			lo, hi := float64(L.CheckNumber(2)), float64(L.CheckNumber(3))
			L.Push(lua.LNumber(math.Max(lo, math.Min(hi, v))))
			return 1
		},
		"lerp": func(L *lua.LState) int {
			a, b := float64(L.CheckNumber(1)), float64(L.CheckNumber(2))
			t := float64(L.CheckNumber(3))
			L.Push(lua.LNumber(a + (b-a)*t))
			return 1
		},
	})

	for k, v := range map[string]string{
		"CENTER":   constCenter,
		"CORNER":   constCorner,
		"LEFT":     constLeft,
		"RIGHT":    constRight,
		"TOP":      constTop,
		"BOTTOM":   constBottom,
		"BASELINE": constBaseline,
	} {
		p.RawSetString(k, lua.LString(v))
	}
	for _, m := range blendModes {
		p.RawSetString(m.String(), lua.LString(m.String()))
	}
	p.RawSetString("PI", lua.LNumber(math.Pi))
	p.RawSetString("HALF_PI", lua.LNumber(math.Pi/2))
	p.RawSetString("TWO_PI", lua.LNumber(2*math.Pi))
	return p
}

// noise returns Perlin noise mapped into [0, 1].
func (c *Compiler) noise(x, y, z float64) float64 {
	v := (c.perlin.Noise3D(x, y, z) + 1) / 2
	return math.Max(0, math.Min(1, v))
}
