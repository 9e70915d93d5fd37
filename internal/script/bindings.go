package script

import (
	"image/color"
	"math"
	"strings"

	"github.com/aretw0/patchbay/pkg/canvas"
	"github.com/aretw0/patchbay/pkg/domain"
	lua "github.com/yuin/gopher-lua"
)

const (
	surfaceTypeName = "patchbay.surface"
	textureTypeName = "patchbay.texture"
)

var blendModes = canvas.BlendModes()

func (c *Compiler) registerTypes() {
	L := c.L

	c.surfaceMethods = map[string]lua.LValue{}
	for name, fn := range surfaceAPI {
		c.surfaceMethods[name] = L.NewFunction(fn)
	}
	smt := L.NewTypeMetatable(surfaceTypeName)
	L.SetField(smt, "__index", L.NewFunction(func(L *lua.LState) int {
		s := checkSurface(L, 1)
		switch key := L.CheckString(2); key {
		case "width":
			L.Push(lua.LNumber(s.Width()))
		case "height":
			L.Push(lua.LNumber(s.Height()))
		default:
			if m, ok := c.surfaceMethods[key]; ok {
				L.Push(m)
			} else {
				L.Push(lua.LNil)
			}
		}
		return 1
	}))

	getFn := L.NewFunction(func(L *lua.LState) int {
		t := checkTexture(L, 1)
		return pushColor(L, t.Get(L.CheckInt(2), L.CheckInt(3)))
	})
	tmt := L.NewTypeMetatable(textureTypeName)
	L.SetField(tmt, "__index", L.NewFunction(func(L *lua.LState) int {
		t := checkTexture(L, 1)
		switch L.CheckString(2) {
		case "width":
			L.Push(lua.LNumber(t.Width()))
		case "height":
			L.Push(lua.LNumber(t.Height()))
		case "get":
			L.Push(getFn)
		default:
			L.Push(lua.LNil)
		}
		return 1
	}))
}

func (c *Compiler) surfaceValue(s canvas.Surface) *lua.LUserData {
	ud := c.L.NewUserData()
	ud.Value = s
	c.L.SetMetatable(ud, c.L.GetTypeMetatable(surfaceTypeName))
	return ud
}

func (c *Compiler) textureValue(t *canvas.Texture) *lua.LUserData {
	ud := c.L.NewUserData()
	ud.Value = t
	c.L.SetMetatable(ud, c.L.GetTypeMetatable(textureTypeName))
	return ud
}

// toLua converts an input value for a script.
func (c *Compiler) toLua(v domain.Value) lua.LValue {
	switch v.Kind {
	case domain.KindGeometry:
		if lp, ok := v.Draw.(*luaProcedure); ok && lp.c == c {
			return lp.fn
		}
		proc := v.Draw
		return c.L.NewFunction(func(L *lua.LState) int {
			if err := proc.Draw(checkSurface(L, 1)); err != nil {
				L.RaiseError("%s", err.Error())
			}
			return 0
		})
	case domain.KindTexture:
		return c.textureValue(v.Texture)
	case domain.KindValue:
		return lua.LNumber(v.Scalar)
	}
	return lua.LNil
}

// fromLua converts a script's return value.
func (c *Compiler) fromLua(nodeID string, lv lua.LValue) domain.Value {
	switch v := lv.(type) {
	case *lua.LFunction:
		return domain.GeometryValue(&luaProcedure{c: c, nodeID: nodeID, fn: v})
	case lua.LNumber:
		return domain.ScalarValue(float64(v))
	case *lua.LUserData:
		switch u := v.Value.(type) {
		case *canvas.Texture:
			return domain.TextureValue(u)
		case canvas.Surface:
			return domain.TextureValue(u.Snapshot())
		}
	}
	return domain.Null
}

func checkSurface(L *lua.LState, n int) canvas.Surface {
	ud := L.CheckUserData(n)
	if s, ok := ud.Value.(canvas.Surface); ok {
		return s
	}
	L.ArgError(n, "surface expected")
	return nil
}

func checkTexture(L *lua.LState, n int) *canvas.Texture {
	ud := L.CheckUserData(n)
	switch v := ud.Value.(type) {
	case *canvas.Texture:
		return v
	case canvas.Surface:
		return v.Snapshot()
	}
	L.ArgError(n, "texture expected")
	return nil
}

func pushColor(L *lua.LState, c color.RGBA) int {
	L.Push(lua.LNumber(c.R))
	L.Push(lua.LNumber(c.G))
	L.Push(lua.LNumber(c.B))
	L.Push(lua.LNumber(c.A))
	return 4
}

func channel(v lua.LNumber) uint8 {
	f := math.Round(float64(v))
	switch {
	case math.IsNaN(f) || f < 0:
		return 0
	case f > 255:
		return 255
	}
	return uint8(f)
}

// checkColor reads a color from argument start onwards:
// (gray), (gray, alpha), (r, g, b) or (r, g, b, alpha).
func checkColor(L *lua.LState, start int) color.Color {
	n := L.GetTop() - start + 1
	switch {
	case n <= 0:
		L.ArgError(start, "color expected")
		return nil
	case n == 1:
		g := channel(L.CheckNumber(start))
		return color.NRGBA{R: g, G: g, B: g, A: 255}
	case n == 2:
		g := channel(L.CheckNumber(start))
		return color.NRGBA{R: g, G: g, B: g, A: channel(L.CheckNumber(start + 1))}
	case n == 3:
		return color.NRGBA{
			R: channel(L.CheckNumber(start)),
			G: channel(L.CheckNumber(start + 1)),
			B: channel(L.CheckNumber(start + 2)),
			A: 255,
		}
	}
	return color.NRGBA{
		R: channel(L.CheckNumber(start)),
		G: channel(L.CheckNumber(start + 1)),
		B: channel(L.CheckNumber(start + 2)),
		A: channel(L.CheckNumber(start + 3)),
	}
}

func num(L *lua.LState, n int) float64 {
	return float64(L.CheckNumber(n))
}

func optNum(L *lua.LState, n int, def float64) float64 {
	return float64(L.OptNumber(n, lua.LNumber(def)))
}

// surfaceAPI methods are called with colon syntax, so the surface is argument 1.
var surfaceAPI = map[string]lua.LGFunction{
	"clear": func(L *lua.LState) int {
		checkSurface(L, 1).Clear()
		return 0
	},
	"background": func(L *lua.LState) int {
		checkSurface(L, 1).Background(checkColor(L, 2))
		return 0
	},
	"push": func(L *lua.LState) int {
		checkSurface(L, 1).Push()
		return 0
	},
	"pop": func(L *lua.LState) int {
		checkSurface(L, 1).Pop()
		return 0
	},
	"reset": func(L *lua.LState) int {
		checkSurface(L, 1).Reset()
		return 0
	},
	"translate": func(L *lua.LState) int {
		checkSurface(L, 1).Translate(num(L, 2), num(L, 3))
		return 0
	},
	"rotate": func(L *lua.LState) int {
		checkSurface(L, 1).Rotate(num(L, 2))
		return 0
	},
	"scale": func(L *lua.LState) int {
		sx := num(L, 2)
		checkSurface(L, 1).Scale(sx, optNum(L, 3, sx))
		return 0
	},
	"fill": func(L *lua.LState) int {
		checkSurface(L, 1).Fill(checkColor(L, 2))
		return 0
	},
	"noFill": func(L *lua.LState) int {
		checkSurface(L, 1).NoFill()
		return 0
	},
	"stroke": func(L *lua.LState) int {
		checkSurface(L, 1).Stroke(checkColor(L, 2))
		return 0
	},
	"noStroke": func(L *lua.LState) int {
		checkSurface(L, 1).NoStroke()
		return 0
	},
	"strokeWeight": func(L *lua.LState) int {
		checkSurface(L, 1).StrokeWeight(num(L, 2))
		return 0
	},
	"rectMode": func(L *lua.LState) int {
		s := checkSurface(L, 1)
		switch L.CheckString(2) {
		case constCenter:
			s.RectMode(canvas.RectCenter)
		case constCorner:
			s.RectMode(canvas.RectCorner)
		default:
			L.ArgError(2, "CENTER or CORNER expected")
		}
		return 0
	},
	"textAlign": func(L *lua.LState) int {
		s := checkSurface(L, 1)
		var h canvas.HAlign
		switch L.CheckString(2) {
		case constLeft:
			h = canvas.AlignLeft
		case constCenter:
			h = canvas.AlignCenter
		case constRight:
			h = canvas.AlignRight
		default:
			L.ArgError(2, "LEFT, CENTER or RIGHT expected")
		}
		v := canvas.AlignBaseline
		switch L.OptString(3, constBaseline) {
		case constTop:
			v = canvas.AlignTop
		case constCenter:
			v = canvas.AlignMiddle
		case constBottom:
			v = canvas.AlignBottom
		case constBaseline:
		default:
			L.ArgError(3, "TOP, CENTER, BOTTOM or BASELINE expected")
		}
		s.TextAlign(h, v)
		return 0
	},
	"textSize": func(L *lua.LState) int {
		checkSurface(L, 1).TextSize(num(L, 2))
		return 0
	},
	"blendMode": func(L *lua.LState) int {
		s := checkSurface(L, 1)
		m, err := canvas.ParseBlendMode(L.CheckString(2))
		if err != nil {
			L.ArgError(2, err.Error())
		}
		s.BlendMode(m)
		return 0
	},
	"circle": func(L *lua.LState) int {
		checkSurface(L, 1).Circle(num(L, 2), num(L, 3), num(L, 4))
		return 0
	},
	"ellipse": func(L *lua.LState) int {
		w := num(L, 4)
		checkSurface(L, 1).Ellipse(num(L, 2), num(L, 3), w, optNum(L, 5, w))
		return 0
	},
	"rect": func(L *lua.LState) int {
		w := num(L, 4)
		checkSurface(L, 1).Rect(num(L, 2), num(L, 3), w, optNum(L, 5, w), optNum(L, 6, 0))
		return 0
	},
	"line": func(L *lua.LState) int {
		checkSurface(L, 1).Line(num(L, 2), num(L, 3), num(L, 4), num(L, 5))
		return 0
	},
	"text": func(L *lua.LState) int {
		s := checkSurface(L, 1)
		s.Text(L.ToStringMeta(L.CheckAny(2)).String(), num(L, 3), num(L, 4))
		return 0
	},
	"image": func(L *lua.LState) int {
		s := checkSurface(L, 1)
		t := checkTexture(L, 2)
		x, y := num(L, 3), num(L, 4)
		w := optNum(L, 5, float64(t.Width()))
		h := optNum(L, 6, float64(t.Height()))
		s.Image(t, x, y, w, h)
		return 0
	},
	"get": func(L *lua.LState) int {
		return pushColor(L, checkSurface(L, 1).Get(L.CheckInt(2), L.CheckInt(3)))
	},
}

// keyTable exposes a frame's key state. Both keys.isDown(k) and keys:isDown(k) work.
func (c *Compiler) keyTable(keys KeyState) *lua.LTable {
	L := c.L
	t := L.NewTable()
	lastString := func(L *lua.LState) string {
		return L.CheckString(L.GetTop())
	}
	L.SetFuncs(t, map[string]lua.LGFunction{
		"isDown": func(L *lua.LState) int {
			L.Push(lua.LBool(keys != nil && keys.IsDown(lastString(L))))
			return 1
		},
		"wasPressed": func(L *lua.LState) int {
			L.Push(lua.LBool(keys != nil && keys.WasPressed(lastString(L))))
			return 1
		},
	})
	return t
}

func (c *Compiler) logFunction(sink func(string)) *lua.LFunction {
	return c.L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		if sink != nil {
			sink(strings.Join(parts, " "))
		}
		return 0
	})
}
