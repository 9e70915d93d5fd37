package registry

import (
	"embed"
	"strings"

	"github.com/aretw0/patchbay/pkg/domain"
)

//go:embed scripts/*.lua
var scripts embed.FS

// Built-in definition ids.
const (
	GeoCircle     = "GEO_CIRCLE"
	GeoRect       = "GEO_RECT"
	GeoTransform  = "GEO_TRANSFORM"
	GeoRender     = "GEO_RENDER"
	TexNoise      = "TEX_NOISE"
	TexTransform  = "TEX_TRANSFORM"
	TexPixelate   = "TEX_PIXELATE"
	TexComposite  = "TEX_COMPOSITE"
	TexSwitch     = "TEX_SWITCH"
	FinalOutput   = "FINAL_OUTPUT"
	ValOscillator = "VAL_OSCILLATOR"
)

var builtins = []domain.Definition{
	{ID: GeoCircle, Label: "Circle", Category: domain.CategoryGeometry, OutputKind: domain.KindGeometry},
	{ID: GeoRect, Label: "Rect", Category: domain.CategoryGeometry, OutputKind: domain.KindGeometry},
	{ID: GeoTransform, Label: "Transform", Category: domain.CategoryGeometry, InputKind: domain.KindGeometry, OutputKind: domain.KindGeometry},
	{ID: GeoRender, Label: "Render", Category: domain.CategoryUtility, InputKind: domain.KindGeometry, OutputKind: domain.KindTexture},
	{ID: TexNoise, Label: "Noise", Category: domain.CategoryTexture, OutputKind: domain.KindTexture},
	{ID: TexTransform, Label: "Transform", Category: domain.CategoryTexture, InputKind: domain.KindTexture, OutputKind: domain.KindTexture},
	{ID: TexPixelate, Label: "Pixelate", Category: domain.CategoryTexture, InputKind: domain.KindTexture, OutputKind: domain.KindTexture},
	{ID: TexComposite, Label: "Composite", Category: domain.CategoryTexture, InputKind: domain.KindTexture, OutputKind: domain.KindTexture, InputCount: 2},
	{ID: TexSwitch, Label: "Switcher", Category: domain.CategoryTexture, InputKind: domain.KindTexture, OutputKind: domain.KindTexture, InputCount: 4, PreviewHint: "1-4 / ←→"},
	{ID: FinalOutput, Label: "Final Output", Category: domain.CategoryUtility, InputKind: domain.KindTexture},
	{ID: ValOscillator, Label: "Oscillator", Category: domain.CategoryValue, OutputKind: domain.KindValue},
}

// Builtin returns a registry preloaded with the standard node set.
func Builtin() *Registry {
	r := NewRegistry()
	for _, def := range builtins {
		def.DefaultScript = script(def.ID)
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
	return r
}

func script(id string) string {
	b, err := scripts.ReadFile("scripts/" + strings.ToLower(id) + ".lua")
	if err != nil {
		panic("registry: missing built-in script for " + id)
	}
	return string(b)
}
