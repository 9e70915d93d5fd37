package raster

import (
	"image"
	"math"

	"github.com/aretw0/patchbay/pkg/canvas"
)

// composite blends layer onto dst with mode. Both images share bounds and
// hold premultiplied pixels.
func composite(dst, layer *image.RGBA, mode canvas.BlendMode) {
	fn := blendFunc(mode)
	b := dst.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := dst.PixOffset(x, y)
			sa := float64(layer.Pix[i+3]) / 255
			if sa == 0 {
				continue
			}
			da := float64(dst.Pix[i+3]) / 255
			for c := 0; c < 3; c++ {
				cs := float64(layer.Pix[i+c]) / 255 / sa
				cb := 0.0
				if da > 0 {
					cb = float64(dst.Pix[i+c]) / 255 / da
				}
				// Straight-alpha mix of the blend result over the backdrop.
				mixed := (1-da)*cs + da*fn(cb, cs)
				out := sa*mixed + (1-sa)*da*cb
				dst.Pix[i+c] = unit(out)
			}
			dst.Pix[i+3] = unit(sa + da*(1-sa))
		}
	}
}

func blendFunc(mode canvas.BlendMode) func(cb, cs float64) float64 {
	switch mode {
	case canvas.Add:
		return func(cb, cs float64) float64 { return math.Min(1, cb+cs) }
	case canvas.Multiply:
		return func(cb, cs float64) float64 { return cb * cs }
	case canvas.Screen:
		return func(cb, cs float64) float64 { return 1 - (1-cb)*(1-cs) }
	case canvas.Overlay:
		return func(cb, cs float64) float64 {
			if cb < 0.5 {
				return 2 * cb * cs
			}
			return 1 - 2*(1-cb)*(1-cs)
		}
	case canvas.Difference:
		return func(cb, cs float64) float64 { return math.Abs(cb - cs) }
	}
	return func(_, cs float64) float64 { return cs }
}

func unit(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}
