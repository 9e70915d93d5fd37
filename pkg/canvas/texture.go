package canvas

import (
	"image"
	"image/color"
	"image/draw"
)

// Texture is an immutable pixel snapshot passed between nodes.
type Texture struct {
	img *image.RGBA
}

// NewTexture copies src into a new texture.
func NewTexture(src image.Image) *Texture {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return &Texture{img: dst}
}

func (t *Texture) Width() int {
	if t == nil {
		return 0
	}
	return t.img.Bounds().Dx()
}

func (t *Texture) Height() int {
	if t == nil {
		return 0
	}
	return t.img.Bounds().Dy()
}

// Get returns the pixel at x, y. Out of range reads are transparent.
func (t *Texture) Get(x, y int) color.RGBA {
	if t == nil || !(image.Point{X: x, Y: y}).In(t.img.Bounds()) {
		return color.RGBA{}
	}
	return t.img.RGBAAt(x, y)
}

// Image exposes the pixels for reading. Callers must not modify them.
func (t *Texture) Image() *image.RGBA {
	return t.img
}
