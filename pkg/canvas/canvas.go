package canvas

import (
	"fmt"
	"image/color"
	"strings"
)

// RectMode controls how Rect interprets its x/y arguments.
type RectMode int

const (
	RectCorner RectMode = iota
	RectCenter
)

// HAlign is the horizontal text anchor.
type HAlign int

const (
	AlignLeft HAlign = iota
	AlignCenter
	AlignRight
)

// VAlign is the vertical text anchor.
type VAlign int

const (
	AlignBaseline VAlign = iota
	AlignTop
	AlignMiddle
	AlignBottom
)

// BlendMode selects how image draws are combined with the existing pixels.
type BlendMode int

const (
	Blend BlendMode = iota
	Add
	Multiply
	Screen
	Overlay
	Difference
)

var blendNames = []string{"BLEND", "ADD", "MULTIPLY", "SCREEN", "OVERLAY", "DIFFERENCE"}

func (m BlendMode) String() string {
	if int(m) < 0 || int(m) >= len(blendNames) {
		return fmt.Sprintf("BlendMode(%d)", int(m))
	}
	return blendNames[m]
}

// BlendModes lists every supported mode in declaration order.
func BlendModes() []BlendMode {
	return []BlendMode{Blend, Add, Multiply, Screen, Overlay, Difference}
}

// ParseBlendMode resolves a mode by its upper-case name.
func ParseBlendMode(name string) (BlendMode, error) {
	for i, n := range blendNames {
		if strings.EqualFold(n, name) {
			return BlendMode(i), nil
		}
	}
	return Blend, fmt.Errorf("unknown blend mode %q", name)
}

// Surface is the drawing capability handed to node scripts.
// Coordinates are in pixels with the origin at the top-left corner.
// Style and transform state is saved by Push and restored by Pop.
type Surface interface {
	Width() int
	Height() int

	// Clear makes every pixel fully transparent.
	Clear()
	// Background paints the whole surface, ignoring the current transform.
	Background(c color.Color)

	Push()
	Pop()
	// Reset restores the identity transform and discards saved states.
	Reset()
	Translate(x, y float64)
	Rotate(radians float64)
	Scale(sx, sy float64)

	Fill(c color.Color)
	NoFill()
	Stroke(c color.Color)
	NoStroke()
	StrokeWeight(w float64)
	RectMode(m RectMode)
	TextAlign(h HAlign, v VAlign)
	TextSize(size float64)
	BlendMode(m BlendMode)

	// Circle draws a circle of diameter d.
	Circle(x, y, d float64)
	Ellipse(x, y, w, h float64)
	// Rect draws a rectangle; a positive radius rounds the corners.
	Rect(x, y, w, h, radius float64)
	Line(x1, y1, x2, y2 float64)
	Text(s string, x, y float64)
	// Image draws a texture scaled into the w x h box at x, y.
	Image(t *Texture, x, y, w, h float64)

	// Get reads a pixel in surface space; out of range reads are transparent.
	Get(x, y int) color.RGBA
	// Snapshot copies the current pixels into an immutable texture.
	Snapshot() *Texture
	// Dispose releases the backing buffer. The surface must not be used afterwards.
	Dispose()
}

// Gray builds an opaque gray level.
func Gray(v uint8) color.RGBA {
	return color.RGBA{R: v, G: v, B: v, A: 255}
}

// Default preview dimensions for node surfaces.
const (
	PreviewWidth  = 200
	PreviewHeight = 100
)
