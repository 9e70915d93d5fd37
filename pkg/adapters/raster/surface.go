// Package raster implements canvas.Surface on top of an in-memory RGBA image
// using fogleman/gg for vector paths.
package raster

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/aretw0/patchbay/pkg/canvas"
	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

const defaultTextSize = 12

type style struct {
	fill     color.Color
	stroke   color.Color
	weight   float64
	rectMode canvas.RectMode
	hAlign   canvas.HAlign
	vAlign   canvas.VAlign
	textSize float64
	blend    canvas.BlendMode
	// matrix mirrors the gg transform, which gg does not expose.
	matrix gg.Matrix
}

func defaultStyle() style {
	return style{
		fill:     color.White,
		stroke:   color.Black,
		weight:   1,
		textSize: defaultTextSize,
		matrix:   gg.Identity(),
	}
}

// Surface is a raster canvas.Surface. It is not safe for concurrent use.
type Surface struct {
	img   *image.RGBA
	dc    *gg.Context
	st    style
	stack []style
}

// New creates a transparent surface.
func New(width, height int) *Surface {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	return &Surface{
		img: img,
		dc:  gg.NewContextForRGBA(img),
		st:  defaultStyle(),
	}
}

// Factory allocates raster surfaces; it satisfies ports.SurfaceFactory.
type Factory struct{}

func (Factory) NewSurface(width, height int) canvas.Surface {
	return New(width, height)
}

func (s *Surface) Width() int { return s.img.Bounds().Dx() }
func (s *Surface) Height() int { return s.img.Bounds().Dy() }

func (s *Surface) Clear() {
	draw.Draw(s.img, s.img.Bounds(), image.Transparent, image.Point{}, draw.Src)
}

func (s *Surface) Background(c color.Color) {
	draw.Draw(s.img, s.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Over)
}

func (s *Surface) Push() {
	s.stack = append(s.stack, s.st)
	s.dc.Push()
}

func (s *Surface) Pop() {
	if len(s.stack) == 0 {
		return
	}
	s.st = s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	s.dc.Pop()
}

func (s *Surface) Reset() {
	for range s.stack {
		s.dc.Pop()
	}
	s.stack = s.stack[:0]
	s.dc.Identity()
	s.st.matrix = gg.Identity()
}

func (s *Surface) Translate(x, y float64) {
	s.dc.Translate(x, y)
	s.st.matrix = s.st.matrix.Translate(x, y)
}

func (s *Surface) Rotate(radians float64) {
	s.dc.Rotate(radians)
	s.st.matrix = s.st.matrix.Rotate(radians)
}

func (s *Surface) Scale(sx, sy float64) {
	s.dc.Scale(sx, sy)
	s.st.matrix = s.st.matrix.Scale(sx, sy)
}

func (s *Surface) Fill(c color.Color) { s.st.fill = c }
func (s *Surface) NoFill() { s.st.fill = nil }
func (s *Surface) Stroke(c color.Color) { s.st.stroke = c }
func (s *Surface) NoStroke() { s.st.stroke = nil }
func (s *Surface) StrokeWeight(w float64) { s.st.weight = w }
func (s *Surface) RectMode(m canvas.RectMode) { s.st.rectMode = m }
func (s *Surface) TextSize(size float64) { s.st.textSize = size }
func (s *Surface) BlendMode(m canvas.BlendMode) { s.st.blend = m }

func (s *Surface) TextAlign(h canvas.HAlign, v canvas.VAlign) {
	s.st.hAlign, s.st.vAlign = h, v
}

// paint fills then strokes the path built by path.
func (s *Surface) paint(path func()) {
	if s.st.fill != nil {
		path()
		s.dc.SetColor(s.st.fill)
		s.dc.Fill()
	}
	s.outline(path)
}

func (s *Surface) outline(path func()) {
	if s.st.stroke == nil || s.st.weight <= 0 {
		s.dc.ClearPath()
		return
	}
	path()
	s.dc.SetColor(s.st.stroke)
	s.dc.SetLineWidth(s.st.weight)
	s.dc.Stroke()
}

func (s *Surface) Circle(x, y, d float64) {
	s.paint(func() { s.dc.DrawCircle(x, y, d/2) })
}

func (s *Surface) Ellipse(x, y, w, h float64) {
	s.paint(func() { s.dc.DrawEllipse(x, y, w/2, h/2) })
}

func (s *Surface) Rect(x, y, w, h, radius float64) {
	if s.st.rectMode == canvas.RectCenter {
		x, y = x-w/2, y-h/2
	}
	s.paint(func() {
		if radius > 0 {
			s.dc.DrawRoundedRectangle(x, y, w, h, radius)
			return
		}
		s.dc.DrawRectangle(x, y, w, h)
	})
}

func (s *Surface) Line(x1, y1, x2, y2 float64) {
	s.outline(func() { s.dc.DrawLine(x1, y1, x2, y2) })
}

func (s *Surface) Text(str string, x, y float64) {
	if s.st.fill == nil || str == "" {
		return
	}
	face := fontFace(s.st.textSize)
	s.dc.SetFontFace(face)
	s.dc.SetColor(s.st.fill)

	var ax, ay float64
	switch s.st.hAlign {
	case canvas.AlignCenter:
		ax = 0.5
	case canvas.AlignRight:
		ax = 1
	}
	switch s.st.vAlign {
	case canvas.AlignTop:
		ay = 1
	case canvas.AlignMiddle:
		ay = 0.35
	case canvas.AlignBottom:
		y -= float64(face.Metrics().Descent.Ceil())
	}
	s.dc.DrawStringAnchored(str, x, y, ax, ay)
}

func (s *Surface) Image(t *canvas.Texture, x, y, w, h float64) {
	if t == nil || t.Width() == 0 || t.Height() == 0 {
		return
	}
	m := gg.Scale(w/float64(t.Width()), h/float64(t.Height())).
		Multiply(gg.Translate(x, y)).
		Multiply(s.st.matrix)
	aff := f64.Aff3{m.XX, m.XY, m.X0, m.YX, m.YY, m.Y0}

	if s.st.blend == canvas.Blend {
		xdraw.BiLinear.Transform(s.img, aff, t.Image(), t.Image().Bounds(), xdraw.Over, nil)
		return
	}
	layer := image.NewRGBA(s.img.Bounds())
	xdraw.BiLinear.Transform(layer, aff, t.Image(), t.Image().Bounds(), xdraw.Src, nil)
	composite(s.img, layer, s.st.blend)
}

func (s *Surface) Get(x, y int) color.RGBA {
	if !(image.Point{X: x, Y: y}).In(s.img.Bounds()) {
		return color.RGBA{}
	}
	return s.img.RGBAAt(x, y)
}

func (s *Surface) Snapshot() *canvas.Texture {
	return canvas.NewTexture(s.img)
}

// Dispose drops the pixel buffer and saved states.
func (s *Surface) Dispose() {
	s.stack = nil
	s.img = image.NewRGBA(image.Rectangle{})
	s.dc = gg.NewContextForRGBA(s.img)
}

// RGBA exposes the backing image. Callers must not keep it across frames.
func (s *Surface) RGBA() *image.RGBA {
	return s.img
}
