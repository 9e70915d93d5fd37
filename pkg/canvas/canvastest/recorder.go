// Package canvastest provides a canvas.Surface that records draw calls.
package canvastest

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/aretw0/patchbay/pkg/canvas"
)

// Recorder is a canvas.Surface that logs every call as a short text line.
// Background and Clear also update a real pixel buffer so snapshots differ.
type Recorder struct {
	mu       sync.Mutex
	img      *image.RGBA
	calls    []string
	depth    int
	Disposed bool
}

// New creates a recorder of the given size.
func New(w, h int) *Recorder {
	return &Recorder{img: image.NewRGBA(image.Rect(0, 0, w, h))}
}

// Factory satisfies ports.SurfaceFactory and remembers every surface it made.
type Factory struct {
	mu   sync.Mutex
	Made []*Recorder
}

func (f *Factory) NewSurface(w, h int) canvas.Surface {
	r := New(w, h)
	f.mu.Lock()
	f.Made = append(f.Made, r)
	f.mu.Unlock()
	return r
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Has reports whether a call starting with prefix was recorded.
func (r *Recorder) Has(prefix string) bool {
	for _, c := range r.Calls() {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

// ResetCalls forgets recorded calls.
func (r *Recorder) ResetCalls() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *Recorder) rec(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func rgba(c color.Color) color.RGBA {
	return color.RGBAModel.Convert(c).(color.RGBA)
}

func (r *Recorder) Width() int { return r.img.Bounds().Dx() }
func (r *Recorder) Height() int { return r.img.Bounds().Dy() }

func (r *Recorder) Clear() {
	draw.Draw(r.img, r.img.Bounds(), image.Transparent, image.Point{}, draw.Src)
	r.rec("clear")
}

func (r *Recorder) Background(c color.Color) {
	draw.Draw(r.img, r.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Over)
	v := rgba(c)
	r.rec("background %d %d %d %d", v.R, v.G, v.B, v.A)
}

func (r *Recorder) Push() {
	r.depth++
	r.rec("push")
}

func (r *Recorder) Pop() {
	if r.depth > 0 {
		r.depth--
	}
	r.rec("pop")
}

// Depth is the number of unmatched pushes.
func (r *Recorder) Depth() int { return r.depth }

func (r *Recorder) Reset() {
	r.depth = 0
	r.rec("reset")
}

func (r *Recorder) Translate(x, y float64) { r.rec("translate %g %g", x, y) }
func (r *Recorder) Rotate(a float64) { r.rec("rotate %g", a) }
func (r *Recorder) Scale(sx, sy float64) { r.rec("scale %g %g", sx, sy) }

func (r *Recorder) Fill(c color.Color) {
	v := rgba(c)
	r.rec("fill %d %d %d %d", v.R, v.G, v.B, v.A)
}
func (r *Recorder) NoFill() { r.rec("noFill") }
func (r *Recorder) Stroke(c color.Color) {
	v := rgba(c)
	r.rec("stroke %d %d %d %d", v.R, v.G, v.B, v.A)
}
func (r *Recorder) NoStroke() { r.rec("noStroke") }
func (r *Recorder) StrokeWeight(w float64) { r.rec("strokeWeight %g", w) }
func (r *Recorder) RectMode(m canvas.RectMode) { r.rec("rectMode %d", m) }
func (r *Recorder) TextAlign(h canvas.HAlign, v canvas.VAlign) { r.rec("textAlign %d %d", h, v) }
func (r *Recorder) TextSize(s float64) { r.rec("textSize %g", s) }
func (r *Recorder) BlendMode(m canvas.BlendMode) { r.rec("blendMode %s", m) }
func (r *Recorder) Circle(x, y, d float64) { r.rec("circle %g %g %g", x, y, d) }
func (r *Recorder) Ellipse(x, y, w, h float64) { r.rec("ellipse %g %g %g %g", x, y, w, h) }
func (r *Recorder) Rect(x, y, w, h, rad float64) { r.rec("rect %g %g %g %g %g", x, y, w, h, rad) }
func (r *Recorder) Line(x1, y1, x2, y2 float64) { r.rec("line %g %g %g %g", x1, y1, x2, y2) }
func (r *Recorder) Text(s string, x, y float64) { r.rec("text %q %g %g", s, x, y) }

func (r *Recorder) Image(t *canvas.Texture, x, y, w, h float64) {
	r.rec("image %dx%d %g %g %g %g", t.Width(), t.Height(), x, y, w, h)
}

func (r *Recorder) Get(x, y int) color.RGBA {
	if !(image.Point{X: x, Y: y}).In(r.img.Bounds()) {
		return color.RGBA{}
	}
	return r.img.RGBAAt(x, y)
}

func (r *Recorder) Snapshot() *canvas.Texture { return canvas.NewTexture(r.img) }

func (r *Recorder) Dispose() {
	r.Disposed = true
	r.rec("dispose")
}
