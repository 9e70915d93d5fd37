package runtime

import (
	"image/color"

	"github.com/aretw0/patchbay/pkg/canvas"
)

func rgb(r, g, b uint8) color.RGBA {
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// prepare puts a surface into the default state every script starts from.
func prepare(s canvas.Surface) {
	s.Clear()
	s.Reset()
	s.BlendMode(canvas.Blend)
	s.Fill(canvas.Gray(255))
	s.Stroke(canvas.Gray(255))
	s.StrokeWeight(1)
	s.RectMode(canvas.RectCorner)
	s.TextAlign(canvas.AlignLeft, canvas.AlignBaseline)
}

// paintError replaces the surface content with the error indicator shown for
// compile and runtime failures.
func paintError(s canvas.Surface, msg string) {
	s.Reset()
	s.BlendMode(canvas.Blend)
	s.Background(errorBackground)
	s.NoStroke()
	s.Fill(canvas.Gray(255))
	s.TextSize(10)
	s.TextAlign(canvas.AlignLeft, canvas.AlignBaseline)
	s.Text(msg, 5, 15)
}
