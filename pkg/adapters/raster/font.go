package raster

import (
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

var basicFace font.Face = basicfont.Face7x13

var (
	fontOnce  sync.Once
	fontData  *opentype.Font
	fontErr   error
	facesMu   sync.Mutex
	facesByPt = map[float64]font.Face{}
)

// fontFace returns the Go Regular face at size points, cached per size.
// A parse failure falls back to the basic bitmap face.
func fontFace(size float64) font.Face {
	if size <= 0 {
		size = defaultTextSize
	}
	fontOnce.Do(func() {
		fontData, fontErr = opentype.Parse(goregular.TTF)
	})

	facesMu.Lock()
	defer facesMu.Unlock()
	if f, ok := facesByPt[size]; ok {
		return f
	}
	if fontErr != nil {
		return basicFace
	}
	f, err := opentype.NewFace(fontData, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return basicFace
	}
	facesByPt[size] = f
	return f
}
