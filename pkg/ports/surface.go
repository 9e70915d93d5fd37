package ports

import "github.com/aretw0/patchbay/pkg/canvas"

// SurfaceFactory allocates node surfaces.
type SurfaceFactory interface {
	NewSurface(width, height int) canvas.Surface
}

// SurfaceFactoryFunc adapts a function to SurfaceFactory.
type SurfaceFactoryFunc func(width, height int) canvas.Surface

func (f SurfaceFactoryFunc) NewSurface(width, height int) canvas.Surface {
	return f(width, height)
}
