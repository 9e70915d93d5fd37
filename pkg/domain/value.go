package domain

import "github.com/aretw0/patchbay/pkg/canvas"

// Procedure is a deferred geometry draw. It is executed by the receiving node
// against that node's surface.
type Procedure interface {
	Draw(s canvas.Surface) error
}

// ProcedureFunc adapts a plain function to Procedure.
type ProcedureFunc func(s canvas.Surface) error

func (f ProcedureFunc) Draw(s canvas.Surface) error { return f(s) }

// Value is the per-frame output of a node. The zero Value is null.
type Value struct {
	Kind    Kind
	Draw    Procedure
	Texture *canvas.Texture
	Scalar  float64
}

// Null is the absence of a value.
var Null = Value{}

func GeometryValue(p Procedure) Value {
	if p == nil {
		return Null
	}
	return Value{Kind: KindGeometry, Draw: p}
}

func TextureValue(t *canvas.Texture) Value {
	if t == nil {
		return Null
	}
	return Value{Kind: KindTexture, Texture: t}
}

func ScalarValue(v float64) Value {
	return Value{Kind: KindValue, Scalar: v}
}

// IsNull reports whether the value carries nothing.
func (v Value) IsNull() bool {
	return v.Kind == KindNone
}
