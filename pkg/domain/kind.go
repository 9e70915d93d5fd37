package domain

// Kind is the type carried by a port or produced by a node.
type Kind string

const (
	// KindNone marks the absence of a port or a null value.
	KindNone Kind = ""
	// KindGeometry is a deferred draw procedure, drawn by whoever receives it.
	KindGeometry Kind = "GEO"
	// KindTexture is a pixel snapshot of a node surface.
	KindTexture Kind = "TEX"
	// KindValue is a scalar number.
	KindValue Kind = "VALUE"
)

// Valid reports whether k is one of the closed set of kinds (or none).
func (k Kind) Valid() bool {
	switch k {
	case KindNone, KindGeometry, KindTexture, KindValue:
		return true
	}
	return false
}

// Category groups definitions in the add-node palette.
type Category string

const (
	CategoryGeometry Category = "GEOMETRY"
	CategoryTexture  Category = "TEXTURE"
	CategoryUtility  Category = "UTILITY"
	CategoryValue    Category = "VALUE"
)

// Definition describes a kind of node. Definitions are read-only once registered.
type Definition struct {
	ID       string   `json:"id" yaml:"id"`
	Label    string   `json:"label" yaml:"label"`
	Category Category `json:"category" yaml:"category"`

	InputKind  Kind `json:"input_kind,omitempty" yaml:"input_kind,omitempty"`
	OutputKind Kind `json:"output_kind,omitempty" yaml:"output_kind,omitempty"`

	// InputCount overrides the number of input slots. Zero means one slot
	// when InputKind is set.
	InputCount int `json:"input_count,omitempty" yaml:"input_count,omitempty"`

	DefaultScript string `json:"default_script" yaml:"default_script"`
	PreviewHint   string `json:"preview_hint,omitempty" yaml:"preview_hint,omitempty"`
}

// Ports returns the effective number of input slots.
func (d Definition) Ports() int {
	if d.InputKind == KindNone {
		return 0
	}
	if d.InputCount > 0 {
		return d.InputCount
	}
	return 1
}
