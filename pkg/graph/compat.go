package graph

import (
	"github.com/aretw0/patchbay/pkg/domain"
)

// CanConnect reports whether the output of src may feed an input slot of dst.
// It returns nil, domain.ErrNoSuchPort when dst has no inputs, or
// domain.ErrTypeMismatch when the kinds differ.
func CanConnect(src, dst domain.Definition) error {
	if dst.Ports() == 0 {
		return domain.ErrNoSuchPort
	}
	if src.OutputKind == domain.KindNone || src.OutputKind != dst.InputKind {
		return domain.ErrTypeMismatch
	}
	return nil
}

// CanModulate reports whether src may drive a numeric parameter.
// Only scalar producers qualify.
func CanModulate(src domain.Definition) error {
	if src.OutputKind != domain.KindValue {
		return domain.ErrTypeMismatch
	}
	return nil
}

// InRange reports whether index addresses an input slot of def.
func InRange(def domain.Definition, index int) bool {
	return index >= 0 && index < def.Ports()
}
