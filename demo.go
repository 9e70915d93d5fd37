package patchbay

import (
	"github.com/aretw0/patchbay/pkg/domain"
	"github.com/aretw0/patchbay/pkg/dsl"
	"github.com/aretw0/patchbay/pkg/graph"
	"github.com/aretw0/patchbay/pkg/registry"
)

// Demo builds the starter graph: an oscillator pulsing a circle that is
// transformed, rendered and sent to the final output.
func Demo(defs graph.Definitions) (*domain.Snapshot, error) {
	b := dsl.New(defs)
	b.Add("osc").Def(registry.ValOscillator).At(40, 40).
		Param("amplitude", 40).
		Param("offset", 60)
	b.Add("circle").Def(registry.GeoCircle).At(40, 220).
		Modulate("radius", "osc")
	b.Add("transform").Def(registry.GeoTransform).At(300, 220).
		From("circle")
	b.Add("render").Def(registry.GeoRender).At(560, 220).
		From("transform")
	b.Add("out").Def(registry.FinalOutput).At(820, 220).
		From("render")
	return b.Snapshot()
}
