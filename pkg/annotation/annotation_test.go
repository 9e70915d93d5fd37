package annotation

import (
	"testing"

	"github.com/aretw0/patchbay/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		values  map[string]float64
		configs map[string]domain.ParamConfig
	}{
		{
			name:    "full declaration",
			script:  "-- @param radius 50 1 500 2\nreturn 1",
			values:  map[string]float64{"radius": 50},
			configs: map[string]domain.ParamConfig{"radius": {Min: 1, Max: 500, Step: 2}},
		},
		{
			name:    "default only, whole number",
			script:  "--@param count 3",
			values:  map[string]float64{"count": 3},
			configs: map[string]domain.ParamConfig{"count": {Min: 0, Max: 100, Step: 1}},
		},
		{
			name:    "fractional default gets fine step",
			script:  "-- @param scale 0.02 0.001 0.2",
			values:  map[string]float64{"scale": 0.02},
			configs: map[string]domain.ParamConfig{"scale": {Min: 0.001, Max: 0.2, Step: 0.01}},
		},
		{
			name:    "negative range",
			script:  "-- @param tx 0 -200 200 1",
			values:  map[string]float64{"tx": 0},
			configs: map[string]domain.ParamConfig{"tx": {Min: -200, Max: 200, Step: 1}},
		},
		{
			name:    "malformed default skipped",
			script:  "-- @param broken -.-\n-- @param ok 1",
			values:  map[string]float64{"ok": 1},
			configs: map[string]domain.ParamConfig{"ok": {Min: 0, Max: 100, Step: 1}},
		},
		{
			name:    "no annotations",
			script:  "pg:background(0)",
			values:  map[string]float64{},
			configs: map[string]domain.ParamConfig{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.script)
			assert.Equal(t, tt.values, got.Values)
			assert.Equal(t, tt.configs, got.Configs)
		})
	}
}

func TestMerge(t *testing.T) {
	current := map[string]float64{"radius": 120, "gone": 7}
	parsed := Parse("-- @param radius 50 1 500 1\n-- @param speed 2")

	merged := Merge(current, parsed)

	assert.Equal(t, map[string]float64{"radius": 120, "speed": 2}, merged)
}

func TestKeys_DeclarationOrder(t *testing.T) {
	script := "-- @param r 255\n-- @param g 100\n-- @param b 100\n-- @param r 1"
	assert.Equal(t, []string{"r", "g", "b"}, Keys(script))
}
