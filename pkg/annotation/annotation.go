// Package annotation extracts tunable parameters from node scripts.
//
// A parameter is declared on a Lua comment line:
//
//	-- @param radius 50 1 500 1
//
// The fields are name, default, and optionally min and max (together) and step.
package annotation

import (
	"math"
	"regexp"
	"strconv"

	"github.com/aretw0/patchbay/pkg/domain"
)

const (
	defaultMin = 0
	defaultMax = 100
)

var paramPattern = regexp.MustCompile(`--\s*@param\s+(\w+)\s+([\d.-]+)(?:\s+([\d.-]+)\s+([\d.-]+)(?:\s+([\d.-]+))?)?`)

// Params is the result of parsing a script.
type Params struct {
	Values  map[string]float64
	Configs map[string]domain.ParamConfig
}

// Keys returns the declared parameter names in declaration order.
func Keys(script string) []string {
	var keys []string
	seen := make(map[string]bool)
	for _, m := range paramPattern.FindAllStringSubmatch(script, -1) {
		if _, ok := parse(m[2]); !ok || seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		keys = append(keys, m[1])
	}
	return keys
}

// Parse scans script for parameter annotations. Declarations whose default
// is not a number are skipped; a later declaration of the same name wins.
func Parse(script string) Params {
	out := Params{
		Values:  make(map[string]float64),
		Configs: make(map[string]domain.ParamConfig),
	}
	for _, m := range paramPattern.FindAllStringSubmatch(script, -1) {
		def, ok := parse(m[2])
		if !ok {
			continue
		}
		cfg := domain.ParamConfig{Min: defaultMin, Max: defaultMax}
		if v, ok := parse(m[3]); ok {
			cfg.Min = v
		}
		if v, ok := parse(m[4]); ok {
			cfg.Max = v
		}
		if v, ok := parse(m[5]); ok {
			cfg.Step = v
		} else if def == math.Trunc(def) {
			cfg.Step = 1
		} else {
			cfg.Step = 0.01
		}
		out.Values[m[1]] = def
		out.Configs[m[1]] = cfg
	}
	return out
}

// Merge computes the parameter values after a script edit: keys that survive
// keep the current value, new keys take their default, removed keys are dropped.
func Merge(current map[string]float64, parsed Params) map[string]float64 {
	out := make(map[string]float64, len(parsed.Values))
	for k, def := range parsed.Values {
		if v, ok := current[k]; ok {
			out[k] = v
			continue
		}
		out[k] = def
	}
	return out
}

func parse(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
