package domain

import "maps"

// Position is the editor placement of a node. The engine ignores it.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// ParamConfig bounds a numeric parameter for display.
type ParamConfig struct {
	Min  float64 `json:"min" yaml:"min"`
	Max  float64 `json:"max" yaml:"max"`
	Step float64 `json:"step" yaml:"step"`
}

// Node is an instance of a Definition in the graph.
type Node struct {
	ID           string                 `json:"id" yaml:"id"`
	DefinitionID string                 `json:"def" yaml:"def"`
	Position     Position               `json:"position" yaml:"position"`
	Script       string                 `json:"script" yaml:"script"`
	Params       map[string]float64     `json:"params" yaml:"params"`
	ParamConfigs map[string]ParamConfig `json:"param_configs,omitempty" yaml:"param_configs,omitempty"`
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	out := n
	out.Params = maps.Clone(n.Params)
	out.ParamConfigs = maps.Clone(n.ParamConfigs)
	if out.Params == nil {
		out.Params = make(map[string]float64)
	}
	return out
}

// Edge connects the output of Source to either an input slot of Target
// (ParamKey empty) or to the named parameter of Target (modulation).
type Edge struct {
	ID         string `json:"id" yaml:"id"`
	Source     string `json:"source" yaml:"source"`
	Target     string `json:"target" yaml:"target"`
	InputIndex int    `json:"input_index" yaml:"input_index"`
	ParamKey   string `json:"param_key,omitempty" yaml:"param_key,omitempty"`
}

// IsModulation reports whether the edge drives a parameter.
func (e Edge) IsModulation() bool {
	return e.ParamKey != ""
}

// Touches reports whether the edge references the node id at either end.
func (e Edge) Touches(id string) bool {
	return e.Source == id || e.Target == id
}
