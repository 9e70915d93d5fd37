package loam

// NodeMetadata is the frontmatter of a node document. The document body holds
// the node script.
type NodeMetadata struct {
	ID  string  `json:"id" mapstructure:"id"`
	Def string  `json:"def" mapstructure:"def"`
	X   float64 `json:"x" mapstructure:"x"`
	Y   float64 `json:"y" mapstructure:"y"`
	// Order fixes the node's place in declaration order. Ties sort by id.
	Order  int                `json:"order" mapstructure:"order"`
	Params map[string]float64 `json:"params,omitempty" mapstructure:"params"`

	// Inputs wires upstream outputs into this node's input slots.
	Inputs []InputLink `json:"inputs,omitempty" mapstructure:"inputs"`

	// Modulate maps a parameter key to the node driving it.
	Modulate map[string]string `json:"modulate,omitempty" mapstructure:"modulate"`
}

// InputLink connects the output of From to slot Input.
type InputLink struct {
	From  string `json:"from" mapstructure:"from"`
	Input int    `json:"input" mapstructure:"input"`
}
