package dsl

import (
	"fmt"

	"github.com/aretw0/patchbay/pkg/domain"
)

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.Node
	edges   []domain.Edge
	builder *Builder
}

// Def sets the node definition.
func (n *NodeBuilder) Def(defID string) *NodeBuilder {
	n.node.DefinitionID = defID
	return n
}

// At sets the editor position.
func (n *NodeBuilder) At(x, y float64) *NodeBuilder {
	n.node.Position = domain.Position{X: x, Y: y}
	return n
}

// Script replaces the definition's default script.
func (n *NodeBuilder) Script(src string) *NodeBuilder {
	n.node.Script = src
	return n
}

// Param overrides the default of a declared parameter.
func (n *NodeBuilder) Param(key string, value float64) *NodeBuilder {
	if n.node.Params == nil {
		n.node.Params = make(map[string]float64)
	}
	n.node.Params[key] = value
	return n
}

// From feeds the output of source into input slot 0.
func (n *NodeBuilder) From(source string) *NodeBuilder {
	return n.FromAt(source, 0)
}

// FromAt feeds the output of source into input slot index.
func (n *NodeBuilder) FromAt(source string, index int) *NodeBuilder {
	n.edges = append(n.edges, domain.Edge{
		ID:         fmt.Sprintf("e-%s-%s-%d", source, n.node.ID, index),
		Source:     source,
		Target:     n.node.ID,
		InputIndex: index,
	})
	return n
}

// Modulate drives parameter key with the scalar output of source.
func (n *NodeBuilder) Modulate(key, source string) *NodeBuilder {
	n.edges = append(n.edges, domain.Edge{
		ID:       fmt.Sprintf("e-%s-%s-%s", source, n.node.ID, key),
		Source:   source,
		Target:   n.node.ID,
		ParamKey: key,
	})
	return n
}

// Add starts the next node, for chaining.
func (n *NodeBuilder) Add(id string) *NodeBuilder {
	return n.builder.Add(id)
}
