/*
Package dsl provides a fluent Go builder for patch graphs.

It is useful for demos, fixtures and tests that would otherwise spell out
nodes and edges by hand. Nodes keep the order in which they are added, which
is also their evaluation order. Build validates the result with the same
rules the graph editor enforces.

Example usage:

	b := dsl.New(registry.Builtin())

	b.Add("circle").Def(registry.GeoCircle).At(50, 100).Param("radius", 40)
	b.Add("render").Def(registry.GeoRender).From("circle")
	b.Add("out").Def(registry.FinalOutput).From("render")

	src, err := b.Build()
	if err != nil {
		log.Fatal(err)
	}
	// src is a ports.SnapshotSource
*/
package dsl
