/*
Package patchbay is a real-time dataflow engine for node-based generative graphics.

A graph is a set of nodes, each running a small Lua script against its own
drawing surface, joined by typed edges. Every frame the engine runs each node
once, hands the output of one node to the inputs of the next and shows the
resulting surfaces as previews.

# Concept

Nodes produce one of three kinds of value: a scalar, a geometry procedure, or
a texture. Edges only join matching kinds, and scalar outputs may also drive a
numeric parameter of another node (modulation). The graph is edited through a
single editor that publishes immutable snapshots; the frame loop always
evaluates the latest one, so edits take effect on the next frame without
stopping playback.

A script that fails to compile or raises an error never stops the frame: the
node yields no value, its surface shows the message and the console receives
one entry per distinct failure.

# Usage

	engine, err := patchbay.New(patchbay.WithPreviews())
	if err != nil {
		log.Fatal(err)
	}
	defer engine.Close()

	snap, err := patchbay.Demo(registry.Builtin())
	if err != nil {
		log.Fatal(err)
	}
	if err := engine.Load(ctx, memory.NewSource(snap)); err != nil {
		log.Fatal(err)
	}

	// Evaluate at 60 fps until ctx is cancelled.
	if err := engine.Run(ctx); err != nil {
		log.Fatal(err)
	}

Graphs can also be loaded from a YAML patch file (pkg/adapters/patchfile) or a
directory of Markdown notes (pkg/adapters/loam), and reloaded on change with
Engine.Watch.
*/
package patchbay
