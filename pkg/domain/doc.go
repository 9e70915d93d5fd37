/*
Package domain contains the core model of the patch graph evaluated by patchbay.

It defines node definitions, graph snapshots, the values that flow along edges and
the events emitted while frames are evaluated. The package is kept pure: it has no
knowledge of scripting, rendering backends or transports.

# Key Entities

  - Definition: The catalog entry describing a kind of node (ports, default script).
  - Node: An instance of a definition placed in the graph, with its script and parameters.
  - Edge: A connection into a numbered input slot, or into a named parameter (modulation).
  - Snapshot: An immutable, published version of the whole graph.
  - Value: The tagged result a node produces for one frame.
*/
package domain
