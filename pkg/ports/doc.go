/*
Package ports defines the interfaces between the patchbay engine and its surroundings.

These interfaces decouple frame evaluation from rendering backends, preview widgets,
console feeds, keyboard sources and graph files.

# Key Interfaces

  - SurfaceFactory: Allocates drawing surfaces for nodes (e.g., raster buffers).
  - Presenter: Resolves the preview target of a node, if one is mounted.
  - LogSink / LogFeed: Receives console entries; a feed can also replay recent entries.
  - KeySource: Delivers raw key events to the input layer.
  - SnapshotSource: Loads a graph snapshot (e.g., from a patch file), optionally watchable.
  - GraphEditor: The mutation surface used by UI shells and API adapters.
*/
package ports
