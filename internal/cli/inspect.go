package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aretw0/patchbay"
	"github.com/aretw0/patchbay/internal/presentation/graph"
	"github.com/aretw0/patchbay/internal/presentation/tui"
	"github.com/aretw0/patchbay/internal/validator"
	"github.com/aretw0/patchbay/pkg/adapters/loam"
	"github.com/aretw0/patchbay/pkg/adapters/patchfile"
	"github.com/aretw0/patchbay/pkg/domain"
	"github.com/aretw0/patchbay/pkg/registry"
)

// loadSnapshot reads the patch at path (the demo when empty).
func loadSnapshot(ctx context.Context, path string) (*domain.Snapshot, error) {
	src, err := openSource(path)
	if err != nil {
		return nil, err
	}
	return src.Load(ctx)
}

// Validate checks the patch at path.
func Validate(ctx context.Context, path string) (*validator.Report, error) {
	snap, err := loadSnapshot(ctx, path)
	if err != nil {
		return nil, err
	}
	return validator.ValidatePatch(registry.Builtin(), snap)
}

// GraphOptions configures the Graph command.
type GraphOptions struct {
	Path string
	// Frames evaluates the patch first and marks the nodes that failed.
	Frames   int
	Selected string
}

// Graph renders the patch at path as a Mermaid flowchart.
func Graph(ctx context.Context, opts GraphOptions) (string, error) {
	defs := registry.Builtin()
	src, err := openSource(opts.Path)
	if err != nil {
		return "", err
	}
	snap, err := src.Load(ctx)
	if err != nil {
		return "", err
	}

	var overlay *graph.GraphOverlay
	if opts.Selected != "" || opts.Frames > 0 {
		overlay = &graph.GraphOverlay{Selected: opts.Selected}
	}
	if opts.Frames > 0 {
		var mu sync.Mutex
		engine, err := patchbay.New(patchbay.WithLifecycleHooks(domain.LifecycleHooks{
			OnNodeError: func(_ context.Context, e *domain.NodeErrorEvent) {
				mu.Lock()
				defer mu.Unlock()
				overlay.FailedNodes = append(overlay.FailedNodes, e.NodeID)
			},
		}))
		if err != nil {
			return "", err
		}
		defer engine.Close()
		if err := engine.Load(ctx, src); err != nil {
			return "", err
		}
		for i := 0; i < opts.Frames; i++ {
			if err := engine.FrameAt(ctx, float64(i)/patchbay.DefaultFPS); err != nil {
				return "", err
			}
		}
		snap = engine.Snapshot()
	}
	return graph.GenerateMermaid(snap, defs, overlay), nil
}

// Export writes the patch at path as a YAML patch file to w, or as one note
// per node into notesDir when it is set.
func Export(ctx context.Context, path string, w io.Writer, notesDir string) error {
	snap, err := loadSnapshot(ctx, path)
	if err != nil {
		return err
	}
	if notesDir != "" {
		store, err := loam.Open(notesDir, false)
		if err != nil {
			return err
		}
		return store.Save(ctx, snap)
	}
	data, err := patchfile.Encode(snap)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Definitions writes the node palette to w, rendered for the terminal
// unless raw is set.
func Definitions(w io.Writer, raw bool) error {
	md := tui.DefinitionsMarkdown(registry.Builtin().List())
	if raw {
		_, err := io.WriteString(w, md)
		return err
	}
	out, err := tui.NewRenderer()(md)
	if err != nil {
		return fmt.Errorf("failed to render definitions: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
