package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/patchbay"
	"github.com/aretw0/patchbay/internal/config"
	"github.com/aretw0/patchbay/pkg/adapters/loam"
	"github.com/aretw0/patchbay/pkg/adapters/memory"
	"github.com/aretw0/patchbay/pkg/adapters/patchfile"
	"github.com/aretw0/patchbay/pkg/ports"
	"github.com/aretw0/patchbay/pkg/registry"
)

// patchCandidates are looked up, in order, when a directory holds a patch file.
var patchCandidates = []string{"patch.yaml", "patch.yml"}

// engineOptions maps the engine configuration to engine options.
func engineOptions(cfg config.EngineConfig) ([]patchbay.Option, error) {
	ordering, err := patchbay.ParseOrdering(cfg.Ordering)
	if err != nil {
		return nil, err
	}
	opts := []patchbay.Option{
		patchbay.WithFPS(cfg.FPS),
		patchbay.WithOrdering(ordering),
		patchbay.WithSurfaceSize(cfg.Width, cfg.Height),
		patchbay.WithNoiseSeed(cfg.NoiseSeed),
	}
	if cfg.ProtoCache > 0 {
		opts = append(opts, patchbay.WithProtoCacheSize(cfg.ProtoCache))
	}
	if cfg.NodeBudget != "" {
		budget, err := time.ParseDuration(cfg.NodeBudget)
		if err != nil {
			return nil, fmt.Errorf("invalid engine.node_budget: %w", err)
		}
		opts = append(opts, patchbay.WithNodeBudget(budget))
	}
	return opts, nil
}

// createEngine initializes an engine with standard CLI conventions.
func createEngine(cfg *config.Config, logger *slog.Logger, debug bool, extra ...patchbay.Option) (*patchbay.Engine, error) {
	opts, err := engineOptions(cfg.Engine)
	if err != nil {
		return nil, err
	}
	opts = append(opts, patchbay.WithLogger(logger))
	if debug {
		opts = append(opts, patchbay.WithLifecycleHooks(createDebugHooks(logger)))
	}
	opts = append(opts, extra...)

	engine, err := patchbay.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}

// openSource resolves where a patch comes from:
//   - empty path: the built-in demo graph
//   - a .yaml/.yml file: a patch file
//   - a directory holding patch.yaml: that patch file
//   - any other directory: one note per node
func openSource(path string) (ports.SnapshotSource, error) {
	if path == "" {
		snap, err := patchbay.Demo(registry.Builtin())
		if err != nil {
			return nil, err
		}
		return memory.NewSource(snap), nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open patch: %w", err)
	}
	if !info.IsDir() {
		switch filepath.Ext(path) {
		case ".yaml", ".yml":
			return patchfile.New(path), nil
		}
		return nil, fmt.Errorf("unsupported patch file %s", path)
	}

	if candidate, ok := hasPatchFile(path); ok {
		return patchfile.New(candidate), nil
	}
	l, err := loam.Open(path, true)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// hasPatchFile checks whether dir holds one of the conventional patch files.
func hasPatchFile(dir string) (string, bool) {
	for _, name := range patchCandidates {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}
