// Package patchfile loads a patch from a single YAML document.
//
//	nodes:
//	  - id: circle
//	    def: GEO_CIRCLE
//	    x: 50
//	    y: 100
//	    script_file: circle.lua
//	    params: {radius: 40}
//	edges:
//	  - {from: circle, to: render, input: 0}
//	  - {from: osc, to: circle, param: radius}
//
// script_file paths are relative to the patch file. A node without script or
// script_file runs its definition's default script.
package patchfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/patchbay/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

type nodeDoc struct {
	ID         string             `mapstructure:"id"`
	Def        string             `mapstructure:"def"`
	X          float64            `mapstructure:"x"`
	Y          float64            `mapstructure:"y"`
	Script     string             `mapstructure:"script"`
	ScriptFile string             `mapstructure:"script_file"`
	Params     map[string]float64 `mapstructure:"params"`
}

type edgeDoc struct {
	ID    string `mapstructure:"id"`
	From  string `mapstructure:"from"`
	To    string `mapstructure:"to"`
	Input int    `mapstructure:"input"`
	Param string `mapstructure:"param"`
}

type patchDoc struct {
	Nodes []nodeDoc `mapstructure:"nodes"`
	Edges []edgeDoc `mapstructure:"edges"`
}

// Loader implements ports.SnapshotSource and ports.Watchable for a patch file.
type Loader struct {
	Path string
}

// New creates a loader for the file at path.
func New(path string) *Loader {
	return &Loader{Path: path}
}

// Load reads and decodes the patch file.
func (l *Loader) Load(ctx context.Context) (*domain.Snapshot, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read patch: %w", err)
	}
	return Parse(data, filepath.Dir(l.Path))
}

// Parse decodes a patch document. Relative script files resolve against dir.
func Parse(data []byte, dir string) (*domain.Snapshot, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid patch yaml: %w", err)
	}

	var doc patchDoc
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &doc,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid patch: %w", err)
	}

	snap := &domain.Snapshot{}
	for i, n := range doc.Nodes {
		if n.ID == "" || n.Def == "" {
			return nil, fmt.Errorf("node %d: id and def are required", i)
		}
		script := n.Script
		if n.ScriptFile != "" {
			if script != "" {
				return nil, fmt.Errorf("node %s: script and script_file are exclusive", n.ID)
			}
			path := n.ScriptFile
			if !filepath.IsAbs(path) {
				path = filepath.Join(dir, path)
			}
			b, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("node %s: %w", n.ID, err)
			}
			script = string(b)
		}
		snap.Nodes = append(snap.Nodes, domain.Node{
			ID:           n.ID,
			DefinitionID: n.Def,
			Position:     domain.Position{X: n.X, Y: n.Y},
			Script:       script,
			Params:       n.Params,
		})
	}

	for _, e := range doc.Edges {
		id := e.ID
		if id == "" {
			if e.Param != "" {
				id = fmt.Sprintf("e-%s-%s-%s", e.From, e.To, e.Param)
			} else {
				id = fmt.Sprintf("e-%s-%s-%d", e.From, e.To, e.Input)
			}
		}
		snap.Edges = append(snap.Edges, domain.Edge{
			ID:         id,
			Source:     e.From,
			Target:     e.To,
			InputIndex: e.Input,
			ParamKey:   e.Param,
		})
	}
	return snap, nil
}

// Encode renders a snapshot as a patch document with inline scripts.
func Encode(snap *domain.Snapshot) ([]byte, error) {
	type node struct {
		ID     string             `yaml:"id"`
		Def    string             `yaml:"def"`
		X      float64            `yaml:"x"`
		Y      float64            `yaml:"y"`
		Script string             `yaml:"script,omitempty"`
		Params map[string]float64 `yaml:"params,omitempty"`
	}
	type edge struct {
		From  string `yaml:"from"`
		To    string `yaml:"to"`
		Input int    `yaml:"input,omitempty"`
		Param string `yaml:"param,omitempty"`
	}
	var out struct {
		Nodes []node `yaml:"nodes"`
		Edges []edge `yaml:"edges,omitempty"`
	}
	for _, n := range snap.Nodes {
		out.Nodes = append(out.Nodes, node{
			ID: n.ID, Def: n.DefinitionID, X: n.Position.X, Y: n.Position.Y,
			Script: n.Script, Params: n.Params,
		})
	}
	for _, e := range snap.Edges {
		out.Edges = append(out.Edges, edge{From: e.Source, To: e.Target, Input: e.InputIndex, Param: e.ParamKey})
	}
	return yaml.Marshal(out)
}
