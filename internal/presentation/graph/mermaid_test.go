package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/patchbay/internal/presentation/graph"
	"github.com/aretw0/patchbay/pkg/domain"
	"github.com/aretw0/patchbay/pkg/registry"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		snap     domain.Snapshot
		overlay  *graph.GraphOverlay
		contains []string
	}{
		{
			name: "Shapes By Output Kind",
			snap: domain.Snapshot{Nodes: []domain.Node{
				{ID: "osc", DefinitionID: registry.ValOscillator},
				{ID: "c", DefinitionID: registry.GeoCircle},
				{ID: "noise", DefinitionID: registry.TexNoise},
				{ID: "out", DefinitionID: registry.FinalOutput},
			}},
			contains: []string{
				`osc(("osc <br/> Oscillator"))`,
				`c[/"c <br/> Circle"/]`,
				`noise["noise <br/> Noise"]`,
				`out[["out <br/> Final Output"]]`,
			},
		},
		{
			name: "Unknown Definition",
			snap: domain.Snapshot{Nodes: []domain.Node{{ID: "x", DefinitionID: "NOPE"}}},
			contains: []string{
				`x["x"]`,
			},
		},
		{
			name: "ID Sanitization",
			snap: domain.Snapshot{Nodes: []domain.Node{
				{ID: "path/to/node.1"},
				{ID: "hyphen-ated"},
			}},
			contains: []string{
				`path_to_node_1["path/to/node.1"]`,
				`hyphen_ated["hyphen-ated"]`,
			},
		},
		{
			name: "Edges",
			snap: domain.Snapshot{
				Nodes: []domain.Node{
					{ID: "a", DefinitionID: registry.TexNoise},
					{ID: "b", DefinitionID: registry.TexNoise},
					{ID: "mix", DefinitionID: registry.TexComposite},
					{ID: "osc", DefinitionID: registry.ValOscillator},
					{ID: "px", DefinitionID: registry.TexPixelate},
				},
				Edges: []domain.Edge{
					{ID: "1", Source: "a", Target: "mix", InputIndex: 0},
					{ID: "2", Source: "b", Target: "mix", InputIndex: 1},
					{ID: "3", Source: "mix", Target: "px"},
					{ID: "4", Source: "osc", Target: "px", ParamKey: "size"},
				},
			},
			contains: []string{
				`a -- "0" --> mix`,
				`b -- "1" --> mix`,
				`mix --> px`,
				`osc -. "size" .-> px`,
			},
		},
		{
			name: "Overlay",
			snap: domain.Snapshot{Nodes: []domain.Node{{ID: "bad-node"}, {ID: "sel"}}},
			overlay: &graph.GraphOverlay{
				FailedNodes: []string{"bad-node", "bad-node"},
				Selected:    "sel",
			},
			contains: []string{
				"classDef failed",
				"class bad_node failed;",
				"class sel selected;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(&tt.snap, registry.Builtin(), tt.overlay)
			if !strings.HasPrefix(got, "graph LR\n") {
				t.Errorf("GenerateMermaid() missing header:\n%v", got)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
			if strings.Count(got, "class bad_node failed;") > 1 {
				t.Errorf("failed node styled twice:\n%v", got)
			}
		})
	}
}
