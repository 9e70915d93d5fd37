package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/patchbay/pkg/domain"
)

// Definitions resolves definition ids. *registry.Registry satisfies it.
type Definitions interface {
	Lookup(id string) (domain.Definition, error)
}

// GraphOverlay contains frame state to visualize on the graph.
type GraphOverlay struct {
	FailedNodes []string
	Selected    string
}

// GenerateMermaid produces a Mermaid flowchart (graph LR) for a patch.
// It shapes nodes by what they output:
// - Value: ((Circle))
// - Geometry: [/Parallelogram/]
// - Texture: [Rectangle]
// - Sink (no output): [[Subroutine]]
// Data edges are solid arrows labelled with the input slot when the target
// has several; modulation edges are dotted and labelled with the parameter.
func GenerateMermaid(snap *domain.Snapshot, defs Definitions, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	slots := make(map[string]int, len(snap.Nodes))
	for _, node := range snap.Nodes {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		label := node.ID
		if def, err := defs.Lookup(node.DefinitionID); err == nil {
			slots[node.ID] = def.Ports()
			switch def.OutputKind {
			case domain.KindValue:
				opener, closer = "((", "))"
			case domain.KindGeometry:
				opener, closer = "[/", "/]"
			case domain.KindNone:
				opener, closer = "[[", "]]"
			}
			if def.Label != "" {
				label = fmt.Sprintf("%s <br/> %s", node.ID, def.Label)
			}
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))
	}

	for _, e := range snap.Edges {
		from, to := sanitizeMermaidID(e.Source), sanitizeMermaidID(e.Target)
		switch {
		case e.IsModulation():
			sb.WriteString(fmt.Sprintf("    %s -. \"%s\" .-> %s\n", from, e.ParamKey, to))
		case slots[e.Target] > 1:
			sb.WriteString(fmt.Sprintf("    %s -- \"%d\" --> %s\n", from, e.InputIndex, to))
		default:
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", from, to))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef failed fill:#fee2e2,stroke:#b91c1c,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef selected fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.FailedNodes {
			safeID := sanitizeMermaidID(id)
			if !seen[safeID] && safeID != "" {
				seen[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s failed;\n", safeID))
			}
		}
		if overlay.Selected != "" {
			sb.WriteString(fmt.Sprintf("    class %s selected;\n", sanitizeMermaidID(overlay.Selected)))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
