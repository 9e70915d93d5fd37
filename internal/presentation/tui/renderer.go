package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/patchbay/pkg/annotation"
	"github.com/aretw0/patchbay/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// The style follows the terminal background.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// DefinitionsMarkdown describes the node palette as a markdown document,
// grouped by category, with the parameters each default script declares.
func DefinitionsMarkdown(defs []domain.Definition) string {
	var sb strings.Builder
	sb.WriteString("# Node definitions\n")

	var category domain.Category
	for _, def := range defs {
		if def.Category != category {
			category = def.Category
			fmt.Fprintf(&sb, "\n## %s\n", category)
		}
		fmt.Fprintf(&sb, "\n### %s `%s`\n\n", def.Label, def.ID)
		fmt.Fprintf(&sb, "- input: %s\n", kindName(def.InputKind, def.Ports()))
		fmt.Fprintf(&sb, "- output: %s\n", kindName(def.OutputKind, 1))
		if def.PreviewHint != "" {
			fmt.Fprintf(&sb, "- keys: %s\n", def.PreviewHint)
		}

		keys := annotation.Keys(def.DefaultScript)
		if len(keys) == 0 {
			continue
		}
		params := annotation.Parse(def.DefaultScript)
		sb.WriteString("\n| param | default | min | max | step |\n|---|---|---|---|---|\n")
		for _, key := range keys {
			cfg := params.Configs[key]
			fmt.Fprintf(&sb, "| %s | %g | %g | %g | %g |\n", key, params.Values[key], cfg.Min, cfg.Max, cfg.Step)
		}
	}
	return sb.String()
}

func kindName(k domain.Kind, ports int) string {
	if k == domain.KindNone {
		return "none"
	}
	if ports > 1 {
		return fmt.Sprintf("%d × %s", ports, k)
	}
	return string(k)
}
