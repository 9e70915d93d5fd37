// Package validator checks a patch before it is run.
package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/patchbay/internal/script"
	"github.com/aretw0/patchbay/pkg/domain"
	"github.com/aretw0/patchbay/pkg/graph"
)

// Report lists what a validation found. Problems make the patch unusable;
// warnings describe nodes that run but cannot affect the final output.
type Report struct {
	Problems []string
	Warnings []string
}

// OK reports whether no problems were found.
func (r *Report) OK() bool {
	return len(r.Problems) == 0
}

// Err summarizes the problems as one error, or nil.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("found %d errors:\n- %s", len(r.Problems), strings.Join(r.Problems, "\n- "))
}

// ValidatePatch checks the graph structure through the editor rules, compiles
// every script and walks back from the sink nodes (definitions without an
// output) to find nodes that nothing consumes.
func ValidatePatch(defs graph.Definitions, snap *domain.Snapshot) (*Report, error) {
	report := &Report{}

	ed := graph.NewEditor(defs)
	if err := ed.Replace(snap); err != nil {
		report.Problems = append(report.Problems, err.Error())
		return report, nil
	}
	snap = ed.Snapshot()

	compiler, err := script.New()
	if err != nil {
		return nil, err
	}
	defer compiler.Close()

	feeders := make(map[string][]string)
	for _, e := range snap.Edges {
		feeders[e.Target] = append(feeders[e.Target], e.Source)
	}

	reached := make(map[string]bool)
	var queue []string
	for _, n := range snap.Nodes {
		if _, _, err := compiler.Program(n.ID, n.Script); err != nil {
			report.Problems = append(report.Problems, fmt.Sprintf("Compile error in '%s': %v", n.ID, err))
		}
		def, _ := defs.Lookup(n.DefinitionID)
		if def.OutputKind == domain.KindNone {
			queue = append(queue, n.ID)
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if reached[id] {
			continue
		}
		reached[id] = true
		queue = append(queue, feeders[id]...)
	}

	for _, n := range snap.Nodes {
		if !reached[n.ID] {
			report.Warnings = append(report.Warnings, fmt.Sprintf("Node '%s' does not reach an output", n.ID))
		}
	}
	return report, nil
}
