package runtime

import (
	"fmt"

	"github.com/aretw0/patchbay/pkg/domain"
)

// Ordering selects how nodes are sequenced within a frame.
type Ordering int

const (
	// OrderDeclaration runs nodes in snapshot order and reads every input from
	// the previous frame, so each hop adds one frame of latency.
	OrderDeclaration Ordering = iota
	// OrderTopological runs sources before their consumers. Inputs produced
	// earlier in the same frame are read directly.
	OrderTopological
)

func (o Ordering) String() string {
	switch o {
	case OrderDeclaration:
		return "declaration"
	case OrderTopological:
		return "topological"
	}
	return fmt.Sprintf("Ordering(%d)", int(o))
}

// ParseOrdering accepts "declaration" or "topological".
func ParseOrdering(s string) (Ordering, error) {
	switch s {
	case "", "declaration":
		return OrderDeclaration, nil
	case "topological":
		return OrderTopological, nil
	}
	return OrderDeclaration, fmt.Errorf("unknown ordering %q", s)
}

// topoOrder returns node indexes sources-first. Ties keep declaration order.
// Nodes on a cycle are appended in declaration order.
func topoOrder(s *domain.Snapshot) []int {
	index := make(map[string]int, len(s.Nodes))
	for i, n := range s.Nodes {
		index[n.ID] = i
	}
	indeg := make([]int, len(s.Nodes))
	out := make([][]int, len(s.Nodes))
	for _, e := range s.Edges {
		src, ok1 := index[e.Source]
		dst, ok2 := index[e.Target]
		if !ok1 || !ok2 || src == dst {
			continue
		}
		out[src] = append(out[src], dst)
		indeg[dst]++
	}

	order := make([]int, 0, len(s.Nodes))
	done := make([]bool, len(s.Nodes))
	for progress := true; progress; {
		progress = false
		for i := range s.Nodes {
			if done[i] || indeg[i] > 0 {
				continue
			}
			done[i] = true
			order = append(order, i)
			for _, j := range out[i] {
				indeg[j]--
			}
			progress = true
			break
		}
	}
	for i := range s.Nodes {
		if !done[i] {
			order = append(order, i)
		}
	}
	return order
}
