package runtime

import (
	"fmt"

	"github.com/aretw0/circuitry/pkg/domain"
)

// Check reports whether g can be propagated: every payload matches its node kind,
// circuit nesting stays within the engine's max depth and no level contains a loop.
// It never writes to g.
func (e *Engine) Check(g *domain.Graph) error {
	return e.check(g, 0)
}

func (e *Engine) check(g *domain.Graph, nesting int) error {
	if nesting > e.maxDepth {
		return fmt.Errorf("%w: circuit nesting %d", domain.ErrMaxDepthExceeded, nesting)
	}
	for _, n := range g.Nodes {
		if n == nil || n.Data == nil {
			return fmt.Errorf("node without payload: %w", domain.ErrUnknownKind)
		}
		if k := n.Data.Kind(); k != n.Kind {
			return fmt.Errorf("node %q is a %s with a %s payload: %w", n.ID, n.Kind, k, domain.ErrUnknownKind)
		}
	}
	if path := findCycle(g); path != nil {
		return &domain.CycleError{Path: path}
	}
	for _, n := range g.Nodes {
		c, ok := n.Data.(*domain.CircuitData)
		if !ok {
			continue
		}
		if err := e.check(c.Graph(), nesting+1); err != nil {
			return err
		}
	}
	return nil
}

const (
	white = iota
	grey
	black
)

// findCycle returns the first loop found by a depth-first search over the edges of
// one graph level, or nil. Edges with a missing endpoint are ignored.
func findCycle(g *domain.Graph) []string {
	adj := make(map[string][]string)
	exists := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		exists[n.ID] = true
	}
	for _, e := range g.Edges {
		if exists[e.Source] && exists[e.Target] {
			adj[e.Source] = append(adj[e.Source], e.Target)
		}
	}

	color := make(map[string]int, len(g.Nodes))
	var stack []string
	var visit func(id string) []string
	visit = func(id string) []string {
		color[id] = grey
		stack = append(stack, id)
		for _, next := range adj[id] {
			switch color[next] {
			case grey:
				for i, s := range stack {
					if s == next {
						path := append([]string{}, stack[i:]...)
						return append(path, next)
					}
				}
			case white:
				if path := visit(next); path != nil {
					return path
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return nil
	}

	for _, n := range g.Nodes {
		if color[n.ID] == white {
			if path := visit(n.ID); path != nil {
				return path
			}
		}
	}
	return nil
}
