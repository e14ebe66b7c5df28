package runtime

import (
	"fmt"
	"sort"

	"github.com/aretw0/circuitry/pkg/domain"
)

// Validate inspects g at every nesting level without mutating it.
// Findings with SeverityError make a pass fail or misbehave; warnings describe wiring
// the engine tolerates (dangling edges, several drivers on one handle).
func (e *Engine) Validate(g *domain.Graph) []*domain.ValidationError {
	if g == nil {
		return nil
	}
	var out []*domain.ValidationError
	e.validateLevel(g, 0, &out)
	return out
}

func (e *Engine) validateLevel(g *domain.Graph, nesting int, out *[]*domain.ValidationError) {
	if nesting > e.maxDepth {
		*out = append(*out, &domain.ValidationError{
			Severity: domain.SeverityError,
			Message:  fmt.Sprintf("circuit nesting exceeds %d", e.maxDepth),
			Err:      domain.ErrMaxDepthExceeded,
		})
		return
	}

	if path := findCycle(g); path != nil {
		cerr := &domain.CycleError{Path: path}
		*out = append(*out, &domain.ValidationError{
			Severity: domain.SeverityError,
			NodeID:   path[0],
			Message:  cerr.Error(),
			Err:      cerr,
		})
	}

	for _, n := range g.Nodes {
		if n.Data == nil || n.Data.Kind() != n.Kind {
			*out = append(*out, &domain.ValidationError{
				Severity: domain.SeverityError,
				NodeID:   n.ID,
				Message:  fmt.Sprintf("node '%s' has no %s payload", n.ID, n.Kind),
				Err:      domain.ErrUnknownKind,
			})
			continue
		}
		if gate, ok := n.Data.(*domain.GateData); ok && !gate.Operation.Valid() {
			*out = append(*out, &domain.ValidationError{
				Severity: domain.SeverityError,
				NodeID:   n.ID,
				Message:  fmt.Sprintf("unknown gate operation %q", gate.Operation),
				Err:      domain.ErrUnknownOperation,
			})
		}
	}

	for _, edge := range g.Edges {
		src, dst := g.Node(edge.Source), g.Node(edge.Target)
		switch {
		case src == nil || dst == nil:
			*out = append(*out, &domain.ValidationError{
				Severity: domain.SeverityWarning,
				EdgeID:   edge.ID,
				Message:  fmt.Sprintf("dangling edge %s -> %s", edge.Source, edge.Target),
				Err:      domain.ErrNodeNotFound,
			})
			continue
		}
		if src.Data == nil || dst.Data == nil {
			continue
		}
		if _, ok := src.Data.Value(edge.SourceHandle); !ok {
			*out = append(*out, &domain.ValidationError{
				Severity: domain.SeverityWarning,
				EdgeID:   edge.ID,
				Message:  fmt.Sprintf("node '%s' has no source handle %q", src.ID, edge.SourceHandle),
			})
		}
		if !dst.Data.Clone().Set(edge.TargetHandle, false) {
			*out = append(*out, &domain.ValidationError{
				Severity: domain.SeverityWarning,
				EdgeID:   edge.ID,
				Message:  fmt.Sprintf("node '%s' has no target handle %q", dst.ID, edge.TargetHandle),
			})
		}
	}

	drivers := g.Drivers()
	pins := make([]domain.Pin, 0, len(drivers))
	for pin, edges := range drivers {
		if len(edges) > 1 && g.Node(pin.Node) != nil {
			pins = append(pins, pin)
		}
	}
	sort.Slice(pins, func(i, j int) bool {
		if pins[i].Node != pins[j].Node {
			return pins[i].Node < pins[j].Node
		}
		return pins[i].Handle < pins[j].Handle
	})
	for _, pin := range pins {
		*out = append(*out, &domain.ValidationError{
			Severity: domain.SeverityWarning,
			NodeID:   pin.Node,
			Message:  fmt.Sprintf("handle %q has %d drivers %v; the last edge wins", pin.Handle, len(drivers[pin]), drivers[pin]),
			Err:      domain.ErrHandleDriven,
		})
	}

	for _, n := range g.Nodes {
		if c, ok := n.Data.(*domain.CircuitData); ok && n.Kind == domain.KindCircuit {
			e.validateLevel(c.Graph(), nesting+1, out)
		}
	}
}

// HasErrors reports whether any finding is an error.
func HasErrors(findings []*domain.ValidationError) bool {
	for _, f := range findings {
		if f.Severity == domain.SeverityError {
			return true
		}
	}
	return false
}
