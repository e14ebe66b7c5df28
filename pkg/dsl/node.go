package dsl

import (
	"fmt"

	"github.com/aretw0/circuitry/pkg/domain"
)

// NodeBuilder is the fluent interface for one node.
type NodeBuilder struct {
	scope *Scope
	index int
}

// At sets the canvas position.
func (nb *NodeBuilder) At(x, y float64) *NodeBuilder {
	nb.scope.nodes[nb.index].X = x
	nb.scope.nodes[nb.index].Y = y
	return nb
}

// On sets an input's initial value to true.
func (nb *NodeBuilder) On() *NodeBuilder {
	n := &nb.scope.nodes[nb.index]
	if n.Type != string(domain.KindInput) {
		nb.scope.errs = append(nb.scope.errs, fmt.Errorf("node %q: only inputs can be switched on", n.ID))
		return nb
	}
	n.Value = true
	return nb
}

// From wires sources into this node. A gate takes one source per input, in
// order; an output takes exactly one. Circuit instances are wired with Scope.Wire.
func (nb *NodeBuilder) From(sources ...string) *NodeBuilder {
	n := nb.scope.nodes[nb.index]
	switch n.Type {
	case string(domain.KindGate):
		handles := []string{domain.HandleInput1, domain.HandleInput2}
		if len(sources) > len(handles) {
			nb.scope.errs = append(nb.scope.errs, fmt.Errorf("gate %q: %d sources, at most 2", n.ID, len(sources)))
			return nb
		}
		for i, src := range sources {
			nb.scope.Wire(src, n.ID+"."+handles[i])
		}
	case string(domain.KindOutput):
		if len(sources) != 1 {
			nb.scope.errs = append(nb.scope.errs, fmt.Errorf("output %q: needs exactly one source, got %d", n.ID, len(sources)))
			return nb
		}
		nb.scope.Wire(sources[0], n.ID)
	default:
		nb.scope.errs = append(nb.scope.errs, fmt.Errorf("node %q: %s nodes cannot use From", n.ID, n.Type))
	}
	return nb
}

// ID returns the node id, for wiring by reference.
func (nb *NodeBuilder) ID() string {
	return nb.scope.nodes[nb.index].ID
}
