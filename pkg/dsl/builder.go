package dsl

import (
	"errors"
	"fmt"

	"github.com/aretw0/circuitry/pkg/domain"
	"github.com/aretw0/circuitry/pkg/loader"
)

// Scope collects the nodes and wires of one graph level.
type Scope struct {
	nodes []loader.NodeSpec
	edges []loader.EdgeSpec
	errs  []error
}

// Builder manages the construction of a top-level graph and its circuits.
type Builder struct {
	Scope
	circuits []loader.CircuitSpec
}

// New creates a new circuit builder.
func New() *Builder {
	return &Builder{}
}

// Circuit declares a reusable circuit. fill adds its nodes and wires.
// Circuits must be declared before they are instantiated.
func (b *Builder) Circuit(name string, fill func(c *Scope)) *Builder {
	var s Scope
	fill(&s)
	b.errs = append(b.errs, wrapAll(fmt.Sprintf("circuit %q", name), s.errs)...)
	b.circuits = append(b.circuits, loader.CircuitSpec{Name: name, Nodes: s.nodes, Edges: s.edges})
	return b
}

// File returns the description built so far.
func (b *Builder) File() loader.File {
	return loader.File{Circuits: b.circuits, Nodes: b.nodes, Edges: b.edges}
}

// Build resolves the description into a snapshot ready for Workbench.Restore.
func (b *Builder) Build() (domain.Snapshot, error) {
	if err := errors.Join(b.errs...); err != nil {
		return domain.Snapshot{}, err
	}
	snap, err := loader.Build(b.File())
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to build circuit: %w", err)
	}
	return snap, nil
}

// Input adds an input pin, initially off.
func (s *Scope) Input(id string) *NodeBuilder {
	return s.add(loader.NodeSpec{ID: id, Type: string(domain.KindInput)})
}

// Output adds an output pin.
func (s *Scope) Output(id string) *NodeBuilder {
	return s.add(loader.NodeSpec{ID: id, Type: string(domain.KindOutput)})
}

// Gate adds a gate.
func (s *Scope) Gate(id string, op domain.Operation) *NodeBuilder {
	return s.add(loader.NodeSpec{ID: id, Type: string(domain.KindGate), Operation: string(op)})
}

// Instance adds an instance of a previously declared circuit.
func (s *Scope) Instance(id, circuit string) *NodeBuilder {
	return s.add(loader.NodeSpec{ID: id, Type: string(domain.KindCircuit), Circuit: circuit})
}

// Wire connects from to to. Both use the "node" or "node.handle" form.
func (s *Scope) Wire(from, to string) *Scope {
	s.edges = append(s.edges, loader.EdgeSpec{From: from, To: to})
	return s
}

func (s *Scope) add(spec loader.NodeSpec) *NodeBuilder {
	s.nodes = append(s.nodes, spec)
	return &NodeBuilder{scope: s, index: len(s.nodes) - 1}
}

func wrapAll(prefix string, errs []error) []error {
	out := make([]error, len(errs))
	for i, err := range errs {
		out[i] = fmt.Errorf("%s: %w", prefix, err)
	}
	return out
}
