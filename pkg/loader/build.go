package loader

import (
	"fmt"
	"strings"

	"github.com/aretw0/circuitry/pkg/domain"
)

// Build resolves a decoded description into a snapshot. Circuits become templates whose
// ID is their name; circuit nodes become instances whose instance id is the node id.
func Build(f File) (domain.Snapshot, error) {
	templates := make(map[string]domain.Template, len(f.Circuits))
	var snap domain.Snapshot

	for _, c := range f.Circuits {
		if c.Name == "" {
			return domain.Snapshot{}, fmt.Errorf("circuit without a name")
		}
		if _, dup := templates[c.Name]; dup {
			return domain.Snapshot{}, fmt.Errorf("circuit %q declared twice", c.Name)
		}
		g, err := buildGraph(c.Nodes, c.Edges, templates)
		if err != nil {
			return domain.Snapshot{}, fmt.Errorf("circuit %q: %w", c.Name, err)
		}
		tpl := domain.Template{ID: c.Name, Name: c.Name, Nodes: g.Nodes, Edges: g.Edges}
		templates[c.Name] = tpl
		snap.Circuits = append(snap.Circuits, tpl)
	}

	g, err := buildGraph(f.Nodes, f.Edges, templates)
	if err != nil {
		return domain.Snapshot{}, err
	}
	snap.Nodes = g.Nodes
	snap.Edges = g.Edges
	return snap, nil
}

func buildGraph(nodes []NodeSpec, edges []EdgeSpec, templates map[string]domain.Template) (*domain.Graph, error) {
	g := &domain.Graph{Nodes: make([]*domain.Node, 0, len(nodes)), Edges: make([]domain.Edge, 0, len(edges))}
	byID := make(map[string]*domain.Node, len(nodes))

	for _, spec := range nodes {
		n, err := buildNode(spec, templates)
		if err != nil {
			return nil, err
		}
		if _, dup := byID[n.ID]; dup {
			return nil, fmt.Errorf("node %q declared twice", n.ID)
		}
		byID[n.ID] = n
		g.Nodes = append(g.Nodes, n)
	}

	for i, spec := range edges {
		src, srcHandle, err := resolve(spec.From, byID, true)
		if err != nil {
			return nil, fmt.Errorf("edge %d from: %w", i+1, err)
		}
		dst, dstHandle, err := resolve(spec.To, byID, false)
		if err != nil {
			return nil, fmt.Errorf("edge %d to: %w", i+1, err)
		}
		id := spec.ID
		if id == "" {
			id = fmt.Sprintf("e%d", i+1)
		}
		g.Edges = append(g.Edges, domain.Edge{
			ID:           id,
			Source:       src,
			SourceHandle: srcHandle,
			Target:       dst,
			TargetHandle: dstHandle,
		})
	}
	return g, nil
}

func buildNode(spec NodeSpec, templates map[string]domain.Template) (*domain.Node, error) {
	if spec.ID == "" {
		return nil, fmt.Errorf("node without an id")
	}
	if strings.ContainsAny(spec.ID, "."+domain.ScopeSeparator) {
		return nil, fmt.Errorf("node id %q must not contain '.' or '%s'", spec.ID, domain.ScopeSeparator)
	}
	kind, err := domain.ParseKind(strings.ToLower(spec.Type))
	if err != nil {
		return nil, fmt.Errorf("node %q: %w", spec.ID, err)
	}
	pos := domain.Position{X: spec.X, Y: spec.Y}

	switch kind {
	case domain.KindCircuit:
		tpl, ok := templates[spec.Circuit]
		if !ok {
			return nil, fmt.Errorf("node %q: circuit %q: %w", spec.ID, spec.Circuit, domain.ErrTemplateNotFound)
		}
		return &domain.Node{
			ID:       spec.ID,
			Kind:     kind,
			Position: pos,
			Data:     domain.Instantiate(tpl, spec.ID),
		}, nil
	case domain.KindGate:
		op, err := domain.ParseOperation(spec.Operation)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", spec.ID, err)
		}
		return domain.NewNode(spec.ID, kind, op, pos)
	}

	n, err := domain.NewNode(spec.ID, kind, "", pos)
	if err != nil {
		return nil, err
	}
	if kind == domain.KindInput {
		n.Data.Set(domain.HandleOutput, spec.Value)
	}
	return n, nil
}

// resolve turns "node" or "node.handle" into a node id and a handle the engine understands.
func resolve(ref string, nodes map[string]*domain.Node, source bool) (string, string, error) {
	id, handle, _ := strings.Cut(strings.TrimSpace(ref), ".")
	n, ok := nodes[id]
	if !ok {
		return "", "", fmt.Errorf("%q: %w", ref, domain.ErrNodeNotFound)
	}

	switch d := n.Data.(type) {
	case *domain.CircuitData:
		if handle == "" {
			return "", "", fmt.Errorf("%q: circuit %q needs a pin", ref, id)
		}
		pin := domain.ScopedID(handle, id)
		pins := d.Inputs
		if source {
			pins = d.Outputs
		}
		if _, ok := pins[pin]; !ok {
			return "", "", fmt.Errorf("%q: circuit %q has no such pin", ref, id)
		}
		return id, pin, nil

	case *domain.GateData:
		if source {
			if handle != "" && handle != domain.HandleOutput {
				return "", "", fmt.Errorf("%q: gates only drive %q", ref, domain.HandleOutput)
			}
			return id, domain.HandleOutput, nil
		}
		if handle != domain.HandleInput1 && handle != domain.HandleInput2 {
			return "", "", fmt.Errorf("%q: gate inputs are %q and %q", ref, domain.HandleInput1, domain.HandleInput2)
		}
		if handle == domain.HandleInput2 && d.Operation.Arity() == 1 {
			return "", "", fmt.Errorf("%q: %s has a single input", ref, d.Operation)
		}
		return id, handle, nil
	}

	if handle != "" && handle != domain.HandleOutput {
		return "", "", fmt.Errorf("%q: %s pins have no handle %q", ref, n.Kind, handle)
	}
	return id, domain.HandleOutput, nil
}
