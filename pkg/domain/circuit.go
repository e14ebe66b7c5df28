package domain

import (
	"strings"
	"time"
)

// ScopeSeparator joins a template-local id to the instance id that owns it.
const ScopeSeparator = "@"

// ScopedID is the id a template-local node or edge receives inside an instance.
func ScopedID(local, instance string) string {
	return local + ScopeSeparator + instance
}

// LocalID strips the outermost instance suffix. ok is false for unscoped ids.
func LocalID(id string) (local, instance string, ok bool) {
	i := strings.LastIndex(id, ScopeSeparator)
	if i < 0 {
		return id, "", false
	}
	return id[:i], id[i+1:], true
}

// Template is a saved sub-graph. It is never modified after save;
// every placement works on a clone.
type Template struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Nodes   []*Node   `json:"nodes"`
	Edges   []Edge    `json:"edges"`
	SavedAt time.Time `json:"savedAt"`
}

// NewTemplate copies nodes and edges so later workbench edits cannot leak into it.
func NewTemplate(id, name string, nodes []*Node, edges []Edge, now time.Time) Template {
	return Template{
		ID:      id,
		Name:    name,
		Nodes:   CloneNodes(nodes),
		Edges:   CloneEdges(edges),
		SavedAt: now,
	}
}

// Clone returns a deep copy.
func (t Template) Clone() Template {
	t.Nodes = CloneNodes(t.Nodes)
	t.Edges = CloneEdges(t.Edges)
	return t
}

// InputPins returns the template-local ids of the top-level Input nodes.
func (t Template) InputPins() []string { return pinsOf(t.Nodes, KindInput) }

// OutputPins returns the template-local ids of the top-level Output nodes.
func (t Template) OutputPins() []string { return pinsOf(t.Nodes, KindOutput) }

func pinsOf(nodes []*Node, kind NodeKind) []string {
	var out []string
	for _, n := range nodes {
		if n.Kind == kind {
			out = append(out, n.ID)
		}
	}
	return out
}

// Instantiate deep-clones the template and scopes every id at every nesting depth
// with instanceID, so that two instances never share a node or edge id.
// The boundary maps list the scoped ids of the top-level Input and Output nodes.
func Instantiate(t Template, instanceID string) *CircuitData {
	nodes := CloneNodes(t.Nodes)
	edges := CloneEdges(t.Edges)
	scope(nodes, edges, instanceID)

	c := &CircuitData{
		Name:    t.Name,
		Nodes:   nodes,
		Edges:   edges,
		Inputs:  map[string]bool{},
		Outputs: map[string]bool{},
	}
	for _, n := range nodes {
		switch n.Kind {
		case KindInput:
			c.Inputs[n.ID] = false
		case KindOutput:
			c.Outputs[n.ID] = false
		}
	}
	return c
}

func scope(nodes []*Node, edges []Edge, instance string) {
	circuits := make(map[string]bool)
	for _, n := range nodes {
		if n.Kind == KindCircuit {
			circuits[n.ID] = true
		}
	}

	for i := range edges {
		e := &edges[i]
		if circuits[e.Source] {
			e.SourceHandle = ScopedID(e.SourceHandle, instance)
		}
		if circuits[e.Target] {
			e.TargetHandle = ScopedID(e.TargetHandle, instance)
		}
		e.ID = ScopedID(e.ID, instance)
		e.Source = ScopedID(e.Source, instance)
		e.Target = ScopedID(e.Target, instance)
	}

	for _, n := range nodes {
		n.ID = ScopedID(n.ID, instance)
		c, ok := n.Data.(*CircuitData)
		if !ok {
			continue
		}
		scope(c.Nodes, c.Edges, instance)
		c.Inputs = scopeKeys(c.Inputs, instance)
		c.Outputs = scopeKeys(c.Outputs, instance)
	}
}

func scopeKeys(m map[string]bool, instance string) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[ScopedID(k, instance)] = v
	}
	return out
}
