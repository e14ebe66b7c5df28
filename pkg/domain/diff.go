package domain

import (
	"reflect"
)

// GraphDiff represents the changes between two versions of the top-level graph.
// It is designed to be serialized to JSON for partial updates on the editor.
type GraphDiff struct {
	// Nodes holds the new version of every node that was added or whose payload changed.
	Nodes []*Node `json:"nodes,omitempty"`

	// RemovedNodes lists ids present before and absent now.
	RemovedNodes []string `json:"removed_nodes,omitempty"`

	// Edges holds edges that were added or rewired.
	Edges []Edge `json:"edges,omitempty"`

	RemovedEdges []string `json:"removed_edges,omitempty"`
}

// Diff calculates the difference between oldGraph and newGraph.
// If oldGraph is nil, it returns a diff representing the entire newGraph (initial load).
// It returns nil when nothing changed.
func Diff(oldGraph, newGraph *Graph) *GraphDiff {
	if newGraph == nil {
		return nil
	}
	if oldGraph == nil {
		oldGraph = &Graph{}
	}

	diff := &GraphDiff{
		Nodes:        diffNodes(oldGraph.Nodes, newGraph.Nodes),
		RemovedNodes: removedNodes(oldGraph.Nodes, newGraph.Nodes),
	}
	diff.Edges, diff.RemovedEdges = diffEdges(oldGraph.Edges, newGraph.Edges)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffNodes(old, new []*Node) []*Node {
	prev := make(map[string]*Node, len(old))
	for _, n := range old {
		prev[n.ID] = n
	}

	var out []*Node
	for _, n := range new {
		o, exists := prev[n.ID]
		if !exists || o.Kind != n.Kind || o.Position != n.Position || !reflect.DeepEqual(o.Data, n.Data) {
			out = append(out, n)
		}
	}
	return out
}

func removedNodes(old, new []*Node) []string {
	present := make(map[string]bool, len(new))
	for _, n := range new {
		present[n.ID] = true
	}
	var out []string
	for _, n := range old {
		if !present[n.ID] {
			out = append(out, n.ID)
		}
	}
	return out
}

func diffEdges(old, new []Edge) (changed []Edge, removed []string) {
	prev := make(map[string]Edge, len(old))
	for _, e := range old {
		prev[e.ID] = e
	}
	next := make(map[string]bool, len(new))
	for _, e := range new {
		next[e.ID] = true
		if o, ok := prev[e.ID]; !ok || o != e {
			changed = append(changed, e)
		}
	}
	for _, e := range old {
		if !next[e.ID] {
			removed = append(removed, e.ID)
		}
	}
	return changed, removed
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *GraphDiff) IsEmpty() bool {
	return len(d.Nodes) == 0 &&
		len(d.RemovedNodes) == 0 &&
		len(d.Edges) == 0 &&
		len(d.RemovedEdges) == 0
}
