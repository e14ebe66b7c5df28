package domain

// Edge is a wire from a source handle to a target handle.
// For circuit instances the handle is the id of the exposed internal pin node.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	SourceHandle string `json:"sourceHandle"`
	Target       string `json:"target"`
	TargetHandle string `json:"targetHandle"`
}

// Connection is a requested edge that has not been given an id yet.
type Connection struct {
	Source       string `json:"source"`
	SourceHandle string `json:"sourceHandle"`
	Target       string `json:"target"`
	TargetHandle string `json:"targetHandle"`
}

// Edge assigns id to the connection.
func (c Connection) Edge(id string) Edge {
	return Edge{
		ID:           id,
		Source:       c.Source,
		SourceHandle: c.SourceHandle,
		Target:       c.Target,
		TargetHandle: c.TargetHandle,
	}
}

// Touches reports whether the edge starts or ends at node id.
func (e Edge) Touches(id string) bool {
	return e.Source == id || e.Target == id
}

// CloneEdges copies an edge slice. Edges hold no references, so a shallow copy is deep.
func CloneEdges(edges []Edge) []Edge {
	if edges == nil {
		return nil
	}
	out := make([]Edge, len(edges))
	copy(out, edges)
	return out
}
