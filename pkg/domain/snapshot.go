package domain

// Snapshot is everything a workbench holds, in a form stores can persist as-is.
type Snapshot struct {
	Nodes    []*Node    `json:"nodes"`
	Edges    []Edge     `json:"edges"`
	Circuits []Template `json:"circuits,omitempty"`
}

// Graph returns the top-level graph. It shares node pointers with the snapshot.
func (s *Snapshot) Graph() *Graph {
	return &Graph{Nodes: s.Nodes, Edges: s.Edges}
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Nodes: CloneNodes(s.Nodes),
		Edges: CloneEdges(s.Edges),
	}
	if s.Circuits != nil {
		out.Circuits = make([]Template, len(s.Circuits))
		for i, t := range s.Circuits {
			out.Circuits[i] = t.Clone()
		}
	}
	return out
}
