package domain

// ChangeType is the kind of edit an editor reports.
type ChangeType string

const (
	ChangeAdd      ChangeType = "add"
	ChangeRemove   ChangeType = "remove"
	ChangeReplace  ChangeType = "replace"
	ChangePosition ChangeType = "position"
)

// NodeChange is one edit to the node collection.
// Item is read by add and replace, Position by position.
type NodeChange struct {
	Type     ChangeType `json:"type"`
	ID       string     `json:"id,omitempty"`
	Item     *Node      `json:"item,omitempty"`
	Position *Position  `json:"position,omitempty"`
}

// EdgeChange is one edit to the edge collection.
type EdgeChange struct {
	Type ChangeType `json:"type"`
	ID   string     `json:"id,omitempty"`
	Item *Edge      `json:"item,omitempty"`
}

// ApplyNodeChanges returns nodes with the changes applied in order.
// Changes naming unknown ids are ignored, and so are items whose payload is missing
// or does not match their kind. Removing a node does not touch edges.
func ApplyNodeChanges(changes []NodeChange, nodes []*Node) []*Node {
	out := append([]*Node(nil), nodes...)
	for _, c := range changes {
		switch c.Type {
		case ChangeAdd:
			if c.Item.wellFormed() {
				out = append(out, c.Item.Clone())
			}
		case ChangeRemove:
			out = removeNode(out, c.ID)
		case ChangeReplace:
			if !c.Item.wellFormed() {
				continue
			}
			for i, n := range out {
				if n.ID == c.ID {
					out[i] = c.Item.Clone()
					break
				}
			}
		case ChangePosition:
			if c.Position == nil {
				continue
			}
			for i, n := range out {
				if n.ID == c.ID {
					moved := *n
					moved.Position = *c.Position
					out[i] = &moved
					break
				}
			}
		}
	}
	return out
}

// ApplyEdgeChanges returns edges with the changes applied in order.
func ApplyEdgeChanges(changes []EdgeChange, edges []Edge) []Edge {
	out := append([]Edge(nil), edges...)
	for _, c := range changes {
		switch c.Type {
		case ChangeAdd:
			if c.Item != nil {
				out = append(out, *c.Item)
			}
		case ChangeRemove:
			kept := out[:0]
			for _, e := range out {
				if e.ID != c.ID {
					kept = append(kept, e)
				}
			}
			out = kept
		case ChangeReplace:
			if c.Item == nil {
				continue
			}
			for i, e := range out {
				if e.ID == c.ID {
					out[i] = *c.Item
					break
				}
			}
		}
	}
	return out
}

func removeNode(nodes []*Node, id string) []*Node {
	kept := nodes[:0]
	for _, n := range nodes {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	return kept
}

func (n *Node) wellFormed() bool {
	return n != nil && n.Data != nil && n.Data.Kind() == n.Kind
}
