package domain

// Graph is the node and edge collection a propagation pass walks.
type Graph struct {
	Nodes []*Node `json:"nodes"`
	Edges []Edge  `json:"edges"`
}

// Node finds a node by id. It returns nil when absent.
func (g *Graph) Node(id string) *Node {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Outgoing returns the edges leaving id in edge-list order.
func (g *Graph) Outgoing(id string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

// IncomingCount is the number of edges that target id, dangling ones included.
func (g *Graph) IncomingCount(id string) int {
	count := 0
	for _, e := range g.Edges {
		if e.Target == id {
			count++
		}
	}
	return count
}

// Inputs returns the Input nodes of this level in node order.
func (g *Graph) Inputs() []*Node {
	var out []*Node
	for _, n := range g.Nodes {
		if n.Kind == KindInput {
			out = append(out, n)
		}
	}
	return out
}

// Clone returns a deep copy.
func (g *Graph) Clone() *Graph {
	return &Graph{Nodes: CloneNodes(g.Nodes), Edges: CloneEdges(g.Edges)}
}

// RemoveNode drops the node and every edge touching it. Unknown ids are a no-op.
func (g *Graph) RemoveNode(id string) bool {
	found := false
	nodes := g.Nodes[:0]
	for _, n := range g.Nodes {
		if n.ID == id {
			found = true
			continue
		}
		nodes = append(nodes, n)
	}
	g.Nodes = nodes

	edges := g.Edges[:0]
	for _, e := range g.Edges {
		if e.Touches(id) {
			continue
		}
		edges = append(edges, e)
	}
	g.Edges = edges
	return found
}

// Pin identifies one target handle of one node.
type Pin struct {
	Node   string `json:"node"`
	Handle string `json:"handle"`
}

// Drivers groups edge ids by the target handle they write.
// A pin with more than one entry is driven by several sources.
func (g *Graph) Drivers() map[Pin][]string {
	kinds := make(map[string]NodeKind, len(g.Nodes))
	for _, n := range g.Nodes {
		kinds[n.ID] = n.Kind
	}
	out := make(map[Pin][]string)
	for _, e := range g.Edges {
		p := Pin{Node: e.Target, Handle: CanonicalHandle(kinds[e.Target], e.TargetHandle)}
		out[p] = append(out[p], e.ID)
	}
	return out
}

// Walk visits every node at every nesting level, depth first, parents before children.
// depth is 0 for top-level nodes.
func (g *Graph) Walk(fn func(n *Node, depth int)) {
	walk(g.Nodes, 0, fn)
}

func walk(nodes []*Node, depth int, fn func(*Node, int)) {
	for _, n := range nodes {
		fn(n, depth)
		if c, ok := n.Data.(*CircuitData); ok {
			walk(c.Nodes, depth+1, fn)
		}
	}
}
