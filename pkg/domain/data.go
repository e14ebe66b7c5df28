package domain

import "fmt"

// NodeData is the kind-specific payload of a node.
// The set of implementations is closed to this package.
type NodeData interface {
	// Kind reports the variant.
	Kind() NodeKind
	// Value reads a source handle. ok is false when the handle does not exist.
	Value(handle string) (v bool, ok bool)
	// Set writes a target handle and reports whether the handle exists.
	Set(handle string, v bool) bool
	// Clone returns a deep copy.
	Clone() NodeData

	isNodeData()
}

// SubgraphRunner runs a fresh propagation pass over a nested graph.
type SubgraphRunner func(g *Graph) error

// Firer is implemented by payloads that compute when all of their inputs have arrived.
type Firer interface {
	Fire(run SubgraphRunner) error
}

// InputData is the payload of an input pin. Output is the user-controlled value.
type InputData struct {
	Output bool `json:"output"`
}

func (*InputData) Kind() NodeKind { return KindInput }
func (*InputData) isNodeData()    {}

func (d *InputData) Value(handle string) (bool, bool) {
	if !singlePin(handle) {
		return false, false
	}
	return d.Output, true
}

func (d *InputData) Set(handle string, v bool) bool {
	if !singlePin(handle) {
		return false
	}
	d.Output = v
	return true
}

func (d *InputData) Clone() NodeData {
	c := *d
	return &c
}

// OutputData is the payload of an output pin. Output holds the last received value.
type OutputData struct {
	Output bool `json:"output"`
}

func (*OutputData) Kind() NodeKind { return KindOutput }
func (*OutputData) isNodeData()    {}

func (d *OutputData) Value(handle string) (bool, bool) {
	if !singlePin(handle) {
		return false, false
	}
	return d.Output, true
}

func (d *OutputData) Set(handle string, v bool) bool {
	if !singlePin(handle) {
		return false
	}
	d.Output = v
	return true
}

func (d *OutputData) Clone() NodeData {
	c := *d
	return &c
}

// GateData is the payload of a two-input (or one-input, for NOT) logic gate.
type GateData struct {
	Operation Operation `json:"operationType"`
	Input1    bool      `json:"input1"`
	Input2    bool      `json:"input2"`
	Output    bool      `json:"output"`
}

func (*GateData) Kind() NodeKind { return KindGate }
func (*GateData) isNodeData()    {}

func (d *GateData) Value(handle string) (bool, bool) {
	if !singlePin(handle) {
		return false, false
	}
	return d.Output, true
}

func (d *GateData) Set(handle string, v bool) bool {
	switch handle {
	case HandleInput1:
		d.Input1 = v
	case HandleInput2:
		d.Input2 = v
	default:
		return false
	}
	return true
}

func (d *GateData) Clone() NodeData {
	c := *d
	return &c
}

// Fire applies the truth table to the current inputs.
func (d *GateData) Fire(SubgraphRunner) error {
	if !d.Operation.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownOperation, d.Operation)
	}
	d.Output = Evaluate(d.Operation, d.Input1, d.Input2)
	return nil
}

// CircuitData is the payload of a circuit instance: a private copy of a template's
// internals plus the boundary values seen from outside.
// Inputs and Outputs are keyed by the id of the internal Input/Output node they expose.
type CircuitData struct {
	Name    string          `json:"name"`
	Nodes   []*Node         `json:"nodes"`
	Edges   []Edge          `json:"edges"`
	Inputs  map[string]bool `json:"inputs"`
	Outputs map[string]bool `json:"outputs"`
}

func (*CircuitData) Kind() NodeKind { return KindCircuit }
func (*CircuitData) isNodeData()    {}

// Graph exposes the internals as a graph. It shares the node pointers, so a pass
// over the returned graph mutates this instance.
func (d *CircuitData) Graph() *Graph {
	return &Graph{Nodes: d.Nodes, Edges: d.Edges}
}

func (d *CircuitData) Value(handle string) (bool, bool) {
	v, ok := d.Outputs[handle]
	return v, ok
}

// Set writes an input pin and mirrors it onto the internal Input node.
func (d *CircuitData) Set(handle string, v bool) bool {
	if _, ok := d.Inputs[handle]; !ok {
		return false
	}
	d.Inputs[handle] = v
	if n := d.Graph().Node(handle); n != nil && n.Kind == KindInput {
		n.Data.Set(HandleOutput, v)
	}
	return true
}

// Fire runs a pass over the internals and copies every internal Output node's value
// onto the matching output pin.
func (d *CircuitData) Fire(run SubgraphRunner) error {
	g := d.Graph()
	if err := run(g); err != nil {
		return err
	}
	for pin := range d.Outputs {
		n := g.Node(pin)
		if n == nil {
			continue
		}
		if v, ok := n.Data.Value(HandleOutput); ok {
			d.Outputs[pin] = v
		}
	}
	return nil
}

func (d *CircuitData) Clone() NodeData {
	c := &CircuitData{
		Name:    d.Name,
		Nodes:   CloneNodes(d.Nodes),
		Edges:   CloneEdges(d.Edges),
		Inputs:  cloneBools(d.Inputs),
		Outputs: cloneBools(d.Outputs),
	}
	c.ensureMaps()
	return c
}

func (d *CircuitData) ensureMaps() {
	if d.Inputs == nil {
		d.Inputs = map[string]bool{}
	}
	if d.Outputs == nil {
		d.Outputs = map[string]bool{}
	}
}

// singlePin accepts the handle names of nodes that expose one value.
func singlePin(handle string) bool {
	return handle == HandleOutput || handle == ""
}

func cloneBools(m map[string]bool) map[string]bool {
	if m == nil {
		return nil
	}
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
