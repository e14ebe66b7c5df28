package domain

import (
	"encoding/json"
	"fmt"
)

// NodeKind selects the payload variant of a node.
type NodeKind string

const (
	KindInput   NodeKind = "input"
	KindOutput  NodeKind = "output"
	KindGate    NodeKind = "gate"
	KindCircuit NodeKind = "circuit"
)

// ParseKind validates a kind name.
func ParseKind(s string) (NodeKind, error) {
	switch k := NodeKind(s); k {
	case KindInput, KindOutput, KindGate, KindCircuit:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Handle names shared by every payload.
const (
	HandleOutput = "output"
	HandleInput1 = "input1"
	HandleInput2 = "input2"
)

// CanonicalHandle folds the spellings of one pin into a single name.
// Input and output nodes expose one value under both "" and HandleOutput.
func CanonicalHandle(kind NodeKind, handle string) string {
	if (kind == KindInput || kind == KindOutput) && singlePin(handle) {
		return HandleOutput
	}
	return handle
}

// Position is the editor's placement of a node. The simulator never reads it.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Node is a component on the workbench.
// ID, Kind and Position are fixed at creation; only Data changes during a pass.
type Node struct {
	ID       string   `json:"id"`
	Kind     NodeKind `json:"type"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

// NewNode builds a node with the default payload for its kind.
// The operation is only read for gates.
func NewNode(id string, kind NodeKind, op Operation, pos Position) (*Node, error) {
	var data NodeData
	switch kind {
	case KindInput:
		data = &InputData{}
	case KindOutput:
		data = &OutputData{}
	case KindGate:
		if !op.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
		}
		data = &GateData{Operation: op}
	case KindCircuit:
		data = &CircuitData{Inputs: map[string]bool{}, Outputs: map[string]bool{}}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return &Node{ID: id, Kind: kind, Position: pos, Data: data}, nil
}

// Clone returns a deep copy of the node, including nested circuit internals.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.Data != nil {
		c.Data = n.Data.Clone()
	}
	return &c
}

type nodeJSON struct {
	ID       string          `json:"id"`
	Kind     NodeKind        `json:"type"`
	Position Position        `json:"position"`
	Data     json.RawMessage `json:"data"`
}

// UnmarshalJSON picks the payload type from the node kind.
func (n *Node) UnmarshalJSON(b []byte) error {
	var raw nodeJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	var data NodeData
	switch raw.Kind {
	case KindInput:
		data = &InputData{}
	case KindOutput:
		data = &OutputData{}
	case KindGate:
		data = &GateData{}
	case KindCircuit:
		data = &CircuitData{}
	default:
		return fmt.Errorf("node %q: %w: %q", raw.ID, ErrUnknownKind, raw.Kind)
	}
	if len(raw.Data) > 0 && string(raw.Data) != "null" {
		if err := json.Unmarshal(raw.Data, data); err != nil {
			return fmt.Errorf("node %q: %w", raw.ID, err)
		}
	}
	if c, ok := data.(*CircuitData); ok {
		c.ensureMaps()
	}

	n.ID = raw.ID
	n.Kind = raw.Kind
	n.Position = raw.Position
	n.Data = data
	return nil
}

// CloneNodes deep-copies a node slice.
func CloneNodes(nodes []*Node) []*Node {
	if nodes == nil {
		return nil
	}
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}
