package loader

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

type hclFile struct {
	Circuits []hclCircuit `hcl:"circuit,block"`
	Nodes    []hclNode    `hcl:"node,block"`
	Edges    []hclEdge    `hcl:"edge,block"`
}

type hclCircuit struct {
	Name  string    `hcl:"name,label"`
	Nodes []hclNode `hcl:"node,block"`
	Edges []hclEdge `hcl:"edge,block"`
}

type hclNode struct {
	ID        string  `hcl:"id,label"`
	Type      string  `hcl:"type"`
	Operation string  `hcl:"operation,optional"`
	Value     bool    `hcl:"value,optional"`
	Circuit   string  `hcl:"circuit,optional"`
	X         float64 `hcl:"x,optional"`
	Y         float64 `hcl:"y,optional"`
}

type hclEdge struct {
	ID   string `hcl:"id,optional"`
	From string `hcl:"from"`
	To   string `hcl:"to"`
}

// decodeHCL reads the block form:
//
//	circuit "inverter" {
//	  node "i" { type = "input" }
//	  edge { from = "i" to = "n.input1" }
//	}
//	node "p" {
//	  type  = "input"
//	  value = true
//	}
func decodeHCL(data []byte, filename string) (File, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return File{}, fmt.Errorf("failed to parse HCL: %w", diags)
	}

	var parsed hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return File{}, fmt.Errorf("failed to decode HCL: %w", diags)
	}

	f := File{
		Nodes: convertNodes(parsed.Nodes),
		Edges: convertEdges(parsed.Edges),
	}
	for _, c := range parsed.Circuits {
		f.Circuits = append(f.Circuits, CircuitSpec{
			Name:  c.Name,
			Nodes: convertNodes(c.Nodes),
			Edges: convertEdges(c.Edges),
		})
	}
	return f, nil
}

func convertNodes(in []hclNode) []NodeSpec {
	out := make([]NodeSpec, len(in))
	for i, n := range in {
		out[i] = NodeSpec(n)
	}
	return out
}

func convertEdges(in []hclEdge) []EdgeSpec {
	out := make([]EdgeSpec, len(in))
	for i, e := range in {
		out[i] = EdgeSpec(e)
	}
	return out
}
