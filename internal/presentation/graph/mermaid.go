package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/circuitry/pkg/domain"
)

// GraphOverlay selects the dynamic state drawn on top of the topology.
type GraphOverlay struct {
	// Values colors every pin and gate by its current output.
	Values bool
}

// GenerateMermaid produces a Mermaid flowchart from a graph.
// It applies semantic styling:
// - Input: ([Stadium])
// - Output: ((Circle))
// - Gate: {{Hexagon}} labelled with its operation
// - Circuit instance: a subgraph holding its internals
// Edges into or out of an instance are drawn to the internal pin node they address.
func GenerateMermaid(g *domain.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	var on, off []string
	writeLevel(&sb, g, "    ", overlay, &on, &off)

	if overlay != nil && overlay.Values {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on both light and dark themes.
		sb.WriteString("    classDef on fill:#c8e6c9,stroke:#2e7d32,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef off fill:#eceff1,stroke:#607d8b,stroke-width:1px,color:#000;\n")
		if len(on) > 0 {
			sb.WriteString(fmt.Sprintf("    class %s on;\n", strings.Join(on, ",")))
		}
		if len(off) > 0 {
			sb.WriteString(fmt.Sprintf("    class %s off;\n", strings.Join(off, ",")))
		}
	}

	return sb.String()
}

func writeLevel(sb *strings.Builder, g *domain.Graph, indent string, overlay *GraphOverlay, on, off *[]string) {
	circuits := make(map[string]bool)

	for _, n := range g.Nodes {
		safeID := sanitizeMermaidID(n.ID)

		if c, ok := n.Data.(*domain.CircuitData); ok {
			circuits[n.ID] = true
			name := c.Name
			if name == "" {
				name = n.ID
			}
			sb.WriteString(fmt.Sprintf("%ssubgraph %s[\"%s\"]\n", indent, safeID, escape(name)))
			writeLevel(sb, c.Graph(), indent+"    ", overlay, on, off)
			sb.WriteString(indent + "end\n")
			continue
		}

		opener, closer := "[", "]"
		label := n.ID
		switch d := n.Data.(type) {
		case *domain.InputData:
			opener, closer = "([", "])"
		case *domain.OutputData:
			opener, closer = "((", "))"
		case *domain.GateData:
			opener, closer = "{{", "}}"
			label = string(d.Operation)
		}
		sb.WriteString(fmt.Sprintf("%s%s%s\"%s\"%s\n", indent, safeID, opener, escape(label), closer))

		if overlay != nil && overlay.Values {
			if v, ok := n.Data.Value(domain.HandleOutput); ok && v {
				*on = append(*on, safeID)
			} else {
				*off = append(*off, safeID)
			}
		}
	}

	for _, e := range g.Edges {
		from, to := e.Source, e.Target
		if circuits[from] {
			from = e.SourceHandle
		}
		if circuits[to] {
			to = e.TargetHandle
		}
		arrow := "-->"
		if e.TargetHandle == domain.HandleInput1 || e.TargetHandle == domain.HandleInput2 {
			arrow = fmt.Sprintf("-- \"%s\" -->", e.TargetHandle)
		}
		sb.WriteString(fmt.Sprintf("%s%s %s %s\n", indent, sanitizeMermaidID(from), arrow, sanitizeMermaidID(to)))
	}
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, domain.ScopeSeparator, "__")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
