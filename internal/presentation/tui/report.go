package tui

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aretw0/circuitry/pkg/domain"
	"github.com/muesli/termenv"
)

// State formats a boolean the way every report shows it.
func State(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}

// Markdown renders the settled graph as tables of inputs, gates, circuits and outputs.
func Markdown(g *domain.Graph) string {
	var sb strings.Builder
	sb.WriteString("# Circuit state\n\n")

	section := func(title string, kind domain.NodeKind, header string, row func(*domain.Node) string) {
		var rows []string
		for _, n := range g.Nodes {
			if n.Kind == kind {
				rows = append(rows, row(n))
			}
		}
		if len(rows) == 0 {
			return
		}
		sb.WriteString("## " + title + "\n\n")
		sb.WriteString(header + "\n")
		sb.WriteString(strings.Repeat("| --- ", strings.Count(header, "|")-1) + "|\n")
		for _, r := range rows {
			sb.WriteString(r + "\n")
		}
		sb.WriteString("\n")
	}

	section("Inputs", domain.KindInput, "| Id | Value |", func(n *domain.Node) string {
		v, _ := n.Data.Value(domain.HandleOutput)
		return fmt.Sprintf("| `%s` | %s |", n.ID, State(v))
	})
	section("Gates", domain.KindGate, "| Id | Operation | In 1 | In 2 | Out |", func(n *domain.Node) string {
		d := n.Data.(*domain.GateData)
		in2 := State(d.Input2)
		if d.Operation.Arity() == 1 {
			in2 = "-"
		}
		return fmt.Sprintf("| `%s` | %s | %s | %s | %s |", n.ID, d.Operation, State(d.Input1), in2, State(d.Output))
	})
	section("Circuits", domain.KindCircuit, "| Id | Name | Inputs | Outputs |", func(n *domain.Node) string {
		d := n.Data.(*domain.CircuitData)
		return fmt.Sprintf("| `%s` | %s | %s | %s |", n.ID, d.Name, pins(d.Inputs, n.ID), pins(d.Outputs, n.ID))
	})
	section("Outputs", domain.KindOutput, "| Id | Value |", func(n *domain.Node) string {
		v, _ := n.Data.Value(domain.HandleOutput)
		return fmt.Sprintf("| `%s` | **%s** |", n.ID, State(v))
	})

	return sb.String()
}

// pins lists a boundary map with the instance suffix stripped, sorted by pin.
func pins(m map[string]bool, instance string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		label := strings.TrimSuffix(k, domain.ScopeSeparator+instance)
		parts = append(parts, fmt.Sprintf("%s=%s", label, State(m[k])))
	}
	return strings.Join(parts, " ")
}

// Plain writes one line per input and output, coloring values for the given profile.
// Use termenv.Ascii for uncolored output.
func Plain(w io.Writer, g *domain.Graph, p termenv.Profile) error {
	for _, kind := range []domain.NodeKind{domain.KindInput, domain.KindOutput} {
		for _, n := range g.Nodes {
			if n.Kind != kind {
				continue
			}
			v, _ := n.Data.Value(domain.HandleOutput)
			color := "#9ca3af"
			if v {
				color = "#22c55e"
			}
			value := p.String(State(v)).Foreground(p.Color(color))
			if v {
				value = value.Bold()
			}
			if _, err := fmt.Fprintf(w, "%-6s %-24s %s\n", kind, n.ID, value); err != nil {
				return err
			}
		}
	}
	return nil
}
