/*
Package circuitry is a combinational logic-circuit workbench.

A Workbench owns a graph of input pins, output pins, logic gates and circuit instances.
Every command that changes the graph or an input value re-runs a full propagation pass,
so reads always reflect a settled circuit.

	wb := circuitry.New()
	a, _ := wb.PlaceBasicNode(ctx, domain.KindInput, "", domain.Position{})
	b, _ := wb.PlaceBasicNode(ctx, domain.KindInput, "", domain.Position{})
	and, _ := wb.PlaceBasicNode(ctx, domain.KindGate, domain.OpAND, domain.Position{})
	out, _ := wb.PlaceBasicNode(ctx, domain.KindOutput, "", domain.Position{})
	wb.Connect(ctx, domain.Connection{Source: a.ID, SourceHandle: "output", Target: and.ID, TargetHandle: "input1"})
	wb.Connect(ctx, domain.Connection{Source: b.ID, SourceHandle: "output", Target: and.ID, TargetHandle: "input2"})
	wb.Connect(ctx, domain.Connection{Source: and.ID, SourceHandle: "output", Target: out.ID, TargetHandle: "output"})
	wb.ToggleInputNode(ctx, a.ID)
	wb.ToggleInputNode(ctx, b.ID)

A working sub-graph can be saved as a template with SaveCircuit and placed any number
of times with PlaceCircuitNode; each placement gets a private, id-scoped copy.

Persistence and transport live in pkg/adapters; the propagation engine lives in
internal/runtime and the model in pkg/domain.
*/
package circuitry
