package circuitry_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/circuitry"
	"github.com/aretw0/circuitry/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counter() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id%d", n)
	}
}

func newBench(opts ...circuitry.Option) *circuitry.Workbench {
	base := []circuitry.Option{
		circuitry.WithIDGenerator(counter()),
		circuitry.WithClock(func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }),
	}
	return circuitry.New(append(base, opts...)...)
}

func place(t *testing.T, wb *circuitry.Workbench, kind domain.NodeKind, op domain.Operation) *domain.Node {
	t.Helper()
	n, err := wb.PlaceBasicNode(context.Background(), kind, op, domain.Position{})
	require.NoError(t, err)
	return n
}

func connect(t *testing.T, wb *circuitry.Workbench, src, srcHandle, dst, dstHandle string) domain.Edge {
	t.Helper()
	e, err := wb.Connect(context.Background(), domain.Connection{
		Source: src, SourceHandle: srcHandle, Target: dst, TargetHandle: dstHandle,
	})
	require.NoError(t, err)
	return e
}

func output(t *testing.T, wb *circuitry.Workbench, id string) bool {
	t.Helper()
	n, ok := wb.Node(id)
	require.True(t, ok, "node %s", id)
	v, ok := n.Data.Value(domain.HandleOutput)
	require.True(t, ok)
	return v
}

// andBench wires a, b -> AND -> out and returns the ids.
func andBench(t *testing.T, wb *circuitry.Workbench) (a, b, g, out string) {
	t.Helper()
	a = place(t, wb, domain.KindInput, "").ID
	b = place(t, wb, domain.KindInput, "").ID
	g = place(t, wb, domain.KindGate, domain.OpAND).ID
	out = place(t, wb, domain.KindOutput, "").ID
	connect(t, wb, a, domain.HandleOutput, g, domain.HandleInput1)
	connect(t, wb, b, domain.HandleOutput, g, domain.HandleInput2)
	connect(t, wb, g, domain.HandleOutput, out, domain.HandleOutput)
	return a, b, g, out
}

func TestWorkbench_ToggleReachesOutput(t *testing.T) {
	ctx := context.Background()
	wb := newBench()
	in := place(t, wb, domain.KindInput, "")
	out := place(t, wb, domain.KindOutput, "")
	connect(t, wb, in.ID, domain.HandleOutput, out.ID, domain.HandleOutput)

	assert.False(t, output(t, wb, out.ID))
	require.NoError(t, wb.ToggleInputNode(ctx, in.ID))
	assert.True(t, output(t, wb, out.ID))
	require.NoError(t, wb.ToggleInputNode(ctx, in.ID))
	assert.False(t, output(t, wb, out.ID))
}

func TestWorkbench_GateComposition(t *testing.T) {
	ctx := context.Background()
	wb := newBench()
	a, b, _, out := andBench(t, wb)

	require.NoError(t, wb.ToggleInputNode(ctx, a))
	assert.False(t, output(t, wb, out))
	require.NoError(t, wb.ToggleInputNode(ctx, b))
	assert.True(t, output(t, wb, out))
}

func TestWorkbench_ToggleIgnoresNonInputs(t *testing.T) {
	ctx := context.Background()
	wb := newBench()
	_, _, g, _ := andBench(t, wb)
	before := wb.Graph()

	require.NoError(t, wb.ToggleInputNode(ctx, g))
	require.NoError(t, wb.ToggleInputNode(ctx, "missing"))
	assert.Equal(t, before, wb.Graph())
}

func TestWorkbench_ConnectRejections(t *testing.T) {
	ctx := context.Background()
	wb := newBench()
	_, b, g, out := andBench(t, wb)
	edges := wb.Edges()

	_, err := wb.Connect(ctx, domain.Connection{Source: b, SourceHandle: domain.HandleOutput, Target: g, TargetHandle: domain.HandleInput1})
	assert.ErrorIs(t, err, domain.ErrHandleDriven)

	_, err = wb.Connect(ctx, domain.Connection{Source: "ghost", SourceHandle: domain.HandleOutput, Target: out, TargetHandle: domain.HandleOutput})
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)

	_, err = wb.Connect(ctx, domain.Connection{Source: b, SourceHandle: domain.HandleOutput, Target: out})
	assert.ErrorIs(t, err, domain.ErrHandleDriven, "an empty handle names the output pin")

	assert.Equal(t, edges, wb.Edges())

	p := place(t, wb, domain.KindGate, domain.OpOR)
	q := place(t, wb, domain.KindGate, domain.OpNOT)
	connect(t, wb, p.ID, domain.HandleOutput, q.ID, domain.HandleInput1)
	edges = wb.Edges()

	_, err = wb.Connect(ctx, domain.Connection{Source: q.ID, SourceHandle: domain.HandleOutput, Target: p.ID, TargetHandle: domain.HandleInput1})
	assert.ErrorIs(t, err, domain.ErrCycleDetected)
	assert.Equal(t, edges, wb.Edges(), "the rejected edge is rolled back")
}

func TestWorkbench_MultipleDriversThroughChanges(t *testing.T) {
	wb := newBench()
	a := place(t, wb, domain.KindInput, "")
	b := place(t, wb, domain.KindInput, "")
	out := place(t, wb, domain.KindOutput, "")
	connect(t, wb, a.ID, domain.HandleOutput, out.ID, domain.HandleOutput)

	wb.ApplyEdgeChanges([]domain.EdgeChange{{
		Type: domain.ChangeAdd,
		Item: &domain.Edge{ID: "extra", Source: b.ID, SourceHandle: domain.HandleOutput, Target: out.ID, TargetHandle: domain.HandleOutput},
	}})

	findings := wb.Validate()
	require.Len(t, findings, 1)
	assert.ErrorIs(t, findings[0], domain.ErrHandleDriven)
}

func TestWorkbench_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	wb := newBench()
	a, b, g, out := andBench(t, wb)
	require.NoError(t, wb.ToggleInputNode(ctx, a))
	require.NoError(t, wb.ToggleInputNode(ctx, b))
	require.True(t, output(t, wb, out))

	require.NoError(t, wb.DeleteNode(ctx, g))
	_, ok := wb.Node(g)
	assert.False(t, ok)
	for _, e := range wb.Edges() {
		assert.False(t, e.Touches(g))
	}
	assert.Empty(t, wb.Edges())
	assert.Len(t, wb.Nodes(), 3)

	require.NoError(t, wb.DeleteNode(ctx, "missing"))
	assert.Len(t, wb.Nodes(), 3)
}

func TestWorkbench_CircuitInstances(t *testing.T) {
	ctx := context.Background()
	wb := newBench()
	andBench(t, wb)
	tpl, err := wb.SaveCurrent(ctx, "AND2")
	require.NoError(t, err)
	wb.Clear()

	circuits, err := wb.Circuits(ctx)
	require.NoError(t, err)
	require.Len(t, circuits, 1, "Clear keeps saved circuits")

	c1, err := wb.PlaceCircuitNode(ctx, tpl, domain.Position{})
	require.NoError(t, err)
	c2, err := wb.PlaceSavedCircuit(ctx, tpl.ID, domain.Position{X: 100})
	require.NoError(t, err)

	pins := tpl.InputPins()
	require.Len(t, pins, 2)
	outPin := tpl.OutputPins()[0]

	x := place(t, wb, domain.KindInput, "")
	y := place(t, wb, domain.KindInput, "")
	z := place(t, wb, domain.KindOutput, "")
	connect(t, wb, x.ID, domain.HandleOutput, c1.ID, domain.ScopedID(pins[0], c1.ID))
	connect(t, wb, y.ID, domain.HandleOutput, c1.ID, domain.ScopedID(pins[1], c1.ID))
	connect(t, wb, c1.ID, domain.ScopedID(outPin, c1.ID), z.ID, domain.HandleOutput)

	require.NoError(t, wb.ToggleInputNode(ctx, x.ID))
	require.NoError(t, wb.ToggleInputNode(ctx, y.ID))
	assert.True(t, output(t, wb, z.ID))

	n1, _ := wb.Node(c1.ID)
	n2, _ := wb.Node(c2.ID)
	assert.True(t, n1.Data.(*domain.CircuitData).Outputs[domain.ScopedID(outPin, c1.ID)])
	assert.False(t, n2.Data.(*domain.CircuitData).Outputs[domain.ScopedID(outPin, c2.ID)], "instances do not share state")

	saved, err := wb.Circuits(ctx)
	require.NoError(t, err)
	assert.Equal(t, tpl, saved[0], "templates never change after save")
}

func TestWorkbench_IDsUniqueAcrossInstances(t *testing.T) {
	ctx := context.Background()
	wb := circuitry.New()
	andBench(t, wb)
	tpl, err := wb.SaveCurrent(ctx, "AND2")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := wb.PlaceCircuitNode(ctx, tpl, domain.Position{})
		require.NoError(t, err)
	}

	seen := map[string]bool{}
	wb.Graph().Walk(func(n *domain.Node, _ int) {
		assert.False(t, seen[n.ID], "duplicate id %s", n.ID)
		seen[n.ID] = true
	})
	assert.Len(t, seen, 4+5*5)
}

func TestWorkbench_PlaceSavedCircuitMissing(t *testing.T) {
	_, err := newBench().PlaceSavedCircuit(context.Background(), "nope", domain.Position{})
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)
}

func TestWorkbench_SnapshotRestore(t *testing.T) {
	ctx := context.Background()
	wb := newBench()
	a, b, _, out := andBench(t, wb)
	_, err := wb.SaveCurrent(ctx, "AND2")
	require.NoError(t, err)
	require.NoError(t, wb.ToggleInputNode(ctx, a))
	require.NoError(t, wb.ToggleInputNode(ctx, b))

	snap, err := wb.Snapshot(ctx)
	require.NoError(t, err)

	other := newBench()
	require.NoError(t, other.Restore(ctx, snap))
	assert.True(t, output(t, other, out))
	assert.Equal(t, wb.Graph(), other.Graph())

	circuits, err := other.Circuits(ctx)
	require.NoError(t, err)
	assert.Len(t, circuits, 1)
}

func TestWorkbench_RestoreRejectsLoops(t *testing.T) {
	ctx := context.Background()
	wb := newBench()
	andBench(t, wb)
	before := wb.Graph()

	loop := domain.Snapshot{
		Nodes: []*domain.Node{
			{ID: "g1", Kind: domain.KindGate, Data: &domain.GateData{Operation: domain.OpOR}},
			{ID: "g2", Kind: domain.KindGate, Data: &domain.GateData{Operation: domain.OpOR}},
		},
		Edges: []domain.Edge{
			{ID: "l1", Source: "g1", SourceHandle: domain.HandleOutput, Target: "g2", TargetHandle: domain.HandleInput1},
			{ID: "l2", Source: "g2", SourceHandle: domain.HandleOutput, Target: "g1", TargetHandle: domain.HandleInput1},
		},
	}
	assert.ErrorIs(t, wb.Restore(ctx, loop), domain.ErrCycleDetected)
	assert.Equal(t, before, wb.Graph())
}

func TestWorkbench_WatchAndHooks(t *testing.T) {
	ctx := context.Background()
	var passes int
	wb := newBench(circuitry.WithLifecycleHooks(domain.LifecycleHooks{
		OnPassEnd: func(context.Context, *domain.PassEvent) { passes++ },
	}))

	var diffs []*domain.GraphDiff
	cancel := wb.Watch(func(d *domain.GraphDiff) { diffs = append(diffs, d) })

	in := place(t, wb, domain.KindInput, "")
	out := place(t, wb, domain.KindOutput, "")
	connect(t, wb, in.ID, domain.HandleOutput, out.ID, domain.HandleOutput)
	require.Len(t, diffs, 3)
	assert.Equal(t, 3, passes)

	require.NoError(t, wb.ToggleInputNode(ctx, in.ID))
	require.Len(t, diffs, 4)
	assert.Len(t, diffs[3].Nodes, 2, "input and output both changed")

	_, err := wb.Simulate(ctx)
	require.NoError(t, err)
	assert.Len(t, diffs, 4, "a pass that changes nothing is not broadcast")
	assert.Equal(t, 5, passes)

	cancel()
	wb.Clear()
	assert.Len(t, diffs, 4)
}

func TestWorkbench_ConcurrentCommands(t *testing.T) {
	ctx := context.Background()
	wb := circuitry.New()
	a, _, _, _ := andBench(t, wb)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = wb.ToggleInputNode(ctx, a)
			_ = wb.Nodes()
		}()
	}
	wg.Wait()
	assert.False(t, output(t, wb, a), "an even number of toggles")
}

func loopNodes() ([]*domain.Node, []domain.Edge) {
	return []*domain.Node{
			{ID: "g1", Kind: domain.KindGate, Data: &domain.GateData{Operation: domain.OpOR}},
			{ID: "g2", Kind: domain.KindGate, Data: &domain.GateData{Operation: domain.OpOR}},
		}, []domain.Edge{
			{ID: "l1", Source: "g1", SourceHandle: domain.HandleOutput, Target: "g2", TargetHandle: domain.HandleInput1},
			{ID: "l2", Source: "g2", SourceHandle: domain.HandleOutput, Target: "g1", TargetHandle: domain.HandleInput1},
		}
}

func TestWorkbench_CyclicTemplates(t *testing.T) {
	ctx := context.Background()
	wb := newBench()
	andBench(t, wb)
	before := wb.Graph()

	nodes, edges := loopNodes()
	_, err := wb.SaveCircuit(ctx, "loop", nodes, edges)
	assert.ErrorIs(t, err, domain.ErrCycleDetected)
	circuits, err := wb.Circuits(ctx)
	require.NoError(t, err)
	assert.Empty(t, circuits)

	tpl := domain.NewTemplate("loop", "loop", nodes, edges, time.Unix(0, 0))
	n, err := wb.PlaceCircuitNode(ctx, tpl, domain.Position{})
	assert.ErrorIs(t, err, domain.ErrCycleDetected)
	assert.Nil(t, n)
	assert.Equal(t, before, wb.Graph(), "the instance is not left behind")

	in := place(t, wb, domain.KindInput, "")
	assert.NotEmpty(t, in.ID, "later commands still work")

	err = wb.Restore(ctx, domain.Snapshot{Circuits: []domain.Template{tpl}})
	assert.ErrorIs(t, err, domain.ErrCycleDetected)
	circuits, err = wb.Circuits(ctx)
	require.NoError(t, err)
	assert.Empty(t, circuits)
}

func TestWorkbench_FailedCommandsLeaveGraph(t *testing.T) {
	wb := newBench()
	a, b, g, out := andBench(t, wb)
	require.NoError(t, wb.ToggleInputNode(context.Background(), a))
	before := wb.Graph()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := wb.PlaceBasicNode(ctx, domain.KindInput, "", domain.Position{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, wb.ToggleInputNode(ctx, b), context.Canceled)
	assert.ErrorIs(t, wb.SetInput(ctx, a, false), context.Canceled)
	assert.ErrorIs(t, wb.DeleteNode(ctx, g), context.Canceled)
	_, err = wb.Connect(ctx, domain.Connection{Source: a, SourceHandle: domain.HandleOutput, Target: out, TargetHandle: "extra"})
	assert.ErrorIs(t, err, context.Canceled)
	_, err = wb.Simulate(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, before, wb.Graph())
}

func TestWorkbench_MalformedNodeChangesIgnored(t *testing.T) {
	ctx := context.Background()
	wb := newBench()
	in := place(t, wb, domain.KindInput, "")

	wb.ApplyNodeChanges([]domain.NodeChange{
		{Type: domain.ChangeAdd, Item: &domain.Node{ID: "raw", Kind: domain.KindOutput}},
		{Type: domain.ChangeAdd, Item: &domain.Node{ID: "odd", Kind: domain.KindGate, Data: &domain.InputData{}}},
	})
	assert.Len(t, wb.Nodes(), 1)

	_, err := wb.Connect(ctx, domain.Connection{Source: in.ID, SourceHandle: domain.HandleOutput, Target: "raw"})
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)

	out := place(t, wb, domain.KindOutput, "")
	connect(t, wb, in.ID, domain.HandleOutput, out.ID, "")
	require.NoError(t, wb.ToggleInputNode(ctx, in.ID))
	assert.True(t, output(t, wb, out.ID))
}
