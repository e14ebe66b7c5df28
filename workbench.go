package circuitry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/circuitry/internal/runtime"
	"github.com/aretw0/circuitry/pkg/adapters/memory"
	"github.com/aretw0/circuitry/pkg/domain"
	"github.com/aretw0/circuitry/pkg/ports"
	"github.com/google/uuid"
)

// Workbench owns the nodes, edges and saved circuits of one editing session.
// Commands are serialized; each one runs to completion, including its propagation pass,
// before the next starts. It is safe for concurrent use.
type Workbench struct {
	mu    sync.Mutex
	nodes []*domain.Node
	edges []domain.Edge

	engine    *runtime.Engine
	templates ports.TemplateStore
	newID     func() string
	now       func() time.Time
	logger    *slog.Logger

	hooks      domain.LifecycleHooks
	engineOpts []runtime.EngineOption

	watchMu  sync.Mutex
	watchers map[int]func(*domain.GraphDiff)
	nextWID  int
}

// Option defines a functional option for configuring the Workbench.
type Option func(*Workbench)

// WithLogger sets a custom structured logger for the workbench and its engine.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workbench) {
		w.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks on the propagation engine.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(w *Workbench) {
		w.hooks = w.hooks.Merge(hooks)
	}
}

// WithMaxDepth bounds circuit nesting (default runtime.DefaultMaxDepth).
func WithMaxDepth(depth int) Option {
	return func(w *Workbench) {
		w.engineOpts = append(w.engineOpts, runtime.WithMaxDepth(depth))
	}
}

// WithTemplateStore replaces the default in-memory template store.
func WithTemplateStore(store ports.TemplateStore) Option {
	return func(w *Workbench) {
		w.templates = store
	}
}

// WithIDGenerator replaces uuid.NewString for node, edge and template ids.
// Generated ids must not contain domain.ScopeSeparator.
func WithIDGenerator(gen func() string) Option {
	return func(w *Workbench) {
		w.newID = gen
	}
}

// WithClock replaces time.Now for template timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *Workbench) {
		w.now = now
	}
}

// New creates an empty workbench.
func New(opts ...Option) *Workbench {
	w := &Workbench{
		newID:    uuid.NewString,
		now:      time.Now,
		watchers: make(map[int]func(*domain.GraphDiff)),
	}
	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if w.templates == nil {
		w.templates = memory.NewTemplateStore()
	}

	engineOpts := []runtime.EngineOption{
		runtime.WithLogger(w.logger),
		runtime.WithLifecycleHooks(w.hooks),
	}
	w.engine = runtime.NewEngine(append(engineOpts, w.engineOpts...)...)
	return w
}

// Watch registers fn to receive the diff produced by every command that changed the graph.
// fn runs after the command has released the workbench. The returned func unregisters it.
func (w *Workbench) Watch(fn func(*domain.GraphDiff)) (cancel func()) {
	w.watchMu.Lock()
	defer w.watchMu.Unlock()
	id := w.nextWID
	w.nextWID++
	w.watchers[id] = fn
	return func() {
		w.watchMu.Lock()
		defer w.watchMu.Unlock()
		delete(w.watchers, id)
	}
}

func (w *Workbench) notify(diff *domain.GraphDiff) {
	if diff == nil {
		return
	}
	w.watchMu.Lock()
	fns := make([]func(*domain.GraphDiff), 0, len(w.watchers))
	for _, fn := range w.watchers {
		fns = append(fns, fn)
	}
	w.watchMu.Unlock()

	for _, fn := range fns {
		fn(diff)
	}
}

// mutate runs fn under the workbench lock and notifies watchers of the resulting diff.
func (w *Workbench) mutate(fn func() error) error {
	diff, err := w.locked(fn)
	w.notify(diff)
	return err
}

// locked runs fn under w.mu. Commands never write to the live nodes in place, they
// swap in new collections, so the old view is a valid "before" for the diff.
func (w *Workbench) locked(fn func() error) (*domain.GraphDiff, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	before := w.graph()
	err := fn()
	diff := domain.Diff(before, w.graph())
	if diff != nil {
		diff = cloneDiff(diff)
	}
	return diff, err
}

// commit applies change to a copy of the graph and propagates the copy. The copy
// replaces the live graph only when both succeed, so a failed command leaves the
// workbench as it was. Callers hold w.mu.
func (w *Workbench) commit(ctx context.Context, change func(g *domain.Graph) error) (domain.PassReport, error) {
	g := w.graph().Clone()
	if err := change(g); err != nil {
		return domain.PassReport{}, err
	}
	report, err := w.engine.Propagate(ctx, g)
	if err != nil {
		return report, err
	}
	w.nodes, w.edges = g.Nodes, g.Edges
	return report, nil
}

func cloneDiff(d *domain.GraphDiff) *domain.GraphDiff {
	out := *d
	out.Nodes = domain.CloneNodes(d.Nodes)
	out.Edges = domain.CloneEdges(d.Edges)
	return &out
}

// graph views the live collections. Callers hold w.mu.
func (w *Workbench) graph() *domain.Graph {
	return &domain.Graph{Nodes: w.nodes, Edges: w.edges}
}

func (w *Workbench) nodeByID(id string) *domain.Node {
	return w.graph().Node(id)
}

// ApplyNodeChanges applies editor edits (add, remove, replace, move) without a pass.
func (w *Workbench) ApplyNodeChanges(changes []domain.NodeChange) {
	_ = w.mutate(func() error {
		w.nodes = domain.ApplyNodeChanges(changes, w.nodes)
		return nil
	})
}

// ApplyEdgeChanges applies editor edits to the edge list without a pass.
// Unlike Connect, it accepts several edges onto one target handle.
func (w *Workbench) ApplyEdgeChanges(changes []domain.EdgeChange) {
	_ = w.mutate(func() error {
		w.edges = domain.ApplyEdgeChanges(changes, w.edges)
		return nil
	})
}

// Connect appends an edge for conn and runs a pass.
// It fails with domain.ErrNodeNotFound when an endpoint is missing, with
// domain.ErrHandleDriven when the target handle already has a driver, and with
// domain.ErrCycleDetected when the edge would close a loop; in all three cases
// the graph is left unchanged, as it is when the pass fails for any other reason.
// The single-pin spellings "" and "output" name the same handle.
func (w *Workbench) Connect(ctx context.Context, conn domain.Connection) (domain.Edge, error) {
	var edge domain.Edge
	err := w.mutate(func() error {
		_, err := w.commit(ctx, func(g *domain.Graph) error {
			if g.Node(conn.Source) == nil {
				return fmt.Errorf("source %q: %w", conn.Source, domain.ErrNodeNotFound)
			}
			target := g.Node(conn.Target)
			if target == nil {
				return fmt.Errorf("target %q: %w", conn.Target, domain.ErrNodeNotFound)
			}
			pin := domain.Pin{Node: target.ID, Handle: domain.CanonicalHandle(target.Kind, conn.TargetHandle)}
			if ids := g.Drivers()[pin]; len(ids) > 0 {
				return fmt.Errorf("%s.%s driven by edge %q: %w", pin.Node, pin.Handle, ids[0], domain.ErrHandleDriven)
			}

			edge = conn.Edge(w.newID())
			g.Edges = append(g.Edges, edge)
			return nil
		})
		return err
	})
	if err != nil {
		return domain.Edge{}, err
	}
	w.logger.Debug("edge connected", "edge_id", edge.ID, "source", edge.Source, "target", edge.Target)
	return edge, nil
}

// PlaceBasicNode appends an input, output or gate with default values and runs a pass.
func (w *Workbench) PlaceBasicNode(ctx context.Context, kind domain.NodeKind, op domain.Operation, pos domain.Position) (*domain.Node, error) {
	if kind == domain.KindCircuit {
		return nil, fmt.Errorf("place circuits with PlaceCircuitNode: %w", domain.ErrUnknownKind)
	}
	n, err := domain.NewNode(w.newID(), kind, op, pos)
	if err != nil {
		return nil, err
	}

	err = w.mutate(func() error {
		_, err := w.commit(ctx, func(g *domain.Graph) error {
			g.Nodes = append(g.Nodes, n)
			return nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return n.Clone(), nil
}

// PlaceCircuitNode instantiates tpl as a new circuit node and runs a pass.
// The instance id scopes every id inside the copy.
func (w *Workbench) PlaceCircuitNode(ctx context.Context, tpl domain.Template, pos domain.Position) (*domain.Node, error) {
	id := w.newID()
	n := &domain.Node{
		ID:       id,
		Kind:     domain.KindCircuit,
		Position: pos,
		Data:     domain.Instantiate(tpl, id),
	}

	err := w.mutate(func() error {
		_, err := w.commit(ctx, func(g *domain.Graph) error {
			g.Nodes = append(g.Nodes, n)
			return nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	w.logger.Debug("circuit placed", "node_id", id, "template", tpl.Name)
	return n.Clone(), nil
}

// PlaceSavedCircuit loads a template from the store and places it.
func (w *Workbench) PlaceSavedCircuit(ctx context.Context, templateID string, pos domain.Position) (*domain.Node, error) {
	tpl, err := w.templates.Load(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("circuit %q: %w", templateID, err)
	}
	return w.PlaceCircuitNode(ctx, tpl, pos)
}

// ToggleInputNode flips an input pin and runs a pass.
// Unknown ids and nodes that are not inputs are ignored.
func (w *Workbench) ToggleInputNode(ctx context.Context, id string) error {
	return w.mutate(func() error {
		if n := w.nodeByID(id); n == nil || n.Kind != domain.KindInput {
			return nil
		}
		_, err := w.commit(ctx, func(g *domain.Graph) error {
			n := g.Node(id)
			v, _ := n.Data.Value(domain.HandleOutput)
			n.Data.Set(domain.HandleOutput, !v)
			return nil
		})
		return err
	})
}

// SetInput drives an input pin to v and runs a pass.
func (w *Workbench) SetInput(ctx context.Context, id string, v bool) error {
	return w.mutate(func() error {
		n := w.nodeByID(id)
		if n == nil {
			return fmt.Errorf("input %q: %w", id, domain.ErrNodeNotFound)
		}
		if n.Kind != domain.KindInput {
			return fmt.Errorf("node %q is a %s, not an input: %w", id, n.Kind, domain.ErrUnknownKind)
		}
		_, err := w.commit(ctx, func(g *domain.Graph) error {
			g.Node(id).Data.Set(domain.HandleOutput, v)
			return nil
		})
		return err
	})
}

// SaveCircuit stores an immutable copy of nodes and edges as a new template.
// A sub-graph that could never be propagated (a loop, a malformed node, nesting
// beyond the max depth) is rejected.
func (w *Workbench) SaveCircuit(ctx context.Context, name string, nodes []*domain.Node, edges []domain.Edge) (domain.Template, error) {
	tpl := domain.NewTemplate(w.newID(), name, nodes, edges, w.now())
	if err := w.engine.Check(&domain.Graph{Nodes: tpl.Nodes, Edges: tpl.Edges}); err != nil {
		return domain.Template{}, fmt.Errorf("circuit %q rejected: %w", name, err)
	}
	if err := w.templates.Save(ctx, tpl); err != nil {
		return domain.Template{}, fmt.Errorf("failed to save circuit %q: %w", name, err)
	}
	w.logger.Info("circuit saved", "template_id", tpl.ID, "name", name, "nodes", len(tpl.Nodes))
	return tpl, nil
}

// SaveCurrent saves the whole workbench graph as a template.
func (w *Workbench) SaveCurrent(ctx context.Context, name string) (domain.Template, error) {
	w.mu.Lock()
	nodes := domain.CloneNodes(w.nodes)
	edges := domain.CloneEdges(w.edges)
	w.mu.Unlock()
	return w.SaveCircuit(ctx, name, nodes, edges)
}

// DeleteNode removes a node and every edge touching it, then runs a pass.
// Unknown ids are a no-op.
func (w *Workbench) DeleteNode(ctx context.Context, id string) error {
	return w.mutate(func() error {
		if w.nodeByID(id) == nil {
			return nil
		}
		_, err := w.commit(ctx, func(g *domain.Graph) error {
			g.RemoveNode(id)
			return nil
		})
		return err
	})
}

// Clear drops every node and edge. Saved circuits are kept.
func (w *Workbench) Clear() {
	_ = w.mutate(func() error {
		w.nodes = nil
		w.edges = nil
		return nil
	})
}

// Simulate runs a pass explicitly.
func (w *Workbench) Simulate(ctx context.Context) (domain.PassReport, error) {
	var report domain.PassReport
	err := w.mutate(func() error {
		var err error
		report, err = w.commit(ctx, func(*domain.Graph) error { return nil })
		return err
	})
	return report, err
}

// Validate reports wiring problems without changing anything.
func (w *Workbench) Validate() []*domain.ValidationError {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.engine.Validate(w.graph())
}

// Snapshot captures nodes, edges and every saved circuit.
func (w *Workbench) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	circuits, err := w.templates.List(ctx)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to list circuits: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return domain.Snapshot{
		Nodes:    domain.CloneNodes(w.nodes),
		Edges:    domain.CloneEdges(w.edges),
		Circuits: circuits,
	}, nil
}

// Restore replaces nodes and edges with the snapshot's, saves its circuits into the
// template store and runs a pass. A snapshot containing a loop is rejected and the
// workbench is left as it was.
func (w *Workbench) Restore(ctx context.Context, snap domain.Snapshot) error {
	snap = snap.Clone()
	if _, err := w.engine.Propagate(ctx, snap.Graph()); err != nil {
		return fmt.Errorf("snapshot rejected: %w", err)
	}

	for _, tpl := range snap.Circuits {
		if err := w.engine.Check(&domain.Graph{Nodes: tpl.Nodes, Edges: tpl.Edges}); err != nil {
			return fmt.Errorf("snapshot rejected: circuit %q: %w", tpl.Name, err)
		}
	}
	for _, tpl := range snap.Circuits {
		if err := w.templates.Save(ctx, tpl); err != nil {
			return fmt.Errorf("failed to restore circuit %q: %w", tpl.Name, err)
		}
	}

	return w.mutate(func() error {
		w.nodes = snap.Nodes
		w.edges = snap.Edges
		return nil
	})
}

// Node returns a copy of one node.
func (w *Workbench) Node(id string) (*domain.Node, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := w.nodeByID(id)
	if n == nil {
		return nil, false
	}
	return n.Clone(), true
}

// Nodes returns a deep copy of the node list.
func (w *Workbench) Nodes() []*domain.Node {
	w.mu.Lock()
	defer w.mu.Unlock()
	return domain.CloneNodes(w.nodes)
}

// Edges returns a copy of the edge list.
func (w *Workbench) Edges() []domain.Edge {
	w.mu.Lock()
	defer w.mu.Unlock()
	return domain.CloneEdges(w.edges)
}

// Graph returns a deep copy of the top-level graph.
func (w *Workbench) Graph() *domain.Graph {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.graph().Clone()
}

// Circuits lists saved templates in save order.
func (w *Workbench) Circuits(ctx context.Context) ([]domain.Template, error) {
	return w.templates.List(ctx)
}
