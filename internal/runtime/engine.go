package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/circuitry/pkg/domain"
)

// DefaultMaxDepth bounds circuit nesting. Walk length needs no bound: a graph that
// reaches the walk has already been checked for loops.
const DefaultMaxDepth = 512

// Engine runs propagation passes over a graph. It holds no graph state of its own,
// so one Engine can serve any number of workbenches.
type Engine struct {
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	maxDepth int
	now      func() time.Time
}

// EngineOption defines a functional option for configuring the Engine.
type EngineOption func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMaxDepth overrides DefaultMaxDepth. Values below 1 are ignored.
func WithMaxDepth(depth int) EngineOption {
	return func(e *Engine) {
		if depth > 0 {
			e.maxDepth = depth
		}
	}
}

// WithClock replaces time.Now, for deterministic reports in tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates a new engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		logger:   slog.New(slog.NewJSONHandler(io.Discard, nil)),
		maxDepth: DefaultMaxDepth,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// pass is the bookkeeping of one graph level. It is created at the start of a pass,
// handed down the walk and dropped when the pass returns.
type pass struct {
	nodes    map[string]*domain.Node
	outgoing map[string][]domain.Edge
	incoming map[string]int
	received map[string][]string
	nesting  int
}

func newPass(g *domain.Graph, nesting int) *pass {
	p := &pass{
		nodes:    make(map[string]*domain.Node, len(g.Nodes)),
		outgoing: make(map[string][]domain.Edge),
		incoming: make(map[string]int),
		received: make(map[string][]string),
		nesting:  nesting,
	}
	for _, n := range g.Nodes {
		p.nodes[n.ID] = n
	}
	for _, e := range g.Edges {
		p.outgoing[e.Source] = append(p.outgoing[e.Source], e)
		p.incoming[e.Target]++
	}
	return p
}

// Propagate re-evaluates g from every Input node, mutating payloads in place.
// Nodes with no incoming edges never fire and keep their values.
// A graph that fails Check is rejected before anything is written.
func (e *Engine) Propagate(ctx context.Context, g *domain.Graph) (domain.PassReport, error) {
	var report domain.PassReport
	if g == nil {
		return report, nil
	}

	if err := e.Check(g); err != nil {
		e.logger.Warn("propagation rejected", "error", err)
		return report, err
	}

	start := e.now()
	if e.hooks.OnPassStart != nil {
		e.hooks.OnPassStart(ctx, &domain.PassEvent{
			EventBase: domain.EventBase{Timestamp: start, Type: domain.EventPassStart},
			Nodes:     len(g.Nodes),
			Edges:     len(g.Edges),
		})
	}
	e.logger.Debug("pass started", "nodes", len(g.Nodes), "edges", len(g.Edges))

	err := e.run(ctx, g, 0, &report)
	report.Duration = e.now().Sub(start)

	if e.hooks.OnPassEnd != nil {
		e.hooks.OnPassEnd(ctx, &domain.PassEvent{
			EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventPassEnd},
			Nodes:     len(g.Nodes),
			Edges:     len(g.Edges),
			Report:    &report,
			Err:       err,
		})
	}
	if err != nil {
		e.logger.Error("pass failed", "error", err)
		return report, err
	}
	e.logger.Debug("pass finished",
		"fired", report.Fired,
		"deliveries", report.Deliveries,
		"duration", report.Duration)
	return report, nil
}

// run is one pass over one graph level, started from its Input nodes.
func (e *Engine) run(ctx context.Context, g *domain.Graph, nesting int, report *domain.PassReport) error {
	if nesting > e.maxDepth {
		return fmt.Errorf("%w: circuit nesting %d", domain.ErrMaxDepthExceeded, nesting)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p := newPass(g, nesting)
	for _, in := range g.Inputs() {
		if err := e.distribute(ctx, p, in, report); err != nil {
			return err
		}
	}
	return nil
}

// distribute pushes node's value along each outgoing edge and fires every target
// that has now heard from all of its incoming edges.
func (e *Engine) distribute(ctx context.Context, p *pass, node *domain.Node, report *domain.PassReport) error {
	for _, edge := range p.outgoing[node.ID] {
		target, ok := p.nodes[edge.Target]
		if !ok {
			e.logger.Debug("skipping dangling edge", "edge_id", edge.ID, "target", edge.Target)
			continue
		}

		value, _ := node.Data.Value(edge.SourceHandle)
		if !target.Data.Set(edge.TargetHandle, value) {
			e.logger.Debug("unknown target handle", "edge_id", edge.ID, "node_id", target.ID, "handle", edge.TargetHandle)
		}
		p.received[target.ID] = append(p.received[target.ID], edge.TargetHandle)
		report.Deliveries++

		if len(p.received[target.ID]) != p.incoming[target.ID] {
			continue
		}

		if err := e.fire(ctx, p, target, report); err != nil {
			return err
		}
		if err := e.distribute(ctx, p, target, report); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) fire(ctx context.Context, p *pass, node *domain.Node, report *domain.PassReport) error {
	if f, ok := node.Data.(domain.Firer); ok {
		err := f.Fire(func(sub *domain.Graph) error {
			return e.run(ctx, sub, p.nesting+1, report)
		})
		if err != nil {
			return fmt.Errorf("node %q: %w", node.ID, err)
		}
	}

	report.Fired++
	if e.hooks.OnNodeFire != nil {
		e.hooks.OnNodeFire(ctx, &domain.FireEvent{
			EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventNodeFire},
			NodeID:    node.ID,
			Kind:      node.Kind,
			Depth:     p.nesting,
		})
	}
	return nil
}
