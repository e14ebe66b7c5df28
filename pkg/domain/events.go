package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventPassStart EventType = "pass_start"
	EventNodeFire  EventType = "node_fire"
	EventPassEnd   EventType = "pass_end"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// PassReport summarizes one top-level propagation pass, nested passes included.
type PassReport struct {
	Fired      int           `json:"fired"`
	Deliveries int           `json:"deliveries"`
	Duration   time.Duration `json:"duration"`
}

// PassEvent marks the start or end of a top-level pass.
// Report and Err are only set on EventPassEnd.
type PassEvent struct {
	EventBase
	Nodes  int         `json:"nodes"`
	Edges  int         `json:"edges"`
	Report *PassReport `json:"report,omitempty"`
	Err    error       `json:"-"`
}

// FireEvent is emitted each time a node has received all of its inputs.
// Depth is 0 for top-level nodes and grows by one per enclosing circuit instance.
type FireEvent struct {
	EventBase
	NodeID string   `json:"node_id"`
	Kind   NodeKind `json:"kind"`
	Depth  int      `json:"depth"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnPassStart func(context.Context, *PassEvent)
	OnNodeFire  func(context.Context, *FireEvent)
	OnPassEnd   func(context.Context, *PassEvent)
}

// Merge chains two hook sets; callbacks from h run first.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnPassStart: chain(h.OnPassStart, other.OnPassStart),
		OnNodeFire:  chain(h.OnNodeFire, other.OnNodeFire),
		OnPassEnd:   chain(h.OnPassEnd, other.OnPassEnd),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
