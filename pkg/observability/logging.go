package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/circuitry/pkg/domain"
)

// LoggingHooks logs pass boundaries at Info and firings at Debug.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPassStart: func(ctx context.Context, e *domain.PassEvent) {
			logger.InfoContext(ctx, "pass_start", "nodes", e.Nodes, "edges", e.Edges)
		},
		OnNodeFire: func(ctx context.Context, e *domain.FireEvent) {
			logger.DebugContext(ctx, "node_fire", "node_id", e.NodeID, "kind", e.Kind, "depth", e.Depth)
		},
		OnPassEnd: func(ctx context.Context, e *domain.PassEvent) {
			if e.Err != nil {
				logger.ErrorContext(ctx, "pass_end", "error", e.Err)
				return
			}
			logger.InfoContext(ctx, "pass_end",
				"fired", e.Report.Fired,
				"deliveries", e.Report.Deliveries,
				"duration", e.Report.Duration,
			)
		},
	}
}
