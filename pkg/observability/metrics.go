package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/circuitry/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the propagation collectors.
type Metrics struct {
	Passes     *prometheus.CounterVec
	Fires      *prometheus.CounterVec
	Deliveries prometheus.Counter
	Duration   prometheus.Histogram

	gatherer prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them on reg.
// Pass a fresh prometheus.NewRegistry() in tests to avoid duplicate registration.
func NewMetrics(reg *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		Passes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "circuitry_passes_total",
				Help: "Total number of propagation passes by result",
			},
			[]string{"result"},
		),
		Fires: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "circuitry_node_fires_total",
				Help: "Total number of node firings by node kind",
			},
			[]string{"kind"},
		),
		Deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "circuitry_deliveries_total",
			Help: "Total number of edge deliveries",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "circuitry_pass_duration_seconds",
			Help:    "Duration of propagation passes",
			Buckets: prometheus.ExponentialBuckets(0.00005, 4, 10),
		}),
		gatherer: reg,
	}

	for _, c := range []prometheus.Collector{m.Passes, m.Fires, m.Deliveries, m.Duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks records every pass and firing.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeFire: func(_ context.Context, e *domain.FireEvent) {
			m.Fires.WithLabelValues(string(e.Kind)).Inc()
		},
		OnPassEnd: func(_ context.Context, e *domain.PassEvent) {
			result := "ok"
			if e.Err != nil {
				result = "error"
			}
			m.Passes.WithLabelValues(result).Inc()
			if e.Report != nil {
				m.Deliveries.Add(float64(e.Report.Deliveries))
				m.Duration.Observe(e.Report.Duration.Seconds())
			}
		},
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
