package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MEKXH/gitmind/internal/tools"
)

const namespace = "gitmind"

// Collector exports tool call metrics in the Prometheus format.
//
// Metrics:
//   - gitmind_tool_calls_total: calls by tool, outcome and category
//   - gitmind_tool_call_duration_seconds: call latency by tool
//   - gitmind_policy_denials_total: guard refusals by operation and category
type Collector struct {
	registry *prometheus.Registry

	callsTotal   *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	denialsTotal *prometheus.CounterVec
}

// NewCollector creates a collector registered on registry. If registry is
// nil a fresh registry with the Go and process collectors is used.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	c := &Collector{
		registry: registry,
		callsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Total number of git tool calls",
			},
			[]string{"tool", "outcome", "category"},
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_call_duration_seconds",
				Help:      "Duration of git tool calls in seconds",
				// Local commands finish in milliseconds; network calls can take minutes.
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
			},
			[]string{"tool"},
		),
		denialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_denials_total",
				Help:      "Total number of calls refused by the guard layer",
			},
			[]string{"operation", "category"},
		),
	}

	registry.MustRegister(c.callsTotal, c.callDuration, c.denialsTotal)
	return c
}

// ObserveCall records one finished call.
func (c *Collector) ObserveCall(ctx context.Context, rec tools.CallRecord) {
	c.callsTotal.WithLabelValues(rec.Tool, string(rec.Outcome), string(rec.Category)).Inc()
	c.callDuration.WithLabelValues(rec.Tool).Observe(rec.Duration.Seconds())
	if rec.Outcome == tools.OutcomeDenied {
		c.denialsTotal.WithLabelValues(rec.Operation, string(rec.Category)).Inc()
	}
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler for the metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

// NewServeMux mounts the handler at /metrics.
func (c *Collector) NewServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	return mux
}
