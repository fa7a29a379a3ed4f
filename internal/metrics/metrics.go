// v1
// internal/metrics/metrics.go
// Package metrics exposes Prometheus counters for harness instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	MessagesReceived prometheus.Counter
	CommandsIssued   prometheus.Counter
	CommandsRejected *prometheus.CounterVec
	StrategyErrors   prometheus.Counter
	StrategyTimeouts prometheus.Counter
	KPIMessages      prometheus.Counter
	DispatchErrors   prometheus.Counter
}

// New builds a Metrics set on its own registry so that repeated evaluations
// inside one process never collide on registration.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eval_messages_received_total",
			Help: "Total status messages delivered to the strategy runner.",
		}),
		CommandsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eval_commands_issued_total",
			Help: "Total validated commands dispatched to the simulator.",
		}),
		CommandsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eval_commands_rejected_total",
			Help: "Total commands rejected, by validation reason.",
		}, []string{"reason"}),
		StrategyErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eval_strategy_errors_total",
			Help: "Total strategy invocations that returned an error or panicked.",
		}),
		StrategyTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eval_strategy_timeouts_total",
			Help: "Total strategy invocations cut off by the per-call deadline.",
		}),
		KPIMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eval_kpi_messages_total",
			Help: "Total KPI and result snapshot messages ingested.",
		}),
		DispatchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eval_dispatch_errors_total",
			Help: "Total transport errors while publishing commands.",
		}),
	}
	m.registry.MustRegister(
		m.MessagesReceived,
		m.CommandsIssued,
		m.CommandsRejected,
		m.StrategyErrors,
		m.StrategyTimeouts,
		m.KPIMessages,
		m.DispatchErrors,
	)
	return m
}

// Handler serves this metric set in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
