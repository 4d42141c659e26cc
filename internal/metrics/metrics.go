// Package metrics defines the Prometheus collectors a node exports on its
// admin endpoint. Every method is safe to call on a nil *Metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "modgrid"

// Metrics bundles the node's collectors with the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	sharedModules     prometheus.Gauge
	remoteModules     prometheus.Gauge
	activeConnections prometheus.Gauge
	remoteRequests    *prometheus.CounterVec
	taskTransitions   *prometheus.CounterVec
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sharedModules: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "shared_modules",
			Help:      "Number of modules this node currently shares.",
		}),
		remoteModules: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "remote_modules",
			Help:      "Number of remote module handles this node holds.",
		}),
		activeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "server_connections",
			Help:      "Peers currently connected to the module server.",
		}),
		remoteRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "server_requests_total",
			Help:      "Requests served by the module server.",
		}, []string{"op", "outcome"}),
		taskTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_transitions_total",
			Help:      "Task state machine events by outcome.",
		}, []string{"event", "outcome"}),
	}
	m.registry.MustRegister(
		m.sharedModules,
		m.remoteModules,
		m.activeConnections,
		m.remoteRequests,
		m.taskTransitions,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) SetSharedModules(n int) {
	if m == nil {
		return
	}
	m.sharedModules.Set(float64(n))
}

func (m *Metrics) SetRemoteModules(n int) {
	if m == nil {
		return
	}
	m.remoteModules.Set(float64(n))
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.activeConnections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.activeConnections.Dec()
}

// RequestServed counts one remote operation; outcome is "ok", "not_found" or "error".
func (m *Metrics) RequestServed(op, outcome string) {
	if m == nil {
		return
	}
	m.remoteRequests.WithLabelValues(op, outcome).Inc()
}

// TaskTransition counts one task event; outcome is "ok", "rejected" or "failed".
func (m *Metrics) TaskTransition(event, outcome string) {
	if m == nil {
		return
	}
	m.taskTransitions.WithLabelValues(event, outcome).Inc()
}
