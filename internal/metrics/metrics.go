// Package metrics exposes the session server's prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "watchparty"

type Metrics struct {
	registry *prometheus.Registry

	ConnectedPeers prometheus.Gauge
	Joins          *prometheus.CounterVec
	Messages       *prometheus.CounterVec
	HandlerErrors  *prometheus.CounterVec
	AuthorityMoves prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ConnectedPeers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_peers",
			Help:      "Number of peers with an open websocket.",
		}),
		Joins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_joins_total",
			Help:      "Session join attempts by intent and result.",
		}, []string{"intent", "result"}),
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "Websocket messages handled by type.",
		}, []string{"type"}),
		HandlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_handler_errors_total",
			Help:      "Websocket messages that failed by type.",
		}, []string{"type"}),
		AuthorityMoves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authority_designations_total",
			Help:      "Times a session got a new state authority.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ConnectedPeers,
		m.Joins,
		m.Messages,
		m.HandlerErrors,
		m.AuthorityMoves,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
