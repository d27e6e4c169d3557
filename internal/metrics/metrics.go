// Package metrics holds relnet's Prometheus collectors, one registry per
// Manager instance so concurrent tests never collide on the default
// registry (grounded on the teacher's pkg/p2pnet/metrics.go).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all relnet Prometheus collectors.
type Metrics struct {
	Registry *prometheus.Registry

	PeersConnected    *prometheus.GaugeVec
	ShutdownPeers     prometheus.Gauge
	EventsPooled      prometheus.Gauge
	EventsInFlight    prometheus.Gauge
	PacketsClassified *prometheus.CounterVec
	SendErrorsTotal   *prometheus.CounterVec
	IngressDropped    prometheus.Counter
	IngressDelayed    prometheus.Counter
	ConnectAttempts   *prometheus.CounterVec
	BuildInfo         *prometheus.GaugeVec
}

// New creates a Metrics instance with every collector registered on an
// isolated registry, labeled with version for the build info gauge.
func New(version, goVersion string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		PeersConnected: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "relnet_peers_connected",
				Help: "Current number of peers in the Peer Table.",
			},
			[]string{"manager"},
		),
		ShutdownPeers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "relnet_shutdown_peers",
				Help: "Current number of peers in the Shutdown Table.",
			},
		),
		EventsPooled: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "relnet_events_pooled",
				Help: "Idle Event objects currently held in the Event Pool.",
			},
		),
		EventsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "relnet_events_in_flight",
				Help: "Events enqueued but not yet dispatched by pollEvents.",
			},
		),
		PacketsClassified: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relnet_packets_classified_total",
				Help: "Inbound datagrams classified, by property kind.",
			},
			[]string{"property"},
		),
		SendErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relnet_send_errors_total",
				Help: "Socket send failures, by error taxonomy (spec §7).",
			},
			[]string{"kind"},
		),
		IngressDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "relnet_ingress_dropped_total",
				Help: "Datagrams dropped by the Ingress Simulator's packet loss draw.",
			},
		),
		IngressDelayed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "relnet_ingress_delayed_total",
				Help: "Datagrams held by the Ingress Simulator's latency delay.",
			},
		),
		ConnectAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relnet_connect_attempts_total",
				Help: "Outbound connect() calls, by outcome.",
			},
			[]string{"outcome"},
		),
		BuildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "relnet_build_info",
				Help: "Build information for the running relnet instance.",
			},
			[]string{"version", "go_version"},
		),
	}

	reg.MustRegister(
		m.PeersConnected,
		m.ShutdownPeers,
		m.EventsPooled,
		m.EventsInFlight,
		m.PacketsClassified,
		m.SendErrorsTotal,
		m.IngressDropped,
		m.IngressDelayed,
		m.ConnectAttempts,
		m.BuildInfo,
	)

	m.BuildInfo.WithLabelValues(version, goVersion).Set(1)

	return m
}

// Handler returns an http.Handler that serves this instance's metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
