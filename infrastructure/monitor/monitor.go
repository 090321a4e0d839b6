package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Monitor collects Prometheus metrics for one tracker process.
type Monitor struct {
	registry *prometheus.Registry

	// snapshot
	snapshotRequests *prometheus.CounterVec
	snapshotErrors   *prometheus.CounterVec
	snapshotLatency  prometheus.Histogram

	// live channel
	wsConnections   prometheus.Counter
	wsDisconnects   prometheus.Counter
	wsErrors        prometheus.Counter
	messages        prometheus.Counter
	parseErrors     *prometheus.CounterVec
	keepAlivesSent  prometheus.Counter
	keepAlivesSkip  prometheus.Counter
	channelState    prometheus.Gauge
	foreignMessages prometheus.Counter

	// display
	displayUpdates *prometheus.CounterVec
}

// Config sets metric name prefixes.
type Config struct {
	Namespace string
	Subsystem string
}

// DefaultConfig returns the default prefixes.
func DefaultConfig() Config {
	return Config{
		Namespace: "ot",
		Subsystem: "tracker",
	}
}

// New creates a Monitor backed by its own registry.
func New(cfg Config) *Monitor {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Monitor{
		registry: reg,

		snapshotRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "snapshot_requests_total",
			Help:      "Snapshot fetches by outcome",
		}, []string{"outcome"}),
		snapshotErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "snapshot_errors_total",
			Help:      "Snapshot failures by reason (fetch, parse)",
		}, []string{"reason"}),
		snapshotLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "snapshot_latency_seconds",
			Help:      "Snapshot request latency",
			Buckets:   prometheus.DefBuckets,
		}),

		wsConnections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "ws_connections_total",
			Help:      "Live channel opens",
		}),
		wsDisconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "ws_disconnects_total",
			Help:      "Live channel closes",
		}),
		wsErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "ws_errors_total",
			Help:      "Live channel transport errors",
		}),
		messages: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "messages_received_total",
			Help:      "Status events received on the live channel",
		}),
		parseErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "parse_errors_total",
			Help:      "Malformed payloads by source (snapshot, channel)",
		}, []string{"source"}),
		keepAlivesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "keepalives_sent_total",
			Help:      "Keep-alive messages written",
		}),
		keepAlivesSkip: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "keepalives_skipped_total",
			Help:      "Keep-alive ticks while the channel was not open",
		}),
		channelState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "channel_state",
			Help:      "Live channel state (0=connecting,1=open,2=closed)",
		}),
		foreignMessages: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "foreign_messages_total",
			Help:      "Status events naming a different order id",
		}),

		displayUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "display_updates_total",
			Help:      "Display state writes by source (snapshot, channel)",
		}, []string{"source"}),
	}
}

func (m *Monitor) RecordSnapshot(outcome string, seconds float64) {
	m.snapshotRequests.WithLabelValues(outcome).Inc()
	m.snapshotLatency.Observe(seconds)
}

func (m *Monitor) RecordSnapshotError(reason string) {
	m.snapshotErrors.WithLabelValues(reason).Inc()
}

func (m *Monitor) RecordWSConnection() {
	m.wsConnections.Inc()
}

func (m *Monitor) RecordWSDisconnect() {
	m.wsDisconnects.Inc()
}

func (m *Monitor) RecordWSError() {
	m.wsErrors.Inc()
}

func (m *Monitor) RecordMessage() {
	m.messages.Inc()
}

func (m *Monitor) RecordParseError(source string) {
	m.parseErrors.WithLabelValues(source).Inc()
}

func (m *Monitor) RecordKeepAlive(sent bool) {
	if sent {
		m.keepAlivesSent.Inc()
		return
	}
	m.keepAlivesSkip.Inc()
}

func (m *Monitor) RecordForeignMessage() {
	m.foreignMessages.Inc()
}

func (m *Monitor) UpdateChannelState(state int) {
	m.channelState.Set(float64(state))
}

func (m *Monitor) RecordDisplayUpdate(source string) {
	m.displayUpdates.WithLabelValues(source).Inc()
}

// Handler exposes the registry over HTTP.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}
