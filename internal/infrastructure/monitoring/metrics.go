package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Byte directions for RecordBytes
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// Exit reasons for SessionEnded
const (
	ReasonExited    = "exited"
	ReasonDestroyed = "destroyed"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Session metrics
	SessionsActive  prometheus.Gauge
	SessionsSpawned prometheus.Counter
	SpawnFailures   prometheus.Counter
	SessionsEnded   *prometheus.CounterVec
	BytesRouted     *prometheus.CounterVec

	// Routing metrics
	StaleEvents    prometheus.Counter
	EventsRouted   *prometheus.CounterVec
	CommandsRouted *prometheus.CounterVec

	// Layout metrics
	TabsOpen  prometheus.Gauge
	PanesOpen prometheus.Gauge

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot Snapshot

	mu sync.RWMutex
}

// Snapshot holds current metric values for the JSON stats endpoint
type Snapshot struct {
	SessionsActive    int64   `json:"sessions_active"`
	SessionsSpawned   int64   `json:"sessions_spawned"`
	SpawnFailures     int64   `json:"spawn_failures"`
	StaleEvents       int64   `json:"stale_events"`
	BytesIn           int64   `json:"bytes_in"`
	BytesOut          int64   `json:"bytes_out"`
	TabsOpen          int64   `json:"tabs_open"`
	PanesOpen         int64   `json:"panes_open"`
	ActiveConnections int64   `json:"active_connections"`
	TotalRequests     int64   `json:"total_requests"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// NewMetrics creates a collector registered with reg. A nil reg registers
// with the Prometheus default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termplex_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "termplex_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "termplex_sessions_active",
				Help: "Number of sessions in the session table",
			},
		),
		SessionsSpawned: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "termplex_sessions_spawned_total",
				Help: "Total number of sessions spawned",
			},
		),
		SpawnFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "termplex_spawn_failures_total",
				Help: "Total number of failed session spawns",
			},
		),
		SessionsEnded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termplex_sessions_ended_total",
				Help: "Total number of ended sessions by reason",
			},
			[]string{"reason"},
		),
		BytesRouted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termplex_bytes_routed_total",
				Help: "Bytes moved between panes and processes",
			},
			[]string{"direction"},
		),

		StaleEvents: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "termplex_stale_events_dropped_total",
				Help: "Events dropped because their session was already destroyed",
			},
		),
		EventsRouted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termplex_events_routed_total",
				Help: "Routing events delivered to subscribers",
			},
			[]string{"type"},
		),
		CommandsRouted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termplex_commands_routed_total",
				Help: "Routing commands handled",
			},
			[]string{"type", "status"},
		),

		TabsOpen: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "termplex_tabs_open",
				Help: "Number of open tabs",
			},
		),
		PanesOpen: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "termplex_panes_open",
				Help: "Number of open panes across all tabs",
			},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "termplex_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termplex_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "termplex_uptime_seconds",
			Help: "Uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.mu.Unlock()
}

// SessionSpawned records a successful spawn
func (m *Metrics) SessionSpawned() {
	if m == nil {
		return
	}
	m.SessionsSpawned.Inc()
	m.SessionsActive.Inc()

	m.mu.Lock()
	m.snapshot.SessionsSpawned++
	m.snapshot.SessionsActive++
	m.mu.Unlock()
}

// SpawnFailed records a failed spawn
func (m *Metrics) SpawnFailed() {
	if m == nil {
		return
	}
	m.SpawnFailures.Inc()

	m.mu.Lock()
	m.snapshot.SpawnFailures++
	m.mu.Unlock()
}

// SessionRemoved records a session leaving the session table
func (m *Metrics) SessionRemoved() {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
	m.SessionsEnded.WithLabelValues(ReasonDestroyed).Inc()

	m.mu.Lock()
	m.snapshot.SessionsActive--
	m.mu.Unlock()
}

// SessionExited records a process exiting on its own
func (m *Metrics) SessionExited() {
	if m == nil {
		return
	}
	m.SessionsEnded.WithLabelValues(ReasonExited).Inc()
}

// RecordBytes records bytes routed in the given direction
func (m *Metrics) RecordBytes(direction string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.BytesRouted.WithLabelValues(direction).Add(float64(n))

	m.mu.Lock()
	if direction == DirectionIn {
		m.snapshot.BytesIn += int64(n)
	} else {
		m.snapshot.BytesOut += int64(n)
	}
	m.mu.Unlock()
}

// StaleEventDropped records an event discarded by the router
func (m *Metrics) StaleEventDropped() {
	if m == nil {
		return
	}
	m.StaleEvents.Inc()

	m.mu.Lock()
	m.snapshot.StaleEvents++
	m.mu.Unlock()
}

// RecordEvent records an event delivered to subscribers
func (m *Metrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	m.EventsRouted.WithLabelValues(eventType).Inc()
}

// RecordCommand records a handled routing command
func (m *Metrics) RecordCommand(commandType, status string) {
	if m == nil {
		return
	}
	m.CommandsRouted.WithLabelValues(commandType, status).Inc()
}

// SetLayout sets the open tab and pane counts
func (m *Metrics) SetLayout(tabs, panes int) {
	if m == nil {
		return
	}
	m.TabsOpen.Set(float64(tabs))
	m.PanesOpen.Set(float64(panes))

	m.mu.Lock()
	m.snapshot.TabsOpen = int64(tabs)
	m.snapshot.PanesOpen = int64(panes)
	m.mu.Unlock()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}
