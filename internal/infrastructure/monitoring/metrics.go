// Package monitoring collects Prometheus metrics for the navigator.
package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Routing metrics
	EventsRouted     *prometheus.CounterVec
	EventsUnroutable prometheus.Counter
	EventsMalformed  prometheus.Counter
	EventsDropped    prometheus.Counter

	// Tree metrics
	CoordinatorsLive  prometheus.Gauge
	CoordinatorsTotal prometheus.Counter
	TreeDepth         prometheus.Gauge
	ScreensPresented  prometheus.Counter
	ScreensDismissed  prometheus.Counter

	// Session metrics
	SessionsSaved    prometheus.Counter
	SessionsRestored prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot Snapshot

	mu sync.RWMutex
}

// Snapshot holds current metric values for the JSON API
type Snapshot struct {
	TotalRequests    int64
	TotalErrors      int64
	EventsRouted     int64
	EventsUnroutable int64
	CoordinatorsLive int64
	WSConnections    int64
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "navigator_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "navigator_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		EventsRouted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "navigator_events_routed_total",
				Help: "Navigation events routed through the coordinator tree",
			},
			[]string{"kind", "outcome"},
		),
		EventsUnroutable: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "navigator_events_unroutable_total",
				Help: "Events that reached the root with no handler",
			},
		),
		EventsMalformed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "navigator_events_malformed_total",
				Help: "External payloads that decoded into no event variant",
			},
		),
		EventsDropped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "navigator_events_dropped_total",
				Help: "Events dropped because their target coordinator was torn down",
			},
		),

		CoordinatorsLive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "navigator_coordinators_live",
				Help: "Coordinators currently alive in the tree",
			},
		),
		CoordinatorsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "navigator_coordinators_total",
				Help: "Total coordinators created",
			},
		),
		TreeDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "navigator_tree_depth",
				Help: "Depth of the active coordinator path",
			},
		),
		ScreensPresented: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "navigator_screens_presented_total",
				Help: "Screen handles presented to the rendering layer",
			},
		),
		ScreensDismissed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "navigator_screens_dismissed_total",
				Help: "Screen handles dismissed from the rendering layer",
			},
		),

		SessionsSaved: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "navigator_sessions_saved_total",
				Help: "Total number of sessions saved",
			},
		),
		SessionsRestored: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "navigator_sessions_restored_total",
				Help: "Total number of sessions restored",
			},
		),

		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "navigator_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "navigator_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "navigator_uptime_seconds",
				Help: "Navigator uptime in seconds",
			},
		),
	}

	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordEvent records a routed navigation event and its outcome
func (m *Metrics) RecordEvent(kind, outcome string) {
	m.EventsRouted.WithLabelValues(kind, outcome).Inc()

	m.mu.Lock()
	m.snapshot.EventsRouted++
	m.mu.Unlock()
}

// IncEventsUnroutable counts an event dropped at the root
func (m *Metrics) IncEventsUnroutable() {
	m.EventsUnroutable.Inc()

	m.mu.Lock()
	m.snapshot.EventsUnroutable++
	m.mu.Unlock()
}

// IncEventsMalformed counts an undecodable payload
func (m *Metrics) IncEventsMalformed() {
	m.EventsMalformed.Inc()
}

// IncEventsDropped counts an event dropped against a torn-down coordinator
func (m *Metrics) IncEventsDropped() {
	m.EventsDropped.Inc()
}

// SetCoordinatorsLive sets the live coordinator gauge
func (m *Metrics) SetCoordinatorsLive(count int) {
	m.CoordinatorsLive.Set(float64(count))

	m.mu.Lock()
	m.snapshot.CoordinatorsLive = int64(count)
	m.mu.Unlock()
}

// IncCoordinatorsTotal increments the created-coordinators counter
func (m *Metrics) IncCoordinatorsTotal() {
	m.CoordinatorsTotal.Inc()
}

// SetTreeDepth sets the active-path depth gauge
func (m *Metrics) SetTreeDepth(depth int) {
	m.TreeDepth.Set(float64(depth))
}

// IncScreensPresented counts a screen presentation
func (m *Metrics) IncScreensPresented() {
	m.ScreensPresented.Inc()
}

// IncScreensDismissed counts a screen dismissal
func (m *Metrics) IncScreensDismissed() {
	m.ScreensDismissed.Inc()
}

// IncSessionsSaved increments the sessions saved counter
func (m *Metrics) IncSessionsSaved() {
	m.SessionsSaved.Inc()
}

// IncSessionsRestored increments the sessions restored counter
func (m *Metrics) IncSessionsRestored() {
	m.SessionsRestored.Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()

	m.mu.Lock()
	m.snapshot.WSConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()

	m.mu.Lock()
	m.snapshot.WSConnections--
	m.mu.Unlock()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// GetSnapshot returns current metric values for the JSON API
func (m *Metrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// GetUptimeSeconds returns seconds since the collector was created
func (m *Metrics) GetUptimeSeconds() float64 {
	return time.Since(m.startTime).Seconds()
}
