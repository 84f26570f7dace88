package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all packing-player metrics
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Fulfillment-backend client metrics
	BackendRequestsTotal   *prometheus.CounterVec
	BackendRequestDuration *prometheus.HistogramVec

	// Narration metrics
	NarrationsStarted *prometheus.CounterVec
	NarrationFailures *prometheus.CounterVec

	// Kafka metrics
	KafkaEventsPublished *prometheus.CounterVec

	// Business metrics
	SessionsStarted   prometheus.Counter
	SessionsFinished  prometheus.Counter
	SessionsAbandoned prometheus.Counter
	ItemsPacked       prometheus.Counter
	ItemsSkipped      prometheus.Counter
	MachinesCompleted prometheus.Counter
	PickSyncFailures  prometheus.Counter

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "player",
	}
}

// New creates a new Metrics instance with its own registry
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"service", "method", "path"},
	)

	m.HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "http_requests_in_flight",
			Help:        "Number of HTTP requests currently being processed",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "backend_requests_total",
			Help:      "Total number of fulfillment-backend requests",
		},
		[]string{"service", "operation", "status"},
	)

	m.BackendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Fulfillment-backend request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"service", "operation"},
	)

	m.NarrationsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "narrations_started_total",
			Help:      "Total number of utterances handed to the narration gateway",
		},
		[]string{"service"},
	)

	m.NarrationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "narration_failures_total",
			Help:      "Total number of narration gateway failures",
		},
		[]string{"service"},
	)

	m.KafkaEventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "kafka_events_published_total",
			Help:      "Total number of Kafka events published",
		},
		[]string{"service", "topic", "event_type", "status"},
	)

	business := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        name,
			Help:        help,
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		})
	}
	m.SessionsStarted = business("sessions_started_total", "Total number of packing sessions started")
	m.SessionsFinished = business("sessions_finished_total", "Total number of packing sessions finished")
	m.SessionsAbandoned = business("sessions_abandoned_total", "Total number of packing sessions abandoned")
	m.ItemsPacked = business("items_packed_total", "Total number of item commands packed")
	m.ItemsSkipped = business("items_skipped_total", "Total number of item commands skipped")
	m.MachinesCompleted = business("machines_completed_total", "Total number of machine boundaries completed")
	m.PickSyncFailures = business("pick_sync_failures_total", "Total number of best-effort pick-status syncs that failed")

	m.CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"service", "name"},
	)

	m.CircuitBreakerTrips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "circuit_breaker_trips_total",
			Help:      "Total number of circuit breaker trips",
		},
		[]string{"service", "name"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.BackendRequestsTotal,
		m.BackendRequestDuration,
		m.NarrationsStarted,
		m.NarrationFailures,
		m.KafkaEventsPublished,
		m.SessionsStarted,
		m.SessionsFinished,
		m.SessionsAbandoned,
		m.ItemsPacked,
		m.ItemsSkipped,
		m.MachinesCompleted,
		m.PickSyncFailures,
		m.CircuitBreakerState,
		m.CircuitBreakerTrips,
	)

	return m
}

// Handler returns the HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments the in-flight gauge
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements the in-flight gauge
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}

// RecordBackendRequest records a fulfillment-backend call
func (m *Metrics) RecordBackendRequest(operation, status string, duration time.Duration) {
	m.BackendRequestsTotal.WithLabelValues(m.serviceName, operation, status).Inc()
	m.BackendRequestDuration.WithLabelValues(m.serviceName, operation).Observe(duration.Seconds())
}

// RecordNarrationStarted records an utterance handed to the narrator
func (m *Metrics) RecordNarrationStarted() {
	m.NarrationsStarted.WithLabelValues(m.serviceName).Inc()
}

// RecordNarrationFailure records a narration gateway failure
func (m *Metrics) RecordNarrationFailure() {
	m.NarrationFailures.WithLabelValues(m.serviceName).Inc()
}

// RecordKafkaEventPublished records a Kafka publish attempt
func (m *Metrics) RecordKafkaEventPublished(topic, eventType, status string) {
	m.KafkaEventsPublished.WithLabelValues(m.serviceName, topic, eventType, status).Inc()
}

// RecordCircuitBreakerState records a breaker state change
func (m *Metrics) RecordCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}

// RecordCircuitBreakerTrip records a breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(name string) {
	m.CircuitBreakerTrips.WithLabelValues(m.serviceName, name).Inc()
}
