package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/GriffinCanCode/etherpipe/internal/notify"
	"github.com/GriffinCanCode/etherpipe/internal/queue"
)

const namespace = "etherpipe"

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ether metrics
	GeneratedTotal *prometheus.CounterVec
	CollectedTotal *prometheus.CounterVec

	// Trunk metrics
	DrainedTotal     *prometheus.CounterVec
	RepublishedTotal *prometheus.CounterVec
	ExchangeDuration *prometheus.HistogramVec
	ExchangeFailures *prometheus.CounterVec

	// Notification metrics
	Notifications        *prometheus.CounterVec
	NotificationsDropped *prometheus.CounterVec
	NotificationLatency  prometheus.Histogram

	// Queue metrics
	QueueDepth     *prometheus.GaugeVec
	QueueHighWater *prometheus.GaugeVec
	QueueBlocked   *prometheus.GaugeVec

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot Snapshot

	mu sync.RWMutex
}

// NewMetrics creates a collector registered on reg. Passing a fresh
// prometheus.NewRegistry() keeps separate instances independent.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		startTime: time.Now(),

		GeneratedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ether_generated_total",
				Help:      "Total number of items generated onto the output queue",
			},
			[]string{"ether"},
		),
		CollectedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ether_collected_total",
				Help:      "Total number of results collected from the input queue",
			},
			[]string{"ether"},
		),

		DrainedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trunk_drained_total",
				Help:      "Total number of items drained by a trunk",
			},
			[]string{"trunk"},
		),
		RepublishedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trunk_republished_total",
				Help:      "Total number of results republished by a trunk",
			},
			[]string{"trunk"},
		),
		ExchangeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "exchange_duration_seconds",
				Help:      "External exchange round trip in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"trunk"},
		),
		ExchangeFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exchange_failures_total",
				Help:      "Total number of failed external exchanges",
			},
			[]string{"trunk"},
		),

		Notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Notifications by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		NotificationsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_dropped_total",
				Help:      "Dropped notifications by reason",
			},
			[]string{"reason"},
		),
		NotificationLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "notification_delivery_seconds",
				Help:      "Time from raise to sink append in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
			},
		),

		QueueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "queue_depth",
				Help:      "Items currently held by a queue",
			},
			[]string{"queue"},
		),
		QueueHighWater: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "queue_high_water",
				Help:      "Largest depth a queue has reached",
			},
			[]string{"queue"},
		),
		QueueBlocked: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "queue_blocked",
				Help:      "Tasks currently blocked on a queue",
			},
			[]string{"queue", "side"},
		),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "path"},
		),
	}
}

func label(id int) string {
	return strconv.Itoa(id)
}

// Generated implements ether.Observer.
func (m *Metrics) Generated(etherID int) {
	m.GeneratedTotal.WithLabelValues(label(etherID)).Inc()
	m.mu.Lock()
	m.snapshot.Generated++
	m.mu.Unlock()
}

// Collected implements ether.Observer.
func (m *Metrics) Collected(etherID int) {
	m.CollectedTotal.WithLabelValues(label(etherID)).Inc()
	m.mu.Lock()
	m.snapshot.Collected++
	m.mu.Unlock()
}

// Drained implements trunk.Observer.
func (m *Metrics) Drained(trunkID int) {
	m.DrainedTotal.WithLabelValues(label(trunkID)).Inc()
	m.mu.Lock()
	m.snapshot.Drained++
	m.mu.Unlock()
}

// Exchanged implements trunk.Observer.
func (m *Metrics) Exchanged(trunkID int, latency time.Duration, err error) {
	m.ExchangeDuration.WithLabelValues(label(trunkID)).Observe(latency.Seconds())

	m.mu.Lock()
	m.snapshot.Exchanges++
	m.snapshot.ExchangeSeconds += latency.Seconds()
	if err != nil {
		m.snapshot.ExchangeFailures++
	}
	m.mu.Unlock()

	if err != nil {
		m.ExchangeFailures.WithLabelValues(label(trunkID)).Inc()
	}
}

// Republished implements trunk.Observer.
func (m *Metrics) Republished(trunkID int) {
	m.RepublishedTotal.WithLabelValues(label(trunkID)).Inc()
	m.mu.Lock()
	m.snapshot.Republished++
	m.mu.Unlock()
}

// Raised implements notify.Observer.
func (m *Metrics) Raised(kind notify.Kind) {
	m.Notifications.WithLabelValues(kind.String(), "raised").Inc()
}

// Delivered implements notify.Observer.
func (m *Metrics) Delivered(kind notify.Kind, latency time.Duration) {
	m.Notifications.WithLabelValues(kind.String(), "delivered").Inc()
	m.NotificationLatency.Observe(latency.Seconds())
	m.mu.Lock()
	m.snapshot.NotificationsDelivered++
	m.mu.Unlock()
}

// Dropped implements notify.Observer.
func (m *Metrics) Dropped(kind notify.Kind, reason string) {
	m.Notifications.WithLabelValues(kind.String(), "dropped").Inc()
	m.NotificationsDropped.WithLabelValues(reason).Inc()
	m.mu.Lock()
	m.snapshot.NotificationsDropped++
	m.mu.Unlock()
}

// Queues records a sample of both pipeline queues.
func (m *Metrics) Queues(out, in queue.Stats) {
	m.recordQueue("out", out)
	m.recordQueue("in", in)
}

func (m *Metrics) recordQueue(name string, s queue.Stats) {
	m.QueueDepth.WithLabelValues(name).Set(float64(s.Len))
	m.QueueHighWater.WithLabelValues(name).Set(float64(s.HighWater))
	m.QueueBlocked.WithLabelValues(name, "producers").Set(float64(s.BlockedProducers))
	m.QueueBlocked.WithLabelValues(name, "consumers").Set(float64(s.BlockedConsumers))
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.Requests++
	m.mu.Unlock()
}
