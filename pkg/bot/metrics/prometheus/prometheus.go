package prommetrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics implements bot.Metrics using Prometheus.
type Metrics struct {
	updatesTotal       *prometheus.CounterVec
	completionsTotal   *prometheus.CounterVec
	completionDuration *prometheus.HistogramVec
	quotaDeniedTotal   prometheus.Counter
	backoffEventsTotal *prometheus.CounterVec
	deliveriesTotal    *prometheus.CounterVec
}

// NewMetrics creates a new Prometheus metrics implementation.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		updatesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Total number of handled updates.",
		}, []string{"kind"}),

		completionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Total number of completion calls.",
		}, []string{"outcome"}),

		completionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_duration_seconds",
			Help:      "Latency of completion calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),

		quotaDeniedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_denied_total",
			Help:      "Total number of updates rejected by the daily cap.",
		}),

		backoffEventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backoff_events_total",
			Help:      "Total number of backoff gate events.",
		}, []string{"event"}),

		deliveriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Total number of reply delivery attempts.",
		}, []string{"kind", "failed"}),
	}
}

func (m *Metrics) RecordUpdate(kind string) {
	m.updatesTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordCompletion(outcome string, duration time.Duration) {
	m.completionsTotal.WithLabelValues(outcome).Inc()
	m.completionDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (m *Metrics) RecordQuotaDenied() {
	m.quotaDeniedTotal.Inc()
}

func (m *Metrics) RecordBackoff(event string) {
	m.backoffEventsTotal.WithLabelValues(event).Inc()
}

func (m *Metrics) RecordDelivery(kind string, failed bool) {
	m.deliveriesTotal.WithLabelValues(kind, strconv.FormatBool(failed)).Inc()
}

// DefaultMetrics returns a Metrics implementation using the default Prometheus registerer.
func DefaultMetrics(namespace string) *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer, namespace)
}
