// Package metrics provides Prometheus collectors for the outbox relay and cleaner.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "food_ordering"

// Outcome labels for published outbox messages.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// OutboxMetrics records relay and cleaner activity per outbox kind.
// A nil *OutboxMetrics is valid and records nothing.
type OutboxMetrics struct {
	published *prometheus.CounterVec
	passTime  *prometheus.HistogramVec
	cleaned   *prometheus.CounterVec
}

// NewOutboxMetrics creates the collectors and registers them with reg.
func NewOutboxMetrics(service string, reg prometheus.Registerer) *OutboxMetrics {
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "outbox_messages_published_total",
		Help:      "Outbox messages handed to the broker, by kind and outcome.",
	}, []string{"kind", "outcome"})
	passTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "outbox_relay_pass_duration_seconds",
		Help:      "Duration of one relay pass.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})
	cleaned := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "outbox_messages_cleaned_total",
		Help:      "Terminal outbox messages deleted by the cleaner.",
	}, []string{"kind"})

	reg.MustRegister(published, passTime, cleaned)
	return &OutboxMetrics{published: published, passTime: passTime, cleaned: cleaned}
}

func (m *OutboxMetrics) ObservePublished(kind, outcome string) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(kind, outcome).Inc()
}

func (m *OutboxMetrics) ObservePass(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.passTime.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *OutboxMetrics) ObserveCleaned(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.cleaned.WithLabelValues(kind).Add(float64(n))
}

// Handler exposes the collectors gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
