// Package metrics provides Prometheus instrumentation for the client.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors of one client. A nil *Metrics records
// nothing.
type Metrics struct {
	Acquisitions    *prometheus.CounterVec
	Invalidations   *prometheus.CounterVec
	Retries         prometheus.Counter
	Redirects       prometheus.Counter
	Responses       *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New registers the collectors on reg. A nil reg leaves them unregistered,
// which is what tests and throwaway clients want.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "restkit"
	}
	f := promauto.With(reg)

	return &Metrics{
		Acquisitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connection_acquisitions_total",
				Help:      "Connections handed out by the pool, by origin",
			},
			[]string{"origin"},
		),
		Invalidations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connection_invalidations_total",
				Help:      "Connections dropped instead of returned to the pool",
			},
			[]string{"cause"},
		),
		Retries: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retries_total",
				Help:      "Requests sent again on a fresh connection after a stale one failed",
			},
		),
		Redirects: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "redirects_total",
				Help:      "Redirects followed",
			},
		),
		Responses: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "responses_total",
				Help:      "Responses received, by status class",
			},
			[]string{"class"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Time from sending a request to reading its response head",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}
}

func (m *Metrics) ObserveAcquire(reused bool) {
	if m == nil {
		return
	}
	origin := "fresh"
	if reused {
		origin = "reused"
	}
	m.Acquisitions.WithLabelValues(origin).Inc()
}

// ObserveInvalidate counts a dropped connection. A nil cause is a voluntary
// close, like Connection: close or an undrained body.
func (m *Metrics) ObserveInvalidate(cause error) {
	if m == nil {
		return
	}
	label := "close"
	if cause != nil {
		label = "error"
	}
	m.Invalidations.WithLabelValues(label).Inc()
}

func (m *Metrics) ObserveRetry() {
	if m == nil {
		return
	}
	m.Retries.Inc()
}

func (m *Metrics) ObserveRedirect() {
	if m == nil {
		return
	}
	m.Redirects.Inc()
}

func (m *Metrics) ObserveResponse(method string, code int, took time.Duration) {
	if m == nil {
		return
	}
	m.Responses.WithLabelValues(strconv.Itoa(code/100) + "xx").Inc()
	m.RequestDuration.WithLabelValues(method).Observe(took.Seconds())
}
