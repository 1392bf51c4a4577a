// Package metrics exposes Prometheus counters for the auth flow.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "babylon"

// Attempt outcomes.
const (
	OutcomeSuccess       = "success"
	OutcomeProviderError = "provider_error"
	OutcomeFailure       = "failure"
	OutcomeSkipped       = "skipped"
)

// Metrics holds the web service collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry     *prometheus.Registry
	attempts     *prometheus.CounterVec
	signOuts     *prometheus.CounterVec
	sessionGauge prometheus.GaugeFunc
}

// New registers collectors on a fresh registry. sessions, when set, reports
// the number of stored browser sessions.
func New(sessions func() int) *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "attempts_total",
			Help:      "Auth form submissions by mode and outcome.",
		}, []string{"mode", "outcome"}),
		signOuts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "sign_outs_total",
			Help:      "Sign-outs by provider outcome.",
		}, []string{"outcome"}),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.attempts,
		m.signOuts,
	)
	if sessions != nil {
		m.sessionGauge = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "web",
			Name:      "sessions",
			Help:      "Browser sessions currently stored.",
		}, func() float64 { return float64(sessions()) })
		registry.MustRegister(m.sessionGauge)
	}
	return m
}

// Attempt counts one auth submission.
func (m *Metrics) Attempt(mode, outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(mode, outcome).Inc()
}

// SignOut counts one sign-out.
func (m *Metrics) SignOut(outcome string) {
	if m == nil {
		return
	}
	m.signOuts.WithLabelValues(outcome).Inc()
}

// Handler serves the exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
