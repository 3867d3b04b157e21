package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes of a remote forecast fetch.
const (
	OutcomeSuccess     = "success"
	OutcomeExhausted   = "exhausted"
	OutcomeUnavailable = "unavailable"
)

// Metrics holds the prometheus collectors for the dispatcher. All methods are
// safe to call on a nil *Metrics so packages can be used without metrics.
type Metrics struct {
	registry *prometheus.Registry

	forecastResults *prometheus.CounterVec
	forecastCalls   *prometheus.CounterVec
	callsRemaining  prometheus.Gauge
	decisions       *prometheus.CounterVec
	fallbacks       prometheus.Counter
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		forecastResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airepert_forecast_results_total",
			Help: "Forecast results served by source.",
		}, []string{"source"}),
		forecastCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airepert_forecast_remote_calls_total",
			Help: "Remote forecast fetches by outcome.",
		}, []string{"outcome"}),
		callsRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "airepert_forecast_calls_remaining",
			Help: "Remote forecast calls left for the current day.",
		}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airepert_dispatch_decisions_total",
			Help: "Dispatch runs by resulting strategy.",
		}, []string{"strategy"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "airepert_dispatch_fallbacks_total",
			Help: "Dispatch runs that ended in the safe fallback.",
		}),
	}
	registry.MustRegister(
		m.forecastResults,
		m.forecastCalls,
		m.callsRemaining,
		m.decisions,
		m.fallbacks,
	)
	return m
}

// ForecastResult counts a forecast served from the given source.
func (m *Metrics) ForecastResult(source string) {
	if m == nil {
		return
	}
	m.forecastResults.WithLabelValues(source).Inc()
}

// ForecastCall counts a remote fetch attempt cycle.
func (m *Metrics) ForecastCall(outcome string) {
	if m == nil {
		return
	}
	m.forecastCalls.WithLabelValues(outcome).Inc()
}

// ForecastCallsRemaining sets the remaining daily call budget.
func (m *Metrics) ForecastCallsRemaining(n int) {
	if m == nil {
		return
	}
	m.callsRemaining.Set(float64(n))
}

// Decision counts a dispatch run ending in the given strategy.
func (m *Metrics) Decision(strategy string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(strategy).Inc()
}

// Fallback counts a dispatch run that used the fallback path.
func (m *Metrics) Fallback() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
