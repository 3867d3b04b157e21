package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := New()

	m.ForecastResult("api")
	m.ForecastResult("api")
	m.ForecastResult("cache")
	m.ForecastCall(OutcomeSuccess)
	m.ForecastCallsRemaining(7)
	m.Decision("ECONOMY")
	m.Fallback()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.forecastResults.WithLabelValues("api")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.forecastResults.WithLabelValues("cache")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.forecastCalls.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.callsRemaining))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("ECONOMY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fallbacks))

	t.Run("Handler", func(t *testing.T) {
		w := httptest.NewRecorder()
		m.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "airepert_dispatch_fallbacks_total 1")
	})
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ForecastResult("api")
		m.ForecastCall(OutcomeExhausted)
		m.ForecastCallsRemaining(1)
		m.Decision("ECONOMY")
		m.Fallback()
	})
	assert.Nil(t, m.Registry())

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
