// Package forecast acquires next-day solar production forecasts from Solcast,
// caches them, spreads calls over several credentials and analyzes the result.
package forecast

import "errors"

var (
	// ErrRemoteUnavailable is returned when the provider fails with anything
	// other than success, quota exceeded or not found.
	ErrRemoteUnavailable = errors.New("forecast provider unavailable")

	// ErrAllCredentialsExhausted is returned when every credential was rejected
	// with quota exceeded or not found during a single fetch.
	ErrAllCredentialsExhausted = errors.New("all forecast credentials exhausted")

	// ErrEmptySeries is returned when analyzing a series with no points.
	ErrEmptySeries = errors.New("empty forecast series")

	// ErrForecastUnavailable is returned when no fetch is possible and there is
	// no cached forecast to fall back on.
	ErrForecastUnavailable = errors.New("forecast unavailable")

	// ErrQuotaExhausted is returned by the rotator when the daily budget is spent.
	ErrQuotaExhausted = errors.New("daily forecast quota exhausted")
)

// IsForecastError reports whether err belongs to the forecast error taxonomy.
// Callers use it to tell an expected degradation from an unexpected failure.
func IsForecastError(err error) bool {
	return errors.Is(err, ErrRemoteUnavailable) ||
		errors.Is(err, ErrAllCredentialsExhausted) ||
		errors.Is(err, ErrEmptySeries) ||
		errors.Is(err, ErrForecastUnavailable) ||
		errors.Is(err, ErrQuotaExhausted)
}
