package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/airepert/airepert/pkg/log"
	"github.com/airepert/airepert/pkg/metrics"
	"github.com/airepert/airepert/pkg/types"
)

// Fetcher performs the remote fetch of tomorrow's forecast using the rotator
// to pick credentials.
type Fetcher interface {
	FetchTomorrow(ctx context.Context, now time.Time, rotator *QuotaRotator) (types.ForecastSeries, error)
}

// Manager combines the cache, the quota rotator and the fetcher into a single
// "get tomorrow's forecast" operation. A single lock covers the whole
// check cache, maybe fetch, update cache and quota sequence so concurrent
// callers never trigger duplicate remote calls.
type Manager struct {
	mu      sync.Mutex
	cache   *Cache
	rotator *QuotaRotator
	fetcher Fetcher
	metrics *metrics.Metrics
}

// NewManager creates a Manager.
func NewManager(fetcher Fetcher, rotator *QuotaRotator, ttl time.Duration) *Manager {
	return &Manager{
		cache:   NewCache(ttl),
		rotator: rotator,
		fetcher: fetcher,
	}
}

// SetMetrics attaches a metrics recorder.
func (m *Manager) SetMetrics(mm *metrics.Metrics) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = mm
}

// GetForecast returns tomorrow's forecast and its analysis. The cache is used
// while fresh; otherwise a remote call is made if the daily quota allows it.
// When the quota is spent or every credential is rejected, a stale cache is
// returned if there is one, else ErrForecastUnavailable.
//
// The result is still returned alongside ErrEmptySeries when the provider
// returned no points, so callers can see the source and quota.
func (m *Manager) GetForecast(ctx context.Context, now time.Time) (types.ForecastResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cache.IsValid(now) {
		series, _ := m.cache.Get()
		res := types.ForecastResult{
			Series:          series,
			Source:          types.ForecastSourceCache,
			CallsRemaining:  m.rotator.Remaining(now),
			CacheAgeMinutes: int(m.cache.Age(now).Minutes()),
		}
		log.Ctx(ctx).DebugContext(ctx, "using cached forecast", slog.Int("ageMinutes", res.CacheAgeMinutes))
		return m.finish(res)
	}

	if !m.rotator.CanCall(now) {
		log.Ctx(ctx).WarnContext(
			ctx,
			"forecast quota reached",
			slog.Int("callsToday", m.rotator.CallsToday(now)),
			slog.Int("limit", m.rotator.Limit()),
		)
		return m.stale(now, ErrQuotaExhausted)
	}

	res, err := m.fetchLocked(ctx, now)
	if err != nil {
		if errors.Is(err, ErrAllCredentialsExhausted) {
			return m.stale(now, err)
		}
		return types.ForecastResult{}, err
	}
	return m.finish(res)
}

// Refresh forces a remote fetch regardless of cache freshness, as long as the
// daily quota allows it.
func (m *Manager) Refresh(ctx context.Context, now time.Time) (types.ForecastResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.rotator.CanCall(now) {
		return types.ForecastResult{CallsRemaining: 0}, ErrQuotaExhausted
	}
	res, err := m.fetchLocked(ctx, now)
	if err != nil {
		return types.ForecastResult{}, err
	}
	return m.finish(res)
}

// fetchLocked performs the remote call and updates cache and quota on success.
func (m *Manager) fetchLocked(ctx context.Context, now time.Time) (types.ForecastResult, error) {
	series, err := m.fetcher.FetchTomorrow(ctx, now, m.rotator)
	if err != nil {
		outcome := metrics.OutcomeUnavailable
		if errors.Is(err, ErrAllCredentialsExhausted) {
			outcome = metrics.OutcomeExhausted
		}
		m.metrics.ForecastCall(outcome)
		log.Ctx(ctx).ErrorContext(ctx, "failed to fetch forecast", slog.Any("error", err))
		return types.ForecastResult{}, err
	}

	m.cache.Put(series, now)
	m.rotator.RecordSuccess(now)
	m.metrics.ForecastCall(metrics.OutcomeSuccess)
	m.metrics.ForecastCallsRemaining(m.rotator.Remaining(now))

	log.Ctx(ctx).InfoContext(
		ctx,
		"fetched forecast",
		slog.Int("points", len(series)),
		slog.Int("callsToday", m.rotator.CallsToday(now)),
		slog.Int("credentialIndex", m.rotator.Index()),
	)

	return types.ForecastResult{
		Series:         series.Clone(),
		Source:         types.ForecastSourceAPI,
		CallsRemaining: m.rotator.Remaining(now),
	}, nil
}

// stale returns the cached series regardless of age, or
// ErrForecastUnavailable if nothing was ever cached.
func (m *Manager) stale(now time.Time, cause error) (types.ForecastResult, error) {
	series, ok := m.cache.Get()
	if !ok {
		return types.ForecastResult{}, fmt.Errorf("%w: %w", ErrForecastUnavailable, cause)
	}
	return m.finish(types.ForecastResult{
		Series:          series,
		Source:          types.ForecastSourceCacheStaleQuota,
		CallsRemaining:  m.rotator.Remaining(now),
		CacheAgeMinutes: int(m.cache.Age(now).Minutes()),
		Stale:           true,
		Warning:         "using cached forecast: " + cause.Error(),
	})
}

// finish attaches the analysis and records the served source.
func (m *Manager) finish(res types.ForecastResult) (types.ForecastResult, error) {
	m.metrics.ForecastResult(string(res.Source))
	analysis, err := Analyze(res.Series)
	if err != nil {
		return res, err
	}
	res.Analysis = &analysis
	return res, nil
}

// UsageStats reports the quota and cache state.
func (m *Manager) UsageStats(now time.Time) types.ForecastUsageStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return types.ForecastUsageStats{
		CallsToday: m.rotator.CallsToday(now),
		Limit:      m.rotator.Limit(),
		Remaining:  m.rotator.Remaining(now),
		CacheValid: m.cache.IsValid(now),
		LastUpdate: m.cache.FetchedAt(),
	}
}
