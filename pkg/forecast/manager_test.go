package forecast

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/airepert/airepert/pkg/metrics"
	"github.com/airepert/airepert/pkg/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFetcher returns canned results in order and counts calls.
type stubFetcher struct {
	series types.ForecastSeries
	errs   []error
	delay  time.Duration

	mu    sync.Mutex
	calls int
}

func (s *stubFetcher) FetchTomorrow(ctx context.Context, now time.Time, rotator *QuotaRotator) (types.ForecastSeries, error) {
	s.mu.Lock()
	i := s.calls
	s.calls++
	s.mu.Unlock()
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return s.series, nil
}

func TestManagerGetForecast(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 10, 8, 0, 0, 0, time.UTC)
	creds := []Credential{{APIKey: "k", SiteID: "s"}}
	series := flatSeries(now.AddDate(0, 0, 1), 48, 1)

	t.Run("CacheWithinTTL", func(t *testing.T) {
		f := &stubFetcher{series: series}
		rot := NewQuotaRotator(creds, 10)
		m := NewManager(f, rot, time.Hour)
		mm := metrics.New()
		m.SetMetrics(mm)

		first, err := m.GetForecast(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, types.ForecastSourceAPI, first.Source)
		require.NotNil(t, first.Analysis)
		assert.InDelta(t, 48.0, first.Analysis.Production.TotalKWH, 1e-9)
		assert.Equal(t, 9, first.CallsRemaining)

		second, err := m.GetForecast(ctx, now.Add(20*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, types.ForecastSourceCache, second.Source)
		assert.Equal(t, first.Series, second.Series)
		assert.Equal(t, 20, second.CacheAgeMinutes)
		assert.Equal(t, 1, f.calls)
		assert.Equal(t, 1, rot.CallsToday(now))

		n, err := testutil.GatherAndCount(mm.Registry(), "airepert_forecast_results_total")
		require.NoError(t, err)
		assert.Equal(t, 2, n, "one series per served source")
	})

	t.Run("RefetchAfterTTL", func(t *testing.T) {
		f := &stubFetcher{series: series}
		m := NewManager(f, NewQuotaRotator(creds, 10), time.Hour)
		_, err := m.GetForecast(ctx, now)
		require.NoError(t, err)
		res, err := m.GetForecast(ctx, now.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, types.ForecastSourceAPI, res.Source)
		assert.Equal(t, 2, f.calls)
	})

	t.Run("QuotaExhaustedServesStale", func(t *testing.T) {
		f := &stubFetcher{series: series}
		rot := NewQuotaRotator(creds, 10)
		m := NewManager(f, rot, time.Minute)

		at := now
		for i := 0; i < 10; i++ {
			res, err := m.GetForecast(ctx, at)
			require.NoError(t, err)
			assert.Equal(t, types.ForecastSourceAPI, res.Source)
			at = at.Add(2 * time.Minute)
		}
		require.Equal(t, 10, rot.CallsToday(at))

		res, err := m.GetForecast(ctx, at)
		require.NoError(t, err)
		assert.Equal(t, types.ForecastSourceCacheStaleQuota, res.Source)
		assert.True(t, res.Stale)
		assert.NotEmpty(t, res.Warning)
		assert.Equal(t, 0, res.CallsRemaining)
		assert.Equal(t, 2, res.CacheAgeMinutes)
		require.NotNil(t, res.Analysis)
		assert.Equal(t, 10, f.calls, "no remote call once the quota is spent")
	})

	t.Run("QuotaExhaustedWithoutCache", func(t *testing.T) {
		f := &stubFetcher{series: series}
		m := NewManager(f, NewQuotaRotator(nil, 10), time.Hour)
		_, err := m.GetForecast(ctx, now)
		assert.ErrorIs(t, err, ErrForecastUnavailable)
		assert.ErrorIs(t, err, ErrQuotaExhausted)
		assert.Equal(t, 0, f.calls)
	})

	t.Run("AllCredentialsExhaustedServesStale", func(t *testing.T) {
		f := &stubFetcher{series: series, errs: []error{nil, ErrAllCredentialsExhausted}}
		rot := NewQuotaRotator(creds, 10)
		m := NewManager(f, rot, time.Hour)
		_, err := m.GetForecast(ctx, now)
		require.NoError(t, err)

		res, err := m.GetForecast(ctx, now.Add(2*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, types.ForecastSourceCacheStaleQuota, res.Source)
		assert.Equal(t, 1, rot.CallsToday(now), "failed calls are not counted")
	})

	t.Run("AllCredentialsExhaustedWithoutCache", func(t *testing.T) {
		f := &stubFetcher{errs: []error{ErrAllCredentialsExhausted}}
		m := NewManager(f, NewQuotaRotator(creds, 10), time.Hour)
		_, err := m.GetForecast(ctx, now)
		assert.ErrorIs(t, err, ErrForecastUnavailable)
		assert.ErrorIs(t, err, ErrAllCredentialsExhausted)
	})

	t.Run("RemoteUnavailable", func(t *testing.T) {
		f := &stubFetcher{errs: []error{ErrRemoteUnavailable}}
		rot := NewQuotaRotator(creds, 10)
		m := NewManager(f, rot, time.Hour)
		_, err := m.GetForecast(ctx, now)
		assert.ErrorIs(t, err, ErrRemoteUnavailable)
		assert.Equal(t, 0, rot.CallsToday(now))
	})

	t.Run("EmptySeries", func(t *testing.T) {
		f := &stubFetcher{series: types.ForecastSeries{}}
		m := NewManager(f, NewQuotaRotator(creds, 10), time.Hour)
		res, err := m.GetForecast(ctx, now)
		assert.ErrorIs(t, err, ErrEmptySeries)
		assert.Equal(t, types.ForecastSourceAPI, res.Source)
		assert.Nil(t, res.Analysis)
	})
}

func TestManagerGetForecastConcurrent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 10, 8, 0, 0, 0, time.UTC)
	f := &stubFetcher{series: flatSeries(now.AddDate(0, 0, 1), 48, 1), delay: 20 * time.Millisecond}
	rot := NewQuotaRotator([]Credential{{APIKey: "k", SiteID: "s"}}, 10)
	m := NewManager(f, rot, time.Hour)

	const n = 16
	var wg sync.WaitGroup
	results := make([]types.ForecastResult, n)
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = m.GetForecast(ctx, now)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.calls)
	assert.Equal(t, 1, rot.CallsToday(now))
	var fromAPI int
	for i := range n {
		require.NoError(t, errs[i])
		assert.Len(t, results[i].Series, 48)
		if results[i].Source == types.ForecastSourceAPI {
			fromAPI++
		}
	}
	assert.Equal(t, 1, fromAPI)
}

func TestManagerRefresh(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 10, 8, 0, 0, 0, time.UTC)
	creds := []Credential{{APIKey: "k", SiteID: "s"}}
	series := flatSeries(now.AddDate(0, 0, 1), 48, 1)

	f := &stubFetcher{series: series}
	rot := NewQuotaRotator(creds, 2)
	m := NewManager(f, rot, time.Hour)

	_, err := m.GetForecast(ctx, now)
	require.NoError(t, err)

	res, err := m.Refresh(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, types.ForecastSourceAPI, res.Source, "refresh ignores a fresh cache")
	assert.Equal(t, 2, f.calls)

	_, err = m.Refresh(ctx, now.Add(2*time.Minute))
	assert.ErrorIs(t, err, ErrQuotaExhausted)
	assert.Equal(t, 2, f.calls)

	f.errs = []error{nil, nil, errors.New("boom")}
	rot2 := NewQuotaRotator(creds, 10)
	m2 := NewManager(f, rot2, time.Hour)
	_, err = m2.Refresh(ctx, now)
	assert.EqualError(t, err, "boom")
}

func TestManagerUsageStats(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 10, 8, 0, 0, 0, time.UTC)
	m := NewManager(&stubFetcher{series: flatSeries(now, 4, 1)}, NewQuotaRotator([]Credential{{APIKey: "k", SiteID: "s"}, {APIKey: "k2", SiteID: "s2"}}, 10), time.Hour)

	stats := m.UsageStats(now)
	assert.Equal(t, types.ForecastUsageStats{Limit: 20, Remaining: 20}, stats)

	_, err := m.GetForecast(ctx, now)
	require.NoError(t, err)
	stats = m.UsageStats(now.Add(time.Minute))
	assert.Equal(t, 1, stats.CallsToday)
	assert.Equal(t, 19, stats.Remaining)
	assert.True(t, stats.CacheValid)
	assert.Equal(t, now, stats.LastUpdate)
}
