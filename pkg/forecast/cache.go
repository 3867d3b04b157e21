package forecast

import (
	"time"

	"github.com/airepert/airepert/pkg/types"
)

// DefaultCacheTTL is how long a fetched forecast is considered fresh.
const DefaultCacheTTL = time.Hour

// Cache holds the last fetched forecast series. It is not safe for concurrent
// use; the Manager guards it with its own lock.
type Cache struct {
	ttl       time.Duration
	series    types.ForecastSeries
	fetchedAt time.Time
}

// NewCache creates an empty cache.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{ttl: ttl}
}

// IsValid reports whether a non-empty series is cached and younger than the
// ttl.
func (c *Cache) IsValid(now time.Time) bool {
	if len(c.series) == 0 || c.fetchedAt.IsZero() {
		return false
	}
	return now.Sub(c.fetchedAt) < c.ttl
}

// Get returns a copy of the cached series, regardless of age.
func (c *Cache) Get() (types.ForecastSeries, bool) {
	if len(c.series) == 0 {
		return nil, false
	}
	return c.series.Clone(), true
}

// Put replaces the whole cache.
func (c *Cache) Put(series types.ForecastSeries, now time.Time) {
	c.series = series.Clone()
	c.fetchedAt = now
}

// FetchedAt returns when the cache was last filled, zero if never.
func (c *Cache) FetchedAt() time.Time {
	return c.fetchedAt
}

// Age returns how old the cached series is.
func (c *Cache) Age(now time.Time) time.Duration {
	if c.fetchedAt.IsZero() {
		return 0
	}
	return now.Sub(c.fetchedAt)
}
