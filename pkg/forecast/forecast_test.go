package forecast

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/airepert/airepert/pkg/log"
	"github.com/airepert/airepert/pkg/types"
	"github.com/stretchr/testify/assert"
)

func init() {
	log.SetDefaultLogLevel(slog.LevelError)
}

// flatSeries builds n 30-minute slots each producing kwh, starting at
// midnight UTC of day.
func flatSeries(day time.Time, n int, kwh float64) types.ForecastSeries {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	s := make(types.ForecastSeries, 0, n)
	for i := 0; i < n; i++ {
		end := start.Add(time.Duration(i+1) * 30 * time.Minute)
		s = append(s, types.ForecastPoint{
			PeriodStart: end.Add(-30 * time.Minute),
			PeriodEnd:   end,
			PVEstimate:  kwh,
		})
	}
	return s
}

func TestIsForecastError(t *testing.T) {
	for _, err := range []error{
		ErrRemoteUnavailable,
		ErrAllCredentialsExhausted,
		ErrEmptySeries,
		ErrForecastUnavailable,
		ErrQuotaExhausted,
		fmt.Errorf("%w: %w", ErrForecastUnavailable, ErrQuotaExhausted),
	} {
		assert.True(t, IsForecastError(err), err.Error())
	}
	assert.False(t, IsForecastError(errors.New("boom")))
	assert.False(t, IsForecastError(nil))
}
