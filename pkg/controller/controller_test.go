package controller

import (
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

func TestAnalyzeContext(t *testing.T) {
	noon := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		ctx        types.Context
		production types.ProductionLevel
		battery    types.BatteryLevel
	}{
		{"High", types.Context{ProductionW: 3001, BatterySOCPct: 81}, types.ProductionHigh, types.BatteryOptimal},
		{"Boundaries", types.Context{ProductionW: 3000, BatterySOCPct: 80}, types.ProductionMedium, types.BatteryNormal},
		{"LowerBoundaries", types.Context{ProductionW: 1000, BatterySOCPct: 20}, types.ProductionMedium, types.BatteryNormal},
		{"Low", types.Context{ProductionW: 999, BatterySOCPct: 19.9}, types.ProductionLow, types.BatteryCritical},
		{"Zero", types.Context{}, types.ProductionLow, types.BatteryCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := AnalyzeContext(tt.ctx, noon)
			assert.Equal(t, tt.production, a.Production)
			assert.Equal(t, tt.battery, a.Battery)
			assert.Equal(t, types.DayPeriodDay, a.Period)
			assert.Equal(t, "12:00:00", a.LocalTime)
			assert.Equal(t, tt.ctx.ProductionW, a.ProductionW)
			assert.Equal(t, tt.ctx.BatterySOCPct, a.BatterySOCPct)
		})
	}
}

func TestDayPeriod(t *testing.T) {
	at := func(h, m, s, ns int) time.Time {
		return time.Date(2026, 6, 10, h, m, s, ns, time.UTC)
	}
	assert.Equal(t, types.DayPeriodNight, dayPeriod(at(5, 59, 59, 0)))
	assert.Equal(t, types.DayPeriodDay, dayPeriod(at(6, 0, 0, 0)))
	assert.Equal(t, types.DayPeriodDay, dayPeriod(at(18, 0, 0, 0)))
	assert.Equal(t, types.DayPeriodNight, dayPeriod(at(18, 0, 0, 1)))
	assert.Equal(t, types.DayPeriodNight, dayPeriod(at(23, 0, 0, 0)))

	// local time, not UTC
	paris, err := time.LoadLocation("Europe/Paris")
	if err == nil {
		assert.Equal(t, types.DayPeriodDay, dayPeriod(time.Date(2026, 6, 10, 7, 0, 0, 0, paris)))
	}
}
