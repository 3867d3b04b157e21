package controller

import (
	"time"

	"github.com/airepert/airepert/pkg/types"
)

const (
	lowProductionW  = 1000
	highProductionW = 3000

	criticalBatterySOC = 20
	optimalBatterySOC  = 80

	dayStartHour = 6
	dayEndHour   = 18
)

// AnalyzeContext bands the current production, battery and time of day. The
// time of day uses now's location.
func AnalyzeContext(c types.Context, now time.Time) types.ContextAnalysis {
	production := types.ProductionMedium
	switch {
	case c.ProductionW > highProductionW:
		production = types.ProductionHigh
	case c.ProductionW < lowProductionW:
		production = types.ProductionLow
	}

	battery := types.BatteryNormal
	switch {
	case c.BatterySOCPct < criticalBatterySOC:
		battery = types.BatteryCritical
	case c.BatterySOCPct > optimalBatterySOC:
		battery = types.BatteryOptimal
	}

	return types.ContextAnalysis{
		Production:    production,
		Battery:       battery,
		Period:        dayPeriod(now),
		LocalTime:     now.Format("15:04:05"),
		ProductionW:   c.ProductionW,
		BatterySOCPct: c.BatterySOCPct,
	}
}

// dayPeriod is day between 06:00 and 18:00, both inclusive.
func dayPeriod(now time.Time) types.DayPeriod {
	y, m, d := now.Date()
	start := time.Date(y, m, d, dayStartHour, 0, 0, 0, now.Location())
	end := time.Date(y, m, d, dayEndHour, 0, 0, 0, now.Location())
	if now.Before(start) || now.After(end) {
		return types.DayPeriodNight
	}
	return types.DayPeriodDay
}
