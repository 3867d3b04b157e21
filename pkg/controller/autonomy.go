package controller

import (
	"fmt"
	"math"
	"strconv"

	"github.com/airepert/airepert/pkg/types"
)

// DefaultAutonomyPeriod is the window the battery is expected to cover when
// none is given.
const DefaultAutonomyPeriod = 6.0

// BatteryAutonomy estimates how long a battery at socPct of capacityWH can
// power the given loads at their rated power, and whether that covers
// periodH hours.
func BatteryAutonomy(loads []types.Load, socPct, capacityWH, periodH float64) types.AutonomyEstimate {
	if periodH <= 0 {
		periodH = DefaultAutonomyPeriod
	}

	est := types.AutonomyEstimate{
		Loads:       make([]string, 0, len(loads)),
		AvailableWH: capacityWH * socPct / 100,
		PeriodHours: periodH,
	}
	for _, l := range loads {
		est.Loads = append(est.Loads, l.Name)
		est.TotalPowerW += l.RatedPowerW
	}
	est.RequiredWH = est.TotalPowerW * periodH
	if est.TotalPowerW > 0 {
		est.MaxHours = math.Round(est.AvailableWH/est.TotalPowerW*100) / 100
	}

	est.Sufficient = est.RequiredWH <= est.AvailableWH
	if est.Sufficient {
		est.Alert = fmt.Sprintf(
			"OK, la batterie pourra alimenter ces charges pendant %sh.",
			strconv.FormatFloat(periodH, 'f', -1, 64),
		)
	} else {
		est.Alert = fmt.Sprintf("Attention, la batterie ne pourra alimenter ces charges que pendant %.2fh.", est.MaxHours)
	}
	return est
}
