package forecast

import (
	"fmt"

	"github.com/airepert/airepert/pkg/types"
)

const (
	// per 30 minute slot
	peakSlotKWH = 2.0
	lowSlotKWH  = 0.5
)

// Analyze computes production aggregates, variability, cloud cover, a risk
// level and recommendations for a forecast series.
func Analyze(series types.ForecastSeries) (types.ForecastAnalysis, error) {
	if len(series) == 0 {
		return types.ForecastAnalysis{}, ErrEmptySeries
	}

	var (
		total, opacity float64
		dist           types.ForecastDistribution
	)
	minKWH := series[0].PVEstimate
	maxKWH := series[0].PVEstimate
	for _, p := range series {
		total += p.PVEstimate
		opacity += p.CloudOpacity
		minKWH = min(minKWH, p.PVEstimate)
		maxKWH = max(maxKWH, p.PVEstimate)

		switch {
		case p.PVEstimate > peakSlotKWH:
			dist.PeakSlots++
		case p.PVEstimate < lowSlotKWH:
			dist.LowSlots++
		default:
			dist.NormalSlots++
		}
	}

	var variability float64
	if maxKWH > 0 {
		variability = (maxKWH - minKWH) / maxKWH
	}
	meanOpacity := opacity / float64(len(series))

	start := series[0].PeriodEnd
	end := series[len(series)-1].PeriodEnd

	return types.ForecastAnalysis{
		Period: types.ForecastPeriod{
			Start:         start,
			End:           end,
			DurationHours: end.Sub(start).Hours(),
		},
		Production: types.ForecastProduction{
			TotalKWH:       total,
			MeanKWHPerSlot: total / float64(len(series)),
			MaxKWHPerSlot:  maxKWH,
			MinKWHPerSlot:  minKWH,
			Variability:    variability,
		},
		Distribution: dist,
		Weather: types.ForecastWeather{
			MeanCloudOpacity: meanOpacity,
			Sunshine:         sunshineQuality(meanOpacity),
		},
		Risk:            classifyRisk(total, variability, dist.LowSlots),
		Recommendations: recommendations(total, variability, dist.LowSlots),
	}, nil
}

// classifyRisk checks in a fixed order and the first match wins, which
// decides the boundaries (exactly 10 kWh is HIGH, not CRITICAL).
func classifyRisk(totalKWH, variability float64, lowSlots int) types.RiskLevel {
	switch {
	case totalKWH < 10:
		return types.RiskCritical
	case totalKWH < 20 || lowSlots > 12:
		return types.RiskHigh
	case totalKWH < 30 || variability > 0.7:
		return types.RiskModerate
	default:
		return types.RiskLow
	}
}

func recommendations(totalKWH, variability float64, lowSlots int) []string {
	recs := []string{}
	if totalKWH < 15 {
		recs = append(recs,
			"Charger la batterie à 100% aujourd'hui",
			"Préparer le basculement sur réseau",
		)
	}
	if lowSlots > 8 {
		recs = append(recs,
			fmt.Sprintf("Prévoir %dh de faible production", lowSlots),
			"Optimiser la charge de la batterie",
		)
	}
	if variability > 0.8 {
		recs = append(recs, "Production très variable - surveillance renforcée")
	}
	if totalKWH > 40 {
		recs = append(recs, "Production excellente - optimisation maximale possible")
	}
	return recs
}

func sunshineQuality(meanOpacity float64) types.SunshineQuality {
	switch {
	case meanOpacity < 0.3:
		return types.SunshineExcellent
	case meanOpacity < 0.6:
		return types.SunshineGood
	default:
		return types.SunshinePoor
	}
}
