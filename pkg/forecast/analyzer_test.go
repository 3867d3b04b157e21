package forecast

import (
	"testing"
	"time"

	"github.com/airepert/airepert/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze(t *testing.T) {
	day := time.Date(2026, 6, 11, 0, 0, 0, 0, time.UTC)

	t.Run("Empty", func(t *testing.T) {
		_, err := Analyze(nil)
		assert.ErrorIs(t, err, ErrEmptySeries)
	})

	t.Run("Aggregates", func(t *testing.T) {
		s := flatSeries(day, 4, 0)
		s[0].PVEstimate, s[0].CloudOpacity = 0.2, 0.4
		s[1].PVEstimate, s[1].CloudOpacity = 1.0, 0.2
		s[2].PVEstimate, s[2].CloudOpacity = 3.0, 0.0
		s[3].PVEstimate, s[3].CloudOpacity = 0.8, 0.2

		a, err := Analyze(s)
		require.NoError(t, err)
		assert.InDelta(t, 5.0, a.Production.TotalKWH, 1e-9)
		assert.InDelta(t, 1.25, a.Production.MeanKWHPerSlot, 1e-9)
		assert.Equal(t, 3.0, a.Production.MaxKWHPerSlot)
		assert.Equal(t, 0.2, a.Production.MinKWHPerSlot)
		assert.InDelta(t, (3.0-0.2)/3.0, a.Production.Variability, 1e-9)
		assert.Equal(t, types.ForecastDistribution{PeakSlots: 1, NormalSlots: 2, LowSlots: 1}, a.Distribution)
		assert.InDelta(t, 0.2, a.Weather.MeanCloudOpacity, 1e-9)
		assert.Equal(t, types.SunshineExcellent, a.Weather.Sunshine)
		assert.Equal(t, s[0].PeriodEnd, a.Period.Start)
		assert.Equal(t, s[3].PeriodEnd, a.Period.End)
		assert.InDelta(t, 1.5, a.Period.DurationHours, 1e-9)
		assert.Equal(t, types.RiskCritical, a.Risk)
	})

	t.Run("AllZeroNoDivideByZero", func(t *testing.T) {
		a, err := Analyze(flatSeries(day, 48, 0))
		require.NoError(t, err)
		assert.Equal(t, 0.0, a.Production.Variability)
		assert.Equal(t, types.RiskCritical, a.Risk)
		assert.Equal(t, 48, a.Distribution.LowSlots)
	})

	t.Run("SlotBandBoundaries", func(t *testing.T) {
		s := flatSeries(day, 2, 0)
		s[0].PVEstimate = 2.0
		s[1].PVEstimate = 0.5
		a, err := Analyze(s)
		require.NoError(t, err)
		assert.Equal(t, 2, a.Distribution.NormalSlots)
	})
}

func TestClassifyRisk(t *testing.T) {
	tests := []struct {
		name        string
		total       float64
		variability float64
		lowSlots    int
		want        types.RiskLevel
	}{
		{"UnderTen", 9.99, 0, 0, types.RiskCritical},
		{"ExactlyTen", 10.0, 0, 0, types.RiskHigh},
		{"UnderTwenty", 19.9, 0, 0, types.RiskHigh},
		{"ExactlyTwenty", 20.0, 0, 0, types.RiskModerate},
		{"ManyLowSlots", 50, 0, 13, types.RiskHigh},
		{"TwelveLowSlots", 50, 0, 12, types.RiskLow},
		{"UnderThirty", 25, 0, 0, types.RiskModerate},
		{"Variable", 50, 0.71, 0, types.RiskModerate},
		{"ExactlyThirty", 30, 0.7, 0, types.RiskLow},
		{"Plenty", 45, 0.2, 2, types.RiskLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyRisk(tt.total, tt.variability, tt.lowSlots))
		})
	}
}

func TestRecommendations(t *testing.T) {
	assert.Equal(t, []string{}, recommendations(20, 0.1, 0))

	assert.Equal(t, []string{
		"Charger la batterie à 100% aujourd'hui",
		"Préparer le basculement sur réseau",
		"Prévoir 9h de faible production",
		"Optimiser la charge de la batterie",
		"Production très variable - surveillance renforcée",
	}, recommendations(12, 0.9, 9))

	assert.Equal(t, []string{
		"Production excellente - optimisation maximale possible",
	}, recommendations(41, 0.5, 0))
}

func TestSunshineQuality(t *testing.T) {
	assert.Equal(t, types.SunshineExcellent, sunshineQuality(0.29))
	assert.Equal(t, types.SunshineGood, sunshineQuality(0.3))
	assert.Equal(t, types.SunshineGood, sunshineQuality(0.59))
	assert.Equal(t, types.SunshinePoor, sunshineQuality(0.6))
}
