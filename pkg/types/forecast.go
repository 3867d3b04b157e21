package types

import "time"

// ForecastPoint is a single 30-minute slot of predicted solar yield.
type ForecastPoint struct {
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`

	// Energy in kWh for the slot.
	PVEstimate   float64 `json:"pvEstimate"`
	PVEstimate10 float64 `json:"pvEstimate10"`
	PVEstimate90 float64 `json:"pvEstimate90"`

	CloudOpacity float64 `json:"cloudOpacity"` // 0-1
	Temp         float64 `json:"temp"`
	GHI          float64 `json:"ghi"`
	DHI          float64 `json:"dhi"`
	DNI          float64 `json:"dni"`
}

// ForecastSeries is a chronological series of forecast slots covering one day.
type ForecastSeries []ForecastPoint

// Clone returns a copy of the series so callers never share the cached slice.
func (s ForecastSeries) Clone() ForecastSeries {
	if s == nil {
		return nil
	}
	out := make(ForecastSeries, len(s))
	copy(out, s)
	return out
}

// RiskLevel is the discrete risk of a forecast not covering demand.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
	// RiskUnknown is used when no forecast analysis is available.
	RiskUnknown RiskLevel = "UNKNOWN"
)

// SunshineQuality summarizes the mean cloud opacity.
type SunshineQuality string

const (
	SunshineExcellent SunshineQuality = "excellent"
	SunshineGood      SunshineQuality = "bon"
	SunshinePoor      SunshineQuality = "mauvais"
)

// ForecastPeriod is the window covered by an analyzed series.
type ForecastPeriod struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	DurationHours float64   `json:"durationHours"`
}

// ForecastProduction holds the production aggregates of a series.
type ForecastProduction struct {
	TotalKWH       float64 `json:"totalKWH"`
	MeanKWHPerSlot float64 `json:"meanKWHPerSlot"`
	MaxKWHPerSlot  float64 `json:"maxKWHPerSlot"`
	MinKWHPerSlot  float64 `json:"minKWHPerSlot"`
	Variability    float64 `json:"variability"`
}

// ForecastDistribution counts slots by production band.
type ForecastDistribution struct {
	PeakSlots   int `json:"peakSlots"`
	NormalSlots int `json:"normalSlots"`
	LowSlots    int `json:"lowSlots"`
}

// ForecastWeather summarizes cloud cover.
type ForecastWeather struct {
	MeanCloudOpacity float64         `json:"meanCloudOpacity"`
	Sunshine         SunshineQuality `json:"sunshine"`
}

// ForecastAnalysis is the result of analyzing a forecast series.
type ForecastAnalysis struct {
	Period          ForecastPeriod       `json:"period"`
	Production      ForecastProduction   `json:"production"`
	Distribution    ForecastDistribution `json:"distribution"`
	Weather         ForecastWeather      `json:"weather"`
	Risk            RiskLevel            `json:"risk"`
	Recommendations []string             `json:"recommendations"`
}

// ForecastSource describes where a forecast result came from.
type ForecastSource string

const (
	ForecastSourceCache           ForecastSource = "cache"
	ForecastSourceAPI             ForecastSource = "api"
	ForecastSourceCacheStaleQuota ForecastSource = "cache_stale_due_to_quota"
	// ForecastSourceNone is reported by the decision engine when no forecast
	// could be obtained.
	ForecastSourceNone ForecastSource = "none"
)

// ForecastResult is what the forecast manager hands to callers.
type ForecastResult struct {
	Series          ForecastSeries    `json:"series"`
	Source          ForecastSource    `json:"source"`
	Analysis        *ForecastAnalysis `json:"analysis,omitempty"`
	CallsRemaining  int               `json:"callsRemaining"`
	CacheAgeMinutes int               `json:"cacheAgeMinutes,omitempty"`
	Stale           bool              `json:"stale,omitempty"`
	Warning         string            `json:"warning,omitempty"`
}

// ForecastUsageStats reports the forecast provider quota and cache state.
type ForecastUsageStats struct {
	CallsToday int       `json:"callsToday"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	CacheValid bool      `json:"cacheValid"`
	LastUpdate time.Time `json:"lastUpdate,omitzero"`
}
