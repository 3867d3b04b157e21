package types

import (
	"fmt"
	"strings"
	"time"
)

// LoadClass is the priority tier of an electrical load.
type LoadClass string

const (
	LoadClassPriority     LoadClass = "priority"
	LoadClassSemiPriority LoadClass = "semi-priority"
	LoadClassNonPriority  LoadClass = "non-priority"
)

// ParseLoadClass normalizes a load class, accepting the French spellings the
// relay board was originally configured with.
func ParseLoadClass(s string) (LoadClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "priority", "prioritaire":
		return LoadClassPriority, nil
	case "semi-priority", "semi-prioritaire":
		return LoadClassSemiPriority, nil
	case "non-priority", "non-prioritaire":
		return LoadClassNonPriority, nil
	default:
		return "", fmt.Errorf("unknown load class: %q", s)
	}
}

// Load is an electrical load controlled by a relay.
type Load struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Class       LoadClass `json:"class"`
	RatedPowerW float64   `json:"ratedPowerW"`
	On          bool      `json:"on"`
}

// Context is the current telemetry used to make a decision.
type Context struct {
	ProductionW   float64 `json:"productionW"`
	BatterySOCPct float64 `json:"batterySOCPct"` // 0-100
	SpecialEvent  bool    `json:"specialEvent"`
}

// ProductionLevel is the band of the current solar production.
type ProductionLevel string

const (
	ProductionHigh   ProductionLevel = "forte"
	ProductionMedium ProductionLevel = "moyenne"
	ProductionLow    ProductionLevel = "faible"
)

// BatteryLevel is the band of the current battery state of charge.
type BatteryLevel string

const (
	BatteryOptimal  BatteryLevel = "optimale"
	BatteryNormal   BatteryLevel = "normale"
	BatteryCritical BatteryLevel = "critique"
)

// DayPeriod is either day or night.
type DayPeriod string

const (
	DayPeriodDay   DayPeriod = "day"
	DayPeriodNight DayPeriod = "night"
)

// ContextAnalysis is the banded view of a Context.
type ContextAnalysis struct {
	Production    ProductionLevel `json:"production"`
	Battery       BatteryLevel    `json:"battery"`
	Period        DayPeriod       `json:"period"`
	LocalTime     string          `json:"localTime"`
	ProductionW   float64         `json:"productionW"`
	BatterySOCPct float64         `json:"batterySOCPct"`
}

// StrategyName is one of the closed set of dispatch strategies.
type StrategyName string

const (
	StrategyMaximumOptimization StrategyName = "MAXIMUM_OPTIMIZATION"
	StrategyNormalOptimization  StrategyName = "NORMAL_OPTIMIZATION"
	StrategyEconomy             StrategyName = "ECONOMY"
	StrategyPreservation        StrategyName = "PRESERVATION"
	StrategyFallback            StrategyName = "FALLBACK"
)

// ParseStrategyName rejects anything outside of the five known strategies.
func ParseStrategyName(s string) (StrategyName, error) {
	switch n := StrategyName(strings.ToUpper(strings.TrimSpace(s))); n {
	case StrategyMaximumOptimization,
		StrategyNormalOptimization,
		StrategyEconomy,
		StrategyPreservation,
		StrategyFallback:
		return n, nil
	default:
		return "", fmt.Errorf("unknown strategy: %q", s)
	}
}

// Action is where a load gets its power from, or whether it is cut.
type Action string

const (
	ActionSolar   Action = "solar"
	ActionBattery Action = "battery"
	ActionGrid    Action = "grid"
	ActionCut     Action = "cut"
)

// BatteryChargeMode is how aggressively the battery should be charged.
type BatteryChargeMode string

const (
	BatteryChargeNormal  BatteryChargeMode = "normal"
	BatteryChargeMaximal BatteryChargeMode = "maximal"
)

// PriorityPolicy is the per-class routing for a strategy.
type PriorityPolicy struct {
	Priority     Action            `json:"priority"`
	SemiPriority Action            `json:"semiPriority"`
	NonPriority  Action            `json:"nonPriority"`
	BatteryMode  BatteryChargeMode `json:"batteryMode"`
}

// ActionFor returns the action for the given load class. Unknown classes are
// routed like non-priority loads.
func (p PriorityPolicy) ActionFor(class LoadClass) Action {
	switch class {
	case LoadClassPriority:
		return p.Priority
	case LoadClassSemiPriority:
		return p.SemiPriority
	default:
		return p.NonPriority
	}
}

// StrategyFactors records the inputs that produced a strategy score.
type StrategyFactors struct {
	Production         ProductionLevel `json:"production"`
	Battery            BatteryLevel    `json:"battery"`
	Period             DayPeriod       `json:"period"`
	ForecastRisk       RiskLevel       `json:"forecastRisk"`
	TomorrowProduction float64         `json:"tomorrowProductionKWH"`
}

// Strategy is the scored dispatch strategy.
type Strategy struct {
	Name       StrategyName    `json:"name"`
	Score      float64         `json:"score"`
	Factors    StrategyFactors `json:"factors"`
	Priorities PriorityPolicy  `json:"priorities"`
}

// Decision is the recommended routing for a single load.
type Decision struct {
	LoadID      int64     `json:"loadID"`
	LoadName    string    `json:"loadName"`
	LoadClass   LoadClass `json:"loadClass"`
	Action      Action    `json:"action"`
	Reason      string    `json:"reason"`
	RatedPowerW float64   `json:"ratedPowerW"`
}

// AuditActorSystem is the actor id used for automatic decisions.
const AuditActorSystem = 1

// AuditRecord is an append-only trace of a decision run.
type AuditRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	Reason    string    `json:"reason"`
	ActorID   int64     `json:"actorID"`
}

// DispatchResult is the full outcome of a decision run.
type DispatchResult struct {
	Timestamp      time.Time         `json:"timestamp"`
	Strategy       Strategy          `json:"strategy"`
	Decisions      []Decision        `json:"decisions"`
	AlertText      string            `json:"alertText"`
	Context        Context           `json:"context"`
	Forecast       *ForecastAnalysis `json:"forecast,omitempty"`
	ForecastSource ForecastSource    `json:"forecastSource"`
	CallsRemaining int               `json:"callsRemaining"`
	Audit          *AuditRecord      `json:"audit,omitempty"`
	Fallback       bool              `json:"fallback,omitempty"`
}

// AutonomyEstimate is how long the battery can carry a set of loads.
type AutonomyEstimate struct {
	Loads       []string `json:"loads"`
	TotalPowerW float64  `json:"totalPowerW"`
	AvailableWH float64  `json:"availableWH"`
	RequiredWH  float64  `json:"requiredWH"`
	MaxHours    float64  `json:"maxHours"`
	PeriodHours float64  `json:"periodHours"`
	Sufficient  bool     `json:"sufficient"`
	Alert       string   `json:"alert"`
}
