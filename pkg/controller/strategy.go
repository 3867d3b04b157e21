package controller

import (
	"fmt"

	"github.com/airepert/airepert/pkg/types"
)

const baseScore = 50

// ScoreStrategy scores the analyzed context and forecast and picks the
// strategy for the score. A nil forecast scores as an unknown risk with no
// production tomorrow.
func ScoreStrategy(ca types.ContextAnalysis, fa *types.ForecastAnalysis) (types.Strategy, error) {
	factors := types.StrategyFactors{
		Production:   ca.Production,
		Battery:      ca.Battery,
		Period:       ca.Period,
		ForecastRisk: types.RiskUnknown,
	}
	if fa != nil {
		factors.ForecastRisk = fa.Risk
		factors.TomorrowProduction = fa.Production.TotalKWH
	}

	score := scoreFactors(factors)
	name := strategyForScore(score)
	policy, err := ResolvePriorities(name)
	if err != nil {
		return types.Strategy{}, err
	}
	return types.Strategy{
		Name:       name,
		Score:      score,
		Factors:    factors,
		Priorities: policy,
	}, nil
}

// scoreFactors sums every adjustment onto the base score and clamps to
// [0, 100].
func scoreFactors(f types.StrategyFactors) float64 {
	score := float64(baseScore)

	switch f.Production {
	case types.ProductionHigh:
		score += 25
	case types.ProductionLow:
		score -= 25
	}

	switch f.Battery {
	case types.BatteryOptimal:
		score += 15
	case types.BatteryCritical:
		score -= 30
	}

	if f.Period == types.DayPeriodDay {
		score += 10
	} else {
		score -= 10
	}

	switch f.ForecastRisk {
	case types.RiskLow:
		score += 20
	case types.RiskHigh:
		score -= 20
	case types.RiskCritical:
		score -= 40
	}

	switch {
	case f.TomorrowProduction > 30:
		score += 15
	case f.TomorrowProduction < 10:
		score -= 30
	}

	return max(0, min(100, score))
}

func strategyForScore(score float64) types.StrategyName {
	switch {
	case score > 80:
		return types.StrategyMaximumOptimization
	case score > 60:
		return types.StrategyNormalOptimization
	case score > 40:
		return types.StrategyEconomy
	default:
		return types.StrategyPreservation
	}
}

var priorityTable = map[types.StrategyName]types.PriorityPolicy{
	types.StrategyMaximumOptimization: {
		Priority:     types.ActionSolar,
		SemiPriority: types.ActionSolar,
		NonPriority:  types.ActionSolar,
		BatteryMode:  types.BatteryChargeMaximal,
	},
	types.StrategyNormalOptimization: {
		Priority:     types.ActionSolar,
		SemiPriority: types.ActionSolar,
		NonPriority:  types.ActionBattery,
		BatteryMode:  types.BatteryChargeNormal,
	},
	types.StrategyEconomy: {
		Priority:     types.ActionBattery,
		SemiPriority: types.ActionGrid,
		NonPriority:  types.ActionCut,
		BatteryMode:  types.BatteryChargeNormal,
	},
	types.StrategyPreservation: {
		Priority:     types.ActionGrid,
		SemiPriority: types.ActionCut,
		NonPriority:  types.ActionCut,
		BatteryMode:  types.BatteryChargeMaximal,
	},
}

// ResolvePriorities returns the routing policy of a scored strategy. FALLBACK
// has no policy row since it never comes out of scoring.
func ResolvePriorities(name types.StrategyName) (types.PriorityPolicy, error) {
	p, ok := priorityTable[name]
	if !ok {
		return types.PriorityPolicy{}, fmt.Errorf("no priority policy for strategy %q", name)
	}
	return p, nil
}
