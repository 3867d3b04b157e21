package controller

import (
	"fmt"

	"github.com/airepert/airepert/pkg/types"
)

const fallbackAlert = "Mode secours activé - optimisation temporairement indisponible"

// AlertText builds the spoken alert for a strategy and its decisions.
func AlertText(s types.Strategy, decisions []types.Decision) string {
	switch s.Name {
	case types.StrategyMaximumOptimization:
		return fmt.Sprintf("Optimisation maximale activée. Score: %.0f. Toutes les charges sur solaire.", s.Score)
	case types.StrategyNormalOptimization:
		counts := countActions(decisions)
		return fmt.Sprintf(
			"Optimisation normale. Score: %.0f. %d charges sur solaire, %d sur batterie.",
			s.Score,
			counts[types.ActionSolar],
			counts[types.ActionBattery],
		)
	case types.StrategyEconomy:
		return fmt.Sprintf("Mode économie. Score: %.0f. Charges prioritaires sur batterie, autres coupées.", s.Score)
	case types.StrategyFallback:
		return fallbackAlert
	default:
		return fmt.Sprintf("Mode préservation critique. Score: %.0f. Charges prioritaires sur réseau, préservation batterie.", s.Score)
	}
}

func countActions(decisions []types.Decision) map[types.Action]int {
	counts := make(map[types.Action]int, 4)
	for _, d := range decisions {
		counts[d.Action]++
	}
	return counts
}
