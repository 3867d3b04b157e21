package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/airepert/airepert/pkg/log"
	"github.com/airepert/airepert/pkg/types"
)

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var specialEvent bool
	if v := r.URL.Query().Get("specialEvent"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeJSONError(w, "invalid specialEvent", http.StatusBadRequest)
			return
		}
		specialEvent = b
	}

	loads, err := s.storage.ListLoads(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list loads", slog.Any("error", err))
		writeJSONError(w, "failed to list loads", http.StatusInternalServerError)
		return
	}

	cur, err := s.currentContext(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get latest telemetry", slog.Any("error", err))
		writeJSONError(w, "failed to get latest telemetry", http.StatusInternalServerError)
		return
	}
	cur.SpecialEvent = specialEvent

	res := s.controller.Run(ctx, loads, cur, s.now())
	writeJSON(w, http.StatusOK, res)
}

// currentContext builds the decision context from the latest readings. A
// missing reading counts as zero.
func (s *Server) currentContext(ctx context.Context) (types.Context, error) {
	var cur types.Context
	prod, err := s.storage.GetLatestProduction(ctx)
	if err != nil {
		return cur, err
	}
	if prod != nil {
		cur.ProductionW = prod.ProductionW
	}
	batt, err := s.storage.GetLatestBattery(ctx)
	if err != nil {
		return cur, err
	}
	if batt != nil {
		cur.BatterySOCPct = batt.SOCPct
	}
	return cur, nil
}
