package server

import (
	"log/slog"
	"net/http"

	"github.com/airepert/airepert/pkg/controller"
	"github.com/airepert/airepert/pkg/log"
)

type autonomyRequest struct {
	LoadIDs     []int64 `json:"loadIDs"`
	PeriodHours float64 `json:"periodHours"`
}

func (s *Server) handleBatteryAutonomy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req autonomyRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.PeriodHours < 0 {
		writeJSONError(w, "periodHours must not be negative", http.StatusBadRequest)
		return
	}
	if req.PeriodHours == 0 {
		req.PeriodHours = controller.DefaultAutonomyPeriod
	}

	loads, err := s.storage.GetLoads(ctx, req.LoadIDs)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get loads", slog.Any("error", err))
		writeJSONError(w, "failed to get loads", http.StatusInternalServerError)
		return
	}
	batt, err := s.storage.GetLatestBattery(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get latest battery", slog.Any("error", err))
		writeJSONError(w, "failed to get latest battery", http.StatusInternalServerError)
		return
	}
	var soc float64
	if batt != nil {
		soc = batt.SOCPct
	}

	writeJSON(w, http.StatusOK, controller.BatteryAutonomy(loads, soc, s.batteryCapacityWH, req.PeriodHours))
}
