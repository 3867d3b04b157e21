package server

import (
	"log/slog"
	"net/http"

	"github.com/airepert/airepert/pkg/log"
	"github.com/airepert/airepert/pkg/types"
)

type measurementRequest struct {
	ProductionW     float64 `json:"productionW"`
	BatterySOCPct   float64 `json:"batterySOCPct"`
	BatteryVoltageV float64 `json:"batteryVoltageV"`
	BatteryCurrentA float64 `json:"batteryCurrentA"`
	Consumptions    []struct {
		LoadID int64   `json:"loadID"`
		Watts  float64 `json:"watts"`
	} `json:"consumptions"`
}

func (s *Server) handleInsertMeasurement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req measurementRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.BatterySOCPct < 0 || req.BatterySOCPct > 100 {
		writeJSONError(w, "batterySOCPct must be between 0 and 100", http.StatusBadRequest)
		return
	}
	if req.ProductionW < 0 {
		writeJSONError(w, "productionW must not be negative", http.StatusBadRequest)
		return
	}

	now := s.now()
	m := types.Measurement{
		Timestamp:  now,
		Production: types.ProductionReading{Timestamp: now, ProductionW: req.ProductionW},
		Battery: types.BatteryReading{
			Timestamp: now,
			SOCPct:    req.BatterySOCPct,
			VoltageV:  req.BatteryVoltageV,
			CurrentA:  req.BatteryCurrentA,
		},
	}
	for _, c := range req.Consumptions {
		m.Consumptions = append(m.Consumptions, types.ConsumptionReading{
			Timestamp: now,
			LoadID:    c.LoadID,
			Watts:     c.Watts,
		})
	}

	if err := s.storage.InsertMeasurement(ctx, m); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to insert measurement", slog.Any("error", err))
		writeJSONError(w, "failed to insert measurement", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

type latestMeasurementsResponse struct {
	Production *types.ProductionReading `json:"production"`
	Battery    *types.BatteryReading    `json:"battery"`
}

func (s *Server) handleLatestMeasurements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	prod, err := s.storage.GetLatestProduction(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get latest production", slog.Any("error", err))
		writeJSONError(w, "failed to get latest production", http.StatusInternalServerError)
		return
	}
	batt, err := s.storage.GetLatestBattery(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get latest battery", slog.Any("error", err))
		writeJSONError(w, "failed to get latest battery", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, latestMeasurementsResponse{Production: prod, Battery: batt})
}
