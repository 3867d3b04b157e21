package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/airepert/airepert/pkg/forecast"
	"github.com/airepert/airepert/pkg/log"
	"github.com/airepert/airepert/pkg/types"
)

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := s.forecasts.GetForecast(ctx, s.now())
	if err != nil && !errors.Is(err, forecast.ErrEmptySeries) {
		log.Ctx(ctx).WarnContext(ctx, "forecast unavailable", slog.Any("error", err))
		writeJSONError(w, "forecast unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=60")
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleForecastStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.forecasts.UsageStats(s.now()))
}

type refreshResponse struct {
	Refreshed      bool                  `json:"refreshed"`
	Message        string                `json:"message"`
	CallsRemaining int                   `json:"callsRemaining"`
	Forecast       *types.ForecastResult `json:"forecast,omitempty"`
}

func (s *Server) handleForecastRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := s.forecasts.Refresh(ctx, s.now())
	switch {
	case errors.Is(err, forecast.ErrQuotaExhausted):
		writeJSON(w, http.StatusOK, refreshResponse{
			Message: "Quota d'appels atteint, prévision non rafraîchie",
		})
	case err != nil && !errors.Is(err, forecast.ErrEmptySeries):
		log.Ctx(ctx).ErrorContext(ctx, "failed to refresh forecast", slog.Any("error", err))
		writeJSONError(w, "failed to refresh forecast", http.StatusBadGateway)
	default:
		log.Ctx(ctx).InfoContext(ctx, "forecast refreshed", slog.Int("callsRemaining", res.CallsRemaining))
		writeJSON(w, http.StatusOK, refreshResponse{
			Refreshed:      true,
			Message:        "Prévision mise à jour",
			CallsRemaining: res.CallsRemaining,
			Forecast:       &res,
		})
	}
}
