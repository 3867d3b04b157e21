package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/airepert/airepert/pkg/log"
	"github.com/airepert/airepert/pkg/storage"
	"github.com/airepert/airepert/pkg/types"
)

func (s *Server) handleListLoads(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	loads, err := s.storage.ListLoads(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list loads", slog.Any("error", err))
		writeJSONError(w, "failed to list loads", http.StatusInternalServerError)
		return
	}
	if loads == nil {
		loads = []types.Load{}
	}
	writeJSON(w, http.StatusOK, loads)
}

type createLoadRequest struct {
	Name        string  `json:"name"`
	Class       string  `json:"class"`
	RatedPowerW float64 `json:"ratedPowerW"`
}

func (s *Server) handleCreateLoad(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createLoadRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeJSONError(w, "name is required", http.StatusBadRequest)
		return
	}
	class, err := types.ParseLoadClass(req.Class)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.RatedPowerW < 0 {
		writeJSONError(w, "ratedPowerW must not be negative", http.StatusBadRequest)
		return
	}

	load, err := s.storage.CreateLoad(ctx, types.Load{
		Name:        name,
		Class:       class,
		RatedPowerW: req.RatedPowerW,
	})
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to create load", slog.Any("error", err))
		writeJSONError(w, "failed to create load", http.StatusInternalServerError)
		return
	}
	log.Ctx(ctx).InfoContext(ctx, "created load", slog.Int64("loadID", load.ID), slog.String("name", load.Name))
	writeJSON(w, http.StatusCreated, load)
}

func (s *Server) handleSetLoadState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSONError(w, "invalid load id", http.StatusBadRequest)
		return
	}
	var req struct {
		On *bool `json:"on"`
	}
	if err := decodeJSONBody(w, r, &req); err != nil || req.On == nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.storage.SetLoadState(ctx, id, *req.On); err != nil {
		if errors.Is(err, storage.ErrLoadNotFound) {
			writeJSONError(w, "load not found", http.StatusNotFound)
			return
		}
		log.Ctx(ctx).ErrorContext(ctx, "failed to set load state", slog.Int64("loadID", id), slog.Any("error", err))
		writeJSONError(w, "failed to set load state", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
