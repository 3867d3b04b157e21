package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/airepert/airepert/pkg/log"
	"github.com/airepert/airepert/pkg/types"
)

const maxHistoryRange = 7 * 24 * time.Hour

func (s *Server) handleHistoryDecisions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start, end, err := s.parseTimeRange(r)
	if err != nil {
		writeJSONError(w, "invalid time range: "+err.Error(), http.StatusBadRequest)
		return
	}

	records, err := s.storage.GetAuditHistory(ctx, start, end)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get audit history", slog.Any("error", err))
		writeJSONError(w, "failed to get audit history", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []types.AuditRecord{}
	}

	// past ranges never change
	if end.Before(s.now().Truncate(24 * time.Hour)) {
		w.Header().Set("Cache-Control", "private, max-age=86400")
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) parseTimeRange(r *http.Request) (time.Time, time.Time, error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" || endStr == "" {
		// Default to last 24 hours if not specified
		end := s.now()
		start := end.Add(-24 * time.Hour)
		return start, end, nil
	}

	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start time: %w", err)
	}

	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end time: %w", err)
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("start time must be before end time")
	}

	if end.Sub(start) > maxHistoryRange {
		return time.Time{}, time.Time{}, fmt.Errorf("time range cannot exceed 7 days")
	}

	return start, end, nil
}
