package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/airepert/airepert/pkg/storage/storagemock"
	"github.com/airepert/airepert/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHandleHistoryDecisions(t *testing.T) {
	t.Run("DefaultRange", func(t *testing.T) {
		db := new(storagemock.MockDatabase)
		db.On("GetAuditHistory", mock.Anything, testNow.Add(-24*time.Hour), testNow).Return([]types.AuditRecord{
			{ID: "a", Timestamp: testNow.Add(-time.Hour), Action: "Stratégie: ECONOMY", Target: "Score: 60.0", ActorID: types.AuditActorSystem},
		}, nil)
		srv := newTestServer(db, &stubForecaster{})

		w := httptest.NewRecorder()
		srv.setupHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/history/decisions", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var recs []types.AuditRecord
		require.NoError(t, json.NewDecoder(w.Body).Decode(&recs))
		require.Len(t, recs, 1)
		assert.Equal(t, "Stratégie: ECONOMY", recs[0].Action)
		assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
		db.AssertExpectations(t)
	})

	t.Run("PastRangeIsCached", func(t *testing.T) {
		start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)
		db := new(storagemock.MockDatabase)
		db.On("GetAuditHistory", mock.Anything, start, end).Return(nil, nil)
		srv := newTestServer(db, &stubForecaster{})

		w := httptest.NewRecorder()
		srv.setupHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet,
			"/api/history/decisions?start=2026-06-01T00:00:00Z&end=2026-06-02T00:00:00Z", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
		assert.Equal(t, "private, max-age=86400", w.Header().Get("Cache-Control"))
	})

	t.Run("InvalidRange", func(t *testing.T) {
		srv := newTestServer(new(storagemock.MockDatabase), &stubForecaster{})
		for _, q := range []string{
			"start=yesterday&end=2026-06-02T00:00:00Z",
			"start=2026-06-02T00:00:00Z&end=2026-06-01T00:00:00Z",
			"start=2026-05-01T00:00:00Z&end=2026-06-01T00:00:00Z",
		} {
			w := httptest.NewRecorder()
			srv.setupHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/history/decisions?"+q, nil))
			assert.Equal(t, http.StatusBadRequest, w.Code, q)
		}
	})
}
