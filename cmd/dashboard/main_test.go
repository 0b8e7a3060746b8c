package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/reimbursement-tracker/internal/application/service"
	"github.com/eshaffer321/reimbursement-tracker/internal/domain/expense"
	"github.com/eshaffer321/reimbursement-tracker/internal/domain/matcher"
	"github.com/eshaffer321/reimbursement-tracker/internal/infrastructure/logging"
	"github.com/eshaffer321/reimbursement-tracker/internal/infrastructure/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, repo *storage.MockRepository) *gin.Engine {
	t.Helper()
	svc := service.NewReimbursementService(repo, matcher.NewMatcher(matcher.DefaultConfig()), nil)
	return setupRouter(NewDashboardServer(svc, logging.Discard()), []string{"http://localhost:5173"})
}

func get(router *gin.Engine, path, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := get(newTestRouter(t, storage.NewMockRepository()), "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestMonthlySummary(t *testing.T) {
	repo := storage.NewMockRepository()
	for _, e := range []expense.Expense{
		{ID: "a", UserID: "local", Description: "Lunch", Category: "meals", Amount: 10, Date: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
		{ID: "b", UserID: "local", Description: "Hotel", Category: "travel", Amount: 200, Date: time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC), Reimbursed: true},
		{ID: "c", UserID: "other", Description: "Taxi", Amount: 30, Date: time.Date(2024, 2, 6, 0, 0, 0, 0, time.UTC)},
	} {
		e := e
		require.NoError(t, repo.SaveExpense(&e))
	}

	w := get(newTestRouter(t, repo), "/api/summary/monthly", "")
	require.Equal(t, http.StatusOK, w.Code)

	var months []MonthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &months))
	require.Len(t, months, 2)
	assert.Equal(t, "2024-02", months[0].Month, "newest first")
	assert.InDelta(t, 200, months[0].ReimbursedTotal, 1e-9)
	assert.Equal(t, "2024-01", months[1].Month)
	assert.InDelta(t, 10, months[1].PendingTotal, 1e-9)
}

func TestMonthlySummary_InvalidMonths(t *testing.T) {
	w := get(newTestRouter(t, storage.NewMockRepository()), "/api/summary/monthly?months=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMonthlySummary_StorageError(t *testing.T) {
	repo := storage.NewMockRepository()
	repo.SummaryErr = errors.New("disk gone")

	w := get(newTestRouter(t, repo), "/api/summary/monthly", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRecentReimbursements(t *testing.T) {
	repo := storage.NewMockRepository()
	require.NoError(t, repo.RecordReimbursement(&storage.Reimbursement{
		ID:           "r1",
		UserID:       "u1",
		Reference:    "DEP001",
		TargetAmount: 25,
		Total:        25,
		Status:       storage.ReimbursementPartial,
		CreatedAt:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Items: []storage.ReimbursementItem{
			{ExpenseID: "a", Status: storage.ItemMarked},
			{ExpenseID: "b", Status: storage.ItemFailed, Error: "locked"},
		},
	}))
	router := newTestRouter(t, repo)

	w := get(router, "/api/reimbursements/recent", "u1")
	require.Equal(t, http.StatusOK, w.Code)

	var recent []RecentReimbursement
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recent))
	require.Len(t, recent, 1)
	assert.Equal(t, "r1", recent[0].ID)
	assert.Equal(t, "partial", recent[0].Status)
	assert.Equal(t, 2, recent[0].ExpenseCount)
	assert.Equal(t, 1, recent[0].FailedCount)
	assert.Equal(t, "2024-03-01T00:00:00Z", recent[0].CreatedAt)

	w = get(router, "/api/reimbursements/recent", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String(), "other users see nothing")
}

func TestCORS(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	newTestRouter(t, storage.NewMockRepository()).ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}
