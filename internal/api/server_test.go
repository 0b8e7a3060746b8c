package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/reimbursement-tracker/internal/api"
	"github.com/eshaffer321/reimbursement-tracker/internal/api/dto"
	"github.com/eshaffer321/reimbursement-tracker/internal/api/middleware"
	"github.com/eshaffer321/reimbursement-tracker/internal/application/service"
	"github.com/eshaffer321/reimbursement-tracker/internal/domain/expense"
	"github.com/eshaffer321/reimbursement-tracker/internal/domain/matcher"
	"github.com/eshaffer321/reimbursement-tracker/internal/infrastructure/logging"
	"github.com/eshaffer321/reimbursement-tracker/internal/infrastructure/storage"
)

func newTestServer(t *testing.T) (*api.Server, *storage.MockRepository) {
	t.Helper()
	repo := storage.NewMockRepository()
	logger := logging.Discard()
	svc := service.NewReimbursementService(repo, matcher.NewMatcher(matcher.DefaultConfig()), logger)
	server := api.NewServer(api.DefaultConfig(), svc, logger)
	return server, repo
}

func seed(t *testing.T, repo *storage.MockRepository, userID, id string, amount float64) {
	t.Helper()
	require.NoError(t, repo.SaveExpense(&expense.Expense{
		ID:          id,
		UserID:      userID,
		Description: "expense " + id,
		Amount:      amount,
		Date:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
}

func TestServer_HealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response dto.HealthResponse
	err := json.NewDecoder(rec.Body).Decode(&response)
	require.NoError(t, err)
	assert.Equal(t, "ok", response.Status)
}

func TestServer_MatchAndApplyFlow(t *testing.T) {
	server, repo := newTestServer(t)
	seed(t, repo, "alice", "a", 12.50)
	seed(t, repo, "alice", "b", 7.25)
	seed(t, repo, "bob", "c", 19.75)

	// Search as alice
	body, _ := json.Marshal(map[string]any{"target_amount": 19.75})
	req := httptest.NewRequest(http.MethodPost, "/api/reimbursements/match", bytes.NewReader(body))
	req.Header.Set(middleware.UserIDHeader, "alice")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var matches dto.MatchListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&matches))
	require.Equal(t, 1, matches.Count, "bob's expenses are not visible to alice")
	assert.ElementsMatch(t, []string{"a", "b"}, matches.Matches[0].ExpenseIDs)

	// Apply the top match
	body, _ = json.Marshal(dto.ApplyRequest{ExpenseIDs: matches.Matches[0].ExpenseIDs, Reference: "DEP-9"})
	req = httptest.NewRequest(http.MethodPost, "/api/reimbursements/apply", bytes.NewReader(body))
	req.Header.Set(middleware.UserIDHeader, "alice")
	rec = httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// The same search now finds nothing
	body, _ = json.Marshal(map[string]any{"target_amount": 19.75})
	req = httptest.NewRequest(http.MethodPost, "/api/reimbursements/match", bytes.NewReader(body))
	req.Header.Set(middleware.UserIDHeader, "alice")
	rec = httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&matches))
	assert.Zero(t, matches.Count)

	// History is visible
	req = httptest.NewRequest(http.MethodGet, "/api/reimbursements", nil)
	req.Header.Set(middleware.UserIDHeader, "alice")
	rec = httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var history dto.ReimbursementListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&history))
	require.Equal(t, 1, history.Count)
	assert.Equal(t, "DEP-9", history.Reimbursements[0].Reference)
}

func TestServer_ExpenseRoutes(t *testing.T) {
	server, repo := newTestServer(t)
	seed(t, repo, middleware.DefaultUserID, "x1", 3)

	req := httptest.NewRequest(http.MethodGet, "/api/expenses/x1", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/expenses/x1", nil)
	req.Header.Set(middleware.UserIDHeader, "someone")
	rec = httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/summary/monthly", nil)
	rec = httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_CORSPreflight(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/reimbursements/match", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), middleware.UserIDHeader)
}
