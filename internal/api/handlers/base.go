package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/eshaffer321/reimbursement-tracker/internal/api/dto"
	"github.com/eshaffer321/reimbursement-tracker/internal/application/service"
	"github.com/eshaffer321/reimbursement-tracker/internal/domain/expense"
	"github.com/eshaffer321/reimbursement-tracker/internal/infrastructure/logging"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Base provides shared functionality for all handlers.
type Base struct {
	svc    *service.ReimbursementService
	logger *slog.Logger
}

// NewBase creates a new base handler around the reimbursement service.
func NewBase(svc *service.ReimbursementService, logger *slog.Logger) *Base {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Base{svc: svc, logger: logger}
}

// WriteJSON writes a JSON response with the given status code.
func (b *Base) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes an error response with the given status code.
func (b *Base) WriteError(w http.ResponseWriter, status int, err dto.APIError) {
	b.WriteJSON(w, status, err)
}

// WriteServiceError maps service errors onto HTTP responses.
func (b *Base) WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidTarget),
		errors.Is(err, service.ErrInvalidTolerance),
		errors.Is(err, service.ErrInvalidExpense),
		errors.Is(err, service.ErrNoExpenseIDs):
		b.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
	case errors.Is(err, service.ErrExpenseNotFound):
		b.WriteError(w, http.StatusNotFound, dto.NotFoundError("expense"))
	default:
		b.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		b.WriteError(w, http.StatusInternalServerError, dto.InternalError())
	}
}

// DecodeJSON decodes a size-limited JSON body into v, rejecting unknown fields.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// ParseIntParam parses an integer query parameter with a default value.
func ParseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// ParseDate accepts YYYY-MM-DD or RFC3339.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// toExpenseResponse converts a domain expense to an API response.
func toExpenseResponse(e expense.Expense) dto.ExpenseResponse {
	resp := dto.ExpenseResponse{
		ID:               e.ID,
		Description:      e.Description,
		Vendor:           e.Vendor,
		Category:         e.Category,
		Amount:           e.Amount,
		Date:             e.Date.Format("2006-01-02"),
		Reimbursed:       e.Reimbursed,
		ReimbursementRef: e.ReimbursementRef,
		CreatedAt:        e.CreatedAt.Format(time.RFC3339),
	}
	if e.ReimbursedAt != nil {
		resp.ReimbursedAt = e.ReimbursedAt.Format(time.RFC3339)
	}
	return resp
}
