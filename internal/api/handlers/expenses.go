package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/reimbursement-tracker/internal/api/dto"
	"github.com/eshaffer321/reimbursement-tracker/internal/api/middleware"
	"github.com/eshaffer321/reimbursement-tracker/internal/application/service"
	"github.com/eshaffer321/reimbursement-tracker/internal/infrastructure/storage"
)

// ExpensesHandler handles expense-related HTTP requests.
type ExpensesHandler struct {
	*Base
}

// NewExpensesHandler creates a new expenses handler.
func NewExpensesHandler(svc *service.ReimbursementService, logger *slog.Logger) *ExpensesHandler {
	return &ExpensesHandler{
		Base: NewBase(svc, logger),
	}
}

// List handles GET /api/expenses - returns a paginated list of expenses.
func (h *ExpensesHandler) List(w http.ResponseWriter, r *http.Request) {
	defaults := dto.DefaultExpenseListParams()
	params := dto.ExpenseListParams{
		Status: r.URL.Query().Get("status"),
		Month:  r.URL.Query().Get("month"),
		Limit:  ParseIntParam(r, "limit", defaults.Limit),
		Offset: ParseIntParam(r, "offset", defaults.Offset),
	}

	switch params.Status {
	case "", storage.StatusPending, storage.StatusReimbursed:
	default:
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("status must be pending or reimbursed"))
		return
	}
	if params.Limit < 0 || params.Offset < 0 {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("limit and offset must not be negative"))
		return
	}

	result, err := h.svc.ListExpenses(r.Context(), middleware.UserID(r.Context()), storage.ExpenseFilters{
		Status: params.Status,
		Month:  params.Month,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
	if err != nil {
		h.WriteServiceError(w, r, err)
		return
	}

	response := dto.ExpenseListResponse{
		Expenses:   make([]dto.ExpenseResponse, 0, len(result.Expenses)),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	}
	for _, e := range result.Expenses {
		response.Expenses = append(response.Expenses, toExpenseResponse(e))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Create handles POST /api/expenses.
func (h *ExpensesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateExpenseRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid JSON body: "+err.Error()))
		return
	}
	if req.Amount == nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("amount is required"))
		return
	}
	date, err := ParseDate(req.Date)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("date must be YYYY-MM-DD or RFC3339"))
		return
	}

	e, err := h.svc.CreateExpense(r.Context(), service.CreateExpenseRequest{
		UserID:      middleware.UserID(r.Context()),
		Description: req.Description,
		Vendor:      req.Vendor,
		Category:    req.Category,
		Amount:      *req.Amount,
		Date:        date,
	})
	if err != nil {
		h.WriteServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, toExpenseResponse(*e))
}

// Get handles GET /api/expenses/{id}.
func (h *ExpensesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("expense ID is required"))
		return
	}

	e, err := h.svc.GetExpense(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		h.WriteServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, toExpenseResponse(*e))
}

// Delete handles DELETE /api/expenses/{id}.
func (h *ExpensesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("expense ID is required"))
		return
	}

	if err := h.svc.DeleteExpense(r.Context(), middleware.UserID(r.Context()), id); err != nil {
		h.WriteServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
