package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/reimbursement-tracker/internal/api/dto"
	"github.com/eshaffer321/reimbursement-tracker/internal/api/middleware"
	"github.com/eshaffer321/reimbursement-tracker/internal/application/service"
	"github.com/eshaffer321/reimbursement-tracker/internal/domain/matcher"
	"github.com/eshaffer321/reimbursement-tracker/internal/infrastructure/storage"
)

// noMatchMessage accompanies an empty match list.
const noMatchMessage = "no combination of pending expenses matches the target amount"

// ReimbursementsHandler handles match search and application.
type ReimbursementsHandler struct {
	*Base
}

// NewReimbursementsHandler creates a new reimbursements handler.
func NewReimbursementsHandler(svc *service.ReimbursementService, logger *slog.Logger) *ReimbursementsHandler {
	return &ReimbursementsHandler{
		Base: NewBase(svc, logger),
	}
}

// Match handles POST /api/reimbursements/match - returns ranked candidate
// combinations. An empty result is a 200 with a message, not an error.
func (h *ReimbursementsHandler) Match(w http.ResponseWriter, r *http.Request) {
	var req dto.MatchRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid JSON body: "+err.Error()))
		return
	}
	if req.TargetAmount == nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("target_amount is required"))
		return
	}

	resp, err := h.svc.FindMatches(r.Context(), service.MatchRequest{
		UserID:       middleware.UserID(r.Context()),
		TargetAmount: *req.TargetAmount,
		Tolerance:    req.Tolerance,
		Limit:        req.Limit,
	})
	if err != nil {
		h.WriteServiceError(w, r, err)
		return
	}

	response := dto.MatchListResponse{
		TargetAmount: resp.TargetAmount,
		Tolerance:    resp.Tolerance,
		PendingCount: resp.PendingCount,
		Matches:      make([]dto.MatchResponse, 0, len(resp.Matches)),
		Count:        len(resp.Matches),
		LimitReached: resp.LimitReached,
	}
	for _, m := range resp.Matches {
		response.Matches = append(response.Matches, toMatchResponse(m))
	}
	if len(resp.Matches) == 0 {
		response.Message = noMatchMessage
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Apply handles POST /api/reimbursements/apply - marks a chosen match reimbursed.
// Write failures return 502 with the per-expense failures.
func (h *ReimbursementsHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req dto.ApplyRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid JSON body: "+err.Error()))
		return
	}

	result, err := h.svc.ApplyMatch(r.Context(), service.ApplyRequest{
		UserID:       middleware.UserID(r.Context()),
		ExpenseIDs:   req.ExpenseIDs,
		Reference:    req.Reference,
		TargetAmount: req.TargetAmount,
	})
	if errors.Is(err, service.ErrPersistFailed) {
		body := dto.PersistFailedError{
			APIError: dto.NewAPIError(dto.ErrCodePersistFailed, err.Error()),
			Marked:   nonNil(result.Marked),
			Failures: make([]dto.FailureResponse, 0, len(result.Failures)),
		}
		for _, f := range result.Failures {
			body.Failures = append(body.Failures, dto.FailureResponse{ExpenseID: f.ExpenseID, Error: f.Err.Error()})
		}
		h.WriteJSON(w, http.StatusBadGateway, body)
		return
	}
	if err != nil {
		h.WriteServiceError(w, r, err)
		return
	}

	response := dto.ApplyResponse{
		Marked:            nonNil(result.Marked),
		AlreadyReimbursed: nonNil(result.AlreadyReimbursed),
	}
	if result.Reimbursement != nil {
		rr := toReimbursementResponse(*result.Reimbursement)
		response.Reimbursement = &rr
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// List handles GET /api/reimbursements - returns recent applied matches.
func (h *ReimbursementsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r, "limit", 20)

	list, err := h.svc.ListReimbursements(r.Context(), middleware.UserID(r.Context()), limit)
	if err != nil {
		h.WriteServiceError(w, r, err)
		return
	}

	response := dto.ReimbursementListResponse{
		Reimbursements: make([]dto.ReimbursementResponse, 0, len(list)),
		Count:          len(list),
	}
	for _, rb := range list {
		response.Reimbursements = append(response.Reimbursements, toReimbursementResponse(rb))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/reimbursements/{id}.
func (h *ReimbursementsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("reimbursement ID is required"))
		return
	}

	rb, err := h.svc.GetReimbursement(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		h.WriteServiceError(w, r, err)
		return
	}
	if rb == nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("reimbursement"))
		return
	}

	h.WriteJSON(w, http.StatusOK, toReimbursementResponse(*rb))
}

func toMatchResponse(m matcher.Match) dto.MatchResponse {
	resp := dto.MatchResponse{
		ExpenseIDs: m.IDs(),
		Expenses:   make([]dto.ExpenseResponse, 0, len(m.Expenses)),
		Total:      m.Total,
		Difference: m.Difference,
		ExactMatch: m.ExactMatch,
		Summary:    matcher.FormatMatchSummary(m),
	}
	for _, e := range m.Expenses {
		resp.Expenses = append(resp.Expenses, toExpenseResponse(e))
	}
	return resp
}

func toReimbursementResponse(r storage.Reimbursement) dto.ReimbursementResponse {
	resp := dto.ReimbursementResponse{
		ID:           r.ID,
		Reference:    r.Reference,
		TargetAmount: r.TargetAmount,
		Total:        r.Total,
		Status:       r.Status,
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
		Items:        make([]dto.ReimbursementItemResponse, 0, len(r.Items)),
	}
	for _, item := range r.Items {
		resp.Items = append(resp.Items, dto.ReimbursementItemResponse{
			ExpenseID: item.ExpenseID,
			Status:    item.Status,
			Error:     item.Error,
		})
	}
	return resp
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
