package handlers

import (
	"log/slog"
	"net/http"

	"github.com/eshaffer321/reimbursement-tracker/internal/api/dto"
	"github.com/eshaffer321/reimbursement-tracker/internal/api/middleware"
	"github.com/eshaffer321/reimbursement-tracker/internal/application/service"
)

// SummaryHandler handles expense summaries.
type SummaryHandler struct {
	*Base
}

// NewSummaryHandler creates a new summary handler.
func NewSummaryHandler(svc *service.ReimbursementService, logger *slog.Logger) *SummaryHandler {
	return &SummaryHandler{
		Base: NewBase(svc, logger),
	}
}

// Monthly handles GET /api/summary/monthly?months=6.
func (h *SummaryHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	months := ParseIntParam(r, "months", 6)
	if months < 0 {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("months must not be negative"))
		return
	}

	summaries, err := h.svc.MonthlySummary(r.Context(), middleware.UserID(r.Context()), months)
	if err != nil {
		h.WriteServiceError(w, r, err)
		return
	}

	response := dto.MonthlySummaryListResponse{
		Months: make([]dto.MonthlySummaryResponse, 0, len(summaries)),
		Count:  len(summaries),
	}
	for _, s := range summaries {
		response.Months = append(response.Months, dto.MonthlySummaryResponse{
			Month:           s.Month,
			Count:           s.Count,
			Total:           s.Total,
			PendingTotal:    s.PendingTotal,
			ReimbursedTotal: s.ReimbursedTotal,
			ByCategory:      s.ByCategory,
		})
	}

	h.WriteJSON(w, http.StatusOK, response)
}
