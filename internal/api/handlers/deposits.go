package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/eshaffer321/reimbursement-tracker/internal/adapters/statements/ofx"
	"github.com/eshaffer321/reimbursement-tracker/internal/api/dto"
)

// maxStatementBytes caps uploaded statements.
const maxStatementBytes = 10 << 20

// DepositsHandler parses bank statements into deposits usable as match targets.
type DepositsHandler struct {
	*Base
}

// NewDepositsHandler creates a new deposits handler.
func NewDepositsHandler(logger *slog.Logger) *DepositsHandler {
	return &DepositsHandler{
		Base: NewBase(nil, logger),
	}
}

// Parse handles POST /api/deposits/parse with an OFX/QFX body.
func (h *DepositsHandler) Parse(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxStatementBytes)

	deposits, err := ofx.ParseDeposits(r.Context(), body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.WriteError(w, http.StatusRequestEntityTooLarge, dto.BadRequestError("statement is too large"))
			return
		}
		h.logger.Warn("failed to parse statement", "error", err)
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	response := dto.DepositListResponse{
		Deposits: make([]dto.DepositResponse, 0, len(deposits)),
		Count:    len(deposits),
	}
	for _, d := range deposits {
		response.Deposits = append(response.Deposits, dto.DepositResponse{
			ID:     d.ID,
			Date:   d.Date.Format("2006-01-02"),
			Amount: d.Amount,
			Name:   d.Name,
			Memo:   d.Memo,
		})
	}

	h.WriteJSON(w, http.StatusOK, response)
}
