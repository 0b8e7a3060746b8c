package dto

import "time"

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ExpenseResponse represents an expense in API responses.
type ExpenseResponse struct {
	ID               string  `json:"id"`
	Description      string  `json:"description"`
	Vendor           string  `json:"vendor,omitempty"`
	Category         string  `json:"category,omitempty"`
	Amount           float64 `json:"amount"`
	Date             string  `json:"date"`
	Reimbursed       bool    `json:"reimbursed"`
	ReimbursedAt     string  `json:"reimbursed_at,omitempty"`
	ReimbursementRef string  `json:"reimbursement_ref,omitempty"`
	CreatedAt        string  `json:"created_at"`
}

// ExpenseListResponse is returned when listing expenses.
type ExpenseListResponse struct {
	Expenses   []ExpenseResponse `json:"expenses"`
	TotalCount int               `json:"total_count"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
}

// MatchResponse represents one candidate combination.
type MatchResponse struct {
	ExpenseIDs []string          `json:"expense_ids"`
	Expenses   []ExpenseResponse `json:"expenses"`
	Total      float64           `json:"total"`
	Difference float64           `json:"difference"`
	ExactMatch bool              `json:"exact_match"`
	Summary    string            `json:"summary"`
}

// MatchListResponse is returned by a match search.
type MatchListResponse struct {
	TargetAmount float64         `json:"target_amount"`
	Tolerance    float64         `json:"tolerance"`
	PendingCount int             `json:"pending_count"`
	Matches      []MatchResponse `json:"matches"`
	Count        int             `json:"count"`
	LimitReached bool            `json:"limit_reached"`
	Message      string          `json:"message,omitempty"`
}

// ApplyResponse is returned when a match is applied.
type ApplyResponse struct {
	Reimbursement     *ReimbursementResponse `json:"reimbursement"`
	Marked            []string               `json:"marked"`
	AlreadyReimbursed []string               `json:"already_reimbursed"`
}

// ReimbursementItemResponse is the outcome for one expense.
type ReimbursementItemResponse struct {
	ExpenseID string `json:"expense_id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// ReimbursementResponse represents an applied match.
type ReimbursementResponse struct {
	ID           string                      `json:"id"`
	Reference    string                      `json:"reference,omitempty"`
	TargetAmount float64                     `json:"target_amount"`
	Total        float64                     `json:"total"`
	Status       string                      `json:"status"`
	CreatedAt    string                      `json:"created_at"`
	Items        []ReimbursementItemResponse `json:"items"`
}

// ReimbursementListResponse is returned when listing reimbursements.
type ReimbursementListResponse struct {
	Reimbursements []ReimbursementResponse `json:"reimbursements"`
	Count          int                     `json:"count"`
}

// MonthlySummaryResponse is one month of expense totals.
type MonthlySummaryResponse struct {
	Month           string             `json:"month"`
	Count           int                `json:"count"`
	Total           float64            `json:"total"`
	PendingTotal    float64            `json:"pending_total"`
	ReimbursedTotal float64            `json:"reimbursed_total"`
	ByCategory      map[string]float64 `json:"by_category"`
}

// MonthlySummaryListResponse is returned by the monthly summary endpoint.
type MonthlySummaryListResponse struct {
	Months []MonthlySummaryResponse `json:"months"`
	Count  int                      `json:"count"`
}

// DepositResponse is a credit parsed from a bank statement.
type DepositResponse struct {
	ID     string  `json:"id"`
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
	Name   string  `json:"name"`
	Memo   string  `json:"memo,omitempty"`
}

// DepositListResponse is returned when parsing a statement.
type DepositListResponse struct {
	Deposits []DepositResponse `json:"deposits"`
	Count    int               `json:"count"`
}

// NewHealthResponse creates a health response with current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
