package dto

// CreateExpenseRequest is the request body for POST /api/expenses.
type CreateExpenseRequest struct {
	Description string   `json:"description"`
	Vendor      string   `json:"vendor"`
	Category    string   `json:"category"`
	Amount      *float64 `json:"amount"`
	Date        string   `json:"date"` // YYYY-MM-DD or RFC3339
}

// MatchRequest is the request body for POST /api/reimbursements/match.
type MatchRequest struct {
	TargetAmount *float64 `json:"target_amount"`
	Tolerance    *float64 `json:"tolerance,omitempty"` // Defaults to the configured tolerance
	Limit        int      `json:"limit,omitempty"`     // 0 = all matches found
}

// ApplyRequest is the request body for POST /api/reimbursements/apply.
type ApplyRequest struct {
	ExpenseIDs   []string `json:"expense_ids"`
	Reference    string   `json:"reference,omitempty"`
	TargetAmount float64  `json:"target_amount,omitempty"`
}

// ExpenseListParams represents query parameters for listing expenses.
type ExpenseListParams struct {
	Status string `json:"status"`
	Month  string `json:"month"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// DefaultExpenseListParams returns default values for expense list params.
func DefaultExpenseListParams() ExpenseListParams {
	return ExpenseListParams{
		Limit:  50,
		Offset: 0,
	}
}
