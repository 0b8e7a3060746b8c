package storage

import "time"

// Reimbursement status values
const (
	ReimbursementApplied = "applied" // Every expense was marked
	ReimbursementPartial = "partial" // At least one expense failed to update
)

// Reimbursement item status values
const (
	ItemMarked            = "marked"
	ItemAlreadyReimbursed = "already_reimbursed"
	ItemFailed            = "failed"
)

// Reimbursement records one applied match: the deposit it accounts for and
// what happened to each expense.
type Reimbursement struct {
	ID           string              `json:"id"`
	UserID       string              `json:"user_id"`
	Reference    string              `json:"reference,omitempty"`
	TargetAmount float64             `json:"target_amount"`
	Total        float64             `json:"total"`
	Status       string              `json:"status"`
	CreatedAt    time.Time           `json:"created_at"`
	Items        []ReimbursementItem `json:"items"`
}

// ReimbursementItem is the outcome for one expense in a reimbursement.
type ReimbursementItem struct {
	ExpenseID string `json:"expense_id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// Times are stored as fixed-width UTC text so that they sort lexically.
const (
	dateLayout      = "2006-01-02T15:04:05Z07:00"
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTime(layout, value string) (time.Time, error) {
	return time.Parse(layout, value)
}
