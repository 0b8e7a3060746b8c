package storage

import (
	"errors"
	"time"

	"github.com/eshaffer321/reimbursement-tracker/internal/domain/expense"
)

// ErrNotFound is returned by mutations that target a row that does not exist.
// Lookups return (nil, nil) instead.
var ErrNotFound = errors.New("not found")

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, PostgreSQL, etc.)
// and makes testing with mocks straightforward.
type Repository interface {
	ExpenseRepository
	ReimbursementRepository
	Close() error
}

// ExpenseRepository handles expense records
type ExpenseRepository interface {
	// SaveExpense inserts or replaces an expense
	SaveExpense(e *expense.Expense) error

	// GetExpense retrieves an expense by ID, or nil if it does not exist
	GetExpense(id string) (*expense.Expense, error)

	// ListExpenses returns expenses matching the given filters with pagination
	ListExpenses(filters ExpenseFilters) (*ExpenseListResult, error)

	// ListPendingExpenses returns every unreimbursed expense for a user, oldest first
	ListPendingExpenses(userID string) ([]expense.Expense, error)

	// MarkReimbursed flags an expense as reimbursed. Marking an already
	// reimbursed expense is a no-op that keeps the original timestamp.
	MarkReimbursed(id, reference string, at time.Time) error

	// DeleteExpense removes an expense
	DeleteExpense(id string) error

	// MonthlySummaries aggregates a user's expenses per month, newest first.
	// months limits the number of months returned (0 = all).
	MonthlySummaries(userID string, months int) ([]expense.MonthlySummary, error)
}

// ExpenseFilters defines filters for listing expenses
type ExpenseFilters struct {
	UserID string // Required
	Status string // "pending", "reimbursed" or empty for all
	Month  string // YYYY-MM (empty = all)
	Limit  int    // Max results (0 = default 50)
	Offset int    // Pagination offset
}

// Expense status filter values
const (
	StatusPending    = "pending"
	StatusReimbursed = "reimbursed"
)

// ExpenseListResult contains paginated expense results
type ExpenseListResult struct {
	Expenses   []expense.Expense `json:"expenses"`
	TotalCount int               `json:"total_count"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
}

// ReimbursementRepository handles the history of applied matches
type ReimbursementRepository interface {
	// RecordReimbursement stores an applied match and its per-expense outcome
	RecordReimbursement(r *Reimbursement) error

	// GetReimbursement retrieves a reimbursement by ID, or nil if it does not exist
	GetReimbursement(id string) (*Reimbursement, error)

	// ListReimbursements returns a user's most recent reimbursements
	ListReimbursements(userID string, limit int) ([]Reimbursement, error)
}

// normalizeLimit applies the default page size.
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}
