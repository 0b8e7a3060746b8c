package storage

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/eshaffer321/reimbursement-tracker/internal/domain/expense"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps, making tests fast and isolated.
type MockRepository struct {
	mu             sync.Mutex
	expenses       map[string]*expense.Expense
	reimbursements map[string]*Reimbursement

	// Hooks for test assertions
	SaveExpenseCalled         bool
	MarkReimbursedCalls       []string
	LastRecordedReimbursement *Reimbursement

	// Error injection for testing error paths
	SaveExpenseErr         error
	GetExpenseErr          error
	ListExpensesErr        error
	ListPendingErr         error
	DeleteExpenseErr       error
	SummaryErr             error
	RecordReimbursementErr error
	GetReimbursementErr    error
	ListReimbursementsErr  error
	MarkReimbursedErrs     map[string]error // Keyed by expense ID
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		expenses:           make(map[string]*expense.Expense),
		reimbursements:     make(map[string]*Reimbursement),
		MarkReimbursedErrs: make(map[string]error),
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

// SaveExpense stores a copy of the expense
func (m *MockRepository) SaveExpense(e *expense.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveExpenseCalled = true
	if m.SaveExpenseErr != nil {
		return m.SaveExpenseErr
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	copied := *e
	m.expenses[e.ID] = &copied
	return nil
}

// GetExpense returns a copy of the stored expense
func (m *MockRepository) GetExpense(id string) (*expense.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetExpenseErr != nil {
		return nil, m.GetExpenseErr
	}
	e, ok := m.expenses[id]
	if !ok {
		return nil, nil
	}
	copied := *e
	return &copied, nil
}

// ListExpenses filters and paginates the stored expenses, newest first
func (m *MockRepository) ListExpenses(filters ExpenseFilters) (*ExpenseListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListExpensesErr != nil {
		return nil, m.ListExpensesErr
	}

	var matched []expense.Expense
	for _, e := range m.userExpenses(filters.UserID) {
		if filters.Status == StatusPending && e.Reimbursed {
			continue
		}
		if filters.Status == StatusReimbursed && !e.Reimbursed {
			continue
		}
		if filters.Month != "" && expense.MonthKey(e.Date.UTC()) != filters.Month {
			continue
		}
		matched = append(matched, e)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Date.After(matched[j].Date)
	})

	limit := normalizeLimit(filters.Limit)
	result := &ExpenseListResult{
		Expenses:   []expense.Expense{},
		TotalCount: len(matched),
		Limit:      limit,
		Offset:     filters.Offset,
	}
	if filters.Offset < len(matched) {
		end := filters.Offset + limit
		if end > len(matched) {
			end = len(matched)
		}
		result.Expenses = append(result.Expenses, matched[filters.Offset:end]...)
	}
	return result, nil
}

// ListPendingExpenses returns unreimbursed expenses, oldest first
func (m *MockRepository) ListPendingExpenses(userID string) ([]expense.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListPendingErr != nil {
		return nil, m.ListPendingErr
	}

	pending := expense.Pending(m.userExpenses(userID))
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].Date.Before(pending[j].Date)
	})
	return pending, nil
}

// MarkReimbursed flags a stored expense, honoring per-id injected errors
func (m *MockRepository) MarkReimbursed(id, reference string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.MarkReimbursedCalls = append(m.MarkReimbursedCalls, id)
	if err := m.MarkReimbursedErrs[id]; err != nil {
		return err
	}

	e, ok := m.expenses[id]
	if !ok {
		return fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}
	if e.Reimbursed {
		return nil
	}
	e.Reimbursed = true
	e.ReimbursedAt = &at
	e.ReimbursementRef = reference
	return nil
}

// DeleteExpense removes a stored expense
func (m *MockRepository) DeleteExpense(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.DeleteExpenseErr != nil {
		return m.DeleteExpenseErr
	}
	if _, ok := m.expenses[id]; !ok {
		return fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}
	delete(m.expenses, id)
	return nil
}

// MonthlySummaries aggregates the stored expenses per month
func (m *MockRepository) MonthlySummaries(userID string, months int) ([]expense.MonthlySummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SummaryErr != nil {
		return nil, m.SummaryErr
	}
	summaries := expense.SummarizeByMonth(m.userExpenses(userID))
	if months > 0 && len(summaries) > months {
		summaries = summaries[:months]
	}
	return summaries, nil
}

// RecordReimbursement stores a copy of the reimbursement
func (m *MockRepository) RecordReimbursement(r *Reimbursement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastRecordedReimbursement = r
	if m.RecordReimbursementErr != nil {
		return m.RecordReimbursementErr
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	copied := *r
	copied.Items = append([]ReimbursementItem(nil), r.Items...)
	m.reimbursements[r.ID] = &copied
	return nil
}

// GetReimbursement returns a stored reimbursement
func (m *MockRepository) GetReimbursement(id string) (*Reimbursement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetReimbursementErr != nil {
		return nil, m.GetReimbursementErr
	}
	r, ok := m.reimbursements[id]
	if !ok {
		return nil, nil
	}
	copied := *r
	return &copied, nil
}

// ListReimbursements returns a user's reimbursements, newest first
func (m *MockRepository) ListReimbursements(userID string, limit int) ([]Reimbursement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListReimbursementsErr != nil {
		return nil, m.ListReimbursementsErr
	}

	var list []Reimbursement
	for _, r := range m.reimbursements {
		if r.UserID == userID {
			list = append(list, *r)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})

	limit = normalizeLimit(limit)
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// userExpenses returns copies of a user's expenses. Caller holds mu.
func (m *MockRepository) userExpenses(userID string) []expense.Expense {
	var out []expense.Expense
	for _, e := range m.expenses {
		if e.UserID == userID {
			out = append(out, *e)
		}
	}
	// Map iteration is random; keep results deterministic
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
