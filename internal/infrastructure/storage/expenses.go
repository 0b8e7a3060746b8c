package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eshaffer321/reimbursement-tracker/internal/domain/expense"
)

const expenseColumns = `id, user_id, description, vendor, category, amount_cents,
	expense_date, reimbursed, reimbursed_at, reimbursement_ref, created_at`

// SaveExpense inserts or replaces an expense
func (s *Storage) SaveExpense(e *expense.Expense) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	var reimbursedAt sql.NullString
	if e.ReimbursedAt != nil {
		reimbursedAt = sql.NullString{String: formatTimestamp(*e.ReimbursedAt), Valid: true}
	}

	query := `
	INSERT OR REPLACE INTO expenses (` + expenseColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		e.ID,
		e.UserID,
		e.Description,
		e.Vendor,
		e.Category,
		e.Cents(),
		formatDate(e.Date),
		e.Reimbursed,
		reimbursedAt,
		e.ReimbursementRef,
		formatTimestamp(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save expense %s: %w", e.ID, err)
	}
	return nil
}

// GetExpense retrieves an expense by ID
func (s *Storage) GetExpense(id string) (*expense.Expense, error) {
	row := s.db.QueryRow(`SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)

	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListExpenses returns expenses matching the filters, newest first
func (s *Storage) ListExpenses(filters ExpenseFilters) (*ExpenseListResult, error) {
	limit := normalizeLimit(filters.Limit)

	where := []string{"user_id = ?"}
	args := []any{filters.UserID}

	switch filters.Status {
	case StatusPending:
		where = append(where, "reimbursed = 0")
	case StatusReimbursed:
		where = append(where, "reimbursed = 1")
	}
	if filters.Month != "" {
		where = append(where, "substr(expense_date, 1, 7) = ?")
		args = append(args, filters.Month)
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM expenses WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count expenses: %w", err)
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE ` + whereClause +
		` ORDER BY expense_date DESC, created_at DESC, id LIMIT ? OFFSET ?`
	rows, err := s.db.Query(query, append(args, limit, filters.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	expenses, err := scanExpenses(rows)
	if err != nil {
		return nil, err
	}

	return &ExpenseListResult{
		Expenses:   expenses,
		TotalCount: total,
		Limit:      limit,
		Offset:     filters.Offset,
	}, nil
}

// ListPendingExpenses returns every unreimbursed expense for a user, oldest first
func (s *Storage) ListPendingExpenses(userID string) ([]expense.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses
	WHERE user_id = ? AND reimbursed = 0
	ORDER BY expense_date ASC, created_at ASC, id`

	rows, err := s.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending expenses: %w", err)
	}
	defer rows.Close()

	return scanExpenses(rows)
}

// MarkReimbursed flags an expense as reimbursed
func (s *Storage) MarkReimbursed(id, reference string, at time.Time) error {
	res, err := s.db.Exec(`
	UPDATE expenses
	SET reimbursed = 1, reimbursed_at = ?, reimbursement_ref = ?
	WHERE id = ? AND reimbursed = 0
	`, formatTimestamp(at), reference, id)
	if err != nil {
		return fmt.Errorf("failed to mark expense %s reimbursed: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	// Nothing updated: either already reimbursed or missing
	var exists int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM expenses WHERE id = ?`, id).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteExpense removes an expense
func (s *Storage) DeleteExpense(id string) error {
	res, err := s.db.Exec(`DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}
	return nil
}

// MonthlySummaries aggregates a user's expenses per month, newest first
func (s *Storage) MonthlySummaries(userID string, months int) ([]expense.MonthlySummary, error) {
	rows, err := s.db.Query(`SELECT `+expenseColumns+` FROM expenses WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load expenses for summary: %w", err)
	}
	defer rows.Close()

	expenses, err := scanExpenses(rows)
	if err != nil {
		return nil, err
	}

	summaries := expense.SummarizeByMonth(expenses)
	if months > 0 && len(summaries) > months {
		summaries = summaries[:months]
	}
	return summaries, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*expense.Expense, error) {
	var (
		e            expense.Expense
		cents        int64
		date         string
		reimbursedAt sql.NullString
		createdAt    string
	)

	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.Description,
		&e.Vendor,
		&e.Category,
		&cents,
		&date,
		&e.Reimbursed,
		&reimbursedAt,
		&e.ReimbursementRef,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	e.Amount = expense.FromCents(cents)
	if e.Date, err = parseTime(dateLayout, date); err != nil {
		return nil, fmt.Errorf("expense %s: bad date %q: %w", e.ID, date, err)
	}
	if e.CreatedAt, err = parseTime(timestampLayout, createdAt); err != nil {
		return nil, fmt.Errorf("expense %s: bad created_at %q: %w", e.ID, createdAt, err)
	}
	if reimbursedAt.Valid {
		at, err := parseTime(timestampLayout, reimbursedAt.String)
		if err != nil {
			return nil, fmt.Errorf("expense %s: bad reimbursed_at %q: %w", e.ID, reimbursedAt.String, err)
		}
		e.ReimbursedAt = &at
	}

	return &e, nil
}

func scanExpenses(rows *sql.Rows) ([]expense.Expense, error) {
	expenses := []expense.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}
