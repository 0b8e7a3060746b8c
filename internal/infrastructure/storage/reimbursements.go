package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eshaffer321/reimbursement-tracker/internal/domain/expense"
)

// RecordReimbursement stores a reimbursement and its items in one transaction
func (s *Storage) RecordReimbursement(r *Reimbursement) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
	INSERT INTO reimbursements (id, user_id, reference, target_cents, total_cents, status, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID,
		r.UserID,
		r.Reference,
		expense.ToCents(r.TargetAmount),
		expense.ToCents(r.Total),
		r.Status,
		formatTimestamp(r.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert reimbursement %s: %w", r.ID, err)
	}

	for i, item := range r.Items {
		_, err = tx.Exec(`
		INSERT INTO reimbursement_items (reimbursement_id, position, expense_id, status, error_message)
		VALUES (?, ?, ?, ?, ?)
		`, r.ID, i, item.ExpenseID, item.Status, item.Error)
		if err != nil {
			return fmt.Errorf("failed to insert reimbursement item %s: %w", item.ExpenseID, err)
		}
	}

	return tx.Commit()
}

// GetReimbursement retrieves a reimbursement with its items
func (s *Storage) GetReimbursement(id string) (*Reimbursement, error) {
	row := s.db.QueryRow(`
	SELECT id, user_id, reference, target_cents, total_cents, status, created_at
	FROM reimbursements WHERE id = ?
	`, id)

	r, err := scanReimbursement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if r.Items, err = s.loadItems(r.ID); err != nil {
		return nil, err
	}
	return r, nil
}

// ListReimbursements returns a user's most recent reimbursements, newest first
func (s *Storage) ListReimbursements(userID string, limit int) ([]Reimbursement, error) {
	rows, err := s.db.Query(`
	SELECT id, user_id, reference, target_cents, total_cents, status, created_at
	FROM reimbursements WHERE user_id = ?
	ORDER BY created_at DESC, id
	LIMIT ?
	`, userID, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list reimbursements: %w", err)
	}

	var list []Reimbursement
	for rows.Next() {
		r, err := scanReimbursement(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		list = append(list, *r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Items are loaded after the cursor is closed; the pool has one connection.
	for i := range list {
		if list[i].Items, err = s.loadItems(list[i].ID); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (s *Storage) loadItems(reimbursementID string) ([]ReimbursementItem, error) {
	rows, err := s.db.Query(`
	SELECT expense_id, status, error_message
	FROM reimbursement_items WHERE reimbursement_id = ?
	ORDER BY position
	`, reimbursementID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reimbursement items: %w", err)
	}
	defer rows.Close()

	items := []ReimbursementItem{}
	for rows.Next() {
		var item ReimbursementItem
		if err := rows.Scan(&item.ExpenseID, &item.Status, &item.Error); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanReimbursement(row rowScanner) (*Reimbursement, error) {
	var (
		r           Reimbursement
		targetCents int64
		totalCents  int64
		createdAt   string
	)
	if err := row.Scan(&r.ID, &r.UserID, &r.Reference, &targetCents, &totalCents, &r.Status, &createdAt); err != nil {
		return nil, err
	}

	r.TargetAmount = expense.FromCents(targetCents)
	r.Total = expense.FromCents(totalCents)

	var err error
	if r.CreatedAt, err = parseTime(timestampLayout, createdAt); err != nil {
		return nil, fmt.Errorf("reimbursement %s: bad created_at %q: %w", r.ID, createdAt, err)
	}
	return &r, nil
}
