// Package service contains the application use cases that sit between the
// HTTP/CLI surfaces and the domain: finding reimbursement matches for a
// deposit, applying a chosen match, and expense bookkeeping.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eshaffer321/reimbursement-tracker/internal/domain/expense"
	"github.com/eshaffer321/reimbursement-tracker/internal/domain/matcher"
	"github.com/eshaffer321/reimbursement-tracker/internal/infrastructure/logging"
	"github.com/eshaffer321/reimbursement-tracker/internal/infrastructure/storage"
)

// Errors returned by ReimbursementService. Callers test them with errors.Is.
var (
	ErrInvalidTarget    = errors.New("target amount must be a positive number")
	ErrInvalidTolerance = errors.New("tolerance must be a non-negative number")
	ErrInvalidExpense   = errors.New("invalid expense")
	ErrExpenseNotFound  = errors.New("expense not found")
	ErrNoExpenseIDs     = errors.New("no expense ids given")
	ErrPersistFailed    = errors.New("failed to persist reimbursement")
)

// MatchRequest holds parameters for a match search.
type MatchRequest struct {
	UserID       string
	TargetAmount float64
	Tolerance    *float64 // nil uses the configured tolerance
	Limit        int      // Max matches returned (0 = all found)
}

// MatchResponse is the outcome of a match search.
type MatchResponse struct {
	TargetAmount float64
	Tolerance    float64
	PendingCount int
	Matches      []matcher.Match
	LimitReached bool
}

// ApplyRequest marks a chosen set of expenses reimbursed.
type ApplyRequest struct {
	UserID       string
	ExpenseIDs   []string
	Reference    string  // Deposit reference, e.g. an OFX FITID
	TargetAmount float64 // Deposit amount; 0 records the match total
}

// ApplyFailure describes one expense that could not be marked.
type ApplyFailure struct {
	ExpenseID string
	Err       error
}

// ApplyResult reports what happened to each expense of an applied match.
type ApplyResult struct {
	Reimbursement     *storage.Reimbursement
	Marked            []string
	AlreadyReimbursed []string
	Failures          []ApplyFailure
}

// CreateExpenseRequest holds the fields of a new expense.
type CreateExpenseRequest struct {
	UserID      string
	Description string
	Vendor      string
	Category    string
	Amount      float64
	Date        time.Time
}

// ReimbursementService coordinates the matcher and the repository.
type ReimbursementService struct {
	storage storage.Repository
	matcher *matcher.Matcher
	logger  *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewReimbursementService creates a new service. A nil logger discards output.
func NewReimbursementService(store storage.Repository, m *matcher.Matcher, logger *slog.Logger) *ReimbursementService {
	if m == nil {
		m = matcher.NewMatcher(matcher.DefaultConfig())
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &ReimbursementService{
		storage: store,
		matcher: m,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// FindMatches searches the user's pending expenses for combinations that
// account for the target amount. Finding nothing is not an error.
func (s *ReimbursementService) FindMatches(ctx context.Context, req MatchRequest) (*MatchResponse, error) {
	if err := validateTarget(req.TargetAmount); err != nil {
		return nil, err
	}

	tolerance := s.matcher.Config().AmountTolerance
	if req.Tolerance != nil {
		tolerance = *req.Tolerance
		if math.IsNaN(tolerance) || math.IsInf(tolerance, 0) || tolerance < 0 {
			return nil, fmt.Errorf("%w: got %v", ErrInvalidTolerance, tolerance)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pending, err := s.storage.ListPendingExpenses(req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending expenses: %w", err)
	}

	started := s.now()
	result := s.matcher.FindReimbursementMatchesWithTolerance(pending, req.TargetAmount, tolerance)

	s.logger.Info("match search finished",
		"user", req.UserID,
		"target", req.TargetAmount,
		"tolerance", tolerance,
		"pending", len(pending),
		"matches", len(result.Matches),
		"limit_reached", result.LimitReached,
		"duration", s.now().Sub(started),
	)

	matches := result.Matches
	if req.Limit > 0 && len(matches) > req.Limit {
		matches = matches[:req.Limit]
	}

	return &MatchResponse{
		TargetAmount: req.TargetAmount,
		Tolerance:    tolerance,
		PendingCount: len(pending),
		Matches:      matches,
		LimitReached: result.LimitReached,
	}, nil
}

// ApplyMatch marks every expense of a chosen match reimbursed and records the
// reimbursement. Expenses that are already reimbursed are skipped. If any
// write fails the returned error wraps ErrPersistFailed and the result lists
// the failed ids; successful writes are kept.
func (s *ReimbursementService) ApplyMatch(ctx context.Context, req ApplyRequest) (*ApplyResult, error) {
	ids := uniqueIDs(req.ExpenseIDs)
	if len(ids) == 0 {
		return nil, ErrNoExpenseIDs
	}

	// Resolve every id before writing anything
	expenses := make([]*expense.Expense, 0, len(ids))
	for _, id := range ids {
		e, err := s.storage.GetExpense(id)
		if err != nil {
			return nil, fmt.Errorf("failed to load expense %s: %w", id, err)
		}
		if e == nil || e.UserID != req.UserID {
			return nil, fmt.Errorf("%w: %s", ErrExpenseNotFound, id)
		}
		expenses = append(expenses, e)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	at := s.now()
	result := &ApplyResult{}
	items := make([]storage.ReimbursementItem, 0, len(expenses))
	var total int64

	for _, e := range expenses {
		if e.Reimbursed {
			result.AlreadyReimbursed = append(result.AlreadyReimbursed, e.ID)
			items = append(items, storage.ReimbursementItem{ExpenseID: e.ID, Status: storage.ItemAlreadyReimbursed})
			continue
		}

		if err := s.storage.MarkReimbursed(e.ID, req.Reference, at); err != nil {
			s.logger.Error("failed to mark expense reimbursed",
				"user", req.UserID,
				"expense_id", e.ID,
				"error", err,
			)
			result.Failures = append(result.Failures, ApplyFailure{ExpenseID: e.ID, Err: err})
			items = append(items, storage.ReimbursementItem{ExpenseID: e.ID, Status: storage.ItemFailed, Error: err.Error()})
			continue
		}

		result.Marked = append(result.Marked, e.ID)
		items = append(items, storage.ReimbursementItem{ExpenseID: e.ID, Status: storage.ItemMarked})
		total += e.Cents()
	}

	status := storage.ReimbursementApplied
	if len(result.Failures) > 0 {
		status = storage.ReimbursementPartial
	}

	target := req.TargetAmount
	if target == 0 {
		target = expense.FromCents(total)
	}

	record := &storage.Reimbursement{
		ID:           s.newID(),
		UserID:       req.UserID,
		Reference:    req.Reference,
		TargetAmount: target,
		Total:        expense.FromCents(total),
		Status:       status,
		CreatedAt:    at,
		Items:        items,
	}

	recordErr := s.storage.RecordReimbursement(record)
	if recordErr != nil {
		s.logger.Error("failed to record reimbursement history",
			"user", req.UserID,
			"reimbursement_id", record.ID,
			"error", recordErr,
		)
	} else {
		result.Reimbursement = record
	}

	s.logger.Info("match applied",
		"user", req.UserID,
		"reference", req.Reference,
		"marked", len(result.Marked),
		"already_reimbursed", len(result.AlreadyReimbursed),
		"failed", len(result.Failures),
	)

	if len(result.Failures) > 0 {
		failed := make([]string, len(result.Failures))
		for i, f := range result.Failures {
			failed[i] = f.ExpenseID
		}
		return result, fmt.Errorf("%w: %d of %d expenses not updated (%s)",
			ErrPersistFailed, len(result.Failures), len(expenses), strings.Join(failed, ", "))
	}
	if recordErr != nil {
		return result, fmt.Errorf("%w: history not recorded: %w", ErrPersistFailed, recordErr)
	}
	return result, nil
}

// CreateExpense validates and stores a new expense.
func (s *ReimbursementService) CreateExpense(ctx context.Context, req CreateExpenseRequest) (*expense.Expense, error) {
	e := &expense.Expense{
		ID:          s.newID(),
		UserID:      req.UserID,
		Description: strings.TrimSpace(req.Description),
		Vendor:      strings.TrimSpace(req.Vendor),
		Category:    strings.TrimSpace(req.Category),
		Amount:      req.Amount,
		Date:        req.Date,
		CreatedAt:   s.now(),
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidExpense, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := s.storage.SaveExpense(e); err != nil {
		return nil, fmt.Errorf("failed to save expense: %w", err)
	}

	s.logger.Debug("expense created", "user", e.UserID, "expense_id", e.ID, "amount", e.Amount)
	return e, nil
}

// GetExpense returns one of the user's expenses.
func (s *ReimbursementService) GetExpense(ctx context.Context, userID, id string) (*expense.Expense, error) {
	e, err := s.storage.GetExpense(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load expense %s: %w", id, err)
	}
	if e == nil || e.UserID != userID {
		return nil, fmt.Errorf("%w: %s", ErrExpenseNotFound, id)
	}
	return e, nil
}

// ListExpenses lists the user's expenses. The user in filters is overridden.
func (s *ReimbursementService) ListExpenses(ctx context.Context, userID string, filters storage.ExpenseFilters) (*storage.ExpenseListResult, error) {
	filters.UserID = userID
	result, err := s.storage.ListExpenses(filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	return result, nil
}

// DeleteExpense removes one of the user's expenses.
func (s *ReimbursementService) DeleteExpense(ctx context.Context, userID, id string) error {
	if _, err := s.GetExpense(ctx, userID, id); err != nil {
		return err
	}
	if err := s.storage.DeleteExpense(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrExpenseNotFound, id)
		}
		return fmt.Errorf("failed to delete expense %s: %w", id, err)
	}
	return nil
}

// MonthlySummary returns per-month totals for the user, newest first.
func (s *ReimbursementService) MonthlySummary(ctx context.Context, userID string, months int) ([]expense.MonthlySummary, error) {
	summaries, err := s.storage.MonthlySummaries(userID, months)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize expenses: %w", err)
	}
	return summaries, nil
}

// ListReimbursements returns the user's most recent applied matches.
func (s *ReimbursementService) ListReimbursements(ctx context.Context, userID string, limit int) ([]storage.Reimbursement, error) {
	list, err := s.storage.ListReimbursements(userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reimbursements: %w", err)
	}
	return list, nil
}

// GetReimbursement returns one of the user's reimbursements, or nil.
func (s *ReimbursementService) GetReimbursement(ctx context.Context, userID, id string) (*storage.Reimbursement, error) {
	r, err := s.storage.GetReimbursement(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load reimbursement %s: %w", id, err)
	}
	if r == nil || r.UserID != userID {
		return nil, nil
	}
	return r, nil
}

func validateTarget(target float64) error {
	if math.IsNaN(target) || math.IsInf(target, 0) || target <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidTarget, target)
	}
	return nil
}

// uniqueIDs trims ids and drops blanks and repeats, keeping first-seen order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
