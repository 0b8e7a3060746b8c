package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/reimbursement-tracker/internal/domain/expense"
	"github.com/eshaffer321/reimbursement-tracker/internal/domain/matcher"
	"github.com/eshaffer321/reimbursement-tracker/internal/infrastructure/storage"
)

var fixedNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, repo storage.Repository) *ReimbursementService {
	t.Helper()
	svc := NewReimbursementService(repo, matcher.NewMatcher(matcher.DefaultConfig()), nil)
	svc.now = func() time.Time { return fixedNow }
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return svc
}

func seedExpenses(t *testing.T, repo storage.Repository, expenses ...expense.Expense) {
	t.Helper()
	for i := range expenses {
		require.NoError(t, repo.SaveExpense(&expenses[i]))
	}
}

func exp(id string, amount float64, date string) expense.Expense {
	d, _ := time.Parse("2006-01-02", date)
	return expense.Expense{ID: id, UserID: "u1", Description: "expense " + id, Amount: amount, Date: d}
}

func TestFindMatches_InvalidTarget(t *testing.T) {
	svc := newTestService(t, storage.NewMockRepository())

	for _, target := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		_, err := svc.FindMatches(context.Background(), MatchRequest{UserID: "u1", TargetAmount: target})
		assert.ErrorIs(t, err, ErrInvalidTarget, "target %v", target)
	}
}

func TestFindMatches_InvalidTolerance(t *testing.T) {
	svc := newTestService(t, storage.NewMockRepository())

	negative := -0.5
	_, err := svc.FindMatches(context.Background(), MatchRequest{UserID: "u1", TargetAmount: 10, Tolerance: &negative})
	assert.ErrorIs(t, err, ErrInvalidTolerance)
}

func TestFindMatches_RanksPendingExpenses(t *testing.T) {
	repo := storage.NewMockRepository()
	seedExpenses(t, repo,
		exp("a", 10, "2024-01-01"),
		exp("b", 15, "2024-01-02"),
		exp("c", 25, "2024-01-03"),
	)
	done := exp("done", 25, "2023-12-01")
	done.Reimbursed = true
	seedExpenses(t, repo, done)

	svc := newTestService(t, repo)
	resp, err := svc.FindMatches(context.Background(), MatchRequest{UserID: "u1", TargetAmount: 25})
	require.NoError(t, err)

	assert.Equal(t, 3, resp.PendingCount, "reimbursed expenses are not candidates")
	assert.InDelta(t, 0.01, resp.Tolerance, 1e-9)
	require.Len(t, resp.Matches, 2)
	for _, m := range resp.Matches {
		assert.True(t, m.ExactMatch)
		assert.NotContains(t, m.IDs(), "done")
	}
}

func TestFindMatches_NoMatchIsNotAnError(t *testing.T) {
	repo := storage.NewMockRepository()
	seedExpenses(t, repo, exp("a", 10, "2024-01-01"))

	svc := newTestService(t, repo)
	resp, err := svc.FindMatches(context.Background(), MatchRequest{UserID: "u1", TargetAmount: 999})
	require.NoError(t, err)
	assert.Empty(t, resp.Matches)
	assert.False(t, resp.LimitReached)
}

func TestFindMatches_Limit(t *testing.T) {
	repo := storage.NewMockRepository()
	seedExpenses(t, repo,
		exp("a", 5, "2024-01-01"),
		exp("b", 5, "2024-01-02"),
		exp("c", 5, "2024-01-03"),
	)

	svc := newTestService(t, repo)
	resp, err := svc.FindMatches(context.Background(), MatchRequest{UserID: "u1", TargetAmount: 5, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, resp.Matches, 2)
}

func TestFindMatches_StorageError(t *testing.T) {
	repo := storage.NewMockRepository()
	repo.ListPendingErr = errors.New("db locked")

	svc := newTestService(t, repo)
	_, err := svc.FindMatches(context.Background(), MatchRequest{UserID: "u1", TargetAmount: 5})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "db locked")
}

func TestApplyMatch_MarksAndRecords(t *testing.T) {
	repo := storage.NewMockRepository()
	seedExpenses(t, repo, exp("a", 10, "2024-01-01"), exp("b", 15.5, "2024-01-02"))

	svc := newTestService(t, repo)
	result, err := svc.ApplyMatch(context.Background(), ApplyRequest{
		UserID:       "u1",
		ExpenseIDs:   []string{"a", "b", "a"},
		Reference:    "DEP-42",
		TargetAmount: 25.5,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, result.Marked)
	assert.Empty(t, result.Failures)
	require.NotNil(t, result.Reimbursement)
	assert.Equal(t, storage.ReimbursementApplied, result.Reimbursement.Status)
	assert.InDelta(t, 25.5, result.Reimbursement.Total, 1e-9)

	a, _ := repo.GetExpense("a")
	assert.True(t, a.Reimbursed)
	assert.Equal(t, "DEP-42", a.ReimbursementRef)
	require.NotNil(t, a.ReimbursedAt)
	assert.True(t, fixedNow.Equal(*a.ReimbursedAt))

	history, err := svc.ListReimbursements(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Len(t, history[0].Items, 2)
}

func TestApplyMatch_Idempotent(t *testing.T) {
	repo := storage.NewMockRepository()
	seedExpenses(t, repo, exp("a", 10, "2024-01-01"))

	svc := newTestService(t, repo)
	_, err := svc.ApplyMatch(context.Background(), ApplyRequest{UserID: "u1", ExpenseIDs: []string{"a"}})
	require.NoError(t, err)

	result, err := svc.ApplyMatch(context.Background(), ApplyRequest{UserID: "u1", ExpenseIDs: []string{"a"}})
	require.NoError(t, err)
	assert.Empty(t, result.Marked)
	assert.Equal(t, []string{"a"}, result.AlreadyReimbursed)
	assert.Len(t, repo.MarkReimbursedCalls, 1, "already reimbursed expenses are not written again")
}

func TestApplyMatch_UnknownOrForeignExpense(t *testing.T) {
	repo := storage.NewMockRepository()
	foreign := exp("theirs", 10, "2024-01-01")
	foreign.UserID = "someone-else"
	seedExpenses(t, repo, exp("a", 10, "2024-01-01"), foreign)

	svc := newTestService(t, repo)

	_, err := svc.ApplyMatch(context.Background(), ApplyRequest{UserID: "u1", ExpenseIDs: []string{"a", "missing"}})
	assert.ErrorIs(t, err, ErrExpenseNotFound)

	_, err = svc.ApplyMatch(context.Background(), ApplyRequest{UserID: "u1", ExpenseIDs: []string{"theirs"}})
	assert.ErrorIs(t, err, ErrExpenseNotFound)

	assert.Empty(t, repo.MarkReimbursedCalls, "nothing is written when an id does not resolve")
}

func TestApplyMatch_NoIDs(t *testing.T) {
	svc := newTestService(t, storage.NewMockRepository())

	_, err := svc.ApplyMatch(context.Background(), ApplyRequest{UserID: "u1", ExpenseIDs: []string{" ", ""}})
	assert.ErrorIs(t, err, ErrNoExpenseIDs)
}

func TestApplyMatch_PartialFailure(t *testing.T) {
	repo := storage.NewMockRepository()
	seedExpenses(t, repo, exp("a", 10, "2024-01-01"), exp("b", 15, "2024-01-02"))
	repo.MarkReimbursedErrs["b"] = errors.New("disk full")

	svc := newTestService(t, repo)
	result, err := svc.ApplyMatch(context.Background(), ApplyRequest{UserID: "u1", ExpenseIDs: []string{"a", "b"}})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistFailed)
	assert.NotErrorIs(t, err, ErrExpenseNotFound)
	require.NotNil(t, result)
	assert.Equal(t, []string{"a"}, result.Marked)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "b", result.Failures[0].ExpenseID)

	// The successful write is kept and the history shows the partial outcome
	a, _ := repo.GetExpense("a")
	assert.True(t, a.Reimbursed)
	require.NotNil(t, repo.LastRecordedReimbursement)
	assert.Equal(t, storage.ReimbursementPartial, repo.LastRecordedReimbursement.Status)
	assert.Equal(t, storage.ItemFailed, repo.LastRecordedReimbursement.Items[1].Status)
	assert.Equal(t, "disk full", repo.LastRecordedReimbursement.Items[1].Error)
}

func TestApplyMatch_HistoryFailure(t *testing.T) {
	repo := storage.NewMockRepository()
	seedExpenses(t, repo, exp("a", 10, "2024-01-01"))
	repo.RecordReimbursementErr = errors.New("constraint failed")

	svc := newTestService(t, repo)
	result, err := svc.ApplyMatch(context.Background(), ApplyRequest{UserID: "u1", ExpenseIDs: []string{"a"}})

	assert.ErrorIs(t, err, ErrPersistFailed)
	require.NotNil(t, result)
	assert.Equal(t, []string{"a"}, result.Marked)
	assert.Nil(t, result.Reimbursement)
}

func TestCreateExpense(t *testing.T) {
	repo := storage.NewMockRepository()
	svc := newTestService(t, repo)

	e, err := svc.CreateExpense(context.Background(), CreateExpenseRequest{
		UserID:      "u1",
		Description: "  Conference ticket ",
		Amount:      299,
		Date:        fixedNow,
	})
	require.NoError(t, err)
	assert.Equal(t, "id-1", e.ID)
	assert.Equal(t, "Conference ticket", e.Description)
	assert.True(t, repo.SaveExpenseCalled)

	_, err = svc.CreateExpense(context.Background(), CreateExpenseRequest{UserID: "u1", Amount: 5, Date: fixedNow})
	assert.ErrorIs(t, err, ErrInvalidExpense)
	assert.ErrorIs(t, err, expense.ErrMissingDescription)
}

func TestGetAndDeleteExpense_ScopedToUser(t *testing.T) {
	repo := storage.NewMockRepository()
	seedExpenses(t, repo, exp("a", 10, "2024-01-01"))
	svc := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.GetExpense(ctx, "other", "a")
	assert.ErrorIs(t, err, ErrExpenseNotFound)

	assert.ErrorIs(t, svc.DeleteExpense(ctx, "other", "a"), ErrExpenseNotFound)
	require.NoError(t, svc.DeleteExpense(ctx, "u1", "a"))
	assert.ErrorIs(t, svc.DeleteExpense(ctx, "u1", "a"), ErrExpenseNotFound)
}

func TestGetReimbursement_ScopedToUser(t *testing.T) {
	repo := storage.NewMockRepository()
	require.NoError(t, repo.RecordReimbursement(&storage.Reimbursement{ID: "r1", UserID: "u1", Status: storage.ReimbursementApplied}))
	svc := newTestService(t, repo)

	r, err := svc.GetReimbursement(context.Background(), "u1", "r1")
	require.NoError(t, err)
	require.NotNil(t, r)

	r, err = svc.GetReimbursement(context.Background(), "u2", "r1")
	require.NoError(t, err)
	assert.Nil(t, r)
}

// callRepo records MarkReimbursed calls with testify/mock and delegates the rest.
type callRepo struct {
	mock.Mock
	*storage.MockRepository
}

func (m *callRepo) MarkReimbursed(id, reference string, at time.Time) error {
	args := m.Called(id, reference, at)
	return args.Error(0)
}

func TestApplyMatch_PassesReferenceAndTime(t *testing.T) {
	base := storage.NewMockRepository()
	seedExpenses(t, base, exp("a", 10, "2024-01-01"), exp("b", 2, "2024-01-02"))

	repo := &callRepo{MockRepository: base}
	repo.On("MarkReimbursed", "a", "FIT-1", fixedNow).Return(nil).Once()
	repo.On("MarkReimbursed", "b", "FIT-1", fixedNow).Return(nil).Once()

	svc := newTestService(t, repo)
	_, err := svc.ApplyMatch(context.Background(), ApplyRequest{UserID: "u1", ExpenseIDs: []string{"a", "b"}, Reference: "FIT-1"})
	require.NoError(t, err)

	repo.AssertExpectations(t)
}

func TestMonthlySummary(t *testing.T) {
	repo := storage.NewMockRepository()
	seedExpenses(t, repo,
		exp("a", 10, "2024-01-01"),
		exp("b", 5, "2024-02-01"),
		exp("c", 1, "2024-03-01"),
	)
	svc := newTestService(t, repo)

	summaries, err := svc.MonthlySummary(context.Background(), "u1", 2)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "2024-03", summaries[0].Month)

	repo.SummaryErr = errors.New("boom")
	_, err = svc.MonthlySummary(context.Background(), "u1", 2)
	assert.Error(t, err)
}
