// Package expense defines the expense record shared by storage, the
// reimbursement matcher and the API.
//
// Expenses are owned by the persistence layer. The matcher only ever reads
// them; the one state change it leads to (marking an expense reimbursed) is
// performed by the caller through the repository.
package expense

import (
	"errors"
	"math"
	"sort"
	"strings"
	"time"
)

// Expense is a single recorded expense.
type Expense struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	Description      string     `json:"description"`
	Vendor           string     `json:"vendor,omitempty"`
	Category         string     `json:"category,omitempty"`
	Amount           float64    `json:"amount"`
	Date             time.Time  `json:"date"`
	Reimbursed       bool       `json:"reimbursed"`
	ReimbursedAt     *time.Time `json:"reimbursed_at,omitempty"`
	ReimbursementRef string     `json:"reimbursement_ref,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Validation errors returned by Validate.
var (
	ErrMissingDescription = errors.New("description is required")
	ErrInvalidAmount      = errors.New("amount must be a finite number")
	ErrMissingDate        = errors.New("date is required")
)

// Validate checks the fields a caller must supply when creating an expense.
// Zero and negative amounts are accepted; refunds are recorded as negatives.
func (e *Expense) Validate() error {
	if strings.TrimSpace(e.Description) == "" {
		return ErrMissingDescription
	}
	if math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) {
		return ErrInvalidAmount
	}
	if e.Date.IsZero() {
		return ErrMissingDate
	}
	return nil
}

// Cents returns the amount rounded to whole minor units.
func (e Expense) Cents() int64 {
	return ToCents(e.Amount)
}

// ToCents rounds a currency amount to whole minor units.
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromCents converts minor units back to a currency amount.
func FromCents(cents int64) float64 {
	return float64(cents) / 100
}

// Pending returns the expenses that have not been reimbursed, in input order.
func Pending(expenses []Expense) []Expense {
	pending := make([]Expense, 0, len(expenses))
	for _, e := range expenses {
		if !e.Reimbursed {
			pending = append(pending, e)
		}
	}
	return pending
}

// MonthKey formats a date as the YYYY-MM bucket used by monthly summaries.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// MonthlySummary aggregates expenses incurred in one calendar month.
type MonthlySummary struct {
	Month           string             `json:"month"`
	Count           int                `json:"count"`
	Total           float64            `json:"total"`
	PendingTotal    float64            `json:"pending_total"`
	ReimbursedTotal float64            `json:"reimbursed_total"`
	ByCategory      map[string]float64 `json:"by_category"`
}

// SummarizeByMonth groups expenses by month, newest month first.
// Totals are accumulated in cents so that many small expenses do not drift.
func SummarizeByMonth(expenses []Expense) []MonthlySummary {
	type acc struct {
		count      int
		total      int64
		pending    int64
		reimbursed int64
		categories map[string]int64
	}

	byMonth := make(map[string]*acc)
	for _, e := range expenses {
		key := MonthKey(e.Date)
		a, ok := byMonth[key]
		if !ok {
			a = &acc{categories: make(map[string]int64)}
			byMonth[key] = a
		}
		cents := e.Cents()
		a.count++
		a.total += cents
		if e.Reimbursed {
			a.reimbursed += cents
		} else {
			a.pending += cents
		}
		a.categories[CategoryOrDefault(e.Category)] += cents
	}

	summaries := make([]MonthlySummary, 0, len(byMonth))
	for month, a := range byMonth {
		s := MonthlySummary{
			Month:           month,
			Count:           a.count,
			Total:           FromCents(a.total),
			PendingTotal:    FromCents(a.pending),
			ReimbursedTotal: FromCents(a.reimbursed),
			ByCategory:      make(map[string]float64, len(a.categories)),
		}
		for cat, cents := range a.categories {
			s.ByCategory[cat] = FromCents(cents)
		}
		summaries = append(summaries, s)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Month > summaries[j].Month
	})
	return summaries
}

// CategoryOrDefault maps an empty category to "Uncategorized".
func CategoryOrDefault(category string) string {
	if strings.TrimSpace(category) == "" {
		return "Uncategorized"
	}
	return category
}
