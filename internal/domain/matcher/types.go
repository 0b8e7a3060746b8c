package matcher

import (
	"github.com/eshaffer321/reimbursement-tracker/internal/domain/expense"
)

// Config holds matcher configuration
type Config struct {
	AmountTolerance          float64 // Default: 0.01 (1 cent)
	MaxTotalMatches          int     // Default: 100
	MaxCombinationSize       int     // Max expenses in one match (default: 10)
	MaxCombinationsPerAmount int     // Concrete picks per amount pattern (default: 20)
	MaxSearchSteps           int     // Backtracking steps before giving up (default: 250000)
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		AmountTolerance:          0.01,
		MaxTotalMatches:          100,
		MaxCombinationSize:       10,
		MaxCombinationsPerAmount: 20,
		MaxSearchSteps:           250000,
	}
}

// withDefaults fills unset limits so a partially populated Config still bounds the search.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxTotalMatches <= 0 {
		c.MaxTotalMatches = d.MaxTotalMatches
	}
	if c.MaxCombinationSize <= 0 {
		c.MaxCombinationSize = d.MaxCombinationSize
	}
	if c.MaxCombinationsPerAmount <= 0 {
		c.MaxCombinationsPerAmount = d.MaxCombinationsPerAmount
	}
	if c.MaxSearchSteps <= 0 {
		c.MaxSearchSteps = d.MaxSearchSteps
	}
	return c
}

// Match is one candidate set of expenses that accounts for a reimbursement.
type Match struct {
	Expenses   []expense.Expense // Oldest first, no repeated IDs
	Total      float64
	Difference float64 // |Total - target|
	ExactMatch bool
}

// IDs returns the expense IDs in match order.
func (m Match) IDs() []string {
	ids := make([]string, len(m.Expenses))
	for i, e := range m.Expenses {
		ids[i] = e.ID
	}
	return ids
}

// Result contains ranked matches for one target amount
type Result struct {
	Matches      []Match
	LimitReached bool // True if a search bound cut off further candidates
}
