// Package matcher finds sets of pending expenses that account for a
// reimbursement total (a deposit, a payroll line).
//
// The search is a bounded subset-sum:
//   - Expenses are sorted oldest first and grouped by amount in cents
//   - Backtracking runs over the distinct amounts, trying 1..k copies of each
//   - Each amount pattern that lands within tolerance is expanded into
//     concrete expense picks, oldest first
//   - Combination size, expansions per pattern, total matches and search
//     steps are all capped by Config
//
// Example usage:
//
//	m := matcher.NewMatcher(matcher.DefaultConfig())
//	result := m.FindReimbursementMatches(pending, 41.25)
//	for _, match := range result.Matches {
//		fmt.Println(matcher.FormatMatchSummary(match), match.IDs())
//	}
package matcher

import (
	"math"
	"sort"

	"github.com/eshaffer321/reimbursement-tracker/internal/domain/expense"
)

const (
	// exactEpsilon is the currency epsilon below which a total is an exact match.
	exactEpsilon = 0.001

	// epsilon absorbs floating point noise in tolerance comparisons.
	epsilon = 0.0000001
)

// Matcher matches pending expenses against reimbursement totals
type Matcher struct {
	config Config
}

// NewMatcher creates a new matcher with the given config
func NewMatcher(config Config) *Matcher {
	return &Matcher{
		config: config.withDefaults(),
	}
}

// Config returns the effective configuration, including filled-in defaults.
func (m *Matcher) Config() Config {
	return m.config
}

// FindReimbursementMatches finds ranked expense combinations whose total is
// within the configured tolerance of target.
func (m *Matcher) FindReimbursementMatches(expenses []expense.Expense, target float64) *Result {
	return m.FindReimbursementMatchesWithTolerance(expenses, target, m.config.AmountTolerance)
}

// FindReimbursementMatchesWithTolerance is FindReimbursementMatches with an
// explicit tolerance. target is assumed positive; callers validate it.
// Reimbursed expenses in the input are ignored.
func (m *Matcher) FindReimbursementMatchesWithTolerance(
	expenses []expense.Expense,
	target float64,
	tolerance float64,
) *Result {
	pool := preparePool(expenses)
	if len(pool) == 0 {
		return &Result{Matches: []Match{}}
	}

	s := newSearch(pool, target, tolerance, m.config)
	s.findPatterns(0, 0, 0, nil)
	raw := s.expand()

	return &Result{
		Matches:      Rank(Deduplicate(raw), target),
		LimitReached: s.limitReached,
	}
}

// FindReimbursementMatches runs a search with the default limits.
func FindReimbursementMatches(expenses []expense.Expense, target, tolerance float64) *Result {
	return NewMatcher(DefaultConfig()).FindReimbursementMatchesWithTolerance(expenses, target, tolerance)
}

// preparePool drops reimbursed expenses and repeated IDs, then sorts oldest first.
// The sort is stable so equal dates keep input order.
func preparePool(expenses []expense.Expense) []expense.Expense {
	seen := make(map[string]bool, len(expenses))
	pool := make([]expense.Expense, 0, len(expenses))
	for _, e := range expenses {
		if e.Reimbursed || seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		pool = append(pool, e)
	}

	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].Date.Before(pool[j].Date)
	})
	return pool
}

// amountGroup holds the pool positions of every expense with one amount.
type amountGroup struct {
	cents   int64
	members []int // Positions in the date-sorted pool, ascending
}

// patternPart says "take count expenses from groups[group]".
type patternPart struct {
	group int
	count int
}

// search carries the working state of a single call. Nothing is shared
// between calls.
type search struct {
	pool   []expense.Expense
	groups []amountGroup
	target float64

	tolerance float64
	lo, hi    float64 // Acceptable sum range, in cents

	// Bounds on what the groups from index i onward can still add.
	negReach []int64
	posReach []int64

	config   Config
	steps    int
	patterns [][]patternPart
	matches  []Match

	limitReached bool
}

func newSearch(pool []expense.Expense, target, tolerance float64, config Config) *search {
	s := &search{
		pool:      pool,
		groups:    groupByAmount(pool),
		target:    target,
		tolerance: tolerance,
		lo:        (target-tolerance)*100 - epsilon*100,
		hi:        (target+tolerance)*100 + epsilon*100,
		config:    config,
	}

	n := len(s.groups)
	s.negReach = make([]int64, n+1)
	s.posReach = make([]int64, n+1)
	for i := n - 1; i >= 0; i-- {
		g := s.groups[i]
		usable := int64(min(len(g.members), config.MaxCombinationSize))
		s.negReach[i] = s.negReach[i+1] + min(g.cents, 0)*usable
		s.posReach[i] = s.posReach[i+1] + max(g.cents, 0)*usable
	}

	return s
}

// groupByAmount groups pool positions by amount in cents. Groups are ordered
// by their oldest member.
func groupByAmount(pool []expense.Expense) []amountGroup {
	index := make(map[int64]int)
	groups := make([]amountGroup, 0)
	for i, e := range pool {
		cents := e.Cents()
		gi, ok := index[cents]
		if !ok {
			gi = len(groups)
			index[cents] = gi
			groups = append(groups, amountGroup{cents: cents})
		}
		groups[gi].members = append(groups[gi].members, i)
	}
	return groups
}

func (s *search) within(sum int64) bool {
	v := float64(sum)
	return v >= s.lo && v <= s.hi
}

// findPatterns enumerates amount multisets starting at group index start.
// Depth is bounded by MaxCombinationSize since every level adds at least one
// expense. Returns false once a global limit stops the search.
func (s *search) findPatterns(start int, sum int64, size int, parts []patternPart) bool {
	// Nothing left can lift the sum into range
	if float64(sum+s.posReach[start]) < s.lo {
		return true
	}

	for j := start; j < len(s.groups); j++ {
		g := s.groups[j]
		maxCount := min(len(g.members), s.config.MaxCombinationSize-size)

		for c := 1; c <= maxCount; c++ {
			s.steps++
			if s.steps > s.config.MaxSearchSteps {
				s.limitReached = true
				return false
			}

			next := sum + g.cents*int64(c)

			// Even the most negative continuation overshoots
			if float64(next+s.negReach[j+1]) > s.hi {
				if g.cents >= 0 {
					break
				}
				continue
			}

			chosen := append(parts, patternPart{group: j, count: c})

			if s.within(next) {
				if len(s.patterns) == s.config.MaxTotalMatches {
					s.limitReached = true
					return false
				}
				pattern := make([]patternPart, len(chosen))
				copy(pattern, chosen)
				s.patterns = append(s.patterns, pattern)
			}

			if size+c < s.config.MaxCombinationSize {
				if !s.findPatterns(j+1, next, size+c, chosen) {
					return false
				}
			}
		}
	}

	return true
}

// expand turns each amount pattern into concrete expense picks.
func (s *search) expand() []Match {
	s.matches = make([]Match, 0, len(s.patterns))

	for _, pattern := range s.patterns {
		var cents int64
		for _, part := range pattern {
			cents += s.groups[part.group].cents * int64(part.count)
		}
		total := expense.FromCents(cents)
		if math.Abs(total-s.target) > s.tolerance+epsilon {
			continue
		}

		emitted := 0
		if !s.expandPattern(pattern, 0, nil, &emitted) && len(s.matches) == s.config.MaxTotalMatches {
			break
		}
	}

	return s.matches
}

// expandPattern picks members part by part. It returns false when a limit
// stops expansion of the current pattern.
func (s *search) expandPattern(pattern []patternPart, part int, picked []int, emitted *int) bool {
	if part == len(pattern) {
		if *emitted == s.config.MaxCombinationsPerAmount || len(s.matches) == s.config.MaxTotalMatches {
			s.limitReached = true
			return false
		}
		s.matches = append(s.matches, s.newMatch(picked))
		*emitted++
		return true
	}

	members := s.groups[pattern[part].group].members
	return choose(members, pattern[part].count, 0, picked, func(next []int) bool {
		return s.expandPattern(pattern, part+1, next, emitted)
	})
}

// choose visits every k-subset of members[start:] in lexicographic order,
// which is oldest first because members are date sorted.
func choose(members []int, k, start int, picked []int, visit func([]int) bool) bool {
	if k == 0 {
		return visit(picked)
	}
	for i := start; i <= len(members)-k; i++ {
		if !choose(members, k-1, i+1, append(picked, members[i]), visit) {
			return false
		}
	}
	return true
}

// newMatch builds a Match from pool positions, ordered oldest first.
func (s *search) newMatch(picked []int) Match {
	positions := make([]int, len(picked))
	copy(positions, picked)
	sort.Ints(positions)

	expenses := make([]expense.Expense, len(positions))
	var cents int64
	for i, p := range positions {
		expenses[i] = s.pool[p]
		cents += s.pool[p].Cents()
	}

	total := expense.FromCents(cents)
	diff := math.Abs(total - s.target)

	return Match{
		Expenses:   expenses,
		Total:      total,
		Difference: diff,
		ExactMatch: diff < exactEpsilon,
	}
}
