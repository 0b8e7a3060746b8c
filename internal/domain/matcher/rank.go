package matcher

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Deduplicate removes matches whose expense-ID set equals an earlier match.
// The first occurrence wins. The input slice is not modified.
func Deduplicate(matches []Match) []Match {
	seen := make(map[string]bool, len(matches))
	unique := make([]Match, 0, len(matches))

	for _, match := range matches {
		key := matchKey(match)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, match)
	}

	return unique
}

// matchKey is the sorted ID tuple identifying a match's expense set.
func matchKey(match Match) string {
	ids := match.IDs()
	sort.Strings(ids)
	return strings.Join(ids, "\x00")
}

// Rank returns matches ordered exact first, then by ascending distance from
// target. Ties prefer the match whose expenses are older, comparing dates
// position by position. The input slice is not modified.
func Rank(matches []Match, target float64) []Match {
	ranked := make([]Match, len(matches))
	copy(ranked, matches)

	for i := range ranked {
		ranked[i].Difference = math.Abs(ranked[i].Total - target)
		ranked[i].ExactMatch = ranked[i].Difference < exactEpsilon
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.ExactMatch != b.ExactMatch {
			return a.ExactMatch
		}
		if math.Abs(a.Difference-b.Difference) > epsilon {
			return a.Difference < b.Difference
		}
		return olderThan(a, b)
	})

	return ranked
}

// olderThan reports whether a draws on older expenses than b.
func olderThan(a, b Match) bool {
	for i := 0; i < len(a.Expenses) && i < len(b.Expenses); i++ {
		da, db := a.Expenses[i].Date, b.Expenses[i].Date
		if !da.Equal(db) {
			return da.Before(db)
		}
	}
	return false
}

// FormatMatchSummary returns a short label such as "1 expense (exact match)"
// or "3 expenses (close match)".
func FormatMatchSummary(match Match) string {
	noun := "expenses"
	if len(match.Expenses) == 1 {
		noun = "expense"
	}

	kind := "close match"
	if match.ExactMatch {
		kind = "exact match"
	}

	return fmt.Sprintf("%d %s (%s)", len(match.Expenses), noun, kind)
}
