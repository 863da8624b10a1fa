package domain

import (
	m "github.com/mouse-blink/culprit/internal/model"
)

// Diff computes the multiset symmetric difference between the baseline and
// target sequences. Position is not part of token identity: a token present
// in both sequences is common regardless of where it appears, and only
// surplus duplicate occurrences land in the relevant only-set. Ordering is
// first-occurrence order per side, so the result is deterministic for
// identical inputs.
func Diff(baseline, target m.Sequence) m.DifferenceSet {
	baseCount := countTokens(baseline)
	targetCount := countTokens(target)

	shared := make(map[m.Token]int, len(baseCount))
	for t, n := range baseCount {
		if o := targetCount[t]; o > 0 {
			shared[t] = minInt(n, o)
		}
	}

	var diff m.DifferenceSet

	used := make(map[m.Token]int, len(shared))
	for _, t := range baseline {
		if used[t] < shared[t] {
			used[t]++

			diff.Common = append(diff.Common, t)

			continue
		}

		diff.OnlyBaseline = append(diff.OnlyBaseline, t)
	}

	used = make(map[m.Token]int, len(shared))
	for _, t := range target {
		if used[t] < shared[t] {
			used[t]++
			continue
		}

		diff.OnlyTarget = append(diff.OnlyTarget, t)
	}

	return diff
}

func countTokens(seq m.Sequence) map[m.Token]int {
	counts := make(map[m.Token]int, len(seq))
	for _, t := range seq {
		counts[t]++
	}

	return counts
}

func minInt(a, b int) int {
	if a < b {
		return a
	}

	return b
}
