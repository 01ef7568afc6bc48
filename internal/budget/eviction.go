package budget

import (
	"sort"
	"time"
)

// Smart-strategy coefficients. The exact weighting is tunable, not
// contractual; ranking must stay deterministic and stable under equal
// inputs. Higher composite score means more worth keeping.
const (
	smartRecencyWeight   = 0.5
	smartFrequencyWeight = 0.3
	smartPriorityWeight  = 0.2
)

// evictionPlan is the outcome of selecting eviction candidates. Selection is
// pure: nothing is removed from the ledger until the planner commits.
type evictionPlan struct {
	removed []string
	freed   int
	warning string
}

// planEviction ranks the given candidates under the strategy and selects
// from the front until targetFree is met or candidates are exhausted. It
// never selects more units than needed: selection stops as soon as the
// accumulated weight reaches the target.
func planEviction(strategy Strategy, candidates []Unit, targetFree int, now time.Time) evictionPlan {
	var plan evictionPlan
	if targetFree <= 0 {
		return plan
	}

	ranked := rankCandidates(strategy, candidates, now)
	for _, u := range ranked {
		if plan.freed >= targetFree {
			break
		}
		plan.removed = append(plan.removed, u.ID)
		plan.freed += u.Weight
	}

	if plan.freed < targetFree {
		plan.warning = "eviction candidates exhausted before reaching target"
	}
	return plan
}

// rankCandidates orders eviction candidates most-removable-first under the
// given strategy. The input slice is not modified. Every strategy breaks
// remaining ties by id so equal inputs rank identically across runs.
func rankCandidates(strategy Strategy, candidates []Unit, now time.Time) []Unit {
	ranked := make([]Unit, len(candidates))
	copy(ranked, candidates)

	switch strategy {
	case StrategyLRU:
		sort.SliceStable(ranked, func(i, j int) bool {
			if !ranked[i].LastUsedAt.Equal(ranked[j].LastUsedAt) {
				return ranked[i].LastUsedAt.Before(ranked[j].LastUsedAt)
			}
			return ranked[i].ID < ranked[j].ID
		})
	case StrategyLFU:
		sort.SliceStable(ranked, func(i, j int) bool {
			if ranked[i].UsageCount != ranked[j].UsageCount {
				return ranked[i].UsageCount < ranked[j].UsageCount
			}
			if !ranked[i].LastUsedAt.Equal(ranked[j].LastUsedAt) {
				return ranked[i].LastUsedAt.Before(ranked[j].LastUsedAt)
			}
			return ranked[i].ID < ranked[j].ID
		})
	case StrategyPriority:
		sort.SliceStable(ranked, func(i, j int) bool {
			if ranked[i].Priority != ranked[j].Priority {
				return ranked[i].Priority < ranked[j].Priority
			}
			if !ranked[i].LastUsedAt.Equal(ranked[j].LastUsedAt) {
				return ranked[i].LastUsedAt.Before(ranked[j].LastUsedAt)
			}
			return ranked[i].ID < ranked[j].ID
		})
	case StrategySmart:
		scores := smartScores(ranked, now)
		sort.SliceStable(ranked, func(i, j int) bool {
			si, sj := scores[ranked[i].ID], scores[ranked[j].ID]
			if si != sj {
				return si < sj
			}
			return ranked[i].ID < ranked[j].ID
		})
	}
	return ranked
}

// smartScores computes the composite keep-worthiness score for each
// candidate: a weighted sum of normalized recency, frequency and priority.
// Normalization is over the candidate set itself, so scores are relative
// ranks, not absolute values.
func smartScores(candidates []Unit, now time.Time) map[string]float64 {
	if len(candidates) == 0 {
		return nil
	}

	minUsage, maxUsage := candidates[0].UsageCount, candidates[0].UsageCount
	minPrio, maxPrio := candidates[0].Priority, candidates[0].Priority
	minAge, maxAge := now.Sub(candidates[0].LastUsedAt), now.Sub(candidates[0].LastUsedAt)
	for _, u := range candidates[1:] {
		age := now.Sub(u.LastUsedAt)
		if age < minAge {
			minAge = age
		}
		if age > maxAge {
			maxAge = age
		}
		if u.UsageCount < minUsage {
			minUsage = u.UsageCount
		}
		if u.UsageCount > maxUsage {
			maxUsage = u.UsageCount
		}
		if u.Priority < minPrio {
			minPrio = u.Priority
		}
		if u.Priority > maxPrio {
			maxPrio = u.Priority
		}
	}

	scores := make(map[string]float64, len(candidates))
	for _, u := range candidates {
		// Recency: newer use means higher keep score, so invert the age.
		recency := 1 - normalize(float64(now.Sub(u.LastUsedAt)), float64(minAge), float64(maxAge))
		frequency := normalize(float64(u.UsageCount), float64(minUsage), float64(maxUsage))
		priority := normalize(float64(u.Priority), float64(minPrio), float64(maxPrio))
		scores[u.ID] = smartRecencyWeight*recency +
			smartFrequencyWeight*frequency +
			smartPriorityWeight*priority
	}
	return scores
}

// normalize maps v into [0, 1] over [min, max]. A degenerate range maps to
// 0.5 so the dimension contributes nothing to relative ordering.
func normalize(v, min, max float64) float64 {
	if max <= min {
		return 0.5
	}
	return (v - min) / (max - min)
}
