package budget

import (
	"sort"
	"time"
)

// Ledger is the authoritative record of every tracked unit's weight and usage
// metadata. It maintains the running total so weight queries are O(1).
// Ledger is not safe for concurrent use; the Scheduler serializes access.
type Ledger struct {
	clock Clock
	units map[string]*Unit
	total int
}

// NewLedger creates an empty ledger using the given clock.
func NewLedger(clock Clock) *Ledger {
	return &Ledger{
		clock: clock,
		units: make(map[string]*Unit),
	}
}

// AddOrUpdate inserts or replaces a unit's tracked state and recomputes the
// total weight. Weight, priority, required flag and metadata are taken from
// the argument; usage metadata (AddedAt, LastUsedAt, UsageCount) survives an
// update and is initialized on first insert.
func (l *Ledger) AddOrUpdate(u Unit) {
	now := l.clock.Now()
	existing, ok := l.units[u.ID]
	if ok {
		l.total -= existing.Weight
		u.AddedAt = existing.AddedAt
		u.LastUsedAt = existing.LastUsedAt
		u.UsageCount = existing.UsageCount
	} else {
		u.AddedAt = now
		u.LastUsedAt = now
		u.UsageCount = 0
	}
	l.units[u.ID] = &u
	l.total += u.Weight
}

// Remove drops a unit from the ledger. It returns false if the unit is
// absent or marked required; callers must clear the required flag (via
// AddOrUpdate) before removal.
func (l *Ledger) Remove(id string) bool {
	u, ok := l.units[id]
	if !ok || u.Required {
		return false
	}
	l.total -= u.Weight
	delete(l.units, id)
	return true
}

// MarkUsed increments the unit's usage count and refreshes its last-used
// time. No-op if the unit is absent.
func (l *Ledger) MarkUsed(id string) {
	u, ok := l.units[id]
	if !ok {
		return
	}
	u.UsageCount++
	u.LastUsedAt = l.clock.Now()
}

// Get returns a copy of the tracked unit.
func (l *Ledger) Get(id string) (Unit, bool) {
	u, ok := l.units[id]
	if !ok {
		return Unit{}, false
	}
	return *u, true
}

// Has reports whether the unit is tracked.
func (l *Ledger) Has(id string) bool {
	_, ok := l.units[id]
	return ok
}

// TotalWeight returns the running total of tracked weights.
func (l *Ledger) TotalWeight() int {
	return l.total
}

// Count returns the number of tracked units.
func (l *Ledger) Count() int {
	return len(l.units)
}

// CanAdd reports whether adding the given weight would stay within max.
func (l *Ledger) CanAdd(weight, maxWeight int) bool {
	return l.total+weight <= maxWeight
}

// RequiredReduction returns how much weight must be freed before the given
// weight fits under max. Zero when it already fits.
func (l *Ledger) RequiredReduction(weight, maxWeight int) int {
	over := l.total + weight - maxWeight
	if over < 0 {
		return 0
	}
	return over
}

// Units returns copies of all tracked units, sorted by id for deterministic
// iteration.
func (l *Ledger) Units() []Unit {
	out := make([]Unit, 0, len(l.units))
	for _, u := range l.units {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Removable returns copies of the current eviction candidates: non-required
// units whose time since last use (or addition) is at least minRetention,
// excluding any id present in exclude. The age check uses the ledger clock,
// never caller-supplied wall-clock values.
func (l *Ledger) Removable(minRetention time.Duration, exclude map[string]bool) []Unit {
	now := l.clock.Now()
	var out []Unit
	for id, u := range l.units {
		if u.Required || exclude[id] {
			continue
		}
		if now.Sub(u.LastUsedAt) < minRetention {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Heaviest returns the top n tracked units by weight, heaviest first. Ties
// break by id.
func (l *Ledger) Heaviest(n int) []ItemWeight {
	all := make([]ItemWeight, 0, len(l.units))
	for id, u := range l.units {
		all = append(all, ItemWeight{ID: id, Weight: u.Weight})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Weight != all[j].Weight {
			return all[i].Weight > all[j].Weight
		}
		return all[i].ID < all[j].ID
	})
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

// OptimizationPotential sums the weights of all current eviction candidates.
func (l *Ledger) OptimizationPotential(minRetention time.Duration, exclude map[string]bool) int {
	total := 0
	for _, u := range l.Removable(minRetention, exclude) {
		total += u.Weight
	}
	return total
}
