package budget

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Scheduler owns the ledger, the layer graph, the active set and the
// history for one session. All mutating operations are serialized through
// the write lock, so at most one mutation is in flight against the shared
// state at a time; read-only operations take the read lock and observe only
// committed state. Notifications are collected during a commit and delivered
// after the lock is released, so observers may safely call read-only methods.
type Scheduler struct {
	id   string
	opts Options

	mu      sync.RWMutex
	clock   Clock
	ledger  *Ledger
	graph   *LayerGraph
	active  map[string]bool
	history *History

	observers    []Observer
	lastPressure Pressure

	logger *log.Logger
}

// Option configures optional scheduler collaborators.
type Option func(*Scheduler)

// WithClock replaces the clock, for deterministic tests.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithLogger sets a logger for committed-operation diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithObserver registers a notification observer at construction time.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observers = append(s.observers, o) }
}

// New creates a scheduler with the given options. Zero-valued numeric
// fields fall back to defaults; AutoOptimize is taken as given.
func New(opts Options, optFns ...Option) (*Scheduler, error) {
	defaults := DefaultOptions()
	if opts.MaxWeight == 0 {
		opts.MaxWeight = defaults.MaxWeight
	}
	if opts.WarningThreshold == 0 {
		opts.WarningThreshold = defaults.WarningThreshold
	}
	if opts.CriticalThreshold == 0 {
		opts.CriticalThreshold = defaults.CriticalThreshold
	}
	if opts.Strategy == "" {
		opts.Strategy = defaults.Strategy
	}
	if opts.HistorySize == 0 {
		opts.HistorySize = defaults.HistorySize
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scheduler options: %w", err)
	}

	s := &Scheduler{
		id:           uuid.NewString(),
		opts:         opts,
		clock:        &RealClock{},
		graph:        NewLayerGraph(),
		active:       make(map[string]bool),
		history:      NewHistory(opts.HistorySize),
		lastPressure: PressureNormal,
	}
	for _, fn := range optFns {
		fn(s)
	}
	s.ledger = NewLedger(s.clock)
	return s, nil
}

// ID returns the scheduler instance identifier.
func (s *Scheduler) ID() string {
	return s.id
}

// Options returns the effective configuration.
func (s *Scheduler) Options() Options {
	return s.opts
}

// AddObserver registers a notification observer.
func (s *Scheduler) AddObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// AddItem upserts a tracked unit. Empty ids, negative weights and unknown
// kinds are contract violations reported as errors.
func (s *Scheduler) AddItem(id string, kind Kind, weight, priority int, required bool, metadata map[string]any) error {
	if id == "" {
		return fmt.Errorf("item id is required")
	}
	if weight < 0 {
		return fmt.Errorf("item %s: weight must not be negative, got %d", id, weight)
	}
	if kind != KindTool && kind != KindLayer {
		return fmt.Errorf("item %s: unknown kind %q", id, kind)
	}

	s.mu.Lock()
	now := s.clock.Now()
	existed := s.ledger.Has(id)
	s.ledger.AddOrUpdate(Unit{
		ID:       id,
		Kind:     kind,
		Weight:   weight,
		Priority: priority,
		Required: required,
		Metadata: metadata,
	})

	var events []Event
	if !existed {
		events = append(events, Event{
			Type:      EventItemAdded,
			Timestamp: now,
			ItemID:    id,
			NewWeight: s.ledger.TotalWeight(),
		})
	}
	events = append(events, s.pressureEventsLocked()...)
	s.mu.Unlock()

	s.publish(events)
	return nil
}

// RemoveItem drops a unit from the ledger. Returns false if the unit is
// absent or required.
func (s *Scheduler) RemoveItem(id string) bool {
	s.mu.Lock()
	now := s.clock.Now()
	u, _ := s.ledger.Get(id)
	removed := s.ledger.Remove(id)

	var events []Event
	if removed {
		delete(s.active, id)
		events = append(events, Event{
			Type:        EventItemRemoved,
			Timestamp:   now,
			ItemID:      id,
			FreedWeight: u.Weight,
			NewWeight:   s.ledger.TotalWeight(),
		})
		events = append(events, s.pressureEventsLocked()...)
	}
	s.mu.Unlock()

	s.publish(events)
	return removed
}

// MarkUsed bumps the unit's usage count and recency. No-op if absent.
func (s *Scheduler) MarkUsed(id string) {
	s.mu.Lock()
	s.ledger.MarkUsed(id)
	s.mu.Unlock()
}

// CanAdd reports whether the given weight fits under the ceiling right now.
func (s *Scheduler) CanAdd(weight int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.CanAdd(weight, s.opts.MaxWeight)
}

// RequiredReduction returns how much weight must be freed before the given
// weight fits. Zero when it already fits.
func (s *Scheduler) RequiredReduction(weight int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.RequiredReduction(weight, s.opts.MaxWeight)
}

// DefineLayer upserts a layer definition. Dependency existence is not
// validated until activation. Defining never changes the active set.
func (s *Scheduler) DefineLayer(layer Layer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Define(layer)
}

// Layer returns a layer definition.
func (s *Scheduler) Layer(id string) (Layer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.Get(id)
}

// ActiveLayers returns the currently active layer ids, sorted.
func (s *Scheduler) ActiveLayers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeIDsLocked()
}

// ActivateLayers runs one activation request through the planner:
// resolve the dependency closure, check exclusivity conflicts, project the
// ledger weight, evict if over budget and authorized, then commit
// all-or-nothing. Planner rejections come back in the result; only
// contract violations (empty request, undefined requested layer) are errors.
func (s *Scheduler) ActivateLayers(req ActivationRequest) (ActivationResult, error) {
	if len(req.LayerIDs) == 0 {
		return ActivationResult{}, fmt.Errorf("at least one layer id is required")
	}

	s.mu.Lock()
	now := s.clock.Now()
	res := ActivationResult{NewWeight: s.ledger.TotalWeight()}

	for _, id := range req.LayerIDs {
		if !s.graph.Has(id) {
			s.mu.Unlock()
			return res, fmt.Errorf("unknown layer: %s", id)
		}
	}

	// Resolve.
	closure := s.graph.ResolveClosure(req.LayerIDs)
	if closure.Cyclic {
		res.Reason = ReasonCyclicDependency
		s.mu.Unlock()
		return res, nil
	}
	if len(closure.Missing) > 0 {
		res.Reason = ReasonDependencyUnresolved
		res.Missing = closure.Missing
		s.mu.Unlock()
		return res, nil
	}

	// Conflict check.
	if pairs := s.graph.InternalConflicts(closure.Order); len(pairs) > 0 {
		res.Reason = ReasonExclusivityConflict
		res.Conflicts = pairs
		res.Warnings = append(res.Warnings, "request contains mutually exclusive layers")
		s.mu.Unlock()
		return res, nil
	}
	conflicts := s.graph.ExclusivityConflicts(closure.Order, s.activeIDsLocked())
	var toDeactivate []string
	if len(conflicts) > 0 {
		if !req.AllowAutoDeactivate {
			res.Reason = ReasonExclusivityConflict
			res.Conflicts = conflicts
			s.mu.Unlock()
			return res, nil
		}
		seeds := make(map[string]bool)
		for _, p := range conflicts {
			seeds[p.ActiveID] = true
		}
		for id := range seeds {
			if u, ok := s.ledger.Get(id); ok && u.Required {
				res.Reason = ReasonExclusivityConflict
				res.Conflicts = conflicts
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("conflicting layer %s is required and cannot be auto-deactivated", id))
				s.mu.Unlock()
				return res, nil
			}
		}
		// Active dependents of a deactivated layer would be stranded,
		// so they cascade along with it.
		toDeactivate = s.cascadeDependentsLocked(seeds)
	}

	closureSet := make(map[string]bool, len(closure.Order))
	for _, id := range closure.Order {
		closureSet[id] = true
	}
	var newLayers []string
	var skipped []SkippedLayer
	for _, id := range closure.Order {
		if s.active[id] {
			skipped = append(skipped, SkippedLayer{ID: id, Reason: "already active"})
		} else {
			newLayers = append(newLayers, id)
		}
	}

	// Project.
	deactWeight := 0
	for _, id := range toDeactivate {
		if u, ok := s.ledger.Get(id); ok {
			deactWeight += u.Weight
		}
	}
	addWeight := 0
	for _, id := range newLayers {
		layer, _ := s.graph.Get(id)
		addWeight += layer.Weight
		if u, ok := s.ledger.Get(id); ok {
			// Upsert replaces an existing unit under the same id.
			addWeight -= u.Weight
		}
	}
	projected := s.ledger.TotalWeight() - deactWeight + addWeight

	// Budget check.
	var plan evictionPlan
	if projected > s.opts.MaxWeight {
		if !s.opts.AutoOptimize && !req.AllowOptimize {
			res.Reason = ReasonBudgetExceeded
			res.RequiredReduction = projected - s.opts.MaxWeight
			s.mu.Unlock()
			return res, nil
		}
		targetFree := projected - s.opts.MaxWeight
		exclude := s.loadBearingLocked()
		for id := range closureSet {
			exclude[id] = true
		}
		for _, id := range toDeactivate {
			exclude[id] = true
		}
		candidates := s.ledger.Removable(s.opts.MinRetention, exclude)
		plan = planEviction(s.opts.Strategy, candidates, targetFree, now)
		if plan.freed < targetFree {
			// All-or-nothing: the plan is discarded, nothing was removed.
			res.Reason = ReasonBudgetExceeded
			res.RequiredReduction = targetFree - plan.freed
			if plan.warning != "" {
				res.Warnings = append(res.Warnings, plan.warning)
			}
			s.mu.Unlock()
			return res, nil
		}
	}

	// Commit.
	var events []Event
	for _, id := range toDeactivate {
		freed := s.removeLayerUnitLocked(id)
		events = append(events, Event{
			Type:        EventItemRemoved,
			Timestamp:   now,
			ItemID:      id,
			FreedWeight: freed,
			NewWeight:   s.ledger.TotalWeight(),
		})
	}
	for _, id := range plan.removed {
		u, _ := s.ledger.Get(id)
		s.ledger.Remove(id)
		delete(s.active, id)
		events = append(events, Event{
			Type:        EventItemRemoved,
			Timestamp:   now,
			ItemID:      id,
			FreedWeight: u.Weight,
			NewWeight:   s.ledger.TotalWeight(),
		})
	}
	for _, id := range newLayers {
		layer, _ := s.graph.Get(id)
		s.ledger.AddOrUpdate(Unit{
			ID:       id,
			Kind:     KindLayer,
			Weight:   layer.Weight,
			Priority: layer.Priority,
			Required: layer.Required,
			Metadata: layer.Metadata,
		})
		s.active[id] = true
		events = append(events, Event{
			Type:      EventItemAdded,
			Timestamp: now,
			ItemID:    id,
			NewWeight: s.ledger.TotalWeight(),
		})
	}
	for _, sk := range skipped {
		s.ledger.MarkUsed(sk.ID)
	}

	res.Success = true
	res.Activated = newLayers
	res.Skipped = skipped
	res.Deactivated = toDeactivate
	res.Evicted = plan.removed
	res.FreedWeight = deactWeight + plan.freed
	res.NewWeight = s.ledger.TotalWeight()
	if plan.warning != "" {
		res.Warnings = append(res.Warnings, plan.warning)
	}

	if len(newLayers) > 0 {
		events = append(events, Event{
			Type:      EventLayerActivated,
			Timestamp: now,
			LayerIDs:  newLayers,
			NewWeight: res.NewWeight,
		})
	}
	if len(plan.removed) > 0 {
		events = append(events, Event{
			Type:        EventOptimizationPerformed,
			Timestamp:   now,
			FreedWeight: plan.freed,
			NewWeight:   res.NewWeight,
			Detail:      fmt.Sprintf("freed %d to admit %d layer(s)", plan.freed, len(newLayers)),
		})
	}
	events = append(events, s.pressureEventsLocked()...)

	s.history.Append(HistoryEntry{
		Timestamp:   now,
		Operation:   "activate",
		Activated:   newLayers,
		Deactivated: toDeactivate,
		Removed:     plan.removed,
		FreedWeight: res.FreedWeight,
		NewWeight:   res.NewWeight,
		Warnings:    res.Warnings,
	})
	s.logf("activated %d layer(s), deactivated %d, evicted %d, weight %d/%d",
		len(newLayers), len(toDeactivate), len(plan.removed), res.NewWeight, s.opts.MaxWeight)
	s.mu.Unlock()

	s.publish(events)
	return res, nil
}

// DeactivateLayers runs the mirror path: resolve active dependents of the
// requested layers, cascade or reject, then commit the removals.
func (s *Scheduler) DeactivateLayers(req DeactivationRequest) (ActivationResult, error) {
	if len(req.LayerIDs) == 0 {
		return ActivationResult{}, fmt.Errorf("at least one layer id is required")
	}

	s.mu.Lock()
	now := s.clock.Now()
	res := ActivationResult{NewWeight: s.ledger.TotalWeight()}

	for _, id := range req.LayerIDs {
		if !s.graph.Has(id) {
			s.mu.Unlock()
			return res, fmt.Errorf("unknown layer: %s", id)
		}
	}

	targets := make(map[string]bool)
	var skipped []SkippedLayer
	for _, id := range req.LayerIDs {
		if !s.active[id] {
			skipped = append(skipped, SkippedLayer{ID: id, Reason: "not active"})
			continue
		}
		targets[id] = true
	}
	if len(targets) == 0 {
		res.Success = true
		res.Skipped = skipped
		s.mu.Unlock()
		return res, nil
	}

	all := s.cascadeDependentsLocked(targets)
	var extra []string
	for _, id := range all {
		if !targets[id] {
			extra = append(extra, id)
		}
	}
	if len(extra) > 0 && !req.CascadeDependents {
		res.Reason = ReasonDependentActive
		res.Conflicts = s.blockingPairsLocked(all, targets)
		s.mu.Unlock()
		return res, nil
	}

	var events []Event
	freed := 0
	for _, id := range all {
		freed += s.removeLayerUnitLocked(id)
		events = append(events, Event{
			Type:      EventItemRemoved,
			Timestamp: now,
			ItemID:    id,
			NewWeight: s.ledger.TotalWeight(),
		})
	}

	res.Success = true
	res.Deactivated = all
	res.Skipped = skipped
	res.FreedWeight = freed
	res.NewWeight = s.ledger.TotalWeight()

	events = append(events, Event{
		Type:        EventLayerDeactivated,
		Timestamp:   now,
		LayerIDs:    all,
		FreedWeight: freed,
		NewWeight:   res.NewWeight,
	})
	events = append(events, s.pressureEventsLocked()...)

	s.history.Append(HistoryEntry{
		Timestamp:   now,
		Operation:   "deactivate",
		Deactivated: all,
		FreedWeight: freed,
		NewWeight:   res.NewWeight,
	})
	s.logf("deactivated %d layer(s), weight %d/%d", len(all), res.NewWeight, s.opts.MaxWeight)
	s.mu.Unlock()

	s.publish(events)
	return res, nil
}

// Optimize evicts removable units until the ledger weight drops to
// targetWeight. A non-positive target defaults to the warning watermark
// (MaxWeight * WarningThreshold). Running out of candidates is reported as
// a warning, not an error.
func (s *Scheduler) Optimize(targetWeight int) OptimizationResult {
	s.mu.Lock()
	now := s.clock.Now()
	if targetWeight <= 0 {
		targetWeight = int(float64(s.opts.MaxWeight) * s.opts.WarningThreshold)
	}

	res := OptimizationResult{
		Strategy:  s.opts.Strategy,
		NewWeight: s.ledger.TotalWeight(),
	}
	targetFree := s.ledger.TotalWeight() - targetWeight
	if targetFree <= 0 {
		s.mu.Unlock()
		return res
	}

	exclude := s.loadBearingLocked()
	candidates := s.ledger.Removable(s.opts.MinRetention, exclude)
	plan := planEviction(s.opts.Strategy, candidates, targetFree, now)

	var events []Event
	for _, id := range plan.removed {
		u, _ := s.ledger.Get(id)
		s.ledger.Remove(id)
		delete(s.active, id)
		events = append(events, Event{
			Type:        EventItemRemoved,
			Timestamp:   now,
			ItemID:      id,
			FreedWeight: u.Weight,
			NewWeight:   s.ledger.TotalWeight(),
		})
	}

	res.Removed = plan.removed
	res.FreedWeight = plan.freed
	res.NewWeight = s.ledger.TotalWeight()
	if plan.warning != "" {
		res.Warnings = append(res.Warnings, plan.warning)
	}

	if len(plan.removed) > 0 {
		events = append(events, Event{
			Type:        EventOptimizationPerformed,
			Timestamp:   now,
			FreedWeight: plan.freed,
			NewWeight:   res.NewWeight,
			Detail:      fmt.Sprintf("target %d, freed %d", targetWeight, plan.freed),
		})
		s.history.Append(HistoryEntry{
			Timestamp:   now,
			Operation:   "optimize",
			Removed:     plan.removed,
			FreedWeight: plan.freed,
			NewWeight:   res.NewWeight,
			Warnings:    res.Warnings,
		})
		s.logf("optimized: freed %d, weight %d/%d", plan.freed, res.NewWeight, s.opts.MaxWeight)
	}
	events = append(events, s.pressureEventsLocked()...)
	s.mu.Unlock()

	s.publish(events)
	return res
}

// Statistics returns a read-only snapshot of the committed state.
func (s *Scheduler) Statistics() Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := s.ledger.TotalWeight()
	count := s.ledger.Count()
	mean := 0.0
	if count > 0 {
		mean = float64(total) / float64(count)
	}
	return Statistics{
		CurrentWeight: total,
		MaxWeight:     s.opts.MaxWeight,
		Pressure: ClassifyPressure(total, s.opts.MaxWeight,
			s.opts.WarningThreshold, s.opts.CriticalThreshold),
		ItemCount:  count,
		MeanWeight: mean,
		Heaviest:   s.ledger.Heaviest(5),
		OptimizationPotential: s.ledger.OptimizationPotential(
			s.opts.MinRetention, s.loadBearingLocked()),
		ActiveLayers: s.activeIDsLocked(),
	}
}

// Pressure returns the current pressure classification.
func (s *Scheduler) Pressure() Pressure {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ClassifyPressure(s.ledger.TotalWeight(), s.opts.MaxWeight,
		s.opts.WarningThreshold, s.opts.CriticalThreshold)
}

// History returns up to limit committed operations, most recent first.
func (s *Scheduler) History(limit int) []HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Recent(limit)
}

// activeIDsLocked returns the sorted active layer ids. Caller holds a lock.
func (s *Scheduler) activeIDsLocked() []string {
	ids := make([]string, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// loadBearingLocked returns the active layers some other active layer
// depends on. They are excluded from eviction so optimization can never
// break the dependency-closure invariant. Caller holds a lock.
func (s *Scheduler) loadBearingLocked() map[string]bool {
	bearing := make(map[string]bool)
	for id := range s.active {
		layer, ok := s.graph.Get(id)
		if !ok {
			continue
		}
		for _, dep := range layer.Dependencies {
			if s.active[dep] {
				bearing[dep] = true
			}
		}
	}
	return bearing
}

// cascadeDependentsLocked expands the seed set with every active layer
// that transitively depends on a member, returning the sorted union.
// Caller holds the write lock.
func (s *Scheduler) cascadeDependentsLocked(seeds map[string]bool) []string {
	set := make(map[string]bool, len(seeds))
	for id := range seeds {
		set[id] = true
	}
	for {
		ids := make([]string, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		grew := false
		for _, dep := range s.graph.Dependents(ids) {
			if s.active[dep] && !set[dep] {
				set[dep] = true
				grew = true
			}
		}
		if !grew {
			break
		}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// blockingPairsLocked maps each active dependent outside the request to the
// requested (or cascaded) layer it depends on, for conflict reporting.
func (s *Scheduler) blockingPairsLocked(all []string, targets map[string]bool) []ConflictPair {
	inAll := make(map[string]bool, len(all))
	for _, id := range all {
		inAll[id] = true
	}
	var pairs []ConflictPair
	for _, id := range all {
		if targets[id] {
			continue
		}
		layer, ok := s.graph.Get(id)
		if !ok {
			continue
		}
		for _, dep := range layer.Dependencies {
			if inAll[dep] {
				pairs = append(pairs, ConflictPair{RequestedID: dep, ActiveID: id})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].RequestedID != pairs[j].RequestedID {
			return pairs[i].RequestedID < pairs[j].RequestedID
		}
		return pairs[i].ActiveID < pairs[j].ActiveID
	})
	return pairs
}

// removeLayerUnitLocked drops a layer's unit from the ledger and the active
// set, clearing the required flag first since the removal is an explicit
// caller decision. Returns the freed weight. Caller holds the write lock.
func (s *Scheduler) removeLayerUnitLocked(id string) int {
	freed := 0
	if u, ok := s.ledger.Get(id); ok {
		if u.Required {
			u.Required = false
			s.ledger.AddOrUpdate(u)
		}
		freed = u.Weight
		s.ledger.Remove(id)
	}
	delete(s.active, id)
	return freed
}

// pressureEventsLocked re-evaluates pressure and returns a transition event
// when the level changed. Caller holds the write lock.
func (s *Scheduler) pressureEventsLocked() []Event {
	current := ClassifyPressure(s.ledger.TotalWeight(), s.opts.MaxWeight,
		s.opts.WarningThreshold, s.opts.CriticalThreshold)
	if !pressureChanged(s.lastPressure, current) {
		return nil
	}
	previous := s.lastPressure
	s.lastPressure = current
	return []Event{{
		Type:             EventPressureChanged,
		Timestamp:        s.clock.Now(),
		Pressure:         current,
		PreviousPressure: previous,
		NewWeight:        s.ledger.TotalWeight(),
	}}
}

// publish delivers events to all observers, outside the write lock.
func (s *Scheduler) publish(events []Event) {
	if len(events) == 0 {
		return
	}
	s.mu.RLock()
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.mu.RUnlock()

	for _, o := range observers {
		for _, e := range events {
			o.HandleEvent(e)
		}
	}
}

// logf writes a diagnostic line when a logger is configured.
func (s *Scheduler) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
