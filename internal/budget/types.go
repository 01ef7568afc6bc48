// Package budget implements the context-window budget scheduler. It tracks
// weighted capability units (tools and layers), resolves layer dependency
// closures and mutual-exclusion constraints, and evicts stale units when an
// activation would exceed the configured weight ceiling. The package performs
// no I/O; callers supply weights and consume notifications.
package budget

import (
	"fmt"
	"time"
)

// Kind identifies what a tracked unit represents.
type Kind string

const (
	// KindTool is an individually weighted tool.
	KindTool Kind = "tool"
	// KindLayer is a named bundle of capability with orchestration semantics.
	KindLayer Kind = "layer"
)

// Strategy selects the eviction ranking used when weight must be freed.
type Strategy string

const (
	// StrategyLRU evicts least-recently-used units first.
	StrategyLRU Strategy = "lru"
	// StrategyLFU evicts least-frequently-used units first.
	StrategyLFU Strategy = "lfu"
	// StrategyPriority evicts lowest-priority units first.
	StrategyPriority Strategy = "priority"
	// StrategySmart ranks by a composite of recency, frequency and priority.
	StrategySmart Strategy = "smart"
)

// ValidStrategies returns all recognized strategy values.
func ValidStrategies() []Strategy {
	return []Strategy{StrategyLRU, StrategyLFU, StrategyPriority, StrategySmart}
}

// IsValidStrategy checks if the given value is a recognized strategy.
func IsValidStrategy(s Strategy) bool {
	for _, v := range ValidStrategies() {
		if v == s {
			return true
		}
	}
	return false
}

// Pressure classifies current consumption against the configured thresholds.
type Pressure string

const (
	PressureNormal   Pressure = "normal"
	PressureWarning  Pressure = "warning"
	PressureCritical Pressure = "critical"
)

// Unit is a weighted, trackable thing consuming budget.
type Unit struct {
	// ID is the unique identity of the unit.
	ID string `json:"id"`

	// Kind is tool or layer.
	Kind Kind `json:"kind"`

	// Weight is the non-negative consumption cost charged against the budget.
	Weight int `json:"weight"`

	// Priority ranks importance; higher is more important.
	Priority int `json:"priority"`

	// Required units are never evicted and never counted as removable.
	Required bool `json:"required"`

	// Metadata is an opaque key-value map. The scheduler never inspects
	// the values; callers must not encode behavior against it.
	Metadata map[string]any `json:"metadata,omitempty"`

	// UsageCount increases monotonically on each MarkUsed.
	UsageCount int `json:"usage_count"`

	// AddedAt is when the unit entered the ledger.
	AddedAt time.Time `json:"added_at"`

	// LastUsedAt is refreshed by MarkUsed; initialized to AddedAt.
	LastUsedAt time.Time `json:"last_used_at"`
}

// Layer is a named bundle of capability with dependency and exclusivity
// relationships layered on top of a Unit.
type Layer struct {
	// ID is the unique layer identity.
	ID string `json:"id" yaml:"id"`

	// Description is a short human-readable summary, also consulted by
	// recommendation scoring.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Weight is the consumption cost charged when the layer is active.
	Weight int `json:"weight" yaml:"weight"`

	// Priority ranks importance; higher is more important.
	Priority int `json:"priority" yaml:"priority"`

	// Required layers are never evicted once active.
	Required bool `json:"required" yaml:"required"`

	// Dependencies lists layer ids that must be active whenever this
	// layer is active. Resolution is transitive and lazy: referenced
	// layers need not be defined until activation time.
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`

	// ExclusiveWith lists layer ids that must never be active at the
	// same time as this layer. The constraint is mutual: a declaration
	// by either side binds both.
	ExclusiveWith []string `json:"exclusive_with,omitempty" yaml:"exclusive_with,omitempty"`

	// Keywords feed recommendation scoring.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`

	// Metadata is opaque to the scheduler.
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Options configures a Scheduler instance.
type Options struct {
	// MaxWeight is the hard budget ceiling.
	MaxWeight int

	// WarningThreshold and CriticalThreshold are fractions of MaxWeight
	// (0-1) bounding the pressure classifications.
	WarningThreshold  float64
	CriticalThreshold float64

	// Strategy is the default eviction ranking.
	Strategy Strategy

	// AutoOptimize enables automatic eviction when an activation would
	// exceed MaxWeight, instead of outright rejection.
	AutoOptimize bool

	// MinRetention is the minimum age (since last use or addition) before
	// a non-required unit becomes eviction-eligible.
	MinRetention time.Duration

	// HistorySize bounds the committed-operation history ring.
	HistorySize int
}

// DefaultOptions returns the defaults applied for unset fields.
func DefaultOptions() Options {
	return Options{
		MaxWeight:         12000,
		WarningThreshold:  0.7,
		CriticalThreshold: 0.9,
		Strategy:          StrategySmart,
		AutoOptimize:      true,
		MinRetention:      30 * time.Second,
		HistorySize:       50,
	}
}

// Validate checks option consistency.
func (o Options) Validate() error {
	if o.MaxWeight <= 0 {
		return fmt.Errorf("max weight must be positive, got %d", o.MaxWeight)
	}
	if o.WarningThreshold <= 0 || o.WarningThreshold > 1 {
		return fmt.Errorf("warning threshold must be in (0, 1], got %g", o.WarningThreshold)
	}
	if o.CriticalThreshold <= 0 || o.CriticalThreshold > 1 {
		return fmt.Errorf("critical threshold must be in (0, 1], got %g", o.CriticalThreshold)
	}
	if o.WarningThreshold > o.CriticalThreshold {
		return fmt.Errorf("warning threshold %g exceeds critical threshold %g",
			o.WarningThreshold, o.CriticalThreshold)
	}
	if !IsValidStrategy(o.Strategy) {
		return fmt.Errorf("invalid strategy: %q", o.Strategy)
	}
	if o.MinRetention < 0 {
		return fmt.Errorf("min retention must not be negative, got %s", o.MinRetention)
	}
	return nil
}

// ReasonCode identifies why a planner request was rejected.
type ReasonCode string

const (
	// ReasonDependencyUnresolved means a requested layer's dependency has
	// no definition.
	ReasonDependencyUnresolved ReasonCode = "dependency_unresolved"
	// ReasonCyclicDependency means the dependency graph among the
	// requested layers contains a cycle.
	ReasonCyclicDependency ReasonCode = "cyclic_dependency"
	// ReasonExclusivityConflict means conflicting layers exist and
	// automatic deactivation was not authorized (or is impossible).
	ReasonExclusivityConflict ReasonCode = "exclusivity_conflict"
	// ReasonBudgetExceeded means the projected weight exceeds the ceiling
	// even after eviction, or eviction was not authorized.
	ReasonBudgetExceeded ReasonCode = "budget_exceeded"
	// ReasonDependentActive means a deactivation is blocked by an active
	// layer that depends on a requested layer.
	ReasonDependentActive ReasonCode = "dependent_active"
)

// ActivationRequest describes one activation attempt.
type ActivationRequest struct {
	// LayerIDs are the layers to activate. Must be non-empty.
	LayerIDs []string

	// AllowAutoDeactivate authorizes deactivating active layers that
	// conflict with the request.
	AllowAutoDeactivate bool

	// AllowOptimize authorizes eviction for this request even when the
	// scheduler-level AutoOptimize option is off.
	AllowOptimize bool
}

// DeactivationRequest describes one deactivation attempt.
type DeactivationRequest struct {
	// LayerIDs are the layers to deactivate.
	LayerIDs []string

	// CascadeDependents authorizes deactivating active layers that depend
	// on a requested layer. Without it such requests are rejected.
	CascadeDependents bool
}

// SkippedLayer records a layer that was part of a request but needed no
// state change, with the reason.
type SkippedLayer struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// ConflictPair records one mutual-exclusion conflict between a requested (or
// dependency) layer and a currently active layer.
type ConflictPair struct {
	RequestedID string `json:"requested_id"`
	ActiveID    string `json:"active_id"`
}

// ActivationResult is the outcome of one planner invocation. Planner
// failures are reported here (Success false plus Reason), never as errors,
// so callers can narrow their request and retry.
type ActivationResult struct {
	Success bool       `json:"success"`
	Reason  ReasonCode `json:"reason,omitempty"`

	// Activated lists layers newly made active, dependency-first.
	Activated []string `json:"activated,omitempty"`

	// Skipped lists requested layers that needed no change.
	Skipped []SkippedLayer `json:"skipped,omitempty"`

	// Deactivated lists layers removed from the active set.
	Deactivated []string `json:"deactivated,omitempty"`

	// Evicted lists units removed by the eviction engine to make room.
	Evicted []string `json:"evicted,omitempty"`

	// Conflicts lists mutual-exclusion pairs (on exclusivity rejection)
	// or blocking dependents (on deactivation rejection).
	Conflicts []ConflictPair `json:"conflicts,omitempty"`

	// Missing lists dependency ids with no definition.
	Missing []string `json:"missing,omitempty"`

	// FreedWeight is the total weight released by deactivation and eviction.
	FreedWeight int `json:"freed_weight"`

	// NewWeight is the ledger total after commit (or the unchanged total
	// on rejection).
	NewWeight int `json:"new_weight"`

	// RequiredReduction reports, on budget rejection, how much weight
	// still had to be freed.
	RequiredReduction int `json:"required_reduction,omitempty"`

	Warnings []string `json:"warnings,omitempty"`
}

// OptimizationResult is the outcome of one optimization pass.
type OptimizationResult struct {
	// Removed lists evicted unit ids in removal order.
	Removed []string `json:"removed,omitempty"`

	// FreedWeight is the total weight released.
	FreedWeight int `json:"freed_weight"`

	// NewWeight is the ledger total after the pass.
	NewWeight int `json:"new_weight"`

	// Strategy is the ranking that was applied.
	Strategy Strategy `json:"strategy"`

	// Warnings reports a target that could not be fully met. Running out
	// of candidates is not an error.
	Warnings []string `json:"warnings,omitempty"`
}

// ItemWeight pairs a unit id with its weight, for statistics reporting.
type ItemWeight struct {
	ID     string `json:"id"`
	Weight int    `json:"weight"`
}

// Statistics is a read-only snapshot of ledger state.
type Statistics struct {
	CurrentWeight int      `json:"current_weight"`
	MaxWeight     int      `json:"max_weight"`
	Pressure      Pressure `json:"pressure"`
	ItemCount     int      `json:"item_count"`
	MeanWeight    float64  `json:"mean_weight"`

	// Heaviest lists the top heaviest tracked units.
	Heaviest []ItemWeight `json:"heaviest,omitempty"`

	// OptimizationPotential is the summed weight of all currently
	// removable (non-required, retention-eligible) units.
	OptimizationPotential int `json:"optimization_potential"`

	// ActiveLayers lists currently active layer ids, sorted.
	ActiveLayers []string `json:"active_layers,omitempty"`
}

// Recommendation ranks an inactive layer against a free-text context.
type Recommendation struct {
	LayerID string `json:"layer_id"`
	Score   int    `json:"score"`
	Reason  string `json:"reason"`
}
