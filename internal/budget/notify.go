package budget

import "time"

// EventType identifies the category of a scheduler notification.
type EventType string

const (
	// EventItemAdded fires when a unit enters the ledger.
	EventItemAdded EventType = "item_added"
	// EventItemRemoved fires when a unit leaves the ledger, whether by
	// explicit removal or eviction.
	EventItemRemoved EventType = "item_removed"
	// EventLayerActivated fires once per activation commit.
	EventLayerActivated EventType = "layer_activated"
	// EventLayerDeactivated fires once per deactivation commit.
	EventLayerDeactivated EventType = "layer_deactivated"
	// EventPressureChanged fires on pressure transitions only.
	EventPressureChanged EventType = "pressure_changed"
	// EventOptimizationPerformed fires after an eviction pass.
	EventOptimizationPerformed EventType = "optimization_performed"
)

// Event is a scheduler notification. Events are emitted synchronously after
// commit and must not be used to mutate scheduler state from within the
// observer; they are fire-and-forget with respect to planner progress.
type Event struct {
	// Type categorizes the event.
	Type EventType `json:"type"`

	// Timestamp is when the triggering operation committed.
	Timestamp time.Time `json:"timestamp"`

	// ItemID is the affected unit (for item events).
	ItemID string `json:"item_id,omitempty"`

	// LayerIDs are the affected layers (for activation events).
	LayerIDs []string `json:"layer_ids,omitempty"`

	// Pressure and PreviousPressure describe a transition (for
	// pressure_changed events).
	Pressure         Pressure `json:"pressure,omitempty"`
	PreviousPressure Pressure `json:"previous_pressure,omitempty"`

	// FreedWeight and NewWeight capture the ledger movement where relevant.
	FreedWeight int `json:"freed_weight,omitempty"`
	NewWeight   int `json:"new_weight,omitempty"`

	// Detail is a short human-readable summary.
	Detail string `json:"detail,omitempty"`
}

// Observer receives scheduler notifications. Implementations must not call
// back into mutating scheduler operations; read-only calls are safe because
// events are delivered outside the scheduler's write lock.
type Observer interface {
	HandleEvent(Event)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(Event)

// HandleEvent calls f(e).
func (f ObserverFunc) HandleEvent(e Event) {
	f(e)
}
