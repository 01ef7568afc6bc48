// Package events records scheduler notifications as a JSONL audit trail.
// It defines a flat Record type derived from budget.Event, a file sink for
// appending records, and helpers for reading them back for analysis.
package events

import (
	"time"

	"github.com/andywolf/ctxbudget/internal/budget"
)

// Record is the persisted form of one scheduler notification. The shape is
// flat and stable so the JSONL files stay greppable across versions.
type Record struct {
	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// SchedulerID identifies the scheduler instance that emitted the event.
	SchedulerID string `json:"scheduler_id"`

	// Type categorizes the event (item_added, pressure_changed, etc.).
	Type budget.EventType `json:"type"`

	// ItemID is the affected unit (for item_added / item_removed events).
	ItemID string `json:"item_id,omitempty"`

	// LayerIDs lists the affected layers (for activation events).
	LayerIDs []string `json:"layer_ids,omitempty"`

	// Pressure and PreviousPressure carry the transition (for
	// pressure_changed events).
	Pressure         budget.Pressure `json:"pressure,omitempty"`
	PreviousPressure budget.Pressure `json:"previous_pressure,omitempty"`

	// FreedWeight is the weight released by the operation, if any.
	FreedWeight int `json:"freed_weight,omitempty"`

	// NewWeight is the ledger total after the operation.
	NewWeight int `json:"new_weight"`

	// Detail is a short human-readable annotation.
	Detail string `json:"detail,omitempty"`
}

// FromEvent converts a scheduler notification into a persistable Record.
func FromEvent(e budget.Event, schedulerID string) Record {
	return Record{
		Timestamp:        e.Timestamp,
		SchedulerID:      schedulerID,
		Type:             e.Type,
		ItemID:           e.ItemID,
		LayerIDs:         e.LayerIDs,
		Pressure:         e.Pressure,
		PreviousPressure: e.PreviousPressure,
		FreedWeight:      e.FreedWeight,
		NewWeight:        e.NewWeight,
		Detail:           e.Detail,
	}
}
