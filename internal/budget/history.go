package budget

import (
	"time"

	"github.com/google/uuid"
)

// HistoryEntry is an immutable record of one committed operation.
type HistoryEntry struct {
	// ID is a generated entry identifier.
	ID string `json:"id"`

	// Timestamp is when the operation committed.
	Timestamp time.Time `json:"timestamp"`

	// Operation is "activate", "deactivate" or "optimize".
	Operation string `json:"operation"`

	// Activated, Deactivated and Removed list the affected unit ids.
	Activated   []string `json:"activated,omitempty"`
	Deactivated []string `json:"deactivated,omitempty"`
	Removed     []string `json:"removed,omitempty"`

	// FreedWeight and NewWeight capture the ledger movement.
	FreedWeight int `json:"freed_weight"`
	NewWeight   int `json:"new_weight"`

	Warnings []string `json:"warnings,omitempty"`
}

// History is an append-only, capacity-bounded log of committed operations.
// When full, the oldest entries are discarded first.
type History struct {
	capacity int
	entries  []HistoryEntry
}

// NewHistory creates a history ring with the given capacity. Non-positive
// capacities fall back to the default history size.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultOptions().HistorySize
	}
	return &History{capacity: capacity}
}

// Append records an entry, assigning it an id, and prunes the oldest
// entries beyond capacity.
func (h *History) Append(e HistoryEntry) {
	e.ID = uuid.NewString()
	h.entries = append(h.entries, e)
	if excess := len(h.entries) - h.capacity; excess > 0 {
		h.entries = h.entries[excess:]
	}
}

// Recent returns up to n entries, most recent first. Non-positive n returns
// all retained entries.
func (h *History) Recent(n int) []HistoryEntry {
	if n <= 0 || n > len(h.entries) {
		n = len(h.entries)
	}
	out := make([]HistoryEntry, 0, n)
	for i := len(h.entries) - 1; i >= len(h.entries)-n; i-- {
		out = append(out, h.entries[i])
	}
	return out
}

// Len returns the number of retained entries.
func (h *History) Len() int {
	return len(h.entries)
}
