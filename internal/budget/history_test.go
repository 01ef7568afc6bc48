package budget

import (
	"fmt"
	"testing"
	"time"
)

func TestHistory_BoundedOldestFirstOut(t *testing.T) {
	h := NewHistory(3)
	for i := 1; i <= 5; i++ {
		h.Append(HistoryEntry{
			Operation: "activate",
			NewWeight: i,
			Timestamp: time.Date(2025, 6, 1, 12, 0, i, 0, time.UTC),
		})
	}

	if h.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", h.Len())
	}

	// Most recent first.
	got := h.Recent(0)
	wantWeights := []int{5, 4, 3}
	for i, w := range wantWeights {
		if got[i].NewWeight != w {
			t.Errorf("Recent[%d].NewWeight = %d, want %d", i, got[i].NewWeight, w)
		}
	}
}

func TestHistory_RecentLimit(t *testing.T) {
	h := NewHistory(10)
	for i := 0; i < 4; i++ {
		h.Append(HistoryEntry{Operation: fmt.Sprintf("op-%d", i)})
	}

	got := h.Recent(2)
	if len(got) != 2 {
		t.Fatalf("Recent(2) returned %d entries", len(got))
	}
	if got[0].Operation != "op-3" || got[1].Operation != "op-2" {
		t.Errorf("Recent(2) = [%s, %s], want [op-3, op-2]", got[0].Operation, got[1].Operation)
	}

	// Limit larger than retained entries returns everything.
	if got := h.Recent(100); len(got) != 4 {
		t.Errorf("Recent(100) returned %d entries, want 4", len(got))
	}
}

func TestHistory_AssignsIDs(t *testing.T) {
	h := NewHistory(5)
	h.Append(HistoryEntry{Operation: "activate"})
	h.Append(HistoryEntry{Operation: "optimize"})

	entries := h.Recent(0)
	if entries[0].ID == "" || entries[1].ID == "" {
		t.Fatal("history entries missing generated ids")
	}
	if entries[0].ID == entries[1].ID {
		t.Error("history entries share an id")
	}
}
