package budget

import (
	"testing"
	"time"
)

func testClock() *FakeClock {
	return NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
}

func TestLedger_TotalWeightTracksUnits(t *testing.T) {
	clock := testClock()
	l := NewLedger(clock)

	l.AddOrUpdate(Unit{ID: "a", Kind: KindTool, Weight: 10})
	l.AddOrUpdate(Unit{ID: "b", Kind: KindTool, Weight: 25})
	l.AddOrUpdate(Unit{ID: "c", Kind: KindLayer, Weight: 5})

	if got := l.TotalWeight(); got != 40 {
		t.Fatalf("TotalWeight() = %d, want 40", got)
	}

	// Updating replaces the tracked weight, not adds to it.
	l.AddOrUpdate(Unit{ID: "b", Kind: KindTool, Weight: 15})
	if got := l.TotalWeight(); got != 30 {
		t.Fatalf("TotalWeight() after update = %d, want 30", got)
	}

	if !l.Remove("a") {
		t.Fatal("Remove(a) = false, want true")
	}
	if got := l.TotalWeight(); got != 20 {
		t.Fatalf("TotalWeight() after remove = %d, want 20", got)
	}

	// Sum property: total equals the sum over tracked units.
	sum := 0
	for _, u := range l.Units() {
		sum += u.Weight
	}
	if sum != l.TotalWeight() {
		t.Errorf("sum of unit weights = %d, total = %d", sum, l.TotalWeight())
	}
}

func TestLedger_RemoveAbsentAndRequired(t *testing.T) {
	l := NewLedger(testClock())

	if l.Remove("ghost") {
		t.Error("Remove(ghost) = true, want false for absent unit")
	}

	l.AddOrUpdate(Unit{ID: "core", Kind: KindTool, Weight: 50, Required: true})
	if l.Remove("core") {
		t.Error("Remove(core) = true, want false for required unit")
	}
	if !l.Has("core") {
		t.Error("required unit disappeared from ledger")
	}

	// Clearing the flag first makes removal possible.
	u, _ := l.Get("core")
	u.Required = false
	l.AddOrUpdate(u)
	if !l.Remove("core") {
		t.Error("Remove(core) = false after clearing required flag")
	}
}

func TestLedger_MarkUsedMonotonic(t *testing.T) {
	clock := testClock()
	l := NewLedger(clock)
	l.AddOrUpdate(Unit{ID: "a", Kind: KindTool, Weight: 1})

	before, _ := l.Get("a")
	clock.Advance(5 * time.Second)
	l.MarkUsed("a")
	after, _ := l.Get("a")

	if after.UsageCount != before.UsageCount+1 {
		t.Errorf("UsageCount = %d, want %d", after.UsageCount, before.UsageCount+1)
	}
	if !after.LastUsedAt.After(before.LastUsedAt) {
		t.Errorf("LastUsedAt did not advance: before=%v after=%v", before.LastUsedAt, after.LastUsedAt)
	}

	// Absent id is a no-op, not a panic.
	l.MarkUsed("ghost")
}

func TestLedger_UpdatePreservesUsageMetadata(t *testing.T) {
	clock := testClock()
	l := NewLedger(clock)
	l.AddOrUpdate(Unit{ID: "a", Kind: KindTool, Weight: 10})
	clock.Advance(time.Second)
	l.MarkUsed("a")
	used, _ := l.Get("a")

	clock.Advance(time.Second)
	l.AddOrUpdate(Unit{ID: "a", Kind: KindTool, Weight: 20, Priority: 3})
	got, _ := l.Get("a")

	if got.UsageCount != 1 {
		t.Errorf("UsageCount after update = %d, want 1", got.UsageCount)
	}
	if !got.LastUsedAt.Equal(used.LastUsedAt) {
		t.Errorf("LastUsedAt changed on update: %v -> %v", used.LastUsedAt, got.LastUsedAt)
	}
	if got.Weight != 20 || got.Priority != 3 {
		t.Errorf("update did not take: weight=%d priority=%d", got.Weight, got.Priority)
	}
}

func TestLedger_CanAddAndRequiredReduction(t *testing.T) {
	l := NewLedger(testClock())
	l.AddOrUpdate(Unit{ID: "a", Kind: KindTool, Weight: 60})

	tests := []struct {
		name      string
		weight    int
		canAdd    bool
		reduction int
	}{
		{"fits exactly", 40, true, 0},
		{"fits with room", 10, true, 0},
		{"over by ten", 50, false, 10},
		{"zero weight", 0, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := l.CanAdd(tt.weight, 100); got != tt.canAdd {
				t.Errorf("CanAdd(%d, 100) = %t, want %t", tt.weight, got, tt.canAdd)
			}
			if got := l.RequiredReduction(tt.weight, 100); got != tt.reduction {
				t.Errorf("RequiredReduction(%d, 100) = %d, want %d", tt.weight, got, tt.reduction)
			}
		})
	}
}

func TestLedger_RemovableHonorsRetentionAndRequired(t *testing.T) {
	clock := testClock()
	l := NewLedger(clock)
	l.AddOrUpdate(Unit{ID: "old", Kind: KindTool, Weight: 10})
	l.AddOrUpdate(Unit{ID: "pinned", Kind: KindTool, Weight: 10, Required: true})

	clock.Advance(time.Minute)
	l.AddOrUpdate(Unit{ID: "fresh", Kind: KindTool, Weight: 10})

	got := l.Removable(30*time.Second, nil)
	if len(got) != 1 || got[0].ID != "old" {
		t.Fatalf("Removable() = %v, want only [old]", got)
	}

	// Excluded ids never appear even when eligible.
	got = l.Removable(30*time.Second, map[string]bool{"old": true})
	if len(got) != 0 {
		t.Fatalf("Removable() with exclusion = %v, want empty", got)
	}

	if pot := l.OptimizationPotential(30*time.Second, nil); pot != 10 {
		t.Errorf("OptimizationPotential() = %d, want 10", pot)
	}
}

func TestLedger_Heaviest(t *testing.T) {
	l := NewLedger(testClock())
	l.AddOrUpdate(Unit{ID: "a", Kind: KindTool, Weight: 5})
	l.AddOrUpdate(Unit{ID: "b", Kind: KindTool, Weight: 50})
	l.AddOrUpdate(Unit{ID: "c", Kind: KindTool, Weight: 20})
	l.AddOrUpdate(Unit{ID: "d", Kind: KindTool, Weight: 50})

	got := l.Heaviest(3)
	if len(got) != 3 {
		t.Fatalf("Heaviest(3) returned %d items", len(got))
	}
	// Ties break by id: b before d.
	want := []string{"b", "d", "c"}
	for i, w := range want {
		if got[i].ID != w {
			t.Errorf("Heaviest[%d] = %s, want %s", i, got[i].ID, w)
		}
	}
}
