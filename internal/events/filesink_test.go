package events

import (
	"testing"
	"time"

	"github.com/andywolf/ctxbudget/internal/budget"
)

func sampleRecords(ts time.Time) []Record {
	return []Record{
		{
			Timestamp:   ts,
			SchedulerID: "sched-1",
			Type:        budget.EventItemAdded,
			ItemID:      "git",
			NewWeight:   400,
		},
		{
			Timestamp:        ts,
			SchedulerID:      "sched-1",
			Type:             budget.EventPressureChanged,
			Pressure:         budget.PressureWarning,
			PreviousPressure: budget.PressureNormal,
			NewWeight:        8600,
		},
	}
}

func TestFileSink_WriteAndReadBack(t *testing.T) {
	dir := t.TempDir()
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	sink, err := NewFileSink(dir)
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}
	if err := sink.Write(sampleRecords(ts)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	records, err := ReadRecords(sink.Path())
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Type != budget.EventItemAdded || records[0].ItemID != "git" {
		t.Errorf("record[0] = %+v, want item_added for git", records[0])
	}
	if records[1].Pressure != budget.PressureWarning {
		t.Errorf("record[1].Pressure = %s, want warning", records[1].Pressure)
	}
}

func TestFileSink_AppendsAcrossReopens(t *testing.T) {
	dir := t.TempDir()
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		sink, err := NewFileSink(dir)
		if err != nil {
			t.Fatalf("NewFileSink: %v", err)
		}
		if err := sink.WriteOne(sampleRecords(ts)[0]); err != nil {
			t.Fatalf("WriteOne: %v", err)
		}
		if err := sink.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}

	records, err := ReadRecords(dir + "/" + DefaultFilename)
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records after two sessions, want 2", len(records))
	}
}

func TestFilterByType(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	records := sampleRecords(ts)

	got := FilterByType(records, budget.EventPressureChanged)
	if len(got) != 1 || got[0].Type != budget.EventPressureChanged {
		t.Errorf("FilterByType = %v, want only the pressure record", got)
	}

	// No types means no filtering.
	if got := FilterByType(records); len(got) != 2 {
		t.Errorf("FilterByType() = %d records, want 2", len(got))
	}
}

func TestSinkObserver_PersistsSchedulerEvents(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir)
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}

	s, err := budget.New(budget.Options{MaxWeight: 1000},
		budget.WithObserver(NewSinkObserver(sink, "sched-test", nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.AddItem("tool-a", budget.KindTool, 100, 0, false, nil); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	records, err := ReadRecords(sink.Path())
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	added := FilterByType(records, budget.EventItemAdded)
	if len(added) != 1 || added[0].ItemID != "tool-a" {
		t.Fatalf("records = %v, want one item_added for tool-a", records)
	}
	if added[0].SchedulerID != "sched-test" {
		t.Errorf("SchedulerID = %q, want sched-test", added[0].SchedulerID)
	}
}
