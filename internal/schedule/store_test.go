package schedule

import (
	"errors"
	"testing"

	"github.com/md-rashed-zaman/slotfinder/internal/model"
)

func testDocument() model.Document {
	return model.Document{
		Days: []model.Day{
			{ID: 1, Date: "2024-10-10", Start: "09:00", End: "18:00"},
			{ID: 2, Date: "2024-10-11", Start: "08:00", End: "17:00"},
		},
		Timeslots: []model.BusySlot{
			{ID: 1, DayID: 1, Start: "11:00", End: "12:00"},
			{ID: 2, DayID: 2, Start: "09:30", End: "16:00"},
			{ID: 3, DayID: 1, Start: "14:00", End: "15:00"},
		},
	}
}

func TestStore_DayByDate(t *testing.T) {
	s := FromDocument(testDocument())

	d, ok := s.DayByDate("2024-10-11")
	if !ok {
		t.Fatal("expected day for 2024-10-11")
	}
	if d.ID != 2 || d.Start != "08:00" {
		t.Fatalf("unexpected day: %+v", d)
	}

	if _, ok := s.DayByDate("2024-10-12"); ok {
		t.Fatal("expected no day for 2024-10-12")
	}
}

func TestStore_DayByDate_DuplicateDateFirstWins(t *testing.T) {
	s := NewStore()
	s.Load([]model.Day{
		{ID: 7, Date: "2024-10-10", Start: "09:00", End: "12:00"},
		{ID: 8, Date: "2024-10-10", Start: "13:00", End: "18:00"},
	}, nil)

	d, ok := s.DayByDate("2024-10-10")
	if !ok {
		t.Fatal("expected day")
	}
	if d.ID != 7 {
		t.Fatalf("expected first loaded day to win, got id %d", d.ID)
	}
}

func TestStore_RequireDayByDate(t *testing.T) {
	s := FromDocument(testDocument())

	if _, err := s.RequireDayByDate("2024-10-10"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := s.RequireDayByDate("2024-10-12")
	if !errors.Is(err, ErrDateNotFound) {
		t.Fatalf("expected ErrDateNotFound, got %v", err)
	}
}

func TestStore_BusySlotsForDate(t *testing.T) {
	s := FromDocument(testDocument())

	slots := s.BusySlotsForDate("2024-10-10")
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	// Source order, not time order.
	if slots[0].ID != 1 || slots[1].ID != 3 {
		t.Fatalf("expected slots in load order, got %+v", slots)
	}

	if got := s.BusySlotsForDate("2024-10-12"); len(got) != 0 {
		t.Fatalf("expected no slots for unknown date, got %+v", got)
	}
}

func TestStore_LoadReplacesWholesale(t *testing.T) {
	s := FromDocument(testDocument())

	s.Load([]model.Day{
		{ID: 9, Date: "2024-12-01", Start: "10:00", End: "16:00"},
	}, nil)

	if _, ok := s.DayByDate("2024-10-10"); ok {
		t.Fatal("old dataset still visible after Load")
	}
	if _, ok := s.DayByDate("2024-12-01"); !ok {
		t.Fatal("new dataset not visible after Load")
	}
	if got := s.BusySlotsForDate("2024-12-01"); len(got) != 0 {
		t.Fatalf("expected no slots after reload, got %+v", got)
	}
}

func TestHolder_Swap(t *testing.T) {
	first := FromDocument(testDocument())
	h := NewHolder(first)

	if h.Current() != first {
		t.Fatal("holder does not serve initial store")
	}

	next := NewStore()
	next.Load([]model.Day{{ID: 1, Date: "2025-01-01", Start: "09:00", End: "17:00"}}, nil)
	h.Swap(next)

	if h.Current() != next {
		t.Fatal("holder does not serve swapped store")
	}

	h.Swap(nil)
	if h.Current() != next {
		t.Fatal("nil swap must not replace the current store")
	}
}

func TestValidateDocument(t *testing.T) {
	doc := model.Document{
		Days: []model.Day{
			{ID: 1, Date: "2024-10-10", Start: "09:00", End: "18:00"},
			{ID: 2, Date: "2024-10-10", Start: "10:00", End: "17:00"},
			{ID: 3, Date: "2024-10-11", Start: "18:00", End: "09:00"},
		},
		Timeslots: []model.BusySlot{
			{ID: 1, DayID: 1, Start: "11:00", End: "12:00"},
			{ID: 2, DayID: 1, Start: "11:30", End: "13:00"},
			{ID: 3, DayID: 9, Start: "09:00", End: "10:00"},
			{ID: 4, DayID: 1, Start: "15:00", End: "14:00"},
		},
	}

	issues := ValidateDocument(doc)
	counts := map[string]int{}
	for _, issue := range issues {
		counts[issue.Kind]++
	}

	want := map[string]int{
		"duplicate_date":        1,
		"inverted_day_bounds":   1,
		"orphan_timeslot":       1,
		"inverted_timeslot":     1,
		"overlapping_timeslots": 1,
	}
	for kind, n := range want {
		if counts[kind] != n {
			t.Errorf("expected %d %s issue(s), got %d (all: %v)", n, kind, counts[kind], issues)
		}
	}
}

func TestValidateDocument_CleanDocument(t *testing.T) {
	if issues := ValidateDocument(testDocument()); len(issues) != 0 {
		t.Fatalf("expected no issues, got %v", issues)
	}
}
