package schedule

import (
	"errors"
	"fmt"

	"github.com/md-rashed-zaman/slotfinder/internal/model"
)

// ErrDateNotFound is returned when a requested date has no matching day.
var ErrDateNotFound = errors.New("date not found in schedule")

// Store holds one fetched schedule dataset: the worker's days and the busy
// slots belonging to them. A Store is read-only after Load; callers that
// need live replacement swap whole instances through a Holder instead of
// mutating a shared one.
type Store struct {
	days    []model.Day
	slots   []model.BusySlot
	byDayID map[int][]model.BusySlot
}

func NewStore() *Store {
	return &Store{byDayID: map[int][]model.BusySlot{}}
}

// FromDocument builds a loaded store from a fetched schedule document.
func FromDocument(doc model.Document) *Store {
	s := NewStore()
	s.Load(doc.Days, doc.Timeslots)
	return s
}

// Load replaces the stored collections wholesale. There is no partial
// update: every query after Load sees only the new dataset. The index from
// day id to busy slots preserves the source order of the slots.
func (s *Store) Load(days []model.Day, slots []model.BusySlot) {
	s.days = days
	s.slots = slots
	s.byDayID = make(map[int][]model.BusySlot, len(days))
	for _, slot := range slots {
		s.byDayID[slot.DayID] = append(s.byDayID[slot.DayID], slot)
	}
}

// Days returns the stored days in insertion order.
func (s *Store) Days() []model.Day {
	return s.days
}

// DayByDate returns the first day whose date matches, in insertion order.
// If duplicate dates were loaded, the first one wins; duplicates are not
// rejected here (ValidateDocument reports them).
func (s *Store) DayByDate(date string) (model.Day, bool) {
	for _, d := range s.days {
		if d.Date == date {
			return d, true
		}
	}
	return model.Day{}, false
}

// RequireDayByDate is DayByDate for callers that need the day's working
// bounds: an unknown date is an error, not an empty result.
func (s *Store) RequireDayByDate(date string) (model.Day, error) {
	d, ok := s.DayByDate(date)
	if !ok {
		return model.Day{}, fmt.Errorf("%w: %s", ErrDateNotFound, date)
	}
	return d, nil
}

// BusySlotsForDate returns every busy slot belonging to the day matching
// date, in the order they were loaded. Unknown dates yield nil.
func (s *Store) BusySlotsForDate(date string) []model.BusySlot {
	d, ok := s.DayByDate(date)
	if !ok {
		return nil
	}
	return s.byDayID[d.ID]
}
