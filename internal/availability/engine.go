// Package availability computes free and busy intervals for a single
// worker from a loaded schedule. All computations are stateless and
// re-derive their result from the current store contents on every call.
package availability

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/md-rashed-zaman/slotfinder/internal/model"
)

var (
	// ErrNoScheduleData means the store holds zero days.
	ErrNoScheduleData = errors.New("no days in schedule")
	// ErrNoSlotFound means no day has a free span long enough.
	ErrNoSlotFound = errors.New("no slot available for requested duration")
)

const (
	clockLayout = "15:04"
	stampLayout = "2006-01-02 15:04"
)

// Source is the schedule snapshot the engine queries against. It is
// satisfied by *schedule.Store.
type Source interface {
	Days() []model.Day
	RequireDayByDate(date string) (model.Day, error)
	BusySlotsForDate(date string) []model.BusySlot
}

type Engine struct {
	src Source
}

func NewEngine(src Source) *Engine {
	return &Engine{src: src}
}

// BusySlots returns the busy intervals recorded for date, in storage
// order. An unknown date is not an error: it yields an empty result.
func (e *Engine) BusySlots(date string) []model.Interval {
	slots := e.src.BusySlotsForDate(date)
	busy := make([]model.Interval, 0, len(slots))
	for _, s := range slots {
		busy = append(busy, model.Interval{Start: s.Start, End: s.End})
	}
	return busy
}

// FreeSlots returns the maximal intervals within the day's working bounds
// not covered by any busy slot, in chronological order.
//
// The sweep keeps a cursor at the end of covered time: each busy interval
// ahead of the cursor emits the gap before it, and the cursor only ever
// moves forward (max with the busy end), which absorbs overlapping and
// fully-contained busy intervals without emitting negative gaps. Busy
// intervals at or beyond the day bounds truncate the result by the same
// rule.
func (e *Engine) FreeSlots(date string) ([]model.Interval, error) {
	day, err := e.src.RequireDayByDate(date)
	if err != nil {
		return nil, err
	}

	dayStart, err := parseStamp(date, day.Start)
	if err != nil {
		return nil, err
	}
	dayEnd, err := parseStamp(date, day.End)
	if err != nil {
		return nil, err
	}

	busy, err := e.busyTimes(date)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(busy, func(i, j int) bool {
		return busy[i].start.Before(busy[j].start)
	})

	free := []model.Interval{}
	cursor := dayStart
	for _, b := range busy {
		if cursor.Before(b.start) {
			free = append(free, model.Interval{
				Start: cursor.Format(clockLayout),
				End:   b.start.Format(clockLayout),
			})
		}
		if b.end.After(cursor) {
			cursor = b.end
		}
	}
	if cursor.Before(dayEnd) {
		free = append(free, model.Interval{
			Start: cursor.Format(clockLayout),
			End:   dayEnd.Format(clockLayout),
		})
	}
	return free, nil
}

// IsAvailable reports whether [start, end) on date collides with no busy
// slot. Intervals are half-open: an interval ending exactly where a busy
// slot begins (or starting where one ends) is not a conflict.
//
// The day must exist, but the interval is not checked against the day's
// working bounds: a request entirely outside working hours that misses
// every busy slot still reports available.
func (e *Engine) IsAvailable(date, start, end string) (bool, error) {
	if _, err := e.src.RequireDayByDate(date); err != nil {
		return false, err
	}

	reqStart, err := parseStamp(date, start)
	if err != nil {
		return false, err
	}
	reqEnd, err := parseStamp(date, end)
	if err != nil {
		return false, err
	}

	busy, err := e.busyTimes(date)
	if err != nil {
		return false, err
	}
	for _, b := range busy {
		if reqStart.Before(b.end) && b.start.Before(reqEnd) {
			return false, nil
		}
	}
	return true, nil
}

// FindSlot returns the earliest slot of the requested duration across all
// known days: days are scanned in ascending date order, free slots within
// a day in chronological order, and the returned end is the slot start
// plus exactly the requested duration, not the end of the free span.
func (e *Engine) FindSlot(durationMinutes int) (model.Slot, error) {
	days := e.src.Days()
	if len(days) == 0 {
		return model.Slot{}, ErrNoScheduleData
	}

	// ISO dates order lexicographically.
	sorted := make([]model.Day, len(days))
	copy(sorted, days)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date < sorted[j].Date
	})

	duration := time.Duration(durationMinutes) * time.Minute
	for _, day := range sorted {
		free, err := e.FreeSlots(day.Date)
		if err != nil {
			return model.Slot{}, err
		}
		for _, slot := range free {
			slotStart, err := parseStamp(day.Date, slot.Start)
			if err != nil {
				return model.Slot{}, err
			}
			slotEnd, err := parseStamp(day.Date, slot.End)
			if err != nil {
				return model.Slot{}, err
			}
			if slotEnd.Sub(slotStart) >= duration {
				return model.Slot{
					Date:  day.Date,
					Start: slot.Start,
					End:   slotStart.Add(duration).Format(clockLayout),
				}, nil
			}
		}
	}
	return model.Slot{}, fmt.Errorf("%w: %d minutes", ErrNoSlotFound, durationMinutes)
}

type timeRange struct {
	start time.Time
	end   time.Time
}

func (e *Engine) busyTimes(date string) ([]timeRange, error) {
	slots := e.src.BusySlotsForDate(date)
	busy := make([]timeRange, 0, len(slots))
	for _, s := range slots {
		start, err := parseStamp(date, s.Start)
		if err != nil {
			return nil, err
		}
		end, err := parseStamp(date, s.End)
		if err != nil {
			return nil, err
		}
		busy = append(busy, timeRange{start: start, end: end})
	}
	return busy, nil
}

func parseStamp(date, clock string) (time.Time, error) {
	t, err := time.Parse(stampLayout, date+" "+clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q on %s: %w", clock, date, err)
	}
	return t, nil
}
