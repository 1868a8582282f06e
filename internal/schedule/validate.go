package schedule

import (
	"fmt"

	"github.com/md-rashed-zaman/slotfinder/internal/model"
)

// Issue is one problem found in a fetched schedule document.
type Issue struct {
	Kind   string
	Detail string
}

func (i Issue) String() string {
	return i.Kind + ": " + i.Detail
}

// ValidateDocument reports structural problems in a document: duplicate
// dates, inverted bounds, and busy slots that reference no day or overlap
// a sibling. It is a separate pass for operators and tests; the query path
// tolerates all of these (first match wins, the sweep absorbs overlaps).
func ValidateDocument(doc model.Document) []Issue {
	var issues []Issue

	seenDates := make(map[string]int, len(doc.Days))
	dayIDs := make(map[int]struct{}, len(doc.Days))
	for _, d := range doc.Days {
		if first, ok := seenDates[d.Date]; ok {
			issues = append(issues, Issue{
				Kind:   "duplicate_date",
				Detail: fmt.Sprintf("date %s appears on day %d and day %d", d.Date, first, d.ID),
			})
		} else {
			seenDates[d.Date] = d.ID
		}
		if d.Start >= d.End {
			issues = append(issues, Issue{
				Kind:   "inverted_day_bounds",
				Detail: fmt.Sprintf("day %d has start %s >= end %s", d.ID, d.Start, d.End),
			})
		}
		dayIDs[d.ID] = struct{}{}
	}

	byDay := make(map[int][]model.BusySlot)
	for _, slot := range doc.Timeslots {
		if _, ok := dayIDs[slot.DayID]; !ok {
			issues = append(issues, Issue{
				Kind:   "orphan_timeslot",
				Detail: fmt.Sprintf("timeslot %d references unknown day %d", slot.ID, slot.DayID),
			})
			continue
		}
		if slot.Start >= slot.End {
			issues = append(issues, Issue{
				Kind:   "inverted_timeslot",
				Detail: fmt.Sprintf("timeslot %d has start %s >= end %s", slot.ID, slot.Start, slot.End),
			})
		}
		byDay[slot.DayID] = append(byDay[slot.DayID], slot)
	}

	// Zero-padded HH:MM strings order lexicographically, so overlap checks
	// can compare the raw strings.
	for _, slots := range byDay {
		for i := 0; i < len(slots); i++ {
			for j := i + 1; j < len(slots); j++ {
				a, b := slots[i], slots[j]
				if a.Start < b.End && b.Start < a.End {
					issues = append(issues, Issue{
						Kind:   "overlapping_timeslots",
						Detail: fmt.Sprintf("timeslot %d overlaps timeslot %d on day %d", a.ID, b.ID, a.DayID),
					})
				}
			}
		}
	}

	return issues
}
