package model

// Day is one calendar date with the worker's working-hour bounds.
// Start and End are naive wall-clock times ("HH:MM"); Start is expected
// to precede End.
type Day struct {
	ID    int    `json:"id"`
	Date  string `json:"date"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// BusySlot is a committed interval within a day, referenced by day id.
// Start < End is expected but not enforced; malformed slots flow through
// the free-slot sweep unchanged.
type BusySlot struct {
	ID    int    `json:"id"`
	DayID int    `json:"day_id"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// Interval is a derived start/end pair of wall-clock times on one day.
type Interval struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Slot is a dated interval, the result of a duration search.
type Slot struct {
	Date  string `json:"date"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// Document is the wire shape served by the remote schedule source.
// Missing arrays decode to nil and are treated as empty.
type Document struct {
	Days      []Day      `json:"days"`
	Timeslots []BusySlot `json:"timeslots"`
}
