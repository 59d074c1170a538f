package domain

import (
	"time"

	"github.com/google/uuid"
)

// SlotStatus is the lifecycle state of a bookable slot.
type SlotStatus string

const (
	SlotOpen    SlotStatus = "open"
	SlotPending SlotStatus = "pending"
	SlotBooked  SlotStatus = "booked"
	SlotClosed  SlotStatus = "closed"
)

// Valid reports whether s is one of the four known statuses.
func (s SlotStatus) Valid() bool {
	switch s {
	case SlotOpen, SlotPending, SlotBooked, SlotClosed:
		return true
	}
	return false
}

// slotTransitions lists every allowed status change. Anything not listed is
// a conflict.
var slotTransitions = map[SlotStatus][]SlotStatus{
	SlotOpen:    {SlotPending, SlotClosed},
	SlotPending: {SlotBooked, SlotOpen},
	SlotBooked:  {SlotClosed},
}

// CanTransition reports whether a slot may move from one status to another.
func CanTransition(from, to SlotStatus) bool {
	for _, next := range slotTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SourcesFor returns the statuses from which a slot may move to `to`.
// Repos use it to build compare-and-set updates.
func SourcesFor(to SlotStatus) []SlotStatus {
	var out []SlotStatus
	for _, from := range []SlotStatus{SlotOpen, SlotPending, SlotBooked, SlotClosed} {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// Slot is a guide-defined bookable time window of fixed duration.
// DurationHours is always one of the pricing tiers (4, 6 or 8).
type Slot struct {
	ID            uuid.UUID
	GuideID       uuid.UUID
	StartTime     time.Time
	DurationHours int
	Status        SlotStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// EndTime is the exclusive end of the slot.
func (s Slot) EndTime() time.Time {
	return s.StartTime.Add(time.Duration(s.DurationHours) * time.Hour)
}

// SlotFilter selects a guide's slots whose start time falls in [From, To).
// A nil Status matches every status.
type SlotFilter struct {
	GuideID uuid.UUID
	From    time.Time
	To      time.Time
	Status  *SlotStatus
}

// DaySlots is one calendar cell: every slot whose start time falls on Date in
// the guide's timezone, ordered by start time.
type DaySlots struct {
	Date  string // "2006-01-02"
	Slots []Slot
}

// SlotCalendar is a listed range of slots plus the same slots bucketed by day.
type SlotCalendar struct {
	Slots []Slot
	Days  []DaySlots
}

// GroupByDay buckets slots by the calendar date of their start time in loc.
// Slots must already be ordered by start time; buckets come out in date order.
func GroupByDay(slots []Slot, loc *time.Location) []DaySlots {
	days := []DaySlots{}
	for _, s := range slots {
		date := s.StartTime.In(loc).Format(time.DateOnly)
		if n := len(days); n > 0 && days[n-1].Date == date {
			days[n-1].Slots = append(days[n-1].Slots, s)
			continue
		}
		days = append(days, DaySlots{Date: date, Slots: []Slot{s}})
	}
	return days
}
