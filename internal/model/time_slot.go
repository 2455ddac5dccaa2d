package model

import "time"

// TimeSlot is a sub-span of an event, e.g. one session of a multi-day
// seminar.  It is owned by exactly one event.
type TimeSlot struct {
	ID        uint64     // time_slots.id
	EventID   uint64     // time_slots.event_id
	Begin     time.Time  // time_slots.begin_date
	End       time.Time  // time_slots.end_date
	EntryDate *time.Time // time_slots.entry_date (nullable)
	Room      string     // time_slots.room
	PlaceID   uint64     // time_slots.place_id
	Place     *Place
}

// SetSpan sets begin and end together; end must not lie before begin.
func (s *TimeSlot) SetSpan(begin, end time.Time) error {
	if !end.IsZero() && end.Before(begin) {
		return invalid(CodeEndBeforeBegin, "time_slots.end_date", "must not be before begin")
	}
	s.Begin, s.End = begin, end
	return nil
}

// SetEntryDate sets the time attendees are let in.  It may not be later
// than the begin of the slot.
func (s *TimeSlot) SetEntryDate(entry *time.Time) error {
	if entry != nil && !s.Begin.IsZero() && entry.After(s.Begin) {
		return invalid(CodeEntryAfterBegin, "time_slots.entry_date", "must not be after begin")
	}
	s.EntryDate = entry
	return nil
}

func (s *TimeSlot) HasEntryDate() bool { return s.EntryDate != nil }

func (s *TimeSlot) HasPlace() bool { return s.PlaceID > 0 }

func (s *TimeSlot) HasRoom() bool { return s.Room != "" }
