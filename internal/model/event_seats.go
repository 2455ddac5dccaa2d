package model

import (
	"sort"
	"time"
)

// RegisteredSeats sums the seats of all registrations that are not on the
// waiting list and adds the offline registrations.
func (e *Event) RegisteredSeats() int {
	seats := e.Record.OfflineRegistrations
	for _, r := range e.Relations.Registrations {
		if !r.OnQueue {
			seats += r.Seats
		}
	}
	return seats
}

// QueueRegistrations returns the registrations on the waiting list.
func (e *Event) QueueRegistrations() []*Registration {
	var out []*Registration
	for _, r := range e.Relations.Registrations {
		if r.OnQueue {
			out = append(out, r)
		}
	}
	return out
}

// HasUnlimitedVacancies is true when no maximum is configured.
func (e *Event) HasUnlimitedVacancies() bool { return e.Record.AttendeesMax == 0 }

// Vacancies returns the number of free seats, never negative.  Events
// without a maximum report 0 by convention; use HasVacancies.
func (e *Event) Vacancies() int {
	if e.HasUnlimitedVacancies() {
		return 0
	}
	if v := e.Record.AttendeesMax - e.RegisteredSeats(); v > 0 {
		return v
	}
	return 0
}

func (e *Event) HasVacancies() bool {
	return e.HasUnlimitedVacancies() || e.Vacancies() > 0
}

// IsFull is never true for events without a maximum.
func (e *Event) IsFull() bool {
	return !e.HasUnlimitedVacancies() && e.RegisteredSeats() >= e.Record.AttendeesMax
}

func (e *Event) HasEnoughRegistrations() bool {
	return e.RegisteredSeats() >= e.Record.AttendeesMin
}

// AttendeeNames collects the attendee names of all registrations and
// returns them sorted.
func (e *Event) AttendeeNames() []string {
	var names []string
	for _, r := range e.Relations.Registrations {
		names = append(names, r.AttendeeNames()...)
	}
	sort.Strings(names)
	return names
}

// EffectiveRegistrationDeadline is the registration deadline if set, else
// the begin date, else nil.
func (e *Event) EffectiveRegistrationDeadline() *time.Time {
	if e.Record.RegistrationDeadline != nil {
		return e.Record.RegistrationDeadline
	}
	return e.Record.BeginDate
}

func (e *Event) IsRegistrationDeadlineOverAt(now time.Time) bool {
	d := e.EffectiveRegistrationDeadline()
	return d != nil && !now.Before(*d)
}

func (e *Event) HasRegistrationBegunAt(now time.Time) bool {
	b := e.Record.RegistrationBegin
	return b == nil || !now.Before(*b)
}

// IsRegistrationPossibleAt decides whether a new registration may be made:
// the event needs registration, is not canceled, registration has begun
// and its deadline is not over, and there is either a free seat or a
// waiting list.
func (e *Event) IsRegistrationPossibleAt(now time.Time) bool {
	if !e.Record.NeedsRegistration || e.IsCanceled() {
		return false
	}
	if !e.HasRegistrationBegunAt(now) || e.IsRegistrationDeadlineOverAt(now) {
		return false
	}
	return e.HasVacancies() || e.Record.HasRegistrationQueue
}

// IsUnregistrationPossibleAt allows cancelling a registration until the
// unregistration deadline (falling back to the begin date).
func (e *Event) IsUnregistrationPossibleAt(now time.Time) bool {
	d := e.Record.UnregistrationDeadline
	if d == nil {
		d = e.Record.BeginDate
	}
	return d == nil || now.Before(*d)
}

// StatusAfterDeadline returns the status a planned event with automatic
// confirmation gets once its registration deadline has passed, and false
// when no change is due.
func (e *Event) StatusAfterDeadline(now time.Time) (int, bool) {
	if !e.Record.AutomaticConfirmation || e.Record.Status != StatusPlanned {
		return 0, false
	}
	if !e.IsRegistrationDeadlineOverAt(now) {
		return 0, false
	}
	if e.HasEnoughRegistrations() {
		return StatusConfirmed, true
	}
	return StatusCanceled, true
}
