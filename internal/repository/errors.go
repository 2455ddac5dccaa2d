// Package repository holds the MySQL persistence of events, registrations,
// auxiliary records and users.  The sentinel errors below let handlers
// tell the failure scenarios apart; each maps to one HTTP status.
package repository

import "errors"

var (
	// ErrEventNotFound is returned when no event with the given id exists.
	ErrEventNotFound = errors.New("event not found")
	// ErrRegistrationNotFound is returned for unknown registrations and
	// for registrations that belong to somebody else.
	ErrRegistrationNotFound = errors.New("registration not found")
	// ErrRecordNotFound is returned for unknown auxiliary records.
	ErrRecordNotFound = errors.New("record not found")
	// ErrUnknownKind is returned for auxiliary record kinds that do not exist.
	ErrUnknownKind = errors.New("unknown record kind")

	// ErrEventFull means no seats are left and the event has no waiting list.
	ErrEventFull = errors.New("event is fully booked")
	// ErrRegistrationClosed means registration has not begun, is over, or
	// the event does not take registrations at all.
	ErrRegistrationClosed = errors.New("registration is not possible")
	// ErrAlreadyRegistered is returned when a user registers twice for an
	// event that does not allow multiple registrations.
	ErrAlreadyRegistered = errors.New("already registered")

	// ErrForbidden is returned when the caller attempts an operation on a
	// resource they do not own.  Handlers translate it into 403.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict signals that an operation cannot proceed because of
	// dependent records, e.g. deleting a place that events still use.
	ErrConflict = errors.New("conflict")
	// ErrEmailExists is returned on duplicate e-mail or username.
	ErrEmailExists = errors.New("email already exists")
)
