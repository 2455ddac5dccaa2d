package model

import (
	"strings"
	"time"
)

// Registration records one booking of an event.  It belongs to exactly one
// event and optionally to the front-end user who made it.  The price fields
// are a snapshot taken at booking time so later price changes on the event
// do not alter what the attendee owes.
type Registration struct {
	ID                   uint64        // registrations.id
	EventID              uint64        // registrations.event_id
	UserID               uint64        // registrations.user_id (0 for none)
	User                 *FrontEndUser // loaded user, may be nil
	Seats                int           // registrations.seats
	OnQueue              bool          // registrations.registration_queue
	RegisteredThemselves bool          // registrations.registered_themselves
	PriceCode            string        // registrations.price_code
	PriceCents           int64         // registrations.price_cents
	TotalPriceCents      int64         // registrations.total_price_cents
	AttendeesNames       string        // registrations.attendees_names, newline separated
	AdditionalPersons    []*FrontEndUser
	PaymentMethodID      uint64 // registrations.payment_method_id
	LodgingIDs           []uint64
	FoodIDs              []uint64
	CheckboxIDs          []uint64
	Notes                string    // registrations.notes
	KnownFrom            string    // registrations.known_from
	Interests            string    // registrations.interests
	Expectations         string    // registrations.expectations
	Background           string    // registrations.background_knowledge
	Paid                 bool      // registrations.paid
	CreatedAt            time.Time // registrations.created_at
	UpdatedAt            time.Time // registrations.updated_at
}

func (r *Registration) SetSeats(seats int) error {
	if err := requireNonNegative(CodeNegativeSeats, "registrations.seats", int64(seats)); err != nil {
		return err
	}
	r.Seats = seats
	return nil
}

// SetPrice stores the price snapshot for the given price code.
func (r *Registration) SetPrice(code string, cents int64) error {
	if !IsPriceCode(code) {
		return invalid(CodeInvalidPriceCode, "registrations.price_code", "unknown price code")
	}
	if err := requireNonNegative(CodeNegativePrice, "registrations.price_cents", cents); err != nil {
		return err
	}
	r.PriceCode, r.PriceCents = code, cents
	return nil
}

func (r *Registration) SetTotalPrice(cents int64) error {
	if err := requireNonNegative(CodeNegativeTotalPrice, "registrations.total_price_cents", cents); err != nil {
		return err
	}
	r.TotalPriceCents = cents
	return nil
}

// HasAdditionalPersons reports whether any attendee is linked as a user.
func (r *Registration) HasAdditionalPersons() bool { return len(r.AdditionalPersons) > 0 }

// AttendeeNames lists the people attending through this registration in
// registration order.  Linked additional persons replace the free-text
// names field entirely; the free text is only used when none are linked.
func (r *Registration) AttendeeNames() []string {
	var names []string
	if r.RegisteredThemselves && r.User != nil {
		names = append(names, r.User.DisplayName())
	}
	if r.HasAdditionalPersons() {
		for _, p := range r.AdditionalPersons {
			names = append(names, p.DisplayName())
		}
		return names
	}
	for _, line := range strings.Split(r.AttendeesNames, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	return names
}
