// Package queue defines the notification messages exchanged over RabbitMQ
// and the consumer that turns them into attendee e-mails.
package queue

import "time"

// NotificationQueue is the durable queue all notifications go through.
const NotificationQueue = "seminars.notifications"

// Message kinds.
const (
	KindRegistrationCreated   = "registration.created"
	KindRegistrationQueued    = "registration.queued"
	KindRegistrationCancelled = "registration.cancelled"
	KindRegistrationPromoted  = "registration.promoted"
	KindEventConfirmed        = "event.confirmed"
	KindEventCanceled         = "event.canceled"
)

// RegistrationEvent carries everything a consumer needs to notify an
// attendee without querying the database.
type RegistrationEvent struct {
	MessageID       string     `json:"message_id"`
	Kind            string     `json:"kind"`
	RegistrationID  uint64     `json:"registration_id,omitempty"`
	EventID         uint64     `json:"event_id"`
	EventTitle      string     `json:"event_title"`
	EventBegin      *time.Time `json:"event_begin,omitempty"`
	UserID          uint64     `json:"user_id,omitempty"`
	Email           string     `json:"email,omitempty"`
	Name            string     `json:"name,omitempty"`
	Seats           int        `json:"seats,omitempty"`
	TotalPriceCents int64      `json:"total_price_cents,omitempty"`
	OccurredAt      time.Time  `json:"occurred_at"`
}
