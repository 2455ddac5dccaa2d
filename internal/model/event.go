package model

import (
	"strconv"
	"time"
)

// Object types of an event record.
const (
	TypeComplete = 0 // a self-contained single event
	TypeTopic    = 1 // a template that dates derive their content from
	TypeDate     = 2 // one concrete occurrence of a topic
)

// Event statuses.
const (
	StatusPlanned   = 0
	StatusCanceled  = 1
	StatusConfirmed = 2
)

// EventRecord mirrors the columns of the `events` table.  Optional dates
// are pointers so nil maps to NULL.
type EventRecord struct {
	ID                          uint64     // events.id
	PID                         uint64     // events.pid
	ObjectType                  int        // events.object_type
	TopicID                     uint64     // events.topic_id (dates only)
	Title                       string     // events.title
	Subtitle                    string     // events.subtitle
	Teaser                      string     // events.teaser
	Description                 string     // events.description
	AdditionalInformation       string     // events.additional_information
	Notes                       string     // events.notes
	Image                       string     // events.image
	CreditPoints                int        // events.credit_points
	RegularPriceCents           int64      // events.price_regular
	RegularEarlyPriceCents      int64      // events.price_regular_early
	RegularBoardPriceCents      int64      // events.price_regular_board
	SpecialPriceCents           int64      // events.price_special
	SpecialEarlyPriceCents      int64      // events.price_special_early
	SpecialBoardPriceCents      int64      // events.price_special_board
	EventTypeID                 uint64     // events.event_type_id
	Status                      int        // events.status
	BeginDate                   *time.Time // events.begin_date
	EndDate                     *time.Time // events.end_date
	RegistrationBegin           *time.Time // events.registration_begin
	RegistrationDeadline        *time.Time // events.registration_deadline
	EarlyBirdDeadline           *time.Time // events.early_bird_deadline
	UnregistrationDeadline      *time.Time // events.unregistration_deadline
	DetailsPage                 string     // events.details_page
	AttendeesMin                int        // events.attendees_min
	AttendeesMax                int        // events.attendees_max, 0 = unlimited
	OfflineRegistrations        int        // events.offline_registrations
	NeedsRegistration           bool       // events.needs_registration
	AllowsMultipleRegistrations bool       // events.allows_multiple_registrations
	HasRegistrationQueue        bool       // events.queue_size
	AutomaticConfirmation       bool       // events.automatic_confirmation_cancelation
	Hidden                      bool       // events.hidden
	OwnerID                     uint64     // events.owner_feuser
	CreatedAt                   time.Time  // events.created_at
	UpdatedAt                   time.Time  // events.updated_at
}

// EventRelations holds the list relations stored for one event record.
type EventRelations struct {
	EventType      *EventType
	Categories     []*Category
	PaymentMethods []*PaymentMethod
	TargetGroups   []*TargetGroup
	Requirements   []*Event
	Dependencies   []*Event
	Places         []*Place
	Speakers       []*Speaker
	Organizers     []*Organizer
	TimeSlots      []*TimeSlot
	Registrations  []*Registration
	Lodgings       []*Lodging
	Foods          []*Food
	Checkboxes     []*Checkbox
}

// Event is the central record.  An event date with an attached topic
// reads and writes most descriptive data through the topic; see
// IsEventDate.  Record and Relations always hold the event's own storage.
type Event struct {
	Record    EventRecord
	Relations EventRelations
	topic     *Event
}

// IsEventDate reports whether the record is a date AND has a topic
// attached.  Only then are the descriptive accessors delegated.
func (e *Event) IsEventDate() bool {
	return e.Record.ObjectType == TypeDate && e.topic != nil
}

func (e *Event) IsTopic() bool { return e.Record.ObjectType == TypeTopic }

func (e *Event) IsSingleEvent() bool { return e.Record.ObjectType == TypeComplete }

// Topic returns the attached topic.  Asking anything but an event date for
// its topic is ErrInvalidCall.
func (e *Event) Topic() (*Event, error) {
	if !e.IsEventDate() {
		return nil, ErrInvalidCall
	}
	return e.topic, nil
}

// SetTopic attaches (or, with nil, detaches) the topic of a date record.
func (e *Event) SetTopic(t *Event) {
	e.topic = t
	if t == nil {
		e.Record.TopicID = 0
		return
	}
	e.Record.TopicID = t.Record.ID
}

// src is the event whose storage backs the delegated accessors.
func (e *Event) src() *Event {
	if e.IsEventDate() {
		return e.topic
	}
	return e
}

func (e *Event) SetObjectType(t int) error {
	switch t {
	case TypeComplete, TypeTopic, TypeDate:
		e.Record.ObjectType = t
		return nil
	}
	return invalid(CodeInvalidObjectType, "events.object_type", "unknown object type")
}

func (e *Event) Title() string { return e.Record.Title }

func (e *Event) SetTitle(title string) error {
	if err := requireTitle("events.title", title); err != nil {
		return err
	}
	e.Record.Title = title
	return nil
}

func (e *Event) Status() int { return e.Record.Status }

func (e *Event) SetStatus(s int) error {
	switch s {
	case StatusPlanned, StatusCanceled, StatusConfirmed:
		e.Record.Status = s
		return nil
	}
	return invalid(CodeInvalidStatus, "events.status", "unknown status")
}

func (e *Event) IsCanceled() bool { return e.Record.Status == StatusCanceled }

func (e *Event) IsConfirmed() bool { return e.Record.Status == StatusConfirmed }

// Delegated descriptive fields.

func (e *Event) Subtitle() string        { return e.src().Record.Subtitle }
func (e *Event) SetSubtitle(v string)    { e.src().Record.Subtitle = v }
func (e *Event) Teaser() string          { return e.src().Record.Teaser }
func (e *Event) SetTeaser(v string)      { e.src().Record.Teaser = v }
func (e *Event) Description() string     { return e.src().Record.Description }
func (e *Event) SetDescription(v string) { e.src().Record.Description = v }
func (e *Event) Notes() string           { return e.src().Record.Notes }
func (e *Event) SetNotes(v string)       { e.src().Record.Notes = v }
func (e *Event) Image() string           { return e.src().Record.Image }
func (e *Event) SetImage(v string)       { e.src().Record.Image = v }
func (e *Event) HasImage() bool          { return e.Image() != "" }

func (e *Event) AdditionalInformation() string { return e.src().Record.AdditionalInformation }

func (e *Event) SetAdditionalInformation(v string) { e.src().Record.AdditionalInformation = v }

func (e *Event) CreditPoints() int { return e.src().Record.CreditPoints }

func (e *Event) SetCreditPoints(v int) error {
	if err := requireNonNegative(CodeNegativeCreditPoints, "events.credit_points", int64(v)); err != nil {
		return err
	}
	e.src().Record.CreditPoints = v
	return nil
}

func (e *Event) HasCreditPoints() bool { return e.CreditPoints() > 0 }

// EventType is delegated as well: a date is of the same type as its topic.
func (e *Event) EventType() *EventType { return e.src().Relations.EventType }

func (e *Event) SetEventType(t *EventType) {
	s := e.src()
	s.Relations.EventType = t
	if t == nil {
		s.Record.EventTypeID = 0
		return
	}
	s.Record.EventTypeID = t.ID
}

func (e *Event) Categories() []*Category      { return e.src().Relations.Categories }
func (e *Event) SetCategories(c []*Category)  { e.src().Relations.Categories = c }
func (e *Event) TargetGroups() []*TargetGroup { return e.src().Relations.TargetGroups }
func (e *Event) Requirements() []*Event       { return e.src().Relations.Requirements }
func (e *Event) SetRequirements(v []*Event)   { e.src().Relations.Requirements = v }
func (e *Event) Dependencies() []*Event       { return e.src().Relations.Dependencies }
func (e *Event) SetDependencies(v []*Event)   { e.src().Relations.Dependencies = v }
func (e *Event) PaymentMethods() []*PaymentMethod {
	return e.src().Relations.PaymentMethods
}

func (e *Event) SetTargetGroups(v []*TargetGroup) { e.src().Relations.TargetGroups = v }

func (e *Event) SetPaymentMethods(v []*PaymentMethod) { e.src().Relations.PaymentMethods = v }

// Own (never delegated) fields.

func (e *Event) DetailsPage() string     { return e.Record.DetailsPage }
func (e *Event) SetDetailsPage(v string) { e.Record.DetailsPage = v }

func (e *Event) AttendeesMin() int { return e.Record.AttendeesMin }
func (e *Event) AttendeesMax() int { return e.Record.AttendeesMax }

func (e *Event) SetAttendeesMin(v int) error {
	if err := requireNonNegative(CodeNegativeAttendeesMin, "events.attendees_min", int64(v)); err != nil {
		return err
	}
	e.Record.AttendeesMin = v
	return nil
}

func (e *Event) SetAttendeesMax(v int) error {
	if err := requireNonNegative(CodeNegativeAttendeesMax, "events.attendees_max", int64(v)); err != nil {
		return err
	}
	e.Record.AttendeesMax = v
	return nil
}

func (e *Event) OfflineRegistrations() int { return e.Record.OfflineRegistrations }

func (e *Event) SetOfflineRegistrations(v int) error {
	if err := requireNonNegative(CodeNegativeOfflineRegs, "events.offline_registrations", int64(v)); err != nil {
		return err
	}
	e.Record.OfflineRegistrations = v
	return nil
}

func (e *Event) Registrations() []*Registration { return e.Relations.Registrations }

func (e *Event) SetRegistrations(r []*Registration) { e.Relations.Registrations = r }

func (e *Event) TimeSlots() []*TimeSlot { return e.Relations.TimeSlots }

func (e *Event) Places() []*Place { return e.Relations.Places }

func (e *Event) Speakers() []*Speaker { return e.Relations.Speakers }

func (e *Event) Organizers() []*Organizer { return e.Relations.Organizers }

// FirstOrganizer returns the organizer used as mail sender, or nil.
func (e *Event) FirstOrganizer() *Organizer {
	if len(e.Relations.Organizers) == 0 {
		return nil
	}
	return e.Relations.Organizers[0]
}

// CombinedSingleViewPage resolves the page showing the event's details:
// the event's own details page, else the page of its event type, else the
// page of the first category (in list order) that has one, else "".
func (e *Event) CombinedSingleViewPage() string {
	if p := e.DetailsPage(); p != "" {
		return p
	}
	if t := e.EventType(); t != nil && t.HasSingleViewPage() {
		return strconv.FormatUint(t.SingleViewPage, 10)
	}
	for _, c := range e.Categories() {
		if c.HasSingleViewPage() {
			return strconv.FormatUint(c.SingleViewPage, 10)
		}
	}
	return ""
}

func (e *Event) HasCombinedSingleViewPage() bool { return e.CombinedSingleViewPage() != "" }
