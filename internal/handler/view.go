package handler

import (
	"time"

	"github.com/iliyamo/seminars/internal/model"
	"github.com/iliyamo/seminars/internal/repository"
)

// Response DTOs.  Events are rendered through their accessors so dates
// show the descriptive data of their topic.

type refView struct {
	ID    uint64 `json:"id"`
	Title string `json:"title"`
}

type placeView struct {
	ID         uint64 `json:"id"`
	Title      string `json:"title"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	Country    string `json:"country,omitempty"`
	Directions string `json:"directions,omitempty"`
}

type speakerView struct {
	ID           uint64 `json:"id"`
	Name         string `json:"name"`
	Organization string `json:"organization,omitempty"`
	Homepage     string `json:"homepage,omitempty"`
	Description  string `json:"description,omitempty"`
}

type organizerView struct {
	ID       uint64 `json:"id"`
	Title    string `json:"title"`
	Homepage string `json:"homepage,omitempty"`
	Email    string `json:"email,omitempty"`
}

type timeSlotView struct {
	ID        uint64     `json:"id"`
	Begin     time.Time  `json:"begin"`
	End       time.Time  `json:"end"`
	EntryDate *time.Time `json:"entry_date,omitempty"`
	Room      string     `json:"room,omitempty"`
	Place     *refView   `json:"place,omitempty"`
}

func newTimeSlotView(s *model.TimeSlot) timeSlotView {
	sv := timeSlotView{ID: s.ID, Begin: s.Begin, End: s.End, EntryDate: s.EntryDate, Room: s.Room}
	if s.Place != nil {
		sv.Place = &refView{ID: s.Place.ID, Title: s.Place.Title}
	}
	return sv
}

type eventView struct {
	ID             uint64           `json:"id"`
	Type           string           `json:"type"`
	TopicID        uint64           `json:"topic_id,omitempty"`
	Title          string           `json:"title"`
	Subtitle       string           `json:"subtitle,omitempty"`
	Teaser         string           `json:"teaser,omitempty"`
	Status         string           `json:"status"`
	Begin          *time.Time       `json:"begin,omitempty"`
	End            *time.Time       `json:"end,omitempty"`
	EventType      *refView         `json:"event_type,omitempty"`
	Categories     []refView        `json:"categories,omitempty"`
	IsFree         bool             `json:"is_free"`
	Prices         map[string]int64 `json:"prices"`
	Vacancies      *int             `json:"vacancies"`
	IsFull         bool             `json:"is_full"`
	CanRegister    bool             `json:"registration_possible"`
	SingleViewPage string           `json:"single_view_page,omitempty"`
	Hidden         bool             `json:"hidden,omitempty"`

	*eventDetailView
}

// eventDetailView holds the fields only the detail endpoint returns.
type eventDetailView struct {
	Description            string          `json:"description,omitempty"`
	AdditionalInformation  string          `json:"additional_information,omitempty"`
	Image                  string          `json:"image,omitempty"`
	CreditPoints           int             `json:"credit_points,omitempty"`
	RegistrationBegin      *time.Time      `json:"registration_begin,omitempty"`
	RegistrationDeadline   *time.Time      `json:"registration_deadline,omitempty"`
	EarlyBirdDeadline      *time.Time      `json:"early_bird_deadline,omitempty"`
	UnregistrationDeadline *time.Time      `json:"unregistration_deadline,omitempty"`
	AttendeesMin           int             `json:"attendees_min"`
	AttendeesMax           int             `json:"attendees_max"`
	HasQueue               bool            `json:"has_registration_queue"`
	EnoughRegistrations    bool            `json:"enough_registrations"`
	Places                 []placeView     `json:"places,omitempty"`
	Speakers               []speakerView   `json:"speakers,omitempty"`
	Organizers             []organizerView `json:"organizers,omitempty"`
	TargetGroups           []refView       `json:"target_groups,omitempty"`
	PaymentMethods         []refView       `json:"payment_methods,omitempty"`
	Lodgings               []refView       `json:"lodgings,omitempty"`
	Foods                  []refView       `json:"foods,omitempty"`
	Checkboxes             []refView       `json:"checkboxes,omitempty"`
	Requirements           []refView       `json:"requirements,omitempty"`
	TimeSlots              []timeSlotView  `json:"time_slots,omitempty"`
	AttendeeNames          []string        `json:"attendee_names,omitempty"`
}

func objectTypeName(t int) string {
	switch t {
	case model.TypeTopic:
		return "topic"
	case model.TypeDate:
		return "date"
	}
	return "single"
}

func statusName(s int) string {
	switch s {
	case model.StatusCanceled:
		return "canceled"
	case model.StatusConfirmed:
		return "confirmed"
	}
	return "planned"
}

func titled[T any](recs []*T, pick func(*T) (uint64, string)) []refView {
	if len(recs) == 0 {
		return nil
	}
	out := make([]refView, 0, len(recs))
	for _, r := range recs {
		id, title := pick(r)
		out = append(out, refView{ID: id, Title: title})
	}
	return out
}

func titledRecord(r *model.TitledRecord) (uint64, string) { return r.ID, r.Title }

func newEventView(ev *model.Event, now time.Time) eventView {
	v := eventView{
		ID:             ev.Record.ID,
		Type:           objectTypeName(ev.Record.ObjectType),
		TopicID:        ev.Record.TopicID,
		Title:          ev.Title(),
		Subtitle:       ev.Subtitle(),
		Teaser:         ev.Teaser(),
		Status:         statusName(ev.Status()),
		Begin:          ev.Record.BeginDate,
		End:            ev.Record.EndDate,
		IsFree:         ev.IsFree(),
		Prices:         ev.AvailablePricesAt(now),
		IsFull:         ev.IsFull(),
		CanRegister:    ev.IsRegistrationPossibleAt(now),
		SingleViewPage: ev.CombinedSingleViewPage(),
		Hidden:         ev.Record.Hidden,
	}
	if t := ev.EventType(); t != nil {
		v.EventType = &refView{ID: t.ID, Title: t.Title}
	}
	v.Categories = titled(ev.Categories(), func(c *model.Category) (uint64, string) { return c.ID, c.Title })
	if !ev.HasUnlimitedVacancies() {
		n := ev.Vacancies()
		v.Vacancies = &n
	}
	return v
}

func newEventDetailView(ev *model.Event, now time.Time, withAttendees bool) eventView {
	v := newEventView(ev, now)
	d := &eventDetailView{
		Description:            ev.Description(),
		AdditionalInformation:  ev.AdditionalInformation(),
		Image:                  ev.Image(),
		CreditPoints:           ev.CreditPoints(),
		RegistrationBegin:      ev.Record.RegistrationBegin,
		RegistrationDeadline:   ev.EffectiveRegistrationDeadline(),
		EarlyBirdDeadline:      ev.EarlyBirdDeadline(),
		UnregistrationDeadline: ev.Record.UnregistrationDeadline,
		AttendeesMin:           ev.AttendeesMin(),
		AttendeesMax:           ev.AttendeesMax(),
		HasQueue:               ev.Record.HasRegistrationQueue,
		EnoughRegistrations:    ev.HasEnoughRegistrations(),
		TargetGroups:           titled(ev.TargetGroups(), func(g *model.TargetGroup) (uint64, string) { return g.ID, g.Title }),
		PaymentMethods:         titled(ev.PaymentMethods(), func(p *model.PaymentMethod) (uint64, string) { return titledRecord(&p.TitledRecord) }),
		Lodgings:               titled(ev.Relations.Lodgings, func(l *model.Lodging) (uint64, string) { return titledRecord(&l.TitledRecord) }),
		Foods:                  titled(ev.Relations.Foods, func(f *model.Food) (uint64, string) { return titledRecord(&f.TitledRecord) }),
		Checkboxes:             titled(ev.Relations.Checkboxes, func(c *model.Checkbox) (uint64, string) { return titledRecord(&c.TitledRecord) }),
		Requirements:           titled(ev.Requirements(), func(r *model.Event) (uint64, string) { return r.Record.ID, r.Title() }),
	}
	for _, p := range ev.Places() {
		d.Places = append(d.Places, placeView{
			ID: p.ID, Title: p.Title, Address: p.FullAddress(), City: p.City,
			Country: p.Country, Directions: p.Directions,
		})
	}
	for _, s := range ev.Speakers() {
		d.Speakers = append(d.Speakers, speakerView{
			ID: s.ID, Name: s.Title, Organization: s.Organization,
			Homepage: s.Homepage, Description: s.Description,
		})
	}
	for _, o := range ev.Organizers() {
		d.Organizers = append(d.Organizers, organizerView{ID: o.ID, Title: o.Title, Homepage: o.Homepage, Email: o.Email})
	}
	for _, s := range ev.TimeSlots() {
		d.TimeSlots = append(d.TimeSlots, newTimeSlotView(s))
	}
	if withAttendees {
		d.AttendeeNames = ev.AttendeeNames()
	}
	v.eventDetailView = d
	return v
}

type registrationView struct {
	ID              uint64     `json:"id"`
	EventID         uint64     `json:"event_id"`
	EventTitle      string     `json:"event_title,omitempty"`
	EventBegin      *time.Time `json:"event_begin,omitempty"`
	EventEnd        *time.Time `json:"event_end,omitempty"`
	EventStatus     string     `json:"event_status,omitempty"`
	Seats           int        `json:"seats"`
	OnQueue         bool       `json:"on_queue"`
	PriceCode       string     `json:"price_code"`
	PriceCents      int64      `json:"price_cents"`
	TotalPriceCents int64      `json:"total_price_cents"`
	AttendeesNames  []string   `json:"attendees_names,omitempty"`
	Paid            bool       `json:"paid"`
	CreatedAt       time.Time  `json:"created_at"`
}

func newRegistrationView(r *model.Registration) registrationView {
	return registrationView{
		ID:              r.ID,
		EventID:         r.EventID,
		Seats:           r.Seats,
		OnQueue:         r.OnQueue,
		PriceCode:       r.PriceCode,
		PriceCents:      r.PriceCents,
		TotalPriceCents: r.TotalPriceCents,
		AttendeesNames:  r.AttendeeNames(),
		Paid:            r.Paid,
		CreatedAt:       r.CreatedAt,
	}
}

func newRegistrationDetailView(d *repository.RegistrationDetail) registrationView {
	v := newRegistrationView(d.Registration)
	v.EventTitle = d.EventTitle
	v.EventBegin = d.EventBegin
	v.EventEnd = d.EventEnd
	v.EventStatus = statusName(d.EventStatus)
	return v
}
