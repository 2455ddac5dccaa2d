// Package ical renders events as iCalendar documents for the
// /events/:id/ics download.
package ical

import (
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/iliyamo/seminars/internal/model"
)

const productID = "-//seminars//event export//EN"

// ErrNoDate is returned for events that have neither a begin date nor time
// slots; there is nothing to put into a calendar.
var ErrNoDate = errors.New("event has no date")

// Options control the parts of the export that depend on the deployment.
type Options struct {
	// Domain is used for the UID suffix, e.g. "seminars.example.org".
	Domain string
	// DetailURL formats the link to the event detail page.  Nil omits URL.
	DetailURL func(eventID uint64) string
	// Now stamps DTSTAMP.
	Now time.Time
}

// Render returns the calendar for ev.  Events with time slots produce one
// VEVENT per slot, others a single VEVENT spanning begin to end.
func Render(ev *model.Event, opt Options) (string, error) {
	slots := ev.TimeSlots()
	if len(slots) == 0 && ev.Record.BeginDate == nil {
		return "", ErrNoDate
	}
	if opt.Now.IsZero() {
		opt.Now = time.Now()
	}
	if opt.Domain == "" {
		opt.Domain = "seminars.local"
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)

	if len(slots) == 0 {
		vev := cal.AddEvent(fmt.Sprintf("event-%d@%s", ev.Record.ID, opt.Domain))
		fill(vev, ev, opt)
		vev.SetStartAt(ev.Record.BeginDate.UTC())
		end := ev.Record.BeginDate
		if ev.Record.EndDate != nil {
			end = ev.Record.EndDate
		}
		vev.SetEndAt(end.UTC())
		if loc := eventLocation(ev); loc != "" {
			vev.SetLocation(loc)
		}
		return cal.Serialize(), nil
	}

	for _, s := range slots {
		vev := cal.AddEvent(fmt.Sprintf("event-%d-slot-%d@%s", ev.Record.ID, s.ID, opt.Domain))
		fill(vev, ev, opt)
		vev.SetStartAt(s.Begin.UTC())
		vev.SetEndAt(s.End.UTC())
		if loc := slotLocation(s, ev); loc != "" {
			vev.SetLocation(loc)
		}
	}
	return cal.Serialize(), nil
}

// fill sets the properties shared by all VEVENTs of an event.
func fill(vev *ics.VEvent, ev *model.Event, opt Options) {
	vev.SetDtStampTime(opt.Now.UTC())
	if !ev.Record.UpdatedAt.IsZero() {
		vev.SetModifiedAt(ev.Record.UpdatedAt.UTC())
	}
	summary := ev.Title()
	if sub := ev.Subtitle(); sub != "" {
		summary += " - " + sub
	}
	vev.SetSummary(summary)
	if desc := description(ev); desc != "" {
		vev.SetDescription(desc)
	}
	if opt.DetailURL != nil {
		vev.SetURL(opt.DetailURL(ev.Record.ID))
	}
	if o := ev.FirstOrganizer(); o != nil && o.Email != "" {
		vev.SetOrganizer("mailto:"+o.Email, ics.WithCN(o.Title))
	}
	switch {
	case ev.IsCanceled():
		vev.SetStatus(ics.ObjectStatusCancelled)
	case ev.IsConfirmed():
		vev.SetStatus(ics.ObjectStatusConfirmed)
	default:
		vev.SetStatus(ics.ObjectStatusTentative)
	}
}

func description(ev *model.Event) string {
	if t := strings.TrimSpace(ev.Teaser()); t != "" {
		return t
	}
	return strings.TrimSpace(ev.Description())
}

func eventLocation(ev *model.Event) string {
	var parts []string
	for _, p := range ev.Places() {
		parts = append(parts, placeLabel(p))
	}
	return strings.Join(parts, "; ")
}

func slotLocation(s *model.TimeSlot, ev *model.Event) string {
	var loc string
	if s.Place != nil {
		loc = placeLabel(s.Place)
	} else {
		loc = eventLocation(ev)
	}
	if s.HasRoom() {
		if loc != "" {
			return s.Room + ", " + loc
		}
		return s.Room
	}
	return loc
}

func placeLabel(p *model.Place) string {
	if addr := p.FullAddress(); addr != "" {
		return p.Title + ", " + addr
	}
	return p.Title
}
