package ical

import (
	"errors"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/iliyamo/seminars/internal/model"
)

var stamp = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

func TestRenderSingleEvent(t *testing.T) {
	begin := stamp.Add(48 * time.Hour)
	end := begin.Add(3 * time.Hour)
	ev := &model.Event{Record: model.EventRecord{
		ID: 12, Title: "Intro to Go", Teaser: "Learn Go", Status: model.StatusConfirmed,
		BeginDate: &begin, EndDate: &end,
	}}
	ev.Relations.Places = []*model.Place{{Title: "Hall", Address: "Main St 1", ZIP: "53111", City: "Bonn"}}
	ev.Relations.Organizers = []*model.Organizer{{Title: "Go Club", Email: "club@example.org"}}

	out, err := Render(ev, Options{Domain: "example.org", Now: stamp,
		DetailURL: func(id uint64) string { return "https://example.org/events/12" }})
	if err != nil {
		t.Fatal(err)
	}
	cal, err := ics.ParseCalendar(strings.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	events := cal.Events()
	if len(events) != 1 {
		t.Fatalf("got %d events", len(events))
	}
	vev := events[0]
	if vev.Id() != "event-12@example.org" {
		t.Fatalf("uid = %q", vev.Id())
	}
	checks := map[ics.ComponentProperty]string{
		ics.ComponentPropertySummary:     "Intro to Go",
		ics.ComponentPropertyDescription: "Learn Go",
		ics.ComponentPropertyStatus:      "CONFIRMED",
	}
	for prop, want := range checks {
		if p := vev.GetProperty(prop); p == nil || p.Value != want {
			t.Errorf("%s = %v, want %q", prop, p, want)
		}
	}
	if p := vev.GetProperty(ics.ComponentPropertyLocation); p == nil || !strings.Contains(p.Value, "Hall") || !strings.Contains(p.Value, "53111 Bonn") {
		t.Errorf("location = %v", p)
	}
	if !strings.Contains(out, "mailto:club@example.org") {
		t.Error("organizer missing")
	}
	start, err := vev.GetStartAt()
	if err != nil || !start.Equal(begin) {
		t.Fatalf("start = %v (%v)", start, err)
	}
}

func TestRenderSlotsAndTopicData(t *testing.T) {
	topic := &model.Event{Record: model.EventRecord{ID: 1, ObjectType: model.TypeTopic, Title: "Topic", Description: "Topic text"}}
	date := &model.Event{Record: model.EventRecord{ID: 2, ObjectType: model.TypeDate, Title: "Spring date", Status: model.StatusCanceled}}
	date.SetTopic(topic)
	date.Relations.TimeSlots = []*model.TimeSlot{
		{ID: 1, Begin: stamp, End: stamp.Add(time.Hour), Room: "R1"},
		{ID: 2, Begin: stamp.Add(24 * time.Hour), End: stamp.Add(25 * time.Hour), Place: &model.Place{Title: "Annex"}},
	}

	out, err := Render(date, Options{Now: stamp})
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(out, "BEGIN:VEVENT"); n != 2 {
		t.Fatalf("got %d VEVENTs", n)
	}
	for _, want := range []string{"event-2-slot-1@seminars.local", "DESCRIPTION:Topic text", "STATUS:CANCELLED", "LOCATION:Annex", "LOCATION:R1"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in\n%s", want, out)
		}
	}
}

func TestRenderWithoutDate(t *testing.T) {
	if _, err := Render(&model.Event{}, Options{}); !errors.Is(err, ErrNoDate) {
		t.Fatalf("got %v", err)
	}
}
