package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/seminars/internal/config"
	"github.com/iliyamo/seminars/internal/ical"
	"github.com/iliyamo/seminars/internal/model"
	"github.com/iliyamo/seminars/internal/queue"
	"github.com/iliyamo/seminars/internal/repository"
)

var now = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

// ----- fakes -----

type fakeEvents struct {
	byID       map[uint64]*model.Event
	listed     []*model.Event
	filter     repository.EventFilter
	created    *model.Event
	updated    *model.Event
	registerFn func(reg *model.Registration) error
}

func (f *fakeEvents) GetByID(_ context.Context, id uint64) (*model.Event, error) {
	if ev, ok := f.byID[id]; ok {
		return ev, nil
	}
	return nil, repository.ErrEventNotFound
}

func (f *fakeEvents) List(_ context.Context, filter repository.EventFilter) ([]*model.Event, error) {
	f.filter = filter
	return f.listed, nil
}

func (f *fakeEvents) Create(_ context.Context, ev *model.Event) (uint64, error) {
	ev.Record.ID = 99
	f.created = ev
	return 99, nil
}

func (f *fakeEvents) Update(_ context.Context, ev *model.Event) error {
	f.updated = ev
	return nil
}

func (f *fakeEvents) Register(_ context.Context, _ uint64, reg *model.Registration, _ time.Time) error {
	if f.registerFn != nil {
		return f.registerFn(reg)
	}
	reg.ID = 1
	return nil
}

type fakeUsers struct {
	fe      *model.FrontEndUser
	be      *model.BackEndUser
	users   map[uint64]model.User
	created []repository.NewUser
}

func (f *fakeUsers) Create(_ context.Context, nu repository.NewUser, _ int) (uint64, error) {
	f.created = append(f.created, nu)
	return uint64(len(f.created)), nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrRecordNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrRecordNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetFrontEndUser(_ context.Context, id uint64) (*model.FrontEndUser, error) {
	if f.fe == nil || f.fe.ID != id {
		return nil, repository.ErrRecordNotFound
	}
	return f.fe, nil
}

func (f *fakeUsers) GetBackEndUser(_ context.Context, id uint64) (*model.BackEndUser, error) {
	if f.be == nil || f.be.ID != id {
		return nil, repository.ErrRecordNotFound
	}
	return f.be, nil
}

func (f *fakeUsers) FindByUsernames(_ context.Context, names []string) ([]*model.FrontEndUser, error) {
	var out []*model.FrontEndUser
	for _, u := range f.users {
		for _, n := range names {
			if u.Username == n {
				out = append(out, &model.FrontEndUser{User: u})
			}
		}
	}
	return out, nil
}

type fakeRegistrations struct {
	detail   *repository.RegistrationDetail
	promoted []*model.Registration
}

func (f *fakeRegistrations) ListByUser(context.Context, uint64) ([]*repository.RegistrationDetail, error) {
	if f.detail == nil {
		return nil, nil
	}
	return []*repository.RegistrationDetail{f.detail}, nil
}

func (f *fakeRegistrations) GetByIDForUser(_ context.Context, id, userID uint64) (*repository.RegistrationDetail, error) {
	if f.detail == nil || f.detail.Registration.ID != id || f.detail.Registration.UserID != userID {
		return nil, repository.ErrRegistrationNotFound
	}
	return f.detail, nil
}

func (f *fakeRegistrations) CancelForUser(_ context.Context, id, userID uint64, _ time.Time) (*model.Registration, []*model.Registration, error) {
	if f.detail == nil || f.detail.Registration.ID != id {
		return nil, nil, repository.ErrRegistrationNotFound
	}
	return f.detail.Registration, f.promoted, nil
}

// recorder collects published notifications.
type recorder struct {
	mu   sync.Mutex
	msgs []queue.RegistrationEvent
	done chan struct{}
}

func newRecorder() *recorder { return &recorder{done: make(chan struct{}, 16)} }

func (r *recorder) Publish(_ context.Context, ev queue.RegistrationEvent) error {
	r.mu.Lock()
	r.msgs = append(r.msgs, ev)
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

// wait blocks until n messages arrived and returns their kinds.
func (r *recorder) wait(t *testing.T, n int) []string {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of %d notifications published", i, n)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]string, 0, len(r.msgs))
	for _, m := range r.msgs {
		kinds = append(kinds, m.Kind)
	}
	return kinds
}

// ----- helpers -----

func request(method, target, body string) (*httptest.ResponseRecorder, echo.Context) {
	e := echo.New()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return rec, e.NewContext(req, rec)
}

func withParams(c echo.Context, kv ...string) {
	var names, values []string
	for i := 0; i+1 < len(kv); i += 2 {
		names = append(names, kv[i])
		values = append(values, kv[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func bookable() *model.Event {
	return &model.Event{Record: model.EventRecord{
		ID: 7, Title: "Go Workshop", NeedsRegistration: true, AttendeesMax: 10,
		RegularPriceCents: 5000, BeginDate: at(72 * time.Hour),
	}}
}

func clock() time.Time { return now }

// ----- events -----

func TestEventListFilters(t *testing.T) {
	store := &fakeEvents{listed: []*model.Event{bookable()}}
	h := &EventHandler{Events: store, Now: clock}

	rec, c := request(http.MethodGet, "/v1/events?type=topic&category=3&upcoming=true&limit=500", "")
	if err := h.List(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	f := store.filter
	if f.ObjectType == nil || *f.ObjectType != model.TypeTopic || f.CategoryID != 3 {
		t.Fatalf("filter = %+v", f)
	}
	if f.UpcomingAt == nil || !f.UpcomingAt.Equal(now) || f.Limit != maxPageSize || f.IncludeHidden {
		t.Fatalf("filter = %+v", f)
	}
	var body struct {
		Events []map[string]any `json:"events"`
	}
	decodeBody(t, rec, &body)
	if len(body.Events) != 1 || body.Events[0]["vacancies"] != float64(10) || body.Events[0]["registration_possible"] != true {
		t.Fatalf("events = %v", body.Events)
	}
}

func TestNextChange(t *testing.T) {
	a := bookable() // begins in 72h
	b := bookable()
	b.Record.EarlyBirdDeadline = at(24 * time.Hour)
	b.Record.RegistrationBegin = at(-time.Hour)
	got, ok := nextChange(now, a, b)
	if !ok || !got.Equal(*at(24 * time.Hour)) {
		t.Fatalf("next change = %v %v, want early bird deadline", got, ok)
	}
	past := bookable()
	past.Record.BeginDate = at(-time.Hour)
	if _, ok := nextChange(now, past); ok {
		t.Fatal("event in the past has no upcoming change")
	}
}

func TestEventListRejectsUnknownType(t *testing.T) {
	h := &EventHandler{Events: &fakeEvents{}, Now: clock}
	rec, c := request(http.MethodGet, "/v1/events?type=course", "")
	_ = h.List(c)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestEventGetHiddenIsNotFound(t *testing.T) {
	ev := bookable()
	ev.Record.Hidden = true
	h := &EventHandler{Events: &fakeEvents{byID: map[uint64]*model.Event{7: ev}}, Now: clock}
	rec, c := request(http.MethodGet, "/v1/events/7", "")
	withParams(c, "id", "7")
	_ = h.Get(c)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestEventGetAttendeeNames(t *testing.T) {
	ev := bookable()
	ev.SetRegistrations([]*model.Registration{{Seats: 2, AttendeesNames: "Bea\nAl"}})
	store := &fakeEvents{byID: map[uint64]*model.Event{7: ev}}

	for _, public := range []bool{false, true} {
		h := &EventHandler{Events: store, Now: clock, Features: config.Features{PublicAttendeeNames: public}}
		rec, c := request(http.MethodGet, "/v1/events/7", "")
		withParams(c, "id", "7")
		if err := h.Get(c); err != nil {
			t.Fatal(err)
		}
		var body map[string]any
		decodeBody(t, rec, &body)
		names, ok := body["attendee_names"].([]any)
		if public != ok {
			t.Fatalf("public=%v: attendee_names present=%v", public, ok)
		}
		if public && (len(names) != 2 || names[0] != "Al") {
			t.Fatalf("names = %v", names)
		}
		if body["vacancies"] != float64(8) {
			t.Fatalf("vacancies = %v", body["vacancies"])
		}
	}
}

func TestEventICS(t *testing.T) {
	ev := bookable()
	noDate := &model.Event{Record: model.EventRecord{ID: 8, Title: "Someday"}}
	h := &EventHandler{
		Events:   &fakeEvents{byID: map[uint64]*model.Event{7: ev, 8: noDate}},
		Calendar: ical.Options{Domain: "example.org"},
		Now:      clock,
	}

	rec, c := request(http.MethodGet, "/v1/events/7/ics", "")
	withParams(c, "id", "7")
	if err := h.ICS(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), "text/calendar") {
		t.Fatalf("status = %d, type = %q", rec.Code, rec.Header().Get(echo.HeaderContentType))
	}
	if !strings.Contains(rec.Body.String(), "BEGIN:VCALENDAR") || !strings.Contains(rec.Body.String(), "event-7@example.org") {
		t.Fatalf("body = %s", rec.Body.String())
	}

	rec, c = request(http.MethodGet, "/v1/events/8/ics", "")
	withParams(c, "id", "8")
	_ = h.ICS(c)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
}

// ----- registrations -----

func registrationHandler(store *fakeEvents, n *recorder) *RegistrationHandler {
	fe := &model.FrontEndUser{User: model.User{ID: 5, Username: "jo", Email: "jo@example.org", FirstName: "Jo"}}
	h := &RegistrationHandler{
		Events:   store,
		Users:    &fakeUsers{fe: fe, users: map[uint64]model.User{5: fe.User}},
		Features: config.Features{RegistrationEnabled: true},
		Log:      zerolog.Nop(),
		Now:      clock,
	}
	if n != nil {
		h.Notifier = n
	}
	return h
}

func TestRegisterDisabled(t *testing.T) {
	h := registrationHandler(&fakeEvents{}, nil)
	h.Features.RegistrationEnabled = false
	rec, c := request(http.MethodPost, "/v1/events/7/registrations", `{"seats":1}`)
	withParams(c, "id", "7")
	c.Set("user_id", uint64(5))
	_ = h.Register(c)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRegisterCreatesAndNotifies(t *testing.T) {
	store := &fakeEvents{byID: map[uint64]*model.Event{7: bookable()}}
	n := newRecorder()
	h := registrationHandler(store, n)
	invalidated := false
	h.Invalidate = func(context.Context) { invalidated = true }

	var got *model.Registration
	store.registerFn = func(reg *model.Registration) error {
		got = reg
		reg.ID = 31
		reg.PriceCents, reg.TotalPriceCents = 5000, 10000
		return nil
	}
	rec, c := request(http.MethodPost, "/v1/events/7/registrations",
		`{"seats":2,"price_code":"regular","attendees_names":["Al","Bea"],"notes":"vegan"}`)
	withParams(c, "id", "7")
	c.Set("user_id", uint64(5))
	if err := h.Register(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if got.Seats != 2 || got.UserID != 5 || !got.RegisteredThemselves || got.AttendeesNames != "Al\nBea" || got.Notes != "vegan" {
		t.Fatalf("registration = %+v", got)
	}
	if !invalidated {
		t.Fatal("cache not invalidated")
	}
	if kinds := n.wait(t, 1); kinds[0] != queue.KindRegistrationCreated {
		t.Fatalf("kinds = %v", kinds)
	}
	var body registrationView
	decodeBody(t, rec, &body)
	if body.ID != 31 || body.TotalPriceCents != 10000 || body.EventTitle != "Go Workshop" {
		t.Fatalf("body = %+v", body)
	}
}

func TestRegisterQueuedNotification(t *testing.T) {
	store := &fakeEvents{byID: map[uint64]*model.Event{7: bookable()}}
	store.registerFn = func(reg *model.Registration) error {
		reg.ID, reg.OnQueue = 2, true
		return nil
	}
	n := newRecorder()
	h := registrationHandler(store, n)
	rec, c := request(http.MethodPost, "/v1/events/7/registrations", `{"seats":1}`)
	withParams(c, "id", "7")
	c.Set("user_id", uint64(5))
	_ = h.Register(c)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if kinds := n.wait(t, 1); kinds[0] != queue.KindRegistrationQueued {
		t.Fatalf("kinds = %v", kinds)
	}
}

func TestRegisterErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"full", `{"seats":1}`, repository.ErrEventFull, http.StatusConflict},
		{"closed", `{"seats":1}`, repository.ErrRegistrationClosed, http.StatusUnprocessableEntity},
		{"duplicate", `{"seats":1}`, repository.ErrAlreadyRegistered, http.StatusConflict},
		{"bad price code", `{"seats":1,"price_code":"vip"}`, nil, http.StatusBadRequest},
		{"payment method not offered", `{"seats":1,"payment_method_id":4}`, nil, http.StatusBadRequest},
		{"unknown person", `{"seats":1,"additional_persons":["ghost"]}`, nil, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeEvents{byID: map[uint64]*model.Event{7: bookable()}}
			store.registerFn = func(*model.Registration) error { return tc.err }
			h := registrationHandler(store, nil)
			rec, c := request(http.MethodPost, "/v1/events/7/registrations", tc.body)
			withParams(c, "id", "7")
			c.Set("user_id", uint64(5))
			_ = h.Register(c)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestCancelMineNotifiesPromoted(t *testing.T) {
	n := newRecorder()
	h := registrationHandler(&fakeEvents{}, n)
	h.Users.(*fakeUsers).users[6] = model.User{ID: 6, Email: "kim@example.org"}
	h.Registrations = &fakeRegistrations{
		detail: &repository.RegistrationDetail{
			Registration: &model.Registration{ID: 3, EventID: 7, UserID: 5, Seats: 1},
			EventTitle:   "Go Workshop",
		},
		promoted: []*model.Registration{{ID: 4, EventID: 7, UserID: 6, Seats: 1}},
	}

	rec, c := request(http.MethodDelete, "/v1/my-registrations/3", "")
	withParams(c, "id", "3")
	c.Set("user_id", uint64(5))
	if err := h.CancelMine(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	kinds := n.wait(t, 2)
	seen := map[string]bool{}
	for _, k := range kinds {
		seen[k] = true
	}
	if !seen[queue.KindRegistrationCancelled] || !seen[queue.KindRegistrationPromoted] {
		t.Fatalf("kinds = %v", kinds)
	}
}

func TestGetMineOfOtherUser(t *testing.T) {
	h := registrationHandler(&fakeEvents{}, nil)
	h.Registrations = &fakeRegistrations{detail: &repository.RegistrationDetail{
		Registration: &model.Registration{ID: 3, UserID: 6},
	}}
	rec, c := request(http.MethodGet, "/v1/my-registrations/3", "")
	withParams(c, "id", "3")
	c.Set("user_id", uint64(5))
	_ = h.GetMine(c)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

// ----- editor -----

func editor(store *fakeEvents, setting int) *EditorHandler {
	fe := &model.FrontEndUser{
		User: model.User{ID: 5},
		Groups: []*model.FrontEndUserGroup{{
			ID: 1, PublishSetting: setting, EventRecordsPID: 40,
			DefaultCategoryIDs: []uint64{2}, DefaultOrganizerIDs: []uint64{8}, ReviewerID: 3,
		}},
	}
	return &EditorHandler{Events: store, Users: &fakeUsers{fe: fe}, Log: zerolog.Nop(), Now: clock}
}

func TestEditorCreateAppliesGroupDefaults(t *testing.T) {
	store := &fakeEvents{}
	h := editor(store, model.PublishHideNew)
	rec, c := request(http.MethodPost, "/v1/editor/events", `{"title":"Go Basics","price_regular":1500}`)
	c.Set("user_id", uint64(5))
	if err := h.Create(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	ev := store.created
	if ev.Record.PID != 40 || ev.Record.OwnerID != 5 || !ev.Record.Hidden || ev.RegularPrice() != 1500 {
		t.Fatalf("record = %+v", ev.Record)
	}
	if len(ev.Relations.Categories) != 1 || ev.Relations.Categories[0].ID != 2 {
		t.Fatalf("categories = %v", ev.Relations.Categories)
	}
	if len(ev.Relations.Organizers) != 1 || ev.Relations.Organizers[0].ID != 8 {
		t.Fatalf("organizers = %v", ev.Relations.Organizers)
	}
}

func TestEditorCreateValidation(t *testing.T) {
	topic := &model.Event{Record: model.EventRecord{ID: 1, ObjectType: model.TypeComplete, Title: "Single"}}
	cases := map[string]string{
		"missing title":  `{"price_regular":10}`,
		"negative price": `{"title":"x","price_special":-1}`,
		"end before":     `{"title":"x","begin":"2026-07-01T10:00:00Z","end":"2026-07-01T09:00:00Z"}`,
		"date no topic":  `{"title":"x","object_type":2}`,
		"not a topic":    `{"title":"x","object_type":2,"topic_id":1}`,
		"min above max":  `{"title":"x","attendees_min":5,"attendees_max":3}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			store := &fakeEvents{byID: map[uint64]*model.Event{1: topic}}
			h := editor(store, model.PublishImmediately)
			rec, c := request(http.MethodPost, "/v1/editor/events", body)
			c.Set("user_id", uint64(5))
			_ = h.Create(c)
			if rec.Code != http.StatusBadRequest || store.created != nil {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestEditorUpdate(t *testing.T) {
	current := bookable()
	current.Record.OwnerID = 5
	current.Relations.Categories = []*model.Category{{ID: 2}}
	store := &fakeEvents{byID: map[uint64]*model.Event{7: current}}

	h := editor(store, model.PublishHideEdited)
	rec, c := request(http.MethodPatch, "/v1/editor/events/7", `{"subtitle":"now with generics"}`)
	withParams(c, "id", "7")
	c.Set("user_id", uint64(5))
	if err := h.Update(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	ev := store.updated
	if ev.Title() != "Go Workshop" || ev.Subtitle() != "now with generics" || ev.RegularPrice() != 5000 {
		t.Fatalf("patch lost fields: %+v", ev.Record)
	}
	if !ev.Record.Hidden || len(ev.Relations.Categories) != 1 {
		t.Fatalf("hidden = %v, categories = %v", ev.Record.Hidden, ev.Relations.Categories)
	}

	rec, c = request(http.MethodPut, "/v1/editor/events/7", `{"title":"Mine"}`)
	withParams(c, "id", "7")
	c.Set("user_id", uint64(6))
	_ = h.Update(c)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign update status = %d", rec.Code)
	}
}

type fakeTimeSlots struct {
	created *model.TimeSlot
	deleted uint64
}

func (f *fakeTimeSlots) ListByEvent(_ context.Context, eventID uint64) ([]*model.TimeSlot, error) {
	return []*model.TimeSlot{{ID: 3, EventID: eventID, Begin: now, Room: "B2"}}, nil
}

func (f *fakeTimeSlots) Create(_ context.Context, s *model.TimeSlot) (uint64, error) {
	s.ID = 4
	f.created = s
	return 4, nil
}

func (f *fakeTimeSlots) Delete(_ context.Context, _, id uint64) error {
	if id != 3 {
		return repository.ErrRecordNotFound
	}
	f.deleted = id
	return nil
}

func TestEditorTimeSlots(t *testing.T) {
	current := bookable()
	current.Record.OwnerID = 5
	slots := &fakeTimeSlots{}
	h := editor(&fakeEvents{byID: map[uint64]*model.Event{7: current}}, model.PublishImmediately)
	h.TimeSlots = slots

	rec, c := request(http.MethodGet, "/v1/editor/events/7/time-slots", "")
	withParams(c, "id", "7")
	c.Set("user_id", uint64(5))
	_ = h.ListTimeSlots(c)
	var listed []timeSlotView
	decodeBody(t, rec, &listed)
	if rec.Code != http.StatusOK || len(listed) != 1 || listed[0].Room != "B2" {
		t.Fatalf("list = %d %+v", rec.Code, listed)
	}

	rec, c = request(http.MethodPost, "/v1/editor/events/7/time-slots",
		`{"begin":"2026-07-01T10:00:00Z","end":"2026-07-01T12:00:00Z","entry_date":"2026-07-01T09:30:00Z","room":"A1"}`)
	withParams(c, "id", "7")
	c.Set("user_id", uint64(5))
	_ = h.CreateTimeSlot(c)
	if rec.Code != http.StatusCreated || slots.created == nil || slots.created.EventID != 7 {
		t.Fatalf("create = %d: %s", rec.Code, rec.Body.String())
	}

	rec, c = request(http.MethodPost, "/v1/editor/events/7/time-slots",
		`{"begin":"2026-07-01T10:00:00Z","entry_date":"2026-07-01T11:00:00Z"}`)
	withParams(c, "id", "7")
	c.Set("user_id", uint64(5))
	_ = h.CreateTimeSlot(c)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("late entry status = %d", rec.Code)
	}

	rec, c = request(http.MethodDelete, "/v1/editor/events/7/time-slots/3", "")
	withParams(c, "id", "7", "slotId", "3")
	c.Set("user_id", uint64(6))
	_ = h.DeleteTimeSlot(c)
	if rec.Code != http.StatusForbidden || slots.deleted != 0 {
		t.Fatalf("foreign delete status = %d", rec.Code)
	}

	rec, c = request(http.MethodDelete, "/v1/editor/events/7/time-slots/3", "")
	withParams(c, "id", "7", "slotId", "3")
	c.Set("user_id", uint64(5))
	_ = h.DeleteTimeSlot(c)
	if rec.Code != http.StatusNoContent || slots.deleted != 3 {
		t.Fatalf("delete status = %d", rec.Code)
	}
}

// ----- records -----

type fakeRecords struct {
	deleteErr error
	created   any
}

func (f *fakeRecords) List(context.Context, repository.Kind) ([]any, error) {
	return []any{&model.Place{ID: 1, Title: "Hall"}}, nil
}

func (f *fakeRecords) Create(_ context.Context, k repository.Kind, rec any) (uint64, error) {
	if err := repository.ValidateRecord(k, rec); err != nil {
		return 0, err
	}
	f.created = rec
	return 1, nil
}

func (f *fakeRecords) Delete(context.Context, repository.Kind, uint64) error { return f.deleteErr }

func TestRecordHandler(t *testing.T) {
	records := &fakeRecords{deleteErr: repository.ErrConflict}
	admin := &model.BackEndUser{
		User:   model.User{ID: 9, Role: model.RoleBackEnd},
		Groups: []*model.BackEndUserGroup{{ID: 1, AuxiliaryRecordsFolder: 70}},
	}
	h := &RecordHandler{Records: records, Users: &fakeUsers{be: admin}}

	rec, c := request(http.MethodGet, "/v1/records/rooms", "")
	withParams(c, "kind", "rooms")
	_ = h.List(c)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown kind status = %d", rec.Code)
	}

	rec, c = request(http.MethodGet, "/v1/records/places", "")
	withParams(c, "kind", "places")
	_ = h.List(c)
	var places []model.Place
	decodeBody(t, rec, &places)
	if rec.Code != http.StatusOK || len(places) != 1 || places[0].Title != "Hall" {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec, c = request(http.MethodPost, "/v1/records/speakers", `{"title":"","gender":1}`)
	withParams(c, "kind", "speakers")
	c.Set("user_id", uint64(9))
	_ = h.Create(c)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty title status = %d", rec.Code)
	}

	rec, c = request(http.MethodPost, "/v1/records/places", `{"title":"Hall B","owner_id":4,"pid":3}`)
	withParams(c, "kind", "places")
	c.Set("user_id", uint64(9))
	_ = h.Create(c)
	place, ok := records.created.(*model.Place)
	if rec.Code != http.StatusCreated || !ok {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	if place.PID != 70 || place.OwnerID != 0 {
		t.Fatalf("place stored with pid=%d owner=%d, want folder 70 and no owner", place.PID, place.OwnerID)
	}

	rec, c = request(http.MethodDelete, "/v1/records/places/1", "")
	withParams(c, "kind", "places", "id", "1")
	_ = h.Delete(c)
	if rec.Code != http.StatusConflict {
		t.Fatalf("delete in use status = %d", rec.Code)
	}
}

func TestEditorCreateRecord(t *testing.T) {
	records := &fakeRecords{}
	fe := &model.FrontEndUser{
		User:   model.User{ID: 5},
		Groups: []*model.FrontEndUserGroup{{ID: 1}, {ID: 2, AuxiliaryRecordsPID: 21}},
	}
	h := &EditorHandler{Users: &fakeUsers{fe: fe}, Records: records, Log: zerolog.Nop()}

	rec, c := request(http.MethodPost, "/v1/editor/records/speakers", `{"title":"Dr. Go","owner_id":77}`)
	withParams(c, "kind", "speakers")
	c.Set("user_id", uint64(5))
	_ = h.CreateRecord(c)
	sp, ok := records.created.(*model.Speaker)
	if rec.Code != http.StatusCreated || !ok || sp.OwnerID != 5 {
		t.Fatalf("status = %d, created = %+v", rec.Code, records.created)
	}

	rec, c = request(http.MethodPost, "/v1/editor/records/places", `{"title":"Room 1"}`)
	withParams(c, "kind", "places")
	c.Set("user_id", uint64(5))
	_ = h.CreateRecord(c)
	if p, ok := records.created.(*model.Place); rec.Code != http.StatusCreated || !ok || p.PID != 21 || p.OwnerID != 5 {
		t.Fatalf("status = %d, created = %+v", rec.Code, records.created)
	}

	rec, c = request(http.MethodPost, "/v1/editor/records/categories", `{"title":"Mine"}`)
	withParams(c, "kind", "categories")
	c.Set("user_id", uint64(5))
	_ = h.CreateRecord(c)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("category status = %d", rec.Code)
	}
}

// ----- auth + health -----

type fakeTokens struct{ rotateErr error }

func (f *fakeTokens) Store(context.Context, uint64, string, time.Time) error { return nil }
func (f *fakeTokens) Rotate(context.Context, string, string, time.Time, time.Time) (uint64, error) {
	return 5, f.rotateErr
}
func (f *fakeTokens) Revoke(context.Context, string) error           { return nil }
func (f *fakeTokens) RevokeAllForUser(context.Context, uint64) error { return nil }

func TestAuthLoginAndRefresh(t *testing.T) {
	users := &fakeUsers{users: map[uint64]model.User{
		5: {ID: 5, Email: "jo@example.org", Role: model.RoleFrontEnd, IsActive: true, PasswordHash: "$2a$04$invalid"},
	}}
	h := NewAuthHandler(config.Config{JWTSecret: "s", AccessTTLMin: 5, RefreshTTLDays: 1}, users, &fakeTokens{rotateErr: repository.ErrTokenInvalid})

	rec, c := request(http.MethodPost, "/v1/auth/login", `{"email":"jo@example.org","password":"wrong"}`)
	_ = h.Login(c)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("login status = %d", rec.Code)
	}

	rec, c = request(http.MethodPost, "/v1/auth/refresh", `{"refresh_token":"abc"}`)
	_ = h.Refresh(c)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh status = %d", rec.Code)
	}

	h.Tokens = &fakeTokens{}
	rec, c = request(http.MethodPost, "/v1/auth/refresh", `{"refresh_token":"abc"}`)
	_ = h.Refresh(c)
	var resp authResp
	decodeBody(t, rec, &resp)
	if rec.Code != http.StatusOK || resp.User.ID != 5 || resp.Access.Token == "" || resp.Refresh.Token == "" {
		t.Fatalf("status = %d, resp = %+v", rec.Code, resp)
	}
}

func TestRegisterUserRoles(t *testing.T) {
	users := &fakeUsers{}
	cfg := config.Config{JWTSecret: "s", AccessTTLMin: 5, RefreshTTLDays: 1, BackEndEmails: map[string]bool{"admin@example.org": true}}
	h := NewAuthHandler(cfg, users, &fakeTokens{})

	cases := []struct{ body, want string }{
		{`{"username":"eve","email":"eve@example.org","password":"longenough","role":"BACKEND"}`, model.RoleFrontEnd},
		{`{"username":"ann","email":"Admin@Example.org","password":"longenough"}`, model.RoleBackEnd},
	}
	for _, tc := range cases {
		rec, c := request(http.MethodPost, "/v1/auth/register", tc.body)
		_ = h.Register(c)
		var resp authResp
		decodeBody(t, rec, &resp)
		if rec.Code != http.StatusCreated || resp.User.Role != tc.want {
			t.Fatalf("%s: status = %d, role = %q, want %q", tc.body, rec.Code, resp.User.Role, tc.want)
		}
		if got := users.created[len(users.created)-1].Role; got != tc.want {
			t.Fatalf("stored role = %q, want %q", got, tc.want)
		}
	}
}

func TestMeReportsBackEndFolders(t *testing.T) {
	admin := model.User{ID: 9, Email: "admin@example.org", Role: model.RoleBackEnd}
	users := &fakeUsers{
		users: map[uint64]model.User{9: admin},
		be:    &model.BackEndUser{User: admin, EventFolder: 4, Groups: []*model.BackEndUserGroup{{RegistrationFolder: 6, AuxiliaryRecordsFolder: 7}}},
	}
	h := NewAuthHandler(config.Config{}, users, &fakeTokens{})
	rec, c := request(http.MethodGet, "/v1/me", "")
	c.Set("user_id", uint64(9))
	_ = h.Me(c)
	var body struct {
		Folders map[string]uint64 `json:"folders"`
	}
	decodeBody(t, rec, &body)
	if rec.Code != http.StatusOK || body.Folders["events"] != 4 || body.Folders["registrations"] != 6 || body.Folders["auxiliary_records"] != 7 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestRegisterUserValidation(t *testing.T) {
	h := NewAuthHandler(config.Config{}, &fakeUsers{}, &fakeTokens{})
	rec, c := request(http.MethodPost, "/v1/auth/register", `{"username":"jo","email":"not-an-email","password":"longenough"}`)
	_ = h.Register(c)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	rec, c := request(http.MethodGet, "/healthz", "")
	_ = Health(pinger{})(c)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	rec, c = request(http.MethodGet, "/healthz", "")
	_ = Health(pinger{err: errors.New("down")})(c)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}
