package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seminars/internal/config"
	"github.com/iliyamo/seminars/internal/ical"
	"github.com/iliyamo/seminars/internal/middleware"
	"github.com/iliyamo/seminars/internal/model"
	"github.com/iliyamo/seminars/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// EventHandler serves the public event list, the detail view and the
// calendar export.
type EventHandler struct {
	Events   EventStore
	Features config.Features
	// Calendar configures the iCalendar export.  Now is overridden per
	// request.
	Calendar ical.Options
	Now      func() time.Time
}

func NewEventHandler(events EventStore, features config.Features, calendar ical.Options) *EventHandler {
	return &EventHandler{Events: events, Features: features, Calendar: calendar, Now: time.Now}
}

func (h *EventHandler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

// List handles GET /v1/events.  Query parameters: type (single|topic|date),
// category (id), upcoming (bool), limit, offset.
func (h *EventHandler) List(c echo.Context) error {
	f := repository.EventFilter{Limit: defaultPageSize}
	now := h.now()

	switch t := c.QueryParam("type"); t {
	case "":
	case "single", "topic", "date":
		ot := map[string]int{"single": model.TypeComplete, "topic": model.TypeTopic, "date": model.TypeDate}[t]
		f.ObjectType = &ot
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "type must be single, topic or date"})
	}
	if s := c.QueryParam("category"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil || id == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid category"})
		}
		f.CategoryID = id
	}
	if s := c.QueryParam("upcoming"); s != "" {
		up, err := strconv.ParseBool(s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid upcoming"})
		}
		if up {
			f.UpcomingAt = &now
		}
	}
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		f.Limit = min(n, maxPageSize)
	}
	if s := c.QueryParam("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid offset"})
		}
		f.Offset = n
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	events, err := h.Events.List(ctx, f)
	if err != nil {
		return failure(c, err, "list events failed")
	}
	out := make([]eventView, 0, len(events))
	for _, ev := range events {
		out = append(out, newEventView(ev, now))
	}
	if t, ok := nextChange(now, events...); ok {
		middleware.CacheUntil(c, t)
	}
	return c.JSON(http.StatusOK, echo.Map{"events": out, "limit": f.Limit, "offset": f.Offset})
}

// nextChange returns the earliest moment after now at which prices or the
// registration state of one of evs change.
func nextChange(now time.Time, evs ...*model.Event) (time.Time, bool) {
	var (
		next  time.Time
		found bool
	)
	for _, ev := range evs {
		r := ev.Record
		for _, t := range []*time.Time{r.RegistrationBegin, r.RegistrationDeadline, ev.EarlyBirdDeadline(), r.UnregistrationDeadline, r.BeginDate} {
			if t != nil && t.After(now) && (!found || t.Before(next)) {
				next, found = *t, true
			}
		}
	}
	return next, found
}

// load fetches a visible event by the :id path parameter.
func (h *EventHandler) load(c echo.Context) (*model.Event, error) {
	id, ok := parseID(c, "id")
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	ev, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ev.Record.Hidden {
		return nil, repository.ErrEventNotFound
	}
	return ev, nil
}

// Get handles GET /v1/events/:id.
func (h *EventHandler) Get(c echo.Context) error {
	ev, err := h.load(c)
	if err != nil {
		return failure(c, err, "load event failed")
	}
	now := h.now()
	if t, ok := nextChange(now, ev); ok {
		middleware.CacheUntil(c, t)
	}
	return c.JSON(http.StatusOK, newEventDetailView(ev, now, h.Features.PublicAttendeeNames))
}

// ICS handles GET /v1/events/:id/ics and returns the event as a calendar
// download.
func (h *EventHandler) ICS(c echo.Context) error {
	ev, err := h.load(c)
	if err != nil {
		return failure(c, err, "load event failed")
	}
	opts := h.Calendar
	opts.Now = h.now()
	body, err := ical.Render(ev, opts)
	if errors.Is(err, ical.ErrNoDate) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "event has no date"})
	}
	if err != nil {
		return failure(c, err, "render calendar failed")
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="event-`+strconv.FormatUint(ev.Record.ID, 10)+`.ics"`)
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}
