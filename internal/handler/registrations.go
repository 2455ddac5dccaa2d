package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/seminars/internal/config"
	"github.com/iliyamo/seminars/internal/model"
	"github.com/iliyamo/seminars/internal/queue"
	"github.com/iliyamo/seminars/internal/repository"
	"github.com/iliyamo/seminars/internal/service"
)

// RegistrationHandler books events for front-end users and lets them
// inspect and cancel their own registrations.
type RegistrationHandler struct {
	Events        EventStore
	Registrations RegistrationStore
	Users         UserStore
	Features      config.Features
	Notifier      service.Notifier
	Log           zerolog.Logger
	// Invalidate drops cached public listings after vacancies changed.
	Invalidate func(ctx context.Context)
	Now        func() time.Time
}

func (h *RegistrationHandler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

func (h *RegistrationHandler) invalidate(ctx context.Context) {
	if h.Invalidate != nil {
		h.Invalidate(ctx)
	}
}

type registrationReq struct {
	Seats                int      `json:"seats" validate:"gte=0,lte=100"`
	PriceCode            string   `json:"price_code" validate:"pricecode"`
	RegisteredThemselves *bool    `json:"registered_themselves"`
	AttendeesNames       []string `json:"attendees_names" validate:"max=100,dive,max=255"`
	AdditionalPersons    []string `json:"additional_persons" validate:"max=100,dive,required,max=255"`
	PaymentMethodID      uint64   `json:"payment_method_id"`
	LodgingIDs           []uint64 `json:"lodging_ids" validate:"max=50"`
	FoodIDs              []uint64 `json:"food_ids" validate:"max=50"`
	CheckboxIDs          []uint64 `json:"checkbox_ids" validate:"max=50"`
	Notes                string   `json:"notes" validate:"max=2000"`
	KnownFrom            string   `json:"known_from" validate:"max=2000"`
	Interests            string   `json:"interests" validate:"max=2000"`
	Expectations         string   `json:"expectations" validate:"max=2000"`
	Background           string   `json:"background_knowledge" validate:"max=2000"`
}

// Register handles POST /v1/events/:id/registrations.
func (h *RegistrationHandler) Register(c echo.Context) error {
	if !h.Features.RegistrationEnabled {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "online registration is disabled"})
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req registrationReq
	if err := decode(c, &req); err != nil {
		return failure(c, err, "")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	ev, err := h.Events.GetByID(ctx, eventID)
	if err != nil {
		return failure(c, err, "load event failed")
	}
	if ev.Record.Hidden {
		return failure(c, repository.ErrEventNotFound, "")
	}
	if err := checkOptions(ev, &req); err != nil {
		return failure(c, err, "")
	}
	user, err := h.Users.GetFrontEndUser(ctx, uid)
	if err != nil {
		return failure(c, err, "load user failed")
	}

	reg := &model.Registration{
		EventID:              eventID,
		UserID:               uid,
		User:                 user,
		RegisteredThemselves: req.RegisteredThemselves == nil || *req.RegisteredThemselves,
		PriceCode:            req.PriceCode,
		AttendeesNames:       strings.Join(req.AttendeesNames, "\n"),
		PaymentMethodID:      req.PaymentMethodID,
		LodgingIDs:           req.LodgingIDs,
		FoodIDs:              req.FoodIDs,
		CheckboxIDs:          req.CheckboxIDs,
		Notes:                req.Notes,
		KnownFrom:            req.KnownFrom,
		Interests:            req.Interests,
		Expectations:         req.Expectations,
		Background:           req.Background,
	}
	if err := reg.SetSeats(req.Seats); err != nil {
		return failure(c, err, "")
	}
	if len(req.AdditionalPersons) > 0 {
		persons, err := h.Users.FindByUsernames(ctx, req.AdditionalPersons)
		if err != nil {
			return failure(c, err, "load persons failed")
		}
		if len(persons) != len(req.AdditionalPersons) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown additional person"})
		}
		reg.AdditionalPersons = persons
	}

	if err := h.Events.Register(ctx, eventID, reg, h.now()); err != nil {
		return failure(c, err, "registration failed")
	}
	h.invalidate(ctx)

	kind := queue.KindRegistrationCreated
	if reg.OnQueue {
		kind = queue.KindRegistrationQueued
	}
	service.PublishAsync(h.Notifier, h.Log, queue.RegistrationEvent{
		Kind:            kind,
		RegistrationID:  reg.ID,
		EventID:         eventID,
		EventTitle:      ev.Title(),
		EventBegin:      ev.Record.BeginDate,
		UserID:          uid,
		Email:           user.Email,
		Name:            user.DisplayName(),
		Seats:           reg.Seats,
		TotalPriceCents: reg.TotalPriceCents,
		OccurredAt:      h.now().UTC(),
	})
	h.Log.Info().Uint64("event_id", eventID).Uint64("registration_id", reg.ID).Bool("queued", reg.OnQueue).Msg("registration created")

	v := newRegistrationView(reg)
	v.EventTitle = ev.Title()
	v.EventBegin = ev.Record.BeginDate
	v.EventEnd = ev.Record.EndDate
	v.EventStatus = statusName(ev.Status())
	return c.JSON(http.StatusCreated, v)
}

// checkOptions rejects payment methods, lodgings, foods and checkboxes the
// event does not offer.
func checkOptions(ev *model.Event, req *registrationReq) error {
	if req.PaymentMethodID > 0 {
		offered := map[uint64]bool{}
		for _, p := range ev.PaymentMethods() {
			offered[p.ID] = true
		}
		if !offered[req.PaymentMethodID] {
			return &model.ValidationError{Code: model.CodeInvalidPaymentMethod, Field: "registrations.payment_method_id", Reason: "not offered by the event"}
		}
	}
	checks := []struct {
		field string
		ids   []uint64
		of    func() []uint64
	}{
		{"registrations.lodgings", req.LodgingIDs, func() []uint64 { return idsOf(ev.Relations.Lodgings, func(l *model.Lodging) uint64 { return l.ID }) }},
		{"registrations.foods", req.FoodIDs, func() []uint64 { return idsOf(ev.Relations.Foods, func(f *model.Food) uint64 { return f.ID }) }},
		{"registrations.checkboxes", req.CheckboxIDs, func() []uint64 { return idsOf(ev.Relations.Checkboxes, func(b *model.Checkbox) uint64 { return b.ID }) }},
	}
	for _, ch := range checks {
		if len(ch.ids) == 0 {
			continue
		}
		offered := map[uint64]bool{}
		for _, id := range ch.of() {
			offered[id] = true
		}
		for _, id := range ch.ids {
			if !offered[id] {
				return &model.ValidationError{Code: model.CodeInvalidOption, Field: ch.field, Reason: "not offered by the event"}
			}
		}
	}
	return nil
}

func idsOf[T any](recs []*T, id func(*T) uint64) []uint64 {
	out := make([]uint64, 0, len(recs))
	for _, r := range recs {
		out = append(out, id(r))
	}
	return out
}

// ListMine handles GET /v1/my-registrations.
func (h *RegistrationHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	regs, err := h.Registrations.ListByUser(ctx, uid)
	if err != nil {
		return failure(c, err, "list registrations failed")
	}
	out := make([]registrationView, 0, len(regs))
	for _, d := range regs {
		out = append(out, newRegistrationDetailView(d))
	}
	return c.JSON(http.StatusOK, out)
}

// GetMine handles GET /v1/my-registrations/:id.
func (h *RegistrationHandler) GetMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	d, err := h.Registrations.GetByIDForUser(ctx, id, uid)
	if err != nil {
		return failure(c, err, "load registration failed")
	}
	return c.JSON(http.StatusOK, newRegistrationDetailView(d))
}

// CancelMine handles DELETE /v1/my-registrations/:id.  Registrations moved
// up from the waiting list are notified.
func (h *RegistrationHandler) CancelMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	d, err := h.Registrations.GetByIDForUser(ctx, id, uid)
	if err != nil {
		return failure(c, err, "load registration failed")
	}
	now := h.now()
	cancelled, promoted, err := h.Registrations.CancelForUser(ctx, id, uid, now)
	if err != nil {
		return failure(c, err, "cancel registration failed")
	}
	h.invalidate(ctx)

	if user, err := h.Users.GetByID(ctx, uid); err == nil {
		service.PublishAsync(h.Notifier, h.Log, queue.RegistrationEvent{
			Kind:           queue.KindRegistrationCancelled,
			RegistrationID: cancelled.ID,
			EventID:        cancelled.EventID,
			EventTitle:     d.EventTitle,
			EventBegin:     d.EventBegin,
			UserID:         uid,
			Email:          user.Email,
			Name:           user.DisplayName(),
			Seats:          cancelled.Seats,
			OccurredAt:     now.UTC(),
		})
	}
	for _, p := range promoted {
		ev := queue.RegistrationEvent{
			Kind:            queue.KindRegistrationPromoted,
			RegistrationID:  p.ID,
			EventID:         p.EventID,
			EventTitle:      d.EventTitle,
			EventBegin:      d.EventBegin,
			UserID:          p.UserID,
			Seats:           p.Seats,
			TotalPriceCents: p.TotalPriceCents,
			OccurredAt:      now.UTC(),
		}
		if p.UserID > 0 {
			if u, err := h.Users.GetByID(ctx, p.UserID); err == nil {
				ev.Email, ev.Name = u.Email, u.DisplayName()
			}
		}
		service.PublishAsync(h.Notifier, h.Log, ev)
	}
	h.Log.Info().Uint64("registration_id", id).Int("promoted", len(promoted)).Msg("registration cancelled")
	return c.NoContent(http.StatusNoContent)
}
