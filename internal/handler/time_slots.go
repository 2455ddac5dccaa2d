package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seminars/internal/model"
	"github.com/iliyamo/seminars/internal/repository"
)

type timeSlotReq struct {
	Begin     time.Time  `json:"begin" validate:"required"`
	End       time.Time  `json:"end"`
	EntryDate *time.Time `json:"entry_date"`
	Room      string     `json:"room" validate:"max=255"`
	PlaceID   uint64     `json:"place_id"`
}

// ownEvent loads event :id and checks that the caller owns it.
func (h *EditorHandler) ownEvent(ctx context.Context, c echo.Context) (*model.Event, error) {
	uid, err := getUserID(c)
	if err != nil {
		return nil, err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	ev, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ev.Record.OwnerID != uid {
		return nil, repository.ErrForbidden
	}
	return ev, nil
}

// ListTimeSlots handles GET /v1/editor/events/:id/time-slots.
func (h *EditorHandler) ListTimeSlots(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	ev, err := h.ownEvent(ctx, c)
	if err != nil {
		return failure(c, err, "load event failed")
	}
	slots, err := h.TimeSlots.ListByEvent(ctx, ev.Record.ID)
	if err != nil {
		return failure(c, err, "list time slots failed")
	}
	out := make([]timeSlotView, 0, len(slots))
	for _, s := range slots {
		out = append(out, newTimeSlotView(s))
	}
	return c.JSON(http.StatusOK, out)
}

// CreateTimeSlot handles POST /v1/editor/events/:id/time-slots.
func (h *EditorHandler) CreateTimeSlot(c echo.Context) error {
	var req timeSlotReq
	if err := decode(c, &req); err != nil {
		return failure(c, err, "")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	ev, err := h.ownEvent(ctx, c)
	if err != nil {
		return failure(c, err, "load event failed")
	}
	slot := &model.TimeSlot{EventID: ev.Record.ID, Room: req.Room, PlaceID: req.PlaceID}
	if err := slot.SetSpan(req.Begin, req.End); err != nil {
		return failure(c, err, "")
	}
	if err := slot.SetEntryDate(req.EntryDate); err != nil {
		return failure(c, err, "")
	}
	id, err := h.TimeSlots.Create(ctx, slot)
	if err != nil {
		return failure(c, err, "create time slot failed")
	}
	h.invalidate(ctx)
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// DeleteTimeSlot handles DELETE /v1/editor/events/:id/time-slots/:slotId.
func (h *EditorHandler) DeleteTimeSlot(c echo.Context) error {
	slotID, ok := parseID(c, "slotId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid time slot id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	ev, err := h.ownEvent(ctx, c)
	if err != nil {
		return failure(c, err, "load event failed")
	}
	if err := h.TimeSlots.Delete(ctx, ev.Record.ID, slotID); err != nil {
		return failure(c, err, "delete time slot failed")
	}
	h.invalidate(ctx)
	return c.NoContent(http.StatusNoContent)
}
