package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seminars/internal/repository"
)

// RecordHandler exposes the auxiliary records (places, speakers, ...)
// under /v1/records/:kind.
type RecordHandler struct {
	Records    RecordStore
	Users      UserStore
	Invalidate func(ctx context.Context)
}

func kindParam(c echo.Context) (repository.Kind, error) {
	return repository.ParseKind(c.Param("kind"))
}

// Kinds handles GET /v1/records and lists the available kinds.
func (h *RecordHandler) Kinds(c echo.Context) error {
	return c.JSON(http.StatusOK, repository.Kinds())
}

// List handles GET /v1/records/:kind.
func (h *RecordHandler) List(c echo.Context) error {
	k, err := kindParam(c)
	if err != nil {
		return failure(c, err, "")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	recs, err := h.Records.List(ctx, k)
	if err != nil {
		return failure(c, err, "list records failed")
	}
	if recs == nil {
		recs = []any{}
	}
	return c.JSON(http.StatusOK, recs)
}

// Create handles POST /v1/records/:kind (back-end users).  The body is
// decoded straight into the record type of the kind, which is then stored
// in the caller's auxiliary records folder.
func (h *RecordHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return failure(c, err, "")
	}
	k, err := kindParam(c)
	if err != nil {
		return failure(c, err, "")
	}
	rec, err := repository.NewRecord(k)
	if err != nil {
		return failure(c, err, "")
	}
	if err := c.Bind(rec); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	be, err := h.Users.GetBackEndUser(ctx, uid)
	if err != nil {
		return failure(c, err, "load user failed")
	}
	repository.StampRecord(rec, 0, be.AuxiliaryFolder())
	if _, err := h.Records.Create(ctx, k, rec); err != nil {
		return failure(c, err, "create record failed")
	}
	if h.Invalidate != nil {
		h.Invalidate(ctx)
	}
	return c.JSON(http.StatusCreated, rec)
}

// Delete handles DELETE /v1/records/:kind/:id (back-end users).  Records
// still used by events are refused with 409.
func (h *RecordHandler) Delete(c echo.Context) error {
	k, err := kindParam(c)
	if err != nil {
		return failure(c, err, "")
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid record id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Records.Delete(ctx, k, id); err != nil {
		return failure(c, err, "delete record failed")
	}
	if h.Invalidate != nil {
		h.Invalidate(ctx)
	}
	return c.NoContent(http.StatusNoContent)
}
