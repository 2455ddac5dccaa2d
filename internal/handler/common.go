package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/seminars/internal/middleware"
	"github.com/iliyamo/seminars/internal/model"
	"github.com/iliyamo/seminars/internal/repository"
	"github.com/iliyamo/seminars/pkg/validator"
)

// requestTimeout bounds the database work of one request.
const requestTimeout = 5 * time.Second

// EventStore is the part of repository.EventRepo used by the handlers.
type EventStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
	List(ctx context.Context, f repository.EventFilter) ([]*model.Event, error)
	Create(ctx context.Context, ev *model.Event) (uint64, error)
	Update(ctx context.Context, ev *model.Event) error
	Register(ctx context.Context, eventID uint64, reg *model.Registration, now time.Time) error
}

// RegistrationStore is the part of repository.RegistrationRepo used by the
// handlers.
type RegistrationStore interface {
	ListByUser(ctx context.Context, userID uint64) ([]*repository.RegistrationDetail, error)
	GetByIDForUser(ctx context.Context, id, userID uint64) (*repository.RegistrationDetail, error)
	CancelForUser(ctx context.Context, id, userID uint64, now time.Time) (*model.Registration, []*model.Registration, error)
}

// UserStore is the part of repository.UserRepo used by the handlers.
type UserStore interface {
	Create(ctx context.Context, nu repository.NewUser, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetFrontEndUser(ctx context.Context, id uint64) (*model.FrontEndUser, error)
	GetBackEndUser(ctx context.Context, id uint64) (*model.BackEndUser, error)
	FindByUsernames(ctx context.Context, names []string) ([]*model.FrontEndUser, error)
}

// TokenStore is the refresh token persistence.
type TokenStore interface {
	Store(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	Rotate(ctx context.Context, oldHash, newHash string, newExp, now time.Time) (uint64, error)
	Revoke(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// RecordStore is the auxiliary record persistence.
type RecordStore interface {
	List(ctx context.Context, k repository.Kind) ([]any, error)
	Create(ctx context.Context, k repository.Kind, rec any) (uint64, error)
	Delete(ctx context.Context, k repository.Kind, id uint64) error
}

// TimeSlotStore persists the sessions of an event.
type TimeSlotStore interface {
	ListByEvent(ctx context.Context, eventID uint64) ([]*model.TimeSlot, error)
	Create(ctx context.Context, s *model.TimeSlot) (uint64, error)
	Delete(ctx context.Context, eventID, id uint64) error
}

var errNoUser = errors.New("missing user in context")

// getUserID returns the id JWTAuth stored for the caller.
func getUserID(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, errNoUser
	}
	return id, nil
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// failure writes the JSON error response for err.  Repository sentinels and
// validation errors get their own status; everything else is a 500 with
// the generic message fallback.
func failure(c echo.Context, err error, fallback string) error {
	var ve *model.ValidationError
	switch {
	case errors.Is(err, errNoUser):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Reason, "field": ve.Field, "code": ve.Code})
	case errors.Is(err, validator.ErrInvalid):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrEventNotFound),
		errors.Is(err, repository.ErrRegistrationNotFound),
		errors.Is(err, repository.ErrRecordNotFound),
		errors.Is(err, repository.ErrUnknownKind),
		errors.Is(err, sql.ErrNoRows):
		return c.JSON(http.StatusNotFound, echo.Map{"error": notFoundMessage(err)})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrEventFull),
		errors.Is(err, repository.ErrAlreadyRegistered),
		errors.Is(err, repository.ErrConflict),
		errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrRegistrationClosed):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "timeout"})
	}
	log.Error().Err(err).Str("route", c.Path()).Msg(fallback)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": fallback})
}

func notFoundMessage(err error) string {
	if errors.Is(err, sql.ErrNoRows) {
		return "not found"
	}
	return err.Error()
}

// decode binds the request body into req and runs the struct validator on
// it.  Both failures wrap validator.ErrInvalid.
func decode(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return fmt.Errorf("%w: malformed body", validator.ErrInvalid)
	}
	return validator.Validate(c.Request().Context(), req)
}
