package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seminars/internal/handler"
	"github.com/iliyamo/seminars/internal/middleware"
	"github.com/iliyamo/seminars/internal/model"
)

// RegisterFrontEnd registers the endpoints of front-end users: booking an
// event, managing their own registrations and the event editor.  All of
// them require a valid JWT with the FRONTEND role.
func RegisterFrontEnd(e *echo.Echo, r *handler.RegistrationHandler, ed *handler.EditorHandler, jwtSecret string) {
	auth := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleFrontEnd),
	}

	e.POST("/v1/events/:id/registrations", r.Register, auth...)

	my := e.Group("/v1/my-registrations", auth...)
	my.GET("", r.ListMine)
	my.GET("/:id", r.GetMine)
	my.DELETE("/:id", r.CancelMine)

	g := e.Group("/v1/editor", auth...)
	g.GET("/events", ed.List)
	g.POST("/events", ed.Create)
	g.PUT("/events/:id", ed.Update)
	g.PATCH("/events/:id", ed.Update)
	g.GET("/events/:id/time-slots", ed.ListTimeSlots)
	g.POST("/events/:id/time-slots", ed.CreateTimeSlot)
	g.DELETE("/events/:id/time-slots/:slotId", ed.DeleteTimeSlot)
	g.POST("/records/:kind", ed.CreateRecord)
}
