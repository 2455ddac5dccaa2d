package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seminars/internal/handler"
	"github.com/iliyamo/seminars/internal/middleware"
	"github.com/iliyamo/seminars/internal/model"
)

// RegisterBackEnd registers the maintenance endpoints for auxiliary
// records.  They require the BACKEND role.
func RegisterBackEnd(e *echo.Echo, rec *handler.RecordHandler, jwtSecret string) {
	g := e.Group("/v1/records",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleBackEnd),
	)
	g.POST("/:kind", rec.Create)
	g.DELETE("/:kind/:id", rec.Delete)
}
