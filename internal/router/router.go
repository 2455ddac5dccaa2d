package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seminars/internal/handler"
	"github.com/iliyamo/seminars/internal/middleware"
	"github.com/iliyamo/seminars/internal/model"
)

// RegisterRoutes registers the health check.  db may be nil, in which case
// the check only reports that the process is up.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the authentication routes.  Register, login,
// refresh and logout live under /v1/auth without a session; /v1/me needs
// a valid access token of either role.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleFrontEnd, model.RoleBackEnd),
	)
}

// RegisterPublic registers the unauthenticated browse endpoints.  cache is
// applied to every read; it skips requests that carry credentials.
func RegisterPublic(e *echo.Echo, ev *handler.EventHandler, rec *handler.RecordHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/events", ev.List, cache)
	e.GET("/v1/events/:id", ev.Get, cache)
	e.GET("/v1/events/:id/ics", ev.ICS, cache)
	e.GET("/v1/records", rec.Kinds, cache)
	e.GET("/v1/records/:kind", rec.List, cache)
}
