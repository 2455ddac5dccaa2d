package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// RequestLogger writes one zerolog entry per request.  Server errors are
// logged at error level, client errors at warn level.
func RequestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			status := c.Response().Status
			var ev *zerolog.Event
			switch {
			case status >= 500:
				ev = log.Error().Err(err)
			case status >= 400:
				ev = log.Warn()
			default:
				ev = log.Info()
			}
			ev = ev.Str("method", c.Request().Method).
				Str("path", c.Path()).
				Str("uri", c.Request().RequestURI).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Str("ip", c.RealIP())
			if id, ok := UserID(c); ok {
				ev = ev.Uint64("user_id", id)
			}
			ev.Msg("request")
			return nil
		}
	}
}
