package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserID returns the id stored by JWTAuth and whether one was present.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ctxUserID).(uint64)
	return id, ok && id > 0
}

// Role returns the role stored by JWTAuth, or "".
func Role(c echo.Context) string {
	r, _ := c.Get(ctxRole).(string)
	return r
}

// identityKey names the caller for rate limit keys: the user id when
// authenticated, else "anon".
func identityKey(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
