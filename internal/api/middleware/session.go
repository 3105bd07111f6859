package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// HeaderClientSession carries the random id a client generates per editing
// session. It identifies log lines only; it grants nothing.
const HeaderClientSession = "X-Client-Session"

const sessionKey = "client_session"

// ClientSession validates the optional session header and stores it in the
// context. A malformed value is rejected; a missing one is fine.
func ClientSession() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.Request().Header.Get(HeaderClientSession)
			if raw == "" {
				return next(c)
			}
			id, err := uuid.Parse(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid "+HeaderClientSession+" header")
			}
			c.Set(sessionKey, id.String())
			return next(c)
		}
	}
}

// SessionID returns the session stored by ClientSession, or "".
func SessionID(c echo.Context) string {
	id, _ := c.Get(sessionKey).(string)
	return id
}
