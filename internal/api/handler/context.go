package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/villagegrid/outage-alerts/internal/api/middleware"
	"github.com/villagegrid/outage-alerts/internal/core/domain"
)

// ctxSession returns the session injected by the Auth middleware. Its
// absence means the route was mounted without Auth; reject with 401.
func ctxSession(c echo.Context) (*domain.Session, error) {
	sess, _ := c.Get(middleware.SessionKey).(*domain.Session)
	if sess == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
	}
	return sess, nil
}

func ctxToken(c echo.Context) string {
	token, _ := c.Get(middleware.TokenKey).(string)
	return token
}
